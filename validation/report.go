package validation

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

const (
	TitleMinLength       = 5
	TitleMaxLength       = 100
	DescriptionMinLength = 10
	DescriptionMaxLength = 1000
)

// ReportInput is a report submission as received from a client.
// Latitude and Longitude accept JSON numbers or numeric strings. ImageURL
// accepts any JSON value; anything but a string is dropped.
type ReportInput struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	ImageURL    any     `json:"imageUrl"`
	Latitude    any     `json:"latitude"`
	Longitude   any     `json:"longitude"`
	Address     *string `json:"address"`
	UserID      *string `json:"userId"`
}

// CleanReport is a submission that passed ValidateReport: strings trimmed,
// coordinates parsed. ImageURL is passed through untouched for ValidateImage.
// ImageWrongType is set when the client sent a non-string image.
type CleanReport struct {
	Title          string
	Description    string
	ImageURL       *string
	ImageWrongType bool
	Latitude       float64
	Longitude      float64
	Address        *string
}

// ValidateReport checks a submission and returns the normalized record or the
// first violated constraint.
func ValidateReport(in ReportInput) (CleanReport, error) {
	title := strings.TrimSpace(in.Title)
	description := strings.TrimSpace(in.Description)

	if title == "" || description == "" || isBlank(in.Latitude) || isBlank(in.Longitude) {
		return CleanReport{}, newError("", "Title, description, latitude, and longitude are required")
	}

	lat, latOK := parseCoordinate(in.Latitude)
	lng, lngOK := parseCoordinate(in.Longitude)
	if !latOK || !lngOK {
		field := "latitude"
		if latOK {
			field = "longitude"
		}
		return CleanReport{}, newError(field, "Latitude and longitude must be valid numbers")
	}

	if lat < -90 || lat > 90 {
		return CleanReport{}, newError("latitude", "latitude must be between -90 and 90")
	}
	if lng < -180 || lng > 180 {
		return CleanReport{}, newError("longitude", "longitude must be between -180 and 180")
	}

	if n := utf8.RuneCountInString(title); n < TitleMinLength || n > TitleMaxLength {
		return CleanReport{}, newError("title",
			fmt.Sprintf("title must be between %d and %d characters", TitleMinLength, TitleMaxLength))
	}
	if n := utf8.RuneCountInString(description); n < DescriptionMinLength || n > DescriptionMaxLength {
		return CleanReport{}, newError("description",
			fmt.Sprintf("description must be between %d and %d characters", DescriptionMinLength, DescriptionMaxLength))
	}

	image, imageOK := imageString(in.ImageURL)
	return CleanReport{
		Title:          title,
		Description:    description,
		ImageURL:       image,
		ImageWrongType: !imageOK,
		Latitude:       lat,
		Longitude:      lng,
		Address:        trimOptional(in.Address),
	}, nil
}

// imageString extracts a string image reference. ok is false when a value
// of some other type was supplied.
func imageString(v any) (image *string, ok bool) {
	switch t := v.(type) {
	case nil:
		return nil, true
	case string:
		return &t, true
	case *string:
		return t, true
	}
	return nil, false
}

func isBlank(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	}
	return false
}

func parseCoordinate(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case float32:
		f = float64(t)
	case int:
		f = float64(t)
	case int64:
		f = float64(t)
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
