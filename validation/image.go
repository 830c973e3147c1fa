package validation

import (
	"net/url"
	"regexp"
	"strings"
)

// MaxImageLength bounds inline data URIs. Longer payloads are treated as
// corrupted.
const MaxImageLength = 100000

// LegacyCorruptedMarker was written in place of bad image data by older
// releases. It is never produced now and is cleared by the image backfill.
const LegacyCorruptedMarker = "[CORRUPTED_DATA]"

const dataImagePrefix = "data:image/"

var dataImagePattern = regexp.MustCompile(`^data:image/(png|jpg|jpeg|gif);base64,[A-Za-z0-9+/=]+$`)

// ImageVerdict describes why an image reference was kept or dropped.
type ImageVerdict string

const (
	ImageAbsent       ImageVerdict = "absent"
	ImageDataURI      ImageVerdict = "data_uri"
	ImageRemoteURL    ImageVerdict = "url"
	ImageTooLarge     ImageVerdict = "too_large"
	ImageBadDataURI   ImageVerdict = "bad_data_uri"
	ImageBadURL       ImageVerdict = "bad_url"
	ImageUnrecognized ImageVerdict = "unrecognized"
	ImageWrongType    ImageVerdict = "wrong_type"
)

// Accepted reports whether the verdict keeps the image.
func (v ImageVerdict) Accepted() bool {
	return v == ImageDataURI || v == ImageRemoteURL
}

// Rejected reports whether an image was supplied and then dropped.
func (v ImageVerdict) Rejected() bool {
	return v != ImageAbsent && !v.Accepted()
}

// ClassifyImage inspects an inbound image reference without modifying it.
func ClassifyImage(raw string) ImageVerdict {
	switch {
	case raw == "":
		return ImageAbsent
	case strings.HasPrefix(raw, dataImagePrefix):
		if len(raw) > MaxImageLength {
			return ImageTooLarge
		}
		if !dataImagePattern.MatchString(raw) {
			return ImageBadDataURI
		}
		return ImageDataURI
	case strings.HasPrefix(raw, "http"):
		if !isAbsoluteHTTPURL(raw) {
			return ImageBadURL
		}
		return ImageRemoteURL
	default:
		return ImageUnrecognized
	}
}

// ValidateImage returns raw unchanged when it is an acceptable data URI or
// http(s) URL and nil otherwise. nil always means "no image".
func ValidateImage(raw *string) *string {
	if raw == nil {
		return nil
	}
	if !ClassifyImage(*raw).Accepted() {
		return nil
	}
	return raw
}

func isAbsoluteHTTPURL(raw string) bool {
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != ""
}
