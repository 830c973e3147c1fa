package services

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"civicreporter-be/metrics"
	"civicreporter-be/models"
	"civicreporter-be/store"
	"civicreporter-be/validation"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	anonymousName = "Anonymous User"
	maxListLimit  = 100
)

// ReportService owns the report lifecycle: validation, owner assignment,
// persistence and status changes.
type ReportService struct {
	reports store.ReportStore
	users   store.UserStore
	log     *zap.Logger
	metrics *metrics.Metrics
}

func NewReportService(reports store.ReportStore, users store.UserStore, log *zap.Logger, m *metrics.Metrics) *ReportService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ReportService{reports: reports, users: users, log: log, metrics: m}
}

// ListQuery is the raw listing filter as received from a client.
type ListQuery struct {
	Status string
	UserID string
	Limit  string
}

// Create validates in, assigns an owner and persists a new PENDING report.
// userID is the caller's id when known; an empty or unknown id makes the
// shared anonymous account the owner.
func (s *ReportService) Create(ctx context.Context, in validation.ReportInput, userID string) (*models.Report, error) {
	clean, err := validation.ValidateReport(in)
	if err != nil {
		return nil, err
	}

	if clean.ImageWrongType {
		s.metrics.ImageRejected(string(validation.ImageWrongType))
		s.log.Warn("dropping invalid image data", zap.String("reason", string(validation.ImageWrongType)))
	}
	image := s.checkImage(clean.ImageURL, "")

	owner, err := s.resolveOwner(ctx, userID)
	if err != nil {
		return nil, err
	}

	report := &models.Report{
		ID:          uuid.NewString(),
		Title:       clean.Title,
		Description: clean.Description,
		ImageURL:    image,
		Latitude:    clean.Latitude,
		Longitude:   clean.Longitude,
		Address:     clean.Address,
		Status:      models.Pending,
		UserID:      owner.ID,
	}
	if err := s.reports.CreateReport(ctx, report); err != nil {
		return nil, fmt.Errorf("create report: %w", err)
	}

	s.metrics.ReportCreated(owner.IsAnonymous())
	s.log.Info("report created",
		zap.String("report_id", report.ID),
		zap.Bool("anonymous", owner.IsAnonymous()),
		zap.Bool("has_image", report.ImageURL != nil))
	return s.sanitize(report), nil
}

// Get returns a single report with its owner summary.
func (s *ReportService) Get(ctx context.Context, id string) (*models.ReportWithOwner, error) {
	report, err := s.reports.FindReportByID(ctx, id)
	if err != nil {
		return nil, err
	}
	out := s.withOwners(ctx, []models.Report{*report})
	return &out[0], nil
}

// List returns reports newest first, each with its owner summary.
func (s *ReportService) List(ctx context.Context, q ListQuery) ([]models.ReportWithOwner, error) {
	filter, err := parseListQuery(q)
	if err != nil {
		return nil, err
	}
	reports, err := s.reports.FindReports(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return s.withOwners(ctx, reports), nil
}

// UpdateStatus moves a report to the status named by raw. Any of the four
// statuses may follow any other.
func (s *ReportService) UpdateStatus(ctx context.Context, id, raw string) (*models.Report, error) {
	status, err := validation.ParseStatus(raw)
	if err != nil {
		return nil, err
	}
	report, err := s.reports.UpdateReportStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}
	s.metrics.StatusChanged(string(status))
	s.log.Info("report status updated", zap.String("report_id", id), zap.String("status", string(status)))
	return s.sanitize(report), nil
}

// Delete removes a report. Only an admin or the report's owner may do so.
func (s *ReportService) Delete(ctx context.Context, id string, actorID string, actorRole models.Role) error {
	report, err := s.reports.FindReportByID(ctx, id)
	if err != nil {
		return err
	}
	if actorRole != models.RoleAdmin && report.UserID != actorID {
		return ErrForbidden
	}
	if err := s.reports.DeleteReport(ctx, id); err != nil {
		return err
	}
	s.log.Info("report deleted", zap.String("report_id", id), zap.String("actor_id", actorID))
	return nil
}

// Stats counts reports per status. Every status is present in the result.
func (s *ReportService) Stats(ctx context.Context) (models.ReportStats, error) {
	counts, err := s.reports.CountReportsByStatus(ctx)
	if err != nil {
		return models.ReportStats{}, fmt.Errorf("count reports: %w", err)
	}
	stats := models.ReportStats{ByStatus: make(map[models.ReportStatus]int64, len(models.ReportStatuses))}
	for _, status := range models.ReportStatuses {
		n := counts[status]
		stats.ByStatus[status] = n
		stats.Total += n
		if status.Open() {
			stats.Open += n
		}
	}
	return stats, nil
}

func (s *ReportService) resolveOwner(ctx context.Context, userID string) (*models.User, error) {
	userID = strings.TrimSpace(userID)
	if userID != "" {
		user, err := s.users.FindUserByID(ctx, userID)
		if err == nil {
			return user, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("find owner: %w", err)
		}
		s.log.Warn("report owner not found, using anonymous user", zap.String("user_id", userID))
	}

	anon, err := ensurePasswordlessUser(ctx, s.users, models.AnonymousEmail, anonymousName, nil)
	if err != nil {
		return nil, fmt.Errorf("ensure anonymous user: %w", err)
	}
	return anon, nil
}

// checkImage applies the image policy and records rejections.
func (s *ReportService) checkImage(raw *string, reportID string) *string {
	if raw == nil {
		return nil
	}
	verdict := validation.ClassifyImage(*raw)
	if verdict.Rejected() {
		s.metrics.ImageRejected(string(verdict))
		s.log.Warn("dropping invalid image data",
			zap.String("report_id", reportID),
			zap.String("reason", string(verdict)),
			zap.Int("length", len(*raw)))
	}
	return validation.ValidateImage(raw)
}

// sanitize applies the image policy on the way out so rows written before
// validation existed never reach a client.
func (s *ReportService) sanitize(report *models.Report) *models.Report {
	report.ImageURL = s.checkImage(report.ImageURL, report.ID)
	return report
}

func (s *ReportService) withOwners(ctx context.Context, reports []models.Report) []models.ReportWithOwner {
	owners := make(map[string]*models.ReportOwner)
	out := make([]models.ReportWithOwner, 0, len(reports))
	for i := range reports {
		report := s.sanitize(&reports[i])
		owner, seen := owners[report.UserID]
		if !seen {
			user, err := s.users.FindUserByID(ctx, report.UserID)
			switch {
			case err == nil:
				owner = &models.ReportOwner{ID: user.ID, Name: user.Name, Email: user.Email}
			case errors.Is(err, store.ErrNotFound):
			default:
				s.log.Warn("failed to load report owner", zap.String("user_id", report.UserID), zap.Error(err))
			}
			owners[report.UserID] = owner
		}
		out = append(out, models.ReportWithOwner{Report: *report, User: owner})
	}
	return out
}

func parseListQuery(q ListQuery) (store.ReportFilter, error) {
	var filter store.ReportFilter
	if raw := strings.TrimSpace(q.Status); raw != "" {
		status, err := validation.ParseStatus(raw)
		if err != nil {
			return filter, err
		}
		filter.Status = status
	}
	filter.UserID = strings.TrimSpace(q.UserID)
	if raw := strings.TrimSpace(q.Limit); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > maxListLimit {
			return filter, &validation.ValidationError{
				Field:   "limit",
				Message: fmt.Sprintf("limit must be an integer between 1 and %d", maxListLimit),
			}
		}
		filter.Limit = limit
	}
	return filter, nil
}
