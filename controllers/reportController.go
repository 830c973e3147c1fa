package controllers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"civicreporter-be/middlewares"
	"civicreporter-be/services"
	"civicreporter-be/validation"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ReportController serves the report endpoints.
type ReportController struct {
	reports *services.ReportService
	cleanup *services.ImageCleanup
	log     *zap.Logger
	timeout time.Duration
}

func NewReportController(reports *services.ReportService, cleanup *services.ImageCleanup, log *zap.Logger, timeout time.Duration) *ReportController {
	if log == nil {
		log = zap.NewNop()
	}
	return &ReportController{reports: reports, cleanup: cleanup, log: log, timeout: timeout}
}

var reportNotFound = []errorCase{notFound("Report not found")}

// maxReportBodyBytes caps a submission. Images somewhat over the inline limit
// still decode so they can be dropped instead of failing the report.
const maxReportBodyBytes = 2*validation.MaxImageLength + 64<<10

// CreateReport handles a citizen submission. The token's user wins over a
// userId in the body; with neither the report goes to the anonymous account.
func (rc *ReportController) CreateReport(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxReportBodyBytes)

	var input validation.ReportInput
	if err := c.ShouldBindJSON(&input); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "Request body too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	userID := ""
	if identity, ok := middlewares.CurrentUser(c); ok {
		userID = identity.UserID
	} else if input.UserID != nil {
		userID = *input.UserID
	}

	ctx, cancel := rc.context(c)
	defer cancel()

	report, err := rc.reports.Create(ctx, input, userID)
	if err != nil {
		respondError(c, rc.log, err, nil, "Failed to create report")
		return
	}
	c.JSON(http.StatusCreated, report)
}

// GetAllReports lists reports newest first with optional filters.
func (rc *ReportController) GetAllReports(c *gin.Context) {
	ctx, cancel := rc.context(c)
	defer cancel()

	reports, err := rc.reports.List(ctx, services.ListQuery{
		Status: c.Query("status"),
		UserID: c.Query("userId"),
		Limit:  c.Query("limit"),
	})
	if err != nil {
		respondError(c, rc.log, err, nil, "Failed to fetch reports")
		return
	}
	c.JSON(http.StatusOK, reports)
}

// GetUserReports lists the caller's own reports.
func (rc *ReportController) GetUserReports(c *gin.Context) {
	identity, ok := middlewares.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	ctx, cancel := rc.context(c)
	defer cancel()

	reports, err := rc.reports.List(ctx, services.ListQuery{
		Status: c.Query("status"),
		UserID: identity.UserID,
		Limit:  c.Query("limit"),
	})
	if err != nil {
		respondError(c, rc.log, err, nil, "Failed to fetch reports")
		return
	}
	c.JSON(http.StatusOK, reports)
}

func (rc *ReportController) GetReport(c *gin.Context) {
	ctx, cancel := rc.context(c)
	defer cancel()

	report, err := rc.reports.Get(ctx, c.Param("id"))
	if err != nil {
		respondError(c, rc.log, err, reportNotFound, "Failed to fetch report")
		return
	}
	c.JSON(http.StatusOK, report)
}

// UpdateReportStatus sets one of the four statuses; order is not enforced.
func (rc *ReportController) UpdateReportStatus(c *gin.Context) {
	var input struct {
		Status string `json:"status"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	ctx, cancel := rc.context(c)
	defer cancel()

	report, err := rc.reports.UpdateStatus(ctx, c.Param("id"), input.Status)
	if err != nil {
		respondError(c, rc.log, err, reportNotFound, "Failed to update report")
		return
	}
	c.JSON(http.StatusOK, report)
}

func (rc *ReportController) DeleteReport(c *gin.Context) {
	identity, ok := middlewares.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User not authenticated"})
		return
	}

	ctx, cancel := rc.context(c)
	defer cancel()

	err := rc.reports.Delete(ctx, c.Param("id"), identity.UserID, identity.Role)
	if err != nil {
		respondError(c, rc.log, err, []errorCase{
			notFound("Report not found"),
			{err: services.ErrForbidden, status: http.StatusForbidden, message: services.ErrForbidden.Error()},
		}, "Failed to delete report")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Report deleted successfully"})
}

func (rc *ReportController) GetReportStats(c *gin.Context) {
	ctx, cancel := rc.context(c)
	defer cancel()

	stats, err := rc.reports.Stats(ctx)
	if err != nil {
		respondError(c, rc.log, err, nil, "Failed to fetch report stats")
		return
	}
	c.JSON(http.StatusOK, stats)
}

// CleanupImages runs the image backfill synchronously. It is not bound by
// the per-request timeout.
func (rc *ReportController) CleanupImages(c *gin.Context) {
	stats, err := rc.cleanup.Run(c.Request.Context())
	if err != nil {
		respondError(c, rc.log, err, nil, "Image cleanup failed")
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (rc *ReportController) context(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), rc.timeout)
}
