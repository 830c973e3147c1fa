package store

import (
	"context"
	"errors"

	"civicreporter-be/models"
)

var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrDuplicate indicates a unique constraint (email, mobile) was violated.
	ErrDuplicate = errors.New("store: duplicate record")
)

// ReportFilter narrows FindReports. Zero values mean "no constraint".
// Results are newest first unless OldestFirst is set.
type ReportFilter struct {
	Status      models.ReportStatus
	UserID      string
	Limit       int
	Offset      int
	OldestFirst bool
}

// ReportStore persists reports.
type ReportStore interface {
	CreateReport(ctx context.Context, report *models.Report) error
	FindReportByID(ctx context.Context, id string) (*models.Report, error)
	FindReports(ctx context.Context, filter ReportFilter) ([]models.Report, error)
	UpdateReportStatus(ctx context.Context, id string, status models.ReportStatus) (*models.Report, error)
	UpdateReportImage(ctx context.Context, id string, imageURL *string) error
	DeleteReport(ctx context.Context, id string) error
	CountReportsByStatus(ctx context.Context) (map[models.ReportStatus]int64, error)
}

// UserStore persists user accounts.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	// EnsureUser inserts user unless one with the same email exists, and
	// returns the stored record either way. It is atomic per email.
	EnsureUser(ctx context.Context, user *models.User) (*models.User, error)
	FindUserByID(ctx context.Context, id string) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUserByMobile(ctx context.Context, mobile string) (*models.User, error)
}

// OTPStore keeps at most one live code per mobile number.
type OTPStore interface {
	// UpsertOTP atomically replaces any existing record for otp.Mobile.
	UpsertOTP(ctx context.Context, otp models.OTP) error
	FindOTP(ctx context.Context, mobile string) (*models.OTP, error)
	DeleteOTP(ctx context.Context, mobile string) error
}

// Store is the full persistence contract of a database backend.
type Store interface {
	ReportStore
	UserStore
	OTPStore
	Ping(ctx context.Context) error
	Close() error
}
