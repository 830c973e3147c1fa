package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"civicreporter-be/models"
)

// GormStore implements Store on a relational database through GORM.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the database behind dialector and runs auto-migrations.
func NewGormStore(dialector gorm.Dialector, log *zap.Logger) (*GormStore, error) {
	if log == nil {
		log = zap.NewNop()
	}
	gormLog := gormlogger.New(
		zap.NewStdLog(log.Named("gorm")),
		gormlogger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  gormlogger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	db, err := gorm.Open(dialector, &gorm.Config{Logger: gormLog, TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Report{}, &models.OTP{}); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	return sqlDB.PingContext(ctx)
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	return sqlDB.Close()
}

func (s *GormStore) CreateReport(ctx context.Context, report *models.Report) error {
	if err := s.db.WithContext(ctx).Create(report).Error; err != nil {
		return fmt.Errorf("create report: %w", translate(err))
	}
	return nil
}

func (s *GormStore) FindReportByID(ctx context.Context, id string) (*models.Report, error) {
	var report models.Report
	if err := s.db.WithContext(ctx).First(&report, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("find report: %w", translate(err))
	}
	return &report, nil
}

func (s *GormStore) FindReports(ctx context.Context, filter ReportFilter) ([]models.Report, error) {
	q := s.db.WithContext(ctx).Model(&models.Report{})
	if filter.Status != "" {
		q = q.Where("status = ?", filter.Status)
	}
	if filter.UserID != "" {
		q = q.Where("user_id = ?", filter.UserID)
	}
	if filter.OldestFirst {
		q = q.Order("created_at ASC").Order("id ASC")
	} else {
		q = q.Order("created_at DESC").Order("id ASC")
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	if filter.Offset > 0 {
		q = q.Offset(filter.Offset)
	}
	reports := []models.Report{}
	if err := q.Find(&reports).Error; err != nil {
		return nil, fmt.Errorf("find reports: %w", translate(err))
	}
	return reports, nil
}

func (s *GormStore) UpdateReportStatus(ctx context.Context, id string, status models.ReportStatus) (*models.Report, error) {
	var report models.Report
	res := s.db.WithContext(ctx).
		Model(&report).
		Clauses(clause.Returning{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": status, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return nil, fmt.Errorf("update report status: %w", translate(res.Error))
	}
	if res.RowsAffected == 0 {
		return nil, fmt.Errorf("update report status: %w", ErrNotFound)
	}
	return &report, nil
}

func (s *GormStore) UpdateReportImage(ctx context.Context, id string, imageURL *string) error {
	res := s.db.WithContext(ctx).
		Model(&models.Report{}).
		Where("id = ?", id).
		Updates(map[string]any{"image_url": imageURL, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return fmt.Errorf("update report image: %w", translate(res.Error))
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("update report image: %w", ErrNotFound)
	}
	return nil
}

func (s *GormStore) DeleteReport(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&models.Report{}, "id = ?", id)
	if res.Error != nil {
		return fmt.Errorf("delete report: %w", translate(res.Error))
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("delete report: %w", ErrNotFound)
	}
	return nil
}

func (s *GormStore) CountReportsByStatus(ctx context.Context) (map[models.ReportStatus]int64, error) {
	var rows []struct {
		Status models.ReportStatus
		Count  int64
	}
	err := s.db.WithContext(ctx).
		Model(&models.Report{}).
		Select("status, count(*) AS count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("count reports: %w", translate(err))
	}
	counts := make(map[models.ReportStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

func (s *GormStore) CreateUser(ctx context.Context, user *models.User) error {
	if err := s.db.WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("create user: %w", translate(err))
	}
	return nil
}

func (s *GormStore) EnsureUser(ctx context.Context, user *models.User) (*models.User, error) {
	db := s.db.WithContext(ctx)
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoNothing: true,
	}).Create(user).Error
	if err != nil {
		return nil, fmt.Errorf("ensure user: %w", translate(err))
	}
	var stored models.User
	if err := db.First(&stored, "email = ?", user.Email).Error; err != nil {
		return nil, fmt.Errorf("ensure user: %w", translate(err))
	}
	return &stored, nil
}

func (s *GormStore) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.findUser(ctx, "id = ?", id)
}

func (s *GormStore) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findUser(ctx, "email = ?", email)
}

func (s *GormStore) FindUserByMobile(ctx context.Context, mobile string) (*models.User, error) {
	return s.findUser(ctx, "mobile = ?", mobile)
}

func (s *GormStore) findUser(ctx context.Context, query string, arg any) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, query, arg).Error; err != nil {
		return nil, fmt.Errorf("find user: %w", translate(err))
	}
	return &user, nil
}

func (s *GormStore) UpsertOTP(ctx context.Context, otp models.OTP) error {
	if otp.CreatedAt.IsZero() {
		otp.CreatedAt = time.Now().UTC()
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "mobile"}},
		DoUpdates: clause.AssignmentColumns([]string{"otp", "expires_at", "created_at"}),
	}).Create(&otp).Error
	if err != nil {
		return fmt.Errorf("upsert otp: %w", translate(err))
	}
	return nil
}

func (s *GormStore) FindOTP(ctx context.Context, mobile string) (*models.OTP, error) {
	var otp models.OTP
	if err := s.db.WithContext(ctx).First(&otp, "mobile = ?", mobile).Error; err != nil {
		return nil, fmt.Errorf("find otp: %w", translate(err))
	}
	return &otp, nil
}

func (s *GormStore) DeleteOTP(ctx context.Context, mobile string) error {
	res := s.db.WithContext(ctx).Delete(&models.OTP{}, "mobile = ?", mobile)
	if res.Error != nil {
		return fmt.Errorf("delete otp: %w", translate(res.Error))
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("delete otp: %w", ErrNotFound)
	}
	return nil
}

func translate(err error) error {
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ErrDuplicate
	}
	return err
}
