package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"civicreporter-be/models"
)

// MemoryStore keeps everything in process memory. Used for tests and the
// "memory" driver in local development.
type MemoryStore struct {
	mu      sync.RWMutex
	reports map[string]models.Report
	users   map[string]models.User
	otps    map[string]models.OTP
	now     func() time.Time
}

// NewMemoryStore constructs an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		reports: make(map[string]models.Report),
		users:   make(map[string]models.User),
		otps:    make(map[string]models.OTP),
		now:     time.Now,
	}
}

// WithClock overrides the timestamp source, used in tests.
func (s *MemoryStore) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

func (s *MemoryStore) Ping(context.Context) error { return nil }
func (s *MemoryStore) Close() error               { return nil }

func (s *MemoryStore) CreateReport(_ context.Context, report *models.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.reports[report.ID]; exists {
		return ErrDuplicate
	}
	now := s.now().UTC()
	report.CreatedAt = now
	report.UpdatedAt = now
	s.reports[report.ID] = cloneReport(*report)
	return nil
}

func (s *MemoryStore) FindReportByID(_ context.Context, id string) (*models.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	report, ok := s.reports[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := cloneReport(report)
	return &out, nil
}

func (s *MemoryStore) FindReports(_ context.Context, filter ReportFilter) ([]models.Report, error) {
	s.mu.RLock()
	out := make([]models.Report, 0, len(s.reports))
	for _, r := range s.reports {
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		if filter.UserID != "" && r.UserID != filter.UserID {
			continue
		}
		out = append(out, cloneReport(r))
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		if filter.OldestFirst {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return []models.Report{}, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *MemoryStore) UpdateReportStatus(_ context.Context, id string, status models.ReportStatus) (*models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	report, ok := s.reports[id]
	if !ok {
		return nil, ErrNotFound
	}
	report.Status = status
	report.UpdatedAt = s.now().UTC()
	s.reports[id] = report
	out := cloneReport(report)
	return &out, nil
}

func (s *MemoryStore) UpdateReportImage(_ context.Context, id string, imageURL *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	report, ok := s.reports[id]
	if !ok {
		return ErrNotFound
	}
	report.ImageURL = copyString(imageURL)
	report.UpdatedAt = s.now().UTC()
	s.reports[id] = report
	return nil
}

func (s *MemoryStore) DeleteReport(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reports[id]; !ok {
		return ErrNotFound
	}
	delete(s.reports, id)
	return nil
}

func (s *MemoryStore) CountReportsByStatus(context.Context) (map[models.ReportStatus]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[models.ReportStatus]int64, len(models.ReportStatuses))
	for _, r := range s.reports {
		counts[r.Status]++
	}
	return counts, nil
}

func (s *MemoryStore) CreateUser(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conflictLocked(user) {
		return ErrDuplicate
	}
	s.insertUserLocked(user)
	return nil
}

func (s *MemoryStore) EnsureUser(_ context.Context, user *models.User) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == user.Email {
			out := u
			return &out, nil
		}
	}
	if s.conflictLocked(user) {
		return nil, ErrDuplicate
	}
	s.insertUserLocked(user)
	out := *user
	return &out, nil
}

func (s *MemoryStore) FindUserByID(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (s *MemoryStore) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	return s.findUser(func(u models.User) bool { return u.Email == email })
}

func (s *MemoryStore) FindUserByMobile(_ context.Context, mobile string) (*models.User, error) {
	return s.findUser(func(u models.User) bool { return u.Mobile != nil && *u.Mobile == mobile })
}

func (s *MemoryStore) UpsertOTP(_ context.Context, otp models.OTP) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if otp.CreatedAt.IsZero() {
		otp.CreatedAt = s.now().UTC()
	}
	s.otps[otp.Mobile] = otp
	return nil
}

func (s *MemoryStore) FindOTP(_ context.Context, mobile string) (*models.OTP, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	otp, ok := s.otps[mobile]
	if !ok {
		return nil, ErrNotFound
	}
	return &otp, nil
}

func (s *MemoryStore) DeleteOTP(_ context.Context, mobile string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.otps[mobile]; !ok {
		return ErrNotFound
	}
	delete(s.otps, mobile)
	return nil
}

// UserCount returns the number of stored users.
func (s *MemoryStore) UserCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users)
}

func (s *MemoryStore) findUser(match func(models.User) bool) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if match(u) {
			out := u
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (s *MemoryStore) conflictLocked(user *models.User) bool {
	if _, ok := s.users[user.ID]; ok {
		return true
	}
	for _, u := range s.users {
		if u.Email == user.Email {
			return true
		}
		if user.Mobile != nil && u.Mobile != nil && *u.Mobile == *user.Mobile {
			return true
		}
	}
	return false
}

func (s *MemoryStore) insertUserLocked(user *models.User) {
	now := s.now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	stored := *user
	stored.Mobile = copyString(user.Mobile)
	s.users[user.ID] = stored
}

func cloneReport(r models.Report) models.Report {
	r.ImageURL = copyString(r.ImageURL)
	r.Address = copyString(r.Address)
	return r
}

func copyString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
