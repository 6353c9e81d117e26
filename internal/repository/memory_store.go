package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/noah-isme/lawmon-api/internal/models"
	appErrors "github.com/noah-isme/lawmon-api/pkg/errors"
)

// Seed groups the initial contents of a MemoryStore.
type Seed struct {
	Amendments    []models.AmendmentRecord
	Settings      []models.NotificationSetting
	Notifications []models.Notification
	Departments   []models.DepartmentStat
}

// MemoryStore keeps amendments, settings, the notification log and department rows in process.
// All mutations are serialised by a single lock.
type MemoryStore struct {
	mu            sync.RWMutex
	order         []string
	records       map[string]*models.AmendmentRecord
	settings      map[string]models.NotificationSetting
	notifications []models.Notification
	departments   []models.DepartmentStat
}

// NewMemoryStore constructs a store holding copies of the seed.
func NewMemoryStore(seed Seed) *MemoryStore {
	s := &MemoryStore{
		records:  make(map[string]*models.AmendmentRecord, len(seed.Amendments)),
		settings: make(map[string]models.NotificationSetting, len(seed.Settings)),
	}
	for i := range seed.Amendments {
		rec := cloneRecord(&seed.Amendments[i])
		rec.NotificationSetting = nil
		if _, exists := s.records[rec.ID]; !exists {
			s.order = append(s.order, rec.ID)
		}
		s.records[rec.ID] = rec
	}
	for _, setting := range seed.Settings {
		s.settings[setting.LawID] = setting
	}
	s.notifications = append(s.notifications, seed.Notifications...)
	s.departments = append(s.departments, seed.Departments...)
	return s
}

// Get returns a copy of the amendment with the given id.
func (s *MemoryStore) Get(_ context.Context, id string) (*models.AmendmentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, recordNotFound(id)
	}
	return cloneRecord(rec), nil
}

// ListAll returns copies of every amendment in insertion order.
func (s *MemoryStore) ListAll(_ context.Context) ([]models.AmendmentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.AmendmentRecord, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, *cloneRecord(s.records[id]))
	}
	return out, nil
}

// ApplyTransition validates and commits a status transition.
func (s *MemoryStore) ApplyTransition(_ context.Context, id string, params models.TransitionParams) (*models.AmendmentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, recordNotFound(id)
	}
	if err := rec.CheckTransition(params); err != nil {
		return nil, err
	}
	updated := cloneRecord(rec)
	updated.Apply(params)
	s.records[id] = updated
	return cloneRecord(updated), nil
}

// AssignApprover records the approver an approval was requested from.
func (s *MemoryStore) AssignApprover(_ context.Context, id, approver string) (*models.AmendmentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return nil, recordNotFound(id)
	}
	if rec.Approved() || rec.Status == models.AmendmentStatusCompleted {
		return nil, appErrors.Clone(appErrors.ErrAlreadyApproved, fmt.Sprintf("amendment %s already approved", id))
	}
	updated := cloneRecord(rec)
	updated.Approver = &approver
	s.records[id] = updated
	return cloneRecord(updated), nil
}

// GetSetting returns the stored setting or the default one.
func (s *MemoryStore) GetSetting(_ context.Context, lawID string) (*models.NotificationSetting, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	setting, ok := s.settings[lawID]
	if !ok {
		return models.DefaultNotificationSetting(lawID), nil
	}
	return &setting, nil
}

// UpsertSetting replaces the setting stored for the law.
func (s *MemoryStore) UpsertSetting(_ context.Context, setting *models.NotificationSetting) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	setting.UpdatedAt = time.Now().UTC()
	s.settings[setting.LawID] = *setting
	return nil
}

// AppendNotification adds a notification to the log.
func (s *MemoryStore) AppendNotification(_ context.Context, notification *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.notifications {
		if existing.ID == notification.ID {
			return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("notification %s already recorded", notification.ID))
		}
	}
	s.notifications = append(s.notifications, *notification)
	return nil
}

// ListNotifications returns the log newest first.
func (s *MemoryStore) ListNotifications(_ context.Context, filter models.NotificationFilter) ([]models.Notification, error) {
	s.mu.RLock()
	out := make([]models.Notification, 0, len(s.notifications))
	for _, n := range s.notifications {
		if filter.UnreadOnly && n.IsRead {
			continue
		}
		out = append(out, n)
	}
	s.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

// MarkNotificationRead flags the notification as read.
func (s *MemoryStore) MarkNotificationRead(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.notifications {
		if s.notifications[i].ID == id {
			s.notifications[i].IsRead = true
			return nil
		}
	}
	return appErrors.Clone(appErrors.ErrNotificationAbsent, fmt.Sprintf("notification %s not found", id))
}

// CountUnreadNotifications returns the number of unread log entries.
func (s *MemoryStore) CountUnreadNotifications(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, n := range s.notifications {
		if !n.IsRead {
			count++
		}
	}
	return count, nil
}

// ListDepartmentStats returns the externally assigned department rows.
func (s *MemoryStore) ListDepartmentStats(_ context.Context) ([]models.DepartmentStat, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.DepartmentStat, len(s.departments))
	copy(out, s.departments)
	return out, nil
}

func recordNotFound(id string) error {
	return appErrors.Clone(appErrors.ErrRecordNotFound, fmt.Sprintf("amendment %s not found", id))
}

func cloneRecord(rec *models.AmendmentRecord) *models.AmendmentRecord {
	out := *rec
	out.DepartmentReviewDate = cloneString(rec.DepartmentReviewDate)
	out.Reviewer = cloneString(rec.Reviewer)
	out.Approver = cloneString(rec.Approver)
	out.ApprovalComment = cloneString(rec.ApprovalComment)
	out.LawLink = cloneString(rec.LawLink)
	if rec.IsApplied != nil {
		applied := *rec.IsApplied
		out.IsApplied = &applied
	}
	if rec.NotificationSetting != nil {
		setting := *rec.NotificationSetting
		out.NotificationSetting = &setting
	}
	return &out
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
