package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shenikar/safety_dispatch/internal/models"
	"github.com/shenikar/safety_dispatch/pkg/e"
)

// Store хранит записи в памяти процесса. Условные обновления выполняются под одной блокировкой.
// Методы кеша ничего не делают: чтение из памяти не нуждается в кеше.
type Store struct {
	mu         sync.RWMutex
	reports    map[uuid.UUID]*models.Report
	alerts     map[uuid.UUID]*models.PanicAlert
	responders map[string]*models.Responder
	contacts   map[string][]*models.EmergencyContact
	now        func() time.Time
}

func NewStore() *Store {
	return &Store{
		reports:    make(map[uuid.UUID]*models.Report),
		alerts:     make(map[uuid.UUID]*models.PanicAlert),
		responders: make(map[string]*models.Responder),
		contacts:   make(map[string][]*models.EmergencyContact),
		now:        time.Now,
	}
}

func copyResponder(r *models.Responder) *models.Responder {
	cloned := *r
	if r.Location != nil {
		loc := *r.Location
		cloned.Location = &loc
	}
	return &cloned
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	at := *t
	return &at
}

// stalled - срок подбора задан и истек раньше before
func stalled(next *time.Time, before time.Time) bool {
	return next != nil && next.Before(before)
}

func copyContact(c *models.EmergencyContact) *models.EmergencyContact {
	cloned := *c
	return &cloned
}

func (s *Store) CreateReport(_ context.Context, report *models.Report) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.reports[report.ID]; exists {
		return fmt.Errorf("report %s: %w", report.ID, e.ErrUniqueViolation)
	}
	s.reports[report.ID] = report.Clone()
	return nil
}

func (s *Store) GetReportByID(_ context.Context, id uuid.UUID) (*models.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	report, ok := s.reports[id]
	if !ok {
		return nil, fmt.Errorf("report %s: %w", id, e.ErrNotFound)
	}
	return report.Clone(), nil
}

func (s *Store) ListReports(_ context.Context, filter models.ReportFilter) ([]*models.Report, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*models.Report, 0)
	for _, r := range s.reports {
		if filter.ReporterID != "" && r.ReporterID != filter.ReporterID {
			continue
		}
		if filter.ResponderID != "" && (r.AssignedResponderID == nil || *r.AssignedResponderID != filter.ResponderID) {
			continue
		}
		if filter.Status != "" && r.Status != filter.Status {
			continue
		}
		matched = append(matched, r)
	}

	// Новые первыми
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	offset := (filter.Page - 1) * filter.PageSize
	if offset < 0 {
		offset = 0
	}
	if offset >= len(matched) {
		return []*models.Report{}, nil
	}
	end := len(matched)
	if filter.PageSize > 0 && offset+filter.PageSize < end {
		end = offset + filter.PageSize
	}

	out := make([]*models.Report, 0, end-offset)
	for _, r := range matched[offset:end] {
		out = append(out, r.Clone())
	}
	return out, nil
}

func (s *Store) ClaimReport(_ context.Context, id uuid.UUID, responderID string) (*models.Report, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	report, ok := s.reports[id]
	if !ok {
		return nil, false, fmt.Errorf("report %s: %w", id, e.ErrNotFound)
	}
	if report.Status != models.ReportPending || report.AssignedResponderID != nil {
		return nil, false, nil
	}

	assignee := responderID
	report.Status = models.ReportInProgress
	report.AssignedResponderID = &assignee
	report.UpdatedAt = s.now().UTC()
	return report.Clone(), true, nil
}

func (s *Store) UpdateReportStatus(_ context.Context, id uuid.UUID, expected, next models.ReportStatus, assignee *string) (*models.Report, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	report, ok := s.reports[id]
	if !ok {
		return nil, false, fmt.Errorf("report %s: %w", id, e.ErrNotFound)
	}
	if report.Status != expected {
		return nil, false, nil
	}

	report.Status = next
	if report.AssignedResponderID == nil && assignee != nil {
		a := *assignee
		report.AssignedResponderID = &a
	}
	report.UpdatedAt = s.now().UTC()
	return report.Clone(), true, nil
}

func (s *Store) RecordReportMatchAttempt(_ context.Context, id uuid.UUID, attempt models.MatchAttempt) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	report, ok := s.reports[id]
	if !ok {
		return false, fmt.Errorf("report %s: %w", id, e.ErrNotFound)
	}
	if !report.AwaitingMatch() {
		return false, nil
	}
	report.MatchAttempts = attempt.Attempts
	report.ManualHandling = attempt.ManualHandling
	report.NextMatchAt = copyTime(attempt.NextMatchAt)
	report.UpdatedAt = s.now().UTC()
	return true, nil
}

func (s *Store) ReclaimStalledReports(_ context.Context, before, next time.Time) ([]*models.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*models.Report, 0)
	for _, r := range s.reports {
		if !r.AwaitingMatch() || r.ManualHandling || !stalled(r.NextMatchAt, before) {
			continue
		}
		r.NextMatchAt = copyTime(&next)
		out = append(out, r.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) GetReportFromCache(context.Context, uuid.UUID) (*models.Report, error) {
	return nil, nil
}

func (s *Store) SetReportCache(context.Context, *models.Report) error {
	return nil
}

func (s *Store) InvalidateReportCache(context.Context, uuid.UUID) error {
	return nil
}

// CreateAlertIfNoneActive проверяет и вставляет под одной блокировкой
func (s *Store) CreateAlertIfNoneActive(_ context.Context, alert *models.PanicAlert) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range s.alerts {
		if a.ReporterID == alert.ReporterID && a.Status == models.AlertActive {
			return false, nil
		}
	}
	if _, exists := s.alerts[alert.ID]; exists {
		return false, fmt.Errorf("panic alert %s: %w", alert.ID, e.ErrUniqueViolation)
	}
	s.alerts[alert.ID] = alert.Clone()
	return true, nil
}

func (s *Store) GetAlertByID(_ context.Context, id uuid.UUID) (*models.PanicAlert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	alert, ok := s.alerts[id]
	if !ok {
		return nil, fmt.Errorf("panic alert %s: %w", id, e.ErrNotFound)
	}
	return alert.Clone(), nil
}

func (s *Store) GetActiveAlertByReporter(_ context.Context, reporterID string) (*models.PanicAlert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, a := range s.alerts {
		if a.ReporterID == reporterID && a.Status == models.AlertActive {
			return a.Clone(), nil
		}
	}
	return nil, fmt.Errorf("active panic alert for %s: %w", reporterID, e.ErrNotFound)
}

func (s *Store) AddAlertResponder(_ context.Context, id uuid.UUID, responderID string, limit int) (*models.PanicAlert, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	alert, ok := s.alerts[id]
	if !ok {
		return nil, false, fmt.Errorf("panic alert %s: %w", id, e.ErrNotFound)
	}
	if alert.Status != models.AlertActive || len(alert.ResponderIDs) >= limit || slices.Contains(alert.ResponderIDs, responderID) {
		return nil, false, nil
	}

	alert.ResponderIDs = append(alert.ResponderIDs, responderID)
	alert.UpdatedAt = s.now().UTC()
	return alert.Clone(), true, nil
}

func (s *Store) UpdateAlertStatus(_ context.Context, id uuid.UUID, expected, next models.AlertStatus, closedBy string) (*models.PanicAlert, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	alert, ok := s.alerts[id]
	if !ok {
		return nil, false, fmt.Errorf("panic alert %s: %w", id, e.ErrNotFound)
	}
	if alert.Status != expected {
		return nil, false, nil
	}

	by := closedBy
	alert.Status = next
	alert.ClosedBy = &by
	alert.UpdatedAt = s.now().UTC()
	return alert.Clone(), true, nil
}

func (s *Store) ListActiveAlertsBefore(_ context.Context, before time.Time) ([]*models.PanicAlert, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.PanicAlert, 0)
	for _, a := range s.alerts {
		if a.Status == models.AlertActive && a.CreatedAt.Before(before) {
			out = append(out, a.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) RecordAlertMatchAttempt(_ context.Context, id uuid.UUID, attempt models.MatchAttempt) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	alert, ok := s.alerts[id]
	if !ok {
		return false, fmt.Errorf("panic alert %s: %w", id, e.ErrNotFound)
	}
	if !alert.AwaitingMatch() {
		return false, nil
	}
	alert.MatchAttempts = attempt.Attempts
	alert.ManualHandling = attempt.ManualHandling
	alert.NextMatchAt = copyTime(attempt.NextMatchAt)
	alert.UpdatedAt = s.now().UTC()
	return true, nil
}

func (s *Store) ReclaimStalledAlerts(_ context.Context, before, next time.Time) ([]*models.PanicAlert, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*models.PanicAlert, 0)
	for _, a := range s.alerts {
		if !a.AwaitingMatch() || a.ManualHandling || !stalled(a.NextMatchAt, before) {
			continue
		}
		a.NextMatchAt = copyTime(&next)
		out = append(out, a.Clone())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) UpsertResponder(_ context.Context, responder *models.Responder) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.responders[responder.ID] = copyResponder(responder)
	return nil
}

func (s *Store) GetResponder(_ context.Context, id string) (*models.Responder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	responder, ok := s.responders[id]
	if !ok {
		return nil, fmt.Errorf("responder %s: %w", id, e.ErrNotFound)
	}
	return copyResponder(responder), nil
}

func (s *Store) ListAvailableResponders(context.Context) ([]*models.Responder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Responder, 0)
	for _, r := range s.responders {
		if r.Available {
			out = append(out, copyResponder(r))
		}
	}
	return out, nil
}

func (s *Store) CreateContact(_ context.Context, contact *models.EmergencyContact) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.contacts[contact.UserID] = append(s.contacts[contact.UserID], copyContact(contact))
	return nil
}

func (s *Store) ListContacts(_ context.Context, userID string) ([]*models.EmergencyContact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.EmergencyContact, 0, len(s.contacts[userID]))
	for _, c := range s.contacts[userID] {
		out = append(out, copyContact(c))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *Store) DeleteContact(_ context.Context, userID, contactID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	contacts := s.contacts[userID]
	for i, c := range contacts {
		if c.ID == contactID {
			s.contacts[userID] = slices.Delete(contacts, i, i+1)
			return nil
		}
	}
	return fmt.Errorf("contact %s: %w", contactID, e.ErrNotFound)
}
