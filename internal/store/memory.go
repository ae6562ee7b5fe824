package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/kiranshivaraju/quotehunter/pkg/models"
)

// MemoryStore is a process-local Gateway used for offline runs and tests.
// Records are copied in and out so callers never share state with the store.
type MemoryStore struct {
	mu        sync.RWMutex
	requests  map[uuid.UUID]*models.SourcingRequest
	suppliers []*models.Supplier
	messages  []*models.Message
	actions   []*models.ActionLog
}

// NewMemoryStore returns an empty store seeded with the given suppliers.
func NewMemoryStore(suppliers ...*models.Supplier) *MemoryStore {
	s := &MemoryStore{requests: map[uuid.UUID]*models.SourcingRequest{}}
	for _, sp := range suppliers {
		cp := *sp
		s.suppliers = append(s.suppliers, &cp)
	}
	return s
}

func (s *MemoryStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *MemoryStore) CreateSourcingRequest(ctx context.Context, req *models.SourcingRequest, actions ...*models.ActionLog) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.requests[req.ID]; ok {
		return ErrDuplicateKey
	}
	cp := *req
	s.requests[req.ID] = &cp
	for _, a := range actions {
		s.appendAction(a)
	}
	return nil
}

func (s *MemoryStore) GetSourcingRequest(ctx context.Context, id uuid.UUID) (*models.SourcingRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	req, ok := s.requests[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *req
	return &cp, nil
}

func (s *MemoryStore) UpdateSourcingRequestStatus(ctx context.Context, id uuid.UUID, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	req, ok := s.requests[id]
	if !ok {
		return ErrNotFound
	}
	return req.Advance(status)
}

func (s *MemoryStore) ListSourcingRequests(ctx context.Context, filter Filter) ([]*models.SourcingRequest, error) {
	s.mu.RLock()
	all := make([]*models.SourcingRequest, 0, len(s.requests))
	for _, r := range s.requests {
		cp := *r
		all = append(all, &cp)
	}
	s.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })
	return applyFilter(filter, all, requestColumns, requestFields)
}

func (s *MemoryStore) ListSuppliers(ctx context.Context, filter Filter) ([]*models.Supplier, error) {
	s.mu.RLock()
	all := make([]*models.Supplier, 0, len(s.suppliers))
	for _, sp := range s.suppliers {
		cp := *sp
		all = append(all, &cp)
	}
	s.mu.RUnlock()

	return applyFilter(filter, all, supplierColumns, supplierFields)
}

func (s *MemoryStore) CreateMessage(ctx context.Context, msg *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *msg
	if cp.ID == uuid.Nil {
		cp.ID = uuid.New()
	}
	s.messages = append(s.messages, &cp)
	return nil
}

func (s *MemoryStore) ListMessages(ctx context.Context, filter Filter) ([]*models.Message, error) {
	s.mu.RLock()
	all := make([]*models.Message, 0, len(s.messages))
	for _, m := range s.messages {
		cp := *m
		all = append(all, &cp)
	}
	s.mu.RUnlock()

	return applyFilter(filter, all, messageColumns, messageFields)
}

func (s *MemoryStore) LogAction(ctx context.Context, action *models.ActionLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.appendAction(action)
	return nil
}

// Actions returns a copy of the action log in write order.
func (s *MemoryStore) Actions() []models.ActionLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.ActionLog, len(s.actions))
	for i, a := range s.actions {
		out[i] = *a
	}
	return out
}

func (s *MemoryStore) appendAction(a *models.ActionLog) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	cp := *a
	s.actions = append(s.actions, &cp)
}

func requestFields(r *models.SourcingRequest) map[string]any {
	return map[string]any{
		"id":           r.ID.String(),
		"platform":     r.Platform,
		"user_id":      r.RequesterID,
		"channel_id":   r.ChannelID,
		"video_url":    r.ReferenceURL,
		"product_name": r.ProductName,
		"status":       r.Status,
		"created_at":   r.CreatedAt,
		"updated_at":   r.UpdatedAt,
	}
}

func supplierFields(sp *models.Supplier) map[string]any {
	return map[string]any{
		"id":         sp.ID,
		"name":       sp.Name,
		"name_en":    sp.NameEN,
		"category":   sp.Category,
		"location":   sp.Location,
		"moq":        sp.MOQ,
		"rating":     sp.Rating,
		"status":     sp.Status,
		"created_at": sp.CreatedAt,
	}
}

func messageFields(m *models.Message) map[string]any {
	return map[string]any{
		"channel_id": m.ChannelID,
		"user_id":    m.UserID,
		"is_bot":     m.IsBot,
		"created_at": m.CreatedAt,
	}
}

// applyFilter evaluates f the same way the SQL backends do: exact equality,
// case-insensitive containment, a stable descending sort and a limit.
func applyFilter[T any](f Filter, items []T, columns map[string]string, fields func(T) map[string]any) ([]T, error) {
	for field := range f.Equals {
		if _, ok := columns[field]; !ok {
			return nil, fmt.Errorf("%w: unknown field %q", ErrInvalidFilter, field)
		}
	}
	for field := range f.Contains {
		if _, ok := columns[field]; !ok {
			return nil, fmt.Errorf("%w: unknown field %q", ErrInvalidFilter, field)
		}
	}
	if f.SortDesc != "" {
		if _, ok := columns[f.SortDesc]; !ok {
			return nil, fmt.Errorf("%w: unknown sort field %q", ErrInvalidFilter, f.SortDesc)
		}
	}

	out := make([]T, 0, len(items))
	for _, item := range items {
		if matches(f, fields(item)) {
			out = append(out, item)
		}
	}

	if f.SortDesc != "" {
		sort.SliceStable(out, func(i, j int) bool {
			return greater(fields(out[i])[f.SortDesc], fields(out[j])[f.SortDesc])
		})
	}
	if n := f.limit(); len(out) > n {
		out = out[:n]
	}
	return out, nil
}

func matches(f Filter, values map[string]any) bool {
	for field, want := range f.Equals {
		if fmt.Sprint(values[field]) != fmt.Sprint(want) {
			return false
		}
	}
	for field, sub := range f.Contains {
		got, _ := values[field].(string)
		if !strings.Contains(strings.ToLower(got), strings.ToLower(sub)) {
			return false
		}
	}
	return true
}

func greater(a, b any) bool {
	switch av := a.(type) {
	case float64:
		return av > b.(float64)
	case int:
		return av > b.(int)
	case time.Time:
		return av.After(b.(time.Time))
	case string:
		return av > b.(string)
	case bool:
		return av && !b.(bool)
	default:
		return false
	}
}

var _ Gateway = (*MemoryStore)(nil)
