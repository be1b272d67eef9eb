package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nhle/inbox-calendar/internal/model"
)

// MemoryStore implements EventStore entirely in memory. It exists for
// tests and for surfaces that do not need durability; semantics match
// SQLiteStore exactly.
type MemoryStore struct {
	mu      sync.Mutex
	order   []string
	records map[string]model.EventCandidate
	created []model.CreatedEvent
}

// NewMemoryStore creates an empty in-memory event store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]model.EventCandidate),
	}
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error { return nil }

// UpsertPending adds a candidate to the pending partition, enforcing
// cross-partition uniqueness of the source message id.
func (s *MemoryStore) UpsertPending(
	_ context.Context, cand model.EventCandidate,
) error {
	if err := cand.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.records[cand.SourceMessageID]; ok {
		return &DuplicateError{
			MessageID: cand.SourceMessageID,
			Existing:  existing.Status,
		}
	}

	cand.Status = model.StatusPending
	s.records[cand.SourceMessageID] = cand
	s.order = append(s.order, cand.SourceMessageID)
	return nil
}

// Decline moves a pending candidate to the declined partition.
func (s *MemoryStore) Decline(_ context.Context, messageID, note string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cand, ok := s.records[messageID]
	if !ok || cand.Status != model.StatusPending {
		return &NotFoundError{MessageID: messageID, Want: model.StatusPending}
	}
	cand.Status = model.StatusDeclined
	cand.Note = note
	s.records[messageID] = cand
	return nil
}

// Recover moves a declined candidate back to pending.
func (s *MemoryStore) Recover(_ context.Context, messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cand, ok := s.records[messageID]
	if !ok || cand.Status != model.StatusDeclined {
		return &NotFoundError{MessageID: messageID, Want: model.StatusDeclined}
	}
	cand.Status = model.StatusPending
	cand.Note = ""
	s.records[messageID] = cand
	return nil
}

// ConfirmSuccess removes a pending candidate and records the calendar
// reference in the audit log.
func (s *MemoryStore) ConfirmSuccess(
	_ context.Context, messageID string, ref model.CalendarEventRef,
) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cand, ok := s.records[messageID]
	if !ok || cand.Status != model.StatusPending {
		return &NotFoundError{MessageID: messageID, Want: model.StatusPending}
	}

	s.remove(messageID)
	s.created = append(s.created, model.CreatedEvent{
		ID:              uuid.New().String(),
		SourceMessageID: messageID,
		CalendarID:      ref.ID,
		Link:            ref.Link,
		Title:           cand.Title,
		StartTime:       cand.StartTime,
		CreatedAt:       time.Now().UTC(),
	})
	return nil
}

// ConfirmFailure increments the failure counter of a pending
// candidate.
func (s *MemoryStore) ConfirmFailure(
	_ context.Context, messageID string,
) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cand, ok := s.records[messageID]
	if !ok || cand.Status != model.StatusPending {
		return 0, &NotFoundError{MessageID: messageID, Want: model.StatusPending}
	}
	cand.FailureCount++
	s.records[messageID] = cand
	return cand.FailureCount, nil
}

// Get returns the candidate for the id from either live partition.
func (s *MemoryStore) Get(
	_ context.Context, messageID string,
) (*model.EventCandidate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cand, ok := s.records[messageID]
	if !ok {
		return nil, &NotFoundError{MessageID: messageID}
	}
	copied := cand
	return &copied, nil
}

// Contains reports whether the id exists in any live partition.
func (s *MemoryStore) Contains(
	_ context.Context, messageID string,
) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.records[messageID]
	return ok, nil
}

// ListPending returns a snapshot of the pending partition in
// insertion order.
func (s *MemoryStore) ListPending(_ context.Context) ([]model.EventCandidate, error) {
	return s.listByStatus(model.StatusPending), nil
}

// ListDeclined returns a snapshot of the declined partition in
// insertion order.
func (s *MemoryStore) ListDeclined(_ context.Context) ([]model.EventCandidate, error) {
	return s.listByStatus(model.StatusDeclined), nil
}

func (s *MemoryStore) listByStatus(status model.Status) []model.EventCandidate {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.EventCandidate
	for _, id := range s.order {
		if cand, ok := s.records[id]; ok && cand.Status == status {
			out = append(out, cand)
		}
	}
	return out
}

// PurgeDeclined permanently deletes a declined candidate.
func (s *MemoryStore) PurgeDeclined(_ context.Context, messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cand, ok := s.records[messageID]
	if !ok || cand.Status != model.StatusDeclined {
		return &NotFoundError{MessageID: messageID, Want: model.StatusDeclined}
	}
	s.remove(messageID)
	return nil
}

// ListCreated returns the audit log, most recent first.
func (s *MemoryStore) ListCreated(_ context.Context) ([]model.CreatedEvent, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]model.CreatedEvent, len(s.created))
	for i, ev := range s.created {
		out[len(s.created)-1-i] = ev
	}
	return out, nil
}

// remove deletes a record and its insertion-order entry. Caller must
// hold s.mu.
func (s *MemoryStore) remove(messageID string) {
	delete(s.records, messageID)
	for i, id := range s.order {
		if id == messageID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}
