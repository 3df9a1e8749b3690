package loginsession

import (
	"context"
	"sync"
	"time"

	"github.com/Carlvinchi/ams/internal/errors"
	"github.com/Carlvinchi/ams/session"
)

// InMemoryRepo keeps sessions for the lifetime of the process.
type InMemoryRepo struct {
	mu      sync.RWMutex
	records map[string]Record
	nowFunc func() time.Time
}

func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		records: make(map[string]Record),
		nowFunc: time.Now,
	}
}

// Upsert creates or replaces the session stored under id
func (r *InMemoryRepo) Upsert(_ context.Context, id string, s session.Session) error {
	if id == "" {
		return errors.ErrSessionIDRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.nowFunc()
	rec, ok := r.records[id]
	if !ok {
		rec = Record{ID: id, CreatedAt: now}
	}
	rec.Session = s
	rec.UpdatedAt = now
	r.records[id] = rec
	return nil
}

func (r *InMemoryRepo) Get(_ context.Context, id string) (Record, error) {
	if id == "" {
		return Record{}, errors.ErrSessionIDRequired
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[id]
	if !ok {
		return Record{}, errors.ErrSessionNotFound
	}
	return rec, nil
}

// Delete removes a session. Deleting an unknown id is not an error.
func (r *InMemoryRepo) Delete(_ context.Context, id string) error {
	if id == "" {
		return errors.ErrSessionIDRequired
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, id)
	return nil
}

func (r *InMemoryRepo) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, rec := range r.records {
		if rec.UpdatedAt.Before(before) {
			delete(r.records, id)
			n++
		}
	}
	return n, nil
}
