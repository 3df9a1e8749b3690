package loginsession

import (
	"context"
	"sync"
	"time"

	"github.com/Carlvinchi/ams/internal/errors"
	"github.com/Carlvinchi/ams/session"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ScopedStore is the session.Store of a single browser, backed by a shared Repo.
type ScopedStore struct {
	repo Repo
	id   string
}

func NewScopedStore(repo Repo, id string) *ScopedStore {
	return &ScopedStore{repo: repo, id: id}
}

func (s *ScopedStore) Load(ctx context.Context) (*session.Session, error) {
	rec, err := s.repo.Get(ctx, s.id)
	if errors.Is(err, errors.ErrSessionNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &rec.Session, nil
}

func (s *ScopedStore) Save(ctx context.Context, sess session.Session) error {
	return s.repo.Upsert(ctx, s.id, sess)
}

func (s *ScopedStore) Clear(ctx context.Context) error {
	return s.repo.Delete(ctx, s.id)
}

// ManagerFactory builds the Manager for one browser from its store.
type ManagerFactory func(store session.Store) *session.Manager

type entry struct {
	manager  *session.Manager
	lastUsed time.Time
}

// Registry lazily creates one session.Manager per browser session id. A
// Manager created after a restart picks up whatever the Repo still holds.
type Registry struct {
	mu      sync.Mutex
	repo    Repo
	factory ManagerFactory
	entries map[string]*entry
	nowFunc func() time.Time
}

type RegistryOption func(*Registry)

func WithRegistryNowFunc(now func() time.Time) RegistryOption {
	return func(r *Registry) {
		r.nowFunc = now
	}
}

func NewRegistry(repo Repo, factory ManagerFactory, options ...RegistryOption) *Registry {
	r := &Registry{
		repo:    repo,
		factory: factory,
		entries: make(map[string]*entry),
		nowFunc: time.Now,
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// NewID returns a fresh, unguessable browser session id.
func (r *Registry) NewID() string {
	return uuid.NewString()
}

// Manager returns the Manager for id, creating it on first use. Only sign in
// should call it with an id that has no stored session.
func (r *Registry) Manager(id string) *session.Manager {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.managerLocked(id)
}

// Lookup returns the Manager of a browser that has a stored session. Unknown
// ids get no Manager, so arbitrary cookie values cannot grow the registry.
func (r *Registry) Lookup(ctx context.Context, id string) (*session.Manager, bool) {
	if id == "" {
		return nil, false
	}

	r.mu.Lock()
	if e, ok := r.entries[id]; ok {
		e.lastUsed = r.nowFunc()
		r.mu.Unlock()
		return e.manager, true
	}
	r.mu.Unlock()

	if _, err := r.repo.Get(ctx, id); err != nil {
		if !errors.Is(err, errors.ErrSessionNotFound) {
			log.Err(err).Msg("failed to look up browser session")
		}
		return nil, false
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	return r.managerLocked(id), true
}

func (r *Registry) managerLocked(id string) *session.Manager {
	e, ok := r.entries[id]
	if !ok {
		e = &entry{manager: r.factory(NewScopedStore(r.repo, id))}
		r.entries[id] = e
	}
	e.lastUsed = r.nowFunc()
	return e.manager
}

// Forget drops the in-memory Manager for id. The stored session is untouched.
func (r *Registry) Forget(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, id)
}

// Len reports how many Managers are held in memory.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Sweep deletes stored sessions idle for longer than maxAge and releases
// Managers that have not been used for as long.
func (r *Registry) Sweep(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := r.nowFunc().Add(-maxAge)

	r.mu.Lock()
	for id, e := range r.entries {
		if e.lastUsed.Before(cutoff) {
			delete(r.entries, id)
		}
	}
	r.mu.Unlock()

	n, err := r.repo.DeleteExpired(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		log.Info().Int64("count", n).Msg("expired browser sessions removed")
	}
	return n, nil
}

// RunSweeper calls Sweep every interval until ctx is done.
func (r *Registry) RunSweeper(ctx context.Context, interval, maxAge time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.Sweep(ctx, maxAge); err != nil {
				log.Err(err).Msg("session sweep failed")
			}
		}
	}
}
