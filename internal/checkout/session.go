package checkout

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/noah-isme/checkout-pricing/internal/pricing"
)

// Session guards a Checkout with a mutex so several callers can scan into
// the same basket.
type Session struct {
	ID       uuid.UUID
	OpenedAt time.Time

	mu       sync.Mutex
	checkout *Checkout
	lastSeen time.Time
}

// NewSession wraps a fresh checkout priced against catalog.
func NewSession(id uuid.UUID, catalog *pricing.Catalog, now time.Time, opts ...Option) *Session {
	return &Session{ID: id, OpenedAt: now, lastSeen: now, checkout: New(catalog, opts...)}
}

// Scan prices one unit and returns the resulting total and discount progress
// for that item.
func (s *Session) Scan(name string) (total pricing.Money, progress int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	err = s.checkout.Scan(name)
	return s.checkout.Total(), s.checkout.Progress(name), err
}

// Total returns the running total.
func (s *Session) Total() pricing.Money {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checkout.Total()
}

// Snapshot returns the total and the number of successful scans atomically.
func (s *Session) Snapshot() (total pricing.Money, scanned int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.checkout.Total(), s.checkout.Scanned()
}

// LastSeen returns when the session was last looked up through its Registry.
func (s *Session) LastSeen() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSeen
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	if now.After(s.lastSeen) {
		s.lastSeen = now
	}
	s.mu.Unlock()
}

// SessionObserver is implemented by observers that also track session lifecycle.
type SessionObserver interface {
	SessionOpened()
	SessionClosed(total pricing.Money)
	// SessionExpired reports a session evicted after its idle TTL.
	SessionExpired()
}

// DefaultSessionTTL is how long a session may stay idle before eviction.
const DefaultSessionTTL = 30 * time.Minute

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithSessionTTL sets the idle TTL. Non-positive values keep the default.
func WithSessionTTL(ttl time.Duration) RegistryOption {
	return func(r *Registry) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// WithMaxSessions caps the number of open sessions. Zero means no cap.
func WithMaxSessions(n int) RegistryOption {
	return func(r *Registry) {
		if n > 0 {
			r.maxSessions = n
		}
	}
}

// Registry keeps open checkout sessions keyed by id. Sessions idle longer
// than the TTL are evicted on lookup and by Sweep.
type Registry struct {
	catalog     *pricing.Catalog
	observer    Observer
	now         func() time.Time
	ttl         time.Duration
	maxSessions int

	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

// NewRegistry creates a registry whose sessions are priced against catalog.
// observer may be nil.
func NewRegistry(catalog *pricing.Catalog, observer Observer, opts ...RegistryOption) *Registry {
	r := &Registry{
		catalog:  catalog,
		observer: observer,
		now:      time.Now,
		ttl:      DefaultSessionTTL,
		sessions: make(map[uuid.UUID]*Session),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Catalog returns the catalog sessions are priced against.
func (r *Registry) Catalog() *pricing.Catalog {
	return r.catalog
}

func (r *Registry) options() []Option {
	if r.observer == nil {
		return nil
	}
	return []Option{WithObserver(r.observer)}
}

func (r *Registry) sessionObserver() SessionObserver {
	so, _ := r.observer.(SessionObserver)
	return so
}

func (r *Registry) expired(s *Session, now time.Time) bool {
	return now.Sub(s.LastSeen()) > r.ttl
}

// evictExpiredLocked drops idle sessions. r.mu must be held for writing.
func (r *Registry) evictExpiredLocked(now time.Time) int {
	n := 0
	for id, s := range r.sessions {
		if r.expired(s, now) {
			delete(r.sessions, id)
			n++
		}
	}
	return n
}

func (r *Registry) notifyExpired(n int) {
	so := r.sessionObserver()
	if so == nil {
		return
	}
	for i := 0; i < n; i++ {
		so.SessionExpired()
	}
}

// Open starts a new session. When the cap is reached idle sessions are
// evicted first; ErrTooManySessions is returned if none were.
func (r *Registry) Open() (*Session, error) {
	now := r.now().UTC()
	s := NewSession(uuid.New(), r.catalog, now, r.options()...)

	r.mu.Lock()
	evicted := 0
	if r.maxSessions > 0 && len(r.sessions) >= r.maxSessions {
		evicted = r.evictExpiredLocked(now)
	}
	full := r.maxSessions > 0 && len(r.sessions) >= r.maxSessions
	if !full {
		r.sessions[s.ID] = s
	}
	r.mu.Unlock()

	r.notifyExpired(evicted)
	if full {
		return nil, ErrTooManySessions
	}
	if so := r.sessionObserver(); so != nil {
		so.SessionOpened()
	}
	return s, nil
}

// take returns the live session for id, evicting it when idle past the TTL.
func (r *Registry) take(id uuid.UUID, now time.Time, remove bool) (*Session, error) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	stale := ok && r.expired(s, now)
	if stale || (ok && remove) {
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	if stale {
		r.notifyExpired(1)
		return nil, ErrSessionNotFound
	}
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// Get returns the open session with the given id and marks it active.
func (r *Registry) Get(id uuid.UUID) (*Session, error) {
	now := r.now().UTC()
	s, err := r.take(id, now, false)
	if err != nil {
		return nil, err
	}
	s.touch(now)
	return s, nil
}

// Close discards the session and returns its final total.
func (r *Registry) Close(id uuid.UUID) (pricing.Money, error) {
	s, err := r.take(id, r.now().UTC(), true)
	if err != nil {
		return 0, err
	}
	total := s.Total()
	if so := r.sessionObserver(); so != nil {
		so.SessionClosed(total)
	}
	return total, nil
}

// Sweep evicts every session idle past the TTL and returns how many went.
func (r *Registry) Sweep() int {
	now := r.now().UTC()
	r.mu.Lock()
	n := r.evictExpiredLocked(now)
	r.mu.Unlock()
	r.notifyExpired(n)
	return n
}

// Run sweeps every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// Quote prices a basket without registering a session. Quotes are not
// checkouts, so the observer is not attached.
func (r *Registry) Quote(names []string) (pricing.Money, error) {
	return Quote(r.catalog, names)
}

// Len returns the number of open sessions, including idle ones not yet swept.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
