package otp

import (
	"context"
	"sync"

	"github.com/quocanhngo/recovery/internal/model"
)

// MemoryStore keeps records in process memory with one lock per identifier.
// The map lock only guards slot bookkeeping and is never held while a record
// is examined, so different identifiers do not wait on each other.
type MemoryStore struct {
	cfg Config

	mu    sync.Mutex
	slots map[string]*slot
}

type slot struct {
	mu   sync.Mutex
	refs int // guarded by MemoryStore.mu
	rec  *model.OTPRecord
}

// NewMemoryStore creates an in-memory Store
func NewMemoryStore(cfg Config) *MemoryStore {
	return &MemoryStore{
		cfg:   cfg.withDefaults(),
		slots: make(map[string]*slot),
	}
}

// acquire returns the locked slot for identifier, creating it if needed
func (s *MemoryStore) acquire(identifier string) *slot {
	s.mu.Lock()
	sl, ok := s.slots[identifier]
	if !ok {
		sl = &slot{}
		s.slots[identifier] = sl
	}
	sl.refs++
	s.mu.Unlock()

	sl.mu.Lock()
	return sl
}

// release unlocks sl and forgets it once nobody references it and it holds no record
func (s *MemoryStore) release(identifier string, sl *slot) {
	s.mu.Lock()
	sl.refs--
	if sl.refs == 0 && sl.rec == nil {
		delete(s.slots, identifier)
	}
	s.mu.Unlock()
	sl.mu.Unlock()
}

func (s *MemoryStore) Issue(_ context.Context, identifier string) (string, error) {
	code, err := s.cfg.Generate()
	if err != nil {
		return "", err
	}

	sl := s.acquire(identifier)
	defer s.release(identifier, sl)

	sl.rec = newRecord(identifier, code, s.cfg.Now(), s.cfg.TTL)
	return code, nil
}

func (s *MemoryStore) Verify(_ context.Context, identifier, code string) (Result, error) {
	return s.apply(identifier, code, false), nil
}

func (s *MemoryStore) Consume(_ context.Context, identifier, code string) (Result, error) {
	return s.apply(identifier, code, true), nil
}

func (s *MemoryStore) apply(identifier, code string, consume bool) Result {
	sl := s.acquire(identifier)
	defer s.release(identifier, sl)

	result, act := check(sl.rec, code, s.cfg.Now(), s.cfg.MaxAttempts, consume)
	if act == drop {
		sl.rec = nil
	}
	return result
}

func (s *MemoryStore) Invalidate(_ context.Context, identifier string) error {
	sl := s.acquire(identifier)
	defer s.release(identifier, sl)

	sl.rec = nil
	return nil
}

// Sweep drops records that expired more than the retention period ago and
// returns how many were removed. Records inside the retention window are left
// for lazy expiry so callers still observe Expired.
func (s *MemoryStore) Sweep(ctx context.Context) (int, error) {
	s.mu.Lock()
	identifiers := make([]string, 0, len(s.slots))
	for identifier := range s.slots {
		identifiers = append(identifiers, identifier)
	}
	s.mu.Unlock()

	removed := 0
	for _, identifier := range identifiers {
		if err := ctx.Err(); err != nil {
			return removed, err
		}

		sl := s.acquire(identifier)
		if sl.rec != nil && sl.rec.IsExpired(s.cfg.Now().Add(-s.cfg.Retention)) {
			sl.rec = nil
			removed++
		}
		s.release(identifier, sl)
	}
	return removed, nil
}
