package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"dotatimings/internal/core/catalog"
	"dotatimings/internal/core/clock"
)

// sleepyClock drops ticks while asleep, the way a suspended machine misses
// them.
type sleepyClock struct {
	*clock.Fake
	asleep atomic.Bool
}

func (c *sleepyClock) TickFunc(d time.Duration, f func()) clock.Timer {
	return c.Fake.TickFunc(d, func() {
		if !c.asleep.Load() {
			f()
		}
	})
}

var errStoreDown = errors.New("store down")

type remainingKey struct {
	matchID int64
	key     string
}

type fakeStore struct {
	mu          sync.Mutex
	matches     map[int64]time.Time
	nextID      int64
	occurrences []Occurrence
	remaining   map[remainingKey]int
	failQueries bool
	failWrites  bool
	queries     int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		matches:   map[int64]time.Time{},
		remaining: map[remainingKey]int{},
	}
}

func (s *fakeStore) InsertMatch(_ context.Context, startedAt time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrites {
		return 0, errStoreDown
	}
	s.nextID++
	s.matches[s.nextID] = startedAt
	return s.nextID, nil
}

func (s *fakeStore) InsertOccurrence(_ context.Context, occurrence Occurrence) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrites {
		return errStoreDown
	}
	s.occurrences = append(s.occurrences, occurrence)
	return nil
}

func (s *fakeStore) LastStart(_ context.Context, matchID int64) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.queries++
	if s.failQueries {
		return time.Time{}, errStoreDown
	}
	started, ok := s.matches[matchID]
	if !ok {
		return time.Time{}, errors.New("no such match")
	}
	return started, nil
}

func (s *fakeStore) sum(matchID int64, kind catalog.Kind) (TimestampSum, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failQueries {
		return TimestampSum{}, errStoreDown
	}
	var sum TimestampSum
	for _, occurrence := range s.occurrences {
		if occurrence.MatchID == matchID && occurrence.Kind == kind {
			sum.TotalMillis += occurrence.At.UnixMilli()
			sum.Count++
		}
	}
	return sum, nil
}

func (s *fakeStore) SumPauseTimestamps(_ context.Context, matchID int64) (TimestampSum, error) {
	return s.sum(matchID, catalog.GamePaused)
}

func (s *fakeStore) SumResumeTimestamps(_ context.Context, matchID int64) (TimestampSum, error) {
	return s.sum(matchID, catalog.GameResumed)
}

func (s *fakeStore) UpdateRemainingTime(_ context.Context, matchID int64, key string, _ catalog.Kind, seconds int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failWrites {
		return errStoreDown
	}
	s.remaining[remainingKey{matchID, key}] = seconds
	return nil
}

func (s *fakeStore) ClearRemainingTimes(_ context.Context, matchID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for key := range s.remaining {
		if key.matchID == matchID {
			delete(s.remaining, key)
		}
	}
	return nil
}

func (s *fakeStore) remainingFor(matchID int64, key string) (int, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seconds, ok := s.remaining[remainingKey{matchID, key}]
	return seconds, ok
}

func (s *fakeStore) remainingCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.remaining)
}

func (s *fakeStore) kinds() []catalog.Kind {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]catalog.Kind, 0, len(s.occurrences))
	for _, occurrence := range s.occurrences {
		out = append(out, occurrence.Kind)
	}
	return out
}

type notification struct {
	kind    catalog.Kind
	message string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []notification
	err  error
}

func (n *fakeNotifier) Notify(_ context.Context, kind catalog.Kind, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, notification{kind: kind, message: message})
	return n.err
}

func (n *fakeNotifier) messages() []notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]notification(nil), n.sent...)
}
