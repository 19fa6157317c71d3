package session

import (
	"context"
	"time"

	"dotatimings/internal/core/catalog"
)

// Occurrence is the persisted form of an occurred event.
type Occurrence struct {
	MatchID     int64
	Kind        catalog.Kind
	At          time.Time
	MatchSecond int
}

// TimestampSum aggregates lifecycle timestamps of one kind.
type TimestampSum struct {
	TotalMillis int64
	Count       int
}

// Store persists matches and their occurrences. Calls run on a dedicated
// worker in submission order.
type Store interface {
	InsertMatch(ctx context.Context, startedAt time.Time) (int64, error)
	InsertOccurrence(ctx context.Context, occurrence Occurrence) error
	LastStart(ctx context.Context, matchID int64) (time.Time, error)
	SumPauseTimestamps(ctx context.Context, matchID int64) (TimestampSum, error)
	SumResumeTimestamps(ctx context.Context, matchID int64) (TimestampSum, error)
	UpdateRemainingTime(ctx context.Context, matchID int64, key string, kind catalog.Kind, seconds int) error
	ClearRemainingTimes(ctx context.Context, matchID int64) error
}

// Notifier delivers a user-facing notification. Delivery is best effort.
type Notifier interface {
	Notify(ctx context.Context, kind catalog.Kind, message string) error
}
