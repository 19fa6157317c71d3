package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"dotatimings/internal/core/catalog"
)

// errNoMatch indicates no match record exists yet.
var errNoMatch = errors.New("no match recorded")

// recorder binds store calls to the current match. It is only touched by
// the persistence worker.
type recorder struct {
	store   Store
	logger  *zap.Logger
	matchID int64
	known   bool
}

func (rec *recorder) insertMatch(ctx context.Context, startedAt time.Time) error {
	rec.known = false
	id, err := rec.store.InsertMatch(ctx, startedAt)
	if err != nil {
		return fmt.Errorf("insert match: %w", err)
	}
	rec.matchID = id
	rec.known = true
	rec.logger.Debug("match recorded", zap.Int64("match_id", id))
	return nil
}

func (rec *recorder) insertOccurrence(ctx context.Context, kind catalog.Kind, at time.Time, second int) error {
	if !rec.known {
		return fmt.Errorf("insert %s: %w", kind, errNoMatch)
	}
	return rec.store.InsertOccurrence(ctx, Occurrence{
		MatchID:     rec.matchID,
		Kind:        kind,
		At:          at,
		MatchSecond: second,
	})
}

func (rec *recorder) updateRemaining(ctx context.Context, key string, kind catalog.Kind, seconds int) error {
	if !rec.known {
		return fmt.Errorf("update remaining %s: %w", key, errNoMatch)
	}
	return rec.store.UpdateRemainingTime(ctx, rec.matchID, key, kind, seconds)
}

func (rec *recorder) clearRemaining(ctx context.Context) error {
	if !rec.known {
		return nil
	}
	return rec.store.ClearRemainingTimes(ctx, rec.matchID)
}

// reconcileInputs derives the match start and the total paused wall time
// from persisted lifecycle records. A pause without a matching resume counts
// until now.
func (rec *recorder) reconcileInputs(ctx context.Context, now time.Time) (time.Time, time.Duration, error) {
	if !rec.known {
		return time.Time{}, 0, errNoMatch
	}
	start, err := rec.store.LastStart(ctx, rec.matchID)
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("last start: %w", err)
	}
	pauses, err := rec.store.SumPauseTimestamps(ctx, rec.matchID)
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("sum pauses: %w", err)
	}
	resumes, err := rec.store.SumResumeTimestamps(ctx, rec.matchID)
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("sum resumes: %w", err)
	}
	open := int64(pauses.Count - resumes.Count)
	if open < 0 || open > 1 {
		return time.Time{}, 0, fmt.Errorf("inconsistent lifecycle records: %d pauses, %d resumes", pauses.Count, resumes.Count)
	}
	pausedMillis := resumes.TotalMillis - pauses.TotalMillis + open*now.UnixMilli()
	if pausedMillis < 0 {
		pausedMillis = 0
	}
	return start, time.Duration(pausedMillis) * time.Millisecond, nil
}
