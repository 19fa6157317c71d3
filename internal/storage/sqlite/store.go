// Package sqlite persists match history in a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"dotatimings/internal/core/catalog"
	"dotatimings/internal/core/session"
	"dotatimings/internal/storage/sqlite/migrations"
	"dotatimings/internal/storage/sqlitemigrate"
)

// ErrMatchNotFound indicates the match id is unknown.
var ErrMatchNotFound = errors.New("match not found")

// Store implements session.Store on SQLite.
type Store struct {
	sqlDB *sql.DB
	now   func() time.Time
}

var _ session.Store = (*Store)(nil)

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens the database at path and applies migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	dsn := "file:" + filepath.Clean(path) +
		"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_pragma=synchronous(NORMAL)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.Apply(ctx, sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB, now: time.Now}, nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// InsertMatch creates a match record and returns its id.
func (s *Store) InsertMatch(ctx context.Context, startedAt time.Time) (int64, error) {
	result, err := s.sqlDB.ExecContext(ctx, `INSERT INTO matches (started_at) VALUES (?)`, toMillis(startedAt))
	if err != nil {
		return 0, fmt.Errorf("insert match: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("insert match id: %w", err)
	}
	return id, nil
}

// InsertOccurrence appends an occurred event to a match.
func (s *Store) InsertOccurrence(ctx context.Context, occurrence session.Occurrence) error {
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO occurrences (match_id, kind, kind_id, occurred_at, match_second) VALUES (?, ?, ?, ?, ?)`,
		occurrence.MatchID,
		string(occurrence.Kind),
		occurrence.Kind.ID(),
		toMillis(occurrence.At),
		occurrence.MatchSecond,
	)
	if err != nil {
		return fmt.Errorf("insert occurrence %s: %w", occurrence.Kind, err)
	}
	return nil
}

// LastStart returns the start instant of a match.
func (s *Store) LastStart(ctx context.Context, matchID int64) (time.Time, error) {
	var startedAt int64
	err := s.sqlDB.QueryRowContext(ctx, `SELECT started_at FROM matches WHERE id = ?`, matchID).Scan(&startedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, ErrMatchNotFound
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("last start: %w", err)
	}
	return fromMillis(startedAt), nil
}

// SumPauseTimestamps sums the pause instants of a match.
func (s *Store) SumPauseTimestamps(ctx context.Context, matchID int64) (session.TimestampSum, error) {
	return s.sumTimestamps(ctx, matchID, catalog.GamePaused)
}

// SumResumeTimestamps sums the resume instants of a match.
func (s *Store) SumResumeTimestamps(ctx context.Context, matchID int64) (session.TimestampSum, error) {
	return s.sumTimestamps(ctx, matchID, catalog.GameResumed)
}

func (s *Store) sumTimestamps(ctx context.Context, matchID int64, kind catalog.Kind) (session.TimestampSum, error) {
	var sum session.TimestampSum
	err := s.sqlDB.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(occurred_at), 0), COUNT(*) FROM occurrences WHERE match_id = ? AND kind = ?`,
		matchID, string(kind),
	).Scan(&sum.TotalMillis, &sum.Count)
	if err != nil {
		return session.TimestampSum{}, fmt.Errorf("sum %s timestamps: %w", kind, err)
	}
	return sum, nil
}

// UpdateRemainingTime stores the remaining seconds of a frozen countdown.
func (s *Store) UpdateRemainingTime(ctx context.Context, matchID int64, key string, kind catalog.Kind, seconds int) error {
	_, err := s.sqlDB.ExecContext(ctx,
		`INSERT INTO remaining_times (match_id, timer_key, kind, remaining_seconds, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (match_id, timer_key) DO UPDATE SET
		   kind = excluded.kind,
		   remaining_seconds = excluded.remaining_seconds,
		   updated_at = excluded.updated_at`,
		matchID, key, string(kind), seconds, toMillis(s.now()),
	)
	if err != nil {
		return fmt.Errorf("update remaining time %s: %w", key, err)
	}
	return nil
}

// ClearRemainingTimes removes every stored countdown of a match.
func (s *Store) ClearRemainingTimes(ctx context.Context, matchID int64) error {
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM remaining_times WHERE match_id = ?`, matchID); err != nil {
		return fmt.Errorf("clear remaining times: %w", err)
	}
	return nil
}

// RemainingTimes returns the stored countdowns of a match keyed by timer key.
func (s *Store) RemainingTimes(ctx context.Context, matchID int64) (map[string]int, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT timer_key, remaining_seconds FROM remaining_times WHERE match_id = ?`, matchID)
	if err != nil {
		return nil, fmt.Errorf("query remaining times: %w", err)
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var (
			key     string
			seconds int
		)
		if err := rows.Scan(&key, &seconds); err != nil {
			return nil, fmt.Errorf("scan remaining time: %w", err)
		}
		out[key] = seconds
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate remaining times: %w", err)
	}
	return out, nil
}

// Occurrences returns the occurred events of a match in insertion order.
func (s *Store) Occurrences(ctx context.Context, matchID int64) ([]session.Occurrence, error) {
	rows, err := s.sqlDB.QueryContext(ctx,
		`SELECT kind, occurred_at, match_second FROM occurrences WHERE match_id = ? ORDER BY id`, matchID)
	if err != nil {
		return nil, fmt.Errorf("query occurrences: %w", err)
	}
	defer rows.Close()

	var out []session.Occurrence
	for rows.Next() {
		var (
			kind       string
			occurredAt int64
			second     int
		)
		if err := rows.Scan(&kind, &occurredAt, &second); err != nil {
			return nil, fmt.Errorf("scan occurrence: %w", err)
		}
		parsed, err := catalog.ParseKind(kind)
		if err != nil {
			return nil, err
		}
		out = append(out, session.Occurrence{
			MatchID:     matchID,
			Kind:        parsed,
			At:          fromMillis(occurredAt),
			MatchSecond: second,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate occurrences: %w", err)
	}
	return out, nil
}
