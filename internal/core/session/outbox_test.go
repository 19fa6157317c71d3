package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"dotatimings/internal/core/catalog"
)

func TestOutboxRunsJobsInOrderAndLogsFailures(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	box := newOutbox("test", 8, time.Second, zap.New(core))

	var order []int
	for i := 0; i < 3; i++ {
		i := i
		require.True(t, box.enqueue("job", func(context.Context) error {
			order = append(order, i)
			if i == 1 {
				return errors.New("boom")
			}
			return nil
		}))
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		box.run(ctx)
	}()

	require.NoError(t, box.call(context.Background(), "barrier", func(context.Context) error { return nil }))
	cancel()
	<-done

	require.Equal(t, []int{0, 1, 2}, order)
	failures := logs.FilterMessage("outbox job failed").All()
	require.Len(t, failures, 1)
	require.Equal(t, "job", failures[0].ContextMap()["op"])
}

func TestOutboxDropsWhenFull(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	box := newOutbox("test", 1, time.Second, zap.New(core))

	require.True(t, box.enqueue("first", func(context.Context) error { return nil }))
	require.False(t, box.enqueue("second", func(context.Context) error { return nil }))
	require.ErrorIs(t, box.call(context.Background(), "third", func(context.Context) error { return nil }), errOutboxFull)
	require.Equal(t, 2, logs.FilterMessage("outbox full, dropping job").Len())
}

func TestOutboxDrainsOnShutdown(t *testing.T) {
	box := newOutbox("test", 4, time.Second, zap.NewNop())
	ran := 0
	box.enqueue("a", func(context.Context) error { ran++; return nil })
	box.enqueue("b", func(context.Context) error { ran++; return nil })

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	box.run(ctx)
	require.Equal(t, 2, ran)
}

func TestOutboxCallTimesOut(t *testing.T) {
	box := newOutbox("test", 4, time.Second, zap.NewNop())
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := box.call(ctx, "never runs", func(context.Context) error { return nil })
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRecorderReconcileInputs(t *testing.T) {
	store := newFakeStore()
	rec := &recorder{store: store, logger: zap.NewNop()}
	ctx := context.Background()

	_, _, err := rec.reconcileInputs(ctx, epoch)
	require.ErrorIs(t, err, errNoMatch)

	require.NoError(t, rec.insertMatch(ctx, epoch))
	require.NoError(t, rec.insertOccurrence(ctx, catalog.GamePaused, epoch.Add(10*time.Second), 0))
	require.NoError(t, rec.insertOccurrence(ctx, catalog.GameResumed, epoch.Add(25*time.Second), 0))
	require.NoError(t, rec.insertOccurrence(ctx, catalog.GamePaused, epoch.Add(40*time.Second), 0))

	start, paused, err := rec.reconcileInputs(ctx, epoch.Add(60*time.Second))
	require.NoError(t, err)
	require.Equal(t, epoch, start)
	require.Equal(t, 35*time.Second, paused)

	require.NoError(t, rec.insertOccurrence(ctx, catalog.GameResumed, epoch.Add(70*time.Second), 0))
	_, paused, err = rec.reconcileInputs(ctx, epoch.Add(90*time.Second))
	require.NoError(t, err)
	require.Equal(t, 45*time.Second, paused)
}

func TestRecorderRejectsInconsistentRecords(t *testing.T) {
	store := newFakeStore()
	rec := &recorder{store: store, logger: zap.NewNop()}
	ctx := context.Background()
	require.NoError(t, rec.insertMatch(ctx, epoch))
	require.NoError(t, rec.insertOccurrence(ctx, catalog.GameResumed, epoch.Add(time.Second), 0))

	_, _, err := rec.reconcileInputs(ctx, epoch.Add(time.Minute))
	require.Error(t, err)
}
