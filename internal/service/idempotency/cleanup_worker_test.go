package idempotency

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/gusto/internal/storage/memory"
)

func TestCleanupWorker_DeleteExpired_Batches(t *testing.T) {
	t.Parallel()

	repo := &stubExpirer{results: []int{2, 2, 1}}
	worker := NewCleanupWorker(repo, WithBatchSize(2))

	deleted, err := worker.DeleteExpired(context.Background(), time.Now().UTC())
	require.NoError(t, err)
	require.Equal(t, 5, deleted)
	require.Equal(t, 3, repo.calls())
}

func TestCleanupWorker_DeleteExpired_Error(t *testing.T) {
	t.Parallel()

	repo := &stubExpirer{errs: []error{errors.New("boom")}}
	worker := NewCleanupWorker(repo, WithBatchSize(10))

	deleted, err := worker.DeleteExpired(context.Background(), time.Now().UTC())
	require.Error(t, err)
	require.Zero(t, deleted)
}

func TestCleanupWorker_DeleteExpired_MemoryRepository(t *testing.T) {
	t.Parallel()

	repo := memory.NewIdempotencyRepository()
	now := time.Now().UTC()
	for _, key := range []string{"a", "b", "c"} {
		_, err := repo.CreateProcessing(key, "hash", now.Add(-time.Minute))
		require.NoError(t, err)
	}
	_, err := repo.CreateProcessing("fresh", "hash", now.Add(time.Hour))
	require.NoError(t, err)

	metrics := &recordingMetrics{}
	worker := NewCleanupWorker(repo, WithBatchSize(2), WithMetrics(metrics), WithClock(func() time.Time { return now }))
	worker.cleanup(context.Background())

	require.Equal(t, 1, repo.Len())
	require.Equal(t, []string{"ok"}, metrics.results)
	require.Equal(t, 3, metrics.deleted)
}

func TestCleanupWorker_Run_StopsOnContextCancel(t *testing.T) {
	t.Parallel()

	repo := &stubExpirer{}
	worker := NewCleanupWorker(repo, WithInterval(5*time.Millisecond), WithBatchSize(10))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		worker.Run(ctx)
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop on context cancel")
	}
	require.Positive(t, repo.calls())
}

type stubExpirer struct {
	mu        sync.Mutex
	results   []int
	errs      []error
	callCount int
}

func (s *stubExpirer) DeleteExpired(time.Time, int) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.callCount++
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		if err != nil {
			return 0, err
		}
	}
	if len(s.results) == 0 {
		return 0, nil
	}
	result := s.results[0]
	s.results = s.results[1:]
	return result, nil
}

func (s *stubExpirer) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.callCount
}

type recordingMetrics struct {
	results []string
	deleted int
}

func (m *recordingMetrics) ObserveCleanup(result string, deleted int) {
	m.results = append(m.results, result)
	m.deleted += deleted
}
