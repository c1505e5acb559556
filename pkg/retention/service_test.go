package retention

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/NotCoffee418/p1_telemetry/pkg/router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type recordingPruner struct {
	mu      sync.Mutex
	tiers   []router.SinkID
	cutoffs []time.Time
	err     error
}

func (r *recordingPruner) Prune(_ context.Context, tier router.SinkID, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tiers = append(r.tiers, tier)
	r.cutoffs = append(r.cutoffs, cutoff)
	return 3, r.err
}

func (r *recordingPruner) calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.cutoffs)
}

func TestCleanupUsesRetentionWindow(t *testing.T) {
	p := &recordingPruner{}
	c := NewCleaner(p, router.HighRes, 48*time.Hour, time.Hour, zaptest.NewLogger(t))
	c.now = func() time.Time { return time.Date(2021, 2, 14, 18, 54, 40, 500, time.UTC) }

	require.NoError(t, c.Cleanup(context.Background()))
	assert.Equal(t, []router.SinkID{router.HighRes}, p.tiers)
	assert.Equal(t, time.Date(2021, 2, 12, 18, 54, 40, 0, time.UTC), p.cutoffs[0])
}

func TestCleanupReturnsPruneError(t *testing.T) {
	p := &recordingPruner{err: errors.New("database is locked")}
	c := NewCleaner(p, router.HighRes, time.Hour, time.Hour, nil)
	assert.Error(t, c.Cleanup(context.Background()))
}

func TestRunTicksUntilCanceled(t *testing.T) {
	p := &recordingPruner{err: errors.New("database is locked")}
	c := NewCleaner(p, router.HighRes, time.Hour, 5*time.Millisecond, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return p.calls() >= 3 }, time.Second, time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("cleaner did not stop")
	}
}
