package main

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/NotCoffee418/p1_telemetry/pkg/meterdb"
	"github.com/NotCoffee418/p1_telemetry/pkg/router"
	"github.com/NotCoffee418/p1_telemetry/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func reading(ts time.Time) types.MeterReading {
	b := types.NewReadingBuilder()
	b.SetTimestamp(ts)
	b.SetWatt(234)
	b.SetTariff1(32.289)
	return b.Build()
}

func TestCollectorStoresBothTiers(t *testing.T) {
	store, err := meterdb.Open(filepath.Join(t.TempDir(), "meter.db"), zaptest.NewLogger(t))
	require.NoError(t, err)
	defer store.Close()

	c := newCollector(router.New(), store.Sinks(), zaptest.NewLogger(t))
	start := time.Date(2021, 2, 14, 18, 54, 58, 0, time.UTC)
	for i := 0; i < 4; i++ {
		c.handleMeterReading(reading(start.Add(time.Duration(i) * time.Second)))
	}
	// No timestamp
	c.handleMeterReading(types.NewReadingBuilder().Build())

	assert.Equal(t, uint64(4), c.stored.Load())
	assert.Equal(t, uint64(1), c.dropped.Load())
	assert.Zero(t, c.failures(router.HighRes))

	ctx := context.Background()
	high, err := store.Points(ctx, router.HighRes, start, start.Add(time.Minute))
	require.NoError(t, err)
	assert.Len(t, high, 8)

	low, err := store.Points(ctx, router.LowRes, start, start.Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, low, 2)
	assert.Equal(t, time.Date(2021, 2, 14, 18, 55, 0, 0, time.UTC), low[0].Time)
}

type failingSink struct {
	calls int
}

func (f *failingSink) Write(context.Context, []router.Point) error {
	f.calls++
	return errors.New("disk I/O error")
}

func TestCollectorTiersAreIndependent(t *testing.T) {
	high := &failingSink{}
	low := router.NewMemorySink()
	c := newCollector(router.New(), map[router.SinkID]router.Sink{
		router.HighRes: high,
		router.LowRes:  low,
	}, zaptest.NewLogger(t))

	minute := time.Date(2021, 2, 14, 18, 55, 0, 0, time.UTC)
	c.handleMeterReading(reading(minute))
	c.handleMeterReading(reading(minute.Add(time.Second)))

	assert.Equal(t, 2, high.calls)
	require.Len(t, low.Writes(), 1)
	assert.Equal(t, minute, low.Points()[0].Time)

	assert.Equal(t, uint64(2), c.failures(router.HighRes))
	assert.Zero(t, c.failures(router.LowRes))
	assert.Zero(t, c.stored.Load())
}
