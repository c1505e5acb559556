package main

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/NotCoffee418/p1_telemetry/pkg/router"
	"github.com/NotCoffee418/p1_telemetry/pkg/types"
	"go.uber.org/zap"
)

const storeTimeout = 5 * time.Second

type collector struct {
	router *router.Router
	sinks  map[router.SinkID]router.Sink
	logger *zap.Logger

	stored  atomic.Uint64
	dropped atomic.Uint64
	// Per tier, keys fixed at construction
	writeFailures map[router.SinkID]*atomic.Uint64
}

func newCollector(r *router.Router, sinks map[router.SinkID]router.Sink, logger *zap.Logger) *collector {
	failures := make(map[router.SinkID]*atomic.Uint64, len(sinks))
	for tier := range sinks {
		failures[tier] = new(atomic.Uint64)
	}
	return &collector{router: r, sinks: sinks, logger: logger, writeFailures: failures}
}

// failures returns the failed writes of tier.
func (c *collector) failures(tier router.SinkID) uint64 {
	if n, ok := c.writeFailures[tier]; ok {
		return n.Load()
	}
	return 0
}

// Handle meter reading data
func (c *collector) handleMeterReading(reading types.MeterReading) {
	batches, err := c.router.Route(reading)
	if err != nil {
		c.dropped.Add(1)
		c.logger.Warn("dropping reading", zap.Error(err))
		return
	}

	// A failed tier does not skip the other
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	failed := false
	for _, batch := range batches {
		sink, ok := c.sinks[batch.Sink]
		if !ok {
			continue
		}
		if err := sink.Write(ctx, batch.Points); err != nil {
			failed = true
			c.writeFailures[batch.Sink].Add(1)
			c.logger.Error("failed to store points",
				zap.String("tier", string(batch.Sink)),
				zap.Error(err))
		}
	}
	if !failed {
		c.stored.Add(1)
	}
}
