// Package pipeline runs single lines through framing, checksum validation,
// field extraction and routing.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/NotCoffee418/p1_telemetry/pkg/obis"
	"github.com/NotCoffee418/p1_telemetry/pkg/router"
	"github.com/NotCoffee418/p1_telemetry/pkg/telegram"
	"github.com/NotCoffee418/p1_telemetry/pkg/types"
	"go.uber.org/zap"
)

// The meter clock only advances
var ErrTimestampRegression = errors.New("reading timestamp went backwards")

// DefaultRegressionLimit consecutive regressions mean the last accepted
// timestamp was the bad one, and the meter clock is trusted again.
const DefaultRegressionLimit = 10

// Config holds the protocol parameters. Zero values select the defaults.
type Config struct {
	HeaderPrefix string
	MaxLines     int
	Terminator   string
	ByteOrder    telegram.ByteOrder
	Offsets      obis.Offsets
	Registry     *obis.Registry

	RegressionLimit int
}

func DefaultConfig() Config {
	return Config{
		HeaderPrefix: telegram.DefaultHeaderPrefix,
		MaxLines:     telegram.DefaultMaxLines,
		Terminator:   telegram.DefaultTerminator,
		ByteOrder:    telegram.MSBFirst,
		Offsets:      obis.DefaultOffsets,

		RegressionLimit: DefaultRegressionLimit,
	}
}

// Processor is not safe for concurrent use; feed it from a single goroutine.
type Processor struct {
	assembler *telegram.Assembler
	validator *telegram.Validator
	extractor *obis.Extractor
	router    *router.Router
	sinks     map[router.SinkID]router.Sink
	stats     *Stats
	logger    *zap.Logger

	lastTimestamp   time.Time
	regressions     int
	regressionLimit int
	onReading       []func(types.MeterReading)
}

// Initialize a new Processor. Batches for a sink id missing from sinks are dropped.
func NewProcessor(cfg Config, sinks map[router.SinkID]router.Sink, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RegressionLimit <= 0 {
		cfg.RegressionLimit = DefaultRegressionLimit
	}
	return &Processor{
		assembler: telegram.NewAssembler(cfg.HeaderPrefix, cfg.MaxLines),
		validator: telegram.NewValidator(cfg.Terminator, cfg.ByteOrder),
		extractor: obis.NewExtractor(cfg.Registry, cfg.Offsets),
		router:    router.New(),
		sinks:     sinks,
		stats:     NewStats(),
		logger:    logger,

		regressionLimit: cfg.RegressionLimit,
	}
}

// OnReading registers fn to be called with every routed reading.
func (p *Processor) OnReading(fn func(types.MeterReading)) {
	p.onReading = append(p.onReading, fn)
}

func (p *Processor) Stats() *Stats {
	return p.stats
}

// Idle is true when no frame is in flight.
func (p *Processor) Idle() bool {
	return p.assembler.Idle()
}

// HandleLine feeds one line into the pipeline.
// The returned error describes a dropped frame or reading; it is already
// counted and logged and never requires stopping.
func (p *Processor) HandleLine(ctx context.Context, line string) error {
	p.stats.lines.Add(1)

	result, ok := p.assembler.Feed(line)
	if !ok {
		return nil
	}

	switch result.Kind {
	case telegram.FrameResynced:
		p.stats.resyncs.Add(1)
		p.logger.Info("telegram stream resynchronized", zap.Int("discarded_lines", result.Discarded))
		return nil

	case telegram.FrameOverrun:
		p.stats.overruns.Add(1)
		err := fmt.Errorf("%w: %d lines without trailer", telegram.ErrOverrun, result.Abandoned)
		p.logger.Warn("dropping telegram", zap.Error(err))
		return err

	case telegram.FrameComplete:
		return p.handleTelegram(ctx, result.Telegram)
	}
	return nil
}

func (p *Processor) handleTelegram(ctx context.Context, t *telegram.Telegram) error {
	p.stats.frames.Add(1)

	if err := p.validator.Validate(t); err != nil {
		p.stats.checksumErrors.Add(1)
		p.logger.Warn("dropping telegram", zap.Error(err))
		return err
	}

	reading, fieldErrs := p.extractor.Extract(t.Lines())
	for _, fe := range fieldErrs {
		p.stats.fieldErrors.Add(1)
		p.logger.Warn("dropping field", zap.String("identifier", fe.Identifier), zap.Error(fe))
	}

	batches, err := p.router.Route(reading)
	if err != nil {
		p.stats.incomplete.Add(1)
		p.logger.Warn("dropping reading", zap.Error(err))
		return err
	}

	ts, _ := reading.Timestamp()
	if ts.Before(p.lastTimestamp) {
		backwards := p.lastTimestamp.Sub(ts)
		p.regressions++
		if p.regressions < p.regressionLimit {
			p.stats.regressions.Add(1)
			err := fmt.Errorf("%w: %s after %s", ErrTimestampRegression,
				ts.Format(time.RFC3339), p.lastTimestamp.Format(time.RFC3339))
			p.logger.Warn("dropping reading", zap.Duration("backwards", backwards), zap.Error(err))
			return err
		}
		p.logger.Warn("meter clock stayed behind, accepting its timeline",
			zap.Int("consecutive_regressions", p.regressions),
			zap.Duration("backwards", backwards),
			zap.Time("timestamp", ts))
	}
	p.regressions = 0
	p.lastTimestamp = ts
	p.stats.readings.Add(1)

	for _, batch := range batches {
		sink, ok := p.sinks[batch.Sink]
		if !ok || sink == nil {
			continue
		}
		if err := sink.Write(ctx, batch.Points); err != nil {
			p.stats.sinkErrors.Add(1)
			p.logger.Error("sink write failed",
				zap.String("sink", string(batch.Sink)),
				zap.Int("points", len(batch.Points)),
				zap.Error(err))
		}
	}

	for _, fn := range p.onReading {
		fn(reading)
	}

	p.logger.Debug("reading routed",
		zap.Time("timestamp", ts),
		zap.Int("batches", len(batches)))
	return nil
}
