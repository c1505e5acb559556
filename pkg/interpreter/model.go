// Package interpreter publishes decoded readings over HTTP and websocket
// and subscribes to that feed from other services.
package interpreter

import (
	"errors"
	"sync"
	"time"

	"github.com/NotCoffee418/p1_telemetry/pkg/pipeline"
	"github.com/NotCoffee418/p1_telemetry/pkg/types"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var ErrMaxRetries = errors.New("max connection retries reached")

// StatsSource exposes pipeline counters to the /stats endpoint.
type StatsSource interface {
	Snapshot() pipeline.StatsSnapshot
}

// Hub keeps the websocket clients and the latest reading.
type Hub struct {
	upgrader websocket.Upgrader
	stats    StatsSource
	logger   *zap.Logger

	mu      sync.RWMutex
	clients map[*client]bool
	latest  *types.MeterReading
}

// gorilla connections allow one concurrent writer
type client struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

type ListenerOptions struct {
	MaxRetries       int
	BaseRetryDelay   time.Duration
	MaxRetryDelay    time.Duration
	HandshakeTimeout time.Duration
	// A reading is expected every second
	ReadTimeout  time.Duration
	PingInterval time.Duration
}

func DefaultListenerOptions() ListenerOptions {
	return ListenerOptions{
		MaxRetries:       10,
		BaseRetryDelay:   2 * time.Second,
		MaxRetryDelay:    60 * time.Second,
		HandshakeTimeout: 10 * time.Second,
		ReadTimeout:      10 * time.Second,
		PingInterval:     30 * time.Second,
	}
}
