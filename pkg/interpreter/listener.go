package interpreter

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/NotCoffee418/p1_telemetry/pkg/types"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// StartListener subscribes to the feed at host and calls fn for each reading
// until ctx is done. Lost connections are retried with exponential backoff;
// ErrMaxRetries is returned once opts.MaxRetries consecutive attempts failed.
func StartListener(
	ctx context.Context,
	host string,
	tls bool,
	opts ListenerOptions,
	fn func(reading types.MeterReading),
	logger *zap.Logger,
) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	u := feedURL(host, tls)
	retryCount := 0

	for {
		if ctx.Err() != nil {
			logger.Info("stop signal received, listener shutting down")
			return nil
		}

		if retryCount > 0 {
			retryDelay := backoff(retryCount-1, opts.BaseRetryDelay, opts.MaxRetryDelay)
			logger.Info("retrying connection",
				zap.Duration("delay", retryDelay),
				zap.Int("attempt", retryCount+1),
				zap.Int("max_retries", opts.MaxRetries))
			select {
			case <-time.After(retryDelay):
			case <-ctx.Done():
				logger.Info("stop signal received during retry wait, listener shutting down")
				return nil
			}
		}

		logger.Info("connecting to interpreter api", zap.String("url", u.String()))

		dialer := websocket.Dialer{
			Proxy:            websocket.DefaultDialer.Proxy,
			HandshakeTimeout: opts.HandshakeTimeout,
		}
		c, _, err := dialer.DialContext(ctx, u.String(), nil)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Warn("connection failed", zap.Error(err))
			retryCount++
			if retryCount >= opts.MaxRetries {
				return fmt.Errorf("%w: %d attempts to %s", ErrMaxRetries, retryCount, u.String())
			}
			continue
		}

		logger.Info("connected, accepting meter readings")
		retryCount = 0

		connectionBroken := handleConnection(ctx, c, opts, fn, logger)
		c.Close()

		if !connectionBroken {
			return nil
		}
		logger.Warn("connection lost, will retry")
		// First retry waits the base delay
		retryCount = 1
	}
}

func feedURL(host string, tls bool) url.URL {
	scheme := "ws"
	if tls {
		scheme = "wss"
	}
	return url.URL{Scheme: scheme, Host: host, Path: "/ws"}
}

// backoff doubles base per attempt, capped at max.
func backoff(attempt int, base, maxDelay time.Duration) time.Duration {
	if attempt > 30 {
		return maxDelay
	}
	delay := time.Duration(1<<attempt) * base
	if delay > maxDelay {
		return maxDelay
	}
	return delay
}

// handleConnection reads readings until the connection breaks (true)
// or ctx is done (false).
func handleConnection(
	ctx context.Context,
	c *websocket.Conn,
	opts ListenerOptions,
	fn func(reading types.MeterReading),
	logger *zap.Logger,
) bool {
	done := make(chan struct{})

	c.SetReadDeadline(time.Now().Add(opts.ReadTimeout))

	go func() {
		defer close(done)
		for {
			messageType, message, err := c.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
					logger.Warn("websocket error", zap.Error(err))
				} else {
					logger.Info("connection closed", zap.Error(err))
				}
				return
			}

			c.SetReadDeadline(time.Now().Add(opts.ReadTimeout))

			if messageType != websocket.TextMessage {
				logger.Debug("received unexpected message type", zap.Int("type", messageType))
				continue
			}
			if reading := types.MeterReadingFromJsonBytes(message); reading != nil {
				fn(*reading)
			} else {
				logger.Warn("failed to parse meter reading", zap.ByteString("message", message))
			}
		}
	}()

	ticker := time.NewTicker(opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				logger.Warn("failed to send ping", zap.Error(err))
			}
		case <-done:
			return true
		case <-ctx.Done():
			logger.Info("stop signal received, closing connection")
			err := c.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeTimeout))
			if err != nil {
				logger.Warn("error sending close message", zap.Error(err))
			}

			// Wait for close confirmation or timeout
			select {
			case <-done:
			case <-time.After(time.Second):
			}
			return false
		}
	}
}
