package port_reader

import (
	"bufio"
	"context"
	"errors"
	"io"

	"go.uber.org/zap"
)

// ErrLineSource wraps transport failures; they end the run.
var ErrLineSource = errors.New("line source failed")

var ErrNotConnected = errors.New("serial port not connected")

// LineSource yields successive lines with trailing whitespace stripped.
// ReadLine blocks until a line is available.
type LineSource interface {
	ReadLine() (string, error)
}

// LineHandler consumes lines one at a time.
type LineHandler interface {
	HandleLine(ctx context.Context, line string) error
	Idle() bool
}

// LineReader turns any byte stream into a LineSource.
type LineReader struct {
	reader *bufio.Reader
}

// P1Reader is the LineSource of a meter's P1 serial port.
type P1Reader struct {
	port       string
	baudrate   uint
	serialPort io.ReadWriteCloser
	lines      *LineReader
	logger     *zap.Logger
}
