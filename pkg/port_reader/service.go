package port_reader

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jacobsa/go-serial/serial"
	"go.uber.org/zap"
)

func NewLineReader(r io.Reader) *LineReader {
	return &LineReader{reader: bufio.NewReader(r)}
}

// ReadLine returns io.EOF once the stream is exhausted.
// A final line without newline is still returned.
func (l *LineReader) ReadLine() (string, error) {
	line, err := l.reader.ReadString('\n')
	if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
		return "", err
	}
	return strings.TrimRight(line, " \t\r\n"), nil
}

// Initialize a new P1Reader client.
func NewP1Reader(port string, baudrate uint, logger *zap.Logger) *P1Reader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &P1Reader{
		port:     port,
		baudrate: baudrate,
		logger:   logger,
	}
}

// Open the connection to the P1 port.
func (p *P1Reader) Connect() error {
	options := serial.OpenOptions{
		PortName:        p.port,
		BaudRate:        p.baudrate,
		DataBits:        8,
		StopBits:        1,
		MinimumReadSize: 1,
	}

	port, err := serial.Open(options)
	if err != nil {
		return fmt.Errorf("failed to open serial port: %w", err)
	}

	p.serialPort = port
	p.lines = NewLineReader(port)
	p.logger.Info("connected to P1 port", zap.String("port", p.port), zap.Uint("baudrate", p.baudrate))
	return nil
}

func (p *P1Reader) Disconnect() {
	if p.serialPort != nil {
		p.serialPort.Close()
		p.serialPort = nil
		p.lines = nil
		p.logger.Info("disconnected from P1 port", zap.String("port", p.port))
	}
}

func (p *P1Reader) ReadLine() (string, error) {
	if p.lines == nil {
		return "", ErrNotConnected
	}
	return p.lines.ReadLine()
}

// Run hands lines from src to h until the source ends or ctx is done.
// Stopping only happens between frames. A source error other than io.EOF is
// returned wrapped in ErrLineSource; errors from h are already accounted for.
func Run(ctx context.Context, src LineSource, h LineHandler, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	// The frame in flight is still delivered after a stop request
	handlerCtx := context.WithoutCancel(ctx)

	for {
		if h.Idle() {
			select {
			case <-ctx.Done():
				logger.Info("stop signal received, reader stopping")
				return nil
			default:
			}
		}

		line, err := src.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) {
				logger.Info("line source exhausted")
				return nil
			}
			return fmt.Errorf("%w: %w", ErrLineSource, err)
		}

		_ = h.HandleLine(handlerCtx, line)
	}
}
