// Package telegram frames P1 telegrams out of a line stream and verifies
// their CRC16 trailer.
package telegram

import (
	"errors"
	"strings"
)

var (
	ErrOverrun          = errors.New("telegram overrun")
	ErrChecksumMismatch = errors.New("telegram checksum mismatch")
)

// Telegram is one framed message: header, body lines and the trailer checksum.
type Telegram struct {
	header   string
	lines    []string
	checksum string
}

func NewTelegram(header string, lines []string, checksum string) *Telegram {
	return &Telegram{
		header:   header,
		lines:    append([]string(nil), lines...),
		checksum: checksum,
	}
}

func (t *Telegram) Header() string { return t.header }

// Lines returns a copy of the body lines.
func (t *Telegram) Lines() []string { return append([]string(nil), t.lines...) }

// Checksum is the four hex digits found after the trailing '!'.
func (t *Telegram) Checksum() string { return t.checksum }

// Bytes rebuilds the checksummed byte span: every header and body line
// followed by terminator, then the '!' of the trailer.
func (t *Telegram) Bytes(terminator string) []byte {
	var sb strings.Builder
	sb.WriteString(t.header)
	sb.WriteString(terminator)
	for _, line := range t.lines {
		sb.WriteString(line)
		sb.WriteString(terminator)
	}
	sb.WriteByte('!')
	return []byte(sb.String())
}

// String renders the telegram as it appears on the wire.
func (t *Telegram) String() string {
	return string(t.Bytes("\r\n")) + t.checksum
}

type ResultKind int

const (
	FrameComplete ResultKind = iota
	FrameOverrun
	FrameResynced
)

func (k ResultKind) String() string {
	switch k {
	case FrameComplete:
		return "complete"
	case FrameOverrun:
		return "overrun"
	case FrameResynced:
		return "resynced"
	}
	return "unknown"
}

// Result is reported by Assembler.Feed when a line changes the frame state.
type Result struct {
	Kind ResultKind

	// Set for FrameComplete
	Telegram *Telegram

	// Body lines dropped with an overrun frame
	Abandoned int

	// Lines skipped before a header resynchronized the stream
	Discarded int
}
