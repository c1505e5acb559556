package telegram

import (
	"regexp"
	"strings"
)

const (
	// P1 message should never be more than this number of lines
	DefaultMaxLines = 100

	// /ISK5\2M550E-1013
	DefaultHeaderPrefix = "/ISK5"
)

// !AEB6
var trailerPattern = regexp.MustCompile(`^!([A-F0-9]{4})$`)

type assemblerState int

const (
	awaitHeader assemblerState = iota
	collecting
)

// Assembler groups lines into telegrams.
// It is fed one line at a time and keeps at most one frame in flight.
type Assembler struct {
	headerPrefix string
	maxLines     int

	state     assemblerState
	header    string
	body      []string
	discarded int
}

// Initialize a new Assembler. Empty or non-positive arguments select the defaults.
func NewAssembler(headerPrefix string, maxLines int) *Assembler {
	if headerPrefix == "" {
		headerPrefix = DefaultHeaderPrefix
	}
	if maxLines <= 0 {
		maxLines = DefaultMaxLines
	}
	return &Assembler{
		headerPrefix: headerPrefix,
		maxLines:     maxLines,
		state:        awaitHeader,
	}
}

// Feed processes a single line. The bool is true when a Result is reported.
func (a *Assembler) Feed(line string) (Result, bool) {
	isHeader := strings.HasPrefix(line, a.headerPrefix)

	switch a.state {
	case awaitHeader:
		if !isHeader {
			a.discarded++
			return Result{}, false
		}
		discarded := a.discarded
		a.startFrame(line)
		if discarded > 0 {
			return Result{Kind: FrameResynced, Discarded: discarded}, true
		}
		return Result{}, false

	case collecting:
		if isHeader {
			// The previous frame never saw its trailer
			abandoned := len(a.body)
			a.startFrame(line)
			return Result{Kind: FrameOverrun, Abandoned: abandoned}, true
		}

		if match := trailerPattern.FindStringSubmatch(line); match != nil {
			t := &Telegram{header: a.header, lines: a.body, checksum: match[1]}
			a.reset()
			return Result{Kind: FrameComplete, Telegram: t}, true
		}

		a.body = append(a.body, line)
		if len(a.body) > a.maxLines {
			abandoned := len(a.body)
			a.reset()
			return Result{Kind: FrameOverrun, Abandoned: abandoned}, true
		}
	}
	return Result{}, false
}

// Idle is true between frames.
func (a *Assembler) Idle() bool {
	return a.state == awaitHeader
}

func (a *Assembler) startFrame(header string) {
	a.state = collecting
	a.header = header
	a.body = nil
	a.discarded = 0
}

func (a *Assembler) reset() {
	a.state = awaitHeader
	a.header = ""
	a.body = nil
	a.discarded = 0
}
