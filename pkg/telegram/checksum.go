package telegram

import (
	"fmt"
	"strings"

	"github.com/sigurn/crc16"
)

// CRC16_ARC matches the DSMR P1 specification
var arcTable = crc16.MakeTable(crc16.CRC16_ARC)

// DefaultTerminator is the line ending the meter puts on the wire.
const DefaultTerminator = "\r\n"

// ByteOrder selects how the CRC is rendered as four hex digits.
type ByteOrder int

const (
	MSBFirst ByteOrder = iota
	LSBFirst
)

func ParseByteOrder(s string) (ByteOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "msb", "big":
		return MSBFirst, nil
	case "lsb", "little":
		return LSBFirst, nil
	}
	return MSBFirst, fmt.Errorf("unknown checksum byte order %q", s)
}

// ChecksumError reports a trailer that does not match the telegram content.
type ChecksumError struct {
	Expected string
	Computed string
}

func (e *ChecksumError) Error() string {
	return fmt.Sprintf("%v: trailer %s, computed %s", ErrChecksumMismatch, e.Expected, e.Computed)
}

func (e *ChecksumError) Unwrap() error {
	return ErrChecksumMismatch
}

type Validator struct {
	terminator string
	order      ByteOrder
}

func NewValidator(terminator string, order ByteOrder) *Validator {
	if terminator == "" {
		terminator = DefaultTerminator
	}
	return &Validator{terminator: terminator, order: order}
}

// Checksum computes the trailer value the telegram should carry.
func (v *Validator) Checksum(t *Telegram) string {
	crc := crc16.Checksum(t.Bytes(v.terminator), arcTable)
	if v.order == LSBFirst {
		crc = crc<<8 | crc>>8
	}
	return fmt.Sprintf("%04X", crc)
}

// Validate returns a *ChecksumError when the trailer does not match.
func (v *Validator) Validate(t *Telegram) error {
	computed := v.Checksum(t)
	if !strings.EqualFold(computed, t.checksum) {
		return &ChecksumError{Expected: t.checksum, Computed: computed}
	}
	return nil
}
