package obis

import (
	"errors"
	"fmt"
)

var ErrFieldDecode = errors.New("field decode failed")

// FieldDecodeError names the data identifier and the raw text that could not
// be converted. The field stays absent in the reading.
type FieldDecodeError struct {
	Identifier string
	Raw        string
	Err        error
}

func (e *FieldDecodeError) Error() string {
	return fmt.Sprintf("%v: %s %q: %v", ErrFieldDecode, e.Identifier, e.Raw, e.Err)
}

func (e *FieldDecodeError) Unwrap() []error {
	return []error{ErrFieldDecode, e.Err}
}
