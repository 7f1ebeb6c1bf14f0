package itemjson

import (
	"errors"
	"fmt"
)

// ErrDecode matches every DecodeError through errors.Is.
var ErrDecode = errors.New("decode failure")

// DecodeError reports a payload that does not satisfy a record contract.
type DecodeError struct {
	// Record is the decoder's record name, e.g. "item".
	Record string
	// Index is the envelope array position of the failing element, or -1.
	Index int
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Index >= 0 {
		return fmt.Sprintf("decode %s[%d]: %v", e.Record, e.Index, e.Err)
	}
	return fmt.Sprintf("decode %s: %v", e.Record, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Is reports ErrDecode as a match.
func (e *DecodeError) Is(target error) bool { return target == ErrDecode }
