package wav

import (
	"errors"
	"fmt"
)

// ErrMalformedInput is matched by every *MalformedInputError.
var ErrMalformedInput = errors.New("malformed audio input")

// MalformedInputError reports a payload that cannot be wrapped: undecodable base64
// or a length that is not a whole number of frames.
type MalformedInputError struct {
	Reason string
	Err    error
}

func (e *MalformedInputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", ErrMalformedInput, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", ErrMalformedInput, e.Reason)
}

func (e *MalformedInputError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrMalformedInput) match regardless of the wrapped cause.
func (e *MalformedInputError) Is(target error) bool {
	return target == ErrMalformedInput
}
