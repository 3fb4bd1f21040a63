package integration

import (
	"errors"
	"fmt"
)

// ErrCircuitOpen is returned when the portal has failed too often recently
var ErrCircuitOpen = errors.New("portal circuit breaker is open")

// maxFragment bounds the raw source carried by a MalformedSourceError
const maxFragment = 200

// MalformedSourceError reports a page or payload that does not have the
// structure the decoders expect
type MalformedSourceError struct {
	Fragment string // Offending raw source
	Reason   string
	Err      error
}

func (e *MalformedSourceError) Error() string {
	msg := fmt.Sprintf("malformed source: %s", e.Reason)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Fragment != "" {
		msg += fmt.Sprintf(" (near %q)", e.Fragment)
	}
	return msg
}

func (e *MalformedSourceError) Unwrap() error {
	return e.Err
}

func malformed(fragment, reason string, err error) error {
	runes := []rune(fragment)
	if len(runes) > maxFragment {
		fragment = string(runes[:maxFragment]) + "…"
	}
	return &MalformedSourceError{Fragment: fragment, Reason: reason, Err: err}
}
