// Package upstream holds the error taxonomy shared by the outbound API adapters and
// the single-request helper that produces it.
package upstream

import (
	"errors"
	"fmt"
)

var (
	// ErrParse means the upstream answered but the payload did not have the expected shape.
	ErrParse = errors.New("unexpected upstream payload")
	// ErrTimeout means the call exceeded its per-call bound.
	ErrTimeout = errors.New("upstream timeout")
	// ErrTransport covers connection level failures (DNS, refused, reset).
	ErrTransport = errors.New("upstream unreachable")
)

// StatusError is returned for any non-200 response.
type StatusError struct {
	Provider string
	Code     int
}

func (e *StatusError) Error() string {
	if e.Provider == "" {
		return fmt.Sprintf("upstream responded with status %d", e.Code)
	}
	return fmt.Sprintf("%s responded with status %d", e.Provider, e.Code)
}

// AsStatusError attempts to unwrap an error into a StatusError.
func AsStatusError(err error) (*StatusError, bool) {
	var se *StatusError
	if errors.As(err, &se) {
		return se, true
	}
	return nil, false
}

// Kind is the coarse outcome of an adapter call.
type Kind int

const (
	KindOK Kind = iota
	KindParse
	KindStatus
	KindTimeout
	KindTransport
)

// String returns the label used in logs and metrics.
func (k Kind) String() string {
	switch k {
	case KindOK:
		return "ok"
	case KindParse:
		return "parse"
	case KindStatus:
		return "status"
	case KindTimeout:
		return "timeout"
	case KindTransport:
		return "transport"
	default:
		return "unknown"
	}
}

// Classify maps an adapter error onto its Kind. Errors outside the taxonomy are
// reported as transport failures.
func Classify(err error) Kind {
	if err == nil {
		return KindOK
	}
	if _, ok := AsStatusError(err); ok {
		return KindStatus
	}
	switch {
	case errors.Is(err, ErrTimeout):
		return KindTimeout
	case errors.Is(err, ErrParse):
		return KindParse
	default:
		return KindTransport
	}
}
