package backend

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/Craeckie/KIT-Sitzplatzreservervierung/parser"
)

// Sentinel errors of the session manager.
var (
	// ErrChallengeRequired signals that authentication cannot complete
	// synchronously: the caller must fetch a challenge image and re-invoke
	// CompleteLogin with the solved answer.
	ErrChallengeRequired = errors.New("backend: challenge answer required to log in")

	// ErrNoCredentials signals that neither explicit nor stored
	// credentials are available. No login request has been sent.
	ErrNoCredentials = errors.New("backend: no credentials available")

	// ErrAuthFailed signals that the site rejected the credentials or the
	// challenge answer.
	ErrAuthFailed = errors.New("backend: login rejected")
)

// TimeoutError indicates a request that timed out. A timed-out booking
// commit is an unknown outcome, not a failure.
type TimeoutError struct {
	Err error
}

func (e TimeoutError) Error() string {
	return fmt.Errorf("timeout: %w", e.Err).Error()
}

func (e TimeoutError) Unwrap() error {
	return e.Err
}

// TransportError indicates a network failure or an unexpected HTTP status.
type TransportError struct {
	Err error
}

func (e TransportError) Error() string {
	return fmt.Errorf("transport: %w", e.Err).Error()
}

func (e TransportError) Unwrap() error {
	return e.Err
}

// InvalidDaytimeError reports a daytime index outside the discovered slot
// range. This is a caller bug, never retried.
type InvalidDaytimeError struct {
	Index int
	Count int
}

func (e InvalidDaytimeError) Error() string {
	return fmt.Sprintf("invalid daytime index %d, site has %d slots", e.Index, e.Count)
}

// classifyTransportError wraps a low-level client error into the taxonomy.
func classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return TimeoutError{Err: err}
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return TimeoutError{Err: err}
	}
	return TransportError{Err: err}
}

// errorTypeLabel buckets an error for the metrics counter.
func errorTypeLabel(err error) string {
	if err == nil {
		return "unknown"
	}
	var timeout TimeoutError
	if errors.As(err, &timeout) {
		return "timeout"
	}
	var transport TransportError
	if errors.As(err, &transport) {
		return "transport"
	}
	var structure parser.StructureError
	if errors.As(err, &structure) {
		return "structure"
	}
	if errors.Is(err, ErrChallengeRequired) || errors.Is(err, ErrNoCredentials) || errors.Is(err, ErrAuthFailed) {
		return "auth"
	}
	var daytime InvalidDaytimeError
	if errors.As(err, &daytime) {
		return "invalid_input"
	}
	return "other"
}
