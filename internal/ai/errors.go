package ai

import (
	"errors"
	"fmt"
)

// ErrorKind classifies gateway failures so retry policy can branch on them.
type ErrorKind int

const (
	KindTimeout ErrorKind = iota
	KindConnection
	KindPayload
	KindAuth
	KindRateLimited
	KindParse
)

func (k ErrorKind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindConnection:
		return "connection"
	case KindPayload:
		return "payload"
	case KindAuth:
		return "auth"
	case KindRateLimited:
		return "rate_limited"
	case KindParse:
		return "parse"
	}
	return "unknown"
}

// GatewayError tags a provider failure with its kind and HTTP status.
type GatewayError struct {
	Provider string
	Kind     ErrorKind
	Status   int
	Err      error
}

func (e *GatewayError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("provider %s: %s (status %d): %v", e.Provider, e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("provider %s: %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *GatewayError) Unwrap() error { return e.Err }

// Retryable reports whether another attempt could reasonably succeed.
// Auth failures (any non-429 4xx) are terminal for the cycle.
func (e *GatewayError) Retryable() bool {
	return e.Kind != KindAuth
}

// AsGatewayError unwraps err into a *GatewayError when possible.
func AsGatewayError(err error) (*GatewayError, bool) {
	var ge *GatewayError
	if errors.As(err, &ge) {
		return ge, true
	}
	return nil, false
}
