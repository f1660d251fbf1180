package llm

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingAPIKey is returned when no credential is available, before
	// any network attempt is made.
	ErrMissingAPIKey = errors.New("missing API key: set Config.APIKey or the " + APIKeyEnv + " environment variable")
	// ErrRetriesExhausted is returned when the retry loop runs out of
	// attempts without a more specific terminal error.
	ErrRetriesExhausted = errors.New("all retry attempts failed")
)

// TransportError reports a network-level failure (connection refused,
// timeout, DNS) on the final attempt.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("transport failure: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// StatusError reports a terminal HTTP status from the endpoint. It carries
// the status code and the raw response body.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("endpoint returned status %d: %s", e.Code, e.Body)
}

// DecodeError reports a success status whose body was not valid JSON.
// BodyPrefix holds at most the first 200 bytes of the raw body for
// diagnostics.
type DecodeError struct {
	Err        error
	BodyPrefix string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("endpoint returned non-JSON body: %s", e.BodyPrefix)
}

func (e *DecodeError) Unwrap() error { return e.Err }
