package metrc

import (
	"errors"
	"fmt"
)

// Unavailable is the sentinel used wherever a best-effort value could not be
// resolved (missing source package label, unparseable dates, ...).
const Unavailable = "N/A"

var (
	// ErrUnauthorized is returned on HTTP 401. Never retried.
	ErrUnauthorized = errors.New("metrc: unauthorized, check vendor/user API keys")
	// ErrMalformedResponse is returned when a response body is not valid JSON.
	ErrMalformedResponse = errors.New("metrc: response body is not valid JSON")
	// ErrUnexpectedSchema is returned when a body is valid JSON but does not
	// have the shape the endpoint requires.
	ErrUnexpectedSchema = errors.New("metrc: unexpected response schema")
	// ErrPackageIDNotFound is returned when a package record carries no Id.
	ErrPackageIDNotFound = errors.New("metrc: package record has no Id field")
)

// NetworkError is returned when every retry attempt failed at the transport
// level. It wraps the last attempt's error.
type NetworkError struct {
	Attempts int
	Err      error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("metrc: request failed after %d attempts: %v", e.Attempts, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// BadRequestError is returned on HTTP 400 and carries the upstream message
// verbatim so the caller can surface it.
type BadRequestError struct {
	Body string
}

func (e *BadRequestError) Error() string {
	return fmt.Sprintf("metrc: bad request: %s", e.Body)
}

// HTTPError is returned for any non-2xx status without a dedicated error.
type HTTPError struct {
	Status int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("metrc: unexpected HTTP status %d", e.Status)
}
