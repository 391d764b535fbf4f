package connector

import (
	"errors"
	"fmt"

	"mercator-hq/restconnector/pkg/transport"
)

var (
	// ErrNotSupported is returned by data access methods the REST binding
	// cannot express.
	ErrNotSupported = errors.New("not supported")

	// ErrUnknownFunction is returned when calling a function that no
	// operation declares.
	ErrUnknownFunction = errors.New("unknown function")

	// ErrUnknownModel is returned for a model that was never defined.
	ErrUnknownModel = errors.New("unknown model")
)

// UnexpectedStatusError is returned when a data access call succeeds at the
// transport level but answers with a status the call does not accept.
type UnexpectedStatusError struct {
	// Model is the model the call was made for
	Model string

	// Op is the data access method, e.g. "find"
	Op string

	// StatusCode is the response status
	StatusCode int

	// Body is the decoded response body
	Body any
}

func (e *UnexpectedStatusError) Error() string {
	return fmt.Sprintf("%s %s: error response: %d", e.Model, e.Op, e.StatusCode)
}

// StatusCode returns the HTTP status carried by err, or 0 when err is not a
// response error.
func StatusCode(err error) int {
	var statusErr *transport.StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode
	}
	var unexpected *UnexpectedStatusError
	if errors.As(err, &unexpected) {
		return unexpected.StatusCode
	}
	return 0
}
