package gateway

import (
	"errors"
	"fmt"
)

// RemoteError is a non-2xx answer from the relay or the remote API
type RemoteError struct {
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("API Error: %d - %s", e.Status, e.Message)
}

// NetworkError is a transport failure; the request may or may not have
// reached the remote API.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ErrEmptyCreateResponse is returned when a create call answers 2xx without a record
var ErrEmptyCreateResponse = errors.New("create response contained no records")

// IsRemote reports whether err is a RemoteError and returns it
func IsRemote(err error) (*RemoteError, bool) {
	var remote *RemoteError
	if errors.As(err, &remote) {
		return remote, true
	}
	return nil, false
}
