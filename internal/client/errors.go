package client

import (
	"errors"
	"fmt"
)

// ErrReadOnly is returned by every mutation when the client was
// constructed with the read-only option. No process is spawned.
var ErrReadOnly = errors.New("board is read-only")

// ErrBackendUnavailable is returned when the configured backend
// implementation is not linked into this build.
var ErrBackendUnavailable = errors.New("configured backend is not available in this build")

// MalformedResponseError means bd exited 0 but the payload did not
// have the shape the verb requires.
type MalformedResponseError struct {
	Verb   string
	Detail string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("bd %s returned an unexpected payload: %s", e.Verb, e.Detail)
}
