package upstream

import (
	"errors"
	"fmt"
)

// ErrNoReply is returned by Complete when the upstream response parses
// but carries no usable content.
var ErrNoReply = errors.New("no reply from model")

// StatusError is returned when the upstream responds with a non-success
// status. The status and body are surfaced unmodified so the caller can
// decide whether to pass them through to the end user.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("upstream status %d: %s", e.Status, e.Body)
}
