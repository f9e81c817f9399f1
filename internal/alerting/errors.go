package alerting

import (
	"errors"
	"fmt"
)

// ErrQueueFull is returned by Dispatcher.Enqueue when the bounded queue
// is at capacity. The alert is dropped, never blocked on.
var ErrQueueFull = errors.New("alert queue full")

// DispatchError reports a failed delivery to a sink. The alert record
// was already committed when dispatch started, so a DispatchError never
// causes a re-alert.
type DispatchError struct {
	Sink string
	Err  error
}

func (e *DispatchError) Error() string {
	return fmt.Sprintf("dispatch via %s: %v", e.Sink, e.Err)
}

func (e *DispatchError) Unwrap() error {
	return e.Err
}
