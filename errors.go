package paradox

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrUpdateFailed marks a failed status poll. The scheduler keeps its own
// interval and retries on the next tick, so callers should check for it
// with errors.Is rather than giving up on the device.
var ErrUpdateFailed = errors.New("could not update module status")

// Kind classifies a failed remote operation.
type Kind uint8

const (
	// KindTransient covers connection and timeout failures. The module is
	// expected to come back; the sticky availability flag is left alone.
	KindTransient Kind = iota + 1
	// KindAuth covers rejected credentials and expired sessions the module
	// refused to renew. It clears availability until the next good login.
	KindAuth
	// KindUnclassified is everything else: protocol drift, malformed
	// payloads, bugs. Always logged in full, never swallowed.
	KindUnclassified
)

func (k Kind) String() string {
	switch k {
	case KindTransient:
		return "transient"
	case KindAuth:
		return "auth"
	default:
		return "unclassified"
	}
}

// Error is a classified failure from the module or its transport.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s error", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// KindOf extracts the classification of err. Plain network and context
// timeout errors count as transient even when the transport did not wrap
// them; anything unknown is unclassified.
func KindOf(err error) Kind {
	var merr *Error
	if errors.As(err, &merr) {
		return merr.Kind
	}
	var nerr net.Error
	if errors.As(err, &nerr) {
		return KindTransient
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindTransient
	}
	return KindUnclassified
}
