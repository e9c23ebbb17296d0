package handshake

import (
	"fmt"
	"io"
	"net"
	"os"

	"github.com/pkg/errors"
)

// FailureKind classifies why a handshake did not complete.
type FailureKind int

const (
	// FailureIO is a transport error other than a closed connection or an
	// expired deadline.
	FailureIO FailureKind = iota

	// FailureConnectionClosed means the peer closed the stream before its
	// verack arrived.
	FailureConnectionClosed

	// FailureTimeout means a deadline set on the stream expired.
	FailureTimeout

	// FailureProtocol means the peer sent bytes that violate the protocol:
	// a bad frame, an unparsable version payload or our own nonce.
	FailureProtocol
)

var failureKindStrings = map[FailureKind]string{
	FailureIO:               "io",
	FailureConnectionClosed: "connection closed",
	FailureTimeout:          "timeout",
	FailureProtocol:         "protocol",
}

func (k FailureKind) String() string {
	if s, ok := failureKindStrings[k]; ok {
		return s
	}
	return fmt.Sprintf("Unknown FailureKind (%d)", int(k))
}

// Sentinels matched by a *HandshakeError of the corresponding kind through
// errors.Is.
var (
	ErrIO               = errors.New("handshake i/o error")
	ErrConnectionClosed = errors.New("connection closed during handshake")
	ErrTimeout          = errors.New("handshake timed out")
	ErrProtocol         = errors.New("handshake protocol violation")
)

var failureKindErrors = map[FailureKind]error{
	FailureIO:               ErrIO,
	FailureConnectionClosed: ErrConnectionClosed,
	FailureTimeout:          ErrTimeout,
	FailureProtocol:         ErrProtocol,
}

// HandshakeError is returned by PerformHandshake when the handshake does not
// complete. State is the state the session was in when it failed.
type HandshakeError struct {
	Kind  FailureKind
	State State
	Cause error
}

func (e *HandshakeError) Error() string {
	return fmt.Sprintf("handshake failed in state %s (%s): %s", e.State, e.Kind, e.Cause)
}

// Unwrap returns the underlying cause, so codec and transport errors stay
// reachable through errors.Is and errors.As.
func (e *HandshakeError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is the sentinel of this error's kind.
func (e *HandshakeError) Is(target error) bool {
	return failureKindErrors[e.Kind] == target
}

// classifyIOError maps a transport error onto a FailureKind.
func classifyIOError(err error) FailureKind {
	switch {
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, net.ErrClosed):
		return FailureConnectionClosed
	case errors.Is(err, os.ErrDeadlineExceeded):
		return FailureTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return FailureTimeout
	}
	return FailureIO
}
