package daemon

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"syscall"

	"threadrunner/internal/backend"
	"threadrunner/pkg/wire"
)

// protocolError marks a malformed or unsupported wire message.
type protocolError struct {
	msg string
}

func (e protocolError) Error() string { return "protocol: " + e.msg }

// ErrProtocol constructs a protocol violation error.
func ErrProtocol(msg string) error { return protocolError{msg: msg} }

// IsProtocol checks if an error is a protocol violation.
func IsProtocol(err error) bool {
	_, ok := err.(protocolError)
	return ok
}

// Classify maps an error onto the closed set of wire error kinds. The
// mapping is structural: model load failures and protocol violations are
// recognized by type, boundary I/O and deadline errors by the usual
// net/os sentinels, and everything else falls through to Unknown.
func Classify(err error) wire.ErrorKind {
	switch {
	case err == nil:
		return ""
	case backend.IsModelLoad(err):
		return wire.KindModelLoad
	case IsProtocol(err) || wire.IsFrameTooLarge(err):
		return wire.KindProtocol
	case isTimeout(err):
		return wire.KindTimeout
	case isIO(err):
		return wire.KindIo
	default:
		return wire.KindUnknown
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, os.ErrDeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func isIO(err error) bool {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, net.ErrClosed) {
		return true
	}
	if errors.Is(err, syscall.EPIPE) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var oe *net.OpError
	if errors.As(err, &oe) {
		return true
	}
	var pe *os.PathError
	return errors.As(err, &pe)
}
