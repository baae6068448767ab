package client

import (
	"errors"
	"fmt"

	"threadrunner/pkg/wire"
)

// Error is a client failure tagged with the wire error kind that
// drives the process exit code. Errors received from the daemon carry
// the kind from the error frame; local failures are tagged at the
// point they occur.
type Error struct {
	Kind wire.ErrorKind
	Msg  string
}

func (e Error) Error() string { return e.Msg }

func errf(kind wire.ErrorKind, format string, args ...any) error {
	return Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// KindOf extracts the wire kind from a client error, Unknown for
// anything untagged.
func KindOf(err error) wire.ErrorKind {
	var ce Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return wire.KindUnknown
}

// ExitCode maps an error onto the CLI exit contract: 0 success, 1
// unknown or argument, 2 connection or I/O, 3 model load, 4 timeout.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch KindOf(err) {
	case wire.KindModelLoad:
		return 3
	case wire.KindIo:
		return 2
	case wire.KindTimeout:
		return 4
	default:
		return 1
	}
}
