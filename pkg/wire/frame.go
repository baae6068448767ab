package wire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// MaxFrameSize caps the payload length the codec will read or write.
// The protocol itself has no limit; the cap guards against a corrupt or
// hostile length prefix. Oversized frames are a protocol violation.
const MaxFrameSize = 16 << 20

// frameTooLargeError reports a frame whose declared length exceeds MaxFrameSize.
type frameTooLargeError struct{ n uint64 }

func (e frameTooLargeError) Error() string {
	return fmt.Sprintf("frame of %d bytes exceeds %d byte cap", e.n, MaxFrameSize)
}

// IsFrameTooLarge reports whether err indicates an oversized frame.
func IsFrameTooLarge(err error) bool {
	_, ok := err.(frameTooLargeError)
	return ok
}

// ReadFrame reads one frame: a 4-byte little-endian length followed by
// exactly that many payload bytes. A peer that closes mid-frame surfaces
// as an I/O error from io.ReadFull.
func ReadFrame(r io.Reader) ([]byte, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}
	n := binary.LittleEndian.Uint32(hdr[:])
	if n > MaxFrameSize {
		return nil, frameTooLargeError{n: uint64(n)}
	}
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return nil, err
	}
	return payload, nil
}

// WriteFrame writes the length prefix and payload back-to-back. Readers
// must not assume both segments arrive in one packet.
func WriteFrame(w io.Writer, payload []byte) error {
	if len(payload) > MaxFrameSize {
		return frameTooLargeError{n: uint64(len(payload))}
	}
	var hdr [4]byte
	binary.LittleEndian.PutUint32(hdr[:], uint32(len(payload)))
	if _, err := w.Write(hdr[:]); err != nil {
		return err
	}
	_, err := w.Write(payload)
	return err
}
