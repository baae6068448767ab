// Package wire defines the framed-JSON protocol spoken between the
// threadrunner client and daemon over a Unix socket. It is structured into
// small files by concern:
//
//   - frame.go: length-prefixed framing codec (4-byte little-endian length).
//   - wire.go: JSON message schema, protocol version, error kinds.
//
// Every message is one frame carrying one JSON object. A connection carries
// exactly one request followed by a stream of responses; end-of-stream is
// signalled by the eos flag, never by closing the connection mid-stream.
package wire
