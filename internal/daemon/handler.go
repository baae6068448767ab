package daemon

import (
	"encoding/json"
	"fmt"
	"net"
	"time"

	"threadrunner/pkg/wire"
)

// handle serves one client connection: one request frame in, a token
// stream out. Any handler error collapses the rest of the exchange into
// a single best-effort error frame; a failure of that secondary write
// is logged and swallowed so the accept loop is never affected.
func (d *Daemon) handle(conn net.Conn) {
	defer conn.Close()
	connectionsActive.Inc()
	defer connectionsActive.Dec()
	d.events.Publish(Event{Name: "request_start"})

	start := time.Now()
	err := d.serveConn(conn)
	requestDuration.Observe(time.Since(start).Seconds())
	if err == nil {
		requestsTotal.WithLabelValues("ok").Inc()
		d.events.Publish(Event{Name: "request_handled", Fields: map[string]any{
			"dur_ms": time.Since(start).Milliseconds(),
		}})
		return
	}

	kind := Classify(err)
	requestsTotal.WithLabelValues("error").Inc()
	errorsTotal.WithLabelValues(string(kind)).Inc()
	d.logger.Warn().Err(err).Str("kind", string(kind)).Msg("request failed")
	d.events.Publish(Event{Name: "request_failed", Fields: map[string]any{
		"kind": string(kind),
	}})
	if werr := writeErrorFrame(conn, kind, err); werr != nil {
		d.logger.Debug().Err(werr).Msg("error frame write failed")
	}
}

// serveConn runs the request/stream exchange and returns the first
// error hit, if any. The state mutex is held across Prompt and each
// NextToken call but released for every socket write, so a slow reader
// cannot hold the backend hostage.
func (d *Daemon) serveConn(conn net.Conn) error {
	payload, err := wire.ReadFrame(conn)
	if err != nil {
		return err
	}

	var req wire.PromptRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return ErrProtocol("malformed request: " + err.Error())
	}
	if req.V != wire.ProtocolVersion {
		return ErrProtocol(fmt.Sprintf("unsupported protocol version %d", req.V))
	}
	if !req.Stream {
		// Non-streaming replies are reserved for a future protocol
		// version; until then every request streams.
		d.logger.Debug().Msg("stream=false requested, streaming anyway")
	}

	d.mu.Lock()
	if err := d.ensureLoadedLocked(); err != nil {
		d.mu.Unlock()
		return err
	}
	if err := d.st.backend.Prompt(req.Prompt); err != nil {
		d.mu.Unlock()
		return err
	}
	d.st.lastActivity = time.Now()
	d.mu.Unlock()

	for {
		d.mu.Lock()
		var (
			tok string
			ok  bool
		)
		if d.st.backend != nil {
			tok, ok, err = d.st.backend.NextToken()
		} else {
			// Slot emptied mid-stream (eviction raced a stalled
			// client); end the stream cleanly.
			tok, ok, err = "", false, nil
		}
		d.st.lastActivity = time.Now()
		d.mu.Unlock()
		if err != nil {
			return err
		}

		resp := wire.TokenResponse{EOS: !ok}
		if ok {
			t := tok
			resp.Token = &t
		}
		body, err := json.Marshal(resp)
		if err != nil {
			return err
		}
		if err := wire.WriteFrame(conn, body); err != nil {
			return err
		}
		if !ok {
			return nil
		}
		tokensStreamedTotal.Inc()
	}
}

// writeErrorFrame sends a single framed error response tagged with the
// classified kind.
func writeErrorFrame(conn net.Conn, kind wire.ErrorKind, cause error) error {
	body, err := json.Marshal(wire.ErrorResponse{
		Error:     cause.Error(),
		ErrorType: kind,
	})
	if err != nil {
		return err
	}
	return wire.WriteFrame(conn, body)
}
