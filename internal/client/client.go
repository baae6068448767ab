// Package client is the short-lived CLI side of the socket protocol:
// it connects to the daemon (spawning one beside the client executable
// when none is serving), sends a single prompt and streams the token
// frames to a writer.
package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
	"os"
	"os/exec"
	"syscall"
	"time"

	"threadrunner/internal/config"
	"threadrunner/pkg/wire"
)

const (
	// connectTimeout bounds the whole connect-or-spawn phase.
	connectTimeout = 5 * time.Second
	// connectRetryInterval paces reconnect attempts after a spawn.
	connectRetryInterval = 100 * time.Millisecond
)

// Client sends one prompt per invocation over the daemon socket.
type Client struct {
	SocketPath     string
	Backend        string
	ConnectTimeout time.Duration
	// Spawn starts the daemon when the socket is absent or refusing.
	// Defaults to SpawnDaemon with the client's socket and backend.
	Spawn func() error
}

// New returns a client for the given socket path with the default
// spawn behavior and connect timeout.
func New(socketPath string) *Client {
	return &Client{SocketPath: socketPath, ConnectTimeout: connectTimeout}
}

// Connect dials the daemon socket. A missing socket file or a refused
// connection triggers a daemon spawn followed by retries every 100 ms
// until the connect deadline; reaching the deadline is a Timeout, any
// other dial failure an Io error.
func (c *Client) Connect() (net.Conn, error) {
	conn, err := net.Dial("unix", c.SocketPath)
	if err == nil {
		return conn, nil
	}
	if !noDaemon(err) {
		return nil, errf(wire.KindIo, "connect %s: %v", c.SocketPath, err)
	}

	spawn := c.Spawn
	if spawn == nil {
		spawn = func() error { return SpawnDaemon(c.SocketPath, c.Backend) }
	}
	if err := spawn(); err != nil {
		return nil, err
	}

	timeout := c.ConnectTimeout
	if timeout <= 0 {
		timeout = connectTimeout
	}
	deadline := time.Now().Add(timeout)
	for {
		if time.Now().After(deadline) {
			return nil, errf(wire.KindTimeout, "timed out after %s waiting for daemon socket %s", timeout, c.SocketPath)
		}
		time.Sleep(connectRetryInterval)
		conn, err = net.Dial("unix", c.SocketPath)
		if err == nil {
			return conn, nil
		}
		if !noDaemon(err) {
			return nil, errf(wire.KindIo, "connect %s: %v", c.SocketPath, err)
		}
	}
}

// Run connects, sends the prompt and streams response tokens to out,
// flushing after every token. A clean stream ends with a trailing
// newline after the eos frame; an error frame from the daemon aborts
// with its kind.
func (c *Client) Run(prompt string, out io.Writer) error {
	conn, err := c.Connect()
	if err != nil {
		return err
	}
	defer conn.Close()

	payload, err := json.Marshal(wire.PromptRequest{
		V:      wire.ProtocolVersion,
		Prompt: prompt,
		Stream: true,
	})
	if err != nil {
		return errf(wire.KindUnknown, "encode request: %v", err)
	}
	if err := wire.WriteFrame(conn, payload); err != nil {
		return errf(wire.KindIo, "send request: %v", err)
	}

	for {
		frame, err := wire.ReadFrame(conn)
		if err != nil {
			if wire.IsFrameTooLarge(err) {
				return errf(wire.KindProtocol, "response frame: %v", err)
			}
			return errf(wire.KindIo, "read response: %v", err)
		}
		tok, errResp, err := wire.DecodeResponse(frame)
		if err != nil {
			return errf(wire.KindProtocol, "decode response: %v", err)
		}
		if errResp != nil {
			return Error{Kind: errResp.ErrorType, Msg: "daemon error: " + errResp.Error}
		}
		if tok.Token != nil {
			if _, err := io.WriteString(out, *tok.Token); err != nil {
				return errf(wire.KindIo, "write token: %v", err)
			}
			flush(out)
		}
		if tok.EOS {
			fmt.Fprintln(out)
			return nil
		}
	}
}

// noDaemon reports whether a dial failure means nothing is serving the
// socket yet: the file is missing or nobody is accepting.
func noDaemon(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, syscall.ECONNREFUSED)
}

func flush(out io.Writer) {
	if f, ok := out.(interface{ Flush() error }); ok {
		_ = f.Flush()
	}
}

// SpawnDaemon launches the daemon executable that lives beside the
// client binary, stdio detached so it outlives the invocation. The
// socket path is passed through as a flag and a non-empty backend kind
// via environment.
func SpawnDaemon(socketPath, backendKind string) error {
	exe, err := config.DaemonPath()
	if err != nil {
		return errf(wire.KindIo, "locate daemon executable: %v", err)
	}
	cmd := exec.Command(exe, "--socket", socketPath)
	if backendKind != "" {
		cmd.Env = append(os.Environ(), config.EnvBackend+"="+backendKind)
	}
	if err := cmd.Start(); err != nil {
		return errf(wire.KindIo, "spawn daemon %s: %v", exe, err)
	}
	return cmd.Process.Release()
}
