package e2e

import (
	"context"
	"encoding/json"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"threadrunner/internal/config"
	"threadrunner/internal/daemon"
	"threadrunner/pkg/wire"
)

// startDaemon runs an in-process daemon with the dummy backend on a
// socket under a fresh temp dir and stops it with the test.
func startDaemon(t *testing.T) string {
	t.Helper()
	socket := filepath.Join(t.TempDir(), "d.sock")
	startDaemonAt(t, socket)
	return socket
}

func startDaemonAt(t *testing.T, socket string) {
	t.Helper()
	cfg := config.Config{
		SocketPath:      socket,
		Backend:         "dummy",
		ModelPath:       "/dev/null",
		IdleTimeoutSecs: 300,
	}
	d, err := daemon.New(cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("daemon.New: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- d.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("daemon run: %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Errorf("daemon did not stop")
		}
	})
	waitForSocket(t, socket)
}

func waitForSocket(t *testing.T, path string) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		conn, err := net.Dial("unix", path)
		if err == nil {
			conn.Close()
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("socket %s never came up: %v", path, err)
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// rawExchange dials the socket, writes one request frame as-is and
// collects response frames until eos or an error frame.
func rawExchange(t *testing.T, socket string, payload []byte) ([]string, *wire.ErrorResponse) {
	t.Helper()
	conn, err := net.Dial("unix", socket)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if err := wire.WriteFrame(conn, payload); err != nil {
		t.Fatalf("write frame: %v", err)
	}
	var tokens []string
	for {
		frame, err := wire.ReadFrame(conn)
		if err != nil {
			t.Fatalf("read frame: %v", err)
		}
		tok, errResp, err := wire.DecodeResponse(frame)
		if err != nil {
			t.Fatalf("decode frame: %v", err)
		}
		if errResp != nil {
			return tokens, errResp
		}
		if tok.EOS {
			return tokens, nil
		}
		tokens = append(tokens, *tok.Token)
	}
}

func promptPayload(t *testing.T, v int, prompt string) []byte {
	t.Helper()
	payload, err := json.Marshal(wire.PromptRequest{V: v, Prompt: prompt, Stream: true})
	if err != nil {
		t.Fatalf("marshal request: %v", err)
	}
	return payload
}
