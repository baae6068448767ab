package blackbox

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"threadrunner/pkg/wire"
)

// These tests compile the real client and daemon binaries and drive
// them as separate processes: the connect-or-spawn path, the idle
// unload timer and accept-loop resilience only exist end to end.

func projectRootFromThisFile(t *testing.T) string {
	t.Helper()
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("runtime.Caller failed")
	}
	// this file: <root>/tests/blackbox/blackbox_test.go
	bbDir := filepath.Dir(thisFile)
	return filepath.Dir(filepath.Dir(bbDir))
}

// buildBinaries compiles the client and daemon side by side so the
// client's sibling-executable spawn rule holds. CGO is disabled, which
// leaves the dummy backend as the only compiled-in kind.
func buildBinaries(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping binary tests in short mode")
	}
	root := projectRootFromThisFile(t)
	outDir := t.TempDir()
	for _, name := range []string{"threadrunner", "threadrunner-daemon"} {
		cmd := exec.Command("go", "build", "-o", filepath.Join(outDir, name), "./cmd/"+name)
		cmd.Dir = root
		cmd.Env = append(os.Environ(), "CGO_ENABLED=0")
		out, err := cmd.CombinedOutput()
		if err != nil {
			t.Fatalf("go build %s failed: %v\n%s", name, err, string(out))
		}
	}
	return outDir
}

type daemonProc struct {
	cmd        *exec.Cmd
	socket     string
	stderrPath string
}

func startDaemon(t *testing.T, bin, socket string, extraEnv ...string) *daemonProc {
	t.Helper()
	stderrPath := filepath.Join(t.TempDir(), "daemon.stderr")
	f, err := os.Create(stderrPath)
	if err != nil {
		t.Fatalf("create stderr file: %v", err)
	}
	cmd := exec.Command(filepath.Join(bin, "threadrunner-daemon"), "--socket", socket)
	cmd.Stderr = f
	cmd.Env = append(os.Environ(), extraEnv...)
	if err := cmd.Start(); err != nil {
		t.Fatalf("start daemon: %v", err)
	}
	t.Cleanup(func() {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		_ = f.Close()
	})
	waitForSocket(t, socket)
	return &daemonProc{cmd: cmd, socket: socket, stderrPath: stderrPath}
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
		time.Sleep(50 * time.Millisecond)
	}
}

func runClient(t *testing.T, bin, socket string, words ...string) (string, error) {
	t.Helper()
	args := append([]string{"--socket", socket}, words...)
	cmd := exec.Command(filepath.Join(bin, "threadrunner"), args...)
	out, err := cmd.Output()
	return string(out), err
}

func exitCode(err error) int {
	if err == nil {
		return 0
	}
	var ee *exec.ExitError
	if errors.As(err, &ee) {
		return ee.ExitCode()
	}
	return -1
}

func TestSmoke(t *testing.T) {
	bin := buildBinaries(t)
	socket := filepath.Join(t.TempDir(), "d.sock")
	startDaemon(t, bin, socket)

	out, err := runClient(t, bin, socket, "lorem", "ipsum")
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	if !strings.Contains(out, "lorem") {
		t.Fatalf("stdout missing token lorem: %q", out)
	}
	if !strings.HasSuffix(out, "\n") {
		t.Fatalf("stdout missing trailing newline: %q", out)
	}
}

func TestClientSpawnsDaemon(t *testing.T) {
	bin := buildBinaries(t)
	socket := filepath.Join(t.TempDir(), "d.sock")
	t.Cleanup(func() {
		// The daemon was spawned by the client, not the test; its argv
		// carries the unique socket path.
		_ = exec.Command("pkill", "-f", socket).Run()
	})

	out, err := runClient(t, bin, socket, "hi")
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	if !strings.Contains(out, "lorem") {
		t.Fatalf("stdout missing tokens after spawn: %q", out)
	}
}

func TestUnknownBackendFlagExitsOne(t *testing.T) {
	bin := buildBinaries(t)
	socket := filepath.Join(t.TempDir(), "d.sock")

	cmd := exec.Command(filepath.Join(bin, "threadrunner"), "--socket", socket, "--backend", "turbollama", "hi")
	out, err := cmd.CombinedOutput()
	if got := exitCode(err); got != 1 {
		t.Fatalf("exit code = %d, want 1\n%s", got, out)
	}
	if !strings.Contains(string(out), "dummy") {
		t.Fatalf("diagnostic does not list available backends: %q", out)
	}
}

func TestIdleUnload(t *testing.T) {
	bin := buildBinaries(t)
	socket := filepath.Join(t.TempDir(), "d.sock")
	proc := startDaemon(t, bin, socket, "THREADRUNNER_IDLE_TIMEOUT_SECS=1")

	if _, err := runClient(t, bin, socket, "warm", "up"); err != nil {
		t.Fatalf("first prompt: %v", err)
	}

	// One second of idle plus at most one five-second wake cycle.
	deadline := time.Now().Add(15 * time.Second)
	for {
		data, _ := os.ReadFile(proc.stderrPath)
		if strings.Contains(strings.ToLower(string(data)), "unloaded idle model") {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("no idle unload in daemon log:\n%s", data)
		}
		time.Sleep(200 * time.Millisecond)
	}

	out, err := runClient(t, bin, socket, "back", "again")
	if err != nil {
		t.Fatalf("prompt after unload: %v", err)
	}
	if !strings.Contains(out, "lorem") {
		t.Fatalf("no tokens after transparent reload: %q", out)
	}
}

func TestVersionMismatchFrame(t *testing.T) {
	bin := buildBinaries(t)
	socket := filepath.Join(t.TempDir(), "d.sock")
	startDaemon(t, bin, socket)

	conn, err := net.Dial("unix", socket)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	payload, err := json.Marshal(wire.PromptRequest{V: 99, Prompt: "hi", Stream: true})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if err := wire.WriteFrame(conn, payload); err != nil {
		t.Fatalf("write frame: %v", err)
	}
	frame, err := wire.ReadFrame(conn)
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	_, errResp, err := wire.DecodeResponse(frame)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if errResp == nil {
		t.Fatalf("expected error frame, got %s", frame)
	}
	if errResp.ErrorType != wire.KindProtocol {
		t.Fatalf("error_type = %q, want %q", errResp.ErrorType, wire.KindProtocol)
	}
}

func TestTruncatedFrameThenRecovers(t *testing.T) {
	bin := buildBinaries(t)
	socket := filepath.Join(t.TempDir(), "d.sock")
	startDaemon(t, bin, socket)

	conn, err := net.Dial("unix", socket)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	if _, err := conn.Write([]byte{10, 0, 0, 0, 'a', 'b', 'c'}); err != nil {
		t.Fatalf("write truncated frame: %v", err)
	}
	conn.Close()

	out, err := runClient(t, bin, socket, "still", "serving")
	if err != nil {
		t.Fatalf("client after truncated frame: %v", err)
	}
	if !strings.Contains(out, "lorem") {
		t.Fatalf("no tokens after truncated frame: %q", out)
	}
}

func TestDebugEndpointsOverHTTP(t *testing.T) {
	bin := buildBinaries(t)
	socket := filepath.Join(t.TempDir(), "d.sock")
	port := freePort(t)
	addr := fmt.Sprintf("127.0.0.1:%d", port)

	stderrPath := filepath.Join(t.TempDir(), "daemon.stderr")
	f, err := os.Create(stderrPath)
	if err != nil {
		t.Fatalf("create stderr file: %v", err)
	}
	cmd := exec.Command(filepath.Join(bin, "threadrunner-daemon"),
		"--socket", socket, "--debug-addr", addr)
	cmd.Stderr = f
	if err := cmd.Start(); err != nil {
		t.Fatalf("start daemon: %v", err)
	}
	t.Cleanup(func() {
		_ = cmd.Process.Kill()
		_ = cmd.Wait()
		_ = f.Close()
	})
	waitForSocket(t, socket)

	body := httpGetBody(t, "http://"+addr+"/healthz")
	if body != "ok" {
		t.Fatalf("/healthz = %q, want ok", body)
	}
	ready := httpGetBody(t, "http://"+addr+"/readyz")
	if ready != "ready" {
		t.Fatalf("/readyz = %q, want ready", ready)
	}
	status := httpGetBody(t, "http://"+addr+"/status")
	if !strings.Contains(status, "\"socket_path\"") {
		t.Fatalf("/status missing socket_path: %q", status)
	}
}

func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

// httpGetBody fetches url, retrying while the debug listener is
// still coming up.
func httpGetBody(t *testing.T, url string) string {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err := http.Get(url)
		if err == nil {
			body, rerr := io.ReadAll(resp.Body)
			resp.Body.Close()
			if rerr != nil {
				t.Fatalf("read %s: %v", url, rerr)
			}
			if resp.StatusCode == http.StatusOK {
				return string(body)
			}
			err = fmt.Errorf("status %d", resp.StatusCode)
		}
		if time.Now().After(deadline) {
			t.Fatalf("GET %s: %v", url, err)
		}
		time.Sleep(100 * time.Millisecond)
	}
}
