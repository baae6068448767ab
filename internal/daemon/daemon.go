package daemon

import (
	"context"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"threadrunner/internal/backend"
	"threadrunner/internal/common/fsutil"
	"threadrunner/internal/config"
)

// Daemon owns one Unix socket listener, one lazily loaded backend and
// the idle eviction task. It serves the framed JSON protocol until its
// run context is canceled.
type Daemon struct {
	cfg    config.Config
	kind   backend.Kind
	logger zerolog.Logger
	events EventPublisher

	mu sync.Mutex
	st state

	idleTimeout atomic.Int64 // nanoseconds, mutable via SetIdleTimeout
	ready       atomic.Bool
	started     time.Time

	ln net.Listener
	wg sync.WaitGroup
}

// New validates the configured backend kind and builds a daemon. An
// empty cfg.Backend selects the richest available backend. Unknown
// kinds fail here so a misconfigured daemon dies at startup instead of
// at first request.
func New(cfg config.Config, logger zerolog.Logger) (*Daemon, error) {
	kind := backend.Default()
	if cfg.Backend != "" {
		var err error
		kind, err = backend.ParseKind(cfg.Backend)
		if err != nil {
			return nil, err
		}
	}
	if cfg.SocketPath == "" {
		return nil, fmt.Errorf("daemon: socket path not configured")
	}
	d := &Daemon{
		cfg:    cfg,
		kind:   kind,
		logger: logger,
		events: noopPublisher{},
	}
	idle := cfg.IdleTimeout()
	if idle <= 0 {
		idle = time.Duration(config.DefaultIdleTimeoutSecs) * time.Second
	}
	d.idleTimeout.Store(int64(idle))
	return d, nil
}

// SetEvents installs a lifecycle event publisher. Call before Run.
func (d *Daemon) SetEvents(p EventPublisher) {
	if p != nil {
		d.events = p
	}
}

// SetIdleTimeout changes the idle eviction window at runtime. Used by
// config hot reload.
func (d *Daemon) SetIdleTimeout(timeout time.Duration) {
	if timeout > 0 {
		d.idleTimeout.Store(int64(timeout))
	}
}

// IdleTimeout returns the current idle eviction window.
func (d *Daemon) IdleTimeout() time.Duration {
	return time.Duration(d.idleTimeout.Load())
}

// Ready reports whether the socket listener is bound and accepting.
func (d *Daemon) Ready() bool { return d.ready.Load() }

// Backend returns the backend kind the daemon serves.
func (d *Daemon) Backend() backend.Kind { return d.kind }

// SocketPath returns the bound socket path.
func (d *Daemon) SocketPath() string { return d.cfg.SocketPath }

// Run binds the socket and serves connections until ctx is canceled.
// A stale socket file from a previous run is removed before binding;
// if another daemon holds the path the bind fails and Run returns the
// error. On cancel the listener closes, in-flight handlers drain, the
// backend unloads and the socket file is removed.
func (d *Daemon) Run(ctx context.Context) error {
	if err := fsutil.RemoveStale(d.cfg.SocketPath); err != nil {
		return fmt.Errorf("remove stale socket: %w", err)
	}
	ln, err := net.Listen("unix", d.cfg.SocketPath)
	if err != nil {
		return fmt.Errorf("bind socket: %w", err)
	}
	d.ln = ln
	d.started = time.Now()
	d.ready.Store(true)
	defer d.ready.Store(false)

	d.logger.Info().
		Str("socket", d.cfg.SocketPath).
		Str("backend", string(d.kind)).
		Dur("idle_timeout", d.IdleTimeout()).
		Msg("daemon listening")
	if d.kind == backend.Native && !fsutil.PathExists(d.cfg.ModelPath) {
		d.logger.Warn().Str("model", d.cfg.ModelPath).Msg("model file not found; the first request will fail to load")
	}
	d.events.Publish(Event{Name: "daemon_start", Fields: map[string]any{
		"socket":  d.cfg.SocketPath,
		"backend": string(d.kind),
	}})

	// runCtx also ends on a listener failure, so the idle task never
	// outlives the accept loop.
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	d.wg.Add(1)
	go d.idleLoop(runCtx)

	// Unblock Accept when the run ends.
	go func() {
		<-runCtx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			cancel()
			d.wg.Wait()
			d.unloadForExit()
			rmErr := fsutil.RemoveStale(d.cfg.SocketPath)
			select {
			case <-ctx.Done():
				d.logger.Info().Msg("daemon stopped")
				d.events.Publish(Event{Name: "daemon_stop", Fields: nil})
				return rmErr
			default:
				return fmt.Errorf("accept: %w", err)
			}
		}
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.handle(conn)
		}()
	}
}

// unloadForExit releases the backend if the slot is still full so model
// resources are freed on every exit path.
func (d *Daemon) unloadForExit() {
	b := d.takeBackend()
	if b == nil {
		return
	}
	if err := b.Unload(); err != nil {
		d.logger.Error().Err(err).Msg("error unloading model at shutdown")
		return
	}
	modelUnloadsTotal.WithLabelValues("shutdown").Inc()
	d.logger.Info().Msg("unloaded model at shutdown")
	d.events.Publish(Event{Name: "model_unloaded", Fields: map[string]any{
		"reason": "shutdown",
	}})
}
