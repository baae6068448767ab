package daemon

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"threadrunner/internal/registry"
)

// DebugOptions configures the optional HTTP debug server.
type DebugOptions struct {
	// Addr is the listen address, e.g. "127.0.0.1:7070".
	Addr string
	// ModelsDir is scanned by /models. Empty uses the registry default.
	ModelsDir string
	// CORSEnabled turns on permissive CORS for browser dashboards.
	CORSEnabled bool
	// CORSOrigins restricts allowed origins when CORS is enabled.
	// Empty means any origin.
	CORSOrigins []string
}

// StatusSnapshot is the /status payload: a point-in-time view of the
// daemon lifecycle.
type StatusSnapshot struct {
	Backend          string `json:"backend"`
	ModelPath        string `json:"model_path"`
	ModelLoaded      bool   `json:"model_loaded"`
	LastActivityUnix int64  `json:"last_activity_unix,omitempty"`
	IdleSeconds      int64  `json:"idle_seconds"`
	IdleTimeoutSecs  int64  `json:"idle_timeout_secs"`
	LoadsTotal       uint64 `json:"loads_total"`
	UnloadsTotal     uint64 `json:"unloads_total"`
	UptimeSeconds    int64  `json:"uptime_seconds"`
	SocketPath       string `json:"socket_path"`
	ServerTimeUnix   int64  `json:"server_time_unix"`
}

// Status snapshots the daemon state for the debug surface.
func (d *Daemon) Status() StatusSnapshot {
	d.mu.Lock()
	loaded := d.st.backend != nil
	last := d.st.lastActivity
	loads := d.st.loads
	unloads := d.st.unloads
	d.mu.Unlock()

	snap := StatusSnapshot{
		Backend:         string(d.kind),
		ModelPath:       d.cfg.ModelPath,
		ModelLoaded:     loaded,
		IdleTimeoutSecs: int64(d.IdleTimeout() / time.Second),
		LoadsTotal:      loads,
		UnloadsTotal:    unloads,
		SocketPath:      d.cfg.SocketPath,
		ServerTimeUnix:  time.Now().Unix(),
	}
	if !last.IsZero() {
		snap.LastActivityUnix = last.Unix()
		snap.IdleSeconds = int64(time.Since(last) / time.Second)
	}
	if !d.started.IsZero() {
		snap.UptimeSeconds = int64(time.Since(d.started) / time.Second)
	}
	return snap
}

// DebugHandler builds the debug mux: health and readiness probes, a
// status snapshot, the model registry listing and Prometheus metrics.
func (d *Daemon) DebugHandler(opts DebugOptions) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, req)
		})
	})
	if opts.CORSEnabled {
		origins := opts.CORSOrigins
		if len(origins) == 0 {
			origins = []string{"*"}
		}
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: origins,
			AllowedMethods: []string{http.MethodGet, http.MethodOptions},
			MaxAge:         300,
		}))
	}
	r.Use(metricsMiddleware)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		if !d.Ready() {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("starting"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ready"))
	})

	r.Get("/status", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(d.Status())
	})

	r.Get("/models", func(w http.ResponseWriter, _ *http.Request) {
		dir := opts.ModelsDir
		if dir == "" {
			dir = registry.DefaultDir
		}
		models, err := registry.LoadDir(dir)
		if err != nil {
			writeJSONError(w, http.StatusInternalServerError, "scan models: "+err.Error())
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"models": models})
	})

	r.Get("/metrics", func(w http.ResponseWriter, req *http.Request) {
		promhttp.Handler().ServeHTTP(w, req)
	})

	return r
}

// ServeDebug runs the debug HTTP server until ctx is canceled, then
// shuts it down with a short drain window.
func (d *Daemon) ServeDebug(ctx context.Context, opts DebugOptions) error {
	srv := &http.Server{
		Addr:              opts.Addr,
		Handler:           d.DebugHandler(opts),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	d.logger.Info().Str("addr", opts.Addr).Msg("debug server listening")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": msg, "code": status})
}
