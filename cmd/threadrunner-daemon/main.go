// Command threadrunner-daemon is the long-lived inference daemon. It
// serves the framed JSON protocol on a Unix socket, loads the model
// backend lazily and unloads it again after an idle window. Usually it
// is spawned by the threadrunner client rather than run by hand.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"threadrunner/internal/config"
	"threadrunner/internal/daemon"
	"threadrunner/internal/logging"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "threadrunner-daemon: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	socketPath      string
	configPath      string
	debugAddr       string
	debugCORS       bool
	debugCORSOrigin string
	logLevel        string
}

func newRootCmd() *cobra.Command {
	var opts options
	cmd := &cobra.Command{
		Use:           "threadrunner-daemon",
		Short:         "Serve local LLM inference over the threadrunner socket",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(_ *cobra.Command, _ []string) error {
			return run(opts)
		},
	}
	cmd.Flags().StringVar(&opts.socketPath, "socket", "", "socket path (overrides config file and "+config.EnvSocket+")")
	cmd.Flags().StringVar(&opts.configPath, "config", "", "config file path (.yaml, .json or .toml), watched for changes")
	cmd.Flags().StringVar(&opts.debugAddr, "debug-addr", "", "HTTP debug listen address, e.g. 127.0.0.1:7070 (empty disables)")
	cmd.Flags().BoolVar(&opts.debugCORS, "debug-cors", false, "allow cross-origin requests on the debug server")
	cmd.Flags().StringVar(&opts.debugCORSOrigin, "debug-cors-origins", "", "comma-separated origins allowed by --debug-cors (default any)")
	cmd.Flags().StringVar(&opts.logLevel, "log-level", "", "log level: trace, debug, info, warn, error, off")
	return cmd
}

// run resolves configuration (file, then environment, then flags),
// wires logging and the optional config watcher and debug server, and
// serves until SIGINT or SIGTERM.
func run(opts options) error {
	var cfg config.Config
	if opts.configPath != "" {
		var err error
		cfg, err = config.Load(opts.configPath)
		if err != nil {
			return err
		}
	}
	cfg, err := resolve(cfg, opts)
	if err != nil {
		return err
	}

	logger := logging.New(cfg.LogLevel, logging.DefaultFilePath("threadrunner-daemon"))
	logging.CaptureStdlog(logger)

	d, err := daemon.New(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if opts.configPath != "" {
		w, err := config.NewWatcher(opts.configPath, func(next config.Config, err error) {
			if err != nil {
				return // reload failures are logged by the watcher
			}
			next, rerr := resolve(next, opts)
			if rerr != nil {
				logger.Error().Err(rerr).Msg("reloaded config rejected")
				return
			}
			// Idle timeout and log level apply live; the rest is bound
			// at startup.
			d.SetIdleTimeout(next.IdleTimeout())
			logging.SetLevel(next.LogLevel)
			logger.Info().
				Int("idle_timeout_secs", next.IdleTimeoutSecs).
				Str("log_level", next.LogLevel).
				Msg("config reloaded")
			if next.SocketPath != cfg.SocketPath || next.Backend != cfg.Backend || next.ModelPath != cfg.ModelPath {
				logger.Warn().Msg("socket, backend and model path changes take effect on restart")
			}
		})
		if err != nil {
			return err
		}
		defer w.Close()
	}

	if cfg.DebugAddr != "" {
		go func() {
			err := d.ServeDebug(ctx, daemon.DebugOptions{
				Addr:        cfg.DebugAddr,
				CORSEnabled: opts.debugCORS || opts.debugCORSOrigin != "",
				CORSOrigins: splitCSV(opts.debugCORSOrigin),
			})
			if err != nil {
				logger.Error().Err(err).Msg("debug server failed")
			}
		}()
	}

	return d.Run(ctx)
}

// resolve overlays environment variables and then command-line flags onto
// cfg and fills remaining gaps with defaults. Reloads run through the same
// chain so flag precedence survives a config file edit.
func resolve(cfg config.Config, opts options) (config.Config, error) {
	cfg, err := config.ApplyEnv(cfg)
	if err != nil {
		return cfg, err
	}
	if opts.socketPath != "" {
		cfg.SocketPath = opts.socketPath
	}
	if opts.debugAddr != "" {
		cfg.DebugAddr = opts.debugAddr
	}
	if opts.logLevel != "" {
		cfg.LogLevel = opts.logLevel
	}
	return config.ApplyDefaults(cfg), nil
}

// splitCSV splits a comma-separated flag value, trimming whitespace
// and dropping empty entries.
func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
