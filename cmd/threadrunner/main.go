// Command threadrunner is the short-lived prompt client: it joins its
// arguments into one prompt, connects to the local daemon (spawning it
// when absent) and streams the generated tokens to stdout.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"threadrunner/internal/backend"
	"threadrunner/internal/client"
	"threadrunner/internal/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "threadrunner: %v\n", err)
		os.Exit(client.ExitCode(err))
	}
}

func newRootCmd() *cobra.Command {
	var (
		backendName string
		socketPath  string
	)
	cmd := &cobra.Command{
		Use:           "threadrunner [flags] <prompt words...>",
		Short:         "Stream a prompt through the local inference daemon",
		Args:          cobra.MinimumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(_ *cobra.Command, args []string) error {
			if backendName != "" {
				if _, err := backend.ParseKind(backendName); err != nil {
					return err
				}
			}
			cfg, err := config.FromEnv()
			if err != nil {
				return err
			}
			if socketPath == "" {
				socketPath = cfg.SocketPath
			}
			c := client.New(socketPath)
			c.Backend = backendName
			return c.Run(strings.Join(args, " "), os.Stdout)
		},
	}
	cmd.Flags().StringVar(&backendName, "backend", "", "backend kind for a newly spawned daemon (dummy or native)")
	cmd.Flags().StringVar(&socketPath, "socket", "", "daemon socket path (default "+config.DefaultSocketPath+")")
	return cmd
}
