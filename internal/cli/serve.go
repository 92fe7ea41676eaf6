package cli

import (
	"fmt"
	"net"
	"time"

	"github.com/spf13/cobra"

	"github.com/chambrid/xtream-desk/internal/api"
)

type serveFlags struct {
	host            string
	port            int
	corsOrigins     []string
	disableCORS     bool
	shutdownTimeout time.Duration
}

func (a *app) newServeCmd() *cobra.Command {
	defaults := api.DefaultConfig()
	var flags serveFlags

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Expose the relay and profile operations over a local HTTP JSON API",
		Long: `Start a local HTTP server that exposes the relay, connection test and profile
operations as JSON endpoints, for a desktop frontend to call.

Responses use the same {"success","data","error"} envelope as the commands.
Relay metrics are served on /metrics. The server stops on SIGINT or SIGTERM.

Browser requests are refused unless their origin is passed with --cors-origin,
and a loopback listener only answers requests addressed to a loopback host.`,
		Example: `  # Listen on the default loopback port
  xtream-desk serve

  # Allow a specific frontend origin
  xtream-desk serve --port 9000 --cors-origin tauri://localhost`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := api.DefaultConfig()
			cfg.Host = flags.host
			cfg.Port = flags.port
			cfg.AllowedOrigins = flags.corsOrigins
			cfg.EnableCORS = !flags.disableCORS

			listener, err := net.Listen("tcp", cfg.Addr())
			if err != nil {
				return fmt.Errorf("failed to listen on %s: %w", cfg.Addr(), err)
			}

			info := api.BuildInfo{Version: a.info.Version, Commit: a.info.Commit, Date: a.info.Date}
			server := api.NewServer(cfg, info, a.svc, a.log)

			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "Listening on http://%s\n", listener.Addr())
			return server.Serve(cmd.Context(), listener, flags.shutdownTimeout)
		},
	}

	cmd.Flags().StringVar(&flags.host, "host", defaults.Host, "Address to listen on")
	cmd.Flags().IntVar(&flags.port, "port", defaults.Port, "Port to listen on (0 picks a free port)")
	cmd.Flags().StringSliceVar(&flags.corsOrigins, "cors-origin", nil, `Browser origin allowed to call the bridge (repeatable, "*" allows any)`)
	cmd.Flags().BoolVar(&flags.disableCORS, "no-cors", false, "Refuse every browser origin")
	cmd.Flags().DurationVar(&flags.shutdownTimeout, "shutdown-timeout", 10*time.Second, "Grace period for in-flight requests on shutdown")

	return cmd
}
