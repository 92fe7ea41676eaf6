package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-logr/logr"
	"github.com/spf13/cobra"

	"github.com/chambrid/xtream-desk/pkg/config"
	"github.com/chambrid/xtream-desk/pkg/logging"
	"github.com/chambrid/xtream-desk/pkg/service"
)

// BuildInfo contains build-time information
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

const (
	outputJSON  = "json"
	outputTable = "table"
)

type rootFlags struct {
	envFiles     []string
	dataDir      string
	storeBackend string
	logLevel     string
	logFormat    string
	output       string
	metricsFile  string
}

// app carries the state shared by every command of one invocation
type app struct {
	info  BuildInfo
	flags rootFlags

	newService func(*config.Config, logr.Logger) (*service.Service, error)
	now        func() time.Time

	log logr.Logger
	svc *service.Service
}

func newApp(info BuildInfo) *app {
	return &app{
		info:       info,
		newService: service.NewFromConfig,
		now:        time.Now,
		log:        logr.Discard(),
	}
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute(info BuildInfo) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return newApp(info).run(ctx, nil, os.Stdout, os.Stderr)
}

// run executes the command tree with args and always releases the service
func (a *app) run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	rootCmd := a.newRootCmd()
	if args != nil {
		rootCmd.SetArgs(args)
	}
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.ExecuteContext(ctx)
	if finishErr := a.finish(); finishErr != nil && err == nil {
		err = finishErr
	}
	return err
}

func (a *app) newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "xtream-desk",
		Short: "Query Xtream-Codes IPTV panels and manage saved panel accounts",
		Long: `xtream-desk - relay requests to Xtream-Codes IPTV panels and keep a local list
of panel accounts.

Every command prints a JSON envelope {"success","data","error"} by default.
Use --output=table for a human-readable view. A failed envelope exits non-zero.

Storage:
  Profiles are kept in profiles.json under the data directory
  ($HOME/.xtream-desk unless XTREAM_DATA_DIR or --data-dir say otherwise).
  Set XTREAM_STORE_BACKEND=sqlite to keep them in a SQLite database instead.`,
		Version:           fmt.Sprintf("%s (commit: %s, built: %s)", a.info.Version, a.info.Commit, a.info.Date),
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringSliceVar(&a.flags.envFiles, "env-file", []string{".env"}, "Environment file(s) to load")
	flags.StringVar(&a.flags.dataDir, "data-dir", "", "Data directory (overrides XTREAM_DATA_DIR)")
	flags.StringVar(&a.flags.storeBackend, "store-backend", "", "Store backend: json, sqlite (overrides XTREAM_STORE_BACKEND)")
	flags.StringVarP(&a.flags.logLevel, "log-level", "l", "", "Log level (debug, info, warn, error)")
	flags.StringVar(&a.flags.logFormat, "log-format", "", "Log format (text, json)")
	flags.StringVarP(&a.flags.output, "output", "o", outputJSON, "Output format (json, table)")
	flags.StringVar(&a.flags.metricsFile, "metrics-file", "", "Write relay metrics in Prometheus text format to this file on exit")

	rootCmd.AddCommand(a.newRelayCmd())
	rootCmd.AddCommand(a.newTestCmd())
	rootCmd.AddCommand(a.newProfileCmd())
	rootCmd.AddCommand(a.newServeCmd())

	return rootCmd
}

// setup loads configuration, builds the logger and constructs the service
func (a *app) setup(cmd *cobra.Command, args []string) error {
	if a.flags.output != outputJSON && a.flags.output != outputTable {
		return fmt.Errorf("invalid --output '%s' (use json or table)", a.flags.output)
	}

	cfg, err := config.LoadWithOverrides(map[string]string{
		config.EnvDataDir:      a.flags.dataDir,
		config.EnvStoreBackend: a.flags.storeBackend,
		config.EnvLogLevel:     a.flags.logLevel,
		config.EnvLogFormat:    a.flags.logFormat,
	}, a.flags.envFiles...)
	if err != nil {
		return err
	}

	log, err := logging.NewWithWriter(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	a.log = log.WithName("xtream-desk")

	svc, err := a.newService(cfg, a.log)
	if err != nil {
		return fmt.Errorf("failed to initialize: %w", err)
	}
	a.svc = svc

	a.log.V(1).Info("Command starting", "command", cmd.CommandPath(), "dataDir", cfg.DataDir)
	return nil
}

// finish writes the metrics file when requested and closes the service
func (a *app) finish() error {
	if a.svc == nil {
		return nil
	}
	defer func() {
		if err := a.svc.Close(); err != nil {
			a.log.Error(err, "Failed to close store")
		}
		a.svc = nil
	}()

	if a.flags.metricsFile == "" {
		return nil
	}

	f, err := os.OpenFile(a.flags.metricsFile, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to open metrics file: %w", err)
	}
	defer func() {
		if err := f.Close(); err != nil {
			a.log.Error(err, "Failed to close metrics file")
		}
	}()

	return a.svc.WriteMetrics(f)
}
