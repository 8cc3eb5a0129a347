// Package cli implements the qview command line.
package cli

import (
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/qview/internal/config"
	"github.com/theirongolddev/qview/internal/logging"
	"github.com/theirongolddev/qview/internal/output"
)

var (
	cfgFile string
	cfg     *config.Config
	logger  = logging.Discard()

	closeLog = func() error { return nil }

	// Global flags - inherited by all subcommands
	brokerURL    string
	outputFormat string
	compactJSON  bool
	logLevel     string

	// Build information - set via ldflags
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "qview",
	Short: "Browse and manage the queues of a Qpid broker",
	Long: `qview watches the queues of a broker over its management interface.

Run without a subcommand on a terminal it opens the dashboard: the queue
table on one side, the message headers of the selected queue on the other.
Elsewhere it prints the queue list.

Quick Start:
  qview --broker localhost          # Dashboard against a local broker
  qview queues --format json        # Queue list for scripts
  qview export orders > orders.yaml # Dump headers and bodies
  qview sim --listen :5674          # Demo broker to point qview at`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if skipsConfig(cmd) {
			return nil
		}
		loaded, err := config.Load(cfgFile)
		if err != nil {
			return output.ConfigInvalidError(err)
		}
		if brokerURL != "" {
			loaded.Broker.URL = brokerURL
		}
		if logLevel != "" {
			loaded.Log.Level = logLevel
		}
		cfg = loaded

		l, closeFn, err := logging.New(cfg.Log.File, cfg.Log.Level)
		if err != nil {
			return output.ConfigInvalidError(err)
		}
		logger, closeLog = l, closeFn
		return nil
	},
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		return closeLog()
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if !isInteractive(cmd.OutOrStdout()) {
			return runQueues(cmd, false)
		}
		return runDashboard(cmd)
	},
}

// skipsConfig reports commands that must work without a readable config.
func skipsConfig(cmd *cobra.Command) bool {
	switch cmd.Name() {
	case "version", "path", "init", "help":
		return true
	}
	return false
}

// isInteractive reports whether w is a terminal the dashboard can own.
func isInteractive(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// Execute runs the root command and reports errors in the selected format.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		format, ferr := output.DetectFormat(outputFormat)
		if ferr != nil {
			format = output.FormatText
		}
		output.PrintCLIError(os.Stderr, err, format)
		return err
	}
	return nil
}

// formatter returns the output formatter for the --format flag.
func formatter(cmd *cobra.Command) (*output.Formatter, error) {
	format, err := output.DetectFormat(outputFormat)
	if err != nil {
		return nil, output.NewCLIError(err.Error()).WithCode("BAD_FORMAT")
	}
	return output.New(
		output.WithFormat(format),
		output.WithWriter(cmd.OutOrStdout()),
		output.WithPretty(!compactJSON),
	), nil
}

// effectiveConfig returns the loaded config, or defaults for commands that
// skipped loading.
func effectiveConfig() *config.Config {
	if cfg != nil {
		return cfg
	}
	return config.Default()
}

func newVersionCmd() *cobra.Command {
	var short bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			if short {
				fmt.Fprintln(w, Version)
				return nil
			}
			f, err := formatter(cmd)
			if err != nil {
				return err
			}
			info := map[string]string{
				"version":  Version,
				"commit":   Commit,
				"built":    Date,
				"go":       runtime.Version(),
				"platform": fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
			}
			return f.Emit(info, func(w io.Writer) error {
				fmt.Fprintf(w, "qview version %s\n", Version)
				fmt.Fprintf(w, "  commit:    %s\n", Commit)
				fmt.Fprintf(w, "  built:     %s\n", Date)
				fmt.Fprintf(w, "  go:        %s\n", info["go"])
				fmt.Fprintf(w, "  platform:  %s\n", info["platform"])
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&short, "short", "s", false, "Print only version number")
	return cmd
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.config/qview/config.toml)")
	rootCmd.PersistentFlags().StringVarP(&brokerURL, "broker", "b", "", "broker URL (overrides [broker] url; sim: for the built-in demo broker)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "format", "f", "", "output format: text, json or yaml")
	rootCmd.PersistentFlags().BoolVar(&compactJSON, "compact", false, "single-line JSON output")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error")

	rootCmd.AddCommand(
		newDashboardCmd(),
		newQueuesCmd(),
		newExportCmd(),
		newPurgeCmd(),
		newSimCmd(),
		newConfigCmd(),
		newVersionCmd(),
	)
}
