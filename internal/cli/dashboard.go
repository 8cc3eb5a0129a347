package cli

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/theirongolddev/qview/internal/config"
	"github.com/theirongolddev/qview/internal/console"
	"github.com/theirongolddev/qview/internal/headertree"
	"github.com/theirongolddev/qview/internal/logging"
	"github.com/theirongolddev/qview/internal/output"
	"github.com/theirongolddev/qview/internal/queuetable"
	"github.com/theirongolddev/qview/internal/tui/dashboard"
	"github.com/theirongolddev/qview/internal/worker"
)

var dashboardNoWatch bool

func newDashboardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "dashboard",
		Aliases: []string{"dash", "ui"},
		Short:   "Open the interactive queue dashboard",
		Long: `Open the dashboard: the broker's queues on one side and the message
headers of the selected queue on the other.

The config file is watched while the dashboard runs; column, theme and
header classification changes apply without a restart.

Examples:
  qview dashboard --broker localhost
  qview ui --broker sim:`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDashboard(cmd)
		},
	}
	cmd.Flags().BoolVar(&dashboardNoWatch, "no-watch", false, "do not reload the config file on change")
	return cmd
}

func runDashboard(cmd *cobra.Command) error {
	if !isInteractive(cmd.OutOrStdout()) {
		return output.NewCLIError("the dashboard needs a terminal").
			WithCode("NOT_A_TERMINAL").
			WithHint(output.HintNotATerminal)
	}

	c := effectiveConfig()
	interval, err := c.RefreshInterval()
	if err != nil {
		return output.ConfigInvalidError(err)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	w := worker.New(worker.Options{
		Dialer:       dialerFor(c.Broker.URL),
		PollInterval: interval,
		Paused:       c.Refresh.Paused,
		Logger:       logger,
	})
	w.Start(ctx)
	defer w.Stop()

	table := queuetable.New(c.Columns(), c.Queues.ShowSystem)
	tree := headertree.New(c.Classification(), c.HeaderOptions()...)
	con := console.New(w, table, tree, logger)

	m := dashboard.New(dashboard.Options{
		Controller: w,
		Mailbox:    w.Mailbox(),
		Console:    con,
		Config:     c,
		Logger:     logger,
		Context:    ctx,
	})
	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))

	if !dashboardNoWatch {
		stop, err := config.Watch(cfgFile, func(reloaded *config.Config) {
			if brokerURL != "" {
				reloaded.Broker.URL = brokerURL
			}
			p.Send(dashboard.ConfigReloadedMsg{Config: reloaded})
		}, logger)
		if err != nil {
			logger.Warn("config watch disabled", logging.Err(err))
		} else {
			defer stop()
		}
	}

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running dashboard: %w", err)
	}
	_ = w.Disconnect()
	return nil
}
