package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/qview/internal/broker/sim"
	"github.com/theirongolddev/qview/internal/broker/wire"
)

var (
	simListen string
	simChurn  time.Duration
	simEmpty  bool
)

func newSimCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sim",
		Short: "Serve an in-memory demo broker",
		Long: `Serve a simulated broker over the management bridge protocol, so
qview has something to watch without a real broker.

Examples:
  qview sim --listen :5674 --churn 2s
  qview --broker ws://localhost:5674/qmf`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSim(cmd)
		},
	}
	cmd.Flags().StringVarP(&simListen, "listen", "l", ":"+wire.DefaultPort, "address to listen on")
	cmd.Flags().DurationVar(&simChurn, "churn", 0, "enqueue a new order this often (0 = never)")
	cmd.Flags().BoolVar(&simEmpty, "empty", false, "start without demo queues")
	return cmd
}

func runSim(cmd *cobra.Command) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	b := sim.New()
	if !simEmpty {
		sim.Seed(b)
	}
	if simChurn > 0 {
		go sim.Churn(ctx, b, simChurn)
	}

	mux := http.NewServeMux()
	mux.Handle(wire.Path, wire.NewServer(b, logger))
	srv := &http.Server{
		Addr:              simListen,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	fmt.Fprintf(cmd.OutOrStdout(), "Serving demo broker on ws://%s%s (agent %s)\n", simListen, wire.Path, b.AgentName())
	logger.Info("sim broker listening", "addr", simListen, "churn", simChurn)

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serving demo broker: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down demo broker: %w", err)
	}
	logger.Info("sim broker stopped")
	return nil
}
