package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/qview/internal/output"
)

var (
	purgeCount uint64
	purgeYes   bool
)

func newPurgeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "purge QUEUE",
		Short: "Remove messages from the head of a queue",
		Long: `Purge removes --count messages from the head of QUEUE, or all of
them when --count is 0. It asks for --yes because it cannot be undone.

Examples:
  qview purge orders.dlq --yes
  qview purge orders --count 1 --yes`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPurge(cmd, args[0])
		},
	}
	cmd.Flags().Uint64VarP(&purgeCount, "count", "n", 0, "messages to remove (0 = all)")
	cmd.Flags().BoolVarP(&purgeYes, "yes", "y", false, "confirm the purge")
	return cmd
}

func runPurge(cmd *cobra.Command, queue string) error {
	if !purgeYes {
		return output.NewCLIError(fmt.Sprintf("refusing to purge '%s' without --yes", queue)).
			WithCode("CONFIRMATION_REQUIRED").
			WithHint(fmt.Sprintf("Run 'qview purge %s --yes'", queue))
	}
	f, err := formatter(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), connectTimeout+10*time.Second)
	defer cancel()

	s, err := openSession(ctx, effectiveConfig(), true)
	if err != nil {
		return err
	}
	defer s.close()

	row, err := s.queue(queue)
	if err != nil {
		return err
	}
	before, _ := row.Attrs.Uint64("msgDepth")

	if err := s.purge(ctx, row, purgeCount); err != nil {
		return err
	}
	// A listing already in flight may predate the purge; the one after it
	// cannot.
	after := before
	for i := 0; i < 2; i++ {
		if err := s.waitListing(ctx); err != nil {
			return err
		}
		if r, err := s.queue(queue); err == nil {
			after, _ = r.Attrs.Uint64("msgDepth")
		} else {
			after = 0
		}
		if after != before {
			break
		}
	}

	resp := output.PurgeResponse{Queue: queue, Requested: purgeCount, Before: before, After: after}
	return f.Emit(resp, func(w io.Writer) error {
		removed := before - min(after, before)
		_, err := fmt.Fprintf(w, "Purged %s from %s (%d left)\n",
			output.CountStr(int(removed), "message", "messages"), queue, after)
		return err
	})
}
