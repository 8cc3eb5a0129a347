package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/qview/internal/broker"
	"github.com/theirongolddev/qview/internal/output"
)

var (
	exportTimeout time.Duration
	exportNoBody  bool
)

func newExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export QUEUE",
		Short: "Write the headers and bodies of a queue's messages",
		Long: `Export every message on QUEUE: its header, and its body decoded
for display. The output is YAML unless --format says otherwise.

Examples:
  qview export orders > orders.yaml
  qview export orders --format json --no-body`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd, args[0])
		},
	}
	cmd.Flags().DurationVar(&exportTimeout, "timeout", 30*time.Second, "give up after this long")
	cmd.Flags().BoolVar(&exportNoBody, "no-body", false, "export headers only")
	return cmd
}

func runExport(cmd *cobra.Command, queue string) error {
	if outputFormat == "" {
		outputFormat = output.FormatYAML.String()
		defer func() { outputFormat = "" }()
	}
	f, err := formatter(cmd)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), exportTimeout)
	defer cancel()

	s, err := openSession(ctx, effectiveConfig(), true)
	if err != nil {
		return err
	}
	defer s.close()

	if _, err := s.queue(queue); err != nil {
		return err
	}
	headers, err := s.headers(ctx, queue)
	if err != nil {
		return fmt.Errorf("fetching headers of %s: %w", queue, err)
	}

	resp := output.ExportResponse{
		GeneratedAt: output.Timestamp(),
		Broker:      s.url,
		Queue:       queue,
		Messages:    make([]output.ExportedMessage, 0, len(headers)),
	}
	for _, h := range headers {
		msg := output.ExportedMessage{
			ID:          h.ID,
			Header:      broker.Map(plainMap(h.Header)),
			ContentType: h.Header.String("ContentType"),
		}
		switch {
		case h.Err != nil:
			msg.Error = h.Err.Error()
		case !exportNoBody:
			reply, err := s.w.FetchBodySync(ctx, h.Args, msg.ContentType)
			if err == nil {
				err = reply.Err
			}
			if err != nil {
				msg.Error = err.Error()
			} else {
				msg.Body = broker.DecodeBody(reply.Body, reply.ContentType)
			}
		}
		resp.Messages = append(resp.Messages, msg)
	}
	logger.Info("exported queue", "queue", queue, "messages", len(resp.Messages))

	return f.Emit(resp, func(w io.Writer) error {
		for _, m := range resp.Messages {
			fmt.Fprintf(w, "#%d %s\n", m.ID, broker.FormatValue(m.Header))
			switch {
			case m.Error != "":
				fmt.Fprintf(w, "  error: %s\n", m.Error)
			case !exportNoBody:
				fmt.Fprintf(w, "  %s\n", m.Body)
			}
		}
		fmt.Fprintln(w, output.CountStr(len(resp.Messages), "message", "messages"))
		return nil
	})
}
