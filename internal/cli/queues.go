package cli

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/theirongolddev/qview/internal/broker"
	"github.com/theirongolddev/qview/internal/output"
	"github.com/theirongolddev/qview/internal/queuetable"
)

var (
	queuesSystem bool
	queuesFilter string
)

func newQueuesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "queues",
		Aliases: []string{"ls", "list"},
		Short:   "List the queues on the broker",
		Long: `List the queues on the broker with the configured columns.

Examples:
  qview queues
  qview queues --system --filter dlq
  qview queues --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQueues(cmd, queuesSystem)
		},
	}
	cmd.Flags().BoolVar(&queuesSystem, "system", false, "include system queues")
	cmd.Flags().StringVar(&queuesFilter, "filter", "", "only queues whose name contains this (case-insensitive)")
	return cmd
}

func runQueues(cmd *cobra.Command, showSystem bool) error {
	f, err := formatter(cmd)
	if err != nil {
		return err
	}
	c := effectiveConfig()
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := openSession(ctx, c, showSystem || c.Queues.ShowSystem)
	if err != nil {
		return err
	}
	defer s.close()

	rows := s.table.Filtered(queuesFilter)
	resp := output.QueuesResponse{
		GeneratedAt: output.Timestamp(),
		Broker:      s.url,
		Queues:      make([]output.QueueRow, 0, len(rows)),
	}
	for _, i := range rows {
		row, _ := s.table.Row(i)
		depth, _ := row.Attrs.Uint64("msgDepth")
		bytes, _ := row.Attrs.Uint64("byteDepth")
		resp.Queues = append(resp.Queues, output.QueueRow{
			Name:       row.Name,
			Messages:   depth,
			Bytes:      bytes,
			System:     queuetable.IsSystemQueue(row.Attrs),
			Properties: plainMap(row.Attrs),
		})
	}

	return f.Emit(resp, func(w io.Writer) error {
		cols := s.table.Columns()
		headers := make([]string, len(cols))
		for i, col := range cols {
			headers[i] = col.Header
		}
		table := output.NewTable(w, headers...).MaxCellWidth(max(output.TerminalWidth(144)/3, 16))
		for i, col := range cols {
			if col.Align == queuetable.AlignRight {
				table.AlignRight(i)
			}
		}
		for _, i := range rows {
			cells := make([]string, len(cols))
			for c := range cols {
				cells[c] = s.table.Cell(i, c)
			}
			table.AddRow(cells...)
		}
		if err := table.Render(); err != nil {
			return err
		}
		_, err := io.WriteString(w, "\n"+output.CountStr(table.Len(), "queue", "queues")+"\n")
		return err
	})
}

// plainMap converts broker values into types the JSON and YAML encoders
// render naturally.
func plainMap(m broker.Map) map[string]any {
	if m == nil {
		return nil
	}
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = plainValue(v)
	}
	return out
}

func plainValue(v any) any {
	switch x := v.(type) {
	case broker.Map:
		return plainMap(x)
	case map[string]any:
		return plainMap(broker.Map(x))
	case []any:
		out := make([]any, len(x))
		for i, e := range x {
			out[i] = plainValue(e)
		}
		return out
	case []byte:
		return string(x)
	default:
		return v
	}
}
