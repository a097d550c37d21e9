package cli

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/interlock/internal/results"
)

// ReportOptions holds flags for the report command.
type ReportOptions struct {
	DBPath    string
	Interface string
	Limit     int
}

// NewReportCommand creates the report command.
func NewReportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReportOptions{}

	cmd := &cobra.Command{
		Use:           "report",
		Short:         "Show recorded conformance run history",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(rootOpts, opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.DBPath, "db", "", "results database path (required)")
	cmd.Flags().StringVar(&opts.Interface, "interface", "", "filter by interface name")
	cmd.Flags().IntVar(&opts.Limit, "limit", 50, "maximum rows to show (0 = all)")
	_ = cmd.MarkFlagRequired("db")
	return cmd
}

func runReport(rootOpts *RootOptions, opts *ReportOptions, cmd *cobra.Command) error {
	formatter := newFormatter(rootOpts, cmd)

	store, err := results.Open(opts.DBPath)
	if err != nil {
		return &ExitError{Code: ExitCommandError, Message: "opening results database", Err: err}
	}
	defer store.Close()

	runs, err := store.List(context.Background(), opts.Interface, opts.Limit)
	if err != nil {
		return &ExitError{Code: ExitCommandError, Message: "listing runs", Err: err}
	}

	if rootOpts.Format == "json" {
		type row struct {
			ID        string          `json:"id"`
			Interface string          `json:"interface"`
			Version   int             `json:"version"`
			Role      string          `json:"role"`
			Test      string          `json:"test"`
			Outcome   results.Outcome `json:"outcome"`
			Message   string          `json:"message,omitempty"`
			CreatedAt string          `json:"created_at"`
		}
		out := make([]row, 0, len(runs))
		for _, r := range runs {
			out = append(out, row{
				ID: r.ID, Interface: r.Interface, Version: r.Version,
				Role: string(r.Role), Test: r.TestName, Outcome: r.Outcome,
				Message: r.Message, CreatedAt: r.CreatedAt,
			})
		}
		return formatter.Success(out)
	}

	if len(runs) == 0 {
		fmt.Fprintln(formatter.Writer, "no recorded runs")
		return nil
	}

	tw := tabwriter.NewWriter(formatter.Writer, 2, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "CREATED\tINTERFACE\tROLE\tTEST\tOUTCOME\tMESSAGE")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s/v%d\t%s\t%s\t%s\t%s\n",
			r.CreatedAt, r.Interface, r.Version, r.Role, r.TestName, r.Outcome, firstLine(r.Message))
	}
	return tw.Flush()
}

// firstLine truncates multi-line messages for the table view.
func firstLine(s string) string {
	for i, c := range s {
		if c == '\n' {
			return s[:i] + " ..."
		}
	}
	return s
}
