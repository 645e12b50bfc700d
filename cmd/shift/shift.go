package shift

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/fleetops/geocheckin/internal/app"
	"github.com/fleetops/geocheckin/internal/conf"
)

// Command creates the shift command for reading sessions and audit records
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "shift",
		Short: "Inspect shifts, their work sessions and audit records",
	}
	cmd.AddCommand(
		sessionCommand(settings),
		recordsCommand(settings),
		listCommand(settings),
	)
	return cmd
}

func sessionCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "session <shiftId>",
		Short: "Print the derived work session as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(settings, "", app.NewCommandLogger(settings, cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			ws, err := a.Service.GetSession(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), ws)
		},
	}
}

func recordsCommand(settings *conf.Settings) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "records <shiftId>",
		Short: "List a shift's check-in records in order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(settings, "", app.NewCommandLogger(settings, cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			records, err := a.Service.ListRecords(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), records)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTYPE\tTIME\tSITE\tDISTANCE\tINSIDE\tACCURACY\tPAIRED")
			for _, r := range records {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%.1fm\t%t\t%s\t%s\n",
					r.ID, r.Type, r.CreatedAt.Format(time.RFC3339), r.SiteID,
					r.Verdict.DistanceMeters, r.Verdict.WithinGeofence, r.Verdict.AccuracyClass, r.PairedCheckInID)
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print records as JSON")
	return cmd
}

func listCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "list <subjectId>",
		Short: "List a subject's scheduled shifts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(settings, "", app.NewCommandLogger(settings, cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			shifts, err := a.Shifts.ListShiftsBySubject(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSTART\tEND")
			for _, s := range shifts {
				fmt.Fprintf(w, "%s\t%s\t%s\n", s.ID,
					s.ScheduledStart.Format(time.RFC3339), s.ScheduledEnd.Format(time.RFC3339))
			}
			return w.Flush()
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
