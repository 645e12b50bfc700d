package sites

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/fleetops/geocheckin/internal/app"
	"github.com/fleetops/geocheckin/internal/conf"
)

// Command creates the sites command for inspecting stored geofences
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sites",
		Short: "Inspect site geofences",
	}
	cmd.AddCommand(listCommand(settings), showCommand(settings))
	return cmd
}

func listCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all sites, active or not",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(settings, "", app.NewCommandLogger(settings, cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			list, err := a.Sites.ListSites(cmd.Context())
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tCENTER\tRADIUS\tACTIVE")
			for _, s := range list {
				radius := s.RadiusMeters
				if radius <= 0 {
					radius = settings.Geofence.DefaultRadius
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%.0fm\t%t\n", s.ID, s.Name, s.Center, radius, s.Active)
			}
			return w.Flush()
		},
	}
}

func showCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "show <siteId>",
		Short: "Print one site as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := app.New(settings, "", app.NewCommandLogger(settings, cmd.ErrOrStderr()))
			if err != nil {
				return err
			}
			defer func() { _ = a.Close() }()

			site, err := a.Sites.GetSite(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), site)
		},
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
