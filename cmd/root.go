package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fleetops/geocheckin/cmd/seed"
	"github.com/fleetops/geocheckin/cmd/serve"
	"github.com/fleetops/geocheckin/cmd/shift"
	"github.com/fleetops/geocheckin/cmd/sites"
	"github.com/fleetops/geocheckin/internal/buildinfo"
	"github.com/fleetops/geocheckin/internal/conf"
)

// RootCommand creates and returns the root command. Settings are loaded once
// flags are parsed and shared with every subcommand through settings.
func RootCommand(info *buildinfo.Info) *cobra.Command {
	settings := &conf.Settings{}
	v := conf.NewViper()
	var configFile string

	rootCmd := &cobra.Command{
		Use:           "geocheckin",
		Short:         "Geofenced shift check-in service",
		Version:       info.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to config file (default: search ./config.yaml, ~/.config/geocheckin, /etc/geocheckin)")
	rootCmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug output")
	if err := v.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug")); err != nil {
		panic(fmt.Sprintf("binding debug flag: %v", err))
	}

	rootCmd.AddCommand(
		serve.Command(settings, v, info.GetVersion()),
		seed.Command(settings),
		sites.Command(settings),
		shift.Command(settings),
	)

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return loadSettings(v, configFile, settings)
	}

	return rootCmd
}

// loadSettings reads configuration into the shared settings value
func loadSettings(v *viper.Viper, configFile string, settings *conf.Settings) error {
	loaded, err := conf.Load(v, configFile)
	if err != nil {
		return err
	}
	*settings = *loaded
	return nil
}
