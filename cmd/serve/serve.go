package serve

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/fleetops/geocheckin/internal/api"
	"github.com/fleetops/geocheckin/internal/app"
	"github.com/fleetops/geocheckin/internal/conf"
	"github.com/fleetops/geocheckin/internal/logger"
)

// Command creates the serve command, which runs the HTTP API until SIGINT or SIGTERM.
func Command(settings *conf.Settings, v *viper.Viper, version string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the check-in HTTP API",
		Long:  "Serve check-in, check-out and session endpoints under /api/v1, with Prometheus metrics on /metrics.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, settings, version)
		},
	}

	if err := setupFlags(cmd, v); err != nil {
		panic(err)
	}

	return cmd
}

func setupFlags(cmd *cobra.Command, v *viper.Viper) error {
	cmd.Flags().String("listen", "", "Listen address, e.g. :8080")
	cmd.Flags().Bool("server-debug", false, "Log every request at info")

	for key, flag := range map[string]string{
		"server.listen": "listen",
		"server.debug":  "server-debug",
	} {
		if err := v.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
			return fmt.Errorf("error binding flag %s: %w", flag, err)
		}
	}
	return nil
}

func run(cmd *cobra.Command, settings *conf.Settings, version string) error {
	central, err := app.NewServiceLogger(settings)
	if err != nil {
		return err
	}
	defer func() { _ = central.Close() }()
	log := central.Module("main")

	a, err := app.New(settings, version, central.Module("app"))
	if err != nil {
		log.Error("startup failed", logger.Error(err))
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn("shutdown incomplete", logger.Error(err))
		}
	}()

	// The broker being down is not fatal; paho keeps retrying after the
	// first successful connect and records are committed either way.
	if err := a.ConnectMQTT(cmd.Context()); err != nil {
		log.Warn("mqtt fan-out unavailable", logger.Error(err))
	}

	server, err := api.New(api.ConfigFromSettings(settings), a.Service,
		api.WithLogger(central.Module("api")),
		api.WithMetrics(a.Metrics),
		api.WithDatabase(a.DB),
		api.WithVersion(version))
	if err != nil {
		return err
	}

	log.Info("geocheckin starting",
		logger.String("version", version),
		logger.String("listen", settings.Server.Listen),
		logger.String("database", a.DB.Dialect()),
		logger.Bool("mqtt", a.MQTT != nil))

	return server.StartWithGracefulShutdown(cmd.Context())
}
