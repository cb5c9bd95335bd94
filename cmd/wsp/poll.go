package main

import (
	"fmt"
	"os"

	"github.com/jonboulle/clockwork"
	"github.com/spf13/cobra"

	"github.com/bpaauwe/WeatherServicePrototype/internal/adapter/console"
	"github.com/bpaauwe/WeatherServicePrototype/internal/adapter/openweather"
	"github.com/bpaauwe/WeatherServicePrototype/internal/config"
	"github.com/bpaauwe/WeatherServicePrototype/internal/domain"
	"github.com/bpaauwe/WeatherServicePrototype/internal/node"
	"github.com/bpaauwe/WeatherServicePrototype/internal/observability"
	"github.com/bpaauwe/WeatherServicePrototype/internal/store"
)

func pollEntry() *cobra.Command {
	var location, units string

	cmd := &cobra.Command{
		Use:   "poll",
		Short: "Run one fetch and map cycle and print the driver values",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
			metrics := observability.NewMetricsForTesting()

			client := openweather.NewClient(cfg.APIURL, cfg.HTTPTimeout, cfg.FetchMaxRetries, metrics, logger)
			n := node.New(node.Config{
				Address: cfg.NodeAddress,
				Name:    cfg.NodeName,
				Query: domain.Query{
					Location: cfg.Location,
					Units:    cfg.Units,
					APIKey:   cfg.APIKey,
				},
			}, client, console.NewSink(os.Stdout), store.NewMemoryStore(), clockwork.NewRealClock(), logger, metrics)

			params := map[string]string{}
			if cmd.Flags().Changed("location") {
				params["location"] = location
			}
			if cmd.Flags().Changed("units") {
				params["units"] = units
			}
			if _, err := n.ProcessConfig(params); err != nil {
				return err
			}

			ctx, cancel := contextWithTimeout(cmd, cfg.PollTimeout)
			defer cancel()
			return n.Poll(ctx)
		},
	}
	cmd.Flags().StringVar(&location, "location", "", "override WEATHER_LOCATION")
	cmd.Flags().StringVar(&units, "units", "", "override WEATHER_UNITS")
	return cmd
}
