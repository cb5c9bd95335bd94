package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/bpaauwe/WeatherServicePrototype/internal/adapter/console"
	"github.com/bpaauwe/WeatherServicePrototype/internal/domain"
)

func contextWithTimeout(cmd *cobra.Command, d time.Duration) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, d)
}

func mapEntry() *cobra.Command {
	var address string

	cmd := &cobra.Command{
		Use:   "map <response.json>",
		Short: "Map a saved current-weather response to driver values",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			obs, err := domain.DecodeObservation(data)
			if err != nil {
				return err
			}
			values, err := domain.MapObservation(obs)
			if err != nil {
				return err
			}

			sink := console.NewSink(cmd.OutOrStdout())
			for _, v := range values {
				if err := sink.Publish(cmd.Context(), address, v); err != nil {
					return err
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&address, "address", "weather", "node address to label values with")
	return cmd
}

func describeEntry() *cobra.Command {
	return &cobra.Command{
		Use:   "describe <code>",
		Short: "Print the description of a weather condition code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			code, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("condition code must be an integer: %q", args[0])
			}
			desc, ok := domain.Describe(code)
			if !ok {
				return fmt.Errorf("unknown condition code %d", code)
			}
			fmt.Fprintln(cmd.OutOrStdout(), desc)
			return nil
		},
	}
}

func driversEntry() *cobra.Command {
	return &cobra.Command{
		Use:   "drivers",
		Short: "Print the driver schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "DRIVER\tUOM\tDESCRIPTION")
			for _, d := range domain.Schema() {
				fmt.Fprintf(w, "%s\t%d\t%s\n", d.Driver, d.UOM, d.Description)
			}
			return w.Flush()
		},
	}
}
