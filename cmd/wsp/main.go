package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var version = "dev" // replaced at build time

func main() {
	var envFile string

	app := &cobra.Command{
		Use:           "wsp",
		Short:         "OpenWeatherMap node server for Polyglot-style hosts",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			err := godotenv.Load(envFile)
			if err != nil && cmd.Flags().Changed("env-file") {
				return fmt.Errorf("load %s: %w", envFile, err)
			}
			return nil
		},
	}
	app.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before reading the environment")

	app.AddCommand(serveEntry())
	app.AddCommand(pollEntry())
	app.AddCommand(mapEntry())
	app.AddCommand(describeEntry())
	app.AddCommand(driversEntry())

	if err := app.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
