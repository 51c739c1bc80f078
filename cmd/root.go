package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile   string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "weatherd",
	Short: "Weather query service with geocoding, forecasts and export",
	Long: `weatherd resolves free-text or GPS location input via OpenStreetMap
Nominatim, fetches current conditions and a 5-day forecast from OpenWeather,
enriches each query with nearby places and video links, stores the results in
SQLite or PostgreSQL, and serves a REST API plus a small browser front end.
Stored queries can be edited, refreshed and exported as JSON, CSV or PDF.`,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (text or json, overrides config)")
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
