/*
	Copyright 2023 Markus Papenbrock
*/

package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	layoutCmd "github.com/mpapenbr/trainrace/pkg/cmd/layout"
	runCmd "github.com/mpapenbr/trainrace/pkg/cmd/run"
	simulateCmd "github.com/mpapenbr/trainrace/pkg/cmd/simulate"
	"github.com/mpapenbr/trainrace/pkg/config"
	"github.com/mpapenbr/trainrace/pkg/model"
	"github.com/mpapenbr/trainrace/version"
)

const envPrefix = "TRAINRACE"

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:     "trainrace",
	Short:   "Two trains racing along a track with stations and crossings",
	Long:    ``,
	Version: version.FullVersion,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

//nolint:funlen // flag definitions
func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "",
		"config file (default is $HOME/.trainrace.yml)")

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&config.LogLevel, "log-level", "info",
		"controls the log level (debug, info, warn, error, fatal)")
	pf.StringVar(&config.LogFormat, "log-format", "text",
		"controls the log output format (text, json)")
	pf.StringVar(&config.LogFilter, "log-filter", "",
		"zapfilter rules applied to the log output, e.g. \"debug:race.*\"")

	pf.Float64Var(&config.MaxSpeed, "max-speed", model.DefaultMaxSpeed,
		"top speed of both trains")
	pf.Float64Var(&config.Acceleration, "acceleration", model.DefaultAcceleration,
		"acceleration and braking rate")
	pf.StringVar(&config.AccelerationPreset, "acceleration-preset", "",
		"named acceleration (slow, normal, fast, dangerous), overrides --acceleration")
	pf.Float64Var(&config.StopDuration, "stop-duration", model.DefaultDwellDuration,
		"dwell time at stations in seconds")
	pf.Float64Var(&config.ZoneSpeedFraction, "zone-speed-fraction",
		model.DefaultZoneSpeedFraction,
		"speed limit at crossings as fraction of the max speed")
	pf.Float64Var(&config.LookaheadMargin, "lookahead-margin", model.DefaultLookaheadMargin,
		"extra distance used when slowing down for crossings")
	pf.Float64Var(&config.TrackLength, "track-length", 1000,
		"length of both tracks")

	pf.Float64SliceVar(&config.RedStations, "red-stations", nil,
		"station positions of the red train")
	pf.Float64SliceVar(&config.RedCrossings, "red-crossings", nil,
		"crossing positions of the red train")
	pf.Float64SliceVar(&config.BlueStations, "blue-stations", nil,
		"station positions of the blue train")
	pf.Float64SliceVar(&config.BlueCrossings, "blue-crossings", nil,
		"crossing positions of the blue train")
	pf.StringVar(&config.Layout, "layout", "",
		"name of a stored layout to use instead of the position flags")
	pf.StringVar(&config.LayoutDB, "layout-db", "trainrace.db",
		"path of the layout database")

	pf.BoolVar(&config.EnableTelemetry, "enable-telemetry", false,
		"enables telemetry")
	pf.StringVar(&config.TelemetryEndpoint, "telemetry-endpoint", "localhost:4317",
		"Endpoint that receives open telemetry data")
	pf.BoolVar(&config.TelemetryStdout, "telemetry-stdout", false,
		"print metrics to stdout instead of sending them to the endpoint")
	pf.StringVar(&config.NatsURL, "nats-url", "",
		"NATS server receiving race frames (empty disables publishing)")
	pf.StringVar(&config.NatsSubjectPrefix, "nats-subject-prefix", "trainrace",
		"prefix of the published NATS subjects")
	pf.DurationVar(&config.NatsWait, "nats-wait", 0,
		"wait up to this duration for the NATS server to become reachable")

	// add commands here
	rootCmd.AddCommand(runCmd.NewRunCmd())
	rootCmd.AddCommand(simulateCmd.NewSimulateCmd())
	rootCmd.AddCommand(layoutCmd.NewLayoutCmd())
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	if cfgFile != "" {
		// Use config file from the flag.
		viper.SetConfigFile(cfgFile)
	} else {
		// Find home directory.
		home, err := os.UserHomeDir()
		cobra.CheckErr(err)

		// Search config in home directory with name ".trainrace" (without extension).
		viper.AddConfigPath(home)
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".trainrace")
	}

	viper.SetEnvPrefix(envPrefix)
	viper.AutomaticEnv() // read in environment variables that match

	// If a config file is found, read it in.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}

	bindCommands(rootCmd, viper.GetViper())
}

func bindCommands(cmd *cobra.Command, v *viper.Viper) {
	bindFlags(cmd, v)
	for _, sub := range cmd.Commands() {
		bindCommands(sub, v)
	}
}

// Bind each cobra flag to its associated viper configuration
// (config file and environment variable)
func bindFlags(cmd *cobra.Command, v *viper.Viper) {
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		// Environment variables can't have dashes in them, so bind them to their
		// equivalent keys with underscores, e.g. --max-speed to TRAINRACE_MAX_SPEED
		if strings.Contains(f.Name, "-") {
			envVarSuffix := strings.ToUpper(strings.ReplaceAll(f.Name, "-", "_"))
			if err := v.BindEnv(f.Name,
				fmt.Sprintf("%s_%s", envPrefix, envVarSuffix)); err != nil {
				fmt.Fprintf(os.Stderr, "Could not bind env var %s: %v", f.Name, err)
			}
		}
		// Apply the viper config value to the flag when the flag is not set and viper
		// has a value
		if !f.Changed && v.IsSet(f.Name) {
			if err := applyValue(cmd, f, v.Get(f.Name)); err != nil {
				fmt.Fprintf(os.Stderr, "Could set flag value for %s: %v", f.Name, err)
			}
		}
	})
}

// applyValue sets a flag from a config value. Lists from yaml files are
// joined so that slice flags accept them.
func applyValue(cmd *cobra.Command, f *pflag.Flag, val any) error {
	if list, ok := val.([]any); ok {
		parts := make([]string, 0, len(list))
		for _, item := range list {
			parts = append(parts, fmt.Sprintf("%v", item))
		}
		return cmd.Flags().Set(f.Name, strings.Join(parts, ","))
	}
	return cmd.Flags().Set(f.Name, fmt.Sprintf("%v", val))
}
