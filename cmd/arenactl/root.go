package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/joshuapare/slabkit/internal/logger"
	"github.com/joshuapare/slabkit/kernel"
)

var (
	// Global flags
	verbose    bool
	quiet      bool
	jsonOut    bool
	configPath string
	logDir     string
	logLevel   string
)

// stdout is where commands write results. Tests swap it.
var stdout io.Writer = os.Stdout

var rootCmd = &cobra.Command{
	Use:   "arenactl",
	Short: "Boot and exercise a hosted kernel object arena",
	Long: `arenactl boots the kernel's object registries on reserved host memory,
reports their occupancy, stress-tests them from many goroutines, and works with
module and port type IDs.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initLogging()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().
		BoolVarP(&quiet, "quiet", "q", false, "Suppress all output except errors")
	rootCmd.PersistentFlags().BoolVar(&jsonOut, "json", false, "Output in JSON format")
	rootCmd.PersistentFlags().
		StringVarP(&configPath, "config", "c", "", "Kernel config file (YAML)")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "", "Write logs to this directory")
	rootCmd.PersistentFlags().
		StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error); overrides the config")
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		printError("%v\n", err)
		os.Exit(1)
	}
}

func initLogging() error {
	if logDir == "" && !verbose {
		return nil
	}
	level := logLevel
	if level == "" && verbose {
		level = "debug"
	}
	opts := logger.Options{Enabled: true, Level: logger.ParseLevel(level)}
	if logDir != "" {
		opts.LogDir = logDir
	} else {
		opts.Writer = os.Stderr
	}
	return logger.Init(opts)
}

// loadConfig returns the config named by --config, or the defaults.
func loadConfig() (kernel.Config, error) {
	cfg := kernel.DefaultConfig()
	if configPath != "" {
		var err error
		if cfg, err = kernel.LoadConfig(configPath); err != nil {
			return kernel.Config{}, err
		}
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	return cfg, nil
}

// Helper functions for output

// printInfo prints an info message if not in quiet mode
func printInfo(format string, args ...any) {
	if !quiet {
		fmt.Fprintf(stdout, format, args...)
	}
}

// printError prints an error message
func printError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format, args...)
}

// printVerbose prints a verbose message if verbose mode is enabled
func printVerbose(format string, args ...any) {
	if verbose && !quiet {
		fmt.Fprintf(stdout, format, args...)
	}
}

// printJSON outputs data as JSON
func printJSON(v any) error {
	encoder := json.NewEncoder(stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
