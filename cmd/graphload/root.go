package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"graphload/pkg/ui"
)

var (
	// Version information, overridden at build time
	version   = "1.0.0"
	gitCommit = "unknown"
	buildDate = "unknown"

	// Global flags
	configFile string
	logLevel   string
	quiet      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "graphload",
	Short: "Bulk-load vertices and edges into a property graph server",
	Long: `graphload bulk-loads vertices and edges from CSV and JSON-lines files
into a property graph server over its REST API.

Features:
  - Declarative YAML mapping from input files to vertices and edges
  - Byte-accurate checkpoints: interrupted jobs resume where they stopped
  - Per-source failure files with replay on a later run
  - Concurrent batch submission with rate limiting and retry
  - Secure credential storage using the system keychain
  - Live progress display, plain or full-screen

Load a mapping directly:
  graphload mapping.yaml

or spell out the subcommand:
  graphload load --mapping mapping.yaml --incremental`,
	Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, gitCommit, buildDate),
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if quiet || logLevel == "error" {
			ui.SetQuietMode(true)
		}

		// The logo gets in the way of machine-read output
		if cmd.Name() != "version" && cmd.Name() != "help" && cmd.Name() != "completion" {
			ui.PrintLogo()
		}
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is .graphload.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress all output except errors")

	rootCmd.SetVersionTemplate(`graphload {{.Version}}
Go Version: ` + runtime.Version() + `
OS/Arch: ` + runtime.GOOS + `/` + runtime.GOARCH + `
`)

	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
