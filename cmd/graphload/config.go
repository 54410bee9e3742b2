package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"graphload/pkg/config"
	"graphload/pkg/ui"
)

// configCmd represents the config command
var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration files",
	Long: `Manage graphload configuration files.

Configuration can be loaded from:
  - Command line flags (highest priority)
  - Environment variables (GRAPHLOAD_*)
  - Configuration file
  - Default values (lowest priority)`,
}

// initCmd represents the config init command
var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create an example configuration file",
	Long: `Create an example configuration file with all available options.

The file will be created in the current directory as '.graphload.yaml'
unless a different path is specified with the --config flag.`,
	Run: runConfigInit,
}

// showCmd represents the config show command
var showCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	Long: `Show the current configuration including values from all sources:
  - Environment variables
  - Configuration file
  - Default values

Tokens are masked for security.`,
	Run: runConfigShow,
}

// validateCmd represents the config validate command
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	Long: `Validate a configuration file for syntax errors and invalid values.

This command checks:
  - YAML syntax
  - Value types and ranges
  - Path accessibility`,
	Run: runConfigValidate,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(initCmd)
	configCmd.AddCommand(showCmd)
	configCmd.AddCommand(validateCmd)
}

const exampleConfig = `# graphload configuration file
#
# Every option here can also come from environment variables prefixed
# with GRAPHLOAD_, for example GRAPHLOAD_HOST or GRAPHLOAD_TOKEN.
# Durations are Go duration strings: 500ms, 30s, 1m.

# Target graph server
graph:
  # Graph name; defaults to the graph named in the mapping descriptor
  name: ""

  # Server address
  host: "localhost"
  port: 8080

  # Credentials. Prefer 'graphload auth login' over putting a token here.
  # With a username set, basic auth is used; with only a token, bearer auth.
  username: ""
  token: ""

  # HTTP request timeout
  timeout: 60s

# Load job settings
load:
  # Mapping descriptor; usually passed on the command line instead
  mapping: ""

  # Directory for checkpoints and failure files
  # Default: a directory named after the mapping file, next to it
  work_dir: ""

  # Resume from the latest checkpoint instead of starting fresh
  incremental: false

  # Replay the previous run's failure files (requires incremental)
  retry_failures: false

  # Concurrent batch submitters
  # Range: 1-32
  concurrency: 4

  # Records per submitted batch
  batch_size: 500

  # Failures tolerated per source before the job aborts
  max_parse_errors: 32
  max_insert_errors: 500

  # Parse and batch records without submitting them
  dry_run: false

# Rate limiting for server writes
rate_limit:
  requests_per_minute: 600
  burst_size: 20

# Retry behavior for failed batch submissions
retry:
  max_attempts: 3
  initial_delay: 1s
  max_delay: 30s
  multiplier: 2.0
  jitter: true

# Notifications on completion and on error
notifications:
  enabled: true
  on_complete: true
  on_error: true

  # terminal, desktop, or none
  notification_type: "terminal"

# Logging
logging:
  # Log level: debug, info, warn, error
  level: "info"

  # Log file path; empty logs to stderr only
  file: ""
`

func runConfigInit(cmd *cobra.Command, args []string) {
	configPath := configFile
	if configPath == "" {
		configPath = ".graphload.yaml"
	}

	if _, err := os.Stat(configPath); err == nil {
		ui.PrintError("Configuration file already exists", configPath)
		fmt.Println("\nTo overwrite, first remove the existing file:")
		fmt.Printf("  rm %s\n", configPath)
		os.Exit(1)
	}

	if err := os.WriteFile(configPath, []byte(exampleConfig), 0644); err != nil {
		ui.PrintError("Failed to create configuration file", err.Error())
		os.Exit(1)
	}

	ui.PrintSuccess("Configuration file created: " + configPath)
	fmt.Println("\nNext steps:")
	fmt.Println("1. Edit the file, or store credentials with 'graphload auth login'")
	fmt.Println("2. Run 'graphload config validate' to check the configuration")
	fmt.Println("3. Start loading with 'graphload load --mapping <mapping.yaml>'")
}

func runConfigShow(cmd *cobra.Command, args []string) {
	cfg := config.DefaultConfig()
	if err := cfg.LoadFromFile(configFile); err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}
	if err := cfg.LoadFromEnv(); err != nil {
		ui.PrintError("Failed to load environment", err.Error())
		os.Exit(1)
	}

	// Mask the token for display
	displayCfg := *cfg
	if displayCfg.Graph.Token != "" {
		if len(displayCfg.Graph.Token) > 8 {
			displayCfg.Graph.Token = displayCfg.Graph.Token[:4] + "..." + displayCfg.Graph.Token[len(displayCfg.Graph.Token)-4:]
		} else {
			displayCfg.Graph.Token = "***"
		}
	}

	data, err := yaml.Marshal(&displayCfg)
	if err != nil {
		ui.PrintError("Failed to format configuration", err.Error())
		os.Exit(1)
	}

	ui.PrintHighlight("Current Configuration")
	fmt.Println()
	fmt.Print(string(data))

	fmt.Println("\nConfiguration sources (in order of priority):")
	fmt.Println("1. Command line flags")
	fmt.Println("2. Environment variables (GRAPHLOAD_*)")
	if configFile != "" {
		fmt.Printf("3. Configuration file: %s\n", configFile)
	} else {
		fmt.Println("3. Configuration file: (default locations)")
	}
	fmt.Println("4. Default values")
}

func runConfigValidate(cmd *cobra.Command, args []string) {
	if configFile == "" {
		// Look in the standard locations
		possiblePaths := []string{
			".graphload.yaml",
			".graphload.yml",
			filepath.Join(os.Getenv("HOME"), ".config", "graphload", "config.yaml"),
			filepath.Join(os.Getenv("HOME"), ".config", "graphload", "config.yml"),
			filepath.Join(os.Getenv("HOME"), ".graphload.yaml"),
			filepath.Join(os.Getenv("HOME"), ".graphload.yml"),
		}

		for _, path := range possiblePaths {
			if _, err := os.Stat(path); err == nil {
				configFile = path
				break
			}
		}

		if configFile == "" {
			ui.PrintError("No configuration file found", "Specify a file with --config flag")
			os.Exit(1)
		}
	}

	ui.PrintInfo("Validating configuration", configFile)

	cfg := config.DefaultConfig()
	if err := cfg.LoadFromFile(configFile); err != nil {
		ui.PrintError("Configuration validation failed", err.Error())
		os.Exit(1)
	}
	if err := cfg.LoadFromEnv(); err != nil {
		ui.PrintError("Failed to load environment", err.Error())
		os.Exit(1)
	}

	var problems []string
	warnings := []string{}

	// A file without a mapping is fine: the mapping usually comes from the
	// command line at run time.
	if err := cfg.Validate(); err != nil {
		var merr *multierror.Error
		items := []error{err}
		if errors.As(err, &merr) {
			items = merr.Errors
		}
		for _, item := range items {
			if cfg.Load.Mapping == "" && strings.Contains(item.Error(), "mapping file") {
				continue
			}
			problems = append(problems, item.Error())
		}
	}
	if cfg.Load.Mapping == "" {
		warnings = append(warnings, "no mapping configured; pass one with --mapping at run time")
	}

	if cfg.Graph.Username == "" && cfg.Graph.Token == "" {
		warnings = append(warnings, "no credentials configured; the loader will use a stored account or connect unauthenticated")
	}

	// Check paths are usable
	if cfg.Load.WorkDir != "" {
		if err := os.MkdirAll(cfg.Load.WorkDir, 0755); err != nil {
			problems = append(problems, fmt.Sprintf("cannot create work directory: %v", err))
		}
	}
	if cfg.Logging.File != "" {
		dir := filepath.Dir(cfg.Logging.File)
		if err := os.MkdirAll(dir, 0755); err != nil {
			problems = append(problems, fmt.Sprintf("cannot create log directory: %v", err))
		}
	}

	if len(problems) > 0 {
		ui.PrintError("Configuration has errors:")
		for _, p := range problems {
			fmt.Printf("  - %s\n", p)
		}
		os.Exit(1)
	}

	if len(warnings) > 0 {
		ui.PrintWarning("Configuration warnings:")
		for _, warn := range warnings {
			fmt.Printf("  - %s\n", warn)
		}
		fmt.Println()
	}

	ui.PrintSuccess("Configuration is valid")

	fmt.Println("\nConfiguration summary:")
	fmt.Printf("  Graph server: %s:%d\n", cfg.Graph.Host, cfg.Graph.Port)
	if cfg.Graph.Name != "" {
		fmt.Printf("  Graph: %s\n", cfg.Graph.Name)
	}
	fmt.Printf("  Concurrency: %d\n", cfg.Load.Concurrency)
	fmt.Printf("  Batch size: %d\n", cfg.Load.BatchSize)
	fmt.Printf("  Rate limit: %d requests/minute\n", cfg.RateLimit.RequestsPerMinute)
	fmt.Printf("  Max retries: %d\n", cfg.Retry.MaxAttempts)
	fmt.Printf("  Log level: %s\n", cfg.Logging.Level)
}
