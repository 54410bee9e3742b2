package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"graphload/pkg/auth"
	"graphload/pkg/config"
	"graphload/pkg/load"
	"graphload/pkg/logger"
	"graphload/pkg/summary"
	"graphload/pkg/ui"
	"graphload/pkg/ui/tui"
)

var (
	// Load command flags, shared with the root command so that
	// "graphload mapping.yaml --dry-run" works without the subcommand.
	mappingFile          string
	graphName            string
	graphHost            string
	graphPort            int
	graphUsername        string
	graphToken           string
	accountName          string
	workDir              string
	incremental          bool
	retryFailures        bool
	concurrency          int
	batchSize            int
	dryRun               bool
	maxParseErrors       int
	maxInsertErrors      int
	requestsPerMinute    int
	maxAttempts          int
	notificationsEnabled bool
	useTUI               bool
)

// loadCmd represents the load command
var loadCmd = &cobra.Command{
	Use:   "load [mapping.yaml]",
	Short: "Load vertices and edges into the graph server",
	Long: `Load vertices and edges described by a mapping descriptor into the
graph server. Vertices load before edges. Progress is checkpointed in the
job's working directory, so an interrupted job resumes where it stopped
when rerun with --incremental.

Records the server rejects are appended to per-source failure files;
--retry-failures replays them on a later incremental run.

Credentials come from --username/--token, GRAPHLOAD_USERNAME/GRAPHLOAD_TOKEN,
the configuration file, or a stored account ('graphload auth login').`,
	Example: `  # Load with default settings
  graphload load --mapping airports.yaml

  # The mapping can be positional, and load is the default command
  graphload airports.yaml

  # Resume an interrupted job and replay previous failures
  graphload load airports.yaml --incremental --retry-failures

  # Parse and batch without writing to the server
  graphload load airports.yaml --dry-run

  # Watch progress in the full-screen UI
  graphload load airports.yaml --tui`,
	Args: cobra.MaximumNArgs(1),
	Run:  runLoad,
}

func init() {
	rootCmd.AddCommand(loadCmd)
	addLoadFlags(loadCmd)

	// Same flags on the root command for the default-command form.
	addLoadFlags(rootCmd)

	rootCmd.Args = cobra.ArbitraryArgs
	rootCmd.Run = func(cmd *cobra.Command, args []string) {
		if len(args) > 0 && !isKnownCommand(args[0]) {
			runLoad(cmd, args)
			return
		}
		_ = cmd.Help()
	}
}

// addLoadFlags registers the load flag set on a command. The flag variables
// are shared: defaults shown here mirror config.DefaultConfig, and only flags
// the user actually set are merged over the configuration.
func addLoadFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVarP(&mappingFile, "mapping", "m", "", "mapping descriptor file (YAML)")
	f.StringVarP(&graphName, "graph", "g", "", "target graph name (default: the mapping's graph)")
	f.StringVar(&graphHost, "host", "localhost", "graph server host")
	f.IntVar(&graphPort, "port", 8080, "graph server port")
	f.StringVarP(&graphUsername, "username", "u", "", "graph server username (basic auth)")
	f.StringVar(&graphToken, "token", "", "graph server API token")
	f.StringVarP(&accountName, "account", "a", "", "use a specific stored account")
	f.StringVar(&workDir, "work-dir", "", "directory for checkpoints and failure files (default: next to the mapping)")
	f.BoolVarP(&incremental, "incremental", "i", false, "resume from the latest checkpoint")
	f.BoolVar(&retryFailures, "retry-failures", false, "replay the previous run's failure files (requires --incremental)")
	f.IntVar(&concurrency, "concurrency", 4, "concurrent batch submitters")
	f.IntVar(&batchSize, "batch-size", 500, "records per submitted batch")
	f.BoolVar(&dryRun, "dry-run", false, "parse and batch records without submitting them")
	f.IntVar(&maxParseErrors, "max-parse-errors", 32, "parse failures tolerated per source before the job aborts")
	f.IntVar(&maxInsertErrors, "max-insert-errors", 500, "insert failures tolerated per source before the job aborts")
	f.IntVar(&requestsPerMinute, "requests-per-minute", 600, "server write budget")
	f.IntVar(&maxAttempts, "max-attempts", 3, "retry attempts for failed batch submissions")
	f.BoolVar(&notificationsEnabled, "notifications", true, "notify on completion and on error")
	f.BoolVar(&useTUI, "tui", false, "full-screen terminal UI with live progress")
}

// buildFlagOverrides collects only the flags the user actually set, so that
// configuration file and environment values survive untouched defaults.
func buildFlagOverrides(cmd *cobra.Command) map[string]interface{} {
	flags := make(map[string]interface{})
	changed := cmd.Flags().Changed

	if mappingFile != "" {
		flags["mapping"] = mappingFile
	}
	if changed("graph") {
		flags["graph"] = graphName
	}
	if changed("host") {
		flags["host"] = graphHost
	}
	if changed("port") {
		flags["port"] = graphPort
	}
	if changed("username") {
		flags["username"] = graphUsername
	}
	if changed("token") {
		flags["token"] = graphToken
	}
	if changed("work-dir") {
		flags["work-dir"] = workDir
	}
	if changed("incremental") {
		flags["incremental"] = incremental
	}
	if changed("retry-failures") {
		flags["retry-failures"] = retryFailures
	}
	if changed("concurrency") {
		flags["concurrency"] = concurrency
	}
	if changed("batch-size") {
		flags["batch-size"] = batchSize
	}
	if changed("dry-run") {
		flags["dry-run"] = dryRun
	}
	if changed("max-parse-errors") {
		flags["max-parse-errors"] = maxParseErrors
	}
	if changed("max-insert-errors") {
		flags["max-insert-errors"] = maxInsertErrors
	}
	if changed("requests-per-minute") {
		flags["requests-per-minute"] = requestsPerMinute
	}
	if changed("max-attempts") {
		flags["max-attempts"] = maxAttempts
	}
	if changed("notifications") {
		flags["notifications-enabled"] = notificationsEnabled
	}
	if rootCmd.PersistentFlags().Changed("log-level") {
		flags["log-level"] = logLevel
	}

	return flags
}

func runLoad(cmd *cobra.Command, args []string) {
	if len(args) > 0 {
		mappingFile = strings.TrimSpace(args[0])
	}

	cfg, err := config.Load(configFile, buildFlagOverrides(cmd))
	if err != nil {
		ui.PrintError("Invalid configuration", err.Error())
		fmt.Fprintln(os.Stderr)
		_ = cmd.Usage()
		os.Exit(1)
	}

	if err := logger.Initialize(&cfg.Logging); err != nil {
		ui.PrintError("Failed to initialize logging", err.Error())
		os.Exit(1)
	}
	log := logger.GetLogger()
	log.WithField("version", version).Info("graphload starting")

	resolveCredentials(cmd, cfg, log)

	loader, err := load.New(cfg)
	if err != nil {
		ui.PrintError("Failed to prepare load job", err.Error())
		os.Exit(1)
	}

	if !useTUI {
		ui.PrintInfo("Mapping", cfg.Load.Mapping)
		ui.PrintInfo("Graph", fmt.Sprintf("%s on %s:%d", cfg.Graph.Name, cfg.Graph.Host, cfg.Graph.Port))
	}

	// SIGINT and SIGTERM request a cooperative stop: in-flight batches
	// finish and the checkpoint is persisted before the process exits.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var (
		sum    *summary.Summary
		runErr error
	)
	if useTUI {
		sum, runErr = runWithTUI(ctx, stop, loader, cfg)
	} else {
		sum, runErr = loader.Run(ctx)
	}

	if sum != nil && !ui.IsQuietMode() {
		fmt.Println(sum.Render())
	}

	if runErr != nil {
		log.WithError(runErr).Error("Load failed")
		ui.PrintError("LOAD FAILED", runErr.Error())
		os.Exit(1)
	}

	if ctx.Err() != nil {
		ui.PrintWarning("Load interrupted", "progress saved; rerun with --incremental to resume")
		os.Exit(130)
	}

	log.InfoWithFields("Load completed", sum.Fields())
	ui.PrintSuccess("Load completed")
}

// runWithTUI runs the loader behind the full-screen UI. Closing the UI
// requests a cooperative stop of the job.
func runWithTUI(ctx context.Context, stop context.CancelFunc, loader *load.Loader, cfg *config.Config) (*summary.Summary, error) {
	terminal := tui.NewTUI(cfg.Load.Concurrency)
	loader.SetTUI(terminal)

	type result struct {
		sum *summary.Summary
		err error
	}

	loaderDone := make(chan result, 1)
	go func() {
		sum, err := loader.Run(ctx)
		loaderDone <- result{sum, err}
	}()

	tuiDone := make(chan error, 1)
	go func() {
		tuiDone <- terminal.Start()
	}()

	select {
	case res := <-loaderDone:
		terminal.Stop()
		<-tuiDone
		return res.sum, res.err
	case err := <-tuiDone:
		if err != nil {
			logger.GetLogger().WithError(err).Error("Terminal UI failed")
		}
		stop()
		res := <-loaderDone
		return res.sum, res.err
	}
}

// resolveCredentials fills in graph server credentials from the stored
// account chain when neither flags, environment, nor the configuration file
// provided any. Explicit credentials always win.
func resolveCredentials(cmd *cobra.Command, cfg *config.Config, log logger.Logger) {
	if cfg.Graph.Username != "" || cfg.Graph.Token != "" {
		return
	}

	manager, err := auth.NewManager()
	if err != nil {
		log.WithError(err).Debug("Credential manager unavailable")
		return
	}

	var account *auth.Account
	if accountName != "" {
		account, err = manager.Retrieve(accountName)
		if err != nil {
			ui.PrintError("Account not found", accountName)
			ui.PrintInfo("Stored accounts", "run 'graphload auth list' to see them")
			os.Exit(1)
		}
	} else {
		account, err = manager.RetrieveDefault()
		if err != nil {
			log.Debug("No stored credentials, connecting without authentication")
			return
		}
	}

	cfg.Graph.Username = account.Username
	cfg.Graph.Token = account.Token
	if account.Host != "" && !cmd.Flags().Changed("host") {
		cfg.Graph.Host = account.Host
	}

	log.WithField("account", account.Username).Info("Using stored credentials")
	ui.PrintInfo("Using account", account.Username)
}

func isKnownCommand(arg string) bool {
	for _, cmd := range rootCmd.Commands() {
		if cmd.Name() == arg || cmd.HasAlias(arg) {
			return true
		}
	}
	return false
}
