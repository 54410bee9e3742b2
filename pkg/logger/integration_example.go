package logger

// This file shows how to integrate the logger into the main application

/*
Example integration in the load command:

	// Load configuration
	cfg, err := config.Load(configFile, flags)
	if err != nil {
		ui.PrintError("Failed to load configuration", err.Error())
		os.Exit(1)
	}

	// Initialize the logger
	if err := logger.Initialize(&cfg.Logging); err != nil {
		ui.PrintError("Failed to initialize logger", err.Error())
		os.Exit(1)
	}

	// Now you can use the logger throughout the application
	logger.Info("graphload starting")
	logger.WithField("mapping", cfg.Load.Mapping).Info("Mapping descriptor loaded")

	// Log configuration (be careful not to log credentials)
	logger.WithFields(map[string]interface{}{
		"graph":       cfg.Graph.Name,
		"host":        cfg.Graph.Host,
		"concurrency": cfg.Load.Concurrency,
		"batch_size":  cfg.Load.BatchSize,
		"incremental": cfg.Load.Incremental,
	}).Debug("Configuration loaded")

Component loggers:

	// Each long-lived component derives its own logger once and reuses it
	log := logger.GetLogger().WithField("component", "checkpoint")
	log.Info("Discovering latest checkpoint")

Domain helpers:

	logger.LogBatch("vertex", "person", 500, true, nil)
	logger.LogLoadProgress("vertex", "person", consumed, total)
	logger.LogCheckpoint("persisted", path, nil)
	logger.LogComponentStop("submitter", "stop requested")

Testing:

	// Silence logging entirely in unit tests
	store := progress.NewStore(fs, logger.NewNopLogger())

	// Or capture messages to assert on them
	tl := logger.NewTestLogger()
	c := client.NewClient(cfg, tl)
	...
	if !tl.HasMessage("Connected to graph server") {
		t.Error("expected version probe log line")
	}
*/
