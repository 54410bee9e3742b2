// Package logger provides a structured logging interface for the graph loader.
//
// It wraps the zerolog library to provide a clean, easy-to-use API with support for:
// - Multiple log levels (Debug, Info, Warn, Error, Fatal)
// - Structured logging with fields
// - Pretty console output with colors
// - Optional file output alongside the console stream
// - Context support for request tracing
// - Global logger instance for easy access
//
// Basic Usage:
//
//	import "graphload/pkg/logger"
//
//	// Initialize the global logger
//	cfg := &config.LoggingConfig{
//	    Level: "info",
//	    File: "/var/log/graphload.log",
//	}
//	err := logger.Initialize(cfg)
//
//	// Use the global logger
//	logger.Info("Load starting")
//	logger.WithField("source", "person").Info("Source registered")
//	logger.WithError(err).Error("Failed to insert batch")
//
// Advanced Usage:
//
//	// Create a logger instance with fields
//	log := logger.GetLogger().
//	    WithField("component", "submitter").
//	    WithField("kind", "vertex")
//
//	// Use structured logging
//	log.InfoWithFields("Batch inserted", map[string]interface{}{
//	    "source": "person",
//	    "size": 500,
//	    "duration": time.Second * 5,
//	})
//
// The logger supports the following configuration options:
// - Level: Log level (debug, info, warn, error, fatal)
// - File: Path to log file (empty for console only)
package logger
