package ui

import "time"

// TUI is an interface for terminal user interfaces
type TUI interface {
	StartSource(id, kind, name string, size int64)
	UpdateSourceProgress(id string, consumed int64, rate float64)
	CompleteSource(id string)
	FailSource(id string, err error)
	UpdateRateLimit(used, max int, resetAt time.Time)
	LogInfo(format string, args ...interface{})
	LogSuccess(format string, args ...interface{})
	LogWarning(format string, args ...interface{})
	LogError(format string, args ...interface{})
	IsPaused() bool
}
