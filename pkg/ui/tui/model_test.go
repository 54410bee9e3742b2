package tui

import (
	"errors"
	"testing"
	"time"
)

var errTest = errors.New("connection reset")

func TestModel(t *testing.T) {
	model := NewModel(3)

	// Test adding sources
	model.AddSource("vertex/person-people.csv", "vertex", "person-people.csv", 1024*1024)
	model.AddSource("edge/knows-knows.csv", "edge", "knows-knows.csv", 2*1024*1024)

	if len(model.sources) != 2 {
		t.Errorf("Expected 2 sources, got %d", len(model.sources))
	}

	// Test starting a source
	model.StartSource("vertex/person-people.csv")
	if model.activeSources != 1 {
		t.Errorf("Expected 1 active source, got %d", model.activeSources)
	}

	// Test updating progress
	model.UpdateSourceProgress("vertex/person-people.csv", 512*1024, 1024*1024)
	src := model.sources["vertex/person-people.csv"]
	if src.Consumed != 512*1024 {
		t.Errorf("Expected consumed to be %d, got %d", 512*1024, src.Consumed)
	}

	// Test completing a source
	model.CompleteSource("vertex/person-people.csv")
	if model.activeSources != 0 {
		t.Errorf("Expected 0 active sources, got %d", model.activeSources)
	}
	if model.totalCompleted != 1 {
		t.Errorf("Expected 1 completed source, got %d", model.totalCompleted)
	}
	if src.Consumed != src.Size {
		t.Errorf("Expected completion to settle the cursor at %d, got %d", src.Size, src.Consumed)
	}

	// Test rate limit update
	resetTime := time.Now().Add(time.Hour)
	model.UpdateRateLimit(300, 600, resetTime)
	if model.rateLimitUsed != 300 {
		t.Errorf("Expected rate limit used to be 300, got %d", model.rateLimitUsed)
	}

	// Test log messages
	model.AddLogMessage("INFO", "Test message")
	if len(model.logMessages) != 1 {
		t.Errorf("Expected 1 log message, got %d", len(model.logMessages))
	}

	// Test GetActiveSources
	model.StartSource("edge/knows-knows.csv")
	active := model.GetActiveSources()
	if len(active) != 1 {
		t.Errorf("Expected 1 active source, got %d", len(active))
	}
}

func TestModelFailSource(t *testing.T) {
	model := NewModel(2)

	model.AddSource("vertex/person-people.csv", "vertex", "person-people.csv", 4096)
	model.StartSource("vertex/person-people.csv")
	model.FailSource("vertex/person-people.csv", errTest)

	if model.activeSources != 0 {
		t.Errorf("Expected 0 active sources, got %d", model.activeSources)
	}
	if model.totalCompleted != 0 {
		t.Errorf("Expected 0 completed sources, got %d", model.totalCompleted)
	}
	if src := model.sources["vertex/person-people.csv"]; src.State != SourceFailed {
		t.Errorf("Expected state %d, got %d", SourceFailed, src.State)
	}
}

func TestGetOverallProgress(t *testing.T) {
	model := NewModel(2)

	model.AddSource("vertex/a.csv", "vertex", "a.csv", 1000)
	model.AddSource("vertex/b.csv", "vertex", "b.csv", 1000)
	model.StartSource("vertex/a.csv")
	model.StartSource("vertex/b.csv")

	model.UpdateSourceProgress("vertex/a.csv", 500, 0)
	model.CompleteSource("vertex/b.csv")

	got := model.GetOverallProgress()
	if got != 0.75 {
		t.Errorf("GetOverallProgress() = %v, expected 0.75", got)
	}
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		bytes    int64
		expected string
	}{
		{500, "500 B"},
		{1024, "1.0 KB"},
		{1536, "1.5 KB"},
		{1024 * 1024, "1.0 MB"},
		{5 * 1024 * 1024 * 1024, "5.0 GB"},
	}

	for _, test := range tests {
		result := FormatBytes(test.bytes)
		if result != test.expected {
			t.Errorf("FormatBytes(%d) = %s, expected %s", test.bytes, result, test.expected)
		}
	}
}

func TestFormatSpeed(t *testing.T) {
	tests := []struct {
		speed    float64
		expected string
	}{
		{1024, "1.0 KB/s"},
		{1024 * 1024, "1.0 MB/s"},
		{512 * 1024, "512.0 KB/s"},
	}

	for _, test := range tests {
		result := FormatSpeed(test.speed)
		if result != test.expected {
			t.Errorf("FormatSpeed(%f) = %s, expected %s", test.speed, result, test.expected)
		}
	}
}
