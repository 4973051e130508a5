package types

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// SessionStats contains counters for one trading session, from start to stop.
type SessionStats struct {
	// ID is the unique identifier for this trading session.
	ID string `yaml:"id" json:"id"`

	// Product being traded in this session.
	Product string `yaml:"product" json:"product"`

	// Version is the bot version that produced these statistics.
	Version string `yaml:"version" json:"version"`

	// Strategy is the name of the strategy driven by the scheduler.
	Strategy string `yaml:"strategy" json:"strategy"`

	// SessionStart is when this trading session started.
	SessionStart time.Time `yaml:"session_start" json:"session_start"`

	// LastUpdated is when these statistics were last updated.
	LastUpdated time.Time `yaml:"last_updated" json:"last_updated"`

	// Ticks is the number of timer ticks delivered, including skipped ones.
	Ticks int64 `yaml:"ticks" json:"ticks"`

	// Skipped is the number of ticks dropped because a run was still in flight.
	Skipped int64 `yaml:"skipped" json:"skipped"`

	// Runs is the number of completed strategy invocations, whatever their outcome.
	Runs int64 `yaml:"runs" json:"runs"`

	// Failures is the number of runs that returned an error or panicked.
	Failures int64 `yaml:"failures" json:"failures"`
}

// WriteSessionStats writes session statistics to a YAML file.
func WriteSessionStats(path string, stats SessionStats) error {
	data, err := yaml.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to marshal session stats to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write session stats to file: %w", err)
	}

	return nil
}

// ReadSessionStats reads session statistics from a YAML file.
func ReadSessionStats(path string) (SessionStats, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return SessionStats{}, fmt.Errorf("failed to read session stats file: %w", err)
	}

	var stats SessionStats
	if err := yaml.Unmarshal(data, &stats); err != nil {
		return SessionStats{}, fmt.Errorf("failed to unmarshal session stats: %w", err)
	}

	return stats, nil
}
