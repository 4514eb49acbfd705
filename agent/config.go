package agent

import (
	"time"
)

// Config holds the run settings that do not live in the tunable config
// document.
type Config struct {
	// TimeLimit bounds a single run. Zero means no limit.
	TimeLimit time.Duration

	// DebugDir is the storage prefix for failure screenshots.
	DebugDir string

	// DebugKeep is how many screenshots are kept per agent type. Zero keeps
	// all of them.
	DebugKeep int

	// SelfProfileURL is the logged-in user's profile, never invited.
	SelfProfileURL string
}
