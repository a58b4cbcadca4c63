package model

// Provisioning job status constants.
const (
	StatusInitializing = "initializing"
	StatusRunning      = "running"
	StatusCompleted    = "completed"
	StatusFailed       = "failed"
)

// IsTerminal reports whether a job status allows no further transitions.
func IsTerminal(status string) bool {
	return status == StatusCompleted || status == StatusFailed
}
