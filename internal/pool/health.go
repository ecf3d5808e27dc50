// Package pool implements the connection supervisor: at most one
// lspclient.Client per (languageId, workspacePath) key, with lazy
// creation, health checks, crash recovery, and idle reclamation.
package pool

import "time"

// Status is a Pool entry's externally observable health state.
type Status string

const (
	StatusStarting   Status = "starting"
	StatusHealthy    Status = "healthy"
	StatusUnhealthy  Status = "unhealthy"
	StatusRestarting Status = "restarting"
	StatusStopped    Status = "stopped"
)

// Key identifies at most one live Client.
type Key struct {
	LanguageID string
	Workspace  string
}

// HealthStatus is a point-in-time snapshot of one pool entry, returned
// by Pool.GetHealth.
type HealthStatus struct {
	Key       Key
	Status    Status
	Crashes   int
	Uptime    time.Duration
	LastUsed  time.Time
	LastCheck time.Time
}
