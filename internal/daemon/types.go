package daemon

import "time"

// StartOptions contains options for starting the daemon
type StartOptions struct {
	// DaemonPath is the path to the daemon executable
	DaemonPath string
	// SocketPath is the Unix socket path
	SocketPath string
	// ConfigPath is the path to the config file
	ConfigPath string
	// Verbose enables verbose logging
	Verbose bool
	// WaitForReady indicates whether to wait for the daemon to be ready
	WaitForReady bool
	// ReadyTimeout is the timeout for waiting daemon to be ready
	ReadyTimeout time.Duration
	// Background indicates whether to run in background
	Background bool
}

// StartResult contains the result of a start operation
type StartResult struct {
	Success   bool      `json:"success"`
	PID       int       `json:"pid,omitempty"`
	Error     string    `json:"error,omitempty"`
	StartedAt time.Time `json:"started_at"`
	Ready     bool      `json:"ready"`
}

// StopResult contains the result of a stop operation
type StopResult struct {
	Success   bool      `json:"success"`
	PID       int       `json:"pid,omitempty"`
	StoppedAt time.Time `json:"stopped_at"`
	Error     string    `json:"error,omitempty"`
}

// StatusResult contains the result of a status operation
type StatusResult struct {
	Status    string    `json:"status"`
	Running   bool      `json:"running"`
	Ready     bool      `json:"ready"`
	PID       int       `json:"pid,omitempty"`
	Version   string    `json:"version,omitempty"`
	StartedAt time.Time `json:"started_at,omitempty"`
	Error     string    `json:"error,omitempty"`
}
