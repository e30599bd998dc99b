// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

// Package supervisor discovers, spawns, monitors, and restarts the fleet of
// worker processes that make up the rest of the telemetry fabric. It is
// process supervision, not goroutine supervision: os/exec does the actual
// spawning/signaling/killing of child processes, because suture supervises
// goroutines within one process and has no notion of an external process's
// lifecycle. What Suture does supervise here is the Supervisor's own small
// set of background loops — the monitor ticker, the command dispatch loop,
// and the status broadcaster — wrapped in an internal/tasktree.Tree the
// same way the Compute Engine wraps its own loops.
package supervisor

// Status is a Managed Service Record's lifecycle state.
type Status string

const (
	StatusStopped    Status = "stopped"
	StatusStarting   Status = "starting"
	StatusRunning    Status = "running"
	StatusStopping   Status = "stopping"
	StatusCrashed    Status = "crashed"
	StatusRestarting Status = "restarting"
	StatusError      Status = "error"
)

// LastCommand records the most recent operator-issued intent for a record,
// used by the monitor loop to distinguish a deliberate stop from a crash.
type LastCommand string

const (
	LastCommandNone  LastCommand = "none"
	LastCommandStart LastCommand = "start"
	LastCommandStop  LastCommand = "stop"
)

// Record is a Managed Service Record: the Supervisor's view of one worker,
// exclusively owned by the Supervisor's single command-processing goroutine.
type Record struct {
	Name         string
	Unit         UnitDescriptor
	Status       Status
	PID          int
	LastCommand  LastCommand
	RestartCount int
	ExitCode     *int

	proc *managedProcess
}

// Snapshot is the wire-safe view of a Record, with the process handle
// dropped (it isn't meaningful outside the Supervisor).
type Snapshot struct {
	Name         string `json:"name"`
	Status       Status `json:"status"`
	PID          int    `json:"pid"`
	LastCommand  string `json:"last_command"`
	RestartCount int    `json:"restart_count"`
	ExitCode     *int   `json:"exit_code,omitempty"`
}

func (r *Record) snapshot() Snapshot {
	return Snapshot{
		Name:         r.Name,
		Status:       r.Status,
		PID:          r.PID,
		LastCommand:  string(r.LastCommand),
		RestartCount: r.RestartCount,
		ExitCode:     r.ExitCode,
	}
}

// FleetSnapshot is the shape published on manager.status and to get_status
// replies.
type FleetSnapshot struct {
	GlobalStatus string     `json:"global_status"`
	Services     []Snapshot `json:"services"`
}
