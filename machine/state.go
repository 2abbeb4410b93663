// Package machine holds the types shared between a machine controller and
// its callers: connection and job state, progress, and events.
package machine

import (
	"github.com/mastercactapus/geocraft/coord"
)

// ControllerState is the connection/job state of a controller.
type ControllerState string

const (
	Disconnected ControllerState = "disconnected"
	Connecting   ControllerState = "connecting"
	Idle         ControllerState = "idle"
	Sending      ControllerState = "sending"
	Paused       ControllerState = "paused"
)

// Connected reports whether a port is open and usable.
func (s ControllerState) Connected() bool {
	switch s {
	case Idle, Sending, Paused:
		return true
	}
	return false
}

// State is the last status reported by the machine.
type State struct {
	Status string      `json:"status"`
	WPos   coord.Point `json:"wpos"`
	MPos   coord.Point `json:"mpos"`
	WCO    coord.Point `json:"wco"`
}

// JobStatus is reported with every progress event.
type JobStatus string

const (
	JobSending  JobStatus = "sending"
	JobPaused   JobStatus = "paused"
	JobFinished JobStatus = "finished"
	JobStopped  JobStatus = "stopped"
	JobError    JobStatus = "error"
)

// Done reports whether no more progress will follow for the job.
func (s JobStatus) Done() bool {
	switch s {
	case JobFinished, JobStopped, JobError:
		return true
	}
	return false
}

// Progress describes a G-code job. Sent counts acknowledged lines and
// never exceeds Total.
type Progress struct {
	JobID  string    `json:"jobId"`
	Sent   int       `json:"sent"`
	Total  int       `json:"total"`
	Status JobStatus `json:"status"`

	// Errors counts lines the machine answered with "error".
	Errors int    `json:"errors,omitempty"`
	Error  string `json:"error,omitempty"`
}

// ProbeResult is a probe contact point in work coordinates.
type ProbeResult struct {
	coord.Point
	Valid bool `json:"valid"`
}
