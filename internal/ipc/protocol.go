package ipc

import "github.com/rbright/segnala/internal/report"

// Request is one newline-delimited command sent to the owner process.
type Request struct {
	Command string `json:"command"`
	Value   string `json:"value,omitempty"`
}

// Response is the owner's reply, carrying a snapshot of the workflow.
type Response struct {
	OK         bool                  `json:"ok"`
	State      string                `json:"state,omitempty"`
	Message    string                `json:"message,omitempty"`
	Error      string                `json:"error,omitempty"`
	Transcript string                `json:"transcript,omitempty"`
	Report     *report.ProblemReport `json:"report,omitempty"`
	CycleID    string                `json:"cycle_id,omitempty"`
}
