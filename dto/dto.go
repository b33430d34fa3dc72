package dto

import (
	"time"

	"github.com/google/uuid"
	"lecture2obs/constant"
)

type ToggleAction string

const (
	ToggleActionStarted      ToggleAction = "started"
	ToggleActionStopped      ToggleAction = "stopped"
	ToggleActionStaleCleared ToggleAction = "stale_cleared"
)

type ToggleResult struct {
	Action    ToggleAction `json:"action"`
	SessionID uuid.UUID    `json:"session_id"`
	Course    string       `json:"course,omitempty"`
	Title     string       `json:"title,omitempty"`
	Pid       int          `json:"pid,omitempty"`
}

type StatusResult struct {
	State   constant.SessionState `json:"state"`
	Course  string                `json:"course,omitempty"`
	Title   string                `json:"title,omitempty"`
	Pid     int                   `json:"pid,omitempty"`
	Elapsed time.Duration         `json:"elapsed,omitempty"`
}

type NoteMetadata struct {
	Title  string
	Course string
	Date   string
}
