package domain

import "time"

// TranscriptEntry is a console line persisted together with the process
// session it was produced in.
type TranscriptEntry struct {
	ID             int64     `json:"id"`
	SessionStarted time.Time `json:"session_started"`
	LogEntry
}
