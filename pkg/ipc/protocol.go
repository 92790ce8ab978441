package ipc

import (
	"encoding/json"
	"time"
)

// Request is the envelope every client frame is decoded into.
type Request struct {
	Command      string          `json:"command"`
	SessionToken string          `json:"session_token,omitempty"`
	Payload      json.RawMessage `json:"payload,omitempty"`
}

// Response is the envelope every reply frame is encoded from.
type Response struct {
	Success bool        `json:"success"`
	Error   string      `json:"error,omitempty"`
	Data    interface{} `json:"data,omitempty"`
}

// Event is a server-initiated broadcast frame.
type Event struct {
	EventType string      `json:"event_type"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// Event type names used in broadcasts, per spec.md §4.12.
const (
	EventThreatDetected       = "ThreatDetected"
	EventThreatActionRequired = "ThreatActionRequired"
	EventThreatActionApplied  = "ThreatActionApplied"
	EventScanProgress         = "ScanProgress"
	EventScanComplete         = "ScanComplete"
)

// Command names, authoritative per spec.md §4.12.
const (
	CommandHello                 = "Hello"
	CommandPing                  = "Ping"
	CommandStartScan             = "StartScan"
	CommandStopScan              = "StopScan"
	CommandGetScanProgress       = "GetScanProgress"
	CommandListQuarantine        = "ListQuarantine"
	CommandRestoreFromQuarantine = "RestoreFromQuarantine"
	CommandDeleteFromQuarantine  = "DeleteFromQuarantine"
	CommandGetPendingThreats     = "GetPendingThreats"
	CommandResolveThreat         = "ResolveThreat"
	CommandEnableRealTime        = "EnableRealTime"
	CommandDisableRealTime       = "DisableRealTime"
	CommandUpdateSettings        = "UpdateSettings"
	CommandGetStatus             = "GetStatus"
)

// adminCommands requires the session's identity to be a privileged local
// principal.
var adminCommands = map[string]bool{
	CommandRestoreFromQuarantine: true,
	CommandDeleteFromQuarantine:  true,
	CommandDisableRealTime:       true,
}

// HelloPayload is the response data for a successful Hello handshake.
type HelloPayload struct {
	SessionToken string    `json:"session_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// StartScanRequest is the payload for StartScan.
type StartScanRequest struct {
	Roots     []string `json:"roots"`
	Recursive bool     `json:"recursive"`
}

// StartScanResponse is the response data for StartScan.
type StartScanResponse struct {
	JobID string `json:"job_id"`
}

// JobRequest is the payload for StopScan and GetScanProgress, both of which
// only need to identify the job.
type JobRequest struct {
	JobID string `json:"job_id"`
}

// ScanProgressResponse is the response data for GetScanProgress. It mirrors
// pkg/scanjob.Progress as a wire DTO rather than importing that package
// directly, keeping the transport contract independent of the controller's
// internal representation.
type ScanProgressResponse struct {
	JobID     string    `json:"job_id"`
	Status    string    `json:"status"`
	Total     int       `json:"total"`
	Scanned   int       `json:"scanned"`
	Threats   int       `json:"threats"`
	Errors    int       `json:"errors"`
	StartedAt time.Time `json:"started_at"`
}

// QuarantineEntryDTO is one entry in a ListQuarantine response.
type QuarantineEntryDTO struct {
	ID            string    `json:"id"`
	OriginalPath  string    `json:"original_path"`
	SHA256        string    `json:"sha256"`
	Size          int64     `json:"size"`
	ThreatName    string    `json:"threat_name"`
	QuarantinedAt time.Time `json:"quarantined_at"`
}

// ListQuarantineResponse is the response data for ListQuarantine.
type ListQuarantineResponse struct {
	Entries []QuarantineEntryDTO `json:"entries"`
}

// QuarantineIDRequest is the payload for RestoreFromQuarantine and
// DeleteFromQuarantine.
type QuarantineIDRequest struct {
	ID          string `json:"id"`
	Destination string `json:"destination,omitempty"`
}

// PendingThreatDTO is one entry in a GetPendingThreats response.
type PendingThreatDTO struct {
	EventID   string    `json:"event_id"`
	Path      string    `json:"path"`
	Score     int       `json:"score"`
	Verdict   string    `json:"verdict"`
	Timestamp time.Time `json:"timestamp"`
}

// PendingThreatsResponse is the response data for GetPendingThreats.
type PendingThreatsResponse struct {
	Threats []PendingThreatDTO `json:"threats"`
}

// ResolveThreatRequest is the payload for ResolveThreat.
type ResolveThreatRequest struct {
	EventID         string `json:"event_id"`
	Action          string `json:"action"`
	AddToExclusions bool   `json:"add_to_exclusions,omitempty"`
}

// UpdateSettingsRequest is the payload for UpdateSettings. Every field is
// optional (nil means "leave unchanged"), since a settings update is
// typically a single-field tweak from the UI rather than a full
// configuration replacement.
type UpdateSettingsRequest struct {
	EnableRealTimeProtection *bool   `json:"enable_real_time_protection,omitempty"`
	ActionMode               *string `json:"action_mode,omitempty"`
	AskMinScore              *int    `json:"ask_min_score,omitempty"`
	AutoQuarantineMinScore   *int    `json:"auto_quarantine_min_score,omitempty"`
}

// GetStatusResponse is the response data for GetStatus.
type GetStatusResponse struct {
	UptimeSeconds            float64 `json:"uptime_seconds"`
	EventsSeen               int64   `json:"events_seen"`
	ThreatsBlocked           int64   `json:"threats_blocked"`
	FilesQuarantined         int64   `json:"files_quarantined"`
	ScanErrors               int64   `json:"scan_errors"`
	EnableRealTimeProtection bool    `json:"enable_real_time_protection"`
	PendingThreats           int     `json:"pending_threats"`
	ConnectedSessions        int     `json:"connected_sessions"`
}
