package daemon

import "encoding/json"

// RPC method names.
const (
	MethodGetState     = "get-state"
	MethodStartWork    = "start-work"
	MethodStartBreak   = "start-break"
	MethodStop         = "stop"
	MethodPause        = "pause"
	MethodResume       = "resume"
	MethodExtend       = "extend"
	MethodSaveSettings = "save-settings"
	MethodQuit         = "quit"
	MethodStatus       = "status"
)

// Request represents a JSON-RPC request from a client.
type Request struct {
	Method string          `json:"method"`
	Params json.RawMessage `json:"params,omitempty"`
	ID     int             `json:"id,omitempty"`
}

// Response represents a JSON-RPC response to a client.
type Response struct {
	Result any    `json:"result,omitempty"`
	Error  string `json:"error,omitempty"`
	ID     int    `json:"id,omitempty"`
}

// StatusResponse contains daemon status information.
type StatusResponse struct {
	Phase            string `json:"phase"`
	IsBreak          bool   `json:"is_break"`
	RemainingSeconds int    `json:"remaining_seconds"`
	PID              int    `json:"pid"`
	Uptime           string `json:"uptime"`
	StartTime        string `json:"start_time"`
}

// ExtendParams contains parameters for the extend method.
type ExtendParams struct {
	Seconds int `json:"seconds"`
}

// SaveSettingsParams carries a partial settings document.
type SaveSettingsParams struct {
	Settings json.RawMessage `json:"settings"`
}
