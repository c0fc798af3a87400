package api

import (
	"fmt"
	"time"
)

// actionEnvelope is the backend's three-way quick-action response:
// executed synchronously, queued for the agent, or rejected.
type actionEnvelope struct {
	Executed   bool   `json:"executed"`
	Success    bool   `json:"success"`
	Message    string `json:"message,omitempty"`
	CommandID  string `json:"command_id,omitempty"`
	UFWCommand string `json:"ufw_command,omitempty"`
	Error      string `json:"error,omitempty"`
}

type agentStateResponse struct {
	RecentCommands []recentCommand `json:"recent_commands"`
}

type recentCommand struct {
	CommandUUID   string `json:"command_uuid"`
	Status        string `json:"status"`
	ResultMessage string `json:"result_message,omitempty"`
}

// AgentInfo is one row of the fleet listing.
type AgentInfo struct {
	ID       string    `json:"id"`
	Hostname string    `json:"hostname"`
	OS       string    `json:"os"`
	Online   bool      `json:"online"`
	LastSeen time.Time `json:"last_seen"`
}

// StatusError reports a non-2xx backend response.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("backend returned %d: %s", e.Code, e.Body)
}
