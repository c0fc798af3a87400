package syncer

import "context"

// DispatchResult is the backend's three-way response to a quick action:
// executed synchronously (success or failure), queued for the agent
// (CommandID set), or rejected outright.
type DispatchResult struct {
	Executed   bool
	Success    bool
	Message    string
	CommandID  string
	UFWCommand string
	Error      string
}

// CommandResult is one command's reported status from a confirmation
// poll.
type CommandResult struct {
	ID      string
	Status  Status
	Message string
}

// Backend is the slice of the dashboard API the sync pipeline consumes.
// Implemented by the api package; faked in tests.
type Backend interface {
	// PostQuickAction issues a firewall quick action.
	PostQuickAction(ctx context.Context, agentID string, action Action) (*DispatchResult, error)
	// PostBanAction issues a fail2ban ban/unban. Same envelope.
	PostBanAction(ctx context.Context, agentID string, action Action) (*DispatchResult, error)
	// RequestSync nudges the backend to push state to the agent sooner.
	// Best effort; callers ignore the error beyond logging.
	RequestSync(ctx context.Context, agentID string) error
	// RecentCommands lists the agent's recently queued commands with
	// their current statuses.
	RecentCommands(ctx context.Context, agentID string) ([]CommandResult, error)
	// CommandStatus reports a single command's current status, or nil
	// when the backend does not know it yet.
	CommandStatus(ctx context.Context, agentID, commandID string) (*CommandResult, error)
}
