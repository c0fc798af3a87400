package syncer

// HistoryRecorder receives an audit trail of dispatches and their
// terminal outcomes. Implemented by the history package; a nil recorder
// disables auditing.
type HistoryRecorder interface {
	// RecordDispatch logs an issued action and returns a record id used
	// to attach the outcome later. commandID is empty for synchronous
	// actions.
	RecordDispatch(agentID string, action Action, commandID string) string
	// RecordOutcome attaches the terminal status to an earlier record.
	RecordOutcome(recordID string, status Status, message string)
}
