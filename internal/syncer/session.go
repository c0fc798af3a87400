package syncer

import (
	"context"
	"time"

	"github.com/looplab/fsm"
)

// OperationType classifies which part of the dashboard a session belongs
// to, and which refresh handlers fire when it succeeds.
type OperationType string

const (
	OpUFW      OperationType = "ufw"
	OpFail2ban OperationType = "fail2ban"
	OpAgent    OperationType = "agent"
	OpGeneral  OperationType = "general"
)

// Session states.
const (
	StateIdle    = "idle"
	StateActive  = "active"
	StateSuccess = "success"
	StateFailure = "failure"
)

// Session events.
const (
	eventBegin   = "begin"
	eventSucceed = "succeed"
	eventFail    = "fail"
	eventSettle  = "settle"
	eventCancel  = "cancel"
)

// Severity of an activity log line.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeveritySuccess Severity = "success"
	SeverityError   Severity = "error"
)

// ActivityEntry is one append-only line in the session's activity log.
type ActivityEntry struct {
	At       time.Time
	Message  string
	Severity Severity
}

// Session is the single operator-visible "operation in progress"
// indicator. Each Begin starts a new generation; asynchronous work
// started under an older generation must compare its captured generation
// against Generation() before mutating the session, so late
// confirmations from a superseded operation become no-ops.
//
// Session is not safe for concurrent use; the Manager serializes access.
type Session struct {
	machine    *fsm.FSM
	opType     OperationType
	message    string
	generation uint64
	activity   []ActivityEntry
	lastSync   map[OperationType]time.Time
	now        func() time.Time
}

func NewSession() *Session {
	s := &Session{
		lastSync: make(map[OperationType]time.Time),
		now:      time.Now,
	}
	s.machine = fsm.NewFSM(
		StateIdle,
		fsm.Events{
			{Name: eventBegin, Src: []string{StateIdle, StateActive, StateSuccess, StateFailure}, Dst: StateActive},
			{Name: eventSucceed, Src: []string{StateActive}, Dst: StateSuccess},
			{Name: eventFail, Src: []string{StateActive}, Dst: StateFailure},
			{Name: eventSettle, Src: []string{StateSuccess, StateFailure}, Dst: StateIdle},
			{Name: eventCancel, Src: []string{StateActive}, Dst: StateIdle},
		},
		fsm.Callbacks{},
	)
	return s
}

// Begin starts a new session generation, replacing whatever state the
// previous one left behind. Legal from any state: a fresh operation
// always wins. Returns the new generation token.
func (s *Session) Begin(op OperationType, message string) uint64 {
	// Re-entrant Begin while Active is allowed; looplab/fsm permits it
	// because Active is listed as a source of the begin event.
	_ = s.machine.Event(context.Background(), eventBegin)
	s.generation++
	s.opType = op
	s.message = message
	s.activity = nil
	s.append(message, SeverityInfo)
	return s.generation
}

// Succeed moves an Active session to Success and stamps lastSync for the
// session's operation type.
func (s *Session) Succeed(message string) error {
	if err := s.machine.Event(context.Background(), eventSucceed); err != nil {
		return err
	}
	s.message = message
	s.lastSync[s.opType] = s.now()
	s.append(message, SeveritySuccess)
	return nil
}

// Fail moves an Active session to Failure.
func (s *Session) Fail(message string) error {
	if err := s.machine.Event(context.Background(), eventFail); err != nil {
		return err
	}
	s.message = message
	s.append(message, SeverityError)
	return nil
}

// Settle returns a terminal session to Idle after the dwell period.
func (s *Session) Settle() error {
	if err := s.machine.Event(context.Background(), eventSettle); err != nil {
		return err
	}
	s.message = ""
	return nil
}

// Cancel drops an Active session back to Idle immediately. In-flight
// requests keep running; the generation check neutralizes their results.
func (s *Session) Cancel() error {
	if err := s.machine.Event(context.Background(), eventCancel); err != nil {
		return err
	}
	s.append("Operation cancelled by operator", SeverityInfo)
	s.message = ""
	return nil
}

// Note updates the status line of an Active session and logs it.
func (s *Session) Note(message string) {
	if !s.Active() {
		return
	}
	s.message = message
	s.append(message, SeverityInfo)
}

func (s *Session) append(message string, sev Severity) {
	s.activity = append(s.activity, ActivityEntry{At: s.now(), Message: message, Severity: sev})
}

func (s *Session) State() string                { return s.machine.Current() }
func (s *Session) Active() bool                 { return s.machine.Current() == StateActive }
func (s *Session) Generation() uint64           { return s.generation }
func (s *Session) OperationType() OperationType { return s.opType }
func (s *Session) Message() string              { return s.message }

// Activity returns a copy of the activity log, oldest first.
func (s *Session) Activity() []ActivityEntry {
	out := make([]ActivityEntry, len(s.activity))
	copy(out, s.activity)
	return out
}

// LastSync reports when an operation type last completed successfully.
func (s *Session) LastSync(op OperationType) (time.Time, bool) {
	t, ok := s.lastSync[op]
	return t, ok
}
