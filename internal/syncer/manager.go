package syncer

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Manager wires the command queue, the session state machine, the
// confirmation pollers and the refresh registry into one pipeline. All
// shared state is guarded by a single mutex; timer and poller callbacks
// re-enter through manager methods and carry the session generation they
// were started under, so results from a superseded operation are
// discarded instead of corrupting the current one.
type Manager struct {
	mu      sync.Mutex
	tun     Tunables
	log     zerolog.Logger
	backend Backend
	history HistoryRecorder

	queue   *CommandQueue
	session *Session
	refresh *RefreshRegistry

	// gens maps an in-flight command id to the session generation it was
	// dispatched under; records maps it to its history record id.
	gens    map[string]uint64
	records map[string]string

	queuePoll *pollHandle
	dwell     *time.Timer
	prune     *time.Timer

	events chan struct{}
	done   chan struct{}
	closed bool
}

type pollHandle struct {
	stop chan struct{}
}

// NewManager builds the sync pipeline. history may be nil.
func NewManager(backend Backend, tun Tunables, history HistoryRecorder, log zerolog.Logger) *Manager {
	tun = tun.normalized()
	return &Manager{
		tun:     tun,
		log:     log,
		backend: backend,
		history: history,
		queue:   NewCommandQueue(tun.QueueCapacity),
		session: NewSession(),
		refresh: NewRefreshRegistry(log),
		gens:    make(map[string]uint64),
		records: make(map[string]string),
		events:  make(chan struct{}, 16),
		done:    make(chan struct{}),
	}
}

// Subscribe registers a refresh handler for an operation type. Call
// during wiring, before the pipeline runs.
func (m *Manager) Subscribe(op OperationType, fn RefreshFunc) {
	m.refresh.Subscribe(op, fn)
}

// SetTunables swaps the pipeline's knobs at runtime. Intervals apply to
// pollers started afterwards; a running ticker keeps the interval it
// started with. Queue capacity applies at the next start.
func (m *Manager) SetTunables(tun Tunables) {
	m.mu.Lock()
	m.tun = tun.normalized()
	m.mu.Unlock()
}

func (m *Manager) tunables() Tunables {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tun
}

// Events delivers a tick whenever visible state changed; the UI drains
// it and re-reads the snapshots.
func (m *Manager) Events() <-chan struct{} { return m.events }

// Dispatch issues one quick action against an agent and drives the
// session through the response. It blocks for the duration of the HTTP
// round trip; callers run it off the UI loop. At-most-once: a transport
// failure surfaces as session Failure and is never retried here.
func (m *Manager) Dispatch(agentID string, action Action) {
	m.mu.Lock()
	gen := m.session.Begin(action.OperationType(), "Applying: "+action.Describe())
	m.stopDwellLocked()
	timeout := m.tun.RequestTimeout
	m.mu.Unlock()
	m.notify()

	m.log.Info().
		Str("agent", agentID).
		Str("action", string(action.Kind())).
		Uint64("generation", gen).
		Msg("dispatching quick action")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var res *DispatchResult
	var err error
	if action.Fail2ban() {
		res, err = m.backend.PostBanAction(ctx, agentID, action)
	} else {
		res, err = m.backend.PostQuickAction(ctx, agentID, action)
	}

	recID := ""
	if m.history != nil {
		commandID := ""
		if err == nil && res != nil {
			commandID = res.CommandID
		}
		recID = m.history.RecordDispatch(agentID, action, commandID)
	}

	if err != nil {
		m.log.Error().Err(err).Str("agent", agentID).Msg("dispatch failed")
		m.finish(gen, recID, StatusFailed, "Request failed: "+err.Error())
		return
	}

	switch {
	case res.Executed && res.Success:
		msg := res.Message
		if msg == "" {
			msg = action.Describe() + " applied"
		}
		m.finish(gen, recID, StatusCompleted, msg)

	case res.Executed && !res.Success:
		msg := res.Message
		if msg == "" {
			msg = res.Error
		}
		if msg == "" {
			msg = action.Describe() + " failed"
		}
		m.finish(gen, recID, StatusFailed, msg)

	case !res.Executed && res.Success && res.CommandID != "":
		m.track(agentID, action, gen, recID, res.CommandID)

	default:
		msg := res.Error
		if msg == "" {
			msg = res.Message
		}
		if msg == "" {
			msg = "Backend rejected the command"
		}
		m.finish(gen, recID, StatusFailed, msg)
	}
}

// finish resolves the session for a synchronous outcome.
func (m *Manager) finish(gen uint64, recID string, status Status, message string) {
	m.mu.Lock()
	fire, op := m.resolveLocked(gen, status == StatusCompleted, message)
	m.mu.Unlock()
	if m.history != nil && recID != "" {
		m.history.RecordOutcome(recID, status, message)
	}
	if fire {
		m.refresh.Fire(op)
	}
	m.notify()
}

// track handles the asynchronous branch: the backend queued the command
// for the agent to pick up on its next poll.
func (m *Manager) track(agentID string, action Action, gen uint64, recID, commandID string) {
	m.mu.Lock()
	wasEmpty := m.queue.PendingCount() == 0
	m.queue.Enqueue(commandID, action.Describe())
	m.gens[commandID] = gen
	if recID != "" {
		m.records[commandID] = recID
	}
	m.sweepTrackingLocked()
	if gen == m.session.Generation() {
		m.session.Note("Queued for agent; waiting for confirmation...")
	}
	if wasEmpty {
		m.startQueuePollLocked(agentID)
	}
	m.mu.Unlock()
	m.notify()

	go m.nudge(agentID)
	go m.pollCommand(agentID, commandID)
}

// nudge asks the backend to push state to the agent sooner. Best effort.
func (m *Manager) nudge(agentID string) {
	ctx, cancel := context.WithTimeout(context.Background(), m.tunables().RequestTimeout)
	defer cancel()
	if err := m.backend.RequestSync(ctx, agentID); err != nil {
		m.log.Debug().Err(err).Str("agent", agentID).Msg("request-sync nudge failed")
	}
}

// Cancel returns an Active session to Idle immediately. Outstanding
// requests and pollers keep running; the generation check neutralizes
// whatever they report.
func (m *Manager) Cancel() {
	m.mu.Lock()
	err := m.session.Cancel()
	m.stopDwellLocked()
	m.mu.Unlock()
	if err == nil {
		m.log.Info().Msg("operation cancelled by operator")
		m.notify()
	}
}

// resolveLocked applies a terminal outcome to the session if it still
// belongs to the given generation. Returns whether the refresh registry
// should fire (after the caller releases the lock) and for which
// operation type.
func (m *Manager) resolveLocked(gen uint64, success bool, message string) (bool, OperationType) {
	if gen != m.session.Generation() || !m.session.Active() {
		m.log.Debug().
			Uint64("generation", gen).
			Uint64("current", m.session.Generation()).
			Msg("discarding stale completion")
		return false, ""
	}
	op := m.session.OperationType()
	if success {
		if err := m.session.Succeed(message); err != nil {
			return false, ""
		}
		m.scheduleDwellLocked(gen)
		return true, op
	}
	if err := m.session.Fail(message); err != nil {
		return false, ""
	}
	m.scheduleDwellLocked(gen)
	return false, op
}

// scheduleDwellLocked arms the terminal-state dwell: the indicator holds
// its final state briefly, then settles back to Idle unless a new
// operation preempted it.
func (m *Manager) scheduleDwellLocked(gen uint64) {
	m.stopDwellLocked()
	m.dwell = time.AfterFunc(m.tun.TerminalDwell, func() {
		m.mu.Lock()
		if m.session.Generation() == gen {
			if err := m.session.Settle(); err == nil {
				m.mu.Unlock()
				m.notify()
				return
			}
		}
		m.mu.Unlock()
	})
}

func (m *Manager) stopDwellLocked() {
	if m.dwell != nil {
		m.dwell.Stop()
		m.dwell = nil
	}
}

// schedulePruneLocked clears terminal entries a moment after the queue
// drains so the operator sees the final states before they disappear.
func (m *Manager) schedulePruneLocked() {
	if m.prune != nil {
		m.prune.Stop()
	}
	m.prune = time.AfterFunc(m.tun.PruneGrace, func() {
		m.mu.Lock()
		removed := 0
		if m.queue.PendingCount() == 0 {
			removed = m.queue.Prune()
		}
		m.mu.Unlock()
		if removed > 0 {
			m.notify()
		}
	})
}

// sweepTrackingLocked drops generation/record bookkeeping for ids the
// queue no longer holds (capacity eviction).
func (m *Manager) sweepTrackingLocked() {
	for id := range m.gens {
		if _, ok := m.queue.Get(id); !ok {
			delete(m.gens, id)
			delete(m.records, id)
		}
	}
}

// SessionView is a rendering snapshot of the session.
type SessionView struct {
	State         string
	OperationType OperationType
	Message       string
	Generation    uint64
	Activity      []ActivityEntry
}

func (m *Manager) SessionSnapshot() SessionView {
	m.mu.Lock()
	defer m.mu.Unlock()
	return SessionView{
		State:         m.session.State(),
		OperationType: m.session.OperationType(),
		Message:       m.session.Message(),
		Generation:    m.session.Generation(),
		Activity:      m.session.Activity(),
	}
}

func (m *Manager) QueueSnapshot() []QueueEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queue.Snapshot()
}

func (m *Manager) LastSync(op OperationType) (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.session.LastSync(op)
}

// Close stops timers and pollers. In-flight Dispatch calls finish on
// their own.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	m.closed = true
	close(m.done)
	m.stopDwellLocked()
	if m.prune != nil {
		m.prune.Stop()
		m.prune = nil
	}
	m.stopQueuePollLocked()
}

func (m *Manager) notify() {
	select {
	case m.events <- struct{}{}:
	default:
	}
}
