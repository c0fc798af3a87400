package syncer

import (
	"context"
	"time"
)

// Two confirmation strategies run side by side: a queue-wide interval
// poll that lives while any command is pending, and a bounded
// per-command poll started once per dispatched command. Either may land
// the confirmation first; UpdateStatus idempotence makes the overlap
// harmless. Both are best-effort: the agent applies the mutation whether
// or not the console ever observes it.

// startQueuePollLocked starts the queue-wide poll unless one is already
// running. Caller holds m.mu.
func (m *Manager) startQueuePollLocked(agentID string) {
	if m.queuePoll != nil || m.closed {
		return
	}
	h := &pollHandle{stop: make(chan struct{})}
	m.queuePoll = h
	go m.runQueuePoll(agentID, h)
}

// stopQueuePollLocked stops the queue-wide poll if running. Caller holds
// m.mu.
func (m *Manager) stopQueuePollLocked() {
	if m.queuePoll != nil {
		close(m.queuePoll.stop)
		m.queuePoll = nil
	}
}

func (m *Manager) runQueuePoll(agentID string, h *pollHandle) {
	tun := m.tunables()
	ticker := time.NewTicker(tun.QueuePollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-h.stop:
			return
		case <-m.done:
			return
		case <-ticker.C:
		}

		m.mu.Lock()
		pending := m.queue.PendingCount()
		m.mu.Unlock()
		if pending == 0 {
			m.mu.Lock()
			if m.queuePoll == h {
				m.stopQueuePollLocked()
			}
			m.mu.Unlock()
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), tun.RequestTimeout)
		results, err := m.backend.RecentCommands(ctx, agentID)
		cancel()
		if err != nil {
			// Transient transport errors are retried on the next tick.
			m.log.Debug().Err(err).Str("agent", agentID).Msg("queue poll tick failed")
			continue
		}
		for _, r := range results {
			if r.Status.Terminal() {
				m.applyResult(r)
			}
		}
	}
}

// pollCommand runs the bounded per-command confirmation poll. It stops
// silently when the command resolves through the queue-wide poll, and
// falls back to assumed success when it exhausts its attempts.
func (m *Manager) pollCommand(agentID, commandID string) {
	tun := m.tunables()
	policy := tun.CommandPoll
	ticker := time.NewTicker(policy.Interval)
	defer ticker.Stop()

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		select {
		case <-m.done:
			return
		case <-ticker.C:
		}

		m.mu.Lock()
		entry, known := m.queue.Get(commandID)
		_, tracked := m.gens[commandID]
		m.mu.Unlock()
		if known && entry.Status != StatusPending {
			// Resolved through the other strategy.
			return
		}
		if !known && !tracked {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), tun.RequestTimeout)
		res, err := m.backend.CommandStatus(ctx, agentID, commandID)
		cancel()
		if err != nil {
			m.log.Debug().Err(err).
				Str("command", commandID).
				Int("attempt", attempt).
				Msg("command poll tick failed")
			continue
		}
		if res != nil && res.Status.Terminal() {
			m.applyResult(*res)
			return
		}
	}

	m.log.Warn().
		Str("command", commandID).
		Int("attempts", policy.MaxAttempts).
		Msg("confirmation poll exhausted; assuming the agent applied the command")
	m.assumeApplied(commandID)
}

// applyResult lands a terminal confirmation: updates the queue entry,
// resolves the session when the confirmation belongs to the current
// generation, and winds down polling once nothing is pending.
func (m *Manager) applyResult(r CommandResult) {
	if !r.Status.Terminal() {
		return
	}
	m.mu.Lock()
	updated := m.queue.UpdateStatus(r.ID, r.Status, r.Message)
	gen, tracked := m.gens[r.ID]
	if !updated && !tracked {
		// Unknown id or duplicate confirmation.
		m.mu.Unlock()
		return
	}
	delete(m.gens, r.ID)
	recID := m.records[r.ID]
	delete(m.records, r.ID)

	fire := false
	var op OperationType
	if tracked {
		msg := r.Message
		if msg == "" {
			if r.Status == StatusCompleted {
				msg = "Command completed by agent"
			} else {
				msg = "Command failed on agent"
			}
		}
		fire, op = m.resolveLocked(gen, r.Status == StatusCompleted, msg)
	}
	if m.queue.PendingCount() == 0 {
		m.stopQueuePollLocked()
		m.schedulePruneLocked()
	}
	m.mu.Unlock()

	if m.history != nil && recID != "" {
		m.history.RecordOutcome(recID, r.Status, r.Message)
	}
	if fire {
		m.refresh.Fire(op)
	}
	m.notify()
}

// assumeApplied is the inherited optimistic fallback: a command that was
// never confirmed within the attempt budget is treated as applied, the
// session succeeds and the refresh still fires. The agent executes
// queued commands regardless of whether the console observes it, so a
// silent agent usually means a slow one.
func (m *Manager) assumeApplied(commandID string) {
	const msg = "No confirmation from agent; assuming the command was applied"
	m.mu.Lock()
	gen, tracked := m.gens[commandID]
	if !tracked {
		m.mu.Unlock()
		return
	}
	delete(m.gens, commandID)
	recID := m.records[commandID]
	delete(m.records, commandID)
	m.queue.UpdateStatus(commandID, StatusCompleted, msg)
	fire, op := m.resolveLocked(gen, true, msg)
	if m.queue.PendingCount() == 0 {
		m.stopQueuePollLocked()
		m.schedulePruneLocked()
	}
	m.mu.Unlock()

	if m.history != nil && recID != "" {
		m.history.RecordOutcome(recID, StatusCompleted, msg)
	}
	if fire {
		m.refresh.Fire(op)
	}
	m.notify()
}
