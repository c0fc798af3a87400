package ui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"hostguard/internal/api"
	"hostguard/internal/auth"
	"hostguard/internal/history"
	"hostguard/internal/syncer"
)

// Session bundles everything the views talk to: the sync pipeline, the
// backend client, the token store and the local history. It bridges the
// pipeline's event channel into Bubble Tea messages so views can stay
// pure and re-read snapshots when something changed.
type Session struct {
	Manager *syncer.Manager
	API     *api.Client
	Tokens  *auth.TokenStore
	History *history.Store

	MsgChan chan tea.Msg
	timeout time.Duration
	stop    chan struct{}
}

func NewSession(m *syncer.Manager, client *api.Client, tokens *auth.TokenStore, hist *history.Store, timeout time.Duration) *Session {
	s := &Session{
		Manager: m,
		API:     client,
		Tokens:  tokens,
		History: hist,
		MsgChan: make(chan tea.Msg, 16),
		timeout: timeout,
		stop:    make(chan struct{}),
	}

	// Successful operations invalidate the views that render agent state.
	for _, op := range []syncer.OperationType{syncer.OpUFW, syncer.OpFail2ban, syncer.OpAgent, syncer.OpGeneral} {
		op := op
		m.Subscribe(op, func() {
			s.send(RefreshMsg{Op: op})
		})
	}

	go s.pump()
	return s
}

// pump forwards pipeline events into the message channel.
func (s *Session) pump() {
	for {
		select {
		case <-s.stop:
			return
		case _, ok := <-s.Manager.Events():
			if !ok {
				return
			}
			s.send(SyncTickMsg{})
		}
	}
}

func (s *Session) send(msg tea.Msg) {
	select {
	case s.MsgChan <- msg:
	case <-s.stop:
	}
}

// WaitForMsg is a tea.Cmd that blocks for the next session message.
func (s *Session) WaitForMsg() tea.Msg {
	select {
	case msg := <-s.MsgChan:
		return msg
	case <-s.stop:
		return nil
	}
}

func (s *Session) Close() {
	close(s.stop)
	s.Manager.Close()
}

// SyncTickMsg says visible sync state changed; re-read the snapshots.
type SyncTickMsg struct{}

// RefreshMsg says an operation of this type just succeeded and the
// affected data should be reloaded.
type RefreshMsg struct {
	Op syncer.OperationType
}

type AgentsLoadedMsg struct {
	Agents []api.AgentInfo
	Err    error
}

type HistoryLoadedMsg struct {
	Records []history.CommandRecord
	Err     error
}

func (s *Session) FetchAgents() tea.Msg {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	agents, err := s.API.ListAgents(ctx)
	return AgentsLoadedMsg{Agents: agents, Err: err}
}

func (s *Session) FetchHistory(agentID string) tea.Cmd {
	return func() tea.Msg {
		if s.History == nil {
			return HistoryLoadedMsg{}
		}
		records, err := s.History.Recent(agentID, 20)
		return HistoryLoadedMsg{Records: records, Err: err}
	}
}

// DispatchCmd runs one quick action through the pipeline. The call
// blocks for the HTTP round trip, which is fine inside a tea.Cmd; all
// visible progress arrives through SyncTickMsg.
func (s *Session) DispatchCmd(agentID string, action syncer.Action) tea.Cmd {
	return func() tea.Msg {
		s.Manager.Dispatch(agentID, action)
		return nil
	}
}
