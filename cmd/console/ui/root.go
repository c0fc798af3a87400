package ui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

type state int

const (
	stateToken state = iota
	stateDashboard
	stateAgentDetail
)

type RootModel struct {
	State     state
	Session   *Session
	Token     TokenModel
	Dashboard DashboardModel
	Detail    AgentDetailModel
	Quitting  bool
	width     int
	height    int
}

func NewRootModel(s *Session) RootModel {
	m := RootModel{
		Session: s,
		Token:   NewTokenModel(s),
	}
	if s.Tokens.Current() != "" && !s.Tokens.Expired(time.Now()) {
		m.State = stateDashboard
		m.Dashboard = NewDashboardModel(s, 80, 24)
	} else {
		m.State = stateToken
	}
	return m
}

func (m RootModel) Init() tea.Cmd {
	cmds := []tea.Cmd{m.Session.WaitForMsg}
	switch m.State {
	case stateToken:
		cmds = append(cmds, m.Token.Init())
	case stateDashboard:
		cmds = append(cmds, m.Dashboard.Init())
	}
	return tea.Batch(cmds...)
}

func (m RootModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.Dashboard.Table.SetHeight(msg.Height - 10)

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			m.Quitting = true
			m.Session.Close()
			return m, tea.Quit
		}

	case SyncTickMsg, RefreshMsg:
		// Session messages are a stream; re-arm the wait after each one.
		cmds = append(cmds, m.Session.WaitForMsg)
	}

	switch m.State {
	case stateToken:
		if _, ok := msg.(TokenAcceptedMsg); ok {
			m.State = stateDashboard
			m.Dashboard = NewDashboardModel(m.Session, m.width, m.height)
			cmds = append(cmds, m.Dashboard.Init())
			return m, tea.Batch(cmds...)
		}
		newToken, newCmd := m.Token.Update(msg)
		m.Token = newToken
		cmds = append(cmds, newCmd)

	case stateDashboard:
		if msg, ok := msg.(AgentSelectedMsg); ok {
			m.State = stateAgentDetail
			m.Detail = NewAgentDetailModel(m.Session, msg.Agent, m.width, m.height)
			cmds = append(cmds, m.Detail.Init())
			return m, tea.Batch(cmds...)
		}
		newDash, newCmd := m.Dashboard.Update(msg)
		m.Dashboard = newDash
		cmds = append(cmds, newCmd)

	case stateAgentDetail:
		if _, ok := msg.(BackToDashboardMsg); ok {
			m.State = stateDashboard
			cmds = append(cmds, m.Dashboard.Init())
			return m, tea.Batch(cmds...)
		}
		newDetail, newCmd := m.Detail.Update(msg)
		m.Detail = newDetail
		cmds = append(cmds, newCmd)
	}

	return m, tea.Batch(cmds...)
}

func (m RootModel) View() string {
	if m.Quitting {
		return "Bye!\n"
	}
	switch m.State {
	case stateToken:
		return m.Token.View()
	case stateDashboard:
		return m.Dashboard.View()
	case stateAgentDetail:
		return m.Detail.View()
	}
	return "Unknown state"
}
