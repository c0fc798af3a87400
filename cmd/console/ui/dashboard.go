package ui

import (
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"hostguard/internal/api"
)

type DashboardModel struct {
	Session *Session
	Table   table.Model
	Agents  []api.AgentInfo
	Err     error
}

// AgentSelectedMsg signals transition to the agent detail view.
type AgentSelectedMsg struct {
	Agent api.AgentInfo
}

func NewDashboardModel(s *Session, width, height int) DashboardModel {
	columns := []table.Column{
		{Title: "Agent ID", Width: 36},
		{Title: "Hostname", Width: 20},
		{Title: "OS", Width: 12},
		{Title: "Status", Width: 8},
		{Title: "Last Seen", Width: 20},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(height-10),
	)

	sStyle := table.DefaultStyles()
	sStyle.Header = sStyle.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	sStyle.Selected = sStyle.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(sStyle)

	return DashboardModel{
		Session: s,
		Table:   t,
	}
}

func (m DashboardModel) Init() tea.Cmd {
	return m.Session.FetchAgents
}

func (m DashboardModel) Update(msg tea.Msg) (DashboardModel, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "r":
			return m, m.Session.FetchAgents
		case "enter":
			idx := m.Table.Cursor()
			if idx >= 0 && idx < len(m.Agents) {
				agent := m.Agents[idx]
				return m, func() tea.Msg {
					return AgentSelectedMsg{Agent: agent}
				}
			}
		case "q":
			return m, tea.Quit
		}

	case AgentsLoadedMsg:
		if msg.Err != nil {
			m.Err = msg.Err
			return m, nil
		}
		m.Err = nil
		m.Agents = msg.Agents
		rows := make([]table.Row, len(msg.Agents))
		for i, a := range msg.Agents {
			status := "offline"
			if a.Online {
				status = "online"
			}
			lastSeen := "-"
			if !a.LastSeen.IsZero() {
				lastSeen = a.LastSeen.Local().Format(time.DateTime)
			}
			rows[i] = table.Row{a.ID, a.Hostname, a.OS, status, lastSeen}
		}
		m.Table.SetRows(rows)

	case RefreshMsg:
		// Agent state changed on the backend; reload the listing.
		return m, m.Session.FetchAgents
	}

	m.Table, cmd = m.Table.Update(msg)
	return m, cmd
}

func (m DashboardModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Host Guard - Agents") + "\n\n")
	b.WriteString(m.Table.View())
	b.WriteString("\n\n")
	b.WriteString(blurredStyle.Render("Press 'r' to refresh, 'q' to quit, up/down to navigate"))

	if m.Err != nil {
		b.WriteString("\n" + errorMessageStyle(m.Err.Error()))
	}
	return b.String()
}
