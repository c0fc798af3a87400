package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"hostguard/internal/api"
	"hostguard/internal/history"
	"hostguard/internal/syncer"
)

// BackToDashboardMsg signals transition back to the agent listing.
type BackToDashboardMsg struct{}

// Focus constants
const (
	FocusForm = iota
	FocusQueue
)

// AgentDetailModel is the per-agent view: the quick-action form on the
// left, the live sync state on the right (indicator, pending commands,
// activity log) and the recent command history underneath.
type AgentDetailModel struct {
	Session *Session
	Agent   api.AgentInfo
	Width   int
	Height  int

	Form     ActionFormModel
	Queue    table.Model
	Activity viewport.Model
	History  []history.CommandRecord

	Focus int
	Err   error
}

func NewAgentDetailModel(s *Session, agent api.AgentInfo, width, height int) AgentDetailModel {
	columns := []table.Column{
		{Title: "Command", Width: 10},
		{Title: "Status", Width: 10},
		{Title: "Result", Width: 34},
	}
	t := table.New(
		table.WithColumns(columns),
		table.WithHeight(6),
	)
	sT := table.DefaultStyles()
	sT.Header = sT.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	sT.Selected = sT.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(sT)

	panelWidth := width/2 - 8
	if panelWidth < 30 {
		panelWidth = 40
	}
	vp := viewport.New(panelWidth, 8)
	vp.Style = lipgloss.NewStyle().PaddingLeft(1)

	formHeight := height - 12
	if formHeight < 10 {
		formHeight = 10
	}
	form := NewActionFormModel(panelWidth, formHeight)

	m := AgentDetailModel{
		Session:  s,
		Agent:    agent,
		Width:    width,
		Height:   height,
		Form:     form,
		Queue:    t,
		Activity: vp,
		Focus:    FocusForm,
	}
	m.syncPanels()
	return m
}

func (m AgentDetailModel) Init() tea.Cmd {
	return tea.Batch(
		m.Session.FetchHistory(m.Agent.ID),
	)
}

func (m AgentDetailModel) Update(msg tea.Msg) (AgentDetailModel, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "esc":
			if m.Focus == FocusForm && m.Form.State == StateFilling {
				break // the form handles esc itself
			}
			return m, func() tea.Msg { return BackToDashboardMsg{} }
		case "tab":
			if m.Focus == FocusForm && m.Form.State == StateFilling {
				break // tab moves between form fields
			}
			if m.Focus == FocusForm {
				m.Focus = FocusQueue
				m.Queue.Focus()
			} else {
				m.Focus = FocusForm
				m.Queue.Blur()
			}
			return m, nil
		case "ctrl+x":
			// Abort the visible operation; late confirmations are ignored.
			return m, func() tea.Msg {
				m.Session.Manager.Cancel()
				return nil
			}
		}

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Activity.Width = msg.Width/2 - 8
		formMsg := tea.WindowSizeMsg{Width: msg.Width/2 - 8, Height: msg.Height - 12}
		m.Form, _ = m.Form.Update(formMsg)

	case ActionSubmittedMsg:
		m.Form.Err = nil
		return m, m.Session.DispatchCmd(m.Agent.ID, msg.Action)

	case SyncTickMsg:
		m.syncPanels()

	case RefreshMsg:
		cmds = append(cmds, m.Session.FetchHistory(m.Agent.ID))

	case HistoryLoadedMsg:
		if msg.Err != nil {
			m.Err = msg.Err
		} else {
			m.Err = nil
			m.History = msg.Records
		}
	}

	if m.Focus == FocusForm {
		m.Form, cmd = m.Form.Update(msg)
		cmds = append(cmds, cmd)
	} else {
		m.Queue, cmd = m.Queue.Update(msg)
		cmds = append(cmds, cmd)
		m.Activity, cmd = m.Activity.Update(msg)
		cmds = append(cmds, cmd)
	}

	return m, tea.Batch(cmds...)
}

// syncPanels re-reads the pipeline snapshots into the queue table and
// the activity viewport.
func (m *AgentDetailModel) syncPanels() {
	entries := m.Session.Manager.QueueSnapshot()
	rows := make([]table.Row, len(entries))
	for i, e := range entries {
		result := e.ResultMessage
		if result == "" {
			result = e.Description
		}
		rows[i] = table.Row{shortID(e.ID), string(e.Status), result}
	}
	m.Queue.SetRows(rows)

	view := m.Session.Manager.SessionSnapshot()
	var b strings.Builder
	for _, entry := range view.Activity {
		line := entry.At.Local().Format("15:04:05") + "  " + entry.Message
		switch entry.Severity {
		case syncer.SeveritySuccess:
			line = successStyle.Render(line)
		case syncer.SeverityError:
			line = failureStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}
	m.Activity.SetContent(b.String())
	m.Activity.GotoBottom()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func (m AgentDetailModel) indicator() string {
	view := m.Session.Manager.SessionSnapshot()
	switch view.State {
	case syncer.StateActive:
		return activeStyle.Render("◌ " + view.Message)
	case syncer.StateSuccess:
		return successStyle.Render("✔ " + view.Message)
	case syncer.StateFailure:
		return failureStyle.Render("✘ " + view.Message)
	default:
		if at, ok := m.Session.Manager.LastSync(syncer.OpUFW); ok {
			return idleStyle.Render("● Idle - last sync " + at.Local().Format("15:04:05"))
		}
		return idleStyle.Render("● Idle")
	}
}

func (m AgentDetailModel) historyLines() string {
	if len(m.History) == 0 {
		return blurredStyle.Render("No commands recorded yet")
	}
	var b strings.Builder
	max := len(m.History)
	if max > 5 {
		max = 5
	}
	for _, r := range m.History[:max] {
		line := fmt.Sprintf("%s  %-22s %s",
			r.CreatedAt.Local().Format(time.DateTime), r.Description, r.Outcome)
		switch syncer.Status(r.Outcome) {
		case syncer.StatusCompleted:
			line = successStyle.Render(line)
		case syncer.StatusFailed:
			line = failureStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}
	return b.String()
}

func (m AgentDetailModel) View() string {
	name := m.Agent.Hostname
	if name == "" {
		name = m.Agent.ID
	}
	header := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")).Render("Agent: " + name)

	panelWidth := m.Width/2 - 6
	if panelWidth < 34 {
		panelWidth = 44
	}
	activeBorder := lipgloss.NewStyle().BorderStyle(lipgloss.ThickBorder()).BorderForeground(lipgloss.Color("205")).Padding(1, 2).Width(panelWidth)
	inactiveBorder := lipgloss.NewStyle().BorderStyle(lipgloss.NormalBorder()).BorderForeground(lipgloss.Color("240")).Padding(1, 2).Width(panelWidth)

	var leftStyle, rightStyle lipgloss.Style
	if m.Focus == FocusForm {
		leftStyle = activeBorder
		rightStyle = inactiveBorder
	} else {
		leftStyle = inactiveBorder
		rightStyle = activeBorder
	}

	left := leftStyle.Render(m.Form.View())

	sep := blurredStyle.Render(strings.Repeat("─", panelWidth-4))
	rightContent := lipgloss.JoinVertical(lipgloss.Left,
		m.indicator(),
		sep,
		lipgloss.NewStyle().Bold(true).Render("Pending commands"),
		m.Queue.View(),
		sep,
		lipgloss.NewStyle().Bold(true).Render("Activity"),
		m.Activity.View(),
	)
	right := rightStyle.Render(rightContent)

	content := lipgloss.JoinHorizontal(lipgloss.Top, left, right)

	historyTitle := lipgloss.NewStyle().Bold(true).MarginTop(1).Render("Recent history")
	help := helpStyle.Render("Tab: switch panel • Enter: select/apply • Ctrl+X: cancel operation • Esc: back")

	out := lipgloss.JoinVertical(lipgloss.Left, header, content, historyTitle, m.historyLines(), help)
	if m.Err != nil {
		out += "\n" + errorMessageStyle(m.Err.Error())
	}
	return out
}
