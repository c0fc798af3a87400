package ui

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"hostguard/internal/syncer"
)

// Form states
type FormState int

const (
	StateSelecting FormState = iota
	StateFilling
)

type actionItem struct {
	title, desc string
	index       int
}

func (i actionItem) Title() string       { return i.title }
func (i actionItem) Description() string { return i.desc }
func (i actionItem) FilterValue() string { return i.title }

// ActionSubmittedMsg carries a validated action ready to dispatch.
type ActionSubmittedMsg struct {
	Action syncer.Action
}

type FieldDef struct {
	Name        string
	Placeholder string
	Required    bool
	Default     string
}

type ActionDef struct {
	Name        string
	Description string
	Fields      []FieldDef
	Build       func(values []string) (syncer.Action, error)
}

func atoiField(name, value string) (int, error) {
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number", name)
	}
	return n, nil
}

var availableActions = []ActionDef{
	{
		Name:        "Allow port",
		Description: "Open a port in the firewall",
		Fields: []FieldDef{
			{Name: "port", Placeholder: "e.g. 443", Required: true},
			{Name: "protocol", Placeholder: "tcp or udp", Default: "tcp"},
		},
		Build: func(v []string) (syncer.Action, error) {
			port, err := atoiField("port", v[0])
			if err != nil {
				return syncer.Action{}, err
			}
			return syncer.AllowPort(port, v[1])
		},
	},
	{
		Name:        "Deny port",
		Description: "Close a port in the firewall",
		Fields: []FieldDef{
			{Name: "port", Placeholder: "e.g. 23", Required: true},
			{Name: "protocol", Placeholder: "tcp or udp", Default: "tcp"},
		},
		Build: func(v []string) (syncer.Action, error) {
			port, err := atoiField("port", v[0])
			if err != nil {
				return syncer.Action{}, err
			}
			return syncer.DenyPort(port, v[1])
		},
	},
	{
		Name:        "Limit port",
		Description: "Rate-limit connections to a port",
		Fields: []FieldDef{
			{Name: "port", Placeholder: "e.g. 22", Required: true},
			{Name: "protocol", Placeholder: "tcp or udp", Default: "tcp"},
		},
		Build: func(v []string) (syncer.Action, error) {
			port, err := atoiField("port", v[0])
			if err != nil {
				return syncer.Action{}, err
			}
			return syncer.LimitPort(port, v[1])
		},
	},
	{
		Name:        "Allow IP",
		Description: "Allow all traffic from an address",
		Fields: []FieldDef{
			{Name: "ip", Placeholder: "e.g. 10.0.0.5", Required: true},
		},
		Build: func(v []string) (syncer.Action, error) {
			return syncer.AllowIP(v[0])
		},
	},
	{
		Name:        "Block IP",
		Description: "Drop all traffic from an address",
		Fields: []FieldDef{
			{Name: "ip", Placeholder: "e.g. 203.0.113.7", Required: true},
		},
		Build: func(v []string) (syncer.Action, error) {
			return syncer.BlockIP(v[0])
		},
	},
	{
		Name:        "Delete rule",
		Description: "Remove a firewall rule by its position",
		Fields: []FieldDef{
			{Name: "index", Placeholder: "Rule number, starting at 1", Required: true},
		},
		Build: func(v []string) (syncer.Action, error) {
			idx, err := atoiField("index", v[0])
			if err != nil {
				return syncer.Action{}, err
			}
			return syncer.DeleteRule(idx)
		},
	},
	{
		Name:        "Reorder rule",
		Description: "Move a firewall rule to a new position",
		Fields: []FieldDef{
			{Name: "from", Placeholder: "Current position", Required: true},
			{Name: "to", Placeholder: "New position", Required: true},
		},
		Build: func(v []string) (syncer.Action, error) {
			from, err := atoiField("from", v[0])
			if err != nil {
				return syncer.Action{}, err
			}
			to, err := atoiField("to", v[1])
			if err != nil {
				return syncer.Action{}, err
			}
			return syncer.ReorderRule(from, to)
		},
	},
	{
		Name:        "Enable firewall",
		Description: "Turn the firewall on",
		Build: func(v []string) (syncer.Action, error) {
			return syncer.EnableFirewall(), nil
		},
	},
	{
		Name:        "Disable firewall",
		Description: "Turn the firewall off",
		Build: func(v []string) (syncer.Action, error) {
			return syncer.DisableFirewall(), nil
		},
	},
	{
		Name:        "Ban IP",
		Description: "Ban an address in a fail2ban jail",
		Fields: []FieldDef{
			{Name: "ip", Placeholder: "e.g. 198.51.100.9", Required: true},
			{Name: "jail", Placeholder: "Jail name", Default: "sshd"},
			{Name: "duration", Placeholder: "Seconds, 0 = jail default", Default: "0"},
		},
		Build: func(v []string) (syncer.Action, error) {
			dur := 0
			if v[2] != "" {
				var err error
				dur, err = atoiField("duration", v[2])
				if err != nil {
					return syncer.Action{}, err
				}
			}
			return syncer.BanIP(v[0], v[1], dur)
		},
	},
	{
		Name:        "Unban IP",
		Description: "Lift a fail2ban ban early",
		Fields: []FieldDef{
			{Name: "ip", Placeholder: "e.g. 198.51.100.9", Required: true},
			{Name: "jail", Placeholder: "Jail name", Default: "sshd"},
		},
		Build: func(v []string) (syncer.Action, error) {
			return syncer.UnbanIP(v[0], v[1])
		},
	},
}

// ActionFormModel is the two-step quick-action form: pick an action,
// fill its parameters, submit.
type ActionFormModel struct {
	State    FormState
	List     list.Model
	Inputs   []textinput.Model
	Focused  int
	Selected int
	Err      error
}

func NewActionFormModel(width, height int) ActionFormModel {
	items := []list.Item{}
	for i, def := range availableActions {
		items = append(items, actionItem{title: def.Name, desc: def.Description, index: i})
	}

	delegate := list.NewDefaultDelegate()
	l := list.New(items, delegate, width, height)
	l.Title = "Quick Actions"
	l.SetShowHelp(false)

	return ActionFormModel{
		State: StateSelecting,
		List:  l,
	}
}

func (m *ActionFormModel) initInputs() {
	def := availableActions[m.Selected]
	m.Inputs = make([]textinput.Model, len(def.Fields))
	for i, field := range def.Fields {
		ti := textinput.New()
		ti.Placeholder = field.Placeholder
		ti.CharLimit = 64
		if field.Default != "" {
			ti.SetValue(field.Default)
		}
		if i == 0 {
			ti.Focus()
		}
		m.Inputs[i] = ti
	}
	m.Focused = 0
	m.Err = nil
}

func (m ActionFormModel) Update(msg tea.Msg) (ActionFormModel, tea.Cmd) {
	var cmd tea.Cmd
	var cmds []tea.Cmd

	if e, ok := msg.(actionFormErrMsg); ok {
		m.Err = e.err
		return m, nil
	}

	if m.State == StateSelecting {
		switch msg := msg.(type) {
		case tea.KeyMsg:
			switch msg.String() {
			case "enter":
				if i, ok := m.List.SelectedItem().(actionItem); ok {
					m.Selected = i.index
					if len(availableActions[i.index].Fields) == 0 {
						// Nothing to fill in; submit directly.
						return m, m.submit()
					}
					m.State = StateFilling
					m.initInputs()
					return m, textinput.Blink
				}
			case "up", "k":
				m.List.CursorUp()
				return m, nil
			case "down", "j":
				m.List.CursorDown()
				return m, nil
			}
		case tea.WindowSizeMsg:
			m.List.SetWidth(msg.Width)
			m.List.SetHeight(msg.Height)
		}
		m.List, cmd = m.List.Update(msg)
		cmds = append(cmds, cmd)
	} else {
		switch msg := msg.(type) {
		case tea.KeyMsg:
			switch msg.String() {
			case "esc":
				m.State = StateSelecting
				return m, nil
			case "enter":
				if m.Focused == len(m.Inputs) {
					return m, m.submit()
				} else if m.Focused == len(m.Inputs)+1 {
					m.State = StateSelecting
					return m, nil
				}
				m.Focused++
				if m.Focused > len(m.Inputs)+1 {
					m.Focused = 0
				}
				m.updateFocus()
				return m, nil

			case "tab", "down":
				m.Focused++
				if m.Focused > len(m.Inputs)+1 {
					m.Focused = 0
				}
				m.updateFocus()
				return m, nil

			case "shift+tab", "up":
				m.Focused--
				if m.Focused < 0 {
					m.Focused = len(m.Inputs) + 1
				}
				m.updateFocus()
				return m, nil
			}
		}
		if m.Focused >= 0 && m.Focused < len(m.Inputs) {
			m.Inputs[m.Focused], cmd = m.Inputs[m.Focused].Update(msg)
			cmds = append(cmds, cmd)
		}
	}

	return m, tea.Batch(cmds...)
}

func (m *ActionFormModel) updateFocus() {
	for i := range m.Inputs {
		if i == m.Focused {
			m.Inputs[i].Focus()
		} else {
			m.Inputs[i].Blur()
		}
	}
}

func (m ActionFormModel) submit() tea.Cmd {
	def := availableActions[m.Selected]
	values := make([]string, len(def.Fields))
	for i := range def.Fields {
		values[i] = m.Inputs[i].Value()
	}
	for i, field := range def.Fields {
		if field.Required && values[i] == "" {
			err := fmt.Errorf("%s is required", field.Name)
			return func() tea.Msg { return actionFormErrMsg{err} }
		}
	}
	action, err := def.Build(values)
	if err != nil {
		return func() tea.Msg { return actionFormErrMsg{err} }
	}
	return func() tea.Msg { return ActionSubmittedMsg{Action: action} }
}

type actionFormErrMsg struct{ err error }

func (m ActionFormModel) renderButton(text string, focused bool) string {
	if focused {
		return lipgloss.NewStyle().Foreground(lipgloss.Color("0")).Background(lipgloss.Color("205")).Padding(0, 3).Bold(true).Render(text)
	}
	return lipgloss.NewStyle().Foreground(lipgloss.Color("254")).Background(lipgloss.Color("240")).Padding(0, 3).Render(text)
}

func (m ActionFormModel) View() string {
	if m.State == StateSelecting {
		s := m.List.View()
		if m.Err != nil {
			s += "\n" + errorMessageStyle(m.Err.Error())
		}
		return s
	}

	def := availableActions[m.Selected]
	var s string

	title := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("99")).Render("Parameters: " + def.Name)
	s += title + "\n\n"

	for i, field := range def.Fields {
		label := field.Name
		if field.Required {
			label += " *"
		}

		labelStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("86"))
		if i == m.Focused {
			labelStyle = labelStyle.Foreground(lipgloss.Color("205")).Bold(true)
		}
		s += labelStyle.Render(label) + "\n"
		s += m.Inputs[i].View() + "\n\n"
	}

	submitBtn := m.renderButton("Apply", m.Focused == len(m.Inputs))
	backBtn := m.renderButton("Back", m.Focused == len(m.Inputs)+1)
	s += "\n" + lipgloss.JoinHorizontal(lipgloss.Top, submitBtn, lipgloss.NewStyle().MarginLeft(2).Render(backBtn))

	if m.Err != nil {
		s += "\n\n" + errorMessageStyle(m.Err.Error())
	}

	return lipgloss.NewStyle().Padding(1, 2).Render(s)
}
