package ui

import (
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

type errMsg error

// TokenModel asks for an API token when the stored one is missing or
// expired. The token is persisted so the next start skips this screen.
type TokenModel struct {
	Session *Session
	Input   textinput.Model
	Err     error
}

// TokenAcceptedMsg signals transition to the dashboard.
type TokenAcceptedMsg struct{}

func NewTokenModel(s *Session) TokenModel {
	ti := textinput.New()
	ti.Placeholder = "Paste your API token"
	ti.Prompt = "Token: "
	ti.EchoMode = textinput.EchoPassword
	ti.CharLimit = 4096
	ti.Focus()

	return TokenModel{
		Session: s,
		Input:   ti,
	}
}

func (m TokenModel) Init() tea.Cmd {
	return textinput.Blink
}

func (m TokenModel) Update(msg tea.Msg) (TokenModel, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		if msg.Type == tea.KeyEnter {
			return m, m.saveCmd
		}
	case errMsg:
		m.Err = msg
		return m, nil
	}

	m.Input, cmd = m.Input.Update(msg)
	return m, cmd
}

func (m TokenModel) saveCmd() tea.Msg {
	token := strings.TrimSpace(m.Input.Value())
	if token == "" {
		return errMsg(errors.New("token is required"))
	}
	if err := m.Session.Tokens.Save(token); err != nil {
		return errMsg(err)
	}
	if m.Session.Tokens.Expired(time.Now()) {
		return errMsg(errors.New("that token is already expired"))
	}
	return TokenAcceptedMsg{}
}

func (m TokenModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Host Guard - Authentication") + "\n\n")
	b.WriteString(m.Input.View())
	b.WriteString("\n\n")
	b.WriteString(blurredStyle.Render("Paste a backend API token and press Enter"))

	if m.Err != nil {
		b.WriteString("\n\n")
		b.WriteString(errorMessageStyle(m.Err.Error()))
	}

	return b.String()
}
