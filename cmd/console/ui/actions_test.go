package ui

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hostguard/internal/syncer"
)

func findAction(t *testing.T, name string) ActionDef {
	t.Helper()
	for _, def := range availableActions {
		if def.Name == name {
			return def
		}
	}
	t.Fatalf("no action named %q", name)
	return ActionDef{}
}

func TestActionDefsBuildValidActions(t *testing.T) {
	allow := findAction(t, "Allow port")
	a, err := allow.Build([]string{"443", "tcp"})
	require.NoError(t, err)
	assert.Equal(t, syncer.ActionAllowPort, a.Kind())

	ban := findAction(t, "Ban IP")
	a, err = ban.Build([]string{"198.51.100.9", "sshd", "600"})
	require.NoError(t, err)
	assert.Equal(t, syncer.ActionBanIP, a.Kind())
	assert.True(t, a.Fail2ban())

	enable := findAction(t, "Enable firewall")
	a, err = enable.Build(nil)
	require.NoError(t, err)
	assert.Equal(t, syncer.ActionEnableFirewall, a.Kind())
}

func TestActionDefsRejectBadInput(t *testing.T) {
	allow := findAction(t, "Allow port")
	_, err := allow.Build([]string{"not-a-port", "tcp"})
	assert.Error(t, err)

	reorder := findAction(t, "Reorder rule")
	_, err = reorder.Build([]string{"1", "zero"})
	assert.Error(t, err)
}

func TestEveryActionHasABuilder(t *testing.T) {
	for _, def := range availableActions {
		assert.NotNil(t, def.Build, def.Name)
	}
}
