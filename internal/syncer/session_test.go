package syncer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionLifecycle(t *testing.T) {
	s := NewSession()
	assert.Equal(t, StateIdle, s.State())

	gen := s.Begin(OpUFW, "Applying: Allow port 22/tcp")
	assert.Equal(t, StateActive, s.State())
	assert.Equal(t, OpUFW, s.OperationType())
	assert.Equal(t, uint64(1), gen)

	require.NoError(t, s.Succeed("rule added"))
	assert.Equal(t, StateSuccess, s.State())
	assert.Equal(t, "rule added", s.Message())

	require.NoError(t, s.Settle())
	assert.Equal(t, StateIdle, s.State())
}

func TestSessionBeginBumpsGenerationAndResetsActivity(t *testing.T) {
	s := NewSession()
	g1 := s.Begin(OpUFW, "first")
	s.Note("waiting")
	assert.Len(t, s.Activity(), 2)

	g2 := s.Begin(OpFail2ban, "second")
	assert.Greater(t, g2, g1)
	assert.Equal(t, OpFail2ban, s.OperationType())
	require.Len(t, s.Activity(), 1)
	assert.Equal(t, "second", s.Activity()[0].Message)
}

func TestSessionReentrantBeginWhileActive(t *testing.T) {
	s := NewSession()
	s.Begin(OpUFW, "first")
	g2 := s.Begin(OpUFW, "second")
	assert.Equal(t, StateActive, s.State())
	assert.Equal(t, uint64(2), g2)
	assert.Equal(t, "second", s.Message())
}

func TestSessionTerminalFromNonActiveFails(t *testing.T) {
	s := NewSession()
	assert.Error(t, s.Succeed("nope"))
	assert.Error(t, s.Fail("nope"))
	assert.Error(t, s.Settle())

	s.Begin(OpUFW, "go")
	require.NoError(t, s.Fail("agent rejected"))
	// Already terminal: a second resolution is rejected by the machine.
	assert.Error(t, s.Succeed("late"))
	assert.Equal(t, StateFailure, s.State())
	assert.Equal(t, "agent rejected", s.Message())
}

func TestSessionCancel(t *testing.T) {
	s := NewSession()
	s.Begin(OpUFW, "go")
	require.NoError(t, s.Cancel())
	assert.Equal(t, StateIdle, s.State())

	entries := s.Activity()
	require.NotEmpty(t, entries)
	assert.Equal(t, SeverityInfo, entries[len(entries)-1].Severity)

	// Cancel is only legal while Active.
	assert.Error(t, s.Cancel())
}

func TestSessionLastSyncOnlyOnSuccess(t *testing.T) {
	s := NewSession()

	s.Begin(OpUFW, "go")
	require.NoError(t, s.Fail("boom"))
	_, ok := s.LastSync(OpUFW)
	assert.False(t, ok)

	s.Begin(OpUFW, "again")
	require.NoError(t, s.Succeed("done"))
	ts, ok := s.LastSync(OpUFW)
	assert.True(t, ok)
	assert.False(t, ts.IsZero())

	_, ok = s.LastSync(OpFail2ban)
	assert.False(t, ok)
}

func TestSessionActivitySeverities(t *testing.T) {
	s := NewSession()
	s.Begin(OpGeneral, "start")
	s.Note("progress")
	require.NoError(t, s.Fail("broke"))

	entries := s.Activity()
	require.Len(t, entries, 3)
	assert.Equal(t, SeverityInfo, entries[0].Severity)
	assert.Equal(t, SeverityInfo, entries[1].Severity)
	assert.Equal(t, SeverityError, entries[2].Severity)
}

func TestSessionNoteIgnoredWhenNotActive(t *testing.T) {
	s := NewSession()
	s.Note("nobody home")
	assert.Empty(t, s.Activity())
	assert.Empty(t, s.Message())
}
