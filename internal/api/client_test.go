package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hostguard/internal/syncer"
)

type staticToken string

func (s staticToken) Current() string { return string(s) }

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c, err := NewClient(srv.URL, time.Second, staticToken("tok-123"), zerolog.Nop())
	require.NoError(t, err)
	return c
}

func TestNewClientRejectsBadURL(t *testing.T) {
	_, err := NewClient("not a url", time.Second, nil, zerolog.Nop())
	assert.Error(t, err)
	_, err = NewClient("", time.Second, nil, zerolog.Nop())
	assert.Error(t, err)
}

func TestQuickActionRequestShape(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/agents/agent-1/ufw/quick-action", r.URL.Path)
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "allow_port", body["action_type"])
		assert.Equal(t, float64(22), body["port"])
		assert.Equal(t, "tcp", body["protocol"])

		json.NewEncoder(w).Encode(map[string]any{
			"executed": true, "success": true, "message": "rule added",
		})
	})

	action, err := syncer.AllowPort(22, "tcp")
	require.NoError(t, err)
	res, err := c.PostQuickAction(context.Background(), "agent-1", action)
	require.NoError(t, err)
	assert.True(t, res.Executed)
	assert.True(t, res.Success)
	assert.Equal(t, "rule added", res.Message)
	assert.Empty(t, res.CommandID)
}

func TestQuickActionQueuedResponse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"executed":    false,
			"success":     true,
			"command_id":  "abc123",
			"ufw_command": "ufw deny from 1.2.3.4",
		})
	})

	action, err := syncer.BlockIP("1.2.3.4")
	require.NoError(t, err)
	res, err := c.PostQuickAction(context.Background(), "agent-1", action)
	require.NoError(t, err)
	assert.False(t, res.Executed)
	assert.True(t, res.Success)
	assert.Equal(t, "abc123", res.CommandID)
	assert.Equal(t, "ufw deny from 1.2.3.4", res.UFWCommand)
}

func TestBanActionUsesFail2banPath(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/agents/agent-1/fail2ban/command", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "ban_ip", body["action_type"])
		assert.Equal(t, "sshd", body["jail"])
		json.NewEncoder(w).Encode(map[string]any{"executed": true, "success": true})
	})

	action, err := syncer.BanIP("1.2.3.4", "sshd", 600)
	require.NoError(t, err)
	_, err = c.PostBanAction(context.Background(), "agent-1", action)
	require.NoError(t, err)
}

func TestServerErrorSurfacesStatusError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	})

	action, err := syncer.AllowPort(22, "tcp")
	require.NoError(t, err)
	_, err = c.PostQuickAction(context.Background(), "agent-1", action)
	require.Error(t, err)

	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusInternalServerError, statusErr.Code)
	assert.Contains(t, statusErr.Body, "boom")
}

func TestRecentCommandsParsing(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/agents/agent-1/ufw", r.URL.Path)
		assert.Equal(t, "false", r.URL.Query().Get("force"))
		json.NewEncoder(w).Encode(map[string]any{
			"recent_commands": []map[string]any{
				{"command_uuid": "a", "status": "pending"},
				{"command_uuid": "b", "status": "completed", "result_message": "ok"},
				{"command_uuid": "c", "status": "exploded"},
			},
		})
	})

	results, err := c.RecentCommands(context.Background(), "agent-1")
	require.NoError(t, err)
	require.Len(t, results, 2, "unknown statuses are dropped")
	assert.Equal(t, syncer.StatusPending, results[0].Status)
	assert.Equal(t, "b", results[1].ID)
	assert.Equal(t, "ok", results[1].Message)
}

func TestCommandStatusFiltersByID(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"recent_commands": []map[string]any{
				{"command_uuid": "a", "status": "completed", "result_message": "done"},
			},
		})
	})

	res, err := c.CommandStatus(context.Background(), "agent-1", "a")
	require.NoError(t, err)
	require.NotNil(t, res)
	assert.Equal(t, syncer.StatusCompleted, res.Status)

	res, err = c.CommandStatus(context.Background(), "agent-1", "missing")
	require.NoError(t, err)
	assert.Nil(t, res)
}

func TestRequestSync(t *testing.T) {
	var hit bool
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hit = true
		assert.Equal(t, "/agents/agent-1/ufw/request-sync", r.URL.Path)
		w.WriteHeader(http.StatusAccepted)
	})

	require.NoError(t, c.RequestSync(context.Background(), "agent-1"))
	assert.True(t, hit)
}

func TestListAgents(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/agents", r.URL.Path)
		json.NewEncoder(w).Encode([]map[string]any{
			{"id": "agent-1", "hostname": "web-01", "os": "ubuntu", "online": true},
			{"id": "agent-2", "hostname": "db-01", "os": "debian", "online": false},
		})
	})

	agents, err := c.ListAgents(context.Background())
	require.NoError(t, err)
	require.Len(t, agents, 2)
	assert.Equal(t, "web-01", agents[0].Hostname)
	assert.False(t, agents[1].Online)
}
