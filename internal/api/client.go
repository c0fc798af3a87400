package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"hostguard/internal/syncer"
)

// TokenSource yields the bearer token attached to every request.
// Implemented by the auth token store.
type TokenSource interface {
	Current() string
}

// Client talks to the dashboard backend's REST surface. It implements
// syncer.Backend.
type Client struct {
	baseURL string
	httpc   *http.Client
	tokens  TokenSource
	log     zerolog.Logger
}

func NewClient(baseURL string, timeout time.Duration, tokens TokenSource, log zerolog.Logger) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid backend base url %q", baseURL)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: timeout},
		tokens:  tokens,
		log:     log,
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.tokens != nil {
		if tok := c.tokens.Current(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}
	req.Header.Set("X-Request-ID", uuid.NewString())

	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Code: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func (c *Client) postAction(ctx context.Context, path string, action syncer.Action) (*syncer.DispatchResult, error) {
	payload := map[string]any{"action_type": string(action.Kind())}
	for k, v := range action.Params() {
		payload[k] = v
	}
	var env actionEnvelope
	if err := c.do(ctx, http.MethodPost, path, payload, &env); err != nil {
		return nil, err
	}
	return &syncer.DispatchResult{
		Executed:   env.Executed,
		Success:    env.Success,
		Message:    env.Message,
		CommandID:  env.CommandID,
		UFWCommand: env.UFWCommand,
		Error:      env.Error,
	}, nil
}

// PostQuickAction issues a firewall quick action.
func (c *Client) PostQuickAction(ctx context.Context, agentID string, action syncer.Action) (*syncer.DispatchResult, error) {
	return c.postAction(ctx, "/agents/"+url.PathEscape(agentID)+"/ufw/quick-action", action)
}

// PostBanAction issues a fail2ban ban/unban. Same response envelope as
// the ufw endpoint.
func (c *Client) PostBanAction(ctx context.Context, agentID string, action syncer.Action) (*syncer.DispatchResult, error) {
	return c.postAction(ctx, "/agents/"+url.PathEscape(agentID)+"/fail2ban/command", action)
}

// RequestSync nudges the backend to push pending state to the agent
// sooner than its next poll.
func (c *Client) RequestSync(ctx context.Context, agentID string) error {
	return c.do(ctx, http.MethodPost, "/agents/"+url.PathEscape(agentID)+"/ufw/request-sync", nil, nil)
}

// RecentCommands lists the agent's recently queued commands and their
// statuses.
func (c *Client) RecentCommands(ctx context.Context, agentID string) ([]syncer.CommandResult, error) {
	var state agentStateResponse
	if err := c.do(ctx, http.MethodGet, "/agents/"+url.PathEscape(agentID)+"/ufw?force=false", nil, &state); err != nil {
		return nil, err
	}
	out := make([]syncer.CommandResult, 0, len(state.RecentCommands))
	for _, rc := range state.RecentCommands {
		status, ok := parseStatus(rc.Status)
		if !ok {
			c.log.Debug().Str("status", rc.Status).Str("command", rc.CommandUUID).Msg("skipping command with unknown status")
			continue
		}
		out = append(out, syncer.CommandResult{
			ID:      rc.CommandUUID,
			Status:  status,
			Message: rc.ResultMessage,
		})
	}
	return out, nil
}

// CommandStatus reports a single command's current status, or nil when
// the backend does not list it yet.
func (c *Client) CommandStatus(ctx context.Context, agentID, commandID string) (*syncer.CommandResult, error) {
	results, err := c.RecentCommands(ctx, agentID)
	if err != nil {
		return nil, err
	}
	for i := range results {
		if results[i].ID == commandID {
			return &results[i], nil
		}
	}
	return nil, nil
}

// ListAgents returns the fleet for the dashboard table.
func (c *Client) ListAgents(ctx context.Context) ([]AgentInfo, error) {
	var agents []AgentInfo
	if err := c.do(ctx, http.MethodGet, "/agents", nil, &agents); err != nil {
		return nil, err
	}
	return agents, nil
}

func parseStatus(s string) (syncer.Status, bool) {
	switch syncer.Status(s) {
	case syncer.StatusPending:
		return syncer.StatusPending, true
	case syncer.StatusCompleted:
		return syncer.StatusCompleted, true
	case syncer.StatusFailed:
		return syncer.StatusFailed, true
	}
	return "", false
}
