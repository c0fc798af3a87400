package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"hostguard/internal/syncer"
)

type Backend struct {
	BaseURL string
	Timeout time.Duration
}

type Sync struct {
	QueueCapacity       int
	QueuePollInterval   time.Duration
	CommandPollInterval time.Duration
	CommandPollAttempts int
	TerminalDwell       time.Duration
	PruneGrace          time.Duration
}

type Config struct {
	Backend     Backend
	Sync        Sync
	TokenPath   string
	HistoryPath string
	LogPath     string
}

// Load reads the console config. A missing file is fine; defaults cover
// everything.
func Load(path string) (*Config, error) {
	defaultDir := filepath.Join(os.TempDir(), "hostguard")

	v := viper.New()
	if path == "" {
		path = filepath.Join("config", "config.yaml")
	}
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// defaults
	v.SetDefault("console.backend.base_url", "http://127.0.0.1:9400")
	v.SetDefault("console.backend.timeout_sec", 10)
	v.SetDefault("console.sync.queue_capacity", syncer.DefaultQueueCapacity)
	v.SetDefault("console.sync.queue_poll_ms", 2000)
	v.SetDefault("console.sync.command_poll_ms", 1000)
	v.SetDefault("console.sync.command_poll_attempts", syncer.DefaultCommandAttempts)
	v.SetDefault("console.sync.dwell_ms", 1500)
	v.SetDefault("console.sync.prune_grace_ms", 1200)
	v.SetDefault("console.token_path", filepath.Join(defaultDir, "console.token"))
	v.SetDefault("console.history_path", filepath.Join(defaultDir, "history.db"))
	v.SetDefault("console.log_path", filepath.Join(defaultDir, "console.log"))
	_ = v.ReadInConfig()

	cfg := &Config{
		Backend: Backend{
			BaseURL: v.GetString("console.backend.base_url"),
			Timeout: time.Duration(v.GetInt("console.backend.timeout_sec")) * time.Second,
		},
		Sync: Sync{
			QueueCapacity:       v.GetInt("console.sync.queue_capacity"),
			QueuePollInterval:   time.Duration(v.GetInt("console.sync.queue_poll_ms")) * time.Millisecond,
			CommandPollInterval: time.Duration(v.GetInt("console.sync.command_poll_ms")) * time.Millisecond,
			CommandPollAttempts: v.GetInt("console.sync.command_poll_attempts"),
			TerminalDwell:       time.Duration(v.GetInt("console.sync.dwell_ms")) * time.Millisecond,
			PruneGrace:          time.Duration(v.GetInt("console.sync.prune_grace_ms")) * time.Millisecond,
		},
		TokenPath:   v.GetString("console.token_path"),
		HistoryPath: v.GetString("console.history_path"),
		LogPath:     v.GetString("console.log_path"),
	}
	return cfg, nil
}

// Tunables maps the sync section onto the pipeline's knobs.
func (c *Config) Tunables() syncer.Tunables {
	return syncer.Tunables{
		QueueCapacity:     c.Sync.QueueCapacity,
		QueuePollInterval: c.Sync.QueuePollInterval,
		CommandPoll: syncer.RetryPolicy{
			Interval:    c.Sync.CommandPollInterval,
			MaxAttempts: c.Sync.CommandPollAttempts,
		},
		TerminalDwell:  c.Sync.TerminalDwell,
		PruneGrace:     c.Sync.PruneGrace,
		RequestTimeout: c.Backend.Timeout,
	}
}
