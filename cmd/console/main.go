package main

import (
	"flag"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"hostguard/cmd/console/ui"
	"hostguard/internal/api"
	"hostguard/internal/auth"
	"hostguard/internal/config"
	"hostguard/internal/history"
	"hostguard/internal/logger"
	"hostguard/internal/syncer"
)

func main() {
	configPath := flag.String("config", "", "Path to config.yaml")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.Init(cfg.LogPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}

	tokens := auth.NewTokenStore(cfg.TokenPath)
	if err := tokens.Load(); err != nil {
		log.Warn().Err(err).Msg("could not read stored token")
	}

	hist, err := history.Open(cfg.HistoryPath, log)
	if err != nil {
		// The console works without local history.
		log.Warn().Err(err).Msg("command history disabled")
		hist = nil
	}

	client, err := api.NewClient(cfg.Backend.BaseURL, cfg.Backend.Timeout, tokens, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "backend client: %v\n", err)
		os.Exit(1)
	}

	var recorder syncer.HistoryRecorder
	if hist != nil {
		recorder = hist
	}
	manager := syncer.NewManager(client, cfg.Tunables(), recorder, log)

	sess := ui.NewSession(manager, client, tokens, hist, cfg.Backend.Timeout)

	// Sync tunables follow the config file while running. Backend URL
	// and storage paths still need a restart.
	if *configPath != "" {
		watcher, err := config.Watch(*configPath, log, func(fresh *config.Config) {
			manager.SetTunables(fresh.Tunables())
			log.Info().Msg("sync tunables updated from config")
		})
		if err != nil {
			log.Warn().Err(err).Msg("config watcher unavailable")
		} else {
			defer watcher.Close()
		}
	}

	log.Info().Str("backend", cfg.Backend.BaseURL).Msg("console starting")

	p := tea.NewProgram(ui.NewRootModel(sess), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		log.Error().Err(err).Msg("console exited with error")
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
