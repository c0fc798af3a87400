package config

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// Watcher reloads the config when the file changes and hands the fresh
// Config to the callback. Editors replace files rather than writing in
// place, so the parent directory is watched and events are filtered by
// name.
type Watcher struct {
	watcher *fsnotify.Watcher
	path    string
	log     zerolog.Logger

	stop chan struct{}
	wg   sync.WaitGroup
	once sync.Once
}

func Watch(path string, log zerolog.Logger, onChange func(*Config)) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		fw.Close()
		return nil, err
	}

	w := &Watcher{
		watcher: fw,
		path:    abs,
		log:     log,
		stop:    make(chan struct{}),
	}
	w.wg.Add(1)
	go w.run(onChange)
	return w, nil
}

func (w *Watcher) run(onChange func(*Config)) {
	defer w.wg.Done()

	// Debounce: editors emit bursts of write/rename events per save.
	var pending *time.Timer
	fire := func() {
		cfg, err := Load(w.path)
		if err != nil {
			w.log.Error().Err(err).Str("path", w.path).Msg("config reload failed")
			return
		}
		w.log.Info().Str("path", w.path).Msg("config reloaded")
		onChange(cfg)
	}

	for {
		select {
		case <-w.stop:
			if pending != nil {
				pending.Stop()
			}
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if pending != nil {
				pending.Stop()
			}
			pending = time.AfterFunc(100*time.Millisecond, fire)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Error().Err(err).Msg("config watcher error")
		}
	}
}

func (w *Watcher) Close() {
	w.once.Do(func() {
		close(w.stop)
		w.watcher.Close()
		w.wg.Wait()
	})
}
