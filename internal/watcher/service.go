package watcher

import (
	"path/filepath"
	"sync"

	"github.com/rs/zerolog"
)

// ReloadFunc re-reads a file after it changed.
type ReloadFunc func() error

// Service reloads registered files when they change on disk.
type Service struct {
	watcher *Watcher
	logger  zerolog.Logger

	reloaders map[string]ReloadFunc
	mu        sync.RWMutex
}

// NewService creates a new reload service.
func NewService(config Config, logger zerolog.Logger) (*Service, error) {
	w, err := New(config, logger)
	if err != nil {
		return nil, err
	}

	s := &Service{
		watcher:   w,
		logger:    logger.With().Str("component", "reload-service").Logger(),
		reloaders: make(map[string]ReloadFunc),
	}
	w.SetHandler(s.handleEvents)
	return s, nil
}

// Register calls reload whenever path is written, created or replaced.
func (s *Service) Register(path string, reload ReloadFunc) error {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := s.watcher.AddFile(absPath); err != nil {
		return err
	}

	s.mu.Lock()
	s.reloaders[absPath] = reload
	s.mu.Unlock()
	return nil
}

// Start begins watching.
func (s *Service) Start() {
	s.watcher.Start()
	s.logger.Info().Int("files", len(s.watcher.WatchedFiles())).Msg("Reload service started")
}

// Stop stops watching.
func (s *Service) Stop() error {
	return s.watcher.Stop()
}

func (s *Service) handleEvents(events []FileEvent) {
	for _, event := range events {
		if event.Op == OpRemove {
			s.logger.Warn().Str("path", event.Path).Msg("Watched file removed, keeping last loaded version")
			continue
		}

		s.mu.RLock()
		reload, ok := s.reloaders[event.Path]
		s.mu.RUnlock()
		if !ok {
			continue
		}

		if err := reload(); err != nil {
			s.logger.Error().Err(err).Str("path", event.Path).Msg("Failed to reload file")
			continue
		}
		s.logger.Info().Str("path", event.Path).Str("op", string(event.Op)).Msg("Reloaded file")
	}
}
