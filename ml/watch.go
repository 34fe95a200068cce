package ml

import (
	"context"
	"fmt"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const reloadDebounce = 250 * time.Millisecond

// Store swaps whole artifact sets in place. Readers always get one complete,
// immutable set.
type Store struct {
	spec    ArtifactSpec
	current atomic.Pointer[Artifacts]
	logger  *zap.Logger
}

func NewStore(initial *Artifacts, logger *zap.Logger) *Store {
	s := &Store{spec: initial.Spec(), logger: logger}
	s.current.Store(initial)
	return s
}

func (s *Store) Current() *Artifacts {
	return s.current.Load()
}

// Reload reads the files again. On failure the previous set stays active.
func (s *Store) Reload() error {
	next, err := LoadArtifacts(s.spec)
	if err != nil {
		return err
	}
	if err := next.CheckSchema(); err != nil {
		s.logger.Warn("reloaded artifacts do not match schema", zap.Error(err))
	}
	prev := s.current.Swap(next)
	s.logger.Info("artifacts reloaded",
		zap.String("schema", s.spec.Schema.Name),
		zap.Uint64("previous_generation", prev.Generation()),
		zap.Uint64("generation", next.Generation()),
	)
	return nil
}

// Watch reloads the artifacts whenever one of their files changes, until ctx
// is done. onReload, if set, observes every reload attempt.
func (s *Store) Watch(ctx context.Context, onReload func(error)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create artifact watcher: %w", err)
	}
	defer watcher.Close()

	targets := map[string]bool{}
	for _, path := range []string{s.spec.ScalerPath, s.spec.ModelPath} {
		abs, err := filepath.Abs(path)
		if err != nil {
			return err
		}
		targets[abs] = true
	}
	// Watch directories so that editors replacing files by rename still fire.
	dirs := map[string]bool{}
	for path := range targets {
		dir := filepath.Dir(path)
		if dirs[dir] {
			continue
		}
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
		dirs[dir] = true
	}

	var debounce <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil || !targets[abs] {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			s.logger.Debug("artifact changed", zap.String("file", event.Name), zap.String("op", event.Op.String()))
			debounce = time.After(reloadDebounce)
		case <-debounce:
			debounce = nil
			err := s.Reload()
			if err != nil {
				s.logger.Error("artifact reload failed, keeping previous set",
					zap.String("schema", s.spec.Schema.Name), zap.Error(err))
			}
			if onReload != nil {
				onReload(err)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.logger.Warn("artifact watcher error", zap.Error(err))
		}
	}
}
