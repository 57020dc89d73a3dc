// Package scenario is the scenario collaborator: a YAML-defined name/state
// bag that the avatar's behaviors key off. Loads and updates cross the
// scenario checkpoints so hooks and subscribers track every change.
package scenario

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"

	"github.com/semperai/amica-bridge/internal/events"
	"github.com/semperai/amica-bridge/internal/hooks"
)

// file is the on-disk scenario shape.
type file struct {
	Name  string         `yaml:"name"`
	State map[string]any `yaml:"state"`
}

// Store holds the active scenario.
type Store struct {
	hooks *hooks.Engine

	mu    sync.RWMutex
	name  string
	state map[string]any
	path  string

	watcher *fsnotify.Watcher
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewStore creates an empty scenario store.
func NewStore(engine *hooks.Engine) *Store {
	return &Store{
		hooks: engine,
		state: make(map[string]any),
	}
}

// Get returns the scenario name and a copy of its state.
func (s *Store) Get() (string, map[string]any) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.name, cloneState(s.state)
}

// Load reads a scenario file and triggers scenario:load with the parsed
// content; the post-pipeline payload becomes the active scenario.
func (s *Store) Load(ctx context.Context, path string) error {
	f, err := readFile(path)
	if err != nil {
		return err
	}

	p := events.Scenario{Name: f.Name, State: f.State}
	if out, ok := s.hooks.Trigger(ctx, events.ScenarioLoad, p).(events.Scenario); ok {
		p = out
	}

	s.mu.Lock()
	s.name = p.Name
	s.state = cloneState(p.State)
	s.path = path
	s.mu.Unlock()

	log.Info().Str("name", p.Name).Str("path", path).Msg("Scenario loaded")
	return nil
}

// Update merges new state into the active scenario and triggers
// scenario:update with the merged result; the post-pipeline payload is what
// gets stored.
func (s *Store) Update(ctx context.Context, state map[string]any) (map[string]any, error) {
	s.mu.Lock()
	merged := cloneState(s.state)
	for k, v := range state {
		merged[k] = v
	}
	name := s.name
	s.mu.Unlock()

	p := events.Scenario{Name: name, State: merged}
	if out, ok := s.hooks.Trigger(ctx, events.ScenarioUpdate, p).(events.Scenario); ok {
		p = out
	}

	s.mu.Lock()
	s.name = p.Name
	s.state = cloneState(p.State)
	s.mu.Unlock()

	return cloneState(p.State), nil
}

// Watch reloads the scenario file on change, triggering scenario:update with
// the fresh content. Events for the same file are debounced.
func (s *Store) Watch(ctx context.Context) error {
	s.mu.RLock()
	path := s.path
	s.mu.RUnlock()

	if path == "" {
		return fmt.Errorf("no scenario file loaded")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	// Watch the directory: editors replace files on save, which drops a
	// watch on the file itself.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watching %s: %w", path, err)
	}

	s.watcher = watcher
	s.done = make(chan struct{})
	s.wg.Add(1)
	go s.watchLoop(ctx, path)

	log.Info().Str("path", path).Msg("Watching scenario file")
	return nil
}

func (s *Store) watchLoop(ctx context.Context, path string) {
	defer s.wg.Done()

	var timer *time.Timer
	reload := make(chan struct{}, 1)

	for {
		select {
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(path) {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(100*time.Millisecond, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})
		case <-reload:
			s.reload(ctx, path)
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("Scenario watcher error")
		case <-s.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (s *Store) reload(ctx context.Context, path string) {
	f, err := readFile(path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("Scenario reload failed")
		return
	}

	p := events.Scenario{Name: f.Name, State: f.State}
	if out, ok := s.hooks.Trigger(ctx, events.ScenarioUpdate, p).(events.Scenario); ok {
		p = out
	}

	s.mu.Lock()
	s.name = p.Name
	s.state = cloneState(p.State)
	s.mu.Unlock()

	log.Info().Str("name", p.Name).Msg("Scenario reloaded")
}

// Close stops the file watcher.
func (s *Store) Close() {
	if s.watcher == nil {
		return
	}
	close(s.done)
	s.watcher.Close()
	s.wg.Wait()
}

func readFile(path string) (*file, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}

	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing scenario: %w", err)
	}
	if f.State == nil {
		f.State = make(map[string]any)
	}
	return &f, nil
}

func cloneState(state map[string]any) map[string]any {
	out := make(map[string]any, len(state))
	for k, v := range state {
		out[k] = v
	}
	return out
}
