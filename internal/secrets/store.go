// Package secrets keeps credential values out of task plans. Plans carry ${KEY}
// placeholders; the values live in a flat KEY=VALUE file managed by Store.
package secrets

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/rahul/planwright/internal/fsutil"
	"github.com/rahul/planwright/internal/plan"
)

// ErrInvalidEntry rejects keys or values the KEY=VALUE format cannot hold.
var ErrInvalidEntry = errors.New("invalid secret entry")

// Option configures a Store.
type Option func(*Store)

// WithEnvMirror also exports every loaded or written entry into the process
// environment, for collaborators that read secrets from env.
func WithEnvMirror() Option {
	return func(s *Store) { s.mirrorEnv = true }
}

// Store is the secret-resolution context: an in-memory view of the env file
// that is threaded through sanitization and rendering.
type Store struct {
	path      string
	mirrorEnv bool

	mu     sync.RWMutex
	values map[string]string
}

// Open loads the env file at path. A missing file is an empty store.
func Open(path string, opts ...Option) (*Store, error) {
	s := &Store{path: path, values: make(map[string]string)}
	for _, opt := range opts {
		opt(s)
	}

	lines, err := s.readLines()
	if err != nil {
		return nil, err
	}
	s.load(lines)
	return s, nil
}

// Path returns the backing file.
func (s *Store) Path() string { return s.path }

// Set persists key=value, replacing the existing line for key or appending one,
// and makes the value resolvable immediately.
func (s *Store) Set(key, value string) error {
	if key == "" || strings.ContainsAny(key, "=\r\n") || strings.TrimSpace(key) != key {
		return fmt.Errorf("%w: key %q", ErrInvalidEntry, key)
	}
	if strings.ContainsAny(value, "\r\n") {
		return fmt.Errorf("%w: value for %s contains a newline", ErrInvalidEntry, key)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	lines, err := s.readLines()
	if err != nil {
		return err
	}

	entry := key + "=" + value
	updated := false
	changed := true
	for i, line := range lines {
		if k, _, ok := parseLine(line); ok && k == key {
			changed = line != entry
			lines[i] = entry
			updated = true
			break
		}
	}
	if !updated {
		lines = append(lines, entry)
	}

	if changed {
		data := strings.Join(lines, "\n") + "\n"
		if err := fsutil.WriteFile(s.path, []byte(data), 0600); err != nil {
			return fmt.Errorf("failed to write secret store: %w", err)
		}
	}

	s.loadLocked(lines)
	return nil
}

// Lookup returns the value stored for key.
func (s *Store) Lookup(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Resolve maps a ${KEY} placeholder to its value, or "" when KEY is unset.
// Any other string is returned unchanged.
func (s *Store) Resolve(v string) string {
	key, ok := plan.PlaceholderKey(v)
	if !ok {
		return v
	}
	val, _ := s.Lookup(key)
	return val
}

// Keys lists stored keys in sorted order.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (s *Store) readLines() ([]string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read secret store: %w", err)
	}
	text := strings.TrimRight(strings.ReplaceAll(string(data), "\r\n", "\n"), "\n")
	if text == "" {
		return nil, nil
	}
	return strings.Split(text, "\n"), nil
}

func (s *Store) load(lines []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loadLocked(lines)
}

func (s *Store) loadLocked(lines []string) {
	values := make(map[string]string, len(lines))
	for _, line := range lines {
		if k, v, ok := parseLine(line); ok {
			values[k] = v
			if s.mirrorEnv {
				os.Setenv(k, v)
			}
		}
	}
	s.values = values
}

func parseLine(line string) (key, value string, ok bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return "", "", false
	}
	key, value, ok = strings.Cut(line, "=")
	if !ok || key == "" {
		return "", "", false
	}
	return key, value, true
}
