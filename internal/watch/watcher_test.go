package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recorder struct {
	mu    sync.Mutex
	tasks []string
}

func (r *recorder) handle(task string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks = append(r.tasks, task)
	return nil
}

func (r *recorder) seen() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.tasks...)
}

func TestWatcherRegeneratesOnJSONWrite(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}

	w, err := New(dir, rec.handle, nil)
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "login_steps.txt"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".login.json.tmp.abcd1234"), []byte("{}"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "login.json"), []byte(`{"task":"login","steps":[]}`), 0644))

	assert.Eventually(t, func() bool { return len(rec.seen()) > 0 }, 3*time.Second, 20*time.Millisecond)

	// Bursts of writes to the same file collapse into one call.
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, []string{"login"}, rec.seen())
}

func TestWatcherStopsWithContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	w, err := New(t.TempDir(), func(string) error { return nil }, nil)
	require.NoError(t, err)
	require.NoError(t, w.Start(ctx))
	cancel()
	w.Stop()
}

func TestStartFailsForMissingDir(t *testing.T) {
	w, err := New(filepath.Join(t.TempDir(), "missing"), func(string) error { return nil }, nil)
	require.NoError(t, err)
	assert.Error(t, w.Start(context.Background()))
	w.Stop()
}
