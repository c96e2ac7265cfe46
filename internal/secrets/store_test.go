package secrets

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), ".env"), opts...)
	require.NoError(t, err)
	return s
}

func TestSetThenResolve(t *testing.T) {
	s := newStore(t)
	pairs := map[string]string{
		"PASSWORD_INSTAGRAM": "Secret123",
		"USERNAME_GMAIL":     "bob@example.com",
		"PASSWORD_GENERAL":   "a=b=c",
		"EMPTY":              "",
	}
	for k, v := range pairs {
		require.NoError(t, s.Set(k, v))
	}
	for k, v := range pairs {
		assert.Equal(t, v, s.Resolve("${"+k+"}"), k)
	}

	reopened, err := Open(s.Path())
	require.NoError(t, err)
	for k, v := range pairs {
		assert.Equal(t, v, reopened.Resolve("${"+k+"}"), k)
	}
}

func TestSetOverwritesInPlace(t *testing.T) {
	s := newStore(t)
	require.NoError(t, os.WriteFile(s.Path(), []byte("# creds\nA=1\nPASSWORD_X=old\nB=2\n"), 0600))

	require.NoError(t, s.Set("PASSWORD_X", "new"))
	require.NoError(t, s.Set("PASSWORD_X", "new"))

	data, err := os.ReadFile(s.Path())
	require.NoError(t, err)
	assert.Equal(t, "# creds\nA=1\nPASSWORD_X=new\nB=2\n", string(data))
	assert.Equal(t, 1, strings.Count(string(data), "PASSWORD_X="))

	v, ok := s.Lookup("A")
	require.True(t, ok)
	assert.Equal(t, "1", v)
}

func TestSetPicksUpExternalEntries(t *testing.T) {
	s := newStore(t)
	require.NoError(t, s.Set("A", "1"))
	require.NoError(t, os.WriteFile(s.Path(), []byte("A=1\nEXTERNAL=yes\n"), 0600))

	require.NoError(t, s.Set("B", "2"))
	assert.Equal(t, "yes", s.Resolve("${EXTERNAL}"))
	assert.Equal(t, []string{"A", "B", "EXTERNAL"}, s.Keys())
}

func TestResolve(t *testing.T) {
	s := newStore(t)
	assert.Equal(t, "", s.Resolve("${UNSET_KEY}"))
	assert.Equal(t, "literal", s.Resolve("literal"))
	assert.Equal(t, "pre${X}", s.Resolve("pre${X}"))
}

func TestSetRejectsInvalidEntries(t *testing.T) {
	s := newStore(t)
	require.ErrorIs(t, s.Set("", "v"), ErrInvalidEntry)
	require.ErrorIs(t, s.Set("A=B", "v"), ErrInvalidEntry)
	require.ErrorIs(t, s.Set("A", "line1\nline2"), ErrInvalidEntry)

	_, err := os.Stat(s.Path())
	assert.True(t, os.IsNotExist(err), "nothing should be written for rejected entries")
}

func TestEnvMirror(t *testing.T) {
	t.Setenv("PLANWRIGHT_TEST_SECRET", "")
	s := newStore(t, WithEnvMirror())
	require.NoError(t, s.Set("PLANWRIGHT_TEST_SECRET", "mirrored"))
	assert.Equal(t, "mirrored", os.Getenv("PLANWRIGHT_TEST_SECRET"))
}
