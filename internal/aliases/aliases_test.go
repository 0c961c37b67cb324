package aliases

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudseek/cloudseek/internal/watcher"
)

func writeAliases(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
}

func TestStore_Load(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aliases.yaml")
	writeAliases(t, path, `
aliases:
  TT2560140:
    - Shingeki no Kyojin
    - " SnK "
    - snk
    - ""
  tt0903747:
    - BB
`)

	s := NewStore(path, zerolog.Nop())
	require.NoError(t, s.Load())

	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []string{"Shingeki no Kyojin", "SnK"}, s.Lookup("tt2560140"))
	assert.Equal(t, []string{"BB"}, s.Lookup(" TT0903747 "))
	assert.Nil(t, s.Lookup("tt0000000"))
}

func TestStore_LookupReturnsCopy(t *testing.T) {
	s := NewStore("", zerolog.Nop())
	s.Replace(map[string][]string{"tt1": {"A"}})

	got := s.Lookup("tt1")
	got[0] = "mutated"
	assert.Equal(t, []string{"A"}, s.Lookup("tt1"))
}

func TestStore_LoadErrors(t *testing.T) {
	assert.NoError(t, NewStore("", zerolog.Nop()).Load(), "no path configured")

	assert.Error(t, NewStore(filepath.Join(t.TempDir(), "missing.yaml"), zerolog.Nop()).Load())

	path := filepath.Join(t.TempDir(), "bad.yaml")
	writeAliases(t, path, "aliases: [\n")
	s := NewStore(path, zerolog.Nop())
	s.Replace(map[string][]string{"tt1": {"kept"}})
	assert.Error(t, s.Load())
	assert.Equal(t, []string{"kept"}, s.Lookup("tt1"))
}

func TestStore_HotReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aliases.yaml")
	writeAliases(t, path, "aliases:\n  tt1: [First]\n")

	s := NewStore(path, zerolog.Nop())
	require.NoError(t, s.Load())

	svc, err := watcher.NewService(watcher.Config{DebounceDelay: 20 * time.Millisecond}, zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, svc.Register(path, s.Load))
	svc.Start()
	defer svc.Stop()

	writeAliases(t, path, "aliases:\n  tt1: [Second]\n")
	assert.Eventually(t, func() bool {
		got := s.Lookup("tt1")
		return len(got) == 1 && got[0] == "Second"
	}, 2*time.Second, 10*time.Millisecond)
}
