package snapshot

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudseek/cloudseek/internal/media"
	"github.com/cloudseek/cloudseek/internal/provider"
)

const catalog = `
items:
  - id: t1
    name: Show.S01.1080p.WEB-DL
    kind: torrent
    created_at: 2024-05-01T10:00:00Z
    files:
      - name: Show.S01E01.1080p.mkv
        size: 100
      - name: Show.S01E02.1080p.mkv
        size: 120
  - id: d1
    name: The.Matrix.1999.1080p.mkv
    kind: download
    files:
      - name: The.Matrix.1999.1080p.mkv
        size: 900
        link: https://cdn.example/matrix
`

func writeCatalog(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func newTestProvider(t *testing.T, opts Options) *Provider {
	t.Helper()
	if opts.Path == "" {
		opts.Path = writeCatalog(t, catalog)
	}
	if opts.Kind == "" {
		opts.Kind = provider.KindRealDebrid
	}
	p, err := New(opts, zerolog.Nop())
	require.NoError(t, err)
	return p
}

func TestBulkList(t *testing.T) {
	p := newTestProvider(t, Options{})

	items, err := p.BulkList(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, "t1", items[0].ID)
	assert.True(t, items[0].Container)
	assert.Empty(t, items[0].Videos, "containers are listed without files")
	assert.Equal(t, int64(220), items[0].Size)
	assert.Equal(t, 2024, items[0].CreatedAt.Year())

	assert.False(t, items[1].Container)
	require.Len(t, items[1].Videos, 1)
	assert.Equal(t, media.ItemDownload, items[1].Kind)
}

func TestBulkList_ReturnsFreshCopies(t *testing.T) {
	p := newTestProvider(t, Options{})

	first, err := p.BulkList(context.Background(), "")
	require.NoError(t, err)
	first[0].Name = "mutated"

	second, err := p.BulkList(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, "Show.S01.1080p.WEB-DL", second[0].Name)
}

func TestBulkList_Disabled(t *testing.T) {
	p := newTestProvider(t, Options{DisableBulk: true})
	_, err := p.BulkList(context.Background(), "")
	assert.ErrorIs(t, err, provider.ErrBulkUnsupported)
}

func TestSearchByTitle(t *testing.T) {
	p := newTestProvider(t, Options{})

	got, err := p.SearchByTitle(context.Background(), "", "matrix", 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "d1", got[0].ID)

	got, err = p.SearchByTitle(context.Background(), "", "shwo", 0.3)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "t1", got[0].ID)

	got, err = p.SearchByTitle(context.Background(), "", "", 1)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestGetDetails(t *testing.T) {
	p := newTestProvider(t, Options{})

	c, err := p.GetDetails(context.Background(), "", "t1")
	require.NoError(t, err)
	require.Len(t, c.Videos, 2)
	assert.Equal(t, "Show.S01E02.1080p.mkv", c.Videos[1].Name)

	_, err = p.GetDetails(context.Background(), "", "missing")
	assert.ErrorIs(t, err, provider.ErrNotFound)
}

func TestBuildStreamURL(t *testing.T) {
	p := newTestProvider(t, Options{StreamBaseURL: "http://localhost:7000/stream/"})
	ctx := context.Background()

	u, err := p.BuildStreamURL(ctx, "", "t 1", &media.VideoFile{Name: "Show S01E01.mkv"})
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:7000/stream/realdebrid/t%201/Show%20S01E01.mkv", u)

	u, err = p.BuildStreamURL(ctx, "", "d1", &media.VideoFile{Name: "x.mkv", Link: "https://cdn.example/matrix"})
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example/matrix", u)

	_, err = p.BuildStreamURL(ctx, "", "d1", nil)
	assert.ErrorIs(t, err, provider.ErrNotFound)
}

func TestReload(t *testing.T) {
	path := writeCatalog(t, catalog)
	p := newTestProvider(t, Options{Path: path})

	require.NoError(t, os.WriteFile(path, []byte("items:\n  - id: n1\n    name: New.Show.S01E01.mkv\n"), 0o644))
	require.NoError(t, p.Reload())
	items, err := p.BulkList(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "n1", items[0].ID)

	require.NoError(t, os.WriteFile(path, []byte("items: [\n"), 0o644))
	assert.Error(t, p.Reload())
	items, err = p.BulkList(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, items, 1, "previous catalog kept after a failed reload")
}

func TestNew_Errors(t *testing.T) {
	_, err := New(Options{Path: filepath.Join(t.TempDir(), "missing.yaml")}, zerolog.Nop())
	assert.Error(t, err)

	_, err = New(Options{Path: writeCatalog(t, "items:\n  - name: no-id\n")}, zerolog.Nop())
	assert.Error(t, err)
}
