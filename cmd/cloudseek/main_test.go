package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudseek/cloudseek/internal/media"
	"github.com/cloudseek/cloudseek/internal/parser"
	"github.com/cloudseek/cloudseek/internal/search"
)

func runCommand(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFixture(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestParseCommand_JSON(t *testing.T) {
	out, err := runCommand(t, "parse", "--json", "Breaking.Bad.S01E02.1080p.BluRay.x264-GROUP.mkv")
	require.NoError(t, err)

	var parsed []*parser.ParsedTitle
	require.NoError(t, json.Unmarshal([]byte(out), &parsed))
	require.Len(t, parsed, 1)
	assert.Equal(t, "Breaking Bad", parsed[0].Title)
	assert.Equal(t, 1, *parsed[0].Season)
	assert.Equal(t, 2, *parsed[0].Episode)
}

func TestParseCommand_Table(t *testing.T) {
	out, err := runCommand(t, "parse", "Game.of.Thrones.S01E01E02.1080p.mkv")
	require.NoError(t, err)
	assert.Contains(t, out, "Title")
	assert.Contains(t, out, "1-2")
	assert.Contains(t, out, "Game of Thrones")
}

func TestSearchCommand_Snapshot(t *testing.T) {
	dir := t.TempDir()
	snap := writeFixture(t, dir, "catalog.yaml", `
items:
  - id: t1
    name: Breaking.Bad.S01.1080p.BluRay
    kind: torrent
    files:
      - name: Breaking.Bad.S01E01.1080p.mkv
        size: 100
      - name: Breaking.Bad.S01E02.1080p.mkv
        size: 120
`)
	cfgPath := writeFixture(t, dir, "config.yaml", `
logging:
  level: error
metadata:
  jikan:
    enabled: false
providers:
  - kind: realdebrid
    snapshot: `+snap+`
    stream_base_url: https://stream.test
aliases:
  watch: false
`)

	out, err := runCommand(t, "--config", cfgPath, "search", "Breaking Bad",
		"--type", "series", "-s", "1", "-e", "2", "-p", "rd", "--json")
	require.NoError(t, err)

	var result search.Result
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	require.Len(t, result.Results, 1)
	assert.Equal(t, "Breaking.Bad.S01E02.1080p.mkv", result.Results[0].Video.Name)
	assert.Equal(t, "Breaking.Bad.S01.1080p.BluRay", result.Results[0].ContainerName)
}

func TestSearchCommand_RejectsUnknownType(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFixture(t, dir, "config.yaml", "logging:\n  level: error\n")

	_, err := runCommand(t, "--config", cfgPath, "search", "Alien", "--type", "podcast", "-p", "rd")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown content type")
}

func TestRenderResults(t *testing.T) {
	season, ep := 2, 87
	out := renderResults(&search.Result{Results: []*media.MatchedVideo{{
		ID:            "x",
		ContainerName: "Attack on Titan S2",
		Video: media.VideoFile{
			Name:       "AoT.S02E87.mkv",
			ParsedInfo: &parser.ParsedTitle{Season: &season, Episode: &ep},
		},
		Score:        0.125,
		AnimeMapping: &media.AnimeMapping{OriginalSeason: 1, OriginalEpisode: 99},
	}}})

	assert.Contains(t, out, "S02E87 (from S01E99)")
	assert.Contains(t, out, "0.125")
	assert.Equal(t, "No matches", renderResults(&search.Result{}))
}

func TestRenderTable(t *testing.T) {
	out := renderTable([]string{"A", "B"}, [][]string{{"1"}, {"2", "3"}}, []columnAlignment{alignRight})
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.GreaterOrEqual(t, len(lines), 5)
	assert.Empty(t, renderTable(nil, nil, nil))
}
