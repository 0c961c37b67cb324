// Package snapshot implements a provider backed by a YAML catalog snapshot.
// It serves development setups and tests, and mirrors what a remote
// provider client reports: containers listed without their files, with the
// files returned by GetDetails.
package snapshot

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/cloudseek/cloudseek/internal/fuzzy"
	"github.com/cloudseek/cloudseek/internal/media"
	"github.com/cloudseek/cloudseek/internal/provider"
)

// File is the on-disk catalog layout.
type File struct {
	Items []Item `yaml:"items"`
}

// Item is one catalog entry.
type Item struct {
	ID        string      `yaml:"id"`
	Name      string      `yaml:"name"`
	Size      int64       `yaml:"size"`
	Kind      string      `yaml:"kind"`
	CreatedAt time.Time   `yaml:"created_at"`
	Files     []VideoItem `yaml:"files"`
}

// VideoItem is one file inside an item.
type VideoItem struct {
	Name string `yaml:"name"`
	Size int64  `yaml:"size"`
	Path string `yaml:"path"`
	Link string `yaml:"link"`
}

// Options configures a snapshot provider.
type Options struct {
	Kind          provider.Kind
	Path          string
	StreamBaseURL string
	// DisableBulk makes BulkList report ErrBulkUnsupported.
	DisableBulk bool
}

// Provider serves a catalog loaded from a YAML file.
type Provider struct {
	opts   Options
	logger zerolog.Logger

	mu    sync.RWMutex
	items []Item
	byID  map[string]int
}

var _ provider.Provider = (*Provider)(nil)

// New loads the snapshot at opts.Path.
func New(opts Options, logger zerolog.Logger) (*Provider, error) {
	p := &Provider{
		opts:   opts,
		logger: logger.With().Str("component", "snapshot").Str("provider", string(opts.Kind)).Logger(),
	}
	if err := p.Reload(); err != nil {
		return nil, err
	}
	return p, nil
}

// NewFromItems builds a provider from in-memory items.
func NewFromItems(opts Options, items []Item, logger zerolog.Logger) *Provider {
	p := &Provider{
		opts:   opts,
		logger: logger.With().Str("component", "snapshot").Str("provider", string(opts.Kind)).Logger(),
	}
	p.set(items)
	return p
}

// Path returns the snapshot file path.
func (p *Provider) Path() string {
	return p.opts.Path
}

// Reload re-reads the snapshot file. On error the previous catalog stays.
func (p *Provider) Reload() error {
	data, err := os.ReadFile(p.opts.Path)
	if err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("failed to parse snapshot %s: %w", p.opts.Path, err)
	}
	for i, it := range f.Items {
		if it.ID == "" {
			return fmt.Errorf("snapshot %s: item %d has no id", p.opts.Path, i)
		}
	}
	p.set(f.Items)
	p.logger.Info().Str("path", p.opts.Path).Int("items", len(f.Items)).Msg("Loaded catalog snapshot")
	return nil
}

func (p *Provider) set(items []Item) {
	byID := make(map[string]int, len(items))
	for i, it := range items {
		byID[it.ID] = i
	}
	p.mu.Lock()
	p.items = items
	p.byID = byID
	p.mu.Unlock()
}

func (p *Provider) Kind() provider.Kind {
	return p.opts.Kind
}

// BulkList returns fresh candidates for the whole catalog. Multi-file items
// are listed without their files.
func (p *Provider) BulkList(ctx context.Context, _ string) ([]*media.Candidate, error) {
	if p.opts.DisableBulk {
		return nil, provider.ErrBulkUnsupported
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]*media.Candidate, 0, len(p.items))
	for _, it := range p.items {
		out = append(out, toCandidate(it, false))
	}
	return out, nil
}

// SearchByTitle returns items whose normalized name contains term within threshold.
func (p *Provider) SearchByTitle(ctx context.Context, _ string, term string, threshold float64) ([]*media.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	pattern := fuzzy.NormalizeTitle(term)
	if pattern == "" {
		return nil, nil
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []*media.Candidate
	for _, it := range p.items {
		if fuzzy.Match(pattern, fuzzy.NormalizeTitle(it.Name), threshold) {
			out = append(out, toCandidate(it, false))
		}
	}
	return out, nil
}

// GetDetails returns the item with its files.
func (p *Provider) GetDetails(ctx context.Context, _ string, id string) (*media.Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	i, ok := p.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", provider.ErrNotFound, id)
	}
	return toCandidate(p.items[i], true), nil
}

// BuildStreamURL returns the file's direct link when it has one, otherwise
// a URL under StreamBaseURL.
func (p *Provider) BuildStreamURL(_ context.Context, _ string, candidateID string, file *media.VideoFile) (string, error) {
	if file == nil {
		return "", fmt.Errorf("%w: no file for %s", provider.ErrNotFound, candidateID)
	}
	if file.Link != "" {
		return file.Link, nil
	}
	base := strings.TrimRight(p.opts.StreamBaseURL, "/")
	return fmt.Sprintf("%s/%s/%s/%s", base, p.opts.Kind, url.PathEscape(candidateID), url.PathEscape(file.Name)), nil
}

func toCandidate(it Item, withFiles bool) *media.Candidate {
	c := &media.Candidate{
		ID:        it.ID,
		Name:      it.Name,
		Size:      it.Size,
		Kind:      media.ItemKind(strings.ToLower(it.Kind)),
		Container: len(it.Files) > 1,
		CreatedAt: it.CreatedAt,
	}
	if c.Size == 0 {
		for _, f := range it.Files {
			c.Size += f.Size
		}
	}
	// Single-file items carry their file inline: nothing to fetch.
	if withFiles || len(it.Files) == 1 {
		c.Videos = make([]*media.VideoFile, 0, len(it.Files))
		for _, f := range it.Files {
			c.Videos = append(c.Videos, &media.VideoFile{Name: f.Name, Size: f.Size, Path: f.Path, Link: f.Link})
		}
	}
	return c
}
