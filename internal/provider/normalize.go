package provider

import (
	"context"
	"strings"

	"github.com/cloudseek/cloudseek/internal/media"
)

type normalizeFunc func(*media.Candidate)

// normalizers maps each item kind to the function that brings it into the
// shape the coordinator expects.
var normalizers = map[media.ItemKind]normalizeFunc{
	media.ItemTorrent:  normalizeTorrent,
	media.ItemDownload: normalizeDownload,
}

// Torrents are always containers, even with a single file.
func normalizeTorrent(c *media.Candidate) {
	c.Container = true
	c.Videos = compactVideos(c.Videos)
}

// Downloads are single files addressed by the candidate itself.
func normalizeDownload(c *media.Candidate) {
	if len(c.Videos) == 1 && c.Size == 0 {
		c.Size = c.Videos[0].Size
	}
	c.Container = len(c.Videos) > 1
	if !c.Container {
		c.Videos = nil
	}
}

func compactVideos(videos []*media.VideoFile) []*media.VideoFile {
	out := videos[:0]
	for _, v := range videos {
		if v == nil {
			continue
		}
		v.Name = strings.TrimSpace(v.Name)
		out = append(out, v)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// normalizer resolves the table entry for a provider once and applies it
// to every candidate the provider returns.
type normalizer struct {
	Provider
	defaultKind media.ItemKind
}

func newNormalizer(p Provider) *normalizer {
	return &normalizer{Provider: p, defaultKind: p.Kind().DefaultItemKind()}
}

func (n *normalizer) normalize(c *media.Candidate) {
	if c == nil {
		return
	}
	c.Name = strings.TrimSpace(c.Name)
	if c.Kind == media.ItemUnknown {
		c.Kind = n.defaultKind
	}
	if fn, ok := normalizers[c.Kind]; ok {
		fn(c)
	}
}

func (n *normalizer) normalizeAll(cs []*media.Candidate) []*media.Candidate {
	out := cs[:0]
	for _, c := range cs {
		if c == nil {
			continue
		}
		n.normalize(c)
		out = append(out, c)
	}
	return out
}

func (n *normalizer) BulkList(ctx context.Context, apiKey string) ([]*media.Candidate, error) {
	cs, err := n.Provider.BulkList(ctx, apiKey)
	if err != nil {
		return nil, err
	}
	return n.normalizeAll(cs), nil
}

func (n *normalizer) SearchByTitle(ctx context.Context, apiKey, term string, threshold float64) ([]*media.Candidate, error) {
	cs, err := n.Provider.SearchByTitle(ctx, apiKey, term, threshold)
	if err != nil {
		return nil, err
	}
	return n.normalizeAll(cs), nil
}

func (n *normalizer) GetDetails(ctx context.Context, apiKey, id string) (*media.Candidate, error) {
	c, err := n.Provider.GetDetails(ctx, apiKey, id)
	if err != nil {
		return nil, err
	}
	n.normalize(c)
	return c, nil
}
