// Package provider defines the capability every cloud-storage provider
// exposes to the search coordinator and the registry that resolves a
// provider by kind.
package provider

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/cloudseek/cloudseek/internal/media"
)

var (
	// ErrBulkUnsupported tells the caller to fall back to per-term search.
	ErrBulkUnsupported = errors.New("provider does not support bulk listing")
	ErrUnknownProvider = errors.New("unknown provider")
	ErrNotFound        = errors.New("item not found")
)

// Kind names a supported provider.
type Kind string

const (
	KindRealDebrid Kind = "realdebrid"
	KindAllDebrid  Kind = "alldebrid"
	KindPremiumize Kind = "premiumize"
	KindTorBox     Kind = "torbox"
	KindDebridLink Kind = "debridlink"
)

// Kinds lists every supported provider kind.
var Kinds = []Kind{KindRealDebrid, KindAllDebrid, KindPremiumize, KindTorBox, KindDebridLink}

// ParseKind resolves a provider name, tolerating case, dashes and a few aliases.
func ParseKind(s string) (Kind, error) {
	n := strings.NewReplacer("-", "", "_", "", " ", "").Replace(strings.ToLower(strings.TrimSpace(s)))
	switch n {
	case "realdebrid", "rd":
		return KindRealDebrid, nil
	case "alldebrid", "ad":
		return KindAllDebrid, nil
	case "premiumize", "pm":
		return KindPremiumize, nil
	case "torbox", "tb":
		return KindTorBox, nil
	case "debridlink", "dl":
		return KindDebridLink, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownProvider, s)
}

// DefaultItemKind is the shape a provider's items take when the provider
// does not say.
func (k Kind) DefaultItemKind() media.ItemKind {
	if k == KindPremiumize {
		return media.ItemDownload
	}
	return media.ItemTorrent
}

// Provider is the capability contract of a storage provider. Auth,
// pagination and rate limiting are the implementation's concern.
type Provider interface {
	Kind() Kind
	// BulkList returns the whole catalog, or ErrBulkUnsupported.
	BulkList(ctx context.Context, apiKey string) ([]*media.Candidate, error)
	SearchByTitle(ctx context.Context, apiKey, term string, threshold float64) ([]*media.Candidate, error)
	// GetDetails returns the candidate with its Videos populated.
	GetDetails(ctx context.Context, apiKey, id string) (*media.Candidate, error)
	BuildStreamURL(ctx context.Context, apiKey, candidateID string, file *media.VideoFile) (string, error)
}
