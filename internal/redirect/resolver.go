// Package redirect decides where a visitor is sent when the gate completes.
package redirect

import (
	"context"
	"net/url"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/joestump/joe-gate/internal/metrics"
	"github.com/joestump/joe-gate/internal/store"
)

// RefParam is the query parameter consulted when no link is stored.
const RefParam = "ref"

// Source names the rule that produced a destination.
type Source string

const (
	SourceLink    Source = "link"
	SourceRef     Source = "ref"
	SourceDerived Source = "derived"
	SourceDefault Source = "default"
)

// LinkSource is the read side of the link store.
type LinkSource interface {
	MostRecent(ctx context.Context) (*store.LinkRecord, bool)
}

// Target is a resolved destination and the rule that chose it.
type Target struct {
	URL    string
	Source Source
}

// Options configures the parameter-driven fallbacks.
type Options struct {
	// Base prefixes derived URLs: <Base>/ref-<value>.
	Base string
	// Default is used when there is no stored link and no ref.
	Default string
	// Refs maps recognised ref values to fixed destinations.
	Refs map[string]string
}

// DefaultOptions returns the stock fallback destinations.
func DefaultOptions() Options {
	return Options{
		Base:    "https://example.com",
		Default: "https://example.com/default",
		Refs: map[string]string{
			"instagram": "https://example.com/instagram-exclusive",
			"story":     "https://example.com/story-access",
			"premium":   "https://example.com/premium-content",
		},
	}
}

// Resolver picks the redirect destination. Operator-curated links always
// win over parameter-driven defaults.
type Resolver struct {
	links LinkSource
	opts  Options
}

// NewResolver creates a Resolver reading the active link from links.
func NewResolver(links LinkSource, opts Options) *Resolver {
	opts.Base = strings.TrimRight(opts.Base, "/")
	return &Resolver{links: links, opts: opts}
}

// Resolve returns the destination URL for a visitor with the given query
// and counts it as a redirect.
func (r *Resolver) Resolve(ctx context.Context, query url.Values) string {
	t := r.Lookup(ctx, query)
	metrics.RedirectsTotal.WithLabelValues(string(t.Source)).Inc()
	return t.URL
}

// Lookup is Resolve plus the rule that matched.
func (r *Resolver) Lookup(ctx context.Context, query url.Values) Target {
	if link, ok := r.links.MostRecent(ctx); ok {
		return Target{URL: link.URL, Source: SourceLink}
	}

	ref := query.Get(RefParam)
	if ref == "" {
		return Target{URL: r.opts.Default, Source: SourceDefault}
	}
	if dest, ok := r.opts.Refs[ref]; ok {
		return Target{URL: dest, Source: SourceRef}
	}

	dest := r.opts.Base + "/ref-" + url.PathEscape(ref)
	log.Debug().Str("ref", ref).Str("url", dest).Msg("unrecognised ref, using derived url")
	return Target{URL: dest, Source: SourceDerived}
}
