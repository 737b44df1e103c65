package redirect_test

import (
	"context"
	"net/url"
	"testing"

	"github.com/joestump/joe-gate/internal/kv"
	"github.com/joestump/joe-gate/internal/redirect"
	"github.com/joestump/joe-gate/internal/store"
)

func newResolver(t *testing.T) (*redirect.Resolver, *store.LinkStore) {
	t.Helper()
	ls := store.NewLinkStore(kv.NewMemoryStore(), "")
	return redirect.NewResolver(ls, redirect.DefaultOptions()), ls
}

func TestResolve_EmptyStore(t *testing.T) {
	r, _ := newResolver(t)
	ctx := context.Background()

	tests := []struct {
		name  string
		query string
		want  string
		src   redirect.Source
	}{
		{name: "no ref", query: "", want: "https://example.com/default", src: redirect.SourceDefault},
		{name: "empty ref", query: "ref=", want: "https://example.com/default", src: redirect.SourceDefault},
		{name: "instagram", query: "ref=instagram", want: "https://example.com/instagram-exclusive", src: redirect.SourceRef},
		{name: "story", query: "ref=story", want: "https://example.com/story-access", src: redirect.SourceRef},
		{name: "premium", query: "ref=premium", want: "https://example.com/premium-content", src: redirect.SourceRef},
		{name: "unknown", query: "ref=xyz", want: "https://example.com/ref-xyz", src: redirect.SourceDerived},
		{name: "case sensitive", query: "ref=Instagram", want: "https://example.com/ref-Instagram", src: redirect.SourceDerived},
		{name: "escaped", query: "ref=a%2Fb", want: "https://example.com/ref-a%2Fb", src: redirect.SourceDerived},
		{name: "other params ignored", query: "utm=1", want: "https://example.com/default", src: redirect.SourceDefault},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q, err := url.ParseQuery(tt.query)
			if err != nil {
				t.Fatalf("parse query: %v", err)
			}
			got := r.Lookup(ctx, q)
			if got.URL != tt.want || got.Source != tt.src {
				t.Errorf("Lookup(%q) = %+v, want {%s %s}", tt.query, got, tt.want, tt.src)
			}
			if r.Resolve(ctx, q) != tt.want {
				t.Errorf("Resolve(%q) disagrees with Lookup", tt.query)
			}
		})
	}
}

func TestResolve_StoredLinkWins(t *testing.T) {
	r, ls := newResolver(t)
	ctx := context.Background()
	if _, err := ls.Add(ctx, "A", "https://a.example.com"); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := ls.Add(ctx, "B", "https://b.example.com"); err != nil {
		t.Fatalf("Add: %v", err)
	}

	for _, q := range []string{"", "ref=instagram", "ref=premium", "ref=xyz"} {
		query, _ := url.ParseQuery(q)
		got := r.Lookup(ctx, query)
		if got.URL != "https://b.example.com" || got.Source != redirect.SourceLink {
			t.Errorf("Lookup(%q) = %+v, want most recent link", q, got)
		}
	}
}

func TestResolve_CorruptStoreFallsBack(t *testing.T) {
	mem := kv.NewMemoryStore()
	_ = mem.Set(context.Background(), store.LinksKey, []byte("not json"))
	r := redirect.NewResolver(store.NewLinkStore(mem, ""), redirect.DefaultOptions())

	q := url.Values{"ref": {"story"}}
	if got := r.Resolve(context.Background(), q); got != "https://example.com/story-access" {
		t.Errorf("Resolve = %q, want story url", got)
	}
}

func TestResolve_CustomBase(t *testing.T) {
	opts := redirect.DefaultOptions()
	opts.Base = "https://offers.example.net/"
	r := redirect.NewResolver(store.NewLinkStore(kv.NewMemoryStore(), ""), opts)

	q := url.Values{"ref": {"tiktok"}}
	if got := r.Resolve(context.Background(), q); got != "https://offers.example.net/ref-tiktok" {
		t.Errorf("Resolve = %q", got)
	}
}
