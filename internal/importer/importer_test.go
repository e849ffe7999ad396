package importer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/MrSnakeDoc/stash/internal/domain"
	"github.com/MrSnakeDoc/stash/internal/logger"
)

const bookmarksYAML = `---
- Developer:
    - Github:
        - abbr: GH
          href: https://github.com/
    - Go:
        - abbr: GO
          href: https://go.dev/
- Social:
    - Reddit:
        - abbr: RE
          href: https://reddit.com/
    - Duplicate:
        - abbr: GH
          href: https://github.com/
    - Secret:
        - abbr: SE
          href: {{HOMEPAGE_VAR_SECRET_URL}}
    - Relative:
        - abbr: RL
          href: /local/path
`

const servicesYAML = `---
- Infrastructure:
    - AdGuard Home:
        icon: adguard-home.svg
        href: https://adguard.domain.ext
        description: Network-wide ads & trackers blocking DNS server
    - Grafana:
        href: http://grafana.lan:3000
`

func TestLoadBookmarks(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bookmarks.yaml")
	if err := os.WriteFile(path, []byte(bookmarksYAML), 0o644); err != nil {
		t.Fatalf("Failed to create test YAML file: %v", err)
	}

	entries, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	want := []string{"https://github.com/", "https://go.dev/", "https://reddit.com/"}
	if len(entries) != len(want) {
		t.Fatalf("Load() returned %d entries, want %d: %+v", len(entries), len(want), entries)
	}
	for i, e := range entries {
		if e.URL != want[i] {
			t.Errorf("entries[%d].URL = %q, want %q", i, e.URL, want[i])
		}
	}
	if entries[0].Category != "Developer" || entries[0].Name != "Github" {
		t.Errorf("entries[0] = %+v, want Developer/Github", entries[0])
	}
}

func TestParseServices(t *testing.T) {
	entries, err := Parse([]byte(servicesYAML))
	if err != nil {
		t.Fatalf("Parse() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("Parse() returned %d entries, want 2", len(entries))
	}
	if entries[0].Name != "AdGuard Home" || entries[1].URL != "http://grafana.lan:3000" {
		t.Errorf("Parse() = %+v", entries)
	}
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "empty", data: ""},
		{name: "not homepage", data: "key: value\n"},
		{name: "only unusable urls", data: "- Cat:\n    - X:\n        - href: ftp://files\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.data)); err == nil {
				t.Error("Parse() error = nil, want error")
			}
		})
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load(missing) error = nil, want error")
	}
}

type fakeCreator struct {
	fail map[string]bool
	urls []string
}

func (f *fakeCreator) Create(_ context.Context, rawURL string) (*domain.Bookmark, error) {
	f.urls = append(f.urls, rawURL)
	if f.fail[rawURL] {
		return nil, errors.New("rejected")
	}
	return &domain.Bookmark{ID: int64(len(f.urls)), URL: rawURL}, nil
}

func TestImport(t *testing.T) {
	entries := []Entry{
		{Name: "a", URL: "https://a.example"},
		{Name: "b", URL: "https://b.example"},
		{Name: "c", URL: "https://c.example"},
	}
	c := &fakeCreator{fail: map[string]bool{"https://b.example": true}}

	r, err := Import(context.Background(), c, entries, logger.New("error", false))
	if err != nil {
		t.Fatalf("Import() error = %v", err)
	}
	if len(r.Created) != 2 || len(r.Failed) != 1 {
		t.Errorf("Import() created %d failed %d, want 2 and 1", len(r.Created), len(r.Failed))
	}
	if r.Failed[0].Entry.Name != "b" {
		t.Errorf("failed entry = %+v, want b", r.Failed[0].Entry)
	}
	if len(c.urls) != 3 {
		t.Errorf("Create called %d times, want 3", len(c.urls))
	}
}

func TestImportStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := &fakeCreator{}
	_, err := Import(ctx, c, []Entry{{URL: "https://a.example"}}, logger.New("error", false))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Import() error = %v, want context.Canceled", err)
	}
	if len(c.urls) != 0 {
		t.Errorf("Create called %d times after cancel, want 0", len(c.urls))
	}
}
