package importer

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

var templateVar = regexp.MustCompile(`\{\{[^}]+\}\}`)

// Load reads a Homepage bookmarks.yaml (or services.yaml) and returns its
// links in file order, without duplicates and without unusable URLs.
func Load(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse is Load on an in-memory document.
func Parse(data []byte) ([]Entry, error) {
	data = stripTemplateVariables(data)

	var entries []Entry
	var bookmarks bookmarksConfig
	if err := yaml.Unmarshal(data, &bookmarks); err == nil {
		entries = fromBookmarks(bookmarks)
	} else {
		var services servicesConfig
		if serr := yaml.Unmarshal(data, &services); serr != nil {
			return nil, fmt.Errorf("failed to parse homepage yaml: %w", err)
		}
		entries = fromServices(services)
	}

	entries = usable(entries)
	if len(entries) == 0 {
		return nil, fmt.Errorf("no valid bookmarks found")
	}
	return entries, nil
}

// stripTemplateVariables removes Homepage template variables.
// Example: {{HOMEPAGE_VAR_ADGUARD_URL}} -> ""
func stripTemplateVariables(data []byte) []byte {
	return templateVar.ReplaceAll(data, []byte(`""`))
}

func fromBookmarks(cfg bookmarksConfig) []Entry {
	var out []Entry
	for _, category := range cfg {
		for _, categoryName := range sortedKeys(category) {
			for _, item := range category[categoryName] {
				for _, name := range sortedKeys(item) {
					list := item[name]
					if len(list) == 0 {
						continue
					}
					out = append(out, Entry{Category: categoryName, Name: name, URL: list[0].Href})
				}
			}
		}
	}
	return out
}

func fromServices(cfg servicesConfig) []Entry {
	var out []Entry
	for _, category := range cfg {
		for _, categoryName := range sortedKeys(category) {
			for _, item := range category[categoryName] {
				for _, name := range sortedKeys(item) {
					out = append(out, Entry{Category: categoryName, Name: name, URL: item[name].Href})
				}
			}
		}
	}
	return out
}

// usable drops empty, relative, non-http and repeated URLs.
func usable(entries []Entry) []Entry {
	seen := make(map[string]bool, len(entries))
	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		e.URL = strings.TrimSpace(e.URL)
		u, err := url.Parse(e.URL)
		if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
			continue
		}
		if seen[e.URL] {
			continue
		}
		seen[e.URL] = true
		out = append(out, e)
	}
	return out
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
