package homepage

import (
	"os"
	"path/filepath"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to create test YAML file: %v", err)
	}
	return path
}

func TestLoaderLoadServices(t *testing.T) {
	path := writeFile(t, "services.yaml", `---
- Infrastructure:
    - AdGuard Home:
        icon: adguard-home.svg
        href: https://adguard.domain.ext
        description: Network-wide ads & trackers blocking DNS server
`)

	config, err := NewLoader(path).LoadServices()
	if err != nil {
		t.Fatalf("LoadServices() error = %v", err)
	}
	if len(config) == 0 {
		t.Fatal("LoadServices() returned empty config")
	}
	props := config[0]["Infrastructure"][0]["AdGuard Home"]
	if props.Href != "https://adguard.domain.ext" {
		t.Errorf("href = %q", props.Href)
	}
}

func TestLoaderLoadBookmarks(t *testing.T) {
	path := writeFile(t, "bookmarks.yaml", `---
- Developer:
    - Github:
        - abbr: GH
          href: https://github.com/
- Social:
    - Reddit:
        - icon: reddit.png
          href: https://reddit.com/
`)

	config, err := NewLoader(path).LoadBookmarks()
	if err != nil {
		t.Fatalf("LoadBookmarks() error = %v", err)
	}
	if len(config) != 2 {
		t.Fatalf("LoadBookmarks() returned %d categories, want 2", len(config))
	}
	entry := config[0]["Developer"][0]["Github"][0]
	if entry.Abbr != "GH" || entry.Href != "https://github.com/" {
		t.Errorf("unexpected entry %+v", entry)
	}
}

func TestLoaderLoadWithTemplateVariables(t *testing.T) {
	path := writeFile(t, "services.yaml", `---
- Infrastructure:
    - AdGuard Home:
        icon: adguard-home.svg
        href: {{HOMEPAGE_VAR_ADGUARD_URL}}
        description: Test
`)

	config, err := NewLoader(path).LoadServices()
	if err != nil {
		t.Fatalf("LoadServices() error = %v", err)
	}
	if got := config[0]["Infrastructure"][0]["AdGuard Home"].Href; got != "" {
		t.Errorf("templated href = %q, want empty", got)
	}
}

func TestLoaderLoadFileNotFound(t *testing.T) {
	loader := NewLoader("/nonexistent/path/services.yaml")
	if _, err := loader.LoadServices(); err == nil {
		t.Error("LoadServices() with non-existent file should return error")
	}
	if _, err := loader.LoadBookmarks(); err == nil {
		t.Error("LoadBookmarks() with non-existent file should return error")
	}
}

func TestLoaderLoadInvalidYAML(t *testing.T) {
	path := writeFile(t, "bookmarks.yaml", "- Developer: [unclosed")
	if _, err := NewLoader(path).LoadBookmarks(); err == nil {
		t.Error("LoadBookmarks() with invalid yaml should return error")
	}
}

func TestStripTemplateVariablesFunc(t *testing.T) {
	tests := []struct {
		name     string
		input    []byte
		expected string
	}{
		{
			name:     "single template variable",
			input:    []byte("url: {{HOMEPAGE_VAR_URL}}"),
			expected: "url: \"\"",
		},
		{
			name:     "no template variables",
			input:    []byte("plain text"),
			expected: "plain text",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := stripTemplateVariables(tt.input)
			if string(result) != tt.expected {
				t.Errorf("stripTemplateVariables() = %q, want %q", string(result), tt.expected)
			}
		})
	}
}

func TestParseKind(t *testing.T) {
	if k, err := ParseKind("bookmarks"); err != nil || k != Bookmarks {
		t.Errorf("ParseKind(bookmarks) = %v, %v", k, err)
	}
	if k, err := ParseKind("services"); err != nil || k != Services {
		t.Errorf("ParseKind(services) = %v, %v", k, err)
	}
	if _, err := ParseKind("widgets"); err == nil {
		t.Error("ParseKind(widgets) should fail")
	}
}

func TestLoaderDrafts(t *testing.T) {
	path := writeFile(t, "bookmarks.yaml", `---
- Developer:
    - Github:
        - abbr: GH
          href: https://github.com/
`)

	drafts, err := NewLoader(path).Drafts(Bookmarks)
	if err != nil {
		t.Fatalf("Drafts() error = %v", err)
	}
	if len(drafts) != 1 {
		t.Fatalf("Drafts() returned %d drafts, want 1", len(drafts))
	}
	if drafts[0].URL != "https://github.com/" || drafts[0].Tags[0] != "developer" {
		t.Errorf("unexpected draft %+v", drafts[0])
	}

	if _, err := NewLoader(path).Drafts("feeds"); err == nil {
		t.Error("Drafts() with unknown kind should fail")
	}
}
