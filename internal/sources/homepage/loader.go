package homepage

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/MrSnakeDoc/linkshelf/internal/domain"
)

// Kind selects which Homepage file format a Loader reads.
type Kind string

const (
	Bookmarks Kind = "bookmarks"
	Services  Kind = "services"
)

// ParseKind accepts "bookmarks" and "services".
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case Bookmarks, Services:
		return k, nil
	}
	return "", fmt.Errorf("unknown homepage file kind %q (want bookmarks or services)", s)
}

var templateVar = regexp.MustCompile(`\{\{[^}]+\}\}`)

// Loader reads a Homepage bookmarks.yaml or services.yaml
type Loader struct {
	filePath string
}

// NewLoader creates a new Homepage loader
func NewLoader(filePath string) *Loader {
	return &Loader{
		filePath: filePath,
	}
}

// LoadBookmarks reads and parses a bookmarks.yaml file
func (l *Loader) LoadBookmarks() (BookmarksConfig, error) {
	var config BookmarksConfig
	if err := l.read(&config, "bookmarks"); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadServices reads and parses a services.yaml file
func (l *Loader) LoadServices() (ServicesConfig, error) {
	var config ServicesConfig
	if err := l.read(&config, "services"); err != nil {
		return nil, err
	}
	return config, nil
}

// Drafts loads the file as kind and maps it to link drafts.
func (l *Loader) Drafts(kind Kind) ([]domain.Draft, error) {
	m := NewMapper()
	switch kind {
	case Bookmarks:
		config, err := l.LoadBookmarks()
		if err != nil {
			return nil, err
		}
		return m.MapBookmarks(config)
	case Services:
		config, err := l.LoadServices()
		if err != nil {
			return nil, err
		}
		return m.MapServices(config)
	}
	return nil, fmt.Errorf("unknown homepage file kind %q", kind)
}

func (l *Loader) read(into any, what string) error {
	data, err := os.ReadFile(l.filePath)
	if err != nil {
		return fmt.Errorf("failed to read %s file: %w", what, err)
	}

	data = stripTemplateVariables(data)

	if err := yaml.Unmarshal(data, into); err != nil {
		return fmt.Errorf("failed to parse %s yaml: %w", what, err)
	}
	return nil
}

// stripTemplateVariables removes Homepage template variables from YAML
// Example: {{HOMEPAGE_VAR_ADGUARD_USER}} -> ""
// Entries whose href was a variable end up without one and are skipped.
func stripTemplateVariables(data []byte) []byte {
	return templateVar.ReplaceAll(data, []byte(`""`))
}
