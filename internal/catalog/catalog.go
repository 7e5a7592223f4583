package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Slot is the substitution marker in a site URL template.
const Slot = "{}"

//go:embed sites.yaml
var defaultCatalog []byte

// Catalog validation errors.
var (
	// ErrEmptyCatalog is returned when a catalog defines no sites.
	ErrEmptyCatalog = errors.New("catalog defines no sites")

	// ErrNoUserAgents is returned when a catalog defines no user agents.
	ErrNoUserAgents = errors.New("catalog defines no user agents")

	// ErrDuplicateSite is returned when two entries share a name.
	ErrDuplicateSite = errors.New("duplicate site name")

	// ErrBadTemplate is returned when a URL template does not contain exactly
	// one substitution slot.
	ErrBadTemplate = errors.New("url template must contain exactly one {} slot")
)

// Entry is one catalog site.
type Entry struct {
	// Name is the unique site name.
	Name string `yaml:"name"`

	// URLTemplate holds exactly one Slot.
	URLTemplate string `yaml:"url"`

	// Indicators are extra soft-404 phrases that only apply to this site.
	Indicators []string `yaml:"indicators,omitempty"`
}

// URL substitutes identity into the template slot. A slot in the query
// string is query-escaped so the identity cannot add parameters; any other
// slot is path-escaped.
func (e Entry) URL(identity string) string {
	slot := strings.Index(e.URLTemplate, Slot)
	if slot < 0 {
		return e.URLTemplate
	}
	escaped := url.PathEscape(identity)
	if q := strings.IndexByte(e.URLTemplate, '?'); q >= 0 && q < slot {
		escaped = strings.ReplaceAll(url.QueryEscape(identity), "+", "%20")
	}
	return e.URLTemplate[:slot] + escaped + e.URLTemplate[slot+len(Slot):]
}

// Catalog is the read-only site registry.
type Catalog struct {
	// Entries keeps declaration order.
	Entries []Entry `yaml:"sites"`

	// Indicators are the generic soft-404 phrases.
	Indicators []string `yaml:"soft404_indicators"`

	// FakeSuccessTitles are exact page titles shared by landing pages that
	// answer 200 for any identity.
	FakeSuccessTitles []string `yaml:"fake_success_titles"`

	// AuthWallMarkers are title substrings signalling a login redirect.
	AuthWallMarkers []string `yaml:"auth_wall_title_markers"`

	// UserAgents is the rotation pool for probe headers.
	UserAgents []string `yaml:"user_agents"`
}

// Default returns the embedded catalog.
func Default() (*Catalog, error) {
	return Parse(strings.NewReader(string(defaultCatalog)))
}

// Load reads a catalog from path.
func Load(path string) (*Catalog, error) {
	f, err := os.Open(path) //nolint:gosec // User-provided catalog path is intentional
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	defer f.Close()

	return Parse(f)
}

// Parse decodes and validates a YAML catalog.
func Parse(r io.Reader) (*Catalog, error) {
	var c Catalog
	if err := yaml.NewDecoder(r).Decode(&c); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate checks name uniqueness, template slots and the user-agent pool.
func (c *Catalog) Validate() error {
	if len(c.Entries) == 0 {
		return ErrEmptyCatalog
	}
	if len(c.UserAgents) == 0 {
		return ErrNoUserAgents
	}

	seen := make(map[string]struct{}, len(c.Entries))
	for _, e := range c.Entries {
		if _, dup := seen[e.Name]; dup {
			return fmt.Errorf("%w: %s", ErrDuplicateSite, e.Name)
		}
		seen[e.Name] = struct{}{}

		if strings.Count(e.URLTemplate, Slot) != 1 {
			return fmt.Errorf("%w: %s", ErrBadTemplate, e.Name)
		}
	}
	return nil
}

// Len returns the number of sites.
func (c *Catalog) Len() int {
	return len(c.Entries)
}

// UserAgent picks a user agent from the pool.
func (c *Catalog) UserAgent() string {
	return c.UserAgents[rand.IntN(len(c.UserAgents))] //nolint:gosec // Not security sensitive
}
