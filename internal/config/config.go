package config

import (
	"fmt"
	"net"
	"path/filepath"
	"slices"
	"strconv"
	"time"

	"github.com/adrg/xdg"
	"github.com/nao1215/recongraph/internal/model"
)

// Default configuration values.
const (
	// AppName is used for XDG directory paths.
	AppName = "recongraph"

	// DefaultDeadline bounds one whole scan or enumeration.
	DefaultDeadline = 60 * time.Second

	// DefaultProbeTimeout bounds one site probe.
	DefaultProbeTimeout = 15 * time.Second

	// DefaultSourceTimeout bounds one source query.
	DefaultSourceTimeout = 20 * time.Second

	// DefaultConcurrency of zero runs one goroutine per catalog site.
	DefaultConcurrency = 0

	// DefaultMaxBodySize caps how much of a probed page is read.
	DefaultMaxBodySize = 2 << 20

	// DefaultBlocklistTTL is how long a cached blocklist is trusted.
	DefaultBlocklistTTL = 24 * time.Hour

	// DefaultTorStartupTimeout is how long the embedded Tor daemon may take
	// to bootstrap.
	DefaultTorStartupTimeout = 3 * time.Minute
)

// Sources lists every source name the scan command knows, in query order.
var Sources = []string{
	model.SourceGeolocation,
	model.SourceBlacklist,
	model.SourceTorExit,
	model.SourceExposure,
	model.SourceRegistry,
	model.SourceRank,
	model.SourceIOC,
	model.SourceWhois,
}

// Config holds every runtime option. It is built by NewConfig, updated from
// the config file by ApplyFile and from CLI flags, then checked by Validate.
type Config struct {
	// Deadline bounds one scan or enumeration end to end.
	Deadline time.Duration

	// ProbeTimeout bounds one site probe. Must be shorter than Deadline.
	ProbeTimeout time.Duration

	// SourceTimeout bounds one source query. Must be shorter than Deadline.
	SourceTimeout time.Duration

	// Concurrency caps in-flight probes; zero means unbounded.
	Concurrency int

	// MaxBodySize caps the bytes read from one probed page; zero selects
	// DefaultMaxBodySize.
	MaxBodySize int64

	// BlocklistTTL is how long cached blocklists are used before a refresh.
	BlocklistTTL time.Duration

	// CatalogPath replaces the embedded site catalog when set.
	CatalogPath string

	// DNSServer is the nameserver ("host:port") used to resolve domain
	// targets. Empty uses the system resolver configuration.
	DNSServer string

	// CacheDir holds the blocklist cache database.
	CacheDir string

	// NumverifyKey is the numverify access key for phone lookups.
	NumverifyKey string

	// ThreatFoxKey is the optional ThreatFox Auth-Key.
	ThreatFoxKey string

	// DisabledSources are skipped by the scan command.
	DisabledSources []string

	// FoundOnly limits enumeration output to sites where the identity exists.
	FoundOnly bool

	// Verbose enables debug logging.
	Verbose bool

	// JSONReport selects JSON output. Mutually exclusive with MarkdownReport.
	JSONReport bool

	// MarkdownReport selects Markdown output.
	MarkdownReport bool

	// ReportFile receives the report instead of stdout when set.
	ReportFile string

	// UseTor routes identity probes through Tor.
	UseTor bool

	// ExternalTorAddress is a running Tor SOCKS5 proxy. When empty and
	// UseTor is set, an embedded daemon is started.
	ExternalTorAddress string

	// TorStartupTimeout bounds embedded Tor bootstrap.
	TorStartupTimeout time.Duration

	// ConfigFilePath overrides config file discovery.
	ConfigFilePath string
}

// NewConfig returns a Config with defaults.
func NewConfig() *Config {
	return &Config{
		Deadline:          DefaultDeadline,
		ProbeTimeout:      DefaultProbeTimeout,
		SourceTimeout:     DefaultSourceTimeout,
		Concurrency:       DefaultConcurrency,
		MaxBodySize:       DefaultMaxBodySize,
		BlocklistTTL:      DefaultBlocklistTTL,
		CacheDir:          XDGCacheDir(),
		TorStartupTimeout: DefaultTorStartupTimeout,
	}
}

// XDGConfigDir returns the recongraph directory under XDG_CONFIG_HOME.
func XDGConfigDir() string {
	return filepath.Join(xdg.ConfigHome, AppName)
}

// XDGCacheDir returns the recongraph directory under XDG_CACHE_HOME.
func XDGCacheDir() string {
	return filepath.Join(xdg.CacheHome, AppName)
}

// ApplyFile copies every value set in f onto c.
func (c *Config) ApplyFile(f *File) error {
	if f == nil {
		return nil
	}
	if f.Deadline > 0 {
		c.Deadline = f.Deadline
	}
	if f.ProbeTimeout > 0 {
		c.ProbeTimeout = f.ProbeTimeout
	}
	if f.SourceTimeout > 0 {
		c.SourceTimeout = f.SourceTimeout
	}
	if f.Concurrency != nil {
		c.Concurrency = *f.Concurrency
	}
	if f.MaxBodySize > 0 {
		c.MaxBodySize = f.MaxBodySize
	}
	if f.BlocklistTTL > 0 {
		c.BlocklistTTL = f.BlocklistTTL
	}
	if f.Catalog != "" {
		c.CatalogPath = f.Catalog
	}
	if f.DNSServer != "" {
		c.DNSServer = f.DNSServer
	}
	if f.CacheDir != "" {
		c.CacheDir = f.CacheDir
	}
	if f.APIKeys.Numverify != "" {
		c.NumverifyKey = f.APIKeys.Numverify
	}
	if f.APIKeys.ThreatFox != "" {
		c.ThreatFoxKey = f.APIKeys.ThreatFox
	}

	for name, enabled := range f.Sources {
		if !slices.Contains(Sources, name) {
			return fmt.Errorf("%w: %q", ErrUnknownSource, name)
		}
		if !enabled && !slices.Contains(c.DisabledSources, name) {
			c.DisabledSources = append(c.DisabledSources, name)
		}
	}
	slices.Sort(c.DisabledSources)
	return nil
}

// Environment variables that override API keys from the config file.
const (
	EnvNumverifyKey = "NUMVERIFY_API_KEY"
	EnvThreatFoxKey = "THREATFOX_API_KEY"
)

// ApplyEnv copies API keys found through getenv onto c. Callers pass
// os.Getenv.
//
// Design decision: We let environment variables override the config file so
// secrets can stay out of files on disk, while explicit flags still win.
func (c *Config) ApplyEnv(getenv func(string) string) {
	if v := getenv(EnvNumverifyKey); v != "" {
		c.NumverifyKey = v
	}
	if v := getenv(EnvThreatFoxKey); v != "" {
		c.ThreatFoxKey = v
	}
}

// SourceEnabled reports whether the scan command should query name.
func (c *Config) SourceEnabled(name string) bool {
	return !slices.Contains(c.DisabledSources, name)
}

// Validate checks the configuration and returns the first problem found.
func (c *Config) Validate() error {
	if c.Deadline <= 0 {
		return ErrInvalidDeadline
	}
	if c.ProbeTimeout <= 0 || c.ProbeTimeout >= c.Deadline {
		return ErrInvalidProbeTimeout
	}
	if c.SourceTimeout <= 0 || c.SourceTimeout >= c.Deadline {
		return ErrInvalidSourceTimeout
	}
	if c.Concurrency < 0 {
		return ErrInvalidConcurrency
	}
	if c.MaxBodySize < 0 {
		return ErrInvalidMaxBodySize
	}
	if c.BlocklistTTL <= 0 {
		return ErrInvalidBlocklistTTL
	}
	if c.JSONReport && c.MarkdownReport {
		return ErrConflictingReportFormats
	}
	if c.ExternalTorAddress != "" && !isValidProxyAddress(c.ExternalTorAddress) {
		return ErrInvalidProxyAddress
	}
	return nil
}

// isValidProxyAddress accepts host:port with a port in 1-65535.
func isValidProxyAddress(address string) bool {
	host, port, err := net.SplitHostPort(address)
	if err != nil || host == "" {
		return false
	}
	n, err := strconv.Atoi(port)
	return err == nil && n >= 1 && n <= 65535
}
