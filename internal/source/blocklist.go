package source

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"net"
	"regexp"
	"sync"
	"time"

	"github.com/nao1215/recongraph/internal/cache"
	"github.com/nao1215/recongraph/internal/model"
)

const (
	// DefaultTalosEndpoint is the Snort/Talos IP block list.
	DefaultTalosEndpoint = "https://snort.org/downloads/ip-block-list"

	// DefaultTorExitEndpoint is the Tor Project exit address list.
	DefaultTorExitEndpoint = "https://check.torproject.org/exit-addresses"

	// DefaultBlocklistTTL is how long a cached list is used before it is
	// downloaded again.
	DefaultBlocklistTTL = 24 * time.Hour
)

var ipv4Pattern = regexp.MustCompile(`\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}`)

// BlocklistStore persists downloaded lists. *cache.Store satisfies it.
type BlocklistStore interface {
	Get(ctx context.Context, name string) (*cache.Blocklist, error)
	Put(ctx context.Context, name string, entries []string, fetchedAt time.Time) (*cache.Blocklist, error)
}

// TalosPayload reports Talos block list membership.
type TalosPayload struct {
	Listed bool `json:"blacklisted"`
}

// Blacklisted implements model.BlacklistSignal.
func (p TalosPayload) Blacklisted() bool { return p.Listed }

// TorExitPayload reports whether an address is a Tor exit relay.
type TorExitPayload struct {
	ExitNode bool `json:"exit_node"`
}

// Blocklist answers membership queries against a downloaded address list.
//
// The list is loaded from the store, and downloaded again when it is
// missing, fails verification, or is older than the TTL. Without a store
// the list is kept in memory for the lifetime of the Blocklist.
//
// Design decision: We hold one mutex across load and download so
// concurrent lookups of a cold list trigger a single fetch instead of one
// per query.
type Blocklist struct {
	base
	store   BlocklistStore
	ttl     time.Duration
	parse   func([]byte) []string
	payload func(listed bool) any
	now     func() time.Time

	mu   sync.Mutex
	list *cache.Blocklist
}

// NewTalos creates the Talos IP block list provider.
func NewTalos(store BlocklistStore, ttl time.Duration, opts ...Option) *Blocklist {
	return newBlocklist(model.SourceBlacklist, DefaultTalosEndpoint, store, ttl, parseAddressLines,
		func(listed bool) any { return TalosPayload{Listed: listed} }, opts)
}

// NewTorExit creates the Tor exit address provider.
func NewTorExit(store BlocklistStore, ttl time.Duration, opts ...Option) *Blocklist {
	return newBlocklist(model.SourceTorExit, DefaultTorExitEndpoint, store, ttl, parseEmbeddedAddresses,
		func(listed bool) any { return TorExitPayload{ExitNode: listed} }, opts)
}

func newBlocklist(name, endpoint string, store BlocklistStore, ttl time.Duration,
	parse func([]byte) []string, payload func(bool) any, opts []Option) *Blocklist {
	if ttl <= 0 {
		ttl = DefaultBlocklistTTL
	}
	return &Blocklist{
		base:    newBase(name, endpoint, opts),
		store:   store,
		ttl:     ttl,
		parse:   parse,
		payload: payload,
		now:     time.Now,
	}
}

// Key implements scan.Source.
func (b *Blocklist) Key() model.SourceKey {
	return model.KeyAddress
}

// Query implements scan.Source.
func (b *Blocklist) Query(ctx context.Context, ip string) (any, error) {
	list, err := b.load(ctx)
	if err != nil {
		return nil, err
	}
	return b.payload(list.Contains(ip)), nil
}

// Refresh downloads the list and replaces the cached copy.
// The downloaded list is returned even if storing it fails.
func (b *Blocklist) Refresh(ctx context.Context) (*cache.Blocklist, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.refreshLocked(ctx)
}

// load returns a fresh list, consulting memory, then the store, then the
// network.
//
// Design decision: We return a downloaded list even when persisting it
// fails because the lookup only needs the entries; the next run simply
// downloads again.
func (b *Blocklist) load(ctx context.Context) (*cache.Blocklist, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.now()
	if b.list != nil && !b.list.Stale(now, b.ttl) {
		return b.list, nil
	}
	if b.store != nil {
		if list, err := b.store.Get(ctx, b.name); err == nil && !list.Stale(now, b.ttl) {
			b.list = list
			return list, nil
		}
	}

	list, err := b.refreshLocked(ctx)
	if list == nil {
		return nil, err
	}
	// A store failure still leaves a usable in-memory list.
	return list, nil
}

func (b *Blocklist) refreshLocked(ctx context.Context) (*cache.Blocklist, error) {
	resp, err := b.get(ctx, b.endpoint, nil)
	if err != nil {
		return nil, err
	}
	if err := b.expectOK(resp); err != nil {
		return nil, err
	}

	entries := b.parse(resp.body)
	if len(entries) == 0 {
		return nil, &model.FormatError{Source: b.name, Field: "addresses"}
	}

	fetched := b.now()
	if b.store == nil {
		b.list = memoryList(b.name, entries, fetched)
		return b.list, nil
	}

	stored, err := b.store.Put(ctx, b.name, entries, fetched)
	if err != nil {
		b.list = memoryList(b.name, entries, fetched)
		return b.list, fmt.Errorf("%s: failed to cache list: %w", b.name, err)
	}
	b.list = stored
	return stored, nil
}

func memoryList(name string, entries []string, fetched time.Time) *cache.Blocklist {
	normalized := cache.Normalize(entries)
	return &cache.Blocklist{
		Name:      name,
		FetchedAt: fetched,
		Digest:    cache.Digest(normalized),
		Entries:   normalized,
	}
}

// parseAddressLines keeps every line that is a plain IPv4 address.
func parseAddressLines(body []byte) []string {
	var out []string
	sc := bufio.NewScanner(bytes.NewReader(body))
	for sc.Scan() {
		line := string(bytes.TrimSpace(sc.Bytes()))
		if ip := net.ParseIP(line); ip != nil && ip.To4() != nil {
			out = append(out, line)
		}
	}
	return out
}

// parseEmbeddedAddresses extracts every dotted quad from free-form text.
func parseEmbeddedAddresses(body []byte) []string {
	var out []string
	for _, m := range ipv4Pattern.FindAll(body, -1) {
		if net.ParseIP(string(m)) != nil {
			out = append(out, string(m))
		}
	}
	return out
}
