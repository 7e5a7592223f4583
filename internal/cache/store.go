package cache

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"golang.org/x/crypto/sha3"
	_ "modernc.org/sqlite" // SQLite driver
)

// DBFileName is the name of the cache database inside the cache directory.
const DBFileName = "blocklists.db"

var (
	// ErrNotFound is returned by Get when no list is stored under a name.
	ErrNotFound = errors.New("blocklist not cached")

	// ErrCorrupt is returned by Get when the stored entries no longer
	// match their digest.
	ErrCorrupt = errors.New("cached blocklist digest mismatch")

	// ErrEmptyName is returned for blank list names.
	ErrEmptyName = errors.New("blocklist name must not be empty")
)

// DefaultDir returns the cache directory under XDG_CACHE_HOME.
func DefaultDir() string {
	return filepath.Join(xdg.CacheHome, "recongraph")
}

// Options configures Store behavior.
type Options struct {
	// CreateIfNotExists creates the directory and database file if missing.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default store options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Blocklist is one cached reference list.
type Blocklist struct {
	// Name identifies the list, e.g. "talos".
	Name string

	// FetchedAt is when the list was downloaded from upstream.
	FetchedAt time.Time

	// Digest is the hex SHA3-256 digest of the normalized entries.
	Digest string

	// Entries are sorted and de-duplicated.
	Entries []string
}

// Age returns how long ago the list was fetched, relative to now.
func (b *Blocklist) Age(now time.Time) time.Duration {
	return now.Sub(b.FetchedAt)
}

// Stale reports whether the list is older than ttl.
func (b *Blocklist) Stale(now time.Time, ttl time.Duration) bool {
	return b.Age(now) > ttl
}

// Contains reports whether entry is in the list.
func (b *Blocklist) Contains(entry string) bool {
	_, found := slices.BinarySearch(b.Entries, strings.TrimSpace(entry))
	return found
}

// Summary describes a cached list without its entries.
type Summary struct {
	Name      string
	FetchedAt time.Time
	Digest    string
	Count     int
}

// Store is a SQLite-backed blocklist cache.
type Store struct {
	db     *sql.DB
	dbPath string
}

// Open opens or creates the store inside dir.
func Open(dir string, opts Options) (*Store, error) {
	dbPath := filepath.Join(dir, DBFileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("cache not found at %s: %w", dbPath, err)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check cache path: %w", err)
		}
	} else if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	mode := "rw"
	if opts.CreateIfNotExists {
		mode = "rwc"
	}

	db, err := sql.Open("sqlite", dbPath+"?mode="+mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open cache: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s := &Store{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close() //nolint:errcheck // Already failing
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := s.createTables(); err != nil {
		_ = db.Close() //nolint:errcheck // Already failing
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.dbPath
}

func (s *Store) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS blocklists (
		name TEXT PRIMARY KEY,
		fetched_at INTEGER NOT NULL,
		digest TEXT NOT NULL,
		entry_count INTEGER NOT NULL,
		entries TEXT NOT NULL
	);
	`
	_, err := s.db.ExecContext(context.Background(), schema)
	return err
}

// Put replaces the list stored under name. Entries are trimmed, blank lines
// dropped, and the rest sorted and de-duplicated before the digest is taken.
func (s *Store) Put(ctx context.Context, name string, entries []string, fetchedAt time.Time) (*Blocklist, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}

	list := &Blocklist{
		Name:      name,
		FetchedAt: fetchedAt.UTC().Truncate(time.Second),
		Entries:   Normalize(entries),
	}
	list.Digest = Digest(list.Entries)

	query := `
	INSERT INTO blocklists (name, fetched_at, digest, entry_count, entries)
	VALUES (?, ?, ?, ?, ?)
	ON CONFLICT(name) DO UPDATE SET
		fetched_at = excluded.fetched_at,
		digest = excluded.digest,
		entry_count = excluded.entry_count,
		entries = excluded.entries
	`
	if _, err := s.db.ExecContext(ctx, query,
		list.Name,
		list.FetchedAt.Unix(),
		list.Digest,
		len(list.Entries),
		strings.Join(list.Entries, "\n"),
	); err != nil {
		return nil, fmt.Errorf("failed to store blocklist %s: %w", name, err)
	}
	return list, nil
}

// Get loads the list stored under name.
// It returns ErrNotFound when nothing is stored and ErrCorrupt when the
// entries fail digest verification.
//
// Design decision: We store a SHA3-256 digest next to the entries and
// verify it on every read, so a truncated or hand-edited cache is refetched
// instead of silently answering membership queries wrongly.
func (s *Store) Get(ctx context.Context, name string) (*Blocklist, error) {
	query := `SELECT name, fetched_at, digest, entries FROM blocklists WHERE name = ?`

	var (
		list    Blocklist
		fetched int64
		raw     string
	)
	err := s.db.QueryRowContext(ctx, query, name).Scan(&list.Name, &fetched, &list.Digest, &raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load blocklist %s: %w", name, err)
	}

	list.FetchedAt = time.Unix(fetched, 0).UTC()
	if raw != "" {
		list.Entries = strings.Split(raw, "\n")
	}
	if Digest(list.Entries) != list.Digest {
		return nil, fmt.Errorf("%s: %w", name, ErrCorrupt)
	}
	return &list, nil
}

// List returns a summary of every cached list ordered by name.
func (s *Store) List(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, fetched_at, digest, entry_count FROM blocklists ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to list blocklists: %w", err)
	}
	defer rows.Close()

	var out []Summary
	for rows.Next() {
		var (
			sum     Summary
			fetched int64
		)
		if err := rows.Scan(&sum.Name, &fetched, &sum.Digest, &sum.Count); err != nil {
			return nil, fmt.Errorf("failed to scan blocklist row: %w", err)
		}
		sum.FetchedAt = time.Unix(fetched, 0).UTC()
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Delete removes the list stored under name. Deleting a missing list is not
// an error.
func (s *Store) Delete(ctx context.Context, name string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM blocklists WHERE name = ?`, name); err != nil {
		return fmt.Errorf("failed to delete blocklist %s: %w", name, err)
	}
	return nil
}

// Normalize trims entries, drops blanks, and returns them sorted without
// duplicates.
func Normalize(entries []string) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if e = strings.TrimSpace(e); e != "" {
			out = append(out, e)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// Digest returns the hex SHA3-256 digest of normalized entries.
func Digest(entries []string) string {
	h := sha3.New256()
	for _, e := range entries {
		h.Write([]byte(e))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}
