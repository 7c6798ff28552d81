// Package lists provides the curated debloat recommendation lookup.
//
// The curated database is a JSON document mapping package identifiers to a
// removal tier and description. The package never fetches the document
// itself; it loads whatever file it is pointed at and can reload it when
// the file changes on disk.
package lists

import (
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/rs/zerolog/log"
)

// Tier is the curated safety classification of a package's removability.
type Tier int

const (
	// TierUnlisted means the curated database has no entry for the
	// package. Unlisted packages are flagged, never rejected.
	TierUnlisted Tier = iota
	// TierRecommended packages are safe for everyone to remove.
	TierRecommended
	// TierAdvanced packages are safe for users who know what the package
	// does.
	TierAdvanced
	// TierExpert removals can break specific device features.
	TierExpert
	// TierUnsafe removals are known to break devices.
	TierUnsafe
)

var tierNames = map[Tier]string{
	TierUnlisted:    "unlisted",
	TierRecommended: "recommended",
	TierAdvanced:    "advanced",
	TierExpert:      "expert",
	TierUnsafe:      "unsafe",
}

func (t Tier) String() string {
	if name, ok := tierNames[t]; ok {
		return name
	}
	return "unlisted"
}

// ParseTier maps a tier name from the curated JSON onto a Tier.
// Unknown names map to TierUnlisted so a newer list format degrades softly.
func ParseTier(s string) Tier {
	for tier, name := range tierNames {
		if name == s {
			return tier
		}
	}
	return TierUnlisted
}

// Entry is one curated recommendation.
type Entry struct {
	Package     string `json:"id"`
	Label       string `json:"label,omitempty"`
	Description string `json:"description"`
	List        string `json:"list"` // originating list, e.g. "oem", "carrier", "aosp"
	Removal     string `json:"removal"`
}

// Tier returns the parsed removal tier of the entry. It is computed from
// the raw removal string at read time, never cached, so a reloaded list is
// always authoritative.
func (e *Entry) Tier() Tier {
	return ParseTier(e.Removal)
}

// Source holds the loaded recommendation database. Lookups are safe for
// concurrent use with Reload: the entry map is replaced wholesale, never
// patched in place.
type Source struct {
	mu      sync.RWMutex
	path    string
	entries map[string]*Entry
}

// Load reads the curated database from path. A missing file yields an
// empty source rather than an error, so a fresh install works before the
// user has fetched any list.
func Load(path string) (*Source, error) {
	s := &Source{path: path, entries: map[string]*Entry{}}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload re-reads the database file and atomically replaces the entry set.
func (s *Source) Reload() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			log.Warn().Str("path", s.path).Msg("no debloat list found, all packages will be unlisted")
			s.mu.Lock()
			s.entries = map[string]*Entry{}
			s.mu.Unlock()
			return nil
		}
		return fmt.Errorf("failed to read debloat list: %w", err)
	}

	var raw []*Entry
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("failed to parse debloat list %s: %w", s.path, err)
	}

	entries := make(map[string]*Entry, len(raw))
	for _, e := range raw {
		if e.Package == "" {
			continue
		}
		entries[e.Package] = e
	}

	s.mu.Lock()
	s.entries = entries
	s.mu.Unlock()

	log.Info().Int("entries", len(entries)).Str("path", s.path).Msg("debloat list loaded")
	return nil
}

// Lookup returns the curated entry for a package identifier, or ok=false
// when the package is unlisted.
func (s *Source) Lookup(pkg string) (*Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[pkg]
	return e, ok
}

// TierOf returns the removal tier for a package, TierUnlisted when absent.
func (s *Source) TierOf(pkg string) Tier {
	if e, ok := s.Lookup(pkg); ok {
		return e.Tier()
	}
	return TierUnlisted
}

// Len returns the number of loaded entries.
func (s *Source) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}
