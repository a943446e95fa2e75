// Package artifact persists duct-profile artifacts and the gateway link
// index consumed by the map front-end.
package artifact

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/couchcryptid/duct-correlation-service/internal/domain"
)

// linksFile is the name of the gateway link index inside the store root.
const linksFile = "links.json"

// Store writes per gateway/date duct-profile artifacts under its root and
// maintains the link index alongside them. Artifact references in the index
// are paths relative to the root, so the whole directory can be served or
// copied as a unit.
type Store struct {
	root   string
	logger *slog.Logger
}

// NewStore creates a Store rooted at dir.
func NewStore(dir string, logger *slog.Logger) *Store {
	return &Store{root: dir, logger: logger}
}

// WriteProfile persists one duct profile and returns its reference (the path
// relative to the store root).
func (s *Store) WriteProfile(p domain.DuctProfile) (string, error) {
	ref := filepath.Join("profiles", fmt.Sprintf("%s_%s.json", p.GatewayID, p.Date))
	path := filepath.Join(s.root, ref)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create profile dir: %w", err)
	}

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode duct profile: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write duct profile: %w", err)
	}
	return ref, nil
}

// LoadLinks reads the link index. Missing or corrupt index files yield an
// empty index with a warning: the index is derived data, rebuilt
// incrementally by subsequent runs.
func (s *Store) LoadLinks() map[string]domain.GatewayLink {
	links := make(map[string]domain.GatewayLink)

	raw, err := os.ReadFile(filepath.Join(s.root, linksFile))
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("link index unreadable, starting empty", "error", err)
		}
		return links
	}
	if err := json.Unmarshal(raw, &links); err != nil {
		s.logger.Warn("link index corrupt, starting empty", "error", err)
		return make(map[string]domain.GatewayLink)
	}
	return links
}

// SaveLinks writes the link index atomically.
func (s *Store) SaveLinks(links map[string]domain.GatewayLink) error {
	data, err := json.MarshalIndent(links, "", "  ")
	if err != nil {
		return fmt.Errorf("encode link index: %w", err)
	}

	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("create artifact dir: %w", err)
	}

	path := filepath.Join(s.root, linksFile)
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write link index: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("commit link index: %w", err)
	}
	return nil
}
