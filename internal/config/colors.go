package config

import (
	"encoding/json"
	"os"
	"path/filepath"
)

// ColorStore persists the tree color categories as a JSON blob. Reads
// and writes are best-effort; callers swallow errors.
type ColorStore struct {
	path string
}

// NewColorStore persists under dir, or the default config directory when
// dir is empty.
func NewColorStore(dir string) *ColorStore {
	if dir == "" {
		dir = Dir()
	}
	return &ColorStore{path: filepath.Join(dir, "colorCategories.json")}
}

// Path returns the blob location.
func (c *ColorStore) Path() string { return c.path }

// SaveColorCategories writes the category mapping.
func (c *ColorStore) SaveColorCategories(categories map[string]string) error {
	data, err := json.MarshalIndent(categories, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(c.path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(c.path, data, 0o644)
}

// LoadColorCategories reads the category mapping. A missing file yields
// an empty mapping.
func (c *ColorStore) LoadColorCategories() (map[string]string, error) {
	data, err := os.ReadFile(c.path)
	if os.IsNotExist(err) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, err
	}
	var categories map[string]string
	if err := json.Unmarshal(data, &categories); err != nil {
		return nil, err
	}
	if categories == nil {
		categories = map[string]string{}
	}
	return categories, nil
}
