// Package version resolves the set of data versions available to a client
// and loads optional per-version metadata.
package version

import (
	"encoding/json"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/ratelens/demoserver/internal/registry"
)

// File names inside a version folder.
const (
	MetadataName = "version.json"

	// SentinelName marks a folder as holding real content even when it has
	// no metadata file: the merchants listing is the one fixture every
	// extracted dataset contains.
	SentinelName = "merchants.json"
)

// Config is the optional per-version metadata record.
type Config struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Synthetic builds the metadata substituted when a version folder carries no
// version.json of its own.
func Synthetic(id string) *Config {
	return &Config{ID: id, Name: id}
}

// Resolver discovers versions by scanning a client's data root.
type Resolver struct {
	fs afero.Fs
}

// NewResolver creates a Resolver over the given filesystem.
func NewResolver(fsys afero.Fs) *Resolver {
	return &Resolver{fs: fsys}
}

// Discover lists the versions available to the client.
//
// It scans the immediate subdirectories of the client's data root, keeping
// those that contain either a metadata file or the content sentinel. If the
// scan fails or finds nothing, the statically configured version list from
// the client descriptor is returned instead. Scan results follow enumeration
// order; the fallback keeps descriptor order.
func (r *Resolver) Discover(client *registry.ClientConfig) []string {
	entries, err := afero.ReadDir(r.fs, client.DataDir)
	if err != nil {
		return staticVersions(client)
	}

	var found []string
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		if r.hasContent(filepath.Join(client.DataDir, entry.Name())) {
			found = append(found, entry.Name())
		}
	}
	if len(found) == 0 {
		return staticVersions(client)
	}
	return found
}

// hasContent reports whether a version folder holds a recognizable dataset.
func (r *Resolver) hasContent(dir string) bool {
	for _, name := range []string{MetadataName, SentinelName} {
		if ok, err := afero.Exists(r.fs, filepath.Join(dir, name)); err == nil && ok {
			return true
		}
	}
	return false
}

// Metadata loads the optional version.json for the given version. Absent or
// malformed metadata yields nil; callers substitute Synthetic.
func (r *Resolver) Metadata(client *registry.ClientConfig, versionID string) *Config {
	data, err := afero.ReadFile(r.fs, filepath.Join(client.DataDir, versionID, MetadataName))
	if err != nil {
		return nil
	}
	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil
	}
	return &cfg
}

// Contains reports whether id is in the client's discovered version set.
func (r *Resolver) Contains(client *registry.ClientConfig, id string) bool {
	for _, v := range r.Discover(client) {
		if v == id {
			return true
		}
	}
	return false
}

func staticVersions(client *registry.ClientConfig) []string {
	out := make([]string, len(client.Versions))
	copy(out, client.Versions)
	return out
}
