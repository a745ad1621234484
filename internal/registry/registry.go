// Package registry holds the in-memory mapping from invite code to client
// configuration, loaded from the data directory tree.
//
// Each client lives in its own immediate subdirectory of the data root and is
// described by a client.json file. The registry is replaced wholesale on every
// load: concurrent readers observe either the previous or the new contents,
// never a partial mix.
package registry

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/afero"
)

// DescriptorName is the per-client descriptor file inside each client folder.
const DescriptorName = "client.json"

// ClientConfig describes one client tenant.
type ClientConfig struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	InviteCode     string   `json:"invite_code"`
	Password       string   `json:"password"`
	DefaultVersion string   `json:"default_version"`
	Versions       []string `json:"versions"`

	// DataDir is the absolute path of the client's folder under the data
	// root. Annotated at load time, never read from the descriptor.
	DataDir string `json:"-"`
}

// Registry maps invite codes to client configurations.
type Registry struct {
	fs      afero.Fs
	dataDir string
	log     *slog.Logger

	mu            sync.RWMutex
	clients       map[string]*ClientConfig // invite code -> config
	dataDirExists bool
}

// New creates a Registry over the given filesystem rooted at dataDir.
// Call Load before use; a fresh registry is empty.
func New(fsys afero.Fs, dataDir string, log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	return &Registry{
		fs:      fsys,
		dataDir: dataDir,
		log:     log,
		clients: make(map[string]*ClientConfig),
	}
}

// DataDir returns the configured data root path.
func (r *Registry) DataDir() string {
	return r.dataDir
}

// Fs returns the filesystem the registry scans. Shared with the version
// resolver and the content routes so tests can run entirely in memory.
func (r *Registry) Fs() afero.Fs {
	return r.fs
}

// Load scans the data root and fully replaces the registry contents.
//
// A missing or unreadable data root clears the registry and returns an
// error. An individual client folder with a missing or unparsable descriptor
// is skipped with a warning; the load still succeeds. Duplicate invite codes
// resolve last-loaded-wins.
func (r *Registry) Load() error {
	entries, err := afero.ReadDir(r.fs, r.dataDir)
	if err != nil {
		r.mu.Lock()
		r.clients = make(map[string]*ClientConfig)
		r.dataDirExists = false
		r.mu.Unlock()
		return fmt.Errorf("failed to read data dir %s: %w", r.dataDir, err)
	}

	next := make(map[string]*ClientConfig)
	for _, entry := range entries {
		if !entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}

		clientDir := filepath.Join(r.dataDir, entry.Name())
		cfg, err := r.readDescriptor(clientDir)
		if err != nil {
			r.log.Warn("skipping client folder", "dir", entry.Name(), "err", err)
			continue
		}
		if prev, ok := next[cfg.InviteCode]; ok {
			r.log.Warn("duplicate invite code, last one wins",
				"invite", cfg.InviteCode, "replaced", prev.ID, "kept", cfg.ID)
		}
		next[cfg.InviteCode] = cfg
	}

	r.mu.Lock()
	r.clients = next
	r.dataDirExists = true
	r.mu.Unlock()

	r.log.Info("client registry loaded", "clients", len(next), "dataDir", r.dataDir)
	return nil
}

// readDescriptor parses the client.json inside clientDir and annotates the
// resulting config with the folder as its data root.
func (r *Registry) readDescriptor(clientDir string) (*ClientConfig, error) {
	path := filepath.Join(clientDir, DescriptorName)
	data, err := afero.ReadFile(r.fs, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read descriptor: %w", err)
	}

	var cfg ClientConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse descriptor: %w", err)
	}
	if cfg.InviteCode == "" {
		return nil, fmt.Errorf("descriptor has no invite_code")
	}

	cfg.DataDir = clientDir
	return &cfg, nil
}

// FindByInviteCode returns the client registered under the exact invite code.
func (r *Registry) FindByInviteCode(code string) (*ClientConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.clients[code]
	return c, ok
}

// FindByID returns the client with the given identifier. The registry is
// small (tens of clients), so a linear scan is fine.
func (r *Registry) FindByID(id string) (*ClientConfig, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, c := range r.clients {
		if c.ID == id {
			return c, true
		}
	}
	return nil, false
}

// Count returns the number of registered clients.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.clients)
}

// DataDirExists reports whether the last Load found the data root.
func (r *Registry) DataDirExists() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.dataDirExists
}
