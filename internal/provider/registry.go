package provider

import (
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/Iron-Ham/homeclock/internal/clock"
)

// Entry maps one application package to its widget provider.
type Entry struct {
	Package    string `yaml:"package"`
	ProviderID string `yaml:"provider_id"`
	// Content is the default configuration blob for the provider.
	Content string `yaml:"content,omitempty"`
}

// registryFile is the on-disk layout of a registry.
type registryFile struct {
	Providers []Entry `yaml:"providers"`
}

// Registry resolves package names to provider ids.
type Registry struct {
	mu      sync.RWMutex
	path    string
	entries map[string]Entry
}

// NewRegistry creates an in-memory registry.
func NewRegistry(entries ...Entry) *Registry {
	r := &Registry{entries: make(map[string]Entry)}
	for _, e := range entries {
		r.entries[e.Package] = e
	}
	return r
}

// LoadRegistry reads a registry from a YAML file.
func LoadRegistry(path string) (*Registry, error) {
	r := &Registry{path: path, entries: make(map[string]Entry)}
	if err := r.Reload(); err != nil {
		return nil, err
	}
	return r, nil
}

// ParseRegistry decodes and validates registry YAML.
func ParseRegistry(data []byte) ([]Entry, error) {
	var file registryFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse provider registry: %w", err)
	}

	seen := make(map[string]bool, len(file.Providers))
	for i, e := range file.Providers {
		if strings.TrimSpace(e.Package) == "" {
			return nil, fmt.Errorf("providers[%d]: package is required", i)
		}
		if strings.TrimSpace(e.ProviderID) == "" {
			return nil, fmt.Errorf("providers[%d] (%s): provider_id is required", i, e.Package)
		}
		if seen[e.Package] {
			return nil, fmt.Errorf("providers[%d]: duplicate package %s", i, e.Package)
		}
		seen[e.Package] = true
	}
	return file.Providers, nil
}

// Path returns the file the registry was loaded from, if any.
func (r *Registry) Path() string {
	return r.path
}

// Reload re-reads the registry file. On error the current entries are kept.
func (r *Registry) Reload() error {
	if r.path == "" {
		return nil
	}
	data, err := os.ReadFile(r.path)
	if err != nil {
		return fmt.Errorf("failed to read provider registry: %w", err)
	}
	entries, err := ParseRegistry(data)
	if err != nil {
		return err
	}
	r.Set(entries)
	return nil
}

// Set replaces all entries.
func (r *Registry) Set(entries []Entry) {
	m := make(map[string]Entry, len(entries))
	for _, e := range entries {
		m[e.Package] = e
	}
	r.mu.Lock()
	r.entries = m
	r.mu.Unlock()
}

// Resolve returns the provider id registered for pkg.
func (r *Registry) Resolve(pkg string) (clock.ProviderID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[pkg]
	if !ok {
		return "", false
	}
	return clock.ProviderID(e.ProviderID), true
}

// Lookup returns the full entry for pkg.
func (r *Registry) Lookup(pkg string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[pkg]
	return e, ok
}

// Entries returns all entries sorted by package name.
func (r *Registry) Entries() []Entry {
	r.mu.RLock()
	out := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b Entry) int {
		return strings.Compare(a.Package, b.Package)
	})
	return out
}
