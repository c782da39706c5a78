package provider

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Iron-Ham/homeclock/internal/clock"
)

const sampleRegistry = `providers:
  - package: com.example.clock.digital
    provider_id: digital-clock
    content: "24h"
  - package: com.example.clock.analog
    provider_id: analog-clock
`

func writeRegistry(t *testing.T, dir, data string) string {
	t.Helper()
	path := filepath.Join(dir, "providers.yaml")
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("failed to write registry: %v", err)
	}
	return path
}

func TestParseRegistry(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		want    int
		wantErr string
	}{
		{name: "valid", data: sampleRegistry, want: 2},
		{name: "empty", data: "", want: 0},
		{name: "no providers key", data: "other: 1\n", want: 0},
		{
			name:    "missing package",
			data:    "providers:\n  - provider_id: x\n",
			wantErr: "package is required",
		},
		{
			name:    "missing provider id",
			data:    "providers:\n  - package: com.example.a\n",
			wantErr: "provider_id is required",
		},
		{
			name:    "duplicate package",
			data:    "providers:\n  - {package: a, provider_id: x}\n  - {package: a, provider_id: y}\n",
			wantErr: "duplicate package a",
		},
		{name: "malformed", data: "providers: [", wantErr: "failed to parse"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entries, err := ParseRegistry([]byte(tt.data))
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("ParseRegistry() error = %v, want containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseRegistry() error = %v", err)
			}
			if len(entries) != tt.want {
				t.Errorf("len(entries) = %d, want %d", len(entries), tt.want)
			}
		})
	}
}

func TestLoadRegistry(t *testing.T) {
	path := writeRegistry(t, t.TempDir(), sampleRegistry)

	r, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry() error = %v", err)
	}
	if r.Path() != path {
		t.Errorf("Path() = %q, want %q", r.Path(), path)
	}

	id, ok := r.Resolve("com.example.clock.digital")
	if !ok || id != clock.ProviderID("digital-clock") {
		t.Errorf("Resolve(digital) = %q, %v", id, ok)
	}
	if _, ok := r.Resolve("com.example.unknown"); ok {
		t.Error("Resolve(unknown) should fail")
	}

	e, ok := r.Lookup("com.example.clock.digital")
	if !ok || e.Content != "24h" {
		t.Errorf("Lookup(digital) = %+v, %v", e, ok)
	}

	entries := r.Entries()
	if len(entries) != 2 || entries[0].Package != "com.example.clock.analog" {
		t.Errorf("Entries() = %+v, want sorted by package", entries)
	}
}

func TestLoadRegistry_Missing(t *testing.T) {
	if _, err := LoadRegistry(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("LoadRegistry() on a missing file should fail")
	}
}

func TestRegistry_ReloadKeepsEntriesOnError(t *testing.T) {
	path := writeRegistry(t, t.TempDir(), sampleRegistry)
	r, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry() error = %v", err)
	}

	writeRegistry(t, filepath.Dir(path), "providers: [")
	if err := r.Reload(); err == nil {
		t.Fatal("Reload() of malformed file should fail")
	}
	if _, ok := r.Resolve("com.example.clock.analog"); !ok {
		t.Error("entries should survive a failed reload")
	}

	writeRegistry(t, filepath.Dir(path), "providers:\n  - {package: com.example.new, provider_id: new-clock}\n")
	if err := r.Reload(); err != nil {
		t.Fatalf("Reload() error = %v", err)
	}
	if _, ok := r.Resolve("com.example.clock.analog"); ok {
		t.Error("old entry should be gone after reload")
	}
	if id, _ := r.Resolve("com.example.new"); id != "new-clock" {
		t.Errorf("Resolve(new) = %q, want new-clock", id)
	}
}

func TestRegistry_InMemory(t *testing.T) {
	r := NewRegistry(Entry{Package: "a", ProviderID: "x"})
	if err := r.Reload(); err != nil {
		t.Errorf("Reload() without a file should be a no-op, got %v", err)
	}
	if id, ok := r.Resolve("a"); !ok || id != "x" {
		t.Errorf("Resolve(a) = %q, %v", id, ok)
	}

	r.Set([]Entry{{Package: "b", ProviderID: "y"}})
	if _, ok := r.Resolve("a"); ok {
		t.Error("Set() should replace entries")
	}
}
