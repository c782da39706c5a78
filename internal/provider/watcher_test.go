package provider

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := writeRegistry(t, dir, sampleRegistry)
	r, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry() error = %v", err)
	}

	w, err := NewWatcher(r, nil)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	reloaded := make(chan error, 8)
	w.OnReload(func(err error) { reloaded <- err })
	w.Start()
	defer w.Stop()

	// Unrelated files in the directory are ignored.
	if err := os.WriteFile(filepath.Join(dir, "other.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	writeRegistry(t, dir, "providers:\n  - {package: com.example.new, provider_id: new-clock}\n")

	select {
	case err := <-reloaded:
		if err != nil {
			t.Fatalf("reload error = %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}

	if id, ok := r.Resolve("com.example.new"); !ok || id != "new-clock" {
		t.Errorf("Resolve(new) = %q, %v after reload", id, ok)
	}
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	path := writeRegistry(t, t.TempDir(), sampleRegistry)
	r, err := LoadRegistry(path)
	if err != nil {
		t.Fatalf("LoadRegistry() error = %v", err)
	}
	w, err := NewWatcher(r, nil)
	if err != nil {
		t.Fatalf("NewWatcher() error = %v", err)
	}
	w.Start()
	w.Stop()
	w.Stop()
}
