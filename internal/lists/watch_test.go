package lists

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestWatch_ReloadsOnRewrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "lists.json")

	before := `[{"id": "com.vendor.bloatware", "description": "d", "list": "oem", "removal": "Recommended"}]`
	if err := os.WriteFile(path, []byte(before), 0o644); err != nil {
		t.Fatal(err)
	}

	src, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := src.TierOf("com.vendor.bloatware"); got != TierRecommended {
		t.Fatalf("initial tier = %v", got)
	}

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		if err := src.Watch(stop); err != nil {
			t.Errorf("Watch: %v", err)
		}
	}()

	// Give the watcher a moment to attach before rewriting.
	time.Sleep(50 * time.Millisecond)

	after := `[{"id": "com.vendor.bloatware", "description": "d", "list": "oem", "removal": "Unsafe"}]`
	if err := os.WriteFile(path, []byte(after), 0o644); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if src.TierOf("com.vendor.bloatware") == TierUnsafe {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("tier never updated after rewrite, still %v", src.TierOf("com.vendor.bloatware"))
}
