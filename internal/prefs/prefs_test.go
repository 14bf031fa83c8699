package prefs

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCheckVersion(t *testing.T) {
	yes := func(string) bool { return true }
	no := func(string) bool { return false }

	tests := []struct {
		name    string
		version string
		confirm func(string) bool
		wantErr bool
	}{
		{"big sur minimum", "11.4", nil, false},
		{"big sur later", "11.6.2", nil, false},
		{"big sur too old", "11.3", nil, true},
		{"big sur no minor", "11", nil, true},
		{"monterey confirmed", "12.1", yes, false},
		{"monterey declined", "12.1", no, true},
		{"monterey no prompt", "12.1", nil, true},
		{"catalina", "10.15.7", nil, true},
		{"garbage", "not-a-version", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckVersion(tt.version, tt.confirm)
			if (err != nil) != tt.wantErr {
				t.Errorf("CheckVersion(%q) error = %v, wantErr %v", tt.version, err, tt.wantErr)
			}
		})
	}
}

func TestCandidatePaths(t *testing.T) {
	paths := CandidatePaths()
	if len(paths) < 1 {
		t.Fatal("no candidate paths")
	}
	if paths[0] != "/Library/Preferences/com.apple.windowserver.displays.plist" {
		t.Errorf("paths[0] = %q, want the system domain first", paths[0])
	}
	for _, p := range paths {
		if !strings.HasSuffix(p, "com.apple.windowserver.displays.plist") {
			t.Errorf("path %q does not name the displays plist", p)
		}
	}
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "displays.plist")
	if err := os.WriteFile(path, []byte("before"), 0o644); err != nil {
		t.Fatal(err)
	}

	if err := WriteFileAtomic(path, []byte("after")); err != nil {
		t.Fatalf("WriteFileAtomic: %v", err)
	}
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "after" {
		t.Errorf("contents = %q, want %q", got, "after")
	}

	// No stray staging files left behind.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("directory has %d entries after write, want 1", len(entries))
	}
}
