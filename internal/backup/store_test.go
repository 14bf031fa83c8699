package backup

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestEntryLabel(t *testing.T) {
	tests := []struct {
		name  string
		entry Entry
		want  string
	}{
		{
			"parsed timestamp",
			newEntry("/p/a.plist", "/p/a.plist.bak.1623016550"),
			time.Unix(1623016550, 0).Format(time.RFC3339),
		},
		{
			"unparsable suffix falls back",
			newEntry("/p/a.plist", "/p/a.plist.bak.orig"),
			"orig",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.entry.Label(); got != tt.want {
				t.Errorf("Label() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDirStoreListNewestFirst(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "displays.plist")
	writeFile(t, path, "current")
	writeFile(t, path+".bak.100", "old")
	writeFile(t, path+".bak.300", "newest")
	writeFile(t, path+".bak.200", "middle")

	entries := NewDirStore().List(path)
	if len(entries) != 3 {
		t.Fatalf("List returned %d entries, want 3", len(entries))
	}
	wantSuffixes := []string{"300", "200", "100"}
	for i, want := range wantSuffixes {
		if entries[i].Suffix != want {
			t.Errorf("entries[%d].Suffix = %q, want %q", i, entries[i].Suffix, want)
		}
		if entries[i].LogicalPath != path {
			t.Errorf("entries[%d].LogicalPath = %q, want %q", i, entries[i].LogicalPath, path)
		}
	}
}

func TestDirStoreListEmpty(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "displays.plist")
	writeFile(t, path, "no backups yet")

	if entries := NewDirStore().List(path); len(entries) != 0 {
		t.Errorf("List = %v, want empty", entries)
	}
}

func TestDirStoreCreateAndRestore(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "displays.plist")
	writeFile(t, path, "original contents")

	store := NewDirStore()
	backupPath, err := store.Create(path)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, err := os.ReadFile(backupPath)
	if err != nil {
		t.Fatalf("reading backup: %v", err)
	}
	if string(got) != "original contents" {
		t.Errorf("backup contents = %q", got)
	}

	writeFile(t, path, "mutated contents")
	entries := store.List(path)
	if len(entries) != 1 {
		t.Fatalf("List returned %d entries, want 1", len(entries))
	}
	if err := store.Restore(entries[0]); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	restored, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(restored) != "original contents" {
		t.Errorf("restored contents = %q, want original", restored)
	}
}

func TestDirStoreCreateMissingFile(t *testing.T) {
	dir := t.TempDir()
	if _, err := NewDirStore().Create(filepath.Join(dir, "absent.plist")); err == nil {
		t.Error("Create of a missing file succeeded, want error")
	}
}

func TestNeedsElevation(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"/Library/Preferences/com.apple.windowserver.displays.plist", true},
		{"/Users/kgao/Library/Preferences/com.apple.windowserver.displays.plist", false},
		{"/tmp/displays.plist", false},
	}
	for _, tt := range tests {
		if got := NeedsElevation(tt.path); got != tt.want {
			t.Errorf("NeedsElevation(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}
