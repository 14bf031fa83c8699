// Package backup creates, lists, restores, and removes timestamped copies
// of preference files. A backup lives next to its original as
// <name>.bak.<unix-seconds> and is never modified after creation.
package backup

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Entry is one discovered backup of a logical preference path.
type Entry struct {
	LogicalPath string
	Path        string
	Time        time.Time // zero if the filename suffix was not a unix timestamp
	Suffix      string
}

// Label is the human-readable timestamp for list screens, falling back to
// the raw filename suffix when it does not parse.
func (e Entry) Label() string {
	if e.Time.IsZero() {
		return e.Suffix
	}
	return e.Time.Format(time.RFC3339)
}

// Store is the backup collaborator consumed by the fixer and the browser.
type Store interface {
	// List returns all backups of path, newest first. An empty slice is a
	// legitimate result, not an error.
	List(path string) []Entry
	// Create copies path to a fresh timestamped backup and returns the
	// backup path.
	Create(path string) (string, error)
	// Restore copies a backup back over its logical path.
	Restore(e Entry) error
	// Remove deletes the file at path.
	Remove(path string) error
}

// NeedsElevation reports whether path lives outside the user's home and so
// requires sudo to modify.
func NeedsElevation(path string) bool {
	return strings.HasPrefix(path, "/Library")
}

// DirStore keeps backups in the same directory as the original file.
type DirStore struct{}

func NewDirStore() *DirStore { return &DirStore{} }

func (s *DirStore) List(path string) []Entry {
	matches, err := filepath.Glob(path + ".bak.*")
	if err != nil {
		return nil
	}
	entries := make([]Entry, 0, len(matches))
	for _, m := range matches {
		entries = append(entries, newEntry(path, m))
	}
	// Newest first; unparsable suffixes sort last.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Time.After(entries[j].Time)
	})
	return entries
}

func (s *DirStore) Create(path string) (string, error) {
	backupPath := fmt.Sprintf("%s.bak.%d", path, time.Now().Unix())
	if err := copyFile(path, backupPath); err != nil {
		return "", fmt.Errorf("backing up %s: %w", path, err)
	}
	return backupPath, nil
}

func (s *DirStore) Restore(e Entry) error {
	if err := copyFile(e.Path, e.LogicalPath); err != nil {
		return fmt.Errorf("restoring %s: %w", e.LogicalPath, err)
	}
	return nil
}

func (s *DirStore) Remove(path string) error {
	if NeedsElevation(path) {
		return run("sudo", "rm", path)
	}
	return os.Remove(path)
}

func newEntry(logical, backupPath string) Entry {
	suffix := backupPath[strings.LastIndex(backupPath, ".")+1:]
	e := Entry{LogicalPath: logical, Path: backupPath, Suffix: suffix}
	if secs, err := strconv.ParseInt(suffix, 10, 64); err == nil {
		e.Time = time.Unix(secs, 0)
	}
	return e
}

// copyFile copies src to dst, shelling out to sudo when either side is a
// protected system path.
func copyFile(src, dst string) error {
	if NeedsElevation(src) || NeedsElevation(dst) {
		return run("sudo", "cp", src, dst)
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

func run(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	cmd.Stderr = os.Stderr
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%s %s: %w", name, strings.Join(args, " "), err)
	}
	return nil
}
