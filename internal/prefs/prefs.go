// Package prefs knows where macOS keeps windowserver display preferences
// and how to write them back safely.
package prefs

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sudowork/rgbfix/internal/backup"
)

const fileName = "com.apple.windowserver.displays.plist"

// CandidatePaths returns the preference file locations to consider, in
// priority order: the system domain first, then the user's.
func CandidatePaths() []string {
	rel := filepath.Join("Library", "Preferences", fileName)
	paths := []string{filepath.Join("/", rel)}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, rel))
	}
	return paths
}

// ByHostPath returns the per-host preference file for this machine, or an
// error when the hardware UUID cannot be determined.
func ByHostPath() (string, error) {
	uuid, err := hostUUID()
	if err != nil {
		return "", err
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	name := fmt.Sprintf("com.apple.windowserver.displays.%s.plist", uuid)
	return filepath.Join(home, "Library", "Preferences", "ByHost", name), nil
}

func hostUUID() (string, error) {
	out, err := exec.Command("ioreg", "-d2", "-c", "IOPlatformExpertDevice").Output()
	if err != nil {
		return "", fmt.Errorf("ioreg: %w", err)
	}
	for _, line := range strings.Split(string(out), "\n") {
		if !strings.Contains(line, "IOPlatformUUID") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		return strings.Trim(fields[len(fields)-1], `"`), nil
	}
	return "", fmt.Errorf("no IOPlatformUUID in ioreg output")
}

// CheckOS gates the fix on the OS revision that actually writes the
// LinkDescription field. confirm is asked before proceeding on a release
// the fix has not been fully tested against; nil means refuse.
func CheckOS(confirm func(prompt string) bool) error {
	out, err := exec.Command("sw_vers", "-productVersion").Output()
	if err != nil {
		return fmt.Errorf("sw_vers: %w", err)
	}
	return CheckVersion(strings.TrimSpace(string(out)), confirm)
}

// CheckVersion validates a macOS product version string. 11.4+ is
// supported; 12.x prompts for confirmation; everything else is refused.
func CheckVersion(version string, confirm func(prompt string) bool) error {
	parts := strings.Split(version, ".")
	switch parts[0] {
	case "11":
		if len(parts) < 2 {
			return fmt.Errorf("requires OS X 11.4 or higher (found %s)", version)
		}
		minor, err := strconv.Atoi(parts[1])
		if err != nil || minor < 4 {
			return fmt.Errorf("requires OS X 11.4 or higher (found %s)", version)
		}
		return nil
	case "12":
		if confirm != nil && confirm("This tool has not fully been tested on OS X 12 Monterey. Continue?") {
			return nil
		}
		return fmt.Errorf("only tested to work on OS X 11 Big Sur (found %s)", version)
	default:
		return fmt.Errorf("only tested to work on OS X 11 Big Sur (found %s)", version)
	}
}

// WriteFileAtomic writes data to path via a temp file in the same
// directory, escalating privilege when the destination requires it.
func WriteFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(os.TempDir(), ".rgbfix-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	if backup.NeedsElevation(path) {
		cmd := exec.Command("sudo", "cp", tmpName, path)
		cmd.Stderr = os.Stderr
		if err := cmd.Run(); err != nil {
			return fmt.Errorf("sudo cp to %s: %w", path, err)
		}
		return nil
	}

	// Rename only works within a filesystem; stage next to the target.
	staged := filepath.Join(dir, "."+filepath.Base(path)+".tmp")
	if err := copyPlain(tmpName, staged); err != nil {
		return err
	}
	if err := os.Rename(staged, path); err != nil {
		os.Remove(staged)
		return err
	}
	return nil
}

func copyPlain(src, dst string) error {
	data, err := os.ReadFile(src)
	if err != nil {
		return err
	}
	return os.WriteFile(dst, data, 0o644)
}
