// Package fixer runs the fix-and-report flow: discover preference files,
// back each one up, flip mis-detected color encodings, and write the
// result back in the original serialization format.
package fixer

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/sudowork/rgbfix/internal/backup"
	"github.com/sudowork/rgbfix/internal/display"
	"github.com/sudowork/rgbfix/internal/plist"
	"github.com/sudowork/rgbfix/internal/prefs"
)

// Options configures a run. DryRun suppresses every write, backup, and
// removal while still decoding, fixing in memory, and reporting.
type Options struct {
	DryRun bool
}

// Fixer orchestrates one fix run over all candidate preference files.
type Fixer struct {
	opts  Options
	store backup.Store
	log   *log.Logger

	// Collaborators, replaceable in tests.
	Paths      []string
	ReadFile   func(string) ([]byte, error)
	WriteFile  func(string, []byte) error
	ByHostPath func() (string, error)
	CheckOS    func(confirm func(string) bool) error
	Confirm    func(prompt string) bool
}

// New wires a fixer against the real filesystem and OS collaborators.
func New(opts Options, store backup.Store, logger *log.Logger) *Fixer {
	return &Fixer{
		opts:       opts,
		store:      store,
		log:        logger,
		Paths:      prefs.CandidatePaths(),
		ReadFile:   os.ReadFile,
		WriteFile:  prefs.WriteFileAtomic,
		ByHostPath: prefs.ByHostPath,
		CheckOS:    prefs.CheckOS,
		Confirm:    askConfirm,
	}
}

// Run executes the whole flow. A nil return means every found file was
// handled cleanly; any error means the process should exit non-zero.
func (f *Fixer) Run() error {
	if f.opts.DryRun {
		f.log.Info("Running in dry run mode")
	}

	confirm := f.Confirm
	if f.opts.DryRun {
		confirm = func(string) bool { return true }
	}
	if err := f.CheckOS(confirm); err != nil {
		return err
	}

	f.log.Info("Looking for preferences", "paths", strings.Join(f.Paths, ", "))

	var found []string
	contents := map[string][]byte{}
	for _, path := range f.Paths {
		data, err := f.ReadFile(path)
		if err != nil {
			if !os.IsNotExist(err) {
				f.log.Error("Could not read preferences", "path", path, "err", err)
			}
			continue
		}
		found = append(found, path)
		contents[path] = data
	}
	if len(found) == 0 {
		return errors.New("could not find any display preferences; try rotating your screen in Display preferences to create the file")
	}

	var failed bool
	for _, path := range found {
		f.log.Info("Found preferences file", "path", path)
		if err := f.fixPath(path, contents[path]); err != nil {
			f.log.Error("Failed to fix", "path", path, "err", err)
			failed = true
		}
	}

	f.cleanByHost()

	if failed {
		return errors.New("one or more preference files could not be fixed")
	}
	return nil
}

// fixPath fixes a single preference file. The backup must exist before any
// byte of the original is rewritten.
func (f *Fixer) fixPath(path string, data []byte) error {
	has, err := display.HasAnyLinkDescription(data)
	if err != nil {
		return err
	}
	if !has {
		f.log.Info("Skipping: no LinkDescription found in display config. "+
			"Try rotating your display from Display settings to generate the field.",
			"path", path)
		return nil
	}

	doc, err := plist.Decode(data)
	if err != nil {
		return err
	}

	if f.opts.DryRun {
		f.log.Info("Dry run: skipping backup", "path", path)
	} else {
		backupPath, err := f.store.Create(path)
		if err != nil {
			return fmt.Errorf("backup failed, leaving file untouched: %w", err)
		}
		f.log.Info("Backed up", "path", path, "backup", backupPath)
	}

	res := display.FixDocument(doc)
	for _, uuid := range res.UUIDs {
		f.log.Info("Fixed display", "uuid", uuid)
	}
	for _, uuid := range res.Skipped {
		f.log.Info("Values for PixelEncoding and Range not as expected, left untouched", "uuid", uuid)
	}
	for _, serr := range res.Errors {
		f.log.Error("Structural assumption violated", "path", path, "err", serr)
	}

	if res.Fixed == 0 {
		f.log.Info("No displays needed fixing", "path", path)
	} else {
		out, err := plist.Encode(doc)
		if err != nil {
			return err
		}
		if f.opts.DryRun {
			f.log.Info("Dry run: would write fixed preferences",
				"path", path, "format", doc.Format, "displays_fixed", res.Fixed)
		} else {
			if err := f.WriteFile(path, out); err != nil {
				return err
			}
			f.log.Info("Wrote fixed preferences", "path", path, "displays_fixed", res.Fixed)
		}
	}

	if len(res.Errors) > 0 {
		return fmt.Errorf("%d display config(s) violated structural assumptions", len(res.Errors))
	}
	return nil
}

// cleanByHost backs up and removes the per-host preferences file, which
// shadows the main one and would otherwise resurrect the bad mode.
func (f *Fixer) cleanByHost() {
	path, err := f.ByHostPath()
	if err != nil {
		f.log.Warn("Could not identify Mac UUID", "err", err)
		return
	}
	if _, err := f.ReadFile(path); err != nil {
		f.log.Info("Did not find ByHost preferences")
		return
	}
	f.log.Info("Found ByHost preferences, removing", "path", path)
	if f.opts.DryRun {
		return
	}
	if _, err := f.store.Create(path); err != nil {
		f.log.Error("Could not back up ByHost preferences, leaving in place", "err", err)
		return
	}
	if err := f.store.Remove(path); err != nil {
		f.log.Error("Could not remove ByHost preferences", "err", err)
	}
}

func askConfirm(prompt string) bool {
	fmt.Fprintf(os.Stderr, "%s [yN] ", prompt)
	var answer string
	fmt.Scanln(&answer)
	return strings.EqualFold(strings.TrimSpace(answer), "y")
}
