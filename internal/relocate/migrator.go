// Package relocate moves the database and the documents directory from
// the legacy private location into the shared container, once.
//
// The procedure is best effort and runs at most once per process image:
// every filesystem failure is logged and the step is treated as not
// migrated, and the completion flag is set at the end regardless. It never
// replaces a file that already exists in the shared container, which is
// what keeps two processes racing through it from corrupting each other.
package relocate

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/nhle/tripkeeper/internal/analytics"
	"github.com/nhle/tripkeeper/internal/paths"
	"github.com/nhle/tripkeeper/internal/prefs"
)

// FlagKey is the preference recording that relocation has completed.
const FlagKey = "container_relocation_completed"

// Locations is the part of the path resolver relocation needs.
type Locations interface {
	SharedConfigured() bool
	SharedDatabasePath() (string, error)
	SharedDocumentsDir() (string, error)
	LegacyDatabasePath() (string, bool)
	LegacyDocumentsDir() (string, bool)
}

var _ Locations = (*paths.Resolver)(nil)

// Report describes what a Run did.
type Report struct {
	// Skipped is set when the flag was already set and nothing was touched.
	Skipped bool
	// Deferred is set when the shared container could not be resolved.
	// The flag stays unset so the next launch tries again.
	Deferred bool

	DatabaseCopied    bool
	DatabaseDiscarded bool
	SideFilesCopied   int

	DocumentsCopied  int
	DocumentsSkipped int
	DocumentsFailed  int

	// Completed is set when the flag was written.
	Completed bool
}

// Migrator performs the relocation. Fs, Paths and Flags are required.
type Migrator struct {
	Fs    afero.Fs
	Paths Locations
	Flags prefs.Flags

	// Lock, when set, is held around the file moves so a second process
	// waits instead of racing.
	Lock Locker

	Log  logrus.FieldLogger
	Sink analytics.Sink

	// PreserveFailed keeps documents that failed to copy, and therefore
	// the legacy documents directory, instead of deleting them.
	PreserveFailed bool
}

// Run relocates if the flag is not set yet. It must finish before the
// process opens the database.
func (m *Migrator) Run(ctx context.Context) Report {
	log := m.logger()
	sink := m.sink()
	var rep Report

	done, err := m.Flags.Bool(FlagKey)
	if err != nil {
		log.WithError(err).Warn("Reading relocation flag failed, assuming not relocated")
	}
	if done {
		rep.Skipped = true
		sink.Track(analytics.EventRelocationSkipped, nil)
		return rep
	}

	if !m.Paths.SharedConfigured() {
		log.Warn("Shared container is not configured, deferring relocation")
		rep.Deferred = true
		sink.Track(analytics.EventRelocationDeferred, map[string]string{"reason": "unconfigured"})
		return rep
	}
	sharedDB, err := m.Paths.SharedDatabasePath()
	if err != nil {
		log.WithError(err).Error("Shared container is unavailable, deferring relocation")
		rep.Deferred = true
		sink.Track(analytics.EventRelocationDeferred, map[string]string{"reason": "unavailable"})
		return rep
	}

	if m.Lock != nil {
		release, err := m.Lock.Lock(ctx)
		if err != nil {
			log.WithError(err).Warn("Relocation lock not acquired, continuing without it")
		} else {
			defer release()
		}
	}

	m.relocateDatabase(log, sink, sharedDB, &rep)
	m.relocateDocuments(log, sink, &rep)

	if err := m.Flags.SetBool(FlagKey, true); err != nil {
		log.WithError(err).Error("Writing relocation flag failed")
	} else {
		rep.Completed = true
	}

	log.WithFields(logrus.Fields{
		"database_copied":    rep.DatabaseCopied,
		"database_discarded": rep.DatabaseDiscarded,
		"documents_copied":   rep.DocumentsCopied,
		"documents_skipped":  rep.DocumentsSkipped,
		"documents_failed":   rep.DocumentsFailed,
	}).Info("Container relocation finished")
	sink.Track(analytics.EventRelocationCompleted, map[string]string{
		"documents_failed": fmt.Sprint(rep.DocumentsFailed),
	})
	return rep
}

func (m *Migrator) relocateDatabase(log logrus.FieldLogger, sink analytics.Sink, shared string, rep *Report) {
	legacy, ok := m.Paths.LegacyDatabasePath()
	if !ok {
		log.Debug("Private storage root unknown, no legacy database")
		return
	}
	log = log.WithFields(logrus.Fields{"legacy": legacy, "shared": shared})

	exists, err := afero.Exists(m.Fs, legacy)
	if err != nil {
		log.WithError(err).Error("Checking legacy database failed")
		return
	}
	if !exists {
		return
	}

	sharedExists, err := afero.Exists(m.Fs, shared)
	if err != nil {
		log.WithError(err).Error("Checking shared database failed, leaving legacy database in place")
		return
	}
	if sharedExists {
		log.Info("Shared database already exists, discarding legacy copy")
		m.removeDatabase(log, legacy)
		rep.DatabaseDiscarded = true
		sink.Track(analytics.EventDatabaseDiscarded, nil)
		return
	}

	err = copyFile(m.Fs, legacy, shared)
	switch {
	case errors.Is(err, os.ErrExist):
		// Another process created the shared file between the check and
		// the copy. Its copy wins.
		log.Info("Shared database appeared during relocation, discarding legacy copy")
		m.removeDatabase(log, legacy)
		rep.DatabaseDiscarded = true
		sink.Track(analytics.EventDatabaseDiscarded, map[string]string{"reason": "race"})
		return
	case err != nil:
		log.WithError(err).Error("Copying legacy database failed")
		return
	}
	rep.DatabaseCopied = true

	// The primary file was just created, so any side file already in the
	// shared container belongs to another database. SQLite would replay a
	// stale WAL over the relocated data.
	for _, stale := range paths.SideFiles(shared) {
		if err := m.Fs.Remove(stale); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.WithError(err).WithField("file", filepath.Base(stale)).Error("Removing stale shared side file failed, undoing database copy")
			if err := m.Fs.Remove(shared); err != nil {
				log.WithError(err).Error("Removing copied database failed")
			}
			rep.DatabaseCopied = false
			return
		}
	}

	var kept []string
	for _, side := range paths.SideFiles(legacy) {
		ok, err := afero.Exists(m.Fs, side)
		if err != nil || !ok {
			continue
		}
		dst := shared + side[len(legacy):]
		if err := copyFile(m.Fs, side, dst); err != nil {
			// The legacy side file stays so its frames can be recovered.
			log.WithError(err).WithField("file", filepath.Base(side)).Warn("Copying database side file failed, keeping legacy copy")
			kept = append(kept, side)
			continue
		}
		rep.SideFilesCopied++
	}

	m.removeDatabase(log, legacy, kept...)
	log.Info("Database relocated to shared container")
	sink.Track(analytics.EventDatabaseRelocated, map[string]string{
		"side_files": fmt.Sprint(rep.SideFilesCopied),
	})
}

// removeDatabase deletes a database file and its side files, except the
// paths in keep.
func (m *Migrator) removeDatabase(log logrus.FieldLogger, db string, keep ...string) {
	for _, p := range append([]string{db}, paths.SideFiles(db)...) {
		if slices.Contains(keep, p) {
			continue
		}
		if err := m.Fs.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			log.WithError(err).WithField("file", filepath.Base(p)).Warn("Removing legacy database file failed")
		}
	}
}

func (m *Migrator) relocateDocuments(log logrus.FieldLogger, sink analytics.Sink, rep *Report) {
	legacy, ok := m.Paths.LegacyDocumentsDir()
	if !ok {
		return
	}
	log = log.WithField("legacy_documents", legacy)

	isDir, err := afero.DirExists(m.Fs, legacy)
	if err != nil {
		log.WithError(err).Error("Checking legacy documents directory failed")
		return
	}
	if !isDir {
		return
	}

	entries, err := afero.ReadDir(m.Fs, legacy)
	if err != nil {
		log.WithError(err).Error("Listing legacy documents failed")
		return
	}
	if len(entries) == 0 {
		if err := m.Fs.Remove(legacy); err != nil {
			log.WithError(err).Warn("Removing empty legacy documents directory failed")
		}
		return
	}

	shared, err := m.Paths.SharedDocumentsDir()
	if err != nil {
		log.WithError(err).Error("Shared documents directory is unavailable")
		return
	}

	var failed []string
	for _, entry := range entries {
		name := entry.Name()
		src := filepath.Join(legacy, name)
		dst := filepath.Join(shared, name)
		flog := log.WithField("document", name)

		exists, err := afero.Exists(m.Fs, dst)
		if err != nil {
			flog.WithError(err).Error("Checking shared document failed")
			failed = append(failed, name)
			rep.DocumentsFailed++
			sink.Track(analytics.EventDocumentFailed, nil)
			continue
		}
		if exists {
			rep.DocumentsSkipped++
			continue
		}

		if entry.IsDir() {
			err = copyDir(m.Fs, src, dst)
		} else {
			err = copyFile(m.Fs, src, dst)
		}
		switch {
		case errors.Is(err, os.ErrExist):
			rep.DocumentsSkipped++
		case err != nil:
			flog.WithError(err).Error("Copying document failed")
			failed = append(failed, name)
			rep.DocumentsFailed++
			sink.Track(analytics.EventDocumentFailed, nil)
		default:
			rep.DocumentsCopied++
			sink.Track(analytics.EventDocumentRelocated, nil)
		}
	}

	if m.PreserveFailed && len(failed) > 0 {
		keep := make(map[string]bool, len(failed))
		for _, name := range failed {
			keep[name] = true
		}
		for _, entry := range entries {
			if keep[entry.Name()] {
				continue
			}
			if err := m.Fs.RemoveAll(filepath.Join(legacy, entry.Name())); err != nil {
				log.WithError(err).WithField("document", entry.Name()).Warn("Removing legacy document failed")
			}
		}
		log.WithField("kept", failed).Warn("Kept legacy documents that failed to relocate")
		return
	}

	if len(failed) > 0 {
		log.WithField("lost", failed).Error("Deleting legacy documents that failed to relocate")
	}
	if err := m.Fs.RemoveAll(legacy); err != nil {
		log.WithError(err).Warn("Removing legacy documents directory failed")
	}
}

func (m *Migrator) logger() logrus.FieldLogger {
	log := m.Log
	if log == nil {
		log = logrus.StandardLogger()
	}
	return log.WithField("component", "relocate")
}

func (m *Migrator) sink() analytics.Sink {
	if m.Sink == nil {
		return analytics.Nop{}
	}
	return m.Sink
}

// Reset clears the completion flag so the next Run relocates again. It is
// a debugging aid; the application never calls it.
func Reset(flags prefs.Flags) error {
	if err := flags.SetBool(FlagKey, false); err != nil {
		return fmt.Errorf("resetting relocation flag: %w", err)
	}
	return nil
}
