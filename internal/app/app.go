// Package app wires the storage stack for a process: relocate, open and
// migrate, then hand out the services built on the migrated store.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/nhle/tripkeeper/internal/analytics"
	"github.com/nhle/tripkeeper/internal/backup"
	"github.com/nhle/tripkeeper/internal/credential"
	"github.com/nhle/tripkeeper/internal/documents"
	"github.com/nhle/tripkeeper/internal/model"
	"github.com/nhle/tripkeeper/internal/paths"
	"github.com/nhle/tripkeeper/internal/prefs"
	"github.com/nhle/tripkeeper/internal/relocate"
	"github.com/nhle/tripkeeper/internal/share"
	"github.com/nhle/tripkeeper/internal/store"
)

// Options overrides the defaults Bootstrap uses. The zero value is the
// production setup.
type Options struct {
	Fs      afero.Fs
	Locator paths.ContainerLocator
	Flags   prefs.Flags
	Locker  relocate.Locker
	Log     logrus.FieldLogger
	Sink    analytics.Sink
}

// App is a process's handle on the relocated, migrated store. It only
// exists once both steps have run.
type App struct {
	Config     *model.AppConfig
	Paths      *paths.Resolver
	Store      *store.SQLiteStore
	Docs       *documents.Storage
	Flags      prefs.Flags
	Relocation relocate.Report

	log  logrus.FieldLogger
	sink analytics.Sink
}

// Bootstrap runs the startup sequence. An error means the process cannot
// continue: the shared container is not configured or not available, or
// the database cannot be opened. Relocation and migration step failures
// are logged and do not fail it.
func Bootstrap(ctx context.Context, cfg *model.AppConfig, opts Options) (*App, error) {
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Log == nil {
		opts.Log = logrus.StandardLogger()
	}
	if opts.Sink == nil {
		opts.Sink = analytics.Nop{}
	}

	resolver := paths.NewResolver(opts.Fs, cfg.Storage, opts.Locator)
	if !resolver.SharedConfigured() {
		return nil, paths.ErrNoAppGroup
	}

	flags := opts.Flags
	if flags == nil {
		if p, ok := resolver.PreferencesPath(); ok {
			flags = prefs.NewFileFlags(opts.Fs, p)
		} else {
			opts.Log.Warn("Private storage root unknown, relocation state is not persisted")
			flags = prefs.NewMemFlags()
		}
	}

	locker := opts.Locker
	if locker == nil && cfg.Storage.LockTimeoutSec > 0 {
		locker = relocate.NewMutexLocker(time.Duration(cfg.Storage.LockTimeoutSec) * time.Second)
	}

	migrator := &relocate.Migrator{
		Fs:             opts.Fs,
		Paths:          resolver,
		Flags:          flags,
		Lock:           locker,
		Log:            opts.Log,
		Sink:           opts.Sink,
		PreserveFailed: cfg.Storage.PreserveFailedDocuments,
	}
	report := migrator.Run(ctx)

	dbPath, err := resolver.SharedDatabasePath()
	if err != nil {
		return nil, err
	}
	docsDir, err := resolver.SharedDocumentsDir()
	if err != nil {
		return nil, err
	}

	s, err := store.Open(ctx, dbPath, store.Options{Log: opts.Log, Sink: opts.Sink})
	if err != nil {
		return nil, err
	}

	return &App{
		Config:     cfg,
		Paths:      resolver,
		Store:      s,
		Docs:       documents.New(opts.Fs, docsDir),
		Flags:      flags,
		Relocation: report,
		log:        opts.Log,
		sink:       opts.Sink,
	}, nil
}

// Close releases the database connection.
func (a *App) Close() error {
	return a.Store.Close()
}

// Importer returns the share-extension importer.
func (a *App) Importer() *share.Importer {
	return &share.Importer{Repo: a.Store, Docs: a.Docs, Log: a.log, Sink: a.sink}
}

// ErrBackupDisabled is returned by BackupService when backups are off.
var ErrBackupDisabled = errors.New("backup is disabled")

// BackupService builds the backup service, reading the bucket credentials
// from creds.
func (a *App) BackupService(creds *credential.Store) (*backup.Service, error) {
	cfg := a.Config.Backup
	if !cfg.Enabled {
		return nil, ErrBackupDisabled
	}
	access, secret, err := creds.BackupCredentials()
	if err != nil {
		return nil, fmt.Errorf("loading backup credentials: %w", err)
	}
	up, err := backup.NewMinioUploader(cfg.Endpoint, cfg.Bucket, access, secret)
	if err != nil {
		return nil, err
	}
	return a.BackupServiceWith(up), nil
}

// BackupServiceWith builds the backup service on an existing uploader.
func (a *App) BackupServiceWith(up backup.Uploader) *backup.Service {
	return &backup.Service{
		DB:     a.Store,
		Docs:   a.Docs,
		Up:     up,
		Prefix: a.Config.Backup.Prefix,
		Log:    a.log,
		Sink:   a.sink,
	}
}

// BackupScheduler returns a scheduler that backs up svc whenever the
// shared documents change and at the configured interval.
func (a *App) BackupScheduler(svc *backup.Service) *backup.Scheduler {
	interval := time.Duration(a.Config.Backup.IntervalSec) * time.Second
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	return backup.NewScheduler(svc, interval, a.log, a.Docs.Dir())
}
