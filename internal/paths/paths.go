// Package paths computes where the database and the document blobs live,
// both in the shared container and in the legacy per-process location.
package paths

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"

	"github.com/nhle/tripkeeper/internal/model"
)

// Fixed names inside a container root.
const (
	DatabaseFileName   = "tripkeeper.sqlite"
	DocumentsDirName   = "Documents"
	PreferencesName    = "preferences.yaml"
	walSuffix          = "-wal"
	sharedMemorySuffix = "-shm"
)

var (
	// ErrNoAppGroup means the shared container identifier is not configured.
	ErrNoAppGroup = errors.New("shared container identifier is not configured")

	// ErrContainerUnavailable means the platform cannot provide the shared
	// container for the configured identifier.
	ErrContainerUnavailable = errors.New("shared container is unavailable")
)

// ContainerLocator maps a shared container identifier to a directory.
type ContainerLocator interface {
	ContainerPath(appGroup string) (string, error)
}

// DirLocator places each shared container in a sub-directory of Root.
// Root must already exist; the container directory is created on demand.
type DirLocator struct {
	Fs   afero.Fs
	Root string
}

// ContainerPath implements ContainerLocator.
func (l DirLocator) ContainerPath(appGroup string) (string, error) {
	if l.Root == "" {
		return "", fmt.Errorf("%w: no containers root", ErrContainerUnavailable)
	}
	ok, err := afero.DirExists(l.Fs, l.Root)
	if err != nil || !ok {
		return "", fmt.Errorf("%w: containers root %s is not a directory", ErrContainerUnavailable, l.Root)
	}
	if strings.ContainsAny(appGroup, `/\`) || appGroup == "." || appGroup == ".." {
		return "", fmt.Errorf("%w: invalid identifier %q", ErrContainerUnavailable, appGroup)
	}

	dir := filepath.Join(l.Root, appGroup)
	if err := l.Fs.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: creating %s: %v", ErrContainerUnavailable, dir, err)
	}
	return dir, nil
}

// Resolver resolves canonical (shared) and legacy storage locations.
type Resolver struct {
	fs          afero.Fs
	locator     ContainerLocator
	appGroup    string
	privateRoot string
}

// NewResolver builds a resolver from the storage configuration.
func NewResolver(fs afero.Fs, cfg model.StorageConfig, locator ContainerLocator) *Resolver {
	if locator == nil {
		locator = DirLocator{Fs: fs, Root: cfg.ContainersRoot}
	}
	return &Resolver{
		fs:          fs,
		locator:     locator,
		appGroup:    strings.TrimSpace(cfg.AppGroup),
		privateRoot: strings.TrimSpace(cfg.PrivateRoot),
	}
}

// SharedConfigured reports whether a shared container identifier is set.
// It does not touch the filesystem.
func (r *Resolver) SharedConfigured() bool {
	return r.appGroup != ""
}

// SharedContainer returns the shared container directory.
// Errors are startup configuration errors; the process cannot continue.
func (r *Resolver) SharedContainer() (string, error) {
	if r.appGroup == "" {
		return "", ErrNoAppGroup
	}
	dir, err := r.locator.ContainerPath(r.appGroup)
	if err != nil {
		return "", fmt.Errorf("resolving container %s: %w", r.appGroup, err)
	}
	return dir, nil
}

// SharedDatabasePath returns the canonical database file path.
func (r *Resolver) SharedDatabasePath() (string, error) {
	dir, err := r.SharedContainer()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DatabaseFileName), nil
}

// SharedDocumentsDir returns the canonical documents directory,
// creating it if absent.
func (r *Resolver) SharedDocumentsDir() (string, error) {
	dir, err := r.SharedContainer()
	if err != nil {
		return "", err
	}
	docs := filepath.Join(dir, DocumentsDirName)
	if err := r.fs.MkdirAll(docs, 0o755); err != nil {
		return "", fmt.Errorf("creating documents directory %s: %w", docs, err)
	}
	return docs, nil
}

// LegacyDatabasePath returns the pre-relocation database path. The second
// result is false when the private root is unknown, meaning there is
// nothing to migrate.
func (r *Resolver) LegacyDatabasePath() (string, bool) {
	if r.privateRoot == "" {
		return "", false
	}
	return filepath.Join(r.privateRoot, DatabaseFileName), true
}

// LegacyDocumentsDir returns the pre-relocation documents directory.
func (r *Resolver) LegacyDocumentsDir() (string, bool) {
	if r.privateRoot == "" {
		return "", false
	}
	return filepath.Join(r.privateRoot, DocumentsDirName), true
}

// PreferencesPath returns the per-process preferences file.
func (r *Resolver) PreferencesPath() (string, bool) {
	if r.privateRoot == "" {
		return "", false
	}
	return filepath.Join(r.privateRoot, PreferencesName), true
}

// SideFiles returns the write-ahead log and shared-memory index paths
// that accompany a database file.
func SideFiles(dbPath string) []string {
	return []string{dbPath + walSuffix, dbPath + sharedMemorySuffix}
}
