package paths

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/tripkeeper/internal/model"
)

func newResolver(t *testing.T, cfg model.StorageConfig) (*Resolver, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/containers", 0o755))
	if cfg.ContainersRoot == "" {
		cfg.ContainersRoot = "/containers"
	}
	return NewResolver(fs, cfg, nil), fs
}

func TestResolver_SharedPaths(t *testing.T) {
	r, fs := newResolver(t, model.StorageConfig{AppGroup: "group.trips", PrivateRoot: "/private"})

	db, err := r.SharedDatabasePath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/containers", "group.trips", DatabaseFileName), db)

	docs, err := r.SharedDocumentsDir()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/containers", "group.trips", DocumentsDirName), docs)

	exists, err := afero.DirExists(fs, docs)
	require.NoError(t, err)
	assert.True(t, exists)

	// Creating the documents directory again is harmless.
	again, err := r.SharedDocumentsDir()
	require.NoError(t, err)
	assert.Equal(t, docs, again)
}

func TestResolver_MissingAppGroupIsFatal(t *testing.T) {
	r, _ := newResolver(t, model.StorageConfig{PrivateRoot: "/private"})

	assert.False(t, r.SharedConfigured())
	_, err := r.SharedDatabasePath()
	assert.ErrorIs(t, err, ErrNoAppGroup)
	_, err = r.SharedDocumentsDir()
	assert.ErrorIs(t, err, ErrNoAppGroup)
}

func TestResolver_ContainerUnavailable(t *testing.T) {
	fs := afero.NewMemMapFs()
	r := NewResolver(fs, model.StorageConfig{AppGroup: "group.trips", ContainersRoot: "/nowhere"}, nil)

	assert.True(t, r.SharedConfigured())
	_, err := r.SharedDatabasePath()
	assert.ErrorIs(t, err, ErrContainerUnavailable)
}

type failingLocator struct{}

func (failingLocator) ContainerPath(string) (string, error) {
	return "", errors.New("entitlement missing")
}

func TestResolver_LocatorErrorPropagates(t *testing.T) {
	r := NewResolver(afero.NewMemMapFs(), model.StorageConfig{AppGroup: "group.trips"}, failingLocator{})
	_, err := r.SharedContainer()
	assert.ErrorContains(t, err, "entitlement missing")
}

func TestDirLocator_RejectsPathSeparators(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/containers", 0o755))

	_, err := DirLocator{Fs: fs, Root: "/containers"}.ContainerPath("../escape")
	assert.ErrorIs(t, err, ErrContainerUnavailable)
}

func TestResolver_LegacyPaths(t *testing.T) {
	r, _ := newResolver(t, model.StorageConfig{AppGroup: "group.trips", PrivateRoot: "/private"})

	db, ok := r.LegacyDatabasePath()
	require.True(t, ok)
	assert.Equal(t, filepath.Join("/private", DatabaseFileName), db)

	docs, ok := r.LegacyDocumentsDir()
	require.True(t, ok)
	assert.Equal(t, filepath.Join("/private", DocumentsDirName), docs)

	prefs, ok := r.PreferencesPath()
	require.True(t, ok)
	assert.Equal(t, filepath.Join("/private", PreferencesName), prefs)
}

func TestResolver_LegacyUnavailable(t *testing.T) {
	r, _ := newResolver(t, model.StorageConfig{AppGroup: "group.trips"})

	_, ok := r.LegacyDatabasePath()
	assert.False(t, ok)
	_, ok = r.LegacyDocumentsDir()
	assert.False(t, ok)
}

func TestSideFiles(t *testing.T) {
	assert.Equal(t,
		[]string{"/c/tripkeeper.sqlite-wal", "/c/tripkeeper.sqlite-shm"},
		SideFiles("/c/tripkeeper.sqlite"))
}
