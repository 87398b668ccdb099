// Package prefs persists small per-process preference values, such as the
// container relocation flag, outside the database.
package prefs

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/afero"
	"github.com/spf13/viper"
)

// Flags reads and writes boolean preferences by key.
type Flags interface {
	Bool(key string) (bool, error)
	SetBool(key string, value bool) error
}

// FileFlags stores preferences in a YAML file. The file is re-read on every
// access so that separate handles on the same file observe each other's
// writes.
type FileFlags struct {
	fs   afero.Fs
	path string
	mu   sync.Mutex
}

// NewFileFlags returns preferences backed by the YAML file at path.
func NewFileFlags(fs afero.Fs, path string) *FileFlags {
	return &FileFlags{fs: fs, path: path}
}

// Path returns the backing file path.
func (f *FileFlags) Path() string {
	return f.path
}

// Bool returns the value for key, false when unset or when the file does
// not exist yet.
func (f *FileFlags) Bool(key string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	v, err := f.load()
	if err != nil {
		return false, err
	}
	return v.GetBool(key), nil
}

// SetBool stores value under key. The file is replaced atomically.
func (f *FileFlags) SetBool(key string, value bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	v, err := f.load()
	if err != nil {
		return err
	}
	v.Set(key, value)

	dir := filepath.Dir(f.path)
	if err := f.fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating preferences directory %s: %w", dir, err)
	}

	// Each writer gets its own temp file; two processes may save at once.
	// Viper picks the encoder from the extension, so keep ".yaml" last.
	base := strings.TrimSuffix(filepath.Base(f.path), filepath.Ext(f.path))
	tf, err := afero.TempFile(f.fs, dir, base+"-*.yaml")
	if err != nil {
		return fmt.Errorf("creating temporary preferences file: %w", err)
	}
	tmp := tf.Name()
	if err := tf.Close(); err != nil {
		_ = f.fs.Remove(tmp)
		return fmt.Errorf("creating temporary preferences file: %w", err)
	}
	if err := v.WriteConfigAs(tmp); err != nil {
		_ = f.fs.Remove(tmp)
		return fmt.Errorf("writing preferences %s: %w", tmp, err)
	}
	if err := f.fs.Rename(tmp, f.path); err != nil {
		_ = f.fs.Remove(tmp)
		return fmt.Errorf("replacing preferences %s: %w", f.path, err)
	}
	return nil
}

func (f *FileFlags) load() (*viper.Viper, error) {
	v := viper.New()
	v.SetFs(f.fs)
	v.SetConfigFile(f.path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		var pathErr *os.PathError
		if errors.As(err, &pathErr) && errors.Is(err, os.ErrNotExist) {
			return v, nil
		}
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return v, nil
		}
		return nil, fmt.Errorf("reading preferences %s: %w", f.path, err)
	}
	return v, nil
}

// MemFlags is an in-memory Flags, used by tests and by processes that run
// without a private storage root.
type MemFlags struct {
	mu     sync.Mutex
	values map[string]bool
}

// NewMemFlags returns empty in-memory preferences.
func NewMemFlags() *MemFlags {
	return &MemFlags{values: make(map[string]bool)}
}

// Bool implements Flags.
func (m *MemFlags) Bool(key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values[key], nil
}

// SetBool implements Flags.
func (m *MemFlags) SetBool(key string, value bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}
