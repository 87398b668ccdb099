// Package documents stores document files in the shared documents
// directory. Files are named <journeyID>_<name> and never overwritten.
package documents

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"unicode"

	"github.com/spf13/afero"
)

// ErrNotFound is returned when a document file does not exist.
var ErrNotFound = errors.New("document file not found")

// maxNameAttempts bounds the "name (n).ext" search in Save.
const maxNameAttempts = 1000

// Storage reads and writes files in one directory.
type Storage struct {
	fs  afero.Fs
	dir string
}

// New returns storage rooted at dir. dir is created on first Save.
func New(fs afero.Fs, dir string) *Storage {
	return &Storage{fs: fs, dir: dir}
}

// Dir returns the documents directory.
func (s *Storage) Dir() string {
	return s.dir
}

// FileName returns the stored name for a document of a journey.
func FileName(journeyID, name string) string {
	return sanitize(journeyID) + "_" + sanitize(name)
}

func sanitize(name string) string {
	name = strings.Map(func(r rune) rune {
		switch {
		case r == '/' || r == '\\' || r == ':':
			return '-'
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, strings.TrimSpace(name))
	name = strings.Trim(name, ". ")
	if name == "" {
		return "document"
	}
	return name
}

// Save writes r as a new document of journeyID. When the name is taken,
// " (2)", " (3)" and so on is inserted before the extension. It returns the
// stored file name and the number of bytes written.
func (s *Storage) Save(journeyID, name string, r io.Reader) (string, int64, error) {
	if journeyID == "" {
		return "", 0, fmt.Errorf("saving %q: journey id is empty", name)
	}
	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return "", 0, fmt.Errorf("creating documents directory: %w", err)
	}

	base := FileName(journeyID, name)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	for i := 1; i <= maxNameAttempts; i++ {
		fileName := base
		if i > 1 {
			fileName = fmt.Sprintf("%s (%d)%s", stem, i, ext)
		}
		path := filepath.Join(s.dir, fileName)

		f, err := s.fs.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if errors.Is(err, os.ErrExist) {
			continue
		}
		if err != nil {
			return "", 0, fmt.Errorf("creating %s: %w", fileName, err)
		}

		n, err := io.Copy(f, r)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			_ = s.fs.Remove(path)
			return "", 0, fmt.Errorf("writing %s: %w", fileName, err)
		}
		return fileName, n, nil
	}
	return "", 0, fmt.Errorf("saving %q: no free file name", name)
}

// Read opens a stored document.
func (s *Storage) Read(fileName string) (io.ReadCloser, error) {
	path, err := s.path(fileName)
	if err != nil {
		return nil, err
	}
	f, err := s.fs.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", fileName, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", fileName, err)
	}
	return f, nil
}

// Size returns the size in bytes of a stored document.
func (s *Storage) Size(fileName string) (int64, error) {
	path, err := s.path(fileName)
	if err != nil {
		return 0, err
	}
	info, err := s.fs.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return 0, fmt.Errorf("%s: %w", fileName, ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", fileName, err)
	}
	return info.Size(), nil
}

// Delete removes a stored document. Deleting a missing file is not an error.
func (s *Storage) Delete(fileName string) error {
	path, err := s.path(fileName)
	if err != nil {
		return err
	}
	if err := s.fs.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("deleting %s: %w", fileName, err)
	}
	return nil
}

// List returns the stored file names of journeyID, sorted. An empty
// journeyID lists every file.
func (s *Storage) List(journeyID string) ([]string, error) {
	entries, err := afero.ReadDir(s.fs, s.dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}

	prefix := ""
	if journeyID != "" {
		prefix = sanitize(journeyID) + "_"
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !strings.HasPrefix(e.Name(), prefix) {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// DeleteJourney removes every file of journeyID.
func (s *Storage) DeleteJourney(journeyID string) error {
	if journeyID == "" {
		return fmt.Errorf("deleting documents: journey id is empty")
	}
	names, err := s.List(journeyID)
	if err != nil {
		return err
	}
	var errs []error
	for _, name := range names {
		if err := s.Delete(name); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (s *Storage) path(fileName string) (string, error) {
	if fileName == "" || fileName != filepath.Base(fileName) || fileName == "." || fileName == ".." {
		return "", fmt.Errorf("invalid document file name %q", fileName)
	}
	return filepath.Join(s.dir, fileName), nil
}
