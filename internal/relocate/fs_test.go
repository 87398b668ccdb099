package relocate

import (
	"os"
	"strings"
	"sync/atomic"
	"time"

	"github.com/spf13/afero"
)

// countingFs counts every call made through it.
type countingFs struct {
	afero.Fs
	calls atomic.Int64
}

func (c *countingFs) tick() { c.calls.Add(1) }

func (c *countingFs) Create(name string) (afero.File, error) { c.tick(); return c.Fs.Create(name) }
func (c *countingFs) Mkdir(name string, perm os.FileMode) error {
	c.tick()
	return c.Fs.Mkdir(name, perm)
}
func (c *countingFs) MkdirAll(path string, perm os.FileMode) error {
	c.tick()
	return c.Fs.MkdirAll(path, perm)
}
func (c *countingFs) Open(name string) (afero.File, error) { c.tick(); return c.Fs.Open(name) }
func (c *countingFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	c.tick()
	return c.Fs.OpenFile(name, flag, perm)
}
func (c *countingFs) Remove(name string) error    { c.tick(); return c.Fs.Remove(name) }
func (c *countingFs) RemoveAll(path string) error { c.tick(); return c.Fs.RemoveAll(path) }
func (c *countingFs) Rename(oldname, newname string) error {
	c.tick()
	return c.Fs.Rename(oldname, newname)
}
func (c *countingFs) Stat(name string) (os.FileInfo, error) { c.tick(); return c.Fs.Stat(name) }
func (c *countingFs) Chmod(name string, mode os.FileMode) error {
	c.tick()
	return c.Fs.Chmod(name, mode)
}
func (c *countingFs) Chown(name string, uid, gid int) error {
	c.tick()
	return c.Fs.Chown(name, uid, gid)
}
func (c *countingFs) Chtimes(name string, atime, mtime time.Time) error {
	c.tick()
	return c.Fs.Chtimes(name, atime, mtime)
}

// failingFs refuses to open any file whose name contains one of the
// configured fragments.
type failingFs struct {
	afero.Fs
	fail []string
}

func (f *failingFs) broken(name string) bool {
	for _, frag := range f.fail {
		if strings.Contains(name, frag) {
			return true
		}
	}
	return false
}

func (f *failingFs) Open(name string) (afero.File, error) {
	if f.broken(name) {
		return nil, &os.PathError{Op: "open", Path: name, Err: os.ErrPermission}
	}
	return f.Fs.Open(name)
}

func (f *failingFs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	if f.broken(name) {
		return nil, &os.PathError{Op: "open", Path: name, Err: os.ErrPermission}
	}
	return f.Fs.OpenFile(name, flag, perm)
}
