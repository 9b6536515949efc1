package gofat

import (
	"os"
	"path"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/afero"

	"github.com/aligator/gofat32/checkpoint"
)

// Fs is a read only afero.Fs view of an image.
// Names are matched case insensitive against the long and the short name of an entry.
// Use afero.NewIOFS to get an io/fs compatible filesystem.
type Fs struct {
	img *Image
}

// Fs returns the afero.Fs view of the image.
func (img *Image) Fs() *Fs {
	return &Fs{img: img}
}

// Label returns the volume label of the image.
func (fs *Fs) Label() string {
	return fs.img.Label()
}

// FSType returns the filesystem type stored in the boot sector.
func (fs *Fs) FSType() string {
	return fs.img.boot.FileSystemType
}

func (fs *Fs) rootEntry() DirectoryEntry {
	return DirectoryEntry{
		Name:         "/",
		Attributes:   AttrDirectory,
		FirstCluster: fs.img.RootCluster(),
	}
}

// resolve finds the entry of the given path.
// Each step continues the cycle detection of the steps before.
func (fs *Fs) resolve(op, name string) (DirectoryEntry, error) {
	cleaned := path.Clean("/" + filepath.ToSlash(name))
	current := fs.rootEntry()
	if cleaned == "/" {
		return current, nil
	}

	it := fs.img.ListChildren(current.FirstCluster)
	parts := strings.Split(strings.TrimPrefix(cleaned, "/"), "/")
	for i, part := range parts {
		if i > 0 {
			if !current.IsDir() {
				return DirectoryEntry{}, &os.PathError{Op: op, Path: name, Err: syscall.ENOTDIR}
			}
			it = it.Descend(current)
		}

		found := false
		for it.Next() {
			entry := it.Entry()
			if strings.EqualFold(entry.Name, part) || strings.EqualFold(entry.ShortDisplayName(), part) {
				current = entry
				found = true
				break
			}
		}
		if err := it.Err(); err != nil {
			return DirectoryEntry{}, &os.PathError{Op: op, Path: name, Err: err}
		}
		if !found {
			return DirectoryEntry{}, &os.PathError{Op: op, Path: name, Err: os.ErrNotExist}
		}
	}

	return current, nil
}

func (fs *Fs) readOnly(op, name string) error {
	return checkpoint.Wrap(&os.PathError{Op: op, Path: name, Err: syscall.EROFS}, ErrReadOnly)
}

func (fs *Fs) Create(name string) (afero.File, error) {
	return nil, fs.readOnly("create", name)
}

func (fs *Fs) Mkdir(name string, perm os.FileMode) error {
	return fs.readOnly("mkdir", name)
}

func (fs *Fs) MkdirAll(path string, perm os.FileMode) error {
	return fs.readOnly("mkdir", path)
}

func (fs *Fs) Open(name string) (afero.File, error) {
	entry, err := fs.resolve("open", name)
	if err != nil {
		return nil, err
	}

	return newFile(fs.img, entry), nil
}

// OpenFile opens the file for reading. All flags which would modify the image fail with ErrReadOnly.
func (fs *Fs) OpenFile(name string, flag int, perm os.FileMode) (afero.File, error) {
	if flag&(os.O_WRONLY|os.O_RDWR|os.O_APPEND|os.O_CREATE|os.O_TRUNC) != 0 {
		return nil, fs.readOnly("open", name)
	}
	return fs.Open(name)
}

func (fs *Fs) Remove(name string) error {
	return fs.readOnly("remove", name)
}

func (fs *Fs) RemoveAll(path string) error {
	return fs.readOnly("remove", path)
}

func (fs *Fs) Rename(oldname, newname string) error {
	return fs.readOnly("rename", oldname)
}

func (fs *Fs) Stat(name string) (os.FileInfo, error) {
	entry, err := fs.resolve("stat", name)
	if err != nil {
		return nil, err
	}
	return entry.FileInfo(), nil
}

func (fs *Fs) Name() string {
	return "gofat32"
}

func (fs *Fs) Chmod(name string, mode os.FileMode) error {
	return fs.readOnly("chmod", name)
}

func (fs *Fs) Chown(name string, uid, gid int) error {
	return fs.readOnly("chown", name)
}

func (fs *Fs) Chtimes(name string, atime time.Time, mtime time.Time) error {
	return fs.readOnly("chtimes", name)
}
