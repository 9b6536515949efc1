// Package crosscheck reads an image with the independent FAT32 implementation of go-diskfs
// and compares the result with the tree seen by gofat32.
package crosscheck

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	diskfs "github.com/diskfs/go-diskfs"
	"github.com/diskfs/go-diskfs/filesystem"

	"github.com/aligator/gofat32"
)

// Result lists every difference found.
type Result struct {
	Checked    int
	Mismatches []string
}

// OK reports if both readers agree.
func (r *Result) OK() bool {
	return len(r.Mismatches) == 0
}

func (r *Result) mismatchf(format string, args ...interface{}) {
	r.Mismatches = append(r.Mismatches, fmt.Sprintf(format, args...))
}

// Compare opens the raw image at imagePath with go-diskfs and compares every directory
// listing and file content with img.
func Compare(img *gofat.Image, imagePath string) (*Result, error) {
	d, err := diskfs.Open(imagePath, diskfs.WithOpenMode(diskfs.ReadOnly))
	if err != nil {
		return nil, fmt.Errorf("open %q with diskfs: %w", imagePath, err)
	}
	defer d.Close()

	fs, err := d.GetFilesystem(0)
	if err != nil {
		return nil, fmt.Errorf("read filesystem of %q with diskfs: %w", imagePath, err)
	}
	if fs.Type() != filesystem.TypeFat32 {
		return nil, fmt.Errorf("diskfs detected filesystem type %v instead of FAT32", fs.Type())
	}

	result := &Result{}
	// diskfs only reads the label entry of the root directory.
	got := strings.TrimSpace(fs.Label())
	if got == "" {
		got = gofat.DefaultVolumeLabel
	}
	if want := img.Label(); !strings.EqualFold(want, got) {
		result.mismatchf("label: gofat32 %q, diskfs %q", want, got)
	}

	dirs := map[string][]gofat.DirectoryEntry{"/": nil}
	err = img.Walk(func(p string, entry gofat.DirectoryEntry) error {
		parent := path.Dir(p)
		dirs[parent] = append(dirs[parent], entry)
		if entry.IsDir() {
			if _, ok := dirs[p]; !ok {
				dirs[p] = nil
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	for dir, entries := range dirs {
		if err := compareDir(img, fs, dir, entries, result); err != nil {
			return result, err
		}
	}
	return result, nil
}

func compareDir(img *gofat.Image, fs filesystem.FileSystem, dir string, entries []gofat.DirectoryEntry, result *Result) error {
	infos, err := fs.ReadDir(dir)
	if err != nil {
		result.mismatchf("%s: diskfs cannot list the directory: %v", dir, err)
		return nil
	}

	theirs := make(map[string]os.FileInfo, len(infos))
	for _, info := range infos {
		if info.Name() == "." || info.Name() == ".." {
			continue
		}
		theirs[strings.ToUpper(info.Name())] = info
	}

	for _, entry := range entries {
		p := path.Join(dir, entry.Name)
		result.Checked++

		info, ok := theirs[strings.ToUpper(entry.Name)]
		if !ok {
			result.mismatchf("%s: missing in diskfs", p)
			continue
		}
		delete(theirs, strings.ToUpper(entry.Name))

		if info.IsDir() != entry.IsDir() {
			result.mismatchf("%s: directory flag differs", p)
			continue
		}
		if entry.IsDir() {
			continue
		}
		if info.Size() != int64(entry.Size) {
			result.mismatchf("%s: size gofat32 %d, diskfs %d", p, entry.Size, info.Size())
			continue
		}

		if err := compareContent(img, fs, p, entry, result); err != nil {
			return err
		}
	}

	for name := range theirs {
		result.mismatchf("%s: only diskfs lists %q", dir, name)
	}
	return nil
}

func compareContent(img *gofat.Image, fs filesystem.FileSystem, p string, entry gofat.DirectoryEntry, result *Result) error {
	ours, err := img.ReadFile(entry)
	if err != nil {
		return err
	}

	f, err := fs.OpenFile(p, os.O_RDONLY)
	if err != nil {
		result.mismatchf("%s: diskfs cannot open the file: %v", p, err)
		return nil
	}
	defer f.Close()

	// diskfs may return bytes after the end of the file when reading in chunks,
	// so the whole file is read with one call.
	theirs := make([]byte, entry.Size)
	if _, err := io.ReadFull(f, theirs); err != nil {
		result.mismatchf("%s: diskfs cannot read the file: %v", p, err)
		return nil
	}

	if !bytes.Equal(ours, theirs) {
		result.mismatchf("%s: content differs", p)
	}
	return nil
}
