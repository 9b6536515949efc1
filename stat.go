package gofat

import (
	"os"
	"time"
)

// FileInfo returns the os.FileInfo of the entry.
func (e DirectoryEntry) FileInfo() os.FileInfo {
	return entryFileInfo{e}
}

type entryFileInfo struct {
	entry DirectoryEntry
}

func (e entryFileInfo) Name() string {
	if e.entry.Name != "" {
		return e.entry.Name
	}
	return e.entry.ShortDisplayName()
}

func (e entryFileInfo) Size() int64 {
	return int64(e.entry.Size)
}

func (e entryFileInfo) Mode() os.FileMode {
	var mode os.FileMode = 0644
	if e.entry.Attributes&AttrReadOnly != 0 {
		mode = 0444
	}

	if e.IsDir() {
		return os.ModeDir | mode | 0111
	}
	return mode
}

func (e entryFileInfo) ModTime() time.Time {
	return e.entry.ModTime
}

func (e entryFileInfo) IsDir() bool {
	return e.entry.IsDir()
}

// Sys returns the DirectoryEntry.
func (e entryFileInfo) Sys() interface{} {
	return e.entry
}
