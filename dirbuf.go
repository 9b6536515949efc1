package gofat

import (
	"strings"

	"github.com/aligator/gofat32/checkpoint"
)

// dirBuffer holds the raw records of one directory while it is built.
// New record groups go into the earliest run of reusable slots.
type dirBuffer struct {
	raw   []byte
	names map[[11]byte]struct{}
	// long keeps the upper cased names to detect duplicates, FAT names are case insensitive.
	long map[string]struct{}
}

func newDirBuffer() *dirBuffer {
	return &dirBuffer{
		names: make(map[[11]byte]struct{}),
		long:  make(map[string]struct{}),
	}
}

func (b *dirBuffer) exists(short [11]byte) bool {
	_, ok := b.names[short]
	return ok
}

// Len returns the used size in bytes including deleted slots.
func (b *dirBuffer) Len() int {
	return len(b.raw)
}

// Bytes returns the raw records.
func (b *dirBuffer) Bytes() []byte {
	return b.raw
}

// Add encodes the entry and inserts it. It returns the number of records used.
func (b *dirBuffer) Add(entry DirectoryEntry) (int, error) {
	key := strings.ToUpper(entry.Name)
	if !entry.IsDot() {
		if _, ok := b.long[key]; ok {
			return 0, checkpoint.Errorf(ErrInvalidDirectoryEntry, "%q already exists in the directory", entry.Name)
		}
	}

	records, err := EncodeEntry(entry, b.exists)
	if err != nil {
		return 0, err
	}

	b.Insert(records)

	var short [11]byte
	copy(short[:], records[len(records)-entrySize:])
	b.names[short] = struct{}{}
	if !entry.IsDot() {
		b.long[key] = struct{}{}
	}

	return len(records) / entrySize, nil
}

// addVolumeLabel adds the volume label entry of the root directory.
func (b *dirBuffer) addVolumeLabel(label string) {
	var name [11]byte
	copy(name[:], padRight(label, 11))
	b.Insert(encodeShort(DirectoryEntry{ShortName: name, Attributes: AttrVolumeID}))
}

// Insert places the records into the first run of deleted slots which is big enough
// or appends them.
func (b *dirBuffer) Insert(records []byte) {
	need := len(records) / entrySize

	run, start := 0, 0
	for off := 0; off+entrySize <= len(b.raw); off += entrySize {
		if b.raw[off] != deletedMarker && b.raw[off] != endOfDirMarker {
			run = 0
			continue
		}
		if run == 0 {
			start = off
		}
		run++
		if run == need {
			copy(b.raw[start:], records)
			return
		}
	}

	// A free run at the end can be continued.
	if run > 0 {
		b.raw = append(b.raw[:start], records...)
		return
	}
	b.raw = append(b.raw, records...)
}

// Remove marks all records of the entry with the given name as deleted.
// It reports false if no such entry exists.
func (b *dirBuffer) Remove(name string) (bool, error) {
	var dec entryDecoder
	groupStart := -1

	for off := 0; off+entrySize <= len(b.raw); off += entrySize {
		rec := b.raw[off : off+entrySize]
		if groupStart < 0 && rec[0] != deletedMarker && rec[0] != endOfDirMarker {
			groupStart = off
		}

		entry, ok, end, err := dec.feed(rec)
		if err != nil {
			return false, err
		}
		if end {
			break
		}
		if !ok {
			continue
		}

		if !entry.IsDot() && strings.EqualFold(entry.Name, name) {
			for i := groupStart; i <= off; i += entrySize {
				b.raw[i] = deletedMarker
			}
			delete(b.names, entry.ShortName)
			delete(b.long, strings.ToUpper(entry.Name))
			return true, nil
		}
		groupStart = -1
	}

	return false, nil
}
