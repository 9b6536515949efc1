package gofat

import (
	"github.com/aligator/gofat32/checkpoint"
)

// DirIterator lists the entries of one directory on demand.
// It reads one cluster at a time and never materializes the whole tree.
//  it := img.ListChildren(img.RootCluster())
//  for it.Next() {
//  	fmt.Println(it.Entry().Name)
//  }
//  if err := it.Err(); err != nil {
//  	...
//  }
type DirIterator struct {
	img  *Image
	head uint32

	// ancestors contains every cluster of the directories on the current path,
	// including the clusters of this directory which were already read.
	ancestors map[uint32]struct{}

	cluster uint32
	buf     []byte
	pos     int
	started bool
	done    bool

	dec   entryDecoder
	entry DirectoryEntry
	err   error
}

// ListChildren starts a new traversal at the directory chain with the given head.
// The iterator can be restarted at any time by calling ListChildren again.
func (img *Image) ListChildren(head uint32) *DirIterator {
	return img.listChildren(head, map[uint32]struct{}{})
}

func (img *Image) listChildren(head uint32, ancestors map[uint32]struct{}) *DirIterator {
	return &DirIterator{
		img:       img,
		head:      head,
		ancestors: ancestors,
		buf:       make([]byte, img.boot.ClusterSize()),
	}
}

// Head returns the first cluster of the listed directory.
func (it *DirIterator) Head() uint32 {
	return it.head
}

// Next advances to the next entry. Deleted entries, the volume label and the "." and ".." entries are skipped.
func (it *DirIterator) Next() bool {
	for !it.done {
		entry, ok := it.nextRecord()
		if !ok {
			return false
		}
		if entry.IsDot() || entry.IsVolumeLabel() {
			continue
		}

		if entry.IsDir() {
			if _, seen := it.ancestors[entry.FirstCluster]; seen {
				it.fail(checkpoint.Errorf(ErrCyclicDirectory, "%q points back to cluster %d of its own path", entry.Name, entry.FirstCluster))
				return false
			}
		}

		it.entry = entry
		return true
	}
	return false
}

// nextRecord returns the next decoded entry including dot entries.
func (it *DirIterator) nextRecord() (DirectoryEntry, bool) {
	for {
		if !it.started || it.pos >= len(it.buf) {
			if !it.advanceCluster() {
				return DirectoryEntry{}, false
			}
		}

		rec := it.buf[it.pos : it.pos+entrySize]
		it.pos += entrySize

		entry, ok, end, err := it.dec.feed(rec)
		if err != nil {
			it.fail(err)
			return DirectoryEntry{}, false
		}
		if end {
			it.done = true
			return DirectoryEntry{}, false
		}
		if ok {
			return entry, true
		}
	}
}

// advanceCluster loads the next cluster of the directory chain.
func (it *DirIterator) advanceCluster() bool {
	var next uint32
	if !it.started {
		it.started = true
		next = it.head
	} else {
		e, err := it.img.fat.Get(it.cluster)
		if err != nil {
			it.fail(err)
			return false
		}
		if e.IsEOF() {
			it.done = true
			if err := it.dec.finish(); err != nil {
				it.fail(err)
			}
			return false
		}
		if !e.IsNextCluster() {
			it.fail(checkpoint.Errorf(ErrCorruptFat, "directory chain breaks at cluster %d with value 0x%08X", it.cluster, e.Value()))
			return false
		}
		next = e.Value()
	}

	if _, seen := it.ancestors[next]; seen {
		it.fail(checkpoint.Errorf(ErrCyclicDirectory, "directory starting at %d revisits cluster %d", it.head, next))
		return false
	}

	if err := it.img.region.readClusterInto(next, it.buf); err != nil {
		it.fail(err)
		return false
	}

	it.ancestors[next] = struct{}{}
	it.cluster = next
	it.pos = 0
	return true
}

func (it *DirIterator) fail(err error) {
	it.err = err
	it.done = true
}

// Entry returns the current entry.
func (it *DirIterator) Entry() DirectoryEntry {
	return it.entry
}

// Err returns the error which stopped the iteration, if any.
func (it *DirIterator) Err() error {
	return it.err
}

// Descend starts an iterator for the given entry which continues the cycle detection of this path.
// Clusters of this directory which were not read yet are not part of the ancestry.
func (it *DirIterator) Descend(entry DirectoryEntry) *DirIterator {
	return it.img.listChildren(entry.FirstCluster, it.path())
}

// path returns a copy of the visited clusters for a child traversal.
func (it *DirIterator) path() map[uint32]struct{} {
	path := make(map[uint32]struct{}, len(it.ancestors))
	for c := range it.ancestors {
		path[c] = struct{}{}
	}
	return path
}

// Collect reads all remaining entries.
func (it *DirIterator) Collect() ([]DirectoryEntry, error) {
	var entries []DirectoryEntry
	for it.Next() {
		entries = append(entries, it.Entry())
	}
	return entries, it.Err()
}
