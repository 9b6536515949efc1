package gofat

import (
	"bytes"
	"encoding/binary"
	"sync"

	"github.com/aligator/gofat32/checkpoint"
)

const (
	firstCluster = 2

	fatEntryMask     = 0x0FFFFFFF
	fatEntryFree     = 0x00000000
	fatEntryBad      = 0x0FFFFFF7
	fatEntryEOCMin   = 0x0FFFFFF8
	fatEntryEOC      = 0x0FFFFFFF
	fatEntryReserved = 0x0FFFFFF0
)

// fatEntry is one raw 32 bit entry of the FAT.
// Only the lower 28 bits are used, the upper 4 bits are reserved.
type fatEntry uint32

// Value returns the entry without the reserved upper bits.
func (e fatEntry) Value() uint32 {
	return uint32(e) & fatEntryMask
}

// IsFree reports if the cluster is unused.
func (e fatEntry) IsFree() bool {
	return e.Value() == fatEntryFree
}

// IsReserved reports values which must not be used as cluster pointers.
func (e fatEntry) IsReserved() bool {
	return e.Value() == 1 || (e.Value() >= fatEntryReserved && e.Value() < fatEntryBad)
}

// IsBad reports a cluster marked as defective.
func (e fatEntry) IsBad() bool {
	return e.Value() == fatEntryBad
}

// IsEOF reports the end of a cluster chain.
func (e fatEntry) IsEOF() bool {
	return e.Value() >= fatEntryEOCMin
}

// IsNextCluster reports if the entry points to another cluster.
func (e fatEntry) IsNextCluster() bool {
	return !e.IsFree() && !e.IsReserved() && !e.IsBad() && !e.IsEOF()
}

// ClusterChain is the ordered list of clusters of one file or directory.
type ClusterChain []uint32

// Head returns the first cluster or 0 for an empty chain.
func (c ClusterChain) Head() uint32 {
	if len(c) == 0 {
		return 0
	}
	return c[0]
}

// Tail returns the last cluster or 0 for an empty chain.
func (c ClusterChain) Tail() uint32 {
	if len(c) == 0 {
		return 0
	}
	return c[len(c)-1]
}

// FatTable holds the complete FAT in memory.
// All mutations are serialized by a single lock, which is the allocation lock of the whole image.
type FatTable struct {
	lock sync.Mutex

	entries []fatEntry
	// next is the next-fit cursor, the search for free clusters resumes there.
	next      uint32
	freeCount uint32

	mirrors    int
	regionSize int64
}

// NewFatTable creates an empty table for the given amount of data clusters.
// regionSize is the size of one serialized FAT mirror in bytes.
func NewFatTable(clusterCount uint32, mirrors int, regionSize int64, media byte) *FatTable {
	t := &FatTable{
		entries:    make([]fatEntry, int(clusterCount)+firstCluster),
		next:       firstCluster,
		freeCount:  clusterCount,
		mirrors:    mirrors,
		regionSize: regionSize,
	}

	t.entries[0] = fatEntry(0x0FFFFF00 | uint32(media))
	t.entries[1] = fatEntryEOC
	return t
}

// LoadFat reads the table from the raw FAT mirrors.
// Every entry has to point into the data region. If validateMirrors is set,
// all mirrors have to be byte identical.
func LoadFat(mirrors [][]byte, clusterCount uint32, validateMirrors bool) (*FatTable, error) {
	if len(mirrors) == 0 {
		return nil, checkpoint.Errorf(ErrCorruptFat, "no FAT mirror present")
	}

	primary := mirrors[0]
	needed := (int(clusterCount) + firstCluster) * 4
	if len(primary) < needed {
		return nil, checkpoint.Errorf(ErrCorruptFat, "FAT has %d bytes but %d clusters need %d", len(primary), clusterCount, needed)
	}

	if validateMirrors {
		for i, m := range mirrors[1:] {
			if !bytes.Equal(primary, m) {
				return nil, checkpoint.Errorf(ErrCorruptFat, "FAT mirror %d differs from the first FAT", i+1)
			}
		}
	}

	t := &FatTable{
		entries:    make([]fatEntry, int(clusterCount)+firstCluster),
		next:       firstCluster,
		mirrors:    len(mirrors),
		regionSize: int64(len(primary)),
	}

	maxCluster := clusterCount + 1
	for i := range t.entries {
		e := fatEntry(binary.LittleEndian.Uint32(primary[i*4:]))
		t.entries[i] = e

		if i < firstCluster {
			continue
		}

		switch {
		case e.IsFree():
			t.freeCount++
		case e.IsEOF(), e.IsBad():
		case e.IsReserved():
			return nil, checkpoint.Errorf(ErrCorruptFat, "cluster %d has the reserved value 0x%08X", i, e.Value())
		case e.Value() < firstCluster || e.Value() > maxCluster:
			return nil, checkpoint.Errorf(ErrCorruptFat, "cluster %d points to %d outside of [2, %d]", i, e.Value(), maxCluster)
		}
	}

	return t, nil
}

func (t *FatTable) maxCluster() uint32 {
	return uint32(len(t.entries) - 1)
}

func (t *FatTable) checkCluster(c uint32) error {
	if c < firstCluster || c > t.maxCluster() {
		return checkpoint.Errorf(ErrInvalidCluster, "cluster %d is outside of [2, %d]", c, t.maxCluster())
	}
	return nil
}

// FreeCount returns the number of free clusters.
func (t *FatTable) FreeCount() uint32 {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.freeCount
}

// NextFree returns the cluster where the next allocation starts searching.
func (t *FatTable) NextFree() uint32 {
	t.lock.Lock()
	defer t.lock.Unlock()
	return t.next
}

// Get returns the raw entry of the cluster.
func (t *FatTable) Get(c uint32) (fatEntry, error) {
	if err := t.checkCluster(c); err != nil {
		return 0, err
	}

	t.lock.Lock()
	defer t.lock.Unlock()
	return t.entries[c], nil
}

// set writes a value and keeps the reserved upper bits of the entry.
func (t *FatTable) set(c uint32, value uint32) {
	old := t.entries[c]
	t.entries[c] = fatEntry(uint32(old)&^fatEntryMask | value&fatEntryMask)
}

// findFree collects n free clusters starting at the next-fit cursor.
// The caller has to hold the lock and ensure that at least n clusters are free.
func (t *FatTable) findFree(n int) []uint32 {
	found := make([]uint32, 0, n)
	total := t.maxCluster() - firstCluster + 1
	c := t.next

	for scanned := uint32(0); len(found) < n && scanned < total; scanned++ {
		if c > t.maxCluster() {
			c = firstCluster
		}
		if t.entries[c].IsFree() {
			found = append(found, c)
		}
		c++
	}

	if c > t.maxCluster() {
		c = firstCluster
	}
	t.next = c
	return found
}

// link marks the clusters as one chain in the given order.
func (t *FatTable) link(clusters []uint32) {
	for i, c := range clusters {
		if i == len(clusters)-1 {
			t.set(c, fatEntryEOC)
		} else {
			t.set(c, clusters[i+1])
		}
	}
	t.freeCount -= uint32(len(clusters))
}

// AllocateChain allocates a new chain of n clusters.
// It returns ErrDiskFull without changing anything if not enough clusters are free.
func (t *FatTable) AllocateChain(n int) (ClusterChain, error) {
	if n <= 0 {
		return nil, nil
	}

	t.lock.Lock()
	defer t.lock.Unlock()

	if uint32(n) > t.freeCount {
		return nil, checkpoint.Errorf(ErrDiskFull, "%d clusters requested but only %d free", n, t.freeCount)
	}

	clusters := t.findFree(n)
	t.link(clusters)
	return clusters, nil
}

// ExtendChain appends n new clusters to the end of the chain and returns the extended chain.
func (t *FatTable) ExtendChain(chain ClusterChain, n int) (ClusterChain, error) {
	if len(chain) == 0 {
		return t.AllocateChain(n)
	}
	if n <= 0 {
		return chain, nil
	}
	if err := t.checkCluster(chain.Tail()); err != nil {
		return chain, err
	}

	t.lock.Lock()
	defer t.lock.Unlock()

	if !t.entries[chain.Tail()].IsEOF() {
		return chain, checkpoint.Errorf(ErrCorruptFat, "cluster %d is not the end of its chain", chain.Tail())
	}

	if uint32(n) > t.freeCount {
		return chain, checkpoint.Errorf(ErrDiskFull, "%d clusters requested but only %d free", n, t.freeCount)
	}

	clusters := t.findFree(n)
	t.link(clusters)
	t.set(chain.Tail(), clusters[0])

	return append(chain, clusters...), nil
}

// FreeChain marks all clusters of the chain starting at head as free.
// Freeing an already free head does nothing.
func (t *FatTable) FreeChain(head uint32) error {
	if err := t.checkCluster(head); err != nil {
		return err
	}

	t.lock.Lock()
	defer t.lock.Unlock()

	if t.entries[head].IsFree() {
		return nil
	}

	chain, err := t.chain(head)
	if err != nil {
		return err
	}

	for _, c := range chain {
		t.set(c, fatEntryFree)
	}
	t.freeCount += uint32(len(chain))
	return nil
}

// Chain follows the chain starting at head until the end of chain marker.
func (t *FatTable) Chain(head uint32) (ClusterChain, error) {
	if err := t.checkCluster(head); err != nil {
		return nil, err
	}

	t.lock.Lock()
	defer t.lock.Unlock()
	return t.chain(head)
}

func (t *FatTable) chain(head uint32) (ClusterChain, error) {
	var chain ClusterChain
	visited := make(map[uint32]struct{})

	c := head
	for {
		if _, ok := visited[c]; ok {
			return nil, checkpoint.Wrap(checkpoint.Errorf(ErrCyclicDirectory, "cluster %d is visited twice in the chain starting at %d", c, head), ErrCorruptFat)
		}
		visited[c] = struct{}{}
		chain = append(chain, c)

		e := t.entries[c]
		switch {
		case e.IsEOF():
			return chain, nil
		case e.IsFree(), e.IsBad(), e.IsReserved():
			return nil, checkpoint.Errorf(ErrCorruptFat, "chain starting at %d breaks at cluster %d with value 0x%08X", head, c, e.Value())
		}

		c = e.Value()
		if c < firstCluster || c > t.maxCluster() {
			return nil, checkpoint.Errorf(ErrCorruptFat, "chain starting at %d leaves the data region at %d", head, c)
		}
	}
}

// Flush serializes the table once per mirror. All copies are identical.
func (t *FatTable) Flush() [][]byte {
	t.lock.Lock()
	defer t.lock.Unlock()

	primary := make([]byte, t.regionSize)
	for i, e := range t.entries {
		binary.LittleEndian.PutUint32(primary[i*4:], uint32(e))
	}

	out := make([][]byte, t.mirrors)
	out[0] = primary
	for i := 1; i < t.mirrors; i++ {
		out[i] = append([]byte(nil), primary...)
	}
	return out
}
