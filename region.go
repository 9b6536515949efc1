package gofat

import (
	"io"
	"sync"

	"github.com/aligator/gofat32/checkpoint"
)

// backingStore is the raw image. afero.File satisfies it.
type backingStore interface {
	io.ReaderAt
	io.WriterAt
}

// Region translates clusters into byte offsets of the image and reads and writes them.
// Positional reads and writes of some afero files change a shared offset internally,
// so all I/O goes through one lock.
type Region struct {
	lock  sync.Mutex
	store backingStore
	boot  *BootSector
}

// NewRegion creates an accessor for the data region described by boot.
func NewRegion(store backingStore, boot *BootSector) *Region {
	return &Region{
		store: store,
		boot:  boot,
	}
}

// ClusterToOffset returns the absolute byte offset of the cluster.
func (r *Region) ClusterToOffset(cluster uint32) (int64, error) {
	if cluster < firstCluster || cluster > r.boot.MaxCluster() {
		return 0, checkpoint.Errorf(ErrInvalidCluster, "cluster %d is outside of [2, %d]", cluster, r.boot.MaxCluster())
	}
	return r.boot.DataOffset() + int64(cluster-firstCluster)*r.boot.ClusterSize(), nil
}

// ReadCluster reads exactly one cluster.
func (r *Region) ReadCluster(cluster uint32) ([]byte, error) {
	buf := make([]byte, r.boot.ClusterSize())
	if err := r.readClusterInto(cluster, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func (r *Region) readClusterInto(cluster uint32, buf []byte) error {
	if int64(len(buf)) != r.boot.ClusterSize() {
		return checkpoint.Errorf(ErrSizeMismatch, "buffer of %d bytes for a cluster of %d bytes", len(buf), r.boot.ClusterSize())
	}

	offset, err := r.ClusterToOffset(cluster)
	if err != nil {
		return err
	}

	return r.ReadAt(buf, offset)
}

// WriteCluster writes exactly one cluster. Partial clusters are rejected, not padded.
func (r *Region) WriteCluster(cluster uint32, data []byte) error {
	if int64(len(data)) != r.boot.ClusterSize() {
		return checkpoint.Errorf(ErrSizeMismatch, "%d bytes for a cluster of %d bytes", len(data), r.boot.ClusterSize())
	}

	offset, err := r.ClusterToOffset(cluster)
	if err != nil {
		return err
	}

	return r.WriteAt(data, offset)
}

// ReadAt fills buf completely from the absolute offset.
func (r *Region) ReadAt(buf []byte, offset int64) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	n, err := r.store.ReadAt(buf, offset)
	if n == len(buf) {
		return nil
	}
	if err == nil || err == io.EOF {
		err = io.ErrUnexpectedEOF
	}
	return checkpoint.Errorf(ErrSizeMismatch, "read %d of %d bytes at offset %d: %v", n, len(buf), offset, err)
}

// WriteAt writes data at the absolute offset.
func (r *Region) WriteAt(data []byte, offset int64) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	_, err := r.store.WriteAt(data, offset)
	return checkpoint.From(err)
}

// sectorOffset returns the absolute offset of a sector.
func (r *Region) sectorOffset(sector uint32) int64 {
	return int64(sector) * int64(r.boot.BytesPerSector)
}
