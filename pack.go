package gofat

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"path"
	"sync"
	"time"

	"github.com/spf13/afero"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/aligator/gofat32/checkpoint"
)

const maxFileSize = math.MaxUint32

// treeStats describes a source tree as it will be laid out in the image.
type treeStats struct {
	Files    int
	Dirs     int
	Bytes    int64
	Clusters uint64
}

// scanTree computes how many clusters the source tree needs with the cluster size of o.
// It validates every name and size, so a tree which passes cannot fail later because of its content.
func scanTree(src afero.Fs, dir string, o options) (treeStats, error) {
	var stats treeStats
	clusterSize := int64(o.bytesPerSector) * int64(o.sectorsPerCluster)

	type frame struct {
		path   string
		isRoot bool
	}
	stack := []frame{{path: dir, isRoot: true}}

	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		children, err := afero.ReadDir(src, current.path)
		if err != nil {
			return stats, checkpoint.From(err)
		}

		// The records are encoded the same way packDir does it, so aliases which
		// push a later 8.3 name into a long name entry are counted as well.
		dir := newDirBuffer()
		if !current.isRoot {
			for _, dot := range [][11]byte{dotName, dotDotName} {
				if _, err := dir.Add(DirectoryEntry{ShortName: dot, Attributes: AttrDirectory}); err != nil {
					return stats, err
				}
			}
		} else if o.hasLabelEntry() {
			dir.addVolumeLabel(o.label)
		}

		for _, child := range children {
			childPath := path.Join(current.path, child.Name())

			if !child.IsDir() && !child.Mode().IsRegular() {
				o.logger.Debug("not counting non regular file", zap.String("path", childPath))
				continue
			}

			if _, err := dir.Add(DirectoryEntry{Name: child.Name()}); err != nil {
				return stats, checkpoint.Wrap(err, fmt.Errorf("cannot store %q", childPath))
			}

			if child.IsDir() {
				stats.Dirs++
				stack = append(stack, frame{path: childPath})
				continue
			}

			if child.Size() > maxFileSize {
				return stats, checkpoint.Errorf(ErrFileTooLarge, "%q has %d bytes", childPath, child.Size())
			}
			stats.Files++
			stats.Bytes += child.Size()
			stats.Clusters += uint64(clustersFor(child.Size(), clusterSize))
		}

		dirClusters := clustersFor(int64(dir.Len()), clusterSize)
		if dirClusters == 0 {
			dirClusters = 1
		}
		stats.Clusters += uint64(dirClusters)
	}

	return stats, nil
}

func clustersFor(size int64, clusterSize int64) int {
	return int((size + clusterSize - 1) / clusterSize)
}

// packJob is one source directory which is written into an already allocated directory chain.
type packJob struct {
	srcPath string
	imgPath string
	head    uint32
	// parent is the cluster stored in "..", 0 for children of the root.
	parent uint32
	isRoot bool
}

// workQueue is the explicit job stack of the packer.
// pop blocks until a job is available or all pushed jobs are done.
type workQueue struct {
	lock    sync.Mutex
	cond    *sync.Cond
	jobs    []packJob
	pending int
	aborted bool
}

func newWorkQueue() *workQueue {
	q := &workQueue{}
	q.cond = sync.NewCond(&q.lock)
	return q
}

func (q *workQueue) push(jobs ...packJob) {
	q.lock.Lock()
	defer q.lock.Unlock()

	// Reverse so that the first job is popped first.
	for i := len(jobs) - 1; i >= 0; i-- {
		q.jobs = append(q.jobs, jobs[i])
	}
	q.pending += len(jobs)
	q.cond.Broadcast()
}

func (q *workQueue) pop() (packJob, bool) {
	q.lock.Lock()
	defer q.lock.Unlock()

	for len(q.jobs) == 0 && q.pending > 0 && !q.aborted {
		q.cond.Wait()
	}
	if q.aborted || len(q.jobs) == 0 {
		return packJob{}, false
	}

	job := q.jobs[len(q.jobs)-1]
	q.jobs = q.jobs[:len(q.jobs)-1]
	return job, true
}

// done must be called once for each popped job, after its children were pushed.
func (q *workQueue) done() {
	q.lock.Lock()
	defer q.lock.Unlock()

	q.pending--
	if q.pending == 0 {
		q.cond.Broadcast()
	}
}

func (q *workQueue) abort() {
	q.lock.Lock()
	defer q.lock.Unlock()

	q.aborted = true
	q.cond.Broadcast()
}

// packer writes a source tree into the data region of a new image.
type packer struct {
	src    afero.Fs
	fat    *FatTable
	region *Region
	boot   *BootSector
	opts   options
	log    *zap.Logger

	progressLock sync.Mutex
}

// pack writes the tree below srcDir into the root directory chain starting at root.
func (p *packer) pack(ctx context.Context, srcDir string, root uint32) error {
	queue := newWorkQueue()
	queue.push(packJob{srcPath: srcDir, imgPath: "/", head: root, isRoot: true})

	g, ctx := errgroup.WithContext(ctx)
	for i := 0; i < p.opts.workers; i++ {
		g.Go(func() error {
			for {
				job, ok := queue.pop()
				if !ok {
					return nil
				}

				children, err := p.packDir(ctx, job)
				if err != nil {
					queue.abort()
					return err
				}
				queue.push(children...)
				queue.done()
			}
		})
	}

	return g.Wait()
}

// packDir writes all files of one directory and its directory entries.
// It returns the jobs for the subdirectories, whose head clusters are already allocated.
func (p *packer) packDir(ctx context.Context, job packJob) ([]packJob, error) {
	children, err := afero.ReadDir(p.src, job.srcPath)
	if err != nil {
		return nil, checkpoint.From(err)
	}

	dir := newDirBuffer()
	if job.isRoot {
		if p.opts.hasLabelEntry() {
			dir.addVolumeLabel(p.opts.label)
		}
	} else {
		now := p.timestamp(time.Time{})
		if _, err := dir.Add(DirectoryEntry{Name: ".", ShortName: dotName, Attributes: AttrDirectory, FirstCluster: job.head, ModTime: now, CreateTime: now}); err != nil {
			return nil, err
		}
		if _, err := dir.Add(DirectoryEntry{Name: "..", ShortName: dotDotName, Attributes: AttrDirectory, FirstCluster: job.parent, ModTime: now, CreateTime: now}); err != nil {
			return nil, err
		}
	}

	var jobs []packJob
	for _, child := range children {
		if err := ctx.Err(); err != nil {
			return nil, checkpoint.From(err)
		}

		srcPath := path.Join(job.srcPath, child.Name())
		imgPath := path.Join(job.imgPath, child.Name())
		modTime := p.timestamp(child.ModTime())

		entry := DirectoryEntry{
			Name:       child.Name(),
			ModTime:    modTime,
			CreateTime: modTime,
			AccessTime: modTime,
		}
		if child.Mode().Perm()&0200 == 0 {
			entry.Attributes |= AttrReadOnly
		}

		switch {
		case child.IsDir():
			chain, err := p.fat.AllocateChain(1)
			if err != nil {
				return nil, err
			}
			entry.Attributes |= AttrDirectory
			entry.FirstCluster = chain.Head()

			parent := job.head
			if job.isRoot {
				parent = 0
			}
			jobs = append(jobs, packJob{srcPath: srcPath, imgPath: imgPath, head: chain.Head(), parent: parent})

		case child.Mode().IsRegular():
			head, err := p.packFile(ctx, srcPath, child.Size())
			if err != nil {
				return nil, err
			}
			entry.Attributes |= AttrArchive
			entry.FirstCluster = head
			entry.Size = uint32(child.Size())
			p.reportProgress(imgPath, child.Size())

		default:
			p.log.Warn("skipping non regular file", zap.String("path", srcPath), zap.Stringer("mode", child.Mode()))
			continue
		}

		if _, err := dir.Add(entry); err != nil {
			return nil, checkpoint.Wrap(err, ErrInvalidDirectoryEntry)
		}
	}

	if err := p.writeDir(job.head, dir); err != nil {
		return nil, err
	}
	p.log.Debug("directory written", zap.String("path", job.imgPath), zap.Uint32("cluster", job.head), zap.Int("entries", len(children)))
	p.reportProgress(job.imgPath, 0)

	return jobs, nil
}

// writeDir stores the directory records in the chain starting at head and extends it if needed.
func (p *packer) writeDir(head uint32, dir *dirBuffer) error {
	clusterSize := p.boot.ClusterSize()
	needed := clustersFor(int64(dir.Len()), clusterSize)
	if needed == 0 {
		needed = 1
	}

	chain, err := p.fat.ExtendChain(ClusterChain{head}, needed-1)
	if err != nil {
		return err
	}

	// Unused records stay zero, which marks the end of the directory.
	raw := make([]byte, int64(len(chain))*clusterSize)
	copy(raw, dir.Bytes())

	for i, cluster := range chain {
		if err := p.region.WriteCluster(cluster, raw[int64(i)*clusterSize:int64(i+1)*clusterSize]); err != nil {
			return err
		}
	}
	return nil
}

// packFile copies the file into a new chain and returns its head, 0 for empty files.
func (p *packer) packFile(ctx context.Context, srcPath string, size int64) (uint32, error) {
	if size > maxFileSize {
		return 0, checkpoint.Errorf(ErrFileTooLarge, "%q has %d bytes", srcPath, size)
	}
	if size == 0 {
		return 0, nil
	}

	clusterSize := p.boot.ClusterSize()
	chain, err := p.fat.AllocateChain(clustersFor(size, clusterSize))
	if err != nil {
		return 0, err
	}

	f, err := p.src.Open(srcPath)
	if err != nil {
		return 0, checkpoint.From(err)
	}
	defer f.Close()

	buf := make([]byte, clusterSize)
	remaining := size
	for _, cluster := range chain {
		if err := ctx.Err(); err != nil {
			return 0, checkpoint.From(err)
		}

		n := clusterSize
		if remaining < n {
			n = remaining
		}

		if _, err := io.ReadFull(f, buf[:n]); err != nil {
			return 0, checkpoint.Errorf(ErrSizeMismatch, "%q is shorter than its size of %d bytes: %v", srcPath, size, err)
		}
		for i := n; i < clusterSize; i++ {
			buf[i] = 0
		}

		if err := p.region.WriteCluster(cluster, buf); err != nil {
			return 0, err
		}
		remaining -= n
	}

	// The file must not have grown since it was scanned.
	if n, _ := f.Read(buf[:1]); n > 0 {
		return 0, checkpoint.Errorf(ErrSizeMismatch, "%q is longer than its size of %d bytes", srcPath, size)
	}

	return chain.Head(), nil
}

func (p *packer) timestamp(t time.Time) time.Time {
	if p.opts.timestamp != nil {
		return *p.opts.timestamp
	}
	if t.IsZero() {
		return time.Now()
	}
	return t
}

func (p *packer) reportProgress(path string, size int64) {
	if p.opts.progress == nil {
		return
	}

	p.progressLock.Lock()
	defer p.progressLock.Unlock()
	p.opts.progress(path, size)
}

// checkSourceDir fails if name is no directory of fs.
func checkSourceDir(fs afero.Fs, name string) error {
	info, err := fs.Stat(name)
	if err != nil {
		return checkpoint.From(err)
	}
	if !info.IsDir() {
		return checkpoint.Wrap(&os.PathError{Op: "pack", Path: name, Err: os.ErrInvalid}, ErrInvalidOptions)
	}
	return nil
}
