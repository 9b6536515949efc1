package gofat

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"syscall"

	"github.com/spf13/afero"

	"github.com/aligator/gofat32/checkpoint"
)

// fatFileFs provides all methods needed from an image for File.
// It mainly exists to be able to mock the image in tests.
// Generated mock using mockgen:
//  mockgen -source=file.go -destination=file_mock_test.go -package gofat
type fatFileFs interface {
	fileChain(cluster uint32) (ClusterChain, error)
	readChainAt(chain ClusterChain, fileSize int64, offset int64, readSize int64) ([]byte, error)
	readDir(cluster uint32) ([]DirectoryEntry, error)
}

// File is a read only file or directory of an image.
type File struct {
	fs fatFileFs

	isDirectory  bool
	firstCluster uint32

	// clusters is loaded on the first read and reused afterwards.
	clusters ClusterChain

	stat   os.FileInfo
	offset int64
}

func newFile(fs fatFileFs, entry DirectoryEntry) *File {
	return &File{
		fs:           fs,
		isDirectory:  entry.IsDir(),
		firstCluster: entry.FirstCluster,
		stat:         entry.FileInfo(),
	}
}

func (f *File) Close() error {
	f.fs = nil
	f.isDirectory = false
	f.firstCluster = 0
	f.clusters = nil
	f.stat = nil
	f.offset = 0

	return nil
}

// loadClusters returns the cluster chain of the file, reading it from the FAT only once.
func (f *File) loadClusters() (ClusterChain, error) {
	if f.clusters != nil {
		return f.clusters, nil
	}

	chain, err := f.fs.fileChain(f.firstCluster)
	if err != nil {
		return nil, err
	}
	f.clusters = chain
	return chain, nil
}

func (f *File) Read(p []byte) (n int, err error) {
	if p == nil {
		return 0, nil
	}

	if f.isDirectory {
		return 0, checkpoint.Wrap(syscall.EISDIR, ErrReadFile)
	}

	// Reading a file if the size has been already reached, makes no sense.
	if f.stat.Size() <= f.offset {
		return 0, io.EOF
	}

	clusters, err := f.loadClusters()
	if err != nil {
		return 0, checkpoint.Wrap(err, ErrReadFile)
	}

	data, err := f.fs.readChainAt(clusters, f.stat.Size(), f.offset, int64(len(p)))

	if data != nil {
		copy(p, data)
	}

	// Seek even if an error occurred, errors from reading are used even if seek also errors.
	_, seekErr := f.Seek(int64(len(data)), io.SeekCurrent)

	if err != nil {
		return len(data), checkpoint.Wrap(err, ErrReadFile)
	}

	if seekErr != nil {
		return len(data), checkpoint.Wrap(seekErr, ErrReadFile)
	}

	return len(data), nil
}

// ReadAt reads len(p) bytes at off. It returns io.EOF if the file ends before p is full.
func (f *File) ReadAt(p []byte, off int64) (n int, err error) {
	if p == nil {
		return 0, nil
	}

	if f.isDirectory {
		return 0, checkpoint.Wrap(syscall.EISDIR, ErrReadFile)
	}

	// Reading over the end makes no sense.
	if f.stat.Size() <= off {
		return 0, io.EOF
	}

	clusters, err := f.loadClusters()
	if err != nil {
		return 0, checkpoint.Wrap(err, ErrReadFile)
	}

	size := len(p)
	data, err := f.fs.readChainAt(clusters, f.stat.Size(), off, int64(size))

	if data != nil {
		copy(p, data)
	}

	if err != nil {
		return len(data), checkpoint.Wrap(err, ErrReadFile)
	}

	if len(data) < size {
		return len(data), io.EOF
	}
	return len(data), nil
}

// Seek jumps to a specific offset in the file. This affects all Read operation except ReadAt.
// May return a syscall.EINVAL error if the whence value is invalid.
// May return an afero.ErrOutOfRange error if the offset is out of range.
func (f *File) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		offset = f.offset + offset
	case io.SeekEnd:
		offset = f.stat.Size() + offset
	default:
		return 0, checkpoint.Wrap(ErrSeekFile, fmt.Errorf("%w, offset: %v, whence: %v", syscall.EINVAL, offset, whence))
	}

	if offset < 0 || offset > f.stat.Size() {
		return 0, checkpoint.Wrap(afero.ErrOutOfRange, fmt.Errorf("%w, offset: %v, whence: %v", ErrSeekFile, offset, whence))
	}

	f.offset = offset
	return offset, nil
}

func (f *File) Write(p []byte) (n int, err error) {
	return 0, checkpoint.Wrap(syscall.EROFS, ErrReadOnly)
}

func (f *File) WriteAt(p []byte, off int64) (n int, err error) {
	return 0, checkpoint.Wrap(syscall.EROFS, ErrReadOnly)
}

func (f *File) Name() string {
	return f.stat.Name()
}

// Readdir reads the contents of a directory.
// If count > 0 at most count entries are returned and io.EOF is returned at the end of the directory.
// Otherwise all remaining entries are returned.
// May return syscall.ENOTDIR if the current File is no directory.
func (f *File) Readdir(count int) ([]os.FileInfo, error) {
	if !f.isDirectory {
		return nil, checkpoint.Wrap(syscall.ENOTDIR, ErrReadDir)
	}

	content, err := f.fs.readDir(f.firstCluster)
	if err != nil {
		return nil, checkpoint.Wrap(err, ErrReadDir)
	}

	if f.offset > int64(len(content)) {
		f.offset = int64(len(content))
	}
	content = content[f.offset:]

	if count > 0 {
		if len(content) == 0 {
			return nil, io.EOF
		}
		if count < len(content) {
			content = content[:count]
		}
	}
	f.offset += int64(len(content))

	result := make([]os.FileInfo, len(content))
	for i := range content {
		result[i] = content[i].FileInfo()
	}

	return result, nil
}

func (f *File) Readdirnames(count int) ([]string, error) {
	content, err := f.Readdir(count)
	if err != nil {
		return nil, checkpoint.Wrap(err, ErrReadDir)
	}

	names := make([]string, len(content))
	for i, entry := range content {
		names[i] = entry.Name()
	}

	return names, nil
}

// ReadDir implements fs.ReadDirFile with the same semantics as Readdir.
func (f *File) ReadDir(count int) ([]fs.DirEntry, error) {
	content, err := f.Readdir(count)
	if err != nil {
		return nil, err
	}

	entries := make([]fs.DirEntry, len(content))
	for i, info := range content {
		entries[i] = fs.FileInfoToDirEntry(info)
	}
	return entries, nil
}

func (f *File) Stat() (os.FileInfo, error) {
	return f.stat, nil
}

func (f *File) Sync() error {
	return nil
}

func (f *File) Truncate(size int64) error {
	return checkpoint.Wrap(syscall.EROFS, ErrReadOnly)
}

func (f *File) WriteString(s string) (ret int, err error) {
	return f.Write([]byte(s))
}
