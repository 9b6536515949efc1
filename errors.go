package gofat

import "errors"

// These errors may occur while creating or reading an image.
// All of them are decorated by the checkpoint package, so use errors.Is to check for them.
var (
	ErrCorruptBootSector     = errors.New("corrupt boot sector")
	ErrCorruptFat            = errors.New("corrupt file allocation table")
	ErrInvalidDirectoryEntry = errors.New("invalid directory entry")
	ErrInvalidCluster        = errors.New("invalid cluster")
	ErrSizeMismatch          = errors.New("size mismatch")
	ErrDiskFull              = errors.New("no free clusters left")
	ErrInsufficientCapacity  = errors.New("source does not fit into the requested capacity")
	ErrCyclicDirectory       = errors.New("cyclic directory structure")

	ErrReadOnly       = errors.New("the image is opened read only")
	ErrFileTooLarge   = errors.New("file is too large for FAT32")
	ErrInvalidOptions = errors.New("invalid image options")
)

// These errors may occur while processing a file.
var (
	ErrReadFile = errors.New("could not read file completely")
	ErrSeekFile = errors.New("could not seek inside of the file")
	ErrReadDir  = errors.New("could not read the directory")
)
