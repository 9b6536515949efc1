package gofat

import (
	"io/fs"

	"github.com/spf13/afero"
)

// GoFs is the image as read only fs.FS. It implements fs.StatFS, fs.ReadDirFS,
// fs.ReadFileFS and fs.GlobFS and returns io/fs style errors.
type GoFs struct {
	afero.IOFS
}

var (
	_ fs.StatFS     = GoFs{}
	_ fs.ReadDirFS  = GoFs{}
	_ fs.ReadFileFS = GoFs{}
	_ fs.GlobFS     = GoFs{}
)

// GoFs returns the fs.FS view of the image.
func (img *Image) GoFs() GoFs {
	return GoFs{afero.NewIOFS(img.Fs())}
}
