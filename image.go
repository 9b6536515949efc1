package gofat

import (
	"context"
	"errors"
	"os"
	"path"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/aligator/gofat32/checkpoint"
)

// Image is a FAT32 image, either freshly created or opened.
// After creation or opening it is read only.
type Image struct {
	file afero.File
	name string

	boot   *BootSector
	fat    *FatTable
	region *Region

	// info is the FSInfo sector as it is stored in the image.
	info      fsInfo
	infoValid bool

	log *zap.Logger
}

// Stats summarizes the usage of an image.
type Stats struct {
	Size          int64
	ClusterSize   int64
	TotalClusters uint32
	FreeClusters  uint32
	Label         string
}

// WalkFunc is called by Walk for each entry. Returning filepath.SkipDir for a directory
// skips its content.
type WalkFunc func(path string, entry DirectoryEntry) error

// RequiredCapacity returns the smallest image size in bytes which is able to hold the tree below srcDir.
func RequiredCapacity(src afero.Fs, srcDir string, opts ...Option) (int64, error) {
	o, err := buildOptions(opts)
	if err != nil {
		return 0, err
	}
	if err := checkSourceDir(src, srcDir); err != nil {
		return 0, err
	}

	stats, err := scanTree(src, srcDir, o)
	if err != nil {
		return 0, err
	}

	return capacityFor(stats.Clusters, o)
}

func capacityFor(clusters uint64, o options) (int64, error) {
	if clusters > maxFAT32Clusters {
		return 0, checkpoint.Errorf(ErrInvalidOptions, "%d clusters exceed the FAT32 limit, use bigger clusters", clusters)
	}
	return int64(requiredSectors(uint32(clusters), o.bytesPerSector, o.sectorsPerCluster, o.fatCount)) * int64(o.bytesPerSector), nil
}

// CreateImage packs the tree below srcDir of src into a new FAT32 image of capacity bytes at name in dst.
// If the tree does not fit, ErrInsufficientCapacity is returned before anything is written.
// If packing fails afterwards, the partial image is invalid and has no boot sector.
func CreateImage(ctx context.Context, src afero.Fs, srcDir string, dst afero.Fs, name string, capacity int64, opts ...Option) (*Image, error) {
	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}
	log := o.logger

	if err := checkSourceDir(src, srcDir); err != nil {
		return nil, err
	}

	stats, err := scanTree(src, srcDir, o)
	if err != nil {
		return nil, err
	}

	geo, err := planGeometry(capacity, o.bytesPerSector, o.sectorsPerCluster, o.fatCount)
	if err != nil {
		return nil, err
	}
	if uint64(geo.clusterCount()) < stats.Clusters {
		required, _ := capacityFor(stats.Clusters, o)
		return nil, checkpoint.Errorf(ErrInsufficientCapacity, "the tree needs %d clusters but %d bytes provide only %d, at least %d bytes are needed",
			stats.Clusters, capacity, geo.clusterCount(), required)
	}

	log.Info("creating image",
		zap.String("source", srcDir),
		zap.String("image", name),
		zap.Int64("capacity", capacity),
		zap.Int("files", stats.Files),
		zap.Int("dirs", stats.Dirs),
		zap.Uint64("clusters", stats.Clusters),
		zap.Uint32("available", geo.clusterCount()))
	if geo.clusterCount() < minFAT32Clusters {
		log.Warn("volume has fewer clusters than FAT32 requires, some readers treat it as FAT16",
			zap.String("image", name),
			zap.Uint32("clusters", geo.clusterCount()),
			zap.Uint32("minimum", minFAT32Clusters))
	}

	f, err := dst.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0644)
	if err != nil {
		return nil, checkpoint.From(err)
	}
	if err := f.Truncate(capacity); err != nil {
		_ = f.Close()
		return nil, checkpoint.From(err)
	}

	boot := &BootSector{
		OEMName:             o.oemName,
		BytesPerSector:      geo.bytesPerSector,
		SectorsPerCluster:   geo.sectorsPerCluster,
		ReservedSectorCount: reservedSectors,
		FATCount:            geo.fatCount,
		Media:               mediaFixedDisk,
		SectorsPerFAT:       geo.sectorsPerFAT,
		TotalSectors:        geo.totalSectors,
		FSInfoSector:        fsInfoSector,
		BackupBootSector:    backupBootSector,
		VolumeID:            o.newVolumeID(),
		VolumeLabel:         o.label,
		FileSystemType:      strings.TrimSpace(fat32TypeLabel),
	}

	img := &Image{
		file:   f,
		name:   name,
		boot:   boot,
		fat:    NewFatTable(geo.clusterCount(), int(geo.fatCount), boot.FATSize(), boot.Media),
		region: NewRegion(f, boot),
		log:    log,
	}

	if err := img.build(ctx, src, srcDir, o); err != nil {
		_ = f.Close()
		return nil, err
	}

	log.Info("image created", zap.String("image", name), zap.Uint32("free", img.fat.FreeCount()))
	return img, nil
}

// build packs the tree and writes all metadata. The boot sector is written last.
func (img *Image) build(ctx context.Context, src afero.Fs, srcDir string, o options) error {
	root, err := img.fat.AllocateChain(1)
	if err != nil {
		return err
	}
	img.boot.RootCluster = root.Head()

	p := &packer{
		src:    src,
		fat:    img.fat,
		region: img.region,
		boot:   img.boot,
		opts:   o,
		log:    img.log,
	}
	if err := p.pack(ctx, srcDir, root.Head()); err != nil {
		return err
	}

	for i, mirror := range img.fat.Flush() {
		if err := img.region.WriteAt(mirror, img.boot.FATOffset(i)); err != nil {
			return err
		}
	}

	img.info = fsInfo{FreeCount: img.fat.FreeCount(), NextFree: img.fat.NextFree()}
	img.infoValid = true
	info := encodeFSInfo(img.info, img.boot.BytesPerSector)
	for _, sector := range []uint32{fsInfoSector, backupBootSector + fsInfoSector} {
		if err := img.region.WriteAt(info, img.region.sectorOffset(sector)); err != nil {
			return err
		}
	}

	encoded := img.boot.Encode()
	if err := img.region.WriteAt(encoded, img.region.sectorOffset(backupBootSector)); err != nil {
		return err
	}
	if err := img.region.WriteAt(encoded, 0); err != nil {
		return err
	}

	return checkpoint.From(img.file.Sync())
}

// OpenImage opens an existing FAT32 image read only.
// The boot sector and all FAT mirrors are validated unless WithSkipChecks is given.
func OpenImage(fs afero.Fs, name string, opts ...Option) (*Image, error) {
	o, err := buildOptions(opts)
	if err != nil {
		return nil, err
	}

	f, err := fs.Open(name)
	if err != nil {
		return nil, checkpoint.From(err)
	}

	img, err := openImage(f, name, o)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return img, nil
}

func openImage(f afero.File, name string, o options) (*Image, error) {
	raw := make([]byte, bootSectorSize)
	if _, err := f.ReadAt(raw, 0); err != nil {
		return nil, checkpoint.Wrap(err, ErrCorruptBootSector)
	}

	boot, err := decodeBootSector(raw, o.skipChecks)
	if err != nil {
		return nil, err
	}

	stat, err := f.Stat()
	if err != nil {
		return nil, checkpoint.From(err)
	}
	if stat.Size() < boot.Size() && !o.skipChecks {
		return nil, checkpoint.Errorf(ErrCorruptBootSector, "image has %d bytes but the boot sector describes %d", stat.Size(), boot.Size())
	}

	img := &Image{
		file:   f,
		name:   name,
		boot:   boot,
		region: NewRegion(f, boot),
		log:    o.logger,
	}

	mirrors := make([][]byte, boot.FATCount)
	for i := range mirrors {
		mirrors[i] = make([]byte, boot.FATSize())
		if err := img.region.ReadAt(mirrors[i], boot.FATOffset(i)); err != nil {
			return nil, checkpoint.Wrap(err, ErrCorruptFat)
		}
	}

	img.fat, err = LoadFat(mirrors, boot.ClusterCount(), !o.skipChecks)
	if err != nil {
		return nil, err
	}

	if e, _ := img.fat.Get(boot.RootCluster); e.IsFree() {
		return nil, checkpoint.Errorf(ErrCorruptFat, "root cluster %d is marked as free", boot.RootCluster)
	}

	infoRaw := make([]byte, boot.BytesPerSector)
	if err := img.region.ReadAt(infoRaw, img.region.sectorOffset(uint32(boot.FSInfoSector))); err != nil {
		img.log.Warn("could not read the FSInfo sector", zap.Error(err))
	} else if img.info, err = decodeFSInfo(infoRaw); err != nil {
		img.log.Warn("ignoring invalid FSInfo sector", zap.Error(err))
	} else {
		img.infoValid = true
	}

	img.log.Debug("image opened", zap.String("image", name), zap.Stringer("bootSector", boot))
	return img, nil
}

// Close releases the backing file.
func (img *Image) Close() error {
	return checkpoint.From(img.file.Close())
}

// Name returns the path of the image file.
func (img *Image) Name() string {
	return img.name
}

// RootCluster returns the head of the root directory chain.
func (img *Image) RootCluster() uint32 {
	return img.boot.RootCluster
}

// BootSector returns a copy of the boot sector.
func (img *Image) BootSector() BootSector {
	return *img.boot
}

// Label returns the volume label. The label entry of the root directory takes precedence over the boot sector.
func (img *Image) Label() string {
	it := img.ListChildren(img.RootCluster())
	for {
		entry, ok := it.nextRecord()
		if !ok {
			break
		}
		if entry.IsVolumeLabel() {
			return entry.Name
		}
	}
	return strings.TrimRight(img.boot.VolumeLabel, " ")
}

// Stats returns the usage of the image.
func (img *Image) Stats() Stats {
	return Stats{
		Size:          img.boot.Size(),
		ClusterSize:   img.boot.ClusterSize(),
		TotalClusters: img.boot.ClusterCount(),
		FreeClusters:  img.fat.FreeCount(),
		Label:         img.Label(),
	}
}

// Walk visits all entries below the root directory. The directories are traversed
// by an explicit stack, each level in on-disk order.
func (img *Image) Walk(fn WalkFunc) error {
	type frame struct {
		path string
		it   *DirIterator
	}
	stack := []frame{{path: "/", it: img.ListChildren(img.RootCluster())}}

	for len(stack) > 0 {
		current := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		entries, err := current.it.Collect()
		if err != nil {
			return err
		}

		var subdirs []frame
		for _, entry := range entries {
			entryPath := path.Join(current.path, entry.Name)
			if err := fn(entryPath, entry); err != nil {
				if errors.Is(err, filepath.SkipDir) && entry.IsDir() {
					continue
				}
				return err
			}
			if entry.IsDir() {
				subdirs = append(subdirs, frame{path: entryPath, it: current.it.Descend(entry)})
			}
		}

		for i := len(subdirs) - 1; i >= 0; i-- {
			stack = append(stack, subdirs[i])
		}
	}

	return nil
}

// ReadFile returns the complete content of a file entry.
func (img *Image) ReadFile(entry DirectoryEntry) ([]byte, error) {
	if entry.IsDir() {
		return nil, checkpoint.Wrap(syscall.EISDIR, ErrReadFile)
	}
	if entry.Size == 0 {
		return []byte{}, nil
	}

	chain, err := img.fileChain(entry.FirstCluster)
	if err != nil {
		return nil, err
	}
	return img.readChainAt(chain, int64(entry.Size), 0, int64(entry.Size))
}

// fileChain returns the cluster chain of the file starting at cluster.
func (img *Image) fileChain(cluster uint32) (ClusterChain, error) {
	return img.fat.Chain(cluster)
}

// readChainAt reads up to readSize bytes at offset of the file stored in chain.
func (img *Image) readChainAt(chain ClusterChain, fileSize int64, offset int64, readSize int64) ([]byte, error) {
	if fileSize == 0 || offset >= fileSize || readSize <= 0 {
		return []byte{}, nil
	}

	clusterSize := img.boot.ClusterSize()
	if len(chain) < clustersFor(fileSize, clusterSize) {
		return nil, checkpoint.Errorf(ErrSizeMismatch, "file of %d bytes has only %d clusters", fileSize, len(chain))
	}

	end := offset + readSize
	if end > fileSize {
		end = fileSize
	}

	data := make([]byte, 0, end-offset)
	buf := make([]byte, clusterSize)
	for pos := offset; pos < end; {
		if err := img.region.readClusterInto(chain[pos/clusterSize], buf); err != nil {
			return data, err
		}

		within := pos % clusterSize
		n := clusterSize - within
		if end-pos < n {
			n = end - pos
		}
		data = append(data, buf[within:within+n]...)
		pos += n
	}

	return data, nil
}

// readDir returns all entries of the directory starting at cluster.
func (img *Image) readDir(cluster uint32) ([]DirectoryEntry, error) {
	return img.ListChildren(cluster).Collect()
}
