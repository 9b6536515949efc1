package gofat

import (
	"math/bits"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/aligator/gofat32/checkpoint"
)

// ProgressFunc is called after a file or directory of the source tree was written to the image.
type ProgressFunc func(path string, size int64)

type options struct {
	bytesPerSector    uint16
	sectorsPerCluster uint8
	fatCount          uint8
	label             string
	oemName           string
	volumeID          *uint32
	workers           int
	timestamp         *time.Time
	skipChecks        bool
	logger            *zap.Logger
	progress          ProgressFunc
}

// Option configures CreateImage, OpenImage and RequiredCapacity.
type Option func(o *options)

func defaultOptions() options {
	return options{
		bytesPerSector:    512,
		sectorsPerCluster: 8,
		fatCount:          defaultFATCount,
		label:             DefaultVolumeLabel,
		oemName:           defaultOEMName,
		workers:           1,
		logger:            zap.NewNop(),
	}
}

func buildOptions(opts []Option) (options, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	switch o.bytesPerSector {
	case 512, 1024, 2048, 4096:
	default:
		return o, checkpoint.Errorf(ErrInvalidOptions, "invalid sector size %d", o.bytesPerSector)
	}
	if o.sectorsPerCluster == 0 || bits.OnesCount8(o.sectorsPerCluster) != 1 {
		return o, checkpoint.Errorf(ErrInvalidOptions, "sectors per cluster must be a power of two, got %d", o.sectorsPerCluster)
	}
	if o.fatCount == 0 {
		return o, checkpoint.Errorf(ErrInvalidOptions, "at least one FAT is needed")
	}
	if len(o.label) > 11 {
		return o, checkpoint.Errorf(ErrInvalidOptions, "volume label %q is longer than 11 characters", o.label)
	}
	for i := 0; i < len(o.label); i++ {
		if o.label[i] != ' ' && !isShortChar(o.label[i]) {
			return o, checkpoint.Errorf(ErrInvalidOptions, "volume label %q contains the invalid character %q", o.label, o.label[i])
		}
	}
	if o.workers < 1 {
		o.workers = 1
	}
	if o.logger == nil {
		o.logger = zap.NewNop()
	}
	return o, nil
}

// WithBytesPerSector sets the sector size: 512, 1024, 2048 or 4096.
func WithBytesPerSector(n uint16) Option {
	return func(o *options) {
		o.bytesPerSector = n
	}
}

// WithSectorsPerCluster sets the cluster size in sectors, a power of two.
func WithSectorsPerCluster(n uint8) Option {
	return func(o *options) {
		o.sectorsPerCluster = n
	}
}

// WithFATCount sets the number of FAT mirrors. Most readers expect 2.
func WithFATCount(n uint8) Option {
	return func(o *options) {
		o.fatCount = n
	}
}

// WithLabel sets the volume label. It is upper cased.
func WithLabel(label string) Option {
	return func(o *options) {
		o.label = strings.ToUpper(label)
	}
}

// WithOEMName sets the OEM name of the boot sector.
func WithOEMName(name string) Option {
	return func(o *options) {
		o.oemName = name
	}
}

// WithVolumeID sets a fixed volume serial number instead of a random one.
func WithVolumeID(id uint32) Option {
	return func(o *options) {
		o.volumeID = &id
	}
}

// WithWorkers packs independent subdirectories in parallel.
// The content stays the same but the cluster layout depends on scheduling if n > 1.
func WithWorkers(n int) Option {
	return func(o *options) {
		o.workers = n
	}
}

// WithTimestamp uses t for all entries instead of the source modification times.
// Together with WithVolumeID and one worker this creates reproducible images.
func WithTimestamp(t time.Time) Option {
	return func(o *options) {
		o.timestamp = &t
	}
}

// WithSkipChecks relaxes the validation while opening an image which may allow
// to open not perfectly standard FAT32 images. Use with caution!
func WithSkipChecks() Option {
	return func(o *options) {
		o.skipChecks = true
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithProgress registers a callback for every written file and directory.
func WithProgress(fn ProgressFunc) Option {
	return func(o *options) {
		o.progress = fn
	}
}

// hasLabelEntry reports if the root directory gets a volume label entry.
// The default label is only stored in the boot sector.
func (o options) hasLabelEntry() bool {
	return o.label != "" && o.label != DefaultVolumeLabel
}

func (o options) newVolumeID() uint32 {
	if o.volumeID != nil {
		return *o.volumeID
	}
	id := uuid.New()
	return uint32(id[0])<<24 | uint32(id[1])<<16 | uint32(id[2])<<8 | uint32(id[3])
}
