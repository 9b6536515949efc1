package gofat

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math/bits"
	"strings"

	"github.com/aligator/gofat32/checkpoint"
)

// DefaultVolumeLabel is the label of volumes without a label entry in the root directory.
const DefaultVolumeLabel = "NO NAME"

const (
	bootSectorSize  = 512
	bootSignature   = 0xAA55
	extendedBootSig = 0x29
	fat32TypeLabel  = "FAT32   "
	defaultOEMName  = "GOFAT32 "

	fsInfoLeadSignature   = 0x41615252
	fsInfoStructSignature = 0x61417272
	fsInfoTrailSignature  = 0xAA550000
	fsInfoUnknown         = 0xFFFFFFFF
)

// BootSector contains the geometry of a FAT32 volume.
// It is created once while creating an image and read only after opening one.
type BootSector struct {
	OEMName             string
	BytesPerSector      uint16
	SectorsPerCluster   uint8
	ReservedSectorCount uint16
	FATCount            uint8
	Media               byte
	SectorsPerFAT       uint32
	RootCluster         uint32
	TotalSectors        uint32
	FSInfoSector        uint16
	BackupBootSector    uint16
	VolumeID            uint32
	VolumeLabel         string
	FileSystemType      string
}

// DecodeBootSector parses the first sector of a FAT32 volume.
func DecodeBootSector(raw []byte) (*BootSector, error) {
	return decodeBootSector(raw, false)
}

func decodeBootSector(raw []byte, skipChecks bool) (*BootSector, error) {
	if len(raw) < bootSectorSize {
		return nil, checkpoint.Errorf(ErrCorruptBootSector, "boot sector has only %d bytes", len(raw))
	}

	var rbs rawBootSector
	if err := binary.Read(bytes.NewReader(raw[:bootSectorSize]), binary.LittleEndian, &rbs); err != nil {
		return nil, checkpoint.Wrap(err, ErrCorruptBootSector)
	}

	if rbs.Signature != bootSignature {
		return nil, checkpoint.Errorf(ErrCorruptBootSector, "missing boot signature, found 0x%04X", rbs.Signature)
	}

	// Check for valid jump instructions.
	// Some formatters write garbage there, so this check can be skipped.
	if !skipChecks && !(rbs.BSJumpBoot[0] == 0xEB && rbs.BSJumpBoot[2] == 0x90) && rbs.BSJumpBoot[0] != 0xE9 {
		return nil, checkpoint.Errorf(ErrCorruptBootSector, "no valid jump instructions at the beginning")
	}

	// FAT only supports 512, 1024, 2048 and 4096.
	switch rbs.BytesPerSector {
	case 512, 1024, 2048, 4096:
	default:
		return nil, checkpoint.Errorf(ErrCorruptBootSector, "invalid sector size %d", rbs.BytesPerSector)
	}

	if rbs.SectorsPerCluster == 0 || bits.OnesCount8(rbs.SectorsPerCluster) != 1 {
		return nil, checkpoint.Errorf(ErrCorruptBootSector, "invalid sectors per cluster %d", rbs.SectorsPerCluster)
	}

	if rbs.ReservedSectorCount == 0 {
		return nil, checkpoint.Errorf(ErrCorruptBootSector, "invalid reserved sector count 0")
	}

	if rbs.NumFATs == 0 {
		return nil, checkpoint.Errorf(ErrCorruptBootSector, "no FAT present")
	}

	// A FAT32 volume has no fixed root directory and always uses the 32 bit fields.
	if rbs.FATSize16 != 0 || rbs.FAT32.FatSize == 0 {
		return nil, checkpoint.Errorf(ErrCorruptBootSector, "not a FAT32 volume (FATSz16=%d, FATSz32=%d)", rbs.FATSize16, rbs.FAT32.FatSize)
	}
	if !skipChecks && rbs.RootEntryCount != 0 {
		return nil, checkpoint.Errorf(ErrCorruptBootSector, "FAT32 requires a root entry count of 0, found %d", rbs.RootEntryCount)
	}

	totalSectors := rbs.TotalSectors32
	if totalSectors == 0 {
		totalSectors = uint32(rbs.TotalSectors16)
	}

	b := &BootSector{
		OEMName:             string(rbs.BSOEMName[:]),
		BytesPerSector:      rbs.BytesPerSector,
		SectorsPerCluster:   rbs.SectorsPerCluster,
		ReservedSectorCount: rbs.ReservedSectorCount,
		FATCount:            rbs.NumFATs,
		Media:               rbs.Media,
		SectorsPerFAT:       rbs.FAT32.FatSize,
		RootCluster:         rbs.FAT32.RootCluster,
		TotalSectors:        totalSectors,
		FSInfoSector:        rbs.FAT32.FSInfo,
		BackupBootSector:    rbs.FAT32.BkBootSector,
		VolumeID:            rbs.FAT32.BSVolumeID,
		VolumeLabel:         strings.TrimRight(string(rbs.FAT32.BSVolumeLabel[:]), " "),
		FileSystemType:      strings.TrimRight(string(rbs.FAT32.BSFileSystemType[:]), " "),
	}

	if uint64(b.dataStartSector()) >= uint64(totalSectors) {
		return nil, checkpoint.Errorf(ErrCorruptBootSector, "data region starts at sector %d but the volume has only %d sectors", b.dataStartSector(), totalSectors)
	}

	if b.ClusterCount() == 0 {
		return nil, checkpoint.Errorf(ErrCorruptBootSector, "the volume has no data clusters")
	}

	// The FAT must be big enough to describe all clusters.
	if uint64(b.SectorsPerFAT)*uint64(b.BytesPerSector)/4 < uint64(b.ClusterCount())+2 {
		return nil, checkpoint.Errorf(ErrCorruptBootSector, "%d FAT sectors cannot describe %d clusters", b.SectorsPerFAT, b.ClusterCount())
	}

	if b.RootCluster < firstCluster || b.RootCluster > b.MaxCluster() {
		return nil, checkpoint.Errorf(ErrCorruptBootSector, "invalid root cluster %d", b.RootCluster)
	}

	return b, nil
}

// Encode serializes the boot sector into exactly one sector.
func (b *BootSector) Encode() []byte {
	rbs := rawBootSector{
		BPB: BPB{
			BSJumpBoot:          [3]byte{0xEB, 0x58, 0x90},
			BytesPerSector:      b.BytesPerSector,
			SectorsPerCluster:   b.SectorsPerCluster,
			ReservedSectorCount: b.ReservedSectorCount,
			NumFATs:             b.FATCount,
			Media:               b.Media,
			SectorsPerTrack:     63,
			NumberOfHeads:       255,
			TotalSectors32:      b.TotalSectors,
		},
		FAT32: FAT32SpecificData{
			FatSize:         b.SectorsPerFAT,
			RootCluster:     b.RootCluster,
			FSInfo:          b.FSInfoSector,
			BkBootSector:    b.BackupBootSector,
			BSDriveNumber:   0x80,
			BSBootSignature: extendedBootSig,
			BSVolumeID:      b.VolumeID,
		},
		Signature: bootSignature,
	}

	copy(rbs.BSOEMName[:], padRight(b.OEMName, 8))
	copy(rbs.FAT32.BSVolumeLabel[:], padRight(b.VolumeLabel, 11))
	copy(rbs.FAT32.BSFileSystemType[:], fat32TypeLabel)

	buf := bytes.NewBuffer(make([]byte, 0, b.BytesPerSector))
	// Writing into a bytes.Buffer cannot fail.
	_ = binary.Write(buf, binary.LittleEndian, &rbs)

	out := make([]byte, b.BytesPerSector)
	copy(out, buf.Bytes())

	// Bigger sectors end with the signature as well.
	if b.BytesPerSector > bootSectorSize {
		out[b.BytesPerSector-2] = 0x55
		out[b.BytesPerSector-1] = 0xAA
	}
	return out
}

// ClusterSize is the size of a cluster in bytes.
func (b *BootSector) ClusterSize() int64 {
	return int64(b.BytesPerSector) * int64(b.SectorsPerCluster)
}

// FATOffset returns the byte offset of the FAT mirror n.
func (b *BootSector) FATOffset(n int) int64 {
	return (int64(b.ReservedSectorCount) + int64(n)*int64(b.SectorsPerFAT)) * int64(b.BytesPerSector)
}

// FATSize is the size of one FAT mirror in bytes.
func (b *BootSector) FATSize() int64 {
	return int64(b.SectorsPerFAT) * int64(b.BytesPerSector)
}

func (b *BootSector) dataStartSector() uint32 {
	return uint32(b.ReservedSectorCount) + uint32(b.FATCount)*b.SectorsPerFAT
}

// DataOffset returns the byte offset of cluster 2.
func (b *BootSector) DataOffset() int64 {
	return int64(b.dataStartSector()) * int64(b.BytesPerSector)
}

// ClusterCount is the number of data clusters of the volume.
func (b *BootSector) ClusterCount() uint32 {
	if b.TotalSectors <= b.dataStartSector() {
		return 0
	}
	return (b.TotalSectors - b.dataStartSector()) / uint32(b.SectorsPerCluster)
}

// MaxCluster is the highest valid cluster index.
func (b *BootSector) MaxCluster() uint32 {
	return b.ClusterCount() + 1
}

// Size is the size of the whole volume in bytes.
func (b *BootSector) Size() int64 {
	return int64(b.TotalSectors) * int64(b.BytesPerSector)
}

func (b *BootSector) String() string {
	return fmt.Sprintf("FAT32 %q: %d bytes/sector, %d sectors/cluster, %d FATs of %d sectors, %d clusters, root at %d",
		b.VolumeLabel, b.BytesPerSector, b.SectorsPerCluster, b.FATCount, b.SectorsPerFAT, b.ClusterCount(), b.RootCluster)
}

// fsInfo is the decoded FSInfo sector. Both values are hints only.
type fsInfo struct {
	FreeCount uint32
	NextFree  uint32
}

func encodeFSInfo(info fsInfo, sectorSize uint16) []byte {
	raw := rawFSInfo{
		LeadSignature:   fsInfoLeadSignature,
		StructSignature: fsInfoStructSignature,
		FreeCount:       info.FreeCount,
		NextFree:        info.NextFree,
		TrailSignature:  fsInfoTrailSignature,
	}

	buf := bytes.NewBuffer(make([]byte, 0, sectorSize))
	_ = binary.Write(buf, binary.LittleEndian, &raw)

	out := make([]byte, sectorSize)
	copy(out, buf.Bytes())
	return out
}

func decodeFSInfo(b []byte) (fsInfo, error) {
	if len(b) < bootSectorSize {
		return fsInfo{}, fmt.Errorf("FSInfo sector has only %d bytes", len(b))
	}

	var raw rawFSInfo
	if err := binary.Read(bytes.NewReader(b[:bootSectorSize]), binary.LittleEndian, &raw); err != nil {
		return fsInfo{}, err
	}

	if raw.LeadSignature != fsInfoLeadSignature || raw.StructSignature != fsInfoStructSignature || raw.TrailSignature != fsInfoTrailSignature {
		return fsInfo{}, fmt.Errorf("invalid FSInfo signatures 0x%08X 0x%08X 0x%08X", raw.LeadSignature, raw.StructSignature, raw.TrailSignature)
	}

	return fsInfo{FreeCount: raw.FreeCount, NextFree: raw.NextFree}, nil
}

func padRight(s string, n int) []byte {
	out := bytes.Repeat([]byte{' '}, n)
	copy(out, s)
	return out
}
