package gofat

import (
	"sort"

	"github.com/aligator/gofat32/checkpoint"
)

const (
	reservedSectors    = 32
	fsInfoSector       = 1
	backupBootSector   = 6
	defaultFATCount    = 2
	mediaFixedDisk     = 0xF8
	minFAT32Clusters   = 65525
	maxFAT32Clusters   = 0x0FFFFFF5
	maxFAT32TotalBytes = int64(^uint32(0)) * 512
)

// geometry is the layout part of a BootSector which only depends on the size of the volume.
type geometry struct {
	bytesPerSector    uint16
	sectorsPerCluster uint8
	fatCount          uint8
	totalSectors      uint32
	sectorsPerFAT     uint32
}

func (g geometry) clusterCount() uint32 {
	data := g.totalSectors - reservedSectors - uint32(g.fatCount)*g.sectorsPerFAT
	return data / uint32(g.sectorsPerCluster)
}

// fatSectorsFor returns how many sectors a FAT needs to describe the given amount of clusters.
func fatSectorsFor(clusters uint32, bytesPerSector uint16) uint32 {
	entries := uint64(clusters) + 2
	return uint32((entries*4 + uint64(bytesPerSector) - 1) / uint64(bytesPerSector))
}

// planGeometry lays out a volume of the given capacity in bytes.
// It uses the smallest FAT which is still able to describe all remaining clusters.
func planGeometry(capacity int64, bytesPerSector uint16, sectorsPerCluster uint8, fatCount uint8) (geometry, error) {
	if capacity > maxFAT32TotalBytes/512*int64(bytesPerSector) {
		return geometry{}, checkpoint.Errorf(ErrInvalidOptions, "capacity %d exceeds the FAT32 sector limit", capacity)
	}

	g := geometry{
		bytesPerSector:    bytesPerSector,
		sectorsPerCluster: sectorsPerCluster,
		fatCount:          fatCount,
		totalSectors:      uint32(capacity / int64(bytesPerSector)),
	}

	// Overhead for reserved sectors, one FAT sector per FAT and at least one cluster.
	if uint64(g.totalSectors) < reservedSectors+uint64(fatCount)+uint64(sectorsPerCluster) {
		return g, checkpoint.Errorf(ErrInsufficientCapacity, "capacity of %d bytes cannot hold even an empty volume", capacity)
	}

	available := g.totalSectors - reservedSectors
	clustersWith := func(fatSectors uint32) uint32 {
		if uint64(fatSectors)*uint64(fatCount) >= uint64(available) {
			return 0
		}
		return (available - fatSectors*uint32(fatCount)) / uint32(sectorsPerCluster)
	}

	// The needed FAT size shrinks while the FAT itself grows, so the smallest fitting one can be searched.
	upper := fatSectorsFor(available/uint32(sectorsPerCluster), bytesPerSector)
	fatSectors := uint32(sort.Search(int(upper)+1, func(i int) bool {
		return i > 0 && fatSectorsFor(clustersWith(uint32(i)), bytesPerSector) <= uint32(i)
	}))

	g.sectorsPerFAT = fatSectors
	if g.clusterCount() == 0 {
		return g, checkpoint.Errorf(ErrInsufficientCapacity, "capacity of %d bytes leaves no data clusters", capacity)
	}
	if g.clusterCount() > maxFAT32Clusters {
		return g, checkpoint.Errorf(ErrInvalidOptions, "%d clusters exceed the FAT32 limit, use bigger clusters", g.clusterCount())
	}

	return g, nil
}

// requiredSectors is the smallest volume size in sectors which provides the given amount of clusters.
func requiredSectors(clusters uint32, bytesPerSector uint16, sectorsPerCluster uint8, fatCount uint8) uint64 {
	return reservedSectors +
		uint64(fatCount)*uint64(fatSectorsFor(clusters, bytesPerSector)) +
		uint64(clusters)*uint64(sectorsPerCluster)
}
