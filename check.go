package gofat

import (
	"bytes"
	"fmt"

	"go.uber.org/zap"
)

// Report is the result of a consistency check.
type Report struct {
	Files        int
	Dirs         int
	UsedClusters uint32
	FreeClusters uint32
	LostClusters []uint32
	Problems     []string
}

// OK reports if no problem was found.
func (r *Report) OK() bool {
	return len(r.Problems) == 0 && len(r.LostClusters) == 0
}

func (r *Report) problemf(format string, args ...interface{}) {
	r.Problems = append(r.Problems, fmt.Sprintf(format, args...))
}

// Check verifies the image: all FAT mirrors must be identical, every chain must match the size of its entry,
// no cluster may belong to two chains and every allocated cluster must be reachable from the root.
// The returned error is only set if the directory tree itself could not be traversed,
// the report contains everything found until then.
func (img *Image) Check() (*Report, error) {
	report := &Report{}

	if err := img.checkMirrors(report); err != nil {
		return report, err
	}

	owners := make(map[uint32]string)
	claim := func(owner string, head uint32) {
		chain, err := img.fat.Chain(head)
		if err != nil {
			report.problemf("%s: %v", owner, err)
			return
		}
		for _, c := range chain {
			if other, ok := owners[c]; ok {
				report.problemf("cluster %d is used by %s and %s", c, other, owner)
				continue
			}
			owners[c] = owner
		}
	}

	claim("/", img.RootCluster())

	err := img.Walk(func(path string, entry DirectoryEntry) error {
		if entry.IsDir() {
			report.Dirs++
			claim(path, entry.FirstCluster)
			return nil
		}

		report.Files++
		if entry.Size == 0 {
			if entry.FirstCluster != 0 {
				report.problemf("%s: empty file has the cluster %d", path, entry.FirstCluster)
			}
			return nil
		}

		chain, err := img.fat.Chain(entry.FirstCluster)
		if err != nil {
			report.problemf("%s: %v", path, err)
			return nil
		}
		if want := clustersFor(int64(entry.Size), img.boot.ClusterSize()); len(chain) != want {
			report.problemf("%s: %d bytes need %d clusters but the chain has %d", path, entry.Size, want, len(chain))
		}
		claim(path, entry.FirstCluster)
		return nil
	})
	if err != nil {
		report.problemf("traversal stopped: %v", err)
		return report, err
	}

	for c := uint32(firstCluster); c <= img.boot.MaxCluster(); c++ {
		e, err := img.fat.Get(c)
		if err != nil {
			return report, err
		}
		switch {
		case e.IsFree():
			report.FreeClusters++
		case e.IsBad():
		default:
			report.UsedClusters++
			if _, ok := owners[c]; !ok {
				report.LostClusters = append(report.LostClusters, c)
			}
		}
	}

	if img.infoValid && img.info.FreeCount != fsInfoUnknown && img.info.FreeCount != report.FreeClusters {
		report.problemf("FSInfo reports %d free clusters but the FAT has %d", img.info.FreeCount, report.FreeClusters)
	}

	img.log.Debug("check finished",
		zap.Int("files", report.Files),
		zap.Int("dirs", report.Dirs),
		zap.Int("lost", len(report.LostClusters)),
		zap.Int("problems", len(report.Problems)))

	return report, nil
}

// checkMirrors compares the FAT mirrors as they are stored in the image.
func (img *Image) checkMirrors(report *Report) error {
	primary := make([]byte, img.boot.FATSize())
	if err := img.region.ReadAt(primary, img.boot.FATOffset(0)); err != nil {
		return err
	}

	mirror := make([]byte, img.boot.FATSize())
	for i := 1; i < int(img.boot.FATCount); i++ {
		if err := img.region.ReadAt(mirror, img.boot.FATOffset(i)); err != nil {
			return err
		}
		if !bytes.Equal(primary, mirror) {
			report.problemf("FAT mirror %d differs from the first FAT", i)
		}
	}
	return nil
}
