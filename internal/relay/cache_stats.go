package relay

import (
	"errors"
	"io/fs"
	"math"
	"path/filepath"
)

// MinFreeSpacePercent is the free disk share below which the relay is not ready.
const MinFreeSpacePercent = 10

// StatFS reports the free space of the filesystem holding path, in percent.
type StatFS func(path string) (float64, error)

// CacheStats describes the nginx proxy cache directory.
type CacheStats struct {
	SizeBytes        int64
	SizeMB           float64
	FreeSpacePercent float64
	FileCount        int
	Err              error
}

// Sufficient reports whether the cache disk has enough headroom.
func (s CacheStats) Sufficient() bool {
	return s.FreeSpacePercent > MinFreeSpacePercent
}

// ReadCacheStats walks dir and asks statfs for the disk's free space.
// Any failure zeroes the result and is reported in Err.
func ReadCacheStats(dir string, statfs StatFS) CacheStats {
	size, files, err := dirUsage(dir)
	if err != nil {
		return CacheStats{Err: err}
	}

	free, err := statfs(dir)
	if err != nil {
		return CacheStats{Err: err}
	}

	return CacheStats{
		SizeBytes:        size,
		SizeMB:           round2(float64(size) / 1024 / 1024),
		FreeSpacePercent: free,
		FileCount:        files,
	}
}

// dirUsage sums the size of the regular files below dir.
func dirUsage(dir string) (size int64, files int, err error) {
	err = filepath.WalkDir(dir, func(_ string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			// nginx evicts entries while we walk
			if errors.Is(walkErr, fs.ErrNotExist) && d != nil {
				return nil
			}
			return walkErr
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}
		size += info.Size()
		files++
		return nil
	})
	return size, files, err
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
