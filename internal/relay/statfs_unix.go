//go:build linux || darwin || freebsd

package relay

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// DiskFreePercent matches df(1): used / (used + available to unprivileged
// users), rounded up, subtracted from 100.
func DiskFreePercent(path string) (float64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, fmt.Errorf("statfs %s: %w", path, err)
	}

	used := uint64(st.Blocks) - uint64(st.Bfree)
	avail := uint64(st.Bavail)
	if used+avail == 0 {
		return 0, nil
	}

	usedPercent := (used*100 + used + avail - 1) / (used + avail)
	return float64(100 - usedPercent), nil
}
