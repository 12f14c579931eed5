//go:build !(linux || darwin || freebsd)

package relay

import "errors"

// DiskFreePercent is not available on this platform.
func DiskFreePercent(string) (float64, error) {
	return 0, errors.New("disk free space is not supported on this platform")
}
