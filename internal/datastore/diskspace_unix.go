//go:build !windows

package datastore

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// diskFreeBytes returns the space available to unprivileged users on the
// filesystem holding dir
func diskFreeBytes(dir string) (uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(dir, &stat); err != nil {
		return 0, err
	}
	if stat.Bsize <= 0 {
		return 0, fmt.Errorf("invalid block size %d for %s", stat.Bsize, dir)
	}
	return stat.Bavail * uint64(stat.Bsize), nil
}
