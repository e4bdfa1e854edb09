//go:build windows

package datastore

import (
	"golang.org/x/sys/windows"
)

// diskFreeBytes returns the space available to the current user on the
// volume holding dir
func diskFreeBytes(dir string) (uint64, error) {
	dirPtr, err := windows.UTF16PtrFromString(dir)
	if err != nil {
		return 0, err
	}

	var available, total, totalFree uint64
	if err := windows.GetDiskFreeSpaceEx(dirPtr, &available, &total, &totalFree); err != nil {
		return 0, err
	}
	return available, nil
}
