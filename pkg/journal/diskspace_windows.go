//go:build windows

package journal

import (
	"fmt"

	"golang.org/x/sys/windows"
)

func getFreeSpace(path string) (int64, error) {
	free, _, _, err := diskFreeBytes(path)
	if err != nil {
		return 0, fmt.Errorf("journal: GetDiskFreeSpaceEx %s: %w", path, err)
	}
	return int64(free), nil
}

func getTotalSpace(path string) (int64, error) {
	_, total, _, err := diskFreeBytes(path)
	if err != nil {
		return 0, fmt.Errorf("journal: GetDiskFreeSpaceEx %s: %w", path, err)
	}
	return int64(total), nil
}

func diskFreeBytes(path string) (freeBytes, totalBytes, totalFree uint64, err error) {
	ptr, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return 0, 0, 0, err
	}
	err = windows.GetDiskFreeSpaceEx(ptr, &freeBytes, &totalBytes, &totalFree)
	return freeBytes, totalBytes, totalFree, err
}
