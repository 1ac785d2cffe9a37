//go:build linux || darwin

package journal

import (
	"fmt"

	"golang.org/x/sys/unix"
)

func getFreeSpace(path string) (int64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, fmt.Errorf("journal: statfs %s: %w", path, err)
	}
	return int64(st.Bavail) * int64(st.Bsize), nil
}

func getTotalSpace(path string) (int64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, fmt.Errorf("journal: statfs %s: %w", path, err)
	}
	return int64(st.Blocks) * int64(st.Bsize), nil
}
