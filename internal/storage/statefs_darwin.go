//go:build darwin

package storage

import (
	"fmt"
	"syscall"
)

func fsTypeOf(path string) (string, error) {
	var stat syscall.Statfs_t
	if err := syscall.Statfs(path, &stat); err != nil {
		return "", fmt.Errorf("statfs %q: %w", path, err)
	}

	name := stat.Fstypename[:]
	out := make([]byte, 0, len(name))
	for _, b := range name {
		if b == 0 {
			break
		}
		out = append(out, byte(b))
	}
	return string(out), nil
}
