//go:build !darwin && !linux

package storage

import "fmt"

func fsTypeOf(path string) (string, error) {
	return "", fmt.Errorf("filesystem detection is unsupported on this platform")
}
