package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// SQLite locking is unreliable on network filesystems; refuse to put
// the state database on one.
var networkFilesystems = map[string]struct{}{
	"afpfs":  {},
	"cifs":   {},
	"nfs":    {},
	"smbfs":  {},
	"smb2":   {},
	"webdav": {},
}

func checkStatePath(path string) error {
	return checkStatePathWith(path, fsTypeOf)
}

// checkStatePathWith is a best-effort guard: it only fails when a
// network filesystem is positively detected. Platforms without
// detection support pass through.
func checkStatePathWith(path string, detect func(string) (string, error)) error {
	inspectPath, err := nearestExistingPath(path)
	if err != nil {
		return fmt.Errorf("resolve state path %q: %w", path, err)
	}

	fsType, err := detect(inspectPath)
	if err != nil {
		return nil
	}

	if isNetworkFilesystem(fsType) {
		return fmt.Errorf(
			"state path %q is on network filesystem %q; SQLite needs a local filesystem for reliable locking, point state.path at a local disk",
			path, fsType)
	}
	return nil
}

// nearestExistingPath walks up from path until it finds a component
// that exists, so a not-yet-created database file can still be checked
// against the filesystem it will land on.
func nearestExistingPath(path string) (string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("absolute path: %w", err)
	}

	candidate := absPath
	for {
		_, err := os.Stat(candidate)
		if err == nil {
			return candidate, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return "", fmt.Errorf("stat %q: %w", candidate, err)
		}

		parent := filepath.Dir(candidate)
		if parent == candidate {
			return "", fmt.Errorf("no existing parent for %q", absPath)
		}
		candidate = parent
	}
}

func isNetworkFilesystem(fsType string) bool {
	normalized := strings.TrimSpace(strings.ToLower(fsType))
	_, found := networkFilesystems[normalized]
	return found
}
