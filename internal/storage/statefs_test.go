package storage

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func TestCheckStatePathAllowsLocalFS(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "mortar.db")
	err := checkStatePathWith(dbPath, func(path string) (string, error) {
		return "ext4", nil
	})
	if err != nil {
		t.Fatalf("expected local filesystem to pass, got: %v", err)
	}
}

func TestCheckStatePathRejectsNetworkFS(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "mortar.db")
	err := checkStatePathWith(dbPath, func(path string) (string, error) {
		return "nfs", nil
	})
	if err == nil {
		t.Fatal("expected network filesystem error")
	}
	if !strings.Contains(err.Error(), "nfs") || !strings.Contains(err.Error(), "state.path") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCheckStatePathSkipsOnDetectionFailure(t *testing.T) {
	t.Parallel()

	dbPath := filepath.Join(t.TempDir(), "mortar.db")
	err := checkStatePathWith(dbPath, func(path string) (string, error) {
		return "", errors.New("statfs unsupported")
	})
	if err != nil {
		t.Fatalf("expected detection failure to be non-fatal, got: %v", err)
	}
}

func TestCheckStatePathUsesNearestExistingPath(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	dbPath := filepath.Join(root, "nested", "dir", "mortar.db")

	var inspected string
	err := checkStatePathWith(dbPath, func(path string) (string, error) {
		inspected = path
		return "ext4", nil
	})
	if err != nil {
		t.Fatalf("expected local filesystem to pass, got: %v", err)
	}
	if inspected != root {
		t.Fatalf("expected detector to inspect %q, got %q", root, inspected)
	}
}

func TestIsNetworkFilesystem(t *testing.T) {
	t.Parallel()

	cases := []struct {
		fs   string
		want bool
	}{
		{fs: "nfs", want: true},
		{fs: "SMBFS", want: true},
		{fs: "ext4", want: false},
		{fs: "0x6969", want: false},
	}

	for _, tc := range cases {
		if got := isNetworkFilesystem(tc.fs); got != tc.want {
			t.Fatalf("isNetworkFilesystem(%q)=%v, want %v", tc.fs, got, tc.want)
		}
	}
}
