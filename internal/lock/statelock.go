// Package lock guards a mortar state database against concurrent
// writers with a PID file next to the database, held via flock(2).
package lock

import (
	"fmt"
	"os"
	"path/filepath"
	"syscall"
)

// StateLock is an exclusive lock on a state database. Keep the lock
// alive by keeping the file descriptor open.
type StateLock struct {
	path string
	f    *os.File
}

// Acquire takes an exclusive non-blocking lock for the state database
// at dbPath and writes the current PID into <dbPath>.lock. Fails if
// another process holds it.
func Acquire(dbPath string) (*StateLock, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("state path is empty")
	}
	lockPath := dbPath + ".lock"
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return nil, fmt.Errorf("create lock directory: %w", err)
	}

	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open lock file: %w", err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("acquire lock (another process may hold %s): %w", lockPath, err)
	}

	if err := writePID(f); err != nil {
		_ = syscall.Flock(int(f.Fd()), syscall.LOCK_UN)
		_ = f.Close()
		return nil, err
	}

	return &StateLock{path: lockPath, f: f}, nil
}

func writePID(f *os.File) error {
	if err := f.Truncate(0); err != nil {
		return fmt.Errorf("truncate lock file: %w", err)
	}
	if _, err := f.Seek(0, 0); err != nil {
		return fmt.Errorf("seek lock file: %w", err)
	}
	if _, err := fmt.Fprintf(f, "%d\n", os.Getpid()); err != nil {
		return fmt.Errorf("write pid: %w", err)
	}
	if err := f.Sync(); err != nil {
		return fmt.Errorf("sync lock file: %w", err)
	}
	return nil
}

// Path returns the lock file path.
func (l *StateLock) Path() string { return l.path }

// Release drops the lock. Safe to call more than once.
func (l *StateLock) Release() error {
	if l == nil || l.f == nil {
		return nil
	}
	_ = syscall.Flock(int(l.f.Fd()), syscall.LOCK_UN)
	err := l.f.Close()
	l.f = nil
	return err
}
