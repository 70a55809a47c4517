//go:build !windows && !plan9
// +build !windows,!plan9

package locking

import (
	"os"

	"golang.org/x/sys/unix"
)

// openForLocking opens a file for reading. Exclusion is provided by Lock.
func openForLocking(path string) (*os.File, error) {
	return os.Open(path)
}

// isContention returns whether or not a lock error indicates that the lock is
// held elsewhere.
func isContention(err error) bool {
	return err == unix.EWOULDBLOCK || err == unix.EAGAIN
}

// Lock attempts to acquire an exclusive lock on the file. BSD-style locks are
// used (rather than fcntl locks) since they can be exclusive on descriptors
// opened read-only and are scoped to the open file description.
func (l *Locker) Lock(block bool) error {
	operation := unix.LOCK_EX
	if !block {
		operation |= unix.LOCK_NB
	}
	if err := unix.Flock(int(l.file.Fd()), operation); err != nil {
		return err
	}
	l.held = true
	return nil
}

// Unlock releases the file lock.
func (l *Locker) Unlock() error {
	if err := unix.Flock(int(l.file.Fd()), unix.LOCK_UN); err != nil {
		return err
	}
	l.held = false
	return nil
}
