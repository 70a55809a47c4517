package locking

import (
	"os"
)

// openForLocking opens a file for reading. Plan 9 has no advisory locking, so
// reads are not protected against concurrent access.
func openForLocking(path string) (*os.File, error) {
	return os.Open(path)
}

// isContention always returns false since locking can't fail on Plan 9.
func isContention(_ error) bool {
	return false
}

// Lock marks the lock as held.
func (l *Locker) Lock(_ bool) error {
	l.held = true
	return nil
}

// Unlock marks the lock as released.
func (l *Locker) Unlock() error {
	l.held = false
	return nil
}
