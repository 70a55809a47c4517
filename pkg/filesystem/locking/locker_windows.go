package locking

import (
	"os"

	"golang.org/x/sys/windows"
)

// openForLocking opens a file for reading without granting any sharing
// permissions, so that other readers and writers are denied while it's open.
func openForLocking(path string) (*os.File, error) {
	path16, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return nil, err
	}
	handle, err := windows.CreateFile(
		path16,
		windows.GENERIC_READ,
		0,
		nil,
		windows.OPEN_EXISTING,
		windows.FILE_ATTRIBUTE_NORMAL,
		0,
	)
	if err != nil {
		return nil, &os.PathError{Op: "open", Path: path, Err: err}
	}
	return os.NewFile(uintptr(handle), path), nil
}

// isContention returns whether or not a lock error indicates that the lock is
// held elsewhere.
func isContention(err error) bool {
	return err == windows.ERROR_LOCK_VIOLATION || err == windows.ERROR_SHARING_VIOLATION
}

// Lock attempts to acquire an exclusive byte-range lock on the file. The
// share-less open already excludes other handles, but the lock also excludes
// cooperating processes that opened the file before us.
func (l *Locker) Lock(block bool) error {
	var overlapped windows.Overlapped
	flags := uint32(windows.LOCKFILE_EXCLUSIVE_LOCK)
	if !block {
		flags |= windows.LOCKFILE_FAIL_IMMEDIATELY
	}
	if err := windows.LockFileEx(windows.Handle(l.file.Fd()), flags, 0, 1, 0, &overlapped); err != nil {
		return err
	}
	l.held = true
	return nil
}

// Unlock releases the file lock.
func (l *Locker) Unlock() error {
	var overlapped windows.Overlapped
	if err := windows.UnlockFileEx(windows.Handle(l.file.Fd()), 0, 1, 0, &overlapped); err != nil {
		return err
	}
	l.held = false
	return nil
}
