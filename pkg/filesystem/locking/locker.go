package locking

import (
	"bytes"
	"io"
	"os"

	"github.com/pkg/errors"
)

// ErrLocked indicates that a non-blocking lock acquisition failed because the
// file is already locked elsewhere.
var ErrLocked = errors.New("file locked by another reader or writer")

// readBufferSize is the chunk size used when reading locked files.
const readBufferSize = 4096

// Locker provides exclusive access to an existing file for the purpose of
// reading a consistent image of its contents. On Windows the file is opened
// without any sharing permissions, on POSIX systems an exclusive advisory lock
// is taken on the file.
type Locker struct {
	// file is the underlying file object that's locked.
	file *os.File
	// held indicates whether or not the lock is currently held.
	held bool
}

// NewLocker opens the existing file at the specified path for locked reading.
// The lock is returned in an unlocked state. Unlike a lock file, the target is
// never created.
func NewLocker(path string) (*Locker, error) {
	if file, err := openForLocking(path); err != nil {
		return nil, errors.Wrap(err, "unable to open file for locking")
	} else if info, err := file.Stat(); err != nil {
		file.Close()
		return nil, errors.Wrap(err, "unable to query file metadata")
	} else if info.IsDir() {
		file.Close()
		return nil, errors.New("path is a directory")
	} else {
		return &Locker{file: file}, nil
	}
}

// Held returns whether or not the lock is currently held.
func (l *Locker) Held() bool {
	return l.held
}

// Read implements io.Reader.Read on the underlying file, but errors if the lock
// is not currently held.
func (l *Locker) Read(buffer []byte) (int, error) {
	// Verify that the lock is held.
	if !l.held {
		return 0, errors.New("lock not held")
	}

	// Perform the read.
	return l.file.Read(buffer)
}

// Close closes the file underlying the locker. This will release any lock held
// on the file.
func (l *Locker) Close() error {
	l.held = false
	return l.file.Close()
}

// ReadExclusive reads the full contents of the file at the specified path
// while holding an exclusive lock on it, so that concurrent cooperating
// readers and writers are denied access for the duration of the read. It does
// not wait for the lock: if the file is already locked, ErrLocked is returned.
func ReadExclusive(path string) ([]byte, error) {
	// Open the file.
	locker, err := NewLocker(path)
	if err != nil {
		return nil, err
	}
	defer locker.Close()

	// Acquire the lock without blocking.
	if err := locker.Lock(false); err != nil {
		if isContention(err) {
			return nil, ErrLocked
		}
		return nil, errors.Wrap(err, "unable to acquire lock")
	}
	defer locker.Unlock()

	// Read the contents in fixed-size chunks.
	contents := &bytes.Buffer{}
	if _, err := io.CopyBuffer(contents, locker, make([]byte, readBufferSize)); err != nil {
		return nil, errors.Wrap(err, "unable to read file contents")
	}

	// Success.
	return contents.Bytes(), nil
}
