package snapshot

import (
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/mutagen-io/filepoll/pkg/matching"
)

// ErrNotDirectory indicates that a snapshot root exists but isn't a directory.
var ErrNotDirectory = errors.New("root is not a directory")

const (
	// DepthTopLevel restricts enumeration to the root directory's immediate
	// contents.
	DepthTopLevel = 0
	// DepthUnlimited enables enumeration of all subdirectories.
	DepthUnlimited = -1

	// defaultInitialContentMapCapacity is the default content map capacity if
	// the existing content map is empty.
	defaultInitialContentMapCapacity = 64
)

// Predicate is an inclusion callback applied to each enumerated path. It
// returns true if the path should be included in a snapshot generation.
type Predicate func(path string) bool

// Options configures directory enumeration.
type Options struct {
	// Pattern is the glob applied to file base names during enumeration. If
	// empty, matching.MatchAll is used.
	Pattern string
	// Depth is the maximum number of subdirectory levels to descend into. A
	// value of DepthTopLevel lists only the root's files and a negative value
	// means unlimited.
	Depth int
}

// contents is a single snapshot generation, keyed by canonical path.
type contents map[string]*FileSnapshot

// DirectorySnapshot holds two generations of file snapshots for a single
// directory and computes the differences between them. It is not safe for
// concurrent usage and is intended to be owned by a single polling Goroutine.
type DirectorySnapshot struct {
	// root is the canonical absolute path of the directory.
	root string
	// options are the enumeration options.
	options Options
	// previous is the generation before the most recent refresh.
	previous contents
	// current is the generation captured by the most recent refresh.
	current contents
}

// New creates a new directory snapshot for the specified root. No enumeration
// is performed until the first call to Refresh or Seed.
func New(root string, options Options) (*DirectorySnapshot, error) {
	// Canonicalize the root.
	absolute, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.Wrap(err, "unable to compute absolute root path")
	}

	// Apply defaults.
	if options.Pattern == "" {
		options.Pattern = matching.MatchAll
	}

	// Done.
	return &DirectorySnapshot{
		root:     absolute,
		options:  options,
		previous: make(contents),
		current:  make(contents),
	}, nil
}

// Root returns the canonical absolute path of the snapshot root.
func (d *DirectorySnapshot) Root() string {
	return d.root
}

// Seed establishes the current generation without exposing any differences,
// so that files already present aren't reported as created by the next
// refresh.
func (d *DirectorySnapshot) Seed(predicate Predicate) error {
	if err := d.Refresh(predicate); err != nil {
		return err
	}
	d.previous = d.current
	return nil
}

// Refresh rotates the current generation into the previous generation and
// captures a new current generation from a fresh directory listing. If
// predicate is nil, all enumerated files are included. Enumeration failures
// (e.g. a missing root) are returned to the caller, in which case both
// generations are left equal to the last successful listing, so that no
// differences are reported until the root can be listed again.
func (d *DirectorySnapshot) Refresh(predicate Predicate) error {
	// Rotate generations.
	d.previous = d.current

	// Compute a capacity hint for the new generation.
	capacity := len(d.previous)
	if capacity == 0 {
		capacity = defaultInitialContentMapCapacity
	}

	// Enumerate the directory.
	generation, err := d.enumerate(predicate, capacity)
	if err != nil {
		return err
	}

	// Store the new generation.
	d.current = generation
	return nil
}

// enumerate performs a listing of the root, subject to the enumeration
// options and predicate.
func (d *DirectorySnapshot) enumerate(predicate Predicate, capacity int) (contents, error) {
	// Verify that the root exists and is a directory. We do this separately
	// from the walk so that the error is specific.
	if info, err := os.Stat(d.root); err != nil {
		return nil, errors.Wrap(err, "unable to access root")
	} else if !info.IsDir() {
		return nil, ErrNotDirectory
	}

	// Create the result map.
	result := make(contents, capacity)

	// Create a walk visitor.
	visitor := func(path string, entry fs.DirEntry, err error) error {
		// Handle walk error cases.
		if err != nil {
			// Root failures are fatal to the refresh.
			if path == d.root {
				return err
			}

			// If this is a non-root non-existence error, then something was
			// seen during the directory listing and then disappeared. This is
			// concurrent deletion, so just ignore the entry.
			if os.IsNotExist(err) {
				return nil
			}

			// Other errors are more problematic.
			return err
		}

		// Handle directories, enforcing the depth limit.
		if entry.IsDir() {
			if path == d.root {
				return nil
			} else if d.options.Depth >= 0 && d.depth(path) > d.options.Depth {
				return filepath.SkipDir
			}
			return nil
		}

		// Apply the enumeration pattern and inclusion predicate.
		if !matching.MatchName(d.options.Pattern, entry.Name()) {
			return nil
		} else if predicate != nil && !predicate(path) {
			return nil
		}

		// Observe the file. If it vanished or was replaced by a directory
		// since the listing, then the snapshot is invalid and discarded.
		info, err := os.Stat(path)
		if err != nil || info.IsDir() {
			return nil
		}
		snapshot := newFileSnapshotFromInfo(path, info)
		result[snapshot.Name] = snapshot

		// Success.
		return nil
	}

	// Perform the walk.
	if err := filepath.WalkDir(d.root, visitor); err != nil {
		return nil, errors.Wrap(err, "unable to enumerate directory")
	}

	// Success.
	return result, nil
}

// depth computes the number of directory levels between the root and the
// specified directory path, with the root's immediate subdirectories being at
// depth 1.
func (d *DirectorySnapshot) depth(path string) int {
	relative, err := filepath.Rel(d.root, path)
	if err != nil {
		return 0
	}
	return strings.Count(relative, string(filepath.Separator)) + 1
}

// difference returns the entries of first whose keys are absent from second
// and which match the filters, sorted by path.
func difference(first, second contents, filters []string) []*FileSnapshot {
	var result []*FileSnapshot
	for path, snapshot := range first {
		if _, ok := second[path]; ok {
			continue
		} else if !matching.MatchAny(filters, path) {
			continue
		}
		result = append(result, snapshot)
	}
	sortByName(result)
	return result
}

// sortByName sorts snapshots by path.
func sortByName(snapshots []*FileSnapshot) {
	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].Name < snapshots[j].Name
	})
}

// Created returns the snapshots of files present in the current generation but
// absent from the previous generation, restricted to those matching filters
// and sorted by path. A nil filter list matches every path.
func (d *DirectorySnapshot) Created(filters []string) []*FileSnapshot {
	return difference(d.current, d.previous, filters)
}

// Deleted returns the snapshots (from the previous generation) of files absent
// from the current generation, restricted to those matching filters and sorted
// by path.
func (d *DirectorySnapshot) Deleted(filters []string) []*FileSnapshot {
	return difference(d.previous, d.current, filters)
}

// Changed returns the current snapshots of files present in both generations
// whose modification times differ, restricted to those matching filters and
// sorted by path.
func (d *DirectorySnapshot) Changed(filters []string) []*FileSnapshot {
	var result []*FileSnapshot
	for path, snapshot := range d.current {
		if previous, ok := d.previous[path]; !ok || previous.Equal(snapshot) {
			continue
		} else if !matching.MatchAny(filters, path) {
			continue
		}
		result = append(result, snapshot)
	}
	sortByName(result)
	return result
}
