package snapshot

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// writeFile writes a file with the specified contents and modification time.
func writeFile(t *testing.T, path, contents string, modified time.Time) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		t.Fatal("unable to create parent directory:", err)
	} else if err = os.WriteFile(path, []byte(contents), 0600); err != nil {
		t.Fatal("unable to write file:", err)
	} else if err = os.Chtimes(path, modified, modified); err != nil {
		t.Fatal("unable to set modification time:", err)
	}
}

// names extracts the paths from a list of snapshots.
func names(snapshots []*FileSnapshot) []string {
	result := make([]string, len(snapshots))
	for i, snapshot := range snapshots {
		result[i] = snapshot.Name
	}
	return result
}

// expectNames verifies that a diff result contains exactly the expected paths
// in order.
func expectNames(t *testing.T, description string, snapshots []*FileSnapshot, expected ...string) {
	t.Helper()
	actual := names(snapshots)
	if len(actual) != len(expected) {
		t.Errorf("%s: got %v, expected %v", description, actual, expected)
		return
	}
	for i := range actual {
		if actual[i] != expected[i] {
			t.Errorf("%s: got %v, expected %v", description, actual, expected)
			return
		}
	}
}

// TestFileSnapshotMissing tests that observing a missing file yields an invalid
// snapshot.
func TestFileSnapshotMissing(t *testing.T) {
	if NewFileSnapshot(filepath.Join(t.TempDir(), "missing")).Valid() {
		t.Error("snapshot of missing file is valid")
	}
}

// TestFileSnapshotEqual tests structural equality of file snapshots.
func TestFileSnapshotEqual(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a.txt")
	base := time.Unix(1600000000, 0)
	writeFile(t, path, "hi", base)
	first := NewFileSnapshot(path)
	if !first.Valid() {
		t.Fatal("snapshot of existing file is invalid")
	} else if first.LastModified != base.UnixNano()/int64(1e6) {
		t.Error("modification time mismatch:", first.LastModified)
	}
	second := NewFileSnapshot(path)
	if !first.Equal(second) {
		t.Error("snapshots of unchanged file are unequal")
	}
	writeFile(t, path, "hi", base.Add(time.Second))
	if first.Equal(NewFileSnapshot(path)) {
		t.Error("snapshots with different modification times are equal")
	}
}

// TestUnchangedDirectory tests that an unchanged directory yields no
// differences across two refreshes.
func TestUnchangedDirectory(t *testing.T) {
	root := t.TempDir()
	base := time.Unix(1600000000, 0)
	writeFile(t, filepath.Join(root, "a.txt"), "a", base)
	writeFile(t, filepath.Join(root, "b.txt"), "b", base)

	snapshot, err := New(root, Options{})
	if err != nil {
		t.Fatal("unable to create snapshot:", err)
	} else if err = snapshot.Seed(nil); err != nil {
		t.Fatal("unable to seed snapshot:", err)
	} else if err = snapshot.Refresh(nil); err != nil {
		t.Fatal("unable to refresh snapshot:", err)
	}

	expectNames(t, "created", snapshot.Created(nil))
	expectNames(t, "changed", snapshot.Changed(nil))
	expectNames(t, "deleted", snapshot.Deleted(nil))
}

// TestInitialRefreshReportsCreated tests that the first refresh of an unseeded
// snapshot reports every existing file as created, sorted by path.
func TestInitialRefreshReportsCreated(t *testing.T) {
	root := t.TempDir()
	base := time.Unix(1600000000, 0)
	writeFile(t, filepath.Join(root, "b.txt"), "b", base)
	writeFile(t, filepath.Join(root, "a.txt"), "a", base)

	snapshot, err := New(root, Options{})
	if err != nil {
		t.Fatal("unable to create snapshot:", err)
	} else if err = snapshot.Refresh(nil); err != nil {
		t.Fatal("unable to refresh snapshot:", err)
	}

	expectNames(t, "created", snapshot.Created(nil),
		filepath.Join(root, "a.txt"), filepath.Join(root, "b.txt"),
	)
	expectNames(t, "changed", snapshot.Changed(nil))
	expectNames(t, "deleted", snapshot.Deleted(nil))
}

// TestDiffLifecycle tests that creation, modification, and deletion are each
// reported exactly once.
func TestDiffLifecycle(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "a.txt")
	base := time.Unix(1600000000, 0)

	snapshot, err := New(root, Options{})
	if err != nil {
		t.Fatal("unable to create snapshot:", err)
	} else if err = snapshot.Seed(nil); err != nil {
		t.Fatal("unable to seed snapshot:", err)
	}

	// Creation.
	writeFile(t, path, "hi", base)
	if err := snapshot.Refresh(nil); err != nil {
		t.Fatal("unable to refresh snapshot:", err)
	}
	expectNames(t, "created after creation", snapshot.Created(nil), path)
	expectNames(t, "changed after creation", snapshot.Changed(nil))

	// No further change.
	if err := snapshot.Refresh(nil); err != nil {
		t.Fatal("unable to refresh snapshot:", err)
	}
	expectNames(t, "created after idle", snapshot.Created(nil))

	// Modification.
	writeFile(t, path, "bye", base.Add(2*time.Second))
	if err := snapshot.Refresh(nil); err != nil {
		t.Fatal("unable to refresh snapshot:", err)
	}
	expectNames(t, "changed after modification", snapshot.Changed(nil), path)
	expectNames(t, "created after modification", snapshot.Created(nil))
	if err := snapshot.Refresh(nil); err != nil {
		t.Fatal("unable to refresh snapshot:", err)
	}
	expectNames(t, "changed after idle", snapshot.Changed(nil))

	// Deletion.
	if err := os.Remove(path); err != nil {
		t.Fatal("unable to remove file:", err)
	}
	if err := snapshot.Refresh(nil); err != nil {
		t.Fatal("unable to refresh snapshot:", err)
	}
	expectNames(t, "deleted after removal", snapshot.Deleted(nil), path)
	expectNames(t, "changed after removal", snapshot.Changed(nil))
}

// TestContentChangeWithoutTimestampChange tests that a write that preserves the
// modification time isn't reported.
func TestContentChangeWithoutTimestampChange(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "a.txt")
	base := time.Unix(1600000000, 0)
	writeFile(t, path, "hi", base)

	snapshot, err := New(root, Options{})
	if err != nil {
		t.Fatal("unable to create snapshot:", err)
	} else if err = snapshot.Seed(nil); err != nil {
		t.Fatal("unable to seed snapshot:", err)
	}
	writeFile(t, path, "ho", base)
	if err := snapshot.Refresh(nil); err != nil {
		t.Fatal("unable to refresh snapshot:", err)
	}
	expectNames(t, "changed", snapshot.Changed(nil))
}

// TestRenameIsDeleteAndCreate tests that a rename is reported as a deletion and
// a creation.
func TestRenameIsDeleteAndCreate(t *testing.T) {
	root := t.TempDir()
	source := filepath.Join(root, "a.txt")
	target := filepath.Join(root, "b.txt")
	writeFile(t, source, "hi", time.Unix(1600000000, 0))

	snapshot, err := New(root, Options{})
	if err != nil {
		t.Fatal("unable to create snapshot:", err)
	} else if err = snapshot.Seed(nil); err != nil {
		t.Fatal("unable to seed snapshot:", err)
	}
	if err := os.Rename(source, target); err != nil {
		t.Fatal("unable to rename file:", err)
	}
	if err := snapshot.Refresh(nil); err != nil {
		t.Fatal("unable to refresh snapshot:", err)
	}
	expectNames(t, "created", snapshot.Created(nil), target)
	expectNames(t, "deleted", snapshot.Deleted(nil), source)
	expectNames(t, "changed", snapshot.Changed(nil))
}

// TestFilters tests that diff results are restricted by case-insensitive
// filters.
func TestFilters(t *testing.T) {
	root := t.TempDir()
	base := time.Unix(1600000000, 0)

	snapshot, err := New(root, Options{})
	if err != nil {
		t.Fatal("unable to create snapshot:", err)
	} else if err = snapshot.Seed(nil); err != nil {
		t.Fatal("unable to seed snapshot:", err)
	}
	writeFile(t, filepath.Join(root, "a.TXT"), "a", base)
	writeFile(t, filepath.Join(root, "b.log"), "b", base)
	if err := snapshot.Refresh(nil); err != nil {
		t.Fatal("unable to refresh snapshot:", err)
	}
	expectNames(t, "filtered", snapshot.Created([]string{"*.txt"}), filepath.Join(root, "a.TXT"))
	expectNames(t, "empty filters", snapshot.Created([]string{}))
	expectNames(t, "nil filters", snapshot.Created(nil),
		filepath.Join(root, "a.TXT"), filepath.Join(root, "b.log"),
	)
}

// TestDepthAndPattern tests enumeration depth limits and enumeration patterns.
func TestDepthAndPattern(t *testing.T) {
	root := t.TempDir()
	base := time.Unix(1600000000, 0)
	top := filepath.Join(root, "top.txt")
	nested := filepath.Join(root, "one", "nested.txt")
	deep := filepath.Join(root, "one", "two", "deep.txt")
	other := filepath.Join(root, "one", "other.log")
	for _, path := range []string{top, nested, deep, other} {
		writeFile(t, path, "x", base)
	}

	testCases := []struct {
		options  Options
		expected []string
	}{
		{Options{Depth: DepthTopLevel}, []string{top}},
		{Options{Depth: 1}, []string{nested, other, top}},
		{Options{Depth: DepthUnlimited}, []string{nested, other, deep, top}},
		{Options{Depth: DepthUnlimited, Pattern: "*.txt"}, []string{nested, deep, top}},
	}
	for _, testCase := range testCases {
		snapshot, err := New(root, testCase.options)
		if err != nil {
			t.Fatal("unable to create snapshot:", err)
		} else if err = snapshot.Refresh(nil); err != nil {
			t.Fatal("unable to refresh snapshot:", err)
		}
		expectNames(t, "enumeration", snapshot.Created(nil), testCase.expected...)
	}
}

// TestPredicate tests that the inclusion predicate excludes paths.
func TestPredicate(t *testing.T) {
	root := t.TempDir()
	base := time.Unix(1600000000, 0)
	keep := filepath.Join(root, "keep.txt")
	writeFile(t, keep, "x", base)
	writeFile(t, filepath.Join(root, "skip.txt"), "x", base)

	snapshot, err := New(root, Options{})
	if err != nil {
		t.Fatal("unable to create snapshot:", err)
	}
	predicate := func(path string) bool {
		return filepath.Base(path) != "skip.txt"
	}
	if err := snapshot.Refresh(predicate); err != nil {
		t.Fatal("unable to refresh snapshot:", err)
	}
	expectNames(t, "created", snapshot.Created(nil), keep)
}

// TestMissingRoot tests that enumeration failures propagate and that the last
// successful generation is retained.
func TestMissingRoot(t *testing.T) {
	parent := t.TempDir()
	root := filepath.Join(parent, "watch")
	path := filepath.Join(root, "a.txt")
	writeFile(t, path, "x", time.Unix(1600000000, 0))

	snapshot, err := New(root, Options{})
	if err != nil {
		t.Fatal("unable to create snapshot:", err)
	} else if err = snapshot.Seed(nil); err != nil {
		t.Fatal("unable to seed snapshot:", err)
	}

	// Remove the root and verify that refreshing fails without reporting
	// differences.
	if err := os.RemoveAll(root); err != nil {
		t.Fatal("unable to remove root:", err)
	}
	if snapshot.Refresh(nil) == nil {
		t.Fatal("refresh of missing root succeeded")
	}
	expectNames(t, "deleted during failure", snapshot.Deleted(nil))

	// Recreate the root without the file and verify that the deletion is
	// reported once the root can be listed again.
	if err := os.Mkdir(root, 0700); err != nil {
		t.Fatal("unable to recreate root:", err)
	}
	if err := snapshot.Refresh(nil); err != nil {
		t.Fatal("unable to refresh recreated root:", err)
	}
	expectNames(t, "deleted after recovery", snapshot.Deleted(nil), path)
}

// TestRootIsFile tests that a non-directory root is rejected.
func TestRootIsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "file")
	writeFile(t, path, "x", time.Unix(1600000000, 0))
	snapshot, err := New(path, Options{})
	if err != nil {
		t.Fatal("unable to create snapshot:", err)
	}
	if err := snapshot.Refresh(nil); err != ErrNotDirectory {
		t.Error("unexpected refresh result for file root:", err)
	}
}
