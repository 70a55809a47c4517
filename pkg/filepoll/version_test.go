package filepoll

import (
	"strings"
	"testing"
)

// TestVersionNonEmpty tests that the computed version string is non-empty and
// starts with the major version component.
func TestVersionNonEmpty(t *testing.T) {
	if Version == "" {
		t.Fatal("version string is empty")
	}
	if !strings.HasPrefix(Version, "0.") {
		t.Error("version string has unexpected major component:", Version)
	}
	if VersionTag == "" && strings.Contains(Version, "-") {
		t.Error("version string contains tag separator without tag:", Version)
	}
}
