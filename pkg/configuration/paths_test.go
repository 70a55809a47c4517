package configuration

import (
	"path/filepath"
	"testing"
)

// TestConfigurationPath tests that ConfigurationPath succeeds and returns a
// path naming the configuration file.
func TestConfigurationPath(t *testing.T) {
	if path, err := ConfigurationPath(); err != nil {
		t.Fatal("unable to compute configuration path:", err)
	} else if filepath.Base(path) != ConfigurationName {
		t.Error("configuration path has unexpected name:", path)
	}
}
