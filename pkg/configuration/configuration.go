// Package configuration provides the YAML configuration file model for
// filepoll.
package configuration

import (
	"time"

	"github.com/pkg/errors"

	"github.com/mutagen-io/filepoll/pkg/encoding"
	"github.com/mutagen-io/filepoll/pkg/logging"
	"github.com/mutagen-io/filepoll/pkg/matching"
	"github.com/mutagen-io/filepoll/pkg/provider"
)

// Configuration is the YAML configuration object type.
type Configuration struct {
	// Directories are the roots to watch.
	Directories []string `yaml:"directories"`
	// Filters are the case-insensitive glob patterns that changed paths must
	// match in order to be reported. If omitted, every path is reported.
	Filters []string `yaml:"filters"`
	// Interval is the polling interval in milliseconds. If zero, the provider
	// default is used.
	Interval uint32 `yaml:"interval"`
	// IncludeSubpath indicates whether or not subdirectories are watched.
	IncludeSubpath bool `yaml:"includeSubpath"`
	// IncludeExistingFiles indicates whether or not files present at startup
	// are reported as created.
	IncludeExistingFiles bool `yaml:"includeExistingFiles"`
	// Capacity is the queue capacity for each pipeline. If zero, the queue
	// default is used.
	Capacity uint32 `yaml:"capacity"`
	// Pattern is the glob applied to file base names during enumeration.
	Pattern string `yaml:"pattern"`
	// LogLevel is the log level name.
	LogLevel string `yaml:"logLevel"`
}

// LoadConfiguration attempts to load a YAML-based configuration file from the
// specified path.
func LoadConfiguration(path string) (*Configuration, error) {
	// Create the target configuration object.
	result := &Configuration{}

	// Attempt to load. We pass-through os.IsNotExist errors.
	if err := encoding.LoadAndUnmarshalYAML(path, result); err != nil {
		return nil, err
	}

	// Success.
	return result, nil
}

// EnsureValid ensures that Configuration's invariants are respected.
func (c *Configuration) EnsureValid() error {
	// A nil configuration is not considered valid.
	if c == nil {
		return errors.New("nil configuration")
	}

	// Verify directories.
	if len(c.Directories) == 0 {
		return errors.New("no directories specified")
	}
	for _, directory := range c.Directories {
		if directory == "" {
			return errors.New("empty directory specified")
		}
	}

	// Verify patterns.
	for _, filter := range c.Filters {
		if err := matching.ValidateFilter(filter); err != nil {
			return errors.Wrapf(err, "invalid filter %q", filter)
		}
	}
	if c.Pattern != "" {
		if err := matching.ValidatePattern(c.Pattern); err != nil {
			return errors.Wrapf(err, "invalid enumeration pattern %q", c.Pattern)
		}
	}

	// Verify the log level.
	if c.LogLevel != "" {
		if _, ok := logging.NameToLevel(c.LogLevel); !ok {
			return errors.Errorf("invalid log level: %s", c.LogLevel)
		}
	}

	// Success.
	return nil
}

// Level returns the configured log level, or the specified default if none is
// set or the name is invalid.
func (c *Configuration) Level(fallback logging.Level) logging.Level {
	if c.LogLevel == "" {
		return fallback
	} else if level, ok := logging.NameToLevel(c.LogLevel); ok {
		return level
	}
	return fallback
}

// Provider converts the configuration to a provider configuration.
func (c *Configuration) Provider() provider.Configuration {
	return provider.Configuration{
		Directories:          c.Directories,
		Filters:              c.Filters,
		Interval:             time.Duration(c.Interval) * time.Millisecond,
		IncludeSubpath:       c.IncludeSubpath,
		IncludeExistingFiles: c.IncludeExistingFiles,
		Pattern:              c.Pattern,
		Capacity:             int(c.Capacity),
	}
}
