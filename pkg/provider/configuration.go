package provider

import (
	"time"

	"github.com/pkg/errors"

	"github.com/mutagen-io/filepoll/pkg/matching"
)

const (
	// DefaultInterval is the default polling interval.
	DefaultInterval = 60000 * time.Millisecond
)

// Configuration encodes provider settings.
type Configuration struct {
	// Directories are the roots to watch.
	Directories []string
	// Filters are the case-insensitive glob patterns that detected paths must
	// match in order to be reported. They are shared by all change kinds. A
	// nil list matches every path.
	Filters []string
	// Interval is the polling interval. If zero, DefaultInterval is used.
	Interval time.Duration
	// IncludeSubpath indicates whether or not subdirectories are watched.
	IncludeSubpath bool
	// IncludeExistingFiles indicates whether or not files present when the
	// provider starts are reported as created on the first poll.
	IncludeExistingFiles bool
	// Pattern is the glob applied to file base names during enumeration. If
	// empty, all files are enumerated.
	Pattern string
	// Capacity is the capacity of each pipeline's queue. If zero, the queue
	// default is used.
	Capacity int
	// Wait is the bounded wait for queue operations. If zero, the queue
	// default is used.
	Wait time.Duration
}

// EnsureValid ensures that the configuration is valid.
func (c *Configuration) EnsureValid() error {
	// Verify that at least one directory has been specified and that none are
	// empty.
	if len(c.Directories) == 0 {
		return errors.New("no directories specified")
	}
	for _, directory := range c.Directories {
		if directory == "" {
			return errors.New("empty directory specified")
		}
	}

	// Verify filters and the enumeration pattern.
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

	// Verify numeric settings.
	if c.Interval < 0 {
		return errors.New("negative polling interval")
	} else if c.Capacity < 0 {
		return errors.New("negative queue capacity")
	} else if c.Wait < 0 {
		return errors.New("negative queue wait")
	}

	// Success.
	return nil
}

// interval returns the effective polling interval.
func (c *Configuration) interval() time.Duration {
	if c.Interval == 0 {
		return DefaultInterval
	}
	return c.Interval
}
