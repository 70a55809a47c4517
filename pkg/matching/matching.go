// Package matching provides the glob predicates used to select files for
// snapshotting and to filter change notifications.
package matching

import (
	"github.com/bmatcuk/doublestar/v4"
	"github.com/danwakefield/fnmatch"
	"github.com/pkg/errors"
)

// MatchAll is the filter pattern that matches every path.
const MatchAll = "*"

// ValidatePattern ensures that a pattern is syntactically valid.
func ValidatePattern(pattern string) error {
	// Ensure that the pattern is not empty.
	if pattern == "" {
		return errors.New("empty pattern")
	}

	// Perform a trial match against a simple non-empty value, otherwise bad
	// pattern errors won't be detected.
	if _, err := doublestar.Match(pattern, "a"); err != nil {
		return errors.Wrap(err, "unable to validate pattern")
	}

	// Success.
	return nil
}

// ValidateFilter ensures that a filter pattern is syntactically valid for
// Match. Filters support the '*' and '?' wildcards, bracket expressions (with
// '!' negation), and backslash escapes. Other characters, including braces,
// match literally.
func ValidateFilter(pattern string) error {
	// Ensure that the pattern is not empty.
	if pattern == "" {
		return errors.New("empty pattern")
	}

	// Verify escapes and bracket expressions.
	for i := 0; i < len(pattern); i++ {
		switch pattern[i] {
		case '\\':
			if i+1 == len(pattern) {
				return errors.New("trailing escape character")
			}
			i++
		case '[':
			// A closing bracket immediately after the opening bracket (or its
			// negation) is a literal member of the expression.
			j := i + 1
			if j < len(pattern) && pattern[j] == '!' {
				j++
			}
			if j < len(pattern) && pattern[j] == ']' {
				j++
			}
			for j < len(pattern) && pattern[j] != ']' {
				j++
			}
			if j == len(pattern) {
				return errors.New("unterminated bracket expression")
			}
			i = j
		}
	}

	// Success.
	return nil
}

// Match reports whether or not value matches pattern. Matching is
// case-insensitive and supports the '*' and '?' wildcards, both of which also
// match path separators, so that "*.txt" matches any text file at any depth.
func Match(pattern, value string) bool {
	return fnmatch.Match(pattern, value, fnmatch.FNM_CASEFOLD)
}

// MatchAny reports whether or not value matches any of the specified
// patterns. A nil pattern list matches every non-empty value and an empty
// value matches nothing.
func MatchAny(patterns []string, value string) bool {
	if value == "" {
		return false
	} else if patterns == nil {
		return true
	}
	for _, pattern := range patterns {
		if Match(pattern, value) {
			return true
		}
	}
	return false
}

// MatchName reports whether or not a base name matches an enumeration pattern.
// Enumeration patterns are case-sensitive and apply only to the final path
// component. Invalid patterns match nothing.
func MatchName(pattern, name string) bool {
	matched, err := doublestar.Match(pattern, name)
	return err == nil && matched
}
