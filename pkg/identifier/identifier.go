package identifier

import (
	"strings"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

const (
	// PrefixProvider is the prefix used for provider identifiers.
	PrefixProvider = "prov_"
	// requiredPrefixLength is the length required for identifier prefixes.
	requiredPrefixLength = 5
	// encodedLength is the length of the encoded random component.
	encodedLength = 32
)

// New generates a new collision-resistant identifier with the specified prefix.
func New(prefix string) (string, error) {
	// Validate the prefix.
	if len(prefix) != requiredPrefixLength || prefix[requiredPrefixLength-1] != '_' {
		return "", errors.Errorf("invalid identifier prefix: %q", prefix)
	}

	// Create the random value.
	random, err := uuid.NewRandom()
	if err != nil {
		return "", errors.Wrap(err, "unable to generate random value")
	}

	// Encode the random value without separators.
	return prefix + strings.ReplaceAll(random.String(), "-", ""), nil
}

// IsValid determines whether or not a string is a valid identifier.
func IsValid(value string) bool {
	// Perform a length check.
	if len(value) != requiredPrefixLength+encodedLength {
		return false
	}

	// Check the prefix separator.
	if value[requiredPrefixLength-1] != '_' {
		return false
	}

	// Check that the remainder is lowercase hexadecimal.
	for _, r := range value[requiredPrefixLength:] {
		if !(('0' <= r && r <= '9') || ('a' <= r && r <= 'f')) {
			return false
		}
	}

	// Success.
	return true
}
