package settings

import (
	"fmt"
	"regexp"
)

// MaxInstanceNameLength bounds the instance name embedded in store keys.
const MaxInstanceNameLength = 63

// InstanceNamePattern: lowercase alphanumeric, hyphens allowed but not at start/end.
// Colons are excluded because they separate Redis key segments.
var InstanceNamePattern = regexp.MustCompile(`^[a-z0-9]([-a-z0-9]*[a-z0-9])?$`)

// ValidateInstanceName checks a name used to namespace stored entities.
func ValidateInstanceName(name string) error {
	if name == "" {
		return fmt.Errorf("instance name cannot be empty")
	}

	if len(name) > MaxInstanceNameLength {
		return fmt.Errorf("instance name too long: %d characters (max: %d)", len(name), MaxInstanceNameLength)
	}

	if !InstanceNamePattern.MatchString(name) {
		return fmt.Errorf("invalid instance name '%s': must be lowercase alphanumeric with hyphens (not at start/end)", name)
	}

	return nil
}
