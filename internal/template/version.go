package template

import (
	"fmt"

	"github.com/Masterminds/semver/v3"
)

// ParseVersion parses a template version. Versions are semantic versions; a
// leading "v" is accepted. Pre-release versions are refused so that every
// backend orders versions by major, minor and patch alone.
func ParseVersion(v string) (*semver.Version, error) {
	if v == "" {
		return nil, fmt.Errorf("version is empty")
	}
	parsed, err := semver.NewVersion(v)
	if err != nil {
		return nil, fmt.Errorf("invalid version %q: %w", v, err)
	}
	if parsed.Prerelease() != "" {
		return nil, fmt.Errorf("invalid version %q: pre-release versions are not supported", v)
	}
	return parsed, nil
}

// CompareVersions returns -1, 0 or 1 when a is lower than, equal to or higher
// than b. An empty or unparsable version sorts below every valid version.
func CompareVersions(a, b string) int {
	va, errA := ParseVersion(a)
	vb, errB := ParseVersion(b)
	switch {
	case errA != nil && errB != nil:
		return 0
	case errA != nil:
		return -1
	case errB != nil:
		return 1
	}
	return va.Compare(vb)
}

// VersionParts returns major, minor and patch for storage backends that
// order versions numerically.
func VersionParts(v string) (major, minor, patch int64, err error) {
	parsed, err := ParseVersion(v)
	if err != nil {
		return 0, 0, 0, err
	}
	return int64(parsed.Major()), int64(parsed.Minor()), int64(parsed.Patch()), nil
}
