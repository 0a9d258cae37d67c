package version

import (
	"github.com/Masterminds/semver/v3"
)

// Tag is set at build time via -ldflags.
var Tag = "v0.1.0"

// IsNewer reports whether other is a strictly newer release than the
// running build. Unparseable versions are treated as not newer.
func IsNewer(other string) bool {
	current, err := semver.NewVersion(Tag)
	if err != nil {
		return false
	}
	candidate, err := semver.NewVersion(other)
	if err != nil {
		return false
	}
	return candidate.GreaterThan(current)
}
