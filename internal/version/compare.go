package version

import (
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/rxtech-lab/argo-bot/pkg/errors"
)

// CheckStatsCompatibility checks whether a session stats file written by writtenBy can
// be read by the running version.
//
// Compatibility Rules:
//   - If either version is "main" (development build) or writtenBy is empty, the check is skipped
//   - Major versions must match exactly
//   - A file written by a newer minor version is rejected, since it may carry counters
//     the running version does not know
//   - Patch versions can differ
//
// Examples:
//   - Written 1.2.0, running 1.2.5 -> OK
//   - Written 1.1.0, running 1.2.0 -> OK (older file)
//   - Written 1.3.0, running 1.2.0 -> ERROR (newer minor)
//   - Written 2.0.0, running 1.2.0 -> ERROR (major differs)
func CheckStatsCompatibility(writtenBy, running string) error {
	writtenBy = strings.TrimPrefix(writtenBy, "v")
	running = strings.TrimPrefix(running, "v")

	if writtenBy == "" || writtenBy == "main" || running == "main" {
		return nil
	}

	written, err := semver.NewVersion(writtenBy)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeIncompatibleVersion, err, "invalid stats version '%s'", writtenBy)
	}

	current, err := semver.NewVersion(running)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeIncompatibleVersion, err, "invalid running version '%s'", running)
	}

	if written.Major() != current.Major() {
		return errors.Newf(errors.ErrCodeIncompatibleVersion, "major version mismatch: stats written by %d.x.x, running %d.x.x",
			written.Major(), current.Major())
	}

	if written.Minor() > current.Minor() {
		return errors.Newf(errors.ErrCodeIncompatibleVersion, "stats written by newer version %d.%d.x, running %d.%d.x",
			written.Major(), written.Minor(), current.Major(), current.Minor())
	}

	return nil
}
