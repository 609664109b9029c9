package strategy

import (
	"github.com/Masterminds/semver/v3"

	"github.com/ElcaroNossam/elcarobybitbotv2-sub000/pkg/errors"
)

// InitialVersion is assigned to newly created specs.
const InitialVersion = "1.0.0"

// BumpVersion increments the patch component of the spec version. Every edit
// must bump the version; a new version never mutates a running instance's
// already-loaded copy.
func (s *Spec) BumpVersion() error {
	current, err := semver.NewVersion(s.Version)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeInvalidVersion, err, "spec %s has invalid version %q", s.ID, s.Version)
	}

	next := current.IncPatch()
	s.Version = next.String()

	return nil
}

// CompareVersions returns -1, 0, or 1 if a is less than, equal to, or greater
// than b.
func CompareVersions(a, b string) (int, error) {
	va, err := semver.NewVersion(a)
	if err != nil {
		return 0, errors.Wrapf(errors.ErrCodeInvalidVersion, err, "invalid version %q", a)
	}

	vb, err := semver.NewVersion(b)
	if err != nil {
		return 0, errors.Wrapf(errors.ErrCodeInvalidVersion, err, "invalid version %q", b)
	}

	return va.Compare(vb), nil
}
