package claim

import "fmt"

// Level is an ordered authorization level for a claim. Lower is more
// restrictive. Denied is the floor and the default for any claim a
// principal was never granted.
//
// Resolved claim maps only ever contain plain Levels: the "defer to
// ancestors" storage marker lives on role.Grant, never here.
type Level int8

// Denied is the floor value: no grant.
const Denied Level = 0

// IsGranted reports whether the level confers any access at all.
func (l Level) IsGranted() bool { return l > Denied }

// IsDenied reports whether the level is the floor.
func (l Level) IsDenied() bool { return l <= Denied }

// String returns a human-readable representation.
func (l Level) String() string {
	if l.IsDenied() {
		return "denied"
	}
	return fmt.Sprintf("level(%d)", int8(l))
}

// Min returns the more restrictive of two levels.
func Min(a, b Level) Level {
	if a < b {
		return a
	}
	return b
}
