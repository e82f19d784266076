package crate

import "cmp"

// CompareBySemver orders versions by semantic version, newest first.
//
// Versions with equal precedence (build metadata is ignored) are ordered by
// creation time, newest first. A version whose number does not parse sorts
// after every version that does, whatever its timestamp. Two unparsable
// versions are ordered by creation time. The final tie-break is the id,
// highest first, which makes the order total.
func CompareBySemver(a, b *Version) int {
	as, bs := a.Semver(), b.Semver()
	switch {
	case as == nil && bs == nil:
		return compareCreated(a, b)
	case as == nil:
		return 1
	case bs == nil:
		return -1
	}
	if c := bs.Compare(as); c != 0 {
		return c
	}
	return compareCreated(a, b)
}

// CompareByDate orders versions by creation time, newest first, breaking
// ties by id, highest first.
func CompareByDate(a, b *Version) int {
	return compareCreated(a, b)
}

func compareCreated(a, b *Version) int {
	if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
		return c
	}
	return cmp.Compare(b.ID, a.ID)
}
