package spec

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// VersionRange is a closed interval of versions, optionally tagged with a
// non-numeric extension. A nil Lo is unbounded below and a nil Hi is
// unbounded above. Extension tags match by prefix: "rc" is compatible with
// "rc1" and the merged range keeps the more specific tag.
type VersionRange struct {
	Lo  *Version
	Hi  *Version
	Ext string
}

// ExactRange returns a range pinned to a single version.
func ExactRange(v Version, ext string) VersionRange {
	lo, hi := v, v
	return VersionRange{Lo: &lo, Hi: &hi, Ext: ext}
}

// AtLeast returns a range bounded below only.
func AtLeast(v Version) VersionRange {
	lo := v
	return VersionRange{Lo: &lo}
}

// AtMost returns a range bounded above only.
func AtMost(v Version) VersionRange {
	hi := v
	return VersionRange{Hi: &hi}
}

// AnyVersion returns the unbounded range.
func AnyVersion() VersionRange {
	return VersionRange{}
}

// ParseVersionRange parses a standalone range token, with or without the
// leading "@": "1.2:1.4", "@:1.4", "@1.2:", "@1.2.3", ":".
func ParseVersionRange(s string) (VersionRange, error) {
	s = strings.TrimPrefix(s, "@")
	lo, hi, ok := strings.Cut(s, ":")
	return newRange(lo, hi, ok)
}

// newRange builds a range from its endpoint tokens. colon distinguishes
// "1.2" (exact) from "1.2:" (bounded below only).
func newRange(loTok, hiTok string, colon bool) (VersionRange, error) {
	if !colon {
		if loTok == "" {
			return VersionRange{}, fmt.Errorf("empty version range")
		}
		v, ext, err := ParseVersion(loTok)
		if err != nil {
			return VersionRange{}, err
		}
		return ExactRange(v, ext), nil
	}

	var r VersionRange
	var loExt, hiExt string
	if loTok != "" {
		v, ext, err := ParseVersion(loTok)
		if err != nil {
			return VersionRange{}, err
		}
		r.Lo, loExt = &v, ext
	}
	if hiTok != "" {
		v, ext, err := ParseVersion(hiTok)
		if err != nil {
			return VersionRange{}, err
		}
		r.Hi, hiExt = &v, ext
	}

	ext, ok := mergeExt(loExt, hiExt)
	if !ok {
		return VersionRange{}, fmt.Errorf("version range %q:%q has incompatible extensions %q and %q", loTok, hiTok, loExt, hiExt)
	}
	r.Ext = ext

	if r.Lo != nil && r.Hi != nil && r.Lo.Compare(*r.Hi) > 0 {
		return VersionRange{}, fmt.Errorf("version range %s:%s is empty", r.Lo, r.Hi)
	}
	return r, nil
}

// mergeExt merges two extension tags by prefix compatibility, keeping the
// longer (more specific) tag. The second result is false on a mismatch.
func mergeExt(a, b string) (string, bool) {
	if a == "" {
		return b, true
	}
	if b == "" {
		return a, true
	}
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	if a[:n] != b[:n] {
		return "", false
	}
	if len(a) >= len(b) {
		return a, true
	}
	return b, true
}

// Contains reports whether the version lies within the range bounds.
// Extension tags must be prefix compatible.
func (r VersionRange) Contains(v Version, ext string) bool {
	if r.Lo != nil && v.Compare(*r.Lo) < 0 {
		return false
	}
	if r.Hi != nil && v.Compare(*r.Hi) > 0 {
		return false
	}
	_, ok := mergeExt(r.Ext, ext)
	return ok
}

// IsExact reports whether the range pins a single version.
func (r VersionRange) IsExact() bool {
	return r.Lo != nil && r.Hi != nil && r.Lo.Compare(*r.Hi) == 0
}

// String renders the range in constraint-string syntax (without the "@").
func (r VersionRange) String() string {
	ext := r.Ext
	if r.IsExact() {
		return r.Lo.String() + ext
	}
	var lo, hi string
	if r.Lo != nil {
		lo = r.Lo.String() + ext
		ext = ""
	}
	if r.Hi != nil {
		hi = r.Hi.String() + ext
	}
	return lo + ":" + hi
}

// MarshalYAML renders the range in constraint-string syntax. The scalar is
// quoted: a trailing colon would otherwise read back as a mapping key.
func (r VersionRange) MarshalYAML() ([]byte, error) {
	return []byte(strconv.Quote(r.String())), nil
}

// UnmarshalYAML parses constraint-string syntax.
func (r *VersionRange) UnmarshalYAML(b []byte) error {
	parsed, err := ParseVersionRange(strings.Trim(string(b), `"'`))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}

// unifyRanges intersects two ranges: the result's lower bound is the max of
// the lower bounds, the upper bound the min of the upper bounds, and the
// extension the merge of the two tags. An empty result is a conflict.
func unifyRanges(x, y VersionRange) (VersionRange, error) {
	ext, ok := mergeExt(x.Ext, y.Ext)
	if !ok {
		return VersionRange{}, &VersionRangeConflictError{A: x, B: y}
	}

	r := VersionRange{
		Lo:  maxVersion(x.Lo, y.Lo),
		Hi:  minVersion(x.Hi, y.Hi),
		Ext: ext,
	}
	if r.Lo != nil && r.Hi != nil && r.Lo.Compare(*r.Hi) > 0 {
		return VersionRange{}, &VersionRangeConflictError{A: x, B: y}
	}
	return r, nil
}

// unifyRangeSets merges two range sets. An empty set is unconstrained and
// unifies to the other side. Otherwise every pair from the cartesian
// product is intersected and the non-conflicting results are kept as a
// disjunctive union; if every pair conflicts the merge fails.
func unifyRangeSets(a, b []VersionRange) ([]VersionRange, error) {
	if len(a) == 0 {
		return normalizeRanges(append([]VersionRange(nil), b...)), nil
	}
	if len(b) == 0 {
		return normalizeRanges(append([]VersionRange(nil), a...)), nil
	}

	var out []VersionRange
	var firstErr error
	for _, x := range a {
		for _, y := range b {
			r, err := unifyRanges(x, y)
			if err != nil {
				if firstErr == nil {
					firstErr = err
				}
				continue
			}
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return nil, firstErr
	}
	return normalizeRanges(out), nil
}

// rangeContains reports whether inner is fully covered by outer.
func rangeContains(outer, inner VersionRange) bool {
	if outer.Lo != nil && (inner.Lo == nil || inner.Lo.Compare(*outer.Lo) < 0) {
		return false
	}
	if outer.Hi != nil && (inner.Hi == nil || inner.Hi.Compare(*outer.Hi) > 0) {
		return false
	}
	merged, ok := mergeExt(outer.Ext, inner.Ext)
	return ok && merged == inner.Ext
}

func rangeEqual(a, b VersionRange) bool {
	return rangeContains(a, b) && rangeContains(b, a)
}

// rangeSetsEqual compares two canonically ordered range sets.
func rangeSetsEqual(a, b []VersionRange) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !rangeEqual(a[i], b[i]) {
			return false
		}
	}
	return true
}

// normalizeRanges drops ranges covered by another range in the set and
// sorts the rest into a canonical order, so that set unification stays
// commutative and idempotent regardless of merge order.
func normalizeRanges(rs []VersionRange) []VersionRange {
	var out []VersionRange
	for i, r := range rs {
		redundant := false
		for j, other := range rs {
			if i == j {
				continue
			}
			if rangeEqual(r, other) {
				// Keep only the first of an equal pair.
				if j < i {
					redundant = true
					break
				}
				continue
			}
			if rangeContains(other, r) {
				redundant = true
				break
			}
		}
		if !redundant {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return compareRange(out[i], out[j]) < 0
	})
	return out
}

func compareRange(a, b VersionRange) int {
	if c := compareBound(a.Lo, b.Lo, true); c != 0 {
		return c
	}
	if c := compareBound(a.Hi, b.Hi, false); c != 0 {
		return c
	}
	return strings.Compare(a.Ext, b.Ext)
}

// compareBound orders nil bounds first when they mean -inf and last when
// they mean +inf.
func compareBound(a, b *Version, lower bool) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		if lower {
			return -1
		}
		return 1
	}
	if b == nil {
		if lower {
			return 1
		}
		return -1
	}
	return a.Compare(*b)
}

// rangesString renders a range set as it appears in a constraint string.
func rangesString(rs []VersionRange) string {
	parts := make([]string, len(rs))
	for i, r := range rs {
		parts[i] = r.String()
	}
	return "@" + strings.Join(parts, ",")
}
