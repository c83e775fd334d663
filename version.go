package spec

import (
	"fmt"
	"strconv"
	"strings"
)

// Version is a release version triple. Missing components parse as zero,
// so "1.2" and "1.2.0" are the same version.
type Version struct {
	Major int
	Minor int
	Patch int
}

// ParseVersion parses a version token into a Version and an optional
// trailing extension tag. The numeric part is one to three dot-separated
// digit groups; anything after it (optionally introduced by a dash) is the
// extension, e.g. "1.2.3rc1" or "4.7.3-cray".
func ParseVersion(s string) (Version, string, error) {
	if s == "" {
		return Version{}, "", fmt.Errorf("empty version string")
	}

	var v Version
	rest := s
	for i, dst := range []*int{&v.Major, &v.Minor, &v.Patch} {
		if i > 0 {
			if !strings.HasPrefix(rest, ".") {
				break
			}
			if len(rest) < 2 || !isDigit(rest[1]) {
				// Trailing dot, or a dot leading into the extension.
				return Version{}, "", fmt.Errorf("invalid version %q", s)
			}
			rest = rest[1:]
		}
		j := 0
		for j < len(rest) && isDigit(rest[j]) {
			j++
		}
		if j == 0 {
			return Version{}, "", fmt.Errorf("invalid version %q", s)
		}
		n, err := strconv.Atoi(rest[:j])
		if err != nil {
			return Version{}, "", fmt.Errorf("invalid version %q: %v", s, err)
		}
		*dst = n
		rest = rest[j:]
	}

	ext := strings.TrimPrefix(rest, "-")
	if ext != "" && !isExtStart(ext[0]) {
		return Version{}, "", fmt.Errorf("invalid version %q", s)
	}
	for i := 0; i < len(ext); i++ {
		if !isVersionChar(ext[i]) {
			return Version{}, "", fmt.Errorf("invalid version %q", s)
		}
	}
	return v, ext, nil
}

// Compare returns -1 if v < other, 0 if v == other, 1 if v > other.
func (v Version) Compare(other Version) int {
	if v.Major != other.Major {
		return cmpInt(v.Major, other.Major)
	}
	if v.Minor != other.Minor {
		return cmpInt(v.Minor, other.Minor)
	}
	return cmpInt(v.Patch, other.Patch)
}

// String returns the shortest form of the version: trailing zero
// components are omitted, so Version{Major: 1, Minor: 2} prints as "1.2".
func (v Version) String() string {
	switch {
	case v.Patch != 0:
		return fmt.Sprintf("%d.%d.%d", v.Major, v.Minor, v.Patch)
	case v.Minor != 0:
		return fmt.Sprintf("%d.%d", v.Major, v.Minor)
	default:
		return strconv.Itoa(v.Major)
	}
}

func cmpInt(a, b int) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

// maxVersion treats nil as unbounded below.
func maxVersion(a, b *Version) *Version {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if a.Compare(*b) >= 0 {
		return a
	}
	return b
}

// minVersion treats nil as unbounded above.
func minVersion(a, b *Version) *Version {
	if a == nil {
		return b
	}
	if b == nil {
		return a
	}
	if a.Compare(*b) <= 0 {
		return a
	}
	return b
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isExtStart(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c == '_'
}

func isVersionChar(c byte) bool {
	return isDigit(c) || isExtStart(c) || c == '.' || c == '-'
}
