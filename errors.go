package spec

import (
	"fmt"
	"strings"
)

// ParseError reports malformed or incompletely-consumed input. Offset is
// the byte position at which parsing failed and Expected names the token
// class the parser was looking for.
type ParseError struct {
	Input    string
	Offset   int
	Expected string
}

// Error implements the error interface.
func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid spec %q: expected %s at offset %d", e.Input, e.Expected, e.Offset)
}

// ReservedKeywordTypeError reports a reserved string-typed variant name
// used with boolean flag syntax.
type ReservedKeywordTypeError struct {
	Name   string
	Offset int
}

// Error implements the error interface.
func (e *ReservedKeywordTypeError) Error() string {
	return fmt.Sprintf("reserved variant %q is string-valued and cannot be a boolean flag (offset %d)", e.Name, e.Offset)
}

// DuplicateVariantKindError reports a variant name used with two different
// kinds within one spec.
type DuplicateVariantKindError struct {
	Package string
	Name    string
	A, B    VariantKind
}

// Error implements the error interface.
func (e *DuplicateVariantKindError) Error() string {
	return fmt.Sprintf("package %s: variant %q used both as %s and as %s", pkgOrSpec(e.Package), e.Name, e.A, e.B)
}

// IncompatibleConstraintError reports two constraints of the same field
// that disagree on identity: boolean variants with opposite values,
// variants of different kinds, or different compiler names.
type IncompatibleConstraintError struct {
	Package string
	Field   string
	A, B    string
}

// Error implements the error interface.
func (e *IncompatibleConstraintError) Error() string {
	return fmt.Sprintf("package %s: %q conflicts with %q on %s", pkgOrSpec(e.Package), e.A, e.B, e.Field)
}

// EmptyIntersectionError reports two choice constraints whose acceptable
// value sets do not overlap.
type EmptyIntersectionError struct {
	Package string
	Field   string
	A, B    []string
}

// Error implements the error interface.
func (e *EmptyIntersectionError) Error() string {
	return fmt.Sprintf("package %s: no value of %s satisfies both {%s} and {%s}",
		pkgOrSpec(e.Package), e.Field, strings.Join(e.A, ","), strings.Join(e.B, ","))
}

// VersionRangeConflictError reports two version ranges with an empty
// intersection or incompatible extension tags.
type VersionRangeConflictError struct {
	Package string
	A, B    VersionRange
}

// Error implements the error interface.
func (e *VersionRangeConflictError) Error() string {
	return fmt.Sprintf("package %s: version range %s conflicts with %s", pkgOrSpec(e.Package), e.A, e.B)
}

// DependencyCycleError reports a dependency cycle found while propagating
// constraints. Path lists the package names along the cycle in traversal
// order.
type DependencyCycleError struct {
	Path []string
}

// Error implements the error interface.
func (e *DependencyCycleError) Error() string {
	return fmt.Sprintf("dependency cycle: %s", strings.Join(e.Path, " -> "))
}

// UnknownVariantError reports a requested variant that the package recipe
// does not declare.
type UnknownVariantError struct {
	Package string
	Name    string
}

// Error implements the error interface.
func (e *UnknownVariantError) Error() string {
	return fmt.Sprintf("package %s declares no variant %q", pkgOrSpec(e.Package), e.Name)
}

// InvalidVariantValueError reports a requested variant value outside the
// recipe's declared value set.
type InvalidVariantValueError struct {
	Package string
	Name    string
	Value   string
	Allowed []string
}

// Error implements the error interface.
func (e *InvalidVariantValueError) Error() string {
	return fmt.Sprintf("package %s: variant %s has no value %q (allowed: %s)",
		pkgOrSpec(e.Package), e.Name, e.Value, strings.Join(e.Allowed, ","))
}

func pkgOrSpec(name string) string {
	if name == "" {
		return "<spec>"
	}
	return name
}

var (
	_ error = (*ParseError)(nil)
	_ error = (*ReservedKeywordTypeError)(nil)
	_ error = (*DuplicateVariantKindError)(nil)
	_ error = (*IncompatibleConstraintError)(nil)
	_ error = (*EmptyIntersectionError)(nil)
	_ error = (*VersionRangeConflictError)(nil)
	_ error = (*DependencyCycleError)(nil)
	_ error = (*UnknownVariantError)(nil)
	_ error = (*InvalidVariantValueError)(nil)
)
