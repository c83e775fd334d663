package spec

import (
	"fmt"
	"sort"
	"strings"
)

// VariantKind is the shape of a named build option.
type VariantKind int

const (
	// KindBool is an on/off flag ("+debug", "~debug").
	KindBool VariantKind = iota
	// KindSingle is a single-choice option ("os=CNL10").
	KindSingle
	// KindMulti is a multi-choice option; several values may be required
	// at once.
	KindMulti
)

// String implements fmt.Stringer.
func (k VariantKind) String() string {
	switch k {
	case KindBool:
		return "bool"
	case KindSingle:
		return "single"
	case KindMulti:
		return "multi"
	default:
		return fmt.Sprintf("VariantKind(%d)", int(k))
	}
}

// ParseVariantKind parses the textual kind names used in recipe files.
func ParseVariantKind(s string) (VariantKind, error) {
	switch s {
	case "bool":
		return KindBool, nil
	case "single":
		return KindSingle, nil
	case "multi":
		return KindMulti, nil
	default:
		return 0, fmt.Errorf("unknown variant kind %q", s)
	}
}

// MarshalYAML encodes the kind as its textual name.
func (k VariantKind) MarshalYAML() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalYAML decodes the textual kind names.
func (k *VariantKind) UnmarshalYAML(b []byte) error {
	parsed, err := ParseVariantKind(strings.Trim(string(b), `"'`))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// reservedVariants are the variant names with fixed string-typed semantics:
// architecture slots and compiler flag slots. They are always single-choice
// and may never be used with boolean flag syntax.
var reservedVariants = map[string]bool{
	"platform": true,
	"os":       true,
	"target":   true,
	"gpu_arch": true,
	"arch":     true,
	"cflags":   true,
	"cxxflags": true,
	"fflags":   true,
	"cppflags": true,
	"ldflags":  true,
	"ldlibs":   true,
}

// ReservedVariant reports whether name is a reserved string-typed variant.
func ReservedVariant(name string) bool {
	return reservedVariants[name]
}

// archSlots are the reserved constraints that "arch=P-O-T-G" expands to,
// in value order.
var archSlots = [4]string{"platform", "os", "target", "gpu_arch"}

// VariantConstraint is a requirement on one named build option.
//
// For KindBool only Enable is meaningful. For KindSingle and KindMulti,
// AnyOf lists the acceptable choices (empty means unconstrained) and, for
// KindMulti, AllOf lists choices that must all be present. Both slices are
// kept sorted and deduplicated. Propagate marks the constraint for
// injection into dependency specs.
type VariantConstraint struct {
	Kind      VariantKind `yaml:"kind"`
	Enable    *bool       `yaml:"enable,omitempty"`
	AnyOf     []string    `yaml:"any_of,omitempty"`
	AllOf     []string    `yaml:"all_of,omitempty"`
	Propagate bool        `yaml:"propagate,omitempty"`
}

// BoolVariant builds a boolean constraint.
func BoolVariant(enable, propagate bool) VariantConstraint {
	return VariantConstraint{Kind: KindBool, Enable: &enable, Propagate: propagate}
}

// SingleVariant builds a single-choice constraint accepting exactly value.
func SingleVariant(value string, propagate bool) VariantConstraint {
	return VariantConstraint{Kind: KindSingle, AnyOf: []string{value}, Propagate: propagate}
}

// MultiVariant builds a multi-choice constraint requiring all the given
// values.
func MultiVariant(values []string, propagate bool) VariantConstraint {
	return VariantConstraint{Kind: KindMulti, AllOf: sortedSet(values), Propagate: propagate}
}

func (vc VariantConstraint) clone() VariantConstraint {
	out := vc
	if vc.Enable != nil {
		e := *vc.Enable
		out.Enable = &e
	}
	out.AnyOf = append([]string(nil), vc.AnyOf...)
	out.AllOf = append([]string(nil), vc.AllOf...)
	return out
}

// Format renders the constraint in constraint-string syntax for the given
// variant name.
func (vc VariantConstraint) Format(name string) string {
	if vc.Kind == KindBool {
		op := "~"
		if vc.Enable != nil && *vc.Enable {
			op = "+"
		}
		if vc.Propagate {
			op += op
		}
		return op + name
	}

	eq := "="
	if vc.Propagate {
		eq = "=="
	}
	values := vc.AnyOf
	if len(vc.AllOf) > 0 {
		values = unionStrings(vc.AllOf, vc.AnyOf)
	}
	if len(values) == 0 {
		return name + eq + "*"
	}
	return name + eq + strings.Join(values, ",")
}

// unifyVariants merges two constraints on the same variant name into the
// most specific constraint satisfying both.
//
// The operation is commutative and associative: constraints may arrive in
// any order during a dependency graph traversal and must merge to the same
// result.
func unifyVariants(name string, x, y VariantConstraint) (VariantConstraint, error) {
	if x.Kind != y.Kind {
		return VariantConstraint{}, &IncompatibleConstraintError{
			Field: name,
			A:     fmt.Sprintf("%s (%s)", x.Format(name), x.Kind),
			B:     fmt.Sprintf("%s (%s)", y.Format(name), y.Kind),
		}
	}

	out := VariantConstraint{Kind: x.Kind, Propagate: x.Propagate || y.Propagate}

	if x.Kind == KindBool {
		switch {
		case x.Enable == nil:
			out.Enable = y.Enable
		case y.Enable == nil:
			out.Enable = x.Enable
		case *x.Enable != *y.Enable:
			return VariantConstraint{}, &IncompatibleConstraintError{
				Field: name,
				A:     x.Format(name),
				B:     y.Format(name),
			}
		default:
			out.Enable = x.Enable
		}
		return out.clone(), nil
	}

	switch {
	case len(x.AnyOf) == 0 || len(y.AnyOf) == 0:
		// An unconstrained side adopts the other side's choices.
		out.AnyOf = unionStrings(x.AnyOf, y.AnyOf)
	default:
		out.AnyOf = intersectStrings(x.AnyOf, y.AnyOf)
		if len(out.AnyOf) == 0 {
			return VariantConstraint{}, &EmptyIntersectionError{
				Field: name,
				A:     append([]string(nil), x.AnyOf...),
				B:     append([]string(nil), y.AnyOf...),
			}
		}
	}
	out.AllOf = unionStrings(x.AllOf, y.AllOf)
	return out, nil
}

// sortedSet copies, sorts and deduplicates a value list.
func sortedSet(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	out := append([]string(nil), values...)
	sort.Strings(out)
	j := 0
	for i := 1; i < len(out); i++ {
		if out[i] != out[j] {
			j++
			out[j] = out[i]
		}
	}
	return out[:j+1]
}

// unionStrings merges two sorted sets.
func unionStrings(a, b []string) []string {
	if len(a) == 0 {
		return append([]string(nil), b...)
	}
	if len(b) == 0 {
		return append([]string(nil), a...)
	}
	return sortedSet(append(append([]string(nil), a...), b...))
}

// intersectStrings intersects two sorted sets.
func intersectStrings(a, b []string) []string {
	var out []string
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		switch {
		case a[i] == b[j]:
			out = append(out, a[i])
			i++
			j++
		case a[i] < b[j]:
			i++
		default:
			j++
		}
	}
	return out
}

// stringsEqual reports element-wise equality of two sorted sets.
func stringsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func variantMapsEqual(a, b map[string]VariantConstraint) bool {
	if len(a) != len(b) {
		return false
	}
	for name, vc := range a {
		ovc, ok := b[name]
		if !ok || !variantEqual(vc, ovc) {
			return false
		}
	}
	return true
}

func variantEqual(a, b VariantConstraint) bool {
	if a.Kind != b.Kind || a.Propagate != b.Propagate {
		return false
	}
	if (a.Enable == nil) != (b.Enable == nil) {
		return false
	}
	if a.Enable != nil && *a.Enable != *b.Enable {
		return false
	}
	return stringsEqual(a.AnyOf, b.AnyOf) && stringsEqual(a.AllOf, b.AllOf)
}
