package spec

import (
	"sort"
	"strings"
)

// CompilerConstraint is a requirement on the compiler used to build a
// package. An empty Name means the compiler is unconstrained.
type CompilerConstraint struct {
	Name     string                       `yaml:"name,omitempty"`
	Versions []VersionRange               `yaml:"versions,omitempty"`
	Variant  map[string]VariantConstraint `yaml:"variant,omitempty"`
}

// Unconstrained reports whether no compiler requirement is present.
func (c CompilerConstraint) Unconstrained() bool {
	return c.Name == ""
}

func (c CompilerConstraint) clone() CompilerConstraint {
	out := CompilerConstraint{Name: c.Name}
	out.Versions = append([]VersionRange(nil), c.Versions...)
	if c.Variant != nil {
		out.Variant = make(map[string]VariantConstraint, len(c.Variant))
		for name, vc := range c.Variant {
			out.Variant[name] = vc.clone()
		}
	}
	return out
}

// String renders the constraint in "%name@versions" syntax.
func (c CompilerConstraint) String() string {
	if c.Unconstrained() {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("%")
	sb.WriteString(c.Name)
	if len(c.Versions) > 0 {
		sb.WriteString(rangesString(c.Versions))
	}
	for _, name := range sortedVariantNames(c.Variant) {
		sb.WriteString(" ")
		sb.WriteString(c.Variant[name].Format(name))
	}
	return sb.String()
}

// unifyCompilers merges two compiler constraints. The names must be equal
// unless one side is unconstrained; versions and variants merge through
// the range and variant unifiers.
func unifyCompilers(a, b CompilerConstraint) (CompilerConstraint, error) {
	if a.Unconstrained() {
		return b.clone(), nil
	}
	if b.Unconstrained() {
		return a.clone(), nil
	}
	if a.Name != b.Name {
		return CompilerConstraint{}, &IncompatibleConstraintError{
			Field: "compiler",
			A:     a.Name,
			B:     b.Name,
		}
	}

	versions, err := unifyRangeSets(a.Versions, b.Versions)
	if err != nil {
		return CompilerConstraint{}, err
	}
	variant, err := unifyVariantMaps(a.Variant, b.Variant)
	if err != nil {
		return CompilerConstraint{}, err
	}
	return CompilerConstraint{Name: a.Name, Versions: versions, Variant: variant}, nil
}

func compilerEqual(a, b CompilerConstraint) bool {
	return a.Name == b.Name &&
		rangeSetsEqual(a.Versions, b.Versions) &&
		variantMapsEqual(a.Variant, b.Variant)
}

func sortedVariantNames(m map[string]VariantConstraint) []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
