// Package spec parses and unifies build-configuration constraints for a
// scientific-software package manager.
//
// A constraint string names a package and narrows its build configuration:
// version ranges, compiler, boolean and choice variants, and target
// architecture. Before a build proceeds, every constraint bearing on a
// package (the user's request, the package's declared defaults, and
// constraints inherited from dependents) is merged into one consistent
// Spec, or a conflict is reported.
//
// Quick start:
//
//	// Parse a constraint string
//	s, _ := spec.Parse("mpileaks@1.2:1.4 +debug %gcc@4.7.3 os=CNL10")
//
//	// Merge two constraint sets for the same package
//	merged, err := spec.Unify(s, other)
//
//	// Push propagating constraints ("++debug", "name==value") into
//	// dependency specs
//	resolved, err := spec.Propagate(merged)
//
// Syntax summary: "@1.2:1.4" (version range), "@:1.4" (unbounded below),
// "%gcc@4.7.3" (compiler), "+debug"/"~debug" (boolean variant), "++debug"
// (propagating), "name=value"/"name==value" (choice variant),
// "arch=cray-CNL10-haswell" (expands to platform/os/target), "^callpath@1.1"
// (dependency spec).
package spec

import (
	"sort"
	"strings"
)

// Spec is the full constraint set for one named package.
//
// A Spec is built up field by field during parsing and is logically
// immutable afterwards: Unify and Propagate return new Spec values and
// never mutate their inputs, so partially-merged intermediate states are
// not observable by other holders of the same Spec.
type Spec struct {
	Name     string                       `yaml:"name"`
	Versions []VersionRange               `yaml:"versions,omitempty"`
	Variant  map[string]VariantConstraint `yaml:"variant,omitempty"`
	Compiler CompilerConstraint           `yaml:"compiler,omitempty"`
	Deps     map[string]*Spec             `yaml:"deps,omitempty"`
}

// NewSpec returns an empty Spec constraining only the package name.
func NewSpec(name string) *Spec {
	return &Spec{
		Name:    name,
		Variant: map[string]VariantConstraint{},
		Deps:    map[string]*Spec{},
	}
}

// Clone returns a deep copy.
func (s *Spec) Clone() *Spec {
	out := NewSpec(s.Name)
	out.Versions = append([]VersionRange(nil), s.Versions...)
	for name, vc := range s.Variant {
		out.Variant[name] = vc.clone()
	}
	out.Compiler = s.Compiler.clone()
	for name, dep := range s.Deps {
		out.Deps[name] = dep.Clone()
	}
	return out
}

// Equal reports whether two specs carry exactly the same constraints.
func (s *Spec) Equal(other *Spec) bool {
	if s == nil || other == nil {
		return s == other
	}
	if s.Name != other.Name {
		return false
	}
	if !rangeSetsEqual(s.Versions, other.Versions) {
		return false
	}
	if !variantMapsEqual(s.Variant, other.Variant) {
		return false
	}
	if !compilerEqual(s.Compiler, other.Compiler) {
		return false
	}
	if len(s.Deps) != len(other.Deps) {
		return false
	}
	for name, dep := range s.Deps {
		odep, ok := other.Deps[name]
		if !ok || !dep.Equal(odep) {
			return false
		}
	}
	return true
}

// String renders the spec back into constraint-string syntax with a
// canonical field order.
func (s *Spec) String() string {
	var parts []string
	if s.Name != "" {
		parts = append(parts, s.Name)
	}
	if len(s.Versions) > 0 {
		parts = append(parts, rangesString(s.Versions))
	}
	if !s.Compiler.Unconstrained() {
		parts = append(parts, s.Compiler.String())
	}
	for _, name := range sortedVariantNames(s.Variant) {
		parts = append(parts, s.Variant[name].Format(name))
	}
	for _, name := range s.depNames() {
		parts = append(parts, "^"+s.Deps[name].String())
	}
	return strings.Join(parts, " ")
}

func (s *Spec) depNames() []string {
	names := make([]string, 0, len(s.Deps))
	for name := range s.Deps {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Satisfies reports whether s is at least as constrained as cond: merging
// cond into s changes nothing. Used to evaluate conditional dependency
// edges ("when" clauses in recipes).
func (s *Spec) Satisfies(cond *Spec) bool {
	merged, err := Unify(s, cond)
	if err != nil {
		return false
	}
	return merged.Equal(s)
}

// Parse parses a constraint string into a Spec. Errors carry the byte
// offset of the failure.
func Parse(input string) (*Spec, error) {
	p := &stateParser{input: input}
	s, err := p.parseSpec(true)
	if err != nil {
		return nil, err
	}
	return s, nil
}

// MustParse is Parse, panicking on error. For tests and literals.
func MustParse(input string) *Spec {
	s, err := Parse(input)
	if err != nil {
		panic(err)
	}
	return s
}
