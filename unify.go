package spec

import (
	goerrors "errors"

	"github.com/pkg/errors"
)

// Unify merges two constraint sets for the same package into the most
// specific Spec satisfying both, or reports the first conflict found.
//
// The merge is field-wise: version sets through the range unifier, variant
// maps key-wise through the variant unifier, compilers by name identity
// plus recursive version/variant merge, and dependency specs recursively.
// Unify is commutative, associative and idempotent, and never mutates its
// inputs.
func Unify(a, b *Spec) (*Spec, error) {
	if a.Name != b.Name {
		return nil, &IncompatibleConstraintError{
			Package: a.Name,
			Field:   "name",
			A:       a.Name,
			B:       b.Name,
		}
	}

	out := NewSpec(a.Name)

	versions, err := unifyRangeSets(a.Versions, b.Versions)
	if err != nil {
		return nil, errors.Wrapf(tagPackage(err, a.Name), "unifying package %s", a.Name)
	}
	out.Versions = versions

	variant, err := unifyVariantMaps(a.Variant, b.Variant)
	if err != nil {
		return nil, errors.Wrapf(tagPackage(err, a.Name), "unifying package %s", a.Name)
	}
	out.Variant = variant

	compiler, err := unifyCompilers(a.Compiler, b.Compiler)
	if err != nil {
		return nil, errors.Wrapf(tagPackage(err, a.Name), "unifying package %s compiler", a.Name)
	}
	out.Compiler = compiler

	for _, name := range a.depNames() {
		out.Deps[name] = a.Deps[name].Clone()
	}
	for _, name := range b.depNames() {
		dep := b.Deps[name]
		existing, ok := out.Deps[name]
		if !ok {
			out.Deps[name] = dep.Clone()
			continue
		}
		merged, err := Unify(existing, dep)
		if err != nil {
			return nil, errors.Wrapf(err, "unifying dependency %s of package %s", name, a.Name)
		}
		out.Deps[name] = merged
	}

	return out, nil
}

// unifyVariantMaps merges two variant maps key-wise. Names present on only
// one side are carried over; names present on both are unified. A conflict
// on any single name fails the whole merge and reports that name.
func unifyVariantMaps(a, b map[string]VariantConstraint) (map[string]VariantConstraint, error) {
	out := make(map[string]VariantConstraint, len(a)+len(b))
	for name, vc := range a {
		out[name] = vc.clone()
	}
	for _, name := range sortedVariantNames(b) {
		vc := b[name]
		existing, ok := out[name]
		if !ok {
			out[name] = vc.clone()
			continue
		}
		merged, err := unifyVariants(name, existing, vc)
		if err != nil {
			return nil, err
		}
		out[name] = merged
	}
	return out, nil
}

// tagPackage stamps the package name onto a typed conflict error so the
// caller can produce an actionable diagnostic without unwrapping the whole
// chain by hand.
func tagPackage(err error, pkg string) error {
	var ice *IncompatibleConstraintError
	if goerrors.As(err, &ice) && ice.Package == "" {
		ice.Package = pkg
	}
	var eie *EmptyIntersectionError
	if goerrors.As(err, &eie) && eie.Package == "" {
		eie.Package = pkg
	}
	var vrc *VersionRangeConflictError
	if goerrors.As(err, &vrc) && vrc.Package == "" {
		vrc.Package = pkg
	}
	var dvk *DuplicateVariantKindError
	if goerrors.As(err, &dvk) && dvk.Package == "" {
		dvk.Package = pkg
	}
	return err
}
