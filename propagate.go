package spec

import (
	goerrors "errors"

	"github.com/pkg/errors"
)

// Propagate pushes every constraint marked propagating ("++debug",
// "name==value") from the spec into its dependency specs, transitively.
//
// Injection goes through the variant unifier: a propagated constraint that
// conflicts with a dependency's own declared constraint is reported as a
// conflict, never silently overridden. The input is not mutated; the
// returned Spec carries the updated dependency tree.
//
// Dependency edges are expected to form a DAG. A package name that
// reappears along the active traversal path is reported as a
// DependencyCycleError instead of recursing forever.
func Propagate(s *Spec) (*Spec, error) {
	// Cycles are checked before cloning: Clone on a cyclic dependency
	// graph would never terminate.
	if err := checkCycles(s, []string{}); err != nil {
		return nil, err
	}
	out := s.Clone()
	if err := propagateInto(out); err != nil {
		return nil, err
	}
	return out, nil
}

// checkCycles walks the dependency tree and reports any package name that
// reappears along the active path. A cycle through shared Spec pointers
// always repeats a name, so the walk terminates.
func checkCycles(s *Spec, path []string) error {
	for _, seen := range path {
		if seen == s.Name {
			return &DependencyCycleError{Path: append(append([]string(nil), path...), s.Name)}
		}
	}
	path = append(path, s.Name)
	for _, depName := range s.depNames() {
		if err := checkCycles(s.Deps[depName], path); err != nil {
			return err
		}
	}
	return nil
}

func propagateInto(s *Spec) error {
	for _, depName := range s.depNames() {
		dep := s.Deps[depName]
		for _, name := range sortedVariantNames(s.Variant) {
			vc := s.Variant[name]
			if !vc.Propagate {
				continue
			}
			existing, ok := dep.Variant[name]
			if !ok {
				dep.Variant[name] = vc.clone()
				continue
			}
			merged, err := unifyVariants(name, existing, vc)
			if err != nil {
				return errors.Wrapf(tagPackage(err, depName),
					"propagating %s from package %s into dependency %s",
					vc.Format(name), s.Name, depName)
			}
			dep.Variant[name] = merged
		}
		if err := propagateInto(dep); err != nil {
			return err
		}
	}
	return nil
}

// IsConflict reports whether err is one of the typed constraint-conflict
// errors, as opposed to a parse or recipe error.
func IsConflict(err error) bool {
	var (
		ice *IncompatibleConstraintError
		eie *EmptyIntersectionError
		vrc *VersionRangeConflictError
		dvk *DuplicateVariantKindError
	)
	return goerrors.As(err, &ice) || goerrors.As(err, &eie) ||
		goerrors.As(err, &vrc) || goerrors.As(err, &dvk)
}
