package spec

import (
	goerrors "errors"
	"testing"

	"gotest.tools/v3/assert"
)

func TestPropagateBool(t *testing.T) {
	s := MustParse("mpileaks ++debug ^callpath")

	got, err := Propagate(s)
	assert.NilError(t, err)

	vc, ok := got.Deps["callpath"].Variant["debug"]
	assert.Assert(t, ok, "debug not injected into callpath")
	assert.Equal(t, vc.Kind, KindBool)
	assert.Assert(t, vc.Enable != nil && *vc.Enable)
	assert.Assert(t, vc.Propagate)
}

func TestPropagateValue(t *testing.T) {
	s := MustParse("mpileaks os==CNL10 ^callpath ^mpi")

	got, err := Propagate(s)
	assert.NilError(t, err)

	for _, dep := range []string{"callpath", "mpi"} {
		vc, ok := got.Deps[dep].Variant["os"]
		assert.Assert(t, ok, "os not injected into %s", dep)
		assert.DeepEqual(t, vc.AnyOf, []string{"CNL10"})
	}
}

func TestPropagateSkipsNonPropagating(t *testing.T) {
	s := MustParse("mpileaks +debug os=CNL10 ^callpath")

	got, err := Propagate(s)
	assert.NilError(t, err)

	dep := got.Deps["callpath"]
	_, hasDebug := dep.Variant["debug"]
	_, hasOS := dep.Variant["os"]
	assert.Assert(t, !hasDebug && !hasOS, "non-propagating constraints leaked: %s", dep)
}

func TestPropagateMergesWithExisting(t *testing.T) {
	// The dependency already constrains the same variant compatibly.
	s := MustParse("mpileaks ++debug ^callpath +debug")

	got, err := Propagate(s)
	assert.NilError(t, err)

	vc := got.Deps["callpath"].Variant["debug"]
	assert.Assert(t, vc.Enable != nil && *vc.Enable)
}

func TestPropagateConflictReported(t *testing.T) {
	// The dependency pins the variant the other way; the conflict is
	// reported, never overridden.
	s := MustParse("mpileaks ++debug ^callpath ~debug")

	_, err := Propagate(s)
	assert.Assert(t, err != nil)
	assert.Assert(t, IsConflict(err))

	var ice *IncompatibleConstraintError
	assert.Assert(t, goerrors.As(err, &ice), "got %v", err)
	assert.Equal(t, ice.Package, "callpath")
	assert.Equal(t, ice.Field, "debug")
	assert.ErrorContains(t, err, "propagating ++debug from package mpileaks into dependency callpath")
}

func TestPropagateTransitive(t *testing.T) {
	s := MustParse("top ++debug ^mid")
	s.Deps["mid"].Deps["leaf"] = NewSpec("leaf")

	got, err := Propagate(s)
	assert.NilError(t, err)

	mid := got.Deps["mid"]
	leaf := mid.Deps["leaf"]
	for name, dep := range map[string]*Spec{"mid": mid, "leaf": leaf} {
		vc, ok := dep.Variant["debug"]
		assert.Assert(t, ok, "debug not injected into %s", name)
		assert.Assert(t, vc.Enable != nil && *vc.Enable)
	}
}

func TestPropagateDoesNotMutate(t *testing.T) {
	s := MustParse("mpileaks ++debug ^callpath")
	snapshot := s.Clone()

	_, err := Propagate(s)
	assert.NilError(t, err)
	assert.Assert(t, s.Equal(snapshot), "input mutated: %s", s)
}

func TestPropagateCycle(t *testing.T) {
	s := MustParse("a ^b")
	s.Deps["b"].Deps["a"] = s // deliberately cyclic

	_, err := Propagate(s)
	assert.Assert(t, err != nil)

	var dce *DependencyCycleError
	assert.Assert(t, goerrors.As(err, &dce), "got %v", err)
	assert.DeepEqual(t, dce.Path, []string{"a", "b", "a"})
}

func TestPropagateNoDeps(t *testing.T) {
	s := MustParse("pkg ++debug")

	got, err := Propagate(s)
	assert.NilError(t, err)
	assert.Assert(t, got.Equal(s))
}
