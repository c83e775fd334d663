package spec

import (
	goerrors "errors"
	"testing"

	"github.com/google/go-cmp/cmp/cmpopts"
	"gotest.tools/v3/assert"
)

func TestUnifyVersions(t *testing.T) {
	a := MustParse("mpileaks @1.2:1.4")
	b := MustParse("mpileaks @1.3:1.6")

	got, err := Unify(a, b)
	assert.NilError(t, err)
	assert.Equal(t, got.String(), "mpileaks @1.3:1.4")
}

func TestUnifyVersionConflict(t *testing.T) {
	a := MustParse("mpileaks @1.2:1.4")
	b := MustParse("mpileaks @1.5:1.6")

	_, err := Unify(a, b)
	assert.Assert(t, err != nil)

	var vrc *VersionRangeConflictError
	assert.Assert(t, goerrors.As(err, &vrc), "got %v", err)
	assert.Equal(t, vrc.Package, "mpileaks")
	assert.Assert(t, IsConflict(err))
}

func TestUnifyBoolConflict(t *testing.T) {
	_, err := Unify(MustParse("pkg +debug"), MustParse("pkg ~debug"))
	assert.Assert(t, err != nil)

	var ice *IncompatibleConstraintError
	assert.Assert(t, goerrors.As(err, &ice), "got %v", err)
	assert.Equal(t, ice.Package, "pkg")
	assert.Equal(t, ice.Field, "debug")
}

func TestUnifyFlagValueConflict(t *testing.T) {
	_, err := Unify(MustParse("pkg cflags=-O2"), MustParse("pkg cflags=-O3"))
	assert.Assert(t, err != nil)

	var eie *EmptyIntersectionError
	assert.Assert(t, goerrors.As(err, &eie), "got %v", err)
	assert.Equal(t, eie.Field, "cflags")
	assert.DeepEqual(t, eie.A, []string{"-O2"})
	assert.DeepEqual(t, eie.B, []string{"-O3"})
}

func TestUnifyNameMismatch(t *testing.T) {
	_, err := Unify(MustParse("mpileaks"), MustParse("callpath"))
	assert.Assert(t, err != nil)

	var ice *IncompatibleConstraintError
	assert.Assert(t, goerrors.As(err, &ice), "got %v", err)
	assert.Equal(t, ice.Field, "name")
}

func TestUnifyDisjointFields(t *testing.T) {
	// Constraints on different fields merge without interference.
	a := MustParse("mpileaks @1.2: +debug")
	b := MustParse("mpileaks %gcc@4.7.3 os=CNL10")

	got, err := Unify(a, b)
	assert.NilError(t, err)
	assert.Equal(t, got.String(), "mpileaks @1.2: %gcc@4.7.3 +debug os=CNL10")
}

func TestUnifyCompiler(t *testing.T) {
	got, err := Unify(MustParse("pkg %gcc@4:"), MustParse("pkg %gcc@:5"))
	assert.NilError(t, err)
	assert.Equal(t, got.Compiler.Name, "gcc")
	assert.Equal(t, got.Compiler.Versions[0].String(), "4:5")

	_, err = Unify(MustParse("pkg %gcc"), MustParse("pkg %clang"))
	var ice *IncompatibleConstraintError
	assert.Assert(t, goerrors.As(err, &ice), "got %v", err)
	assert.Equal(t, ice.Field, "compiler")
	assert.Equal(t, ice.Package, "pkg")
}

func TestUnifyDeps(t *testing.T) {
	a := MustParse("root ^mpi@2: ^zlib")
	b := MustParse("root ^mpi@:3 ^openssl")

	got, err := Unify(a, b)
	assert.NilError(t, err)
	assert.DeepEqual(t, got.depNames(), []string{"mpi", "openssl", "zlib"})
	assert.Equal(t, got.Deps["mpi"].Versions[0].String(), "2:3")
}

func TestUnifyDepConflict(t *testing.T) {
	a := MustParse("root ^mpi +shared")
	b := MustParse("root ^mpi ~shared")

	_, err := Unify(a, b)
	assert.Assert(t, err != nil)
	assert.Assert(t, IsConflict(err))

	var ice *IncompatibleConstraintError
	assert.Assert(t, goerrors.As(err, &ice), "got %v", err)
	assert.Equal(t, ice.Package, "mpi")
}

func TestUnifyDoesNotMutate(t *testing.T) {
	a := MustParse("pkg @1.2:1.4 +debug ^mpi")
	b := MustParse("pkg @1.3: os=CNL10 ^mpi +fast")
	aCopy := a.Clone()
	bCopy := b.Clone()

	_, err := Unify(a, b)
	assert.NilError(t, err)
	assert.Assert(t, a.Equal(aCopy), "left input mutated: %s", a)
	assert.Assert(t, b.Equal(bCopy), "right input mutated: %s", b)
}

func TestUnifyCommutative(t *testing.T) {
	specs := []string{
		"pkg",
		"pkg @1.2:1.4",
		"pkg @1.3:1.6 +debug",
		"pkg %gcc@4.7.3 os=CNL10",
		"pkg ++debug ^mpi@2:",
		"pkg cflags=-O2 ^mpi +fast",
	}

	for _, sa := range specs {
		for _, sb := range specs {
			a, b := MustParse(sa), MustParse(sb)
			ab, errAB := Unify(a, b)
			ba, errBA := Unify(b, a)
			if errAB != nil || errBA != nil {
				assert.Assert(t, errAB != nil && errBA != nil,
					"unify(%q, %q) and the reverse disagree on failure", sa, sb)
				continue
			}
			assert.Assert(t, ab.Equal(ba), "unify(%q, %q) = %s but reverse = %s", sa, sb, ab, ba)
		}
	}
}

func TestUnifyAssociative(t *testing.T) {
	a := MustParse("pkg @1.2:1.6 +debug")
	b := MustParse("pkg @1.3: os=CNL10")
	c := MustParse("pkg @:1.5 %gcc")

	ab, err := Unify(a, b)
	assert.NilError(t, err)
	abc1, err := Unify(ab, c)
	assert.NilError(t, err)

	bc, err := Unify(b, c)
	assert.NilError(t, err)
	abc2, err := Unify(a, bc)
	assert.NilError(t, err)

	assert.Assert(t, abc1.Equal(abc2), "(a·b)·c = %s but a·(b·c) = %s", abc1, abc2)
	assert.Equal(t, abc1.String(), "pkg @1.3:1.5 %gcc +debug os=CNL10")
}

func TestUnifyIdempotent(t *testing.T) {
	for _, in := range []string{
		"pkg",
		"pkg @1.2:1.4 +debug os=CNL10 %gcc@4.7.3 ^mpi@2: +fast",
		"pkg ++debug cflags==-O2",
	} {
		s := MustParse(in)
		got, err := Unify(s, s)
		assert.NilError(t, err)
		assert.Assert(t, got.Equal(s), "unify(%q, itself) = %s", in, got)
		assert.DeepEqual(t, got, s, cmpopts.EquateEmpty())
	}
}

func TestSatisfies(t *testing.T) {
	s := MustParse("pkg @1.2:1.4 +debug os=CNL10")

	assert.Assert(t, s.Satisfies(MustParse("pkg")))
	assert.Assert(t, s.Satisfies(MustParse("pkg +debug")))
	assert.Assert(t, s.Satisfies(MustParse("pkg @1.2:1.4")))
	assert.Assert(t, s.Satisfies(MustParse("pkg @1:2")))
	assert.Assert(t, !s.Satisfies(MustParse("pkg ~debug")))
	assert.Assert(t, !s.Satisfies(MustParse("pkg +fast")))
	assert.Assert(t, !s.Satisfies(MustParse("pkg @1.3:1.4")))
}
