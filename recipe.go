package spec

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/pkg/errors"
)

// Recipe is the declared metadata for one package: its known releases, its
// build variants with their kinds and defaults, an optional default
// compiler, and its dependency edges. Recipes are the authority on which
// variant names are legal for a package and seed the package's default
// Spec before unification with a caller's request.
type Recipe struct {
	// Name is the package name.
	Name string `yaml:"name"`
	// Description is a short description of the package.
	Description string `yaml:"description,omitempty"`
	// Homepage is the package website.
	Homepage string `yaml:"homepage,omitempty"`
	// Versions lists the known releases, e.g. "1.8.0" or "2.0.1rc2".
	Versions []string `yaml:"versions,omitempty"`
	// Compiler is the default compiler requirement in constraint-string
	// syntax, e.g. "%gcc@7.0:".
	Compiler string `yaml:"compiler,omitempty"`
	// Variants declares the build options the package understands.
	Variants map[string]RecipeVariant `yaml:"variants,omitempty"`
	// Dependencies declares the dependency edges.
	Dependencies []RecipeDependency `yaml:"dependencies,omitempty"`

	compiler CompilerConstraint
	versions []VersionRange
	edges    []recipeEdge
}

// RecipeVariant declares one named build option.
type RecipeVariant struct {
	// Kind is the variant shape: bool, single or multi.
	Kind VariantKind `yaml:"kind"`
	// Default is the default value: "true"/"false" for bool variants, a
	// single value for single-choice, a comma-separated list for
	// multi-choice. Empty means no default constraint.
	Default string `yaml:"default,omitempty"`
	// Values restricts the acceptable values for single- and multi-choice
	// variants. Empty means any value.
	Values []string `yaml:"values,omitempty"`
	// Description documents the variant.
	Description string `yaml:"description,omitempty"`
}

// RecipeDependency declares one dependency edge.
type RecipeDependency struct {
	// Name is the dependency package name.
	Name string `yaml:"name"`
	// When is an optional condition in constraint-string syntax (without
	// the package name), e.g. "+debug" or "@2.0:". The edge only applies
	// to specs satisfying the condition.
	When string `yaml:"when,omitempty"`
	// Spec is the requirement imposed on the dependency, e.g.
	// "callpath@1.1:".
	Spec string `yaml:"spec,omitempty"`
}

type recipeEdge struct {
	name string
	when *Spec // nil for unconditional edges
	req  *Spec
}

// UnmarshalRecipe parses and validates recipe YAML.
func UnmarshalRecipe(dt []byte) (*Recipe, error) {
	var r Recipe
	if err := yaml.UnmarshalWithOptions(dt, &r, yaml.Strict()); err != nil {
		return nil, errors.Wrap(err, "error unmarshalling recipe")
	}
	if err := r.compile(); err != nil {
		return nil, err
	}
	return &r, nil
}

// LoadRecipe reads a recipe from a YAML file.
func LoadRecipe(path string) (*Recipe, error) {
	dt, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "error reading recipe")
	}
	r, err := UnmarshalRecipe(dt)
	if err != nil {
		return nil, errors.Wrapf(err, "recipe %s", path)
	}
	return r, nil
}

// Repo is a collection of recipes indexed by package name.
type Repo map[string]*Recipe

// LoadRepo reads every .yaml/.yml recipe in a directory.
func LoadRepo(dir string) (Repo, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrap(err, "error reading recipe directory")
	}
	repo := Repo{}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := filepath.Ext(entry.Name())
		if ext != ".yaml" && ext != ".yml" {
			continue
		}
		r, err := LoadRecipe(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		if prev, ok := repo[r.Name]; ok && prev != r {
			return nil, errors.Errorf("duplicate recipe for package %s", r.Name)
		}
		repo[r.Name] = r
	}
	return repo, nil
}

// compile checks the declaration for consistency and pre-parses the
// constraint strings it embeds.
func (r *Recipe) compile() error {
	if r.Name == "" {
		return errors.New("recipe has no package name")
	}

	for _, vs := range r.Versions {
		vr, err := ParseVersionRange(vs)
		if err != nil {
			return errors.Wrapf(err, "package %s: release %q", r.Name, vs)
		}
		if !vr.IsExact() {
			return errors.Errorf("package %s: release %q is not a single version", r.Name, vs)
		}
		r.versions = append(r.versions, vr)
	}

	if r.Compiler != "" {
		cc, err := parseCompilerConstraint(r.Compiler)
		if err != nil {
			return errors.Wrapf(err, "package %s: compiler default", r.Name)
		}
		r.compiler = cc
	}

	for name, decl := range r.Variants {
		if ReservedVariant(name) {
			return errors.Errorf("package %s: variant %q is a reserved name", r.Name, name)
		}
		if _, err := r.defaultConstraint(name, decl); err != nil {
			return err
		}
	}

	r.edges = r.edges[:0]
	for _, d := range r.Dependencies {
		if d.Name == "" {
			return errors.Errorf("package %s: dependency with no name", r.Name)
		}
		edge := recipeEdge{name: d.Name, req: NewSpec(d.Name)}
		if d.Spec != "" {
			req, err := Parse(d.Spec)
			if err != nil {
				return errors.Wrapf(err, "package %s: dependency %s", r.Name, d.Name)
			}
			if req.Name != d.Name {
				return errors.Errorf("package %s: dependency spec %q does not constrain %s", r.Name, d.Spec, d.Name)
			}
			edge.req = req
		}
		if d.When != "" {
			when, err := Parse(r.Name + " " + d.When)
			if err != nil {
				return errors.Wrapf(err, "package %s: dependency %s condition", r.Name, d.Name)
			}
			edge.when = when
		}
		r.edges = append(r.edges, edge)
	}
	return nil
}

// defaultConstraint turns a variant declaration's default value into a
// constraint, or returns ok=false via a nil constraint when no default is
// declared.
func (r *Recipe) defaultConstraint(name string, decl RecipeVariant) (*VariantConstraint, error) {
	if decl.Default == "" {
		return nil, nil
	}
	var vc VariantConstraint
	switch decl.Kind {
	case KindBool:
		switch decl.Default {
		case "true":
			vc = BoolVariant(true, false)
		case "false":
			vc = BoolVariant(false, false)
		default:
			return nil, errors.Errorf("package %s: bool variant %s default %q is not true/false", r.Name, name, decl.Default)
		}
	case KindSingle:
		if err := r.checkValues(name, decl, []string{decl.Default}); err != nil {
			return nil, err
		}
		vc = SingleVariant(decl.Default, false)
	case KindMulti:
		values := strings.Split(decl.Default, ",")
		if err := r.checkValues(name, decl, values); err != nil {
			return nil, err
		}
		vc = MultiVariant(values, false)
	default:
		return nil, errors.Errorf("package %s: variant %s has unknown kind", r.Name, name)
	}
	return &vc, nil
}

func (r *Recipe) checkValues(name string, decl RecipeVariant, values []string) error {
	if len(decl.Values) == 0 {
		return nil
	}
	allowed := sortedSet(decl.Values)
	for _, v := range values {
		if len(intersectStrings(allowed, []string{v})) == 0 {
			return &InvalidVariantValueError{Package: r.Name, Name: name, Value: v, Allowed: allowed}
		}
	}
	return nil
}

// DefaultSpec returns the package's declared default configuration: the
// default constraint of every variant with a default, the default
// compiler, and the unconditional dependency edges.
func (r *Recipe) DefaultSpec() *Spec {
	s := NewSpec(r.Name)
	s.Compiler = r.compiler.clone()
	for name, decl := range r.Variants {
		vc, err := r.defaultConstraint(name, decl)
		if err != nil || vc == nil {
			// Declarations were validated in compile.
			continue
		}
		s.Variant[name] = *vc
	}
	for _, edge := range r.edges {
		if edge.when != nil {
			continue
		}
		s.Deps[edge.name] = edge.req.Clone()
	}
	return s
}

// applyDefaults fills unconstrained fields of the spec from the recipe's
// declared defaults. Defaults are preferences, not requirements: a variant
// or compiler the request already constrains is left alone, so an explicit
// request can never conflict with a default.
func (r *Recipe) applyDefaults(s *Spec) {
	for name, decl := range r.Variants {
		if _, ok := s.Variant[name]; ok {
			continue
		}
		vc, err := r.defaultConstraint(name, decl)
		if err != nil || vc == nil {
			// Declarations were validated in compile.
			continue
		}
		s.Variant[name] = *vc
	}
	if s.Compiler.Unconstrained() {
		s.Compiler = r.compiler.clone()
	}
}

// EffectiveDeps returns the dependency requirements that apply to the
// given spec: every unconditional edge plus the conditional edges whose
// condition the spec satisfies. Requirements on the same dependency name
// are unified.
func (r *Recipe) EffectiveDeps(s *Spec) (map[string]*Spec, error) {
	out := map[string]*Spec{}
	for _, edge := range r.edges {
		if edge.when != nil && !s.Satisfies(edge.when) {
			continue
		}
		existing, ok := out[edge.name]
		if !ok {
			out[edge.name] = edge.req.Clone()
			continue
		}
		merged, err := Unify(existing, edge.req)
		if err != nil {
			return nil, errors.Wrapf(err, "package %s: dependency %s", r.Name, edge.name)
		}
		out[edge.name] = merged
	}
	return out, nil
}

// KnownVersion reports whether the version matches one of the declared
// releases. With no declared releases any version is acceptable.
func (r *Recipe) KnownVersion(v Version, ext string) bool {
	if len(r.versions) == 0 {
		return true
	}
	for _, rel := range r.versions {
		if rel.Lo.Compare(v) == 0 && rel.Ext == ext {
			return true
		}
	}
	return false
}

// Validate checks a requested spec against the declaration: every
// non-reserved variant must be declared with a matching kind, requested
// values must come from the declared value set, and an exactly pinned
// version must be a known release.
func (r *Recipe) Validate(s *Spec) error {
	for _, name := range sortedVariantNames(s.Variant) {
		vc := s.Variant[name]
		if ReservedVariant(name) {
			continue
		}
		decl, ok := r.Variants[name]
		if !ok {
			return &UnknownVariantError{Package: r.Name, Name: name}
		}
		if decl.Kind != vc.Kind {
			return &DuplicateVariantKindError{Package: r.Name, Name: name, A: decl.Kind, B: vc.Kind}
		}
		if len(decl.Values) > 0 {
			allowed := sortedSet(decl.Values)
			for _, v := range append(append([]string(nil), vc.AnyOf...), vc.AllOf...) {
				if len(intersectStrings(allowed, []string{v})) == 0 {
					return &InvalidVariantValueError{Package: r.Name, Name: name, Value: v, Allowed: allowed}
				}
			}
		}
	}
	for _, vr := range s.Versions {
		if vr.IsExact() && !r.KnownVersion(*vr.Lo, vr.Ext) {
			return errors.Errorf("package %s has no release %s", r.Name, vr)
		}
	}
	return nil
}

// Resolve fills a request's open fields from its package's declared
// defaults, applies the dependency edges that hold for the result, recurses
// into each dependency, and finally propagates the propagating
// constraints. Packages without a recipe in the repo pass through
// unchanged. This is a single-candidate resolution: choosing among
// alternative providers or backtracking over choices belongs to a
// resolution layer above this package.
func Resolve(request *Spec, repo Repo) (*Spec, error) {
	resolved, err := resolveSpec(request, repo, []string{})
	if err != nil {
		return nil, err
	}
	return Propagate(resolved)
}

func resolveSpec(s *Spec, repo Repo, path []string) (*Spec, error) {
	for _, seen := range path {
		if seen == s.Name {
			return nil, &DependencyCycleError{Path: append(append([]string(nil), path...), s.Name)}
		}
	}
	path = append(path, s.Name)

	out := s.Clone()
	if r, ok := repo[s.Name]; ok {
		if err := r.Validate(s); err != nil {
			return nil, err
		}
		r.applyDefaults(out)

		deps, err := r.EffectiveDeps(out)
		if err != nil {
			return nil, err
		}
		for name, req := range deps {
			existing, ok := out.Deps[name]
			if !ok {
				out.Deps[name] = req
				continue
			}
			merged, err := Unify(existing, req)
			if err != nil {
				return nil, errors.Wrapf(err, "dependency %s of package %s", name, s.Name)
			}
			out.Deps[name] = merged
		}
	}

	for _, name := range out.depNames() {
		dep, err := resolveSpec(out.Deps[name], repo, path)
		if err != nil {
			return nil, err
		}
		out.Deps[name] = dep
	}
	return out, nil
}
