package spec

import "strings"

// stateParser is a cursor over one constraint string. Grammar:
//
//	spec        = identifier specifier* ws
//	specifier   = (ws1 variant-assign) | (ws variant-flag) | (ws version)
//	            | (ws compiler) | (ws dependency)
//	variant-assign = identifier equals identifier
//	variant-flag   = ("++" | "--" | "~~" | "+" | "-" | "~") ws identifier
//	version     = ("@:" ws semver) | ("@" semver (ws ":" (ws semver)?)?)
//	compiler    = "%" ws identifier ws version?
//	dependency  = "^" ws spec-without-deps
//	semver      = digits ("." digits){0,2} ext?
//	identifier  = one-or-more of [A-Za-z0-9_./-] starting with a
//	              non-separator char
//	equals      = ws ("=" | "==") ws
//
// Parsing is pure: it builds exactly one Spec and touches no shared state.
type stateParser struct {
	input string
	pos   int
}

func (p *stateParser) eof() bool {
	return p.pos >= len(p.input)
}

func (p *stateParser) peek() byte {
	if p.eof() {
		return 0
	}
	return p.input[p.pos]
}

// skipWS consumes whitespace and returns how many bytes were skipped.
func (p *stateParser) skipWS() int {
	n := 0
	for !p.eof() {
		switch p.input[p.pos] {
		case ' ', '\t', '\n', '\r':
			p.pos++
			n++
		default:
			return n
		}
	}
	return n
}

func (p *stateParser) errHere(expected string) *ParseError {
	return p.errAt(p.pos, expected)
}

func (p *stateParser) errAt(off int, expected string) *ParseError {
	return &ParseError{Input: p.input, Offset: off, Expected: expected}
}

func isIdentStart(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || isDigit(c) || c == '_'
}

func isIdentChar(c byte) bool {
	return isIdentStart(c) || c == '.' || c == '/' || c == '-'
}

// identifier consumes an identifier token. In lax mode the leading
// separator restriction is lifted, which is needed for assignment values
// like "cflags=-O2".
func (p *stateParser) identifier(lax bool) string {
	start := p.pos
	if p.eof() {
		return ""
	}
	if !lax && !isIdentStart(p.peek()) {
		return ""
	}
	for !p.eof() && isIdentChar(p.peek()) {
		p.pos++
	}
	return p.input[start:p.pos]
}

// versionToken consumes a semver token (digits, dots and an optional
// extension tag). Validation happens in ParseVersion.
func (p *stateParser) versionToken() string {
	start := p.pos
	for !p.eof() && isVersionChar(p.peek()) {
		p.pos++
	}
	return p.input[start:p.pos]
}

// parseSpec parses "identifier specifier*". In dependency position (root
// false) a "^" hands control back to the root so that all dependency specs
// attach to the root package.
func (p *stateParser) parseSpec(root bool) (*Spec, error) {
	nameOff := p.pos
	name := p.identifier(false)
	if name == "" {
		return nil, p.errAt(nameOff, "package name")
	}
	s := NewSpec(name)

	for {
		ws := p.skipWS()
		if p.eof() {
			return s, nil
		}
		c := p.peek()
		switch {
		case c == '+' || c == '-' || c == '~':
			if err := p.parseFlag(s); err != nil {
				return nil, err
			}
		case c == '@':
			r, err := p.parseVersion()
			if err != nil {
				return nil, err
			}
			merged, err := unifyRangeSets(s.Versions, []VersionRange{r})
			if err != nil {
				return nil, tagPackage(err, s.Name)
			}
			s.Versions = merged
		case c == '%':
			if err := p.parseCompiler(s); err != nil {
				return nil, err
			}
		case c == '^':
			if !root {
				return s, nil
			}
			p.pos++
			p.skipWS()
			dep, err := p.parseSpec(false)
			if err != nil {
				return nil, err
			}
			if existing, ok := s.Deps[dep.Name]; ok {
				merged, err := Unify(existing, dep)
				if err != nil {
					return nil, err
				}
				s.Deps[dep.Name] = merged
			} else {
				s.Deps[dep.Name] = dep
			}
		case isIdentStart(c):
			if ws == 0 {
				return nil, p.errHere("whitespace before variant assignment")
			}
			if err := p.parseAssign(s); err != nil {
				return nil, err
			}
		default:
			return nil, p.errHere("specifier")
		}
	}
}

// parseFlag parses boolean variant syntax: "+name", "-name", "~name", with
// a doubled operator marking the constraint as propagating.
func (p *stateParser) parseFlag(s *Spec) error {
	op := p.peek()
	p.pos++
	propagate := false
	if p.peek() == op {
		p.pos++
		propagate = true
	}
	p.skipWS()

	nameOff := p.pos
	name := p.identifier(false)
	if name == "" {
		return p.errAt(nameOff, "variant name")
	}
	if ReservedVariant(name) {
		return &ReservedKeywordTypeError{Name: name, Offset: nameOff}
	}
	return p.addVariant(s, name, BoolVariant(op == '+', propagate))
}

// parseAssign parses "name=value" and "name==value" (propagating), plus
// the "arch=platform-os-target[-gpu]" sugar.
func (p *stateParser) parseAssign(s *Spec) error {
	name := p.identifier(false)
	p.skipWS()
	if p.peek() != '=' {
		return p.errHere(`"="`)
	}
	p.pos++
	propagate := false
	if p.peek() == '=' {
		p.pos++
		propagate = true
	}
	p.skipWS()

	valOff := p.pos
	value := p.identifier(true)
	if value == "" {
		return p.errAt(valOff, "variant value")
	}

	if name == "arch" {
		return p.expandArch(s, value, propagate, valOff)
	}
	return p.addVariant(s, name, SingleVariant(value, propagate))
}

// expandArch expands "arch=P-O-T[-G]" into the four reserved single-choice
// constraints. The value is validated up front so the expansion applies
// atomically.
func (p *stateParser) expandArch(s *Spec, value string, propagate bool, off int) error {
	parts := strings.Split(value, "-")
	if len(parts) != 3 && len(parts) != 4 {
		return p.errAt(off, "arch value of the form platform-os-target[-gpu]")
	}
	for _, part := range parts {
		if part == "" {
			return p.errAt(off, "arch value of the form platform-os-target[-gpu]")
		}
	}
	for i, part := range parts {
		if err := p.addVariant(s, archSlots[i], SingleVariant(part, propagate)); err != nil {
			return err
		}
	}
	return nil
}

// addVariant records a parsed constraint on the spec. A repeated name with
// a different kind is a typing error; a repeated name with the same kind
// narrows through the variant unifier.
func (p *stateParser) addVariant(s *Spec, name string, vc VariantConstraint) error {
	existing, ok := s.Variant[name]
	if !ok {
		s.Variant[name] = vc
		return nil
	}
	if existing.Kind != vc.Kind {
		return &DuplicateVariantKindError{Package: s.Name, Name: name, A: existing.Kind, B: vc.Kind}
	}
	merged, err := unifyVariants(name, existing, vc)
	if err != nil {
		return tagPackage(err, s.Name)
	}
	s.Variant[name] = merged
	return nil
}

// parseVersion parses "@semver", "@semver:", "@:semver", "@semver:semver"
// and the degenerate "@:". The cursor is on the "@".
func (p *stateParser) parseVersion() (VersionRange, error) {
	off := p.pos
	p.pos++

	if p.peek() == ':' {
		p.pos++
		p.skipWS()
		tokOff := p.pos
		tok := p.versionToken()
		if tok == "" {
			// "@:" alone is the unbounded range.
			return AnyVersion(), nil
		}
		return p.mkRange(tokOff, "", tok, true)
	}

	tok := p.versionToken()
	if tok == "" {
		return VersionRange{}, p.errHere("version")
	}

	save := p.pos
	p.skipWS()
	if p.peek() != ':' {
		p.pos = save
		return p.mkRange(off, tok, "", false)
	}
	p.pos++
	afterColon := p.pos
	p.skipWS()
	if !isDigit(p.peek()) {
		p.pos = afterColon
		return p.mkRange(off, tok, "", true)
	}
	hi := p.versionToken()
	return p.mkRange(off, tok, hi, true)
}

func (p *stateParser) mkRange(off int, lo, hi string, colon bool) (VersionRange, error) {
	r, err := newRange(lo, hi, colon)
	if err != nil {
		return VersionRange{}, p.errAt(off, "well-formed version range ("+err.Error()+")")
	}
	return r, nil
}

// parseCompiler parses "%name" with an optional version constraint. The
// cursor is on the "%". A second compiler specifier in the same string
// unifies with the first.
func (p *stateParser) parseCompiler(s *Spec) error {
	p.pos++
	p.skipWS()

	nameOff := p.pos
	name := p.identifier(false)
	if name == "" {
		return p.errAt(nameOff, "compiler name")
	}

	cc := CompilerConstraint{Name: name}
	save := p.pos
	p.skipWS()
	if p.peek() == '@' {
		r, err := p.parseVersion()
		if err != nil {
			return err
		}
		cc.Versions = []VersionRange{r}
	} else {
		p.pos = save
	}

	merged, err := unifyCompilers(s.Compiler, cc)
	if err != nil {
		return tagPackage(err, s.Name)
	}
	s.Compiler = merged
	return nil
}

// parseCompilerConstraint parses a standalone "%name@versions" string, as
// used for compiler defaults in recipe files.
func parseCompilerConstraint(input string) (CompilerConstraint, error) {
	p := &stateParser{input: input}
	p.skipWS()
	if p.peek() != '%' {
		return CompilerConstraint{}, p.errHere(`"%"`)
	}
	s := NewSpec("_")
	if err := p.parseCompiler(s); err != nil {
		return CompilerConstraint{}, err
	}
	p.skipWS()
	if !p.eof() {
		return CompilerConstraint{}, p.errHere("end of input")
	}
	return s.Compiler, nil
}
