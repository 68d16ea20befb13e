package engine

import (
	"fmt"
	"math"
	"strings"

	"github.com/chazu/blockphantom/pkg/geom"
	"github.com/chazu/blockphantom/pkg/graph"
	"github.com/chazu/blockphantom/pkg/phantom"
	zygo "github.com/glycerine/zygomys/zygo"
	"gonum.org/v1/gonum/spatial/r3"
)

// preprocessSource rewrites script source before it reaches zygomys:
//
//  1. :keyword becomes the string literal "__kw_keyword", so keywords need
//     not be registered as globals.
//  2. kebab-case identifiers become snake_case (rotate-about becomes
//     rotate_about); zygomys reads a bare hyphen as subtraction.
//  3. ; line comments become // comments.
//
// String literals are copied untouched.
func preprocessSource(source string) string {
	b := []byte(source)
	out := make([]byte, 0, len(b)+len(b)/4)
	for i := 0; i < len(b); {
		switch c := b[i]; {
		case c == '"' || c == '`':
			j := quotedEnd(b, i)
			out = append(out, b[i:j]...)
			i = j

		case c == ';':
			out = append(out, '/', '/')
			for i < len(b) && b[i] == ';' {
				i++
			}
			j := i
			for j < len(b) && b[j] != '\n' {
				j++
			}
			out = append(out, b[i:j]...)
			i = j

		case c == ':' && i+1 < len(b) && b[i+1] == '=':
			out = append(out, ':', '=')
			i += 2

		case c == ':' && i+1 < len(b) && isLetter(b[i+1]):
			j := i + 1
			for j < len(b) && isKWChar(b[j]) {
				j++
			}
			out = append(out, '"')
			out = append(out, kwPrefix...)
			out = append(out, b[i+1:j]...)
			out = append(out, '"')
			i = j

		case c == '-' && i > 0 && i+1 < len(b) && isIdentChar(b[i-1]) && isLetter(b[i+1]):
			out = append(out, '_')
			i++

		default:
			out = append(out, c)
			i++
		}
	}
	return string(out)
}

// quotedEnd returns the index just past the literal opening at b[i].
// Backslash escapes apply inside double quotes only.
func quotedEnd(b []byte, i int) int {
	q := b[i]
	j := i + 1
	for j < len(b) && b[j] != q {
		if q == '"' && b[j] == '\\' && j+1 < len(b) {
			j++
		}
		j++
	}
	if j < len(b) {
		j++
	}
	return j
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

// sexpNodeRef wraps a graph.NodeID so it can be passed between builtins.
type sexpNodeRef struct {
	id   graph.NodeID
	name string
}

func (n *sexpNodeRef) SexpString(ps *zygo.PrintState) string {
	if n.name != "" {
		return fmt.Sprintf("(part %q)", n.name)
	}
	return fmt.Sprintf("(noderef %s)", n.id)
}
func (n *sexpNodeRef) Type() *zygo.RegisteredType { return nil }

// sexpVec3 wraps a point or offset.
type sexpVec3 struct {
	vec r3.Vec
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// sexpSteps wraps quarter-turn counts about X, Y and Z.
type sexpSteps struct {
	steps geom.Steps
}

func (s *sexpSteps) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(steps %d %d %d)", s.steps[0], s.steps[1], s.steps[2])
}
func (s *sexpSteps) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW reports whether s is a preprocessed keyword and returns its name.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok || !strings.HasPrefix(str.S, kwPrefix) {
		return "", false
	}
	return str.S[len(kwPrefix):], true
}

// kwArgs holds the result of parsing a mixed positional+keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// argKeywords are the keyword argument names builtins read. Any other
// keyword, such as :full or :half, is a value.
var argKeywords = map[string]bool{
	"name":      true,
	"type":      true,
	"at":        true,
	"steps":     true,
	"connector": true,
}

// flagKeywords may stand alone and then read as true.
var flagKeywords = map[string]bool{
	"connector": true,
}

// argKeyword reports whether s names a keyword argument.
func argKeyword(s zygo.Sexp) (string, bool) {
	name, ok := isKW(s)
	if !ok || !argKeywords[name] {
		return "", false
	}
	return name, true
}

// parseArgs separates args into keyword and positional arguments. Only
// argKeywords start a keyword argument; other keywords are passed on as
// values. A flag keyword followed by another argument keyword, or by
// nothing, reads as true.
func parseArgs(args []zygo.Sexp) kwArgs {
	res := kwArgs{kw: make(map[string]zygo.Sexp)}
	for i := 0; i < len(args); i++ {
		name, ok := argKeyword(args[i])
		if !ok {
			res.positional = append(res.positional, args[i])
			continue
		}
		if i+1 < len(args) {
			if _, next := argKeyword(args[i+1]); !next || !flagKeywords[name] {
				res.kw[name] = args[i+1]
				i++
				continue
			}
		}
		res.kw[name] = &zygo.SexpBool{Val: flagKeywords[name]}
	}
	return res
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

func describe(s zygo.Sexp) string {
	return fmt.Sprintf("%T (%s)", s, s.SexpString(nil))
}

// toFloat64 extracts a float64 from a Sexp (SexpInt or SexpFloat).
func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %s", describe(s))
}

// toInt extracts an int32-range integer; floats are accepted when integral.
func toInt(s zygo.Sexp) (int, error) {
	if v, ok := s.(*zygo.SexpInt); ok {
		if v.Val > math.MaxInt32 || v.Val < math.MinInt32 {
			return 0, fmt.Errorf("%w: integer %d out of range", phantom.ErrInvalidInput, v.Val)
		}
		return int(v.Val), nil
	}
	f, err := toFloat64(s)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, fmt.Errorf("%w: expected integer, got %v", phantom.ErrInvalidInput, f)
	}
	return int(f), nil
}

// toString extracts a string from a Sexp.
func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %s", describe(s))
}

// toKeywordString accepts a preprocessed keyword (:full) or a plain string.
func toKeywordString(s zygo.Sexp) (string, error) {
	str, ok := s.(*zygo.SexpStr)
	if !ok {
		return "", fmt.Errorf("expected keyword or string, got %s", describe(s))
	}
	return strings.TrimPrefix(str.S, kwPrefix), nil
}

func toBool(s zygo.Sexp) (bool, error) {
	switch v := s.(type) {
	case *zygo.SexpBool:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return false, nil
		}
	}
	return false, fmt.Errorf("expected true or false, got %s", describe(s))
}

func toBlockType(s zygo.Sexp) (phantom.BlockType, error) {
	name, err := toKeywordString(s)
	if err != nil {
		return 0, fmt.Errorf("expected block type (:full, :half): %w", err)
	}
	return phantom.ParseBlockType(name)
}

// toNodeRef extracts a NodeID from a sexpNodeRef.
func toNodeRef(s zygo.Sexp) (graph.NodeID, error) {
	if ref, ok := s.(*sexpNodeRef); ok {
		return ref.id, nil
	}
	return "", fmt.Errorf("expected node reference, got %s", describe(s))
}

// toNumbers converts a list or array of numbers.
func toNumbers(s zygo.Sexp) ([]float64, error) {
	items, err := sexpListToSlice(s)
	if err != nil {
		return nil, err
	}
	out := make([]float64, len(items))
	for i, item := range items {
		if out[i], err = toFloat64(item); err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
	}
	return out, nil
}

// toVec3 accepts (vec3 x y z) or a three element list or array.
func toVec3(s zygo.Sexp) (r3.Vec, error) {
	if v, ok := s.(*sexpVec3); ok {
		return v.vec, nil
	}
	nums, err := toNumbers(s)
	if err != nil {
		return r3.Vec{}, fmt.Errorf("expected vec3: %w", err)
	}
	if len(nums) != 3 {
		return r3.Vec{}, fmt.Errorf("%w: vec3 needs 3 values, got %d", phantom.ErrInvalidInput, len(nums))
	}
	return r3.Vec{X: nums[0], Y: nums[1], Z: nums[2]}, nil
}

// toSteps accepts (steps x y z) or a three element list or array.
func toSteps(s zygo.Sexp) (geom.Steps, error) {
	if v, ok := s.(*sexpSteps); ok {
		return v.steps, nil
	}
	nums, err := toNumbers(s)
	if err != nil {
		return geom.Steps{}, fmt.Errorf("expected steps: %w", err)
	}
	return geom.StepsFromFloats(nums)
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

// builtinFailure keeps the Go error of the builtin that aborted a script.
// zygomys flattens builtin errors into text, which would lose the sentinel.
type builtinFailure struct {
	err error
}

type builtin func(a *graph.Assembly, pa kwArgs) (zygo.Sexp, error)

// registerBuiltins installs the assembly builtins into a zygomys
// environment. Each builtin mutates a, and the first failing builtin is
// recorded in failed.
//
// Source must go through preprocessSource first so :keyword tokens are
// recognizable and kebab-case names match the snake_case registrations.
func registerBuiltins(env *zygo.Zlisp, a *graph.Assembly, failed *builtinFailure) {
	add := func(name string, fn builtin) {
		env.AddFunction(name, func(env *zygo.Zlisp, _ string, args []zygo.Sexp) (zygo.Sexp, error) {
			res, err := fn(a, parseArgs(args))
			if err != nil {
				err = fmt.Errorf("%s: %w", strings.ReplaceAll(name, "_", "-"), err)
				if failed.err == nil {
					failed.err = err
				}
				return zygo.SexpNull, err
			}
			return res, nil
		})
	}

	add("vec3", builtinVec3)
	add("steps", builtinSteps)
	add("block", builtinBlock)
	add("part", builtinPart)
	add("connect", builtinConnect)
	add("rotate_about", builtinRotateAbout)
	add("add_connector", builtinAddConnector)
	add("place", builtinPlace)
	add("hole_status", builtinHoleStatus)
}

func ref(a *graph.Assembly, id graph.NodeID) *sexpNodeRef {
	n := a.Get(id)
	return &sexpNodeRef{id: id, name: n.Name}
}

func positional(pa kwArgs, want int, usage string) error {
	if len(pa.positional) < want {
		return fmt.Errorf("usage %s", usage)
	}
	return nil
}

func optionalName(pa kwArgs) (string, error) {
	v, ok := pa.kw["name"]
	if !ok {
		return "", nil
	}
	s, err := toString(v)
	if err != nil {
		return "", fmt.Errorf("name: %w", err)
	}
	return s, nil
}

// (vec3 1 2 3)
func builtinVec3(_ *graph.Assembly, pa kwArgs) (zygo.Sexp, error) {
	if len(pa.positional) != 3 {
		return nil, fmt.Errorf("requires exactly 3 arguments, got %d", len(pa.positional))
	}
	v, err := toVec3(&zygo.SexpArray{Val: pa.positional})
	if err != nil {
		return nil, err
	}
	return &sexpVec3{vec: v}, nil
}

// (steps 0 1 1)
func builtinSteps(_ *graph.Assembly, pa kwArgs) (zygo.Sexp, error) {
	s, err := toSteps(&zygo.SexpArray{Val: pa.positional})
	if err != nil {
		return nil, err
	}
	return &sexpSteps{steps: s}, nil
}

// (block :type :full :name "crotch" :at (vec3 0 0 0) :steps (steps 0 1 1))
func builtinBlock(a *graph.Assembly, pa kwArgs) (zygo.Sexp, error) {
	typ := phantom.Full
	if v, ok := pa.kw["type"]; ok {
		t, err := toBlockType(v)
		if err != nil {
			return nil, fmt.Errorf("type: %w", err)
		}
		typ = t
	}
	var at r3.Vec
	if v, ok := pa.kw["at"]; ok {
		p, err := toVec3(v)
		if err != nil {
			return nil, fmt.Errorf("at: %w", err)
		}
		at = p
	}
	var steps geom.Steps
	if v, ok := pa.kw["steps"]; ok {
		s, err := toSteps(v)
		if err != nil {
			return nil, fmt.Errorf("steps: %w", err)
		}
		steps = s
	}
	name, err := optionalName(pa)
	if err != nil {
		return nil, err
	}
	id, err := a.AddBlock(name, typ, at, steps)
	if err != nil {
		return nil, err
	}
	return ref(a, id), nil
}

// (part "crotch")
func builtinPart(a *graph.Assembly, pa kwArgs) (zygo.Sexp, error) {
	if err := positional(pa, 1, `(part "name")`); err != nil {
		return nil, err
	}
	name, err := toString(pa.positional[0])
	if err != nil {
		return nil, fmt.Errorf("name: %w", err)
	}
	n := a.Lookup(name)
	if n == nil {
		return nil, fmt.Errorf("%w: no part named %q", graph.ErrUnknownNode, name)
	}
	return ref(a, n.ID), nil
}

// (connect crotch 22 :full 2 :connector true :name "left-leg")
func builtinConnect(a *graph.Assembly, pa kwArgs) (zygo.Sexp, error) {
	if err := positional(pa, 4, "(connect receiver hole type foreign-hole)"); err != nil {
		return nil, err
	}
	receiver, err := toNodeRef(pa.positional[0])
	if err != nil {
		return nil, fmt.Errorf("receiver: %w", err)
	}
	local, err := toInt(pa.positional[1])
	if err != nil {
		return nil, fmt.Errorf("hole: %w", err)
	}
	typ, err := toBlockType(pa.positional[2])
	if err != nil {
		return nil, fmt.Errorf("type: %w", err)
	}
	foreign, err := toInt(pa.positional[3])
	if err != nil {
		return nil, fmt.Errorf("foreign hole: %w", err)
	}
	withConnector := false
	if v, ok := pa.kw["connector"]; ok {
		if withConnector, err = toBool(v); err != nil {
			return nil, fmt.Errorf("connector: %w", err)
		}
	}
	name, err := optionalName(pa)
	if err != nil {
		return nil, err
	}
	id, err := a.Connect(name, receiver, local, typ, foreign, withConnector)
	if err != nil {
		return nil, err
	}
	return ref(a, id), nil
}

// (rotate-about leg 2 (steps 0 1 0))
func builtinRotateAbout(a *graph.Assembly, pa kwArgs) (zygo.Sexp, error) {
	if err := positional(pa, 3, "(rotate-about block hole steps)"); err != nil {
		return nil, err
	}
	id, err := toNodeRef(pa.positional[0])
	if err != nil {
		return nil, fmt.Errorf("block: %w", err)
	}
	hole, err := toInt(pa.positional[1])
	if err != nil {
		return nil, fmt.Errorf("hole: %w", err)
	}
	steps, err := toSteps(pa.positional[2])
	if err != nil {
		return nil, fmt.Errorf("steps: %w", err)
	}
	if err := a.RotateAboutConnection(id, hole, steps); err != nil {
		return nil, err
	}
	return ref(a, id), nil
}

// (add-connector crotch 13 :name "peg")
func builtinAddConnector(a *graph.Assembly, pa kwArgs) (zygo.Sexp, error) {
	if err := positional(pa, 2, "(add-connector block hole)"); err != nil {
		return nil, err
	}
	id, err := toNodeRef(pa.positional[0])
	if err != nil {
		return nil, fmt.Errorf("block: %w", err)
	}
	hole, err := toInt(pa.positional[1])
	if err != nil {
		return nil, fmt.Errorf("hole: %w", err)
	}
	name, err := optionalName(pa)
	if err != nil {
		return nil, err
	}
	cid, err := a.AddConnector(name, id, hole)
	if err != nil {
		return nil, err
	}
	return ref(a, cid), nil
}

// (place crotch :at (vec3 0 40 0) :steps (steps 0 0 1))
func builtinPlace(a *graph.Assembly, pa kwArgs) (zygo.Sexp, error) {
	if err := positional(pa, 1, "(place block :at vec3 :steps steps)"); err != nil {
		return nil, err
	}
	id, err := toNodeRef(pa.positional[0])
	if err != nil {
		return nil, fmt.Errorf("block: %w", err)
	}
	var at r3.Vec
	if v, ok := pa.kw["at"]; ok {
		if at, err = toVec3(v); err != nil {
			return nil, fmt.Errorf("at: %w", err)
		}
	}
	var steps geom.Steps
	if v, ok := pa.kw["steps"]; ok {
		if steps, err = toSteps(v); err != nil {
			return nil, fmt.Errorf("steps: %w", err)
		}
	}
	if err := a.Place(id, geom.FromSteps(at, steps)); err != nil {
		return nil, err
	}
	return ref(a, id), nil
}

// (hole-status crotch 22) => "connected+connector"
func builtinHoleStatus(a *graph.Assembly, pa kwArgs) (zygo.Sexp, error) {
	if err := positional(pa, 2, "(hole-status block hole)"); err != nil {
		return nil, err
	}
	id, err := toNodeRef(pa.positional[0])
	if err != nil {
		return nil, fmt.Errorf("block: %w", err)
	}
	hole, err := toInt(pa.positional[1])
	if err != nil {
		return nil, fmt.Errorf("hole: %w", err)
	}
	b, err := a.Block(id)
	if err != nil {
		return nil, err
	}
	st, err := b.Status(hole)
	if err != nil {
		return nil, err
	}
	return &zygo.SexpStr{S: st.String()}, nil
}
