package glsl

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

var (
	ErrUnsupported = errors.New("glsl: construct not supported by the evaluator")
	ErrType        = errors.New("glsl: operand type mismatch")
	ErrUndeclared  = errors.New("glsl: undeclared variable")
)

// Value is a float (N=1), a vector (N=2..4) or a bool (N=0, V[0] != 0).
type Value struct {
	N int
	V [4]float32
}

// Float wraps a scalar.
func Float(f float32) Value { return Value{N: 1, V: [4]float32{f}} }

// FromVec4 wraps a vec4.
func FromVec4(v mgl32.Vec4) Value { return Value{N: 4, V: v} }

// Vec4 widens v to four components, padding with zero.
func (v Value) Vec4() mgl32.Vec4 { return mgl32.Vec4(v.V) }

func boolValue(b bool) Value {
	if b {
		return Value{V: [4]float32{1}}
	}
	return Value{}
}

// Env is the interpreter state for one fragment.
type Env struct {
	// Globals holds built-ins such as gl_FragColor and gl_TexCoord[N].
	Globals map[string]Value
	// Sample resolves texture2D calls.
	Sample func(sampler string, st mgl32.Vec2) mgl32.Vec4

	Discarded bool

	prog   *Program
	frames []map[string]Value
}

type flow int

const (
	flowNext flow = iota
	flowReturn
	flowDiscard
)

// Run interprets function entry of p against env.
func (p *Program) Run(env *Env, entry string) error {
	if env.Globals == nil {
		env.Globals = make(map[string]Value)
	}
	env.prog = p
	f := p.Func(entry)
	if f == nil {
		return fmt.Errorf("%w: no function %q", ErrUndeclared, entry)
	}
	_, err := env.call(f, nil)
	return err
}

func (e *Env) call(f *Func, args []Value) (flow, error) {
	frame := make(map[string]Value, len(f.Params)+8)
	for k, prm := range f.Params {
		if k < len(args) {
			frame[prm.Name] = args[k]
		}
	}
	e.frames = append(e.frames, frame)
	defer func() { e.frames = e.frames[:len(e.frames)-1] }()
	fl, err := execBlock(e, f.Body)
	if fl == flowReturn {
		fl = flowNext
	}
	return fl, err
}

func (e *Env) lookup(name string) (Value, error) {
	if n := len(e.frames); n > 0 {
		if v, ok := e.frames[n-1][name]; ok {
			return v, nil
		}
	}
	if v, ok := e.Globals[name]; ok {
		return v, nil
	}
	return Value{}, fmt.Errorf("%w: %s", ErrUndeclared, name)
}

func (e *Env) store(name string, v Value) {
	if n := len(e.frames); n > 0 {
		if _, ok := e.frames[n-1][name]; ok {
			e.frames[n-1][name] = v
			return
		}
	}
	e.Globals[name] = v
}

func execBlock(e *Env, stmts []Stmt) (flow, error) {
	for _, s := range stmts {
		fl, err := s.exec(e)
		if err != nil || fl != flowNext {
			return fl, err
		}
	}
	return flowNext, nil
}

func width(typ string) int {
	switch typ {
	case "vec2":
		return 2
	case "vec3":
		return 3
	case "vec4":
		return 4
	case "bool":
		return 0
	default:
		return 1
	}
}

func (s Decl) exec(e *Env) (flow, error) {
	frame := e.frames[len(e.frames)-1]
	for _, name := range s.Names {
		frame[name] = Value{N: width(s.Type)}
	}
	if s.Init != nil && len(s.Names) == 1 {
		v, err := s.Init.eval(e)
		if err != nil {
			return flowNext, err
		}
		frame[s.Names[0]] = v
	}
	return flowNext, nil
}

func (s Assign) exec(e *Env) (flow, error) {
	rhs, err := s.RHS.eval(e)
	if err != nil {
		return flowNext, err
	}
	switch s.Op {
	case "=":
	case "*=", "+=":
		cur, err := s.LHS.eval(e)
		if err != nil {
			return flowNext, err
		}
		if rhs, err = arith(s.Op[:1], cur, rhs); err != nil {
			return flowNext, err
		}
	default:
		return flowNext, fmt.Errorf("%w: assignment %q", ErrUnsupported, s.Op)
	}
	return flowNext, assign(e, s.LHS, rhs)
}

func assign(e *Env, lhs Expr, v Value) error {
	switch x := lhs.(type) {
	case Ref:
		e.store(string(x), v)
		return nil
	case Swizzle:
		base, ok := x.X.(Ref)
		if !ok {
			return fmt.Errorf("%w: nested swizzle target", ErrUnsupported)
		}
		cur, err := e.lookup(string(base))
		if err != nil {
			return err
		}
		for k := range len(x.Sel) {
			c, err := component(x.Sel[k])
			if err != nil {
				return err
			}
			if v.N == 1 {
				cur.V[c] = v.V[0]
			} else {
				cur.V[c] = v.V[k]
			}
		}
		e.store(string(base), cur)
		return nil
	case Index:
		base, ok := x.X.(Ref)
		if !ok {
			return fmt.Errorf("%w: nested index target", ErrUnsupported)
		}
		cur, err := e.lookup(string(base))
		if err != nil {
			return err
		}
		cur.V[x.I] = v.V[0]
		e.store(string(base), cur)
		return nil
	}
	return fmt.Errorf("%w: assignment target %T", ErrUnsupported, lhs)
}

func (s *If) exec(e *Env) (flow, error) {
	c, err := s.Cond.eval(e)
	if err != nil {
		return flowNext, err
	}
	if c.N != 0 {
		return flowNext, fmt.Errorf("%w: non-bool condition", ErrType)
	}
	if c.V[0] != 0 {
		return execBlock(e, s.Then)
	}
	return execBlock(e, s.Else)
}

func (Return) exec(*Env) (flow, error) { return flowReturn, nil }

func (Discard) exec(e *Env) (flow, error) {
	e.Discarded = true
	return flowDiscard, nil
}

func (s ExprStmt) exec(e *Env) (flow, error) {
	if c, ok := s.X.(Call); ok {
		if f := e.prog.Func(c.Fn); f != nil {
			args := make([]Value, len(c.Args))
			for k, a := range c.Args {
				v, err := a.eval(e)
				if err != nil {
					return flowNext, err
				}
				args[k] = v
			}
			return e.call(f, args)
		}
	}
	_, err := s.X.eval(e)
	return flowNext, err
}

func (x Lit) eval(*Env) (Value, error) { return Float(float32(x)), nil }

func (x BoolLit) eval(*Env) (Value, error) { return boolValue(bool(x)), nil }

func (x Ref) eval(e *Env) (Value, error) { return e.lookup(string(x)) }

func component(c byte) (int, error) {
	if k := strings.IndexByte("xyzw", c); k >= 0 {
		return k, nil
	}
	if k := strings.IndexByte("rgba", c); k >= 0 {
		return k, nil
	}
	if k := strings.IndexByte("stpq", c); k >= 0 {
		return k, nil
	}
	return 0, fmt.Errorf("%w: swizzle %q", ErrUnsupported, c)
}

func (x Swizzle) eval(e *Env) (Value, error) {
	v, err := x.X.eval(e)
	if err != nil {
		return Value{}, err
	}
	out := Value{N: len(x.Sel)}
	for k := range len(x.Sel) {
		c, err := component(x.Sel[k])
		if err != nil {
			return Value{}, err
		}
		out.V[k] = v.V[c]
	}
	return out, nil
}

func (x Index) eval(e *Env) (Value, error) {
	v, err := x.X.eval(e)
	if err != nil {
		return Value{}, err
	}
	return Float(v.V[x.I]), nil
}

func (x Binary) eval(e *Env) (Value, error) {
	l, err := x.L.eval(e)
	if err != nil {
		return Value{}, err
	}
	if x.Op == "&&" && l.N == 0 && l.V[0] == 0 {
		return l, nil
	}
	r, err := x.R.eval(e)
	if err != nil {
		return Value{}, err
	}
	switch x.Op {
	case "&&":
		return boolValue(l.V[0] != 0 && r.V[0] != 0), nil
	case "<", "<=", ">", ">=", "!=":
		if l.N != 1 || r.N != 1 {
			return Value{}, fmt.Errorf("%w: vector comparison", ErrType)
		}
		a, b := l.V[0], r.V[0]
		switch x.Op {
		case "<":
			return boolValue(a < b), nil
		case "<=":
			return boolValue(a <= b), nil
		case ">":
			return boolValue(a > b), nil
		case "!=":
			return boolValue(a != b), nil
		default:
			return boolValue(a >= b), nil
		}
	}
	return arith(x.Op, l, r)
}

// arith applies op component-wise, broadcasting scalars.
func arith(op string, l, r Value) (Value, error) {
	n := l.N
	switch {
	case l.N == r.N:
	case l.N == 1:
		n = r.N
		l = splat(l.V[0], n)
	case r.N == 1:
		r = splat(r.V[0], n)
	default:
		return Value{}, fmt.Errorf("%w: %d %s %d", ErrType, l.N, op, r.N)
	}
	out := Value{N: n}
	for k := range n {
		a, b := l.V[k], r.V[k]
		switch op {
		case "+":
			out.V[k] = a + b
		case "-":
			out.V[k] = a - b
		case "*":
			out.V[k] = a * b
		case "/":
			out.V[k] = a / b
		default:
			return Value{}, fmt.Errorf("%w: operator %q", ErrUnsupported, op)
		}
	}
	return out, nil
}

func splat(f float32, n int) Value {
	v := Value{N: n}
	for k := range n {
		v.V[k] = f
	}
	return v
}

func (x Call) eval(e *Env) (Value, error) {
	if x.Fn == "texture2D" {
		return e.texture(x)
	}
	args := make([]Value, len(x.Args))
	for k, a := range x.Args {
		v, err := a.eval(e)
		if err != nil {
			return Value{}, err
		}
		args[k] = v
	}
	switch x.Fn {
	case "vec2", "vec3", "vec4":
		n, _ := strconv.Atoi(x.Fn[3:])
		if len(args) == 1 && args[0].N == 1 {
			return splat(args[0].V[0], n), nil
		}
		out := Value{N: n}
		k := 0
		for _, a := range args {
			for c := 0; c < a.N && k < n; c++ {
				out.V[k] = a.V[c]
				k++
			}
		}
		return out, nil
	case "mix":
		if len(args) != 3 {
			break
		}
		inv, err := arith("-", Float(1), args[2])
		if err != nil {
			return Value{}, err
		}
		a, err := arith("*", args[0], inv)
		if err != nil {
			return Value{}, err
		}
		b, err := arith("*", args[1], args[2])
		if err != nil {
			return Value{}, err
		}
		return arith("+", a, b)
	case "max", "min":
		if len(args) != 2 {
			break
		}
		return pairwise(args[0], args[1], x.Fn == "max")
	case "clamp":
		if len(args) != 3 {
			break
		}
		lo, err := pairwise(args[0], args[1], true)
		if err != nil {
			return Value{}, err
		}
		return pairwise(lo, args[2], false)
	case "abs":
		if len(args) != 1 {
			break
		}
		out := args[0]
		for k := range out.N {
			out.V[k] = math32.Abs(out.V[k])
		}
		return out, nil
	}
	return Value{}, fmt.Errorf("%w: call %s/%d", ErrUnsupported, x.Fn, len(x.Args))
}

func pairwise(l, r Value, takeMax bool) (Value, error) {
	n := max(l.N, r.N)
	if l.N == 1 {
		l = splat(l.V[0], n)
	}
	if r.N == 1 {
		r = splat(r.V[0], n)
	}
	if l.N != r.N {
		return Value{}, ErrType
	}
	out := Value{N: n}
	for k := range n {
		if takeMax {
			out.V[k] = math32.Max(l.V[k], r.V[k])
		} else {
			out.V[k] = math32.Min(l.V[k], r.V[k])
		}
	}
	return out, nil
}

func (e *Env) texture(x Call) (Value, error) {
	if len(x.Args) != 2 {
		return Value{}, fmt.Errorf("%w: texture2D arity", ErrUnsupported)
	}
	sampler, ok := x.Args[0].(Ref)
	if !ok {
		return Value{}, fmt.Errorf("%w: computed sampler", ErrUnsupported)
	}
	st, err := x.Args[1].eval(e)
	if err != nil {
		return Value{}, err
	}
	if e.Sample == nil {
		return Value{}, fmt.Errorf("%w: no sampler bound", ErrUnsupported)
	}
	return FromVec4(e.Sample(string(sampler), mgl32.Vec2{st.V[0], st.V[1]})), nil
}
