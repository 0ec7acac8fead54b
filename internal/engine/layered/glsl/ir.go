// Package glsl is a small typed representation of GLSL 1.20 shader source.
// Programs are built from statements and expressions, rendered to text by
// AppendSource and can be interpreted on the CPU by Run.
package glsl

import "github.com/go-gl/mathgl/mgl32"

// Expr is a shader expression.
type Expr interface {
	appendExpr(b []byte) []byte
	eval(e *Env) (Value, error)
}

// Stmt is a shader statement.
type Stmt interface {
	appendStmt(b []byte, depth int) []byte
	exec(e *Env) (flow, error)
}

// Program is one shader stage.
type Program struct {
	Version  int
	Uniforms []Uniform
	Funcs    []*Func
}

// Uniform is a global uniform declaration.
type Uniform struct {
	Type string
	Name string
}

// Param is a function parameter.
type Param struct {
	Type string
	Name string
}

// Func is a function definition. Main is the function named "main".
type Func struct {
	Ret    string
	Name   string
	Params []Param
	Body   []Stmt
}

// Lit is a float literal.
type Lit float32

// Ref names a variable or a built-in such as gl_FragColor.
type Ref string

// Swizzle selects components, e.g. col.rgb.
type Swizzle struct {
	X   Expr
	Sel string
}

// Index selects one component, e.g. col[2].
type Index struct {
	X Expr
	I int
}

// Binary is an arithmetic or comparison operation.
type Binary struct {
	Op   string
	L, R Expr
}

// Call is a built-in or user function call.
type Call struct {
	Fn   string
	Args []Expr
}

// BoolLit is true or false.
type BoolLit bool

// Decl declares one or more local variables. Init applies only to a
// single-name declaration.
type Decl struct {
	Type  string
	Names []string
	Init  Expr
}

// Assign writes RHS into LHS. Op is "=", "*=" or "+=".
type Assign struct {
	LHS Expr
	Op  string
	RHS Expr
}

// If is a conditional with an optional else branch. An Else holding a
// single *If is printed as "else if".
type If struct {
	Cond Expr
	Then []Stmt
	Else []Stmt
}

// Return leaves the current function.
type Return struct{}

// Discard drops the fragment.
type Discard struct{}

// ExprStmt evaluates an expression for its side effects, e.g. process().
type ExprStmt struct {
	X Expr
}

// F makes a literal.
func F(v float32) Expr { return Lit(v) }

// V references a variable.
func V(name string) Expr { return Ref(name) }

// Sw swizzles x.
func Sw(x Expr, sel string) Expr { return Swizzle{X: x, Sel: sel} }

// At indexes x.
func At(x Expr, i int) Expr { return Index{X: x, I: i} }

func Add(l, r Expr) Expr { return Binary{Op: "+", L: l, R: r} }
func Sub(l, r Expr) Expr { return Binary{Op: "-", L: l, R: r} }
func Mul(l, r Expr) Expr { return Binary{Op: "*", L: l, R: r} }
func Div(l, r Expr) Expr { return Binary{Op: "/", L: l, R: r} }
func Lt(l, r Expr) Expr  { return Binary{Op: "<", L: l, R: r} }
func Le(l, r Expr) Expr  { return Binary{Op: "<=", L: l, R: r} }
func Gt(l, r Expr) Expr  { return Binary{Op: ">", L: l, R: r} }
func Ge(l, r Expr) Expr  { return Binary{Op: ">=", L: l, R: r} }
func Ne(l, r Expr) Expr  { return Binary{Op: "!=", L: l, R: r} }
func And(l, r Expr) Expr { return Binary{Op: "&&", L: l, R: r} }

// Fn calls a function.
func Fn(name string, args ...Expr) Expr { return Call{Fn: name, Args: args} }

// Vec4 is a vec4 constructor from a constant colour.
func Vec4(c mgl32.Vec4) Expr {
	return Fn("vec4", F(c[0]), F(c[1]), F(c[2]), F(c[3]))
}

// Texture samples sampler at coord.
func Texture(sampler string, coord Expr) Expr {
	return Fn("texture2D", V(sampler), coord)
}

// Set assigns rhs to lhs.
func Set(lhs, rhs Expr) Stmt { return Assign{LHS: lhs, Op: "=", RHS: rhs} }

// MulSet is lhs *= rhs.
func MulSet(lhs, rhs Expr) Stmt { return Assign{LHS: lhs, Op: "*=", RHS: rhs} }

// AddSet is lhs += rhs.
func AddSet(lhs, rhs Expr) Stmt { return Assign{LHS: lhs, Op: "+=", RHS: rhs} }

// Local declares variables of one type.
func Local(typ string, names ...string) Stmt { return Decl{Type: typ, Names: names} }

// LocalInit declares one initialized variable.
func LocalInit(typ, name string, init Expr) Stmt {
	return Decl{Type: typ, Names: []string{name}, Init: init}
}

// When builds an if statement without else.
func When(cond Expr, then ...Stmt) *If { return &If{Cond: cond, Then: then} }

// Otherwise attaches an else branch and returns the receiver.
func (s *If) Otherwise(stmts ...Stmt) *If {
	s.Else = stmts
	return s
}

// ElseIf chains another conditional and returns it, so a chain is built
// by repeated calls on the returned value.
func (s *If) ElseIf(cond Expr, then ...Stmt) *If {
	next := When(cond, then...)
	s.Else = []Stmt{next}
	return next
}

// CallStmt is a statement calling fn.
func CallStmt(fn string, args ...Expr) Stmt { return ExprStmt{X: Fn(fn, args...)} }

// Func returns the function named name, or nil.
func (p *Program) Func(name string) *Func {
	for _, f := range p.Funcs {
		if f.Name == name {
			return f
		}
	}
	return nil
}
