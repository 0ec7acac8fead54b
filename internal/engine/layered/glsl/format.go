package glsl

import (
	"strconv"
	"strings"
)

const indent = "    "

// Source renders the program as GLSL text.
func (p *Program) Source() string {
	return string(p.AppendSource(nil))
}

// AppendSource appends the GLSL text of p to b.
func (p *Program) AppendSource(b []byte) []byte {
	if p.Version > 0 {
		b = append(b, "#version "...)
		b = strconv.AppendInt(b, int64(p.Version), 10)
		b = append(b, "\n\n"...)
	}
	for _, u := range p.Uniforms {
		b = append(b, "uniform "...)
		b = append(b, u.Type...)
		b = append(b, ' ')
		b = append(b, u.Name...)
		b = append(b, ";\n"...)
	}
	if len(p.Uniforms) > 0 {
		b = append(b, '\n')
	}
	for k, f := range p.Funcs {
		if k > 0 {
			b = append(b, '\n')
		}
		b = f.appendFunc(b)
	}
	return b
}

func (f *Func) appendFunc(b []byte) []byte {
	b = append(b, f.Ret...)
	b = append(b, ' ')
	b = append(b, f.Name...)
	b = append(b, '(')
	if len(f.Params) == 0 {
		b = append(b, " void "...)
	} else {
		b = append(b, ' ')
		for k, prm := range f.Params {
			if k > 0 {
				b = append(b, ", "...)
			}
			b = append(b, prm.Type...)
			b = append(b, ' ')
			b = append(b, prm.Name...)
		}
		b = append(b, ' ')
	}
	b = append(b, ")\n{\n"...)
	b = appendBlock(b, f.Body, 1)
	return append(b, "}\n"...)
}

func appendBlock(b []byte, stmts []Stmt, depth int) []byte {
	for _, s := range stmts {
		b = s.appendStmt(b, depth)
	}
	return b
}

func appendIndent(b []byte, depth int) []byte {
	for range depth {
		b = append(b, indent...)
	}
	return b
}

func (s Decl) appendStmt(b []byte, depth int) []byte {
	b = appendIndent(b, depth)
	b = append(b, s.Type...)
	b = append(b, ' ')
	b = append(b, strings.Join(s.Names, ", ")...)
	if s.Init != nil && len(s.Names) == 1 {
		b = append(b, " = "...)
		b = s.Init.appendExpr(b)
	}
	return append(b, ";\n"...)
}

func (s Assign) appendStmt(b []byte, depth int) []byte {
	b = appendIndent(b, depth)
	b = s.LHS.appendExpr(b)
	b = append(b, ' ')
	b = append(b, s.Op...)
	b = append(b, ' ')
	b = s.RHS.appendExpr(b)
	return append(b, ";\n"...)
}

func (s *If) appendStmt(b []byte, depth int) []byte {
	b = appendIndent(b, depth)
	return s.appendChain(b, depth)
}

func (s *If) appendChain(b []byte, depth int) []byte {
	b = append(b, "if ( "...)
	b = s.Cond.appendExpr(b)
	b = append(b, " )"...)
	b = appendBranch(b, s.Then, depth)
	if len(s.Else) == 0 {
		return b
	}
	b = appendIndent(b, depth)
	b = append(b, "else"...)
	if next, ok := s.Else[0].(*If); ok && len(s.Else) == 1 {
		b = append(b, ' ')
		return next.appendChain(b, depth)
	}
	return appendBranch(b, s.Else, depth)
}

// appendBranch prints a single simple statement on the same line and
// anything else as a braced block.
func appendBranch(b []byte, stmts []Stmt, depth int) []byte {
	if len(stmts) == 1 {
		if _, nested := stmts[0].(*If); !nested {
			b = append(b, ' ')
			line := stmts[0].appendStmt(nil, 0)
			return append(b, line...)
		}
	}
	b = append(b, '\n')
	b = appendIndent(b, depth)
	b = append(b, "{\n"...)
	b = appendBlock(b, stmts, depth+1)
	b = appendIndent(b, depth)
	return append(b, "}\n"...)
}

func (Return) appendStmt(b []byte, depth int) []byte {
	return append(appendIndent(b, depth), "return;\n"...)
}

func (Discard) appendStmt(b []byte, depth int) []byte {
	return append(appendIndent(b, depth), "discard;\n"...)
}

func (s ExprStmt) appendStmt(b []byte, depth int) []byte {
	b = appendIndent(b, depth)
	b = s.X.appendExpr(b)
	return append(b, ";\n"...)
}

func (x Lit) appendExpr(b []byte) []byte {
	start := len(b)
	b = strconv.AppendFloat(b, float64(x), 'f', -1, 32)
	for _, c := range b[start:] {
		if c == '.' {
			return b
		}
	}
	return append(b, ".0"...)
}

func (x BoolLit) appendExpr(b []byte) []byte {
	return strconv.AppendBool(b, bool(x))
}

func (x Ref) appendExpr(b []byte) []byte {
	return append(b, x...)
}

func (x Swizzle) appendExpr(b []byte) []byte {
	b = appendOperand(b, x.X, precPostfix)
	b = append(b, '.')
	return append(b, x.Sel...)
}

func (x Index) appendExpr(b []byte) []byte {
	b = appendOperand(b, x.X, precPostfix)
	b = append(b, '[')
	b = strconv.AppendInt(b, int64(x.I), 10)
	return append(b, ']')
}

func (x Call) appendExpr(b []byte) []byte {
	b = append(b, x.Fn...)
	b = append(b, '(')
	if len(x.Args) > 0 {
		b = append(b, ' ')
	}
	for k, a := range x.Args {
		if k > 0 {
			b = append(b, ", "...)
		}
		b = a.appendExpr(b)
	}
	if len(x.Args) > 0 {
		b = append(b, ' ')
	}
	return append(b, ')')
}

func (x Binary) appendExpr(b []byte) []byte {
	p := precedence(x.Op)
	b = appendOperand(b, x.L, p)
	b = append(b, ' ')
	b = append(b, x.Op...)
	b = append(b, ' ')
	// Right operands of equal precedence need parentheses for - and /.
	return appendOperand(b, x.R, p+1)
}

const (
	precLogic = iota + 1
	precCompare
	precAdd
	precMul
	precPostfix
)

func precedence(op string) int {
	switch op {
	case "&&":
		return precLogic
	case "<", "<=", ">", ">=", "!=":
		return precCompare
	case "+", "-":
		return precAdd
	default:
		return precMul
	}
}

func appendOperand(b []byte, x Expr, min int) []byte {
	bin, ok := x.(Binary)
	if !ok {
		if lit, isLit := x.(Lit); isLit && lit < 0 && min >= precPostfix {
			b = append(b, '(')
			b = lit.appendExpr(b)
			return append(b, ')')
		}
		return x.appendExpr(b)
	}
	if precedence(bin.Op) >= min {
		return bin.appendExpr(b)
	}
	b = append(b, '(')
	b = bin.appendExpr(b)
	return append(b, ')')
}
