// Package milp is a minimal, solver-agnostic mixed-integer linear model
// representation: variables, linear expressions, constraints, and an
// objective, plus an LP-format writer. No Go MILP-modelling library turned
// up anywhere in the retrieved reference pack (the nearest analogues are
// all HTTP/queue/DB libraries), so this layer is intentionally small and
// hand-rolled, grounded only on the LP file format itself and on the shape
// of Pyomo's ConcreteModel that the original system builds
// (integrated_model.py) rather than on any third-party Go dependency.
package milp

import (
	"bufio"
	"fmt"
	"io"
	"sort"
)

// VarKind is the domain of a decision variable.
type VarKind int

const (
	Continuous VarKind = iota
	Integer
	Binary
)

// Var is a decision variable. Name must be unique within a Model and is
// used verbatim in the LP output, so callers are responsible for producing
// stable, descriptive names (e.g. "production[6120,sourdough,2024-01-05]").
type Var struct {
	Name  string
	Kind  VarKind
	Lower float64
	Upper float64 // 0 with Kind != Binary and Lower == 0 means unbounded above unless HasUpper is set
	HasUpper bool
}

// Term is one addend of a linear expression: Coef * variable named Var.
type Term struct {
	Var  string
	Coef float64
}

// LinExpr is a sum of Terms plus a constant offset.
type LinExpr struct {
	Terms   []Term
	Const   float64
}

// Add appends a term.
func (e *LinExpr) Add(coef float64, v string) *LinExpr {
	if coef == 0 {
		return e
	}
	e.Terms = append(e.Terms, Term{Var: v, Coef: coef})
	return e
}

// Sense is a constraint's relational operator.
type Sense int

const (
	LessEq Sense = iota
	GreaterEq
	Equal
)

func (s Sense) symbol() string {
	switch s {
	case LessEq:
		return "<="
	case GreaterEq:
		return ">="
	default:
		return "="
	}
}

// Constraint is one linear (in)equality: Expr <sense> RHS.
type Constraint struct {
	Name  string
	Expr  LinExpr
	Sense Sense
	RHS   float64
}

// ObjectiveSense is minimize or maximize.
type ObjectiveSense int

const (
	Minimize ObjectiveSense = iota
	Maximize
)

// Model is a complete MILP instance: variables, constraints, and an
// objective. It accumulates in whatever order the builder calls AddVar /
// AddConstraint, but Vars() and Constraints() always return them sorted by
// name, so two builds over identical logical inputs emit byte-identical LP
// output (spec §5's determinism guarantee).
type Model struct {
	vars        map[string]Var
	constraints map[string]Constraint
	Objective   LinExpr
	ObjSense    ObjectiveSense
}

// NewModel returns an empty model.
func NewModel(sense ObjectiveSense) *Model {
	return &Model{
		vars:        make(map[string]Var),
		constraints: make(map[string]Constraint),
		ObjSense:    sense,
	}
}

// AddVar registers a variable. It is an error to register the same name
// twice with differing attributes; registering the identical Var again is
// a harmless no-op (cohort-driven builders often revisit the same key).
func (m *Model) AddVar(v Var) error {
	if existing, ok := m.vars[v.Name]; ok {
		if existing != v {
			return fmt.Errorf("milp: variable %q redeclared with different attributes", v.Name)
		}
		return nil
	}
	m.vars[v.Name] = v
	return nil
}

// AddConstraint registers a constraint. It is an error to reuse a
// constraint name.
func (m *Model) AddConstraint(c Constraint) error {
	if _, ok := m.constraints[c.Name]; ok {
		return fmt.Errorf("milp: constraint %q already exists", c.Name)
	}
	m.constraints[c.Name] = c
	return nil
}

// HasVar reports whether a variable with the given name has been added.
func (m *Model) HasVar(name string) bool {
	_, ok := m.vars[name]
	return ok
}

// Vars returns every variable sorted by name.
func (m *Model) Vars() []Var {
	out := make([]Var, 0, len(m.vars))
	for _, v := range m.vars {
		out = append(out, v)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Constraints returns every constraint sorted by name.
func (m *Model) Constraints() []Constraint {
	out := make([]Constraint, 0, len(m.constraints))
	for _, c := range m.constraints {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// VarCount and ConstraintCount report model size, recorded on the solve
// job for solve-time observability.
func (m *Model) VarCount() int        { return len(m.vars) }
func (m *Model) ConstraintCount() int { return len(m.constraints) }

// sortedTerms returns a LinExpr's terms sorted by variable name, for
// deterministic output.
func sortedTerms(terms []Term) []Term {
	out := make([]Term, len(terms))
	copy(out, terms)
	sort.Slice(out, func(i, j int) bool { return out[i].Var < out[j].Var })
	return out
}

// WriteLP serialises the model in CPLEX LP format, the format every
// open-source MILP solver (CBC, GLPK, HiGHS) accepts as input. Output is
// fully deterministic given a deterministically-built Model.
func (m *Model) WriteLP(w io.Writer) error {
	bw := bufio.NewWriter(w)

	sense := "Minimize"
	if m.ObjSense == Maximize {
		sense = "Maximize"
	}
	fmt.Fprintf(bw, "\\* generated model *\\\n%s\nobj: %s\n\n", sense, formatExpr(m.Objective))

	fmt.Fprintln(bw, "Subject To")
	for _, c := range m.Constraints() {
		fmt.Fprintf(bw, " %s: %s %s %s\n", c.Name, formatExpr(c.Expr), c.Sense.symbol(), formatNum(c.RHS))
	}

	fmt.Fprintln(bw, "\nBounds")
	var generalInts, binaries []string
	for _, v := range m.Vars() {
		switch v.Kind {
		case Binary:
			binaries = append(binaries, v.Name)
		case Integer:
			generalInts = append(generalInts, v.Name)
			writeBound(bw, v)
		default:
			writeBound(bw, v)
		}
	}

	if len(generalInts) > 0 {
		fmt.Fprintln(bw, "\nGeneral")
		for _, n := range generalInts {
			fmt.Fprintln(bw, " "+n)
		}
	}
	if len(binaries) > 0 {
		fmt.Fprintln(bw, "\nBinary")
		for _, n := range binaries {
			fmt.Fprintln(bw, " "+n)
		}
	}

	fmt.Fprintln(bw, "\nEnd")
	return bw.Flush()
}

func writeBound(bw *bufio.Writer, v Var) {
	if v.Lower == 0 && !v.HasUpper {
		fmt.Fprintf(bw, " %s >= 0\n", v.Name)
		return
	}
	if v.HasUpper {
		fmt.Fprintf(bw, " %s <= %s\n", v.Name, formatNum(v.Upper))
	}
	if v.Lower != 0 {
		fmt.Fprintf(bw, " %s >= %s\n", v.Name, formatNum(v.Lower))
	}
}

func formatExpr(e LinExpr) string {
	terms := sortedTerms(e.Terms)
	if len(terms) == 0 {
		return formatNum(e.Const)
	}
	out := ""
	for i, t := range terms {
		coef := t.Coef
		sign := "+"
		if coef < 0 {
			sign = "-"
			coef = -coef
		}
		if i == 0 && sign == "+" {
			out += fmt.Sprintf("%s %s", formatNum(coef), t.Var)
		} else {
			out += fmt.Sprintf(" %s %s %s", sign, formatNum(coef), t.Var)
		}
	}
	if e.Const != 0 {
		sign := "+"
		c := e.Const
		if c < 0 {
			sign = "-"
			c = -c
		}
		out += fmt.Sprintf(" %s %s", sign, formatNum(c))
	}
	return out
}

func formatNum(f float64) string {
	return fmt.Sprintf("%g", f)
}
