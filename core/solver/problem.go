package solver

import "math"

// Column is one decision variable of a mathematical program.
type Column struct {
	Name string
	// Cost is the objective coefficient. All problems minimize.
	Cost  float64
	Lower float64
	Upper float64
	// Binary marks the column as a 0/1 integer variable. Backends without
	// integer support must reject problems containing binary columns.
	Binary bool
}

// Row is one linear constraint, stored dense: Lower <= Coefs·x <= Upper.
// Equalities have Lower == Upper.
type Row struct {
	Name  string
	Coefs []float64
	Lower float64
	Upper float64
}

// Problem is a minimization program handed to a Solver. It is a plain value
// that can be built once and solved by any backend; callers that vary only
// right-hand sides build a fresh Problem per solve so concurrent evaluation
// stays safe.
type Problem struct {
	Name string
	Cols []Column
	Rows []Row
}

// AddColumn appends a column and returns its index.
func (p *Problem) AddColumn(c Column) int {
	p.Cols = append(p.Cols, c)
	return len(p.Cols) - 1
}

// AddRow appends a row and returns its index. Duals are reported per row in
// the same order.
func (p *Problem) AddRow(r Row) int {
	p.Rows = append(p.Rows, r)
	return len(p.Rows) - 1
}

// HasBinary reports whether the problem contains integer columns.
func (p *Problem) HasBinary() bool {
	for _, c := range p.Cols {
		if c.Binary {
			return true
		}
	}
	return false
}

// Continuous returns a column with the given bounds.
func Continuous(name string, cost, lower, upper float64) Column {
	return Column{Name: name, Cost: cost, Lower: lower, Upper: upper}
}

// NonNegative returns a continuous column bounded below by zero.
func NonNegative(name string, cost float64) Column {
	return Continuous(name, cost, 0, math.Inf(1))
}

// Free returns an unbounded continuous column.
func Free(name string, cost float64) Column {
	return Continuous(name, cost, math.Inf(-1), math.Inf(1))
}

// Binary returns a 0/1 column.
func Binary(name string, cost float64) Column {
	return Column{Name: name, Cost: cost, Lower: 0, Upper: 1, Binary: true}
}

// Equality returns a row Coefs·x == rhs.
func Equality(name string, coefs []float64, rhs float64) Row {
	return Row{Name: name, Coefs: coefs, Lower: rhs, Upper: rhs}
}

// AtLeast returns a row Coefs·x >= rhs.
func AtLeast(name string, coefs []float64, rhs float64) Row {
	return Row{Name: name, Coefs: coefs, Lower: rhs, Upper: math.Inf(1)}
}

// AtMost returns a row Coefs·x <= rhs.
func AtMost(name string, coefs []float64, rhs float64) Row {
	return Row{Name: name, Coefs: coefs, Lower: math.Inf(-1), Upper: rhs}
}
