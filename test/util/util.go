// Package util provides test doubles shared across solver-dependent tests.
//
// ExactSolver solves the exact master and sub-problem shapes produced by
// the decomposition in closed form, hour by hour, so the loop can be tested
// without a linear-programming backend. It recognizes problems by name and
// block layout and returns the same primal values and pinning duals an LP
// backend would.
package util

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/gridopt/stochuc/core/solver"
)

// ExactSolver is a backend-free solver.Solver for decomposition problems.
type ExactSolver struct{}

// Solve dispatches on the problem name.
func (ExactSolver) Solve(_ context.Context, p *solver.Problem) (*solver.Solution, error) {
	switch p.Name {
	case "master":
		return solveMaster(p)
	case "sub":
		return solveSub(p)
	default:
		return nil, fmt.Errorf("exact solver: unknown problem %q", p.Name)
	}
}

// line is alpha >= slope*p1 + intercept for a fixed commitment value.
type line struct {
	slope     float64
	intercept float64
}

func envelope(lines []line, p1 float64) float64 {
	best := math.Inf(-1)
	for _, l := range lines {
		if v := l.slope*p1 + l.intercept; v > best {
			best = v
		}
	}
	return best
}

// solveMaster minimizes each hour independently: for both commitment values
// it evaluates the piecewise-linear objective cost + envelope at p1 = 0 and
// at every pairwise breakpoint of the active cut lines, which is where the
// minimum of a convex piecewise-linear function must sit.
func solveMaster(p *solver.Problem) (*solver.Solution, error) {
	if len(p.Cols)%3 != 0 {
		return nil, fmt.Errorf("exact solver: master has %d columns", len(p.Cols))
	}
	horizon := len(p.Cols) / 3
	values := make([]float64, len(p.Cols))
	var objective float64

	for h := 0; h < horizon; h++ {
		costU := p.Cols[h].Cost
		costP1 := p.Cols[horizon+h].Cost

		floor := math.Inf(-1)
		var cuts []struct{ coefU, coefP1, rhs float64 }
		for _, row := range p.Rows {
			if row.Coefs[2*horizon+h] != 1 {
				continue
			}
			if strings.HasPrefix(row.Name, "alpha_floor") {
				floor = row.Lower
				continue
			}
			cuts = append(cuts, struct{ coefU, coefP1, rhs float64 }{
				coefU:  -row.Coefs[h],
				coefP1: -row.Coefs[horizon+h],
				rhs:    row.Lower,
			})
		}

		bestObj := math.Inf(1)
		var bestU, bestP1, bestAlpha float64
		for _, u := range []float64{0, 1} {
			lines := []line{{slope: 0, intercept: floor}}
			for _, c := range cuts {
				lines = append(lines, line{slope: c.coefP1, intercept: c.rhs + c.coefU*u})
			}
			candidates := []float64{0}
			for i := 0; i < len(lines); i++ {
				for j := i + 1; j < len(lines); j++ {
					if lines[i].slope == lines[j].slope {
						continue
					}
					x := (lines[j].intercept - lines[i].intercept) / (lines[i].slope - lines[j].slope)
					if x > 0 {
						candidates = append(candidates, x)
					}
				}
			}
			for _, p1 := range candidates {
				alpha := envelope(lines, p1)
				obj := costU*u + costP1*p1 + alpha
				if obj < bestObj-1e-12 {
					bestObj, bestU, bestP1, bestAlpha = obj, u, p1, alpha
				}
			}
		}

		values[h] = bestU
		values[horizon+h] = bestP1
		values[2*horizon+h] = bestAlpha
		objective += bestObj
	}

	return &solver.Solution{Values: values, Objective: objective}, nil
}

// solveSub dispatches each hour's pinned recourse problem: serve the net
// demand from the generator while it is the cheaper source and capacity
// lasts, then buy the remainder in real time. The pinning duals are the
// sensitivities of the hour's optimal cost to the pinned values.
func solveSub(p *solver.Problem) (*solver.Solution, error) {
	if len(p.Cols)%4 != 0 {
		return nil, fmt.Errorf("exact solver: sub has %d columns", len(p.Cols))
	}
	horizon := len(p.Cols) / 4
	if len(p.Rows) != 4*horizon {
		return nil, fmt.Errorf("exact solver: sub has %d rows, want %d", len(p.Rows), 4*horizon)
	}
	fuel := p.Cols[2*horizon].Cost
	realTime := p.Cols[3*horizon].Cost

	values := make([]float64, len(p.Cols))
	duals := make([]float64, len(p.Rows))
	var objective float64

	for h := 0; h < horizon; h++ {
		load := p.Rows[4*h].Lower
		pmax := -p.Rows[4*h+1].Coefs[h]
		uStar := p.Rows[4*h+2].Lower
		p1Star := p.Rows[4*h+3].Lower

		capacity := pmax * uStar
		demand := load - p1Star

		var pg, p2, dualU, dualP1, dualDemand, dualCap float64
		switch {
		case demand <= 0:
			// Forward purchase already covers the hour.
		case fuel > realTime:
			p2 = demand
			dualP1 = -realTime
			dualDemand = realTime
		case demand <= capacity:
			pg = demand
			dualP1 = -fuel
			dualDemand = fuel
		default:
			pg = capacity
			p2 = demand - capacity
			dualU = (fuel - realTime) * pmax
			dualCap = fuel - realTime
			dualP1 = -realTime
			dualDemand = realTime
		}

		values[h] = uStar
		values[horizon+h] = p1Star
		values[2*horizon+h] = pg
		values[3*horizon+h] = p2
		duals[4*h] = dualDemand
		duals[4*h+1] = dualCap
		duals[4*h+2] = dualU
		duals[4*h+3] = dualP1
		objective += fuel*pg + realTime*p2
	}

	return &solver.Solution{Values: values, RowDuals: duals, Objective: objective}, nil
}
