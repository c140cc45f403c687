package lshaped

import (
	"fmt"

	"github.com/gridopt/stochuc/core/model"
	"github.com/gridopt/stochuc/core/solver"
)

// AlphaFloor is the relaxation floor for the value function estimate. The
// master problem is unbounded without it before the first cut arrives.
const AlphaFloor = -500

// masterIndex maps hours to column positions in the master problem.
// Columns are laid out as [u_0..u_H-1, p1_0..p1_H-1, alpha_0..alpha_H-1].
type masterIndex struct{ horizon int }

func (ix masterIndex) u(h int) int     { return h }
func (ix masterIndex) p1(h int) int    { return ix.horizon + h }
func (ix masterIndex) alpha(h int) int { return 2*ix.horizon + h }
func (ix masterIndex) cols() int       { return 3 * ix.horizon }

// buildMaster assembles the first-stage problem: hourly commitment, forward
// purchase and value function estimate, with the alpha floor and every
// accumulated cut as rows.
func buildMaster(sys model.SystemParams, cuts []model.Cut) *solver.Problem {
	ix := masterIndex{horizon: sys.Horizon()}
	p := &solver.Problem{Name: "master"}

	for h := 0; h < ix.horizon; h++ {
		p.AddColumn(solver.Binary(fmt.Sprintf("u[%d]", h), sys.FixedCost))
	}
	for h := 0; h < ix.horizon; h++ {
		p.AddColumn(solver.NonNegative(fmt.Sprintf("p1[%d]", h), sys.ForwardPrice))
	}
	for h := 0; h < ix.horizon; h++ {
		p.AddColumn(solver.Free(fmt.Sprintf("alpha[%d]", h), 1))
	}

	for h := 0; h < ix.horizon; h++ {
		coefs := make([]float64, ix.cols())
		coefs[ix.alpha(h)] = 1
		p.AddRow(solver.AtLeast(fmt.Sprintf("alpha_floor[%d]", h), coefs, AlphaFloor))
	}

	// alpha[h] >= Intercept + CoefU*u[h] + CoefP1*p1[h]
	for _, cut := range cuts {
		coefs := make([]float64, ix.cols())
		coefs[ix.alpha(cut.Hour)] = 1
		coefs[ix.u(cut.Hour)] = -cut.CoefU
		coefs[ix.p1(cut.Hour)] = -cut.CoefP1
		name := fmt.Sprintf("cut_%d[%d]", cut.Iteration, cut.Hour)
		p.AddRow(solver.AtLeast(name, coefs, cut.Intercept))
	}

	return p
}

// extractMaster reads a master solution out of the solver result.
func extractMaster(sys model.SystemParams, sol *solver.Solution) model.MasterSolution {
	ix := masterIndex{horizon: sys.Horizon()}
	m := model.MasterSolution{
		U:         make([]float64, ix.horizon),
		P1:        make([]float64, ix.horizon),
		Alpha:     make([]float64, ix.horizon),
		Objective: sol.Objective,
	}
	for h := 0; h < ix.horizon; h++ {
		m.U[h] = sol.Value(ix.u(h))
		m.P1[h] = sol.Value(ix.p1(h))
		m.Alpha[h] = sol.Value(ix.alpha(h))
	}
	return m
}
