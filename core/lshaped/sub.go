package lshaped

import (
	"fmt"

	"github.com/gridopt/stochuc/core/model"
	"github.com/gridopt/stochuc/core/solver"
)

// subIndex maps hours to column and row positions in a scenario sub-problem.
// Columns: [u, p1, pg, p2] blocks of horizon length. Rows are appended per
// hour in the order demand, capacity, pin-u, pin-p1.
type subIndex struct{ horizon int }

func (ix subIndex) u(h int) int  { return h }
func (ix subIndex) p1(h int) int { return ix.horizon + h }
func (ix subIndex) pg(h int) int { return 2*ix.horizon + h }
func (ix subIndex) p2(h int) int { return 3*ix.horizon + h }
func (ix subIndex) cols() int    { return 4 * ix.horizon }

func (ix subIndex) demandRow(h int) int { return 4 * h }
func (ix subIndex) capRow(h int) int    { return 4*h + 1 }
func (ix subIndex) pinURow(h int) int   { return 4*h + 2 }
func (ix subIndex) pinP1Row(h int) int  { return 4*h + 3 }

// buildSub assembles the second-stage problem for one scenario, pinned to
// the given master solution. The first-stage columns carry no cost and no
// bounds; the pinning equalities fix them, and their duals price the cut.
func buildSub(sys model.SystemParams, pin model.MasterSolution, load model.Scenario) *solver.Problem {
	ix := subIndex{horizon: sys.Horizon()}
	p := &solver.Problem{Name: "sub"}

	for h := 0; h < ix.horizon; h++ {
		p.AddColumn(solver.Free(fmt.Sprintf("u[%d]", h), 0))
	}
	for h := 0; h < ix.horizon; h++ {
		p.AddColumn(solver.Free(fmt.Sprintf("p1[%d]", h), 0))
	}
	for h := 0; h < ix.horizon; h++ {
		p.AddColumn(solver.NonNegative(fmt.Sprintf("pg[%d]", h), sys.FuelCost))
	}
	for h := 0; h < ix.horizon; h++ {
		p.AddColumn(solver.NonNegative(fmt.Sprintf("p2[%d]", h), sys.RealTimePrice))
	}

	for h := 0; h < ix.horizon; h++ {
		demand := make([]float64, ix.cols())
		demand[ix.pg(h)] = 1
		demand[ix.p1(h)] = 1
		demand[ix.p2(h)] = 1
		p.AddRow(solver.AtLeast(fmt.Sprintf("demand[%d]", h), demand, load[h]))

		cap := make([]float64, ix.cols())
		cap[ix.pg(h)] = 1
		cap[ix.u(h)] = -sys.PMax
		p.AddRow(solver.AtMost(fmt.Sprintf("capacity[%d]", h), cap, 0))

		pinU := make([]float64, ix.cols())
		pinU[ix.u(h)] = 1
		p.AddRow(solver.Equality(fmt.Sprintf("pin_u[%d]", h), pinU, pin.U[h]))

		pinP1 := make([]float64, ix.cols())
		pinP1[ix.p1(h)] = 1
		p.AddRow(solver.Equality(fmt.Sprintf("pin_p1[%d]", h), pinP1, pin.P1[h]))
	}

	return p
}

// extractSub reads a scenario solution and the pinning duals out of the
// solver result.
func extractSub(sys model.SystemParams, sol *solver.Solution) model.SubSolution {
	ix := subIndex{horizon: sys.Horizon()}
	s := model.SubSolution{
		U:      make([]float64, ix.horizon),
		P1:     make([]float64, ix.horizon),
		PG:     make([]float64, ix.horizon),
		P2:     make([]float64, ix.horizon),
		DualU:  make([]float64, ix.horizon),
		DualP1: make([]float64, ix.horizon),
	}
	for h := 0; h < ix.horizon; h++ {
		s.U[h] = sol.Value(ix.u(h))
		s.P1[h] = sol.Value(ix.p1(h))
		s.PG[h] = sol.Value(ix.pg(h))
		s.P2[h] = sol.Value(ix.p2(h))
		s.DualU[h] = sol.Dual(ix.pinURow(h))
		s.DualP1[h] = sol.Dual(ix.pinP1Row(h))
	}
	return s
}
