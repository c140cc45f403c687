package lshaped

import (
	"gonum.org/v1/gonum/stat"

	"github.com/gridopt/stochuc/core/model"
)

// ObjectiveFunc aggregates one scenario solution into its full two-stage
// cost.
type ObjectiveFunc func(model.SubSolution) float64

// MasterObjectiveFunc aggregates a first-stage solution into the master
// objective value.
type MasterObjectiveFunc func(model.MasterSolution) float64

// CheckConvergence computes the decomposition bounds and tests them against
// epsilon. The upper bound is the Monte Carlo average of the scenario
// objectives; the lower bound is the master objective with the current value
// function estimate. The function is deterministic and has no side effects.
func CheckConvergence(
	objective ObjectiveFunc,
	masterObjective MasterObjectiveFunc,
	master model.MasterSolution,
	subs []model.SubSolution,
	epsilon float64,
) (bool, model.Bounds) {
	costs := make([]float64, len(subs))
	for i, s := range subs {
		costs[i] = objective(s)
	}
	b := model.Bounds{
		Upper: stat.Mean(costs, nil),
		Lower: masterObjective(master),
	}
	return b.Converged(epsilon), b
}
