package lshaped

import (
	"gonum.org/v1/gonum/stat"

	"github.com/gridopt/stochuc/core/model"
)

// newCuts builds one optimality cut per hour from the current iteration's
// scenario solutions:
//
//	alpha[h] >= mean_i [ c2*pg_i[h] + l2*p2_i[h]
//	                     + dual_u_i[h]*(u[h] - u*[h])
//	                     + dual_p1_i[h]*(p1[h] - p1*[h]) ]
//
// where u*, p1* is the master solution the sub-problems were pinned to. The
// scenario average is folded into a constant intercept plus coefficients on
// u[h] and p1[h].
func newCuts(sys model.SystemParams, pin model.MasterSolution, subs []model.SubSolution, iteration int) []model.Cut {
	horizon := sys.Horizon()
	cuts := make([]model.Cut, horizon)
	cost := make([]float64, len(subs))
	dualU := make([]float64, len(subs))
	dualP1 := make([]float64, len(subs))
	for h := 0; h < horizon; h++ {
		for i, s := range subs {
			cost[i] = sys.FuelCost*s.PG[h] + sys.RealTimePrice*s.P2[h]
			dualU[i] = s.DualU[h]
			dualP1[i] = s.DualP1[h]
		}
		coefU := stat.Mean(dualU, nil)
		coefP1 := stat.Mean(dualP1, nil)
		cuts[h] = model.Cut{
			Hour:      h,
			Iteration: iteration,
			Intercept: stat.Mean(cost, nil) - coefU*pin.U[h] - coefP1*pin.P1[h],
			CoefU:     coefU,
			CoefP1:    coefP1,
		}
	}
	return cuts
}
