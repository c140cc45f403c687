package model

// MasterSolution is a first-stage solution: hourly commitment, forward
// purchase and the current estimate of the second-stage value function.
type MasterSolution struct {
	// U is the hourly unit commitment decision. Values come straight from
	// the solver and are only near-integral within its tolerance.
	U []float64 `json:"u"`
	// P1 is the hourly forward contract purchase in kW.
	P1 []float64 `json:"p1"`
	// Alpha is the hourly value function estimate, bounded below by the
	// relaxation floor.
	Alpha []float64 `json:"alpha"`
	// Objective is the master objective value reported by the solver.
	Objective float64 `json:"objective"`
}

// SubSolution is a second-stage solution for one scenario: generation and
// real-time purchases, the first-stage values the problem was pinned to and
// the shadow prices of the two pinning constraints.
type SubSolution struct {
	// U and P1 echo the master values the sub-problem was pinned to.
	U  []float64 `json:"u"`
	P1 []float64 `json:"p1"`
	// PG is the hourly generator output in kW.
	PG []float64 `json:"pg"`
	// P2 is the hourly real-time purchase in kW.
	P2 []float64 `json:"p2"`
	// DualU and DualP1 are the hourly dual prices of the constraints
	// pinning u and p1 to the master solution.
	DualU  []float64 `json:"dual_u"`
	DualP1 []float64 `json:"dual_p1"`
}

// Cut is one hour's optimality cut, lower-bounding the value function:
//
//	alpha[h] >= Intercept + CoefU*u[h] + CoefP1*p1[h]
//
// Cuts accumulate in the master problem and are never removed.
type Cut struct {
	Hour      int     `json:"hour"`
	Iteration int     `json:"iteration"`
	Intercept float64 `json:"intercept"`
	CoefU     float64 `json:"coef_u"`
	CoefP1    float64 `json:"coef_p1"`
}

// Bounds is one iteration's upper and lower bound pair.
type Bounds struct {
	Upper float64 `json:"upper"`
	Lower float64 `json:"lower"`
}

// Gap returns the absolute difference between the bounds.
func (b Bounds) Gap() float64 {
	if b.Upper >= b.Lower {
		return b.Upper - b.Lower
	}
	return b.Lower - b.Upper
}

// Converged reports whether the bounds lie within epsilon of each other.
// The comparison matches the decomposition's termination test exactly:
// converged iff upper - lower is not greater than epsilon.
func (b Bounds) Converged(epsilon float64) bool {
	return !(b.Upper-b.Lower > epsilon)
}
