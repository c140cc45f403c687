package model

import "fmt"

// SystemParams describes the fixed single-generator system used by the
// two-stage problem: a local generator, a forward contract signed before
// demand is known and a real-time contract settled after.
type SystemParams struct {
	// FixedCost is the hourly fixed generator cost in $/h, paid when the
	// unit is committed.
	FixedCost float64
	// FuelCost is the linear generation cost in $/kWh.
	FuelCost float64
	// PMax is the generator capacity in kW.
	PMax float64
	// ForwardPrice is the forward contract price in $/kWh.
	ForwardPrice float64
	// RealTimePrice is the real-time contract price in $/kWh.
	RealTimePrice float64
	// Load is the nominal hourly demand vector in kW. Its length defines
	// the planning horizon.
	Load []float64
}

// DefaultSystem returns the reference parameterization of the single-generator
// system over a 24 hour horizon.
func DefaultSystem() SystemParams {
	return SystemParams{
		FixedCost:     2.12e-5,
		FuelCost:      0.128,
		PMax:          12,
		ForwardPrice:  0.25,
		RealTimePrice: 0.3,
		Load: []float64{
			8, 8, 10, 10, 10, 16, 22, 24, 26, 32, 30, 28,
			22, 18, 16, 16, 20, 24, 28, 34, 38, 30, 22, 12,
		},
	}
}

// Horizon returns the number of hours in the planning horizon.
func (p SystemParams) Horizon() int { return len(p.Load) }

// WithRealTimePrice returns a copy of the parameters with the real-time
// price replaced. Used by the price sensitivity sweep.
func (p SystemParams) WithRealTimePrice(price float64) SystemParams {
	p.RealTimePrice = price
	return p
}

// Validate checks that the parameterization is usable.
func (p SystemParams) Validate() error {
	if len(p.Load) == 0 {
		return fmt.Errorf("load vector is empty")
	}
	if p.PMax <= 0 {
		return fmt.Errorf("generator capacity must be positive, got %v", p.PMax)
	}
	if p.FuelCost < 0 || p.ForwardPrice < 0 || p.RealTimePrice < 0 {
		return fmt.Errorf("prices must be non-negative")
	}
	for h, l := range p.Load {
		if l < 0 {
			return fmt.Errorf("nominal load for hour %d is negative: %v", h, l)
		}
	}
	return nil
}

// Objective evaluates the full two-stage cost of one scenario solution:
// commitment and forward cost from the first stage plus generation and
// real-time purchases from the second. Averaged over scenarios it is the
// upper bound of the decomposition.
func (p SystemParams) Objective(s SubSolution) float64 {
	var total float64
	for h := range p.Load {
		total += p.FixedCost*s.U[h] + p.ForwardPrice*s.P1[h] +
			p.FuelCost*s.PG[h] + p.RealTimePrice*s.P2[h]
	}
	return total
}

// MasterObjective evaluates the master problem objective for a first-stage
// solution, the lower bound of the decomposition.
func (p SystemParams) MasterObjective(m MasterSolution) float64 {
	var total float64
	for h := range p.Load {
		total += p.FixedCost*m.U[h] + p.ForwardPrice*m.P1[h] + m.Alpha[h]
	}
	return total
}
