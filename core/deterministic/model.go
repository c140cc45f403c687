// Package deterministic formulates the one-shot economic unit-commitment
// problem: two generators with quadratic fuel cost curves and a retailer
// connection, scheduled against a known 24 hour load. The quadratic cost is
// approximated by convex piecewise-linear segments so the problem stays a
// mixed-integer linear program.
package deterministic

import (
	"context"
	"fmt"

	"github.com/gridopt/stochuc/core/logger"
	"github.com/gridopt/stochuc/core/solver"
)

// Generator describes one dispatchable unit. Fuel cost for output p is
// QuadCost*p^2 + LinearCost*p, plus FixedCost when committed.
type Generator struct {
	FixedCost  float64
	LinearCost float64
	QuadCost   float64
	PMin       float64
	PMax       float64
}

// Params parameterizes the deterministic model.
type Params struct {
	Generators []Generator
	// Load is the hourly demand in kW.
	Load []float64
	// RetailPrices is the sweep of retailer prices in $/kWh; each price is
	// solved independently.
	RetailPrices []float64
	// Segments is the number of piecewise-linear pieces approximating each
	// quadratic fuel curve.
	Segments int
}

// DefaultParams returns the reference two-generator system and the retail
// price sensitivity sweep.
func DefaultParams() Params {
	prices := make([]float64, 0, 8)
	for p := 0.05; p < 0.80; p += 0.10 {
		prices = append(prices, p)
	}
	return Params{
		Generators: []Generator{
			{FixedCost: 2.12e-5, LinearCost: 0.128, QuadCost: 1.2e-3, PMin: 0, PMax: 20},
			{FixedCost: 1.28e-5, LinearCost: 0.532, QuadCost: 1.12e-3, PMin: 0, PMax: 40},
		},
		Load: []float64{
			8, 8, 10, 10, 10, 16, 22, 24, 26, 32, 30, 28,
			22, 18, 16, 16, 20, 24, 28, 34, 38, 30, 22, 12,
		},
		RetailPrices: prices,
		Segments:     8,
	}
}

// Validate checks the parameterization.
func (p Params) Validate() error {
	if len(p.Generators) == 0 {
		return fmt.Errorf("no generators configured")
	}
	if len(p.Load) == 0 {
		return fmt.Errorf("load vector is empty")
	}
	if len(p.RetailPrices) == 0 {
		return fmt.Errorf("no retail prices configured")
	}
	if p.Segments <= 0 {
		return fmt.Errorf("segments must be positive, got %d", p.Segments)
	}
	for g, gen := range p.Generators {
		if gen.PMax <= 0 || gen.PMin < 0 || gen.PMin > gen.PMax {
			return fmt.Errorf("generator %d has invalid power bounds [%v, %v]", g, gen.PMin, gen.PMax)
		}
		if gen.QuadCost < 0 {
			return fmt.Errorf("generator %d has concave fuel cost", g)
		}
	}
	return nil
}

// Schedule is the solved dispatch for one retail price.
type Schedule struct {
	RetailPrice float64 `json:"retail_price"`
	// Commitment and Generation are indexed [hour][generator].
	Commitment [][]float64 `json:"commitment"`
	Generation [][]float64 `json:"generation"`
	// Net is the hourly retailer exchange, positive for imports.
	Net []float64 `json:"net"`
	// Objective is the solver objective with the piecewise fuel
	// approximation.
	Objective float64 `json:"objective"`
	// FuelCosts holds the exact quadratic fuel cost per generator over the
	// horizon.
	FuelCosts []float64 `json:"fuel_costs"`
	// NetCost is the total retailer cost over the horizon.
	NetCost float64 `json:"net_cost"`
}

// Model solves the deterministic problem with a MIP-capable solver.
type Model struct {
	params Params
	solver solver.Solver
	log    logger.Logger
}

// New creates a Model.
func New(params Params, s solver.Solver, log logger.Logger) (*Model, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if s == nil {
		return nil, fmt.Errorf("solver is required")
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Model{params: params, solver: s, log: log}, nil
}

// Sweep solves the model once per configured retail price.
func (m *Model) Sweep(ctx context.Context) ([]*Schedule, error) {
	schedules := make([]*Schedule, 0, len(m.params.RetailPrices))
	for _, price := range m.params.RetailPrices {
		s, err := m.Solve(ctx, price)
		if err != nil {
			return nil, fmt.Errorf("retail price %.4f: %w", price, err)
		}
		schedules = append(schedules, s)
	}
	return schedules, nil
}

// Solve builds and solves the dispatch problem for one retail price.
func (m *Model) Solve(ctx context.Context, retailPrice float64) (*Schedule, error) {
	ix := newDetIndex(m.params)
	p := m.build(ix, retailPrice)
	sol, err := m.solver.Solve(ctx, p)
	if err != nil {
		return nil, err
	}
	sched := m.extract(ix, sol, retailPrice)
	m.log.Infof("retail price %.4f: objective=%.4f net_cost=%.4f", retailPrice, sched.Objective, sched.NetCost)
	return sched, nil
}

// detIndex maps (hour, generator, segment) tuples to column positions.
// Columns: pn per hour, then u per hour and generator, then segment outputs.
type detIndex struct {
	hours, gens, segs int
}

func newDetIndex(p Params) detIndex {
	return detIndex{hours: len(p.Load), gens: len(p.Generators), segs: p.Segments}
}

func (ix detIndex) pn(h int) int       { return h }
func (ix detIndex) u(h, g int) int     { return ix.hours + h*ix.gens + g }
func (ix detIndex) seg(h, g, k int) int {
	return ix.hours + ix.hours*ix.gens + (h*ix.gens+g)*ix.segs + k
}
func (ix detIndex) cols() int { return ix.hours + ix.hours*ix.gens*(1+ix.segs) }

// segmentSlope returns the marginal cost of segment k: the chord slope of
// the quadratic fuel curve over [k*w, (k+1)*w]. Slopes increase with k, so
// the LP relaxation fills segments in order.
func segmentSlope(g Generator, k int, width float64) float64 {
	return g.LinearCost + g.QuadCost*width*float64(2*k+1)
}

func (m *Model) build(ix detIndex, retailPrice float64) *solver.Problem {
	p := &solver.Problem{Name: fmt.Sprintf("deterministic[%.4f]", retailPrice)}

	for h := 0; h < ix.hours; h++ {
		p.AddColumn(solver.Free(fmt.Sprintf("pn[%d]", h), retailPrice))
	}
	for h := 0; h < ix.hours; h++ {
		for g, gen := range m.params.Generators {
			p.AddColumn(solver.Binary(fmt.Sprintf("u[%d,%d]", h, g), gen.FixedCost))
		}
	}
	for h := 0; h < ix.hours; h++ {
		for g, gen := range m.params.Generators {
			width := gen.PMax / float64(ix.segs)
			for k := 0; k < ix.segs; k++ {
				p.AddColumn(solver.Continuous(
					fmt.Sprintf("pg[%d,%d,%d]", h, g, k),
					segmentSlope(gen, k, width), 0, width))
			}
		}
	}

	for h := 0; h < ix.hours; h++ {
		balance := make([]float64, ix.cols())
		balance[ix.pn(h)] = 1
		for g := range m.params.Generators {
			for k := 0; k < ix.segs; k++ {
				balance[ix.seg(h, g, k)] = 1
			}
		}
		p.AddRow(solver.Equality(fmt.Sprintf("balance[%d]", h), balance, m.params.Load[h]))

		for g, gen := range m.params.Generators {
			max := make([]float64, ix.cols())
			max[ix.u(h, g)] = -gen.PMax
			for k := 0; k < ix.segs; k++ {
				max[ix.seg(h, g, k)] = 1
			}
			p.AddRow(solver.AtMost(fmt.Sprintf("max[%d,%d]", h, g), max, 0))

			if gen.PMin > 0 {
				min := make([]float64, ix.cols())
				min[ix.u(h, g)] = -gen.PMin
				for k := 0; k < ix.segs; k++ {
					min[ix.seg(h, g, k)] = 1
				}
				p.AddRow(solver.AtLeast(fmt.Sprintf("min[%d,%d]", h, g), min, 0))
			}
		}
	}

	return p
}

func (m *Model) extract(ix detIndex, sol *solver.Solution, retailPrice float64) *Schedule {
	s := &Schedule{
		RetailPrice: retailPrice,
		Commitment:  make([][]float64, ix.hours),
		Generation:  make([][]float64, ix.hours),
		Net:         make([]float64, ix.hours),
		Objective:   sol.Objective,
		FuelCosts:   make([]float64, ix.gens),
	}
	for h := 0; h < ix.hours; h++ {
		s.Commitment[h] = make([]float64, ix.gens)
		s.Generation[h] = make([]float64, ix.gens)
		s.Net[h] = sol.Value(ix.pn(h))
		s.NetCost += retailPrice * s.Net[h]
		for g, gen := range m.params.Generators {
			u := sol.Value(ix.u(h, g))
			var pg float64
			for k := 0; k < ix.segs; k++ {
				pg += sol.Value(ix.seg(h, g, k))
			}
			s.Commitment[h][g] = u
			s.Generation[h][g] = pg
			if u > 0.5 {
				s.FuelCosts[g] += gen.QuadCost*pg*pg + gen.LinearCost*pg + gen.FixedCost
			}
		}
	}
	return s
}
