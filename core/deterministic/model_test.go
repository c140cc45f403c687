package deterministic

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gridopt/stochuc/core/solver"
)

func testParams() Params {
	return Params{
		Generators: []Generator{
			{FixedCost: 0.1, LinearCost: 0.128, QuadCost: 1.2e-3, PMax: 20},
			{FixedCost: 0.2, LinearCost: 0.532, QuadCost: 1.12e-3, PMax: 40},
		},
		Load:         []float64{10, 30},
		RetailPrices: []float64{0.05, 0.15},
		Segments:     4,
	}
}

func TestDefaultParams(t *testing.T) {
	p := DefaultParams()
	require.NoError(t, p.Validate())
	require.Len(t, p.Generators, 2)
	require.Len(t, p.Load, 24)
	require.Len(t, p.RetailPrices, 8)
	require.InDelta(t, 0.05, p.RetailPrices[0], 1e-9)
	require.InDelta(t, 0.75, p.RetailPrices[7], 1e-9)
}

func TestParamsValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Params)
	}{
		{"no generators", func(p *Params) { p.Generators = nil }},
		{"empty load", func(p *Params) { p.Load = nil }},
		{"no prices", func(p *Params) { p.RetailPrices = nil }},
		{"zero segments", func(p *Params) { p.Segments = 0 }},
		{"bad bounds", func(p *Params) { p.Generators[0].PMin = 30 }},
		{"concave cost", func(p *Params) { p.Generators[1].QuadCost = -1 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := testParams()
			tc.mutate(&p)
			if err := p.Validate(); err == nil {
				t.Fatal("expected validation error")
			}
		})
	}
}

func TestSegmentSlopesIncrease(t *testing.T) {
	g := Generator{LinearCost: 0.128, QuadCost: 1.2e-3, PMax: 20}
	width := g.PMax / 8
	prev := segmentSlope(g, 0, width)
	require.Greater(t, prev, g.LinearCost)
	for k := 1; k < 8; k++ {
		s := segmentSlope(g, k, width)
		require.Greater(t, s, prev, "segment %d", k)
		prev = s
	}
}

// The chord over all segments spans the full curve: summing width*slope per
// segment must reproduce the exact quadratic cost at capacity.
func TestSegmentSlopesIntegrateToQuadratic(t *testing.T) {
	g := Generator{LinearCost: 0.5, QuadCost: 2e-3, PMax: 16}
	const segs = 8
	width := g.PMax / segs
	var total float64
	for k := 0; k < segs; k++ {
		total += width * segmentSlope(g, k, width)
	}
	exact := g.QuadCost*g.PMax*g.PMax + g.LinearCost*g.PMax
	require.InDelta(t, exact, total, 1e-9)
}

func TestBuildLayout(t *testing.T) {
	params := testParams()
	m, err := New(params, stubSolver{}, nil)
	require.NoError(t, err)

	ix := newDetIndex(params)
	p := m.build(ix, 0.05)

	// 2 net exchange + 4 commitment + 16 segment columns.
	require.Len(t, p.Cols, 22)
	require.True(t, p.HasBinary())
	// One balance row plus one capacity row per hour and generator.
	require.Len(t, p.Rows, 6)

	balance := p.Rows[0]
	require.Equal(t, params.Load[0], balance.Lower)
	require.Equal(t, balance.Lower, balance.Upper)
	require.Equal(t, 1.0, balance.Coefs[ix.pn(0)])
	require.Equal(t, 1.0, balance.Coefs[ix.seg(0, 0, 0)])
	require.Equal(t, 1.0, balance.Coefs[ix.seg(0, 1, 3)])
	require.Equal(t, 0.0, balance.Coefs[ix.seg(1, 0, 0)])

	max := p.Rows[1]
	require.Equal(t, -params.Generators[0].PMax, max.Coefs[ix.u(0, 0)])
	require.Equal(t, 0.0, max.Upper)

	// The retailer exchange may be negative (export) and costs the retail
	// price per unit.
	pn := p.Cols[ix.pn(0)]
	require.Equal(t, 0.05, pn.Cost)
	require.False(t, pn.Binary)
}

type stubSolver struct {
	sol *solver.Solution
	err error
}

func (s stubSolver) Solve(context.Context, *solver.Problem) (*solver.Solution, error) {
	return s.sol, s.err
}

func TestSolveExtractsSchedule(t *testing.T) {
	params := testParams()
	ix := newDetIndex(params)
	values := make([]float64, ix.cols())
	// Hour 0: generator 0 committed at 10 kW over two segments, no import.
	values[ix.u(0, 0)] = 1
	values[ix.seg(0, 0, 0)] = 5
	values[ix.seg(0, 0, 1)] = 5
	// Hour 1: both committed, 5 kW exported.
	values[ix.u(1, 0)] = 1
	values[ix.u(1, 1)] = 1
	values[ix.seg(1, 0, 0)] = 5
	values[ix.seg(1, 1, 0)] = 10
	values[ix.seg(1, 1, 1)] = 10
	values[ix.pn(1)] = -5
	values[ix.pn(0)] = 0

	m, err := New(params, stubSolver{sol: &solver.Solution{Values: values, Objective: 42}}, nil)
	require.NoError(t, err)

	sched, err := m.Solve(context.Background(), 0.15)
	require.NoError(t, err)
	require.Equal(t, 42.0, sched.Objective)
	require.Equal(t, 0.15, sched.RetailPrice)
	require.Equal(t, []float64{0, -5}, sched.Net)
	require.InDelta(t, -0.75, sched.NetCost, 1e-9)
	require.Equal(t, 10.0, sched.Generation[0][0])
	require.Equal(t, 20.0, sched.Generation[1][1])
	require.Equal(t, 0.0, sched.Generation[0][1])

	// Exact quadratic fuel cost, not the piecewise approximation:
	// generator 0 runs 10 then 5 kW, generator 1 runs 20 kW once.
	g0 := params.Generators[0]
	g1 := params.Generators[1]
	wantG0 := g0.QuadCost*100 + g0.LinearCost*10 + g0.FixedCost +
		g0.QuadCost*25 + g0.LinearCost*5 + g0.FixedCost
	wantG1 := g1.QuadCost*400 + g1.LinearCost*20 + g1.FixedCost
	require.InDelta(t, wantG0, sched.FuelCosts[0], 1e-9)
	require.InDelta(t, wantG1, sched.FuelCosts[1], 1e-9)
}

func TestSweepPropagatesSolverError(t *testing.T) {
	boom := errors.New("mip blew up")
	m, err := New(testParams(), stubSolver{err: boom}, nil)
	require.NoError(t, err)

	_, err = m.Sweep(context.Background())
	require.ErrorIs(t, err, boom)
	require.Contains(t, err.Error(), "retail price")
}

func TestNewValidation(t *testing.T) {
	if _, err := New(Params{}, stubSolver{}, nil); err == nil {
		t.Fatal("expected error for invalid params")
	}
	if _, err := New(testParams(), nil, nil); err == nil {
		t.Fatal("expected error for nil solver")
	}
}
