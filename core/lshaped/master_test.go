package lshaped

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gridopt/stochuc/core/model"
	"github.com/gridopt/stochuc/core/solver"
)

func TestBuildMasterLayout(t *testing.T) {
	sys := model.DefaultSystem()
	h := sys.Horizon()

	p := buildMaster(sys, nil)
	require.Equal(t, "master", p.Name)
	require.Len(t, p.Cols, 3*h)
	require.Len(t, p.Rows, h)
	require.True(t, p.HasBinary())

	for i := 0; i < h; i++ {
		u := p.Cols[i]
		require.True(t, u.Binary, "u[%d]", i)
		require.Equal(t, sys.FixedCost, u.Cost)

		p1 := p.Cols[h+i]
		require.False(t, p1.Binary)
		require.Equal(t, 0.0, p1.Lower)
		require.Equal(t, sys.ForwardPrice, p1.Cost)

		alpha := p.Cols[2*h+i]
		require.Equal(t, 1.0, alpha.Cost)
		require.True(t, math.IsInf(alpha.Lower, -1))
	}

	for i, row := range p.Rows {
		require.Equal(t, float64(AlphaFloor), row.Lower)
		require.True(t, math.IsInf(row.Upper, 1))
		require.Equal(t, 1.0, row.Coefs[2*h+i])
	}
}

func TestBuildMasterCutRows(t *testing.T) {
	sys := model.DefaultSystem()
	h := sys.Horizon()
	cut := model.Cut{Hour: 3, Iteration: 2, Intercept: 1.4, CoefU: -0.5, CoefP1: -0.2}

	p := buildMaster(sys, []model.Cut{cut})
	require.Len(t, p.Rows, h+1)

	row := p.Rows[h]
	require.Equal(t, "cut_2[3]", row.Name)
	require.Equal(t, cut.Intercept, row.Lower)
	require.True(t, math.IsInf(row.Upper, 1))
	// alpha - CoefU*u - CoefP1*p1 >= Intercept
	require.Equal(t, 1.0, row.Coefs[2*h+3])
	require.Equal(t, 0.5, row.Coefs[3])
	require.Equal(t, 0.2, row.Coefs[h+3])
}

func TestExtractMaster(t *testing.T) {
	sys := model.SystemParams{PMax: 5, Load: []float64{10, 12}}
	sol := &solver.Solution{
		Values:    []float64{1, 0, 4, 2, -1, 3},
		Objective: 9.5,
	}

	m := extractMaster(sys, sol)
	require.Equal(t, []float64{1, 0}, m.U)
	require.Equal(t, []float64{4, 2}, m.P1)
	require.Equal(t, []float64{-1, 3}, m.Alpha)
	require.Equal(t, 9.5, m.Objective)
}
