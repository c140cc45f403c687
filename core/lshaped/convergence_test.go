package lshaped

import (
	"testing"

	"github.com/gridopt/stochuc/core/model"
)

func TestCheckConvergence(t *testing.T) {
	const eps = 1e-4
	cases := []struct {
		name      string
		upper     float64
		lower     float64
		converged bool
	}{
		{"wide gap", 12, -2000, false},
		{"just above epsilon", 10 + 1.1e-4, 10, false},
		{"exactly epsilon", 10 + eps, 10, true},
		{"closed", 10, 10, true},
		{"upper below lower", 10, 10.5, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			objective := func(model.SubSolution) float64 { return tc.upper }
			masterObjective := func(model.MasterSolution) float64 { return tc.lower }
			subs := []model.SubSolution{{}, {}, {}}

			got, bounds := CheckConvergence(objective, masterObjective, model.MasterSolution{}, subs, eps)
			if got != tc.converged {
				t.Fatalf("converged = %t, want %t (gap %v)", got, tc.converged, bounds.Gap())
			}
			if bounds.Upper != tc.upper || bounds.Lower != tc.lower {
				t.Fatalf("bounds = %+v, want upper %v lower %v", bounds, tc.upper, tc.lower)
			}
		})
	}
}

func TestCheckConvergenceAveragesSubObjectives(t *testing.T) {
	costs := []float64{1, 2, 6}
	i := 0
	objective := func(model.SubSolution) float64 {
		c := costs[i]
		i++
		return c
	}
	masterObjective := func(model.MasterSolution) float64 { return 0 }

	converged, bounds := CheckConvergence(objective, masterObjective, model.MasterSolution{},
		make([]model.SubSolution, 3), 1e-4)
	if converged {
		t.Fatal("expected unconverged bounds")
	}
	if bounds.Upper != 3 {
		t.Fatalf("upper = %v, want the scenario mean 3", bounds.Upper)
	}
}
