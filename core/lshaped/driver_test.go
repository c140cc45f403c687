package lshaped_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gridopt/stochuc/core/lshaped"
	"github.com/gridopt/stochuc/core/metrics"
	"github.com/gridopt/stochuc/core/model"
	"github.com/gridopt/stochuc/core/solver"
	"github.com/gridopt/stochuc/internal/eventbus"
	"github.com/gridopt/stochuc/test/util"
)

// toySystem is a four hour system with a flat load of 10 kW and a 5 kW
// generator, so half of every hour must be bought on one of the two
// contracts.
func toySystem() model.SystemParams {
	return model.SystemParams{
		FuelCost:      0.1,
		PMax:          5,
		ForwardPrice:  0.2,
		RealTimePrice: 0.3,
		Load:          []float64{10, 10, 10, 10},
	}
}

func nominalScenarios(sys model.SystemParams) model.ScenarioSet {
	return model.ScenarioSet{Scenarios: []model.Scenario{model.Scenario(sys.Load)}}
}

func newToyDriver(t *testing.T, sys model.SystemParams, cfg lshaped.Config) *lshaped.Driver {
	t.Helper()
	d, err := lshaped.New(sys, nominalScenarios(sys), util.ExactSolver{}, util.ExactSolver{}, cfg, nil)
	require.NoError(t, err)
	return d
}

func TestRunConvergesOnToySystem(t *testing.T) {
	sys := toySystem()
	d := newToyDriver(t, sys, lshaped.Config{Epsilon: 1e-4, Workers: 2})

	res, err := d.Run(context.Background())
	require.NoError(t, err)
	require.True(t, res.Converged)

	// With a single scenario the expected cost is deterministic: commit
	// every hour, generate 5 kW at 0.1 and buy the remaining 5 kW forward
	// at 0.2, so 1.5 per hour over four hours.
	require.InDelta(t, 6.0, res.Objective(), 1e-9)
	require.Equal(t, 3, res.Iterations)
	require.Len(t, res.History, 4)

	for h := 0; h < sys.Horizon(); h++ {
		require.InDelta(t, 1.0, res.Master.U[h], 1e-9, "hour %d commitment", h)
		require.InDelta(t, 5.0, res.Master.P1[h], 1e-9, "hour %d forward purchase", h)
	}
	require.NotEmpty(t, d.Cuts())
}

func TestRunLowerBoundsNonDecreasing(t *testing.T) {
	d := newToyDriver(t, toySystem(), lshaped.Config{Epsilon: 1e-4})

	res, err := d.Run(context.Background())
	require.NoError(t, err)
	for i := 1; i < len(res.History); i++ {
		if res.History[i].Lower < res.History[i-1].Lower-1e-9 {
			t.Fatalf("lower bound decreased at iteration %d: %v -> %v",
				i, res.History[i-1].Lower, res.History[i].Lower)
		}
	}
	last := res.History[len(res.History)-1]
	require.LessOrEqual(t, last.Lower, last.Upper+1e-9)
}

func TestRunSubSolutionsCoverDemand(t *testing.T) {
	sys := toySystem()
	d := newToyDriver(t, sys, lshaped.Config{Epsilon: 1e-4})

	res, err := d.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, res.Subs, 1)
	sub := res.Subs[0]
	for h, load := range sys.Load {
		supply := sub.PG[h] + sub.P1[h] + sub.P2[h]
		if supply < load-1e-9 {
			t.Fatalf("hour %d undersupplied: %v < %v", h, supply, load)
		}
		if sub.PG[h] > sys.PMax*sub.U[h]+1e-9 {
			t.Fatalf("hour %d generation exceeds committed capacity: %v", h, sub.PG[h])
		}
	}
}

// When real-time energy is no more expensive than the forward contract the
// first cut already prices the recourse exactly and the loop stops after a
// single cut iteration.
func TestRunDegenerateSingleScenario(t *testing.T) {
	sys := toySystem()
	sys.ForwardPrice = 0.3
	sys.RealTimePrice = 0.2
	d := newToyDriver(t, sys, lshaped.Config{Epsilon: 1e-4})

	res, err := d.Run(context.Background())
	require.NoError(t, err)
	require.True(t, res.Converged)
	require.LessOrEqual(t, res.Iterations, 2)
	// Commit, generate 5 kW at 0.1 and buy 5 kW real-time at 0.2.
	require.InDelta(t, 6.0, res.Objective(), 1e-9)
}

func TestRunIterationLimit(t *testing.T) {
	d := newToyDriver(t, toySystem(), lshaped.Config{Epsilon: 1e-4, MaxIterations: 1})

	res, err := d.Run(context.Background())
	require.ErrorIs(t, err, lshaped.ErrNoConvergence)
	require.NotNil(t, res)
	require.False(t, res.Converged)
	require.Equal(t, 1, res.Iterations)
}

type failingSolver struct{ err error }

func (f failingSolver) Solve(context.Context, *solver.Problem) (*solver.Solution, error) {
	return nil, f.err
}

func TestRunSubSolverFailureAborts(t *testing.T) {
	sys := toySystem()
	boom := errors.New("backend exploded")
	d, err := lshaped.New(sys, nominalScenarios(sys), util.ExactSolver{}, failingSolver{err: boom},
		lshaped.Config{Epsilon: 1e-4}, nil)
	require.NoError(t, err)

	_, err = d.Run(context.Background())
	require.ErrorIs(t, err, boom)
	require.Contains(t, err.Error(), "scenario 0")
}

func TestRunMasterSolverFailureAborts(t *testing.T) {
	sys := toySystem()
	boom := errors.New("no license")
	d, err := lshaped.New(sys, nominalScenarios(sys), failingSolver{err: boom}, util.ExactSolver{},
		lshaped.Config{Epsilon: 1e-4}, nil)
	require.NoError(t, err)

	_, err = d.Run(context.Background())
	require.ErrorIs(t, err, boom)
}

func TestRunCancelledContext(t *testing.T) {
	sys := toySystem()
	many := model.ScenarioSet{}
	for i := 0; i < 64; i++ {
		many.Scenarios = append(many.Scenarios, model.Scenario(sys.Load))
	}
	d, err := lshaped.New(sys, many, util.ExactSolver{}, util.ExactSolver{},
		lshaped.Config{Epsilon: 1e-4, Workers: 4}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = d.Run(ctx)
	require.Error(t, err)
}

func TestNewValidation(t *testing.T) {
	sys := toySystem()
	ok := nominalScenarios(sys)
	exact := util.ExactSolver{}
	cfg := lshaped.Config{Epsilon: 1e-4}

	cases := []struct {
		name      string
		sys       model.SystemParams
		scenarios model.ScenarioSet
		master    solver.Solver
		sub       solver.Solver
		cfg       lshaped.Config
	}{
		{"empty load", model.SystemParams{PMax: 5}, ok, exact, exact, cfg},
		{"no scenarios", sys, model.ScenarioSet{}, exact, exact, cfg},
		{"horizon mismatch", sys, model.ScenarioSet{Scenarios: []model.Scenario{{1, 2}}}, exact, exact, cfg},
		{"nil master", sys, ok, nil, exact, cfg},
		{"nil sub", sys, ok, exact, nil, cfg},
		{"zero epsilon", sys, ok, exact, exact, lshaped.Config{}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := lshaped.New(tc.sys, tc.scenarios, tc.master, tc.sub, tc.cfg, nil); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

type recordingSink struct {
	mu         sync.Mutex
	iterations []metrics.IterationStat
	runs       []metrics.RunStat
}

func (r *recordingSink) RecordIteration(s metrics.IterationStat) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.iterations = append(r.iterations, s)
	return nil
}

func (r *recordingSink) RecordRun(s metrics.RunStat) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.runs = append(r.runs, s)
	return nil
}

func TestRunObservability(t *testing.T) {
	d := newToyDriver(t, toySystem(), lshaped.Config{Epsilon: 1e-4})
	sink := &recordingSink{}
	d.SetMetricsSink(sink)
	bus := eventbus.New()
	events := bus.Subscribe()
	d.SetEventBus(bus)

	res, err := d.Run(context.Background())
	require.NoError(t, err)

	require.Len(t, sink.iterations, len(res.History))
	require.Len(t, sink.runs, 1)
	require.Equal(t, res.RunID, sink.runs[0].RunID)
	require.True(t, sink.runs[0].Converged)
	require.InDelta(t, res.Objective(), sink.runs[0].Objective, 1e-12)

	var iterEvents, runEvents int
	for len(events) > 0 {
		switch (<-events).(type) {
		case lshaped.IterationEvent:
			iterEvents++
		case lshaped.RunEvent:
			runEvents++
		default:
			t.Fatal("unexpected event type")
		}
	}
	// The subscriber channel is buffered and delivery is non-blocking, so
	// a fixed count is only guaranteed while nothing else drains the bus.
	require.Equal(t, len(res.History), iterEvents)
	require.Equal(t, 1, runEvents)
	bus.Close()
}

func ExampleDriver_Run() {
	sys := toySystem()
	d, _ := lshaped.New(sys, nominalScenarios(sys), util.ExactSolver{}, util.ExactSolver{},
		lshaped.Config{Epsilon: 1e-4}, nil)
	res, _ := d.Run(context.Background())
	fmt.Printf("converged=%t objective=%.2f\n", res.Converged, res.Objective())
	// Output: converged=true objective=6.00
}
