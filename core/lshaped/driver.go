// Package lshaped implements the L-shaped decomposition of the two-stage
// stochastic unit-commitment problem. The driver alternates between a
// first-stage master problem and one sub-problem per load scenario, turning
// the sub-problems' dual prices into cutting planes on the master's value
// function estimate until the Monte Carlo upper bound and the master lower
// bound meet.
package lshaped

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gridopt/stochuc/core/logger"
	"github.com/gridopt/stochuc/core/metrics"
	"github.com/gridopt/stochuc/core/model"
	"github.com/gridopt/stochuc/core/solver"
	"github.com/gridopt/stochuc/internal/eventbus"
)

// ErrNoConvergence indicates the bounds did not close within the configured
// iteration limit.
var ErrNoConvergence = errors.New("bounds failed to converge within the iteration limit")

// Config tunes the decomposition loop.
type Config struct {
	// Epsilon is the convergence tolerance on the bound gap.
	Epsilon float64
	// MaxIterations caps the number of cut iterations. Zero keeps the loop
	// unbounded, matching the original formulation, which assumes
	// convergence for this problem class.
	MaxIterations int
	// Workers bounds the number of concurrent scenario solves. Zero or
	// negative uses one worker per CPU.
	Workers int
}

// Result is the outcome of one price point's decomposition run.
type Result struct {
	RunID         string               `json:"run_id"`
	RealTimePrice float64              `json:"real_time_price"`
	Master        model.MasterSolution `json:"master"`
	Subs          []model.SubSolution  `json:"subs"`
	Cuts          []model.Cut          `json:"cuts"`
	History       []model.Bounds       `json:"history"`
	Iterations    int                  `json:"iterations"`
	Converged     bool                 `json:"converged"`
	Duration      time.Duration        `json:"duration"`
}

// Objective returns the converged upper bound, the estimated expected total
// cost.
func (r *Result) Objective() float64 {
	if len(r.History) == 0 {
		return 0
	}
	return r.History[len(r.History)-1].Upper
}

// IterationEvent is published on the event bus after every convergence
// check.
type IterationEvent struct {
	RunID         string
	RealTimePrice float64
	Iteration     int
	Bounds        model.Bounds
	Converged     bool
	Cuts          int
	Scenarios     int
	Duration      time.Duration
}

// RunEvent is published when a price point finishes.
type RunEvent struct {
	RunID         string
	RealTimePrice float64
	Iterations    int
	Converged     bool
	Objective     float64
	Scenarios     int
	Duration      time.Duration
}

// Driver owns the decomposition loop for one system parameterization and
// scenario set. It mutates only its own accumulated cut collection; the
// scenario set is read-shared across workers.
type Driver struct {
	sys          model.SystemParams
	scenarios    model.ScenarioSet
	masterSolver solver.Solver
	subSolver    solver.Solver
	cfg          Config
	log          logger.Logger
	sink         metrics.Sink
	bus          eventbus.EventBus

	cuts []model.Cut
}

// New creates a Driver. The master solver must handle binary columns; the
// sub solver must report row duals.
func New(sys model.SystemParams, scenarios model.ScenarioSet, master, sub solver.Solver, cfg Config, log logger.Logger) (*Driver, error) {
	if err := sys.Validate(); err != nil {
		return nil, fmt.Errorf("system params: %w", err)
	}
	if scenarios.Len() == 0 {
		return nil, fmt.Errorf("scenario set is empty")
	}
	for i, sc := range scenarios.Scenarios {
		if len(sc) != sys.Horizon() {
			return nil, fmt.Errorf("scenario %d has %d hours, want %d", i, len(sc), sys.Horizon())
		}
	}
	if master == nil || sub == nil {
		return nil, fmt.Errorf("master and sub solvers are required")
	}
	if cfg.Epsilon <= 0 {
		return nil, fmt.Errorf("epsilon must be positive, got %v", cfg.Epsilon)
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Driver{
		sys:          sys,
		scenarios:    scenarios,
		masterSolver: master,
		subSolver:    sub,
		cfg:          cfg,
		log:          log,
		sink:         metrics.NopSink{},
	}, nil
}

// SetMetricsSink routes per-iteration and per-run statistics to the sink.
func (d *Driver) SetMetricsSink(sink metrics.Sink) {
	if sink != nil {
		d.sink = sink
	}
}

// SetEventBus publishes IterationEvent and RunEvent values on the bus.
func (d *Driver) SetEventBus(bus eventbus.EventBus) { d.bus = bus }

// Cuts returns the accumulated cut collection.
func (d *Driver) Cuts() []model.Cut { return d.cuts }

// Run executes the decomposition to convergence and returns the final
// master solution, the last iteration's scenario solutions and the bound
// trajectory. Any solver failure aborts the run.
func (d *Driver) Run(ctx context.Context) (*Result, error) {
	start := time.Now()
	res := &Result{
		RunID:         uuid.NewString(),
		RealTimePrice: d.sys.RealTimePrice,
	}
	d.log.Infof("starting decomposition: price=%.3f scenarios=%d epsilon=%g",
		d.sys.RealTimePrice, d.scenarios.Len(), d.cfg.Epsilon)

	master, err := d.solveMaster(ctx)
	if err != nil {
		return nil, err
	}

	for iteration := 0; ; iteration++ {
		subs, err := d.evaluateScenarios(ctx, master)
		if err != nil {
			return nil, err
		}

		converged, bounds := CheckConvergence(
			d.sys.Objective, d.sys.MasterObjective, master, subs, d.cfg.Epsilon)
		res.History = append(res.History, bounds)
		res.Iterations = iteration
		d.observeIteration(res, iteration, bounds, converged, time.Since(start))

		if converged {
			res.Master = master
			res.Subs = subs
			res.Cuts = d.cuts
			res.Converged = true
			res.Duration = time.Since(start)
			d.observeRun(res)
			return res, nil
		}
		if d.cfg.MaxIterations > 0 && iteration >= d.cfg.MaxIterations {
			res.Master = master
			res.Subs = subs
			res.Cuts = d.cuts
			res.Duration = time.Since(start)
			d.observeRun(res)
			return res, fmt.Errorf("after %d iterations (gap %g): %w",
				iteration, bounds.Gap(), ErrNoConvergence)
		}

		d.cuts = append(d.cuts, newCuts(d.sys, master, subs, iteration+1)...)
		d.log.Debugf("added cut %d (%d rows)", iteration+1, d.sys.Horizon())

		// Every scenario is re-evaluated against the new pinning values on
		// the next pass; nothing is reused across iterations.
		master, err = d.solveMaster(ctx)
		if err != nil {
			return nil, err
		}
	}
}

func (d *Driver) solveMaster(ctx context.Context) (model.MasterSolution, error) {
	p := buildMaster(d.sys, d.cuts)
	sol, err := d.masterSolver.Solve(ctx, p)
	if err != nil {
		return model.MasterSolution{}, fmt.Errorf("master problem: %w", err)
	}
	return extractMaster(d.sys, sol), nil
}

// evaluateScenarios solves every scenario sub-problem pinned to the given
// master solution. Workers write into a slice indexed by scenario, so the
// reduction in the convergence check is order-independent. The first solver
// failure cancels outstanding work and aborts the iteration.
func (d *Driver) evaluateScenarios(ctx context.Context, master model.MasterSolution) ([]model.SubSolution, error) {
	workers := d.cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > d.scenarios.Len() {
		workers = d.scenarios.Len()
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	subs := make([]model.SubSolution, d.scenarios.Len())
	jobs := make(chan int)
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
			cancel()
		}
		mu.Unlock()
	}

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				if ctx.Err() != nil {
					continue
				}
				p := buildSub(d.sys, master, d.scenarios.Scenarios[i])
				sol, err := d.subSolver.Solve(ctx, p)
				if err != nil {
					fail(fmt.Errorf("scenario %d: %w", i, err))
					continue
				}
				subs[i] = extractSub(d.sys, sol)
			}
		}()
	}

feed:
	for i := 0; i < d.scenarios.Len(); i++ {
		select {
		case jobs <- i:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return subs, nil
}

func (d *Driver) observeIteration(res *Result, iteration int, bounds model.Bounds, converged bool, elapsed time.Duration) {
	d.log.Infof("iteration %d: upper=%.6f lower=%.6f gap=%.6g converged=%t",
		iteration, bounds.Upper, bounds.Lower, bounds.Gap(), converged)
	stat := metrics.IterationStat{
		RunID:         res.RunID,
		RealTimePrice: res.RealTimePrice,
		Iteration:     iteration,
		Upper:         bounds.Upper,
		Lower:         bounds.Lower,
		Gap:           bounds.Gap(),
		Cuts:          len(d.cuts),
		Scenarios:     d.scenarios.Len(),
		Duration:      elapsed,
		Time:          time.Now(),
	}
	if err := d.sink.RecordIteration(stat); err != nil {
		d.log.Errorf("metrics error: %v", err)
	}
	if d.bus != nil {
		d.bus.Publish(IterationEvent{
			RunID:         res.RunID,
			RealTimePrice: res.RealTimePrice,
			Iteration:     iteration,
			Bounds:        bounds,
			Converged:     converged,
			Cuts:          len(d.cuts),
			Scenarios:     d.scenarios.Len(),
			Duration:      elapsed,
		})
	}
}

func (d *Driver) observeRun(res *Result) {
	stat := metrics.RunStat{
		RunID:         res.RunID,
		RealTimePrice: res.RealTimePrice,
		Iterations:    res.Iterations,
		Converged:     res.Converged,
		Objective:     res.Objective(),
		Scenarios:     d.scenarios.Len(),
		Duration:      res.Duration,
		Time:          time.Now(),
	}
	if err := d.sink.RecordRun(stat); err != nil {
		d.log.Errorf("metrics error: %v", err)
	}
	if d.bus != nil {
		d.bus.Publish(RunEvent{
			RunID:         res.RunID,
			RealTimePrice: res.RealTimePrice,
			Iterations:    res.Iterations,
			Converged:     res.Converged,
			Objective:     res.Objective(),
			Scenarios:     d.scenarios.Len(),
			Duration:      res.Duration,
		})
	}
}
