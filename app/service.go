package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gridopt/stochuc/config"
	"github.com/gridopt/stochuc/core/deterministic"
	"github.com/gridopt/stochuc/core/lshaped"
	coremetrics "github.com/gridopt/stochuc/core/metrics"
	"github.com/gridopt/stochuc/core/model"
	"github.com/gridopt/stochuc/core/sampler"
	"github.com/gridopt/stochuc/core/solver"
	"github.com/gridopt/stochuc/infra/logger"
	"github.com/gridopt/stochuc/infra/metrics"
	lpsolver "github.com/gridopt/stochuc/infra/solver/highs"
	mipsolver "github.com/gridopt/stochuc/infra/solver/lpsolve"
	"github.com/gridopt/stochuc/internal/eventbus"
	"github.com/gridopt/stochuc/pkg/export"
)

// Service wires the sampler, solvers and decomposition driver together and
// owns result export.
type Service struct {
	cfg  *config.Config
	log  logger.Logger
	sink coremetrics.Sink
	bus  *eventbus.Bus

	master solver.Solver
	sub    solver.Solver
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("service")

	var sinks []coremetrics.Sink
	if cfg.Metrics.PrometheusEnabled {
		sink, err := metrics.NewPromSink(cfg.Metrics)
		if err != nil {
			return nil, fmt.Errorf("prom sink: %w", err)
		}
		sinks = append(sinks, sink)
	}
	if cfg.Metrics.InfluxEnabled {
		sink := metrics.NewInfluxSinkWithFallback(
			cfg.Metrics.InfluxURL, cfg.Metrics.InfluxToken,
			cfg.Metrics.InfluxOrg, cfg.Metrics.InfluxBucket)
		sinks = append(sinks, sink)
	}
	var sink coremetrics.Sink = coremetrics.NopSink{}
	if len(sinks) == 1 {
		sink = sinks[0]
	} else if len(sinks) > 1 {
		sink = coremetrics.NewMultiSink(sinks...)
	}

	return &Service{
		cfg:    cfg,
		log:    logg,
		sink:   sink,
		bus:    eventbus.New(),
		master: mipsolver.New(),
		sub:    lpsolver.New(),
	}, nil
}

// Bus exposes the progress event bus for additional subscribers.
func (s *Service) Bus() eventbus.EventBus { return s.bus }

// Run executes the stochastic solve for every configured real-time price and
// exports results.
func (s *Service) Run(ctx context.Context) error {
	if s.cfg.Metrics.PrometheusEnabled {
		go func() {
			if err := metrics.StartPromServer(ctx, ":"+s.cfg.Metrics.PrometheusPort); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}

	set, err := s.drawScenarios()
	if err != nil {
		return err
	}
	if s.cfg.Output.CSV {
		if err := s.writeFile("samples.csv", func(w io.Writer) error {
			return export.WriteSamplesCSV(w, set)
		}); err != nil {
			return err
		}
	}

	base := s.cfg.System.System()
	var times []export.RunTime
	for _, price := range s.cfg.System.Prices() {
		sys := base.WithRealTimePrice(price)
		driver, err := lshaped.New(sys, set, s.master, s.sub, lshaped.Config{
			Epsilon:       s.cfg.Solve.Epsilon,
			MaxIterations: s.cfg.Solve.MaxIterations,
			Workers:       s.cfg.Solve.Workers,
		}, s.log)
		if err != nil {
			return err
		}
		driver.SetMetricsSink(s.sink)
		driver.SetEventBus(s.bus)

		res, err := driver.Run(ctx)
		if err != nil {
			return fmt.Errorf("real-time price %.4f: %w", price, err)
		}
		times = append(times, export.RunTime{RealTimePrice: price, Duration: res.Duration})
		if err := s.exportRun(res); err != nil {
			return err
		}
	}

	if s.cfg.Output.CSV {
		if err := s.writeFile("computation_times.csv", func(w io.Writer) error {
			return export.WriteTimesCSV(w, times)
		}); err != nil {
			return err
		}
	}
	return nil
}

// RunDeterministic executes the one-shot economic dispatch sweep.
func (s *Service) RunDeterministic(ctx context.Context) error {
	params := deterministic.DefaultParams()
	if len(s.cfg.System.Load) > 0 {
		params.Load = s.cfg.System.Load
	}
	m, err := deterministic.New(params, s.master, s.log)
	if err != nil {
		return err
	}
	schedules, err := m.Sweep(ctx)
	if err != nil {
		return err
	}
	if !s.cfg.Output.CSV {
		return nil
	}
	for _, sched := range schedules {
		suffix := priceSuffix(sched.RetailPrice)
		if err := s.writeFile("generator_lambda_"+suffix+".csv", func(w io.Writer) error {
			return export.WriteScheduleCSV(w, sched)
		}); err != nil {
			return err
		}
		if err := s.writeFile("retailer_lambda_"+suffix+".csv", func(w io.Writer) error {
			return export.WriteExchangeCSV(w, sched)
		}); err != nil {
			return err
		}
	}
	return s.writeFile("objective_values.csv", func(w io.Writer) error {
		return export.WriteSweepCSV(w, schedules)
	})
}

// WriteSamples draws the scenario set and writes it to w as CSV.
func (s *Service) WriteSamples(w io.Writer) error {
	set, err := s.drawScenarios()
	if err != nil {
		return err
	}
	return export.WriteSamplesCSV(w, set)
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	s.bus.Close()
	if c, ok := s.sink.(interface{ Close() }); ok {
		c.Close()
	}
	return nil
}

func (s *Service) drawScenarios() (model.ScenarioSet, error) {
	set, err := sampler.Draw(
		s.cfg.System.Load,
		s.cfg.Sampling.Size,
		s.cfg.Sampling.Seed,
		sampler.Method(s.cfg.Sampling.Method),
	)
	if err != nil {
		return model.ScenarioSet{}, fmt.Errorf("draw scenarios: %w", err)
	}
	// Gaussian sampling is unconstrained below zero; negative loads are
	// passed through to the solver unchanged.
	if n := set.Negatives(); n > 0 {
		s.log.Warnf("scenario set contains %d negative load values", n)
	}
	return set, nil
}

func (s *Service) exportRun(res *lshaped.Result) error {
	suffix := priceSuffix(res.RealTimePrice)
	if s.cfg.Output.JSON {
		if err := s.writeFile("results_"+suffix+".json", func(w io.Writer) error {
			return export.WriteRunJSON(w, res)
		}); err != nil {
			return err
		}
	}
	if s.cfg.Output.CSV {
		if err := s.writeFile("bounds_"+suffix+".csv", func(w io.Writer) error {
			return export.WriteBoundsCSV(w, res.History)
		}); err != nil {
			return err
		}
	}
	return nil
}

func (s *Service) writeFile(name string, write func(io.Writer) error) error {
	if err := os.MkdirAll(s.cfg.Output.Dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(s.cfg.Output.Dir, name)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()
	if err := write(f); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	s.log.Infof("wrote %s", path)
	return nil
}

func priceSuffix(price float64) string {
	return strconv.FormatFloat(price, 'f', 2, 64)
}
