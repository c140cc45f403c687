// Package metrics defines the observability boundary of the solver. The
// decomposition driver records one IterationStat per convergence check and
// one RunStat per finished price point; infra/metrics provides the
// Prometheus and InfluxDB sinks.
package metrics

import "time"

// IterationStat describes one decomposition iteration.
type IterationStat struct {
	RunID         string
	RealTimePrice float64
	Iteration     int
	Upper         float64
	Lower         float64
	Gap           float64
	Cuts          int
	Scenarios     int
	Duration      time.Duration
	Time          time.Time
}

// RunStat describes one finished price point.
type RunStat struct {
	RunID         string
	RealTimePrice float64
	Iterations    int
	Converged     bool
	Objective     float64
	Scenarios     int
	Duration      time.Duration
	Time          time.Time
}

// Sink records solver statistics for observability purposes.
type Sink interface {
	RecordIteration(stat IterationStat) error
	RecordRun(stat RunStat) error
}

// NopSink discards all records.
type NopSink struct{}

func (NopSink) RecordIteration(IterationStat) error { return nil }
func (NopSink) RecordRun(RunStat) error             { return nil }

// MultiSink fans records out to multiple sinks.
type MultiSink struct {
	Sinks []Sink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...Sink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordIteration forwards the record to all sinks, returning the first
// error encountered.
func (m *MultiSink) RecordIteration(stat IterationStat) error {
	for _, s := range m.Sinks {
		if err := s.RecordIteration(stat); err != nil {
			return err
		}
	}
	return nil
}

// RecordRun forwards the record to all sinks.
func (m *MultiSink) RecordRun(stat RunStat) error {
	for _, s := range m.Sinks {
		if err := s.RecordRun(stat); err != nil {
			return err
		}
	}
	return nil
}
