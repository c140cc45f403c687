package model

// Scenario is one realization of the hourly load vector. It is immutable
// once drawn.
type Scenario []float64

// Negatives returns the number of negative load values in the scenario.
// Gaussian sampling is unconstrained below zero, so small nominal loads can
// produce negative draws.
func (s Scenario) Negatives() int {
	n := 0
	for _, v := range s {
		if v < 0 {
			n++
		}
	}
	return n
}

// ScenarioSet is a finite Monte Carlo sample of load scenarios, drawn once
// per run with a fixed seed.
type ScenarioSet struct {
	Scenarios []Scenario
	Seed      uint64
}

// Len returns the number of scenarios in the set.
func (s ScenarioSet) Len() int { return len(s.Scenarios) }

// Negatives returns the total number of negative load values across the set.
func (s ScenarioSet) Negatives() int {
	n := 0
	for _, sc := range s.Scenarios {
		n += sc.Negatives()
	}
	return n
}
