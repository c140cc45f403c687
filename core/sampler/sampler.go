// Package sampler draws Monte Carlo load scenarios for the stochastic
// unit-commitment problem. Each hour's load is normally distributed around
// its nominal value with variance equal to one third of that value, and the
// hours are independent (diagonal covariance).
package sampler

import (
	"fmt"
	"math"

	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distmv"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/gridopt/stochuc/core/model"
)

// Method selects the sampling technique.
type Method string

const (
	// Crude is plain Monte Carlo sampling from the multivariate normal.
	Crude Method = "crude"
	// Antithetic draws mirrored pairs around the nominal load to reduce
	// estimator variance.
	Antithetic Method = "antithetic"
	// LatinHypercube stratifies each hour's marginal into equally probable
	// intervals and samples one point per interval.
	LatinHypercube Method = "latin"
)

// Valid reports whether the method is one of the supported techniques.
func (m Method) Valid() bool {
	switch m {
	case Crude, Antithetic, LatinHypercube:
		return true
	}
	return false
}

// Draw generates size scenarios for the nominal load vector using the given
// method. The same seed, size and method always reproduce an identical set.
func Draw(load []float64, size int, seed uint64, method Method) (model.ScenarioSet, error) {
	if size <= 0 {
		return model.ScenarioSet{}, fmt.Errorf("sample size must be positive, got %d", size)
	}
	if len(load) == 0 {
		return model.ScenarioSet{}, fmt.Errorf("load vector is empty")
	}
	switch method {
	case Crude, "":
		return drawCrude(load, size, seed)
	case Antithetic:
		return drawAntithetic(load, size, seed)
	case LatinHypercube:
		return drawLatin(load, size, seed)
	default:
		return model.ScenarioSet{}, fmt.Errorf("unknown sampling method %q", method)
	}
}

// normal builds the multivariate normal with mean load and diagonal
// covariance load/3.
func normal(load []float64, src rand.Source) (*distmv.Normal, error) {
	sigma := mat.NewSymDense(len(load), nil)
	for i, l := range load {
		sigma.SetSym(i, i, l/3)
	}
	dist, ok := distmv.NewNormal(load, sigma, src)
	if !ok {
		return nil, fmt.Errorf("covariance matrix is not positive definite; all loads must be positive")
	}
	return dist, nil
}

func drawCrude(load []float64, size int, seed uint64) (model.ScenarioSet, error) {
	dist, err := normal(load, rand.NewSource(seed))
	if err != nil {
		return model.ScenarioSet{}, err
	}
	set := model.ScenarioSet{Seed: seed, Scenarios: make([]model.Scenario, size)}
	for i := range set.Scenarios {
		set.Scenarios[i] = dist.Rand(nil)
	}
	return set, nil
}

// drawAntithetic draws ceil(size/2) scenarios and mirrors each around the
// nominal load, truncating to size for odd sample counts.
func drawAntithetic(load []float64, size int, seed uint64) (model.ScenarioSet, error) {
	dist, err := normal(load, rand.NewSource(seed))
	if err != nil {
		return model.ScenarioSet{}, err
	}
	set := model.ScenarioSet{Seed: seed, Scenarios: make([]model.Scenario, 0, size+1)}
	for len(set.Scenarios) < size {
		s := model.Scenario(dist.Rand(nil))
		mirror := make(model.Scenario, len(s))
		for h, v := range s {
			mirror[h] = 2*load[h] - v
		}
		set.Scenarios = append(set.Scenarios, s, mirror)
	}
	set.Scenarios = set.Scenarios[:size]
	return set, nil
}

// drawLatin samples one point from each of size equally probable strata of
// every hour's marginal distribution, pairing strata across hours through
// independent permutations.
func drawLatin(load []float64, size int, seed uint64) (model.ScenarioSet, error) {
	rng := rand.New(rand.NewSource(seed))
	set := model.ScenarioSet{Seed: seed, Scenarios: make([]model.Scenario, size)}
	for i := range set.Scenarios {
		set.Scenarios[i] = make(model.Scenario, len(load))
	}
	for h, l := range load {
		if l <= 0 {
			return model.ScenarioSet{}, fmt.Errorf("load for hour %d must be positive for stratified sampling, got %v", h, l)
		}
		marginal := distuv.Normal{Mu: l, Sigma: math.Sqrt(l / 3)}
		perm := rng.Perm(size)
		for i := 0; i < size; i++ {
			set.Scenarios[i][h] = marginal.Quantile(stratumPoint(perm[i], size, rng.Float64()))
		}
	}
	return set, nil
}

// stratumPoint maps stratum k of size strata plus an offset in [0,1) to a
// probability in (0,1). A zero offset in the first stratum would hit the
// quantile function at 0, so it is replaced by the stratum midpoint.
func stratumPoint(k, size int, off float64) float64 {
	if off == 0 {
		off = 0.5
	}
	return (float64(k) + off) / float64(size)
}
