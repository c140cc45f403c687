// Package export writes solver results as CSV and JSON, one file per named
// quantity: the bound trajectory, the scenario sample, computation times and
// the deterministic schedules.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"time"

	"github.com/gridopt/stochuc/core/deterministic"
	"github.com/gridopt/stochuc/core/lshaped"
	"github.com/gridopt/stochuc/core/model"
)

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

// WriteRunJSON writes the full decomposition result to w in JSON format.
func WriteRunJSON(w io.Writer, res *lshaped.Result) error {
	enc := json.NewEncoder(w)
	return enc.Encode(res)
}

// WriteBoundsCSV writes the bound trajectory to w, one row per iteration.
func WriteBoundsCSV(w io.Writer, history []model.Bounds) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"iteration", "upper_bound", "lower_bound", "gap"}); err != nil {
		return err
	}
	for i, b := range history {
		rec := []string{
			strconv.Itoa(i),
			formatFloat(b.Upper),
			formatFloat(b.Lower),
			formatFloat(b.Gap()),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSamplesCSV writes the scenario set to w, one row per scenario.
func WriteSamplesCSV(w io.Writer, set model.ScenarioSet) error {
	cw := csv.NewWriter(w)
	for _, sc := range set.Scenarios {
		rec := make([]string, len(sc))
		for h, v := range sc {
			rec[h] = formatFloat(v)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// RunTime pairs a price point with its computation time.
type RunTime struct {
	RealTimePrice float64
	Duration      time.Duration
}

// WriteTimesCSV writes per-price computation times to w.
func WriteTimesCSV(w io.Writer, times []RunTime) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"real_time_price", "seconds"}); err != nil {
		return err
	}
	for _, t := range times {
		rec := []string{
			formatFloat(t.RealTimePrice),
			formatFloat(t.Duration.Seconds()),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteScheduleCSV writes the deterministic generator schedule to w, one row
// per hour and generator.
func WriteScheduleCSV(w io.Writer, sched *deterministic.Schedule) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"hour", "generator", "unit_commitment", "generation"}); err != nil {
		return err
	}
	for h, gens := range sched.Generation {
		for g, pg := range gens {
			rec := []string{
				strconv.Itoa(h),
				strconv.Itoa(g),
				formatFloat(sched.Commitment[h][g]),
				formatFloat(pg),
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteExchangeCSV writes the hourly retailer exchange to w, positive values
// for imports.
func WriteExchangeCSV(w io.Writer, sched *deterministic.Schedule) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"hour", "import_export"}); err != nil {
		return err
	}
	for h, pn := range sched.Net {
		if err := cw.Write([]string{strconv.Itoa(h), formatFloat(pn)}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteSweepCSV summarizes a deterministic price sweep to w, one row per
// retail price.
func WriteSweepCSV(w io.Writer, schedules []*deterministic.Schedule) error {
	cw := csv.NewWriter(w)
	header := []string{"retail_price", "objective", "net_cost"}
	if len(schedules) > 0 {
		for g := range schedules[0].FuelCosts {
			header = append(header, "fuel_cost_generator"+strconv.Itoa(g+1))
		}
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, s := range schedules {
		rec := []string{
			formatFloat(s.RetailPrice),
			formatFloat(s.Objective),
			formatFloat(s.NetCost),
		}
		for _, fc := range s.FuelCosts {
			rec = append(rec, formatFloat(fc))
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
