// Package ratchet enforces monotonic improvement of scalar or per-key
// metrics. A ratchet lets a metric improve freely, tolerates noise-sized
// regressions, and blocks anything worse. The comparison direction is a
// parameter: violation counts ratchet downward, coverage percentages upward.
package ratchet

import (
	"maps"
	"sort"
)

// eps absorbs float comparison noise; metric deltas below it are "equal".
const eps = 1e-9

// Polarity fixes which direction of change counts as worse.
type Polarity int

const (
	// LowerIsBetter suits violation and hole counts.
	LowerIsBetter Polarity = iota
	// HigherIsBetter suits coverage percentages.
	HigherIsBetter
)

// Worse returns how much worse current is than prior (positive = worse).
func (p Polarity) Worse(prior, current float64) float64 {
	if p == HigherIsBetter {
		return prior - current
	}
	return current - prior
}

// better returns the stronger of the two values under p.
func (p Polarity) better(a, b float64) float64 {
	if p == HigherIsBetter {
		if a > b {
			return a
		}
		return b
	}
	if a < b {
		return a
	}
	return b
}

// Config parameterizes one ratchet.
type Config struct {
	Polarity  Polarity
	Tolerance float64 // allowed regression without failing (never advances the baseline)
	Floor     float64 // absolute bar for keys with no prior entry
	HasFloor  bool    // when false, new keys are adopted unconditionally
}

// KeyResult describes the evaluation of one metric key.
type KeyResult struct {
	Key      string
	Prior    float64
	HasPrior bool
	Current  float64
}

// Decision is the outcome of comparing a current snapshot with a baseline.
type Decision struct {
	FirstRun   bool        // no baseline existed; current adopted wholesale
	Regressed  []KeyResult // worse than prior beyond tolerance
	BelowFloor []KeyResult // new keys failing the absolute floor
	Improved   []KeyResult // strictly better than prior
	Adopted    []KeyResult // new keys accepted
	Next       map[string]float64
	Save       bool // persist Next (first run, or passed with a real change)
}

// Passed reports whether the ratchet holds.
func (d *Decision) Passed() bool {
	return len(d.Regressed) == 0 && len(d.BelowFloor) == 0
}

// Evaluate compares current against prior under cfg.
//
// State machine per key: no baseline → adopt current, pass; worse beyond
// tolerance → fail, baseline unchanged; strictly better → pass, baseline
// advances; within tolerance → pass, baseline unchanged. Keys present only
// in prior (deleted entities) drop out of Next. A nil prior map means no
// baseline document existed at all: first run, adopt everything.
func Evaluate(cfg Config, prior, current map[string]float64) *Decision {
	d := &Decision{Next: make(map[string]float64, len(current))}

	if prior == nil {
		d.FirstRun = true
		d.Save = true
		maps.Copy(d.Next, current)
		return d
	}

	keys := make([]string, 0, len(current))
	for k := range current {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		cur := current[k]
		prev, ok := prior[k]
		kr := KeyResult{Key: k, Prior: prev, HasPrior: ok, Current: cur}

		if !ok {
			if cfg.HasFloor && cfg.Polarity.Worse(cfg.Floor, cur) > eps {
				d.BelowFloor = append(d.BelowFloor, kr)
				continue
			}
			d.Adopted = append(d.Adopted, kr)
			d.Next[k] = cur
			continue
		}

		worse := cfg.Polarity.Worse(prev, cur)
		switch {
		case worse > cfg.Tolerance+eps:
			d.Regressed = append(d.Regressed, kr)
			d.Next[k] = prev
		case worse < -eps:
			d.Improved = append(d.Improved, kr)
			d.Next[k] = cfg.Polarity.better(prev, cur)
		default:
			// Equal or tolerated noise: hold the line.
			d.Next[k] = prev
		}
	}

	d.Save = d.Passed() && !equalMaps(d.Next, prior)
	return d
}

// EvaluateTotal is the scalar convenience for single-aggregate ratchets.
// prior == nil means no baseline existed.
func EvaluateTotal(cfg Config, prior *float64, current float64) *Decision {
	var pm map[string]float64
	if prior != nil {
		pm = map[string]float64{"total": *prior}
	}
	return Evaluate(cfg, pm, map[string]float64{"total": current})
}

// Total returns the "total" entry of Next, for scalar ratchets.
func (d *Decision) Total() float64 {
	return d.Next["total"]
}

func equalMaps(a, b map[string]float64) bool {
	if len(a) != len(b) {
		return false
	}
	for k, av := range a {
		bv, ok := b[k]
		if !ok {
			return false
		}
		diff := av - bv
		if diff > eps || diff < -eps {
			return false
		}
	}
	return true
}
