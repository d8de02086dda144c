package ratchet

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func countCfg() Config {
	return Config{Polarity: LowerIsBetter}
}

func coverageCfg() Config {
	return Config{Polarity: HigherIsBetter, Tolerance: 0.2, Floor: 80, HasFloor: true}
}

func TestFirstRun_AdoptsCurrent(t *testing.T) {
	d := Evaluate(countCfg(), nil, map[string]float64{"total": 10})
	if !d.FirstRun {
		t.Error("expected FirstRun")
	}
	if !d.Passed() {
		t.Error("first run must pass")
	}
	if !d.Save {
		t.Error("first run must persist the baseline")
	}
	if diff := cmp.Diff(map[string]float64{"total": 10}, d.Next); diff != "" {
		t.Errorf("Next mismatch (-want +got):\n%s", diff)
	}
}

func TestImprovement_AdvancesBaseline(t *testing.T) {
	prior := map[string]float64{"total": 5}
	d := Evaluate(countCfg(), prior, map[string]float64{"total": 3})
	if !d.Passed() {
		t.Error("improvement must pass")
	}
	if !d.Save {
		t.Error("improvement must persist")
	}
	if d.Next["total"] != 3 {
		t.Errorf("Next[total] = %v, want 3", d.Next["total"])
	}
	if len(d.Improved) != 1 || d.Improved[0].Key != "total" {
		t.Errorf("Improved = %+v", d.Improved)
	}
}

func TestRegression_BlocksAndKeepsBaseline(t *testing.T) {
	prior := map[string]float64{"total": 3}
	d := Evaluate(countCfg(), prior, map[string]float64{"total": 7})
	if d.Passed() {
		t.Error("regression must fail")
	}
	if d.Save {
		t.Error("failed run must not persist")
	}
	if d.Next["total"] != 3 {
		t.Errorf("Next[total] = %v, want prior 3", d.Next["total"])
	}
	if len(d.Regressed) != 1 || d.Regressed[0].Current != 7 {
		t.Errorf("Regressed = %+v", d.Regressed)
	}
}

func TestTolerance_PassesWithoutAdvancing(t *testing.T) {
	cfg := coverageCfg()
	prior := map[string]float64{"a.go": 90.0}
	// 0.15pp drop is inside the 0.2 tolerance.
	d := Evaluate(cfg, prior, map[string]float64{"a.go": 89.85})
	if !d.Passed() {
		t.Error("within-tolerance drop must pass")
	}
	if d.Save {
		t.Error("tolerated noise must not rewrite the baseline")
	}
	if d.Next["a.go"] != 90.0 {
		t.Errorf("Next[a.go] = %v, want held at 90", d.Next["a.go"])
	}

	// 0.5pp drop is beyond tolerance.
	d = Evaluate(cfg, prior, map[string]float64{"a.go": 89.5})
	if d.Passed() {
		t.Error("drop beyond tolerance must fail")
	}
}

func TestNewKeyFloor(t *testing.T) {
	cfg := coverageCfg()
	prior := map[string]float64{"a.go": 90}

	// New file below the 80 floor: violation regardless of global state.
	d := Evaluate(cfg, prior, map[string]float64{"a.go": 90, "new.go": 55})
	if d.Passed() {
		t.Error("new key below floor must fail")
	}
	if len(d.BelowFloor) != 1 || d.BelowFloor[0].Key != "new.go" {
		t.Errorf("BelowFloor = %+v", d.BelowFloor)
	}

	// At the floor: adopted.
	d = Evaluate(cfg, prior, map[string]float64{"a.go": 90, "new.go": 80})
	if !d.Passed() {
		t.Error("new key at floor must pass")
	}
	if !d.Save {
		t.Error("adopting a new key is a baseline change")
	}
	if d.Next["new.go"] != 80 {
		t.Errorf("Next[new.go] = %v, want 80", d.Next["new.go"])
	}
}

func TestNewKey_NoFloorAdoptsUnconditionally(t *testing.T) {
	d := Evaluate(countCfg(), map[string]float64{}, map[string]float64{"pkg/a": 12})
	if !d.Passed() {
		t.Error("no floor configured: new keys adopt as-is")
	}
	if d.Next["pkg/a"] != 12 {
		t.Errorf("Next = %+v", d.Next)
	}
}

func TestDeletedKey_DropsFromNext(t *testing.T) {
	prior := map[string]float64{"a.go": 2, "gone.go": 5}
	d := Evaluate(countCfg(), prior, map[string]float64{"a.go": 2})
	if !d.Passed() {
		t.Error("deletion alone must pass")
	}
	if _, ok := d.Next["gone.go"]; ok {
		t.Error("deleted key must drop from Next")
	}
	if !d.Save {
		t.Error("pruning a deleted key is a baseline change")
	}
}

func TestMixed_ImprovedKeysAdvanceIndividually(t *testing.T) {
	cfg := coverageCfg()
	prior := map[string]float64{"a.go": 80, "b.go": 90}
	d := Evaluate(cfg, prior, map[string]float64{"a.go": 85, "b.go": 89.9})
	if !d.Passed() {
		t.Errorf("tolerated b.go drop plus a.go gain must pass: %+v", d.Regressed)
	}
	if d.Next["a.go"] != 85 {
		t.Errorf("Next[a.go] = %v, want advanced to 85", d.Next["a.go"])
	}
	if d.Next["b.go"] != 90 {
		t.Errorf("Next[b.go] = %v, want held at 90", d.Next["b.go"])
	}
	if !d.Save {
		t.Error("a.go advanced, baseline must persist")
	}
}

func TestUnchanged_NoSave(t *testing.T) {
	prior := map[string]float64{"total": 4}
	d := Evaluate(countCfg(), prior, map[string]float64{"total": 4})
	if !d.Passed() || d.Save {
		t.Errorf("identical snapshot: Passed=%v Save=%v, want true/false", d.Passed(), d.Save)
	}
}

func TestEvaluateTotal(t *testing.T) {
	prior := 5.0
	d := EvaluateTotal(countCfg(), &prior, 3)
	if !d.Passed() || !d.Save || d.Total() != 3 {
		t.Errorf("Passed=%v Save=%v Total=%v", d.Passed(), d.Save, d.Total())
	}

	d = EvaluateTotal(countCfg(), nil, 10)
	if !d.FirstRun || d.Total() != 10 {
		t.Errorf("FirstRun=%v Total=%v", d.FirstRun, d.Total())
	}
}

func TestPolarity_Worse(t *testing.T) {
	if LowerIsBetter.Worse(3, 7) != 4 {
		t.Error("count rising is worse")
	}
	if HigherIsBetter.Worse(90, 85) != 5 {
		t.Error("coverage falling is worse")
	}
	if HigherIsBetter.Worse(85, 90) != -5 {
		t.Error("coverage rising is better (negative worse)")
	}
}
