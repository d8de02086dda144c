package health

import (
	"fmt"
	"strconv"

	"turnstile/internal/format"
	"turnstile/internal/verdict"
)

// Threshold bounds one snapshot metric. Max fires above, Min below; zero
// means unbounded on that side.
type Threshold struct {
	Metric      string
	Description string
	Max         float64
	Min         float64
	HasMax      bool
	HasMin      bool
}

// Thresholds are the reporting limits, in display order. Informational
// metrics (LOC, file count) carry no bounds.
var Thresholds = []Threshold{
	{Metric: "file_count", Description: "source files"},
	{Metric: "source_loc", Description: "source lines"},
	{Metric: "test_loc", Description: "test lines"},
	{Metric: "nolint_directives", Description: "nolint directives", Max: 50, HasMax: true},
	{Metric: "any_types", Description: "any type uses", Max: 30, HasMax: true},
	{Metric: "empty_interfaces", Description: "interface{} uses", Max: 20, HasMax: true},
	{Metric: "test_source_ratio", Description: "test-to-source ratio", Min: 0.5, HasMin: true},
}

func (s *Snapshot) value(metric string) float64 {
	switch metric {
	case "file_count":
		return float64(s.Files)
	case "source_loc":
		return float64(s.SourceLOC)
	case "test_loc":
		return float64(s.TestLOC)
	case "any_types":
		return float64(s.AnyTypes)
	case "empty_interfaces":
		return float64(s.EmptyInterfaces)
	case "nolint_directives":
		return float64(s.NolintDirectives)
	case "test_source_ratio":
		return s.TestSourceRatio
	default:
		return 0
	}
}

// Evaluate applies the thresholds to a snapshot.
func Evaluate(s *Snapshot) *verdict.Report {
	rep := verdict.NewReport("health")
	for _, t := range Thresholds {
		v := s.value(t.Metric)
		switch {
		case t.HasMax && v > t.Max:
			rep.Blockf("", 0, "metric-threshold", "%s at %s, limit %s",
				t.Description, metricValue(v), metricValue(t.Max))
		case t.HasMin && v < t.Min:
			rep.Blockf("", 0, "metric-threshold", "%s at %s, minimum %s",
				t.Description, metricValue(v), metricValue(t.Min))
		}
	}
	rep.Notef("snapshot %s taken %s", s.RunID, s.TakenAt)
	return rep
}

// Table renders the Metric | Value | Status report.
func Table(s *Snapshot, mode format.Mode) string {
	tb := format.NewTable(mode)
	tb.Header("METRIC", "VALUE", "STATUS")
	tb.Columns(format.ColumnConfig{Number: 2, Align: format.AlignRight})
	for _, t := range Thresholds {
		v := s.value(t.Metric)
		status := "-"
		if t.HasMax || t.HasMin {
			ok := !(t.HasMax && v > t.Max) && !(t.HasMin && v < t.Min)
			status = format.BoolMark(ok)
		}
		tb.Row(t.Metric, metricValue(v), status)
	}
	return tb.String()
}

func metricValue(v float64) string {
	if v == float64(int64(v)) {
		return strconv.FormatInt(int64(v), 10)
	}
	return fmt.Sprintf("%.2f", v)
}
