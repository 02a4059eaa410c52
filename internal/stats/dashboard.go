package stats

import (
	"fmt"

	"github.com/perceptio/backend/internal/domain/survey"
)

// DashboardKinds are the unfiltered aggregations a Dashboard bundles.
func DashboardKinds() []Kind {
	return []Kind{
		GlobalSatisfaction, SatisfactionByDevice, Confusions, PairedSatisfaction,
		SatisfactionByCategory, PerceptionByCategory, SatisfactionDetailed,
	}
}

// Dashboard computes every dashboard aggregation in turn.
func (e *Engine) Dashboard(recs []survey.SessionRecord) (*Dashboard, error) {
	results := make(map[Kind]any, len(DashboardKinds()))
	for _, k := range DashboardKinds() {
		v, err := e.Compute(k, "", recs)
		if err != nil {
			return nil, err
		}
		results[k] = v
	}
	return NewDashboard(len(recs), results)
}

// NewDashboard assembles computed aggregation results. Every kind in
// DashboardKinds must be present with the type Compute returns for it.
func NewDashboard(records int, results map[Kind]any) (*Dashboard, error) {
	d := &Dashboard{Records: records}
	var ok bool
	for _, k := range DashboardKinds() {
		v, found := results[k]
		if !found {
			return nil, fmt.Errorf("dashboard: missing %s", k)
		}
		switch k {
		case GlobalSatisfaction:
			d.GlobalSatisfaction, ok = v.(ResolutionCounts)
		case SatisfactionByDevice:
			d.SatisfactionByDevice, ok = v.(DeviceCounts)
		case Confusions:
			d.Confusions, ok = v.([]Confusion)
		case PairedSatisfaction:
			d.PairedSatisfaction, ok = v.(PairedCounts)
		case SatisfactionByCategory:
			d.SatisfactionByCategory, ok = v.(CategoryCounts)
		case PerceptionByCategory:
			d.PerceptionByCategory, ok = v.(PerceptionBreakdown)
		case SatisfactionDetailed:
			d.SatisfactionDetailed, ok = v.(DetailedCounts)
		}
		if !ok {
			return nil, fmt.Errorf("dashboard: unexpected %T for %s", v, k)
		}
	}
	return d, nil
}
