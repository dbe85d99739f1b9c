package routing

import (
	"fmt"

	"github.com/azybler/campusnav/pkg/cost"
)

// Tips returns the safety tips along the route, in path order without
// repeats. Tips are a learner feature, so normal-mode routes have none.
func (r *Route) Tips() []string {
	if r.Mode != cost.Learner {
		return nil
	}
	var tips []string
	seen := make(map[string]struct{})
	for _, leg := range r.Legs {
		tip := leg.Edge.Tip
		if tip == "" {
			continue
		}
		if _, dup := seen[tip]; dup {
			continue
		}
		seen[tip] = struct{}{}
		tips = append(tips, tip)
	}
	return tips
}

// BlindSpotAlerts returns one alert per blind-spot leg, in any mode.
func (r *Route) BlindSpotAlerts() []string {
	var alerts []string
	for _, leg := range r.Legs {
		if leg.Edge.Attrs.BlindSpot {
			alerts = append(alerts, fmt.Sprintf("Blind spot at %s to %s", leg.From, leg.To))
		}
	}
	return alerts
}

// Turns counts direction changes the way the summary reports them: every
// intermediate node is one.
func (r *Route) Turns() int {
	return max(0, len(r.Nodes)-2)
}
