// Package cost turns an edge and a routing mode into a traversal weight.
package cost

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/azybler/campusnav/pkg/graph"
)

// ErrInvalidPolicy is returned for a learner Policy with a negative or
// non-finite weight.
var ErrInvalidPolicy = errors.New("invalid learner policy")

// Mode selects the cost function.
type Mode int

const (
	// Normal minimises distance.
	Normal Mode = iota
	// Learner inflates risky edges so novice drivers get safer routes.
	Learner
)

func (m Mode) String() string {
	switch m {
	case Normal:
		return "normal"
	case Learner:
		return "learner"
	}
	return fmt.Sprintf("Mode(%d)", int(m))
}

// ParseMode parses "normal" or "learner", case-insensitively.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "normal", "":
		return Normal, nil
	case "learner":
		return Learner, nil
	}
	return Normal, fmt.Errorf("unknown mode %q (want normal or learner)", s)
}

// Model computes the weight of traversing an edge under a mode.
type Model interface {
	Weight(e *graph.Edge, mode Mode) (float64, error)
}

// Policy holds the learner penalty coefficients. The learner weight is
//
//	base * (1 + CrowdWeight*crowd + BlindSpotWeight*blind + ComplexityWeight*complexity)
//
// where blind is 1 for a blind spot and 0 otherwise.
type Policy struct {
	CrowdWeight      float64 `mapstructure:"crowd_weight"`
	BlindSpotWeight  float64 `mapstructure:"blind_spot_weight"`
	ComplexityWeight float64 `mapstructure:"complexity_weight"`
}

// DefaultPolicy returns coefficients that add half the base weight on the
// busiest roads, double it at blind spots and add a quarter at the most
// complex intersections.
func DefaultPolicy() Policy {
	return Policy{
		CrowdWeight:      0.5,
		BlindSpotWeight:  2.0,
		ComplexityWeight: 0.25,
	}
}

// Validate rejects negative or non-finite coefficients.
func (p Policy) Validate() error {
	for _, c := range []struct {
		name string
		v    float64
	}{
		{"crowd_weight", p.CrowdWeight},
		{"blind_spot_weight", p.BlindSpotWeight},
		{"complexity_weight", p.ComplexityWeight},
	} {
		if math.IsNaN(c.v) || math.IsInf(c.v, 0) || c.v < 0 {
			return fmt.Errorf("%w: %s = %v", ErrInvalidPolicy, c.name, c.v)
		}
	}
	return nil
}

// PolicyModel is the Model used by the router.
type PolicyModel struct {
	policy Policy
}

// NewModel returns a Model for p.
func NewModel(p Policy) (*PolicyModel, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &PolicyModel{policy: p}, nil
}

// Policy returns the coefficients in use.
func (m *PolicyModel) Policy() Policy { return m.policy }

// Weight implements Model. Normal mode returns the base weight. Learner mode
// multiplies it by a penalty that is never below 1, so learner weights are
// never cheaper than normal ones.
func (m *PolicyModel) Weight(e *graph.Edge, mode Mode) (float64, error) {
	if err := graph.CheckWeight(e.BaseWeight); err != nil {
		return 0, edgeErr(e, err)
	}

	switch mode {
	case Normal:
		return e.BaseWeight, nil
	case Learner:
	default:
		return 0, fmt.Errorf("unknown mode %v", mode)
	}

	crowd, err := attribute("crowd level", e.Attrs.CrowdLevel)
	if err != nil {
		return 0, edgeErr(e, err)
	}
	complexity, err := attribute("intersection complexity", e.Attrs.IntersectionComplexity)
	if err != nil {
		return 0, edgeErr(e, err)
	}
	var blind float64
	if e.Attrs.BlindSpot {
		blind = 1
	}

	penalty := 1 +
		m.policy.CrowdWeight*crowd +
		m.policy.BlindSpotWeight*blind +
		m.policy.ComplexityWeight*complexity

	w := e.BaseWeight * penalty
	if err := graph.CheckWeight(w); err != nil {
		return 0, edgeErr(e, err)
	}
	return w, nil
}

// attribute clamps negative values to 0 and rejects NaN.
func attribute(name string, v float64) (float64, error) {
	if math.IsNaN(v) {
		return 0, fmt.Errorf("%w: %s is NaN", graph.ErrInvalidWeight, name)
	}
	return max(v, 0), nil
}

func edgeErr(e *graph.Edge, err error) error {
	return fmt.Errorf("edge %q -> %q: %w", e.From, e.To, err)
}
