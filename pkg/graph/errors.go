package graph

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrUnknownNode is returned when an operation references a node id
	// that is not in the graph.
	ErrUnknownNode = errors.New("unknown node")

	// ErrDuplicateNode is returned by Builder.AddNode when the id is
	// already present. Re-adding a node is rejected, not ignored.
	ErrDuplicateNode = errors.New("duplicate node")

	// ErrInvalidWeight is returned for negative, NaN or infinite weights.
	ErrInvalidWeight = errors.New("invalid edge weight")
)

// CheckWeight returns a wrapped ErrInvalidWeight unless w is a finite,
// non-negative number.
func CheckWeight(w float64) error {
	if math.IsNaN(w) || math.IsInf(w, 0) || w < 0 {
		return fmt.Errorf("%w: %v", ErrInvalidWeight, w)
	}
	return nil
}

func unknownNode(id NodeID) error {
	return fmt.Errorf("%w: %q", ErrUnknownNode, id)
}
