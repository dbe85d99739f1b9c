package graph

import (
	"errors"
	"math"
	"testing"

	"github.com/paulmach/osm"

	osmparser "github.com/azybler/campusnav/pkg/osm"
)

func mustAddNodes(t *testing.T, b *Builder, ids ...NodeID) {
	t.Helper()
	for i, id := range ids {
		if err := b.AddNode(Node{ID: id, Lat: 38.03 + float64(i)*0.001, Lon: -84.50}); err != nil {
			t.Fatalf("AddNode(%q): %v", id, err)
		}
	}
}

func mustAddEdge(t *testing.T, b *Builder, from, to NodeID, w float64) {
	t.Helper()
	if err := b.AddEdge(Edge{From: from, To: to, BaseWeight: w}); err != nil {
		t.Fatalf("AddEdge(%q, %q): %v", from, to, err)
	}
}

func neighborIDs(t *testing.T, g *Graph, id NodeID) []NodeID {
	t.Helper()
	seq, err := g.Neighbors(id)
	if err != nil {
		t.Fatalf("Neighbors(%q): %v", id, err)
	}
	var out []NodeID
	for v := range seq {
		out = append(out, v)
	}
	return out
}

func TestBuilderAddNodeDuplicate(t *testing.T) {
	b := NewBuilder()
	mustAddNodes(t, b, "A")
	err := b.AddNode(Node{ID: "A", Lat: 1, Lon: 1})
	if !errors.Is(err, ErrDuplicateNode) {
		t.Fatalf("AddNode duplicate err = %v, want ErrDuplicateNode", err)
	}

	g := b.Build()
	n, err := g.Node("A")
	if err != nil {
		t.Fatal(err)
	}
	if n.Lat == 1 {
		t.Error("rejected duplicate must not overwrite the original node")
	}
}

func TestBuilderAddEdgeErrors(t *testing.T) {
	b := NewBuilder()
	mustAddNodes(t, b, "A", "B")

	tests := []struct {
		name string
		edge Edge
		want error
	}{
		{"unknown from", Edge{From: "X", To: "B", BaseWeight: 1}, ErrUnknownNode},
		{"unknown to", Edge{From: "A", To: "X", BaseWeight: 1}, ErrUnknownNode},
		{"negative weight", Edge{From: "A", To: "B", BaseWeight: -1}, ErrInvalidWeight},
		{"NaN weight", Edge{From: "A", To: "B", BaseWeight: math.NaN()}, ErrInvalidWeight},
		{"infinite weight", Edge{From: "A", To: "B", BaseWeight: math.Inf(1)}, ErrInvalidWeight},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := b.AddEdge(tt.edge); !errors.Is(err, tt.want) {
				t.Errorf("AddEdge err = %v, want %v", err, tt.want)
			}
		})
	}

	if g := b.Build(); g.NumEdges() != 0 {
		t.Errorf("NumEdges = %d after rejected edges, want 0", g.NumEdges())
	}
}

func TestBuilderEdgeOrderAndReplace(t *testing.T) {
	b := NewBuilder()
	mustAddNodes(t, b, "A", "B", "C", "D")
	mustAddEdge(t, b, "A", "C", 5)
	mustAddEdge(t, b, "A", "B", 1)
	mustAddEdge(t, b, "A", "D", 2)
	// Replacing A->C keeps its slot.
	mustAddEdge(t, b, "A", "C", 7)

	g := b.Build()
	if g.NumEdges() != 3 {
		t.Fatalf("NumEdges = %d, want 3", g.NumEdges())
	}

	got := neighborIDs(t, g, "A")
	want := []NodeID{"C", "B", "D"}
	if len(got) != len(want) {
		t.Fatalf("Neighbors(A) = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Neighbors(A) = %v, want %v", got, want)
		}
	}

	e, ok := g.Edge("A", "C")
	if !ok || e.BaseWeight != 7 {
		t.Errorf("Edge(A, C) = %+v, %v; want weight 7", e, ok)
	}
	if _, ok := g.Edge("C", "A"); ok {
		t.Error("edges are directed; C->A should not exist")
	}
}

func TestGraphNeighbors(t *testing.T) {
	b := NewBuilder()
	mustAddNodes(t, b, "A", "B")
	mustAddEdge(t, b, "A", "B", 3)
	g := b.Build()

	if got := neighborIDs(t, g, "B"); len(got) != 0 {
		t.Errorf("Neighbors(B) = %v, want empty", got)
	}
	if _, err := g.Neighbors("Z"); !errors.Is(err, ErrUnknownNode) {
		t.Errorf("Neighbors(Z) err = %v, want ErrUnknownNode", err)
	}

	// The sequence can be ranged over more than once.
	seq, _ := g.Neighbors("A")
	for range 2 {
		count := 0
		for v, e := range seq {
			if v != "B" || e.BaseWeight != 3 {
				t.Errorf("got (%q, %v), want (B, 3)", v, e.BaseWeight)
			}
			count++
		}
		if count != 1 {
			t.Errorf("iterated %d edges, want 1", count)
		}
	}

	if !g.HasNode("A") || g.HasNode("Z") {
		t.Error("HasNode mismatch")
	}
	if _, err := g.Node("Z"); !errors.Is(err, ErrUnknownNode) {
		t.Errorf("Node(Z) err = %v, want ErrUnknownNode", err)
	}
}

func TestBuildIsSnapshot(t *testing.T) {
	b := NewBuilder()
	mustAddNodes(t, b, "A", "B")
	g := b.Build()

	mustAddNodes(t, b, "C")
	mustAddEdge(t, b, "A", "B", 1)

	if g.NumNodes() != 2 || g.NumEdges() != 0 || g.HasNode("C") {
		t.Errorf("graph changed after Build: nodes=%d edges=%d", g.NumNodes(), g.NumEdges())
	}
}

func TestBuildEmpty(t *testing.T) {
	g := NewBuilder().Build()
	if g.NumNodes() != 0 || g.NumEdges() != 0 {
		t.Errorf("empty graph: nodes=%d edges=%d", g.NumNodes(), g.NumEdges())
	}
	if !g.Bounds().IsEmpty() {
		t.Error("empty graph should have empty bounds")
	}
}

func TestFromParseResult(t *testing.T) {
	// Star around node 1 with four arms, plus a tail 2 -> 6.
	result := &osmparser.ParseResult{
		Edges: []osmparser.RawEdge{
			{FromNodeID: 2, ToNodeID: 1, Length: 100, Name: "Rose Street", Highway: "primary", CrowdLevel: 1, Tip: "Main road"},
			{FromNodeID: 3, ToNodeID: 1, Length: 100},
			{FromNodeID: 4, ToNodeID: 1, Length: 100},
			{FromNodeID: 5, ToNodeID: 1, Length: 100, BlindSpot: true},
			{FromNodeID: 2, ToNodeID: 6, Length: 50},
			{FromNodeID: 2, ToNodeID: 1, Length: 90, Name: "Rose Street", Highway: "primary", CrowdLevel: 1},
		},
		NodeLat: map[osm.NodeID]float64{1: 38.030, 2: 38.031, 3: 38.029, 4: 38.030, 5: 38.030, 6: 38.032},
		NodeLon: map[osm.NodeID]float64{1: -84.500, 2: -84.500, 3: -84.500, 4: -84.501, 5: -84.499, 6: -84.500},
	}

	g, err := FromParseResult(result)
	if err != nil {
		t.Fatalf("FromParseResult: %v", err)
	}
	if g.NumNodes() != 6 {
		t.Fatalf("NumNodes = %d, want 6", g.NumNodes())
	}
	if g.NumEdges() != 5 {
		t.Fatalf("NumEdges = %d, want 5 (duplicate pair replaced)", g.NumEdges())
	}

	// First-reference order.
	wantOrder := []NodeID{"2", "1", "3", "4", "5", "6"}
	for i, id := range wantOrder {
		if got := g.NodeAt(uint32(i)).ID; got != id {
			t.Errorf("NodeAt(%d) = %q, want %q", i, got, id)
		}
	}

	e, ok := g.Edge("2", "1")
	if !ok {
		t.Fatal("missing edge 2 -> 1")
	}
	if e.BaseWeight != 90 || e.Street != "Rose Street" || e.Attrs.CrowdLevel != 1 {
		t.Errorf("edge 2->1 = %+v", e)
	}
	// Node 1 has four distinct neighbours.
	if got := e.Attrs.IntersectionComplexity; got != 0.5 {
		t.Errorf("complexity into node 1 = %v, want 0.5", got)
	}

	tail, _ := g.Edge("2", "6")
	if tail.Attrs.IntersectionComplexity != 0 {
		t.Errorf("complexity into dead end = %v, want 0", tail.Attrs.IntersectionComplexity)
	}
	if blind, _ := g.Edge("5", "1"); !blind.Attrs.BlindSpot {
		t.Error("blind spot flag lost")
	}

	n, _ := g.Node("6")
	if n.Lat != 38.032 || n.Lon != -84.500 {
		t.Errorf("node 6 = (%f, %f)", n.Lat, n.Lon)
	}
	if !g.Bounds().Covers(38.030, -84.500) {
		t.Error("bounds should cover the network")
	}
}

func TestComplexityForDegree(t *testing.T) {
	tests := []struct {
		degree int
		want   float64
	}{
		{0, 0}, {1, 0}, {2, 0}, {3, 0.25}, {4, 0.5}, {6, 1}, {10, 1},
	}
	for _, tt := range tests {
		if got := complexityForDegree(tt.degree); got != tt.want {
			t.Errorf("complexityForDegree(%d) = %v, want %v", tt.degree, got, tt.want)
		}
	}
}
