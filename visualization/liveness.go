package visualization

import (
	"fmt"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/topo"
	"gonum.org/v1/gonum/graph/traverse"

	"github.com/anggasct/pelican"
)

// PhaseGraph builds a gonum directed graph of the allowed phase transitions.
// Node IDs are the phase values.
func PhaseGraph() *simple.DirectedGraph {
	g := simple.NewDirectedGraph()
	for _, phase := range pelican.AllPhases() {
		g.AddNode(simple.Node(phase))
	}
	for _, from := range pelican.AllPhases() {
		for _, to := range pelican.Successors(from) {
			g.SetEdge(g.NewEdge(simple.Node(from), simple.Node(to)))
		}
	}
	return g
}

// Reachable returns the phases reachable from start, start included
func Reachable(g graph.Directed, start pelican.Phase) []pelican.Phase {
	var reached []pelican.Phase
	bf := traverse.BreadthFirst{
		Visit: func(n graph.Node) {
			reached = append(reached, pelican.Phase(n.ID()))
		},
	}
	bf.Walk(g, simple.Node(start), nil)
	return reached
}

// CheckLiveness verifies the transition graph can never trap the controller:
// every phase reaches every other phase, and green has no direct edge to red.
func CheckLiveness() error {
	g := PhaseGraph()

	if g.HasEdgeFromTo(int64(pelican.Green), int64(pelican.Red)) {
		return fmt.Errorf("phase graph allows %s -> %s", pelican.Green, pelican.Red)
	}

	components := topo.TarjanSCC(g)
	if len(components) != 1 {
		return fmt.Errorf("phase graph has %d strongly connected components, want 1", len(components))
	}

	for _, phase := range pelican.AllPhases() {
		if reached := Reachable(g, phase); len(reached) != len(pelican.AllPhases()) {
			return fmt.Errorf("only %d phases reachable from %s", len(reached), phase)
		}
	}
	return nil
}
