package visualization

import (
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/anggasct/pelican"
)

// DOTGenerator generates Graphviz DOT format representations of the phase graph
type DOTGenerator struct {
	timings pelican.Config
	options DOTOptions
}

// DOTOptions configures the DOT generation
type DOTOptions struct {
	ShowDurations   bool
	ShowSignals     bool
	RankDirection   string // "TB", "LR", "BT", "RL"
	NodeShape       string
	TransitionStyle string
	// Active is highlighted when valid
	Active pelican.Phase
	// HighlightActive enables the Active highlight
	HighlightActive bool
}

// DefaultDOTOptions returns sensible default options for DOT generation
func DefaultDOTOptions() DOTOptions {
	return DOTOptions{
		ShowDurations:   true,
		ShowSignals:     true,
		RankDirection:   "LR",
		NodeShape:       "box",
		TransitionStyle: "solid",
	}
}

// NewDOTGenerator creates a new DOT generator labelled with cfg's durations
func NewDOTGenerator(cfg pelican.Config, options ...DOTOptions) *DOTGenerator {
	opts := DefaultDOTOptions()
	if len(options) > 0 {
		opts = options[0]
	}

	return &DOTGenerator{
		timings: cfg,
		options: opts,
	}
}

// Generate creates a DOT representation of the phase graph
func (g *DOTGenerator) Generate() (string, error) {
	var dot strings.Builder

	dot.WriteString("digraph PelicanCrossing {\n")
	dot.WriteString(fmt.Sprintf("  rankdir=%s;\n", g.options.RankDirection))
	dot.WriteString(fmt.Sprintf("  node [shape=%s];\n", g.options.NodeShape))
	dot.WriteString("  edge [fontsize=10];\n\n")

	dot.WriteString("  // Phases\n")
	for _, phase := range pelican.AllPhases() {
		if err := g.generatePhaseNode(&dot, phase); err != nil {
			return "", fmt.Errorf("failed to generate phases: %w", err)
		}
	}

	dot.WriteString("  // Transitions\n")
	for _, from := range pelican.AllPhases() {
		for _, to := range pelican.Successors(from) {
			dot.WriteString(fmt.Sprintf("  \"%s\" -> \"%s\" [style=%s label=\"%s\"];\n",
				from, to, g.options.TransitionStyle, edgeLabel(from, to)))
		}
	}

	dot.WriteString("}\n")

	return dot.String(), nil
}

func (g *DOTGenerator) generatePhaseNode(dot *strings.Builder, phase pelican.Phase) error {
	signals, ok := pelican.Project(phase)
	if !ok {
		return pelican.NewPhaseError(phase, "no output projection")
	}

	label := phase.String()
	if phase == pelican.Red {
		label += "\\n(initial)"
	}
	if g.options.ShowDurations {
		label += fmt.Sprintf("\\n%s", g.timings.Duration(phase))
	}
	if g.options.ShowSignals {
		label += fmt.Sprintf("\\n%s", signals)
	}

	fillColor := fillFor(phase)
	penWidth := 1
	if g.options.HighlightActive && g.options.Active == phase {
		penWidth = 3
		label += "\\n[active]"
	}

	dot.WriteString(fmt.Sprintf("  \"%s\" [style=\"filled\" fillcolor=%s penwidth=%d label=\"%s\"];\n",
		phase, fillColor, penWidth, label))
	return nil
}

func fillFor(phase pelican.Phase) string {
	switch phase {
	case pelican.Red:
		return "lightcoral"
	case pelican.RedAmber, pelican.Amber:
		return "lightgoldenrod"
	case pelican.Green:
		return "lightgreen"
	default:
		return "lightblue"
	}
}

func edgeLabel(from, to pelican.Phase) string {
	switch {
	case from == pelican.Green:
		return "timeout | interrupt"
	case from == pelican.Amber && to == pelican.PedestrianCrossing:
		return "request pending"
	case from == pelican.Amber:
		return "no request"
	default:
		return "timeout"
	}
}

// GenerateToFile writes the DOT representation to a file
func (g *DOTGenerator) GenerateToFile(filename string) error {
	content, err := g.Generate()
	if err != nil {
		return err
	}

	return os.WriteFile(filename, []byte(content), 0644)
}

// SVGGenerator generates SVG representations by calling Graphviz
type SVGGenerator struct {
	dotGenerator *DOTGenerator
}

// NewSVGGenerator creates a new SVG generator
func NewSVGGenerator(cfg pelican.Config, options ...DOTOptions) *SVGGenerator {
	return &SVGGenerator{
		dotGenerator: NewDOTGenerator(cfg, options...),
	}
}

// Generate creates an SVG representation of the phase graph
func (g *SVGGenerator) Generate() (string, error) {
	dotContent, err := g.dotGenerator.Generate()
	if err != nil {
		return "", err
	}

	cmd := exec.Command("dot", "-Tsvg")
	cmd.Stdin = strings.NewReader(dotContent)

	var out bytes.Buffer
	cmd.Stdout = &out

	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("failed to execute dot command: %w (make sure Graphviz is installed)", err)
	}

	return out.String(), nil
}

// GenerateSVG creates an SVG representation of the phase graph
func (g *DOTGenerator) GenerateSVG() (string, error) {
	svgGen := &SVGGenerator{dotGenerator: g}
	return svgGen.Generate()
}
