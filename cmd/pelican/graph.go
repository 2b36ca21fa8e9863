package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/anggasct/pelican"
	"github.com/anggasct/pelican/visualization"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Render the phase transition graph.",
	Long:  "`graph --format svg --output crossing.svg` renders the graph with Graphviz.",
	RunE:  renderGraph,
}

func init() {
	rootCmd.AddCommand(graphCmd)
	flags := graphCmd.Flags()
	flags.String("format", "dot", "output format (dot or svg)")
	flags.String("output", "", "write to this file instead of stdout")
	flags.String("active", "", "highlight this phase")
	flags.Bool("check", false, "verify the graph is live before rendering")
}

func renderGraph(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	if check, _ := cmd.Flags().GetBool("check"); check {
		if err := visualization.CheckLiveness(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.ErrOrStderr(), "phase graph is live")
	}

	opts := visualization.DefaultDOTOptions()
	if active, _ := cmd.Flags().GetString("active"); active != "" {
		phase, err := pelican.ParsePhase(active)
		if err != nil {
			return err
		}
		opts.Active = phase
		opts.HighlightActive = true
	}

	var content string
	format, _ := cmd.Flags().GetString("format")
	switch format {
	case "dot":
		content, err = visualization.NewDOTGenerator(cfg, opts).Generate()
	case "svg":
		content, err = visualization.NewSVGGenerator(cfg, opts).Generate()
	default:
		return fmt.Errorf("unknown format '%s'", format)
	}
	if err != nil {
		return err
	}

	if output, _ := cmd.Flags().GetString("output"); output != "" {
		return os.WriteFile(output, []byte(content), 0644)
	}
	_, err = fmt.Fprint(cmd.OutOrStdout(), content)
	return err
}
