package main

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/anggasct/pelican"
	"github.com/anggasct/pelican/pkg/observers"
	"github.com/anggasct/pelican/pkg/tracing"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Simulate a scripted run on a virtual clock.",
	Long: "Simulate runs the controller on a manual clock from t=0 until " +
		"--until, pressing the button at each --press-at time. It prints " +
		"every output change and a summary of the committed transitions.",
	RunE: simulate,
}

func init() {
	rootCmd.AddCommand(simulateCmd)
	flags := simulateCmd.Flags()
	flags.Int64("until", 30000, "simulated run length in milliseconds")
	flags.Int64Slice("press-at", nil, "button press times in milliseconds")
	flags.Bool("json", false, "print the summary as JSON")
	flags.String("trace-db", "", "write events to this SQLite database (without extension)")
}

type simulationSummary struct {
	Transitions []transitionRecord        `json:"transitions"`
	Metrics     observers.MetricsSnapshot `json:"metrics"`
	Violations  []string                  `json:"violations"`
	Final       pelican.Snapshot          `json:"final"`
}

type transitionRecord struct {
	At      int64  `json:"at_ms"`
	From    string `json:"from"`
	To      string `json:"to"`
	Cause   string `json:"cause"`
	Elapsed int64  `json:"elapsed_ms"`
}

func simulate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	until, _ := cmd.Flags().GetInt64("until")
	presses, _ := cmd.Flags().GetInt64Slice("press-at")
	asJSON, _ := cmd.Flags().GetBool("json")

	out := cmd.OutOrStdout()
	clock := pelican.NewManualClock(0)
	button := pelican.NewVirtualButton()
	metrics := observers.NewMetricsObserver()
	audit := observers.NewValidationObserver(cfg.GreenMinimumDuration)

	builder := pelican.NewBuilder().
		WithConfig(cfg).
		WithClock(clock).
		WithButton(button).
		WithSink(metrics, audit)

	if asJSON {
		builder.WithActuator(pelican.NewMemoryActuator())
	} else {
		logging, err := newLoggingObserver(cmd, out)
		if err != nil {
			return err
		}
		builder.
			WithActuator(pelican.NewConsoleActuator(out, clock)).
			WithSink(logging)
	}

	if tracePath, _ := cmd.Flags().GetString("trace-db"); tracePath != "" {
		writer := tracing.NewSQLiteTraceWriter(tracePath)
		if err := writer.Init(); err != nil {
			return err
		}
		defer writer.Close()
		builder.WithSink(writer)
	}

	controller, err := builder.Build()
	if err != nil {
		return err
	}

	transitions, err := controller.Simulate(clock, pelican.At(until), pressScript(button, presses))
	if err != nil {
		return err
	}

	summary := simulationSummary{
		Metrics:    metrics.Snapshot(),
		Violations: audit.GetViolations(),
		Final:      controller.Snapshot(),
	}
	for _, tr := range transitions {
		summary.Transitions = append(summary.Transitions, transitionRecord{
			At:      int64(tr.At),
			From:    tr.From.String(),
			To:      tr.To.String(),
			Cause:   tr.Cause.String(),
			Elapsed: tr.Elapsed.Milliseconds(),
		})
	}

	if asJSON {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(summary)
	}

	fmt.Fprintf(out, "\n%d transitions in %dms\n", len(transitions), until)
	for _, tr := range summary.Transitions {
		fmt.Fprintf(out, "  t=%-7d %-20s -> %-20s %s after %dms\n", tr.At, tr.From, tr.To, tr.Cause, tr.Elapsed)
	}
	for _, violation := range summary.Violations {
		fmt.Fprintf(out, "audit: %s\n", violation)
	}
	return nil
}

// pressScript holds the button for one tick at each press time
func pressScript(button *pelican.VirtualButton, presses []int64) func(now pelican.Timestamp) {
	pending := append([]int64(nil), presses...)
	sort.Slice(pending, func(i, j int) bool { return pending[i] < pending[j] })

	return func(now pelican.Timestamp) {
		button.Release()
		fired := false
		for len(pending) > 0 && pending[0] <= int64(now) {
			pending = pending[1:]
			fired = true
		}
		if fired {
			button.Press()
		}
	}
}
