package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/anggasct/pelican"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Print the resolved configuration.",
	RunE:  printConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.Flags().Bool("json", false, "print as JSON")
}

func printConfig(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", "  ")
		return encoder.Encode(cfg)
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	for _, phase := range pelican.AllPhases() {
		fmt.Fprintf(w, "%s\t%s\n", phase, cfg.Duration(phase))
	}
	fmt.Fprintf(w, "green_minimum\t%s\n", cfg.GreenMinimumDuration)
	fmt.Fprintf(w, "debounce_window\t%s\n", cfg.DebounceWindow)
	fmt.Fprintf(w, "tick_period\t%s\n", cfg.TickPeriod)
	return w.Flush()
}
