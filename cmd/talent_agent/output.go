package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/jonathan/talent-compass/internal/observability"
	"github.com/spf13/cobra"
)

var outputJSON bool

func init() {
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "Print results as JSON instead of formatted boxes")
}

// render prints v as indented JSON when --json is set, otherwise through the formatted printer
func render(cmd *cobra.Command, v any, pretty func(p *observability.Printer)) error {
	out := cmd.OutOrStdout()
	if outputJSON {
		return writeJSON(out, v)
	}
	pretty(observability.NewPrinter(out))
	return nil
}

func writeJSON(out io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal output: %w", err)
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}

// parseAdjustments reads repeated dimension=delta flags
func parseAdjustments(pairs []string) (map[string]float64, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	out := make(map[string]float64, len(pairs))
	for _, pair := range pairs {
		name, raw, ok := strings.Cut(pair, "=")
		name = strings.TrimSpace(name)
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid adjustment %q: expected dimension=delta", pair)
		}
		delta, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid adjustment %q: %w", pair, err)
		}
		out[name] += delta
	}
	return out, nil
}
