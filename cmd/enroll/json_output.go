package main

import (
	"encoding/json"
	"io"

	"github.com/spf13/cobra"
)

// jsonOutput carries the --json flag shared by the status, history, preflight
// and action commands.
type jsonOutput struct {
	enabled bool
}

func addJSONFlag(cmd *cobra.Command, what string) *jsonOutput {
	o := &jsonOutput{}
	cmd.Flags().BoolVar(&o.enabled, "json", false, "Print "+what+" as JSON")
	return o
}

// emit writes v as indented JSON when --json is set and calls render otherwise.
func (o *jsonOutput) emit(cmd *cobra.Command, v any, render func(io.Writer) error) error {
	out := cmd.OutOrStdout()
	if o.enabled {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	return render(out)
}
