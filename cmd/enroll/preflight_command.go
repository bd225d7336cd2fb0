package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/access-system/face-recognition-enrollment/internal/preflight"
)

func newPreflightCommand(ctx *commandContext) *cobra.Command {
	var output *jsonOutput
	cmd := &cobra.Command{
		Use:   "preflight",
		Short: "Check directories, camera, model worker, and registry readiness",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			results := preflight.RunAll(cmd.Context(), cfg)
			err = output.emit(cmd, results, func(out io.Writer) error {
				colorize := shouldColorize(out)
				for _, line := range renderSectionHeader("Preflight", colorize) {
					fmt.Fprintln(out, line)
				}
				for _, r := range results {
					kind := statusOK
					if !r.Passed {
						kind = statusError
					}
					fmt.Fprintln(out, renderStatusLine(r.Name, kind, r.Detail, colorize))
				}
				return nil
			})
			if err != nil {
				return err
			}
			if !preflight.Passed(results) {
				return errors.New("preflight checks failed")
			}
			return nil
		},
	}
	output = addJSONFlag(cmd, "results")
	return cmd
}
