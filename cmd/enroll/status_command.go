package main

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/access-system/face-recognition-enrollment/internal/api"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var output *jsonOutput
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show daemon, pipeline, and attempt status",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				status, err := client.Status(cmd.Context())
				if err != nil {
					return err
				}
				return output.emit(cmd, status, func(out io.Writer) error {
					renderStatus(out, status, shouldColorize(out))
					return nil
				})
			})
		},
	}
	output = addJSONFlag(cmd, "the status")
	return cmd
}
