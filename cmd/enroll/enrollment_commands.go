package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/access-system/face-recognition-enrollment/internal/api"
)

func newEnrollmentCommands(ctx *commandContext) []*cobra.Command {
	return []*cobra.Command{
		newActionCommand(ctx, "start", "Open the enrollment gate for one attempt", (*api.Client).StartEnrollment),
		newActionCommand(ctx, "stop", "Close the enrollment gate and cancel the open attempt", (*api.Client).StopEnrollment),
		newActionCommand(ctx, "toggle", "Open the gate when closed, close it when open", (*api.Client).ToggleEnrollment),
	}
}

func newPreviewCommand(ctx *commandContext) *cobra.Command {
	previewCmd := &cobra.Command{
		Use:   "preview",
		Short: "Control the camera preview and stage pipeline",
	}
	previewCmd.AddCommand(
		newActionCommand(ctx, "start", "Open the camera and start the pipeline", (*api.Client).StartPreview),
		newActionCommand(ctx, "stop", "Stop the pipeline and release the camera", (*api.Client).StopPreview),
	)
	return previewCmd
}

type actionFunc func(*api.Client, context.Context) (api.ActionResponse, error)

func newActionCommand(ctx *commandContext, use, short string, action actionFunc) *cobra.Command {
	var output *jsonOutput
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				resp, err := action(client, cmd.Context())
				if err != nil {
					return err
				}
				return output.emit(cmd, resp, func(out io.Writer) error {
					fmt.Fprintln(out, capitalize(resp.Message))
					if resp.Enrollment.Active && resp.Enrollment.AttemptID != "" {
						fmt.Fprintf(out, "Attempt: %s\n", resp.Enrollment.AttemptID)
					}
					return nil
				})
			})
		},
	}
	output = addJSONFlag(cmd, "the response")
	return cmd
}

func capitalize(message string) string {
	if message == "" {
		return message
	}
	return strings.ToUpper(message[:1]) + message[1:]
}
