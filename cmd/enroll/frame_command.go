package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/access-system/face-recognition-enrollment/internal/api"
	"github.com/access-system/face-recognition-enrollment/internal/config"
	"github.com/access-system/face-recognition-enrollment/internal/fileutil"
)

func newFrameCommand(ctx *commandContext) *cobra.Command {
	var (
		output string
		mirror bool
	)
	cmd := &cobra.Command{
		Use:   "frame",
		Short: "Save the current preview frame as JPEG",
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(output)
			if target == "" {
				target = "frame.jpg"
			}
			expanded, err := config.ExpandPath(target)
			if err != nil {
				return fmt.Errorf("resolve output path: %w", err)
			}
			return ctx.withClient(func(client *api.Client) error {
				data, err := client.Frame(cmd.Context(), mirror)
				if err != nil {
					return err
				}
				if err := fileutil.WriteFileAtomic(expanded, data, 0o644); err != nil {
					return fmt.Errorf("write frame: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Saved frame to %s (%d bytes)\n", expanded, len(data))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Destination file (default frame.jpg)")
	cmd.Flags().BoolVar(&mirror, "mirror", false, "Flip the frame horizontally")
	return cmd
}
