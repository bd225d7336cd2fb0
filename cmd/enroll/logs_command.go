package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/access-system/face-recognition-enrollment/internal/api"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var (
		lines     int
		follow    bool
		component string
		interval  time.Duration
	)
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show recent daemon log events",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withClient(func(client *api.Client) error {
				out := cmd.OutOrStdout()
				resp, err := client.Logs(cmd.Context(), api.LogQuery{Limit: lines, Tail: true, Component: component})
				if err != nil {
					return err
				}
				printLogEvents(out, resp.Events)
				if !follow {
					return nil
				}
				cursor := resp.Next
				ticker := time.NewTicker(interval)
				defer ticker.Stop()
				for {
					select {
					case <-cmd.Context().Done():
						return nil
					case <-ticker.C:
					}
					resp, err := client.Logs(cmd.Context(), api.LogQuery{Since: cursor, Component: component})
					if err != nil {
						if cmd.Context().Err() != nil {
							return nil
						}
						return err
					}
					printLogEvents(out, resp.Events)
					if resp.Next > cursor {
						cursor = resp.Next
					}
				}
			})
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of recent events to show")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Keep polling for new events")
	cmd.Flags().StringVar(&component, "component", "", "Only show events from this component")
	cmd.Flags().DurationVar(&interval, "interval", time.Second, "Polling interval for --follow")
	return cmd
}

func printLogEvents(w io.Writer, events []api.LogEvent) {
	for _, evt := range events {
		fmt.Fprintln(w, formatLogEvent(evt))
	}
}

func formatLogEvent(evt api.LogEvent) string {
	var b strings.Builder
	b.WriteString(evt.Timestamp.Local().Format("15:04:05"))
	b.WriteByte(' ')
	b.WriteString(fmt.Sprintf("%-5s", strings.ToUpper(evt.Level)))
	b.WriteByte(' ')
	if evt.Component != "" {
		b.WriteString(evt.Component)
		b.WriteString(": ")
	}
	b.WriteString(evt.Message)
	if evt.Stage != "" {
		b.WriteString(" stage=" + evt.Stage)
	}
	if evt.AttemptID != "" {
		b.WriteString(" attempt=" + evt.AttemptID)
	}
	keys := make([]string, 0, len(evt.Fields))
	for k := range evt.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		b.WriteString(" " + k + "=" + evt.Fields[k])
	}
	return b.String()
}
