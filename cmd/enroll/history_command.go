package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/access-system/face-recognition-enrollment/internal/api"
	"github.com/access-system/face-recognition-enrollment/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var (
		outcome string
		limit   int
		output  *jsonOutput
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent enrollment attempts",
		RunE: func(cmd *cobra.Command, args []string) error {
			outcome = strings.ToLower(strings.TrimSpace(outcome))
			if outcome != "" && !history.Outcome(outcome).Valid() {
				return fmt.Errorf("unknown outcome %q (want one of %s)", outcome, outcomeChoices())
			}
			return ctx.withClient(func(client *api.Client) error {
				resp, err := client.History(cmd.Context(), api.HistoryQuery{Outcome: outcome, Limit: limit})
				if err != nil {
					return err
				}
				return output.emit(cmd, resp, func(out io.Writer) error {
					if len(resp.Entries) == 0 {
						fmt.Fprintln(out, "No attempts recorded")
						return nil
					}
					fmt.Fprintln(out, renderHistory(resp.Entries))
					return nil
				})
			})
		},
	}
	cmd.Flags().StringVarP(&outcome, "outcome", "o", "", "Filter by outcome ("+outcomeChoices()+")")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum attempts to show")
	output = addJSONFlag(cmd, "attempts")
	return cmd
}

func renderHistory(entries []api.HistoryEntry) string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		finished := e.FinishedAt
		if ts, ok := api.ParseTime(e.FinishedAt); ok {
			finished = ts.Local().Format("2006-01-02 15:04:05")
		}
		duration := ""
		if e.DurationMs > 0 {
			duration = (time.Duration(e.DurationMs * float64(time.Millisecond))).Round(10 * time.Millisecond).String()
		}
		rows = append(rows, []string{
			finished,
			outcomeLabel(e.Outcome),
			e.Identifier,
			duration,
			e.Message,
		})
	}
	return renderTable(
		[]string{"Finished", "Outcome", "Identifier", "Duration", "Message"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignLeft},
	)
}

func outcomeChoices() string {
	names := make([]string, 0, len(history.Outcomes))
	for _, o := range history.Outcomes {
		names = append(names, string(o))
	}
	return strings.Join(names, ", ")
}
