package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/access-system/face-recognition-enrollment/internal/api"
	"github.com/access-system/face-recognition-enrollment/internal/history"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const (
	statusLabelWidth = 20
	statusIndent     = "  "
)

var titleCaser = cases.Title(language.English)

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	statusText := statusKindLabel(kind)
	if message != "" {
		statusText = fmt.Sprintf("[%s] %s", statusText, message)
	} else {
		statusText = fmt.Sprintf("[%s]", statusText)
	}
	base := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", statusText)
	if colorize {
		if color := statusKindColor(kind); color != "" {
			return color + base + ansiReset
		}
	}
	return base
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func statusKindColor(kind statusKind) string {
	switch kind {
	case statusOK:
		return ansiGreen
	case statusWarn:
		return ansiYellow
	case statusError:
		return ansiRed
	case statusInfo:
		return ansiBlue
	default:
		return ""
	}
}

func renderSectionHeader(title string, colorize bool) []string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(line))
	if colorize {
		line = ansiBlue + line + ansiReset
		rule = ansiBlue + rule + ansiReset
	}
	return []string{line, rule}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// outcomeLabel renders an attempt outcome for humans, e.g. "Registered".
func outcomeLabel(outcome string) string {
	outcome = strings.TrimSpace(outcome)
	if outcome == "" {
		return "Unknown"
	}
	return titleCaser.String(strings.ReplaceAll(outcome, "_", " "))
}

func outcomeKind(outcome string) statusKind {
	switch history.Outcome(outcome) {
	case history.OutcomeRegistered:
		return statusOK
	case history.OutcomeDuplicate, history.OutcomeRejected, history.OutcomeCancelled:
		return statusWarn
	case history.OutcomeFailed:
		return statusError
	default:
		return statusInfo
	}
}

func stageKind(stage api.StageStatus) statusKind {
	switch {
	case stage.Fatal != "":
		return statusError
	case stage.LastError != "" || stage.Overruns > 0:
		return statusWarn
	case stage.State == "running":
		return statusOK
	default:
		return statusInfo
	}
}

// renderStatus writes the human readable daemon status report.
func renderStatus(w io.Writer, status api.DaemonStatus, colorize bool) {
	for _, line := range renderSectionHeader("Daemon", colorize) {
		fmt.Fprintln(w, line)
	}
	daemonKind := statusOK
	daemonMsg := fmt.Sprintf("running (pid %d)", status.PID)
	if !status.Running {
		daemonKind, daemonMsg = statusError, "not running"
	}
	fmt.Fprintln(w, renderStatusLine("Daemon", daemonKind, daemonMsg, colorize))

	previewKind, previewMsg := statusWarn, "stopped"
	if status.Preview {
		previewKind, previewMsg = statusOK, "running"
		if since, ok := api.ParseTime(status.PreviewSince); ok {
			previewMsg = fmt.Sprintf("running for %s", time.Since(since).Round(time.Second))
		}
	}
	fmt.Fprintln(w, renderStatusLine("Preview", previewKind, previewMsg, colorize))

	enrollKind, enrollMsg := statusInfo, "closed"
	if status.Enrollment.Active {
		enrollKind, enrollMsg = statusOK, "open (attempt "+status.Enrollment.AttemptID+")"
	}
	fmt.Fprintln(w, renderStatusLine("Enrollment", enrollKind, enrollMsg, colorize))
	fmt.Fprintln(w, renderStatusLine("Camera", statusInfo, status.CameraSource, colorize))
	fmt.Fprintln(w, renderStatusLine("Registry", statusInfo, status.RegistryURL, colorize))
	if status.LastInfo != "" {
		fmt.Fprintln(w, renderStatusLine("Last info", statusInfo, status.LastInfo, colorize))
	}
	if status.LastError != "" {
		fmt.Fprintln(w, renderStatusLine("Last error", statusError, status.LastError, colorize))
	}

	if len(status.Pipeline.Stages) > 0 {
		fmt.Fprintln(w)
		for _, line := range renderSectionHeader("Pipeline", colorize) {
			fmt.Fprintln(w, line)
		}
		rows := make([][]string, 0, len(status.Pipeline.Stages))
		for _, stage := range status.Pipeline.Stages {
			detail := stage.LastError
			if stage.Fatal != "" {
				detail = stage.Fatal
			}
			rows = append(rows, []string{
				stage.Name,
				statusKindLabel(stageKind(stage)),
				fmt.Sprintf("%d", stage.RateHz),
				fmt.Sprintf("%d", stage.Cycles),
				fmt.Sprintf("%d", stage.Failures),
				fmt.Sprintf("%d", stage.Overruns),
				fmt.Sprintf("%.1f", stage.LastDurationMs),
				detail,
			})
		}
		fmt.Fprintln(w, renderTable(
			[]string{"Stage", "State", "Hz", "Cycles", "Failures", "Overruns", "Last ms", "Detail"},
			rows,
			[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight, alignRight, alignLeft},
		))
	}

	if len(status.OutcomeCounts) > 0 {
		fmt.Fprintln(w)
		for _, line := range renderSectionHeader("Attempts", colorize) {
			fmt.Fprintln(w, line)
		}
		for _, outcome := range history.Outcomes {
			n, ok := status.OutcomeCounts[string(outcome)]
			if !ok {
				continue
			}
			fmt.Fprintln(w, renderStatusLine(outcomeLabel(string(outcome)), outcomeKind(string(outcome)), fmt.Sprintf("%d", n), colorize))
		}
	}
}
