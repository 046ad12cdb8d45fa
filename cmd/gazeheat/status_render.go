package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"

	"gazeheat/internal/jobs"
)

type statusKind string

const (
	statusInfo  statusKind = "INFO"
	statusOK    statusKind = "OK"
	statusWarn  statusKind = "WARN"
	statusError statusKind = "ERROR"
)

var statusColors = map[statusKind]text.Colors{
	statusInfo:  {text.FgBlue},
	statusOK:    {text.FgGreen},
	statusWarn:  {text.FgYellow},
	statusError: {text.FgRed},
}

const (
	statusIndent     = "  "
	statusLabelWidth = 20
)

// renderStatusLine formats "  label:   [KIND] message", colored by kind.
func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	line := statusIndent + fmt.Sprintf("%-*s [%s]", statusLabelWidth, label+":", kind)
	if message != "" {
		line += " " + message
	}
	return paint(line, statusColors[kind], colorize)
}

func renderSectionHeader(title string, colorize bool) []string {
	line := "== " + strings.TrimSpace(title) + " =="
	rule := strings.Repeat("-", len(line))
	return []string{paint(line, statusColors[statusInfo], colorize), paint(rule, statusColors[statusInfo], colorize)}
}

// colorStatus colors a job status the way status lines color their kind.
func colorStatus(status jobs.Status, colorize bool) string {
	kind := statusInfo
	switch status {
	case jobs.StatusCompleted:
		kind = statusOK
	case jobs.StatusTruncated:
		kind = statusWarn
	case jobs.StatusFailed, jobs.StatusRejected:
		kind = statusError
	}
	return paint(string(status), statusColors[kind], colorize)
}

func paint(s string, colors text.Colors, colorize bool) string {
	if !colorize || len(colors) == 0 {
		return s
	}
	return colors.Sprint(s)
}

func shouldColorize(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
