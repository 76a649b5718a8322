package ux

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
)

// Colour helpers. fatih/color turns these into no-ops when NO_COLOR is set
// or stdout is not a terminal.
var (
	Bold   = color.New(color.Bold).SprintFunc()
	Dim    = color.New(color.Faint).SprintFunc()
	Red    = color.New(color.FgRed).SprintFunc()
	Green  = color.New(color.FgGreen).SprintFunc()
	Yellow = color.New(color.FgYellow).SprintFunc()
	Blue   = color.New(color.FgBlue).SprintFunc()
	Cyan   = color.New(color.FgCyan).SprintFunc()
)

var tagColors = map[string]func(a ...any) string{
	"DIR": Blue,
	"GIT": Yellow,
	"DRY": Cyan,
	"OK":  Green,
}

// Tag renders an operator log tag such as [DIR].
func Tag(kind string) string {
	t := "[" + kind + "]"
	if c, ok := tagColors[strings.ToUpper(kind)]; ok {
		return c(t)
	}
	return t
}

// Log writes one tagged line.
func Log(w io.Writer, kind, format string, args ...any) {
	fmt.Fprintf(w, "%s %s\n", Tag(kind), fmt.Sprintf(format, args...))
}

// PassFail renders [PASS] or [FAIL].
func PassFail(ok bool) string {
	if ok {
		return Green("[PASS]")
	}
	return Red("[FAIL]")
}

// Error writes the standard error line.
func Error(w io.Writer, err error) {
	fmt.Fprintf(w, "%s %v\n", Red("error:"), err)
}

// Alert levels.
const (
	LevelWarning = "warning"
	LevelError   = "error"
	LevelInfo    = "info"
)

// Alert writes a bordered box headed by the level. Borders are plain text
// when colour is off.
func Alert(w io.Writer, level string, lines ...string) {
	border := lipgloss.NormalBorder()
	style := lipgloss.NewStyle().Border(border).Padding(0, 1)
	if !color.NoColor {
		style = style.BorderForeground(alertColor(level))
	}
	body := Bold(strings.ToUpper(level)) + "\n" + strings.Join(lines, "\n")
	fmt.Fprintln(w, style.Render(body))
}

func alertColor(level string) lipgloss.Color {
	switch level {
	case LevelError:
		return lipgloss.Color("1")
	case LevelWarning:
		return lipgloss.Color("3")
	}
	return lipgloss.Color("6")
}

// Status colours a directive status for listings.
func Status(status string) string {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "active", "in_progress", "in-progress":
		return Cyan(status)
	case "todo", "open":
		return Yellow(status)
	case "done", "completed", "archived":
		return Green(status)
	case "blocked", "cancelled":
		return Red(status)
	}
	return status
}
