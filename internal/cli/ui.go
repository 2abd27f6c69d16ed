package cli

import (
	"github.com/fatih/color"
)

// Форматирование вывода. fatih/color сам отключает цвета без TTY и при NO_COLOR
var (
	successMark = color.New(color.FgGreen).SprintFunc()
	errorMark   = color.New(color.FgRed).SprintFunc()
	warning     = color.New(color.FgYellow).SprintFunc()
	highlight   = color.New(color.FgCyan).SprintFunc()
	muted       = color.New(color.Faint).SprintFunc()
)

const hiddenValue = "********"

func ok() string {
	return successMark("✓")
}

// FormatError renders a command error for the terminal.
func FormatError(err error) string {
	return errorMark("✗") + " Error: " + err.Error()
}
