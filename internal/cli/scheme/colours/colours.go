// Package colours is the palette for readaloud's command line output.
package colours

import "github.com/fatih/color"

// Color scheme for the CLI
var (
	Title   = color.New(color.FgCyan, color.Bold)
	Author  = color.New(color.FgMagenta)
	Prompt  = color.New(color.FgGreen, color.Bold)
	Error   = color.New(color.FgRed, color.Bold)
	Success = color.New(color.FgGreen)
	Info    = color.New(color.FgBlue)
	Warning = color.New(color.FgYellow)

	// narration transcript
	Sentence = color.New(color.FgHiWhite)
	Position = color.New(color.Faint)
)

// Enabled reports whether output is coloured. It is off when stdout is not a
// terminal or NO_COLOR is set.
func Enabled() bool {
	return !color.NoColor
}
