package ui

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
)

// quietMode suppresses non-essential output when set via the global --quiet
// flag. Errors and warnings always print.
var quietMode bool

// SetQuietMode enables or disables quiet mode.
func SetQuietMode(quiet bool) {
	quietMode = quiet
}

// IsInteractive reports whether both stdin and stdout are terminals, gating
// confirmation prompts.
func IsInteractive() bool {
	return (isatty.IsTerminal(os.Stdin.Fd()) || isatty.IsCygwinTerminal(os.Stdin.Fd())) &&
		(isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()))
}

// PrintSuccess prints a success message.
//
// Parameters:
//   - format: Printf format string
//   - args: Printf arguments
func PrintSuccess(format string, args ...interface{}) {
	if quietMode {
		return
	}
	msg := fmt.Sprintf(format, args...)
	fmt.Println(SuccessStyle.Render("✓ " + msg))
}

// PrintError prints an error message.
//
// Parameters:
//   - format: Printf format string
//   - args: Printf arguments
func PrintError(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(ErrorStyle.Render("✗ " + msg))
}

// PrintWarning prints a warning message.
//
// Parameters:
//   - format: Printf format string
//   - args: Printf arguments
func PrintWarning(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(WarningStyle.Render("⚠ " + msg))
}

// PrintInfo prints an informational message.
//
// Parameters:
//   - format: Printf format string
//   - args: Printf arguments
func PrintInfo(format string, args ...interface{}) {
	if quietMode {
		return
	}
	msg := fmt.Sprintf(format, args...)
	fmt.Println(InfoStyle.Render(msg))
}

// PrintDim prints a dimmed message.
//
// Parameters:
//   - format: Printf format string
//   - args: Printf arguments
func PrintDim(format string, args ...interface{}) {
	if quietMode {
		return
	}
	msg := fmt.Sprintf(format, args...)
	fmt.Println(DimStyle.Render(msg))
}

// PrintPath prints a labeled file path or command hint.
//
// Parameters:
//   - label: The label shown dimmed.
//   - path: The path or command shown highlighted.
func PrintPath(label, path string) {
	if quietMode {
		return
	}
	fmt.Printf("  %s %s\n", DimStyle.Render(label+":"), PathStyle.Render(path))
}

// Confirm asks a yes/no question and returns the answer. Returns def when
// stdin is not interactive.
//
// Parameters:
//   - prompt: The question to show.
//   - def: Default answer for non-interactive sessions.
//
// Returns:
//   - bool: True if the user answered yes.
func Confirm(prompt string, def bool) bool {
	if !IsInteractive() {
		return def
	}
	fmt.Printf("%s [y/N]: ", WarningStyle.Render(prompt))
	var answer string
	if _, err := fmt.Scanln(&answer); err != nil {
		return false
	}
	return answer == "y" || answer == "Y" || answer == "yes"
}
