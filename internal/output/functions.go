package output

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

func PrintSuccess(text string) {
	fmt.Println(successStyle.Render(text))
}
func PrintError(text string) {
	fmt.Println(errorStyle.Render(text))
}
func PrintWarning(text string) {
	fmt.Println(warningStyle.Render(text))
}
func PrintInfo(text string) {
	fmt.Println(infoStyle.Render(text))
}
func FSuccess(text string) string {
	return successStyle.Render(text)
}
func FError(text string) string {
	return errorStyle.Render(text)
}
func FWarning(text string) string {
	return warningStyle.Render(text)
}
func FPending(text string) string {
	return pendingStyle.Render(text)
}
func FHeader(text string) string {
	return headerStyle.Render(text)
}
func FDebug(text string) string {
	return debugStyle.Render(text)
}

func getTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return 80 // Default fallback width
	}
	return width
}

// truncate shortens text to at most width runes, marking the cut with an ellipsis.
func truncate(text string, width int) string {
	runes := []rune(text)
	if width <= 1 || len(runes) <= width {
		return text
	}
	return string(runes[:width-1]) + "…"
}
