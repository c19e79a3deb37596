package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the Folio banner and version to w.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	// Teal to blue, one step per line
	colors := []string{"#2dd4bf", "#22d3ee", "#38bdf8", "#60a5fa", "#818cf8"}
	lines := []string{
		"   ___     _ _       ",
		"  / __|___| (_)___   ",
		" | _|/ _ \\ | / _ \\  ",
		" |_| \\___/_|_\\___/  ",
		"",
	}

	fmt.Fprintln(w)
	for i, line := range lines {
		fmt.Fprintln(w, out.String(line).Foreground(out.Color(colors[i])))
	}
	fmt.Fprintln(w, out.String(" folio "+version).Faint())
	fmt.Fprintln(w)
}

// Status formats a one-line result, green when ok and red otherwise.
func Status(w io.Writer, ok bool, msg string) {
	out := termenv.NewOutput(w)
	mark, color := "✔", "#22c55e"
	if !ok {
		mark, color = "✘", "#ef4444"
	}
	fmt.Fprintln(w, out.String(mark+" "+msg).Foreground(out.Color(color)))
}
