package cmd

import (
	"fmt"
	"strings"

	"github.com/fatih/color"

	"go.k6.io/typedmem/cmd/state"
)

// getColor returns the requested color, or an uncolored object, depending on
// the value of noColor. The explicit EnableColor() and DisableColor() are
// needed because the library checks os.Stdout itself otherwise...
func getColor(noColor bool, attributes ...color.Attribute) *color.Color {
	if noColor {
		c := color.New()
		c.DisableColor()
		return c
	}

	c := color.New(attributes...)
	c.EnableColor()
	return c
}

// noColor reports whether gs.Stdout output must stay uncolored.
func noColor(gs *state.GlobalState) bool {
	return gs.Flags.NoColor || !gs.Stdout.IsTTY
}

func getBanner(noColor bool) string {
	c := getColor(noColor, color.FgCyan)
	return c.Sprint(strings.Join([]string{
		`  ┌┬┐┬ ┬┌─┐┌─┐┌┬┐┌┬┐┌─┐┌┬┐`,
		`   │ └┬┘├─┘├┤  ││││││├┤ │││`,
		`   ┴  ┴ ┴  └─┘─┴┘┴ ┴└─┘┴ ┴`,
	}, "\n"))
}

// printCheck prints a passed or failed check line.
func printCheck(gs *state.GlobalState, ok bool, format string, args ...interface{}) {
	mark, c := "✓", getColor(noColor(gs), color.FgGreen)
	if !ok {
		mark, c = "✗", getColor(noColor(gs), color.FgRed)
	}
	printToStdout(gs, c.Sprint(mark)+" "+fmt.Sprintf(format, args...)+"\n")
}

// printValue prints an aligned name: value line with the value highlighted.
func printValue(gs *state.GlobalState, name string, value interface{}) {
	c := getColor(noColor(gs), color.Faint)
	printToStdout(gs, fmt.Sprintf("  %-12s %s\n", name+":", c.Sprint(value)))
}
