package observability

import (
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/term"
)

const (
	colorReset    = "\033[0m"
	colorNeonCyan = "\033[96m"
	colorNeonMag  = "\033[95m"
)

func termWidth(w io.Writer) int {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return 0
	}
	width, _, err := term.GetSize(int(f.Fd()))
	if err != nil {
		return 80
	}
	return width
}

const banner = `
    ____  __    ___    _   ___       ______  ____________
   / __ \/ /   /   |  / | / / |     / / __ \/  _/ ____/ /_
  / /_/ / /   / /| | /  |/ /| | /| / / /_/ // // / __/ __/
 / ____/ /___/ ___ |/ /|  / | |/ |/ / _, _// // /_/ / /_
/_/   /_____/_/  |_/_/ |_/  |__/|__/_/ |_/___/\____/\__/
`

// PrintBanner centres the banner on terminals and prints it plain elsewhere.
func PrintBanner(w io.Writer, subtitle string) {
	width := termWidth(w)
	lines := strings.Split(strings.TrimPrefix(banner, "\n"), "\n")
	if subtitle != "" {
		lines = append(lines, ">> "+subtitle+" <<")
	}

	for _, l := range lines {
		if width == 0 {
			fmt.Fprintln(w, l)
			continue
		}
		padding := (width - len(l)) / 2
		if padding < 0 {
			padding = 0
		}
		fmt.Fprintf(w, "%s%s%s\n", strings.Repeat(" ", padding), colorNeonCyan+l, colorReset)
	}
}

// Highlight wraps s in the accent colour when w is a terminal.
func Highlight(w io.Writer, s string) string {
	if termWidth(w) == 0 {
		return s
	}
	return colorNeonMag + s + colorReset
}
