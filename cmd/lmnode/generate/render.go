package generatecmder

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"github.com/papercomputeco/lmnode/pkg/llm"
)

var (
	mutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true)
	statsStyle = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("8")).Padding(0, 1)
)

func printPlain(w io.Writer, resp llm.Response) {
	fmt.Fprintln(w, resp.Text)
	fmt.Fprintln(w)
	fmt.Fprintln(w, resp.Stats)
}

// printStyled renders the response as markdown followed by a stats box.
// Failures are printed as a single highlighted line.
func printStyled(w io.Writer, resp llm.Response, width int) {
	if resp.Outcome != llm.OutcomeOK {
		fmt.Fprintln(w, errorStyle.Render(resp.Text))
		return
	}

	fmt.Fprint(w, renderMarkdown(resp.Text, width))
	fmt.Fprintln(w, statsStyle.Render(mutedStyle.Render(resp.Stats)))
}

// renderMarkdown renders text with glamour, falling back to the raw text.
func renderMarkdown(text string, width int) string {
	style := "light"
	if termenv.NewOutput(os.Stdout).HasDarkBackground() {
		style = "dark"
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithWordWrap(width-4),
	)
	if err != nil {
		return text + "\n"
	}

	out, err := r.Render(text)
	if err != nil {
		return text + "\n"
	}
	return strings.TrimLeft(out, "\n")
}
