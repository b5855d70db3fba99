// Package output provides consistent CLI output formatting with colors and progress indicators.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Color palette.
const (
	ColorAccent = "154"
	ColorGray   = "245"
	ColorRed    = "196"
	ColorYellow = "220"
)

type styles struct {
	success lipgloss.Style
	warning lipgloss.Style
	err     lipgloss.Style
	dim     lipgloss.Style
	header  lipgloss.Style
}

func newStyles(color bool) styles {
	if !color {
		return styles{}
	}
	return styles{
		success: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorAccent)),
		warning: lipgloss.NewStyle().Foreground(lipgloss.Color(ColorYellow)),
		err:     lipgloss.NewStyle().Foreground(lipgloss.Color(ColorRed)),
		dim:     lipgloss.NewStyle().Foreground(lipgloss.Color(ColorGray)),
		header:  lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(ColorAccent)),
	}
}

// Writer provides formatted output for CLI.
type Writer struct {
	out      io.Writer
	tty      bool
	useColor bool
	st       styles
}

// New creates a Writer. Color and in-place progress are enabled only when
// out is a terminal and NO_COLOR is unset.
func New(out io.Writer) *Writer {
	tty := IsTTY(out)
	color := tty && !DetectNoColor()
	return &Writer{out: out, tty: tty, useColor: color, st: newStyles(color)}
}

// IsTTY checks if output is a terminal.
func IsTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// DetectNoColor checks if NO_COLOR environment variable is set.
func DetectNoColor() bool {
	_, exists := os.LookupEnv("NO_COLOR")
	return exists
}

func (w *Writer) render(s lipgloss.Style, text string) string {
	if !w.useColor {
		return text
	}
	return s.Render(text)
}

// Status prints a status message with an icon.
// Errors from writing are intentionally ignored for console output.
func (w *Writer) Status(icon, msg string) {
	if icon != "" {
		_, _ = fmt.Fprintf(w.out, "%s %s\n", icon, msg)
	} else {
		_, _ = fmt.Fprintf(w.out, "   %s\n", msg)
	}
}

// Statusf prints a formatted status message with an icon.
func (w *Writer) Statusf(icon, format string, args ...any) {
	w.Status(icon, fmt.Sprintf(format, args...))
}

// Success prints a success message with checkmark.
func (w *Writer) Success(msg string) {
	w.Status(w.render(w.st.success, "✅"), msg)
}

// Successf prints a formatted success message.
func (w *Writer) Successf(format string, args ...any) {
	w.Success(fmt.Sprintf(format, args...))
}

// Warning prints a warning message.
func (w *Writer) Warning(msg string) {
	w.Status("⚠️ ", w.render(w.st.warning, msg))
}

// Warningf prints a formatted warning message.
func (w *Writer) Warningf(format string, args ...any) {
	w.Warning(fmt.Sprintf(format, args...))
}

// Error prints an error message.
func (w *Writer) Error(msg string) {
	w.Status("❌", w.render(w.st.err, msg))
}

// Errorf prints a formatted error message.
func (w *Writer) Errorf(format string, args ...any) {
	w.Error(fmt.Sprintf(format, args...))
}

// Header prints a bold section title.
func (w *Writer) Header(msg string) {
	_, _ = fmt.Fprintln(w.out, w.render(w.st.header, msg))
}

// Code prints a block with indentation.
func (w *Writer) Code(content string) {
	_, _ = fmt.Fprintln(w.out)
	for _, line := range strings.Split(content, "\n") {
		_, _ = fmt.Fprintf(w.out, "  %s\n", line)
	}
	_, _ = fmt.Fprintln(w.out)
}

// Newline prints an empty line.
func (w *Writer) Newline() {
	_, _ = fmt.Fprintln(w.out)
}

// JSON writes v as indented JSON.
func (w *Writer) JSON(v any) error {
	enc := json.NewEncoder(w.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// Result prints one ranked paragraph: a header line with rank, id and the
// labelled score, then the content wrapped and indented.
func (w *Writer) Result(rank int, id, label string, score float64, title, content string) {
	head := fmt.Sprintf("%d. %s", rank, id)
	meta := fmt.Sprintf("%s=%.4f", label, score)
	if title != "" {
		meta += "  " + title
	}
	_, _ = fmt.Fprintf(w.out, "%s  %s\n", w.render(w.st.header, head), w.render(w.st.dim, meta))
	for _, line := range wrap(content, 96) {
		_, _ = fmt.Fprintf(w.out, "   %s\n", line)
	}
}

// Progress prints a progress bar with message. On a terminal the line is
// redrawn in place; elsewhere only the final update is printed.
func (w *Writer) Progress(current, total int, msg string) {
	if total <= 0 {
		return
	}
	if !w.tty {
		if current >= total {
			_, _ = fmt.Fprintf(w.out, "%s %d/%d\n", msg, current, total)
		}
		return
	}

	pct := float64(current) / float64(total) * 100
	bar := renderProgressBar(current, total, 30)
	_, _ = fmt.Fprintf(w.out, "\r[%s] %.0f%% %s", w.render(w.st.success, bar), pct, msg)
	if current >= total {
		_, _ = fmt.Fprintln(w.out)
	}
}

// renderProgressBar creates a text progress bar.
func renderProgressBar(current, total, width int) string {
	if total <= 0 {
		return strings.Repeat("░", width)
	}
	filled := int(float64(current) / float64(total) * float64(width))
	filled = max(0, min(filled, width))
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// wrap splits text into lines of at most width runes at word boundaries.
// A single longer word is kept whole.
func wrap(text string, width int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	var (
		lines []string
		cur   strings.Builder
		n     int
	)
	for _, word := range words {
		wl := len([]rune(word))
		if n > 0 && n+1+wl > width {
			lines = append(lines, cur.String())
			cur.Reset()
			n = 0
		}
		if n > 0 {
			cur.WriteByte(' ')
			n++
		}
		cur.WriteString(word)
		n += wl
	}
	return append(lines, cur.String())
}
