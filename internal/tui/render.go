package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/amishk599/hireflow/internal/model"
	"github.com/amishk599/hireflow/internal/pipeline"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			MarginBottom(1)

	labelStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39")).
			Width(14)

	valueStyle = lipgloss.NewStyle()

	dividerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240"))

	emailStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("252")).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	traceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))
)

// RenderReport renders every draft in report for a terminal of the given width.
func RenderReport(report *model.Report, width int) string {
	if report.NoJobs {
		return warnStyle.Render("⚠ No jobs detected on this page.") + "\n"
	}

	var b strings.Builder
	for i, d := range report.Drafts {
		if i > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(renderDraft(i, d, width))
	}
	return b.String()
}

func renderDraft(idx int, d model.Draft, width int) string {
	var b strings.Builder
	wrapWidth := max(width-8, 20)

	addField := func(label, value string) {
		if value == "" {
			return
		}
		b.WriteString(labelStyle.Render(label))
		b.WriteString(valueStyle.Render(value))
		b.WriteByte('\n')
	}
	divider := func(label string) string {
		fill := strings.Repeat("─", max(wrapWidth-len(label), 3))
		return dividerStyle.Render(label + fill)
	}

	b.WriteString(titleStyle.Render(fmt.Sprintf("🧩 Job #%d  %s", idx+1, d.Posting.Role)))
	b.WriteByte('\n')
	addField("Experience", d.Posting.Experience.String())
	if skills := d.Posting.Skills(); len(skills) > 0 {
		addField("Skills", strings.Join(skills, ", "))
	}
	if d.Posting.Description.Present {
		b.WriteByte('\n')
		b.WriteString(valueStyle.Render(wordWrap(d.Posting.Description.Value, wrapWidth)))
		b.WriteByte('\n')
	}

	if len(d.Links) > 0 {
		b.WriteByte('\n')
		b.WriteString(divider("── Portfolio ") + "\n")
		for _, l := range d.Links {
			b.WriteString("  • " + l + "\n")
		}
	}

	b.WriteByte('\n')
	b.WriteString(divider("── ✉ Generated Cold Email ") + "\n")
	b.WriteString(emailStyle.Width(wrapWidth).Render(d.Email))
	b.WriteByte('\n')
	return b.String()
}

// RenderFailure renders a failed run, with its trace unless it was bad input.
func RenderFailure(f *pipeline.Failure) string {
	s := errorStyle.Render("✗ "+f.Message) + "\n"
	if !f.UserError() && f.Trace != "" {
		s += "\n" + traceStyle.Render(f.Trace) + "\n"
	}
	return s
}

// WritePlain writes report without styling, for pipes and files.
func WritePlain(w io.Writer, report *model.Report) error {
	if report.NoJobs {
		_, err := fmt.Fprintln(w, "No jobs detected on this page.")
		return err
	}
	for i, d := range report.Drafts {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "### Job #%d\n%s\n\n", i+1, d.Posting.JSON())
		if len(d.Links) > 0 {
			fmt.Fprintf(w, "Portfolio:\n%s\n\n", strings.Join(d.Links, "\n"))
		}
		if _, err := fmt.Fprintf(w, "#### Generated Cold Email\n%s\n", d.Email); err != nil {
			return err
		}
	}
	return nil
}

func wordWrap(text string, width int) string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return ""
	}
	var lines []string
	line := words[0]
	for _, w := range words[1:] {
		if len(line)+1+len(w) <= width {
			line += " " + w
		} else {
			lines = append(lines, line)
			line = w
		}
	}
	lines = append(lines, line)
	return strings.Join(lines, "\n")
}
