package tui

import (
	"fmt"
	"os/exec"
	"runtime"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/amishk599/hireflow/internal/model"
)

// Lines per posting in the list view (role + subtitle + blank separator).
const itemHeight = 3

type viewState int

const (
	viewList viewState = iota
	viewDetail
)

var (
	borderStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("39"))

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Padding(0, 1).
			Foreground(lipgloss.Color("39"))

	statusBarStyle = lipgloss.NewStyle().
			Padding(0, 1).
			Foreground(lipgloss.Color("252")).
			Background(lipgloss.Color("236"))

	itemTitleStyle = lipgloss.NewStyle().
			Bold(true)

	itemSubtitleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("245"))

	selectedTitleStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(lipgloss.Color("15")).
				Background(lipgloss.Color("24"))

	selectedSubtitleStyle = lipgloss.NewStyle().
				Foreground(lipgloss.Color("252")).
				Background(lipgloss.Color("24"))
)

type browserModel struct {
	report   *model.Report
	list     viewport.Model
	detail   viewport.Model
	cursor   int
	width    int
	height   int
	ready    bool
	view     viewState
	openFunc func(url string)
}

func newBrowserModel(report *model.Report) browserModel {
	return browserModel{report: report, openFunc: openURL}
}

func (m browserModel) Init() tea.Cmd {
	return nil
}

func (m browserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.recalcLayout()
		return m, nil

	case tea.KeyMsg:
		if m.view == viewDetail {
			return m.updateDetailView(msg)
		}
		return m.updateListView(msg)
	}
	return m, nil
}

func (m browserModel) updateListView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc", "ctrl+c":
		return m, tea.Quit
	case "up", "k":
		m.moveCursor(-1)
		return m, nil
	case "down", "j":
		m.moveCursor(1)
		return m, nil
	case "o":
		m.openFunc(m.report.URL)
		return m, nil
	case "enter":
		if len(m.report.Drafts) == 0 {
			return m, nil
		}
		m.view = viewDetail
		m.detail.SetContent(renderDraft(m.cursor, m.report.Drafts[m.cursor], m.width))
		m.detail.SetYOffset(0)
		return m, nil
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m browserModel) updateDetailView(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "esc", "backspace":
		m.view = viewList
		return m, nil
	case "n", "p":
		delta := 1
		if msg.String() == "p" {
			delta = -1
		}
		m.moveCursor(delta)
		m.detail.SetContent(renderDraft(m.cursor, m.report.Drafts[m.cursor], m.width))
		m.detail.SetYOffset(0)
		return m, nil
	}

	var cmd tea.Cmd
	m.detail, cmd = m.detail.Update(msg)
	return m, cmd
}

func (m *browserModel) moveCursor(delta int) {
	m.cursor = clamp(m.cursor+delta, 0, max(len(m.report.Drafts)-1, 0))
	m.list.SetContent(renderList(m.report.Drafts, m.cursor))

	top := m.cursor * itemHeight
	bottom := top + itemHeight - 1
	if top < m.list.YOffset {
		m.list.SetYOffset(top)
	} else if bottom >= m.list.YOffset+m.list.Height {
		m.list.SetYOffset(bottom - m.list.Height + 1)
	}
}

func (m *browserModel) recalcLayout() {
	// Header (1 line) + border top/bottom (2) + status bar (1) = 4 lines overhead.
	w := max(m.width-4, 20)
	h := max(m.height-4, 5)

	if !m.ready {
		m.list = viewport.New(w, h)
		m.detail = viewport.New(w, h)
		m.ready = true
	} else {
		m.list.Width, m.list.Height = w, h
		m.detail.Width, m.detail.Height = w, h
	}

	m.list.SetContent(renderList(m.report.Drafts, m.cursor))
	if len(m.report.Drafts) > 0 {
		m.detail.SetContent(renderDraft(m.cursor, m.report.Drafts[m.cursor], m.width))
	}
}

func (m browserModel) View() string {
	if !m.ready {
		return "Initializing..."
	}

	var header, body, status string
	if m.view == viewDetail {
		header = headerStyle.Render(fmt.Sprintf("Draft %d of %d", m.cursor+1, len(m.report.Drafts)))
		body = borderStyle.Width(m.width - 2).Render(m.detail.View())
		status = " n/p next/prev  ↑/↓ scroll  esc/backspace back  q quit"
	} else {
		source := m.report.URL
		if m.report.Title != "" {
			source = m.report.Title
		}
		header = headerStyle.Render(fmt.Sprintf("Postings on %s (%d)", source, len(m.report.Drafts)))
		body = borderStyle.Width(m.width - 2).Render(m.list.View())
		status = " ↑/↓ cursor  enter open draft  o open page  q quit"
	}
	return header + "\n" + body + "\n" + statusBarStyle.Width(m.width).Render(status)
}

func renderList(drafts []model.Draft, cursor int) string {
	if len(drafts) == 0 {
		return "  (no postings)"
	}

	var b strings.Builder
	for i, d := range drafts {
		titleSt, subtitleSt, prefix := itemTitleStyle, itemSubtitleStyle, "  "
		if i == cursor {
			titleSt, subtitleSt, prefix = selectedTitleStyle, selectedSubtitleStyle, "> "
		}

		b.WriteString(prefix)
		b.WriteString(titleSt.Render(d.Posting.Role.String()))
		b.WriteByte('\n')

		skills := strings.Join(d.Posting.Skills(), ", ")
		if skills == "" {
			skills = "no skills listed"
		}
		b.WriteString(prefix)
		b.WriteString(subtitleSt.Render(fmt.Sprintf("%s · %s · %d links", d.Posting.Experience, skills, len(d.Links))))
		b.WriteByte('\n')

		if i < len(drafts)-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// openURL opens url in the default system browser, fire-and-forget.
func openURL(url string) {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", url)
	default:
		return
	}
	_ = cmd.Start()
}

// Browse opens a full-screen viewer over the drafts in report.
func Browse(report *model.Report) error {
	p := tea.NewProgram(newBrowserModel(report), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
