package cli

import (
	"cmp"
	"context"
	"fmt"
	"io"
	"slices"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/matzehuels/shakify/pkg/result"
)

// List styles
var (
	listDimStyle   = lipgloss.NewStyle().Foreground(colorDim)
	listErrorStyle = lipgloss.NewStyle().Foreground(colorRed)
)

// =============================================================================
// ExportBrowserModel - Interactive export size browser
// =============================================================================

// sortMode orders the browser rows.
type sortMode int

const (
	sortDeclared sortMode = iota
	sortSize
	sortGzip
	sortBrotli
	sortName
	numSortModes
)

func (s sortMode) String() string {
	switch s {
	case sortSize:
		return "size"
	case sortGzip:
		return "gzipped"
	case sortBrotli:
		return "brotli"
	case sortName:
		return "name"
	default:
		return "declared"
	}
}

// ExportBrowserModel is the bubbletea model for browsing export sizes.
type ExportBrowserModel struct {
	Name   string
	Result *result.Result
	Rows   []result.ExportMeasurement
	Sort   sortMode
	Cursor int
	Height int
	Offset int
}

// NewExportBrowserModel creates a browser over r's exports in declaration
// order.
func NewExportBrowserModel(name string, r *result.Result) ExportBrowserModel {
	return ExportBrowserModel{
		Name:   name,
		Result: r,
		Rows:   slices.Clone(r.ExportSizes),
		Height: 15,
	}
}

func (m ExportBrowserModel) Init() tea.Cmd {
	return nil
}

func (m ExportBrowserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case "up", "k":
			if m.Cursor > 0 {
				m.Cursor--
				if m.Cursor < m.Offset {
					m.Offset = m.Cursor
				}
			}
		case "down", "j":
			if m.Cursor < len(m.Rows)-1 {
				m.Cursor++
				if m.Cursor >= m.Offset+m.Height {
					m.Offset = m.Cursor - m.Height + 1
				}
			}
		case "s":
			m.Sort = (m.Sort + 1) % numSortModes
			m.Rows = sortedRows(m.Result.ExportSizes, m.Sort)
			m.Cursor, m.Offset = 0, 0
		}
	case tea.WindowSizeMsg:
		m.Height = msg.Height - 12
		if m.Height < 5 {
			m.Height = 5
		}
	}
	return m, nil
}

func (m ExportBrowserModel) View() string {
	var b strings.Builder
	a := m.Result.Analysis

	b.WriteString(StyleTitle.Render(fmt.Sprintf("%s@%s", m.Name, m.Result.Version)))
	if m.Result.Cached {
		b.WriteString(" " + styleCached.Render(iconCached))
	}
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("esm %t · cjs %t · tree-shakeable %t · sideEffects %s",
		a.ESMSupport, a.CommonJSSupport, a.TreeShakeable, compactJSON(a.SideEffects))))
	b.WriteString("\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("↑/↓ navigate  s sort (%s)  q quit", m.Sort)))
	b.WriteString("\n\n")

	end := min(m.Offset+m.Height, len(m.Rows))
	rows := [][]string{}
	for i := m.Offset; i < end; i++ {
		e := m.Rows[i]
		cursor := "  "
		if i == m.Cursor {
			cursor = "▸ "
		}
		if e.Failed() {
			rows = append(rows, []string{cursor, e.ExportName, "—", "—", "—", truncate(e.Error, 48)})
			continue
		}
		rows = append(rows, []string{cursor, e.ExportName,
			formatBytes(e.Size), formatBytes(e.GzippedSize), formatBytes(e.BrotliSize), ""})
	}

	headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
		Headers("", "Export", "Size", "Gzipped", "Brotli", "Error").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == -1 {
				return headerStyle
			}
			idx := m.Offset + row
			if idx >= len(m.Rows) {
				return lipgloss.NewStyle()
			}
			base := lipgloss.NewStyle()
			if col >= 2 && col <= 4 {
				base = base.Align(lipgloss.Right)
			}
			if m.Rows[idx].Failed() {
				base = base.Inherit(listErrorStyle)
			}
			if idx == m.Cursor {
				return base.Foreground(colorCyan).Bold(true)
			}
			return base
		})

	b.WriteString(t.Render())
	b.WriteString("\n\n")
	b.WriteString(listDimStyle.Render(fmt.Sprintf("  [%d/%d]", m.Cursor+1, len(m.Rows))))
	if failed := m.Result.Failures(); failed > 0 {
		b.WriteString(listDimStyle.Render(fmt.Sprintf("  %d failed", failed)))
	}
	b.WriteString("\n")
	return b.String()
}

// runBrowser shows r in an interactive table until the user quits.
func runBrowser(ctx context.Context, w io.Writer, name string, r *result.Result) error {
	p := tea.NewProgram(NewExportBrowserModel(name, r), tea.WithContext(ctx), tea.WithOutput(w))
	_, err := p.Run()
	return err
}

// =============================================================================
// Helpers
// =============================================================================

// sortedRows returns a copy of exports ordered by mode. Failed exports sort
// after measured ones for the size modes.
func sortedRows(exports []result.ExportMeasurement, mode sortMode) []result.ExportMeasurement {
	rows := slices.Clone(exports)
	key := func(e result.ExportMeasurement) int {
		switch mode {
		case sortGzip:
			return e.GzippedSize
		case sortBrotli:
			return e.BrotliSize
		default:
			return e.Size
		}
	}
	switch mode {
	case sortDeclared:
	case sortName:
		slices.SortStableFunc(rows, func(a, b result.ExportMeasurement) int {
			return cmp.Compare(a.ExportName, b.ExportName)
		})
	default:
		slices.SortStableFunc(rows, func(a, b result.ExportMeasurement) int {
			if a.Failed() != b.Failed() {
				if a.Failed() {
					return 1
				}
				return -1
			}
			return cmp.Compare(key(b), key(a))
		})
	}
	return rows
}

func truncate(s string, n int) string {
	if len([]rune(s)) <= n {
		return s
	}
	return string([]rune(s)[:n-1]) + "…"
}
