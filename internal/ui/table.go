package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Column defines a table column.
type Column struct {
	Title string
	Width int
}

// Row is a slice of cell values. Cells are plain text; the table styles them.
type Row []string

// Table renders a lipgloss-styled table.
type Table struct {
	Columns []Column
	Rows    []Row
	SelIdx  int // selected row index (-1 = none)
}

// NewTable creates a new table.
func NewTable(cols []Column) *Table {
	return &Table{Columns: cols, SelIdx: -1}
}

// AddRow appends a row.
func (t *Table) AddRow(r Row) {
	t.Rows = append(t.Rows, r)
}

// Render returns the full table as a string. A zero-width header row is
// skipped, which the page uses for its label/value/action layout.
func (t *Table) Render() string {
	var sb strings.Builder

	headerStyle := lipgloss.NewStyle().Foreground(ColorHighlight).Bold(true)
	cellStyle := lipgloss.NewStyle().Foreground(ColorValue)
	dimStyle := lipgloss.NewStyle().Foreground(ColorMeta)

	if t.hasHeaders() {
		var headers, divider []string
		for _, col := range t.Columns {
			headers = append(headers, headerStyle.Render(pad(col.Title, col.Width)))
			divider = append(divider, dimStyle.Render(strings.Repeat("-", col.Width)))
		}
		sb.WriteString(strings.Join(headers, " "))
		sb.WriteString("\n")
		sb.WriteString(strings.Join(divider, " "))
		sb.WriteString("\n")
	}

	for i, row := range t.Rows {
		var cells []string
		for j, col := range t.Columns {
			val := ""
			if j < len(row) {
				val = row[j]
			}
			style := cellStyle
			switch {
			case i == t.SelIdx:
				style = StyleSelected
			case j == 0 && !t.hasHeaders():
				style = headerStyle
			}
			cells = append(cells, style.Render(pad(val, col.Width)))
		}
		sb.WriteString(strings.Join(cells, " "))
		sb.WriteString("\n")
	}

	return sb.String()
}

func (t *Table) hasHeaders() bool {
	for _, col := range t.Columns {
		if col.Title != "" {
			return true
		}
	}
	return false
}

// pad left-aligns s within exactly width display cells, truncating with an
// ellipsis when it does not fit.
func pad(s string, width int) string {
	w := lipgloss.Width(s)
	if w == width {
		return s
	}
	if w < width {
		return s + strings.Repeat(" ", width-w)
	}
	if width <= 1 {
		return strings.Repeat(" ", width)
	}
	runes := []rune(s)
	for len(runes) > 0 && lipgloss.Width(string(runes)) > width-1 {
		runes = runes[:len(runes)-1]
	}
	return pad(string(runes)+"…", width)
}

// KeyValueBlock renders a set of key-value pairs in a bordered box.
func KeyValueBlock(title string, pairs [][2]string) string {
	var sb strings.Builder
	if title != "" {
		sb.WriteString(StyleTitle.Render(title))
		sb.WriteString("\n")
	}
	for _, p := range pairs {
		key := StyleMeta.Render(fmt.Sprintf("%-24s", p[0]+":"))
		val := StyleValue.Render(p[1])
		sb.WriteString("  " + key + " " + val + "\n")
	}
	return StyleBorder.Render(sb.String())
}
