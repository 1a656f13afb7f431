package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cast"

	"github.com/rebelice/lazyfilter/internal/fieldspec"
	"github.com/rebelice/lazyfilter/internal/models"
	"github.com/rebelice/lazyfilter/internal/ui/theme"
)

// TableView displays source rows with virtual scrolling and a cell cursor
type TableView struct {
	Columns []string
	Records []models.Record
	Width   int
	Height  int
	Style   lipgloss.Style
	Theme   theme.Theme

	// Filtered marks columns that carry a filter
	Filtered map[string]bool

	// Virtual scrolling state
	TopRow      int
	VisibleRows int
	SelectedRow int
	SelectedCol int
	LeftCol     int
	Limit       int

	// Column widths (calculated)
	ColumnWidths []int
}

// NewTableView creates a new table view
func NewTableView(th theme.Theme) *TableView {
	return &TableView{
		Theme:    th,
		Filtered: map[string]bool{},
	}
}

// SetData replaces the rows. The cursor is kept in range.
func (tv *TableView) SetData(columns []string, records []models.Record, limit int) {
	tv.Columns = columns
	tv.Records = records
	tv.Limit = limit
	tv.calculateColumnWidths()

	if tv.SelectedRow >= len(records) {
		tv.SelectedRow = max(len(records)-1, 0)
	}
	if tv.TopRow > tv.SelectedRow {
		tv.TopRow = tv.SelectedRow
	}
	if tv.SelectedCol >= len(columns) {
		tv.SelectedCol = max(len(columns)-1, 0)
	}
	if tv.LeftCol > tv.SelectedCol {
		tv.LeftCol = tv.SelectedCol
	}
}

// CellText formats a cell value for display
func CellText(v any) string {
	if v == nil || v == "" {
		return fieldspec.BlankText
	}
	if s, err := cast.ToStringE(v); err == nil {
		return s
	}
	return fmt.Sprint(v)
}

func (tv *TableView) calculateColumnWidths() {
	tv.ColumnWidths = make([]int, len(tv.Columns))

	for i, col := range tv.Columns {
		tv.ColumnWidths[i] = lipgloss.Width(col) + 2
	}
	for _, rec := range tv.Records {
		for i, col := range tv.Columns {
			if w := lipgloss.Width(CellText(rec[col])); w > tv.ColumnWidths[i] {
				tv.ColumnWidths[i] = w
			}
		}
	}

	for i := range tv.ColumnWidths {
		tv.ColumnWidths[i] = min(max(tv.ColumnWidths[i], 6), 40)
	}
}

// SelectedCell returns the column and value under the cursor
func (tv *TableView) SelectedCell() (string, any, bool) {
	if tv.SelectedRow < 0 || tv.SelectedRow >= len(tv.Records) ||
		tv.SelectedCol < 0 || tv.SelectedCol >= len(tv.Columns) {
		return "", nil, false
	}
	col := tv.Columns[tv.SelectedCol]
	return col, tv.Records[tv.SelectedRow][col], true
}

// SelectedColumn returns the column under the cursor
func (tv *TableView) SelectedColumn() (string, bool) {
	if tv.SelectedCol < 0 || tv.SelectedCol >= len(tv.Columns) {
		return "", false
	}
	return tv.Columns[tv.SelectedCol], true
}

// visibleColumns returns the columns from LeftCol that fit the width
func (tv *TableView) visibleColumns() (int, int) {
	end := tv.LeftCol
	used := 1
	for end < len(tv.Columns) {
		w := tv.ColumnWidths[end] + 3
		if used+w > tv.Width && end > tv.LeftCol {
			break
		}
		used += w
		end++
	}
	return tv.LeftCol, end
}

// View renders the table
func (tv *TableView) View() string {
	if len(tv.Columns) == 0 {
		return tv.Style.Render("No data")
	}

	var b strings.Builder
	start, end := tv.visibleColumns()

	b.WriteString(tv.renderHeader(start, end))
	b.WriteString("\n")
	b.WriteString(tv.renderSeparator(start, end))
	b.WriteString("\n")

	tv.VisibleRows = max(tv.Height-3, 1) // header + separator + status

	endRow := min(tv.TopRow+tv.VisibleRows, len(tv.Records))
	for i := tv.TopRow; i < endRow; i++ {
		b.WriteString(tv.renderRow(i, start, end))
		if i < endRow-1 {
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")
	b.WriteString(tv.renderStatus())

	return tv.Style.Width(tv.Width).Height(tv.Height).Render(b.String())
}

func (tv *TableView) renderHeader(start, end int) string {
	var parts []string
	for i := start; i < end; i++ {
		col := tv.Columns[i]
		if tv.Filtered[col] {
			col = "⚲ " + col
		}
		parts = append(parts, tv.pad(col, tv.ColumnWidths[i]))
	}
	headerStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(tv.Theme.TableHeader).
		Background(tv.Theme.Selection)
	return headerStyle.Render(" " + strings.Join(parts, " │ ") + " ")
}

func (tv *TableView) renderSeparator(start, end int) string {
	var parts []string
	for i := start; i < end; i++ {
		parts = append(parts, strings.Repeat("─", tv.ColumnWidths[i]))
	}
	return lipgloss.NewStyle().
		Foreground(tv.Theme.Border).
		Render("─" + strings.Join(parts, "─┼─") + "─")
}

func (tv *TableView) renderRow(row, start, end int) string {
	rec := tv.Records[row]
	selected := row == tv.SelectedRow

	var parts []string
	for i := start; i < end; i++ {
		v := rec[tv.Columns[i]]
		cell := tv.pad(CellText(v), tv.ColumnWidths[i])
		switch {
		case selected && i == tv.SelectedCol:
			cell = lipgloss.NewStyle().Background(tv.Theme.TableCell).Bold(true).Render(cell)
		case v == nil || v == "":
			cell = lipgloss.NewStyle().Foreground(tv.Theme.Blank).Italic(true).Render(cell)
		}
		parts = append(parts, cell)
	}

	line := " " + strings.Join(parts, " │ ") + " "
	if selected {
		return lipgloss.NewStyle().
			Background(tv.Theme.TableRowSelected).
			Render(line)
	}
	return line
}

func (tv *TableView) renderStatus() string {
	status := fmt.Sprintf(" %d rows", len(tv.Records))
	if tv.Limit > 0 && len(tv.Records) >= tv.Limit {
		status = fmt.Sprintf(" first %d rows", tv.Limit)
	}
	return lipgloss.NewStyle().
		Foreground(tv.Theme.Muted).
		Italic(true).
		Render(status)
}

func (tv *TableView) pad(s string, width int) string {
	if w := lipgloss.Width(s); w > width {
		r := []rune(s)
		if len(r) > width-3 {
			r = r[:max(width-3, 0)]
		}
		return string(r) + "..."
	}
	return s + strings.Repeat(" ", width-lipgloss.Width(s))
}

// MoveSelection moves the selection up or down
func (tv *TableView) MoveSelection(delta int) {
	tv.SelectedRow += delta

	if tv.SelectedRow >= len(tv.Records) {
		tv.SelectedRow = len(tv.Records) - 1
	}
	if tv.SelectedRow < 0 {
		tv.SelectedRow = 0
	}

	if tv.SelectedRow < tv.TopRow {
		tv.TopRow = tv.SelectedRow
	}
	if tv.VisibleRows > 0 && tv.SelectedRow >= tv.TopRow+tv.VisibleRows {
		tv.TopRow = tv.SelectedRow - tv.VisibleRows + 1
	}
}

// MoveColumn moves the cell cursor left or right
func (tv *TableView) MoveColumn(delta int) {
	tv.SelectedCol = min(max(tv.SelectedCol+delta, 0), max(len(tv.Columns)-1, 0))
	if tv.SelectedCol < tv.LeftCol {
		tv.LeftCol = tv.SelectedCol
	}
	for tv.LeftCol < tv.SelectedCol {
		if _, end := tv.visibleColumns(); tv.SelectedCol < end {
			break
		}
		tv.LeftCol++
	}
}

// PageUp/PageDown
func (tv *TableView) PageUp() {
	tv.SelectedRow -= tv.VisibleRows
	if tv.SelectedRow < 0 {
		tv.SelectedRow = 0
	}
	tv.TopRow = tv.SelectedRow
}

func (tv *TableView) PageDown() {
	tv.SelectedRow += tv.VisibleRows
	if tv.SelectedRow >= len(tv.Records) {
		tv.SelectedRow = len(tv.Records) - 1
	}
	if tv.SelectedRow < 0 {
		tv.SelectedRow = 0
	}
	tv.TopRow = tv.SelectedRow
	if tv.TopRow+tv.VisibleRows > len(tv.Records) {
		tv.TopRow = max(len(tv.Records)-tv.VisibleRows, 0)
	}
}
