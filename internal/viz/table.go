package viz

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

var (
	tableBorder = lipgloss.NewStyle().Foreground(lipgloss.Color("#444466"))
	tableHeader = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#00ffff")).Padding(0, 1)
	tableCell   = lipgloss.NewStyle().Padding(0, 1)
)

// Table renders rows under headers with a rounded border.
func Table(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(tableBorder).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeader
			}
			return tableCell
		})
	return t.String()
}
