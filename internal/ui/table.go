package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/Dheerajkumar69/Meow-share-by-dheeraj-sub000/internal/files"
)

// FileTableItem represents a file in the table
type FileTableItem struct {
	Name string
	Size int64
	Type string
}

// RenderFileTable prints the payload details before the transfer starts.
func RenderFileTable(item FileTableItem) {
	headers := []string{"Name", "Size", "Type"}
	rows := [][]string{{
		truncateString(item.Name, 50),
		files.FormatSize(item.Size),
		truncateString(item.Type, 20),
	}}

	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(Primary)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return TableHeaderStyle
			}
			return TableRowStyle
		})

	fmt.Println(tbl.Render())
}

// CodeBox renders the short code for the sender to read out loud.
func CodeBox(code, domain string) string {
	content := fmt.Sprintf("%s Share code ready!\n\n%s Code:  %s\n%s Peer runs:  %s",
		IconSuccess,
		IconCode, BoldStyle.Foreground(Primary).Render(code),
		IconPeer, MutedStyle.Render("meow receive "+code),
	)
	if domain != "" {
		content += MutedStyle.Render("\n   (relay: " + domain + ")")
	}
	return CodeBoxStyle.Render(content)
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
