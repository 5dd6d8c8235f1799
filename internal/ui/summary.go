package ui

import (
	"fmt"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/Dheerajkumar69/Meow-share-by-dheeraj-sub000/internal/files"
)

// TransferSummary is the final stats block printed after a transfer.
type TransferSummary struct {
	Status   string
	File     string
	Size     int64
	Duration time.Duration
	Speed    float64
}

// RenderTransferSummary displays final stats using a go-pretty table.
func RenderTransferSummary(title string, s TransferSummary) {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle(title)
	t.SetStyle(table.StyleRounded)

	t.AppendRows([]table.Row{
		{"Status", s.Status},
		{"File", truncateString(s.File, 50)},
		{"Size", files.FormatSize(s.Size)},
		{"Duration", fmt.Sprintf("%.2f seconds", s.Duration.Seconds())},
		{"Avg Speed", files.FormatSpeed(s.Speed)},
	})

	fmt.Println()
	t.Render()
}
