package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// RenderRoomInfo prints the joined room id and its shareable link in a box.
func RenderRoomInfo(roomID, link string) {
	content := fmt.Sprintf("%s\n%s\n\n%s\n%s",
		BoldStyle.Render("Room"),
		TitleStyle.Render(roomID),
		MutedStyle.Render("Share this link:"),
		SubtitleStyle.Render(link),
	)
	fmt.Println(BoxStyle.Render(content))
}

// CallSummary holds the end-of-call figures shown after hanging up.
type CallSummary struct {
	Peer     string
	Duration string
	Packets  string
	Received string
}

// CallSummaryView renders the post-call summary table.
func CallSummaryView(summary CallSummary) string {
	headers := []string{"Metric", "Value"}
	rows := [][]string{
		{"Peer", summary.Peer},
		{"Duration", summary.Duration},
		{"Packets", summary.Packets},
		{"Received", summary.Received},
	}

	tbl := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(Primary)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return TableHeaderStyle
			case row%2 == 0:
				return TableRowStyle
			default:
				return TableRowAltStyle
			}
		})

	return tbl.Render()
}

// RenderCallSummary outputs the summary table directly to stdout.
func RenderCallSummary(summary CallSummary) {
	fmt.Println(CallSummaryView(summary))
}

// FormatBytes renders a byte count for humans.
func FormatBytes(n uint64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := uint64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(n)/float64(div), "KMGTPE"[exp])
}
