package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/steveyegge/bdboard/internal/types"
)

var (
	columnTitleStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	cardIDStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	readyMarkStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	blockedMarkStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	columnBoxStyle   = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				Padding(0, 1)
)

var boardCmd = &cobra.Command{
	Use:   "board",
	Short: "Render the issue board",
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := newBoard(cmd)
		if err != nil {
			return err
		}
		cols, err := b.LoadBoard(cmd.Context())
		if err != nil {
			return err
		}

		width := 120
		if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 40 {
			width = w
		}
		colWidth := width/len(types.Columns()) - 4

		rendered := make([]string, 0, len(types.Columns()))
		for _, col := range types.Columns() {
			rendered = append(rendered, renderColumn(col, cols[col], colWidth))
		}
		fmt.Println(lipgloss.JoinHorizontal(lipgloss.Top, rendered...))
		return nil
	},
}

func renderColumn(col types.Column, cards []*types.BoardCard, width int) string {
	var sb strings.Builder
	sb.WriteString(columnTitleStyle.Render(fmt.Sprintf("%s (%d)", col, len(cards))))
	sb.WriteString("\n")

	for _, card := range cards {
		mark := " "
		switch {
		case card.IsReady:
			mark = readyMarkStyle.Render("*")
		case len(card.BlockedBy) > 0:
			mark = blockedMarkStyle.Render("!")
		}
		title := card.Title
		if max := width - 12; max > 8 && len(title) > max {
			title = title[:max-3] + "..."
		}
		sb.WriteString(fmt.Sprintf("%s P%d %s %s\n", mark, card.Priority, cardIDStyle.Render(card.ID), title))
	}
	return columnBoxStyle.Width(width).Render(sb.String())
}
