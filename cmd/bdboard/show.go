package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/steveyegge/bdboard/internal/types"
)

var showCmd = &cobra.Command{
	Use:   "show [issue-id]",
	Short: "Show one issue with its relationships",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := newBoard(cmd)
		if err != nil {
			return err
		}
		card, err := b.GetIssueDetail(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		printCard(card)

		withComments, _ := cmd.Flags().GetBool("comments")
		if !withComments {
			return nil
		}
		comments, err := b.Comments(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		for _, cm := range comments {
			fmt.Printf("\n[%s] %s\n%s\n", cm.CreatedAt.Format("2006-01-02 15:04"), cm.Author, cm.Text)
		}
		return nil
	},
}

func init() {
	showCmd.Flags().Bool("comments", false, "include comments")
}

func printCard(card *types.BoardCard) {
	fmt.Printf("%s  %s\n", cardIDStyle.Render(card.ID), card.Title)
	fmt.Printf("status: %s  priority: P%d  type: %s", card.Status, card.Priority, card.IssueType)
	if card.Assignee != "" {
		fmt.Printf("  assignee: %s", card.Assignee)
	}
	fmt.Println()
	if card.IsReady {
		fmt.Println(readyMarkStyle.Render("ready"))
	}
	if card.Description != "" {
		fmt.Printf("\n%s\n", card.Description)
	}
	if len(card.Labels) > 0 {
		fmt.Printf("labels: %v\n", card.Labels)
	}
	if card.Parent != nil {
		fmt.Printf("parent: %s %s\n", card.Parent.ID, card.Parent.Title)
	}
	printRefs("children", card.Children)
	printRefs("blocks", card.Blocks)
	printRefs("blocked by", card.BlockedBy)
}

func printRefs(label string, refs []types.CardRef) {
	if len(refs) == 0 {
		return
	}
	fmt.Printf("%s:\n", label)
	for _, r := range refs {
		fmt.Printf("  %s %s\n", r.ID, r.Title)
	}
}
