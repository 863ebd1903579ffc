package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/steveyegge/bdboard/internal/client"
	"github.com/steveyegge/bdboard/internal/types"
)

var createCmd = &cobra.Command{
	Use:   "create [title]",
	Short: "Create an issue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := newBoard(cmd)
		if err != nil {
			return err
		}
		fields := client.CreateFields{Title: args[0]}
		fields.Description, _ = cmd.Flags().GetString("description")
		fields.Priority, _ = cmd.Flags().GetInt("priority")
		issueType, _ := cmd.Flags().GetString("type")
		fields.IssueType = types.IssueType(issueType)
		fields.Assignee, _ = cmd.Flags().GetString("assignee")
		fields.Labels, _ = cmd.Flags().GetStringSlice("label")

		iss, err := b.CreateIssue(cmd.Context(), fields)
		if err != nil {
			return err
		}
		fmt.Printf("created %s\n", iss.ID)
		return nil
	},
}

var updateCmd = &cobra.Command{
	Use:   "update [issue-id]",
	Short: "Update issue fields",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := newBoard(cmd)
		if err != nil {
			return err
		}
		var fields client.UpdateFields
		if cmd.Flags().Changed("title") {
			v, _ := cmd.Flags().GetString("title")
			fields.Title = &v
		}
		if cmd.Flags().Changed("description") {
			v, _ := cmd.Flags().GetString("description")
			fields.Description = &v
		}
		if cmd.Flags().Changed("priority") {
			v, _ := cmd.Flags().GetInt("priority")
			fields.Priority = &v
		}
		if cmd.Flags().Changed("status") {
			v, _ := cmd.Flags().GetString("status")
			s := types.Status(v)
			fields.Status = &s
		}
		if cmd.Flags().Changed("assignee") {
			v, _ := cmd.Flags().GetString("assignee")
			fields.Assignee = &v
		}
		return b.UpdateIssue(cmd.Context(), args[0], fields)
	},
}

var closeCmd = &cobra.Command{
	Use:   "close [issue-id]",
	Short: "Close an issue",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := newBoard(cmd)
		if err != nil {
			return err
		}
		return b.SetStatus(cmd.Context(), args[0], types.StatusClosed)
	},
}

var labelCmd = &cobra.Command{
	Use:   "label [add|remove] [issue-id] [label]",
	Short: "Add or remove a label",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := newBoard(cmd)
		if err != nil {
			return err
		}
		switch args[0] {
		case "add":
			return b.AddLabel(cmd.Context(), args[1], args[2])
		case "remove":
			return b.RemoveLabel(cmd.Context(), args[1], args[2])
		}
		return fmt.Errorf("unknown label action %q (expected add or remove)", args[0])
	},
}

var depCmd = &cobra.Command{
	Use:   "dep [add|remove] [issue-id] [other-id]",
	Short: "Add or remove a dependency edge",
	Long:  `dep add records that issue-id depends on other-id: with --type blocks, other-id blocks issue-id; with --type parent-child, other-id becomes the parent.`,
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := newBoard(cmd)
		if err != nil {
			return err
		}
		switch args[0] {
		case "add":
			depType, _ := cmd.Flags().GetString("type")
			return b.AddDependency(cmd.Context(), args[1], args[2], types.DependencyType(depType))
		case "remove":
			return b.RemoveDependency(cmd.Context(), args[1], args[2])
		}
		return fmt.Errorf("unknown dep action %q (expected add or remove)", args[0])
	},
}

var commentCmd = &cobra.Command{
	Use:   "comment [issue-id] [text]",
	Short: "Add a comment",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		b, err := newBoard(cmd)
		if err != nil {
			return err
		}
		author, _ := cmd.Flags().GetString("author")
		return b.AddComment(cmd.Context(), args[0], args[1], author)
	},
}

func init() {
	createCmd.Flags().StringP("description", "d", "", "issue description")
	createCmd.Flags().IntP("priority", "p", 2, "priority 0-4")
	createCmd.Flags().StringP("type", "t", "task", "issue type")
	createCmd.Flags().StringP("assignee", "a", "", "assignee")
	createCmd.Flags().StringSliceP("label", "l", nil, "labels")

	updateCmd.Flags().String("title", "", "new title")
	updateCmd.Flags().StringP("description", "d", "", "new description")
	updateCmd.Flags().IntP("priority", "p", 2, "new priority")
	updateCmd.Flags().String("status", "", "new status")
	updateCmd.Flags().StringP("assignee", "a", "", "new assignee")

	depCmd.Flags().String("type", "blocks", "dependency type (blocks or parent-child)")
	commentCmd.Flags().String("author", "", "comment author")
}
