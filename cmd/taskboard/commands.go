package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"taskboard/internal/client"
	"taskboard/internal/models"
)

func listCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show the board grouped by column",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			query, _ := cmd.Flags().GetString("search")

			board, err := a.board(cmd.Context())
			if err != nil {
				return err
			}

			// Matches keep their index in the full column so it can be passed to move.
			out := cmd.OutOrStdout()
			for _, status := range models.Statuses {
				col := board.Column(status)
				matches := make(map[string]bool)
				for _, e := range client.FilterByQuery(col, query) {
					matches[e.Key()] = true
				}
				fmt.Fprintf(out, "%s (%d)\n", status.Label(), len(matches))
				for i, e := range col {
					if matches[e.Key()] {
						fmt.Fprintf(out, "  %d. #%d %s\n", i, e.Task.ID, e.Task.Title)
					}
				}
			}
			return nil
		},
	}
	cmd.Flags().StringP("search", "s", "", "Only show tasks whose title or description matches")
	return cmd
}

func addCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Create a task in Not Started",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := models.CreateTaskInput{Title: args[0]}
			if cmd.Flags().Changed("description") {
				desc, _ := cmd.Flags().GetString("description")
				in.Description = &desc
			}

			board, err := a.board(cmd.Context())
			if err != nil {
				return err
			}
			task, err := board.Create(cmd.Context(), in)
			if err != nil {
				return err
			}
			printTask(cmd.OutOrStdout(), task)
			return nil
		},
	}
	cmd.Flags().StringP("description", "d", "", "Task description")
	return cmd
}

func editCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a task's title or description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTaskID(args[0])
			if err != nil {
				return err
			}

			var in models.UpdateTaskInput
			if cmd.Flags().Changed("title") {
				title, _ := cmd.Flags().GetString("title")
				in.Title = &title
			}
			if cmd.Flags().Changed("description") {
				desc, _ := cmd.Flags().GetString("description")
				in.Description = &desc
			}
			if in.Title == nil && in.Description == nil {
				return fmt.Errorf("nothing to change: pass --title or --description")
			}

			board, err := a.board(cmd.Context())
			if err != nil {
				return err
			}
			task, err := board.Update(cmd.Context(), id, in)
			if err != nil {
				return err
			}
			printTask(cmd.OutOrStdout(), task)
			return nil
		},
	}
	cmd.Flags().StringP("title", "t", "", "New title")
	cmd.Flags().StringP("description", "d", "", "New description")
	return cmd
}

func statusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status <id> <status>",
		Short: "Set a task's status without reordering it",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTaskID(args[0])
			if err != nil {
				return err
			}
			status, err := parseStatus(args[1])
			if err != nil {
				return err
			}

			board, err := a.board(cmd.Context())
			if err != nil {
				return err
			}
			task, err := board.ChangeStatus(cmd.Context(), id, status)
			if err != nil {
				return err
			}
			printTask(cmd.OutOrStdout(), task)
			return nil
		},
	}
}

func moveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "move <id> <status> [index]",
		Short: "Drop a task into a column at the given index (default: bottom)",
		Long: `Move a task the same way dragging a card does. The index counts from 0 at
the top of the destination column as shown by "taskboard list"; a filtered
listing (--search) shows each card's index in the full column.`,
		Args: cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTaskID(args[0])
			if err != nil {
				return err
			}
			status, err := parseStatus(args[1])
			if err != nil {
				return err
			}

			board, err := a.board(cmd.Context())
			if err != nil {
				return err
			}
			key := strconv.FormatInt(id, 10)
			entry, err := board.Resolve(key)
			if err != nil {
				return err
			}
			source := client.Location{Status: entry.Task.Status, Index: indexOf(board.Column(entry.Task.Status), key)}

			dest := client.Location{Status: status}
			if len(args) == 3 {
				dest.Index, err = strconv.Atoi(args[2])
				if err != nil || dest.Index < 0 {
					return fmt.Errorf("invalid index %q", args[2])
				}
			} else {
				dest.Index = len(board.Column(status))
				if status == source.Status {
					dest.Index--
				}
			}

			moved, err := client.NewDragHandler(board).HandleDrop(cmd.Context(), client.DropResult{
				Key:         key,
				Source:      source,
				Destination: &dest,
			})
			if err != nil {
				return err
			}
			if !moved {
				fmt.Fprintln(cmd.OutOrStdout(), "already there")
				return nil
			}

			entry, err = board.Resolve(key)
			if err != nil {
				return err
			}
			printTask(cmd.OutOrStdout(), &entry.Task)
			return nil
		},
	}
}

func rmCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTaskID(args[0])
			if err != nil {
				return err
			}
			board, err := a.board(cmd.Context())
			if err != nil {
				return err
			}
			if err := board.Delete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted #%d\n", id)
			return nil
		},
	}
}

func countCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "count",
		Short: "Show how many tasks are in each column",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			counts, err := a.remote.Count(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, status := range models.Statuses {
				fmt.Fprintf(out, "%-12s %d\n", status.Label(), counts.Get(status))
			}
			return nil
		},
	}
}

func parseTaskID(raw string) (int64, error) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid task id %q", raw)
	}
	return id, nil
}

func indexOf(col []client.Entry, key string) int {
	for i, e := range col {
		if e.Key() == key {
			return i
		}
	}
	return -1
}
