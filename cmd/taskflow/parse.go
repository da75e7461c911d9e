package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"taskflow/internal/voice"
)

func newParseCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "parse <transcript...>",
		Short: "Show the fields extracted from a spoken task description",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields := voice.Parse(strings.Join(args, " "), ctx.now())
			rows := [][]string{
				{"Subject", fields.Subject},
				{"Assignee", fields.Assignee},
				{"Due date", fields.DueDate},
				{"Due time", fields.DueTime},
				{"Reminder", fields.ReminderTime},
				{"Full day", strconv.FormatBool(fields.IsFullDay)},
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"Field", "Value"}, rows, nil))
			return nil
		},
	}
}

func newAddCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "add <transcript...>",
		Short: "Create a task from a spoken task description",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := ctx.ensureApp(cmd.Context())
			if err != nil {
				return err
			}
			task, err := app.tasks.CreateFromTranscript(cmd.Context(), strings.Join(args, " "), ctx.now())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created task %s: %s (due %s)\n", task.ID, task.Subject, dueLabel(*task))
			return nil
		},
	}
}

func newMaterializeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "materialize",
		Short: "Create upcoming instances for active recurring templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := ctx.ensureApp(cmd.Context())
			if err != nil {
				return err
			}
			created, err := app.recurrence.Materialize(cmd.Context(), ctx.now())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Materialized %d new task(s)\n", created)
			return nil
		},
	}
}
