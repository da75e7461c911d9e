package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"taskflow/internal/model"
	"taskflow/internal/service"
)

func newTasksCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List and update tasks",
	}
	cmd.AddCommand(newTasksListCommand(ctx))
	cmd.AddCommand(newTasksAdvanceCommand(ctx))
	cmd.AddCommand(newTasksDeleteCommand(ctx))
	cmd.AddCommand(newTasksDashboardCommand(ctx))
	return cmd
}

func newTasksListCommand(ctx *commandContext) *cobra.Command {
	var filter, search, status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List open tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			date, err := service.ParseDateFilter(filter)
			if err != nil {
				return err
			}
			taskStatus, err := parseTaskStatus(status)
			if err != nil {
				return err
			}
			app, err := ctx.ensureApp(cmd.Context())
			if err != nil {
				return err
			}
			tasks, err := app.tasks.List(cmd.Context(), service.ListOptions{
				Date:   date,
				Status: taskStatus,
				Search: search,
			}, ctx.now())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(tasks) == 0 {
				fmt.Fprintln(out, "No tasks found.")
				return nil
			}
			rows := make([][]string, 0, len(tasks))
			for _, task := range tasks {
				rows = append(rows, []string{
					task.ID,
					task.Subject,
					task.Assignee,
					dueLabel(task),
					string(task.Status),
					strings.Join(task.Labels, ", "),
				})
			}
			fmt.Fprintln(out, renderTable([]string{"ID", "Subject", "Assignee", "Due", "Status", "Labels"}, rows, nil))
			return nil
		},
	}

	cmd.Flags().StringVar(&filter, "filter", "", "Date window: all, today, tomorrow, next5days, next30days")
	cmd.Flags().StringVar(&search, "search", "", "Match subject, assignee, details or labels")
	cmd.Flags().StringVar(&status, "status", "", "Only tasks with this status: assigned, in-progress, closed")
	return cmd
}

func newTasksAdvanceCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "advance <task-id>",
		Short: "Move a task to its next status",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := ctx.ensureApp(cmd.Context())
			if err != nil {
				return err
			}
			task, err := app.tasks.Advance(cmd.Context(), args[0], ctx.now())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Task %s is now %s\n", task.ID, task.Status)
			return nil
		},
	}
}

func newTasksDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <task-id>",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := ctx.ensureApp(cmd.Context())
			if err != nil {
				return err
			}
			if err := app.tasks.DeleteTask(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted task %s\n", args[0])
			return nil
		},
	}
}

func newTasksDashboardCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show open task counts by due window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := ctx.ensureApp(cmd.Context())
			if err != nil {
				return err
			}
			dash, err := app.tasks.Dashboard(cmd.Context(), ctx.now())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			counts := [][]string{
				{"Pending", strconv.Itoa(dash.Pending)},
				{"Today", strconv.Itoa(dash.Today)},
				{"Next 5 days", strconv.Itoa(dash.Next5Days)},
				{"Next 30 days", strconv.Itoa(dash.Next30Days)},
			}
			fmt.Fprintln(out, renderTable([]string{"Window", "Tasks"}, counts, []columnAlignment{alignLeft, alignRight}))

			if len(dash.Overdue) == 0 {
				fmt.Fprintln(out, "No overdue tasks.")
				return nil
			}
			overdue := make([][]string, 0, len(dash.Overdue))
			for _, entry := range dash.Overdue {
				overdue = append(overdue, []string{entry.Assignee, strconv.Itoa(entry.Count)})
			}
			fmt.Fprintln(out, renderTable([]string{"Assignee", "Overdue"}, overdue, []columnAlignment{alignLeft, alignRight}))
			return nil
		},
	}
}

func parseTaskStatus(raw string) (model.TaskStatus, error) {
	switch status := model.TaskStatus(strings.ToLower(strings.TrimSpace(raw))); status {
	case "", model.StatusAssigned, model.StatusInProgress, model.StatusClosed:
		return status, nil
	default:
		return "", fmt.Errorf("unknown task status %q", raw)
	}
}

func dueLabel(task model.Task) string {
	if task.IsFullDay || task.DueTime == "" {
		return task.DueDate
	}
	return task.DueDate + " " + task.DueTime
}
