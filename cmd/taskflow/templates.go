package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"taskflow/internal/model"
	"taskflow/internal/service"
)

func newTemplatesCommand(ctx *commandContext) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "templates",
		Short: "Manage recurring task templates",
	}
	cmd.AddCommand(newTemplatesListCommand(ctx))
	cmd.AddCommand(newTemplatesAddCommand(ctx))
	cmd.AddCommand(newTemplatesEditCommand(ctx))
	cmd.AddCommand(newTemplatesToggleCommand(ctx))
	cmd.AddCommand(newTemplatesDeleteCommand(ctx))
	return cmd
}

func newTemplatesListCommand(ctx *commandContext) *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recurring templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			templateStatus := model.TemplateStatus(strings.ToLower(strings.TrimSpace(status)))
			switch templateStatus {
			case "", model.TemplateActive, model.TemplateInactive:
			default:
				return fmt.Errorf("unknown template status %q", status)
			}
			app, err := ctx.ensureApp(cmd.Context())
			if err != nil {
				return err
			}
			templates, err := app.templates.List(cmd.Context(), templateStatus)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(templates) == 0 {
				fmt.Fprintln(out, "No recurring templates.")
				return nil
			}
			rows := make([][]string, 0, len(templates))
			for _, t := range templates {
				rows = append(rows, []string{
					t.ID,
					t.Subject,
					t.Assignee,
					model.DescribeSchedule(t.Schedule),
					string(t.Status),
				})
			}
			fmt.Fprintln(out, renderTable([]string{"ID", "Subject", "Assignee", "Schedule", "Status"}, rows, nil))
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "Only templates with this status: active, inactive")
	return cmd
}

type templateFlags struct {
	subject  string
	details  string
	assignee string
	labels   []string
	url      string
	weekly   string
	monthly  string
	yearly   string
	inactive bool
}

func (f *templateFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.subject, "subject", "", "Task subject")
	cmd.Flags().StringVar(&f.details, "details", "", "Task details")
	cmd.Flags().StringVar(&f.assignee, "assignee", "", "Assignee (defaults to Self)")
	cmd.Flags().StringSliceVar(&f.labels, "labels", nil, "Comma separated labels")
	cmd.Flags().StringVar(&f.url, "url", "", "Related link")
	cmd.Flags().StringVar(&f.weekly, "weekly", "", "Weekdays, e.g. mon,thu or 1,4")
	cmd.Flags().StringVar(&f.monthly, "monthly", "", "Days of month 1-30, e.g. 1,15")
	cmd.Flags().StringVar(&f.yearly, "yearly", "", "Dates as MM-DD, e.g. 01-01,12-25")
	cmd.Flags().BoolVar(&f.inactive, "inactive", false, "Keep the template paused")
	cmd.MarkFlagsMutuallyExclusive("weekly", "monthly", "yearly")
}

func (f *templateFlags) status() model.TemplateStatus {
	if f.inactive {
		return model.TemplateInactive
	}
	return model.TemplateActive
}

// overlay replaces the fields of input whose flags were given on the command line.
func (f *templateFlags) overlay(cmd *cobra.Command, input *service.TemplateInput) error {
	changed := cmd.Flags().Changed
	if changed("subject") {
		input.Subject = f.subject
	}
	if changed("details") {
		input.Details = f.details
	}
	if changed("assignee") {
		input.Assignee = f.assignee
	}
	if changed("labels") {
		input.Labels = f.labels
	}
	if changed("url") {
		input.URL = f.url
	}
	if changed("inactive") {
		input.Status = f.status()
	}
	if changed("weekly") || changed("monthly") || changed("yearly") {
		schedule, err := scheduleFromFlags(f.weekly, f.monthly, f.yearly)
		if err != nil {
			return err
		}
		input.Schedule = schedule
	}
	return nil
}

func newTemplatesAddCommand(ctx *commandContext) *cobra.Command {
	var flags templateFlags

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create a recurring template",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			input := service.TemplateInput{Status: flags.status()}
			if err := flags.overlay(cmd, &input); err != nil {
				return err
			}
			app, err := ctx.ensureApp(cmd.Context())
			if err != nil {
				return err
			}
			template, err := app.templates.Create(cmd.Context(), input, ctx.now())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created template %s: %s, %s\n", template.ID, template.Subject, model.DescribeSchedule(template.Schedule))
			return nil
		},
	}

	flags.register(cmd)
	cmd.MarkFlagsOneRequired("weekly", "monthly", "yearly")
	return cmd
}

func newTemplatesEditCommand(ctx *commandContext) *cobra.Command {
	var flags templateFlags

	cmd := &cobra.Command{
		Use:   "edit <template-id>",
		Short: "Change a recurring template",
		Long:  "Only the given flags change. Tasks already created keep their values; later ones follow the template.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := ctx.ensureApp(cmd.Context())
			if err != nil {
				return err
			}
			current, err := app.templates.GetTemplate(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			input := service.TemplateInput{
				Subject:  current.Subject,
				Details:  current.Details,
				Assignee: current.Assignee,
				Labels:   current.Labels,
				URL:      current.URL,
				Schedule: current.Schedule,
				Status:   current.Status,
			}
			if err := flags.overlay(cmd, &input); err != nil {
				return err
			}
			template, err := app.templates.Update(cmd.Context(), args[0], input, ctx.now())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Updated template %s: %s, %s\n", template.ID, template.Subject, model.DescribeSchedule(template.Schedule))
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

func scheduleFromFlags(weekly, monthly, yearly string) (model.Schedule, error) {
	switch {
	case weekly != "":
		return model.ParseScheduleText(model.ScheduleWeekly, weekly)
	case monthly != "":
		return model.ParseScheduleText(model.ScheduleMonthly, monthly)
	case yearly != "":
		return model.ParseScheduleText(model.ScheduleYearly, yearly)
	default:
		return nil, fmt.Errorf("one of --weekly, --monthly or --yearly is required")
	}
}

func newTemplatesToggleCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <template-id>",
		Short: "Pause or resume a template",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := ctx.ensureApp(cmd.Context())
			if err != nil {
				return err
			}
			template, err := app.templates.Toggle(cmd.Context(), args[0], ctx.now())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Template %s is now %s\n", template.ID, template.Status)
			return nil
		},
	}
}

func newTemplatesDeleteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <template-id>",
		Short: "Delete a template",
		Long:  "Active templates are hidden and stop producing tasks. Inactive templates are removed together with their tasks.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := ctx.ensureApp(cmd.Context())
			if err != nil {
				return err
			}
			purged, removed, err := app.templates.Delete(cmd.Context(), args[0], ctx.now())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if purged {
				fmt.Fprintf(out, "Deleted template %s and %d task(s)\n", args[0], removed)
				return nil
			}
			fmt.Fprintf(out, "Deleted template %s, existing tasks kept\n", args[0])
			return nil
		},
	}
}
