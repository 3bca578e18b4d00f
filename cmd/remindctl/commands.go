package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/edgard/remindbot/internal/database"
	"github.com/edgard/remindbot/internal/reminder"
	"github.com/edgard/remindbot/internal/schedule"
)

type taskFlags struct {
	owner string
	title string
	due   string
	count int
}

func (f *taskFlags) bind(cmd *cobra.Command, withOwner bool) {
	if withOwner {
		cmd.Flags().StringVar(&f.owner, "owner", "", "task owner id")
		_ = cmd.MarkFlagRequired("owner")
	}
	cmd.Flags().StringVar(&f.title, "title", "", "task name")
	cmd.Flags().StringVar(&f.due, "due", "", `due date, e.g. "jul 31 2025" or 2025-07-31`)
	cmd.Flags().IntVar(&f.count, "count", 1, "number of reminders (1-10)")
}

func (f *taskFlags) input(svc *reminder.Service) (reminder.TaskInput, error) {
	due, err := svc.ParseDueDate(f.due)
	if err != nil {
		return reminder.TaskInput{}, err
	}
	return reminder.TaskInput{OwnerID: f.owner, Title: f.title, DueDate: due, Count: f.count}, nil
}

func addCmd(a *app) *cobra.Command {
	var f taskFlags
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Schedule a task with its reminders",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withEnv(cmd, nil, func(ctx context.Context, e *env) error {
				input, err := f.input(e.service)
				if err != nil {
					return err
				}
				task, dates, err := e.service.CreateTask(ctx, input)
				if err != nil {
					return err
				}
				return a.printDetail(cmd.OutOrStdout(), e, *task, dates)
			})
		},
	}
	f.bind(cmd, true)
	return cmd
}

func listCmd(a *app) *cobra.Command {
	var owner string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks by due date",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withEnv(cmd, nil, func(ctx context.Context, e *env) error {
				tasks, err := e.service.ListTasks(ctx, owner)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if a.jsonOut {
					if tasks == nil {
						tasks = []database.TaskSummary{}
					}
					return printJSON(out, tasks)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(out)
				tw.AppendHeader(table.Row{"ID", "Owner", "Title", "Due", "Reminders"})
				for _, t := range tasks {
					tw.AppendRow(table.Row{t.ID, t.OwnerID, t.Title, t.DueDate.Format(e.cfg.Reminder.DateLayout), t.ReminderCount})
				}
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "task owner id")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}

func showCmd(a *app) *cobra.Command {
	var owner string
	cmd := &cobra.Command{
		Use:   "show <task-id>",
		Short: "Show a task with its pending reminders",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return a.withEnv(cmd, nil, func(ctx context.Context, e *env) error {
				detail, err := e.service.TaskReminders(ctx, id, owner)
				if err != nil {
					return err
				}
				return a.printDetail(cmd.OutOrStdout(), e, detail.Task, detail.Reminders)
			})
		},
	}
	cmd.Flags().StringVar(&owner, "owner", database.AnyOwner, "task owner id (any owner when empty)")
	return cmd
}

func removeCmd(a *app) *cobra.Command {
	var owner, title string
	cmd := &cobra.Command{
		Use:   "remove [task-id]",
		Short: "Remove a task by id, or every task with --title",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (len(args) == 0) == (title == "") {
				return fmt.Errorf("give either a task id or --title")
			}
			return a.withEnv(cmd, nil, func(ctx context.Context, e *env) error {
				if title != "" {
					if err := e.service.RemoveTaskByTitle(ctx, title, owner); err != nil {
						return err
					}
					fmt.Fprintf(cmd.OutOrStdout(), "removed tasks titled %q\n", title)
					return nil
				}
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				if err := e.service.RemoveTask(ctx, id, owner); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "removed task %d\n", id)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&owner, "owner", "", "task owner id")
	cmd.Flags().StringVar(&title, "title", "", "remove every task with this name")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}

func editCmd(a *app) *cobra.Command {
	var f taskFlags
	cmd := &cobra.Command{
		Use:   "edit <task-id>",
		Short: "Replace a task and regenerate its reminders",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return a.withEnv(cmd, nil, func(ctx context.Context, e *env) error {
				input, err := f.input(e.service)
				if err != nil {
					return err
				}
				task, dates, err := e.service.EditTask(ctx, id, input)
				if err != nil {
					return err
				}
				return a.printDetail(cmd.OutOrStdout(), e, *task, dates)
			})
		},
	}
	f.bind(cmd, true)
	return cmd
}

func previewCmd(a *app) *cobra.Command {
	var f taskFlags
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Show the reminder dates a task would get, without saving it",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withEnv(cmd, nil, func(ctx context.Context, e *env) error {
				due, err := e.service.ParseDueDate(f.due)
				if err != nil {
					return err
				}
				dates, err := e.service.PreviewSchedule(due, f.count)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if a.jsonOut {
					return printJSON(out, map[string]any{"today": e.service.Today(), "due_date": due, "reminders": dates})
				}
				a.renderDates(out, e, dates)
				return nil
			})
		},
	}
	f.bind(cmd, false)
	return cmd
}

func cycleCmd(a *app) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "cycle",
		Short: "Run one reconciliation pass; notifications are logged, not sent",
		RunE: func(cmd *cobra.Command, args []string) error {
			notifier := func(log *slog.Logger) reminder.Notifier { return reminder.NewLogNotifier(log) }
			return a.withEnv(cmd, notifier, func(ctx context.Context, e *env) error {
				out := cmd.OutOrStdout()
				if dryRun {
					return a.printScan(out, e.reconciler.Scan(ctx))
				}
				report := e.reconciler.RunCycle(ctx)
				if a.jsonOut {
					return printJSON(out, report)
				}
				tw := table.NewWriter()
				tw.SetOutputMirror(out)
				tw.AppendHeader(table.Row{"Today", "Past due", "Notified", "Failed", "Fired", "Stale removed", "Errors"})
				tw.AppendRow(table.Row{report.Today, report.PastDueTasks, report.Notified, report.NotifyFailed, report.RemindersFired, report.StaleRemoved, report.Errors})
				tw.Render()
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "only show what a pass would do")
	return cmd
}

func migrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or upgrade the task store schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			// Opening the store applies pending migrations.
			return a.withEnv(cmd, nil, func(ctx context.Context, e *env) error {
				if err := e.store.Ping(ctx); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s store at %s is up to date\n", e.cfg.Database.Backend, e.cfg.Database.Path)
				return nil
			})
		},
	}
}

func vacuumCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "vacuum",
		Short: "Run store maintenance (VACUUM, or compaction for the JSON backend)",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.withEnv(cmd, nil, func(ctx context.Context, e *env) error {
				if err := e.store.RunSQLMaintenance(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "maintenance complete")
				return nil
			})
		},
	}
}

func (a *app) printDetail(out io.Writer, e *env, task database.Task, dates []schedule.Date) error {
	if a.jsonOut {
		return printJSON(out, reminder.TaskDetail{Task: task, Reminders: dates})
	}
	fmt.Fprintf(out, "#%d %q for %s, due %s\n", task.ID, task.Title, task.OwnerID, task.DueDate.Format(e.cfg.Reminder.DateLayout))
	a.renderDates(out, e, dates)
	return nil
}

func (a *app) renderDates(out io.Writer, e *env, dates []schedule.Date) {
	tw := table.NewWriter()
	tw.SetOutputMirror(out)
	tw.AppendHeader(table.Row{"#", "Reminder"})
	for i, d := range dates {
		tw.AppendRow(table.Row{i + 1, d.Format(e.cfg.Reminder.DateLayout)})
	}
	tw.Render()
}

func (a *app) printScan(out io.Writer, scan reminder.Scan) error {
	if a.jsonOut {
		return printJSON(out, map[string]any{
			"today":     scan.Today,
			"past_due":  scan.PastDue,
			"due_today": scan.DueToday,
			"stale":     scan.Stale,
		})
	}
	tw := table.NewWriter()
	tw.SetOutputMirror(out)
	tw.AppendHeader(table.Row{"Action", "Task", "Owner", "Title", "Date"})
	for _, t := range scan.PastDue {
		tw.AppendRow(table.Row{"past due", t.ID, t.OwnerID, t.Title, t.DueDate})
	}
	for _, r := range scan.DueToday {
		tw.AppendRow(table.Row{"remind", r.TaskID, r.OwnerID, r.Title, r.ReminderDate})
	}
	for _, r := range scan.Stale {
		tw.AppendRow(table.Row{"drop stale", r.TaskID, r.OwnerID, r.Title, r.ReminderDate})
	}
	tw.Render()
	for _, err := range []error{scan.PastDueErr, scan.DueTodayErr, scan.StaleErr} {
		if err != nil {
			return err
		}
	}
	return nil
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid task id %q", s)
	}
	return id, nil
}
