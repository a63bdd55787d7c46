package main

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/sandeepkv93/restodo/internal/commands"
	"github.com/sandeepkv93/restodo/internal/derive"
	"github.com/sandeepkv93/restodo/internal/model"
	"github.com/sandeepkv93/restodo/internal/translator"
	"github.com/sandeepkv93/restodo/internal/views"
)

func listCmd(opts *rootOptions) *cobra.Command {
	var (
		filter  string
		sortKey string
		search  string
		asJSON  bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tasks grouped into overdue, pending and completed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := derive.ParseFilter(filter)
			if err != nil {
				return err
			}
			s, err := derive.ParseSort(sortKey)
			if err != nil {
				return err
			}
			a, cleanup, err := bootstrap(cmd, opts)
			if err != nil {
				return err
			}
			defer cleanup()

			tasks, err := a.client.List(cmd.Context())
			if err != nil {
				return err
			}
			now := time.Now()
			derived := derive.Derive(tasks, derive.Options{Filter: f, Sort: s, Search: search, Now: now, Locale: a.tr.Tag()})
			groups := derive.Partition(derived, now)

			out := cmd.OutOrStdout()
			if asJSON {
				ordered := append(append(append([]model.Task{}, groups.Overdue...), groups.Pending...), groups.Completed...)
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(ordered)
			}

			counts := derive.Count(tasks, now)
			fmt.Fprintln(out, a.tr.T("counter.line", map[string]any{
				"Pending":   counts.Pending,
				"Completed": counts.Completed,
				"Overdue":   counts.Overdue,
			}))
			if groups.Len() == 0 {
				if len(tasks) == 0 {
					fmt.Fprintln(out, a.tr.T("empty.none", nil))
				} else {
					fmt.Fprintln(out, a.tr.T("empty.filtered", nil))
				}
				return nil
			}
			fmt.Fprintln(out, renderTaskTable(a.tr, groups, now))
			return nil
		},
	}
	cmd.Flags().StringVar(&filter, "filter", "all", "all, pending, completed or overdue")
	cmd.Flags().StringVar(&sortKey, "sort", "create_time", "create_time, title, priority or due_date")
	cmd.Flags().StringVar(&search, "search", "", "case-insensitive match on title or description")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func renderTaskTable(tr *translator.Translator, groups derive.Groups, now time.Time) string {
	type section struct {
		id    string
		tasks []model.Task
	}
	sections := []section{
		{"section.overdue", groups.Overdue},
		{"section.pending", groups.Pending},
		{"section.completed", groups.Completed},
	}

	priorities := make([]int, 0, groups.Len())
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(
			tr.T("column.id", nil),
			tr.T("column.section", nil),
			tr.T("column.title", nil),
			tr.T("column.priority", nil),
			tr.T("column.due", nil),
			tr.T("column.created", nil),
		)
	for _, s := range sections {
		for _, task := range s.tasks {
			due := ""
			if task.DueDate != nil {
				due = task.DueDate.Local().Format("01-02 15:04")
				if task.Overdue(now) {
					due += " " + tr.T("badge.overdue", nil)
				}
			}
			t.Row(
				strconv.FormatInt(task.ID, 10),
				tr.T(s.id, nil),
				task.Title,
				tr.T(task.Priority.Key(), nil),
				due,
				task.CreateTime.Local().Format("2006-01-02 15:04"),
			)
			priorities = append(priorities, int(task.Priority))
		}
	}
	t.StyleFunc(func(row, col int) lipgloss.Style {
		style := lipgloss.NewStyle().Padding(0, 1)
		if row >= 0 && row < len(priorities) && col == 3 {
			style = style.Foreground(views.PriorityColor(priorities[row]))
		}
		return style
	})
	return t.String()
}

func addCmd(opts *rootOptions) *cobra.Command {
	var (
		desc     string
		priority string
		due      string
	)
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Create a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			draft := model.Draft{Title: strings.Join(args, " ")}
			if cmd.Flags().Changed("desc") {
				draft.Description = &desc
			}
			if priority != "" {
				p, err := model.ParsePriority(priority)
				if err != nil {
					return err
				}
				draft.Priority = &p
			}
			if due != "" {
				at, err := commands.ParseDue(due, time.Local)
				if err != nil {
					return err
				}
				draft.DueDate = at
			}

			a, cleanup, err := bootstrap(cmd, opts)
			if err != nil {
				return err
			}
			defer cleanup()
			task, err := a.client.Create(cmd.Context(), draft)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s (#%d)\n", a.tr.T("status.added", map[string]any{"Title": task.Title}), task.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&desc, "desc", "", "description (markdown)")
	cmd.Flags().StringVar(&priority, "priority", "", "1-5 or low, lower, medium, higher, high")
	cmd.Flags().StringVar(&due, "due", "", "due date, e.g. 2026-04-01 or 2026-04-01 18:00")
	return cmd
}

func editCmd(opts *rootOptions) *cobra.Command {
	var (
		title    string
		desc     string
		priority string
		due      string
		clearDue bool
	)
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change fields of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTaskID(args[0])
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			var patch model.Patch
			if flags.Changed("title") {
				patch.Title = &title
			}
			if flags.Changed("desc") {
				patch.Description = &desc
			}
			if flags.Changed("priority") {
				p, err := model.ParsePriority(priority)
				if err != nil {
					return err
				}
				patch.Priority = &p
			}
			if clearDue && flags.Changed("due") {
				return fmt.Errorf("--due and --clear-due are mutually exclusive")
			}
			if clearDue {
				patch.ClearDueDate = true
			} else if flags.Changed("due") {
				at, err := commands.ParseDue(due, time.Local)
				if err != nil {
					return err
				}
				patch.DueDate = at
			}

			a, cleanup, err := bootstrap(cmd, opts)
			if err != nil {
				return err
			}
			defer cleanup()
			task, err := a.client.Update(cmd.Context(), id, patch)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), a.tr.T("status.updated", map[string]any{"Title": task.Title}))
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&desc, "desc", "", "new description; empty clears it")
	cmd.Flags().StringVar(&priority, "priority", "", "1-5 or low, lower, medium, higher, high")
	cmd.Flags().StringVar(&due, "due", "", "new due date")
	cmd.Flags().BoolVar(&clearDue, "clear-due", false, "remove the due date")
	return cmd
}

func toggleCmd(opts *rootOptions, use string, completed bool) *cobra.Command {
	short := "Mark a task as done"
	if !completed {
		short = "Mark a task as not done"
	}
	return &cobra.Command{
		Use:   use + " <id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseTaskID(args[0])
			if err != nil {
				return err
			}
			a, cleanup, err := bootstrap(cmd, opts)
			if err != nil {
				return err
			}
			defer cleanup()
			task, err := a.client.ToggleComplete(cmd.Context(), id, completed)
			if err != nil {
				return err
			}
			msg := "status.reopened"
			if task.IsCompleted {
				msg = "status.completed"
			}
			fmt.Fprintln(cmd.OutOrStdout(), a.tr.T(msg, map[string]any{"Title": task.Title}))
			return nil
		},
	}
}

func rmCmd(opts *rootOptions) *cobra.Command {
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
			a, cleanup, err := bootstrap(cmd, opts)
			if err != nil {
				return err
			}
			defer cleanup()
			if err := a.client.Delete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), a.tr.T("status.deleted", map[string]any{"ID": id}))
			return nil
		},
	}
}

func parseTaskID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(strings.TrimSpace(raw), "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid task id %q", raw)
	}
	return id, nil
}
