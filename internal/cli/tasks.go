package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/taskboard/internal/commands"
	"github.com/sandeepkv93/taskboard/internal/controller"
	"github.com/sandeepkv93/taskboard/internal/projection"
	"github.com/sandeepkv93/taskboard/internal/store"
	"github.com/sandeepkv93/taskboard/internal/views"
)

// withSession opens storage for one subcommand and always flushes it on the
// way out.
func withSession(cmd *cobra.Command, flags *globalFlags, fn func(ctx context.Context, s *session) error) (err error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	s, err := openSession(ctx, flags, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, s.Close(context.WithoutCancel(ctx)))
	}()
	return fn(ctx, s)
}

// dispatch runs one intent and prints its outcome. A change that could not be
// written is still reported, and the command fails.
func dispatch(ctx context.Context, cmd *cobra.Command, s *session, c commands.Command) (commands.Result, error) {
	res, err := s.controller.Dispatch(ctx, c)
	if err != nil && !errors.Is(err, store.ErrPersist) {
		return res, err
	}
	if res.Message != "" {
		fmt.Fprintf(cmd.OutOrStdout(), "#%d %s\n", res.TaskID, res.Message)
	}
	return res, err
}

func newAddCmd(flags *globalFlags) *cobra.Command {
	var desc, due, priority string
	cmd := &cobra.Command{
		Use:   "add <title...>",
		Short: "Add a task",
		Example: `  taskboard add Pay rent --due tomorrow --priority high
  taskboard add Call mom --desc "ask about **sunday**"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, flags, func(ctx context.Context, s *session) error {
				_, err := dispatch(ctx, cmd, s, commands.Command{
					Type: commands.TypeAdd,
					Add: &commands.AddArgs{
						Title:    strings.Join(args, " "),
						Desc:     desc,
						Due:      due,
						Priority: priority,
					},
				})
				return err
			})
		},
	}
	cmd.Flags().StringVarP(&desc, "desc", "d", "", "description (markdown)")
	cmd.Flags().StringVar(&due, "due", "today", "due date: YYYY-MM-DD, today or tomorrow")
	cmd.Flags().StringVarP(&priority, "priority", "p", "normal", "priority: normal or high")
	return cmd
}

func newEditCmd(flags *globalFlags) *cobra.Command {
	var title, desc, due, priority string
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change fields of a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := commands.ParseID(args[0])
			if err != nil {
				return err
			}
			edit := commands.EditArgs{ID: id}
			set := func(name string, value *string) *string {
				if cmd.Flags().Changed(name) {
					return value
				}
				return nil
			}
			edit.Title = set("title", &title)
			edit.Desc = set("desc", &desc)
			edit.Due = set("due", &due)
			edit.Priority = set("priority", &priority)
			if edit.IsEmpty() {
				return errors.New("nothing to change: pass --title, --desc, --due or --priority")
			}
			return withSession(cmd, flags, func(ctx context.Context, s *session) error {
				_, err := dispatch(ctx, cmd, s, commands.Command{Type: commands.TypeEdit, Edit: &edit})
				return err
			})
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "new title")
	cmd.Flags().StringVarP(&desc, "desc", "d", "", "new description")
	cmd.Flags().StringVar(&due, "due", "", "new due date")
	cmd.Flags().StringVarP(&priority, "priority", "p", "", "new priority")
	return cmd
}

func newDoneCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:     "done <id>",
		Aliases: []string{"toggle"},
		Short:   "Toggle the completed flag of a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := commands.ParseID(args[0])
			if err != nil {
				return err
			}
			return withSession(cmd, flags, func(ctx context.Context, s *session) error {
				_, err := dispatch(ctx, cmd, s, commands.Command{Type: commands.TypeToggle, Toggle: &commands.ToggleArgs{ID: id}})
				return err
			})
		},
	}
}

func newRmCmd(flags *globalFlags) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a task",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := commands.ParseID(args[0])
			if err != nil {
				return err
			}
			return withSession(cmd, flags, func(ctx context.Context, s *session) error {
				del := &commands.DeleteArgs{ID: id, Confirmed: yes}
				_, err := dispatch(ctx, cmd, s, commands.Command{Type: commands.TypeDelete, Delete: del})
				if !controller.IsConfirmationRequired(err) {
					return err
				}
				task, _ := s.store.Get(id)
				if !confirm(cmd.InOrStdin(), cmd.OutOrStdout(), fmt.Sprintf("Delete %q?", task.Title)) {
					fmt.Fprintln(cmd.OutOrStdout(), "cancelled")
					return nil
				}
				del.Confirmed = true
				_, err = dispatch(ctx, cmd, s, commands.Command{Type: commands.TypeDelete, Delete: del})
				return err
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

// confirm asks a y/N question; anything but an explicit yes declines.
func confirm(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [y/N] ", question)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		fmt.Fprintln(out)
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	default:
		return false
	}
}

func newLsCmd(flags *globalFlags) *cobra.Command {
	var filter, search string
	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List tasks with overdue flags and progress",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mode, err := projection.ParseMode(filter)
			if err != nil {
				return err
			}
			return withSession(cmd, flags, func(_ context.Context, s *session) error {
				s.controller.SetMode(mode)
				s.controller.SetSearch(search)
				out := cmd.OutOrStdout()
				rows := s.controller.Rows()
				if len(rows) == 0 {
					fmt.Fprintln(out, "no tasks")
				}
				for _, r := range rows {
					fmt.Fprintln(out, views.FormatRow(r))
				}
				fmt.Fprintf(out, "progress: %s\n", s.controller.Progress())
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&filter, "filter", "f", string(projection.ModeAll), "all, high or completed")
	cmd.Flags().StringVarP(&search, "search", "s", "", "case-insensitive match on title or description")
	return cmd
}
