package reminder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
	"strings"

	"github.com/sandeepkv93/taskboard/internal/model"
)

// Notifier surfaces one fired reminder to the user.
type Notifier interface {
	Notify(ctx context.Context, n model.Notification) error
}

type NoopNotifier struct{}

func (NoopNotifier) Notify(context.Context, model.Notification) error { return nil }

type NotifierFunc func(ctx context.Context, n model.Notification) error

func (f NotifierFunc) Notify(ctx context.Context, n model.Notification) error { return f(ctx, n) }

// ExecNotifier raises a desktop notification through notify-send or osascript.
// Other platforms are a silent no-op.
type ExecNotifier struct {
	AppName string
}

func (e ExecNotifier) Notify(ctx context.Context, n model.Notification) error {
	title := e.AppName
	if title == "" {
		title = "taskboard"
	}
	switch runtime.GOOS {
	case "linux":
		return exec.CommandContext(ctx, "notify-send", "--urgency=critical", title, n.Message()).Run()
	case "darwin":
		script := fmt.Sprintf(`display notification "%s" with title "%s"`, escapeAppleScript(n.Message()), escapeAppleScript(title))
		return exec.CommandContext(ctx, "osascript", "-e", script).Run()
	default:
		return nil
	}
}

func escapeAppleScript(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `"`, `\"`)
}

type LogNotifier struct {
	Logger *slog.Logger
}

func (l LogNotifier) Notify(_ context.Context, n model.Notification) error {
	if l.Logger == nil {
		return nil
	}
	l.Logger.Info("reminder fired",
		"notification_id", n.ID,
		"task_id", n.TaskID,
		"title", n.Title,
		"date", n.Date,
	)
	return nil
}

// MultiNotifier fans out to every notifier and joins their errors.
type MultiNotifier []Notifier

func (m MultiNotifier) Notify(ctx context.Context, n model.Notification) error {
	var errs []error
	for _, notifier := range m {
		if notifier == nil {
			continue
		}
		if err := notifier.Notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
