// Package controller turns parsed intents into store operations and keeps the
// current filter and search of the list view.
package controller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/sandeepkv93/taskboard/internal/commands"
	"github.com/sandeepkv93/taskboard/internal/model"
	"github.com/sandeepkv93/taskboard/internal/projection"
	"github.com/sandeepkv93/taskboard/internal/scheduler"
	"github.com/sandeepkv93/taskboard/internal/store"
)

type Controller struct {
	store  *store.Store
	clock  scheduler.Clock
	logger *slog.Logger

	mu    sync.Mutex
	query projection.Query
}

func New(s *store.Store, clock scheduler.Clock, logger *slog.Logger) *Controller {
	if clock == nil {
		clock = scheduler.SystemClock{}
	}
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Controller{
		store:  s,
		clock:  clock,
		logger: logger,
		query:  projection.Query{Mode: projection.ModeAll},
	}
}

// Run parses one palette line and dispatches it.
func (c *Controller) Run(ctx context.Context, input string) (commands.Result, error) {
	cmd, err := commands.Parse(input)
	if err != nil {
		return commands.Result{}, err
	}
	return c.Dispatch(ctx, cmd)
}

func (c *Controller) Dispatch(ctx context.Context, cmd commands.Command) (commands.Result, error) {
	res, err := commands.Execute(cmd, c.Handlers(ctx))
	if err != nil {
		c.logger.Debug("intent failed", "type", cmd.Type, "err", err)
	} else {
		c.logger.Debug("intent handled", "type", cmd.Type, "task_id", res.TaskID)
	}
	return res, err
}

func (c *Controller) Handlers(ctx context.Context) commands.Handlers {
	return commands.Handlers{
		Add:    func(a commands.AddArgs) (commands.Result, error) { return c.add(ctx, a) },
		Edit:   func(a commands.EditArgs) (commands.Result, error) { return c.edit(ctx, a) },
		Toggle: func(a commands.ToggleArgs) (commands.Result, error) { return c.toggle(ctx, a) },
		Delete: func(a commands.DeleteArgs) (commands.Result, error) { return c.delete(ctx, a) },
		Filter: c.filter,
		Search: c.search,
	}
}

func (c *Controller) Query() projection.Query {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.query
}

// Rows is the current view: the store snapshot through the active query.
func (c *Controller) Rows() []projection.Row {
	return projection.Apply(c.store.Snapshot(), c.Query(), c.clock.Now())
}

func (c *Controller) Progress() projection.Stats {
	return projection.Progress(c.store.Snapshot())
}

func (c *Controller) add(ctx context.Context, a commands.AddArgs) (commands.Result, error) {
	date, err := model.ResolveDate(a.Due, c.clock.Now())
	if err != nil {
		return commands.Result{}, invalid(err)
	}
	priority, err := model.ParsePriority(a.Priority)
	if err != nil {
		return commands.Result{}, invalid(err)
	}
	t, err := c.store.Create(ctx, store.Fields{Title: a.Title, Desc: a.Desc, Date: date, Priority: priority})
	if err != nil && !errors.Is(err, store.ErrPersist) {
		return commands.Result{}, invalid(err)
	}
	return c.result(t.ID, fmt.Sprintf("added %q due %s", t.Title, t.Date), err)
}

func (c *Controller) edit(ctx context.Context, a commands.EditArgs) (commands.Result, error) {
	var p store.Patch
	p.Title = a.Title
	p.Desc = a.Desc
	if a.Due != nil {
		date, err := model.ResolveDate(*a.Due, c.clock.Now())
		if err != nil {
			return commands.Result{}, invalid(err)
		}
		p.Date = &date
	}
	if a.Priority != nil {
		priority, err := model.ParsePriority(*a.Priority)
		if err != nil {
			return commands.Result{}, invalid(err)
		}
		p.Priority = &priority
	}
	t, ok, err := c.store.Update(ctx, a.ID, p)
	if err != nil && !errors.Is(err, store.ErrPersist) {
		return commands.Result{}, invalid(err)
	}
	if !ok {
		return commands.Result{}, notFound(a.ID)
	}
	return c.result(t.ID, fmt.Sprintf("updated %q", t.Title), err)
}

func (c *Controller) toggle(ctx context.Context, a commands.ToggleArgs) (commands.Result, error) {
	t, ok, err := c.store.ToggleComplete(ctx, a.ID)
	if err != nil && !errors.Is(err, store.ErrPersist) {
		return commands.Result{}, err
	}
	if !ok {
		return commands.Result{}, notFound(a.ID)
	}
	state := "reopened"
	if t.Completed {
		state = "completed"
	}
	return c.result(t.ID, fmt.Sprintf("%s %q", state, t.Title), err)
}

// delete only touches the store once the user has confirmed.
func (c *Controller) delete(ctx context.Context, a commands.DeleteArgs) (commands.Result, error) {
	t, ok := c.store.Get(a.ID)
	if !ok {
		return commands.Result{}, notFound(a.ID)
	}
	if !a.Confirmed {
		return commands.Result{TaskID: t.ID}, &commands.CommandError{
			Code:    commands.ErrCodeConfirmationRequired,
			Message: fmt.Sprintf("delete %q?", t.Title),
		}
	}
	removed, err := c.store.Delete(ctx, a.ID)
	if err != nil && !errors.Is(err, store.ErrPersist) {
		return commands.Result{}, err
	}
	if !removed {
		return commands.Result{}, notFound(a.ID)
	}
	return c.result(t.ID, fmt.Sprintf("deleted %q", t.Title), err)
}

func (c *Controller) filter(a commands.FilterArgs) (commands.Result, error) {
	mode, err := projection.ParseMode(a.Mode)
	if err != nil {
		return commands.Result{}, invalid(err)
	}
	c.SetMode(mode)
	return commands.Result{Message: fmt.Sprintf("showing %s", mode)}, nil
}

func (c *Controller) search(a commands.SearchArgs) (commands.Result, error) {
	c.SetSearch(a.Query)
	if a.Query == "" {
		return commands.Result{Message: "search cleared"}, nil
	}
	return commands.Result{Message: fmt.Sprintf("searching %q", a.Query)}, nil
}

func (c *Controller) SetMode(m projection.Mode) {
	c.mu.Lock()
	c.query.Mode = m
	c.mu.Unlock()
}

// SetSearch stores the query exactly as typed.
func (c *Controller) SetSearch(q string) {
	c.mu.Lock()
	c.query.Search = q
	c.mu.Unlock()
}

// result reports a persist failure alongside an applied change.
func (c *Controller) result(id int64, msg string, persistErr error) (commands.Result, error) {
	if persistErr != nil {
		c.logger.Warn("change kept in memory only", "task_id", id, "err", persistErr)
		return commands.Result{TaskID: id, Message: msg + " (not saved)"}, persistErr
	}
	return commands.Result{TaskID: id, Message: msg}, nil
}

func invalid(err error) *commands.CommandError {
	return &commands.CommandError{Code: commands.ErrCodeInvalidArgument, Message: err.Error()}
}

func notFound(id int64) *commands.CommandError {
	return &commands.CommandError{Code: commands.ErrCodeNotFound, Message: fmt.Sprintf("no task with id %d", id)}
}

// IsConfirmationRequired reports whether err asks the caller to confirm first.
func IsConfirmationRequired(err error) bool {
	var ce *commands.CommandError
	return errors.As(err, &ce) && ce.Code == commands.ErrCodeConfirmationRequired
}
