package worker

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// Job is a unit of scheduled work.
type Job interface {
	Name() string
	Description() string
	Run(ctx context.Context) error
}

// Task is a Job backed by a function returning how many records it touched.
type Task struct {
	name        string
	description string
	fn          func(ctx context.Context) (int, error)
	log         zerolog.Logger
}

// NewTask creates a Task.
func NewTask(name, description string, fn func(ctx context.Context) (int, error), log zerolog.Logger) *Task {
	return &Task{name: name, description: description, fn: fn, log: log.With().Str("task", name).Logger()}
}

func (t *Task) Name() string        { return t.name }
func (t *Task) Description() string { return t.description }

func (t *Task) Run(ctx context.Context) error {
	n, err := t.fn(ctx)
	if err != nil {
		return fmt.Errorf("%s: %w", t.name, err)
	}
	t.log.Info().Int("count", n).Msg("Task finished")
	return nil
}

// Group runs its jobs in order. A failing job does not stop the others;
// their errors are joined.
type Group struct {
	name        string
	description string
	jobs        []Job
}

// NewGroup creates a Group.
func NewGroup(name, description string, jobs ...Job) *Group {
	return &Group{name: name, description: description, jobs: jobs}
}

func (g *Group) Name() string        { return g.name }
func (g *Group) Description() string { return g.description }

// Jobs returns the members of the group.
func (g *Group) Jobs() []Job { return g.jobs }

func (g *Group) Run(ctx context.Context) error {
	var errs []error
	for _, j := range g.jobs {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := j.Run(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
