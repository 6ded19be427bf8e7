// Package async runs background tasks with panic recovery and logging.
package async

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/platinummonkey/helpdesk/pkg/observability"
)

// SafeGo runs fn in a goroutine. A panic is recovered and logged with its
// stack; a returned error other than context cancellation is logged. The
// returned channel is closed when fn finishes.
//
// Example:
//
//	done := async.SafeGo(ctx, logger, "department watcher", func(ctx context.Context) error {
//	    return table.Watch(ctx, path)
//	})
func SafeGo(ctx context.Context, logger *observability.Logger, taskName string, fn func(context.Context) error) <-chan struct{} {
	if logger == nil {
		logger = observability.NopLogger()
	}
	done := make(chan struct{})

	go func() {
		defer close(done)
		if err := Run(ctx, taskName, fn); err != nil && ctx.Err() == nil {
			logger.WithError(err).WithField("task", taskName).Error("Background task failed")
		}
	}()

	return done
}

// Run calls fn and converts a panic into an error
func Run(ctx context.Context, taskName string, fn func(context.Context) error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in %s: %v\n%s", taskName, r, debug.Stack())
		}
	}()
	return fn(ctx)
}

// Group tracks a set of SafeGo tasks
type Group struct {
	ctx    context.Context
	logger *observability.Logger
	wg     sync.WaitGroup
}

// NewGroup creates a group whose tasks share ctx
func NewGroup(ctx context.Context, logger *observability.Logger) *Group {
	return &Group{ctx: ctx, logger: logger}
}

// Go starts a task in the group
func (g *Group) Go(taskName string, fn func(context.Context) error) {
	g.wg.Add(1)
	done := SafeGo(g.ctx, g.logger, taskName, fn)
	go func() {
		<-done
		g.wg.Done()
	}()
}

// Wait blocks until every task has finished or ctx is done
func (g *Group) Wait(ctx context.Context) error {
	finished := make(chan struct{})
	go func() {
		g.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
