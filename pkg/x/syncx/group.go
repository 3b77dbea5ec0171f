package syncx

import (
	"context"
	"log"
	"runtime/debug"
	"sync"
	"sync/atomic"
)

// Group runs goroutines that share one cancellation and can be stopped and
// awaited together. A panic in one goroutine is logged and does not take the
// process down.
type Group struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	logPrefix string
	running   atomic.Int64
}

func NewGroup(parent context.Context, logPrefix string) *Group {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	return &Group{ctx: ctx, cancel: cancel, logPrefix: logPrefix}
}

func (g *Group) Context() context.Context { return g.ctx }

// Running returns the number of goroutines that have not returned yet.
func (g *Group) Running() int64 { return g.running.Load() }

func (g *Group) Go(fn func(ctx context.Context)) {
	g.wg.Add(1)
	g.running.Add(1)
	go func() {
		defer g.wg.Done()
		defer g.running.Add(-1)
		defer func() {
			if r := recover(); r != nil {
				log.Printf("%s panic: %v\n%s", g.logPrefix, r, debug.Stack())
			}
		}()
		fn(g.ctx)
	}()
}

func (g *Group) Wait() {
	g.wg.Wait()
}

func (g *Group) Stop() {
	g.cancel()
	g.wg.Wait()
}
