package scanner

import (
	"context"
	"sync"

	"pairscan/internal/alerting"
)

// Runner owns the lifecycle of a set of sessions and their shared
// dispatcher. Shutdown is ordered: sessions finish their in-flight
// cycles first, the dispatcher stops last, so every alert an in-flight
// cycle enqueues still reaches the sinks.
type Runner struct {
	sessions   []*Session
	dispatcher *alerting.Dispatcher
}

// NewRunner creates a Runner. The dispatcher must be the one the
// sessions enqueue into.
func NewRunner(dispatcher *alerting.Dispatcher, sessions ...*Session) *Runner {
	return &Runner{sessions: sessions, dispatcher: dispatcher}
}

// Run starts every session and the dispatcher, then blocks until ctx is
// canceled and all sessions have returned. The dispatcher runs on its
// own context and is only canceled after the last session joins; its
// drain then flushes whatever those final cycles enqueued.
func (r *Runner) Run(ctx context.Context) {
	dispatchCtx, stopDispatch := context.WithCancel(context.Background())

	var dispatchWg sync.WaitGroup
	dispatchWg.Add(1)
	go func() {
		defer dispatchWg.Done()
		r.dispatcher.Run(dispatchCtx)
	}()

	var sessionWg sync.WaitGroup
	for _, session := range r.sessions {
		sessionWg.Add(1)
		go func(session *Session) {
			defer sessionWg.Done()
			session.Run(ctx)
		}(session)
	}

	sessionWg.Wait()
	stopDispatch()
	dispatchWg.Wait()
}
