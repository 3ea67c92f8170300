package app

// executor funnels every mutation of game state through one goroutine.
// Work posted from the HTTP handlers and from the tick driver runs in
// arrival order; nothing else touches sessions or players.
type executor struct {
	tasks   chan func()
	stopped chan struct{}
}

func newExecutor() *executor {
	e := &executor{
		tasks:   make(chan func(), 128),
		stopped: make(chan struct{}),
	}
	go e.run()
	return e
}

func (e *executor) run() {
	defer close(e.stopped)
	for fn := range e.tasks {
		fn()
	}
}

// do runs fn on the executor and waits for it to finish.
func (e *executor) do(fn func()) {
	done := make(chan struct{})
	e.tasks <- func() {
		defer close(done)
		fn()
	}
	<-done
}

// stop drains the queue and waits for the loop to exit. No work may be
// posted afterwards.
func (e *executor) stop() {
	close(e.tasks)
	<-e.stopped
}
