package proc

import (
	"context"
	"sync"
)

// Fake records commands instead of running them. Handler, when set, decides
// the result of each call; otherwise every call succeeds with empty output.
type Fake struct {
	Handler func(Cmd) (Result, error)

	mu    sync.Mutex
	calls []Cmd
}

var _ Runner = (*Fake)(nil)

func (f *Fake) Run(_ context.Context, cmd Cmd) (Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, cmd)
	handler := f.Handler
	f.mu.Unlock()

	if handler == nil {
		return Result{}, nil
	}
	return handler(cmd)
}

// Calls returns a copy of the recorded commands.
func (f *Fake) Calls() []Cmd {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Cmd(nil), f.calls...)
}
