package placement

import (
	"context"
	"time"

	"pastemd/pkg/logger"
)

// State of a RetryingInserter.
type State int

const (
	StateIdle State = iota
	StateInserting
	StateRetrying
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInserting:
		return "inserting"
	case StateRetrying:
		return "retrying"
	case StateSucceeded:
		return "succeeded"
	case StateFailed:
		return "failed"
	}
	return "idle"
}

// RetryingInserter runs an insertion up to Attempts times with Delay between
// attempts. When every attempt failed and CleanupBackground is set, it is
// called once; if it reports stopped processes the insertion gets exactly
// one more try. The error of the last bounded attempt is what surfaces.
type RetryingInserter struct {
	Attempts          int
	Delay             time.Duration
	CleanupBackground func(ctx context.Context) (int, error)
	// Sleep waits between attempts; nil uses a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration)

	state       State
	transitions []State
	tries       int
}

func (r *RetryingInserter) State() State { return r.state }

// Transitions lists every state entered during the last Insert, in order.
func (r *RetryingInserter) Transitions() []State {
	return append([]State(nil), r.transitions...)
}

// Tries is the number of insertion calls made by the last Insert.
func (r *RetryingInserter) Tries() int { return r.tries }

func (r *RetryingInserter) enter(s State) {
	r.state = s
	r.transitions = append(r.transitions, s)
}

func (r *RetryingInserter) Insert(ctx context.Context, insert func(ctx context.Context) error) error {
	log := logger.Component("placement")

	attempts := r.Attempts
	if attempts < 1 {
		attempts = 1
	}
	sleep := r.Sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	r.state, r.transitions, r.tries = StateIdle, nil, 0

	var err error
	for i := 1; i <= attempts; i++ {
		if i > 1 {
			r.enter(StateRetrying)
			sleep(ctx, r.Delay)
		}
		r.enter(StateInserting)
		r.tries++
		if err = insert(ctx); err == nil {
			r.enter(StateSucceeded)
			return nil
		}
		log.Warn().Err(err).Int("attempt", i).Int("of", attempts).Msg("insertion failed")
	}

	if r.CleanupBackground != nil {
		n, cerr := r.CleanupBackground(ctx)
		switch {
		case cerr != nil:
			log.Warn().Err(cerr).Msg("background cleanup failed")
		case n == 0:
			log.Debug().Msg("no background processes to clean up")
		default:
			r.enter(StateRetrying)
			r.enter(StateInserting)
			r.tries++
			rerr := insert(ctx)
			if rerr == nil {
				r.enter(StateSucceeded)
				return nil
			}
			log.Warn().Err(rerr).Int("stopped", n).Msg("insertion failed after background cleanup")
		}
	}

	r.enter(StateFailed)
	return err
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
	case <-ctx.Done():
	}
}
