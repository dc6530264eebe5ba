package clipboard

import (
	"context"
	"time"

	"pastemd/pkg/errors"
	"pastemd/pkg/logger"
)

// Snapshot is an in-memory copy of every format the backend could read at
// capture time.
type Snapshot struct {
	items   []Item
	dropped []Format
}

// Capture reads every format currently offered. Formats that fail to read
// are dropped from the snapshot; failing to list formats is an error.
func Capture(b Backend) (*Snapshot, error) {
	log := logger.Component("clipboard")

	formats, err := b.Formats()
	if err != nil {
		return nil, errors.ClipboardError(errors.ErrMsgClipboardRead, err)
	}

	snap := &Snapshot{}
	for _, f := range formats {
		data, err := b.Read(f)
		if err != nil {
			log.Debug().Err(err).Str("format", string(f)).Msg("format dropped from snapshot")
			snap.dropped = append(snap.dropped, f)
			continue
		}
		snap.items = append(snap.items, Item{Format: f, Data: data})
	}

	log.Debug().Int("formats", len(snap.items)).Int("dropped", len(snap.dropped)).Msg("clipboard captured")
	return snap, nil
}

// Items returns a copy of the captured items.
func (s *Snapshot) Items() []Item {
	return cloneItems(s.items)
}

// Dropped lists formats that were offered but could not be captured.
func (s *Snapshot) Dropped() []Format {
	return append([]Format(nil), s.dropped...)
}

func (s *Snapshot) Empty() bool {
	return len(s.items) == 0
}

// Restore writes the captured items back. An empty snapshot clears the
// clipboard.
func (s *Snapshot) Restore(b Backend) error {
	if err := b.WriteFormats(s.items); err != nil {
		return errors.ClipboardError("Failed to restore clipboard", err)
	}
	return nil
}

// Transaction captures the clipboard, runs fn and restores the snapshot on
// every exit path, panics included. The settle delay runs before the
// restore so the target application can finish its own clipboard read; a
// cancelled ctx shortens the delay but never skips the restore. Restore
// failures are logged, not returned.
func Transaction(ctx context.Context, b Backend, settle time.Duration, fn func(ctx context.Context) error) (err error) {
	snap, err := Capture(b)
	if err != nil {
		return err
	}

	defer func() {
		r := recover()
		wait(ctx, settle)
		if restoreErr := snap.Restore(b); restoreErr != nil {
			log := logger.Component("clipboard")
			log.Warn().Err(restoreErr).Msg("clipboard not restored")
		}
		if r != nil {
			panic(r)
		}
	}()

	return fn(ctx)
}

func wait(ctx context.Context, d time.Duration) {
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
