package stage

import (
	"context"
	"time"
)

// Run steps the stage on a frame ticker until ctx is cancelled, Stop is
// called, or MaxTicks is reached. Commands queued with Do run between ticks.
func (s *Stage) Run(ctx context.Context) error {
	ticker := time.NewTicker(time.Duration(s.clock.frame) * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-s.stop:
			return nil
		case fn := <-s.cmds:
			fn(s)
		case <-ticker.C:
			s.Step()
			if s.cfg.MaxTicks > 0 && s.tick >= s.cfg.MaxTicks {
				return nil
			}
		}
	}
}

func (s *Stage) Stop() { s.stopOnce.Do(func() { close(s.stop) }) }

// Do runs fn on the loop goroutine and waits for it to finish.
func (s *Stage) Do(ctx context.Context, fn func(*Stage)) error {
	done := make(chan struct{})
	cmd := func(st *Stage) {
		defer close(done)
		fn(st)
	}
	select {
	case s.cmds <- cmd:
	case <-ctx.Done():
		return ctx.Err()
	case <-s.stop:
		return context.Canceled
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
