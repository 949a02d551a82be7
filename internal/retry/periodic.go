package retry

import (
	"context"
	"sync"
	"time"
)

// Tick is passed to a periodic callback on each firing.
type Tick struct {
	Elapsed time.Duration
	Time    time.Time
	Count   int64
}

// Stopper stops a periodic task started by StartPeriodic.
type Stopper interface {
	Stop()
}

// StartPeriodic runs callback every interval until the returned
// Stopper's Stop is called or ctx is done. Used for the engine's
// every-60s statistics logging (spec §4.8) and can equally drive the
// every-10000-rows progress report during initial load by having the
// caller track its own row counter and only act on some ticks.
func StartPeriodic(ctx context.Context, interval time.Duration, callback func(Tick)) Stopper {
	start := time.Now()
	ctx, cancel := context.WithCancel(ctx)
	var stopOnce sync.Once

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		var count int64
		for {
			select {
			case tick := <-ticker.C:
				count++
				callback(Tick{Elapsed: tick.Sub(start), Time: tick, Count: count})
			case <-ctx.Done():
				return
			}
		}
	}()

	return stopperFunc(func() { stopOnce.Do(cancel) })
}

type stopperFunc func()

func (f stopperFunc) Stop() { f() }
