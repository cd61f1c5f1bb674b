package main

import (
	"context"
	"log/slog"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/failsafe-go/lagmon/lagmonitor"
)

// demo runs busy loops that occupy every processor, then stops the session a few events after the last loop.
type demo struct {
	logger       *slog.Logger
	loops        int
	loopDuration time.Duration
	afterEvents  int
	stop         context.CancelFunc

	done       atomic.Bool
	afterTicks atomic.Int32
}

func newDemo(loops int, loopDuration time.Duration, afterEvents int, stop context.CancelFunc) *demo {
	return &demo{
		logger:       slog.Default(),
		loops:        loops,
		loopDuration: loopDuration,
		afterEvents:  afterEvents,
		stop:         stop,
	}
}

func (d *demo) start(ctx context.Context, warmup time.Duration) {
	select {
	case <-ctx.Done():
		return
	case <-time.After(warmup):
	}
	for i := 0; i < d.loops; i++ {
		if ctx.Err() != nil {
			return
		}
		d.logger.Info("starting heavy loop", "loop", i)
		busy(runtime.GOMAXPROCS(0), d.loopDuration)
		d.logger.Info("heavy loop is done", "loop", i)
	}
	d.done.Store(true)
}

// observe stops the demo once afterEvents events were published after the last loop.
func (d *demo) observe(lagmonitor.DataEvent) {
	if d.done.Load() && int(d.afterTicks.Add(1)) > d.afterEvents {
		d.stop()
	}
}

// busy spins the workers goroutines until the duration has elapsed.
func busy(workers int, duration time.Duration) uint64 {
	var wg sync.WaitGroup
	var spins atomic.Uint64
	deadline := time.Now().Add(duration)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var n uint64
			for time.Now().Before(deadline) {
				n++
			}
			spins.Add(n)
		}()
	}
	wg.Wait()
	return spins.Load()
}
