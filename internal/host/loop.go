package host

import (
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Game is a simulation advanced by elapsed time.
type Game interface {
	// Tick advances the simulation by dt and reports whether it wants more ticks.
	Tick(dt time.Duration) bool
}

// Loop is a Service that ticks one Game until the game finishes or the loop
// is stopped.
//
// Invariant: Tick is only ever called from the goroutine running Start.
type Loop struct {
	game     Game
	interval time.Duration
	realtime bool
	logger   *zap.Logger

	ticks    atomic.Int64
	stop     chan struct{}
	stopOnce sync.Once
}

// NewLoop returns a loop that ticks game every interval. A realtime loop
// waits on a ticker and passes the measured wall time; otherwise every tick
// passes exactly interval without sleeping, which replays the same battle in
// a fraction of the time.
//
// Precondition: game and logger must be non-nil; interval must be > 0.
func NewLoop(game Game, interval time.Duration, realtime bool, logger *zap.Logger) *Loop {
	if game == nil || logger == nil {
		panic("host.NewLoop: game and logger must not be nil")
	}
	if interval <= 0 {
		panic("host.NewLoop: interval must be > 0")
	}
	return &Loop{
		game:     game,
		interval: interval,
		realtime: realtime,
		logger:   logger,
		stop:     make(chan struct{}),
	}
}

// Start ticks the game until it finishes or Stop is called.
//
// Postcondition: Returns nil; the game has finished unless Stop was called.
func (l *Loop) Start() error {
	l.logger.Info("loop started",
		zap.Duration("interval", l.interval),
		zap.Bool("realtime", l.realtime),
	)
	if l.realtime {
		l.runRealtime()
	} else {
		l.runFixed()
	}
	l.logger.Info("loop stopped", zap.Int64("ticks", l.ticks.Load()))
	return nil
}

func (l *Loop) runFixed() {
	for {
		select {
		case <-l.stop:
			return
		default:
		}
		l.ticks.Add(1)
		if !l.game.Tick(l.interval) {
			return
		}
	}
}

func (l *Loop) runRealtime() {
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()
	last := time.Now()
	for {
		select {
		case <-l.stop:
			return
		case now := <-ticker.C:
			dt := now.Sub(last)
			last = now
			l.ticks.Add(1)
			if !l.game.Tick(dt) {
				return
			}
		}
	}
}

// Stop ends the loop after the tick in progress. It is safe to call more
// than once.
func (l *Loop) Stop() {
	l.stopOnce.Do(func() { close(l.stop) })
}

// Ticks returns the number of ticks delivered so far.
func (l *Loop) Ticks() int64 { return l.ticks.Load() }
