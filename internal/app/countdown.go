package app

import (
	"sync"
	"time"
)

// Ticker is the part of time.Ticker the countdown needs; tests substitute a manual one.
type Ticker interface {
	C() <-chan time.Time
	Stop()
}

// TickerFactory creates a ticker firing every interval.
type TickerFactory func(interval time.Duration) Ticker

type realTicker struct {
	t *time.Ticker
}

func newRealTicker(interval time.Duration) Ticker {
	return realTicker{t: time.NewTicker(interval)}
}

func (r realTicker) C() <-chan time.Time { return r.t.C }
func (r realTicker) Stop()               { r.t.Stop() }

// countdown runs onTick for every tick until onTick returns true or cancel is called.
type countdown struct {
	stop chan struct{}
	once sync.Once
	done chan struct{}
}

func startCountdown(ticker Ticker, onTick func() bool) *countdown {
	c := &countdown{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	go func() {
		defer close(c.done)
		defer ticker.Stop()
		for {
			select {
			case <-c.stop:
				return
			case <-ticker.C():
				if onTick() {
					return
				}
			}
		}
	}()
	return c
}

// cancel never blocks, so it is safe to call with the service lock held or from onTick itself.
func (c *countdown) cancel() {
	if c == nil {
		return
	}
	c.once.Do(func() { close(c.stop) })
}
