package driver

import "time"

type MudDriverOpt func(*MudDriver)

func WithTickLength(tickLength time.Duration) MudDriverOpt {
	return func(d *MudDriver) {
		d.tickLength = tickLength
	}
}

// WithFlusher sets the hook called after every processed event.
func WithFlusher(f Flusher) MudDriverOpt {
	return func(d *MudDriver) {
		d.flusher = f
	}
}

// WithTickers registers tickers run on the driver goroutine every tick.
func WithTickers(t ...Ticker) MudDriverOpt {
	return func(d *MudDriver) {
		d.tickers = append(d.tickers, t...)
	}
}
