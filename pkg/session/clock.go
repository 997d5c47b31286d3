package session

import (
	"sync"
	"time"
)

// Tick is one beat of the clock.
type Tick struct {
	At time.Time
}

// Clock is a fixed-tempo beat source.
type Clock interface {
	Ticks() <-chan Tick
	// Stop halts the clock. It is safe to call more than once.
	Stop()
}

// Metronome is a Clock backed by a time.Ticker.
type Metronome struct {
	interval time.Duration
	ticks    chan Tick
	quit     chan struct{}
	once     sync.Once
	start    sync.Once
}

// NewMetronome returns a stopped metronome at bpm.
func NewMetronome(bpm float64) *Metronome {
	if bpm <= 0 {
		bpm = DefaultBPM
	}
	return &Metronome{
		interval: BeatInterval(bpm),
		ticks:    make(chan Tick, 1),
		quit:     make(chan struct{}),
	}
}

// Interval returns the beat duration.
func (m *Metronome) Interval() time.Duration { return m.interval }

// Ticks starts the metronome on first use and returns its tick channel. A
// tick the consumer has not taken yet is dropped rather than queued.
func (m *Metronome) Ticks() <-chan Tick {
	m.start.Do(func() { go m.loop() })
	return m.ticks
}

func (m *Metronome) loop() {
	t := time.NewTicker(m.interval)
	defer t.Stop()
	for {
		select {
		case <-m.quit:
			return
		case now := <-t.C:
			select {
			case m.ticks <- Tick{At: now}:
			default:
			}
		}
	}
}

// Stop halts the metronome.
func (m *Metronome) Stop() {
	m.once.Do(func() { close(m.quit) })
}
