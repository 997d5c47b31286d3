package session

import (
	"sync"
	"time"
)

// Polarity is a binary expression answer.
type Polarity int

const (
	Positive Polarity = iota
	Negative
)

func (p Polarity) String() string {
	if p == Positive {
		return "positive"
	}
	return "negative"
}

// Index maps a polarity onto a binary question's choices.
func (p Polarity) Index() int { return int(p) }

// Sample is one reading of the face scorer. Intensities are in [0, 1].
type Sample struct {
	Positive float64
	Negative float64
	At       time.Time
}

// Detector defaults.
const (
	DefaultEMAAlpha  = 0.25
	DefaultThreshold = 0.65
	DefaultMargin    = 0.08
	DefaultRun       = 15
)

// Detector smooths two opposing intensities and fires when one of them stays
// above Threshold and ahead of the other by Margin for Run consecutive
// samples. It is safe for concurrent use.
type Detector struct {
	Alpha     float64
	Threshold float64
	Margin    float64
	Run       int

	mu       sync.Mutex
	pos, neg float64
	runPos   int
	runNeg   int
	samples  int
}

// NewDetector returns a detector with the default tuning.
func NewDetector() *Detector {
	return &Detector{
		Alpha:     DefaultEMAAlpha,
		Threshold: DefaultThreshold,
		Margin:    DefaultMargin,
		Run:       DefaultRun,
		pos:       0.5,
		neg:       0.5,
	}
}

// Observe folds s into the averages. It reports a polarity when a run
// completes, then starts counting again from zero.
func (d *Detector) Observe(s Sample) (Polarity, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.samples++
	d.pos = d.Alpha*clamp01(s.Positive) + (1-d.Alpha)*d.pos
	d.neg = d.Alpha*clamp01(s.Negative) + (1-d.Alpha)*d.neg

	if d.pos >= d.Threshold && d.pos-d.neg >= d.Margin {
		d.runPos++
	} else {
		d.runPos = 0
	}
	if d.neg >= d.Threshold && d.neg-d.pos >= d.Margin {
		d.runNeg++
	} else {
		d.runNeg = 0
	}

	switch {
	case d.runPos >= d.Run:
		d.runPos, d.runNeg = 0, 0
		return Positive, true
	case d.runNeg >= d.Run:
		d.runPos, d.runNeg = 0, 0
		return Negative, true
	}
	return 0, false
}

// Leader reports which average is strictly ahead. A tie, or no samples at
// all, is no signal.
func (d *Detector) Leader() (Polarity, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch {
	case d.samples == 0 || d.pos == d.neg:
		return 0, false
	case d.pos > d.neg:
		return Positive, true
	}
	return Negative, true
}

// ResetRuns clears the run counters but keeps the averages.
func (d *Detector) ResetRuns() {
	d.mu.Lock()
	d.runPos, d.runNeg = 0, 0
	d.mu.Unlock()
}

// Averages returns the smoothed intensities.
func (d *Detector) Averages() (pos, neg float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pos, d.neg
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
