package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectorLeaderNeedsStrictLead(t *testing.T) {
	d := NewDetector()
	_, ok := d.Leader()
	assert.False(t, ok, "no samples")

	d.Observe(Sample{Positive: 0.5, Negative: 0.5})
	_, ok = d.Leader()
	assert.False(t, ok, "tie")

	d.Observe(Sample{Positive: 0.2, Negative: 0.6})
	p, ok := d.Leader()
	assert.True(t, ok)
	assert.Equal(t, Negative, p)
}

func TestDetectorFiresAfterRun(t *testing.T) {
	d := NewDetector()
	var fires []int
	for i := 1; i <= 40; i++ {
		if p, ok := d.Observe(Sample{Positive: 1}); ok {
			assert.Equal(t, Positive, p)
			fires = append(fires, i)
		}
	}
	// the average first clears the threshold on sample 2
	assert.Equal(t, []int{16, 31}, fires)
}

func TestDetectorRunResetsOnNonQualifyingSample(t *testing.T) {
	d := NewDetector()
	d.Alpha = 1
	d.Run = 3

	hi := Sample{Positive: 1}
	lo := Sample{}
	for _, s := range []Sample{hi, hi, lo, hi, hi} {
		_, ok := d.Observe(s)
		assert.False(t, ok)
	}
	p, ok := d.Observe(hi)
	assert.True(t, ok)
	assert.Equal(t, Positive, p)
}

func TestDetectorRequiresMargin(t *testing.T) {
	d := NewDetector()
	d.Alpha = 1
	d.Run = 1

	_, ok := d.Observe(Sample{Positive: 0.9, Negative: 0.85})
	assert.False(t, ok, "both above threshold but within margin")
	p, ok := d.Observe(Sample{Positive: 0.7, Negative: 0.9})
	assert.True(t, ok)
	assert.Equal(t, Negative, p)
}

func TestDetectorClampsInput(t *testing.T) {
	d := NewDetector()
	d.Alpha = 1
	d.Observe(Sample{Positive: 7, Negative: -3})
	pos, neg := d.Averages()
	assert.Equal(t, 1.0, pos)
	assert.Equal(t, 0.0, neg)
}

func TestDetectorResetRuns(t *testing.T) {
	d := NewDetector()
	d.Alpha = 1
	d.Run = 2
	d.Observe(Sample{Positive: 1})
	d.ResetRuns()
	_, ok := d.Observe(Sample{Positive: 1})
	assert.False(t, ok)
	_, ok = d.Observe(Sample{Positive: 1})
	assert.True(t, ok)
}
