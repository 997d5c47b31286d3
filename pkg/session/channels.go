package session

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

// ErrUnavailable is returned by a recognizer or face stream that cannot run
// at all, for example because the device was denied. The channel reports an
// error state and is not restarted.
var ErrUnavailable = errors.New("channel unavailable")

// Channel names reported through Observer.OnChannel.
const (
	SpeechChannelName     = "speech"
	ExpressionChannelName = "expression"
)

// Recognizer is a speech-to-text service. Listen delivers utterances to fn
// until ctx is done or recognition ends. A nil error means recognition ended
// normally, for example after a silence timeout.
type Recognizer interface {
	Listen(ctx context.Context, fn func(SpeechResult)) error
}

// SpeechChannel feeds a recognizer into an engine and restarts it after
// transient failures until the session stops.
type SpeechChannel struct {
	Recognizer   Recognizer
	RestartDelay time.Duration
}

// NewSpeechChannel returns a channel for r.
func NewSpeechChannel(r Recognizer) *SpeechChannel {
	return &SpeechChannel{Recognizer: r, RestartDelay: 300 * time.Millisecond}
}

// Run blocks until the engine stops or ctx is done. It never fails the
// session: errors surface as channel states.
func (c *SpeechChannel) Run(ctx context.Context, e *Engine) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	e.OnStop(cancel)

	for {
		if ctx.Err() != nil {
			return
		}
		e.ChannelState(SpeechChannelName, ChannelOn, "")
		err := c.Recognizer.Listen(ctx, func(r SpeechResult) {
			// the recognizer may deliver after a stop
			if ctx.Err() != nil {
				return
			}
			if r.At.IsZero() {
				r.At = time.Now()
			}
			e.Speech(e.Seq(), r)
		})
		if ctx.Err() != nil {
			e.ChannelState(SpeechChannelName, ChannelOff, "")
			return
		}
		if errors.Is(err, ErrUnavailable) {
			e.ChannelState(SpeechChannelName, ChannelError, err.Error())
			return
		}
		if err != nil {
			e.ChannelState(SpeechChannelName, ChannelError, errors.Wrap(err, "restarting").Error())
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(c.RestartDelay):
		}
	}
}

// FaceStream yields smile and frown intensities.
type FaceStream interface {
	Samples(ctx context.Context) (<-chan Sample, error)
}

// DefaultSampleRate is the expression sampling rate in Hz.
const DefaultSampleRate = 20

// ExpressionChannel throttles a face stream and feeds it into an engine's
// detector.
type ExpressionChannel struct {
	Stream  FaceStream
	Limiter *rate.Limiter
}

// NewExpressionChannel returns a channel sampling s at DefaultSampleRate.
func NewExpressionChannel(s FaceStream) *ExpressionChannel {
	return &ExpressionChannel{
		Stream:  s,
		Limiter: rate.NewLimiter(rate.Limit(DefaultSampleRate), 1),
	}
}

// Run blocks until the stream ends, the engine stops or ctx is done.
func (c *ExpressionChannel) Run(ctx context.Context, e *Engine) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	e.OnStop(cancel)

	samples, err := c.Stream.Samples(ctx)
	if err != nil {
		if ctx.Err() == nil {
			e.ChannelState(ExpressionChannelName, ChannelError, err.Error())
		}
		return
	}
	e.ChannelState(ExpressionChannelName, ChannelOn, "")
	defer e.ChannelState(ExpressionChannelName, ChannelOff, "")

	for {
		select {
		case <-ctx.Done():
			return
		case s, ok := <-samples:
			if !ok {
				return
			}
			if c.Limiter != nil && !c.Limiter.Allow() {
				continue
			}
			if s.At.IsZero() {
				s.At = time.Now()
			}
			e.Sample(e.Seq(), s)
		}
	}
}
