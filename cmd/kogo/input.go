package main

import (
	"bufio"
	"context"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/japaniel/kogoto/pkg/session"
)

// lineRecognizer treats typed lines as recognized speech.
type lineRecognizer struct {
	lines <-chan string
}

func (r lineRecognizer) Listen(ctx context.Context, fn func(session.SpeechResult)) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case l, ok := <-r.lines:
			if !ok {
				return errors.Wrap(session.ErrUnavailable, "input closed")
			}
			fn(session.SpeechResult{Text: l, Confidence: 1, At: time.Now()})
		}
	}
}

// faceFile replays expression samples from a file of "positive negative"
// lines, one per Interval. Without a path there is no camera.
type faceFile struct {
	Path     string
	Interval time.Duration
}

func (f faceFile) Samples(ctx context.Context) (<-chan session.Sample, error) {
	if f.Path == "" {
		return nil, errors.Wrap(session.ErrUnavailable, "no camera")
	}
	file, err := os.Open(f.Path)
	if err != nil {
		return nil, errors.Wrap(err, "open face samples")
	}
	interval := f.Interval
	if interval <= 0 {
		interval = time.Second / session.DefaultSampleRate
	}
	out := make(chan session.Sample)
	go func() {
		defer close(out)
		defer file.Close()
		tick := time.NewTicker(interval)
		defer tick.Stop()
		sc := bufio.NewScanner(file)
		for sc.Scan() {
			s, ok := parseSample(sc.Text())
			if !ok {
				continue
			}
			select {
			case <-ctx.Done():
				return
			case at := <-tick.C:
				s.At = at
			}
			select {
			case <-ctx.Done():
				return
			case out <- s:
			}
		}
	}()
	return out, nil
}

func parseSample(line string) (session.Sample, bool) {
	fields := strings.Fields(line)
	if len(fields) != 2 {
		return session.Sample{}, false
	}
	pos, err1 := strconv.ParseFloat(fields[0], 64)
	neg, err2 := strconv.ParseFloat(fields[1], 64)
	if err1 != nil || err2 != nil {
		return session.Sample{}, false
	}
	return session.Sample{Positive: pos, Negative: neg}, true
}
