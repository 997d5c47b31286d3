// Package session runs a beat-synchronized quiz. The engine advances one
// phase step per clock tick and accepts candidate answers from several
// channels, judging each question exactly once.
package session

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/japaniel/kogoto/pkg/judge"
	"github.com/japaniel/kogoto/pkg/quiz"
)

// ErrClockClosed is returned by Run when the clock's tick channel closes.
var ErrClockClosed = errors.New("session: clock closed")

// Config configures an engine. Zero fields take defaults.
type Config struct {
	BPM       float64
	HoldBeats int
	Points    *judge.PointRule
	Speaker   Speaker
	Sounds    SoundEffects
	Observer  Observer
	// Logger receives advisory messages. nil means no logging.
	Logger *log.Logger
}

// DefaultBPM is the tempo used when Config.BPM is unset.
const DefaultBPM = 90

// Engine drives one session. All methods are safe for concurrent use;
// callbacks to collaborators are made after the engine lock is released.
type Engine struct {
	cfg       Config
	beat      time.Duration
	questions []quiz.Question
	detector  *Detector

	mu        sync.Mutex
	cycle     cycle
	index     int
	judged    bool
	stopped   bool
	center    time.Time
	correct   int
	streak    int
	maxStreak int
	result    Result
	stoppers  []func()
	done      chan struct{}
}

// New returns an engine for questions. It does nothing until ticked.
func New(questions []quiz.Question, cfg Config) *Engine {
	if cfg.BPM <= 0 {
		cfg.BPM = DefaultBPM
	}
	if cfg.HoldBeats <= 0 {
		cfg.HoldBeats = DefaultHoldBeats
	}
	if cfg.Points == nil {
		p := judge.DefaultPoints
		cfg.Points = &p
	}
	if cfg.Speaker == nil {
		cfg.Speaker = nopSpeaker{}
	}
	if cfg.Sounds == nil {
		cfg.Sounds = nopSounds{}
	}
	if cfg.Observer == nil {
		cfg.Observer = NopObserver{}
	}
	return &Engine{
		cfg:       cfg,
		beat:      BeatInterval(cfg.BPM),
		questions: questions,
		detector:  NewDetector(),
		result:    Result{ID: NewID(), StartedAt: time.Now()},
		done:      make(chan struct{}),
	}
}

// BeatInterval is the duration of one beat at bpm.
func BeatInterval(bpm float64) time.Duration {
	return time.Duration(float64(time.Minute) / bpm)
}

// Questions returns the session's questions.
func (e *Engine) Questions() []quiz.Question { return e.questions }

// Seq returns the current question index. Channels tag their answers with
// it so stale answers can be told apart.
func (e *Engine) Seq() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.index
}

// Phase returns the current phase and beat.
func (e *Engine) Phase() (Phase, int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cycle.Phase, e.cycle.Beat
}

// Detector returns the expression detector fed by Sample.
func (e *Engine) Detector() *Detector { return e.detector }

// Done is closed once the session has finished or been stopped.
func (e *Engine) Done() <-chan struct{} { return e.done }

// OnStop registers fn to run when the session ends. Channel runners register
// their cancel funcs here. If the session already ended, fn runs at once.
func (e *Engine) OnStop(fn func()) {
	e.mu.Lock()
	if e.stopped || e.cycle.Phase == Finished {
		e.mu.Unlock()
		fn()
		return
	}
	e.stoppers = append(e.stoppers, fn)
	e.mu.Unlock()
}

// Result returns a copy of the result so far.
func (e *Engine) Result() Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.result.Clone()
}

// Run feeds ticks from clock into the engine until the session ends or ctx
// is cancelled. Cancellation stops the session and returns the aborted
// result along with ctx.Err().
func (e *Engine) Run(ctx context.Context, clock Clock) (Result, error) {
	e.OnStop(clock.Stop)
	if len(e.questions) == 0 {
		e.Stop()
		return e.Result(), quiz.ErrNoQuestions
	}
	for {
		select {
		case <-ctx.Done():
			e.Stop()
			return e.Result(), ctx.Err()
		case <-e.done:
			return e.Result(), nil
		case t, ok := <-clock.Ticks():
			if !ok {
				e.Stop()
				return e.Result(), ErrClockClosed
			}
			e.Tick(t)
		}
	}
}

// Tick advances the cycle by one beat.
func (e *Engine) Tick(t Tick) {
	e.mu.Lock()
	if e.stopped || e.cycle.Phase == Finished || len(e.questions) == 0 {
		e.mu.Unlock()
		return
	}
	var fx []func()
	prev := e.cycle.Phase
	e.cycle = e.cycle.next(e.cfg.HoldBeats, e.index == len(e.questions)-1)
	seq, c := e.index, e.cycle

	switch c.Phase {
	case Prompt:
		if prev == Interlude {
			e.index++
			seq = e.index
		}
		if c.Beat == 1 {
			e.judged = false
			word := e.questions[seq].PromptWord
			fx = append(fx, func() {
				e.cfg.Speaker.Speak(word)
				e.cfg.Sounds.Play(CueAccent)
			})
		} else {
			fx = append(fx, func() { e.cfg.Sounds.Play(CueBeat) })
		}
	case Answering:
		if c.Beat == AnswerBeat {
			e.center = t.At.Add(e.beat / 2)
			e.detector.ResetRuns()
		}
		if c.Beat == CycleBeats && !e.judged {
			fx = append(fx, e.timeoutLocked(t.At)...)
		}
	case Finished:
		fx = append(fx, e.finishLocked(false)...)
	}
	phase, beat := c.Phase, c.Beat
	e.mu.Unlock()

	e.cfg.Observer.OnPhase(seq, phase, beat)
	for _, f := range fx {
		f()
	}
}

// Tap submits a direct choice for question seq.
func (e *Engine) Tap(seq, choice int, at time.Time) bool {
	e.mu.Lock()
	if !e.acceptingLocked(seq) || choice < 0 || choice >= len(e.questions[seq].Choices) {
		e.mu.Unlock()
		return false
	}
	fx := e.judgeLocked(SourceTap, choice, at)
	e.mu.Unlock()
	run(fx)
	return true
}

// Speech submits a recognized utterance for question seq. Matching follows
// judge.MatchSpeech. An utterance that matches nothing leaves the window
// open and is reported through OnNotUnderstood.
func (e *Engine) Speech(seq int, r SpeechResult) bool {
	e.mu.Lock()
	if !e.acceptingLocked(seq) {
		e.mu.Unlock()
		return false
	}
	if r.Confidence < MinSpeechConfidence {
		e.mu.Unlock()
		e.logf("speech: ignored %q at confidence %.2f", r.Text, r.Confidence)
		return false
	}
	q := e.questions[seq]
	m := judge.MatchSpeech(r.Text, q.Choices, q.ChoiceReadings)
	if !m.OK() {
		e.mu.Unlock()
		e.cfg.Observer.OnNotUnderstood(seq, r.Text)
		return false
	}
	fx := e.judgeLocked(SourceSpeech, m.Index, r.At)
	e.mu.Unlock()
	run(fx)
	return true
}

// Expression submits a fired expression decision for question seq. Only
// binary questions accept it.
func (e *Engine) Expression(seq int, p Polarity, at time.Time) bool {
	e.mu.Lock()
	if !e.acceptingLocked(seq) || e.questions[seq].Kind != quiz.Binary {
		e.mu.Unlock()
		return false
	}
	fx := e.judgeLocked(SourceExpression, p.Index(), at)
	e.mu.Unlock()
	run(fx)
	return true
}

// Sample feeds one face reading into the detector. The averages update in
// every phase; a fired decision is submitted as an expression answer.
func (e *Engine) Sample(seq int, s Sample) bool {
	e.mu.Lock()
	stopped := e.stopped
	e.mu.Unlock()
	if stopped {
		return false
	}
	p, fired := e.detector.Observe(s)
	if !fired {
		return false
	}
	return e.Expression(seq, p, s.At)
}

// ChannelState forwards a channel state change to the observer unless the
// session has ended.
func (e *Engine) ChannelState(name string, s ChannelState, detail string) {
	e.mu.Lock()
	ended := e.stopped
	e.mu.Unlock()
	if ended {
		return
	}
	if s == ChannelError {
		e.logf("%s channel: %s", name, detail)
	}
	e.cfg.Observer.OnChannel(name, s, detail)
}

// Stop ends the session. The partial result is finalized, every registered
// stopper runs before Stop returns, and later callbacks are no-ops.
func (e *Engine) Stop() {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	var fx []func()
	if e.cycle.Phase != Finished {
		fx = e.finishLocked(true)
	} else {
		e.stopped = true
	}
	e.mu.Unlock()
	run(fx)
}

func (e *Engine) acceptingLocked(seq int) bool {
	return !e.stopped &&
		seq == e.index &&
		seq < len(e.questions) &&
		e.cycle.Phase == Answering &&
		!e.judged
}

// timeoutLocked resolves an unjudged question at the last beat. Binary
// questions take whichever expression average leads; otherwise, or without
// a lead, the answer is wrong with nothing chosen.
func (e *Engine) timeoutLocked(at time.Time) []func() {
	choice := -1
	if e.questions[e.index].Kind == quiz.Binary {
		if p, ok := e.detector.Leader(); ok {
			choice = p.Index()
		}
	}
	return e.judgeLocked(SourceTimeout, choice, at)
}

func (e *Engine) judgeLocked(src Source, choice int, at time.Time) []func() {
	q := e.questions[e.index]
	e.judged = true

	item := Item{VocabID: q.VocabID, Word: q.PromptWord, CorrectText: q.Correct()}
	if choice >= 0 {
		text := q.Choices[choice]
		item.ChosenText = &text
		item.Correct = choice == q.AnswerIndex
	}
	if item.Correct {
		e.correct++
		e.streak++
		e.maxStreak = max(e.maxStreak, e.streak)
	} else {
		e.streak = 0
		e.result.WrongIDs = append(e.result.WrongIDs, q.VocabID)
	}
	e.result.Items = append(e.result.Items, item)
	e.cycle = cycle{Phase: Judged, Beat: e.cycle.Beat}

	grade := judge.TimingGrade(at.Sub(e.center))
	j := Judgment{
		Seq:     e.index,
		VocabID: q.VocabID,
		Source:  src,
		Chosen:  choice,
		Correct: item.Correct,
		Grade:   grade,
		Score:   judge.Score(grade, item.Correct),
		Streak:  e.streak,
	}
	cue := CueWrong
	if j.Correct {
		cue = CueCorrect
	}
	return []func(){func() {
		e.cfg.Sounds.Play(cue)
		e.cfg.Observer.OnJudged(j)
	}}
}

// finishLocked finalizes the result and queues the stoppers.
func (e *Engine) finishLocked(aborted bool) []func() {
	e.stopped = true
	if !aborted {
		e.cycle = cycle{Phase: Finished}
	}
	r := &e.result
	r.Aborted = aborted
	r.ComboMax = e.maxStreak
	r.EarnedPoints = e.cfg.Points.Earned(e.correct, e.maxStreak)
	if n := len(r.Items); n > 0 {
		r.CorrectRate = float64(e.correct) / float64(n)
	}
	final := r.Clone()
	stoppers := e.stoppers
	e.stoppers = nil
	close(e.done)

	fx := make([]func(), 0, len(stoppers)+2)
	fx = append(fx, e.cfg.Speaker.Cancel)
	fx = append(fx, stoppers...)
	fx = append(fx, func() { e.cfg.Observer.OnFinished(final) })
	return fx
}

func (e *Engine) logf(format string, args ...any) {
	if e.cfg.Logger != nil {
		e.cfg.Logger.Printf(format, args...)
	}
}

func run(fx []func()) {
	for _, f := range fx {
		f()
	}
}
