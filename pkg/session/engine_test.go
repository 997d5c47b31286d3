package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/japaniel/kogoto/pkg/quiz"
	"github.com/japaniel/kogoto/pkg/vocab"
)

type spy struct {
	NopObserver
	mu            sync.Mutex
	phases        []Phase
	judged        []Judgment
	notUnderstood []string
	channels      map[string][]ChannelState
	finished      []Result
}

func newSpy() *spy { return &spy{channels: map[string][]ChannelState{}} }

func (s *spy) OnPhase(_ int, p Phase, _ int) {
	s.mu.Lock()
	s.phases = append(s.phases, p)
	s.mu.Unlock()
}

func (s *spy) OnJudged(j Judgment) {
	s.mu.Lock()
	s.judged = append(s.judged, j)
	s.mu.Unlock()
}

func (s *spy) OnNotUnderstood(_ int, text string) {
	s.mu.Lock()
	s.notUnderstood = append(s.notUnderstood, text)
	s.mu.Unlock()
}

func (s *spy) OnChannel(name string, st ChannelState, _ string) {
	s.mu.Lock()
	s.channels[name] = append(s.channels[name], st)
	s.mu.Unlock()
}

func (s *spy) OnFinished(r Result) {
	s.mu.Lock()
	s.finished = append(s.finished, r)
	s.mu.Unlock()
}

func (s *spy) events() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.phases) + len(s.judged) + len(s.notUnderstood) + len(s.finished)
	for _, v := range s.channels {
		n += len(v)
	}
	return n
}

func (s *spy) judgments() []Judgment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Judgment(nil), s.judged...)
}

// beats drives an engine by hand at 60 BPM.
type beats struct {
	e  *Engine
	at time.Time
}

func newBeats(e *Engine) *beats {
	return &beats{e: e, at: time.Date(2024, 4, 1, 9, 0, 0, 0, time.UTC)}
}

func (b *beats) tick(n int) {
	for i := 0; i < n; i++ {
		b.at = b.at.Add(time.Second)
		b.e.Tick(Tick{At: b.at})
	}
}

// center is the window center of the current question once answering.
func (b *beats) center() time.Time {
	b.e.mu.Lock()
	defer b.e.mu.Unlock()
	return b.e.center
}

func fivePool() []vocab.Entry {
	return []vocab.Entry{
		{ID: 1, Word: "うれし", Meanings: []string{"嬉しい"}, MeaningReadings: []string{"うれしい"}, Class: vocab.ClassAdjective, Nuance: vocab.NuancePositive},
		{ID: 2, Word: "かなし", Meanings: []string{"悲しい"}, MeaningReadings: []string{"かなしい"}, Class: vocab.ClassAdjective, Nuance: vocab.NuanceNegative},
		{ID: 3, Word: "さむし", Meanings: []string{"寒い"}, MeaningReadings: []string{"さむい"}, Class: vocab.ClassAdjective, Nuance: vocab.NuanceNegative},
		{ID: 4, Word: "あつし", Meanings: []string{"暑い"}, MeaningReadings: []string{"あつい"}, Class: vocab.ClassAdjective},
		{ID: 5, Word: "いと", Meanings: []string{"とても"}, Class: vocab.ClassAdverb},
	}
}

func newTestEngine(t *testing.T, qs []quiz.Question) (*Engine, *spy, *beats) {
	t.Helper()
	require.NotEmpty(t, qs)
	s := newSpy()
	e := New(qs, Config{BPM: 60, Observer: s})
	return e, s, newBeats(e)
}

func multipleChoice(t *testing.T) []quiz.Question {
	return quiz.NewSeededBuilder(1, 2).Build(fivePool(), 5, nil, quiz.Options{})
}

func TestEndToEndAllTapsCorrect(t *testing.T) {
	qs := multipleChoice(t)
	require.Len(t, qs, 5)
	for _, q := range qs {
		require.Len(t, q.Choices, 4)
		seen := map[string]bool{}
		for _, c := range q.Choices {
			require.False(t, seen[c])
			seen[c] = true
		}
	}

	e, s, b := newTestEngine(t, qs)
	for i, q := range qs {
		b.tick(4)
		require.Equal(t, i, e.Seq())
		require.True(t, e.Tap(e.Seq(), q.AnswerIndex, b.center()))
		b.tick(2)
	}

	select {
	case <-e.Done():
	default:
		t.Fatal("session did not finish")
	}
	r := e.Result()
	assert.False(t, r.Aborted)
	assert.Len(t, r.Items, 5)
	assert.Equal(t, 1.0, r.CorrectRate)
	assert.Equal(t, 5, r.ComboMax)
	assert.Equal(t, 100, r.EarnedPoints)
	assert.Empty(t, r.WrongIDs)
	require.Len(t, s.finished, 1)
	assert.Equal(t, r.ID, s.finished[0].ID)
	for _, j := range s.judgments() {
		assert.Equal(t, SourceTap, j.Source)
		assert.Equal(t, 100, j.Score)
	}
	assert.Equal(t, Summary{Total: 5, Correct: 5, Streak: 5}, r.Summary())
}

func TestAtMostOneJudgmentPerQuestion(t *testing.T) {
	qs := multipleChoice(t)
	e, s, b := newTestEngine(t, qs)
	b.tick(4)

	q := qs[0]
	wrong := (q.AnswerIndex + 1) % len(q.Choices)
	require.True(t, e.Tap(0, wrong, b.center()))
	assert.False(t, e.Speech(0, SpeechResult{Text: q.Correct(), Confidence: 1, At: b.center()}))
	assert.False(t, e.Tap(0, q.AnswerIndex, b.center()))

	r := e.Result()
	require.Len(t, r.Items, 1)
	require.NotNil(t, r.Items[0].ChosenText)
	assert.Equal(t, q.Choices[wrong], *r.Items[0].ChosenText)
	assert.False(t, r.Items[0].Correct)
	assert.Equal(t, []int64{q.VocabID}, r.WrongIDs)
	assert.Len(t, s.judgments(), 1)
}

func TestConcurrentSubmissionsJudgeOnce(t *testing.T) {
	qs := multipleChoice(t)
	e, _, b := newTestEngine(t, qs)
	b.tick(4)

	var wg sync.WaitGroup
	accepted := make(chan bool, 40)
	for i := 0; i < 20; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			accepted <- e.Tap(0, i%4, b.at)
		}(i)
		go func() {
			defer wg.Done()
			accepted <- e.Speech(0, SpeechResult{Text: "3", Confidence: 1, At: b.at})
		}()
	}
	wg.Wait()
	close(accepted)

	n := 0
	for ok := range accepted {
		if ok {
			n++
		}
	}
	assert.Equal(t, 1, n)
	assert.Len(t, e.Result().Items, 1)
}

func TestForcedTimeoutWithoutSignal(t *testing.T) {
	qs := multipleChoice(t)
	e, s, b := newTestEngine(t, qs)

	b.tick(7)
	assert.Empty(t, e.Result().Items)
	b.tick(1)

	r := e.Result()
	require.Len(t, r.Items, 1)
	assert.Nil(t, r.Items[0].ChosenText)
	assert.False(t, r.Items[0].Correct)
	assert.Equal(t, qs[0].Correct(), r.Items[0].CorrectText)

	j := s.judgments()
	require.Len(t, j, 1)
	assert.Equal(t, SourceTimeout, j[0].Source)
	assert.Equal(t, -1, j[0].Chosen)
}

func TestAnswersOutsideWindowAreDiscarded(t *testing.T) {
	qs := multipleChoice(t)
	e, _, b := newTestEngine(t, qs)

	assert.False(t, e.Tap(0, qs[0].AnswerIndex, b.at), "ready")
	b.tick(3)
	p, beat := e.Phase()
	require.Equal(t, Prompt, p)
	require.Equal(t, 3, beat)
	assert.False(t, e.Tap(0, qs[0].AnswerIndex, b.at), "prompt")
	b.tick(1)
	assert.False(t, e.Tap(0, 9, b.at), "out of range")
	assert.True(t, e.Tap(0, qs[0].AnswerIndex, b.at))
}

func TestStaleSequenceIsDiscarded(t *testing.T) {
	qs := multipleChoice(t)
	e, _, b := newTestEngine(t, qs)

	b.tick(4)
	require.True(t, e.Tap(0, qs[0].AnswerIndex, b.center()))
	b.tick(2)
	p, _ := e.Phase()
	require.Equal(t, Interlude, p)
	assert.Equal(t, 0, e.Seq())

	b.tick(4)
	require.Equal(t, 1, e.Seq())
	assert.False(t, e.Tap(0, qs[1].AnswerIndex, b.center()))
	assert.False(t, e.Speech(0, SpeechResult{Text: "1", Confidence: 1}))
	assert.Len(t, e.Result().Items, 1)
	assert.True(t, e.Tap(1, qs[1].AnswerIndex, b.center()))
	assert.Len(t, e.Result().Items, 2)
}

func TestStopSilencesLaterCallbacks(t *testing.T) {
	qs := multipleChoice(t)
	e, s, b := newTestEngine(t, qs)
	stops := 0
	e.OnStop(func() { stops++ })

	b.tick(4)
	e.Stop()
	require.Equal(t, 1, stops)
	require.Len(t, s.finished, 1)
	assert.True(t, s.finished[0].Aborted)
	before := s.events()

	assert.False(t, e.Tap(0, qs[0].AnswerIndex, b.at))
	assert.False(t, e.Speech(0, SpeechResult{Text: "1", Confidence: 1}))
	for i := 0; i < 30; i++ {
		assert.False(t, e.Sample(0, Sample{Positive: 1}))
	}
	e.ChannelState(SpeechChannelName, ChannelError, "late permission result")
	b.tick(10)
	e.Stop()

	assert.Equal(t, before, s.events())
	assert.Equal(t, 1, stops)
	r := e.Result()
	assert.True(t, r.Aborted)
	assert.Empty(t, r.Items)
	assert.Zero(t, r.CorrectRate)

	late := false
	e.OnStop(func() { late = true })
	assert.True(t, late, "stoppers registered after stop run immediately")
}

func TestAbortedResultRatesAnsweredItems(t *testing.T) {
	qs := multipleChoice(t)
	e, _, b := newTestEngine(t, qs)

	b.tick(4)
	require.True(t, e.Tap(0, qs[0].AnswerIndex, b.center()))
	b.tick(2)
	b.tick(4)
	require.True(t, e.Tap(1, (qs[1].AnswerIndex+1)%4, b.center()))
	e.Stop()

	r := e.Result()
	assert.True(t, r.Aborted)
	assert.Len(t, r.Items, 2)
	assert.Equal(t, 0.5, r.CorrectRate)
	assert.Equal(t, 1, r.ComboMax)
	assert.Equal(t, 10, r.EarnedPoints)
}

func TestSpeechResolution(t *testing.T) {
	qs := multipleChoice(t)
	e, s, b := newTestEngine(t, qs)
	b.tick(4)

	assert.False(t, e.Speech(0, SpeechResult{Text: "2", Confidence: 0.1}))
	assert.False(t, e.Speech(0, SpeechResult{Text: "わからない", Confidence: 0.9}))
	assert.Equal(t, []string{"わからない"}, s.notUnderstood)
	p, _ := e.Phase()
	assert.Equal(t, Answering, p)

	require.True(t, e.Speech(0, SpeechResult{Text: "に", Confidence: 0.9, At: b.center()}))
	j := s.judgments()
	require.Len(t, j, 1)
	assert.Equal(t, SourceSpeech, j[0].Source)
	assert.Equal(t, 1, j[0].Chosen)
}

func TestTimingGradeFollowsWindowCenter(t *testing.T) {
	qs := multipleChoice(t)
	e, s, b := newTestEngine(t, qs)
	b.tick(4)
	require.True(t, e.Tap(0, qs[0].AnswerIndex, b.center().Add(200*time.Millisecond)))
	j := s.judgments()
	require.Len(t, j, 1)
	assert.Equal(t, 50, j[0].Score)
}

func nuanceQuestions(t *testing.T) []quiz.Question {
	qs := quiz.NewSeededBuilder(3, 4).BuildNuance(fivePool(), 3, nil, quiz.Options{})
	require.Len(t, qs, 3)
	return qs
}

func TestBinaryTimeoutTakesLeadingExpression(t *testing.T) {
	qs := nuanceQuestions(t)
	e, s, b := newTestEngine(t, qs)

	b.tick(4)
	for i := 0; i < 3; i++ {
		assert.False(t, e.Sample(0, Sample{Positive: 0.9, Negative: 0.1, At: b.at}))
	}
	b.tick(4)

	j := s.judgments()
	require.Len(t, j, 1)
	assert.Equal(t, SourceTimeout, j[0].Source)
	assert.Equal(t, Positive.Index(), j[0].Chosen)
	r := e.Result()
	require.NotNil(t, r.Items[0].ChosenText)
	assert.Equal(t, quiz.PositiveLabel, *r.Items[0].ChosenText)
	assert.Equal(t, qs[0].AnswerIndex == 0, r.Items[0].Correct)
}

func TestBinaryTimeoutTieIsNoSignal(t *testing.T) {
	qs := nuanceQuestions(t)
	e, _, b := newTestEngine(t, qs)
	b.tick(4)
	e.Sample(0, Sample{Positive: 0.5, Negative: 0.5, At: b.at})
	b.tick(4)

	r := e.Result()
	require.Len(t, r.Items, 1)
	assert.Nil(t, r.Items[0].ChosenText)
	assert.False(t, r.Items[0].Correct)
}

func TestExpressionDecisionJudgesBinaryQuestion(t *testing.T) {
	qs := nuanceQuestions(t)
	e, s, b := newTestEngine(t, qs)
	b.tick(4)

	fired := 0
	for i := 0; i < 20; i++ {
		if e.Sample(0, Sample{Negative: 1, At: b.center()}) {
			fired++
		}
	}
	assert.Equal(t, 1, fired)
	j := s.judgments()
	require.Len(t, j, 1)
	assert.Equal(t, SourceExpression, j[0].Source)
	assert.Equal(t, Negative.Index(), j[0].Chosen)
}

func TestExpressionIgnoredForMultipleChoice(t *testing.T) {
	qs := multipleChoice(t)
	e, _, b := newTestEngine(t, qs)
	b.tick(4)
	assert.False(t, e.Expression(0, Positive, b.at))
	assert.Empty(t, e.Result().Items)
}

type chanClock struct {
	ch      chan Tick
	stopped chan struct{}
	once    sync.Once
}

func newChanClock() *chanClock {
	return &chanClock{ch: make(chan Tick), stopped: make(chan struct{})}
}

func (c *chanClock) Ticks() <-chan Tick { return c.ch }
func (c *chanClock) Stop()              { c.once.Do(func() { close(c.stopped) }) }

func TestRunUntilFinished(t *testing.T) {
	qs := multipleChoice(t)[:2]
	s := newSpy()
	var e *Engine
	s2 := &tapOnAnswer{spy: s, qs: qs}
	e = New(qs, Config{BPM: 60, Observer: s2})
	s2.e = e
	clock := newChanClock()

	go func() {
		at := time.Now()
		for {
			at = at.Add(time.Second)
			select {
			case clock.ch <- Tick{At: at}:
			case <-clock.stopped:
				return
			}
		}
	}()

	r, err := e.Run(context.Background(), clock)
	require.NoError(t, err)
	assert.Len(t, r.Items, 2)
	assert.Equal(t, 1.0, r.CorrectRate)
	assert.Equal(t, 30, r.EarnedPoints)
	<-clock.stopped
}

// tapOnAnswer taps the right answer as soon as the window opens.
type tapOnAnswer struct {
	*spy
	e  *Engine
	qs []quiz.Question
}

func (o *tapOnAnswer) OnPhase(seq int, p Phase, beat int) {
	o.spy.OnPhase(seq, p, beat)
	if p == Answering && beat == AnswerBeat {
		o.e.Tap(seq, o.qs[seq].AnswerIndex, time.Now())
	}
}

func TestRunCancelled(t *testing.T) {
	e, _, _ := newTestEngine(t, multipleChoice(t))
	clock := newChanClock()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	r, err := e.Run(ctx, clock)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, r.Aborted)
	<-clock.stopped
}

func TestRunWithoutQuestions(t *testing.T) {
	e := New(nil, Config{})
	_, err := e.Run(context.Background(), newChanClock())
	assert.ErrorIs(t, err, quiz.ErrNoQuestions)
}
