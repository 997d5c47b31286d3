package main

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/japaniel/kogoto/pkg/quiz"
	"github.com/japaniel/kogoto/pkg/session"
)

// terminal renders a session as text. It is the engine's speaker, sound
// effects and observer at once.
type terminal struct {
	// Beats prints a mark on every beat.
	Beats bool

	mu        sync.Mutex
	w         io.Writer
	questions []quiz.Question
}

func newTerminal(w io.Writer, questions []quiz.Question) *terminal {
	return &terminal{w: w, questions: questions}
}

func (t *terminal) printf(format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.w, format, args...)
}

func (t *terminal) Speak(text string) { t.printf("  ♪ %s\n", text) }

func (t *terminal) Cancel() {}

func (t *terminal) Play(c session.Cue) {
	if !t.Beats {
		return
	}
	switch c {
	case session.CueAccent:
		t.printf("  ●\n")
	case session.CueBeat:
		t.printf("  ○\n")
	}
}

func (t *terminal) OnPhase(seq int, p session.Phase, beat int) {
	q := t.questions[seq]
	switch {
	case p == session.Prompt && beat == 1:
		var b strings.Builder
		fmt.Fprintf(&b, "\n[%d/%d] %s", seq+1, len(t.questions), q.PromptWord)
		if q.Reading != "" && q.Reading != q.PromptWord {
			fmt.Fprintf(&b, "（%s）", q.Reading)
		}
		b.WriteByte('\n')
		if q.Kind == quiz.Binary {
			fmt.Fprintf(&b, "  p) %s  n) %s\n", q.Choices[0], q.Choices[1])
		} else {
			for i, c := range q.Choices {
				fmt.Fprintf(&b, "  %d) %s\n", i+1, c)
			}
		}
		t.printf("%s", b.String())
	case p == session.Answering && beat == session.AnswerBeat:
		t.printf("  > answer!\n")
	}
}

func (t *terminal) OnJudged(j session.Judgment) {
	q := t.questions[j.Seq]
	if j.Correct {
		t.printf("  ○ %s (%s, %s, +%d) combo %d\n", q.Correct(), j.Source, j.Grade, j.Score, j.Streak)
		return
	}
	chosen := "no answer"
	if j.Chosen >= 0 {
		chosen = q.Choices[j.Chosen]
	}
	t.printf("  × %s, answer: %s (%s)\n", chosen, q.Correct(), j.Source)
}

func (t *terminal) OnNotUnderstood(seq int, text string) {
	t.printf("  ? %q matched no choice\n", text)
}

func (t *terminal) OnChannel(name string, s session.ChannelState, detail string) {
	if detail != "" {
		t.printf("  [%s %s: %s]\n", name, s, detail)
		return
	}
	t.printf("  [%s %s]\n", name, s)
}

func (t *terminal) OnFinished(r session.Result) {
	if r.Aborted {
		t.printf("\nstopped\n")
		return
	}
	t.printf("\nfinished\n")
}
