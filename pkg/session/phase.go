package session

// Phase is the engine's position within a question cycle.
type Phase int

const (
	Ready Phase = iota
	Prompt
	Answering
	Judged
	Interlude
	Finished
)

func (p Phase) String() string {
	switch p {
	case Ready:
		return "ready"
	case Prompt:
		return "prompt"
	case Answering:
		return "answering"
	case Judged:
		return "judged"
	case Interlude:
		return "interlude"
	case Finished:
		return "finished"
	}
	return "unknown"
}

const (
	// CycleBeats is the last beat of a question. Reaching it unjudged forces
	// a timeout.
	CycleBeats = 8
	// AnswerBeat opens the answer window.
	AnswerBeat = 4
	// DefaultHoldBeats is how many beats a judgment stays on screen.
	DefaultHoldBeats = 2
)

// cycle is the beat-in-cycle state. Beat counts from 1 at each prompt; Hold
// counts beats spent in Judged.
type cycle struct {
	Phase Phase
	Beat  int
	Hold  int
}

// next is the per-tick transition. Judgments move Answering to Judged outside
// of ticks; everything else happens here.
func (c cycle) next(holdBeats int, last bool) cycle {
	switch c.Phase {
	case Ready, Interlude:
		return cycle{Phase: Prompt, Beat: 1}
	case Prompt:
		b := c.Beat + 1
		if b >= AnswerBeat {
			return cycle{Phase: Answering, Beat: AnswerBeat}
		}
		return cycle{Phase: Prompt, Beat: b}
	case Answering:
		return cycle{Phase: Answering, Beat: min(c.Beat+1, CycleBeats)}
	case Judged:
		h := c.Hold + 1
		if h < holdBeats {
			return cycle{Phase: Judged, Beat: c.Beat, Hold: h}
		}
		if last {
			return cycle{Phase: Finished}
		}
		return cycle{Phase: Interlude}
	}
	return c
}
