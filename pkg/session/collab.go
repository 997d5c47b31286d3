package session

import (
	"time"

	"github.com/japaniel/kogoto/pkg/judge"
)

// Source names the channel that produced a judgment.
type Source string

const (
	SourceTap        Source = "tap"
	SourceSpeech     Source = "speech"
	SourceExpression Source = "expression"
	SourceTimeout    Source = "timeout"
)

// Judgment is reported once per question.
type Judgment struct {
	Seq     int
	VocabID int64
	Source  Source
	// Chosen is the choice index, or -1 when nothing was chosen.
	Chosen  int
	Correct bool
	Grade   judge.Grade
	Score   int
	Streak  int
}

// Cue is a short sound effect.
type Cue int

const (
	CueAccent Cue = iota // beat 1
	CueBeat
	CueCorrect
	CueWrong
)

// Speaker announces prompt words. Speak must not block the caller.
type Speaker interface {
	Speak(text string)
	// Cancel drops queued and in-progress speech.
	Cancel()
}

// SoundEffects plays cues. Play must not block the caller.
type SoundEffects interface {
	Play(c Cue)
}

// ChannelState is the availability of an answer channel.
type ChannelState string

const (
	ChannelOff   ChannelState = "off"
	ChannelOn    ChannelState = "on"
	ChannelError ChannelState = "error"
)

// Observer receives engine events. Calls are made outside the engine lock,
// so an observer may call back into the engine.
type Observer interface {
	OnPhase(seq int, p Phase, beat int)
	OnJudged(j Judgment)
	// OnNotUnderstood reports an utterance that matched no choice. The
	// answer window stays open.
	OnNotUnderstood(seq int, text string)
	OnChannel(name string, s ChannelState, detail string)
	OnFinished(r Result)
}

// NopObserver ignores every event. Embed it to implement part of Observer.
type NopObserver struct{}

func (NopObserver) OnPhase(int, Phase, int)                {}
func (NopObserver) OnJudged(Judgment)                      {}
func (NopObserver) OnNotUnderstood(int, string)            {}
func (NopObserver) OnChannel(string, ChannelState, string) {}
func (NopObserver) OnFinished(Result)                      {}

type nopSpeaker struct{}

func (nopSpeaker) Speak(string) {}
func (nopSpeaker) Cancel()      {}

type nopSounds struct{}

func (nopSounds) Play(Cue) {}

// SpeechResult is one recognized utterance.
type SpeechResult struct {
	Text       string
	Confidence float64
	At         time.Time
}

// MinSpeechConfidence discards utterances the recognizer is unsure of.
const MinSpeechConfidence = 0.3
