package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/japaniel/kogoto/pkg/quiz"
	"github.com/japaniel/kogoto/pkg/session"
)

type playMode int

const (
	modeMeaning playMode = iota
	modeNuance
)

type playOptions struct {
	Mode   playMode
	Review bool
	Face   string // sample file for the expression channel
	Beats  bool
}

func newPlayCmd(a *app) *cobra.Command {
	var opts playOptions
	cmd := &cobra.Command{
		Use:   "play",
		Short: "Play a meaning quiz to the beat",
		Long: "Each question plays over eight beats. Answer on beats 4 to 8 by typing\n" +
			"the choice number, or type the meaning or its reading.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.play(cmd.Context(), opts)
		},
	}
	cmd.Flags().BoolVar(&opts.Review, "review", false, "only words missed recently")
	cmd.Flags().BoolVar(&opts.Beats, "beats", false, "print every beat")
	return cmd
}

func newReviewCmd(a *app) *cobra.Command {
	var opts playOptions
	cmd := &cobra.Command{
		Use:   "review",
		Short: "Play only the words you missed recently",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Review = true
			return a.play(cmd.Context(), opts)
		},
	}
	cmd.Flags().BoolVar(&opts.Beats, "beats", false, "print every beat")
	return cmd
}

func newAmbiguousCmd(a *app) *cobra.Command {
	opts := playOptions{Mode: modeNuance}
	cmd := &cobra.Command{
		Use:   "ambiguous",
		Short: "Judge whether each word is positive or negative",
		Long: "Answer with p or n. With --face, smile and frown intensities are read\n" +
			"from a file of \"positive negative\" lines at 20 Hz.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.play(cmd.Context(), opts)
		},
	}
	cmd.Flags().BoolVar(&opts.Review, "review", false, "only words missed recently")
	cmd.Flags().StringVar(&opts.Face, "face", "", "expression sample file")
	cmd.Flags().BoolVar(&opts.Beats, "beats", false, "print every beat")
	return cmd
}

func (a *app) play(ctx context.Context, opts playOptions) error {
	conn, st, err := a.open()
	if err != nil {
		return err
	}
	defer conn.Close()

	pool, err := a.pool(ctx, conn)
	if err != nil {
		return err
	}
	weights, err := st.MissWeights(ctx)
	if err != nil {
		return err
	}

	b := quiz.NewBuilder()
	b.Logger = a.logger
	qopts := quiz.Options{ReviewOnly: opts.Review}
	var questions []quiz.Question
	if opts.Mode == modeNuance {
		questions = b.BuildNuance(pool, a.v.GetInt("count"), weights, qopts)
	} else {
		questions = b.Build(pool, a.v.GetInt("count"), weights, qopts)
	}
	if len(questions) == 0 {
		fmt.Fprintln(a.out, capitalize(quiz.EmptyError(qopts).Error())+".")
		return nil
	}

	term := newTerminal(a.out, questions)
	term.Beats = opts.Beats
	bpm := a.v.GetFloat64("bpm")
	e := session.New(questions, session.Config{
		BPM:       bpm,
		HoldBeats: a.v.GetInt("hold_beats"),
		Speaker:   term,
		Sounds:    term,
		Observer:  term,
		Logger:    a.logger,
	})

	res, err := runSession(ctx, e, session.NewMetronome(bpm), a.in, faceFile{Path: opts.Face, Interval: time.Second / session.DefaultSampleRate})
	if err != nil {
		return err
	}
	if len(res.Items) == 0 {
		return nil
	}
	// save even when the session was interrupted
	if err := st.SaveSession(context.WithoutCancel(ctx), res); err != nil {
		return errors.Wrap(err, "save session")
	}
	points, err := st.Points(context.WithoutCancel(ctx))
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%d/%d correct, best combo %d, +%d pt (balance %d)\n",
		res.Correct(), len(res.Items), res.ComboMax, res.EarnedPoints, points)
	return nil
}

// runSession plays e to the end. Lines read from in are taps when they
// name a choice and typed speech otherwise; "q" stops the session.
func runSession(ctx context.Context, e *session.Engine, clock session.Clock, in io.Reader, face session.FaceStream) (session.Result, error) {
	speech := make(chan string)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := e.Run(gctx, clock)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		session.NewSpeechChannel(lineRecognizer{lines: speech}).Run(gctx, e)
		return nil
	})
	if hasBinary(e.Questions()) {
		g.Go(func() error {
			session.NewExpressionChannel(face).Run(gctx, e)
			return nil
		})
	}
	// A blocked read on stdin cannot be cancelled, so the reader stays
	// outside the group.
	go readInput(in, e, speech)

	err := g.Wait()
	return e.Result(), err
}

func readInput(in io.Reader, e *session.Engine, speech chan<- string) {
	defer close(speech)
	sc := bufio.NewScanner(in)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if line == "q" {
			e.Stop()
			return
		}
		seq := e.Seq()
		if choice, ok := tapChoice(e.Questions()[seq], line); ok {
			e.Tap(seq, choice, time.Now())
			continue
		}
		select {
		case speech <- line:
		case <-e.Done():
			return
		}
	}
}

// tapChoice maps keys to choices: 1-4, plus p and n on binary questions.
func tapChoice(q quiz.Question, key string) (int, bool) {
	if q.Kind == quiz.Binary {
		switch strings.ToLower(key) {
		case "p":
			return session.Positive.Index(), true
		case "n":
			return session.Negative.Index(), true
		}
	}
	n, err := strconv.Atoi(key)
	if err != nil || len(key) != 1 || n < 1 || n > len(q.Choices) {
		return 0, false
	}
	return n - 1, true
}

func hasBinary(qs []quiz.Question) bool {
	for _, q := range qs {
		if q.Kind == quiz.Binary {
			return true
		}
	}
	return false
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
