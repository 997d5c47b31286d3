package main

import (
	"fmt"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/japaniel/kogoto/pkg/pet"
	"github.com/japaniel/kogoto/pkg/store"
	"github.com/japaniel/kogoto/pkg/vocab"
)

func newImportCmd(a *app) *cobra.Command {
	opts := importOptions{Readings: true}
	var noReadings bool
	cmd := &cobra.Command{
		Use:   "import [path or url]",
		Short: "Import a vocabulary CSV into the database",
		Long: "Columns: id, word, reading, meanings, nuance, part, hint and optionally\n" +
			"mean_reading. Meanings are split on , ， 、 and |. Remote sources are cached.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.Source = a.v.GetString("vocab")
			if len(args) == 1 {
				opts.Source = args[0]
			}
			if opts.Source == "" {
				return errors.New("no vocabulary source given")
			}
			opts.Readings = !noReadings
			opts.Progress = func(written, total int) {
				fmt.Fprintf(cmd.ErrOrStderr(), "\r%d/%d", written, total)
			}

			conn, _, err := a.open()
			if err != nil {
				return err
			}
			defer conn.Close()
			n, err := a.importSource(cmd.Context(), conn, opts)
			fmt.Fprintln(cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Imported %d entries.\n", n)
			return nil
		},
	}
	cmd.Flags().StringVar(&opts.CacheDir, "cache-dir", defaultCacheDir(), "where remote sources are cached")
	cmd.Flags().BoolVar(&opts.Refresh, "refresh", false, "download remote sources again")
	cmd.Flags().BoolVar(&noReadings, "no-readings", false, "skip deriving meaning readings")
	cmd.Flags().IntVar(&opts.Workers, "workers", 0, "annotation workers (default: number of CPUs)")
	return cmd
}

func newVocabCmd(a *app) *cobra.Command {
	var tab, class, nuance, query string
	cmd := &cobra.Command{
		Use:   "vocab",
		Short: "List vocabulary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			conn, st, err := a.open()
			if err != nil {
				return err
			}
			defer conn.Close()

			entries, err := a.pool(ctx, conn)
			if err != nil {
				return err
			}
			f := vocab.Filter{Tab: vocab.Tab(tab), Query: query}
			if class != "" {
				f.Class = vocab.NormalizeClass(class)
			}
			if nuance != "" {
				f.Nuance = vocab.NormalizeNuance(nuance)
			}
			var h vocab.History
			if f.Tab == vocab.TabNew || f.Tab == vocab.TabReview {
				sessions, err := st.Sessions(ctx)
				if err != nil {
					return err
				}
				h = store.NewHistory(sessions)
			}

			matched := f.Apply(entries, h)
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tWORD\tREADING\tCLASS\tNUANCE\tMEANINGS")
			for _, e := range matched {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", e.ID, e.Word, e.Reading, e.Class, e.Nuance, strings.Join(e.Meanings, "、"))
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(a.out, "%d of %d entries\n", len(matched), len(entries))
			return nil
		},
	}
	cmd.Flags().StringVar(&tab, "tab", "all", "all, new or review")
	cmd.Flags().StringVar(&class, "class", "", "grammatical class, e.g. 動詞 or verb")
	cmd.Flags().StringVar(&nuance, "nuance", "", "positive, negative or neutral")
	cmd.Flags().StringVar(&query, "query", "", "substring of the word, reading or meanings")
	return cmd
}

func newHistoryCmd(a *app) *cobra.Command {
	var top int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show the latest session, points and most missed words",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			conn, st, err := a.open()
			if err != nil {
				return err
			}
			defer conn.Close()

			latest, err := st.LatestSession(ctx)
			if errors.Is(err, store.ErrNoSession) {
				fmt.Fprintln(a.out, "No sessions yet.")
				return nil
			}
			if err != nil {
				return err
			}
			status := ""
			if latest.Aborted {
				status = " (stopped)"
			}
			fmt.Fprintf(a.out, "Latest: %s  %d/%d correct, combo %d, +%d pt%s\n",
				latest.StartedAt.Local().Format("2006-01-02 15:04"), latest.Correct(), len(latest.Items),
				latest.ComboMax, latest.EarnedPoints, status)
			fmt.Fprintf(a.out, "Summary: %s\n", latest.Summary().Values().Encode())

			points, err := st.Points(ctx)
			if err != nil {
				return err
			}
			crab, err := st.Pet(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Points: %d  Crab: Lv%d %d%%\n", points, crab.Level, crab.Percent())

			sessions, err := st.Sessions(ctx)
			if err != nil {
				return err
			}
			queue, err := st.WrongQueue(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Sessions kept: %d  Wrong queue: %d\n", len(sessions), len(queue))

			words := map[int64]string{}
			for _, r := range sessions {
				for _, it := range r.Items {
					words[it.VocabID] = it.Word
				}
			}
			stats := store.Stats(sessions)
			ids := make([]int64, 0, len(stats))
			for id, s := range stats {
				if s.Wrong > 0 {
					ids = append(ids, id)
				}
			}
			sort.Slice(ids, func(i, j int) bool {
				si, sj := stats[ids[i]], stats[ids[j]]
				if si.Wrong != sj.Wrong {
					return si.Wrong > sj.Wrong
				}
				return ids[i] < ids[j]
			})
			if len(ids) > top {
				ids = ids[:top]
			}
			if len(ids) == 0 {
				return nil
			}
			fmt.Fprintln(a.out, "Most missed:")
			tw := tabwriter.NewWriter(a.out, 0, 4, 2, ' ', 0)
			for _, id := range ids {
				s := stats[id]
				last := "×"
				if s.LastCorrect {
					last = "○"
				}
				fmt.Fprintf(tw, "  %s\t%d/%d wrong\tlast %s\n", words[id], s.Wrong, s.Seen, last)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&top, "top", 5, "how many missed words to list")
	return cmd
}

func newFeedCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "feed [food]",
		Short: "Spend points on the crab",
		Long:  "Without an argument the menu is shown. Food is named by id or name.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			conn, st, err := a.open()
			if err != nil {
				return err
			}
			defer conn.Close()

			if len(args) == 0 {
				points, err := st.Points(ctx)
				if err != nil {
					return err
				}
				crab, err := st.Pet(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(a.out, "Points: %d  Crab: Lv%d %d%%\n", points, crab.Level, crab.Percent())
				for _, f := range pet.Menu {
					fmt.Fprintf(a.out, "  %s) %s  %d pt  +%.1f%%\n", f.ID, f.Name, f.Cost, f.Gain*100)
				}
				return nil
			}

			food, err := pet.LookupFood(args[0])
			if err != nil {
				return err
			}
			before, err := st.Pet(ctx)
			if err != nil {
				return err
			}
			crab, balance, err := st.UpdatePet(ctx, store.FeedUpdate(food))
			if errors.Is(err, pet.ErrInsufficientPoints) {
				fmt.Fprintf(a.out, "Not enough points: %s costs %d, balance %d.\n", food.Name, food.Cost, balance)
				return nil
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "Fed %s. Crab: Lv%d %d%% (%d to next), balance %d\n",
				food.Name, crab.Level, crab.Percent(), crab.Remain(), balance)
			if crab.Level > before.Level {
				fmt.Fprintf(a.out, "Level up! Lv%d\n", crab.Level)
			}
			fmt.Fprintf(a.out, "🦀 %s\n", pet.PickQuip(crab, nil).Plain())
			return nil
		},
	}
}
