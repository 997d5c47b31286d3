// Command kogo is a rhythm quiz for archaic Japanese vocabulary.
package main

import (
	"context"
	"io"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	if err := newRootCmd(os.Stdin, os.Stdout, os.Stderr).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// app carries what every command shares.
type app struct {
	v      *viper.Viper
	in     io.Reader
	out    io.Writer
	logger *log.Logger
}

func newRootCmd(in io.Reader, out, errOut io.Writer) *cobra.Command {
	a := &app{
		v:      viper.New(),
		in:     in,
		out:    out,
		logger: log.New(errOut, "kogo: ", log.LstdFlags),
	}
	var cfgFile string

	root := &cobra.Command{
		Use:          "kogo",
		Short:        "Rhythm quiz for archaic Japanese vocabulary",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cfgFile == "" {
				return nil
			}
			a.v.SetConfigFile(cfgFile)
			return errors.Wrapf(a.v.ReadInConfig(), "read config %s", cfgFile)
		},
	}
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	f := root.PersistentFlags()
	f.StringVar(&cfgFile, "config", "", "config file (yaml or toml)")
	f.String("db", "kogo.db", "path to the SQLite database")
	f.String("vocab", "", "vocabulary CSV used when the database has none")
	f.Float64("bpm", 90, "tempo in beats per minute")
	f.Int("count", 5, "questions per session")
	f.Int("hold-beats", 2, "beats the judgment stays on screen")
	f.Int("sessions-retention", 50, "sessions kept in history")
	f.Int("wrong-queue-limit", 100, "missed words kept in the wrong queue")
	for key, flag := range map[string]string{
		"db":                 "db",
		"vocab":              "vocab",
		"bpm":                "bpm",
		"count":              "count",
		"hold_beats":         "hold-beats",
		"sessions_retention": "sessions-retention",
		"wrong_queue_limit":  "wrong-queue-limit",
	} {
		_ = a.v.BindPFlag(key, f.Lookup(flag))
	}
	a.v.SetEnvPrefix("kogo")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	root.AddCommand(
		newPlayCmd(a),
		newReviewCmd(a),
		newAmbiguousCmd(a),
		newImportCmd(a),
		newVocabCmd(a),
		newHistoryCmd(a),
		newFeedCmd(a),
	)
	return root
}

func defaultCacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		return filepath.Join(os.TempDir(), "kogo")
	}
	return filepath.Join(dir, "kogo")
}
