// maker watch [roots...]
package cmd

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/samkaj/maker/internal/compdb"
	"github.com/samkaj/maker/internal/msg"
	"github.com/samkaj/maker/internal/watch"
	"github.com/spf13/cobra"
)

// regenerate runs one generation and writes its output.
func (s *session) regenerate() error {
	res, _, err := s.generate()
	if err != nil {
		return err
	}
	return s.emit(res)
}

// ignored reports whether path is something maker writes itself.
func (s *session) ignored(path string) bool {
	path = filepath.Clean(path)
	switch path {
	case filepath.Clean(s.file), filepath.Clean(s.file) + ".bak", compdb.Filename:
		return true
	}
	out := filepath.Clean(s.b.Config().Sources.Output)
	return path == out || strings.HasPrefix(path, out+string(filepath.Separator))
}

func doWatch(cmd *cobra.Command, args []string) {
	if flagStdout || flagDiff {
		fail(errOutputFlags)
	}
	s, err := newSession(cmd, args)
	if err != nil {
		fail(err)
	}
	// the first pass must succeed, later failures are only reported
	if err := s.regenerate(); err != nil {
		fail(err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	w := &watch.Watcher{
		Dirs:       s.b.Dirs,
		Regenerate: s.regenerate,
		Ignore:     s.ignored,
	}
	msg.Info("watching %s for changes, press Ctrl+C to stop", strings.Join(s.b.Config().Sources.Roots, ", "))
	if err := w.Run(ctx); err != nil {
		fail(err)
	}
}

var watchCmd = &cobra.Command{
	Use:   "watch [roots...]",
	Short: "Regenerate the build file whenever the source tree changes",
	Args:  cobra.ArbitraryArgs,
	Run:   doWatch,
}

func init() {
	// maker watch subcommand
	rootCmd.AddCommand(watchCmd)
	addGenFlags(watchCmd)
}
