package watch

import (
	"context"
	"encoding/json"
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/semdelta/cmd/semdelta/replay"
	"github.com/walteh/semdelta/pkg/watcher"
)

type Handler struct {
	fs       afero.Fs
	path     string
	debounce time.Duration
	count    int
}

func NewWatchCommand(fs afero.Fs) *cobra.Command {
	me := &Handler{fs: fs}

	cmd := &cobra.Command{
		Use:   "watch FILE",
		Short: "print a semantic token step every time a file is saved",
	}

	cmd.Args = cobra.ExactArgs(1)
	cmd.Flags().DurationVar(&me.debounce, "debounce", watcher.DefaultDebounce, "quiet period before a burst of writes counts as one revision")
	cmd.Flags().IntVar(&me.count, "count", 0, "exit after this many revisions, 0 watches until interrupted")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		me.path = args[0]
		return me.Run(cmd.Context(), cmd.OutOrStdout())
	}

	return cmd
}

func (me *Handler) Run(ctx context.Context, out io.Writer) error {
	logger := zerolog.Ctx(ctx)

	session, err := replay.NewSession(ctx)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)

	w, err := watcher.New(watcher.Config{Path: me.path, Debounce: me.debounce})
	if err != nil {
		return err
	}
	defer func() {
		if err := w.Stop(); err != nil {
			logger.Warn().Err(err).Msg("stopping watcher")
		}
	}()

	onChange, err := w.Start(ctx)
	if err != nil {
		return err
	}

	emitted := 0
	emit := func() error {
		content, err := afero.ReadFile(me.fs, me.path)
		if err != nil {
			return errors.Errorf("reading %s: %w", me.path, err)
		}
		step, err := session.Next(ctx, string(content))
		if err != nil {
			return errors.Errorf("processing %s: %w", me.path, err)
		}
		step.File = me.path
		if err := enc.Encode(step); err != nil {
			return errors.Errorf("writing step: %w", err)
		}
		emitted++
		return nil
	}

	if err := emit(); err != nil {
		return err
	}

	for me.count <= 0 || emitted < me.count {
		select {
		case <-ctx.Done():
			return nil
		case <-onChange:
			// a half-written file that fails to read or parse is picked up by the next save
			if err := emit(); err != nil {
				logger.Warn().Err(err).Msg("skipping revision")
			}
		}
	}

	return nil
}
