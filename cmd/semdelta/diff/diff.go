package diff

import (
	"context"
	"encoding/json"
	"io"

	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"
	"go.uber.org/multierr"

	"github.com/walteh/semdelta/pkg/config"
	"github.com/walteh/semdelta/pkg/delta"
	"github.com/walteh/semdelta/pkg/semtok"
)

type Handler struct {
	fs      afero.Fs
	oldPath string
	newPath string
	indent  bool
}

func NewDiffCommand(fs afero.Fs) *cobra.Command {
	me := &Handler{fs: fs}

	cmd := &cobra.Command{
		Use:   "diff OLD NEW",
		Short: "print the semantic token edits between two JSON token arrays",
	}

	cmd.Flags().BoolVar(&me.indent, "indent", false, "indent the JSON output")
	cmd.Args = cobra.ExactArgs(2)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		me.oldPath, me.newPath = args[0], args[1]
		return me.Run(cmd.Context(), cmd.OutOrStdout())
	}

	return cmd
}

// readStream loads a flat token array and checks it holds whole records.
func (me *Handler) readStream(path string) ([]uint32, error) {
	raw, err := afero.ReadFile(me.fs, path)
	if err != nil {
		return nil, errors.Errorf("reading %s: %w", path, err)
	}

	var data []uint32
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, errors.Errorf("decoding %s: %w", path, err)
	}

	if _, err := semtok.ToRecords(data); err != nil {
		return nil, errors.Errorf("%s: %w", path, err)
	}

	return data, nil
}

func (me *Handler) Run(ctx context.Context, out io.Writer) error {
	oldData, oldErr := me.readStream(me.oldPath)
	newData, newErr := me.readStream(me.newPath)
	if err := multierr.Append(oldErr, newErr); err != nil {
		return err
	}

	edits, err := delta.Diff(oldData, newData, config.FromContext(ctx).AlignOptions()...)
	if err != nil {
		return errors.Errorf("computing edits: %w", err)
	}

	zerolog.Ctx(ctx).Debug().
		Int("old_values", len(oldData)).
		Int("new_values", len(newData)).
		Int("edits", len(edits)).
		Msg("computed edits")

	enc := json.NewEncoder(out)
	if me.indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(edits); err != nil {
		return errors.Errorf("writing edits: %w", err)
	}

	return nil
}
