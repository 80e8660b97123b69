package tokens

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/semdelta/pkg/semtok"
)

type Handler struct {
	fs     afero.Fs
	path   string
	decode bool
}

func NewTokensCommand(fs afero.Fs) *cobra.Command {
	me := &Handler{fs: fs}

	cmd := &cobra.Command{
		Use:   "tokens FILE",
		Short: "print the semantic tokens of a go template",
	}

	cmd.Flags().BoolVar(&me.decode, "decode", false, "print absolute positions and names instead of the encoded array")
	cmd.Args = cobra.ExactArgs(1)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		me.path = args[0]
		return me.Run(cmd.Context(), cmd.OutOrStdout())
	}

	return cmd
}

func (me *Handler) Run(ctx context.Context, out io.Writer) error {
	content, err := afero.ReadFile(me.fs, me.path)
	if err != nil {
		return errors.Errorf("reading %s: %w", me.path, err)
	}

	data, err := semtok.Tokenize(ctx, content)
	if err != nil {
		return errors.Errorf("tokenizing %s: %w", me.path, err)
	}

	if !me.decode {
		if err := json.NewEncoder(out).Encode(data); err != nil {
			return errors.Errorf("writing tokens: %w", err)
		}
		return nil
	}

	records, err := semtok.ToRecords(data)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "LINE\tCHAR\tLENGTH\tTYPE\tMODIFIERS")
	for _, tok := range semtok.Decode(records) {
		fmt.Fprintf(w, "%d\t%d\t%d\t%s\t%s\n", tok.Line, tok.Character, tok.Length, tok.Type, tok.Modifier)
	}
	return w.Flush()
}
