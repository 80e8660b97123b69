package replay

import (
	"context"
	"encoding/json"
	"io"
	"path"
	"slices"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"gitlab.com/tozd/go/errors"

	"github.com/walteh/semdelta/pkg/config"
	"github.com/walteh/semdelta/pkg/delta"
	"github.com/walteh/semdelta/pkg/lsp"
	"github.com/walteh/semdelta/pkg/lsp/protocol"
	"github.com/walteh/semdelta/pkg/resultcache"
	"github.com/walteh/semdelta/pkg/tracing"
)

const documentURI = protocol.DocumentURI("file:///replay.tmpl")

type Handler struct {
	fs      afero.Fs
	pattern string
}

// Step is one replayed revision.
type Step struct {
	File string `json:"file"`
	// ResultID is the id cached for the document after the step, the one a
	// client would send with its next delta request.
	ResultID string `json:"resultId"`
	// DeltaResultID is the id the delta response carried, superseded by the
	// verifying full request.
	DeltaResultID string `json:"deltaResultId,omitempty"`
	Delta         bool   `json:"delta"`
	// Values is the length of the full stream after this revision.
	Values int `json:"values"`
	// Edits is empty for full results.
	Edits []protocol.SemanticTokensEdit `json:"edits,omitempty"`
	// Verified reports that applying Edits to the previous stream produced
	// the same stream a full request returns.
	Verified bool `json:"verified"`
}

func NewReplayCommand(fs afero.Fs) *cobra.Command {
	me := &Handler{fs: fs}

	cmd := &cobra.Command{
		Use:   "replay GLOB",
		Short: "feed matching files, in order, as successive revisions of one document",
	}

	cmd.Args = cobra.ExactArgs(1)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		me.pattern = args[0]
		return me.Run(cmd.Context(), cmd.OutOrStdout())
	}

	return cmd
}

// revisions expands the glob. Absolute patterns are split so the walk starts
// at their static prefix.
func (me *Handler) revisions() ([]string, error) {
	base, pattern := doublestar.SplitPattern(me.pattern)

	fsys := afero.NewIOFS(me.fs)
	if base != "." {
		fsys = afero.NewIOFS(afero.NewBasePathFs(me.fs, base))
	}

	matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
	if err != nil {
		return nil, errors.Errorf("expanding %s: %w", me.pattern, err)
	}
	if len(matches) == 0 {
		return nil, errors.Errorf("no files match %s", me.pattern)
	}

	sort.Strings(matches)
	for i, m := range matches {
		if base != "." {
			matches[i] = path.Join(base, m)
		}
	}
	return matches, nil
}

func (me *Handler) Run(ctx context.Context, out io.Writer) error {
	logger := zerolog.Ctx(ctx)

	files, err := me.revisions()
	if err != nil {
		return err
	}

	session, err := NewSession(ctx)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)

	for _, file := range files {
		content, err := afero.ReadFile(me.fs, file)
		if err != nil {
			return errors.Errorf("reading %s: %w", file, err)
		}

		step, err := session.Next(ctx, string(content))
		if err != nil {
			return errors.Errorf("replaying %s: %w", file, err)
		}
		step.File = file

		logger.Debug().Str("file", file).Bool("delta", step.Delta).Int("edits", len(step.Edits)).Msg("replayed revision")

		if err := enc.Encode(step); err != nil {
			return errors.Errorf("writing step: %w", err)
		}
	}

	return nil
}

// Session feeds successive revisions of one document to a server, checking
// every delta against a full request.
type Session struct {
	server   *lsp.Server
	version  int32
	previous *protocol.SemanticTokens
}

// NewSession builds a server from the config, logger and tracer carried by ctx.
func NewSession(ctx context.Context) (*Session, error) {
	cfg := config.FromContext(ctx)

	cacheOpts, err := cfg.CacheOptions()
	if err != nil {
		return nil, errors.Errorf("configuring cache: %w", err)
	}

	return &Session{
		server: lsp.NewServer(ctx,
			lsp.WithCache(resultcache.NewStore(cacheOpts...)),
			lsp.WithAlignOptions(cfg.AlignOptions()...),
			lsp.WithTracer(tracing.TracerFromContext(ctx)),
		),
	}, nil
}

// Next publishes text as the next revision. The first revision opens the
// document and yields a full result.
func (s *Session) Next(ctx context.Context, text string) (*Step, error) {
	s.version++
	step, current, err := s.step(ctx, text)
	if err != nil {
		return nil, err
	}
	s.previous = current
	return step, nil
}

func (s *Session) step(ctx context.Context, text string) (*Step, *protocol.SemanticTokens, error) {
	ident := protocol.TextDocumentIdentifier{URI: documentURI}

	if s.previous == nil {
		if err := s.server.DidOpen(ctx, &protocol.DidOpenTextDocumentParams{
			TextDocument: protocol.TextDocumentItem{URI: documentURI, LanguageID: "gotmpl", Version: s.version, Text: text},
		}); err != nil {
			return nil, nil, err
		}

		full, err := s.server.SemanticTokensFull(ctx, &protocol.SemanticTokensParams{TextDocument: ident})
		if err != nil {
			return nil, nil, err
		}
		return &Step{ResultID: full.ResultID, Values: len(full.Data), Verified: true}, full, nil
	}

	if err := s.server.DidChange(ctx, &protocol.DidChangeTextDocumentParams{
		TextDocument:   protocol.VersionedTextDocumentIdentifier{Version: s.version, TextDocumentIdentifier: ident},
		ContentChanges: []protocol.TextDocumentContentChangeEvent{{Text: text}},
	}); err != nil {
		return nil, nil, err
	}

	res, err := s.server.SemanticTokensFullDelta(ctx, &protocol.SemanticTokensDeltaParams{
		TextDocument:     ident,
		PreviousResultID: s.previous.ResultID,
	})
	if err != nil {
		return nil, nil, err
	}

	switch r := res.(type) {
	case *protocol.SemanticTokens:
		return &Step{ResultID: r.ResultID, Values: len(r.Data), Verified: true}, r, nil
	case *protocol.SemanticTokensDelta:
		edits := make([]delta.Edit, 0, len(r.Edits))
		for _, e := range r.Edits {
			edits = append(edits, delta.Edit{Start: e.Start, DeleteCount: e.DeleteCount, Data: e.Data})
		}
		applied, err := delta.Apply(s.previous.Data, edits)
		if err != nil {
			return nil, nil, errors.Errorf("applying edits: %w", err)
		}

		// the full result is the reference for the client's reconstruction and
		// becomes the previous result of the next revision
		reference, err := s.server.SemanticTokensFull(ctx, &protocol.SemanticTokensParams{TextDocument: ident})
		if err != nil {
			return nil, nil, err
		}

		return &Step{
			ResultID:      reference.ResultID,
			DeltaResultID: r.ResultID,
			Delta:         true,
			Values:        len(applied),
			Edits:         r.Edits,
			Verified:      slices.Equal(applied, reference.Data),
		}, reference, nil
	default:
		return nil, nil, errors.Errorf("unexpected result type %T", res)
	}
}
