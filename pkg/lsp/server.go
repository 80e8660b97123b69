package lsp

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/spf13/afero"
	"gitlab.com/tozd/go/errors"
	"go.opentelemetry.io/otel/trace"

	"github.com/walteh/semdelta/pkg/delta"
	"github.com/walteh/semdelta/pkg/lcs"
	"github.com/walteh/semdelta/pkg/lsp/protocol"
	"github.com/walteh/semdelta/pkg/resultcache"
	"github.com/walteh/semdelta/pkg/semtok"
)

const languageID = "gotmpl"

// Server represents an LSP server instance
type Server struct {
	// Server identification
	id string

	documents *DocumentManager
	cache     resultcache.Cache
	engine    *delta.Engine

	serverCapabilities protocol.ServerCapabilities
}

type ServerOption func(*serverConfig)

type serverConfig struct {
	fs        afero.Fs
	cache     resultcache.Cache
	alignOpts []lcs.Option
	tracer    trace.Tracer
}

// WithFs lets requests for unopened documents be served from fs.
func WithFs(fs afero.Fs) ServerOption {
	return func(c *serverConfig) {
		c.fs = fs
	}
}

func WithCache(cache resultcache.Cache) ServerOption {
	return func(c *serverConfig) {
		c.cache = cache
	}
}

func WithAlignOptions(opts ...lcs.Option) ServerOption {
	return func(c *serverConfig) {
		c.alignOpts = append(c.alignOpts, opts...)
	}
}

// WithTracer traces delta computations with tracer instead of the global provider.
func WithTracer(tracer trace.Tracer) ServerOption {
	return func(c *serverConfig) {
		c.tracer = tracer
	}
}

func NewServer(ctx context.Context, opts ...ServerOption) *Server {
	cfg := &serverConfig{}
	for _, opt := range opts {
		opt(cfg)
	}
	if cfg.cache == nil {
		cfg.cache = resultcache.NewStore()
	}

	s := &Server{
		id:        uuid.NewString(),
		documents: NewDocumentManager(cfg.fs),
		cache:     cfg.cache,
	}
	s.engine = delta.NewEngine(delta.TokenizerFunc(s.tokens), cfg.cache,
		delta.WithAlignOptions(cfg.alignOpts...),
		delta.WithTracer(cfg.tracer),
	)

	zerolog.Ctx(ctx).Debug().Str("server_id", s.id).Msg("created semantic token server")

	return s
}

func (s *Server) ID() string {
	return s.id
}

func (s *Server) Documents() *DocumentManager {
	return s.documents
}

// tokens is the engine's tokenizer: it reads the current text of uri.
func (s *Server) tokens(ctx context.Context, uri string) ([]uint32, error) {
	doc, ok := s.documents.Get(protocol.DocumentURI(uri))
	if !ok {
		return nil, errors.Errorf("document not found: %s", uri)
	}

	data, err := semtok.Tokenize(ctx, []byte(doc.Content))
	if err != nil {
		return nil, errors.Errorf("generating semantic tokens: %w", err)
	}
	return data, nil
}

func (s *Server) Initialize(ctx context.Context, params *protocol.InitializeParams) (*protocol.InitializeResult, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("root_uri", string(params.RootURI)).Msg("initializing server")

	legend := semtok.DefaultLegend()

	s.serverCapabilities = protocol.ServerCapabilities{
		TextDocumentSync: &protocol.TextDocumentSyncOptions{
			OpenClose: true,
			Change:    protocol.Full,
		},
		SemanticTokensProvider: &protocol.SemanticTokensOptions{
			Legend: protocol.SemanticTokensLegend{
				TokenTypes:     legend.TokenTypes,
				TokenModifiers: legend.TokenModifiers,
			},
			Full: &protocol.SemanticTokensFullDelta{Delta: true},
		},
	}

	return &protocol.InitializeResult{
		Capabilities: s.serverCapabilities,
		ServerInfo:   &protocol.ServerInfo{Name: "semdelta"},
	}, nil
}

func (s *Server) DidOpen(ctx context.Context, params *protocol.DidOpenTextDocumentParams) error {
	zerolog.Ctx(ctx).Debug().Str("uri", string(params.TextDocument.URI)).Msg("document opened")

	s.documents.Store(params.TextDocument.URI, &Document{
		URI:        string(params.TextDocument.URI),
		LanguageID: params.TextDocument.LanguageID,
		Version:    params.TextDocument.Version,
		Content:    params.TextDocument.Text,
	})

	return nil
}

func (s *Server) DidChange(ctx context.Context, params *protocol.DidChangeTextDocumentParams) error {
	logger := zerolog.Ctx(ctx)
	logger.Debug().
		Str("uri", string(params.TextDocument.URI)).
		Int32("version", params.TextDocument.Version).
		Msg("document changed")

	// full sync: the last change carries the whole text
	if len(params.ContentChanges) == 0 {
		return nil
	}

	language := languageID
	if prev, ok := s.documents.GetNoFallback(params.TextDocument.URI); ok {
		language = prev.LanguageID
	}

	s.documents.Store(params.TextDocument.URI, &Document{
		URI:        string(params.TextDocument.URI),
		LanguageID: language,
		Version:    params.TextDocument.Version,
		Content:    params.ContentChanges[len(params.ContentChanges)-1].Text,
	})

	return nil
}

func (s *Server) DidClose(ctx context.Context, params *protocol.DidCloseTextDocumentParams) error {
	zerolog.Ctx(ctx).Debug().Str("uri", string(params.TextDocument.URI)).Msg("document closed")

	s.documents.Delete(params.TextDocument.URI)
	s.cache.Evict(ctx, normalizeURI(string(params.TextDocument.URI)))

	return nil
}

func (s *Server) SemanticTokensFull(ctx context.Context, params *protocol.SemanticTokensParams) (*protocol.SemanticTokens, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().
		Str("uri", string(params.TextDocument.URI)).
		Str("method", "textDocument/semanticTokens/full").
		Msg("semantic tokens request received")

	res, err := s.engine.ComputeFull(ctx, normalizeURI(string(params.TextDocument.URI)))
	if err != nil {
		logger.Error().Err(err).Msg("failed to generate semantic tokens")
		return nil, err
	}

	return &protocol.SemanticTokens{
		ResultID: string(res.ResultID),
		Data:     protocol.NonNilSlice(res.Data),
	}, nil
}

// SemanticTokensFullDelta returns *protocol.SemanticTokensDelta when the
// previous result is still cached and *protocol.SemanticTokens otherwise.
func (s *Server) SemanticTokensFullDelta(ctx context.Context, params *protocol.SemanticTokensDeltaParams) (any, error) {
	logger := zerolog.Ctx(ctx)
	logger.Debug().
		Str("uri", string(params.TextDocument.URI)).
		Str("method", "textDocument/semanticTokens/full/delta").
		Str("previous_result_id", params.PreviousResultID).
		Msg("semantic tokens delta request received")

	res, err := s.engine.ComputeEdits(ctx, normalizeURI(string(params.TextDocument.URI)), resultcache.ResultID(params.PreviousResultID))
	if err != nil {
		logger.Error().Err(err).Msg("failed to generate semantic token edits")
		return nil, err
	}

	if !res.Delta {
		return &protocol.SemanticTokens{
			ResultID: string(res.ResultID),
			Data:     protocol.NonNilSlice(res.Data),
		}, nil
	}

	edits := make([]protocol.SemanticTokensEdit, 0, len(res.Edits))
	for _, e := range res.Edits {
		edits = append(edits, protocol.SemanticTokensEdit{
			Start:       e.Start,
			DeleteCount: e.DeleteCount,
			Data:        protocol.NonNilSlice(e.Data),
		})
	}

	return &protocol.SemanticTokensDelta{
		ResultID: string(res.ResultID),
		Edits:    edits,
	}, nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	zerolog.Ctx(ctx).Debug().Str("server_id", s.id).Msg("server shutting down")
	return nil
}
