package delta

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/walteh/semdelta/pkg/lcs"
	"github.com/walteh/semdelta/pkg/resultcache"
	"github.com/walteh/semdelta/pkg/semtok"
	"github.com/walteh/semdelta/pkg/tracing"
)

// Tokenizer computes the full semantic token stream of a document. The result
// must hold whole records.
type Tokenizer interface {
	Tokens(ctx context.Context, uri string) ([]uint32, error)
}

// TokenizerFunc adapts a function to Tokenizer.
type TokenizerFunc func(ctx context.Context, uri string) ([]uint32, error)

func (f TokenizerFunc) Tokens(ctx context.Context, uri string) ([]uint32, error) {
	return f(ctx, uri)
}

// Result is either a full token stream or an edit script against the stream
// published under the previous result id. Both carry the id of the new stream.
type Result struct {
	ResultID resultcache.ResultID
	// Delta reports whether Edits (true) or Data (false) is populated.
	Delta bool
	Data  []uint32
	Edits []Edit
}

// Engine answers semantic token requests with deltas whenever the client
// presents the id of the stream cached for the document.
type Engine struct {
	tokenizer Tokenizer
	cache     resultcache.Cache
	alignOpts []lcs.Option
	tracer    trace.Tracer
}

type EngineOption func(*Engine)

// WithAlignOptions forwards options to the sequence aligner.
func WithAlignOptions(opts ...lcs.Option) EngineOption {
	return func(e *Engine) {
		e.alignOpts = append(e.alignOpts, opts...)
	}
}

// WithTracer replaces the tracer taken from the global provider. A nil tracer is ignored.
func WithTracer(tracer trace.Tracer) EngineOption {
	return func(e *Engine) {
		if tracer != nil {
			e.tracer = tracer
		}
	}
}

func NewEngine(tokenizer Tokenizer, cache resultcache.Cache, opts ...EngineOption) *Engine {
	e := &Engine{
		tokenizer: tokenizer,
		cache:     cache,
		tracer:    otel.Tracer("github.com/walteh/semdelta/pkg/delta"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) tokens(ctx context.Context, uri string) ([]uint32, semtok.Stream, error) {
	data, err := e.tokenizer.Tokens(ctx, uri)
	if err != nil {
		return nil, nil, errors.Errorf("computing semantic tokens for %s: %w", uri, err)
	}
	// a tokenizer that swallowed a cancellation must not lead to a cache write
	if err := ctx.Err(); err != nil {
		return nil, nil, errors.Errorf("computing semantic tokens for %s: %w", uri, err)
	}

	records, err := semtok.ToRecords(data)
	if err != nil {
		return nil, nil, errors.Errorf("tokenizer output for %s: %w", uri, err)
	}

	return data, records, nil
}

// ComputeFull returns the complete stream for uri and caches it.
func (e *Engine) ComputeFull(ctx context.Context, uri string) (res *Result, err error) {
	ctx, span := e.tracer.Start(ctx, tracing.SpanComputeFull, trace.WithAttributes(attribute.String(tracing.AttrURI, uri)))
	defer func() { endSpan(span, res, err) }()

	data, _, err := e.tokens(ctx, uri)
	if err != nil {
		return nil, err
	}

	id := e.cache.NextResultID()
	e.cache.Update(ctx, uri, id, data)

	zerolog.Ctx(ctx).Debug().
		Str("uri", uri).
		Str("result_id", string(id)).
		Int("tokens", len(data)/semtok.RecordWidth).
		Msg("computed full semantic tokens")

	return &Result{ResultID: id, Data: data}, nil
}

// ComputeEdits returns the edits from the stream published as previous to the
// current stream of uri, or the full current stream when previous is empty or
// no longer cached. The current stream is cached either way.
func (e *Engine) ComputeEdits(ctx context.Context, uri string, previous resultcache.ResultID) (res *Result, err error) {
	ctx, span := e.tracer.Start(ctx, tracing.SpanComputeEdits, trace.WithAttributes(
		attribute.String(tracing.AttrURI, uri),
		attribute.String(tracing.AttrPreviousResultID, string(previous)),
	))
	defer func() { endSpan(span, res, err) }()

	logger := zerolog.Ctx(ctx)
	started := time.Now()

	data, newRecords, err := e.tokens(ctx, uri)
	if err != nil {
		return nil, err
	}

	id := e.cache.NextResultID()

	var old []uint32
	found := false
	if previous != "" {
		old, found = e.cache.Get(ctx, uri, previous)
	}
	if !found {
		e.cache.Update(ctx, uri, id, data)

		logger.Debug().
			Str("uri", uri).
			Str("previous_result_id", string(previous)).
			Str("result_id", string(id)).
			Msg("no cached semantic tokens, returning full result")

		return &Result{ResultID: id, Data: data}, nil
	}

	oldRecords, err := semtok.ToRecords(old)
	if err != nil {
		return nil, errors.Errorf("cached tokens for %s: %w", uri, err)
	}

	edits := Compact(newRecords, lcs.Changes(lcs.Align(oldRecords, newRecords, e.alignOpts...)))

	e.cache.Update(ctx, uri, id, data)

	logger.Debug().
		Str("uri", uri).
		Str("previous_result_id", string(previous)).
		Str("result_id", string(id)).
		Int("old_tokens", len(oldRecords)).
		Int("new_tokens", len(newRecords)).
		Int("edits", len(edits)).
		Dur("took", time.Since(started)).
		Msg("computed semantic token edits")

	return &Result{ResultID: id, Delta: true, Edits: edits}, nil
}

func endSpan(span trace.Span, res *Result, err error) {
	defer span.End()

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}

	span.SetAttributes(
		attribute.String(tracing.AttrResultID, string(res.ResultID)),
		attribute.Bool(tracing.AttrDelta, res.Delta),
		attribute.Int(tracing.AttrEdits, len(res.Edits)),
		attribute.Int(tracing.AttrValues, len(res.Data)),
	)
	span.SetStatus(codes.Ok, "")
}
