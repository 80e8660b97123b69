package delta_test

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/walteh/semdelta/pkg/delta"
	"github.com/walteh/semdelta/pkg/diff"
	"github.com/walteh/semdelta/pkg/lcs"
	"github.com/walteh/semdelta/pkg/resultcache"
	"github.com/walteh/semdelta/pkg/semtok"
	"github.com/walteh/semdelta/pkg/tracing"
)

// documents is a Tokenizer backed by an in-memory map of precomputed streams.
type documents struct {
	mu     sync.Mutex
	tokens map[string][]uint32
	err    error
}

func (d *documents) set(uri string, data []uint32) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.tokens[uri] = data
}

func (d *documents) Tokens(ctx context.Context, uri string) ([]uint32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	data, ok := d.tokens[uri]
	if !ok {
		return nil, errors.Errorf("document %s not open", uri)
	}
	return append([]uint32(nil), data...), nil
}

// recordingCache counts writes so tests can assert failed requests leave the cache alone.
type recordingCache struct {
	*resultcache.Store
	mu      sync.Mutex
	updates int
}

func (c *recordingCache) Update(ctx context.Context, uri string, id resultcache.ResultID, data []uint32) {
	c.mu.Lock()
	c.updates++
	c.mu.Unlock()
	c.Store.Update(ctx, uri, id, data)
}

func (c *recordingCache) updateCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.updates
}

func setup(t *testing.T) (*documents, *recordingCache, *delta.Engine) {
	t.Helper()
	docs := &documents{tokens: map[string][]uint32{}}
	cache := &recordingCache{Store: resultcache.NewStore()}
	return docs, cache, delta.NewEngine(docs, cache)
}

const uri = "file:///workspace/page.tmpl"

func TestEngineFirstRequestIsFull(t *testing.T) {
	ctx := context.Background()
	docs, cache, engine := setup(t)
	docs.set(uri, []uint32{1, 0, 5, 0, 0})

	res, err := engine.ComputeEdits(ctx, uri, "")
	require.NoError(t, err)
	assert.False(t, res.Delta)
	assert.Equal(t, []uint32{1, 0, 5, 0, 0}, res.Data)
	assert.NotEmpty(t, res.ResultID)

	cached, ok := cache.Get(ctx, uri, res.ResultID)
	require.True(t, ok, "full result should be cached")
	assert.Equal(t, res.Data, cached)
}

func TestEngineDeltaFlow(t *testing.T) {
	ctx := context.Background()
	docs, cache, engine := setup(t)

	docs.set(uri, []uint32{1, 0, 5, 0, 0, 2, 3, 7, 1, 0})
	first, err := engine.ComputeFull(ctx, uri)
	require.NoError(t, err)

	docs.set(uri, []uint32{1, 0, 5, 0, 0, 2, 3, 7, 1, 0, 1, 1, 4, 2, 0})
	second, err := engine.ComputeEdits(ctx, uri, first.ResultID)
	require.NoError(t, err)
	require.True(t, second.Delta)
	assert.NotEqual(t, first.ResultID, second.ResultID)
	assert.Equal(t, []delta.Edit{{Start: 10, DeleteCount: 0, Data: []uint32{1, 1, 4, 2, 0}}}, second.Edits)

	docs.set(uri, []uint32{1, 0, 5, 0, 0, 2, 3, 8, 1, 0, 1, 1, 4, 2, 0})
	third, err := engine.ComputeEdits(ctx, uri, second.ResultID)
	require.NoError(t, err)
	require.True(t, third.Delta)
	assert.Equal(t, []delta.Edit{{Start: 5, DeleteCount: 5, Data: []uint32{2, 3, 8, 1, 0}}}, third.Edits)

	// the stream behind an older id has been superseded
	fourth, err := engine.ComputeEdits(ctx, uri, first.ResultID)
	require.NoError(t, err)
	assert.False(t, fourth.Delta)
	assert.Equal(t, []uint32{1, 0, 5, 0, 0, 2, 3, 8, 1, 0, 1, 1, 4, 2, 0}, fourth.Data)

	assert.Equal(t, 4, cache.updateCount(), "every successful request refreshes the cache")
	_, ok := cache.Get(ctx, uri, fourth.ResultID)
	assert.True(t, ok)
}

func TestEngineUnknownPreviousID(t *testing.T) {
	ctx := context.Background()
	docs, cache, engine := setup(t)
	docs.set(uri, []uint32{0, 0, 3, 2, 0})

	res, err := engine.ComputeEdits(ctx, uri, "never-issued")
	require.NoError(t, err)
	assert.False(t, res.Delta)
	assert.Equal(t, []uint32{0, 0, 3, 2, 0}, res.Data)
	assert.Nil(t, res.Edits)
	assert.Equal(t, 1, cache.updateCount())
}

func TestEngineUnchangedDocument(t *testing.T) {
	ctx := context.Background()
	docs, _, engine := setup(t)
	docs.set(uri, []uint32{0, 0, 3, 2, 0, 0, 4, 1, 1, 0})

	first, err := engine.ComputeFull(ctx, uri)
	require.NoError(t, err)
	second, err := engine.ComputeEdits(ctx, uri, first.ResultID)
	require.NoError(t, err)
	assert.True(t, second.Delta)
	assert.Empty(t, second.Edits)
	assert.NotEqual(t, first.ResultID, second.ResultID)
}

func TestEngineFailuresLeaveCacheUntouched(t *testing.T) {
	tests := []struct {
		name      string
		prepare   func(docs *documents) context.Context
		errTarget func(t *testing.T, err error)
	}{
		{
			name: "test_tokenizer_error",
			prepare: func(docs *documents) context.Context {
				docs.err = errors.New("parse exploded")
				return context.Background()
			},
			errTarget: func(t *testing.T, err error) {
				assert.Contains(t, err.Error(), "parse exploded")
			},
		},
		{
			name: "test_malformed_stream",
			prepare: func(docs *documents) context.Context {
				docs.set(uri, []uint32{1, 2, 3, 4, 5, 6})
				return context.Background()
			},
			errTarget: func(t *testing.T, err error) {
				var malformed *semtok.MalformedStreamError
				require.True(t, errors.As(err, &malformed))
				assert.Equal(t, 6, malformed.Length)
			},
		},
		{
			name: "test_cancelled_request",
			prepare: func(docs *documents) context.Context {
				docs.set(uri, []uint32{9, 9, 9, 9, 9})
				ctx, cancel := context.WithCancel(context.Background())
				cancel()
				return ctx
			},
			errTarget: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, context.Canceled)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			docs, cache, engine := setup(t)
			docs.set(uri, []uint32{1, 0, 5, 0, 0})
			first, err := engine.ComputeFull(context.Background(), uri)
			require.NoError(t, err)
			require.Equal(t, 1, cache.updateCount())

			ctx := tt.prepare(docs)

			for _, compute := range []func() (*delta.Result, error){
				func() (*delta.Result, error) { return engine.ComputeEdits(ctx, uri, first.ResultID) },
				func() (*delta.Result, error) { return engine.ComputeFull(ctx, uri) },
			} {
				res, err := compute()
				require.Error(t, err)
				assert.Nil(t, res)
				tt.errTarget(t, err)
			}

			assert.Equal(t, 1, cache.updateCount(), "failed requests must not write the cache")
			cached, ok := cache.Get(context.Background(), uri, first.ResultID)
			require.True(t, ok, "previous result must still be cached")
			assert.Equal(t, []uint32{1, 0, 5, 0, 0}, cached)
		})
	}
}

func TestEngineTokenizerFunc(t *testing.T) {
	calls := 0
	engine := delta.NewEngine(delta.TokenizerFunc(func(ctx context.Context, uri string) ([]uint32, error) {
		calls++
		return []uint32{0, 0, uint32(calls), 0, 0}, nil
	}), resultcache.NewStore(), delta.WithAlignOptions(lcs.WithMaxCells(0)))

	first, err := engine.ComputeEdits(context.Background(), uri, "")
	require.NoError(t, err)
	second, err := engine.ComputeEdits(context.Background(), uri, first.ResultID)
	require.NoError(t, err)
	require.True(t, second.Delta)
	assert.Equal(t, []delta.Edit{{Start: 0, DeleteCount: 5, Data: []uint32{0, 0, 2, 0, 0}}}, second.Edits)
}

func TestEngineConcurrentDocuments(t *testing.T) {
	ctx := context.Background()
	docs, _, engine := setup(t)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			doc := fmt.Sprintf("file:///workspace/%d.tmpl", i)

			current := []uint32{}
			docs.set(doc, current)
			res, err := engine.ComputeEdits(ctx, doc, "")
			if !assert.NoError(t, err) {
				return
			}
			for step := 0; step < 20; step++ {
				next := append(append([]uint32(nil), current...), uint32(step), 1, uint32(i+1), 0, 0)
				if step%3 == 2 {
					next = next[semtok.RecordWidth:]
				}
				docs.set(doc, next)

				res2, err := engine.ComputeEdits(ctx, doc, res.ResultID)
				if !assert.NoError(t, err) || !assert.True(t, res2.Delta) {
					return
				}
				applied, err := delta.Apply(current, res2.Edits)
				if !assert.NoError(t, err) || !assert.Empty(t, diff.Streams(next, applied)) {
					return
				}
				current, res = next, res2
			}
		}(i)
	}
	wg.Wait()
}

func TestEngineSpans(t *testing.T) {
	ctx := context.Background()
	exporter := tracetest.NewInMemoryExporter()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))

	docs := &documents{tokens: map[string][]uint32{}}
	engine := delta.NewEngine(docs, resultcache.NewStore(), delta.WithTracer(provider.Tracer("test-tracer")))

	docs.set(uri, []uint32{1, 0, 5, 0, 0})
	first, err := engine.ComputeFull(ctx, uri)
	require.NoError(t, err)

	docs.set(uri, []uint32{1, 0, 5, 0, 0, 0, 2, 3, 1, 0})
	_, err = engine.ComputeEdits(ctx, uri, first.ResultID)
	require.NoError(t, err)

	_, err = engine.ComputeEdits(ctx, "file:///missing.tmpl", "")
	require.Error(t, err)

	spans := exporter.GetSpans()
	require.Len(t, spans, 3)

	attr := func(span tracetest.SpanStub, key string) (attribute.Value, bool) {
		for _, kv := range span.Attributes {
			if string(kv.Key) == key {
				return kv.Value, true
			}
		}
		return attribute.Value{}, false
	}

	assert.Equal(t, tracing.SpanComputeFull, spans[0].Name)
	assert.Equal(t, codes.Ok, spans[0].Status.Code)
	values, ok := attr(spans[0], tracing.AttrValues)
	require.True(t, ok)
	assert.Equal(t, int64(5), values.AsInt64())

	assert.Equal(t, tracing.SpanComputeEdits, spans[1].Name)
	isDelta, ok := attr(spans[1], tracing.AttrDelta)
	require.True(t, ok)
	assert.True(t, isDelta.AsBool())
	edits, ok := attr(spans[1], tracing.AttrEdits)
	require.True(t, ok)
	assert.Equal(t, int64(1), edits.AsInt64())
	previous, ok := attr(spans[1], tracing.AttrPreviousResultID)
	require.True(t, ok)
	assert.Equal(t, string(first.ResultID), previous.AsString())

	assert.Equal(t, codes.Error, spans[2].Status.Code)
	require.NotEmpty(t, spans[2].Events, "the error should be recorded")
}
