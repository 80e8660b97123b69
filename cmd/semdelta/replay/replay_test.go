package replay

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/walteh/semdelta/pkg/config"
	"github.com/walteh/semdelta/pkg/lsp/protocol"
)

func TestSessionReportsCachedResultID(t *testing.T) {
	ctx := config.Default().WithContext(context.Background())

	session, err := NewSession(ctx)
	require.NoError(t, err)

	first, err := session.Next(ctx, "{{ .Name }}")
	require.NoError(t, err)
	assert.False(t, first.Delta)
	assert.Empty(t, first.DeltaResultID)

	second, err := session.Next(ctx, "{{ .Name }}\n{{ .Age }}")
	require.NoError(t, err)
	require.True(t, second.Delta)
	require.True(t, second.Verified)
	assert.NotEmpty(t, second.DeltaResultID)
	assert.NotEqual(t, second.DeltaResultID, second.ResultID)

	// the reported id must still be cached: a delta against it on an
	// unchanged document is an empty edit list, not a full fallback
	res, err := session.server.SemanticTokensFullDelta(ctx, &protocol.SemanticTokensDeltaParams{
		TextDocument:     protocol.TextDocumentIdentifier{URI: documentURI},
		PreviousResultID: second.ResultID,
	})
	require.NoError(t, err)
	d, ok := res.(*protocol.SemanticTokensDelta)
	require.True(t, ok, "expected a delta, got %T", res)
	assert.Empty(t, d.Edits)
}
