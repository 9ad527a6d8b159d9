package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKindFromCard(t *testing.T) {
	tests := []struct {
		name string
		card *AgentCard
		want Kind
	}{
		{
			name: "google provider",
			card: &AgentCard{Name: "Gemini CLI Agent", Provider: &AgentProvider{Organization: "Google"}},
			want: KindGemini,
		},
		{
			name: "openai provider",
			card: &AgentCard{Name: "Codex", Provider: &AgentProvider{Organization: "OpenAI"}},
			want: KindCodex,
		},
		{
			name: "anthropic provider",
			card: &AgentCard{Name: "Claude Code", Provider: &AgentProvider{Organization: "Anthropic"}},
			want: KindClaude,
		},
		{
			name: "hint in name only",
			card: &AgentCard{Name: "google-coding-agent"},
			want: KindGemini,
		},
		{
			name: "unmatched organization",
			card: &AgentCard{Name: "mystery", Provider: &AgentProvider{Organization: "Example Corp"}},
			want: KindGeneric,
		},
		{
			name: "nil card",
			card: nil,
			want: KindGeneric,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindFromCard(tt.card))
		})
	}
}

func TestDetector_DetectKind(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, AgentCardPath, r.URL.Path)
		hits.Add(1)
		json.NewEncoder(w).Encode(AgentCard{
			Name:     "Codex",
			Provider: &AgentProvider{Organization: "OpenAI"},
		})
	}))
	defer srv.Close()

	d := NewDetector()

	kind, err := d.DetectKind(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, KindCodex, kind)

	// Second lookup for the same address is served from the cache.
	kind, err = d.DetectKind(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, KindCodex, kind)
	assert.Equal(t, int32(1), hits.Load())

	// Forget drops the cache and the next lookup hits the server again.
	d.Forget(srv.URL)
	_, err = d.DetectKind(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, int32(2), hits.Load())
}

func TestDetector_DetectKind_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	d := NewDetector()

	kind, err := d.DetectKind(context.Background(), srv.URL)
	assert.Error(t, err)
	assert.Equal(t, KindGeneric, kind)
}
