package biz

import (
	"context"
	stderrors "errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kart-io/knowledge-clone/internal/clone/store"
	"github.com/kart-io/knowledge-clone/pkg/component/database"
	"github.com/kart-io/knowledge-clone/pkg/errors"
	dbopts "github.com/kart-io/knowledge-clone/pkg/options/database"
	"github.com/kart-io/knowledge-clone/pkg/options/credentials"
	"github.com/kart-io/knowledge-clone/pkg/options/settings"
)

func newProvider(t *testing.T, values map[string]string) (*ConfigProvider, *store.MemorySettings) {
	t.Helper()
	s := store.NewMemorySettings()
	for k, v := range values {
		require.NoError(t, s.Set(context.Background(), k, v))
	}
	return NewConfigProvider(s, settings.NewOptions(), credentials.NewOptions()), s
}

func TestRetrievalConfig_WebWeight(t *testing.T) {
	for v := 0; v <= 100; v++ {
		assert.Equal(t, 100-v, RetrievalConfig{VectorWeight: v}.WebWeight())
	}
}

func TestConfigProvider_Defaults(t *testing.T) {
	p, _ := newProvider(t, nil)
	cfg := p.Retrieval(context.Background())
	assert.Equal(t, RetrievalConfig{VectorWeight: 75, ResultLength: 200, SummarizeThreshold: 500}, cfg)
	assert.Equal(t, 25, cfg.WebWeight())
	assert.Equal(t, []string{}, p.KnowledgeSources(context.Background()))
}

func TestConfigProvider_MalformedAndClamped(t *testing.T) {
	tests := []struct {
		name   string
		values map[string]string
		want   RetrievalConfig
	}{
		{
			name:   "non numeric",
			values: map[string]string{store.KeyVectorPercentage: "abc", store.KeyResultLength: "", store.KeySummarizeThreshold: "1e3"},
			want:   RetrievalConfig{VectorWeight: 75, ResultLength: 200, SummarizeThreshold: 500},
		},
		{
			name:   "out of range",
			values: map[string]string{store.KeyVectorPercentage: "140", store.KeyResultLength: "-5", store.KeySummarizeThreshold: "0"},
			want:   RetrievalConfig{VectorWeight: 100, ResultLength: 200, SummarizeThreshold: 1},
		},
		{
			name:   "negative weight",
			values: map[string]string{store.KeyVectorPercentage: "-3", store.KeyResultLength: "300", store.KeySummarizeThreshold: " 120 "},
			want:   RetrievalConfig{VectorWeight: 0, ResultLength: 300, SummarizeThreshold: 120},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, _ := newProvider(t, tt.values)
			assert.Equal(t, tt.want, p.Retrieval(context.Background()))
		})
	}
}

func TestConfigProvider_UpdateRetrieval(t *testing.T) {
	p, _ := newProvider(t, nil)
	v, r := 40, 500
	cfg, err := p.UpdateRetrieval(context.Background(), &v, &r, nil)
	require.NoError(t, err)
	assert.Equal(t, RetrievalConfig{VectorWeight: 40, ResultLength: 500, SummarizeThreshold: 500}, cfg)
}

// rejectingSettings 写入包含 rejectKey 时整体失败。
type rejectingSettings struct {
	*store.MemorySettings
	rejectKey string
}

func (s *rejectingSettings) Set(ctx context.Context, key, value string) error {
	if key == s.rejectKey {
		return stderrors.New("write rejected")
	}
	return s.MemorySettings.Set(ctx, key, value)
}

func (s *rejectingSettings) SetMany(ctx context.Context, values map[string]string) error {
	if _, ok := values[s.rejectKey]; ok {
		return stderrors.New("write rejected")
	}
	return s.MemorySettings.SetMany(ctx, values)
}

func TestConfigProvider_UpdateRetrievalAllOrNothing(t *testing.T) {
	ctx := context.Background()
	s := &rejectingSettings{MemorySettings: store.NewMemorySettings(), rejectKey: store.KeySummarizeThreshold}
	p := NewConfigProvider(s, settings.NewOptions(), credentials.NewOptions())
	before := p.Retrieval(ctx)

	v, r, th := 10, 900, 50
	_, err := p.UpdateRetrieval(ctx, &v, &r, &th)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrInternal)
	assert.Equal(t, before, p.Retrieval(ctx))

	_, ok, _ := s.Get(ctx, store.KeyVectorPercentage)
	assert.False(t, ok)
}

func TestConfigProvider_ConcurrentKnowledgeSources(t *testing.T) {
	ctx := context.Background()
	opts := dbopts.NewOptions()
	opts.DSN = ":memory:"
	c, err := database.New(ctx, opts)
	require.NoError(t, err)
	defer c.Close()

	s, err := store.NewDBSettings(ctx, c.DB())
	require.NoError(t, err)
	p := NewConfigProvider(s, settings.NewOptions(), credentials.NewOptions())

	const n = 50
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := p.AddKnowledgeSource(ctx, fmt.Sprintf("doc-%02d.txt", i))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	sources := p.KnowledgeSources(ctx)
	assert.Len(t, sources, n)
	for i := range n {
		assert.Contains(t, sources, fmt.Sprintf("doc-%02d.txt", i))
	}
}

func TestConfigProvider_KnowledgeSources(t *testing.T) {
	ctx := context.Background()
	p, s := newProvider(t, map[string]string{store.KeyKnowledgeSources: "{not json"})
	assert.Equal(t, []string{}, p.KnowledgeSources(ctx))

	sources, err := p.AddKnowledgeSource(ctx, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt"}, sources)

	sources, err = p.AddKnowledgeSource(ctx, "a.txt")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt"}, sources)

	_, err = p.AddKnowledgeSource(ctx, "b.md")
	require.NoError(t, err)

	raw, _, _ := s.Get(ctx, store.KeyKnowledgeSources)
	assert.JSONEq(t, `["a.txt","b.md"]`, raw)
}

func TestConfigProvider_Credentials(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemorySettings()
	creds := &credentials.Options{OpenAIAPIKey: "sk-default-openai"}
	p := NewConfigProvider(s, nil, creds)

	assert.Equal(t, "sk-default-openai", p.Credential(ctx, ProviderEmbedding))
	assert.Equal(t, "", p.Credential(ctx, ProviderVectorStore))

	require.NoError(t, p.SetCredential(ctx, ProviderEmbedding, "sk-override-1234"))
	require.NoError(t, p.SetCredential(ctx, ProviderVectorStore, "pc-override-5678"))
	assert.Equal(t, "sk-override-1234", p.Credential(ctx, ProviderEmbedding))
	assert.Equal(t, "pc-override-5678", p.Credential(ctx, ProviderVectorStore))

	statuses := p.CredentialStatuses(ctx)
	require.Len(t, statuses, 2)
	assert.True(t, statuses[0].Overridden)
	assert.Equal(t, "sk-****1234", statuses[0].Masked)

	require.NoError(t, p.SetCredential(ctx, ProviderEmbedding, ""))
	assert.Equal(t, "sk-default-openai", p.Credential(ctx, ProviderEmbedding))
	assert.False(t, p.CredentialStatuses(ctx)[0].Overridden)
}

func TestConfigProvider_KeySource(t *testing.T) {
	ctx := context.Background()
	p, _ := newProvider(t, nil)
	keys := p.KeySource(ProviderVectorStore)

	_, err := keys.APIKey(ctx)
	assert.ErrorIs(t, err, errors.ErrConfig)

	require.NoError(t, p.SetCredential(ctx, ProviderVectorStore, "pc-live"))
	key, err := keys.APIKey(ctx)
	require.NoError(t, err)
	assert.Equal(t, "pc-live", key)

	snap := p.Snapshot(ctx)
	require.NoError(t, p.SetCredential(ctx, ProviderVectorStore, "pc-changed"))
	key, err = keys.APIKey(WithSnapshot(ctx, snap))
	require.NoError(t, err)
	assert.Equal(t, "pc-live", key)
}
