package biz

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/kart-io/knowledge-clone/internal/clone/store"
	"github.com/kart-io/knowledge-clone/pkg/llm"
)

type fakeEmbedder struct {
	calls atomic.Int32
	err   error
}

func (f *fakeEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := f.EmbedSingle(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (f *fakeEmbedder) EmbedSingle(context.Context, string) ([]float32, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return []float32{1, 0}, nil
}

func (f *fakeEmbedder) Name() string { return "fake" }

type fakeVectors struct {
	mu       sync.Mutex
	queries  atomic.Int32
	upserts  []store.Document
	matches  []store.Match
	queryErr error
	writeErr error
}

func (f *fakeVectors) Upsert(_ context.Context, doc store.Document, _ []float32) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.mu.Lock()
	f.upserts = append(f.upserts, doc)
	f.mu.Unlock()
	return nil
}

func (f *fakeVectors) Query(context.Context, []float32, int) ([]store.Match, error) {
	f.queries.Add(1)
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	return f.matches, nil
}

func (f *fakeVectors) Name() string { return "fake" }

type fakeWeb struct {
	calls atomic.Int32
	text  string
	err   error
}

func (f *fakeWeb) Search(context.Context, string) (string, error) {
	f.calls.Add(1)
	return f.text, f.err
}

type fakeChat struct {
	mu       sync.Mutex
	reply    string
	err      error
	messages []llm.Message
	opts     llm.CompletionOptions
	block    chan struct{}
	started  chan struct{}
}

func (f *fakeChat) Complete(_ context.Context, messages []llm.Message, opts llm.CompletionOptions) (string, error) {
	if f.started != nil {
		close(f.started)
	}
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = messages
	f.opts = opts
	return f.reply, f.err
}

func (f *fakeChat) Name() string { return "fake" }

func (f *fakeChat) lastMessages() []llm.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.messages
}
