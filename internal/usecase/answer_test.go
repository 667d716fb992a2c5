package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"helpdesk/internal/adapter/chunker"
	"helpdesk/internal/adapter/index"
	"helpdesk/internal/domain"
)

func TestBuildPromptEscapesMarkup(t *testing.T) {
	docs := []domain.RetrievedDocument{
		{Text: "Use <b>bold</b> & <i>italic</i> tags."},
	}
	prompt := BuildPrompt("what about <script>alert(1)</script>?", docs, 100)

	assert.NotContains(t, prompt, "<b>")
	assert.NotContains(t, prompt, "<script>")
	assert.Contains(t, prompt, "&lt;b&gt;bold&lt;/b&gt;")
	assert.Contains(t, prompt, "&lt;script&gt;")
	assert.Contains(t, prompt, "&amp;")
}

func TestBuildPromptLayout(t *testing.T) {
	docs := []domain.RetrievedDocument{
		{Text: "First reference."},
		{Text: "Second reference."},
	}
	prompt := BuildPrompt("the question", docs, 150)

	assert.Contains(t, prompt, "150 tokens")
	assert.Contains(t, prompt, "First reference.\n\nSecond reference.")
	// The question comes after the reference block.
	assert.Greater(t, strings.Index(prompt, "the question"), strings.Index(prompt, "Second reference."))
}

func TestSynthesizeReturnsGeneratedAnswer(t *testing.T) {
	gen := &fakeGenerator{answer: "The refund window is 30 days."}
	s := NewSynthesizer(gen, 100, testLogger())

	answer := s.Synthesize(context.Background(), "refund window?", []domain.RetrievedDocument{{Text: "doc"}})
	assert.Equal(t, "The refund window is 30 days.", answer)
	assert.Equal(t, 1, gen.calls)
	assert.Contains(t, gen.prompt, "refund window?")
}

func TestSynthesizeFallsBackOnGenerationFailure(t *testing.T) {
	gen := &fakeGenerator{err: errors.New("provider timeout")}
	s := NewSynthesizer(gen, 100, testLogger())

	answer := s.Synthesize(context.Background(), "q", nil)
	assert.Equal(t, FallbackAnswer, answer)
	assert.Equal(t, 1, gen.calls, "no retries beyond the single attempt")
}

func newAskPipeline(embedder *stubEmbedder, idx *index.MemoryIndex, tickets *fakeTickets, gen *fakeGenerator) *AnswerUseCase {
	logger := testLogger()
	return NewAnswerUseCase(
		NewRetriever(embedder, idx, logger),
		NewEscalationPolicy(tickets, "", logger),
		NewSynthesizer(gen, 100, logger),
		logger,
	)
}

func TestAskAnswersCoveredQuestion(t *testing.T) {
	ctx := context.Background()

	// Ingest a small knowledge base end to end, then ask about it.
	text := "The refund window is 30 days.\n\nContact support@example.com for help."
	chunks, err := chunker.NewRecursive().Split(text, 50, 10)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	embedder := &stubEmbedder{vectors: map[string][]float32{
		"What is the refund window?": {0, 0},
	}}
	for i, c := range chunks {
		embedder.vectors[c.Text] = []float32{float32(i), 0}
	}

	idx := index.NewMemoryIndex()
	vectors, err := embedder.Embed(ctx, chunkTexts(chunks))
	require.NoError(t, err)
	entries := make([]domain.IndexEntry, len(chunks))
	for i, c := range chunks {
		entries[i] = domain.IndexEntry{ID: c.ID, Vector: vectors[i], Text: c.Text}
	}
	require.NoError(t, idx.Upsert(ctx, entries))

	tickets := &fakeTickets{}
	gen := &fakeGenerator{answer: "30 days."}
	uc := newAskPipeline(embedder, idx, tickets, gen)

	result, err := uc.Ask(ctx, "What is the refund window?", AskParams{K: 3, Threshold: 10.0, Requester: domain.UserRef{ID: 1}})
	require.NoError(t, err)

	assert.Equal(t, "30 days.", result.Answer)
	assert.Nil(t, result.Ticket)
	require.NotEmpty(t, result.Documents)
	assert.Contains(t, result.Documents[0].Text, "refund window")
	assert.Empty(t, tickets.created)
	assert.Contains(t, gen.prompt, "refund window")
}

func TestAskEscalatesUncoveredQuestion(t *testing.T) {
	embedder := &stubEmbedder{vectors: map[string][]float32{
		"How do I cancel my order?": {0, 0},
	}}
	tickets := &fakeTickets{}
	gen := &fakeGenerator{answer: "should not be used"}
	uc := newAskPipeline(embedder, index.NewMemoryIndex(), tickets, gen)

	result, err := uc.Ask(context.Background(), "How do I cancel my order?", AskParams{K: 3, Threshold: 1.3, Requester: domain.UserRef{ID: 9}})
	require.NoError(t, err)

	require.NotNil(t, result.Ticket)
	assert.Equal(t, int64(1), result.Ticket.ID)
	assert.Empty(t, result.Answer)
	assert.Empty(t, result.Documents)

	require.Len(t, tickets.created, 1)
	assert.Equal(t, "How do I cancel my order?", tickets.created[0].question)
	assert.Equal(t, int64(9), tickets.created[0].requester.ID)
	assert.Equal(t, 0, gen.calls, "escalated questions must not reach the generator")
}

func TestAskSurfacesRetrievalFailure(t *testing.T) {
	embedder := &stubEmbedder{err: fmt.Errorf("provider down: %w", domain.ErrEmbedding)}
	tickets := &fakeTickets{}
	uc := newAskPipeline(embedder, index.NewMemoryIndex(), tickets, &fakeGenerator{})

	_, err := uc.Ask(context.Background(), "q", AskParams{K: 3, Threshold: 1.3})
	assert.ErrorIs(t, err, domain.ErrEmbedding)
	assert.Empty(t, tickets.created, "a provider outage is not an escalation")
}

func chunkTexts(chunks []domain.Chunk) []string {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	return texts
}
