package usecase

import (
	"context"
	"fmt"
	"html"
	"log/slog"
	"strings"

	"helpdesk/internal/domain"
	"helpdesk/internal/port"
)

// FallbackAnswer is shown when generation fails or returns nothing.
// Users get this instead of a stack trace.
const FallbackAnswer = "Unfortunately, I could not find the information to answer that. Please try rephrasing your question."

const answerPromptTemplate = `You are a support agent. Be polite and considerate, and answer relying only on the reference texts attached to the question.

Try to fit the answer within %d tokens. If a longer explanation is needed, cut the answer down to the most important part.

If the answer does not fully fit, suggest that the user ask a follow-up question.

Reference:
-----
%s
-----
Question:
%s`

// Synthesizer turns retrieved documents and a query into a
// natural-language answer via the text-generation collaborator.
type Synthesizer struct {
	generator  port.Generator
	tokenLimit int
	logger     *slog.Logger
}

func NewSynthesizer(generator port.Generator, tokenLimit int, logger *slog.Logger) *Synthesizer {
	if tokenLimit <= 0 {
		tokenLimit = 100
	}
	return &Synthesizer{
		generator:  generator,
		tokenLimit: tokenLimit,
		logger:     logger,
	}
}

// Synthesize builds the prompt and runs a single generation attempt.
// Generation failure is recovered locally with the fixed fallback
// message; it never fails the request.
func (s *Synthesizer) Synthesize(ctx context.Context, queryText string, docs []domain.RetrievedDocument) string {
	prompt := BuildPrompt(queryText, docs, s.tokenLimit)

	answer, err := s.generator.Generate(ctx, prompt)
	if err != nil {
		s.logger.Error("generation failed", "query", queryText, "error", err)
		return FallbackAnswer
	}
	return answer
}

// BuildPrompt renders the support prompt. Document texts and the query
// are HTML-escaped before embedding, so knowledge-base content cannot
// inject markup into the rendering layer downstream.
func BuildPrompt(queryText string, docs []domain.RetrievedDocument, tokenLimit int) string {
	texts := make([]string, 0, len(docs))
	for _, d := range docs {
		texts = append(texts, html.EscapeString(d.Text))
	}
	context := strings.Join(texts, "\n\n")
	return fmt.Sprintf(answerPromptTemplate, tokenLimit, context, html.EscapeString(queryText))
}

// AnswerUseCase is the query entrypoint: retrieve, branch, and either
// synthesize an answer or report the ticket the question went to.
type AnswerUseCase struct {
	retriever *Retriever
	policy    *EscalationPolicy
	synth     *Synthesizer
	logger    *slog.Logger
}

func NewAnswerUseCase(retriever *Retriever, policy *EscalationPolicy, synth *Synthesizer, logger *slog.Logger) *AnswerUseCase {
	return &AnswerUseCase{
		retriever: retriever,
		policy:    policy,
		synth:     synth,
		logger:    logger,
	}
}

// AskParams carries caller-supplied retrieval configuration. Defaults
// live in the config layer, not here.
type AskParams struct {
	K         int
	Threshold float64
	Requester domain.UserRef
}

// AskResult is either an answer or a ticket reference, never both.
type AskResult struct {
	Answer    string
	Ticket    *domain.TicketRef
	Documents []domain.RetrievedDocument
}

// Ask runs the full query pipeline.
func (u *AnswerUseCase) Ask(ctx context.Context, queryText string, params AskParams) (*AskResult, error) {
	docs, err := u.retriever.Search(ctx, queryText, params.K, params.Threshold)
	if err != nil {
		u.logger.Error("retrieval failed", "query", queryText, "error", err)
		return nil, err
	}

	decision, err := u.policy.Resolve(ctx, queryText, docs, params.Requester)
	if err != nil {
		return nil, err
	}

	switch decision.Kind {
	case domain.DecisionEscalated:
		ref := decision.Ticket
		return &AskResult{Ticket: &ref}, nil
	default:
		answer := u.synth.Synthesize(ctx, queryText, decision.Documents)
		return &AskResult{Answer: answer, Documents: decision.Documents}, nil
	}
}
