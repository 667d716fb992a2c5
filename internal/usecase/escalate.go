package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"helpdesk/internal/domain"
	"helpdesk/internal/port"
)

// DefaultSubject is used for tickets opened automatically when the
// caller context supplies no subject of its own.
const DefaultSubject = "New question"

// EscalationPolicy decides between answering automatically and routing
// the question into the human support queue.
type EscalationPolicy struct {
	tickets port.TicketService
	subject string
	logger  *slog.Logger
}

func NewEscalationPolicy(tickets port.TicketService, subject string, logger *slog.Logger) *EscalationPolicy {
	if subject == "" {
		subject = DefaultSubject
	}
	return &EscalationPolicy{
		tickets: tickets,
		subject: subject,
		logger:  logger,
	}
}

// Resolve returns Answered when any document passed retrieval and
// Escalated otherwise. The Answered branch has no side effects; the
// Escalated branch makes exactly one ticket-creation call, and its
// failure is surfaced so the question is never dropped silently.
func (p *EscalationPolicy) Resolve(ctx context.Context, queryText string, docs []domain.RetrievedDocument, requester domain.UserRef) (domain.EscalationDecision, error) {
	if len(docs) > 0 {
		return domain.Answered(docs), nil
	}

	if p.tickets == nil {
		return domain.EscalationDecision{}, fmt.Errorf("no ticket service configured to escalate to: %w", domain.ErrTicket)
	}

	ref, err := p.tickets.CreateTicket(ctx, requester, queryText, p.subject)
	if err != nil {
		return domain.EscalationDecision{}, fmt.Errorf("failed to escalate question from requester %d: %w", requester.ID, err)
	}

	p.logger.Info("question escalated",
		"ticket_id", ref.ID, "requester_id", requester.ID, "query", queryText)
	return domain.Escalated(ref), nil
}
