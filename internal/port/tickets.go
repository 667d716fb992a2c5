package port

import (
	"context"

	"helpdesk/internal/domain"
)

// TicketService is the human support-queue collaborator.
type TicketService interface {
	// CreateTicket opens a new ticket holding the requester's question
	// and returns a reference to it.
	CreateTicket(ctx context.Context, requester domain.UserRef, questionText, subject string) (domain.TicketRef, error)

	// AttachQuestion appends a follow-up question to an existing
	// ticket and reactivates it.
	AttachQuestion(ctx context.Context, ticketID int64, requester domain.UserRef, text, subject string) (domain.QuestionRef, error)

	// OpenTicketsByRequester lists the requester's active tickets.
	OpenTicketsByRequester(ctx context.Context, requesterID int64) ([]domain.Ticket, error)
}
