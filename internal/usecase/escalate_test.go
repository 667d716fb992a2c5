package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"helpdesk/internal/domain"
)

func TestResolveAnsweredHasNoSideEffects(t *testing.T) {
	tickets := &fakeTickets{}
	p := NewEscalationPolicy(tickets, "", testLogger())

	docs := []domain.RetrievedDocument{{Text: "relevant", Distance: 0.4}}
	decision, err := p.Resolve(context.Background(), "question", docs, domain.UserRef{ID: 7})
	require.NoError(t, err)

	assert.Equal(t, domain.DecisionAnswered, decision.Kind)
	assert.Equal(t, docs, decision.Documents)
	assert.Empty(t, tickets.created, "answered questions must not open tickets")
}

func TestResolveEscalatesWithExactlyOneTicket(t *testing.T) {
	tickets := &fakeTickets{}
	p := NewEscalationPolicy(tickets, "", testLogger())

	requester := domain.UserRef{ID: 42, Username: "alice"}
	decision, err := p.Resolve(context.Background(), "unknown question", nil, requester)
	require.NoError(t, err)

	assert.Equal(t, domain.DecisionEscalated, decision.Kind)
	assert.Equal(t, int64(1), decision.Ticket.ID)

	require.Len(t, tickets.created, 1)
	assert.Equal(t, "unknown question", tickets.created[0].question)
	assert.Equal(t, DefaultSubject, tickets.created[0].subject)
	assert.Equal(t, requester, tickets.created[0].requester)
}

func TestResolveCustomSubject(t *testing.T) {
	tickets := &fakeTickets{}
	p := NewEscalationPolicy(tickets, "Billing question", testLogger())

	_, err := p.Resolve(context.Background(), "q", nil, domain.UserRef{ID: 1})
	require.NoError(t, err)
	require.Len(t, tickets.created, 1)
	assert.Equal(t, "Billing question", tickets.created[0].subject)
}

func TestResolveSurfacesTicketFailure(t *testing.T) {
	tickets := &fakeTickets{err: errors.New("queue down")}
	p := NewEscalationPolicy(tickets, "", testLogger())

	_, err := p.Resolve(context.Background(), "q", nil, domain.UserRef{ID: 1})
	require.Error(t, err)
	assert.ErrorContains(t, err, "queue down")
}

func TestResolveWithoutTicketService(t *testing.T) {
	p := NewEscalationPolicy(nil, "", testLogger())

	_, err := p.Resolve(context.Background(), "q", nil, domain.UserRef{ID: 1})
	assert.ErrorIs(t, err, domain.ErrTicket)
}
