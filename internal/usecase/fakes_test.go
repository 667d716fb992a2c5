package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"helpdesk/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubEmbedder maps each text to a fixed vector, so tests control
// distances exactly.
type stubEmbedder struct {
	vectors map[string][]float32
	err     error
	calls   int
}

func (s *stubEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := make([][]float32, 0, len(texts))
	for _, t := range texts {
		vec, ok := s.vectors[t]
		if !ok {
			return nil, errors.New("no stub vector for: " + t)
		}
		out = append(out, vec)
	}
	return out, nil
}

func (s *stubEmbedder) Dimension() int    { return 2 }
func (s *stubEmbedder) ModelName() string { return "stub" }

// fakeTickets records every CreateTicket call.
type fakeTickets struct {
	nextID  int64
	err     error
	created []createdTicket
}

type createdTicket struct {
	requester domain.UserRef
	question  string
	subject   string
}

func (f *fakeTickets) CreateTicket(ctx context.Context, requester domain.UserRef, questionText, subject string) (domain.TicketRef, error) {
	if f.err != nil {
		return domain.TicketRef{}, f.err
	}
	f.nextID++
	f.created = append(f.created, createdTicket{requester: requester, question: questionText, subject: subject})
	return domain.TicketRef{ID: f.nextID}, nil
}

func (f *fakeTickets) AttachQuestion(ctx context.Context, ticketID int64, requester domain.UserRef, text, subject string) (domain.QuestionRef, error) {
	return domain.QuestionRef{ID: 1, TicketID: ticketID}, nil
}

func (f *fakeTickets) OpenTicketsByRequester(ctx context.Context, requesterID int64) ([]domain.Ticket, error) {
	return nil, nil
}

// fakeGenerator echoes a canned answer and keeps the prompt it saw.
type fakeGenerator struct {
	answer string
	err    error
	prompt string
	calls  int
}

func (f *fakeGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	f.calls++
	f.prompt = prompt
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

func (f *fakeGenerator) ModelName() string { return "fake" }
