// Package ticket implements the support-queue collaborator on top of
// Postgres: users, tickets, and the questions and answers attached to
// them.
package ticket

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"

	"helpdesk/internal/domain"
)

// PostgresStore persists tickets in Postgres. All writes that span
// several rows run in a single transaction, so a failed escalation
// never leaves a ticket without its question.
type PostgresStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open connects to Postgres and ensures the ticket tables exist.
func Open(dsn string, logger *slog.Logger) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %v: %w", err, domain.ErrTicket)
	}
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	s := &PostgresStore{db: db, logger: logger}
	if err := s.ensureTables(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *PostgresStore) ensureTables() error {
	const ddl = `
CREATE TABLE IF NOT EXISTS users (
  requester_id bigint PRIMARY KEY,
  username     varchar(30),
  full_name    varchar(100),
  is_admin     boolean NOT NULL DEFAULT false
);
CREATE TABLE IF NOT EXISTS tickets (
  ticket_id       bigserial PRIMARY KEY,
  requester_id    bigint NOT NULL REFERENCES users (requester_id),
  creation_time   timestamptz NOT NULL DEFAULT now(),
  completion_time timestamptz,
  active          boolean NOT NULL DEFAULT true,
  closed_by_user  boolean NOT NULL DEFAULT false,
  last_updated    timestamptz NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS questions (
  question_id   bigserial PRIMARY KEY,
  requester_id  bigint NOT NULL REFERENCES users (requester_id),
  ticket_id     bigint NOT NULL REFERENCES tickets (ticket_id),
  creation_time timestamptz NOT NULL DEFAULT now(),
  text          varchar(3000) NOT NULL,
  subject       varchar(255)
);
CREATE TABLE IF NOT EXISTS answers (
  answer_id    bigserial PRIMARY KEY,
  ticket_id    bigint NOT NULL REFERENCES tickets (ticket_id),
  requester_id bigint NOT NULL REFERENCES users (requester_id),
  answer_time  timestamptz NOT NULL DEFAULT now(),
  text         varchar(3000) NOT NULL
);
CREATE INDEX IF NOT EXISTS tickets_requester_idx ON tickets (requester_id, active);
CREATE INDEX IF NOT EXISTS questions_ticket_idx ON questions (ticket_id);
CREATE INDEX IF NOT EXISTS answers_ticket_idx ON answers (ticket_id);
`
	if _, err := s.db.Exec(ddl); err != nil {
		return fmt.Errorf("failed to create ticket tables: %v: %w", err, domain.ErrTicket)
	}
	return nil
}

// CreateTicket opens a ticket with the requester's question as its
// first entry. The requester row is created on first contact and its
// profile fields refreshed on later ones.
func (s *PostgresStore) CreateTicket(ctx context.Context, requester domain.UserRef, questionText, subject string) (domain.TicketRef, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.TicketRef{}, fmt.Errorf("failed to begin transaction: %v: %w", err, domain.ErrTicket)
	}
	defer tx.Rollback()

	if err := upsertUser(ctx, tx, requester); err != nil {
		return domain.TicketRef{}, err
	}

	var ticketID int64
	err = tx.QueryRowContext(ctx,
		`INSERT INTO tickets (requester_id) VALUES ($1) RETURNING ticket_id;`,
		requester.ID,
	).Scan(&ticketID)
	if err != nil {
		return domain.TicketRef{}, fmt.Errorf("failed to create ticket for requester %d: %v: %w", requester.ID, err, domain.ErrTicket)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO questions (requester_id, ticket_id, text, subject) VALUES ($1, $2, $3, $4);`,
		requester.ID, ticketID, questionText, subject,
	)
	if err != nil {
		return domain.TicketRef{}, fmt.Errorf("failed to attach question to ticket %d: %v: %w", ticketID, err, domain.ErrTicket)
	}

	if err := tx.Commit(); err != nil {
		return domain.TicketRef{}, fmt.Errorf("failed to commit ticket for requester %d: %v: %w", requester.ID, err, domain.ErrTicket)
	}

	s.logger.Info("ticket created", "ticket_id", ticketID, "requester_id", requester.ID)
	return domain.TicketRef{ID: ticketID}, nil
}

// AttachQuestion appends a follow-up question to an existing ticket
// and reactivates it.
func (s *PostgresStore) AttachQuestion(ctx context.Context, ticketID int64, requester domain.UserRef, text, subject string) (domain.QuestionRef, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.QuestionRef{}, fmt.Errorf("failed to begin transaction: %v: %w", err, domain.ErrTicket)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE tickets SET active = true, last_updated = now() WHERE ticket_id = $1;`,
		ticketID,
	)
	if err != nil {
		return domain.QuestionRef{}, fmt.Errorf("failed to update ticket %d: %v: %w", ticketID, err, domain.ErrTicket)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.QuestionRef{}, fmt.Errorf("ticket %d not found: %w", ticketID, domain.ErrTicket)
	}

	var questionID int64
	err = tx.QueryRowContext(ctx,
		`INSERT INTO questions (requester_id, ticket_id, text, subject) VALUES ($1, $2, $3, $4) RETURNING question_id;`,
		requester.ID, ticketID, text, subject,
	).Scan(&questionID)
	if err != nil {
		return domain.QuestionRef{}, fmt.Errorf("failed to attach question to ticket %d: %v: %w", ticketID, err, domain.ErrTicket)
	}

	if err := tx.Commit(); err != nil {
		return domain.QuestionRef{}, fmt.Errorf("failed to commit question for ticket %d: %v: %w", ticketID, err, domain.ErrTicket)
	}

	s.logger.Info("question attached", "ticket_id", ticketID, "question_id", questionID)
	return domain.QuestionRef{ID: questionID, TicketID: ticketID}, nil
}

// OpenTicketsByRequester lists the requester's active tickets, most
// recently updated first.
func (s *PostgresStore) OpenTicketsByRequester(ctx context.Context, requesterID int64) ([]domain.Ticket, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT ticket_id, requester_id, creation_time, last_updated, active, closed_by_user
FROM tickets
WHERE requester_id = $1 AND active
ORDER BY last_updated DESC;
`, requesterID)
	if err != nil {
		return nil, fmt.Errorf("failed to list tickets for requester %d: %v: %w", requesterID, err, domain.ErrTicket)
	}
	defer rows.Close()

	var tickets []domain.Ticket
	for rows.Next() {
		var t domain.Ticket
		if err := rows.Scan(&t.ID, &t.RequesterID, &t.CreatedAt, &t.LastUpdated, &t.Active, &t.ClosedByUser); err != nil {
			return nil, fmt.Errorf("failed to scan ticket: %v: %w", err, domain.ErrTicket)
		}
		tickets = append(tickets, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list tickets for requester %d: %v: %w", requesterID, err, domain.ErrTicket)
	}
	return tickets, nil
}

// AddAnswer records a staff answer on a ticket. Used by the admin side
// of the surrounding bot.
func (s *PostgresStore) AddAnswer(ctx context.Context, ticketID int64, staff domain.UserRef, text string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %v: %w", err, domain.ErrTicket)
	}
	defer tx.Rollback()

	if err := upsertUser(ctx, tx, staff); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO answers (ticket_id, requester_id, text) VALUES ($1, $2, $3);`,
		ticketID, staff.ID, text,
	); err != nil {
		return fmt.Errorf("failed to add answer to ticket %d: %v: %w", ticketID, err, domain.ErrTicket)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE tickets SET last_updated = now() WHERE ticket_id = $1;`,
		ticketID,
	); err != nil {
		return fmt.Errorf("failed to update ticket %d: %v: %w", ticketID, err, domain.ErrTicket)
	}
	return tx.Commit()
}

// CloseTicket deactivates a ticket. byUser records who closed it.
func (s *PostgresStore) CloseTicket(ctx context.Context, ticketID int64, byUser bool) error {
	res, err := s.db.ExecContext(ctx, `
UPDATE tickets
SET active = false, closed_by_user = $2, completion_time = now(), last_updated = now()
WHERE ticket_id = $1;
`, ticketID, byUser)
	if err != nil {
		return fmt.Errorf("failed to close ticket %d: %v: %w", ticketID, err, domain.ErrTicket)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("ticket %d not found: %w", ticketID, domain.ErrTicket)
	}
	return nil
}

// Transcript returns a ticket's questions and answers as one
// chronological conversation.
func (s *PostgresStore) Transcript(ctx context.Context, ticketID int64) ([]domain.HistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
SELECT 'question', u.full_name, q.creation_time, q.text
FROM questions q JOIN users u ON u.requester_id = q.requester_id
WHERE q.ticket_id = $1
UNION ALL
SELECT 'answer', u.full_name, a.answer_time, a.text
FROM answers a JOIN users u ON u.requester_id = a.requester_id
WHERE a.ticket_id = $1;
`, ticketID)
	if err != nil {
		return nil, fmt.Errorf("failed to load transcript for ticket %d: %v: %w", ticketID, err, domain.ErrTicket)
	}
	defer rows.Close()

	var entries []domain.HistoryEntry
	for rows.Next() {
		var (
			kind    string
			speaker sql.NullString
			e       domain.HistoryEntry
		)
		if err := rows.Scan(&kind, &speaker, &e.Timestamp, &e.Text); err != nil {
			return nil, fmt.Errorf("failed to scan transcript entry: %v: %w", err, domain.ErrTicket)
		}
		e.Kind = domain.EntryKind(kind)
		e.Speaker = speaker.String
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to load transcript for ticket %d: %v: %w", ticketID, err, domain.ErrTicket)
	}

	domain.SortTranscript(entries)
	return entries, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func upsertUser(ctx context.Context, tx *sql.Tx, user domain.UserRef) error {
	username := user.Username
	if username == "" {
		username = "unknown_user"
	}
	_, err := tx.ExecContext(ctx, `
INSERT INTO users (requester_id, username, full_name)
VALUES ($1, $2, $3)
ON CONFLICT (requester_id) DO UPDATE SET
  username  = EXCLUDED.username,
  full_name = EXCLUDED.full_name;
`, user.ID, username, user.FullName)
	if err != nil {
		return fmt.Errorf("failed to upsert user %d: %v: %w", user.ID, err, domain.ErrTicket)
	}
	return nil
}
