package domain

// Chunk is a bounded slice of knowledge-base text sized for embedding.
// IDs are ordinal within one chunking call ("chunk_1", "chunk_2", ...),
// so re-ingesting the same document with the same parameters overwrites
// existing entries instead of duplicating them.
type Chunk struct {
	ID       string
	Text     string
	Metadata map[string]string
}

// IndexEntry is what the vector index persists per chunk. The vector
// must match the dimension established by the collection's first write.
type IndexEntry struct {
	ID       string
	Vector   []float32
	Text     string
	Metadata map[string]string
}

// RetrievedDocument is an ephemeral per-query result. Lower distance
// means more similar under the collection's fixed metric.
type RetrievedDocument struct {
	Text     string
	Distance float64
}

// UserRef identifies the requester in the surrounding bot.
type UserRef struct {
	ID       int64
	Username string
	FullName string
}

// TicketRef points at a ticket in the support queue.
type TicketRef struct {
	ID int64
}

// QuestionRef points at one question attached to a ticket.
type QuestionRef struct {
	ID       int64
	TicketID int64
}

// DecisionKind discriminates the two outcomes of the escalation policy.
type DecisionKind int

const (
	DecisionAnswered DecisionKind = iota
	DecisionEscalated
)

func (k DecisionKind) String() string {
	switch k {
	case DecisionAnswered:
		return "answered"
	case DecisionEscalated:
		return "escalated"
	}
	return "unknown"
}

// EscalationDecision is the branch taken after retrieval: either the
// documents to answer from, or the ticket the question was routed to.
// Exactly one of Documents/Ticket is meaningful, selected by Kind.
type EscalationDecision struct {
	Kind      DecisionKind
	Documents []RetrievedDocument
	Ticket    TicketRef
}

// Answered builds the decision for a query the knowledge base covers.
func Answered(docs []RetrievedDocument) EscalationDecision {
	return EscalationDecision{Kind: DecisionAnswered, Documents: docs}
}

// Escalated builds the decision for a query routed to a human.
func Escalated(ref TicketRef) EscalationDecision {
	return EscalationDecision{Kind: DecisionEscalated, Ticket: ref}
}
