package domain

import (
	"sort"
	"time"
)

// EntryKind discriminates ticket transcript entries.
type EntryKind string

const (
	EntryQuestion EntryKind = "question"
	EntryAnswer   EntryKind = "answer"
)

// HistoryEntry is one turn in a ticket's transcript. Questions come
// from the requester, answers from support staff; both share the same
// shape and differ only by Kind.
type HistoryEntry struct {
	Kind      EntryKind
	Speaker   string
	Timestamp time.Time
	Text      string
}

// Ticket is an open or closed item in the support queue.
type Ticket struct {
	ID           int64
	RequesterID  int64
	CreatedAt    time.Time
	LastUpdated  time.Time
	Active       bool
	ClosedByUser bool
}

// SortTranscript orders entries chronologically, questions before
// answers on equal timestamps so a question never renders after its
// own answer.
func SortTranscript(entries []HistoryEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Timestamp.Equal(entries[j].Timestamp) {
			return entries[i].Kind == EntryQuestion && entries[j].Kind == EntryAnswer
		}
		return entries[i].Timestamp.Before(entries[j].Timestamp)
	})
}
