// Package chunker splits knowledge-base text into overlapping chunks
// sized for embedding. Sizes and overlaps are measured in characters
// (runes), matching the unit the relevance thresholds were tuned on.
package chunker

import (
	"fmt"
	"strings"

	"helpdesk/internal/domain"
)

// Separators tried in order, coarse to fine. A segment that still
// exceeds the chunk size after the last separator is cut at raw
// character offsets.
var separators = []string{"\n\n", "\n", ". ", " "}

// Recursive splits text hierarchically: paragraphs first, then
// sentences, then words, descending a level only when a candidate
// segment still exceeds the chunk size. Pure; no state between calls.
type Recursive struct{}

func NewRecursive() *Recursive {
	return &Recursive{}
}

// Split implements port.Chunker. Chunk IDs are assigned by ordinal
// position within the call, so splitting the same text with the same
// parameters always yields the same IDs.
func (c *Recursive) Split(text string, chunkSize, overlap int) ([]domain.Chunk, error) {
	if chunkSize <= 0 {
		return nil, fmt.Errorf("chunk size must be positive, got %d: %w", chunkSize, domain.ErrConfig)
	}
	if overlap < 0 || overlap >= chunkSize {
		return nil, fmt.Errorf("overlap %d must be non-negative and smaller than chunk size %d: %w", overlap, chunkSize, domain.ErrConfig)
	}
	if strings.TrimSpace(text) == "" {
		return nil, nil
	}

	segments := splitRecursive(text, chunkSize, separators)
	texts := assemble(segments, chunkSize, overlap)

	chunks := make([]domain.Chunk, 0, len(texts))
	for i, t := range texts {
		chunks = append(chunks, domain.Chunk{
			ID:   fmt.Sprintf("chunk_%d", i+1),
			Text: t,
		})
	}
	return chunks, nil
}

// splitRecursive breaks text into segments no longer than size runes,
// preferring the coarsest separator that makes progress.
func splitRecursive(text string, size int, seps []string) []string {
	if runeLen(text) <= size {
		return []string{text}
	}
	if len(seps) == 0 {
		return hardSplit(text, size)
	}

	parts := strings.SplitAfter(text, seps[0])
	if len(parts) == 1 {
		// Separator absent, try the next finer one.
		return splitRecursive(text, size, seps[1:])
	}

	var segments []string
	for _, part := range parts {
		if part == "" {
			continue
		}
		if runeLen(part) <= size {
			segments = append(segments, part)
		} else {
			segments = append(segments, splitRecursive(part, size, seps[1:])...)
		}
	}
	return segments
}

// hardSplit cuts text into fixed windows of size runes.
func hardSplit(text string, size int) []string {
	runes := []rune(text)
	var out []string
	for start := 0; start < len(runes); start += size {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		out = append(out, string(runes[start:end]))
	}
	return out
}

// assemble merges segments greedily into chunks of at most size runes,
// carrying the previous chunk's trailing overlap runes into the next
// chunk when they still fit.
func assemble(segments []string, size, overlap int) []string {
	var chunks []string
	var cur strings.Builder
	curLen := 0

	flush := func() string {
		text := cur.String()
		if strings.TrimSpace(text) != "" {
			chunks = append(chunks, text)
		}
		cur.Reset()
		curLen = 0
		return text
	}

	for _, seg := range segments {
		segLen := runeLen(seg)
		if curLen > 0 && curLen+segLen > size {
			prev := flush()
			tail := tailRunes(prev, overlap)
			if runeLen(tail)+segLen <= size {
				cur.WriteString(tail)
				curLen = runeLen(tail)
			}
		}
		cur.WriteString(seg)
		curLen += segLen
	}
	flush()

	return chunks
}

func tailRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[len(runes)-n:])
}

func runeLen(s string) int {
	return len([]rune(s))
}
