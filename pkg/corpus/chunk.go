package corpus

import (
	"fmt"
	"strings"

	"github.com/OFFIS-RIT/atlas/backend/internal/util"

	"github.com/pkoukk/tiktoken-go"
)

const (
	DefaultTargetTokens  = 400
	DefaultOverlapTokens = 50
)

// Tokenizer counts tokens the way the embedding provider does. The chunker
// only needs counts, never the token stream itself.
type Tokenizer interface {
	Count(text string) int
}

type tiktokenTokenizer struct {
	enc *tiktoken.Tiktoken
}

// NewTiktokenTokenizer returns a Tokenizer backed by the named tiktoken
// encoding (e.g. "cl100k_base").
func NewTiktokenTokenizer(encoding string) (Tokenizer, error) {
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("unknown tiktoken encoding %q: %w", encoding, err)
	}
	return &tiktokenTokenizer{enc: enc}, nil
}

func (t *tiktokenTokenizer) Count(text string) int {
	return len(t.enc.Encode(text, nil, nil))
}

// ChunkOptions configures ChunkDocument. Tokenizer is required; zero sizes
// fall back to the defaults.
type ChunkOptions struct {
	TargetTokens  int
	OverlapTokens int
	Tokenizer     Tokenizer
}

type sentencePiece struct {
	text   string
	tokens int
}

// ChunkDocument splits a document into ordered, token-bounded chunks.
// Section boundaries are always clean breaks; within a section, sentences
// accumulate until the target size is reached, and the trailing sentences
// covering at least OverlapTokens are repeated at the start of the next
// chunk. A document with empty text yields zero chunks and no error; a
// document shorter than the target yields exactly one chunk.
func ChunkDocument(doc Document, opts ChunkOptions) ([]Chunk, error) {
	if opts.Tokenizer == nil {
		return nil, fmt.Errorf("chunk document %s: tokenizer is required", doc.ID)
	}
	if opts.TargetTokens <= 0 {
		opts.TargetTokens = DefaultTargetTokens
	}
	if opts.OverlapTokens < 0 {
		opts.OverlapTokens = 0
	}
	if opts.OverlapTokens >= opts.TargetTokens {
		return nil, fmt.Errorf("chunk document %s: overlap %d must be below target %d",
			doc.ID, opts.OverlapTokens, opts.TargetTokens)
	}

	sections := doc.Sections
	if len(sections) == 0 {
		if strings.TrimSpace(doc.Text) == "" {
			return nil, nil
		}
		sections = []Section{{Text: doc.Text}}
	}

	meta := doc.Meta()
	var chunks []Chunk
	ordinal := 0

	for _, section := range sections {
		pieces := sectionPieces(section.Text, opts)
		if len(pieces) == 0 {
			continue
		}

		var current []sentencePiece
		currentTokens := 0
		newSinceFlush := 0

		flush := func(seedOverlap bool) {
			if len(current) == 0 || newSinceFlush == 0 {
				return
			}
			texts := make([]string, len(current))
			for i, p := range current {
				texts[i] = p.text
			}
			chunks = append(chunks, Chunk{
				ID:         util.ChunkID(doc.ID, ordinal),
				DocumentID: doc.ID,
				Section:    section.Heading,
				Ordinal:    ordinal,
				TokenCount: currentTokens,
				Page:       section.Page,
				Text:       strings.Join(texts, " "),
				Meta:       meta,
			})
			ordinal++

			flushed := current
			current = nil
			currentTokens = 0
			newSinceFlush = 0
			if seedOverlap {
				current, currentTokens = overlapTail(flushed, opts.OverlapTokens)
			}
		}

		for _, piece := range pieces {
			if currentTokens+piece.tokens > opts.TargetTokens && newSinceFlush > 0 {
				flush(true)
			}
			current = append(current, piece)
			currentTokens += piece.tokens
			newSinceFlush++
		}
		flush(false)
	}

	return chunks, nil
}

// sectionPieces splits section text into sentence pieces with token counts,
// breaking sentences that exceed the target at the nearest token boundary.
func sectionPieces(text string, opts ChunkOptions) []sentencePiece {
	sentences := splitIntoSentences(text)
	pieces := make([]sentencePiece, 0, len(sentences))
	for _, sentence := range sentences {
		tokens := opts.Tokenizer.Count(sentence)
		if tokens <= opts.TargetTokens {
			pieces = append(pieces, sentencePiece{text: sentence, tokens: tokens})
			continue
		}
		for _, part := range splitLongSentence(sentence, opts.TargetTokens, opts.Tokenizer) {
			pieces = append(pieces, sentencePiece{text: part, tokens: opts.Tokenizer.Count(part)})
		}
	}
	return pieces
}

// splitLongSentence breaks an over-budget sentence into word runs that each
// fit the target. A single word longer than the target is kept whole.
func splitLongSentence(sentence string, target int, tok Tokenizer) []string {
	words := strings.Fields(sentence)
	if len(words) <= 1 {
		return []string{sentence}
	}

	var parts []string
	var current []string
	for _, word := range words {
		candidate := strings.Join(append(current, word), " ")
		if tok.Count(candidate) > target && len(current) > 0 {
			parts = append(parts, strings.Join(current, " "))
			current = current[:0]
		}
		current = append(current, word)
	}
	if len(current) > 0 {
		parts = append(parts, strings.Join(current, " "))
	}
	return parts
}

// overlapTail returns the trailing pieces of a flushed chunk that seed the
// next chunk's overlap window. It never returns the whole chunk.
func overlapTail(pieces []sentencePiece, overlapTokens int) ([]sentencePiece, int) {
	if overlapTokens <= 0 || len(pieces) < 2 {
		return nil, 0
	}

	total := 0
	start := len(pieces)
	for start > 1 {
		next := pieces[start-1].tokens
		if total+next > overlapTokens && total > 0 {
			break
		}
		total += next
		start--
		if total >= overlapTokens {
			break
		}
	}
	if start == len(pieces) {
		return nil, 0
	}

	tail := make([]sentencePiece, len(pieces)-start)
	copy(tail, pieces[start:])
	return tail, total
}
