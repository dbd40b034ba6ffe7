package corpus

import (
	"fmt"
	"strings"
	"testing"
)

// wordTokenizer counts whitespace-separated words. It keeps chunker tests
// independent of tiktoken's BPE data files.
type wordTokenizer struct{}

func (wordTokenizer) Count(text string) int {
	return len(strings.Fields(text))
}

func sentenceText(n int, words int) string {
	parts := make([]string, 0, words)
	for i := 0; i < words-1; i++ {
		parts = append(parts, fmt.Sprintf("s%dw%d", n, i))
	}
	return strings.Join(parts, " ") + " end."
}

func buildText(sentences, wordsPer int) string {
	var b strings.Builder
	for i := 0; i < sentences; i++ {
		if i > 0 {
			b.WriteString(" ")
		}
		b.WriteString(sentenceText(i, wordsPer))
	}
	return b.String()
}

func TestChunkDocumentEmptyText(t *testing.T) {
	chunks, err := ChunkDocument(Document{ID: "doc", Text: "   \n  "}, ChunkOptions{
		TargetTokens: 40,
		Tokenizer:    wordTokenizer{},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 0 {
		t.Fatalf("expected zero chunks for empty document, got %d", len(chunks))
	}
}

func TestChunkDocumentShortDocument(t *testing.T) {
	doc := Document{ID: "doc", Title: "Short", Text: "One small sentence."}
	chunks, err := ChunkDocument(doc, ChunkOptions{
		TargetTokens:  400,
		OverlapTokens: 50,
		Tokenizer:     wordTokenizer{},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected exactly one chunk, got %d", len(chunks))
	}
	if chunks[0].ID != "doc-0000" {
		t.Fatalf("unexpected chunk id %q", chunks[0].ID)
	}
	if chunks[0].Text != "One small sentence." {
		t.Fatalf("unexpected chunk text %q", chunks[0].Text)
	}
}

func TestChunkDocumentTokenBound(t *testing.T) {
	doc := Document{ID: "doc", Text: buildText(40, 10)}
	target := 35
	chunks, err := ChunkDocument(doc, ChunkOptions{
		TargetTokens:  target,
		OverlapTokens: 10,
		Tokenizer:     wordTokenizer{},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for _, c := range chunks {
		if c.TokenCount > target {
			t.Errorf("chunk %s exceeds target: %d > %d", c.ID, c.TokenCount, target)
		}
		got := wordTokenizer{}.Count(c.Text)
		if got != c.TokenCount {
			t.Errorf("chunk %s token count mismatch: recorded %d, counted %d", c.ID, c.TokenCount, got)
		}
	}
}

func TestChunkDocumentCoverageWithoutOverlap(t *testing.T) {
	text := buildText(30, 8)
	doc := Document{ID: "doc", Text: text}
	chunks, err := ChunkDocument(doc, ChunkOptions{
		TargetTokens:  24,
		OverlapTokens: 0,
		Tokenizer:     wordTokenizer{},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	if strings.Join(texts, " ") != text {
		t.Fatalf("chunks do not reconstruct the document text\nwant: %q\ngot:  %q",
			text, strings.Join(texts, " "))
	}
}

func TestChunkDocumentOverlapReconstruction(t *testing.T) {
	text := buildText(30, 8)
	doc := Document{ID: "doc", Text: text}
	chunks, err := ChunkDocument(doc, ChunkOptions{
		TargetTokens:  30,
		OverlapTokens: 8,
		Tokenizer:     wordTokenizer{},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}

	reconstructed := chunks[0].Text
	for i := 1; i < len(chunks); i++ {
		prev, cur := chunks[i-1].Text, chunks[i].Text
		overlap := sharedOverlap(prev, cur)
		if overlap == "" {
			t.Fatalf("chunk %d does not start with an overlap of chunk %d", i, i-1)
		}
		reconstructed += " " + strings.TrimSpace(strings.TrimPrefix(cur, overlap))
	}
	if reconstructed != text {
		t.Fatalf("overlap-stripped chunks do not reconstruct the document text\nwant: %q\ngot:  %q",
			text, reconstructed)
	}
}

// sharedOverlap returns the longest prefix of cur that is a suffix of prev,
// aligned on word boundaries.
func sharedOverlap(prev, cur string) string {
	words := strings.Fields(cur)
	for n := len(words); n > 0; n-- {
		candidate := strings.Join(words[:n], " ")
		if strings.HasSuffix(prev, candidate) {
			return candidate
		}
	}
	return ""
}

func TestChunkDocumentSectionsNeverMix(t *testing.T) {
	doc := Document{
		ID: "doc",
		Sections: []Section{
			{Heading: "Introduction", Text: buildText(4, 6)},
			{Heading: "Methods", Text: buildText(4, 6)},
		},
	}
	chunks, err := ChunkDocument(doc, ChunkOptions{
		TargetTokens:  400,
		OverlapTokens: 50,
		Tokenizer:     wordTokenizer{},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 2 {
		t.Fatalf("expected one chunk per section, got %d", len(chunks))
	}
	if chunks[0].Section != "Introduction" || chunks[1].Section != "Methods" {
		t.Fatalf("unexpected section headings: %q, %q", chunks[0].Section, chunks[1].Section)
	}
	if chunks[0].Ordinal != 0 || chunks[1].Ordinal != 1 {
		t.Fatalf("ordinals must be continuous across sections: %d, %d",
			chunks[0].Ordinal, chunks[1].Ordinal)
	}
}

func TestChunkDocumentDeterministic(t *testing.T) {
	doc := Document{ID: "doc", Text: buildText(20, 9)}
	opts := ChunkOptions{TargetTokens: 30, OverlapTokens: 6, Tokenizer: wordTokenizer{}}

	first, err := ChunkDocument(doc, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := ChunkDocument(doc, opts)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(first) != len(second) {
		t.Fatalf("chunk counts differ between runs: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i].ID != second[i].ID || first[i].Text != second[i].Text {
			t.Fatalf("chunk %d differs between runs", i)
		}
	}
}

func TestChunkDocumentMetadata(t *testing.T) {
	year := 2021
	page := 3
	doc := Document{
		ID:         "doc",
		Title:      "A Paper",
		SourceType: SourceTypePaper,
		Authors:    []string{"A. Author"},
		Year:       &year,
		SourcePath: "papers/a.pdf",
		Sections:   []Section{{Heading: "Results", Text: "Some finding.", Page: &page}},
	}
	chunks, err := ChunkDocument(doc, ChunkOptions{TargetTokens: 40, Tokenizer: wordTokenizer{}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 1 {
		t.Fatalf("expected one chunk, got %d", len(chunks))
	}
	c := chunks[0]
	if c.Meta.SchemaVersion != ChunkSchemaVersion {
		t.Errorf("unexpected schema version %d", c.Meta.SchemaVersion)
	}
	if c.Meta.SourceType != SourceTypePaper || c.Meta.Title != "A Paper" {
		t.Errorf("source attributes not carried: %+v", c.Meta)
	}
	if c.Page == nil || *c.Page != 3 {
		t.Errorf("page not carried: %v", c.Page)
	}
	if c.Meta.Year == nil || *c.Meta.Year != 2021 {
		t.Errorf("year not carried: %v", c.Meta.Year)
	}
}

func TestChunkDocumentLongSentenceSplits(t *testing.T) {
	words := make([]string, 100)
	for i := range words {
		words[i] = fmt.Sprintf("w%d", i)
	}
	doc := Document{ID: "doc", Text: strings.Join(words, " ")}
	chunks, err := ChunkDocument(doc, ChunkOptions{TargetTokens: 30, Tokenizer: wordTokenizer{}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) < 3 {
		t.Fatalf("expected the long sentence to split, got %d chunks", len(chunks))
	}
	for _, c := range chunks {
		if c.TokenCount > 30 {
			t.Errorf("chunk %s exceeds target after split: %d", c.ID, c.TokenCount)
		}
	}
}

func TestSplitIntoSentences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{
			name: "simple sentences",
			in:   "First one. Second one! Third one?",
			want: []string{"First one.", "Second one!", "Third one?"},
		},
		{
			name: "numeric listing stays whole",
			in:   "1. Introduction follows here.",
			want: []string{"1. Introduction follows here."},
		},
		{
			name: "closing quote attached",
			in:   `He said "stop." Then left.`,
			want: []string{`He said "stop."`, "Then left."},
		},
		{
			name: "blank line ends heading",
			in:   "A Heading Without Punctuation\n\nBody text here.",
			want: []string{"A Heading Without Punctuation", "Body text here."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitIntoSentences(tt.in)
			if len(got) != len(tt.want) {
				t.Fatalf("sentence count mismatch: got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("sentence %d mismatch: got %q, want %q", i, got[i], tt.want[i])
				}
			}
		})
	}
}
