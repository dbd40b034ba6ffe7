package base

import (
	"testing"

	"github.com/OFFIS-RIT/atlas/backend/pkg/corpus"
)

func TestValidateLinks(t *testing.T) {
	link := func(from, to string) corpus.DuplicateLink {
		return corpus.DuplicateLink{FromID: from, ToID: to}
	}

	tests := []struct {
		name     string
		existing []corpus.DuplicateLink
		newLinks []corpus.DuplicateLink
		wantErr  bool
	}{
		{
			name:     "valid chain",
			newLinks: []corpus.DuplicateLink{link("a", "b"), link("b", "c")},
		},
		{
			name:     "self loop",
			newLinks: []corpus.DuplicateLink{link("a", "a")},
			wantErr:  true,
		},
		{
			name:     "cycle across batches",
			existing: []corpus.DuplicateLink{link("a", "b")},
			newLinks: []corpus.DuplicateLink{link("b", "a")},
			wantErr:  true,
		},
		{
			name:     "second outgoing link",
			existing: []corpus.DuplicateLink{link("a", "b")},
			newLinks: []corpus.DuplicateLink{link("a", "c")},
			wantErr:  true,
		},
		{
			name:     "repeated identical link is fine",
			existing: []corpus.DuplicateLink{link("a", "b")},
			newLinks: []corpus.DuplicateLink{link("a", "b")},
		},
		{
			name:     "empty endpoint",
			newLinks: []corpus.DuplicateLink{link("", "b")},
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateLinks(tt.existing, tt.newLinks)
			if tt.wantErr && err == nil {
				t.Fatal("expected an error")
			}
			if !tt.wantErr && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		})
	}
}

func TestResolveLink(t *testing.T) {
	links := []corpus.DuplicateLink{
		{FromID: "a", ToID: "b"},
		{FromID: "b", ToID: "c"},
	}

	got, err := ResolveLink(links, "a")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "c" {
		t.Fatalf("resolved to %q, want %q", got, "c")
	}

	got, err = ResolveLink(links, "x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "x" {
		t.Fatalf("unlinked claim must resolve to itself, got %q", got)
	}
}
