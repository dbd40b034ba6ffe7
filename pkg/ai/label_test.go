package ai

import (
	"context"
	"fmt"
	"strings"
	"testing"
)

// fakeLabeler returns scripted responses and records the prompts it saw.
type fakeLabeler struct {
	responses []ClusterLabel
	errs      []error
	calls     int
	prompts   []string
}

func (f *fakeLabeler) GenerateCompletionWithFormat(
	_ context.Context,
	_ string,
	_ string,
	prompt string,
	out any,
	_ ...GenerateOption,
) error {
	idx := f.calls
	f.calls++
	f.prompts = append(f.prompts, prompt)
	if idx < len(f.errs) && f.errs[idx] != nil {
		return f.errs[idx]
	}
	if idx < len(f.responses) {
		*(out.(*ClusterLabel)) = f.responses[idx]
	}
	return nil
}

func TestCallLabelAI(t *testing.T) {
	good := ClusterLabel{
		Label:       "Grid Flexibility",
		Description: "Documents about demand response and grid balancing.",
		Keywords:    []string{"grid", "flexibility", "demand"},
	}
	samples := []LabelSample{{Title: "Paper A", Excerpt: "Demand response in distribution grids."}}

	t.Run("success first try", func(t *testing.T) {
		f := &fakeLabeler{responses: []ClusterLabel{good}}
		got, err := CallLabelAI(context.Background(), f, samples, 3)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Label != good.Label || len(got.Keywords) != 3 {
			t.Fatalf("unexpected label: %+v", got)
		}
		if f.calls != 1 {
			t.Fatalf("expected one call, got %d", f.calls)
		}
		if !strings.Contains(f.prompts[0], "Paper A") {
			t.Fatalf("prompt does not carry the sample title: %s", f.prompts[0])
		}
	})

	t.Run("retries transient error", func(t *testing.T) {
		f := &fakeLabeler{
			errs:      []error{fmt.Errorf("upstream 500")},
			responses: []ClusterLabel{{}, good},
		}
		got, err := CallLabelAI(context.Background(), f, samples, 3)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got.Label != good.Label {
			t.Fatalf("unexpected label: %+v", got)
		}
		if f.calls != 2 {
			t.Fatalf("expected two calls, got %d", f.calls)
		}
	})

	t.Run("invalid response counts as failure", func(t *testing.T) {
		bad := ClusterLabel{Label: "", Keywords: []string{"one"}}
		f := &fakeLabeler{responses: []ClusterLabel{bad, bad}}
		if _, err := CallLabelAI(context.Background(), f, samples, 2); err == nil {
			t.Fatal("expected an error for an invalid label")
		}
		if f.calls != 2 {
			t.Fatalf("expected two calls, got %d", f.calls)
		}
	})

	t.Run("keyword count enforced", func(t *testing.T) {
		six := ClusterLabel{
			Label:    "Too Many",
			Keywords: []string{"a", "b", "c", "d", "e", "f"},
		}
		f := &fakeLabeler{responses: []ClusterLabel{six}}
		if _, err := CallLabelAI(context.Background(), f, samples, 1); err == nil {
			t.Fatal("expected an error for six keywords")
		}
	})

	t.Run("no samples", func(t *testing.T) {
		f := &fakeLabeler{}
		if _, err := CallLabelAI(context.Background(), f, nil, 1); err == nil {
			t.Fatal("expected an error for empty samples")
		}
	})
}

func TestPlaceholderLabel(t *testing.T) {
	got := PlaceholderLabel(7)
	if got.Label != "Cluster 7" {
		t.Fatalf("unexpected placeholder label %q", got.Label)
	}
}
