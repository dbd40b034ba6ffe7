package ai

import (
	"context"
	"fmt"
	"strings"

	"github.com/OFFIS-RIT/atlas/backend/internal/util"
)

// MaxLabelSampleChars bounds the excerpt length per sampled document so the
// labeling prompt stays well inside the model context.
const MaxLabelSampleChars = 600

// ClusterLabel is the structured labeling result for one cluster.
type ClusterLabel struct {
	Label       string   `json:"label" jsonschema_description:"Short topical name for the cluster, at most six words."`
	Description string   `json:"description" jsonschema_description:"One or two sentences describing the shared topic."`
	Keywords    []string `json:"keywords" jsonschema_description:"Between three and five lowercase keywords."`
}

// LabelSample is one document shown to the labeling model: its title plus a
// representative excerpt.
type LabelSample struct {
	Title   string
	Excerpt string
}

// CallLabelAI asks the model to name a cluster from the given samples. The
// response is validated before it is accepted; invalid responses count as
// failures and are retried. Callers fall back to PlaceholderLabel when the
// error return is non-nil.
func CallLabelAI(
	ctx context.Context,
	client Labeler,
	samples []LabelSample,
	maxTries int,
) (*ClusterLabel, error) {
	if client == nil {
		return nil, fmt.Errorf("ai client is nil")
	}
	if len(samples) == 0 {
		return nil, fmt.Errorf("no samples to label")
	}
	if maxTries < 1 {
		maxTries = 1
	}

	var block strings.Builder
	block.WriteString("Documents:\n")
	for i, s := range samples {
		title := strings.TrimSpace(s.Title)
		if title == "" {
			title = "(untitled)"
		}
		excerpt := strings.TrimSpace(s.Excerpt)
		if len(excerpt) > MaxLabelSampleChars {
			excerpt = excerpt[:MaxLabelSampleChars]
		}
		fmt.Fprintf(&block, "%d. Title: %s\n   Excerpt: %s\n", i+1, title, excerpt)
	}
	prompt := fmt.Sprintf(LabelPrompt, block.String())

	var res ClusterLabel
	err := util.RetryErrWithContext(ctx, maxTries, func(ctx context.Context) error {
		res = ClusterLabel{}
		if err := client.GenerateCompletionWithFormat(
			ctx, "label_cluster", "Name a topical document cluster.", prompt, &res,
		); err != nil {
			return err
		}
		return validateLabel(&res)
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

// PlaceholderLabel is the deterministic fallback used when labeling fails.
// The taxonomy still ships; only the human-readable name is degraded.
func PlaceholderLabel(clusterID int) ClusterLabel {
	return ClusterLabel{
		Label:       fmt.Sprintf("Cluster %d", clusterID),
		Description: "Automatic labeling failed for this cluster.",
		Keywords:    nil,
	}
}

func validateLabel(l *ClusterLabel) error {
	l.Label = strings.TrimSpace(l.Label)
	l.Description = strings.TrimSpace(l.Description)
	if l.Label == "" {
		return fmt.Errorf("empty label")
	}
	cleaned := make([]string, 0, len(l.Keywords))
	for _, kw := range l.Keywords {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw != "" {
			cleaned = append(cleaned, kw)
		}
	}
	if len(cleaned) < 3 || len(cleaned) > 5 {
		return fmt.Errorf("expected 3 to 5 keywords, got %d", len(cleaned))
	}
	l.Keywords = cleaned
	return nil
}
