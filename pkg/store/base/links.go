package base

import (
	"fmt"

	"github.com/OFFIS-RIT/atlas/backend/pkg/corpus"
)

// ValidateLinks checks that adding newLinks to existing keeps the duplicate
// graph a forest: no self-loops, at most one outgoing link per claim, and
// no cycles. It returns the first violation found.
func ValidateLinks(existing, newLinks []corpus.DuplicateLink) error {
	next := make(map[string]string, len(existing)+len(newLinks))
	for _, l := range existing {
		next[l.FromID] = l.ToID
	}

	for _, l := range newLinks {
		if l.FromID == "" || l.ToID == "" {
			return fmt.Errorf("duplicate link with empty endpoint: %q -> %q", l.FromID, l.ToID)
		}
		if l.FromID == l.ToID {
			return fmt.Errorf("duplicate link is a self-loop: %q", l.FromID)
		}
		if prev, ok := next[l.FromID]; ok && prev != l.ToID {
			return fmt.Errorf("claim %q already resolves to %q", l.FromID, prev)
		}
		next[l.FromID] = l.ToID
	}

	for from := range next {
		if err := walkLinks(next, from); err != nil {
			return err
		}
	}
	return nil
}

// ResolveLink follows links from claimID to the claim it ultimately
// resolves to. A claim with no outgoing link resolves to itself.
func ResolveLink(links []corpus.DuplicateLink, claimID string) (string, error) {
	next := make(map[string]string, len(links))
	for _, l := range links {
		next[l.FromID] = l.ToID
	}
	cur := claimID
	for i := 0; i <= len(next); i++ {
		to, ok := next[cur]
		if !ok {
			return cur, nil
		}
		cur = to
	}
	return "", fmt.Errorf("duplicate links from %q do not terminate", claimID)
}

func walkLinks(next map[string]string, start string) error {
	cur := start
	for i := 0; i <= len(next); i++ {
		to, ok := next[cur]
		if !ok {
			return nil
		}
		cur = to
	}
	return fmt.Errorf("duplicate links from %q form a cycle", start)
}
