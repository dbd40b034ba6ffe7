package sqlite

import (
	"context"
	"fmt"

	"github.com/OFFIS-RIT/atlas/backend/pkg/corpus"
	"github.com/OFFIS-RIT/atlas/backend/pkg/logger"
	"github.com/OFFIS-RIT/atlas/backend/pkg/store/base"
)

// SaveClaims upserts a batch of claims by id. Existing duplicate links are
// preserved; only the claim payload is refreshed.
func (s *CorpusLiteStorage) SaveClaims(ctx context.Context, claims []corpus.Claim) error {
	if len(claims) == 0 {
		return nil
	}

	logger.Debug("[Claims][SaveClaims] Upserting claims", "claims", len(claims))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO claims (id, document_id, text, distilled, ts, confidence, embedding)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
			document_id = excluded.document_id,
			text = excluded.text,
			distilled = excluded.distilled,
			ts = excluded.ts,
			confidence = excluded.confidence,
			embedding = excluded.embedding`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, c := range claims {
		if _, err := stmt.ExecContext(ctx,
			c.ID, c.DocumentID, c.Text, c.Distilled, c.Timestamp, c.Confidence,
			base.EncodeVector(c.Embedding),
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ListActiveClaims returns every claim that has not been folded into
// another claim, embeddings included.
func (s *CorpusLiteStorage) ListActiveClaims(ctx context.Context) ([]corpus.Claim, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, document_id, text, distilled, ts, confidence, embedding
		 FROM claims WHERE duplicate_of IS NULL ORDER BY ts, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []corpus.Claim
	for rows.Next() {
		var (
			c    corpus.Claim
			blob []byte
		)
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.Text, &c.Distilled,
			&c.Timestamp, &c.Confidence, &blob); err != nil {
			return nil, err
		}
		vec, err := base.DecodeVector(blob)
		if err != nil {
			return nil, fmt.Errorf("decode embedding for claim %s: %w", c.ID, err)
		}
		c.Embedding = vec
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListDuplicateLinks returns all persisted duplicate links.
func (s *CorpusLiteStorage) ListDuplicateLinks(ctx context.Context) ([]corpus.DuplicateLink, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, duplicate_of FROM claims WHERE duplicate_of IS NOT NULL ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []corpus.DuplicateLink
	for rows.Next() {
		var l corpus.DuplicateLink
		if err := rows.Scan(&l.FromID, &l.ToID); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// MarkDuplicates records the given links after verifying the combined link
// set stays a forest. Nothing is written when validation fails.
func (s *CorpusLiteStorage) MarkDuplicates(ctx context.Context, links []corpus.DuplicateLink) error {
	if len(links) == 0 {
		return nil
	}

	existing, err := s.ListDuplicateLinks(ctx)
	if err != nil {
		return err
	}
	if err := base.ValidateLinks(existing, links); err != nil {
		return err
	}

	logger.Debug("[Claims][MarkDuplicates] Writing duplicate links", "links", len(links))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, l := range links {
		if _, err := tx.ExecContext(ctx,
			`UPDATE claims SET duplicate_of = ? WHERE id = ?`, l.ToID, l.FromID); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ResolveRoot follows duplicate links from claimID to the claim it
// ultimately resolves to.
func (s *CorpusLiteStorage) ResolveRoot(ctx context.Context, claimID string) (string, error) {
	links, err := s.ListDuplicateLinks(ctx)
	if err != nil {
		return "", err
	}
	return base.ResolveLink(links, claimID)
}
