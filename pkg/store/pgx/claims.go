package pgx

import (
	"context"

	"github.com/OFFIS-RIT/atlas/backend/internal/util"
	"github.com/OFFIS-RIT/atlas/backend/pkg/corpus"
	"github.com/OFFIS-RIT/atlas/backend/pkg/logger"
	"github.com/OFFIS-RIT/atlas/backend/pkg/store/base"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"
)

// SaveClaims upserts a batch of claims by id. Existing duplicate links are
// preserved; only the claim payload is refreshed.
func (s *CorpusDBStorage) SaveClaims(ctx context.Context, claims []corpus.Claim) error {
	if len(claims) == 0 {
		return nil
	}

	logger.Debug("[Claims][SaveClaims] Upserting claims", "claims", len(claims))

	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	batch := &pgxv5.Batch{}
	for _, c := range claims {
		batch.Queue(
			`INSERT INTO claims (id, document_id, text, distilled, ts, confidence, embedding)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)
			 ON CONFLICT (id) DO UPDATE SET
				document_id = EXCLUDED.document_id,
				text = EXCLUDED.text,
				distilled = EXCLUDED.distilled,
				ts = EXCLUDED.ts,
				confidence = EXCLUDED.confidence,
				embedding = EXCLUDED.embedding`,
			c.ID, c.DocumentID, util.SanitizeDBText(c.Text), util.SanitizeDBText(c.Distilled),
			c.Timestamp, c.Confidence,
			pgvector.NewVector(c.Embedding),
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// ListActiveClaims returns every claim that has not been folded into
// another claim, embeddings included.
func (s *CorpusDBStorage) ListActiveClaims(ctx context.Context) ([]corpus.Claim, error) {
	rows, err := s.conn.Query(ctx,
		`SELECT id, document_id, text, distilled, ts, confidence, embedding
		 FROM claims WHERE duplicate_of IS NULL ORDER BY ts, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []corpus.Claim
	for rows.Next() {
		var (
			c   corpus.Claim
			vec pgvector.Vector
		)
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.Text, &c.Distilled,
			&c.Timestamp, &c.Confidence, &vec); err != nil {
			return nil, err
		}
		c.Embedding = vec.Slice()
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListDuplicateLinks returns all persisted duplicate links.
func (s *CorpusDBStorage) ListDuplicateLinks(ctx context.Context) ([]corpus.DuplicateLink, error) {
	rows, err := s.conn.Query(ctx,
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
func (s *CorpusDBStorage) MarkDuplicates(ctx context.Context, links []corpus.DuplicateLink) error {
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

	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, l := range links {
		if _, err := tx.Exec(ctx,
			`UPDATE claims SET duplicate_of = $2 WHERE id = $1`, l.FromID, l.ToID); err != nil {
			return err
		}
	}

	return tx.Commit(ctx)
}

// ResolveRoot follows duplicate links from claimID to the claim it
// ultimately resolves to.
func (s *CorpusDBStorage) ResolveRoot(ctx context.Context, claimID string) (string, error) {
	links, err := s.ListDuplicateLinks(ctx)
	if err != nil {
		return "", err
	}
	return base.ResolveLink(links, claimID)
}
