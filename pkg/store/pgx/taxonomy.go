package pgx

import (
	"context"

	"github.com/OFFIS-RIT/atlas/backend/pkg/corpus"
	"github.com/OFFIS-RIT/atlas/backend/pkg/logger"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"
)

// ReplaceTaxonomy swaps the whole cluster model in one transaction.
func (s *CorpusDBStorage) ReplaceTaxonomy(
	ctx context.Context,
	clusters []corpus.Cluster,
	papers []corpus.PaperAssignment,
	claims []corpus.ClaimAssignment,
) error {
	logger.Debug("[Taxonomy][ReplaceTaxonomy] Replacing taxonomy",
		"clusters", len(clusters), "papers", len(papers), "claims", len(claims))

	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	for _, table := range []string{"claim_clusters", "paper_clusters", "clusters"} {
		if _, err := tx.Exec(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}

	batch := &pgxv5.Batch{}
	for _, c := range clusters {
		batch.Queue(
			`INSERT INTO clusters
				(id, label, description, keywords, x, y, paper_count, primary_count, centroid)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			c.ID, c.Label, c.Description, c.Keywords, c.X, c.Y,
			c.PaperCount, c.PrimaryCount, pgvector.NewVector(c.Centroid),
		)
	}
	for _, p := range papers {
		batch.Queue(
			`INSERT INTO paper_clusters (document_id, cluster_id, confidence, is_primary)
			 VALUES ($1, $2, $3, $4)`,
			p.DocumentID, p.ClusterID, p.Confidence, p.Primary,
		)
	}
	for _, c := range claims {
		batch.Queue(
			`INSERT INTO claim_clusters (claim_id, cluster_id, confidence)
			 VALUES ($1, $2, $3)`,
			c.ClaimID, c.ClusterID, c.Confidence,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return err
	}

	return tx.Commit(ctx)
}

// ListClusters returns all clusters ordered by id.
func (s *CorpusDBStorage) ListClusters(ctx context.Context) ([]corpus.Cluster, error) {
	rows, err := s.conn.Query(ctx,
		`SELECT id, label, description, keywords, x, y, paper_count, primary_count, centroid
		 FROM clusters ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []corpus.Cluster
	for rows.Next() {
		var (
			c   corpus.Cluster
			vec pgvector.Vector
		)
		if err := rows.Scan(&c.ID, &c.Label, &c.Description, &c.Keywords,
			&c.X, &c.Y, &c.PaperCount, &c.PrimaryCount, &vec); err != nil {
			return nil, err
		}
		c.Centroid = vec.Slice()
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListPaperAssignments returns all document-to-cluster edges.
func (s *CorpusDBStorage) ListPaperAssignments(ctx context.Context) ([]corpus.PaperAssignment, error) {
	rows, err := s.conn.Query(ctx,
		`SELECT document_id, cluster_id, confidence, is_primary
		 FROM paper_clusters ORDER BY document_id, cluster_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []corpus.PaperAssignment
	for rows.Next() {
		var p corpus.PaperAssignment
		if err := rows.Scan(&p.DocumentID, &p.ClusterID, &p.Confidence, &p.Primary); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
