package sqlite

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/OFFIS-RIT/atlas/backend/pkg/corpus"
	"github.com/OFFIS-RIT/atlas/backend/pkg/logger"
	"github.com/OFFIS-RIT/atlas/backend/pkg/store/base"
)

// ReplaceTaxonomy swaps the whole cluster model in one transaction.
func (s *CorpusLiteStorage) ReplaceTaxonomy(
	ctx context.Context,
	clusters []corpus.Cluster,
	papers []corpus.PaperAssignment,
	claims []corpus.ClaimAssignment,
) error {
	logger.Debug("[Taxonomy][ReplaceTaxonomy] Replacing taxonomy",
		"clusters", len(clusters), "papers", len(papers), "claims", len(claims))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, table := range []string{"claim_clusters", "paper_clusters", "clusters"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}

	for _, c := range clusters {
		keywords, err := json.Marshal(c.Keywords)
		if err != nil {
			return fmt.Errorf("marshal keywords for cluster %d: %w", c.ID, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO clusters
				(id, label, description, keywords, x, y, paper_count, primary_count, centroid)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID, c.Label, c.Description, string(keywords), c.X, c.Y,
			c.PaperCount, c.PrimaryCount, base.EncodeVector(c.Centroid),
		); err != nil {
			return err
		}
	}
	for _, p := range papers {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO paper_clusters (document_id, cluster_id, confidence, is_primary)
			 VALUES (?, ?, ?, ?)`,
			p.DocumentID, p.ClusterID, p.Confidence, p.Primary,
		); err != nil {
			return err
		}
	}
	for _, c := range claims {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO claim_clusters (claim_id, cluster_id, confidence) VALUES (?, ?, ?)`,
			c.ClaimID, c.ClusterID, c.Confidence,
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ListClusters returns all clusters ordered by id.
func (s *CorpusLiteStorage) ListClusters(ctx context.Context) ([]corpus.Cluster, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, label, description, keywords, x, y, paper_count, primary_count, centroid
		 FROM clusters ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []corpus.Cluster
	for rows.Next() {
		var (
			c        corpus.Cluster
			keywords string
			blob     []byte
		)
		if err := rows.Scan(&c.ID, &c.Label, &c.Description, &keywords,
			&c.X, &c.Y, &c.PaperCount, &c.PrimaryCount, &blob); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(keywords), &c.Keywords); err != nil {
			return nil, fmt.Errorf("unmarshal keywords for cluster %d: %w", c.ID, err)
		}
		vec, err := base.DecodeVector(blob)
		if err != nil {
			return nil, fmt.Errorf("decode centroid for cluster %d: %w", c.ID, err)
		}
		c.Centroid = vec
		out = append(out, c)
	}
	return out, rows.Err()
}

// ListPaperAssignments returns all document-to-cluster edges.
func (s *CorpusLiteStorage) ListPaperAssignments(ctx context.Context) ([]corpus.PaperAssignment, error) {
	rows, err := s.db.QueryContext(ctx,
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
