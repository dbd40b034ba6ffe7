package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/OFFIS-RIT/atlas/backend/pkg/logger"
	"github.com/OFFIS-RIT/atlas/backend/pkg/store"
	"github.com/OFFIS-RIT/atlas/backend/pkg/store/base"
)

const providerVersionKey = "provider_version"

// Upsert writes a batch of embedded chunks, updating rows that already
// exist by id. Chunks whose embedding is missing or does not match the
// index dimension are skipped and counted, never written.
func (s *CorpusLiteStorage) Upsert(ctx context.Context, chunks []store.EmbeddedChunk) (store.UpsertSummary, error) {
	dim, err := s.dimension(ctx)
	if err != nil {
		return store.UpsertSummary{}, err
	}
	valid, skipped, _ := store.ScreenChunks(chunks, dim)
	if len(valid) == 0 {
		return store.UpsertSummary{Skipped: skipped}, nil
	}

	logger.Debug("[Index][Upsert] Writing chunks", "chunks", len(valid), "skipped", skipped)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return store.UpsertSummary{}, err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO chunks
			(id, document_id, section, ordinal, token_count, page, source_type, year, text, meta, embedding)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
			document_id = excluded.document_id,
			section = excluded.section,
			ordinal = excluded.ordinal,
			token_count = excluded.token_count,
			page = excluded.page,
			source_type = excluded.source_type,
			year = excluded.year,
			text = excluded.text,
			meta = excluded.meta,
			embedding = excluded.embedding`)
	if err != nil {
		return store.UpsertSummary{}, err
	}
	defer stmt.Close()

	for _, ec := range valid {
		meta, err := json.Marshal(ec.Chunk.Meta)
		if err != nil {
			return store.UpsertSummary{}, fmt.Errorf("marshal meta for chunk %s: %w", ec.Chunk.ID, err)
		}
		if _, err := stmt.ExecContext(ctx,
			ec.Chunk.ID, ec.Chunk.DocumentID, ec.Chunk.Section, ec.Chunk.Ordinal, ec.Chunk.TokenCount,
			ec.Chunk.Page, string(ec.Chunk.Meta.SourceType), ec.Chunk.Meta.Year, ec.Chunk.Text, string(meta),
			base.EncodeVector(ec.Embedding),
		); err != nil {
			return store.UpsertSummary{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return store.UpsertSummary{}, err
	}

	return store.UpsertSummary{Inserted: len(valid), Skipped: skipped}, nil
}

// Clear drops every chunk. Rebuilds go through Clear followed by a bulk
// Upsert.
func (s *CorpusLiteStorage) Clear(ctx context.Context) error {
	logger.Debug("[Index][Clear] Dropping all chunks")
	_, err := s.db.ExecContext(ctx, `DELETE FROM chunks`)
	return err
}

// dimension reports the embedding dimension of the stored vectors, zero
// when the index is empty. Vectors are stored as little-endian float32
// blobs, four bytes per component.
func (s *CorpusLiteStorage) dimension(ctx context.Context) (int, error) {
	var bytes int
	err := s.db.QueryRowContext(ctx, `SELECT LENGTH(embedding) FROM chunks LIMIT 1`).Scan(&bytes)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return bytes / 4, nil
}

// Search scores every matching chunk against the query embedding in Go and
// returns the top limit results by cosine similarity mapped to [0, 1].
// Ties break on id so results are deterministic.
func (s *CorpusLiteStorage) Search(
	ctx context.Context,
	embedding []float32,
	limit int,
	filter store.Filter,
) ([]store.SearchResult, error) {
	if limit <= 0 {
		limit = 10
	}

	query := `SELECT id, document_id, section, ordinal, token_count, page, text, meta, embedding FROM chunks`
	var (
		conds []string
		args  []any
	)
	if filter.SourceType != "" {
		conds = append(conds, "source_type = ?")
		args = append(args, string(filter.SourceType))
	}
	if filter.DocumentID != "" {
		conds = append(conds, "document_id = ?")
		args = append(args, filter.DocumentID)
	}
	if filter.Year != nil {
		conds = append(conds, "year = ?")
		args = append(args, *filter.Year)
	}
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []store.SearchResult
	for rows.Next() {
		var (
			res  store.SearchResult
			meta string
			blob []byte
		)
		if err := rows.Scan(
			&res.Chunk.ID, &res.Chunk.DocumentID, &res.Chunk.Section, &res.Chunk.Ordinal,
			&res.Chunk.TokenCount, &res.Chunk.Page, &res.Chunk.Text, &meta, &blob,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(meta), &res.Chunk.Meta); err != nil {
			return nil, fmt.Errorf("unmarshal meta for chunk %s: %w", res.Chunk.ID, err)
		}
		vec, err := base.DecodeVector(blob)
		if err != nil {
			return nil, fmt.Errorf("decode embedding for chunk %s: %w", res.Chunk.ID, err)
		}
		res.Score = (1 + base.Cosine(embedding, vec)) / 2
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Chunk.ID < results[j].Chunk.ID
	})
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// ChunkVectors returns every stored chunk embedding.
func (s *CorpusLiteStorage) ChunkVectors(ctx context.Context) ([]store.ChunkVector, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, document_id, token_count, embedding FROM chunks ORDER BY document_id, ordinal`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.ChunkVector
	for rows.Next() {
		var (
			cv   store.ChunkVector
			blob []byte
		)
		if err := rows.Scan(&cv.ChunkID, &cv.DocumentID, &cv.TokenCount, &blob); err != nil {
			return nil, err
		}
		vec, err := base.DecodeVector(blob)
		if err != nil {
			return nil, fmt.Errorf("decode embedding for chunk %s: %w", cv.ChunkID, err)
		}
		cv.Embedding = vec
		out = append(out, cv)
	}
	return out, rows.Err()
}

// Stats summarizes the index contents.
func (s *CorpusLiteStorage) Stats(ctx context.Context) (store.IndexStats, error) {
	var stats store.IndexStats
	err := s.db.QueryRowContext(ctx, `SELECT
			(SELECT COUNT(*) FROM chunks),
			(SELECT COUNT(DISTINCT document_id) FROM chunks),
			(SELECT COUNT(*) FROM claims),
			(SELECT COUNT(*) FROM claims WHERE duplicate_of IS NULL),
			(SELECT COUNT(*) FROM clusters)`).
		Scan(&stats.Chunks, &stats.Documents, &stats.Claims, &stats.ActiveClaims, &stats.Clusters)
	if err != nil {
		return store.IndexStats{}, err
	}

	dim, err := s.dimension(ctx)
	if err != nil {
		return store.IndexStats{}, err
	}
	stats.Dimension = dim
	stats.Backend = store.BackendSQLite

	version, err := s.ProviderVersion(ctx)
	if err != nil {
		return store.IndexStats{}, err
	}
	stats.ProviderVersion = version
	return stats, nil
}

// ProviderVersion returns the recorded embedding provider version, or the
// empty string when the index has never been written.
func (s *CorpusLiteStorage) ProviderVersion(ctx context.Context) (string, error) {
	var version string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM index_meta WHERE key = ?`, providerVersionKey).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return version, nil
}

// SetProviderVersion records the embedding provider version of the index.
func (s *CorpusLiteStorage) SetProviderVersion(ctx context.Context, version string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO index_meta (key, value) VALUES (?, ?)
		 ON CONFLICT (key) DO UPDATE SET value = excluded.value`,
		providerVersionKey, version)
	return err
}
