package pgx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/OFFIS-RIT/atlas/backend/internal/util"
	"github.com/OFFIS-RIT/atlas/backend/pkg/logger"
	"github.com/OFFIS-RIT/atlas/backend/pkg/store"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"
)

const providerVersionKey = "provider_version"

// Upsert writes a batch of embedded chunks, updating rows that already
// exist by id. Chunks whose embedding is missing or does not match the
// index dimension are skipped and counted, never written.
func (s *CorpusDBStorage) Upsert(ctx context.Context, chunks []store.EmbeddedChunk) (store.UpsertSummary, error) {
	dim, err := s.dimension(ctx)
	if err != nil {
		return store.UpsertSummary{}, err
	}
	valid, skipped, _ := store.ScreenChunks(chunks, dim)
	if len(valid) == 0 {
		return store.UpsertSummary{Skipped: skipped}, nil
	}

	logger.Debug("[Index][Upsert] Writing chunks", "chunks", len(valid), "skipped", skipped)

	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return store.UpsertSummary{}, err
	}
	defer tx.Rollback(ctx)

	batch := &pgxv5.Batch{}
	for _, ec := range valid {
		meta, err := json.Marshal(ec.Chunk.Meta)
		if err != nil {
			return store.UpsertSummary{}, fmt.Errorf("marshal meta for chunk %s: %w", ec.Chunk.ID, err)
		}
		batch.Queue(
			`INSERT INTO chunks
				(id, document_id, section, ordinal, token_count, page, source_type, year, text, meta, embedding)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			 ON CONFLICT (id) DO UPDATE SET
				document_id = EXCLUDED.document_id,
				section = EXCLUDED.section,
				ordinal = EXCLUDED.ordinal,
				token_count = EXCLUDED.token_count,
				page = EXCLUDED.page,
				source_type = EXCLUDED.source_type,
				year = EXCLUDED.year,
				text = EXCLUDED.text,
				meta = EXCLUDED.meta,
				embedding = EXCLUDED.embedding`,
			ec.Chunk.ID, ec.Chunk.DocumentID, ec.Chunk.Section, ec.Chunk.Ordinal, ec.Chunk.TokenCount,
			ec.Chunk.Page, string(ec.Chunk.Meta.SourceType), ec.Chunk.Meta.Year,
			util.SanitizeDBText(ec.Chunk.Text), meta,
			pgvector.NewVector(ec.Embedding),
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return store.UpsertSummary{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return store.UpsertSummary{}, err
	}

	return store.UpsertSummary{Inserted: len(valid), Skipped: skipped}, nil
}

// Clear drops every chunk. Rebuilds go through Clear followed by a bulk
// Upsert.
func (s *CorpusDBStorage) Clear(ctx context.Context) error {
	logger.Debug("[Index][Clear] Dropping all chunks")
	_, err := s.conn.Exec(ctx, `DELETE FROM chunks`)
	return err
}

// dimension reports the embedding dimension of the stored vectors, zero
// when the index is empty.
func (s *CorpusDBStorage) dimension(ctx context.Context) (int, error) {
	var dim int
	err := s.conn.QueryRow(ctx, `SELECT vector_dims(embedding) FROM chunks LIMIT 1`).Scan(&dim)
	if errors.Is(err, pgxv5.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return dim, nil
}

// Search returns the limit most similar chunks to the query embedding,
// scored by cosine similarity mapped to [0, 1] and optionally filtered by
// source attributes. Ties break on id so both backends order identically.
func (s *CorpusDBStorage) Search(
	ctx context.Context,
	embedding []float32,
	limit int,
	filter store.Filter,
) ([]store.SearchResult, error) {
	if limit <= 0 {
		limit = 10
	}

	args := []any{pgvector.NewVector(embedding)}
	conds := []string{}
	if filter.SourceType != "" {
		args = append(args, string(filter.SourceType))
		conds = append(conds, fmt.Sprintf("source_type = $%d", len(args)))
	}
	if filter.DocumentID != "" {
		args = append(args, filter.DocumentID)
		conds = append(conds, fmt.Sprintf("document_id = $%d", len(args)))
	}
	if filter.Year != nil {
		args = append(args, *filter.Year)
		conds = append(conds, fmt.Sprintf("year = $%d", len(args)))
	}

	query := `SELECT id, document_id, section, ordinal, token_count, page, text, meta,
			1 - (embedding <=> $1) / 2 AS score
		FROM chunks`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	args = append(args, limit)
	query += fmt.Sprintf(" ORDER BY embedding <=> $1, id LIMIT $%d", len(args))

	rows, err := s.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []store.SearchResult
	for rows.Next() {
		var (
			res  store.SearchResult
			meta []byte
		)
		if err := rows.Scan(
			&res.Chunk.ID, &res.Chunk.DocumentID, &res.Chunk.Section, &res.Chunk.Ordinal,
			&res.Chunk.TokenCount, &res.Chunk.Page, &res.Chunk.Text, &meta, &res.Score,
		); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(meta, &res.Chunk.Meta); err != nil {
			return nil, fmt.Errorf("unmarshal meta for chunk %s: %w", res.Chunk.ID, err)
		}
		results = append(results, res)
	}
	return results, rows.Err()
}

// ChunkVectors streams every stored chunk embedding, used by the taxonomy
// builder to aggregate document vectors.
func (s *CorpusDBStorage) ChunkVectors(ctx context.Context) ([]store.ChunkVector, error) {
	rows, err := s.conn.Query(ctx,
		`SELECT id, document_id, token_count, embedding FROM chunks ORDER BY document_id, ordinal`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []store.ChunkVector
	for rows.Next() {
		var (
			cv  store.ChunkVector
			vec pgvector.Vector
		)
		if err := rows.Scan(&cv.ChunkID, &cv.DocumentID, &cv.TokenCount, &vec); err != nil {
			return nil, err
		}
		cv.Embedding = vec.Slice()
		out = append(out, cv)
	}
	return out, rows.Err()
}

// Stats summarizes the index contents.
func (s *CorpusDBStorage) Stats(ctx context.Context) (store.IndexStats, error) {
	var stats store.IndexStats
	err := s.conn.QueryRow(ctx, `SELECT
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
	stats.Backend = store.BackendPostgres

	version, err := s.ProviderVersion(ctx)
	if err != nil {
		return store.IndexStats{}, err
	}
	stats.ProviderVersion = version
	return stats, nil
}

// ProviderVersion returns the recorded embedding provider version, or the
// empty string when the index has never been written.
func (s *CorpusDBStorage) ProviderVersion(ctx context.Context) (string, error) {
	var version string
	err := s.conn.QueryRow(ctx,
		`SELECT value FROM index_meta WHERE key = $1`, providerVersionKey).Scan(&version)
	if errors.Is(err, pgxv5.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return version, nil
}

// SetProviderVersion records the embedding provider version of the index.
func (s *CorpusDBStorage) SetProviderVersion(ctx context.Context, version string) error {
	_, err := s.conn.Exec(ctx,
		`INSERT INTO index_meta (key, value) VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
		providerVersionKey, version)
	return err
}
