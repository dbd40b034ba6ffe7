package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/OFFIS-RIT/atlas/backend/pkg/corpus"
	"github.com/OFFIS-RIT/atlas/backend/pkg/logger"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// DocumentSource reads cleaned documents and extracted claims from the
// object store. Upstream ingestion writes one JSON object per document
// under the documents prefix and one JSON array per batch under the
// claims prefix.
type DocumentSource struct {
	client       *s3.Client
	docPrefix    string
	claimsPrefix string
}

// NewDocumentSource wires a DocumentSource over an S3 client.
func NewDocumentSource(client *s3.Client, docPrefix, claimsPrefix string) *DocumentSource {
	return &DocumentSource{
		client:       client,
		docPrefix:    docPrefix,
		claimsPrefix: claimsPrefix,
	}
}

// ListDocumentIDs returns the ids of all stored documents, derived from
// their object keys.
func (s *DocumentSource) ListDocumentIDs(ctx context.Context) ([]string, error) {
	keys, err := ListFilesWithPrefix(ctx, s.client, s.docPrefix)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(keys))
	for _, key := range keys {
		if !strings.HasSuffix(key, ".json") {
			continue
		}
		id := strings.TrimSuffix(strings.TrimPrefix(key, s.docPrefix), ".json")
		if id != "" {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// GetDocument fetches and decodes one document by id.
func (s *DocumentSource) GetDocument(ctx context.Context, id string) (corpus.Document, error) {
	data, err := GetFile(ctx, s.client, s.docPrefix+id+".json")
	if err != nil {
		return corpus.Document{}, err
	}

	var doc corpus.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return corpus.Document{}, fmt.Errorf("decode document %s: %w", id, err)
	}
	if doc.ID == "" {
		doc.ID = id
	}
	return doc, nil
}

// ListClaims fetches and decodes every claim batch under the claims
// prefix. Batches that fail to decode are skipped with a warning so one
// bad upload cannot block the pipeline.
func (s *DocumentSource) ListClaims(ctx context.Context) ([]corpus.Claim, error) {
	keys, err := ListFilesWithPrefix(ctx, s.client, s.claimsPrefix)
	if err != nil {
		return nil, err
	}

	var claims []corpus.Claim
	for _, key := range keys {
		if !strings.HasSuffix(key, ".json") {
			continue
		}
		data, err := GetFile(ctx, s.client, key)
		if err != nil {
			return nil, err
		}
		var batch []corpus.Claim
		if err := json.Unmarshal(data, &batch); err != nil {
			logger.Warn("[Storage][ListClaims] Skipping undecodable claim batch", "key", key, "err", err)
			continue
		}
		claims = append(claims, batch...)
	}
	return claims, nil
}
