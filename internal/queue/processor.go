package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/OFFIS-RIT/atlas/backend/internal/config"
	"github.com/OFFIS-RIT/atlas/backend/pkg/ai"
	"github.com/OFFIS-RIT/atlas/backend/pkg/leaselock"
	"github.com/OFFIS-RIT/atlas/backend/pkg/logger"
	"github.com/OFFIS-RIT/atlas/backend/pkg/pipeline"
	"github.com/OFFIS-RIT/atlas/backend/pkg/store"
)

// Processor dispatches queue messages to the pipeline jobs. With a lease
// lock attached, each job kind is serialized across worker replicas.
type Processor struct {
	indexer  *pipeline.Indexer
	taxonomy *pipeline.TaxonomyRunner
	deduper  *pipeline.Deduper
	locker   *leaselock.Client
}

// NewProcessor builds the three pipeline jobs over shared dependencies.
// locker may be nil for single-worker deployments.
func NewProcessor(
	cfg config.Config,
	source pipeline.Source,
	aiClient ai.CorpusAIClient,
	storage store.Storage,
	locker *leaselock.Client,
) (*Processor, error) {
	embedder := pipeline.EmbedderStack(cfg, aiClient)
	indexer, err := pipeline.NewIndexer(cfg, source, embedder, storage)
	if err != nil {
		return nil, err
	}
	return &Processor{
		indexer:  indexer,
		taxonomy: pipeline.NewTaxonomyRunner(cfg, source, aiClient, storage),
		deduper:  pipeline.NewDeduper(cfg, source, embedder, storage),
		locker:   locker,
	}, nil
}

// Handle runs the job a message asks for. A returned error sends the
// message to the retry queue.
func (p *Processor) Handle(ctx context.Context, queueName string, body []byte) error {
	switch queueName {
	case IndexQueue:
		var job IndexJob
		if err := json.Unmarshal(body, &job); err != nil {
			return fmt.Errorf("malformed index job: %w", err)
		}
		return p.withJobLock(ctx, "index", func(ctx context.Context) error {
			summary, err := p.indexer.Run(ctx, job.Force)
			if err != nil {
				return err
			}
			logger.Info("[Queue][Index] Job done",
				"indexed", summary.Documents, "chunks", summary.Chunks, "failed", summary.Failed)
			return nil
		})

	case TaxonomyQueue:
		return p.withJobLock(ctx, "taxonomy", func(ctx context.Context) error {
			summary, err := p.taxonomy.Run(ctx)
			if err != nil {
				return err
			}
			logger.Info("[Queue][Taxonomy] Job done",
				"documents", summary.Documents, "k", summary.ChosenK, "labelFallbacks", summary.LabelFallbacks)
			return nil
		})

	case DedupeQueue:
		return p.withJobLock(ctx, "dedupe", func(ctx context.Context) error {
			summary, err := p.deduper.Run(ctx)
			if err != nil {
				return err
			}
			logger.Info("[Queue][Dedupe] Job done",
				"ingested", summary.Ingested, "active", summary.Active, "folded", summary.Folded)
			return nil
		})
	}

	return fmt.Errorf("no handler for queue %s", queueName)
}

// withJobLock serializes a job kind across workers when a locker is
// configured.
func (p *Processor) withJobLock(ctx context.Context, job string, fn func(ctx context.Context) error) error {
	if p.locker == nil {
		return fn(ctx)
	}
	return p.locker.WithLease(ctx, "job:"+job, leaselock.Options{
		TTL:         10 * time.Minute,
		RenewEvery:  4 * time.Minute,
		Wait:        true,
		TokenPrefix: job + "/",
	}, fn)
}
