package seed

import (
	"context"
	"fmt"
	"time"

	"github.com/simplyliz/searchd/internal/backend"
	"github.com/simplyliz/searchd/internal/backend/sqlitedb"
	"github.com/simplyliz/searchd/internal/logging"
)

// Document is one row a generator produces; the seeder writes it
// through to the database backend as a backend.SearchResult.
type Document = backend.SearchResult

// Generator produces documents to seed for a dataset. Implementations
// may synthesize data or adapt a live upstream source; this package
// only owns job bookkeeping and the write path.
type Generator func(ctx context.Context, dataset string, count int) ([]Document, error)

// Seeder runs seeding jobs against a database backend, tracking
// progress in a JobStore.
type Seeder struct {
	db        *sqlitedb.Backend
	jobs      *JobStore
	logger    *logging.Logger
	generator Generator
}

// NewSeeder constructs a Seeder. generator defaults to
// SyntheticGenerator when nil.
func NewSeeder(db *sqlitedb.Backend, jobs *JobStore, logger *logging.Logger, generator Generator) *Seeder {
	if generator == nil {
		generator = SyntheticGenerator
	}
	return &Seeder{db: db, jobs: jobs, logger: logger, generator: generator}
}

// Start registers a new job for dataset and runs it asynchronously in
// a goroutine, returning immediately with the job's ID so callers can
// poll progress via JobStore.Get.
func (s *Seeder) Start(ctx context.Context, dataset string, count int) *Job {
	job := s.jobs.Create(dataset)
	go s.run(context.WithoutCancel(ctx), job.ID, dataset, count)
	return job
}

func (s *Seeder) run(ctx context.Context, jobID, dataset string, count int) {
	s.jobs.markRunning(jobID)

	docs, err := s.generator(ctx, dataset, count)
	if err != nil {
		s.jobs.markFailed(jobID, err)
		s.logger.Error("seed generation failed", map[string]interface{}{"jobId": jobID, "dataset": dataset, "error": err.Error()})
		return
	}

	written := 0
	for i, doc := range docs {
		if err := s.db.InsertDocument(ctx, doc); err != nil {
			s.jobs.markFailed(jobID, err)
			s.logger.Error("seed write failed", map[string]interface{}{"jobId": jobID, "dataset": dataset, "error": err.Error()})
			return
		}
		written++
		if len(docs) > 0 {
			progress := ((i + 1) * 100) / len(docs)
			s.jobs.updateProgress(jobID, progress, written)
		}
	}

	s.jobs.markCompleted(jobID)
	s.logger.Info("seed job completed", map[string]interface{}{"jobId": jobID, "dataset": dataset, "rowsWritten": written})
}

// SyntheticGenerator produces count placeholder documents for
// dataset, useful for demos and integration tests with no live
// upstream source configured.
func SyntheticGenerator(ctx context.Context, dataset string, count int) ([]Document, error) {
	docs := make([]Document, 0, count)
	now := time.Now()
	for i := 0; i < count; i++ {
		docs = append(docs, Document{
			ID:              fmt.Sprintf("%s-%d", dataset, i),
			Kind:            backend.KindCustom,
			CustomKind:      dataset,
			Title:           fmt.Sprintf("%s record %d", dataset, i),
			RelevanceScore:  50,
			MatchType:       backend.MatchTitle,
			Category:        dataset,
			CreatedAt:       now,
			UpdatedAt:       now,
		})
	}
	return docs, nil
}
