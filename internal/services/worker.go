package services

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"alfredoptarigan/jd-matcher/internal/logger"
	"alfredoptarigan/jd-matcher/internal/repositories"
)

// IndexQueue schedules a job's resumes for (re)indexing in the search index.
type IndexQueue interface {
	Enqueue(jobID uuid.UUID)
}

type IndexWorker interface {
	IndexQueue
	Start(ctx context.Context)
	Stop()
}

type indexWorker struct {
	store       repositories.Store
	index       ResumeIndex
	queue       chan uuid.UUID
	concurrency int
	wg          sync.WaitGroup
	stopChan    chan struct{}
	stopOnce    sync.Once
	log         *logger.Logger
}

func NewIndexWorker(store repositories.Store, index ResumeIndex, concurrency int, log *logger.Logger) IndexWorker {
	if concurrency < 1 {
		concurrency = 1
	}
	return &indexWorker{
		store:       store,
		index:       index,
		queue:       make(chan uuid.UUID, 100),
		concurrency: concurrency,
		stopChan:    make(chan struct{}),
		log:         log.With("service", "IndexWorker"),
	}
}

func (w *indexWorker) Start(ctx context.Context) {
	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.process(ctx, i+1)
	}
	w.log.Info("index worker started", "concurrency", w.concurrency)
}

func (w *indexWorker) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopChan)
		w.wg.Wait()
		w.log.Info("index worker stopped")
	})
}

// Enqueue drops the request when the queue is full or the worker stopped;
// scripts/reindex_resumes.go rebuilds anything missed.
func (w *indexWorker) Enqueue(jobID uuid.UUID) {
	select {
	case <-w.stopChan:
		w.log.Warn("worker stopped, index request dropped", "job_id", jobID)
		return
	default:
	}

	select {
	case w.queue <- jobID:
	default:
		w.log.Warn("index queue full, request dropped", "job_id", jobID)
	}
}

func (w *indexWorker) process(ctx context.Context, workerID int) {
	defer w.wg.Done()

	for {
		select {
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return
		case jobID := <-w.queue:
			if err := w.indexJob(ctx, jobID); err != nil {
				w.log.Error("failed to index resumes", "worker", workerID, "job_id", jobID, "error", err)
			}
		}
	}
}

func (w *indexWorker) indexJob(ctx context.Context, jobID uuid.UUID) error {
	candidates, err := w.store.Candidates().FindByJob(ctx, jobID)
	if err != nil {
		return err
	}
	return w.index.IndexCandidates(ctx, jobID, candidates)
}

type noopIndexQueue struct{}

func NewNoopIndexQueue() IndexQueue {
	return noopIndexQueue{}
}

func (noopIndexQueue) Enqueue(uuid.UUID) {}
