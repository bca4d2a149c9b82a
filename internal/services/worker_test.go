package services

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alfredoptarigan/jd-matcher/internal/logger"
	"alfredoptarigan/jd-matcher/internal/models"
)

// memIndex records indexed candidates and answers searches by substring.
type memIndex struct {
	mu      sync.Mutex
	indexed map[uuid.UUID][]models.Candidate
	removed []uuid.UUID
}

func newMemIndex() *memIndex {
	return &memIndex{indexed: map[uuid.UUID][]models.Candidate{}}
}

func (m *memIndex) InitCollection(context.Context) error { return nil }

func (m *memIndex) IndexCandidates(_ context.Context, jobID uuid.UUID, candidates []models.Candidate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.indexed[jobID] = append([]models.Candidate(nil), candidates...)
	return nil
}

func (m *memIndex) RemoveJob(_ context.Context, jobID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.indexed, jobID)
	m.removed = append(m.removed, jobID)
	return nil
}

func (m *memIndex) Search(_ context.Context, jobID uuid.UUID, query string, limit int) ([]IndexHit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var hits []IndexHit
	for _, c := range m.indexed[jobID] {
		if strings.Contains(c.ResumeText, query) && len(hits) < limit {
			hits = append(hits, IndexHit{CandidateID: c.ID.String(), Score: 0.9, Text: c.ResumeText})
		}
	}
	return hits, nil
}

func (m *memIndex) count(jobID uuid.UUID) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.indexed[jobID])
}

func TestIndexWorker_IndexesEnqueuedJobs(t *testing.T) {
	f := newFixture(t)
	result := f.analyze(t, "Backend", pdf("a.pdf", "go developer score:70"), pdf("b.pdf", "java score:40"))
	jobID := uuid.MustParse(result.Job.ID)

	index := newMemIndex()
	worker := NewIndexWorker(f.store, index, 2, logger.Nop())
	worker.Start(context.Background())
	defer worker.Stop()

	worker.Enqueue(jobID)

	require.Eventually(t, func() bool { return index.count(jobID) == 2 }, 2*time.Second, 10*time.Millisecond)
}

func TestIndexWorker_DropsAfterStop(t *testing.T) {
	f := newFixture(t)
	index := newMemIndex()
	worker := NewIndexWorker(f.store, index, 1, logger.Nop())
	worker.Start(context.Background())
	worker.Stop()
	worker.Stop()

	worker.Enqueue(uuid.New())
	assert.Empty(t, index.indexed)
}

func TestSearchCandidates_MapsHitsToCandidates(t *testing.T) {
	f := newFixture(t)
	index := newMemIndex()
	f.svc = NewAnalysisService(AnalysisDeps{
		Store:     f.store,
		Pipeline:  NewUploadPipeline(f.storage),
		Extractor: textExtractor{},
		Scorer:    f.scorer,
		Index:     index,
	})

	result := f.analyze(t, "Backend",
		pdf("alice.pdf", "kubernetes and go "+strings.Repeat("x", 400)),
		pdf("bob.pdf", "frontend only"),
	)
	jobID := uuid.MustParse(result.Job.ID)

	candidates, err := f.store.Candidates().FindByJob(context.Background(), jobID)
	require.NoError(t, err)
	require.NoError(t, index.IndexCandidates(context.Background(), jobID, candidates))

	hits, err := f.svc.SearchCandidates(context.Background(), jobID, "kubernetes", 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "alice", hits[0].Name)
	assert.True(t, strings.HasSuffix(hits[0].Excerpt, "..."))
	assert.Equal(t, excerptLength+3, len([]rune(hits[0].Excerpt)))

	_, err = f.svc.SearchCandidates(context.Background(), jobID, "   ", 5)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.SearchCandidates(context.Background(), uuid.New(), "go", 5)
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, f.svc.DeleteAnalysis(context.Background(), uuid.MustParse(result.Analysis.ID)))
	assert.Equal(t, []uuid.UUID{jobID}, index.removed)
}
