package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"alfredoptarigan/jd-matcher/internal/models"
	"alfredoptarigan/jd-matcher/internal/repositories"
	"alfredoptarigan/jd-matcher/internal/testutil"
)

type recordingNotifier struct {
	events []AnalysisEvent
}

func (n *recordingNotifier) Publish(_ context.Context, e AnalysisEvent) error {
	n.events = append(n.events, e)
	return nil
}

func (n *recordingNotifier) Close() error { return nil }

type recordingQueue struct {
	mu   sync.Mutex
	jobs []uuid.UUID
}

func (q *recordingQueue) Enqueue(id uuid.UUID) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, id)
}

// hookCache is an in-memory cache that runs afterSet once a detail is stored.
type hookCache struct {
	mu       sync.Mutex
	entries  map[string]*models.AnalysisDetail
	afterSet func()
}

func newHookCache() *hookCache {
	return &hookCache{entries: map[string]*models.AnalysisDetail{}}
}

func (c *hookCache) Get(_ context.Context, id string) (*models.AnalysisDetail, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.entries[id], nil
}

func (c *hookCache) Set(_ context.Context, d *models.AnalysisDetail) error {
	c.mu.Lock()
	c.entries[d.ID] = d
	hook := c.afterSet
	c.mu.Unlock()

	if hook != nil {
		hook()
	}
	return nil
}

func (c *hookCache) Invalidate(_ context.Context, id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, id)
	return nil
}

func (c *hookCache) Close() error { return nil }

func (c *hookCache) has(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[id]
	return ok
}

type fixture struct {
	svc      AnalysisService
	store    repositories.Store
	storage  *memStorage
	scorer   *keywordScorer
	notifier *recordingNotifier
	queue    *recordingQueue
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		store:    repositories.NewStore(testutil.DB(t)),
		storage:  newMemStorage(),
		scorer:   &keywordScorer{},
		notifier: &recordingNotifier{},
		queue:    &recordingQueue{},
	}
	f.svc = NewAnalysisService(AnalysisDeps{
		Store:     f.store,
		Pipeline:  NewUploadPipeline(f.storage),
		Extractor: textExtractor{},
		Scorer:    f.scorer,
		ModelName: "fake-model",
		Indexer:   f.queue,
		Notifier:  f.notifier,
		Now:       func() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) },
	})
	return f
}

func pdf(name, text string) UploadedFile {
	return UploadedFile{Name: name, Data: []byte(text)}
}

func (f *fixture) analyze(t *testing.T, title string, resumes ...UploadedFile) *models.AnalysisResult {
	t.Helper()
	result, err := f.svc.CreateJobWithAnalysis(context.Background(), title, pdf("jd.pdf", "need go"), resumes)
	require.NoError(t, err)
	return result
}

func TestCreateJobWithAnalysis_ScoresEveryCandidate(t *testing.T) {
	f := newFixture(t)

	result := f.analyze(t, "Backend Engineer",
		pdf("alice.pdf", "score:72"),
		pdf("bob.pdf", "score:95"),
		pdf("carol.pdf", "score:60"),
	)

	assert.Equal(t, "Backend Engineer", result.Job.Title)
	assert.Equal(t, "done", result.Analysis.Status)
	assert.Equal(t, "fake-model", result.Analysis.ModelUsed)
	assert.Equal(t, 0, result.FailedCount)
	require.Len(t, result.Candidates, 3)

	names := []string{result.Candidates[0].Name, result.Candidates[1].Name, result.Candidates[2].Name}
	assert.Equal(t, []string{"bob", "alice", "carol"}, names)
	for _, c := range result.Candidates {
		require.NotNil(t, c.FinalScore)
		assert.True(t, IsHexColor(*c.ScoreColor))
		assert.True(t, strings.HasPrefix(c.ResumeFile, "/storage/jobs/Backend_Engineer/candidates/"))
	}

	analysisID := uuid.MustParse(result.Analysis.ID)
	rows, err := f.store.CandidateAnalyses().FindByAnalysis(context.Background(), analysisID)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	seen := map[uuid.UUID]bool{}
	for _, r := range rows {
		seen[r.CandidateID] = true
	}
	assert.Len(t, seen, 3)

	assert.Len(t, f.storage.keys(), 4)
	require.Len(t, f.notifier.events, 1)
	assert.Equal(t, EventAnalysisCreated, f.notifier.events[0].Type)
	assert.Equal(t, []uuid.UUID{uuid.MustParse(result.Job.ID)}, f.queue.jobs)
}

func TestCreateJobWithAnalysis_PartialScoringFailure(t *testing.T) {
	f := newFixture(t)

	result := f.analyze(t, "Data",
		pdf("good.pdf", "score:80"),
		pdf("bad.pdf", "garbage"),
		pdf("ok.pdf", "score:40"),
	)

	assert.Equal(t, 1, result.FailedCount)
	require.Len(t, result.Candidates, 3)
	last := result.Candidates[2]
	assert.Equal(t, "bad", last.Name)
	assert.Nil(t, last.FinalScore)
	assert.Nil(t, last.ScoreColor)
	assert.Equal(t, []string{}, last.Strengths)
	assert.Equal(t, []string{}, last.Weaknesses)
	require.NotNil(t, last.ScoringError)
	assert.Equal(t, 3, f.scorer.callCount())
}

func TestCreateJobWithAnalysis_DescriptionStorageFailureWritesNothing(t *testing.T) {
	f := newFixture(t)
	f.storage.putErr = func(key string) error {
		if strings.Contains(key, "/job_description/") {
			return errors.New("disk full")
		}
		return nil
	}

	_, err := f.svc.CreateJobWithAnalysis(context.Background(), "Ops", pdf("jd.pdf", "jd"), []UploadedFile{pdf("a.pdf", "score:1")})

	var storageErr *StorageError
	require.True(t, errors.As(err, &storageErr))

	jobs, err := f.store.Jobs().List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, jobs)
	assert.Empty(t, f.storage.keys())
	assert.Zero(t, f.scorer.callCount())
}

func TestCreateJobWithAnalysis_SkipsUnstorableResume(t *testing.T) {
	f := newFixture(t)
	f.storage.putErr = func(key string) error {
		if strings.HasSuffix(key, "_broken.pdf") {
			return errors.New("write failed")
		}
		return nil
	}

	result := f.analyze(t, "QA", pdf("fine.pdf", "score:70"), pdf("broken.pdf", "score:99"))

	require.Len(t, result.Candidates, 1)
	assert.Equal(t, "fine", result.Candidates[0].Name)
	assert.Equal(t, []string{"broken.pdf"}, result.SkippedFiles)
}

func TestCreateJobWithAnalysis_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.CreateJobWithAnalysis(ctx, "   ", pdf("jd.pdf", "jd"), []UploadedFile{pdf("a.pdf", "a")})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.CreateJobWithAnalysis(ctx, "Title", pdf("jd.pdf", "jd"), nil)
	assert.ErrorIs(t, err, ErrValidation)

	assert.Empty(t, f.storage.keys())
}

func TestReanalyze_NewDescriptionRescoresWithoutDuplicates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result := f.analyze(t, "Backend", pdf("a.pdf", "score:80"), pdf("b.pdf", "score:60"))
	analysisID := uuid.MustParse(result.Analysis.ID)
	oldJD := f.storage.keys()

	for i := 0; i < 2; i++ {
		jd := pdf("jd2.pdf", "strict go")
		detail, err := f.svc.Reanalyze(ctx, analysisID, nil, &jd)
		require.NoError(t, err)
		require.Len(t, detail.Candidates, 2)
		assert.Equal(t, 40, *detail.Candidates[0].FinalScore)
		assert.Equal(t, 30, *detail.Candidates[1].FinalScore)
	}

	rows, err := f.store.CandidateAnalyses().FindByAnalysis(ctx, analysisID)
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	job, err := f.store.Jobs().FindByID(ctx, uuid.MustParse(result.Job.ID))
	require.NoError(t, err)
	assert.Equal(t, "strict go", job.JDText)
	assert.Contains(t, job.PDFPath, "/job_description/")
	assert.NotContains(t, oldJD, job.PDFPath)

	// Only the current description is kept.
	jdCount := 0
	for _, k := range f.storage.keys() {
		if strings.Contains(k, "/job_description/") {
			jdCount++
		}
	}
	assert.Equal(t, 1, jdCount)
}

func TestReanalyze_TitleOnlyLeavesScoresUntouched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result := f.analyze(t, "Backend", pdf("a.pdf", "score:80"))
	analysisID := uuid.MustParse(result.Analysis.ID)

	before, err := f.store.CandidateAnalyses().FindByAnalysis(ctx, analysisID)
	require.NoError(t, err)
	calls := f.scorer.callCount()

	title := "Platform Engineer"
	detail, err := f.svc.Reanalyze(ctx, analysisID, &title, nil)
	require.NoError(t, err)
	assert.Equal(t, "Platform Engineer", detail.Job.Title)

	after, err := f.store.CandidateAnalyses().FindByAnalysis(ctx, analysisID)
	require.NoError(t, err)
	require.Len(t, after, len(before))
	assert.Equal(t, before[0].ID, after[0].ID)
	assert.Equal(t, *before[0].FinalScore, *after[0].FinalScore)
	assert.True(t, before[0].UpdatedAt.Equal(after[0].UpdatedAt))
	assert.Equal(t, calls, f.scorer.callCount())
}

func TestReanalyze_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	title := "x"
	_, err := f.svc.Reanalyze(ctx, uuid.New(), &title, nil)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.Reanalyze(ctx, uuid.New(), nil, nil)
	assert.ErrorIs(t, err, ErrValidation)

	empty := "  "
	_, err = f.svc.Reanalyze(ctx, uuid.New(), &empty, nil)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestDeleteAnalysis_RemovesAggregateAndFiles(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result := f.analyze(t, "Backend", pdf("a.pdf", "score:80"), pdf("b.pdf", "score:10"))
	other := f.analyze(t, "Other", pdf("c.pdf", "score:50"))

	analysisID := uuid.MustParse(result.Analysis.ID)
	jobID := uuid.MustParse(result.Job.ID)
	require.NoError(t, f.svc.DeleteAnalysis(ctx, analysisID))

	_, err := f.svc.GetAnalysisDetail(ctx, analysisID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.svc.GetJob(ctx, jobID)
	assert.ErrorIs(t, err, ErrNotFound)
	for _, c := range result.Candidates {
		_, err := f.svc.GetCandidate(ctx, jobID, uuid.MustParse(c.ID))
		assert.ErrorIs(t, err, ErrNotFound)
	}

	rows, err := f.store.CandidateAnalyses().FindByAnalysis(ctx, analysisID)
	require.NoError(t, err)
	assert.Empty(t, rows)

	for _, k := range f.storage.keys() {
		assert.True(t, strings.HasPrefix(k, "jobs/Other/"), "leftover file %s", k)
	}
	assert.Len(t, f.storage.deleted, 3)

	_, err = f.svc.GetAnalysisDetail(ctx, uuid.MustParse(other.Analysis.ID))
	assert.NoError(t, err)

	assert.ErrorIs(t, f.svc.DeleteAnalysis(ctx, analysisID), ErrNotFound)
	assert.Equal(t, EventAnalysisDeleted, f.notifier.events[len(f.notifier.events)-1].Type)
}

func TestCreateJobAndAddCandidates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	job, err := f.svc.CreateJob(ctx, "Designer", pdf("jd.pdf", "figma"))
	require.NoError(t, err)
	require.NotNil(t, job.Analysis)
	assert.Equal(t, "processing", job.Analysis.Status)
	jobID := uuid.MustParse(job.ID)

	one, err := f.svc.AddCandidate(ctx, jobID, NamedUpload{UploadedFile: pdf("x.pdf", "score:90"), DisplayName: "Jane Doe"})
	require.NoError(t, err)
	assert.Equal(t, "Jane Doe", one.Name)

	many, err := f.svc.AddCandidates(ctx, jobID, []UploadedFile{pdf("john_smith.pdf", "a"), pdf("amy.pdf", "b")})
	require.NoError(t, err)
	require.Len(t, many, 2)
	assert.Equal(t, "john_smith", many[0].Name)

	// Adding does not score.
	assert.Zero(t, f.scorer.callCount())

	list, err := f.svc.ListCandidates(ctx, jobID)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"Jane Doe", "john_smith", "amy"}, []string{list[0].Name, list[1].Name, list[2].Name})
	for _, c := range list {
		assert.Nil(t, c.FinalScore)
		assert.NotNil(t, c.Strengths)
	}

	jobs, err := f.svc.ListJobs(ctx)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, int64(3), jobs[0].CandidatesCount)

	detail, err := f.svc.GetCandidate(ctx, jobID, uuid.MustParse(one.ID))
	require.NoError(t, err)
	assert.Equal(t, "score:90", detail.ResumeText)
	assert.Nil(t, detail.Analysis)

	// Rescoring with a description picks up the added candidates.
	analysisID := uuid.MustParse(job.Analysis.ID)
	jd := pdf("jd.pdf", "figma")
	updated, err := f.svc.Reanalyze(ctx, analysisID, nil, &jd)
	require.NoError(t, err)
	assert.Equal(t, "done", updated.Status)
	assert.Equal(t, "Jane Doe", updated.Candidates[0].Name)
	assert.Equal(t, 90, *updated.Candidates[0].FinalScore)

	_, err = f.svc.AddCandidates(ctx, uuid.New(), []UploadedFile{pdf("a.pdf", "a")})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestAddCandidates_ReopensFinishedAnalysis(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result := f.analyze(t, "Backend", pdf("alice.pdf", "score:80"))
	require.Equal(t, "done", result.Analysis.Status)
	analysisID := uuid.MustParse(result.Analysis.ID)
	jobID := uuid.MustParse(result.Job.ID)

	_, err := f.svc.AddCandidates(ctx, jobID, []UploadedFile{pdf("bob.pdf", "score:60")})
	require.NoError(t, err)

	detail, err := f.svc.GetAnalysisDetail(ctx, analysisID)
	require.NoError(t, err)
	assert.Equal(t, "processing", detail.Status)
	require.Len(t, detail.Candidates, 2)
	unscored := 0
	for _, c := range detail.Candidates {
		if c.FinalScore == nil {
			unscored++
		}
	}
	assert.Equal(t, 1, unscored)

	// A rename scores nothing, so the analysis stays open.
	title := "Backend II"
	renamed, err := f.svc.Reanalyze(ctx, analysisID, &title, nil)
	require.NoError(t, err)
	assert.Equal(t, "processing", renamed.Status)

	jd := pdf("jd.pdf", "need go")
	rescored, err := f.svc.Reanalyze(ctx, analysisID, nil, &jd)
	require.NoError(t, err)
	assert.Equal(t, "done", rescored.Status)
	for _, c := range rescored.Candidates {
		assert.NotNil(t, c.FinalScore, c.Name)
	}
}

func TestAddCandidates_ConcurrentCallsGetDistinctPositions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	job, err := f.svc.CreateJob(ctx, "Designer", pdf("jd.pdf", "figma"))
	require.NoError(t, err)
	jobID := uuid.MustParse(job.ID)

	const callers = 4
	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.AddCandidates(ctx, jobID, []UploadedFile{
				pdf(fmt.Sprintf("first_%d.pdf", i), "a"),
				pdf(fmt.Sprintf("second_%d.pdf", i), "b"),
			})
		}(i)
	}
	wg.Wait()
	for _, err := range errs {
		require.NoError(t, err)
	}

	candidates, err := f.store.Candidates().FindByJob(ctx, jobID)
	require.NoError(t, err)
	require.Len(t, candidates, 2*callers)
	for i, c := range candidates {
		assert.Equal(t, i, c.Position)
	}
}

func TestGetAnalysisDetail_DropsDetailWrittenDuringLoad(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	cache := newHookCache()
	f.svc = NewAnalysisService(AnalysisDeps{
		Store:     f.store,
		Pipeline:  NewUploadPipeline(f.storage),
		Extractor: textExtractor{},
		Scorer:    f.scorer,
		Cache:     cache,
	})

	result := f.analyze(t, "Backend", pdf("alice.pdf", "score:80"))
	analysisID := uuid.MustParse(result.Analysis.ID)
	require.NoError(t, cache.Invalidate(ctx, result.Analysis.ID))

	// The analysis changes between the load and the cache write.
	cache.afterSet = func() {
		assert.NoError(t, f.store.Analyses().UpdateStatus(ctx, analysisID, models.StatusProcessing))
	}
	stale, err := f.svc.GetAnalysisDetail(ctx, analysisID)
	require.NoError(t, err)
	assert.Equal(t, "done", stale.Status)
	assert.False(t, cache.has(result.Analysis.ID))

	cache.afterSet = nil
	fresh, err := f.svc.GetAnalysisDetail(ctx, analysisID)
	require.NoError(t, err)
	assert.Equal(t, "processing", fresh.Status)
	assert.True(t, cache.has(result.Analysis.ID))

	cached, err := f.svc.GetAnalysisDetail(ctx, analysisID)
	require.NoError(t, err)
	assert.Same(t, fresh, cached)
}

func TestGetCandidate_WrongJobIsNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	a := f.analyze(t, "A", pdf("a.pdf", "score:80"))
	b := f.analyze(t, "B", pdf("b.pdf", "score:80"))

	_, err := f.svc.GetCandidate(ctx, uuid.MustParse(b.Job.ID), uuid.MustParse(a.Candidates[0].ID))
	assert.ErrorIs(t, err, ErrNotFound)

	detail, err := f.svc.GetCandidate(ctx, uuid.MustParse(a.Job.ID), uuid.MustParse(a.Candidates[0].ID))
	require.NoError(t, err)
	require.NotNil(t, detail.Analysis)
	assert.Equal(t, 80, *detail.Analysis.FinalScore)
	assert.Equal(t, true, detail.Analysis.CoverageMap["go"])
}

func TestListAnalyses_CountsRows(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.analyze(t, "First", pdf("a.pdf", "score:1"))
	f.analyze(t, "Second", pdf("a.pdf", "score:1"), pdf("b.pdf", "score:2"))

	list, err := f.svc.ListAnalyses(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)

	counts := map[string]int64{}
	for _, a := range list {
		counts[a.Job.Title] = a.CandidateAnalysesCount
	}
	assert.Equal(t, map[string]int64{"First": 1, "Second": 2}, counts)
}

func TestSearchCandidates_IndexDisabled(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	result := f.analyze(t, "A", pdf("a.pdf", "score:80"))

	_, err := f.svc.SearchCandidates(ctx, uuid.MustParse(result.Job.ID), "go", 5)
	assert.ErrorIs(t, err, ErrIndexDisabled)

	_, err = f.svc.SearchCandidates(ctx, uuid.New(), "go", 5)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.SearchCandidates(ctx, uuid.MustParse(result.Job.ID), " ", 5)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestExportAnalysis(t *testing.T) {
	f := newFixture(t)
	result := f.analyze(t, "Backend Engineer", pdf("a.pdf", "score:80"))

	data, name, err := f.svc.ExportAnalysis(context.Background(), uuid.MustParse(result.Analysis.ID))
	require.NoError(t, err)
	assert.Equal(t, "Backend_Engineer_analysis.xlsx", name)
	assert.NotEmpty(t, data)
}
