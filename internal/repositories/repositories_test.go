package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"alfredoptarigan/jd-matcher/internal/models"
	"alfredoptarigan/jd-matcher/internal/testutil"
)

func intPtr(v int) *int       { return &v }
func strPtr(v string) *string { return &v }

func seedJob(t *testing.T, s Store, title string, candidates int) (*models.Job, *models.Analysis, []*models.Candidate) {
	t.Helper()
	ctx := context.Background()

	job := &models.Job{Title: title, PDFPath: "jobs/x/job_description/1_jd.pdf", JDText: "jd"}
	require.NoError(t, s.Jobs().Create(ctx, job))

	analysis := &models.Analysis{JobID: job.ID, Status: models.StatusProcessing, ModelUsed: "test-model"}
	require.NoError(t, s.Analyses().Create(ctx, analysis))

	var rows []*models.Candidate
	for i := 0; i < candidates; i++ {
		rows = append(rows, &models.Candidate{
			JobID:      job.ID,
			Name:       "cand",
			PDFPath:    "jobs/x/candidates/1_c.pdf",
			ResumeText: "resume",
			Position:   i,
		})
	}
	require.NoError(t, s.Candidates().CreateBatch(ctx, rows))
	return job, analysis, rows
}

func TestJobRepository_FindWithRelations(t *testing.T) {
	s := NewStore(testutil.DB(t))
	ctx := context.Background()

	job, analysis, cands := seedJob(t, s, "Backend Engineer", 3)

	loaded, err := s.Jobs().FindWithRelations(ctx, job.ID)
	require.NoError(t, err)
	require.NotNil(t, loaded.Analysis)
	assert.Equal(t, analysis.ID, loaded.Analysis.ID)
	require.Len(t, loaded.Candidates, 3)
	for i, c := range loaded.Candidates {
		assert.Equal(t, cands[i].ID, c.ID, "upload order must be preserved")
	}

	counts, err := s.Jobs().CountCandidates(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), counts[job.ID])
}

func TestJobRepository_NotFound(t *testing.T) {
	s := NewStore(testutil.DB(t))
	ctx := context.Background()

	_, err := s.Jobs().FindByID(ctx, uuid.New())
	assert.True(t, errors.Is(err, ErrNotFound))

	err = s.Jobs().Update(ctx, uuid.New(), map[string]interface{}{"title": "x"})
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = s.Analyses().FindByID(ctx, uuid.New())
	assert.True(t, errors.Is(err, ErrNotFound))

	_, err = s.Candidates().FindByID(ctx, uuid.New())
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestCandidateAnalysisRepository_UpsertDoesNotDuplicate(t *testing.T) {
	s := NewStore(testutil.DB(t))
	ctx := context.Background()

	_, analysis, cands := seedJob(t, s, "Data", 2)

	first := &models.CandidateAnalysis{
		CandidateID: cands[0].ID,
		AnalysisID:  analysis.ID,
		FinalScore:  intPtr(40),
		ScoreColor:  strPtr("#94A3B8"),
		Strengths:   datatypes.JSON(`["go"]`),
	}
	require.NoError(t, s.CandidateAnalyses().Upsert(ctx, first))

	second := &models.CandidateAnalysis{
		CandidateID: cands[0].ID,
		AnalysisID:  analysis.ID,
		FinalScore:  intPtr(88),
		ScoreColor:  strPtr("#059669"),
		Strengths:   datatypes.JSON(`["go","sql"]`),
	}
	require.NoError(t, s.CandidateAnalyses().Upsert(ctx, second))
	assert.Equal(t, first.ID, second.ID)

	rows, err := s.CandidateAnalyses().FindByAnalysis(ctx, analysis.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 88, *rows[0].FinalScore)
	assert.JSONEq(t, `["go","sql"]`, string(rows[0].Strengths))
	require.NotNil(t, rows[0].Candidate)
	assert.Equal(t, cands[0].ID, rows[0].Candidate.ID)
}

func TestCandidateAnalysisRepository_UpsertClearsScoreOnFailure(t *testing.T) {
	s := NewStore(testutil.DB(t))
	ctx := context.Background()

	_, analysis, cands := seedJob(t, s, "Ops", 1)

	require.NoError(t, s.CandidateAnalyses().Upsert(ctx, &models.CandidateAnalysis{
		CandidateID: cands[0].ID, AnalysisID: analysis.ID, FinalScore: intPtr(70),
	}))
	require.NoError(t, s.CandidateAnalyses().Upsert(ctx, &models.CandidateAnalysis{
		CandidateID: cands[0].ID, AnalysisID: analysis.ID, ScoringError: strPtr("timeout"),
	}))

	row, err := s.CandidateAnalyses().FindOne(ctx, cands[0].ID, analysis.ID)
	require.NoError(t, err)
	assert.Nil(t, row.FinalScore)
	require.NotNil(t, row.ScoringError)
	assert.Equal(t, "timeout", *row.ScoringError)
}

func TestAnalysisRepository_ListOrdersByLastTouch(t *testing.T) {
	db := testutil.DB(t)
	s := NewStore(db)
	ctx := context.Background()

	_, older, _ := seedJob(t, s, "Older", 0)
	_, newer, _ := seedJob(t, s, "Newer", 1)

	base := time.Now().Add(-time.Hour)
	require.NoError(t, db.Model(&models.Analysis{}).Where("id = ?", older.ID).
		UpdateColumns(map[string]interface{}{"created_at": base, "updated_at": base}).Error)
	require.NoError(t, db.Model(&models.Analysis{}).Where("id = ?", newer.ID).
		UpdateColumns(map[string]interface{}{"created_at": base.Add(time.Minute), "updated_at": base.Add(time.Minute)}).Error)

	list, err := s.Analyses().List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, newer.ID, list[0].ID)
	require.NotNil(t, list[0].Job)
	assert.Equal(t, "Newer", list[0].Job.Title)

	// Re-analysis of the older one moves it to the top.
	require.NoError(t, db.Model(&models.Analysis{}).Where("id = ?", older.ID).
		UpdateColumn("updated_at", base.Add(2*time.Minute)).Error)

	list, err = s.Analyses().List(ctx)
	require.NoError(t, err)
	assert.Equal(t, older.ID, list[0].ID)
}

func TestStore_TransactionRollsBack(t *testing.T) {
	s := NewStore(testutil.DB(t))
	ctx := context.Background()

	boom := errors.New("boom")
	err := s.Transaction(ctx, func(tx Store) error {
		job := &models.Job{Title: "rolled back"}
		if err := tx.Jobs().Create(ctx, job); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	jobs, err := s.Jobs().List(ctx)
	require.NoError(t, err)
	assert.Empty(t, jobs)
}

func TestDeleteByJob_RemovesChildren(t *testing.T) {
	s := NewStore(testutil.DB(t))
	ctx := context.Background()

	job, analysis, cands := seedJob(t, s, "Cleanup", 2)
	other, otherAnalysis, otherCands := seedJob(t, s, "Keep", 1)

	for _, c := range cands {
		require.NoError(t, s.CandidateAnalyses().Upsert(ctx, &models.CandidateAnalysis{CandidateID: c.ID, AnalysisID: analysis.ID}))
	}
	require.NoError(t, s.CandidateAnalyses().Upsert(ctx, &models.CandidateAnalysis{CandidateID: otherCands[0].ID, AnalysisID: otherAnalysis.ID}))

	removed, err := s.CandidateAnalyses().DeleteByJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	removed, err = s.Candidates().DeleteByJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	counts, err := s.CandidateAnalyses().CountByAnalysis(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), counts[analysis.ID])
	assert.Equal(t, int64(1), counts[otherAnalysis.ID])

	left, err := s.Candidates().FindByJob(ctx, other.ID)
	require.NoError(t, err)
	assert.Len(t, left, 1)
}

func TestCandidateRepository_NextPosition(t *testing.T) {
	s := NewStore(testutil.DB(t))
	ctx := context.Background()

	next, err := s.Candidates().NextPosition(ctx, uuid.New())
	require.NoError(t, err)
	assert.Equal(t, 0, next)

	job, _, _ := seedJob(t, s, "Backend", 2)
	require.NoError(t, s.Candidates().CreateBatch(ctx, []*models.Candidate{
		{JobID: job.ID, Name: "late", PDFPath: "jobs/x/candidates/2_l.pdf", ResumeText: "r", Position: 7},
	}))

	next, err = s.Candidates().NextPosition(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, 8, next)
}

func TestJobRepository_Lock(t *testing.T) {
	s := NewStore(testutil.DB(t))
	ctx := context.Background()
	job, _, _ := seedJob(t, s, "Backend", 0)

	err := s.Transaction(ctx, func(tx Store) error {
		locked, err := tx.Jobs().Lock(ctx, job.ID)
		if err != nil {
			return err
		}
		assert.Equal(t, job.Title, locked.Title)
		return nil
	})
	require.NoError(t, err)

	_, err = s.Jobs().Lock(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}
