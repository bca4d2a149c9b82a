package services

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"

	"alfredoptarigan/jd-matcher/internal/models"
)

func identityURL(key string) string { return key }

func intPtr(v int) *int { return &v }

func TestRankCandidates_ScoredDescendingNullsLastStable(t *testing.T) {
	list := []models.CandidateSummary{
		{ID: "a", FinalScore: intPtr(72)},
		{ID: "b", FinalScore: intPtr(95)},
		{ID: "c"},
		{ID: "d", FinalScore: intPtr(60)},
		{ID: "e"},
		{ID: "f", FinalScore: intPtr(72)},
	}

	RankCandidates(list)

	ids := make([]string, 0, len(list))
	for _, c := range list {
		ids = append(ids, c.ID)
	}
	assert.Equal(t, []string{"b", "a", "f", "d", "c", "e"}, ids)
}

func TestProjectCandidates_RanksOnlyWhenAsked(t *testing.T) {
	var candidates []models.Candidate
	var rows []models.CandidateAnalysis
	for i, score := range []*int{intPtr(72), intPtr(95), nil, intPtr(60)} {
		c := models.Candidate{ID: uuid.New(), Name: string(rune('a' + i)), PDFPath: "k"}
		candidates = append(candidates, c)
		rows = append(rows, models.CandidateAnalysis{CandidateID: c.ID, FinalScore: score})
	}
	scores := IndexScores(rows)

	ranked := ProjectCandidates(candidates, scores, identityURL, true)
	require.Len(t, ranked, 4)
	assert.Equal(t, 95, *ranked[0].FinalScore)
	assert.Equal(t, 72, *ranked[1].FinalScore)
	assert.Equal(t, 60, *ranked[2].FinalScore)
	assert.Nil(t, ranked[3].FinalScore)

	unranked := ProjectCandidates(candidates, scores, identityURL, false)
	assert.Equal(t, "a", unranked[0].Name)
	assert.Equal(t, "d", unranked[3].Name)
}

func TestProjectCandidate_NormalizesLists(t *testing.T) {
	c := &models.Candidate{ID: uuid.New(), Name: "Jane", PDFPath: "jobs/x/candidates/1_jane.pdf"}
	url := func(key string) string { return "/storage/" + key }

	unscored := ProjectCandidate(c, nil, url)
	assert.Equal(t, "/storage/jobs/x/candidates/1_jane.pdf", unscored.ResumeFile)
	assert.Nil(t, unscored.FinalScore)
	assert.Nil(t, unscored.ScoreColor)
	assert.NotNil(t, unscored.Strengths)
	assert.NotNil(t, unscored.Weaknesses)

	malformed := ProjectCandidate(c, &models.CandidateAnalysis{
		FinalScore: intPtr(80),
		Strengths:  datatypes.JSON(`"not a list"`),
		Weaknesses: datatypes.JSON(`["", "no cloud", 3]`),
	}, url)
	assert.Equal(t, []string{}, malformed.Strengths)
	assert.Equal(t, []string{"no cloud"}, malformed.Weaknesses)
}

func TestProjectCandidateDetail_Breakdown(t *testing.T) {
	c := &models.Candidate{ID: uuid.New(), Name: "Jane", ResumeText: "Go developer"}

	detail := ProjectCandidateDetail(c, nil, identityURL)
	assert.Nil(t, detail.Analysis)
	assert.Equal(t, "Go developer", detail.ResumeText)

	detail = ProjectCandidateDetail(c, &models.CandidateAnalysis{
		FinalScore: intPtr(88),
		Coverage:   datatypes.JSON(`{"go": true, "k8s": false}`),
		Subscores:  datatypes.JSON(`not json`),
	}, identityURL)
	require.NotNil(t, detail.Analysis)
	assert.Equal(t, map[string]interface{}{"go": true, "k8s": false}, detail.Analysis.CoverageMap)
	assert.Equal(t, map[string]interface{}{}, detail.Analysis.Subscores)
	assert.Equal(t, []string{}, detail.Analysis.Strengths)
}

func TestProjectAnalysisResult_DefaultsSkippedFiles(t *testing.T) {
	job := &models.Job{ID: uuid.New(), Title: "Backend Engineer"}
	analysis := &models.Analysis{ID: uuid.New(), JobID: job.ID, Status: models.StatusDone}

	result := ProjectAnalysisResult(job, analysis, nil, ScoreIndex{}, identityURL, 0, nil)
	assert.Equal(t, "Backend Engineer", result.Job.Title)
	assert.Equal(t, "done", result.Analysis.Status)
	assert.NotNil(t, result.SkippedFiles)
	assert.NotNil(t, result.Candidates)
}
