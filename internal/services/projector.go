package services

import (
	"encoding/json"
	"sort"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"alfredoptarigan/jd-matcher/internal/models"
)

// URLFunc resolves a storage key to a client-facing URL.
type URLFunc func(key string) string

// ScoreIndex maps a candidate id to its row for one analysis.
type ScoreIndex map[uuid.UUID]*models.CandidateAnalysis

func IndexScores(rows []models.CandidateAnalysis) ScoreIndex {
	idx := make(ScoreIndex, len(rows))
	for i := range rows {
		idx[rows[i].CandidateID] = &rows[i]
	}
	return idx
}

func ProjectJob(job *models.Job, url URLFunc) models.JobView {
	return models.JobView{
		ID:        job.ID.String(),
		Title:     job.Title,
		FileURL:   url(job.PDFPath),
		CreatedAt: job.CreatedAt,
		UpdatedAt: job.UpdatedAt,
	}
}

func ProjectAnalysis(a *models.Analysis) models.AnalysisView {
	return models.AnalysisView{
		ID:        a.ID.String(),
		JobID:     a.JobID.String(),
		Status:    string(a.Status),
		ModelUsed: a.ModelUsed,
		CreatedAt: a.CreatedAt,
		UpdatedAt: a.UpdatedAt,
	}
}

func projectAnalysisPtr(a *models.Analysis) *models.AnalysisView {
	if a == nil {
		return nil
	}
	view := ProjectAnalysis(a)
	return &view
}

// ProjectCandidate builds the list row. ca may be nil for a candidate that
// has not been scored yet.
func ProjectCandidate(c *models.Candidate, ca *models.CandidateAnalysis, url URLFunc) models.CandidateSummary {
	summary := models.CandidateSummary{
		ID:         c.ID.String(),
		Name:       c.Name,
		ResumeFile: url(c.PDFPath),
		Strengths:  []string{},
		Weaknesses: []string{},
	}
	if ca == nil {
		return summary
	}

	summary.FinalScore = ca.FinalScore
	summary.ScoreColor = ca.ScoreColor
	summary.Strengths = decodeStrings(ca.Strengths)
	summary.Weaknesses = decodeStrings(ca.Weaknesses)
	summary.ScoringError = ca.ScoringError
	return summary
}

// ProjectCandidates keeps the given (upload) order unless rank is set.
func ProjectCandidates(candidates []models.Candidate, scores ScoreIndex, url URLFunc, rank bool) []models.CandidateSummary {
	out := make([]models.CandidateSummary, 0, len(candidates))
	for i := range candidates {
		out = append(out, ProjectCandidate(&candidates[i], scores[candidates[i].ID], url))
	}
	if rank {
		RankCandidates(out)
	}
	return out
}

// RankCandidates sorts by score descending with unscored rows last. Equal
// scores keep their relative order.
func RankCandidates(list []models.CandidateSummary) {
	sort.SliceStable(list, func(i, j int) bool {
		a, b := list[i].FinalScore, list[j].FinalScore
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return *a > *b
		}
	})
}

func ProjectCandidateDetail(c *models.Candidate, ca *models.CandidateAnalysis, url URLFunc) models.CandidateDetail {
	detail := models.CandidateDetail{
		ID:         c.ID.String(),
		Name:       c.Name,
		ResumeFile: url(c.PDFPath),
		ResumeText: c.ResumeText,
	}
	if ca == nil {
		return detail
	}

	detail.Analysis = &models.CandidateBreakdown{
		FinalScore:   ca.FinalScore,
		ScoreColor:   ca.ScoreColor,
		CoverageMap:  decodeObject(ca.Coverage),
		Subscores:    decodeObject(ca.Subscores),
		Strengths:    decodeStrings(ca.Strengths),
		Weaknesses:   decodeStrings(ca.Weaknesses),
		ScoringError: ca.ScoringError,
	}
	return detail
}

func ProjectAnalysisResult(job *models.Job, analysis *models.Analysis, candidates []models.Candidate, scores ScoreIndex, url URLFunc, failed int, skipped []string) models.AnalysisResult {
	if skipped == nil {
		skipped = []string{}
	}
	return models.AnalysisResult{
		Job:          ProjectJob(job, url),
		Analysis:     ProjectAnalysis(analysis),
		Candidates:   ProjectCandidates(candidates, scores, url, true),
		FailedCount:  failed,
		SkippedFiles: skipped,
	}
}

// ProjectAnalysisDetail expects analysis.Job to be loaded.
func ProjectAnalysisDetail(analysis *models.Analysis, candidates []models.Candidate, scores ScoreIndex, url URLFunc) models.AnalysisDetail {
	detail := models.AnalysisDetail{
		AnalysisView: ProjectAnalysis(analysis),
		Candidates:   ProjectCandidates(candidates, scores, url, analysis.Status == models.StatusDone),
	}
	if analysis.Job != nil {
		detail.Job = ProjectJob(analysis.Job, url)
	}
	return detail
}

func ProjectAnalysisSummary(analysis *models.Analysis, count int64, url URLFunc) models.AnalysisSummary {
	summary := models.AnalysisSummary{
		AnalysisView:           ProjectAnalysis(analysis),
		CandidateAnalysesCount: count,
	}
	if analysis.Job != nil {
		summary.Job = ProjectJob(analysis.Job, url)
	}
	return summary
}

func ProjectJobListItem(job *models.Job, count int64, url URLFunc) models.JobListItem {
	return models.JobListItem{
		JobView:         ProjectJob(job, url),
		CandidatesCount: count,
		Analysis:        projectAnalysisPtr(job.Analysis),
	}
}

// ProjectJobDetail expects job.Analysis and job.Candidates to be loaded.
func ProjectJobDetail(job *models.Job, scores ScoreIndex, url URLFunc) models.JobDetail {
	rank := job.Analysis != nil && job.Analysis.Status == models.StatusDone
	return models.JobDetail{
		JobView:    ProjectJob(job, url),
		Analysis:   projectAnalysisPtr(job.Analysis),
		Candidates: ProjectCandidates(job.Candidates, scores, url, rank),
	}
}

func decodeStrings(raw datatypes.JSON) []string {
	out := []string{}
	if len(raw) == 0 {
		return out
	}

	var items []interface{}
	if err := json.Unmarshal(raw, &items); err != nil {
		return out
	}
	for _, item := range items {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out
}

func decodeObject(raw datatypes.JSON) map[string]interface{} {
	out := map[string]interface{}{}
	if len(raw) == 0 {
		return out
	}
	if err := json.Unmarshal(raw, &out); err != nil || out == nil {
		return map[string]interface{}{}
	}
	return out
}

func encodeJSON(v interface{}) datatypes.JSON {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(data)
}
