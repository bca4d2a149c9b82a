package models

import "time"

type CreateJobRequest struct {
	Title string `form:"title" json:"title" validate:"required,max=255"`
}

type AddCandidateRequest struct {
	Name string `form:"name" json:"name" validate:"max=255"`
}

type CreateAnalysisRequest struct {
	Title string `form:"title" json:"title" validate:"required,max=255"`
}

type UpdateAnalysisRequest struct {
	Title *string `json:"title,omitempty" validate:"omitempty,min=1,max=255"`
}

type JobView struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	FileURL   string    `json:"file_url"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type AnalysisView struct {
	ID        string    `json:"id"`
	JobID     string    `json:"job_id"`
	Status    string    `json:"status"`
	ModelUsed string    `json:"model_used"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type JobListItem struct {
	JobView
	CandidatesCount int64         `json:"candidates_count"`
	Analysis        *AnalysisView `json:"analysis"`
}

type JobDetail struct {
	JobView
	Analysis   *AnalysisView      `json:"analysis"`
	Candidates []CandidateSummary `json:"candidates"`
}

// CandidateSummary is the list-row shape. Score fields are null until the
// candidate has been scored; strengths and weaknesses are never null.
type CandidateSummary struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	ResumeFile   string   `json:"resume_file"`
	FinalScore   *int     `json:"final_score"`
	ScoreColor   *string  `json:"score_color"`
	Strengths    []string `json:"strengths"`
	Weaknesses   []string `json:"weaknesses"`
	ScoringError *string  `json:"scoring_error,omitempty"`
}

type CandidateDetail struct {
	ID         string              `json:"id"`
	Name       string              `json:"name"`
	ResumeFile string              `json:"resume_file"`
	ResumeText string              `json:"resume_text"`
	Analysis   *CandidateBreakdown `json:"analysis"`
}

type CandidateBreakdown struct {
	FinalScore   *int                   `json:"final_score"`
	ScoreColor   *string                `json:"score_color"`
	CoverageMap  map[string]interface{} `json:"coverage_map"`
	Subscores    map[string]interface{} `json:"subscores"`
	Strengths    []string               `json:"strengths"`
	Weaknesses   []string               `json:"weaknesses"`
	ScoringError *string                `json:"scoring_error,omitempty"`
}

// AnalysisResult is returned by the create-and-score call.
type AnalysisResult struct {
	Job          JobView            `json:"job"`
	Analysis     AnalysisView       `json:"analysis"`
	Candidates   []CandidateSummary `json:"candidates"`
	FailedCount  int                `json:"failed_count"`
	SkippedFiles []string           `json:"skipped_files"`
}

type AnalysisSummary struct {
	AnalysisView
	Job                    JobView `json:"job"`
	CandidateAnalysesCount int64   `json:"candidate_analyses_count"`
}

type AnalysisDetail struct {
	AnalysisView
	Job        JobView            `json:"job"`
	Candidates []CandidateSummary `json:"candidates"`
}

type UploadedCandidate struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	ResumeFile string `json:"resume_file"`
}

type SearchHit struct {
	CandidateID string  `json:"candidate_id"`
	Name        string  `json:"name"`
	ResumeFile  string  `json:"resume_file"`
	Score       float32 `json:"score"`
	Excerpt     string  `json:"excerpt"`
}
