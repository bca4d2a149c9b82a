package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CandidateAnalysis is the score of one candidate under one analysis. The
// (candidate_id, analysis_id) pair is unique; re-scoring updates the row.
type CandidateAnalysis struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	CandidateID  uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_candidate_analysis_pair;index" json:"candidate_id"`
	AnalysisID   uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex:idx_candidate_analysis_pair;index" json:"analysis_id"`
	FinalScore   *int           `json:"final_score"`
	ScoreColor   *string        `gorm:"type:varchar(16)" json:"score_color"`
	Coverage     datatypes.JSON `json:"coverage,omitempty"`
	Subscores    datatypes.JSON `json:"subscores,omitempty"`
	Strengths    datatypes.JSON `json:"strengths,omitempty"`
	Weaknesses   datatypes.JSON `json:"weaknesses,omitempty"`
	ScoringError *string        `gorm:"type:text" json:"scoring_error,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`

	// Relations
	Candidate *Candidate `gorm:"foreignKey:CandidateID" json:"candidate,omitempty"`
}

func (CandidateAnalysis) TableName() string {
	return "candidate_analyses"
}

func (ca *CandidateAnalysis) BeforeCreate(_ *gorm.DB) error {
	if ca.ID == uuid.Nil {
		ca.ID = uuid.New()
	}
	return nil
}
