package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type AnalysisStatus string

const (
	StatusProcessing AnalysisStatus = "processing"
	StatusDone       AnalysisStatus = "done"
)

type Analysis struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	JobID     uuid.UUID      `gorm:"type:uuid;not null;uniqueIndex" json:"job_id"`
	Status    AnalysisStatus `gorm:"type:varchar(20);not null;default:'processing'" json:"status"`
	ModelUsed string         `gorm:"type:text" json:"model_used"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`

	// Relations
	Job               *Job                `gorm:"foreignKey:JobID" json:"job,omitempty"`
	CandidateAnalyses []CandidateAnalysis `gorm:"foreignKey:AnalysisID;constraint:OnDelete:CASCADE" json:"candidate_analyses,omitempty"`
}

func (Analysis) TableName() string {
	return "analyses"
}

func (a *Analysis) BeforeCreate(_ *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	return nil
}

// TouchedAt is the later of creation and last modification.
func (a *Analysis) TouchedAt() time.Time {
	if a.UpdatedAt.After(a.CreatedAt) {
		return a.UpdatedAt
	}
	return a.CreatedAt
}
