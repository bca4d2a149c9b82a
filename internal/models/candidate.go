package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Candidate struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	JobID      uuid.UUID `gorm:"type:uuid;not null;index" json:"job_id"`
	Name       string    `gorm:"type:text" json:"name"`
	PDFPath    string    `gorm:"type:text;not null" json:"pdf_path"`
	ResumeText string    `gorm:"type:text" json:"resume_text"`
	// Position records upload order within the job; rows created in one
	// batch share a timestamp, so ordering by CreatedAt alone is unstable.
	Position  int       `gorm:"not null;default:0" json:"position"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	CandidateAnalyses []CandidateAnalysis `gorm:"foreignKey:CandidateID;constraint:OnDelete:CASCADE" json:"-"`
}

func (Candidate) TableName() string {
	return "candidates"
}

func (c *Candidate) BeforeCreate(_ *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}
