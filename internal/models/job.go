package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Job is the aggregate root: it owns its Analysis and Candidates.
type Job struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Title     string    `gorm:"type:text;not null" json:"title"`
	PDFPath   string    `gorm:"type:text" json:"pdf_path"`
	JDText    string    `gorm:"type:text" json:"jd_text"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Relations
	Analysis   *Analysis   `gorm:"foreignKey:JobID;constraint:OnDelete:CASCADE" json:"analysis,omitempty"`
	Candidates []Candidate `gorm:"foreignKey:JobID;constraint:OnDelete:CASCADE" json:"candidates,omitempty"`
}

func (Job) TableName() string {
	return "jobs"
}

func (j *Job) BeforeCreate(_ *gorm.DB) error {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	return nil
}
