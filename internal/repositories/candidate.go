package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"alfredoptarigan/jd-matcher/internal/models"
)

type CandidateRepository interface {
	CreateBatch(ctx context.Context, candidates []*models.Candidate) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Candidate, error)
	FindByJob(ctx context.Context, jobID uuid.UUID) ([]models.Candidate, error)
	FindAll(ctx context.Context) ([]models.Candidate, error)
	NextPosition(ctx context.Context, jobID uuid.UUID) (int, error)
	DeleteByJob(ctx context.Context, jobID uuid.UUID) (int64, error)
}

type candidateRepository struct {
	db *gorm.DB
}

func NewCandidateRepository(db *gorm.DB) CandidateRepository {
	return &candidateRepository{db: db}
}

// CreateBatch implements CandidateRepository.
func (r *candidateRepository) CreateBatch(ctx context.Context, candidates []*models.Candidate) error {
	if len(candidates) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(candidates).Error; err != nil {
		return fmt.Errorf("failed to create candidates: %w", err)
	}
	return nil
}

// FindByID implements CandidateRepository.
func (r *candidateRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Candidate, error) {
	var candidate models.Candidate
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&candidate).Error; err != nil {
		if notFound(err) {
			return nil, fmt.Errorf("candidate %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find candidate: %w", err)
	}
	return &candidate, nil
}

// FindByJob implements CandidateRepository. Rows come back in upload order.
func (r *candidateRepository) FindByJob(ctx context.Context, jobID uuid.UUID) ([]models.Candidate, error) {
	var candidates []models.Candidate
	err := r.db.WithContext(ctx).
		Where("job_id = ?", jobID).
		Order("position ASC, created_at ASC").
		Find(&candidates).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find candidates: %w", err)
	}
	return candidates, nil
}

// FindAll implements CandidateRepository.
func (r *candidateRepository) FindAll(ctx context.Context) ([]models.Candidate, error) {
	var candidates []models.Candidate
	if err := r.db.WithContext(ctx).Order("job_id, position ASC").Find(&candidates).Error; err != nil {
		return nil, fmt.Errorf("failed to list candidates: %w", err)
	}
	return candidates, nil
}

// NextPosition returns the position after the highest one used by the job,
// so positions stay unique when earlier candidates were removed.
func (r *candidateRepository) NextPosition(ctx context.Context, jobID uuid.UUID) (int, error) {
	var next int
	err := r.db.WithContext(ctx).
		Model(&models.Candidate{}).
		Select("COALESCE(MAX(position), -1) + 1").
		Where("job_id = ?", jobID).
		Scan(&next).Error
	if err != nil {
		return 0, fmt.Errorf("failed to find next candidate position: %w", err)
	}
	return next, nil
}

// DeleteByJob implements CandidateRepository.
func (r *candidateRepository) DeleteByJob(ctx context.Context, jobID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Where("job_id = ?", jobID).Delete(&models.Candidate{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete candidates: %w", result.Error)
	}
	return result.RowsAffected, nil
}
