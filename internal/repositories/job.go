package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"alfredoptarigan/jd-matcher/internal/models"
)

type JobRepository interface {
	Create(ctx context.Context, job *models.Job) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Job, error)
	Lock(ctx context.Context, id uuid.UUID) (*models.Job, error)
	FindWithRelations(ctx context.Context, id uuid.UUID) (*models.Job, error)
	List(ctx context.Context) ([]models.Job, error)
	CountCandidates(ctx context.Context) (map[uuid.UUID]int64, error)
	Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type jobRepository struct {
	db *gorm.DB
}

func NewJobRepository(db *gorm.DB) JobRepository {
	return &jobRepository{db: db}
}

// Create implements JobRepository.
func (r *jobRepository) Create(ctx context.Context, job *models.Job) error {
	if err := r.db.WithContext(ctx).Create(job).Error; err != nil {
		return fmt.Errorf("failed to create job: %w", err)
	}
	return nil
}

// FindByID implements JobRepository.
func (r *jobRepository) FindByID(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	var job models.Job
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&job).Error; err != nil {
		if notFound(err) {
			return nil, fmt.Errorf("job %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find job: %w", err)
	}
	return &job, nil
}

// Lock loads the job holding a row lock until the surrounding transaction
// ends. SQLite has no row locks and serializes writers on its own.
func (r *jobRepository) Lock(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	q := r.db.WithContext(ctx)
	if q.Dialector.Name() != "sqlite" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	var job models.Job
	if err := q.Where("id = ?", id).First(&job).Error; err != nil {
		if notFound(err) {
			return nil, fmt.Errorf("job %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to lock job: %w", err)
	}
	return &job, nil
}

// FindWithRelations loads the job with its analysis and candidates in upload order.
func (r *jobRepository) FindWithRelations(ctx context.Context, id uuid.UUID) (*models.Job, error) {
	var job models.Job
	err := r.db.WithContext(ctx).
		Preload("Analysis").
		Preload("Candidates", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC, created_at ASC")
		}).
		Where("id = ?", id).
		First(&job).Error
	if err != nil {
		if notFound(err) {
			return nil, fmt.Errorf("job %s: %w", id, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find job: %w", err)
	}
	return &job, nil
}

// List implements JobRepository. Newest first.
func (r *jobRepository) List(ctx context.Context) ([]models.Job, error) {
	var jobs []models.Job
	err := r.db.WithContext(ctx).
		Preload("Analysis").
		Order("created_at DESC").
		Find(&jobs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	return jobs, nil
}

// CountCandidates returns the number of candidates per job id.
func (r *jobRepository) CountCandidates(ctx context.Context) (map[uuid.UUID]int64, error) {
	var rows []struct {
		JobID uuid.UUID
		Total int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.Candidate{}).
		Select("job_id, COUNT(*) AS total").
		Group("job_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count candidates: %w", err)
	}

	counts := make(map[uuid.UUID]int64, len(rows))
	for _, row := range rows {
		counts[row.JobID] = row.Total
	}
	return counts, nil
}

// Update implements JobRepository.
func (r *jobRepository) Update(ctx context.Context, id uuid.UUID, updates map[string]interface{}) error {
	result := r.db.WithContext(ctx).Model(&models.Job{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update job: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	return nil
}

// Delete implements JobRepository.
func (r *jobRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Job{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete job: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("job %s: %w", id, ErrNotFound)
	}
	return nil
}
