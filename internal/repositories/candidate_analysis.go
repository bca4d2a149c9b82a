package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"alfredoptarigan/jd-matcher/internal/models"
)

type CandidateAnalysisRepository interface {
	Upsert(ctx context.Context, ca *models.CandidateAnalysis) error
	FindOne(ctx context.Context, candidateID, analysisID uuid.UUID) (*models.CandidateAnalysis, error)
	FindByAnalysis(ctx context.Context, analysisID uuid.UUID) ([]models.CandidateAnalysis, error)
	CountByAnalysis(ctx context.Context) (map[uuid.UUID]int64, error)
	DeleteByAnalysis(ctx context.Context, analysisID uuid.UUID) (int64, error)
	DeleteByJob(ctx context.Context, jobID uuid.UUID) (int64, error)
}

type candidateAnalysisRepository struct {
	db *gorm.DB
}

func NewCandidateAnalysisRepository(db *gorm.DB) CandidateAnalysisRepository {
	return &candidateAnalysisRepository{db: db}
}

// Upsert finds the row for (candidate, analysis) and updates it, or creates
// it when absent. The unique index on the pair rejects a concurrent duplicate.
func (r *candidateAnalysisRepository) Upsert(ctx context.Context, ca *models.CandidateAnalysis) error {
	var existing models.CandidateAnalysis
	err := r.db.WithContext(ctx).
		Where("candidate_id = ? AND analysis_id = ?", ca.CandidateID, ca.AnalysisID).
		First(&existing).Error

	if err != nil && !notFound(err) {
		return fmt.Errorf("failed to find candidate analysis: %w", err)
	}

	if notFound(err) {
		if err := r.db.WithContext(ctx).Create(ca).Error; err != nil {
			return fmt.Errorf("failed to create candidate analysis: %w", err)
		}
		return nil
	}

	// Map updates so nil pointers are written as NULL.
	updates := map[string]interface{}{
		"final_score":   ca.FinalScore,
		"score_color":   ca.ScoreColor,
		"coverage":      ca.Coverage,
		"subscores":     ca.Subscores,
		"strengths":     ca.Strengths,
		"weaknesses":    ca.Weaknesses,
		"scoring_error": ca.ScoringError,
		"updated_at":    time.Now(),
	}
	if err := r.db.WithContext(ctx).Model(&existing).Updates(updates).Error; err != nil {
		return fmt.Errorf("failed to update candidate analysis: %w", err)
	}

	ca.ID = existing.ID
	ca.CreatedAt = existing.CreatedAt
	return nil
}

func (r *candidateAnalysisRepository) FindOne(ctx context.Context, candidateID, analysisID uuid.UUID) (*models.CandidateAnalysis, error) {
	var ca models.CandidateAnalysis
	err := r.db.WithContext(ctx).
		Where("candidate_id = ? AND analysis_id = ?", candidateID, analysisID).
		First(&ca).Error
	if err != nil {
		if notFound(err) {
			return nil, fmt.Errorf("candidate analysis: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("failed to find candidate analysis: %w", err)
	}
	return &ca, nil
}

// FindByAnalysis returns every row of the analysis joined with its candidate.
func (r *candidateAnalysisRepository) FindByAnalysis(ctx context.Context, analysisID uuid.UUID) ([]models.CandidateAnalysis, error) {
	var rows []models.CandidateAnalysis
	err := r.db.WithContext(ctx).
		Preload("Candidate").
		Where("analysis_id = ?", analysisID).
		Order("created_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find candidate analyses: %w", err)
	}
	return rows, nil
}

// CountByAnalysis returns the number of rows per analysis id.
func (r *candidateAnalysisRepository) CountByAnalysis(ctx context.Context) (map[uuid.UUID]int64, error) {
	var rows []struct {
		AnalysisID uuid.UUID
		Total      int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.CandidateAnalysis{}).
		Select("analysis_id, COUNT(*) AS total").
		Group("analysis_id").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count candidate analyses: %w", err)
	}

	counts := make(map[uuid.UUID]int64, len(rows))
	for _, row := range rows {
		counts[row.AnalysisID] = row.Total
	}
	return counts, nil
}

func (r *candidateAnalysisRepository) DeleteByAnalysis(ctx context.Context, analysisID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Where("analysis_id = ?", analysisID).Delete(&models.CandidateAnalysis{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete candidate analyses: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// DeleteByJob removes the rows of every candidate belonging to the job.
func (r *candidateAnalysisRepository) DeleteByJob(ctx context.Context, jobID uuid.UUID) (int64, error) {
	sub := r.db.Model(&models.Candidate{}).Select("id").Where("job_id = ?", jobID)
	result := r.db.WithContext(ctx).Where("candidate_id IN (?)", sub).Delete(&models.CandidateAnalysis{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to delete candidate analyses: %w", result.Error)
	}
	return result.RowsAffected, nil
}
