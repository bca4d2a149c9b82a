package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"alfredoptarigan/jd-matcher/internal/logger"
	"alfredoptarigan/jd-matcher/internal/models"
	"alfredoptarigan/jd-matcher/internal/repositories"
)

const (
	maxTitleLength     = 255
	defaultSearchLimit = 5
	maxSearchLimit     = 50
	excerptLength      = 280
)

// UploadedFile is a validated upload held in memory.
type UploadedFile struct {
	Name string
	Data []byte
}

// NamedUpload is a resume with an optional display name.
type NamedUpload struct {
	UploadedFile
	DisplayName string
}

// AnalysisService drives the lifecycle of a Job aggregate: the job, its
// analysis, its candidates and their scores.
type AnalysisService interface {
	CreateJob(ctx context.Context, title string, jd UploadedFile) (*models.JobDetail, error)
	CreateJobWithAnalysis(ctx context.Context, title string, jd UploadedFile, resumes []UploadedFile) (*models.AnalysisResult, error)
	AddCandidate(ctx context.Context, jobID uuid.UUID, resume NamedUpload) (*models.UploadedCandidate, error)
	AddCandidates(ctx context.Context, jobID uuid.UUID, resumes []UploadedFile) ([]models.UploadedCandidate, error)
	Reanalyze(ctx context.Context, analysisID uuid.UUID, title *string, jd *UploadedFile) (*models.AnalysisDetail, error)
	DeleteAnalysis(ctx context.Context, analysisID uuid.UUID) error

	ListAnalyses(ctx context.Context) ([]models.AnalysisSummary, error)
	GetAnalysisDetail(ctx context.Context, analysisID uuid.UUID) (*models.AnalysisDetail, error)
	ListJobs(ctx context.Context) ([]models.JobListItem, error)
	GetJob(ctx context.Context, jobID uuid.UUID) (*models.JobDetail, error)
	ListCandidates(ctx context.Context, jobID uuid.UUID) ([]models.CandidateSummary, error)
	GetCandidate(ctx context.Context, jobID, candidateID uuid.UUID) (*models.CandidateDetail, error)
	SearchCandidates(ctx context.Context, jobID uuid.UUID, query string, limit int) ([]models.SearchHit, error)
	ExportAnalysis(ctx context.Context, analysisID uuid.UUID) ([]byte, string, error)
}

type AnalysisDeps struct {
	Store     repositories.Store
	Pipeline  UploadPipeline
	Extractor TextExtractor
	Scorer    Scorer
	ModelName string

	// Optional; no-op implementations are used when nil.
	Index    ResumeIndex
	Indexer  IndexQueue
	Cache    AnalysisCache
	Notifier EventNotifier

	Log *logger.Logger
	Now func() time.Time
}

type analysisService struct {
	store     repositories.Store
	pipeline  UploadPipeline
	extractor TextExtractor
	scorer    Scorer
	modelName string
	index     ResumeIndex
	indexer   IndexQueue
	cache     AnalysisCache
	notifier  EventNotifier
	log       *logger.Logger
	now       func() time.Time

	cacheEnabled bool
}

func NewAnalysisService(deps AnalysisDeps) AnalysisService {
	s := &analysisService{
		store:     deps.Store,
		pipeline:  deps.Pipeline,
		extractor: deps.Extractor,
		scorer:    deps.Scorer,
		modelName: deps.ModelName,
		index:     deps.Index,
		indexer:   deps.Indexer,
		cache:     deps.Cache,
		notifier:  deps.Notifier,
		log:       deps.Log,
		now:       deps.Now,

		cacheEnabled: deps.Cache != nil,
	}
	if s.index == nil {
		s.index = NewNoopResumeIndex()
	}
	if s.indexer == nil {
		s.indexer = NewNoopIndexQueue()
	}
	if s.cache == nil {
		s.cache = NewNoopAnalysisCache()
	}
	if s.notifier == nil {
		s.notifier = NewNoopNotifier()
	}
	if s.log == nil {
		s.log = logger.Nop()
	}
	if s.now == nil {
		s.now = time.Now
	}
	s.log = s.log.With("service", "AnalysisService")
	return s
}

func normalizeTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", validationErrorf("title is required")
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return "", validationErrorf("title must be at most %d characters", maxTitleLength)
	}
	return title, nil
}

// CreateJob stores the description and creates the job with an empty
// analysis. Nothing is scored.
func (s *analysisService) CreateJob(ctx context.Context, title string, jd UploadedFile) (*models.JobDetail, error) {
	title, err := normalizeTitle(title)
	if err != nil {
		return nil, err
	}

	jdKey, err := s.pipeline.Store(ctx, title, RoleDescription, jd.Data, jd.Name)
	if err != nil {
		return nil, err
	}

	job := &models.Job{Title: title, PDFPath: jdKey, JDText: s.extractor.ExtractText(jd.Data)}
	analysis := &models.Analysis{Status: models.StatusProcessing, ModelUsed: s.modelName}

	err = s.store.Transaction(ctx, func(tx repositories.Store) error {
		if err := tx.Jobs().Create(ctx, job); err != nil {
			return err
		}
		analysis.JobID = job.ID
		return tx.Analyses().Create(ctx, analysis)
	})
	if err != nil {
		s.removeFiles(ctx, jdKey)
		return nil, err
	}

	job.Analysis = analysis
	detail := ProjectJobDetail(job, ScoreIndex{}, s.pipeline.URL)
	return &detail, nil
}

// CreateJobWithAnalysis stores and scores every resume against the
// description. A resume whose file cannot be stored is skipped; one that
// cannot be scored is kept with a null score.
func (s *analysisService) CreateJobWithAnalysis(ctx context.Context, title string, jd UploadedFile, resumes []UploadedFile) (*models.AnalysisResult, error) {
	title, err := normalizeTitle(title)
	if err != nil {
		return nil, err
	}
	if len(resumes) == 0 {
		return nil, validationErrorf("at least one candidate resume is required")
	}

	jdKey, err := s.pipeline.Store(ctx, title, RoleDescription, jd.Data, jd.Name)
	if err != nil {
		return nil, err
	}

	job := &models.Job{Title: title, PDFPath: jdKey, JDText: s.extractor.ExtractText(jd.Data)}
	analysis := &models.Analysis{Status: models.StatusProcessing, ModelUsed: s.modelName}

	err = s.store.Transaction(ctx, func(tx repositories.Store) error {
		if err := tx.Jobs().Create(ctx, job); err != nil {
			return err
		}
		analysis.JobID = job.ID
		return tx.Analyses().Create(ctx, analysis)
	})
	if err != nil {
		s.removeFiles(ctx, jdKey)
		return nil, err
	}

	log := s.log.With("job_id", job.ID, "analysis_id", analysis.ID)
	log.Info("analysis started", "candidates", len(resumes))

	var (
		candidates []*models.Candidate
		rows       []*models.CandidateAnalysis
		storedKeys []string
		skipped    []string
		failed     int
	)

	for _, resume := range resumes {
		key, err := s.pipeline.Store(ctx, title, RoleCandidate, resume.Data, resume.Name)
		if err != nil {
			log.Warn("resume skipped", "file", resume.Name, "error", err)
			skipped = append(skipped, resume.Name)
			continue
		}
		storedKeys = append(storedKeys, key)

		candidate := &models.Candidate{
			ID:         uuid.New(),
			JobID:      job.ID,
			Name:       FileStem(resume.Name),
			PDFPath:    key,
			ResumeText: s.extractor.ExtractText(resume.Data),
			Position:   len(candidates),
		}
		candidates = append(candidates, candidate)

		row := s.scoreCandidate(ctx, log, job.JDText, candidate, analysis.ID)
		if row.ScoringError != nil {
			failed++
		}
		rows = append(rows, row)
	}

	err = s.store.Transaction(ctx, func(tx repositories.Store) error {
		if len(candidates) > 0 {
			if err := tx.Candidates().CreateBatch(ctx, candidates); err != nil {
				return err
			}
		}
		for _, row := range rows {
			if err := tx.CandidateAnalyses().Upsert(ctx, row); err != nil {
				return err
			}
		}
		return tx.Analyses().UpdateStatus(ctx, analysis.ID, models.StatusDone)
	})
	if err != nil {
		log.Error("failed to save analysis results", "error", err)
		s.discardJob(ctx, job.ID, analysis.ID)
		s.removeFiles(ctx, append(storedKeys, jdKey)...)
		return nil, fmt.Errorf("failed to save analysis results: %w", err)
	}

	stored, err := s.store.Analyses().FindByID(ctx, analysis.ID)
	if err != nil {
		return nil, err
	}

	s.indexer.Enqueue(job.ID)
	s.publish(ctx, AnalysisEvent{
		Type:        EventAnalysisCreated,
		AnalysisID:  analysis.ID.String(),
		JobID:       job.ID.String(),
		Title:       job.Title,
		Candidates:  len(candidates),
		FailedCount: failed,
	})
	log.Info("analysis completed", "scored", len(rows)-failed, "failed", failed, "skipped", len(skipped))

	plain := make([]models.Candidate, 0, len(candidates))
	scores := make(ScoreIndex, len(rows))
	for i, c := range candidates {
		plain = append(plain, *c)
		scores[c.ID] = rows[i]
	}

	result := ProjectAnalysisResult(job, stored, plain, scores, s.pipeline.URL, failed, skipped)
	return &result, nil
}

// scoreCandidate always returns a row; a scoring failure leaves the score
// fields null and records the cause.
func (s *analysisService) scoreCandidate(ctx context.Context, log *logger.Logger, jdText string, c *models.Candidate, analysisID uuid.UUID) *models.CandidateAnalysis {
	row := &models.CandidateAnalysis{
		CandidateID: c.ID,
		AnalysisID:  analysisID,
		Strengths:   encodeJSON([]string{}),
		Weaknesses:  encodeJSON([]string{}),
	}

	result, err := s.scorer.Score(ctx, jdText, c.ResumeText)
	if err != nil {
		var scoringErr *ScoringError
		if !errors.As(err, &scoringErr) {
			err = &ScoringError{Cause: err}
		}
		log.Warn("candidate scoring failed", "candidate_id", c.ID, "analysis_id", analysisID, "error", err)
		msg := err.Error()
		row.ScoringError = &msg
		return row
	}

	score := result.FinalScore
	color := result.ScoreColor
	row.FinalScore = &score
	row.ScoreColor = &color
	row.Strengths = encodeJSON(nonNil(result.Strengths))
	row.Weaknesses = encodeJSON(nonNil(result.Weaknesses))
	if result.Coverage != nil {
		row.Coverage = encodeJSON(result.Coverage)
	}
	if result.Subscores != nil {
		row.Subscores = encodeJSON(result.Subscores)
	}
	return row
}

func nonNil(items []string) []string {
	if items == nil {
		return []string{}
	}
	return items
}

// discardJob removes a job whose analysis could not be saved.
func (s *analysisService) discardJob(ctx context.Context, jobID, analysisID uuid.UUID) {
	err := s.store.Transaction(ctx, func(tx repositories.Store) error {
		if err := tx.Analyses().Delete(ctx, analysisID); err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
		return tx.Jobs().Delete(ctx, jobID)
	})
	if err != nil {
		s.log.Error("failed to discard job", "job_id", jobID, "error", err)
	}
}

func (s *analysisService) AddCandidate(ctx context.Context, jobID uuid.UUID, resume NamedUpload) (*models.UploadedCandidate, error) {
	name := strings.TrimSpace(resume.DisplayName)
	if utf8.RuneCountInString(name) > maxTitleLength {
		return nil, validationErrorf("name must be at most %d characters", maxTitleLength)
	}

	created, err := s.addCandidates(ctx, jobID, []UploadedFile{resume.UploadedFile}, []string{name})
	if err != nil {
		return nil, err
	}
	return &created[0], nil
}

func (s *analysisService) AddCandidates(ctx context.Context, jobID uuid.UUID, resumes []UploadedFile) ([]models.UploadedCandidate, error) {
	if len(resumes) == 0 {
		return nil, validationErrorf("at least one file is required")
	}
	return s.addCandidates(ctx, jobID, resumes, nil)
}

// addCandidates is all or nothing: a storage failure removes the files
// already written by this call. Positions are assigned under the job's row
// lock, and a finished analysis goes back to processing because the new
// candidates have no score yet.
func (s *analysisService) addCandidates(ctx context.Context, jobID uuid.UUID, resumes []UploadedFile, names []string) ([]models.UploadedCandidate, error) {
	job, err := s.store.Jobs().FindByID(ctx, jobID)
	if err != nil {
		return nil, err
	}

	var (
		candidates []*models.Candidate
		storedKeys []string
	)
	for i, resume := range resumes {
		key, err := s.pipeline.Store(ctx, job.Title, RoleCandidate, resume.Data, resume.Name)
		if err != nil {
			s.removeFiles(ctx, storedKeys...)
			return nil, err
		}
		storedKeys = append(storedKeys, key)

		name := FileStem(resume.Name)
		if i < len(names) && names[i] != "" {
			name = names[i]
		}
		candidates = append(candidates, &models.Candidate{
			JobID:      job.ID,
			Name:       name,
			PDFPath:    key,
			ResumeText: s.extractor.ExtractText(resume.Data),
		})
	}

	var analysisID uuid.UUID
	err = s.store.Transaction(ctx, func(tx repositories.Store) error {
		if _, err := tx.Jobs().Lock(ctx, job.ID); err != nil {
			return err
		}
		next, err := tx.Candidates().NextPosition(ctx, job.ID)
		if err != nil {
			return err
		}
		for i, c := range candidates {
			c.Position = next + i
		}
		if err := tx.Candidates().CreateBatch(ctx, candidates); err != nil {
			return err
		}

		analysis, err := tx.Analyses().FindByJobID(ctx, job.ID)
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		analysisID = analysis.ID
		// always written so updated_at moves and cached details are dropped
		return tx.Analyses().UpdateStatus(ctx, analysis.ID, models.StatusProcessing)
	})
	if err != nil {
		s.removeFiles(ctx, storedKeys...)
		return nil, err
	}

	s.indexer.Enqueue(job.ID)
	if analysisID != uuid.Nil {
		s.invalidate(ctx, analysisID)
	}

	out := make([]models.UploadedCandidate, 0, len(candidates))
	for _, c := range candidates {
		out = append(out, models.UploadedCandidate{
			ID:         c.ID.String(),
			Name:       c.Name,
			ResumeFile: s.pipeline.URL(c.PDFPath),
		})
	}
	return out, nil
}

// Reanalyze renames the job and/or replaces its description. A new
// description rescores every current candidate; a title alone does not
// touch any score.
func (s *analysisService) Reanalyze(ctx context.Context, analysisID uuid.UUID, title *string, jd *UploadedFile) (*models.AnalysisDetail, error) {
	if title == nil && jd == nil {
		return nil, validationErrorf("title or jd is required")
	}

	var newTitle string
	if title != nil {
		t, err := normalizeTitle(*title)
		if err != nil {
			return nil, err
		}
		newTitle = t
	}

	analysis, err := s.store.Analyses().FindByID(ctx, analysisID)
	if err != nil {
		return nil, err
	}
	job := analysis.Job
	if job == nil {
		if job, err = s.store.Jobs().FindByID(ctx, analysis.JobID); err != nil {
			return nil, err
		}
	}

	updates := map[string]interface{}{}
	if title != nil {
		updates["title"] = newTitle
	}
	effectiveTitle := job.Title
	if newTitle != "" {
		effectiveTitle = newTitle
	}

	status := analysis.Status
	var (
		jdKey string
		rows  []*models.CandidateAnalysis
	)
	log := s.log.With("job_id", job.ID, "analysis_id", analysis.ID)

	if jd != nil {
		jdKey, err = s.pipeline.Store(ctx, effectiveTitle, RoleDescription, jd.Data, jd.Name)
		if err != nil {
			return nil, err
		}
		jdText := s.extractor.ExtractText(jd.Data)
		updates["pdf_path"] = jdKey
		updates["jd_text"] = jdText

		candidates, err := s.store.Candidates().FindByJob(ctx, job.ID)
		if err != nil {
			s.removeFiles(ctx, jdKey)
			return nil, err
		}
		for i := range candidates {
			rows = append(rows, s.scoreCandidate(ctx, log, jdText, &candidates[i], analysis.ID))
		}
		status = models.StatusDone
	}

	err = s.store.Transaction(ctx, func(tx repositories.Store) error {
		if _, err := tx.Jobs().Lock(ctx, job.ID); err != nil {
			return err
		}
		if jd != nil {
			// candidates added while scoring have no row yet
			current, err := tx.Candidates().FindByJob(ctx, job.ID)
			if err != nil {
				return err
			}
			if len(current) > len(rows) {
				status = models.StatusProcessing
			}
		}
		if err := tx.Jobs().Update(ctx, job.ID, updates); err != nil {
			return err
		}
		for _, row := range rows {
			if err := tx.CandidateAnalyses().Upsert(ctx, row); err != nil {
				return err
			}
		}
		return tx.Analyses().UpdateStatus(ctx, analysis.ID, status)
	})
	if err != nil {
		s.removeFiles(ctx, jdKey)
		return nil, err
	}

	if jdKey != "" && job.PDFPath != "" {
		s.removeFiles(ctx, job.PDFPath)
	}
	s.invalidate(ctx, analysis.ID)
	s.publish(ctx, AnalysisEvent{
		Type:       EventAnalysisUpdated,
		AnalysisID: analysis.ID.String(),
		JobID:      job.ID.String(),
		Title:      effectiveTitle,
		Candidates: len(rows),
	})
	log.Info("analysis updated", "rescored", len(rows))

	return s.GetAnalysisDetail(ctx, analysis.ID)
}

// DeleteAnalysis removes the whole aggregate, then its stored files.
func (s *analysisService) DeleteAnalysis(ctx context.Context, analysisID uuid.UUID) error {
	analysis, err := s.store.Analyses().FindByID(ctx, analysisID)
	if err != nil {
		return err
	}
	job, err := s.store.Jobs().FindWithRelations(ctx, analysis.JobID)
	if err != nil {
		return err
	}

	keys := []string{job.PDFPath}
	for _, c := range job.Candidates {
		keys = append(keys, c.PDFPath)
	}

	err = s.store.Transaction(ctx, func(tx repositories.Store) error {
		if _, err := tx.CandidateAnalyses().DeleteByJob(ctx, job.ID); err != nil {
			return err
		}
		if _, err := tx.Candidates().DeleteByJob(ctx, job.ID); err != nil {
			return err
		}
		if err := tx.Analyses().Delete(ctx, analysis.ID); err != nil {
			return err
		}
		return tx.Jobs().Delete(ctx, job.ID)
	})
	if err != nil {
		return err
	}

	s.removeFiles(ctx, keys...)
	if err := s.index.RemoveJob(ctx, job.ID); err != nil {
		s.log.Warn("failed to remove resumes from index", "job_id", job.ID, "error", err)
	}
	s.invalidate(ctx, analysis.ID)
	s.publish(ctx, AnalysisEvent{
		Type:       EventAnalysisDeleted,
		AnalysisID: analysis.ID.String(),
		JobID:      job.ID.String(),
		Title:      job.Title,
		Candidates: len(job.Candidates),
	})
	s.log.Info("analysis deleted", "analysis_id", analysis.ID, "job_id", job.ID, "files", len(keys))
	return nil
}

func (s *analysisService) ListAnalyses(ctx context.Context) ([]models.AnalysisSummary, error) {
	analyses, err := s.store.Analyses().List(ctx)
	if err != nil {
		return nil, err
	}
	counts, err := s.store.CandidateAnalyses().CountByAnalysis(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]models.AnalysisSummary, 0, len(analyses))
	for i := range analyses {
		out = append(out, ProjectAnalysisSummary(&analyses[i], counts[analyses[i].ID], s.pipeline.URL))
	}
	return out, nil
}

func (s *analysisService) GetAnalysisDetail(ctx context.Context, analysisID uuid.UUID) (*models.AnalysisDetail, error) {
	cached, err := s.cache.Get(ctx, analysisID.String())
	if err != nil {
		s.log.Warn("analysis cache read failed", "analysis_id", analysisID, "error", err)
	}
	if cached != nil {
		return cached, nil
	}

	analysis, err := s.store.Analyses().FindByID(ctx, analysisID)
	if err != nil {
		return nil, err
	}
	candidates, err := s.store.Candidates().FindByJob(ctx, analysis.JobID)
	if err != nil {
		return nil, err
	}
	rows, err := s.store.CandidateAnalyses().FindByAnalysis(ctx, analysis.ID)
	if err != nil {
		return nil, err
	}

	detail := ProjectAnalysisDetail(analysis, candidates, IndexScores(rows), s.pipeline.URL)
	if s.cacheEnabled {
		s.cacheDetail(ctx, analysis, &detail)
	}
	return &detail, nil
}

// cacheDetail stores a projected detail, then drops it again when the
// analysis was written after it was loaded. Every write moves updated_at,
// so a write that invalidated before the Set is caught here.
func (s *analysisService) cacheDetail(ctx context.Context, loaded *models.Analysis, detail *models.AnalysisDetail) {
	if err := s.cache.Set(ctx, detail); err != nil {
		s.log.Warn("analysis cache write failed", "analysis_id", loaded.ID, "error", err)
		return
	}
	current, err := s.store.Analyses().FindByID(ctx, loaded.ID)
	if err == nil && current.UpdatedAt.Equal(loaded.UpdatedAt) {
		return
	}
	s.invalidate(ctx, loaded.ID)
}

func (s *analysisService) ListJobs(ctx context.Context) ([]models.JobListItem, error) {
	jobs, err := s.store.Jobs().List(ctx)
	if err != nil {
		return nil, err
	}
	counts, err := s.store.Jobs().CountCandidates(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]models.JobListItem, 0, len(jobs))
	for i := range jobs {
		out = append(out, ProjectJobListItem(&jobs[i], counts[jobs[i].ID], s.pipeline.URL))
	}
	return out, nil
}

func (s *analysisService) GetJob(ctx context.Context, jobID uuid.UUID) (*models.JobDetail, error) {
	job, err := s.store.Jobs().FindWithRelations(ctx, jobID)
	if err != nil {
		return nil, err
	}

	scores := ScoreIndex{}
	if job.Analysis != nil {
		rows, err := s.store.CandidateAnalyses().FindByAnalysis(ctx, job.Analysis.ID)
		if err != nil {
			return nil, err
		}
		scores = IndexScores(rows)
	}

	detail := ProjectJobDetail(job, scores, s.pipeline.URL)
	return &detail, nil
}

func (s *analysisService) ListCandidates(ctx context.Context, jobID uuid.UUID) ([]models.CandidateSummary, error) {
	detail, err := s.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return detail.Candidates, nil
}

func (s *analysisService) GetCandidate(ctx context.Context, jobID, candidateID uuid.UUID) (*models.CandidateDetail, error) {
	candidate, err := s.store.Candidates().FindByID(ctx, candidateID)
	if err != nil {
		return nil, err
	}
	if candidate.JobID != jobID {
		return nil, fmt.Errorf("candidate %s of job %s: %w", candidateID, jobID, ErrNotFound)
	}

	var row *models.CandidateAnalysis
	analysis, err := s.store.Analyses().FindByJobID(ctx, jobID)
	switch {
	case err == nil:
		row, err = s.store.CandidateAnalyses().FindOne(ctx, candidate.ID, analysis.ID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	case !errors.Is(err, ErrNotFound):
		return nil, err
	}

	detail := ProjectCandidateDetail(candidate, row, s.pipeline.URL)
	return &detail, nil
}

func (s *analysisService) SearchCandidates(ctx context.Context, jobID uuid.UUID, query string, limit int) ([]models.SearchHit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, validationErrorf("query is required")
	}
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	if limit > maxSearchLimit {
		limit = maxSearchLimit
	}

	if _, err := s.store.Jobs().FindByID(ctx, jobID); err != nil {
		return nil, err
	}
	candidates, err := s.store.Candidates().FindByJob(ctx, jobID)
	if err != nil {
		return nil, err
	}

	hits, err := s.index.Search(ctx, jobID, query, limit)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]*models.Candidate, len(candidates))
	for i := range candidates {
		byID[candidates[i].ID.String()] = &candidates[i]
	}

	out := make([]models.SearchHit, 0, len(hits))
	for _, h := range hits {
		c, ok := byID[h.CandidateID]
		if !ok {
			continue
		}
		out = append(out, models.SearchHit{
			CandidateID: h.CandidateID,
			Name:        c.Name,
			ResumeFile:  s.pipeline.URL(c.PDFPath),
			Score:       h.Score,
			Excerpt:     truncateRunes(h.Text, excerptLength),
		})
	}
	return out, nil
}

func (s *analysisService) ExportAnalysis(ctx context.Context, analysisID uuid.UUID) ([]byte, string, error) {
	detail, err := s.GetAnalysisDetail(ctx, analysisID)
	if err != nil {
		return nil, "", err
	}

	data, err := BuildAnalysisWorkbook(detail, s.now())
	if err != nil {
		return nil, "", err
	}
	return data, SanitizeTitle(detail.Job.Title) + "_analysis.xlsx", nil
}

// removeFiles deletes stored files best effort.
func (s *analysisService) removeFiles(ctx context.Context, keys ...string) {
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := s.pipeline.Remove(ctx, key); err != nil {
			s.log.Warn("failed to remove stored file", "key", key, "error", err)
		}
	}
}

func (s *analysisService) invalidate(ctx context.Context, analysisID uuid.UUID) {
	if err := s.cache.Invalidate(ctx, analysisID.String()); err != nil {
		s.log.Warn("analysis cache invalidation failed", "analysis_id", analysisID, "error", err)
	}
}

func (s *analysisService) publish(ctx context.Context, event AnalysisEvent) {
	event.OccurredAt = s.now()
	if err := s.notifier.Publish(ctx, event); err != nil {
		s.log.Warn("failed to publish analysis event", "type", event.Type, "analysis_id", event.AnalysisID, "error", err)
	}
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "..."
}
