package repositories

import (
	"context"
	"errors"

	"gorm.io/gorm"
)

// ErrNotFound is returned (wrapped) whenever a looked-up row does not exist.
var ErrNotFound = errors.New("record not found")

// Store groups the repositories of the Job aggregate so a multi-row mutation
// can run inside one transaction.
type Store interface {
	Jobs() JobRepository
	Candidates() CandidateRepository
	Analyses() AnalysisRepository
	CandidateAnalyses() CandidateAnalysisRepository
	Transaction(ctx context.Context, fn func(tx Store) error) error
}

type store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) Store {
	return &store{db: db}
}

func (s *store) Jobs() JobRepository {
	return NewJobRepository(s.db)
}

func (s *store) Candidates() CandidateRepository {
	return NewCandidateRepository(s.db)
}

func (s *store) Analyses() AnalysisRepository {
	return NewAnalysisRepository(s.db)
}

func (s *store) CandidateAnalyses() CandidateAnalysisRepository {
	return NewCandidateAnalysisRepository(s.db)
}

// Transaction runs fn with a Store bound to a single database transaction.
// Returning an error from fn rolls everything back.
func (s *store) Transaction(ctx context.Context, fn func(tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&store{db: tx})
	})
}

func notFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
