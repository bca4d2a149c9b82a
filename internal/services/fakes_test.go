package services

import (
	"context"
	"errors"
	"strings"
	"sync"
)

type memStorage struct {
	mu      sync.Mutex
	files   map[string][]byte
	putErr  func(key string) error
	deleted []string
}

func newMemStorage() *memStorage {
	return &memStorage{files: map[string][]byte{}}
}

func (m *memStorage) Prepare(context.Context) error { return nil }

func (m *memStorage) Put(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.putErr != nil {
		if err := m.putErr(key); err != nil {
			return err
		}
	}
	m.files[key] = append([]byte(nil), data...)
	return nil
}

func (m *memStorage) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, key)
	m.deleted = append(m.deleted, key)
	return nil
}

func (m *memStorage) URL(key string) string {
	return "/storage/" + key
}

func (m *memStorage) keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.files))
	for k := range m.files {
		out = append(out, k)
	}
	return out
}

// textExtractor treats the uploaded bytes as the document text.
type textExtractor struct{}

func (textExtractor) ExtractText(data []byte) string { return string(data) }

// keywordScorer scores by the "score:NN" marker in the resume text and
// fails for resumes containing "garbage".
type keywordScorer struct {
	mu    sync.Mutex
	calls []string
}

func (s *keywordScorer) Score(_ context.Context, jdText, resumeText string) (*ScoreResult, error) {
	s.mu.Lock()
	s.calls = append(s.calls, jdText+"|"+resumeText)
	s.mu.Unlock()

	if strings.Contains(resumeText, "garbage") {
		return nil, &ScoringError{Cause: errors.New("reply does not match schema")}
	}

	score := 50
	if i := strings.Index(resumeText, "score:"); i >= 0 {
		var n int
		for _, r := range resumeText[i+len("score:"):] {
			if r < '0' || r > '9' {
				break
			}
			n = n*10 + int(r-'0')
		}
		score = n
	}
	if strings.Contains(jdText, "strict") {
		score /= 2
	}

	return &ScoreResult{
		FinalScore: score,
		ScoreColor: ScoreColor(score),
		Strengths:  []string{"relevant experience"},
		Weaknesses: []string{},
		Coverage:   map[string]bool{"go": score >= 50},
		Subscores:  map[string]float64{"skills": float64(score)},
	}, nil
}

func (s *keywordScorer) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}
