package services

import (
	"context"
	"fmt"
	"net/url"
	"sort"
	"strconv"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"

	"alfredoptarigan/jd-matcher/internal/logger"
	"alfredoptarigan/jd-matcher/internal/models"
)

const (
	resumeChunkSize    = 1200
	resumeChunkOverlap = 150
	embeddingSize      = 768
)

// IndexHit is the best matching chunk of one candidate's resume.
type IndexHit struct {
	CandidateID string
	Score       float32
	Text        string
}

// ResumeIndex keeps resume chunks in a vector store for semantic search
// scoped to a job.
type ResumeIndex interface {
	InitCollection(ctx context.Context) error
	IndexCandidates(ctx context.Context, jobID uuid.UUID, candidates []models.Candidate) error
	RemoveJob(ctx context.Context, jobID uuid.UUID) error
	Search(ctx context.Context, jobID uuid.UUID, query string, limit int) ([]IndexHit, error)
}

type qdrantResumeIndex struct {
	client         *qdrant.Client
	gemini         GeminiService
	chunker        TextChunker
	collectionName string
	log            *logger.Logger
}

func NewQdrantResumeIndex(urlStr, apiKey, collectionName string, gemini GeminiService, log *logger.Logger) (ResumeIndex, error) {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return nil, fmt.Errorf("invalid Qdrant URL: %w", err)
	}

	// gRPC port unless the URL says otherwise
	port := 6334
	if p := parsed.Port(); p != "" {
		if v, err := strconv.Atoi(p); err == nil {
			port = v
		}
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   parsed.Hostname(),
		Port:   port,
		APIKey: apiKey,
		UseTLS: parsed.Scheme == "https",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	return &qdrantResumeIndex{
		client:         client,
		gemini:         gemini,
		chunker:        NewTextChunker(),
		collectionName: collectionName,
		log:            log.With("service", "ResumeIndex"),
	}, nil
}

func (q *qdrantResumeIndex) InitCollection(ctx context.Context) error {
	exists, err := q.client.CollectionExists(ctx, q.collectionName)
	if err != nil {
		return fmt.Errorf("failed to check collection: %w", err)
	}
	if exists {
		return nil
	}

	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     embeddingSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	q.log.Info("qdrant collection created", "collection", q.collectionName)
	return nil
}

// IndexCandidates replaces the points of every given candidate.
func (q *qdrantResumeIndex) IndexCandidates(ctx context.Context, jobID uuid.UUID, candidates []models.Candidate) error {
	var points []*qdrant.PointStruct

	for _, c := range candidates {
		if err := q.deleteByField(ctx, "candidate_id", c.ID.String()); err != nil {
			return err
		}

		for i, chunk := range q.chunker.ChunkText(c.ResumeText, resumeChunkSize, resumeChunkOverlap) {
			embedding, err := q.gemini.GenerateEmbedding(ctx, chunk)
			if err != nil {
				return fmt.Errorf("failed to embed resume of candidate %s: %w", c.ID, err)
			}

			// Stable point ids make re-indexing idempotent.
			pointID := uuid.NewSHA1(c.ID, []byte(strconv.Itoa(i)))
			points = append(points, &qdrant.PointStruct{
				Id:      qdrant.NewID(pointID.String()),
				Vectors: qdrant.NewVectors(embedding...),
				Payload: qdrant.NewValueMap(map[string]interface{}{
					"candidate_id": c.ID.String(),
					"job_id":       jobID.String(),
					"chunk":        i,
					"text":         chunk,
				}),
			})
		}
	}

	if len(points) == 0 {
		return nil
	}

	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collectionName,
		Points:         points,
	})
	if err != nil {
		return fmt.Errorf("failed to upsert points: %w", err)
	}

	q.log.Debug("resumes indexed", "job_id", jobID, "points", len(points))
	return nil
}

func (q *qdrantResumeIndex) RemoveJob(ctx context.Context, jobID uuid.UUID) error {
	return q.deleteByField(ctx, "job_id", jobID.String())
}

func (q *qdrantResumeIndex) deleteByField(ctx context.Context, field, value string) error {
	_, err := q.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: q.collectionName,
		Points: &qdrant.PointsSelector{
			PointsSelectorOneOf: &qdrant.PointsSelector_Filter{
				Filter: &qdrant.Filter{
					Must: []*qdrant.Condition{qdrant.NewMatch(field, value)},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to delete points by %s: %w", field, err)
	}
	return nil
}

// Search returns at most limit candidates, best chunk first.
func (q *qdrantResumeIndex) Search(ctx context.Context, jobID uuid.UUID, query string, limit int) ([]IndexHit, error) {
	embedding, err := q.gemini.GenerateEmbedding(ctx, query)
	if err != nil {
		return nil, err
	}

	points, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collectionName,
		Query:          qdrant.NewQuery(embedding...),
		Filter: &qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch("job_id", jobID.String())},
		},
		// Several chunks per candidate can match.
		Limit:       qdrant.PtrOf(uint64(limit * 4)),
		WithPayload: qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}

	hits := make([]IndexHit, 0, len(points))
	for _, point := range points {
		hits = append(hits, IndexHit{
			CandidateID: payloadString(point.Payload, "candidate_id"),
			Score:       point.Score,
			Text:        payloadString(point.Payload, "text"),
		})
	}
	return bestPerCandidate(hits, limit), nil
}

func payloadString(payload map[string]*qdrant.Value, key string) string {
	if v, ok := payload[key]; ok {
		if s, ok := v.GetKind().(*qdrant.Value_StringValue); ok {
			return s.StringValue
		}
	}
	return ""
}

func bestPerCandidate(hits []IndexHit, limit int) []IndexHit {
	best := map[string]IndexHit{}
	for _, h := range hits {
		if h.CandidateID == "" {
			continue
		}
		if cur, ok := best[h.CandidateID]; !ok || h.Score > cur.Score {
			best[h.CandidateID] = h
		}
	}

	out := make([]IndexHit, 0, len(best))
	for _, h := range best {
		out = append(out, h)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score == out[j].Score {
			return out[i].CandidateID < out[j].CandidateID
		}
		return out[i].Score > out[j].Score
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

type noopResumeIndex struct{}

// NewNoopResumeIndex is used when no vector store is configured.
func NewNoopResumeIndex() ResumeIndex {
	return noopResumeIndex{}
}

func (noopResumeIndex) InitCollection(context.Context) error { return nil }

func (noopResumeIndex) IndexCandidates(context.Context, uuid.UUID, []models.Candidate) error {
	return nil
}

func (noopResumeIndex) RemoveJob(context.Context, uuid.UUID) error { return nil }

func (noopResumeIndex) Search(context.Context, uuid.UUID, string, int) ([]IndexHit, error) {
	return nil, ErrIndexDisabled
}
