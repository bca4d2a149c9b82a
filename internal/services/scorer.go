package services

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// ScoreResult is a validated scoring reply.
type ScoreResult struct {
	FinalScore int
	ScoreColor string
	Strengths  []string
	Weaknesses []string
	Coverage   map[string]bool
	Subscores  map[string]float64
}

// Scorer compares one resume against one job description. Failures are
// always *ScoringError.
type Scorer interface {
	Score(ctx context.Context, jdText, resumeText string) (*ScoreResult, error)
}

const scoreReplySchema = `{
  "type": "object",
  "required": ["final_score"],
  "properties": {
    "final_score": {"type": "number"},
    "score_color": {"type": "string"},
    "strengths": {"type": "array", "items": {"type": "string"}},
    "weaknesses": {"type": "array", "items": {"type": "string"}},
    "coverage": {"type": "object", "additionalProperties": {"type": "boolean"}},
    "subscores": {"type": "object", "additionalProperties": {"type": "number"}}
  }
}`

type scoreReply struct {
	FinalScore float64            `json:"final_score"`
	ScoreColor string             `json:"score_color"`
	Strengths  []string           `json:"strengths"`
	Weaknesses []string           `json:"weaknesses"`
	Coverage   map[string]bool    `json:"coverage"`
	Subscores  map[string]float64 `json:"subscores"`
}

type geminiScorer struct {
	gemini        GeminiService
	promptBuilder *PromptBuilder
	schema        *gojsonschema.Schema
	maxRetries    int
}

func NewGeminiScorer(gemini GeminiService, maxRetries int) (Scorer, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(scoreReplySchema))
	if err != nil {
		return nil, fmt.Errorf("failed to load score reply schema: %w", err)
	}

	return &geminiScorer{
		gemini:        gemini,
		promptBuilder: NewPromptBuilder(),
		schema:        schema,
		maxRetries:    maxRetries,
	}, nil
}

func (s *geminiScorer) Score(ctx context.Context, jdText, resumeText string) (*ScoreResult, error) {
	prompt := s.promptBuilder.BuildMatchPrompt(jdText, resumeText)

	response, err := s.gemini.GenerateJSONWithRetry(ctx, prompt, 0.2, s.maxRetries)
	if err != nil {
		return nil, &ScoringError{Cause: err}
	}

	result, err := s.parseReply(response)
	if err != nil {
		return nil, &ScoringError{Cause: err}
	}
	return result, nil
}

func (s *geminiScorer) parseReply(response string) (*ScoreResult, error) {
	if strings.TrimSpace(response) == "" {
		return nil, fmt.Errorf("empty reply")
	}

	jsonStr := extractJSON(response)

	validation, err := s.schema.Validate(gojsonschema.NewStringLoader(jsonStr))
	if err != nil {
		return nil, fmt.Errorf("reply is not valid JSON: %w", err)
	}
	if !validation.Valid() {
		msgs := make([]string, 0, len(validation.Errors()))
		for _, e := range validation.Errors() {
			msgs = append(msgs, fmt.Sprintf("%s: %s", e.Field(), e.Description()))
		}
		return nil, fmt.Errorf("reply does not match schema: %s", strings.Join(msgs, "; "))
	}

	var reply scoreReply
	if err := json.Unmarshal([]byte(jsonStr), &reply); err != nil {
		return nil, fmt.Errorf("failed to unmarshal JSON: %w", err)
	}

	score := clampScore(int(math.Round(reply.FinalScore)))
	color := strings.TrimSpace(reply.ScoreColor)
	if !IsHexColor(color) {
		color = ScoreColor(score)
	}

	return &ScoreResult{
		FinalScore: score,
		ScoreColor: strings.ToUpper(color),
		Strengths:  nonEmpty(reply.Strengths),
		Weaknesses: nonEmpty(reply.Weaknesses),
		Coverage:   reply.Coverage,
		Subscores:  reply.Subscores,
	}, nil
}

// extractJSON strips markdown fences and returns the outermost JSON object.
func extractJSON(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```JSON")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start != -1 && end > start {
		return text[start : end+1]
	}

	return strings.TrimSpace(text)
}

func nonEmpty(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
