package services

import (
	"fmt"
)

type PromptBuilder struct{}

func NewPromptBuilder() *PromptBuilder {
	return &PromptBuilder{}
}

// BuildMatchPrompt asks for a JSON-only comparison of one resume against a
// job description.
func (pb *PromptBuilder) BuildMatchPrompt(jobDescription, resumeText string) string {
	return fmt.Sprintf(`You are a JSON-only generator.

Compare the following Job Description with a Candidate Resume.

Rules:
- "final_score": an integer between 0 and 100
- "score_color": a HEX color that smoothly interpolates within these ranges:
    * 95-100 -> Prestige Gold (#FFD700)
    * 85-94 -> Emerald Green (#34D399 light at 85 -> #059669 dark at 94)
    * 70-84 -> Aqua Green (#5EEAD4 light at 70 -> #0D9488 dark at 84)
    * 55-69 -> Sky Blue (#93C5FD light at 55 -> #2563EB dark at 69)
    * 40-54 -> Cool Gray-Blue (#94A3B8 light at 40 -> #475569 dark at 54)
    * Below 40 -> Muted Slate (#334155)
- "strengths" and "weaknesses": meaningful short bullet points as arrays of strings.
- "coverage": an object mapping each key requirement of the job description to true when the resume covers it, false otherwise.
- "subscores": an object with integer scores 0-100 for "skills", "experience" and "education".
- Return ONLY valid JSON. No explanations, no markdown.

Format:
{
  "final_score": number,
  "score_color": "#HEX",
  "strengths": ["strength 1", "strength 2"],
  "weaknesses": ["weakness 1", "weakness 2"],
  "coverage": {"requirement": true},
  "subscores": {"skills": number, "experience": number, "education": number}
}

Job Description:
%s

Candidate Resume:
%s`, jobDescription, resumeText)
}
