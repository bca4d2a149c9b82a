package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScoreColor_BandEdges(t *testing.T) {
	tests := []struct {
		score int
		want  string
	}{
		{100, "#FFD700"},
		{95, "#FFD700"},
		{94, "#059669"},
		{85, "#34D399"},
		{84, "#0D9488"},
		{70, "#5EEAD4"},
		{69, "#2563EB"},
		{55, "#93C5FD"},
		{54, "#475569"},
		{40, "#94A3B8"},
		{39, "#334155"},
		{0, "#334155"},
		{-5, "#334155"},
		{140, "#FFD700"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ScoreColor(tt.score), "score %d", tt.score)
	}
}

func TestScoreColor_InterpolatesInsideBand(t *testing.T) {
	for score := 0; score <= 100; score++ {
		assert.True(t, IsHexColor(ScoreColor(score)), "score %d", score)
	}

	mid := ScoreColor(77)
	assert.NotEqual(t, "#5EEAD4", mid)
	assert.NotEqual(t, "#0D9488", mid)
}

func TestIsHexColor(t *testing.T) {
	assert.True(t, IsHexColor("#a1B2c3"))
	assert.False(t, IsHexColor("a1b2c3"))
	assert.False(t, IsHexColor("#abc"))
	assert.False(t, IsHexColor("green"))
}
