package services

import (
	"strings"
	"unicode/utf8"
)

type TextChunker interface {
	ChunkText(text string, maxChunkSize int, overlap int) []string
}

type textChunker struct{}

func NewTextChunker() TextChunker {
	return &textChunker{}
}

// ChunkText packs whole lines into chunks of about maxChunkSize runes.
// The last overlap runes of a chunk are repeated at the start of the next.
// A single line longer than maxChunkSize is split on sentence ends.
func (tc *textChunker) ChunkText(text string, maxChunkSize int, overlap int) []string {
	if maxChunkSize <= 0 {
		maxChunkSize = 1000
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= maxChunkSize {
		overlap = maxChunkSize / 4
	}

	var units []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if utf8.RuneCountInString(line) > maxChunkSize {
			units = append(units, splitIntoSentences(line)...)
			continue
		}
		units = append(units, line)
	}

	var chunks []string
	var current strings.Builder
	size := 0
	// fresh is set once current holds more than the carried-over overlap.
	fresh := false

	flush := func() {
		chunk := current.String()
		chunks = append(chunks, chunk)
		current.Reset()
		size = 0
		fresh = false
		if tail := lastRunes(chunk, overlap); tail != "" {
			current.WriteString(tail)
			size = utf8.RuneCountInString(tail)
		}
	}

	for _, unit := range units {
		n := utf8.RuneCountInString(unit)
		if fresh && size+n+1 > maxChunkSize {
			flush()
		}
		if size > 0 {
			current.WriteString("\n")
			size++
		}
		current.WriteString(unit)
		size += n
		fresh = true
	}

	if fresh {
		chunks = append(chunks, current.String())
	}

	return chunks
}

func splitIntoSentences(text string) []string {
	var result []string
	start := 0
	for i, r := range text {
		if r == '.' || r == '!' || r == '?' {
			if s := strings.TrimSpace(text[start : i+1]); s != "" {
				result = append(result, s)
			}
			start = i + 1
		}
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		result = append(result, s)
	}
	return result
}

func lastRunes(text string, n int) string {
	if n <= 0 {
		return ""
	}

	runes := []rune(text)
	if len(runes) <= n {
		return text
	}

	return string(runes[len(runes)-n:])
}
