package services

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

type colorBand struct {
	low, high int
	from, to  string
}

// Score bands, lightest color at the low end of each band.
var colorBands = []colorBand{
	{95, 100, "#FFD700", "#FFD700"},
	{85, 94, "#34D399", "#059669"},
	{70, 84, "#5EEAD4", "#0D9488"},
	{55, 69, "#93C5FD", "#2563EB"},
	{40, 54, "#94A3B8", "#475569"},
	{0, 39, "#334155", "#334155"},
}

var hexColor = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// IsHexColor reports whether s is a #RRGGBB color.
func IsHexColor(s string) bool {
	return hexColor.MatchString(s)
}

// ScoreColor maps a 0..100 score to its band color, interpolating linearly
// inside ranged bands.
func ScoreColor(score int) string {
	score = clampScore(score)
	for _, b := range colorBands {
		if score < b.low || score > b.high {
			continue
		}
		if b.from == b.to || b.high == b.low {
			return b.from
		}
		t := float64(score-b.low) / float64(b.high-b.low)
		return mixHex(b.from, b.to, t)
	}
	return colorBands[len(colorBands)-1].from
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}

func mixHex(from, to string, t float64) string {
	a, b := parseHex(from), parseHex(to)
	var out [3]int
	for i := range out {
		out[i] = int(float64(a[i]) + (float64(b[i])-float64(a[i]))*t + 0.5)
	}
	return fmt.Sprintf("#%02X%02X%02X", out[0], out[1], out[2])
}

func parseHex(s string) [3]int {
	v, _ := strconv.ParseUint(strings.TrimPrefix(s, "#"), 16, 32)
	return [3]int{int(v >> 16 & 0xFF), int(v >> 8 & 0xFF), int(v & 0xFF)}
}
