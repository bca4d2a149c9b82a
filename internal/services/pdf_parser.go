package services

import (
	"bytes"
	"strings"

	pdfreader "github.com/ledongthuc/pdf"
)

// TextExtractor turns PDF bytes into plain text. It never fails: unreadable
// documents yield an empty string.
type TextExtractor interface {
	ExtractText(data []byte) string
}

type pdfParserService struct{}

func NewPDFParserService() TextExtractor {
	return &pdfParserService{}
}

func (p *pdfParserService) ExtractText(data []byte) (text string) {
	// The parser panics on some malformed xref tables.
	defer func() {
		if r := recover(); r != nil {
			text = ""
		}
	}()

	r, err := pdfreader.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return ""
	}

	var textBuilder strings.Builder
	totalPage := r.NumPage()

	for pageIndex := 1; pageIndex <= totalPage; pageIndex++ {
		page := r.Page(pageIndex)
		if page.V.IsNull() {
			continue
		}

		pageText, err := page.GetPlainText(nil)
		if err != nil {
			continue
		}

		textBuilder.WriteString(pageText)
		textBuilder.WriteString("\n\n")
	}

	return CleanText(textBuilder.String())
}

// CleanText trims every line and drops the empty ones.
func CleanText(text string) string {
	lines := strings.Split(strings.TrimSpace(text), "\n")
	cleaned := lines[:0]

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line != "" {
			cleaned = append(cleaned, line)
		}
	}

	return strings.Join(cleaned, "\n")
}
