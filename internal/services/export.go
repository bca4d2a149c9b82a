package services

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"alfredoptarigan/jd-matcher/internal/models"
)

const (
	summarySheet    = "Summary"
	candidatesSheet = "Ranked Candidates"
)

// BuildAnalysisWorkbook renders an analysis as an XLSX document. Candidates
// are written in the order given.
func BuildAnalysisWorkbook(detail *models.AnalysisDetail, generated time.Time) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		return nil, fmt.Errorf("failed to rename sheet: %w", err)
	}
	if _, err := f.NewSheet(candidatesSheet); err != nil {
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}

	if err := writeSummarySheet(f, detail, generated); err != nil {
		return nil, fmt.Errorf("failed to create summary sheet: %w", err)
	}
	if err := writeCandidatesSheet(f, detail.Candidates); err != nil {
		return nil, fmt.Errorf("failed to create ranked candidates sheet: %w", err)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func writeSummarySheet(f *excelize.File, detail *models.AnalysisDetail, generated time.Time) error {
	f.SetColWidth(summarySheet, "A", "A", 25)
	f.SetColWidth(summarySheet, "B", "B", 50)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "center"},
	})
	if err != nil {
		return err
	}
	labelStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}

	f.SetCellValue(summarySheet, "A1", "Candidate Match Report")
	f.SetCellStyle(summarySheet, "A1", "B1", headerStyle)
	f.MergeCell(summarySheet, "A1", "B1")

	scored, failed := 0, 0
	total, best := 0, -1
	for _, c := range detail.Candidates {
		if c.FinalScore == nil {
			failed++
			continue
		}
		scored++
		total += *c.FinalScore
		if *c.FinalScore > best {
			best = *c.FinalScore
		}
	}

	rows := [][2]interface{}{
		{"Job Title:", detail.Job.Title},
		{"Analysis ID:", detail.ID},
		{"Status:", detail.Status},
		{"Model:", detail.ModelUsed},
		{"Generated:", generated.Format("2006-01-02 15:04:05")},
		{"Candidates:", len(detail.Candidates)},
		{"Scored:", scored},
		{"Not scored:", failed},
	}
	if scored > 0 {
		rows = append(rows,
			[2]interface{}{"Average Score:", fmt.Sprintf("%.2f", float64(total)/float64(scored))},
			[2]interface{}{"Highest Score:", best},
		)
	}

	row := 3
	for _, r := range rows {
		label := fmt.Sprintf("A%d", row)
		f.SetCellValue(summarySheet, label, r[0])
		f.SetCellStyle(summarySheet, label, label, labelStyle)
		f.SetCellValue(summarySheet, fmt.Sprintf("B%d", row), r[1])
		row++
	}
	return nil
}

func writeCandidatesSheet(f *excelize.File, candidates []models.CandidateSummary) error {
	headers := []string{"Rank", "Name", "Score", "Strengths", "Weaknesses", "Resume"}
	widths := []float64{8, 30, 10, 60, 60, 50}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return err
	}
	wrapStyle, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
	})
	if err != nil {
		return err
	}

	for i, h := range headers {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetCellValue(candidatesSheet, col+"1", h)
		f.SetColWidth(candidatesSheet, col, col, widths[i])
	}
	f.SetCellStyle(candidatesSheet, "A1", "F1", headerStyle)

	scoreStyles := map[string]int{}
	for i, c := range candidates {
		row := i + 2
		f.SetCellValue(candidatesSheet, fmt.Sprintf("A%d", row), i+1)
		f.SetCellValue(candidatesSheet, fmt.Sprintf("B%d", row), c.Name)
		f.SetCellValue(candidatesSheet, fmt.Sprintf("D%d", row), strings.Join(c.Strengths, "\n"))
		f.SetCellValue(candidatesSheet, fmt.Sprintf("E%d", row), strings.Join(c.Weaknesses, "\n"))
		f.SetCellValue(candidatesSheet, fmt.Sprintf("F%d", row), c.ResumeFile)
		f.SetCellStyle(candidatesSheet, fmt.Sprintf("D%d", row), fmt.Sprintf("E%d", row), wrapStyle)

		scoreCell := fmt.Sprintf("C%d", row)
		if c.FinalScore == nil {
			f.SetCellValue(candidatesSheet, scoreCell, "n/a")
			continue
		}
		f.SetCellValue(candidatesSheet, scoreCell, *c.FinalScore)

		if c.ScoreColor == nil || !IsHexColor(*c.ScoreColor) {
			continue
		}
		color := strings.ToUpper(strings.TrimPrefix(*c.ScoreColor, "#"))
		style, ok := scoreStyles[color]
		if !ok {
			style, err = f.NewStyle(&excelize.Style{
				Font: &excelize.Font{Bold: true},
				Fill: excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
			})
			if err != nil {
				return err
			}
			scoreStyles[color] = style
		}
		f.SetCellStyle(candidatesSheet, scoreCell, scoreCell, style)
	}
	return nil
}
