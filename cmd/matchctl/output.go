package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"alfredoptarigan/jd-matcher/internal/client"
	"alfredoptarigan/jd-matcher/internal/models"
)

func printCandidates(w io.Writer, candidates []models.CandidateSummary) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tNAME\tSCORE\tCOLOR\tSTRENGTHS")
	for i, c := range candidates {
		score, color := "n/a", "-"
		if c.FinalScore != nil {
			score = fmt.Sprintf("%d", *c.FinalScore)
		}
		if c.ScoreColor != nil {
			color = *c.ScoreColor
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", i+1, c.Name, score, color, strings.Join(c.Strengths, "; "))
	}
	_ = tw.Flush()
}

func printDetail(w io.Writer, d *models.AnalysisDetail) {
	fmt.Fprintf(w, "%s  (%s, %s)\n", d.Job.Title, d.ID, d.Status)
	fmt.Fprintf(w, "updated %s\n\n", d.UpdatedAt.Local().Format(time.RFC822))
	printCandidates(w, d.Candidates)
}

func printHistory(w io.Writer, items []client.HistoryItem) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tRESUMES\tUPDATED\tCACHED")
	for _, h := range items {
		cached := ""
		if h.Results != nil {
			cached = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", h.ID, h.Title, h.ResumesCount, h.UpdatedAt.Local().Format(time.RFC822), cached)
	}
	_ = tw.Flush()
}

func historyFromSummaries(list []models.AnalysisSummary) []client.HistoryItem {
	items := make([]client.HistoryItem, 0, len(list))
	for _, a := range list {
		title := a.Job.Title
		if title == "" {
			title = "Untitled"
		}
		items = append(items, client.HistoryItem{
			ID:           a.ID,
			Title:        title,
			CreatedAt:    a.CreatedAt,
			UpdatedAt:    a.UpdatedAt,
			ResumesCount: a.CandidateAnalysesCount,
		})
	}
	return items
}

func historyFromDetail(d *models.AnalysisDetail, jdName string) client.HistoryItem {
	return client.HistoryItem{
		ID:           d.ID,
		Title:        d.Job.Title,
		CreatedAt:    d.CreatedAt,
		UpdatedAt:    d.UpdatedAt,
		JDFileName:   jdName,
		ResumesCount: int64(len(d.Candidates)),
		Results:      d,
	}
}

func detailFromResult(r *models.AnalysisResult) *models.AnalysisDetail {
	return &models.AnalysisDetail{
		AnalysisView: r.Analysis,
		Job:          r.Job,
		Candidates:   r.Candidates,
	}
}
