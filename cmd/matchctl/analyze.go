package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"

	"github.com/spf13/cobra"

	"alfredoptarigan/jd-matcher/internal/client"
	"alfredoptarigan/jd-matcher/internal/models"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Score resumes against a job description",
	Long: `Upload a job description and resumes and print the ranked candidates.

With --id the existing analysis is updated instead: new resumes are added to
its job, and a new --jd rescores every candidate.`,
	RunE: runAnalyze,
}

var (
	analyzeTitle   string
	analyzeJD      string
	analyzeResumes []string
	analyzeID      string
)

func init() {
	analyzeCmd.Flags().StringVarP(&analyzeTitle, "title", "t", "", "Job title")
	analyzeCmd.Flags().StringVar(&analyzeJD, "jd", "", "Job description PDF")
	analyzeCmd.Flags().StringSliceVarP(&analyzeResumes, "resume", "r", nil, "Resume PDF (repeatable)")
	analyzeCmd.Flags().StringVar(&analyzeID, "id", "", "Update this analysis instead of creating one")

	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	api := newAPI()
	state := loadState()

	state.NewAnalysis()
	state.SetTitle(analyzeTitle)
	if analyzeJD != "" {
		state.SetJD(analyzeJD)
	}
	state.AddResumes(analyzeResumes...)

	var (
		detail *models.AnalysisDetail
		err    error
	)
	if analyzeID == "" {
		detail, err = createAnalysis(ctx, api, state)
	} else {
		detail, err = updateAnalysis(ctx, api, state, analyzeID, cmd.Flags().Changed("title"))
	}
	if err != nil {
		return err
	}

	jdName := ""
	if jd, _ := state.Files(); jd != nil {
		jdName = jd.Name
	}
	state.SetResults(detail)
	state.SetSelected(detail.ID)
	state.SetView(client.ViewResults)
	if err := state.PushHistory(historyFromDetail(detail, jdName)); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: failed to save history: %v\n", err)
	}

	printDetail(cmd.OutOrStdout(), detail)
	return nil
}

func createAnalysis(ctx context.Context, api *client.API, state *client.State) (*models.AnalysisDetail, error) {
	jd, resumes := state.Files()
	if state.JobTitle() == "" || jd == nil || len(resumes) == 0 {
		return nil, errors.New("--title, --jd and at least one --resume are required")
	}

	paths := make([]string, 0, len(resumes))
	for _, r := range resumes {
		paths = append(paths, r.Path)
	}

	result, err := api.CreateAnalysis(ctx, state.JobTitle(), jd.Path, paths)
	if err != nil {
		return nil, err
	}
	if result.FailedCount > 0 {
		fmt.Fprintf(os.Stderr, "Warning: %d resume(s) could not be scored\n", result.FailedCount)
	}
	for _, name := range result.SkippedFiles {
		fmt.Fprintf(os.Stderr, "Warning: %s was not stored\n", name)
	}
	return detailFromResult(result), nil
}

func updateAnalysis(ctx context.Context, api *client.API, state *client.State, id string, titleChanged bool) (*models.AnalysisDetail, error) {
	current, err := api.GetAnalysis(ctx, id)
	if err != nil {
		return nil, err
	}
	loadRemoteFiles(state, current)

	jd, resumes := state.Files()
	if jd == nil || len(resumes) == 0 {
		return nil, errors.New("the analysis has no job description or resumes; provide --jd and --resume")
	}

	var local []string
	for _, r := range resumes {
		if !r.Remote() {
			local = append(local, r.Path)
		}
	}
	if len(local) > 0 {
		if _, err := api.AddCandidates(ctx, current.Job.ID, local); err != nil {
			return nil, err
		}
	}

	var title *string
	if titleChanged {
		t := state.JobTitle()
		title = &t
	}
	jdPath := ""
	if !jd.Remote() {
		jdPath = jd.Path
	}
	if title == nil && jdPath == "" {
		if len(local) == 0 {
			return nil, errors.New("nothing to update: pass --title, --jd or --resume")
		}
		// new resumes are stored but only scored by a JD upload
		return api.GetAnalysis(ctx, id)
	}
	return api.UpdateAnalysis(ctx, id, title, jdPath)
}

// loadRemoteFiles points the working set at the documents already stored
// for an analysis.
func loadRemoteFiles(state *client.State, d *models.AnalysisDetail) {
	if d.Job.FileURL != "" {
		if jd, _ := state.Files(); jd == nil {
			state.SetJDRemote(&client.RemoteFile{Name: path.Base(d.Job.FileURL), URL: d.Job.FileURL})
		}
	}

	remote := make([]client.RemoteFile, 0, len(d.Candidates))
	for _, c := range d.Candidates {
		if c.ResumeFile == "" {
			continue
		}
		remote = append(remote, client.RemoteFile{Name: path.Base(c.ResumeFile), URL: c.ResumeFile})
	}
	state.SetResumesRemote(remote)
}
