package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List jobs with their candidate counts",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		jobs, err := newAPI().ListJobs(cmd.Context())
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "JOB ID\tTITLE\tCANDIDATES\tANALYSIS\tSTATUS")
		for _, j := range jobs {
			analysisID, status := "-", "-"
			if j.Analysis != nil {
				analysisID, status = j.Analysis.ID, j.Analysis.Status
			}
			fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", j.ID, j.Title, j.CandidatesCount, analysisID, status)
		}
		return tw.Flush()
	},
}

var addCmd = &cobra.Command{
	Use:   "add <job-id> <resume.pdf>...",
	Short: "Upload resumes to a job without scoring them",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		added, err := newAPI().AddCandidates(cmd.Context(), args[0], args[1:])
		if err != nil {
			return err
		}
		for _, c := range added {
			fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", c.ID, c.Name)
		}
		return nil
	},
}

var searchLimit int

var searchCmd = &cobra.Command{
	Use:   "search <job-id> <query>",
	Short: "Find the resumes of a job most similar to a query",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		hits, err := newAPI().SearchCandidates(cmd.Context(), args[0], args[1], searchLimit)
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "SCORE\tNAME\tEXCERPT")
		for _, h := range hits {
			fmt.Fprintf(tw, "%.3f\t%s\t%s\n", h.Score, h.Name, h.Excerpt)
		}
		return tw.Flush()
	},
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 5, "Maximum number of candidates")

	rootCmd.AddCommand(jobsCmd, addCmd, searchCmd)
}
