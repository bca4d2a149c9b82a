package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List analyses, most recently touched first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		list, err := newAPI().ListAnalyses(cmd.Context())
		if err != nil {
			return err
		}

		state := loadState()
		if err := state.SetHistory(historyFromSummaries(list)); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to save history: %v\n", err)
		}
		printHistory(cmd.OutOrStdout(), state.History())
		return nil
	},
}

var showRefresh bool

var showCmd = &cobra.Command{
	Use:   "show <analysis-id>",
	Short: "Show the ranked candidates of an analysis",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id := args[0]
		state := loadState()

		if !showRefresh && state.SelectAnalysis(id) {
			printDetail(cmd.OutOrStdout(), state.Results())
			return nil
		}

		detail, err := newAPI().GetAnalysis(cmd.Context(), id)
		if err != nil {
			return err
		}
		state.SetSelected(id)
		state.SetResults(detail)
		if err := state.PushHistory(historyFromDetail(detail, "")); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to save history: %v\n", err)
		}
		printDetail(cmd.OutOrStdout(), detail)
		return nil
	},
}

var (
	updateTitle string
	updateJD    string
)

var updateCmd = &cobra.Command{
	Use:   "update <analysis-id>",
	Short: "Rename the job and/or rescore it against a new job description",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var title *string
		if cmd.Flags().Changed("title") {
			title = &updateTitle
		}
		if title == nil && updateJD == "" {
			return fmt.Errorf("pass --title and/or --jd")
		}

		detail, err := newAPI().UpdateAnalysis(cmd.Context(), args[0], title, updateJD)
		if err != nil {
			return err
		}

		jdName := ""
		if updateJD != "" {
			jdName = filepath.Base(updateJD)
		}
		if err := loadState().PushHistory(historyFromDetail(detail, jdName)); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to save history: %v\n", err)
		}
		printDetail(cmd.OutOrStdout(), detail)
		return nil
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete <analysis-id>",
	Short: "Delete an analysis with its job, candidates and files",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := newAPI().DeleteAnalysis(cmd.Context(), args[0]); err != nil {
			return err
		}
		if err := loadState().RemoveHistory(args[0]); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: failed to save history: %v\n", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted analysis %s\n", args[0])
		return nil
	},
}

var exportOut string

var exportCmd = &cobra.Command{
	Use:   "export <analysis-id>",
	Short: "Download the ranked results as an Excel workbook",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, name, err := newAPI().ExportAnalysis(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		out := exportOut
		if out == "" {
			out = name
		}
		if err := os.WriteFile(out, data, 0o644); err != nil {
			return fmt.Errorf("failed to write %s: %w", out, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d bytes)\n", out, len(data))
		return nil
	},
}

var historyClear bool

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the locally saved analysis history",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		state := loadState()
		if historyClear {
			if err := state.ClearHistory(); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "History cleared")
			return nil
		}
		printHistory(cmd.OutOrStdout(), state.History())
		return nil
	},
}

func init() {
	showCmd.Flags().BoolVar(&showRefresh, "refresh", false, "Ignore cached results and fetch from the server")
	updateCmd.Flags().StringVarP(&updateTitle, "title", "t", "", "New job title")
	updateCmd.Flags().StringVar(&updateJD, "jd", "", "New job description PDF")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "Output file (defaults to the server's file name)")
	historyCmd.Flags().BoolVar(&historyClear, "clear", false, "Forget all saved history")

	rootCmd.AddCommand(listCmd, showCmd, updateCmd, deleteCmd, exportCmd, historyCmd)
}
