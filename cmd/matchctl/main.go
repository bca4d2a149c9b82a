// Command matchctl is a terminal client for the JD matcher API.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"alfredoptarigan/jd-matcher/internal/client"
)

var (
	serverURL string
	statePath string
)

var rootCmd = &cobra.Command{
	Use:          "matchctl",
	Short:        "JD matcher command line client",
	Long:         "matchctl uploads a job description and resumes to the JD matcher API, shows ranked results and keeps a local history of analyses.",
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", envOr("MATCHER_URL", "http://localhost:3000/api/v1"), "API base URL")
	rootCmd.PersistentFlags().StringVar(&statePath, "state", envOr("MATCHER_STATE", client.DefaultStatePath()), "Path to the local history file")
}

func main() {
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func newAPI() *client.API {
	return client.NewAPI(serverURL, nil)
}

func loadState() *client.State {
	return client.LoadState(statePath)
}
