// Package main implements the docq CLI for manual operations against the
// docqad HTTP server.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	// serverURL is the base URL for the docqad HTTP server
	serverURL string
	// version information
	version = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "docq",
	Short: "CLI for docqad document question-answering operations",
	Long: `docq is a command-line interface for interacting with the docqad HTTP server.
It uploads and manages documents, asks questions against the indexed corpus,
and records feedback on answers.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:8000", "docqad server URL")
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(feedbackCmd)
	rootCmd.AddCommand(chatCmd)
}
