package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check docqad server health",
	Long: `Check the health status of the docqad HTTP server.

Examples:
  # Check health
  docq health

  # Check health on a different server
  docq health --server http://localhost:8080`,
	RunE: runHealth,
}

var uploadSync bool

var uploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload a document for indexing",
	Long: `Upload a document to the docqad server. By default the document is
queued and processed in the background; --wait blocks until processing
finishes.

Examples:
  # Queue a document
  docq upload notes.md

  # Upload and wait for indexing to complete
  docq upload --wait notes.md`,
	Args: cobra.ExactArgs(1),
	RunE: runUpload,
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List uploaded documents",
	RunE:  runList,
}

var statusCmd = &cobra.Command{
	Use:   "status <document-id>",
	Short: "Show processing status for a document",
	Args:  cobra.ExactArgs(1),
	RunE:  runStatus,
}

var deleteCmd = &cobra.Command{
	Use:   "delete <document-id>",
	Short: "Delete a document and its indexed fragments",
	Args:  cobra.ExactArgs(1),
	RunE:  runDelete,
}

func init() {
	uploadCmd.Flags().BoolVar(&uploadSync, "wait", false, "process the document before returning")
}

func runHealth(cmd *cobra.Command, args []string) error {
	var resp HealthResponse
	if err := newClient(serverURL).getJSON("/health", &resp); err != nil {
		return err
	}
	fmt.Printf("Server Status: %s\n", resp.Status)
	fmt.Printf("Server URL: %s\n", serverURL)
	fmt.Printf("Version: %s\n", resp.Version)
	return nil
}

func runUpload(cmd *cobra.Command, args []string) error {
	path := "/api/v1/documents/upload"
	if uploadSync {
		path = "/api/v1/documents/upload-sync"
	}
	var resp DocumentResponse
	if err := newClient(serverURL).uploadFile(path, args[0], &resp); err != nil {
		return err
	}
	fmt.Printf("Document ID: %s\n", resp.DocumentID)
	fmt.Printf("Filename:    %s\n", resp.Filename)
	fmt.Printf("Status:      %s\n", resp.Status)
	return nil
}

func runList(cmd *cobra.Command, args []string) error {
	var resp DocumentListResponse
	if err := newClient(serverURL).getJSON("/api/v1/documents", &resp); err != nil {
		return err
	}
	if len(resp.Documents) == 0 {
		fmt.Println("No documents uploaded.")
		return nil
	}
	for _, doc := range resp.Documents {
		fmt.Printf("%s  %-12s  %8d bytes  %s\n",
			doc.DocumentID, doc.Status, doc.Size, doc.Filename)
	}
	return nil
}

func runStatus(cmd *cobra.Command, args []string) error {
	var resp DocumentStatusResponse
	path := fmt.Sprintf("/api/v1/documents/%s/status", args[0])
	if err := newClient(serverURL).getJSON(path, &resp); err != nil {
		return err
	}
	fmt.Printf("Document ID: %s\n", resp.DocumentID)
	fmt.Printf("Filename:    %s\n", resp.Filename)
	fmt.Printf("Status:      %s\n", resp.Status)
	fmt.Printf("Uploaded:    %s\n", resp.UploadTime.Format("2006-01-02 15:04:05"))
	if resp.ProcessedTime != nil {
		fmt.Printf("Processed:   %s\n", resp.ProcessedTime.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func runDelete(cmd *cobra.Command, args []string) error {
	var resp MessageResponse
	path := fmt.Sprintf("/api/v1/documents/%s", args[0])
	if err := newClient(serverURL).delete(path, &resp); err != nil {
		return err
	}
	fmt.Println(resp.Message)
	return nil
}
