package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	askTopK         int
	historyLimit    int
	historyOffset   int
	feedbackComment string
	feedbackHelpful bool
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a question against the indexed documents",
	Long: `Ask a question against the indexed documents and print the answer
with its supporting sources.

Examples:
  docq ask "What does the onboarding guide say about VPN access?"
  docq ask --top-k 10 "Which releases dropped TLS 1.0?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent question-answer sessions",
	RunE:  runHistory,
}

var feedbackCmd = &cobra.Command{
	Use:   "feedback",
	Short: "Manage answer feedback",
}

var feedbackSubmitCmd = &cobra.Command{
	Use:   "submit <session-id> <rating>",
	Short: "Rate an answer from 1 (poor) to 5 (excellent)",
	Args:  cobra.ExactArgs(2),
	RunE:  runFeedbackSubmit,
}

var feedbackListCmd = &cobra.Command{
	Use:   "list",
	Short: "List submitted feedback",
	RunE:  runFeedbackList,
}

var feedbackDeleteCmd = &cobra.Command{
	Use:   "delete <session-id>",
	Short: "Delete feedback for a session",
	Args:  cobra.ExactArgs(1),
	RunE:  runFeedbackDelete,
}

func init() {
	askCmd.Flags().IntVar(&askTopK, "top-k", 0, "number of fragments to retrieve (0 = server default)")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 0, "maximum sessions to return (0 = server default)")
	historyCmd.Flags().IntVar(&historyOffset, "offset", 0, "sessions to skip")
	feedbackSubmitCmd.Flags().StringVar(&feedbackComment, "comment", "", "free-form comment")
	feedbackSubmitCmd.Flags().BoolVar(&feedbackHelpful, "helpful", true, "whether the answer was helpful")
	feedbackCmd.AddCommand(feedbackSubmitCmd)
	feedbackCmd.AddCommand(feedbackListCmd)
	feedbackCmd.AddCommand(feedbackDeleteCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := strings.Join(args, " ")
	req := QuestionRequest{Question: question, TopK: askTopK}

	var resp QuestionResponse
	if err := newClient(serverURL).postJSON("/api/v1/qa/ask", req, &resp); err != nil {
		return err
	}

	fmt.Println(resp.Answer)
	fmt.Println()
	fmt.Printf("Confidence: %.2f  Session: %s  (%.2fs)\n",
		resp.ConfidenceScore, resp.SessionID, resp.ProcessingTime)
	for i, src := range resp.Sources {
		fmt.Printf("  [%d] %s (score %.3f)\n", i+1, src.DocumentName, src.Score)
	}
	return nil
}

func runHistory(cmd *cobra.Command, args []string) error {
	path := fmt.Sprintf("/api/v1/qa/history?limit=%d&offset=%d", historyLimit, historyOffset)
	var resp HistoryResponse
	if err := newClient(serverURL).getJSON(path, &resp); err != nil {
		return err
	}
	if len(resp.History) == 0 {
		fmt.Println("No sessions recorded.")
		return nil
	}
	for _, s := range resp.History {
		fmt.Printf("%s  %s\n", s.ID, s.Timestamp.Format("2006-01-02 15:04:05"))
		fmt.Printf("  Q: %s\n", s.Question)
		fmt.Printf("  A: %s\n", truncate(s.Answer, 200))
		if s.FeedbackRating != nil {
			fmt.Printf("  Rating: %d/5\n", *s.FeedbackRating)
		}
	}
	return nil
}

func runFeedbackSubmit(cmd *cobra.Command, args []string) error {
	var rating int
	if _, err := fmt.Sscanf(args[1], "%d", &rating); err != nil {
		return fmt.Errorf("rating must be an integer from 1 to 5: %q", args[1])
	}

	req := FeedbackRequest{
		SessionID: args[0],
		Rating:    rating,
		Comment:   feedbackComment,
		IsHelpful: feedbackHelpful,
	}

	var resp MessageResponse
	if err := newClient(serverURL).postJSON("/api/v1/feedback", req, &resp); err != nil {
		return err
	}
	fmt.Println(resp.Message)
	return nil
}

func runFeedbackList(cmd *cobra.Command, args []string) error {
	var resp FeedbackListResponse
	if err := newClient(serverURL).getJSON("/api/v1/feedback", &resp); err != nil {
		return err
	}
	if len(resp.Feedback) == 0 {
		fmt.Println("No feedback recorded.")
		return nil
	}
	for _, f := range resp.Feedback {
		fmt.Printf("%s  %d/5  %s\n", f.SessionID, f.Rating, f.Timestamp.Format("2006-01-02 15:04:05"))
		if f.Comment != "" {
			fmt.Printf("  %s\n", f.Comment)
		}
	}
	return nil
}

func runFeedbackDelete(cmd *cobra.Command, args []string) error {
	var resp MessageResponse
	path := fmt.Sprintf("/api/v1/feedback/%s", args[0])
	if err := newClient(serverURL).delete(path, &resp); err != nil {
		return err
	}
	fmt.Println(resp.Message)
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
