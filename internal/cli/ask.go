package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"helpdesk/internal/domain"
	"helpdesk/internal/usecase"
)

var (
	askQuery     string
	askTopK      int
	askThreshold float64
	askRequester int64
	askJSON      bool
)

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Answer a question from the knowledge base",
	Long: `Answer a question using retrieval over the vector collection. When no
indexed document is close enough, the question is escalated into the
support-ticket queue instead.

Examples:
  helpdesk ask -q "What is the refund window?"
  helpdesk ask -q "billing address" -k 5 --threshold 1.5 --requester 42`,
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().StringVarP(&askQuery, "query", "q", "", "question text (required)")
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "number of nearest neighbors to consider (default from config)")
	askCmd.Flags().Float64Var(&askThreshold, "threshold", 0, "maximum distance for a document to count as relevant (default from config)")
	askCmd.Flags().Int64Var(&askRequester, "requester", 0, "requester ID used when the question is escalated")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output as JSON")
	askCmd.MarkFlagRequired("query")
}

type askOutput struct {
	Answer    string    `json:"answer,omitempty"`
	TicketRef *int64    `json:"ticket_ref,omitempty"`
	Distances []float64 `json:"distances,omitempty"`
}

func runAsk(cmd *cobra.Command, args []string) error {
	embedder, err := buildEmbedder()
	if err != nil {
		return err
	}

	idx, err := openIndex(embedder)
	if err != nil {
		return fmt.Errorf("failed to open collection: %w", err)
	}
	defer idx.Close()

	tickets, err := buildTickets()
	if err != nil {
		return fmt.Errorf("failed to open ticket store: %w", err)
	}

	generator, err := buildGenerator()
	if err != nil {
		return err
	}

	retriever := usecase.NewRetriever(embedder, idx, logger)
	policy := usecase.NewEscalationPolicy(tickets, cfg.Tickets.Subject, logger)
	synth := usecase.NewSynthesizer(generator, cfg.Generation.TokenLimit, logger)
	answerUC := usecase.NewAnswerUseCase(retriever, policy, synth, logger)

	params := usecase.AskParams{
		K:         cfg.Retrieve.TopK,
		Threshold: cfg.Retrieve.Threshold,
		Requester: domain.UserRef{ID: askRequester},
	}
	if askTopK > 0 {
		params.K = askTopK
	}
	if cmd.Flags().Changed("threshold") {
		params.Threshold = askThreshold
	}

	result, err := answerUC.Ask(context.Background(), askQuery, params)
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if askJSON {
		out := askOutput{Answer: result.Answer}
		if result.Ticket != nil {
			out.TicketRef = &result.Ticket.ID
		}
		for _, d := range result.Documents {
			out.Distances = append(out.Distances, d.Distance)
		}
		data, _ := json.MarshalIndent(out, "", "  ")
		fmt.Println(string(data))
		return nil
	}

	if result.Ticket != nil {
		fmt.Printf("No relevant documents found. Opened ticket #%d for the question.\n", result.Ticket.ID)
		return nil
	}
	fmt.Println(result.Answer)
	return nil
}
