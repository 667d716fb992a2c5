package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

var sampleLimit int

var collectionCmd = &cobra.Command{
	Use:   "collection",
	Short: "Inspect and manage the vector collection",
}

var sampleCmd = &cobra.Command{
	Use:   "sample",
	Short: "Print a bounded sample of indexed entries",
	RunE:  runSample,
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all entries from the collection",
	RunE:  runClear,
}

var countCmd = &cobra.Command{
	Use:   "count",
	Short: "Print the number of indexed entries",
	RunE:  runCount,
}

func init() {
	rootCmd.AddCommand(collectionCmd)
	collectionCmd.AddCommand(sampleCmd, clearCmd, countCmd)
	sampleCmd.Flags().IntVar(&sampleLimit, "limit", 10, "maximum number of entries to print")
}

func runSample(cmd *cobra.Command, args []string) error {
	embedder, err := buildEmbedder()
	if err != nil {
		return err
	}
	idx, err := openIndex(embedder)
	if err != nil {
		return fmt.Errorf("failed to open collection: %w", err)
	}
	defer idx.Close()

	entries, err := idx.Fetch(context.Background(), sampleLimit)
	if err != nil {
		return fmt.Errorf("fetch failed: %w", err)
	}

	type sampleEntry struct {
		ID       string            `json:"id"`
		Text     string            `json:"text"`
		Metadata map[string]string `json:"metadata,omitempty"`
	}
	out := make([]sampleEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, sampleEntry{ID: e.ID, Text: e.Text, Metadata: e.Metadata})
	}

	data, _ := json.MarshalIndent(out, "", "  ")
	fmt.Println(string(data))
	return nil
}

func runClear(cmd *cobra.Command, args []string) error {
	embedder, err := buildEmbedder()
	if err != nil {
		return err
	}
	idx, err := openIndex(embedder)
	if err != nil {
		return fmt.Errorf("failed to open collection: %w", err)
	}
	defer idx.Close()

	if err := idx.Clear(context.Background()); err != nil {
		return fmt.Errorf("clear failed: %w", err)
	}
	fmt.Printf("Collection %q cleared.\n", cfg.Collection.Name)
	return nil
}

func runCount(cmd *cobra.Command, args []string) error {
	embedder, err := buildEmbedder()
	if err != nil {
		return err
	}
	idx, err := openIndex(embedder)
	if err != nil {
		return fmt.Errorf("failed to open collection: %w", err)
	}
	defer idx.Close()

	n, err := idx.Count(context.Background())
	if err != nil {
		return fmt.Errorf("count failed: %w", err)
	}
	fmt.Println(n)
	return nil
}
