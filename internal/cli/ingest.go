package cli

import (
	"context"
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"helpdesk/internal/adapter/chunker"
	"helpdesk/internal/adapter/fs"
	"helpdesk/internal/usecase"
)

var (
	ingestChunkSize    int
	ingestChunkOverlap int
	ingestIncludes     []string
	ingestExcludes     []string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <path>",
	Short: "Chunk, embed, and index knowledge-base text",
	Long: `Ingest a text file or a directory of knowledge-base files into the
vector collection. Re-ingesting the same sources with the same chunking
parameters overwrites the existing entries instead of duplicating them.

Examples:
  helpdesk ingest ./kb/faq.txt
  helpdesk ingest ./kb --chunk-size 500 --chunk-overlap 70`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.Flags().IntVar(&ingestChunkSize, "chunk-size", 0, "chunk size in characters (default from config)")
	ingestCmd.Flags().IntVar(&ingestChunkOverlap, "chunk-overlap", 0, "chunk overlap in characters (default from config)")
	ingestCmd.Flags().StringSliceVar(&ingestIncludes, "include", nil, "glob patterns of files to ingest (default **/*.txt, **/*.md)")
	ingestCmd.Flags().StringSliceVar(&ingestExcludes, "exclude", nil, "glob patterns of files to skip")
}

func runIngest(cmd *cobra.Command, args []string) error {
	embedder, err := buildEmbedder()
	if err != nil {
		return err
	}

	idx, err := openIndex(embedder)
	if err != nil {
		return fmt.Errorf("failed to open collection: %w", err)
	}
	defer idx.Close()

	opts := usecase.IngestOptions{
		ChunkSize:    cfg.Chunking.ChunkSize,
		ChunkOverlap: cfg.Chunking.ChunkOverlap,
	}
	if ingestChunkSize > 0 {
		opts.ChunkSize = ingestChunkSize
	}
	if cmd.Flags().Changed("chunk-overlap") {
		opts.ChunkOverlap = ingestChunkOverlap
	}

	walker := fs.NewWalker(ingestIncludes, ingestExcludes)
	ingestUC := usecase.NewIngestUseCase(chunker.NewRecursive(), embedder, idx, walker, logger)

	var bar *progressbar.ProgressBar
	progress := func(processed, total int, currentFile string) {
		if bar == nil {
			bar = progressbar.NewOptions(total,
				progressbar.OptionEnableColorCodes(true),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionSetDescription("[cyan]Ingesting[reset]"),
				progressbar.OptionSetTheme(progressbar.Theme{
					Saucer:        "[green]=[reset]",
					SaucerHead:    "[green]>[reset]",
					SaucerPadding: " ",
					BarStart:      "[",
					BarEnd:        "]",
				}),
				progressbar.OptionOnCompletion(func() {
					fmt.Println()
				}),
			)
		}
		bar.Set(processed)
	}

	report, err := ingestUC.IngestPath(context.Background(), args[0], opts, progress)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	fmt.Printf("Batch %s: %d file(s), %d chunk(s) indexed into collection %q\n",
		report.BatchID, report.FilesIngested, report.ChunksUpserted, cfg.Collection.Name)
	for _, e := range report.Errors {
		fmt.Printf("  error: %s\n", e)
	}
	if len(report.Errors) > 0 {
		return fmt.Errorf("%d file(s) failed", len(report.Errors))
	}
	return nil
}
