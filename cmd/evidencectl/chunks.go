package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/kirillkom/evidence-assistant/internal/config"
	"github.com/kirillkom/evidence-assistant/internal/core/domain"
	"github.com/kirillkom/evidence-assistant/internal/core/lexical"
	"github.com/kirillkom/evidence-assistant/internal/infrastructure/chunking"
	"github.com/kirillkom/evidence-assistant/internal/infrastructure/extractor"
)

type chunkRow struct {
	domain.Chunk
	SparseTerms int `json:"sparse_terms"`
}

// newChunksCommand previews how a file would be chunked. It runs offline
// and touches no store.
func newChunksCommand() *cobra.Command {
	defaults := config.Defaults()
	cmd := &cobra.Command{
		Use:   "chunks FILE",
		Short: "Extract and chunk a file locally without indexing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			size, _ := cmd.Flags().GetInt("size")
			charsPerToken, _ := cmd.Flags().GetInt("chars-per-token")
			overlap, _ := cmd.Flags().GetFloat64("overlap")

			content, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			rows, err := previewChunks(cmd, filepath.Base(args[0]), content, chunking.NewSectionChunker(size, charsPerToken, overlap))
			if err != nil {
				return err
			}
			return render(cmd.OutOrStdout(), outputFormat(cmd), rows, func(tw *tabwriter.Writer) {
				fmt.Fprintln(tw, "CHUNK\tPAGE\tSECTION\tTERMS\tTEXT")
				for _, r := range rows {
					fmt.Fprintf(tw, "%s\t%d\t%s\t%d\t%s\n", r.ID, r.Page, preview(r.SectionTitle, 24), r.SparseTerms, preview(r.Text, 60))
				}
			})
		},
	}
	cmd.Flags().Int("size", defaults.ChunkSizeTokens, "Target chunk size in tokens")
	cmd.Flags().Int("chars-per-token", defaults.ChunkCharsPerToken, "Characters per token estimate")
	cmd.Flags().Float64("overlap", defaults.ChunkOverlapPct, "Overlap between chunks as a fraction of size")
	return cmd
}

func previewChunks(cmd *cobra.Command, filename string, content []byte, chunker *chunking.SectionChunker) ([]chunkRow, error) {
	registry := extractor.NewRegistry()
	contentType, err := registry.Detect(filename, content)
	if err != nil {
		return nil, err
	}
	extraction, err := registry.Extract(cmd.Context(), contentType, content)
	if err != nil {
		return nil, err
	}

	doc := &domain.Document{
		ID:          "preview",
		Filename:    filename,
		ContentType: contentType,
		PageCount:   extraction.PageCount,
	}
	encoder := lexical.NewEncoder()
	chunks := chunker.Chunk(doc, extraction.Pages)
	rows := make([]chunkRow, 0, len(chunks))
	for _, c := range chunks {
		rows = append(rows, chunkRow{Chunk: c, SparseTerms: encoder.Encode(c.Text).Len()})
	}
	return rows, nil
}
