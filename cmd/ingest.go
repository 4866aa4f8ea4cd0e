package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/bookquill/bookquill/internal/docstore"
	"github.com/bookquill/bookquill/internal/extract"
	"github.com/bookquill/bookquill/internal/progress"
	"github.com/bookquill/bookquill/internal/walker"
)

var (
	ingestAuthor int64
	ingestForce  bool
	ingestTitle  string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [path]",
	Short: "Ingest a manuscript or a directory of manuscripts into the library",
	Long: `Registers the given file, or every supported manuscript under the given
directory, for the author and processes them into searchable chunks.
Already-processed documents are skipped unless --force is set.`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().Int64Var(&ingestAuthor, "author", 0, "author id the manuscripts belong to (required)")
	ingestCmd.Flags().BoolVar(&ingestForce, "force", false, "reprocess documents that are already ready")
	ingestCmd.Flags().StringVar(&ingestTitle, "title", "", "document title (single file only; defaults to the filename)")
	_ = ingestCmd.MarkFlagRequired("author")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	root, err := filepath.Abs(args[0])
	if err != nil {
		return fmt.Errorf("resolving %s: %w", args[0], err)
	}

	files, err := discoverManuscripts(a, root)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		fmt.Println("No supported manuscripts found.")
		return nil
	}

	// Map already-registered paths to their documents so re-runs reuse them.
	existing, err := a.docs.ListDocuments(ctx, ingestAuthor, "")
	if err != nil {
		return fmt.Errorf("listing documents: %w", err)
	}
	byPath := make(map[string]docstore.Document, len(existing))
	for _, d := range existing {
		byPath[d.FilePath] = d
	}

	var failed int
	for _, f := range files {
		doc, ok := byPath[f.Path]
		if !ok {
			title := f.Title
			if ingestTitle != "" && len(files) == 1 {
				title = ingestTitle
			}
			created, err := a.docs.CreateDocument(ctx, ingestAuthor, title, f.Path)
			if err != nil {
				return fmt.Errorf("registering %s: %w", f.RelPath, err)
			}
			doc = *created
		}

		fmt.Printf("Ingesting %q...\n", doc.Title)
		if err := a.pipeline.Ingest(ctx, doc.ID, ingestForce, progress.NewReporter()); err != nil {
			failed++
			fmt.Printf("  failed: %v\n", err)
			continue
		}

		updated, err := a.docs.GetDocument(ctx, doc.ID)
		if err == nil && updated.Status == docstore.StatusReady {
			fmt.Printf("  ready (%d chunks)\n", updated.ChunkCount)
		}
	}

	if err := a.persistVectors(ctx); err != nil {
		return err
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d manuscript(s) failed to ingest", failed, len(files))
	}
	fmt.Printf("Ingested %d manuscript(s). Index now holds %d chunks.\n", len(files), a.vectors.Count())
	return nil
}

// discoverManuscripts returns the manuscripts to ingest for a path that may
// be a single file or a directory.
func discoverManuscripts(a *app, root string) ([]walker.FileInfo, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", root, err)
	}
	sources := []extract.Source{extract.Text{}}

	if !info.IsDir() {
		if _, err := extract.ForPath(sources, root); err != nil {
			return nil, err
		}
		return []walker.FileInfo{{
			Path:    root,
			RelPath: filepath.Base(root),
			Title:   walker.TitleFromPath(root),
		}}, nil
	}

	files, err := walker.Walk(walker.Config{
		RootDir: root,
		Include: a.cfg.Ingest.Include,
		Exclude: a.cfg.Ingest.Exclude,
		Supports: func(path string) bool {
			_, err := extract.ForPath(sources, path)
			return err == nil
		},
	})
	if err != nil {
		return nil, fmt.Errorf("scanning %s: %w", root, err)
	}
	return files, nil
}
