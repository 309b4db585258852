package commands

import (
	"fmt"

	"github.com/leapstack-labs/pbilens/internal/cli/output"
	"github.com/leapstack-labs/pbilens/internal/state"
	"github.com/spf13/cobra"
)

// NewUploadCommand creates the upload command.
func NewUploadCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload <file>...",
		Short: "Store report, model or dependency files for later analysis",
		Long: `Store one or more Power BI artifacts in the document store.

The kind of each file is detected from its extension and content:
  - .tsv   measure dependency export
  - .bim   model document
  - .json  report layout (has "sections") or model document (has "model")

Only the latest upload of each kind is kept. Commands run without a file
argument analyze the stored documents.`,
		Example: `  # Store a report layout and its model
  pbilens upload Layout.json Model.bim

  # Store into a Postgres database
  DATABASE_URL=postgres://localhost/pbilens pbilens upload deps.tsv`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpload(cmd, args)
		},
	}
	return cmd
}

func runUpload(cmd *cobra.Command, paths []string) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer
	ctx := cmd.Context()

	// Read everything before touching the store so a bad path saves nothing.
	docs := make([]*state.Document, 0, len(paths))
	for _, path := range paths {
		doc, err := ReadDocument(path)
		if err != nil {
			return err
		}
		docs = append(docs, doc)
	}

	store, err := cmdCtx.OpenStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	for _, doc := range docs {
		if err := store.Save(ctx, doc); err != nil {
			return fmt.Errorf("failed to save %s: %w", doc.Name, err)
		}
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(docs)
	}
	for _, doc := range docs {
		r.StatusLine(doc.Name, "saved", string(doc.Kind))
	}
	r.Success(fmt.Sprintf("Stored %d document(s)", len(docs)))
	return nil
}

// NewDocumentsCommand creates the documents command.
func NewDocumentsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "documents",
		Short: "List stored documents",
		Long:  `List the documents currently held in the document store, newest first.`,
		Example: `  pbilens documents
  pbilens documents -o json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runDocuments(cmd)
		},
	}
}

func runDocuments(cmd *cobra.Command) error {
	cmdCtx := NewCommandContext(cmd)
	r := cmdCtx.Renderer

	store, err := cmdCtx.OpenStore(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	docs, err := store.List(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if r.EffectiveMode() == output.ModeJSON {
		return r.JSON(docs)
	}
	if len(docs) == 0 {
		r.Muted("No documents stored. Run 'pbilens upload <file>' first.")
		return nil
	}

	rows := make([][]string, 0, len(docs))
	for _, d := range docs {
		rows = append(rows, []string{string(d.Kind), d.Name, d.Fingerprint, d.CreatedAt.Local().Format("2006-01-02 15:04:05")})
	}
	r.Header(1, fmt.Sprintf("Documents (%d)", len(docs)))
	r.Table([]string{"Kind", "Name", "Fingerprint", "Uploaded"}, rows)
	return nil
}
