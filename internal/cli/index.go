package cli

import (
	"errors"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/tomcrane/mets-parser/internal/inventory"
	"github.com/tomcrane/mets-parser/internal/pipeline"
)

var inventoryFlags struct {
	db    string
	docID string
}

var indexCmd = &cobra.Command{
	Use:   "index <mets-file>...",
	Short: "Record METS documents and their files in the inventory",
	Long: `index builds each METS document and stores it, with one row per file,
in the SQLite inventory. Documents whose bytes are already indexed are
skipped. The document ID defaults to the first 16 hex digits of the
document's sha256.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIndex,
}

var digestCmd = &cobra.Command{
	Use:   "digest <sha256>",
	Short: "Find indexed files by sha256 digest",
	Args:  cobra.ExactArgs(1),
	RunE:  runDigest,
}

func init() {
	for _, c := range []*cobra.Command{indexCmd, digestCmd} {
		c.Flags().StringVar(&inventoryFlags.db, "db", "mets-inventory.db", "Path to the SQLite inventory")
	}
	indexCmd.Flags().StringVar(&inventoryFlags.docID, "doc-id", "", "Document ID (only with a single file)")
	indexCmd.Flags().BoolVar(&showFlags.inferContentType, "infer-content-type", false, "Deduce a missing MIMETYPE from the file extension")

	rootCmd.AddCommand(indexCmd, digestCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	if inventoryFlags.docID != "" && len(args) > 1 {
		return errors.New("--doc-id can only be used with a single file")
	}
	store, err := inventory.Open(inventoryFlags.db)
	if err != nil {
		return err
	}
	defer store.Close()

	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	for _, path := range args {
		data, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
		hash := pipeline.ContentHashHex(data)
		docID := inventoryFlags.docID
		if docID == "" {
			docID = hash[:16]
		}

		if existing, err := store.FindByContentHash(ctx, hash); err == nil {
			fmt.Fprintf(out, "%s\tskipped\tduplicate of %s\n", path, existing.DocID)
			continue
		} else if !errors.Is(err, inventory.ErrNotFound) {
			return err
		}

		w, err := parseFile(cmd, path)
		if err != nil {
			return err
		}
		if err := store.SaveDocument(ctx, docID, hash, w); err != nil {
			return err
		}
		fmt.Fprintf(out, "%s\t%s\t%d files\n", path, docID, len(w.Files))
	}
	return nil
}

func runDigest(cmd *cobra.Command, args []string) error {
	store, err := inventory.Open(inventoryFlags.db)
	if err != nil {
		return err
	}
	defer store.Close()

	files, err := store.FindByDigest(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return fmt.Errorf("no indexed file has digest %s", args[0])
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DOCUMENT\tPATH\tTYPE\tSIZE")
	for _, f := range files {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", f.DocID, f.LocalPath, f.ContentType, f.Size)
	}
	return tw.Flush()
}
