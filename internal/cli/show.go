package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tomcrane/mets-parser/internal/mets"
	"github.com/tomcrane/mets-parser/internal/render"
)

var showFlags struct {
	format           string
	inferContentType bool
	stripBagIt       bool
}

var showCmd = &cobra.Command{
	Use:   "show <mets-file>",
	Short: "Print the working tree of a METS document",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

var filesCmd = &cobra.Command{
	Use:   "files <mets-file>",
	Short: "List every file as tab-separated path, content type, size and digest",
	Args:  cobra.ExactArgs(1),
	RunE:  runFiles,
}

func init() {
	formats := make([]string, len(render.Formats))
	for i, f := range render.Formats {
		formats[i] = string(f)
	}
	showCmd.Flags().StringVarP(&showFlags.format, "format", "f", string(render.Tree), "Output format: "+strings.Join(formats, ", "))
	showCmd.Flags().BoolVar(&showFlags.inferContentType, "infer-content-type", false, "Deduce a missing MIMETYPE from the file extension")
	showCmd.Flags().BoolVar(&showFlags.stripBagIt, "strip-bagit", false, "Remove the BagIt data/ prefix from every path")

	filesCmd.Flags().BoolVar(&showFlags.inferContentType, "infer-content-type", false, "Deduce a missing MIMETYPE from the file extension")

	rootCmd.AddCommand(showCmd, filesCmd)
}

func resetShowFlags() {
	showFlags.format = string(render.Tree)
	showFlags.inferContentType = false
	showFlags.stripBagIt = false
}

func parseFile(cmd *cobra.Command, path string) (*mets.Wrapper, error) {
	p := &mets.Parser{Log: logger(cmd), InferContentType: showFlags.inferContentType}
	w, err := p.ParseFile(path)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return w, nil
}

func runShow(cmd *cobra.Command, args []string) error {
	format, err := render.ParseFormat(showFlags.format)
	if err != nil {
		return err
	}
	w, err := parseFile(cmd, args[0])
	if err != nil {
		return err
	}
	if showFlags.stripBagIt {
		w.StripBagIt()
	}
	return render.Write(cmd.OutOrStdout(), w, format)
}

func runFiles(cmd *cobra.Command, args []string) error {
	w, err := parseFile(cmd, args[0])
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, f := range w.Files {
		if _, err := fmt.Fprintf(out, "%s\t%s\t%d\t%s\n", f.LocalPath, f.ContentType, f.Size, f.Digest); err != nil {
			return err
		}
	}
	return nil
}
