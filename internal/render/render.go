// Package render writes a parsed METS wrapper in one of several output formats.
package render

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/tomcrane/mets-parser/internal/mets"
	"gopkg.in/yaml.v3"
)

// Format names an output encoding.
type Format string

const (
	JSON     Format = "json"
	YAML     Format = "yaml"
	Markdown Format = "markdown"
	HTML     Format = "html"
	Tree     Format = "tree"
)

// Formats lists every supported format.
var Formats = []Format{JSON, YAML, Markdown, HTML, Tree}

// ParseFormat validates a format name. The empty string selects JSON.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return JSON, nil
	case JSON, YAML, Markdown, HTML, Tree:
		return f, nil
	case "md":
		return Markdown, nil
	case "yml":
		return YAML, nil
	default:
		return "", fmt.Errorf("unsupported format: %s", s)
	}
}

// ContentType returns the HTTP content type for f.
func (f Format) ContentType() string {
	switch f {
	case YAML:
		return "application/yaml"
	case Markdown:
		return "text/markdown; charset=utf-8"
	case HTML:
		return "text/html; charset=utf-8"
	case Tree:
		return "text/plain; charset=utf-8"
	default:
		return "application/json"
	}
}

// Write renders w to out in format f.
func Write(out io.Writer, w *mets.Wrapper, f Format) error {
	switch f {
	case JSON:
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(w)
	case YAML:
		enc := yaml.NewEncoder(out)
		enc.SetIndent(2)
		if err := enc.Encode(w); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	case Markdown:
		_, err := io.WriteString(out, MarkdownReport(w))
		return err
	case HTML:
		return writeHTML(out, w)
	case Tree:
		return writeTree(out, w.PhysicalStructure)
	default:
		return fmt.Errorf("unsupported format: %s", f)
	}
}
