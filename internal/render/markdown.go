package render

import (
	"bytes"
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/tomcrane/mets-parser/internal/mets"
	"github.com/tomcrane/mets-parser/internal/workingfs"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

const untitled = "Untitled METS document"

// MarkdownReport summarises w as GitHub-flavoured Markdown: a summary
// table, the access conditions, an outline of the physical structure and a
// table of every file.
func MarkdownReport(w *mets.Wrapper) string {
	var b strings.Builder
	title := w.Name
	if title == "" {
		title = untitled
	}
	fmt.Fprintf(&b, "# %s\n\n", escapeInline(title))

	root := w.PhysicalStructure
	b.WriteString("| | |\n|---|---|\n")
	if w.MetsURI != "" {
		fmt.Fprintf(&b, "| METS | %s |\n", codeCell(w.MetsURI))
	}
	if w.Agent != "" {
		fmt.Fprintf(&b, "| Agent | %s |\n", escapeCell(w.Agent))
	}
	fmt.Fprintf(&b, "| Editable | %s |\n", yesNo(w.Editable))
	fmt.Fprintf(&b, "| Files | %s |\n", humanize.Comma(int64(len(w.Files))))
	if root != nil {
		fmt.Fprintf(&b, "| Directories | %s |\n", humanize.Comma(int64(root.DescendantDirectoryCount())))
		fmt.Fprintf(&b, "| Total size | %s |\n", humanize.IBytes(uint64(max(root.TotalSize(), 0))))
	}
	b.WriteString("\n")

	if len(w.RootAccessConditions) > 0 || w.RootRightsStatement != "" {
		b.WriteString("## Access\n\n")
		for _, ac := range w.RootAccessConditions {
			fmt.Fprintf(&b, "- %s\n", escapeInline(ac))
		}
		if w.RootRightsStatement != "" {
			fmt.Fprintf(&b, "- Rights: <%s>\n", w.RootRightsStatement)
		}
		b.WriteString("\n")
	}

	if root != nil {
		b.WriteString("## Structure\n\n")
		root.Walk(func(e workingfs.Entry, depth int) bool {
			if depth == 0 {
				return true
			}
			indent := strings.Repeat("  ", depth-1)
			switch v := e.(type) {
			case *workingfs.WorkingDirectory:
				fmt.Fprintf(&b, "%s- **%s/**", indent, escapeInline(v.Slug()))
				if v.Name != "" && v.Name != v.Slug() {
					fmt.Fprintf(&b, " (%s)", escapeInline(v.Name))
				}
				b.WriteString("\n")
			case *workingfs.WorkingFile:
				fmt.Fprintf(&b, "%s- %s", indent, codeSpan(v.Slug()))
				if v.Name != "" && v.Name != v.Slug() {
					fmt.Fprintf(&b, " %s", escapeInline(v.Name))
				}
				fmt.Fprintf(&b, ", %s, %s\n", escapeInline(v.ContentType), humanize.IBytes(uint64(max(v.Size, 0))))
			}
			return true
		})
		b.WriteString("\n")
	}

	if len(w.Files) > 0 {
		b.WriteString("## Files\n\n")
		b.WriteString("| Path | Name | Content type | Size | SHA-256 |\n")
		b.WriteString("|---|---|---|---:|---|\n")
		for _, f := range w.Files {
			fmt.Fprintf(&b, "| %s | %s | %s | %s | %s |\n",
				codeCell(f.LocalPath), escapeCell(f.Name), escapeCell(f.ContentType), humanize.Comma(f.Size), shortDigest(f.Digest))
		}
	}
	return b.String()
}

func writeHTML(out io.Writer, w *mets.Wrapper) error {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	var body bytes.Buffer
	if err := md.Convert([]byte(MarkdownReport(w)), &body); err != nil {
		return fmt.Errorf("render html: %w", err)
	}
	title := w.Name
	if title == "" {
		title = untitled
	}
	_, err := fmt.Fprintf(out, "<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n<meta charset=\"utf-8\">\n<title>%s</title>\n</head>\n<body>\n%s</body>\n</html>\n",
		html.EscapeString(title), body.String())
	return err
}

func shortDigest(d string) string {
	if d == "" {
		return ""
	}
	if len(d) > 12 {
		d = d[:12] + "…"
	}
	return "`" + d + "`"
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

var inlineEscaper = strings.NewReplacer(`\`, `\\`, "*", `\*`, "_", `\_`, "`", "\\`", "[", `\[`, "]", `\]`, "<", "&lt;", ">", "&gt;")

func escapeInline(s string) string {
	return inlineEscaper.Replace(s)
}

func escapeCell(s string) string {
	return strings.ReplaceAll(escapeInline(s), "|", `\|`)
}

// codeSpan wraps s in a backtick fence longer than any backtick run inside it.
func codeSpan(s string) string {
	longest, run := 0, 0
	for _, r := range s {
		if r == '`' {
			run++
			longest = max(longest, run)
		} else {
			run = 0
		}
	}
	fence := strings.Repeat("`", longest+1)
	if strings.HasPrefix(s, "`") || strings.HasSuffix(s, "`") {
		s = " " + s + " "
	}
	return fence + s + fence
}

// codeCell is codeSpan for a table cell, where a pipe ends the cell even
// inside a code span.
func codeCell(s string) string {
	return strings.ReplaceAll(codeSpan(s), "|", `\|`)
}
