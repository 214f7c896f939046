package pipeline

import (
	"slices"
	"strings"
	"time"

	"github.com/tomcrane/mets-parser/internal/mets"
	"github.com/tomcrane/mets-parser/internal/pathstore"
	"github.com/tomcrane/mets-parser/internal/workingfs"
)

// node is one pathstore write.
type node struct {
	key string
	req pathstore.NodeRequest
}

func source(docID string) string {
	return "mets-parser:" + docID
}

// documentNodes lists every node published for one document: its summary,
// one node per directory and file, and a digest index entry per distinct
// sha256.
func documentNodes(job JobSnapshot, w *mets.Wrapper) []node {
	src := source(job.DocID)
	meta := map[string]any{
		"filename":     job.Filename,
		"name":         w.Name,
		"agent":        w.Agent,
		"editable":     w.Editable,
		"content_hash": job.ContentHash,
		"files":        len(w.Files),
		"created_at":   job.CreatedAt.Format(time.RFC3339),
	}
	if len(w.RootAccessConditions) > 0 {
		meta["access_conditions"] = w.RootAccessConditions
	}
	if w.RootRightsStatement != "" {
		meta["rights"] = w.RootRightsStatement
	}
	nodes := []node{{key: pathstore.MetaKey(job.DocID)}}

	if root := w.PhysicalStructure; root != nil {
		meta["directories"] = root.DescendantDirectoryCount()
		meta["total_size"] = root.TotalSize()
		root.Walk(func(e workingfs.Entry, depth int) bool {
			if depth == 0 {
				return true
			}
			var value map[string]any
			switch v := e.(type) {
			case *workingfs.WorkingDirectory:
				value = directoryValue(v)
			case *workingfs.WorkingFile:
				value = fileValue(v)
			}
			nodes = append(nodes, node{
				key: pathstore.TreeKey(job.DocID, e.Base().LocalPath),
				req: pathstore.NodeRequest{Value: value, Source: src},
			})
			return true
		})
	}
	nodes[0].req = pathstore.NodeRequest{Value: meta, Source: src}

	byDigest := make(map[string][]string)
	var digests []string
	for _, f := range w.Files {
		if f.Digest == "" {
			continue
		}
		d := strings.ToLower(f.Digest)
		if _, ok := byDigest[d]; !ok {
			digests = append(digests, d)
		}
		byDigest[d] = append(byDigest[d], f.LocalPath)
	}
	slices.Sort(digests)
	for _, d := range digests {
		nodes = append(nodes, node{
			key: pathstore.DigestKey(d, job.DocID),
			req: pathstore.NodeRequest{
				Value:  map[string]any{"doc_id": job.DocID, "paths": byDigest[d]},
				Source: src,
			},
		})
	}
	return nodes
}

func directoryValue(d *workingfs.WorkingDirectory) map[string]any {
	v := map[string]any{
		"type":        string(workingfs.KindDirectory),
		"name":        d.Name,
		"localPath":   d.LocalPath,
		"files":       len(d.Files),
		"directories": len(d.Directories),
	}
	if st := d.Metadata.Storage; st != nil && st.OriginalName != "" {
		v["originalName"] = st.OriginalName
	}
	return v
}

func fileValue(f *workingfs.WorkingFile) map[string]any {
	v := map[string]any{
		"type":        string(workingfs.KindFile),
		"name":        f.Name,
		"localPath":   f.LocalPath,
		"contentType": f.ContentType,
		"size":        f.Size,
	}
	if f.Digest != "" {
		v["digest"] = f.Digest
	}
	if f.Mets != nil && f.Mets.AdmID != "" {
		v["admId"] = f.Mets.AdmID
	}
	if ft := f.Metadata.Format; ft != nil {
		v["pronomKey"] = ft.PronomKey
	}
	if vs := f.Metadata.VirusScan; vs != nil {
		v["hasVirus"] = vs.HasVirus
	}
	return v
}
