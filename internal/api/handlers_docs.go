package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/tomcrane/mets-parser/internal/inventory"
	"github.com/tomcrane/mets-parser/internal/pathstore"
)

func (s *Server) requireInventory(w http.ResponseWriter) bool {
	if s.inventory == nil {
		jsonError(w, "inventory is disabled", http.StatusServiceUnavailable)
		return false
	}
	return true
}

// handleListDocuments pages through indexed documents, newest first.
func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	if !s.requireInventory(w) {
		return
	}
	limit := queryInt(r, "limit", 50)
	offset := queryInt(r, "offset", 0)

	docs, err := s.inventory.ListDocuments(r.Context(), limit, offset)
	if err != nil {
		jsonError(w, "failed to list documents: "+err.Error(), http.StatusInternalServerError)
		return
	}
	total, err := s.inventory.CountDocuments(r.Context())
	if err != nil {
		jsonError(w, "failed to count documents: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if docs == nil {
		docs = []inventory.Document{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"documents": docs,
		"total":     total,
		"limit":     limit,
		"offset":    offset,
	})
}

// handleGetDocument reads the inventory row, or the published summary node
// when only pathstore is configured.
func (s *Server) handleGetDocument(w http.ResponseWriter, r *http.Request) {
	if s.inventory == nil && s.pathstore != nil {
		s.getPublishedDocument(w, r)
		return
	}
	if !s.requireInventory(w) {
		return
	}
	doc, err := s.inventory.GetDocument(r.Context(), chi.URLParam(r, "docID"))
	if errors.Is(err, inventory.ErrNotFound) {
		jsonError(w, "document not found", http.StatusNotFound)
		return
	}
	if err != nil {
		jsonError(w, "failed to read document: "+err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (s *Server) handleListFiles(w http.ResponseWriter, r *http.Request) {
	if !s.requireInventory(w) {
		return
	}
	docID := chi.URLParam(r, "docID")
	files, err := s.inventory.ListFiles(r.Context(), docID)
	if errors.Is(err, inventory.ErrNotFound) {
		jsonError(w, "document not found", http.StatusNotFound)
		return
	}
	if err != nil {
		jsonError(w, "failed to list files: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if files == nil {
		files = []inventory.File{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"doc_id": docID, "files": files})
}

// handleFindDigest lists every indexed file with the given sha256. Without an
// inventory the published digest index is scanned instead.
func (s *Server) handleFindDigest(w http.ResponseWriter, r *http.Request) {
	digest := strings.ToLower(chi.URLParam(r, "digest"))
	if s.inventory == nil && s.pathstore != nil {
		s.findPublishedDigest(w, r, digest)
		return
	}
	if !s.requireInventory(w) {
		return
	}
	files, err := s.inventory.FindByDigest(r.Context(), digest)
	if err != nil {
		jsonError(w, "failed to search digests: "+err.Error(), http.StatusInternalServerError)
		return
	}
	if files == nil {
		files = []inventory.File{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"digest": digest, "files": files})
}

func (s *Server) getPublishedDocument(w http.ResponseWriter, r *http.Request) {
	docID := chi.URLParam(r, "docID")
	node, err := s.pathstore.GetNode(r.Context(), pathstore.MetaKey(docID))
	if err != nil {
		jsonError(w, "failed to read published document: "+err.Error(), http.StatusBadGateway)
		return
	}
	if node == nil {
		jsonError(w, "document not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"doc_id": docID, "meta": node.Value})
}

// findPublishedDigest turns the by_digest children of digest into file rows.
// Each child is keyed by document and holds that document's paths.
func (s *Server) findPublishedDigest(w http.ResponseWriter, r *http.Request, digest string) {
	nodes, err := s.pathstore.ListChildren(r.Context(), pathstore.DigestPrefix(digest), 0)
	if err != nil {
		jsonError(w, "failed to search published digests: "+err.Error(), http.StatusBadGateway)
		return
	}
	files := []inventory.File{}
	for _, n := range nodes {
		value, ok := n.Value.(map[string]any)
		if !ok {
			continue
		}
		docID, _ := value["doc_id"].(string)
		paths, _ := value["paths"].([]any)
		for _, p := range paths {
			if localPath, ok := p.(string); ok {
				files = append(files, inventory.File{DocID: docID, LocalPath: localPath, Digest: digest})
			}
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"digest": digest, "files": files})
}

// handleDeleteDocument removes a document from the inventory and its
// published nodes from pathstore.
func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	if s.inventory == nil && s.pathstore == nil {
		jsonError(w, "inventory and publishing are disabled", http.StatusServiceUnavailable)
		return
	}
	ctx := r.Context()
	docID := chi.URLParam(r, "docID")

	var digests []string
	inventoryDeleted := false
	if s.inventory != nil {
		files, err := s.inventory.ListFiles(ctx, docID)
		if errors.Is(err, inventory.ErrNotFound) && s.pathstore == nil {
			jsonError(w, "document not found", http.StatusNotFound)
			return
		}
		if err != nil && !errors.Is(err, inventory.ErrNotFound) {
			jsonError(w, "failed to read document: "+err.Error(), http.StatusInternalServerError)
			return
		}
		for _, f := range files {
			if f.Digest != "" {
				digests = append(digests, f.Digest)
			}
		}
		if err == nil {
			if err := s.inventory.DeleteDocument(ctx, docID); err != nil {
				jsonError(w, "failed to delete document: "+err.Error(), http.StatusInternalServerError)
				return
			}
			inventoryDeleted = true
		}
	}

	nodesDeleted, failures := 0, 0
	if s.pathstore != nil {
		nodesDeleted, failures = s.unpublish(ctx, docID, digests)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"doc_id":            docID,
		"inventory_deleted": inventoryDeleted,
		"nodes_deleted":     nodesDeleted,
		"delete_failures":   failures,
	})
}

// unpublish deletes the document subtree and its digest index entries.
func (s *Server) unpublish(ctx context.Context, docID string, digests []string) (deleted, failed int) {
	keys := []string{pathstore.DocumentKey(docID)}
	seen := make(map[string]bool)
	for _, d := range digests {
		k := pathstore.DigestKey(d, docID)
		if !seen[k] {
			seen[k] = true
			keys = append(keys, k)
		}
	}
	for i, k := range keys {
		if err := s.pathstore.DeleteNode(ctx, k, i == 0); err != nil {
			s.log.Warn("unpublish failed", "key", k, "error", err)
			failed++
			continue
		}
		deleted++
	}
	return deleted, failed
}

func queryInt(r *http.Request, key string, fallback int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return fallback
}
