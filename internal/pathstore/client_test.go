package pathstore

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestPutNode(t *testing.T) {
	var gotPath, gotAuth string
	var gotBody NodeRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotBody)
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret")
	err := c.PutNode(context.Background(), MetaKey("doc1"), NodeRequest{Value: map[string]any{"name": "x"}, Source: "mets:doc1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/kv/mets/documents/doc1/meta" {
		t.Errorf("expected meta path, got %q", gotPath)
	}
	if gotAuth != "Bearer secret" {
		t.Errorf("expected bearer auth, got %q", gotAuth)
	}
	if gotBody.Source != "mets:doc1" {
		t.Errorf("expected source, got %q", gotBody.Source)
	}
}

func TestPutNode_ServerErrorIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "busy", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := NewClient(srv.URL, "k").PutNode(context.Background(), "a", NodeRequest{Value: 1})
	var re *RetryableError
	if !errors.As(err, &re) {
		t.Fatalf("expected RetryableError, got %v", err)
	}
	if re.StatusCode != http.StatusServiceUnavailable {
		t.Errorf("expected status 503, got %d", re.StatusCode)
	}
}

func TestPutNode_ClientErrorIsNotRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad key", http.StatusBadRequest)
	}))
	defer srv.Close()

	err := NewClient(srv.URL, "k").PutNode(context.Background(), "a", NodeRequest{Value: 1})
	if err == nil {
		t.Fatal("expected an error")
	}
	var re *RetryableError
	if errors.As(err, &re) {
		t.Errorf("expected a permanent error, got %v", err)
	}
}

func TestPutNode_TransportErrorIsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	err := NewClient(url, "k").PutNode(context.Background(), "a", NodeRequest{Value: 1})
	var re *RetryableError
	if !errors.As(err, &re) {
		t.Fatalf("expected RetryableError, got %v", err)
	}
	if re.StatusCode != 0 {
		t.Errorf("expected no status for a transport error, got %d", re.StatusCode)
	}
}

func TestGetNode_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	node, err := NewClient(srv.URL, "k").GetNode(context.Background(), "missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if node != nil {
		t.Errorf("expected nil node, got %+v", node)
	}
}

func TestListChildren(t *testing.T) {
	var gotURL string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotURL = r.URL.String()
		w.Write([]byte(`{"nodes":[{"key_path":"mets.by_digest.abc.doc1","value":{}}]}`))
	}))
	defer srv.Close()

	nodes, err := NewClient(srv.URL, "k").ListChildren(context.Background(), "mets/by_digest/abc", 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotURL != "/kv/mets/by_digest/abc/*?limit=5" {
		t.Errorf("unexpected url %q", gotURL)
	}
	if len(nodes) != 1 || nodes[0].Key != "mets.by_digest.abc.doc1" {
		t.Errorf("unexpected nodes %+v", nodes)
	}
}

func TestDeleteNode_Recursive(t *testing.T) {
	var gotQuery, gotMethod string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotQuery = r.URL.RawQuery
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	if err := NewClient(srv.URL, "k").DeleteNode(context.Background(), DocumentKey("doc1"), true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotMethod != http.MethodDelete || gotQuery != "children=true" {
		t.Errorf("expected recursive DELETE, got %s ?%s", gotMethod, gotQuery)
	}
}

func TestKeys(t *testing.T) {
	tests := []struct {
		got, want string
	}{
		{TreeKey("d1", "objects/images/001.tif"), "mets/documents/d1/tree/objects/images/001.tif"},
		{TreeKey("d1", "/objects/my file.txt"), "mets/documents/d1/tree/objects/my%20file.txt"},
		{DigestKey("ABCDEF", "d1"), "mets/by_digest/abcdef/d1"},
		{MetaKey("d1"), "mets/documents/d1/meta"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("expected %q, got %q", tt.want, tt.got)
		}
	}
}
