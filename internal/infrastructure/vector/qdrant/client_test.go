package qdrant

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/velikanov/hybrid-query-engine/internal/core/domain"
)

func embedded(docID string, index int, text string, vector []float32) domain.EmbeddedChunk {
	return domain.EmbeddedChunk{
		Chunk: domain.Chunk{
			Text:       text,
			DocumentID: docID,
			ChunkIndex: index,
			Category:   "resume",
		},
		Vector: vector,
	}
}

func TestIndexChunksEnsuresCollectionOncePerSize(t *testing.T) {
	var ensureCalls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPut && r.URL.Path == "/collections/resume_chunks":
			atomic.AddInt32(&ensureCalls, 1)
			w.WriteHeader(http.StatusCreated)
		case r.Method == http.MethodPut && r.URL.Path == "/collections/resume_chunks/points":
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := New(server.URL, []string{"resume_chunks"}, nil)
	chunks := []domain.EmbeddedChunk{
		embedded("doc-1", 0, "a", []float32{0.1, 0.2}),
		embedded("doc-1", 1, "b", []float32{0.3, 0.4}),
	}

	if err := client.IndexChunks(context.Background(), "resume_chunks", chunks); err != nil {
		t.Fatalf("first IndexChunks: %v", err)
	}
	if err := client.IndexChunks(context.Background(), "resume_chunks", chunks); err != nil {
		t.Fatalf("second IndexChunks: %v", err)
	}
	if got := atomic.LoadInt32(&ensureCalls); got != 1 {
		t.Fatalf("ensure collection calls = %d, want 1", got)
	}
}

func TestIndexChunksToleratesExistingCollection(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPut && r.URL.Path == "/collections/resume_chunks":
			w.WriteHeader(http.StatusConflict)
		case r.Method == http.MethodPut && r.URL.Path == "/collections/resume_chunks/points":
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := New(server.URL, []string{"resume_chunks"}, nil)
	err := client.IndexChunks(context.Background(), "resume_chunks",
		[]domain.EmbeddedChunk{embedded("doc-1", 0, "a", []float32{0.1})})
	if err != nil {
		t.Fatalf("IndexChunks with existing collection: %v", err)
	}
}

func TestQueryConvertsScoreToDistance(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/collections/resume_chunks/points/search" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(`{"result":[
			{"score":0.92,"payload":{"document_id":"doc-1","chunk_index":3,"category":"resume","section_type":"skills","text":"golang"}}
		]}`))
	}))
	defer server.Close()

	client := New(server.URL, []string{"resume_chunks"}, nil)
	hits, err := client.Query(context.Background(), "resume_chunks", []float32{1}, 10, nil)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(hits) != 1 {
		t.Fatalf("len = %d, want 1", len(hits))
	}
	if math.Abs(hits[0].Distance-0.08) > 1e-9 {
		t.Errorf("Distance = %v, want 1 - 0.92", hits[0].Distance)
	}
	if hits[0].Chunk.DocumentID != "doc-1" || hits[0].Chunk.ChunkIndex != 3 {
		t.Errorf("chunk payload mismatch: %+v", hits[0].Chunk)
	}
	if hits[0].Collection != "resume_chunks" {
		t.Errorf("collection = %q", hits[0].Collection)
	}
}

func TestQuerySendsMetadataFilter(t *testing.T) {
	var captured map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&captured)
		_, _ = w.Write([]byte(`{"result":[]}`))
	}))
	defer server.Close()

	client := New(server.URL, []string{"resume_chunks"}, nil)
	_, err := client.Query(context.Background(), "resume_chunks", []float32{1}, 5,
		map[string]string{"category": "resume"})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	filter, ok := captured["filter"].(map[string]any)
	if !ok {
		t.Fatalf("request carries no filter: %v", captured)
	}
	if _, ok := filter["must"]; !ok {
		t.Errorf("filter has no must clause: %v", filter)
	}
}

func TestDeleteByDocumentMissingCollectionIsNoop(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	client := New(server.URL, []string{"resume_chunks"}, nil)
	if err := client.DeleteByDocument(context.Background(), "resume_chunks", "doc-1"); err != nil {
		t.Errorf("DeleteByDocument on missing collection: %v", err)
	}
}

func TestCollectionStatsCountsPoints(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/collections/resume_chunks":
			_, _ = w.Write([]byte(`{"result":{"points_count":42}}`))
		case "/collections/contract_chunks":
			http.NotFound(w, r)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	client := New(server.URL, []string{"resume_chunks", "contract_chunks"}, nil)
	stats, err := client.CollectionStats(context.Background())
	if err != nil {
		t.Fatalf("CollectionStats: %v", err)
	}
	if stats["resume_chunks"] != 42 {
		t.Errorf("resume_chunks = %d, want 42", stats["resume_chunks"])
	}
	if stats["contract_chunks"] != 0 {
		t.Errorf("contract_chunks = %d, want 0 for missing collection", stats["contract_chunks"])
	}
}

func TestQueryErrorIncludesBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "collection overloaded", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := New(server.URL, []string{"resume_chunks"}, nil)
	_, err := client.Query(context.Background(), "resume_chunks", []float32{1}, 5, nil)
	if err == nil || !strings.Contains(err.Error(), "collection overloaded") {
		t.Errorf("err = %v, want body included", err)
	}
}
