package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/velikanov/hybrid-query-engine/internal/core/domain"
	"github.com/velikanov/hybrid-query-engine/internal/infrastructure/resilience"
)

// Client talks to Qdrant over its HTTP API and serves a fixed set of
// named collections. Index writes go through the resilience executor;
// query-time reads are single-attempt so a degraded store slows one
// collection, not the whole request.
type Client struct {
	baseURL     string
	collections []string
	httpClient  *http.Client
	executor    *resilience.Executor

	ensureMu sync.Mutex
	ensured  map[string]int // collection -> vector size
}

func New(baseURL string, collections []string, executor *resilience.Executor) *Client {
	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		collections: collections,
		httpClient:  &http.Client{Timeout: 60 * time.Second},
		executor:    executor,
		ensured:     make(map[string]int),
	}
}

func (c *Client) Collections() []string {
	out := make([]string, len(c.collections))
	copy(out, c.collections)
	return out
}

func (c *Client) IndexChunks(ctx context.Context, collection string, chunks []domain.EmbeddedChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	if len(chunks[0].Vector) == 0 {
		return fmt.Errorf("chunk vectors are empty")
	}

	if err := c.ensureCollection(ctx, collection, len(chunks[0].Vector)); err != nil {
		return err
	}

	type point struct {
		ID      string         `json:"id"`
		Vector  []float32      `json:"vector"`
		Payload map[string]any `json:"payload"`
	}

	points := make([]point, 0, len(chunks))
	for _, chunk := range chunks {
		points = append(points, point{
			ID:     uuid.NewString(),
			Vector: chunk.Vector,
			Payload: map[string]any{
				"document_id":  chunk.DocumentID,
				"chunk_index":  chunk.ChunkIndex,
				"category":     chunk.Category,
				"section_type": chunk.SectionType,
				"chunk_type":   chunk.ChunkType,
				"text":         chunk.Text,
				"created_at":   chunk.CreatedAt.UTC().Format(time.RFC3339),
			},
		})
	}

	path := fmt.Sprintf("/collections/%s/points?wait=true", collection)
	upsert := func(ctx context.Context) error {
		return c.doJSON(ctx, http.MethodPut, path, map[string]any{"points": points}, nil, "upsert")
	}
	if c.executor == nil {
		return upsert(ctx)
	}
	return c.executor.Execute(ctx, "qdrant_upsert_"+collection, upsert, classifyQdrantError)
}

func (c *Client) Query(ctx context.Context, collection string, vector []float32, limit int, metadata map[string]string) ([]domain.VectorHit, error) {
	reqBody := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
	}
	if filter := buildFilter(metadata); filter != nil {
		reqBody["filter"] = filter
	}

	var searchResp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	path := fmt.Sprintf("/collections/%s/points/search", collection)
	if err := c.doJSON(ctx, http.MethodPost, path, reqBody, &searchResp, "search"); err != nil {
		return nil, err
	}

	hits := make([]domain.VectorHit, 0, len(searchResp.Result))
	for _, r := range searchResp.Result {
		hits = append(hits, domain.VectorHit{
			Chunk:      chunkFromPayload(r.Payload),
			Collection: collection,
			// cosine score from the store; callers work in distance terms
			Distance: 1 - r.Score,
		})
	}
	return hits, nil
}

func (c *Client) Get(ctx context.Context, collection string, metadata map[string]string) ([]domain.Chunk, error) {
	reqBody := map[string]any{
		"limit":        1000,
		"with_payload": true,
	}
	if filter := buildFilter(metadata); filter != nil {
		reqBody["filter"] = filter
	}

	var scrollResp struct {
		Result struct {
			Points []struct {
				Payload map[string]any `json:"payload"`
			} `json:"points"`
		} `json:"result"`
	}
	path := fmt.Sprintf("/collections/%s/points/scroll", collection)
	if err := c.doJSON(ctx, http.MethodPost, path, reqBody, &scrollResp, "scroll"); err != nil {
		return nil, err
	}

	chunks := make([]domain.Chunk, 0, len(scrollResp.Result.Points))
	for _, p := range scrollResp.Result.Points {
		chunks = append(chunks, chunkFromPayload(p.Payload))
	}
	return chunks, nil
}

func (c *Client) DeleteByDocument(ctx context.Context, collection, documentID string) error {
	reqBody := map[string]any{
		"filter": buildFilter(map[string]string{"document_id": documentID}),
	}
	path := fmt.Sprintf("/collections/%s/points/delete?wait=true", collection)
	err := c.doJSON(ctx, http.MethodPost, path, reqBody, nil, "delete")
	// deleting from a collection that was never created is a no-op
	var statusErr *httpStatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
		return nil
	}
	return err
}

// CollectionStats reports the stored point count per served collection.
// A collection that does not exist yet counts as zero.
func (c *Client) CollectionStats(ctx context.Context) (map[string]int, error) {
	stats := make(map[string]int, len(c.collections))
	for _, collection := range c.collections {
		var infoResp struct {
			Result struct {
				PointsCount int `json:"points_count"`
			} `json:"result"`
		}
		err := c.doJSON(ctx, http.MethodGet, "/collections/"+collection, nil, &infoResp, "collection info")
		var statusErr *httpStatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
			stats[collection] = 0
			continue
		}
		if err != nil {
			return nil, err
		}
		stats[collection] = infoResp.Result.PointsCount
	}
	return stats, nil
}

func (c *Client) ensureCollection(ctx context.Context, collection string, vectorSize int) error {
	c.ensureMu.Lock()
	if size, ok := c.ensured[collection]; ok && size == vectorSize {
		c.ensureMu.Unlock()
		return nil
	}
	c.ensureMu.Unlock()

	reqBody := map[string]any{
		"vectors": map[string]any{
			"size":     vectorSize,
			"distance": "Cosine",
		},
	}
	err := c.doJSON(ctx, http.MethodPut, "/collections/"+collection, reqBody, nil, "ensure collection")
	// 409 means the collection already exists
	var statusErr *httpStatusError
	if err != nil && !(errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusConflict) {
		return err
	}

	c.ensureMu.Lock()
	c.ensured[collection] = vectorSize
	c.ensureMu.Unlock()
	return nil
}

type httpStatusError struct {
	Operation  string
	StatusCode int
	Status     string
	Body       string
}

func (e *httpStatusError) Error() string {
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Sprintf("qdrant %s status: %s", e.Operation, e.Status)
	}
	return fmt.Sprintf("qdrant %s status: %s: %s", e.Operation, e.Status, strings.TrimSpace(e.Body))
}

func (c *Client) doJSON(ctx context.Context, method, path string, payload any, out any, operation string) error {
	var reqBody io.Reader
	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal %s body: %w", operation, err)
		}
		reqBody = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create %s request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("qdrant %s request: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return &httpStatusError{
			Operation:  operation,
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Body:       string(raw),
		}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", operation, err)
	}
	return nil
}

func buildFilter(metadata map[string]string) map[string]any {
	if len(metadata) == 0 {
		return nil
	}
	must := make([]map[string]any, 0, len(metadata))
	for key, value := range metadata {
		must = append(must, map[string]any{
			"key":   key,
			"match": map[string]any{"value": value},
		})
	}
	return map[string]any{"must": must}
}

func chunkFromPayload(payload map[string]any) domain.Chunk {
	chunk := domain.Chunk{
		Text:        payloadString(payload, "text"),
		DocumentID:  payloadString(payload, "document_id"),
		Category:    payloadString(payload, "category"),
		SectionType: payloadString(payload, "section_type"),
		ChunkType:   payloadString(payload, "chunk_type"),
	}
	if v, ok := payload["chunk_index"].(float64); ok {
		chunk.ChunkIndex = int(v)
	}
	if raw := payloadString(payload, "created_at"); raw != "" {
		if ts, err := time.Parse(time.RFC3339, raw); err == nil {
			chunk.CreatedAt = ts
		}
	}
	return chunk
}

func payloadString(payload map[string]any, key string) string {
	v, ok := payload[key]
	if !ok || v == nil {
		return ""
	}
	s, ok := v.(string)
	if ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}

func classifyQdrantError(err error) resilience.ErrorClassification {
	if err == nil {
		return resilience.ErrorClassification{}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
	}
	if resilience.IsCircuitOpen(err) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}

	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		switch statusErr.StatusCode {
		case http.StatusRequestTimeout, http.StatusTooManyRequests,
			http.StatusInternalServerError, http.StatusBadGateway,
			http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
		default:
			return resilience.ErrorClassification{Retryable: false, RecordFailure: false}
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return resilience.ErrorClassification{Retryable: true, RecordFailure: true}
	}
	return resilience.ErrorClassification{Retryable: false, RecordFailure: true}
}
