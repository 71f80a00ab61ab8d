package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/velikanov/hybrid-query-engine/internal/core/domain"
)

type Client struct {
	baseURL    string
	genModel   string
	embedModel string
	httpClient *http.Client
}

func New(baseURL, genModel, embedModel string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		genModel:   genModel,
		embedModel: embedModel,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Oracle adapts the generation endpoint to routing judgements and
// statement drafting. Every call is a single attempt: the usecases own
// the fallback, so a failed call must fail fast, not retry.
type Oracle struct {
	client *Client
}

func NewOracle(client *Client) *Oracle {
	return &Oracle{client: client}
}

type classificationWire struct {
	QueryType  string   `json:"query_type"`
	Confidence *float64 `json:"confidence"`
	Entities   []string `json:"entities"`
	Intent     string   `json:"intent"`
	Complexity string   `json:"complexity"`
	Reasoning  string   `json:"reasoning"`
}

func (o *Oracle) JudgeQuery(ctx context.Context, question string, userContext map[string]string) (domain.Classification, error) {
	respText, err := o.client.generateJSON(ctx, buildClassificationPrompt(question, userContext))
	if err != nil {
		return domain.Classification{}, wrapOracleError("judge query", err)
	}

	var wire classificationWire
	if err := json.Unmarshal([]byte(extractJSONObject(respText)), &wire); err != nil {
		return domain.Classification{}, domain.WrapError(domain.ErrOracleUnavailable, "judge query", fmt.Errorf("parse classification json: %w", err))
	}

	cls := domain.Classification{
		Type:       domain.QueryType(strings.ToUpper(strings.TrimSpace(wire.QueryType))),
		Entities:   wire.Entities,
		Intent:     wire.Intent,
		Complexity: domain.Complexity(strings.ToLower(strings.TrimSpace(wire.Complexity))),
		Reasoning:  wire.Reasoning,
	}
	if wire.Confidence != nil {
		cls.Confidence = *wire.Confidence
	} else {
		cls.Confidence = 0.5
	}
	if cls.Entities == nil {
		cls.Entities = []string{}
	}
	return cls, nil
}

type statementWire struct {
	SQL         string   `json:"sql"`
	Confidence  *float64 `json:"confidence"`
	TablesUsed  []string `json:"tables_used"`
	ColumnsUsed []string `json:"columns_used"`
	Reasoning   string   `json:"reasoning"`
}

func (o *Oracle) DraftStatement(ctx context.Context, question string, schema domain.SchemaDescription, userContext map[string]string) (domain.QueryCandidate, error) {
	respText, err := o.client.generateJSON(ctx, buildStatementPrompt(question, schema, userContext))
	if err != nil {
		return domain.QueryCandidate{}, wrapOracleError("draft statement", err)
	}

	var wire statementWire
	if err := json.Unmarshal([]byte(extractJSONObject(respText)), &wire); err != nil {
		return domain.QueryCandidate{}, domain.WrapError(domain.ErrOracleUnavailable, "draft statement", fmt.Errorf("parse statement json: %w", err))
	}

	candidate := domain.QueryCandidate{
		Statement:   strings.TrimSpace(wire.SQL),
		TablesUsed:  wire.TablesUsed,
		ColumnsUsed: wire.ColumnsUsed,
		Reasoning:   wire.Reasoning,
	}
	if wire.Confidence != nil {
		candidate.Confidence = *wire.Confidence
	} else {
		candidate.Confidence = 0.5
	}
	return candidate, nil
}

type Embedder struct {
	client *Client
}

func NewEmbedder(client *Client) *Embedder {
	return &Embedder{client: client}
}

func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	request := map[string]any{
		"model": e.client.embedModel,
		"input": texts,
	}

	var response struct {
		Embeddings [][]float32 `json:"embeddings"`
	}
	if err := e.client.postJSON(ctx, "/api/embed", request, &response, "embed"); err != nil {
		return nil, err
	}
	if len(response.Embeddings) != len(texts) {
		return nil, fmt.Errorf("embed: got %d vectors for %d inputs", len(response.Embeddings), len(texts))
	}
	return response.Embeddings, nil
}

func (e *Embedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 {
		return nil, fmt.Errorf("empty embedding result")
	}
	return vectors[0], nil
}

func (c *Client) generateJSON(ctx context.Context, prompt string) (string, error) {
	reqBody := map[string]any{
		"model":  c.genModel,
		"prompt": prompt,
		"stream": false,
		"format": "json",
	}

	var response struct {
		Response string `json:"response"`
	}
	if err := c.postJSON(ctx, "/api/generate", reqBody, &response, "generate"); err != nil {
		return "", err
	}
	return strings.TrimSpace(response.Response), nil
}

func wrapOracleError(operation string, err error) error {
	return domain.WrapError(domain.ErrOracleUnavailable, operation, err)
}

// extractJSONObject returns the first balanced top-level JSON object in
// raw. Models wrap JSON in prose or fences often enough that a plain
// first-to-last brace slice misreads nested output.
func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	if start < 0 {
		return raw
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(raw); i++ {
		ch := raw[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return raw[start : i+1]
			}
		}
	}
	return raw[start:]
}
