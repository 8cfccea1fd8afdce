// Package qdrant implements the dual-collection vector index pair over the
// qdrant HTTP API. Each category owns an independent collection; nothing ever
// crosses between them.
package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/karisazi/faq-chatbot/internal/core/domain"
)

type Client struct {
	baseURL     string
	collections map[domain.Category]string
	httpClient  *http.Client

	ensureMu sync.Mutex
	ensured  map[string]int
}

func New(baseURL, productCollection, customerCollection string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		collections: map[domain.Category]string{
			domain.CategoryProductSales:      productCollection,
			domain.CategoryCustomerCorporate: customerCollection,
		},
		httpClient: &http.Client{Timeout: 60 * time.Second},
		ensured:    make(map[string]int),
	}
}

func (c *Client) collection(category domain.Category) (string, error) {
	name, ok := c.collections[category]
	if !ok || name == "" {
		return "", fmt.Errorf("%w: %q", domain.ErrUnknownCategory, category)
	}
	return name, nil
}

// pointID derives a stable qdrant point id from the record id, so re-upserting
// the same record replaces the prior vector and payload in place.
func pointID(recordID string) string {
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(recordID)).String()
}

func (c *Client) Upsert(
	ctx context.Context,
	category domain.Category,
	records []domain.Record,
	vectors [][]float32,
) error {
	if len(records) == 0 || len(vectors) == 0 {
		return nil
	}
	if len(records) != len(vectors) {
		return fmt.Errorf("records/vectors mismatch: %d/%d", len(records), len(vectors))
	}

	collection, err := c.collection(category)
	if err != nil {
		return err
	}
	if err := c.ensureCollection(ctx, collection, len(vectors[0])); err != nil {
		return err
	}

	type point struct {
		ID      string         `json:"id"`
		Vector  []float32      `json:"vector"`
		Payload map[string]any `json:"payload"`
	}

	points := make([]point, 0, len(records))
	for i, record := range records {
		points = append(points, point{
			ID:      pointID(record.ID),
			Vector:  vectors[i],
			Payload: recordPayload(record),
		})
	}

	body, err := json.Marshal(map[string]any{"points": points})
	if err != nil {
		return fmt.Errorf("marshal upsert body: %w", err)
	}

	// wait=true makes the whole point (body and metadata together) visible
	// atomically; concurrent readers see old or new, never a mix.
	url := fmt.Sprintf("%s/collections/%s/points?wait=true", c.baseURL, collection)
	resp, err := c.do(ctx, http.MethodPut, url, body)
	if err != nil {
		return fmt.Errorf("qdrant upsert request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant upsert status: %s", resp.Status)
	}
	return nil
}

func (c *Client) Search(
	ctx context.Context,
	category domain.Category,
	queryVector []float32,
	topK int,
	filter domain.SearchFilter,
) ([]domain.Candidate, error) {
	collection, err := c.collection(category)
	if err != nil {
		return nil, err
	}

	candidates, status, err := c.search(ctx, collection, queryVector, topK, filter)
	if err == nil {
		return candidates, nil
	}
	// A collection that was never written to is a valid empty index.
	if status == http.StatusNotFound {
		return nil, nil
	}
	// A filter combination the index rejects degrades to an unfiltered query
	// of the same breadth instead of failing the caller.
	if !filter.Empty() && status >= 400 && status < 500 {
		candidates, _, retryErr := c.search(ctx, collection, queryVector, topK, domain.SearchFilter{})
		if retryErr != nil {
			return nil, fmt.Errorf("unfiltered retry: %w", retryErr)
		}
		return candidates, nil
	}
	return nil, err
}

func (c *Client) search(
	ctx context.Context,
	collection string,
	queryVector []float32,
	topK int,
	filter domain.SearchFilter,
) ([]domain.Candidate, int, error) {
	reqBody := map[string]any{
		"vector":       queryVector,
		"limit":        topK,
		"with_payload": true,
	}
	if !filter.Empty() {
		reqBody["filter"] = metadataFilter(filter)
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, 0, fmt.Errorf("marshal search body: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s/points/search", c.baseURL, collection)
	resp, err := c.do(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, 0, fmt.Errorf("qdrant search request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return nil, resp.StatusCode, fmt.Errorf("qdrant search status: %s", resp.Status)
	}

	var searchResp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload map[string]any `json:"payload"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&searchResp); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("decode search response: %w", err)
	}

	out := make([]domain.Candidate, 0, len(searchResp.Result))
	for _, r := range searchResp.Result {
		// Cosine collections report similarity (higher is closer); the
		// pipeline ranks on distance, smaller is closer.
		distance := 1 - r.Score
		out = append(out, domain.Candidate{
			Record:          recordFromPayload(r.Payload),
			Distance:        distance,
			BoostedDistance: distance,
		})
	}
	return out, resp.StatusCode, nil
}

// Scroll lists records for administrative inspection, optionally narrowed by
// a metadata-equality filter. No ranking involved.
func (c *Client) Scroll(
	ctx context.Context,
	category domain.Category,
	limit int,
	filter domain.SearchFilter,
) ([]domain.Record, error) {
	collection, err := c.collection(category)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}

	reqBody := map[string]any{
		"limit":        limit,
		"with_payload": true,
	}
	if !filter.Empty() {
		reqBody["filter"] = metadataFilter(filter)
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal scroll body: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s/points/scroll", c.baseURL, collection)
	resp, err := c.do(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, fmt.Errorf("qdrant scroll request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("qdrant scroll status: %s", resp.Status)
	}

	var scrollResp struct {
		Result struct {
			Points []struct {
				Payload map[string]any `json:"payload"`
			} `json:"points"`
		} `json:"result"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&scrollResp); err != nil {
		return nil, fmt.Errorf("decode scroll response: %w", err)
	}

	out := make([]domain.Record, 0, len(scrollResp.Result.Points))
	for _, p := range scrollResp.Result.Points {
		out = append(out, recordFromPayload(p.Payload))
	}
	return out, nil
}

func (c *Client) DeleteByID(ctx context.Context, category domain.Category, recordID string) error {
	collection, err := c.collection(category)
	if err != nil {
		return err
	}

	body, err := json.Marshal(map[string]any{
		"points": []string{pointID(recordID)},
	})
	if err != nil {
		return fmt.Errorf("marshal delete body: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s/points/delete?wait=true", c.baseURL, collection)
	resp, err := c.do(ctx, http.MethodPost, url, body)
	if err != nil {
		return fmt.Errorf("qdrant delete request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return domain.WrapError(domain.ErrRecordNotFound, "qdrant delete", fmt.Errorf("record %s", recordID))
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant delete status: %s", resp.Status)
	}
	return nil
}

func (c *Client) ensureCollection(ctx context.Context, collection string, vectorSize int) error {
	c.ensureMu.Lock()
	if size, ok := c.ensured[collection]; ok && size == vectorSize {
		c.ensureMu.Unlock()
		return nil
	}
	c.ensureMu.Unlock()

	body, err := json.Marshal(map[string]any{
		"vectors": map[string]any{
			"size":     vectorSize,
			"distance": "Cosine",
		},
	})
	if err != nil {
		return fmt.Errorf("marshal create collection body: %w", err)
	}

	url := fmt.Sprintf("%s/collections/%s", c.baseURL, collection)
	resp, err := c.do(ctx, http.MethodPut, url, body)
	if err != nil {
		return fmt.Errorf("qdrant ensure collection request: %w", err)
	}
	defer resp.Body.Close()

	// 200/201 for create, 409 if it already exists.
	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusConflict {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		if trimmed := strings.TrimSpace(string(msg)); trimmed != "" {
			return fmt.Errorf("qdrant ensure collection status: %s: %s", resp.Status, trimmed)
		}
		return fmt.Errorf("qdrant ensure collection status: %s", resp.Status)
	}

	c.ensureMu.Lock()
	c.ensured[collection] = vectorSize
	c.ensureMu.Unlock()
	return nil
}

func (c *Client) do(ctx context.Context, method, url string, body []byte) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.httpClient.Do(req)
}

func metadataFilter(filter domain.SearchFilter) map[string]any {
	must := make([]map[string]any, 0, len(filter.Metadata))
	for key, value := range filter.Metadata {
		must = append(must, map[string]any{
			"key":   key,
			"match": map[string]any{"value": value},
		})
	}
	return map[string]any{"must": must}
}

func recordPayload(record domain.Record) map[string]any {
	return map[string]any{
		"record_id":        record.ID,
		"body":             record.Body,
		"question_hint":    record.QuestionHint,
		"category":         string(record.Category),
		"category_topic":   record.Metadata.CategoryTopic,
		"product_name":     record.Metadata.ProductName,
		"insurance_type":   record.Metadata.InsuranceType,
		"topic_focus":      record.Metadata.TopicFocus,
		"coverage_keyword": record.Metadata.CoverageKeyword,
		"action_type":      record.Metadata.ActionType,
		"entity":           record.Metadata.Entity,
		"source":           record.Metadata.Source,
	}
}

func recordFromPayload(payload map[string]any) domain.Record {
	return domain.Record{
		ID:           payloadString(payload, "record_id"),
		Body:         payloadString(payload, "body"),
		QuestionHint: payloadString(payload, "question_hint"),
		Category:     domain.Category(payloadString(payload, "category")),
		Metadata: domain.RecordMetadata{
			CategoryTopic:   payloadString(payload, "category_topic"),
			ProductName:     payloadString(payload, "product_name"),
			InsuranceType:   payloadString(payload, "insurance_type"),
			TopicFocus:      payloadString(payload, "topic_focus"),
			CoverageKeyword: payloadString(payload, "coverage_keyword"),
			ActionType:      payloadString(payload, "action_type"),
			Entity:          payloadString(payload, "entity"),
			Source:          payloadString(payload, "source"),
		},
	}
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
