package vectorindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"secondbrain/models"
)

// Qdrant is a minimal REST client to a Qdrant collection. It assumes cosine
// distance and never creates a collection that already exists.
type Qdrant struct {
	url        string
	apiKey     string
	collection string
	client     *http.Client
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL        string
	APIKey     string
	Collection string
	Timeout    time.Duration
}

// NewQdrant creates a Qdrant-backed index gateway.
func NewQdrant(cfg QdrantConfig) *Qdrant {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	return &Qdrant{
		url:        cfg.URL,
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		client:     &http.Client{Timeout: timeout},
	}
}

func (q *Qdrant) EnsureCollection(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return fmt.Errorf("invalid dimension %d", dimension)
	}
	// Existence probe first so an already-provisioned collection is left
	// untouched regardless of its schema.
	err := q.getJSON(ctx, fmt.Sprintf("%s/collections/%s", q.url, q.collection), nil)
	if err == nil {
		logrus.Infof("QDRANT: collection exists: %s", q.collection)
		return nil
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	if err := q.putJSON(ctx, fmt.Sprintf("%s/collections/%s", q.url, q.collection), body); err != nil {
		return err
	}
	logrus.Infof("QDRANT: collection created: %s size %d", q.collection, dimension)
	return nil
}

func (q *Qdrant) Upsert(ctx context.Context, points []models.Point) error {
	if len(points) == 0 {
		return nil
	}
	body := map[string]any{"points": points}
	return q.putJSON(ctx, fmt.Sprintf("%s/collections/%s/points?wait=true", q.url, q.collection), body)
}

func (q *Qdrant) Search(ctx context.Context, vector []float32, limit int, scoreThreshold float64) ([]models.Hit, error) {
	req := map[string]any{
		"vector":          vector,
		"limit":           limit,
		"score_threshold": scoreThreshold,
		"with_payload":    true,
	}
	var resp struct {
		Result []struct {
			Score   float64        `json:"score"`
			Payload models.Payload `json:"payload"`
		} `json:"result"`
	}
	if err := q.postJSON(ctx, fmt.Sprintf("%s/collections/%s/points/search", q.url, q.collection), req, &resp); err != nil {
		return nil, err
	}
	hits := make([]models.Hit, 0, len(resp.Result))
	for _, r := range resp.Result {
		hits = append(hits, models.Hit{Score: r.Score, Payload: r.Payload})
	}
	return hits, nil
}

func (q *Qdrant) Scroll(ctx context.Context, limit int) ([]models.Point, error) {
	req := map[string]any{
		"limit":        limit,
		"with_payload": true,
	}
	var resp struct {
		Result struct {
			Points []struct {
				ID      any            `json:"id"`
				Payload models.Payload `json:"payload"`
			} `json:"points"`
		} `json:"result"`
	}
	if err := q.postJSON(ctx, fmt.Sprintf("%s/collections/%s/points/scroll", q.url, q.collection), req, &resp); err != nil {
		return nil, err
	}
	points := make([]models.Point, 0, len(resp.Result.Points))
	for _, p := range resp.Result.Points {
		points = append(points, models.Point{ID: fmt.Sprint(p.ID), Payload: p.Payload})
	}
	return points, nil
}

func (q *Qdrant) Count(ctx context.Context) (int, error) {
	var resp struct {
		Result struct {
			Count int `json:"count"`
		} `json:"result"`
	}
	err := q.postJSON(ctx, fmt.Sprintf("%s/collections/%s/points/count", q.url, q.collection), map[string]any{"exact": true}, &resp)
	if err != nil {
		return 0, err
	}
	return resp.Result.Count, nil
}

func (q *Qdrant) Collections(ctx context.Context) ([]string, error) {
	var resp struct {
		Result struct {
			Collections []struct {
				Name string `json:"name"`
			} `json:"collections"`
		} `json:"result"`
	}
	if err := q.getJSON(ctx, fmt.Sprintf("%s/collections", q.url), &resp); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(resp.Result.Collections))
	for _, c := range resp.Result.Collections {
		names = append(names, c.Name)
	}
	return names, nil
}

func (q *Qdrant) DeleteBySource(ctx context.Context, source string) error {
	req := map[string]any{
		"filter": map[string]any{
			"must": []map[string]any{
				{"key": "metadata.source_file", "match": map[string]any{"value": source}},
			},
		},
	}
	return q.postJSON(ctx, fmt.Sprintf("%s/collections/%s/points/delete?wait=true", q.url, q.collection), req, nil)
}

func (q *Qdrant) do(ctx context.Context, method, url string, body any, out any) error {
	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if q.apiKey != "" {
		req.Header.Set("api-key", q.apiKey)
	}
	resp, err := q.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant %s %s failed: %s", method, url, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func (q *Qdrant) getJSON(ctx context.Context, url string, out any) error {
	return q.do(ctx, http.MethodGet, url, nil, out)
}

func (q *Qdrant) putJSON(ctx context.Context, url string, body any) error {
	return q.do(ctx, http.MethodPut, url, body, nil)
}

func (q *Qdrant) postJSON(ctx context.Context, url string, body any, out any) error {
	return q.do(ctx, http.MethodPost, url, body, out)
}
