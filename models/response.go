package models

// IngestResponse reports a persisted note.
type IngestResponse struct {
	ItemID     string `json:"item_id"`
	ChunkCount int    `json:"chunk_count"`
	Status     string `json:"status"`
}

// SearchHit is one row of the flat GET /v1/search result.
type SearchHit struct {
	Score      float64 `json:"score"`
	ItemID     string  `json:"item_id"`
	ChunkIndex int     `json:"chunk_index"`
	Title      *string `json:"title"`
	Text       string  `json:"text"`
}

// ChatResponse carries the generated answer plus the notes it was built
// from. Answer is null in notes mode.
type ChatResponse struct {
	Answer *string          `json:"answer"`
	Notes  []AggregatedItem `json:"notes"`
	Usage  map[string]any   `json:"usage,omitempty"`
	Model  string           `json:"model,omitempty"`
}

// RouteResponse wraps the outcome of the intent router: Result holds an
// IngestResponse for the ingest action and a ChatResponse for query.
type RouteResponse struct {
	Action string `json:"action"`
	Result any    `json:"result"`
}

// NotePreview is one row of the GET /v1/nodes listing.
type NotePreview struct {
	ItemID     string  `json:"item_id"`
	Title      *string `json:"title"`
	Preview    string  `json:"preview"`
	ChunkCount int     `json:"chunk_count"`
}
