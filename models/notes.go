package models

// Chunk is one contiguous slice of a note's text, the unit that gets
// embedded and indexed. Index is zero-based and contiguous within a note.
type Chunk struct {
	Index  int    `json:"chunk_index"`
	Text   string `json:"text"`
	Tokens int    `json:"tokens"`
}

// Payload is the schema stored alongside every vector in the index.
type Payload struct {
	ItemID         string         `json:"item_id"`
	Title          *string        `json:"title"`
	ChunkIndex     int            `json:"chunk_index"`
	Text           string         `json:"text"`
	Tokens         int            `json:"tokens"`
	Metadata       map[string]any `json:"metadata"`
	EmbeddingModel string         `json:"embedding_model"`
	ContentHash    string         `json:"content_hash"`
}

// Point is the persisted (id, vector, payload) triple. The ID is generated
// fresh per chunk and is independent of content.
type Point struct {
	ID      string    `json:"id"`
	Vector  []float32 `json:"vector"`
	Payload Payload   `json:"payload"`
}

// Hit is a single similarity-search result: a stored payload plus its score.
type Hit struct {
	Score   float64 `json:"score"`
	Payload Payload `json:"payload"`
}

// ScoredChunk is one retrieved chunk inside an aggregated item.
type ScoredChunk struct {
	Text       string  `json:"text"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float64 `json:"score"`
}

// AggregatedItem groups the hits of one note, built fresh per retrieval
// and discarded once the response is serialized.
type AggregatedItem struct {
	ItemID   string        `json:"item_id"`
	Title    *string       `json:"title"`
	Chunks   []ScoredChunk `json:"chunks"`
	TopScore float64       `json:"top_score"`
}

// Intent values the router dispatches on.
const (
	IntentIngest = "ingest"
	IntentQuery  = "query"
)

// RouteDecision is the parsed output of the intent classifier. Anything the
// classifier returns that does not parse into this shape is coerced to the
// query intent with nil fields.
type RouteDecision struct {
	Intent string  `json:"intent"`
	Title  *string `json:"title"`
	Text   *string `json:"text"`
}
