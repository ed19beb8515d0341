package models

// IngestRequest is the body of POST /v1/nodes.
type IngestRequest struct {
	Text     string         `json:"text"`
	Title    *string        `json:"title,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ChatRequest is the body of POST /v1/chat. Mode "notes" skips answer
// generation and returns the retrieved notes only.
type ChatRequest struct {
	Query string `json:"query"`
	K     int    `json:"k,omitempty"`
	Mode  string `json:"mode,omitempty"`
}

// RouteRequest is the body of POST /v1/route.
type RouteRequest struct {
	Text string `json:"text"`
	K    int    `json:"k,omitempty"`
}
