package vectorindex

import (
	"context"
	"encoding/json"
	"fmt"

	chromago "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/amikos-tech/chroma-go/pkg/embeddings"
	"github.com/sirupsen/logrus"

	"secondbrain/models"
)

// Chroma backs the index gateway with a ChromaDB collection. Chroma has no
// server-side score threshold or scroll cursor, so the threshold is applied
// on the returned distances and Scroll is served from a full Get.
type Chroma struct {
	client     chromago.Client
	collection chromago.Collection
	name       string
}

// ChromaConfig contains connection details for a Chroma vector store.
type ChromaConfig struct {
	URL        string
	Collection string
}

// NewChroma connects to ChromaDB using the v2 HTTP API.
func NewChroma(cfg ChromaConfig) (*Chroma, error) {
	var opts []chromago.ClientOption
	if cfg.URL != "" {
		opts = append(opts, chromago.WithBaseURL(cfg.URL))
	}
	client, err := chromago.NewHTTPClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create chroma client: %w", err)
	}
	return &Chroma{client: client, name: cfg.Collection}, nil
}

// Close releases client resources.
func (c *Chroma) Close() error {
	return c.client.Close()
}

func (c *Chroma) EnsureCollection(ctx context.Context, dimension int) error {
	collection, err := c.client.GetOrCreateCollection(
		ctx,
		c.name,
		chromago.WithCollectionMetadataCreate(
			chromago.NewMetadata(
				chromago.NewStringAttribute("created_by", "secondbrain"),
				chromago.NewIntAttribute("dimension", int64(dimension)),
			),
		),
	)
	if err != nil {
		return err
	}
	c.collection = collection
	logrus.Infof("CHROMA: collection ready: %s", c.name)
	return nil
}

func (c *Chroma) Upsert(ctx context.Context, points []models.Point) error {
	for _, p := range points {
		payload, err := json.Marshal(p.Payload)
		if err != nil {
			return err
		}
		source, _ := p.Payload.Metadata["source_file"].(string)
		meta := chromago.NewDocumentMetadata(
			chromago.NewStringAttribute("payload", string(payload)),
			chromago.NewStringAttribute("item_id", p.Payload.ItemID),
			chromago.NewStringAttribute("source_file", source),
			chromago.NewIntAttribute("chunk_index", int64(p.Payload.ChunkIndex)),
		)
		err = c.collection.Add(ctx,
			chromago.WithIDs(chromago.DocumentID(p.ID)),
			chromago.WithTexts(p.Payload.Text),
			chromago.WithEmbeddings(embeddings.NewEmbeddingFromFloat32(p.Vector)),
			chromago.WithMetadatas(meta),
		)
		if err != nil {
			return fmt.Errorf("failed to add point %s to chromadb: %w", p.ID, err)
		}
	}
	return nil
}

func (c *Chroma) Search(ctx context.Context, vector []float32, limit int, scoreThreshold float64) ([]models.Hit, error) {
	results, err := c.collection.Query(ctx,
		chromago.WithQueryEmbeddings(embeddings.NewEmbeddingFromFloat32(vector)),
		chromago.WithNResults(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query chromadb: %w", err)
	}

	metadataGroups := results.GetMetadatasGroups()
	distanceGroups := results.GetDistancesGroups()
	if len(metadataGroups) == 0 {
		return nil, nil
	}

	var hits []models.Hit
	for i, meta := range metadataGroups[0] {
		score := 0.0
		if len(distanceGroups) > 0 && i < len(distanceGroups[0]) {
			// Cosine distance back to similarity.
			score = 1 - float64(distanceGroups[0][i])
		}
		if score < scoreThreshold {
			continue
		}
		payload, ok := decodePayload(meta)
		if !ok {
			continue
		}
		hits = append(hits, models.Hit{Score: score, Payload: payload})
	}
	return hits, nil
}

func (c *Chroma) Scroll(ctx context.Context, limit int) ([]models.Point, error) {
	results, err := c.collection.Get(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get documents from chromadb: %w", err)
	}
	ids := results.GetIDs()
	metadatas := results.GetMetadatas()

	var points []models.Point
	for i := range ids {
		if len(points) >= limit {
			break
		}
		if i >= len(metadatas) || metadatas[i] == nil {
			continue
		}
		payload, ok := decodePayload(metadatas[i])
		if !ok {
			continue
		}
		points = append(points, models.Point{ID: string(ids[i]), Payload: payload})
	}
	return points, nil
}

func (c *Chroma) Count(ctx context.Context) (int, error) {
	count, err := c.collection.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to count items in collection: %w", err)
	}
	return int(count), nil
}

func (c *Chroma) Collections(ctx context.Context) ([]string, error) {
	collections, err := c.client.ListCollections(ctx)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(collections))
	for _, col := range collections {
		names = append(names, col.Name())
	}
	return names, nil
}

func (c *Chroma) DeleteBySource(ctx context.Context, source string) error {
	where := chromago.EqString("source_file", source)
	return c.collection.Delete(ctx, chromago.WithWhereDelete(where))
}

// decodePayload recovers the stored payload from a document's metadata. The
// DocumentMetadata struct has no map accessor, so it goes through a JSON
// round trip first.
func decodePayload(meta chromago.DocumentMetadata) (models.Payload, bool) {
	raw, err := json.Marshal(meta)
	if err != nil {
		return models.Payload{}, false
	}
	var metaMap map[string]any
	if err := json.Unmarshal(raw, &metaMap); err != nil {
		return models.Payload{}, false
	}
	encoded, ok := metaMap["payload"].(string)
	if !ok {
		return models.Payload{}, false
	}
	var payload models.Payload
	if err := json.Unmarshal([]byte(encoded), &payload); err != nil {
		return models.Payload{}, false
	}
	return payload, true
}
