package qdrantdb

import (
	"context"
	"fmt"

	"document-qa/internal/embedding"
	"document-qa/internal/models"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/embeddings"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

const (
	payloadContent  = "content"
	payloadChunkKey = "chunk_key"
)

// chunkNamespace seeds the deterministic point ids derived from chunk keys.
var chunkNamespace = uuid.MustParse("8f2b8a52-4a0e-4c53-9d1c-1f7f6b0e2c11")

// VectorStore keeps the chunks of every document in one Qdrant collection,
// scoped per document through a payload filter.
type VectorStore struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	collection  string
	embedder    embeddings.Embedder
}

// New creates a VectorStore connected to Qdrant at the given gRPC address.
func New(addr, collection string, embedder embeddings.Embedder) (*VectorStore, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("qdrant: dial %s: %w", addr, err)
	}
	return &VectorStore{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		collection:  collection,
		embedder:    embedder,
	}, nil
}

func (v *VectorStore) Close() error {
	return v.conn.Close()
}

// EnsureCollection creates the collection if it doesn't exist.
func (v *VectorStore) EnsureCollection(ctx context.Context, dims int) error {
	list, err := v.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("qdrant: list collections: %w", err)
	}
	for _, c := range list.GetCollections() {
		if c.GetName() == v.collection {
			return nil
		}
	}

	_, err = v.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: v.collection,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     uint64(dims),
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("qdrant: create collection %s: %w", v.collection, err)
	}
	log.Info().Str("collection", v.collection).Int("dims", dims).Msg("Created qdrant collection")
	return nil
}

// IndexChunks embeds the chunks of a document and upserts them, replacing any
// previously indexed points of the document.
func (v *VectorStore) IndexChunks(ctx context.Context, documentID string, chunks []models.Chunk) error {
	if err := v.DeleteDocument(ctx, documentID); err != nil {
		return err
	}

	var indexed []models.Chunk
	var texts []string
	for _, c := range chunks {
		if c.Content == "" {
			continue
		}
		indexed = append(indexed, c)
		texts = append(texts, c.Content)
	}
	if len(indexed) == 0 {
		return nil
	}

	vectors, err := embedding.EmbedTexts(ctx, v.embedder, texts)
	if err != nil {
		return err
	}

	points := make([]*pb.PointStruct, len(indexed))
	for i, c := range indexed {
		points[i] = &pb.PointStruct{
			Id: &pb.PointId{
				PointIdOptions: &pb.PointId_Uuid{Uuid: pointID(c.ID)},
			},
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{
					Vector: &pb.Vector{Data: vectors[i]},
				},
			},
			Payload: toPayload(c),
		}
	}

	wait := true
	if _, err := v.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: v.collection,
		Wait:           &wait,
		Points:         points,
	}); err != nil {
		return fmt.Errorf("qdrant: upsert %d points: %w", len(points), err)
	}
	log.Info().Str("document_id", documentID).Msgf("Upserted %d chunks to qdrant", len(points))
	return nil
}

// Search embeds query and returns the topK closest chunks of the document.
func (v *VectorStore) Search(ctx context.Context, documentID, query string, topK int) ([]models.ScoredChunk, error) {
	if query == "" {
		return nil, fmt.Errorf("query must be provided")
	}
	filter := &pb.Filter{Must: []*pb.Condition{fieldMatch(models.MetaDocumentID, documentID)}}

	exact := true
	count, err := v.points.Count(ctx, &pb.CountPoints{
		CollectionName: v.collection,
		Filter:         filter,
		Exact:          &exact,
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: count: %w", err)
	}
	if count.GetResult().GetCount() == 0 {
		return nil, models.ErrIndexNotBuilt
	}

	vector, err := v.embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	resp, err := v.points.Search(ctx, &pb.SearchPoints{
		CollectionName: v.collection,
		Vector:         vector,
		Limit:          uint64(topK),
		Filter:         filter,
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: search: %w", err)
	}

	out := make([]models.ScoredChunk, 0, len(resp.GetResult()))
	for _, r := range resp.GetResult() {
		out = append(out, models.ScoredChunk{
			Chunk:     fromPayload(r.GetPayload()),
			Score:     float64(r.GetScore()),
			Retrieval: models.RetrievalVector,
		})
	}
	return out, nil
}

// DeleteDocument removes all points of a document.
func (v *VectorStore) DeleteDocument(ctx context.Context, documentID string) error {
	wait := true
	_, err := v.points.Delete(ctx, &pb.DeletePoints{
		CollectionName: v.collection,
		Wait:           &wait,
		Points: &pb.PointsSelector{
			PointsSelectorOneOf: &pb.PointsSelector_Filter{
				Filter: &pb.Filter{
					Must: []*pb.Condition{fieldMatch(models.MetaDocumentID, documentID)},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("qdrant: delete document %s: %w", documentID, err)
	}
	return nil
}

// pointID maps a chunk key to a stable uuid so re-ingestion overwrites points.
func pointID(chunkKey string) string {
	return uuid.NewSHA1(chunkNamespace, []byte(chunkKey)).String()
}

func toPayload(c models.Chunk) map[string]*pb.Value {
	meta := c.Metadata()
	payload := make(map[string]*pb.Value, len(meta)+2)
	for k, val := range meta {
		payload[k] = stringValue(val)
	}
	payload[payloadContent] = stringValue(c.Content)
	payload[payloadChunkKey] = stringValue(c.ID)
	return payload
}

func fromPayload(payload map[string]*pb.Value) models.Chunk {
	meta := make(map[string]string, len(payload))
	var id, content string
	for k, val := range payload {
		s := val.GetStringValue()
		switch k {
		case payloadContent:
			content = s
		case payloadChunkKey:
			id = s
		default:
			meta[k] = s
		}
	}
	return models.ChunkFromMetadata(id, content, meta)
}

func stringValue(s string) *pb.Value {
	return &pb.Value{Kind: &pb.Value_StringValue{StringValue: s}}
}

func fieldMatch(key, value string) *pb.Condition {
	return &pb.Condition{
		ConditionOneOf: &pb.Condition_Field{
			Field: &pb.FieldCondition{
				Key: key,
				Match: &pb.Match{
					MatchValue: &pb.Match_Keyword{Keyword: value},
				},
			},
		},
	}
}
