package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/Tejaswini050302/TDS-Project-1/internal/corpus"
)

// Named vectors and payload fields of the collection.
const (
	DenseVectorName  = "embedding"
	SparseVectorName = "lexical"

	fieldID      = "id"
	fieldSource  = "source"
	fieldChunkID = "chunk_id"
	fieldText    = "text"
	fieldURL     = "url"
	fieldTopicID = "topic_id"
	fieldPostID  = "post_id"
)

// pointNamespace seeds the deterministic point ids.
var pointNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://tds.s-anand.net/chunks"))

// PointID maps a document id "{source}_{chunk_id}" onto the UUID Qdrant
// stores it under. The same id always yields the same UUID, so inserting a
// record twice overwrites it.
func PointID(docID string) string {
	return uuid.NewSHA1(pointNamespace, []byte(docID)).String()
}

// QdrantConfig holds connection parameters for a Qdrant instance.
type QdrantConfig struct {
	// Host is the Qdrant server hostname (default: localhost).
	Host string

	// Port is the Qdrant gRPC port (default: 6334).
	Port int

	// Collection is the Qdrant collection name to use.
	Collection string

	// VectorSize is the dimensionality of the stored embeddings.
	VectorSize uint64

	// APIKey is the optional Qdrant API key for authenticated clusters.
	APIKey string

	// UseTLS enables TLS for the gRPC connection.
	UseTLS bool

	// TypoTolerance configures the lexical channel, see NewLexicon.
	TypoTolerance int
}

// QdrantIndex implements Index and Searcher on one Qdrant collection.
// Every document carries a dense vector and a lexical sparse vector.
type QdrantIndex struct {
	// client is the underlying Qdrant gRPC client.
	client *qdrant.Client

	// cfg holds the resolved configuration.
	cfg *QdrantConfig

	lexicon *Lexicon
	log     *slog.Logger
}

// NewQdrantIndex creates the client. It does not contact the server; the
// first call does.
func NewQdrantIndex(cfg *QdrantConfig, log *slog.Logger) (*QdrantIndex, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}
	if cfg.Port == 0 {
		cfg.Port = 6334
	}
	if cfg.Collection == "" {
		return nil, fmt.Errorf("qdrant: collection name is required")
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("qdrant: failed to create client: %w", err)
	}

	return &QdrantIndex{
		client:  client,
		cfg:     cfg,
		lexicon: NewLexicon(cfg.TypoTolerance),
		log:     log,
	}, nil
}

// Recreate implements Index. It drops the collection if present, creates it
// with both named vectors, and adds the payload indexes.
func (q *QdrantIndex) Recreate(ctx context.Context) error {
	name := q.cfg.Collection

	exists, err := q.client.CollectionExists(ctx, name)
	if err != nil {
		return fmt.Errorf("qdrant: failed to check collection existence: %w", err)
	}
	if exists {
		if err := q.client.DeleteCollection(ctx, name); err != nil && !isNotFound(err) {
			return fmt.Errorf("qdrant: failed to delete collection %q: %w", name, err)
		}
		q.log.Info("qdrant: dropped collection", slog.String("collection", name))
	}

	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: name,
		VectorsConfig: qdrant.NewVectorsConfigMap(map[string]*qdrant.VectorParams{
			DenseVectorName: {
				Size:     q.cfg.VectorSize,
				Distance: qdrant.Distance_Cosine,
			},
		}),
		SparseVectorsConfig: qdrant.NewSparseVectorsConfig(map[string]*qdrant.SparseVectorParams{
			SparseVectorName: {Modifier: qdrant.Modifier_Idf.Enum()},
		}),
	})
	if err != nil {
		return fmt.Errorf("qdrant: failed to create collection %q: %w", name, err)
	}

	indexes := []struct {
		field  string
		typ    qdrant.FieldType
		params *qdrant.PayloadIndexParams
	}{
		{fieldID, qdrant.FieldType_FieldTypeKeyword, nil},
		{fieldSource, qdrant.FieldType_FieldTypeKeyword, nil},
		{fieldChunkID, qdrant.FieldType_FieldTypeInteger, nil},
		{fieldText, qdrant.FieldType_FieldTypeText, qdrant.NewPayloadIndexParamsText(&qdrant.TextIndexParams{
			Tokenizer: qdrant.TokenizerType_Word,
			Lowercase: qdrant.PtrOf(true),
		})},
	}
	for _, idx := range indexes {
		_, err := q.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName:   name,
			Wait:             qdrant.PtrOf(true),
			FieldName:        idx.field,
			FieldType:        idx.typ.Enum(),
			FieldIndexParams: idx.params,
		})
		if err != nil {
			return fmt.Errorf("qdrant: failed to index field %q: %w", idx.field, err)
		}
	}

	q.log.Info("qdrant: created collection",
		slog.String("collection", name),
		slog.Uint64("dims", q.cfg.VectorSize),
	)
	return nil
}

// Insert implements Index.
func (q *QdrantIndex) Insert(ctx context.Context, doc corpus.IndexedDocument) error {
	lex := q.lexicon.Vector(doc.Text)

	vectors := map[string]*qdrant.Vector{
		DenseVectorName: qdrant.NewVectorDense(doc.Embedding),
	}
	if lex.Len() > 0 {
		vectors[SparseVectorName] = qdrant.NewVectorSparse(lex.Indices, lex.Values)
	}

	payload := map[string]any{
		fieldID:      doc.ID,
		fieldSource:  doc.Source,
		fieldChunkID: int64(doc.ChunkID),
		fieldText:    doc.Text,
	}
	if doc.URL != "" {
		payload[fieldURL] = doc.URL
	}
	if doc.TopicID != 0 {
		payload[fieldTopicID] = doc.TopicID
	}
	if doc.PostID != 0 {
		payload[fieldPostID] = doc.PostID
	}

	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.cfg.Collection,
		Wait:           qdrant.PtrOf(true),
		Points: []*qdrant.PointStruct{{
			Id:      qdrant.NewIDUUID(PointID(doc.ID)),
			Payload: qdrant.NewValueMap(payload),
			Vectors: qdrant.NewVectorsMap(vectors),
		}},
	})
	if err != nil {
		return fmt.Errorf("qdrant: upsert %s failed: %w", doc.ID, err)
	}
	return nil
}

// Count implements Index.
func (q *QdrantIndex) Count(ctx context.Context) (uint64, error) {
	n, err := q.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: q.cfg.Collection,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("qdrant: count failed: %w", err)
	}
	return n, nil
}

// SearchLexical implements Searcher using the sparse lexical vector only.
func (q *QdrantIndex) SearchLexical(ctx context.Context, text string, topK int) ([]corpus.Hit, error) {
	lex := q.lexicon.Vector(text)
	if lex.Len() == 0 {
		return nil, nil
	}
	return q.query(ctx, &qdrant.QueryPoints{
		CollectionName: q.cfg.Collection,
		Query:          qdrant.NewQuerySparse(lex.Indices, lex.Values),
		Using:          qdrant.PtrOf(SparseVectorName),
		Limit:          qdrant.PtrOf(uint64(topK)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
}

// SearchHybrid implements Searcher. Both channels are prefetched at twice
// topK and fused with Reciprocal Rank Fusion.
func (q *QdrantIndex) SearchHybrid(ctx context.Context, text string, vector []float32, topK int) ([]corpus.Hit, error) {
	lex := q.lexicon.Vector(text)
	prefetchLimit := qdrant.PtrOf(uint64(2 * topK))

	prefetch := []*qdrant.PrefetchQuery{{
		Query: qdrant.NewQueryDense(vector),
		Using: qdrant.PtrOf(DenseVectorName),
		Limit: prefetchLimit,
	}}
	if lex.Len() > 0 {
		prefetch = append(prefetch, &qdrant.PrefetchQuery{
			Query: qdrant.NewQuerySparse(lex.Indices, lex.Values),
			Using: qdrant.PtrOf(SparseVectorName),
			Limit: prefetchLimit,
		})
	}

	return q.query(ctx, &qdrant.QueryPoints{
		CollectionName: q.cfg.Collection,
		Prefetch:       prefetch,
		Query:          qdrant.NewQueryFusion(qdrant.Fusion_RRF),
		Limit:          qdrant.PtrOf(uint64(topK)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
}

// query runs req and converts the scored points to hits in rank order.
func (q *QdrantIndex) query(ctx context.Context, req *qdrant.QueryPoints) ([]corpus.Hit, error) {
	points, err := q.client.Query(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("qdrant: search failed: %w", err)
	}

	hits := make([]corpus.Hit, 0, len(points))
	for i, p := range points {
		h := corpus.Hit{Score: p.GetScore(), Rank: i}
		if pl := p.GetPayload(); pl != nil {
			h.ID = pl[fieldID].GetStringValue()
			h.Source = pl[fieldSource].GetStringValue()
			h.ChunkID = int32(pl[fieldChunkID].GetIntegerValue())
			h.Text = pl[fieldText].GetStringValue()
			h.URL = pl[fieldURL].GetStringValue()
		}
		hits = append(hits, h)
	}
	return hits, nil
}

// Ping checks that the Qdrant server is reachable.
func (q *QdrantIndex) Ping(ctx context.Context) error {
	if _, err := q.client.HealthCheck(ctx); err != nil {
		return fmt.Errorf("qdrant: health check failed: %w", err)
	}
	return nil
}

// Close closes the underlying Qdrant gRPC connection.
func (q *QdrantIndex) Close() error {
	return q.client.Close()
}

// isNotFound reports whether err carries a gRPC NotFound status.
func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

// IsTimeout reports whether err is a deadline failure, either from the
// context or from a gRPC DeadlineExceeded status.
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded) || status.Code(err) == codes.DeadlineExceeded
}
