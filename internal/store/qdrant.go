package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/jaehoon-lim/mnemos/internal/models"
)

const (
	qdrantDialTimeout  = 10 * time.Second
	qdrantReadTimeout  = 10 * time.Second
	qdrantWriteTimeout = 30 * time.Second
)

func withTimeout(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(parent, d)
}

// QdrantStore implements Store using Qdrant's gRPC API. Each memory
// category lives in its own collection so the two kinds can be searched
// and weighted independently.
type QdrantStore struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	prefix      string
	dimension   uint64
	logger      *slog.Logger
}

// NewQdrantStore connects to Qdrant and verifies the connection with a
// lightweight RPC. Collection names are derived from prefix, e.g.
// "mnemos_episodic" and "mnemos_semantic".
func NewQdrantStore(host string, port int, prefix string, dimension uint64, useTLS bool, logger *slog.Logger) (*QdrantStore, error) {
	addr := fmt.Sprintf("%s:%d", host, port)

	opts := []grpc.DialOption{}
	if !useTLS {
		logger.Warn("Qdrant connection using insecure credentials (no TLS)")
		opts = append(opts, grpc.WithTransportCredentials(insecure.NewCredentials()))
	}

	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, fmt.Errorf("connecting to Qdrant at %s: %w (%w)", addr, err, ErrUnavailable)
	}

	dialCtx, dialCancel := context.WithTimeout(context.Background(), qdrantDialTimeout)
	defer dialCancel()
	if _, err := pb.NewCollectionsClient(conn).List(dialCtx, &pb.ListCollectionsRequest{}); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("verifying Qdrant connection at %s: %w (%w)", addr, err, ErrUnavailable)
	}

	logger.Info("connected to Qdrant", "addr", addr, "prefix", prefix)

	return &QdrantStore{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		prefix:      prefix,
		dimension:   dimension,
		logger:      logger,
	}, nil
}

// CollectionName returns the Qdrant collection holding one category.
func (q *QdrantStore) CollectionName(category models.MemoryCategory) string {
	return q.prefix + "_" + string(category)
}

func (q *QdrantStore) EnsureCollections(ctx context.Context) error {
	rctx, rcancel := withTimeout(ctx, qdrantReadTimeout)
	defer rcancel()
	resp, err := q.collections.List(rctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("listing collections: %w (%w)", err, ErrUnavailable)
	}

	existing := make(map[string]bool, len(resp.GetCollections()))
	for _, c := range resp.GetCollections() {
		existing[c.GetName()] = true
	}

	for _, category := range models.ValidCategories {
		name := q.CollectionName(category)
		if existing[name] {
			q.logger.Info("collection already exists", "name", name)
			continue
		}
		if err := q.createCollection(ctx, name); err != nil {
			return err
		}
	}

	return nil
}

func (q *QdrantStore) createCollection(ctx context.Context, name string) error {
	wctx, wcancel := withTimeout(ctx, qdrantWriteTimeout)
	defer wcancel()
	_, err := q.collections.Create(wctx, &pb.CreateCollection{
		CollectionName: name,
		VectorsConfig: &pb.VectorsConfig{
			Config: &pb.VectorsConfig_Params{
				Params: &pb.VectorParams{
					Size:     q.dimension,
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("creating collection %s: %w", name, err)
	}

	q.logger.Info("created collection", "name", name, "dimension", q.dimension)

	// Payload indexes for the filterable fields.
	indexFields := []string{"user_id", "source", "speaker", "fact_type"}
	for _, field := range indexFields {
		ictx, icancel := withTimeout(ctx, qdrantWriteTimeout)
		_, err := q.points.CreateFieldIndex(ictx, &pb.CreateFieldIndexCollection{
			CollectionName: name,
			FieldName:      field,
			FieldType:      pb.FieldType_FieldTypeKeyword.Enum(),
		})
		icancel()
		if err != nil {
			q.logger.Warn("creating field index", "collection", name, "field", field, "error", err)
		}
	}

	return nil
}

func (q *QdrantStore) Insert(ctx context.Context, record models.MemoryRecord, vector []float32) (string, error) {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}

	ctx, cancel := withTimeout(ctx, qdrantWriteTimeout)
	defer cancel()
	_, err := q.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: q.CollectionName(record.Category),
		Points: []*pb.PointStruct{
			{
				Id: &pb.PointId{
					PointIdOptions: &pb.PointId_Uuid{Uuid: record.ID},
				},
				Vectors: &pb.Vectors{
					VectorsOptions: &pb.Vectors_Vector{
						Vector: &pb.Vector{Data: vector},
					},
				},
				Payload: recordToPayload(record),
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("upserting point %s: %w", record.ID, err)
	}

	q.logger.Debug("inserted memory", "id", record.ID, "category", record.Category, "user_id", record.UserID)
	return record.ID, nil
}

func (q *QdrantStore) Search(ctx context.Context, vector []float32, userID string, category models.MemoryCategory, limit uint64, extra *SearchFilters) ([]models.SearchHit, error) {
	ctx, cancel := withTimeout(ctx, qdrantReadTimeout)
	defer cancel()
	resp, err := q.points.Search(ctx, &pb.SearchPoints{
		CollectionName: q.CollectionName(category),
		Vector:         vector,
		Limit:          limit,
		Filter:         buildFilter(userID, extra),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("searching %s: %w (%w)", q.CollectionName(category), err, ErrUnavailable)
	}

	hits := make([]models.SearchHit, 0, len(resp.GetResult()))
	for _, point := range resp.GetResult() {
		rec, err := payloadToRecord(point.GetId().GetUuid(), category, point.GetPayload())
		if err != nil {
			q.logger.Warn("parsing search result", "error", err)
			continue
		}
		hits = append(hits, models.SearchHit{
			Record:     *rec,
			Score:      float64(point.GetScore()),
			Collection: category,
		})
	}

	return hits, nil
}

func (q *QdrantStore) Count(ctx context.Context, userID string, category models.MemoryCategory) (int64, error) {
	ctx, cancel := withTimeout(ctx, qdrantReadTimeout)
	defer cancel()
	resp, err := q.points.Count(ctx, &pb.CountPoints{
		CollectionName: q.CollectionName(category),
		Filter:         buildFilter(userID, nil),
		Exact:          boolPtr(true),
	})
	if err != nil {
		return 0, fmt.Errorf("counting %s memories for %s: %w", category, userID, err)
	}
	return int64(resp.GetResult().GetCount()), nil
}

func (q *QdrantStore) DeleteUser(ctx context.Context, userID string, category models.MemoryCategory) error {
	ctx, cancel := withTimeout(ctx, qdrantWriteTimeout)
	defer cancel()
	_, err := q.points.Delete(ctx, &pb.DeletePoints{
		CollectionName: q.CollectionName(category),
		Points: &pb.PointsSelector{
			PointsSelectorOneOf: &pb.PointsSelector_Filter{
				Filter: buildFilter(userID, nil),
			},
		},
	})
	if err != nil {
		return fmt.Errorf("deleting %s memories for %s: %w", category, userID, err)
	}

	q.logger.Debug("deleted user memories", "user_id", userID, "category", category)
	return nil
}

func (q *QdrantStore) Stats(ctx context.Context, category models.MemoryCategory) (*models.CollectionStats, error) {
	ctx, cancel := withTimeout(ctx, qdrantReadTimeout)
	defer cancel()
	info, err := q.collections.Get(ctx, &pb.GetCollectionInfoRequest{
		CollectionName: q.CollectionName(category),
	})
	if err != nil {
		return nil, fmt.Errorf("getting collection info for %s: %w", q.CollectionName(category), err)
	}

	return &models.CollectionStats{
		Category:       category,
		PointCount:     info.GetResult().GetPointsCount(),
		VectorDim:      q.dimension,
		DistanceMetric: "cosine",
	}, nil
}

func (q *QdrantStore) Reset(ctx context.Context, category models.MemoryCategory) error {
	name := q.CollectionName(category)

	wctx, wcancel := withTimeout(ctx, qdrantWriteTimeout)
	_, err := q.collections.Delete(wctx, &pb.DeleteCollection{CollectionName: name})
	wcancel()
	if err != nil {
		return fmt.Errorf("dropping collection %s: %w", name, err)
	}

	if err := q.createCollection(ctx, name); err != nil {
		return err
	}

	q.logger.Info("reset collection", "name", name)
	return nil
}

func (q *QdrantStore) Close() error {
	if q.conn != nil {
		return q.conn.Close()
	}
	return nil
}

// --- Helper functions ---

func recordToPayload(r models.MemoryRecord) map[string]*pb.Value {
	payload := map[string]*pb.Value{
		"text":       {Kind: &pb.Value_StringValue{StringValue: r.Text}},
		"user_id":    {Kind: &pb.Value_StringValue{StringValue: r.UserID}},
		"importance": {Kind: &pb.Value_DoubleValue{DoubleValue: r.Importance}},
		"source":     {Kind: &pb.Value_StringValue{StringValue: r.Source}},
	}

	if r.HasTimestamp() {
		payload["timestamp"] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: r.Timestamp.Format(time.RFC3339)}}
	}

	// Category-specific attributes are stored as a JSON blob; Qdrant only
	// needs the flat keyword fields for filtering.
	if r.Episodic != nil {
		if r.Episodic.Speaker != "" {
			payload["speaker"] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: r.Episodic.Speaker}}
		}
		if b, err := json.Marshal(r.Episodic); err == nil {
			payload["episodic"] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: string(b)}}
		}
	}
	if r.Semantic != nil {
		if r.Semantic.FactType != "" {
			payload["fact_type"] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: r.Semantic.FactType}}
		}
		if b, err := json.Marshal(r.Semantic); err == nil {
			payload["semantic"] = &pb.Value{Kind: &pb.Value_StringValue{StringValue: string(b)}}
		}
	}

	return payload
}

func payloadToRecord(id string, category models.MemoryCategory, payload map[string]*pb.Value) (*models.MemoryRecord, error) {
	r := &models.MemoryRecord{
		ID:         id,
		Text:       getStringValue(payload, "text"),
		UserID:     getStringValue(payload, "user_id"),
		Category:   category,
		Importance: getDoubleValue(payload, "importance"),
		Source:     getStringValue(payload, "source"),
	}

	if ts := getStringValue(payload, "timestamp"); ts != "" {
		t, err := time.Parse(time.RFC3339, ts)
		if err != nil {
			return nil, fmt.Errorf("parsing timestamp for %s: %w", id, err)
		}
		r.Timestamp = t
	}

	if epStr := getStringValue(payload, "episodic"); epStr != "" {
		var ep models.EpisodicAttributes
		if err := json.Unmarshal([]byte(epStr), &ep); err == nil {
			r.Episodic = &ep
		}
	}
	if seStr := getStringValue(payload, "semantic"); seStr != "" {
		var se models.SemanticAttributes
		if err := json.Unmarshal([]byte(seStr), &se); err == nil {
			r.Semantic = &se
		}
	}

	return r, nil
}

// buildFilter always includes the user constraint; extra filters are
// appended as additional must conditions.
func buildFilter(userID string, extra *SearchFilters) *pb.Filter {
	conditions := []*pb.Condition{
		keywordCondition("user_id", userID),
	}

	if extra != nil {
		if extra.Source != nil {
			conditions = append(conditions, keywordCondition("source", *extra.Source))
		}
		if extra.Speaker != nil {
			conditions = append(conditions, keywordCondition("speaker", *extra.Speaker))
		}
		if extra.FactType != nil {
			conditions = append(conditions, keywordCondition("fact_type", *extra.FactType))
		}
	}

	return &pb.Filter{Must: conditions}
}

func keywordCondition(key, value string) *pb.Condition {
	return &pb.Condition{
		ConditionOneOf: &pb.Condition_Field{
			Field: &pb.FieldCondition{
				Key:   key,
				Match: &pb.Match{MatchValue: &pb.Match_Keyword{Keyword: value}},
			},
		},
	}
}

func getStringValue(payload map[string]*pb.Value, key string) string {
	if v, ok := payload[key]; ok {
		return v.GetStringValue()
	}
	return ""
}

func getDoubleValue(payload map[string]*pb.Value, key string) float64 {
	if v, ok := payload[key]; ok {
		return v.GetDoubleValue()
	}
	return 0
}

func boolPtr(v bool) *bool { return &v }
