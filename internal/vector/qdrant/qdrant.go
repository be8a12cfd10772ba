// Package qdrant implements vector.Store over the Qdrant gRPC API.
package qdrant

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"sort"
	"time"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	"github.com/efebarandurmaz/docqa/internal/vector"
)

// Payload field names.
const (
	fieldSource       = "source"
	fieldSourceType   = "source_type"
	fieldFileType     = "file_type"
	fieldRawKey       = "raw_key"
	fieldCanonicalKey = "canonical_key"
	fieldValue        = "value"
	fieldDisplayText  = "display_text"
	fieldSequence     = "sequence"
	fieldIngestedAt   = "ingested_at"
)

const scrollPage = 256

// Config describes how to reach a Qdrant instance.
type Config struct {
	Host       string
	Port       int
	APIKey     string
	UseTLS     bool
	Collection string
	Dimension  int
}

// Store implements vector.Store using Qdrant.
type Store struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	health      pb.QdrantClient
	collection  string
	dim         int
	logger      *slog.Logger
}

// New dials Qdrant. The connection is lazy; call EnsureCollection to
// verify it and bootstrap the schema.
func New(cfg Config, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Collection == "" {
		cfg.Collection = "documents"
	}
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	creds := insecure.NewCredentials()
	if cfg.UseTLS {
		creds = credentials.NewTLS(&tls.Config{MinVersion: tls.VersionTLS12})
	}
	opts := []grpc.DialOption{grpc.WithTransportCredentials(creds)}
	if cfg.APIKey != "" {
		opts = append(opts, grpc.WithUnaryInterceptor(apiKeyInterceptor(cfg.APIKey)))
	}

	conn, err := grpc.NewClient(addr, opts...)
	if err != nil {
		return nil, vector.Unavailable("connect", err)
	}
	return &Store{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		health:      pb.NewQdrantClient(conn),
		collection:  cfg.Collection,
		dim:         cfg.Dimension,
		logger:      logger.With("component", "qdrant", "collection", cfg.Collection),
	}, nil
}

func apiKeyInterceptor(key string) grpc.UnaryClientInterceptor {
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		ctx = metadata.AppendToOutgoingContext(ctx, "api-key", key)
		return invoker(ctx, method, req, reply, cc, opts...)
	}
}

// EnsureCollection creates the collection and its payload indexes when
// missing.
func (s *Store) EnsureCollection(ctx context.Context) error {
	exists, err := s.collections.CollectionExists(ctx, &pb.CollectionExistsRequest{CollectionName: s.collection})
	if err != nil {
		return vector.Unavailable("collection exists", err)
	}
	if exists.GetResult().GetExists() {
		return nil
	}
	if s.dim <= 0 {
		return vector.Unavailable("create collection", fmt.Errorf("unknown vector dimension"))
	}

	_, err = s.collections.Create(ctx, &pb.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: &pb.VectorsConfig{Config: &pb.VectorsConfig_Params{
			Params: &pb.VectorParams{Size: uint64(s.dim), Distance: pb.Distance_Cosine},
		}},
	})
	if err != nil {
		return vector.Unavailable("create collection", err)
	}

	indexes := []struct {
		field string
		kind  pb.FieldType
	}{
		{fieldSource, pb.FieldType_FieldTypeKeyword},
		{fieldCanonicalKey, pb.FieldType_FieldTypeKeyword},
		{fieldSequence, pb.FieldType_FieldTypeInteger},
	}
	wait := true
	for _, idx := range indexes {
		_, err := s.points.CreateFieldIndex(ctx, &pb.CreateFieldIndexCollection{
			CollectionName: s.collection,
			Wait:           &wait,
			FieldName:      idx.field,
			FieldType:      idx.kind.Enum(),
		})
		if err != nil {
			return vector.Unavailable("create index "+idx.field, err)
		}
	}
	s.logger.Info("created collection", "dimension", s.dim)
	return nil
}

func (s *Store) Upsert(ctx context.Context, records []vector.Record) error {
	if len(records) == 0 {
		return nil
	}
	points := make([]*pb.PointStruct, len(records))
	for i, r := range records {
		points[i] = &pb.PointStruct{
			Id:      &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: r.ID}},
			Vectors: &pb.Vectors{VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: r.Vector}}},
			Payload: encodePayload(r.Payload),
		}
	}

	wait := true
	_, err := s.points.Upsert(ctx, &pb.UpsertPoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points:         points,
	})
	return vector.Unavailable("upsert", err)
}

func (s *Store) DeleteBySource(ctx context.Context, source string) (int, error) {
	filter := matchFilter(map[string]string{fieldSource: source})
	n, err := s.count(ctx, filter)
	if err != nil {
		return 0, err
	}
	if n == 0 {
		return 0, nil
	}

	wait := true
	_, err = s.points.Delete(ctx, &pb.DeletePoints{
		CollectionName: s.collection,
		Wait:           &wait,
		Points: &pb.PointsSelector{
			PointsSelectorOneOf: &pb.PointsSelector_Filter{Filter: filter},
		},
	})
	if err != nil {
		return 0, vector.Unavailable("delete", err)
	}
	return n, nil
}

// FindExact scrolls every point matching the key and orders them on the
// client, so no ordering index is required.
func (s *Store) FindExact(ctx context.Context, key, source string, limit int) ([]vector.Payload, error) {
	conds := map[string]string{fieldCanonicalKey: key}
	if source != "" {
		conds[fieldSource] = source
	}
	filter := matchFilter(conds)

	var out []vector.Payload
	var offset *pb.PointId
	page := uint32(scrollPage)
	for {
		resp, err := s.points.Scroll(ctx, &pb.ScrollPoints{
			CollectionName: s.collection,
			Filter:         filter,
			Offset:         offset,
			Limit:          &page,
			WithPayload:    withPayload(),
		})
		if err != nil {
			return nil, vector.Unavailable("scroll", err)
		}
		for _, pt := range resp.GetResult() {
			out = append(out, decodePayload(pt.GetPayload()))
		}
		offset = resp.GetNextPageOffset()
		if offset == nil {
			break
		}
	}

	sort.SliceStable(out, func(i, j int) bool { return vector.Newer(out[i], out[j]) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) Nearest(ctx context.Context, vec []float32, limit int, source string) ([]vector.Match, error) {
	if limit <= 0 {
		limit = 5
	}
	req := &pb.SearchPoints{
		CollectionName: s.collection,
		Vector:         vec,
		Limit:          uint64(limit),
		WithPayload:    withPayload(),
	}
	if source != "" {
		req.Filter = matchFilter(map[string]string{fieldSource: source})
	}
	resp, err := s.points.Search(ctx, req)
	if err != nil {
		return nil, vector.Unavailable("search", err)
	}

	out := make([]vector.Match, len(resp.GetResult()))
	for i, pt := range resp.GetResult() {
		out[i] = vector.Match{Payload: decodePayload(pt.GetPayload()), Score: pt.GetScore()}
	}
	return out, nil
}

func (s *Store) Count(ctx context.Context, source string) (int, error) {
	var filter *pb.Filter
	if source != "" {
		filter = matchFilter(map[string]string{fieldSource: source})
	}
	return s.count(ctx, filter)
}

func (s *Store) count(ctx context.Context, filter *pb.Filter) (int, error) {
	exact := true
	resp, err := s.points.Count(ctx, &pb.CountPoints{
		CollectionName: s.collection,
		Filter:         filter,
		Exact:          &exact,
	})
	if err != nil {
		return 0, vector.Unavailable("count", err)
	}
	return int(resp.GetResult().GetCount()), nil
}

func (s *Store) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := s.health.HealthCheck(ctx, &pb.HealthCheckRequest{})
	return vector.Unavailable("health", err)
}

func (s *Store) Close() error {
	return s.conn.Close()
}

func withPayload() *pb.WithPayloadSelector {
	return &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}}
}

// matchFilter builds a conjunction of keyword equality conditions.
func matchFilter(conds map[string]string) *pb.Filter {
	keys := make([]string, 0, len(conds))
	for k := range conds {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	f := &pb.Filter{}
	for _, k := range keys {
		f.Must = append(f.Must, &pb.Condition{
			ConditionOneOf: &pb.Condition_Field{Field: &pb.FieldCondition{
				Key:   k,
				Match: &pb.Match{MatchValue: &pb.Match_Keyword{Keyword: conds[k]}},
			}},
		})
	}
	return f
}

func str(v string) *pb.Value { return &pb.Value{Kind: &pb.Value_StringValue{StringValue: v}} }
func num(v int64) *pb.Value  { return &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: v}} }

func encodePayload(p vector.Payload) map[string]*pb.Value {
	return map[string]*pb.Value{
		fieldSource:       str(p.Source),
		fieldSourceType:   str(p.SourceType),
		fieldFileType:     str(p.FileType),
		fieldRawKey:       str(p.RawKey),
		fieldCanonicalKey: str(p.CanonicalKey),
		fieldValue:        str(p.Value),
		fieldDisplayText:  str(p.DisplayText),
		fieldSequence:     num(int64(p.Sequence)),
		fieldIngestedAt:   str(p.IngestedAt.UTC().Format(time.RFC3339Nano)),
	}
}

func decodePayload(m map[string]*pb.Value) vector.Payload {
	p := vector.Payload{
		Source:       m[fieldSource].GetStringValue(),
		SourceType:   m[fieldSourceType].GetStringValue(),
		FileType:     m[fieldFileType].GetStringValue(),
		RawKey:       m[fieldRawKey].GetStringValue(),
		CanonicalKey: m[fieldCanonicalKey].GetStringValue(),
		Value:        m[fieldValue].GetStringValue(),
		DisplayText:  m[fieldDisplayText].GetStringValue(),
	}
	switch seq := m[fieldSequence].GetKind().(type) {
	case *pb.Value_IntegerValue:
		p.Sequence = int(seq.IntegerValue)
	case *pb.Value_DoubleValue:
		p.Sequence = int(seq.DoubleValue)
	}
	if ts, err := time.Parse(time.RFC3339Nano, m[fieldIngestedAt].GetStringValue()); err == nil {
		p.IngestedAt = ts
	}
	return p
}

var _ vector.Store = (*Store)(nil)
