package store

import (
	"context"
	"fmt"

	pb "github.com/qdrant/go-client/qdrant"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"agent-cag/internal/embeddings"
)

// VectorStore is a Qdrant collection of index entries searched by cosine similarity.
type VectorStore struct {
	conn        *grpc.ClientConn
	points      pb.PointsClient
	collections pb.CollectionsClient
	health      pb.QdrantClient
	collection  string
}

// NewVector dials Qdrant's gRPC port and makes sure collection exists with dim-sized vectors.
func NewVector(ctx context.Context, addr, collection string, dim int) (*VectorStore, error) {
	conn, err := grpc.NewClient(addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("failed to dial qdrant: %w", err)
	}
	v := &VectorStore{
		conn:        conn,
		points:      pb.NewPointsClient(conn),
		collections: pb.NewCollectionsClient(conn),
		health:      pb.NewQdrantClient(conn),
		collection:  collection,
	}
	if err := v.ensureCollection(ctx, uint64(dim)); err != nil {
		conn.Close()
		return nil, err
	}
	return v, nil
}

func (v *VectorStore) ensureCollection(ctx context.Context, dim uint64) error {
	list, err := v.collections.List(ctx, &pb.ListCollectionsRequest{})
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
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
					Size:     dim,
					Distance: pb.Distance_Cosine,
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("failed to create collection %s: %w", v.collection, err)
	}
	return nil
}

func (v *VectorStore) Health(ctx context.Context) error {
	if _, err := v.health.HealthCheck(ctx, &pb.HealthCheckRequest{}); err != nil {
		return fmt.Errorf("qdrant health check failed: %w", err)
	}
	return nil
}

// Upsert writes entries; every entry must carry a vector.
func (v *VectorStore) Upsert(ctx context.Context, entries []IndexEntry) error {
	points := make([]*pb.PointStruct, 0, len(entries))
	for _, e := range entries {
		if len(e.Vector) == 0 {
			return fmt.Errorf("entry %s has no vector", e.ID)
		}
		points = append(points, &pb.PointStruct{
			Id: &pb.PointId{PointIdOptions: &pb.PointId_Uuid{Uuid: e.ID}},
			Vectors: &pb.Vectors{
				VectorsOptions: &pb.Vectors_Vector{Vector: &pb.Vector{Data: e.Vector}},
			},
			Payload: entryPayload(e),
		})
	}
	if len(points) == 0 {
		return nil
	}
	if _, err := v.points.Upsert(ctx, &pb.UpsertPoints{CollectionName: v.collection, Points: points}); err != nil {
		return fmt.Errorf("failed to upsert %d points: %w", len(points), err)
	}
	return nil
}

// Search returns the limit nearest entries to vec. Scores are cosine similarities.
func (v *VectorStore) Search(ctx context.Context, vec embeddings.Vector, limit int) ([]SearchResult, error) {
	resp, err := v.points.Search(ctx, &pb.SearchPoints{
		CollectionName: v.collection,
		Vector:         vec,
		Limit:          uint64(limit),
		WithPayload:    &pb.WithPayloadSelector{SelectorOptions: &pb.WithPayloadSelector_Enable{Enable: true}},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search points: %w", err)
	}

	out := make([]SearchResult, 0, len(resp.GetResult()))
	for _, p := range resp.GetResult() {
		id := p.GetId().GetUuid()
		if id == "" {
			id = fmt.Sprintf("%d", p.GetId().GetNum())
		}
		meta := map[string]any{}
		var text string
		for k, val := range p.GetPayload() {
			switch kind := val.GetKind().(type) {
			case *pb.Value_StringValue:
				if k == "text" {
					text = kind.StringValue
					continue
				}
				meta[k] = kind.StringValue
			case *pb.Value_IntegerValue:
				meta[k] = kind.IntegerValue
			case *pb.Value_DoubleValue:
				meta[k] = kind.DoubleValue
			case *pb.Value_BoolValue:
				meta[k] = kind.BoolValue
			}
		}
		out = append(out, SearchResult{ID: id, Text: text, Score: p.GetScore(), Metadata: meta})
	}
	return out, nil
}

func (v *VectorStore) Close() error {
	return v.conn.Close()
}

func entryPayload(e IndexEntry) map[string]*pb.Value {
	payload := map[string]*pb.Value{
		"text":         stringValue(e.Text),
		"content_id":   stringValue(e.ContentID),
		"content_type": stringValue(e.ContentType),
	}
	for k, val := range e.Metadata {
		switch x := val.(type) {
		case string:
			payload[k] = stringValue(x)
		case int:
			payload[k] = &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: int64(x)}}
		case int64:
			payload[k] = &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: x}}
		case float64:
			payload[k] = &pb.Value{Kind: &pb.Value_DoubleValue{DoubleValue: x}}
		case bool:
			payload[k] = &pb.Value{Kind: &pb.Value_BoolValue{BoolValue: x}}
		}
	}
	return payload
}

func stringValue(s string) *pb.Value {
	return &pb.Value{Kind: &pb.Value_StringValue{StringValue: s}}
}
