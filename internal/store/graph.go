package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// GraphStore keeps users, queries and responses as Neo4j nodes:
// (User)-[:ASKED]->(Query)<-[:ANSWERS]-(Response).
type GraphStore struct {
	driver neo4j.DriverWithContext
	now    func() time.Time
}

// NewGraph connects to Neo4j and creates the uniqueness constraints.
func NewGraph(ctx context.Context, uri, user, password string) (*GraphStore, error) {
	driver, err := neo4j.NewDriverWithContext(uri, neo4j.BasicAuth(user, password, ""))
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("failed to reach neo4j: %w", err)
	}
	g := &GraphStore{driver: driver, now: time.Now}
	if err := g.ensureConstraints(ctx); err != nil {
		driver.Close(ctx)
		return nil, err
	}
	return g, nil
}

func (g *GraphStore) ensureConstraints(ctx context.Context) error {
	session := g.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	for _, label := range []string{"User", "Query", "Response"} {
		stmt := fmt.Sprintf("CREATE CONSTRAINT IF NOT EXISTS FOR (n:%s) REQUIRE n.id IS UNIQUE", label)
		if _, err := session.Run(ctx, stmt, nil); err != nil {
			return fmt.Errorf("failed to create %s constraint: %w", label, err)
		}
	}
	return nil
}

func (g *GraphStore) Health(ctx context.Context) error {
	return g.driver.VerifyConnectivity(ctx)
}

func (g *GraphStore) StoreQuery(ctx context.Context, text, userID string, inputType InputType) (string, error) {
	session := g.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	id := uuid.NewString()
	_, err := session.Run(ctx, `
		MERGE (u:User {id: $userID})
		ON CREATE SET u.created_at = $now
		CREATE (q:Query {id: $id, text: $text, input_type: $inputType, created_at: $now})
		CREATE (u)-[:ASKED]->(q)`,
		map[string]any{
			"userID":    userID,
			"id":        id,
			"text":      text,
			"inputType": string(inputType),
			"now":       g.now().UnixNano(),
		})
	if err != nil {
		return "", fmt.Errorf("failed to store query: %w", err)
	}
	return id, nil
}

// StoreResponse creates the response node and its ANSWERS edge.
// Indexing of the text is done by FullStore.
func (g *GraphStore) StoreResponse(ctx context.Context, queryID, text string, metadata map[string]any) (string, error) {
	meta, err := encodeMetadata(metadata)
	if err != nil {
		return "", err
	}
	session := g.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	id := uuid.NewString()
	result, err := session.Run(ctx, `
		MATCH (q:Query {id: $queryID})
		CREATE (r:Response {id: $id, text: $text, metadata: $metadata, created_at: $now})
		CREATE (r)-[:ANSWERS]->(q)
		RETURN r.id AS id`,
		map[string]any{
			"queryID":  queryID,
			"id":       id,
			"text":     text,
			"metadata": meta,
			"now":      g.now().UnixNano(),
		})
	if err != nil {
		return "", fmt.Errorf("failed to store response: %w", err)
	}
	if !result.Next(ctx) {
		if err := result.Err(); err != nil {
			return "", fmt.Errorf("failed to store response: %w", err)
		}
		return "", fmt.Errorf("query %s: %w", queryID, ErrNotFound)
	}
	return id, nil
}

// DeleteResponse removes a response node and its edges.
func (g *GraphStore) DeleteResponse(ctx context.Context, id string) error {
	session := g.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	if _, err := session.Run(ctx, `MATCH (r:Response {id: $id}) DETACH DELETE r`, map[string]any{"id": id}); err != nil {
		return fmt.Errorf("failed to delete response %s: %w", id, err)
	}
	return nil
}

func (g *GraphStore) History(ctx context.Context, userID string, limit int) ([]ConversationEntry, error) {
	session := g.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer session.Close(ctx)

	result, err := session.Run(ctx, `
		MATCH (u:User {id: $userID})-[:ASKED]->(q:Query)<-[:ANSWERS]-(r:Response)
		RETURN q.id AS query_id, r.id AS response_id, q.text AS query_text,
		       r.text AS response_text, q.created_at AS created_at, q.input_type AS input_type
		ORDER BY q.created_at DESC, r.created_at DESC
		LIMIT $limit`,
		map[string]any{"userID": userID, "limit": int64(limit)})
	if err != nil {
		return nil, fmt.Errorf("failed to query history for %s: %w", userID, err)
	}

	out := []ConversationEntry{}
	for result.Next(ctx) {
		rec := result.Record()
		created, _ := recordInt(rec, "created_at")
		out = append(out, ConversationEntry{
			QueryID:      recordString(rec, "query_id"),
			ResponseID:   recordString(rec, "response_id"),
			QueryText:    recordString(rec, "query_text"),
			ResponseText: recordString(rec, "response_text"),
			Timestamp:    time.Unix(0, created).UTC(),
			InputType:    InputType(recordString(rec, "input_type")),
		})
	}
	if err := result.Err(); err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	return out, nil
}

func (g *GraphStore) Close() error {
	return g.driver.Close(context.Background())
}

func recordString(rec *neo4j.Record, key string) string {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return ""
	}
	s, _ := v.(string)
	return s
}

func recordInt(rec *neo4j.Record, key string) (int64, error) {
	v, ok := rec.Get(key)
	if !ok || v == nil {
		return 0, errors.New("missing " + key)
	}
	n, ok := v.(int64)
	if !ok {
		return 0, fmt.Errorf("%s is %T, not int64", key, v)
	}
	return n, nil
}
