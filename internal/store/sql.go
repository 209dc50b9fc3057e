package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/lib/pq"
	_ "modernc.org/sqlite"
)

type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

// SQLStore keeps the conversation graph in relational tables.
// It backs the lightweight (SQLite file) and postgres profiles.
type SQLStore struct {
	db      *sql.DB
	dialect dialect
	now     func() time.Time
}

// NewSQLite opens (or creates) the embedded database at path.
func NewSQLite(ctx context.Context, path string) (*SQLStore, error) {
	if path != ":memory:" && !strings.HasPrefix(path, "file:") {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create data dir for %s: %w", path, err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite: %w", err)
	}
	// A single writer avoids SQLITE_BUSY and keeps ":memory:" databases on one connection.
	db.SetMaxOpenConns(1)
	s := &SQLStore{db: db, dialect: dialectSQLite, now: time.Now}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgres connects to dsn and creates the schema.
func NewPostgres(ctx context.Context, dsn string) (*SQLStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	s := &SQLStore{db: db, dialect: dialectPostgres, now: time.Now}
	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) migrate(ctx context.Context) error {
	if s.dialect == dialectPostgres {
		// Several services may start at once against the same database.
		const lockID = 724113

		if _, err := s.db.ExecContext(ctx, `SELECT pg_advisory_lock($1)`, lockID); err != nil {
			return fmt.Errorf("failed to acquire migration lock: %w", err)
		}
		defer func() {
			_, _ = s.db.ExecContext(context.Background(), `SELECT pg_advisory_unlock($1)`, lockID)
		}()
	}

	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			created_at BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS queries (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL REFERENCES users(id),
			text TEXT NOT NULL,
			input_type TEXT NOT NULL,
			created_at BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS responses (
			id TEXT PRIMARY KEY,
			query_id TEXT NOT NULL REFERENCES queries(id),
			text TEXT NOT NULL,
			metadata TEXT,
			created_at BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS embeddings (
			id TEXT PRIMARY KEY,
			content_id TEXT NOT NULL,
			content_type TEXT NOT NULL,
			text TEXT NOT NULL,
			metadata TEXT,
			created_at BIGINT NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS relationships (
			id TEXT PRIMARY KEY,
			from_id TEXT NOT NULL,
			to_id TEXT NOT NULL,
			relationship_type TEXT NOT NULL,
			created_at BIGINT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS queries_user_created_idx ON queries(user_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS responses_query_idx ON responses(query_id)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to migrate schema: %w", err)
		}
	}
	return nil
}

// rebind rewrites ? placeholders into $n for postgres.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != dialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQLStore) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLStore) StoreQuery(ctx context.Context, text, userID string, inputType InputType) (string, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	now := s.now().UnixNano()
	id := uuid.NewString()
	if _, err := tx.ExecContext(ctx, s.rebind(`INSERT INTO users(id, created_at) VALUES(?, ?) ON CONFLICT (id) DO NOTHING`),
		userID, now); err != nil {
		return "", fmt.Errorf("failed to upsert user: %w", err)
	}
	if _, err := tx.ExecContext(ctx, s.rebind(`INSERT INTO queries(id, user_id, text, input_type, created_at) VALUES(?, ?, ?, ?, ?)`),
		id, userID, text, string(inputType), now); err != nil {
		return "", fmt.Errorf("failed to insert query: %w", err)
	}
	if err := s.relate(ctx, tx, userID, id, RelAsked, now); err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	return id, nil
}

func (s *SQLStore) StoreResponse(ctx context.Context, queryID, text string, metadata map[string]any) (string, error) {
	meta, err := encodeMetadata(metadata)
	if err != nil {
		return "", err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, s.rebind(`SELECT 1 FROM queries WHERE id = ?`), queryID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("query %s: %w", queryID, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to look up query %s: %w", queryID, err)
	}

	now := s.now().UnixNano()
	id := uuid.NewString()
	if _, err := tx.ExecContext(ctx, s.rebind(`INSERT INTO responses(id, query_id, text, metadata, created_at) VALUES(?, ?, ?, ?, ?)`),
		id, queryID, text, meta, now); err != nil {
		return "", fmt.Errorf("failed to insert response: %w", err)
	}
	if err := s.relate(ctx, tx, id, queryID, RelAnswers, now); err != nil {
		return "", err
	}
	entry := IndexEntry{ID: id, ContentID: id, ContentType: ContentResponse, Text: text, Metadata: map[string]any{"query_id": queryID}}
	if err := s.upsertEntry(ctx, tx, entry, now); err != nil {
		return "", err
	}
	if err := tx.Commit(); err != nil {
		return "", err
	}
	return id, nil
}

func (s *SQLStore) relate(ctx context.Context, tx *sql.Tx, from, to, rel string, now int64) error {
	_, err := tx.ExecContext(ctx, s.rebind(`INSERT INTO relationships(id, from_id, to_id, relationship_type, created_at) VALUES(?, ?, ?, ?, ?)`),
		uuid.NewString(), from, to, rel, now)
	if err != nil {
		return fmt.Errorf("failed to insert %s relationship: %w", rel, err)
	}
	return nil
}

func (s *SQLStore) History(ctx context.Context, userID string, limit int) ([]ConversationEntry, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT q.id, r.id, q.text, r.text, q.created_at, q.input_type
		FROM queries q
		JOIN responses r ON r.query_id = q.id
		WHERE q.user_id = ?
		ORDER BY q.created_at DESC, r.created_at DESC
		LIMIT ?`), userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history for %s: %w", userID, err)
	}
	defer rows.Close()

	out := []ConversationEntry{}
	for rows.Next() {
		var (
			e       ConversationEntry
			created int64
			input   string
		)
		if err := rows.Scan(&e.QueryID, &e.ResponseID, &e.QueryText, &e.ResponseText, &created, &input); err != nil {
			return nil, err
		}
		e.Timestamp = time.Unix(0, created).UTC()
		e.InputType = InputType(input)
		out = append(out, e)
	}
	return out, rows.Err()
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`)

// Search matches entries whose text contains query. Every hit scores 1.0.
func (s *SQLStore) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	op := "LIKE"
	if s.dialect == dialectPostgres {
		op = "ILIKE"
	}
	rows, err := s.db.QueryContext(ctx, s.rebind(`
		SELECT id, content_id, content_type, text, metadata
		FROM embeddings
		WHERE text `+op+` ? ESCAPE '\'
		ORDER BY created_at DESC
		LIMIT ?`), "%"+likeEscaper.Replace(query)+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search: %w", err)
	}
	defer rows.Close()

	out := []SearchResult{}
	for rows.Next() {
		var (
			r           SearchResult
			contentID   string
			contentType string
			meta        sql.NullString
		)
		if err := rows.Scan(&r.ID, &contentID, &contentType, &r.Text, &meta); err != nil {
			return nil, err
		}
		r.Score = 1.0
		r.Metadata = decodeMetadata(meta.String)
		r.Metadata["content_id"] = contentID
		r.Metadata["content_type"] = contentType
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLStore) Index(ctx context.Context, entries []IndexEntry) error {
	if len(entries) == 0 {
		return nil
	}
	now := s.now().UnixNano()
	if s.dialect == dialectPostgres {
		return s.indexBulk(ctx, entries, now)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for _, e := range entries {
		if err := s.upsertEntry(ctx, tx, e, now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLStore) upsertEntry(ctx context.Context, tx *sql.Tx, e IndexEntry, now int64) error {
	meta, err := encodeMetadata(e.Metadata)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, s.rebind(`
		INSERT INTO embeddings(id, content_id, content_type, text, metadata, created_at)
		VALUES(?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET text = excluded.text, metadata = excluded.metadata`),
		e.ID, e.ContentID, e.ContentType, e.Text, meta, now)
	if err != nil {
		return fmt.Errorf("failed to index entry %s: %w", e.ID, err)
	}
	return nil
}

// indexBulk writes all entries in one statement using array parameters.
func (s *SQLStore) indexBulk(ctx context.Context, entries []IndexEntry, now int64) error {
	var ids, contentIDs, types, texts, metas []string
	for _, e := range entries {
		meta, err := encodeMetadata(e.Metadata)
		if err != nil {
			return err
		}
		ids = append(ids, e.ID)
		contentIDs = append(contentIDs, e.ContentID)
		types = append(types, e.ContentType)
		texts = append(texts, e.Text)
		metas = append(metas, meta)
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO embeddings(id, content_id, content_type, text, metadata, created_at)
		SELECT u.id, u.content_id, u.content_type, u.text, u.metadata, $6
		FROM unnest($1::text[], $2::text[], $3::text[], $4::text[], $5::text[])
			AS u(id, content_id, content_type, text, metadata)
		ON CONFLICT (id) DO UPDATE SET text = excluded.text, metadata = excluded.metadata`,
		pq.Array(ids), pq.Array(contentIDs), pq.Array(types), pq.Array(texts), pq.Array(metas), now)
	if err != nil {
		return fmt.Errorf("failed to index %d entries: %w", len(entries), err)
	}
	return nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func encodeMetadata(m map[string]any) (string, error) {
	if len(m) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("failed to encode metadata: %w", err)
	}
	return string(b), nil
}

func decodeMetadata(s string) map[string]any {
	out := map[string]any{}
	if s == "" {
		return out
	}
	_ = json.Unmarshal([]byte(s), &out)
	return out
}
