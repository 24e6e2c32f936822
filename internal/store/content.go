package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	lru "github.com/hashicorp/golang-lru/v2"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"mediaref/internal/core"
)

// ErrNotFound is returned when no content record exists for an id.
var ErrNotFound = errors.New("content not found")

const schema = `
CREATE TABLE IF NOT EXISTS content (
	id         TEXT PRIMARY KEY,
	owner_id   TEXT NOT NULL,
	payload    TEXT NOT NULL,
	created_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_content_owner ON content(owner_id, created_at);
`

// ContentStore is the SQLite-backed content record store. Records are
// immutable after creation, so the read cache never needs invalidation.
type ContentStore struct {
	db     *sql.DB
	filter *IDFilter
	cache  *lru.Cache[string, *core.ContentRecord]
	logger *zap.Logger
}

// Open opens (creating if needed) the content database and seeds the
// existence filter from the ids already on disk.
func Open(cfg core.StoreConfig, logger *zap.Logger) (*ContentStore, error) {
	db, err := sql.Open("sqlite3", cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open content database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create content schema: %w", err)
	}

	cacheSize := cfg.ReadCacheSize
	if cacheSize <= 0 {
		cacheSize = 1
	}
	cache, _ := lru.New[string, *core.ContentRecord](cacheSize)

	s := &ContentStore{
		db:     db,
		filter: NewIDFilter(cfg.FilterCapacity, cfg.FilterFalsePositiveRate),
		cache:  cache,
		logger: logger,
	}

	if err := s.seedFilter(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return s, nil
}

// CreateContent stores a new record for the owner and returns its id.
func (s *ContentStore) CreateContent(ctx context.Context, ownerID string, payload core.ContentPayload) (string, error) {
	if ownerID == "" {
		return "", errors.New("owner id is required")
	}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode payload: %w", err)
	}

	record := &core.ContentRecord{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		Payload:   payload,
		CreatedAt: time.Now().UTC(),
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO content (id, owner_id, payload, created_at) VALUES (?, ?, ?, ?)",
		record.ID, record.OwnerID, string(encoded), record.CreatedAt)
	if err != nil {
		return "", fmt.Errorf("failed to insert content: %w", err)
	}

	s.filter.Add(record.ID)
	s.cache.Add(record.ID, record)

	s.logger.Debug("Stored content record",
		zap.String("id", record.ID),
		zap.String("owner", ownerID),
		zap.Int("items", len(payload.Items)))

	return record.ID, nil
}

// GetContent fetches a record by id. Ids the filter has never seen skip the
// database entirely.
func (s *ContentStore) GetContent(ctx context.Context, id string) (*core.ContentRecord, error) {
	if !s.filter.MayContain(id) {
		return nil, ErrNotFound
	}

	if record, ok := s.cache.Get(id); ok {
		return record, nil
	}

	row := s.db.QueryRowContext(ctx,
		"SELECT id, owner_id, payload, created_at FROM content WHERE id = ?", id)

	record, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	s.cache.Add(record.ID, record)
	return record, nil
}

// ListContentByOwner returns the owner's records oldest first.
func (s *ContentStore) ListContentByOwner(ctx context.Context, ownerID string) ([]core.ContentRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, owner_id, payload, created_at FROM content WHERE owner_id = ? ORDER BY created_at", ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list content: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var records []core.ContentRecord
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}

	return records, rows.Err()
}

// Close releases the underlying database handle.
func (s *ContentStore) Close() error {
	return s.db.Close()
}

func (s *ContentStore) seedFilter() error {
	rows, err := s.db.Query("SELECT id FROM content")
	if err != nil {
		return fmt.Errorf("failed to seed id filter: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	s.filter.Load(ids)
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*core.ContentRecord, error) {
	var record core.ContentRecord
	var encoded string

	if err := row.Scan(&record.ID, &record.OwnerID, &encoded, &record.CreatedAt); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(encoded), &record.Payload); err != nil {
		return nil, fmt.Errorf("failed to decode payload: %w", err)
	}

	return &record, nil
}
