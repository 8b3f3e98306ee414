package pg

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/Joseda-hg/tasktracker/internal/model"
)

// Store is a PostgreSQL-backed snapshot store.
type Store struct {
	pool *pgxpool.Pool
}

// Open connects to dsn and makes sure the tables exist.
func Open(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	store := NewStore(pool)
	if err := store.EnsureTable(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure tables: %w", err)
	}
	return store, nil
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// EnsureTable creates the tracker tables if they don't exist.
func (s *Store) EnsureTable(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS tracker_entities (
			id          BIGINT PRIMARY KEY,
			position    INTEGER NOT NULL,
			kind        TEXT NOT NULL,
			name        TEXT NOT NULL,
			status      TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			start_time  TIMESTAMPTZ,
			duration    INTEGER NOT NULL DEFAULT 0,
			epic_id     BIGINT
		)`)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS tracker_history (
			position  INTEGER PRIMARY KEY,
			entity_id BIGINT NOT NULL
		)`)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS tracker_meta (
			key   TEXT PRIMARY KEY,
			value BIGINT NOT NULL
		)`)
	return err
}

// Save replaces the stored snapshot in one transaction.
func (s *Store) Save(ctx context.Context, snapshot model.Snapshot) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `TRUNCATE tracker_entities, tracker_history, tracker_meta`); err != nil {
		return fmt.Errorf("clear tables: %w", err)
	}

	batch := &pgx.Batch{}
	for position, row := range snapshot.Rows() {
		var epicID *int64
		if row.Kind == model.KindSubtask {
			epicID = &row.EpicID
		}
		batch.Queue(`
			INSERT INTO tracker_entities (id, position, kind, name, status, description, start_time, duration, epic_id)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			row.ID, position, string(row.Kind), row.Name, string(row.Status), row.Description, row.StartTime, row.Duration, epicID)
	}
	for position, id := range snapshot.History {
		batch.Queue(`INSERT INTO tracker_history (position, entity_id) VALUES ($1, $2)`, position, id)
	}
	batch.Queue(`INSERT INTO tracker_meta (key, value) VALUES ('next_id', $1)`, snapshot.NextID)

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}

func (s *Store) Load(ctx context.Context) (model.Snapshot, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, kind, name, status, description, start_time, duration, epic_id
		FROM tracker_entities ORDER BY position`)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("query entities: %w", err)
	}
	entities, err := pgx.CollectRows(rows, scanRow)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("scan entities: %w", err)
	}

	rows, err = s.pool.Query(ctx, `SELECT entity_id FROM tracker_history ORDER BY position`)
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("query history: %w", err)
	}
	history, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return model.Snapshot{}, fmt.Errorf("scan history: %w", err)
	}

	var nextID int64
	err = s.pool.QueryRow(ctx, `SELECT value FROM tracker_meta WHERE key = 'next_id'`).Scan(&nextID)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return model.Snapshot{}, fmt.Errorf("query next id: %w", err)
	}

	return model.SnapshotFromRows(entities, history, nextID)
}

func scanRow(row pgx.CollectableRow) (model.Row, error) {
	var (
		result model.Row
		kind   string
		status string
		start  *time.Time
		epicID *int64
	)
	if err := row.Scan(&result.ID, &kind, &result.Name, &status, &result.Description, &start, &result.Duration, &epicID); err != nil {
		return model.Row{}, err
	}

	var err error
	if result.Kind, err = model.ParseKind(kind); err != nil {
		return model.Row{}, err
	}
	if result.Status, err = model.ParseStatus(status); err != nil {
		return model.Row{}, err
	}
	if start != nil {
		utc := start.UTC()
		result.StartTime = &utc
	}
	if epicID != nil {
		result.EpicID = *epicID
	}
	return result, nil
}
