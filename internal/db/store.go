package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/Joseda-hg/tasktracker/internal/model"
)

const nextIDKey = "next_id"

// Store keeps the tracker snapshot in three tables: entities, history and
// meta. Every save rewrites all of them in one transaction.
type Store struct {
	DB *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{DB: db}
}

func (s *Store) Close() error {
	return s.DB.Close()
}

func (s *Store) Save(ctx context.Context, snapshot model.Snapshot) (err error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, table := range []string{"entities", "history", "meta"} {
		if _, err = tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	if err = insertEntities(ctx, tx, snapshot.Rows()); err != nil {
		return err
	}
	if err = insertHistory(ctx, tx, snapshot.History); err != nil {
		return err
	}
	if _, err = tx.ExecContext(ctx, "INSERT INTO meta (key, value) VALUES (?, ?)",
		nextIDKey, strconv.FormatInt(snapshot.NextID, 10)); err != nil {
		return fmt.Errorf("save next id: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

func insertEntities(ctx context.Context, tx *sql.Tx, rows []model.Row) error {
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO entities
		(id, position, kind, name, status, description, start_time, duration, epic_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare entity insert: %w", err)
	}
	defer stmt.Close()

	for position, row := range rows {
		var start sql.NullString
		if row.StartTime != nil {
			start = sql.NullString{String: row.StartTime.UTC().Format(time.RFC3339), Valid: true}
		}
		var epicID sql.NullInt64
		if row.Kind == model.KindSubtask {
			epicID = sql.NullInt64{Int64: row.EpicID, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx, row.ID, position, string(row.Kind), row.Name,
			string(row.Status), row.Description, start, row.Duration, epicID); err != nil {
			return fmt.Errorf("insert %s %d: %w", row.Kind, row.ID, err)
		}
	}
	return nil
}

func insertHistory(ctx context.Context, tx *sql.Tx, history []int64) error {
	stmt, err := tx.PrepareContext(ctx, "INSERT INTO history (position, entity_id) VALUES (?, ?)")
	if err != nil {
		return fmt.Errorf("prepare history insert: %w", err)
	}
	defer stmt.Close()

	for position, id := range history {
		if _, err := stmt.ExecContext(ctx, position, id); err != nil {
			return fmt.Errorf("insert history entry %d: %w", id, err)
		}
	}
	return nil
}

func (s *Store) Load(ctx context.Context) (model.Snapshot, error) {
	rows, err := s.loadEntities(ctx)
	if err != nil {
		return model.Snapshot{}, err
	}
	history, err := s.loadHistory(ctx)
	if err != nil {
		return model.Snapshot{}, err
	}
	nextID, err := s.loadNextID(ctx)
	if err != nil {
		return model.Snapshot{}, err
	}
	return model.SnapshotFromRows(rows, history, nextID)
}

func (s *Store) loadEntities(ctx context.Context) ([]model.Row, error) {
	result, err := s.DB.QueryContext(ctx, `SELECT id, kind, name, status, description, start_time, duration, epic_id
		FROM entities ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("query entities: %w", err)
	}
	defer result.Close()

	var rows []model.Row
	for result.Next() {
		var (
			row    model.Row
			kind   string
			status string
			start  sql.NullString
			epicID sql.NullInt64
		)
		if err := result.Scan(&row.ID, &kind, &row.Name, &status, &row.Description, &start, &row.Duration, &epicID); err != nil {
			return nil, fmt.Errorf("scan entity: %w", err)
		}
		if row.Kind, err = model.ParseKind(kind); err != nil {
			return nil, fmt.Errorf("entity %d: %w", row.ID, err)
		}
		if row.Status, err = model.ParseStatus(status); err != nil {
			return nil, fmt.Errorf("entity %d: %w", row.ID, err)
		}
		if start.Valid {
			parsed, err := time.Parse(time.RFC3339, start.String)
			if err != nil {
				return nil, fmt.Errorf("entity %d start time: %w", row.ID, err)
			}
			row.StartTime = &parsed
		}
		if epicID.Valid {
			row.EpicID = epicID.Int64
		}
		rows = append(rows, row)
	}
	return rows, result.Err()
}

func (s *Store) loadHistory(ctx context.Context) ([]int64, error) {
	result, err := s.DB.QueryContext(ctx, "SELECT entity_id FROM history ORDER BY position")
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer result.Close()

	var history []int64
	for result.Next() {
		var id int64
		if err := result.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		history = append(history, id)
	}
	return history, result.Err()
}

func (s *Store) loadNextID(ctx context.Context) (int64, error) {
	var value string
	err := s.DB.QueryRowContext(ctx, "SELECT value FROM meta WHERE key = ?", nextIDKey).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("query next id: %w", err)
	}
	nextID, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse next id %q: %w", value, err)
	}
	return nextID, nil
}
