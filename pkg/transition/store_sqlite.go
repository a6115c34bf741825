package transition

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// SQLiteEventStore persists system events in SQLite.
type SQLiteEventStore struct {
	db *sql.DB
}

// NewSQLiteEventStore creates a SQLite-backed event store and ensures schema.
func NewSQLiteEventStore(db *sql.DB) (*SQLiteEventStore, error) {
	if db == nil {
		return nil, errors.New("db is nil")
	}
	if err := ensureEventSchema(db); err != nil {
		return nil, err
	}
	return &SQLiteEventStore{db: db}, nil
}

// CreateSystemEvent stores a single event and returns it with its generated
// id and timestamp.
func (s *SQLiteEventStore) CreateSystemEvent(ctx context.Context, workspaceID, taskID, event, message string, metadata map[string]string) (Event, error) {
	e := Event{
		ID:          uuid.NewString(),
		Type:        EventTypeSystem,
		WorkspaceID: workspaceID,
		TaskID:      taskID,
		Event:       event,
		Message:     message,
		Metadata:    cloneMetadata(metadata),
		Timestamp:   time.Now().UTC(),
	}
	metadataJSON, err := encodeMetadata(e.Metadata)
	if err != nil {
		return Event{}, err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO system_events (
			id, type, workspace_id, task_id, event, message, metadata_json, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		e.ID,
		e.Type,
		e.WorkspaceID,
		e.TaskID,
		e.Event,
		e.Message,
		string(metadataJSON),
		e.Timestamp,
	)
	if err != nil {
		return Event{}, err
	}
	return e, nil
}

// List returns events matching the filter in insertion order.
func (s *SQLiteEventStore) List(ctx context.Context, filter EventFilter) ([]Event, error) {
	query := `
		SELECT id, type, workspace_id, task_id, event, message, metadata_json, timestamp
		FROM system_events
	`
	var args []any
	where := ""
	addFilter := func(clause string, value any) {
		if where == "" {
			where = " WHERE " + clause
		} else {
			where += " AND " + clause
		}
		args = append(args, value)
	}
	if filter.WorkspaceID != "" {
		addFilter("workspace_id = ?", filter.WorkspaceID)
	}
	if filter.TaskID != "" {
		addFilter("task_id = ?", filter.TaskID)
	}
	if filter.Event != "" {
		addFilter("event = ?", filter.Event)
	}
	query += where + " ORDER BY timestamp ASC, rowid ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var (
			e            Event
			metadataJSON string
			ts           sql.NullTime
		)
		if err := rows.Scan(
			&e.ID,
			&e.Type,
			&e.WorkspaceID,
			&e.TaskID,
			&e.Event,
			&e.Message,
			&metadataJSON,
			&ts,
		); err != nil {
			return nil, err
		}
		if metadataJSON != "" {
			if metadata, err := decodeMetadata([]byte(metadataJSON)); err == nil {
				e.Metadata = metadata
			}
		}
		if ts.Valid {
			e.Timestamp = ts.Time
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

func encodeMetadata(metadata map[string]string) ([]byte, error) {
	if metadata == nil {
		return []byte("null"), nil
	}
	return json.Marshal(metadata)
}

func decodeMetadata(raw []byte) (map[string]string, error) {
	var out map[string]string
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func ensureEventSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS system_events (
			id TEXT PRIMARY KEY,
			type TEXT NOT NULL,
			workspace_id TEXT NOT NULL,
			task_id TEXT NOT NULL,
			event TEXT NOT NULL,
			message TEXT,
			metadata_json TEXT,
			timestamp TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_system_events_workspace ON system_events(workspace_id);
		CREATE INDEX IF NOT EXISTS idx_system_events_task ON system_events(task_id);
		CREATE INDEX IF NOT EXISTS idx_system_events_event ON system_events(event);
	`)
	return err
}
