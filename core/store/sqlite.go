package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/fleetguard/fleetguard/core/model"
)

// SQLiteStore persists both logs to a single SQLite database. Each record
// is stored as a JSON document next to indexed columns for time-ordered
// reads. The seq column preserves arrival order for timestamp ties.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates the database at path and ensures schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	schema := `CREATE TABLE IF NOT EXISTS telemetry_records (
        seq INTEGER PRIMARY KEY AUTOINCREMENT,
        id TEXT NOT NULL UNIQUE,
        ts REAL NOT NULL,
        vehicle_id TEXT NOT NULL,
        record TEXT NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_telemetry_ts ON telemetry_records(ts);
    CREATE TABLE IF NOT EXISTS command_records (
        seq INTEGER PRIMARY KEY AUTOINCREMENT,
        id TEXT NOT NULL UNIQUE,
        ts REAL NOT NULL,
        vehicle_id TEXT NOT NULL,
        status TEXT NOT NULL,
        record TEXT NOT NULL
    );
    CREATE INDEX IF NOT EXISTS idx_command_ts ON command_records(ts);`
	if _, err := db.Exec(schema); err != nil {
		if cerr := db.Close(); cerr != nil {
			return nil, fmt.Errorf("close db: %v (schema err: %w)", cerr, err)
		}
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) InsertTelemetry(ctx context.Context, rec model.TelemetryRecord) (string, error) {
	rec.ID = uuid.NewString()
	b, err := json.Marshal(rec)
	if err != nil {
		return "", err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO telemetry_records (id, ts, vehicle_id, record) VALUES (?, ?, ?, ?)`,
		rec.ID, rec.Timestamp, rec.VehicleID, string(b))
	if err != nil {
		return "", fmt.Errorf("%w: insert telemetry: %v", ErrUnavailable, err)
	}
	return rec.ID, nil
}

func (s *SQLiteStore) RecentTelemetry(ctx context.Context, limit int) ([]model.TelemetryRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT record FROM telemetry_records ORDER BY ts DESC, seq DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: query telemetry: %v", ErrUnavailable, err)
	}
	defer func() { _ = rows.Close() }()
	var res []model.TelemetryRecord
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, err
		}
		var r model.TelemetryRecord
		if err := json.Unmarshal([]byte(data), &r); err != nil {
			return nil, fmt.Errorf("unmarshal record: %w", err)
		}
		res = append(res, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *SQLiteStore) InsertCommand(ctx context.Context, rec model.CommandRecord) (string, error) {
	rec.ID = uuid.NewString()
	b, err := json.Marshal(rec)
	if err != nil {
		return "", err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO command_records (id, ts, vehicle_id, status, record) VALUES (?, ?, ?, ?, ?)`,
		rec.ID, rec.Timestamp, rec.VehicleID, string(rec.Status), string(b))
	if err != nil {
		return "", fmt.Errorf("%w: insert command: %v", ErrUnavailable, err)
	}
	return rec.ID, nil
}

func (s *SQLiteStore) RecentCommands(ctx context.Context, limit int) ([]model.CommandRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT status, record FROM command_records ORDER BY ts DESC, seq DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: query commands: %v", ErrUnavailable, err)
	}
	defer func() { _ = rows.Close() }()
	var res []model.CommandRecord
	for rows.Next() {
		var status, data string
		if err := rows.Scan(&status, &data); err != nil {
			return nil, err
		}
		var r model.CommandRecord
		if err := json.Unmarshal([]byte(data), &r); err != nil {
			return nil, fmt.Errorf("unmarshal record: %w", err)
		}
		// The status column is authoritative: agents may have reported a
		// delivery outcome after the document was written.
		r.Status = model.CommandStatus(status)
		res = append(res, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *SQLiteStore) UpdateCommandStatus(ctx context.Context, id string, status model.CommandStatus) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE command_records SET status = ? WHERE id = ?`, string(status), id)
	if err != nil {
		return fmt.Errorf("%w: update command: %v", ErrUnavailable, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error { return s.db.Close() }
