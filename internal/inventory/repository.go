package inventory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
)

// ActorRecord is one persisted actor row: the storage-assigned id and
// the raw JSON config.
type ActorRecord struct {
	ID     string
	Config string
}

// Repository defines the interface for inventory persistence.
// This abstraction allows different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
//
// All operations are best-effort from the registry's point of view:
// failures are logged and swallowed, in-memory state is not rolled back.
type Repository interface {
	// LoadActors returns every persisted actor in id order.
	LoadActors(ctx context.Context) ([]ActorRecord, error)

	// SaveActor inserts or updates an actor config. An empty or
	// non-positive id means insert; the returned id is the row id.
	SaveActor(ctx context.Context, id, config string) (string, error)

	// DeleteActor removes an actor row.
	DeleteActor(ctx context.Context, id string) error

	// Module names
	SaveModuleName(ctx context.Context, nid, mal, name string) error
	GetModuleName(ctx context.Context, nid, mal string) (string, error)
	DeleteModule(ctx context.Context, nid, mal string) error

	// LogSensorData appends one sensor reading.
	LogSensorData(ctx context.Context, sensor, value string) error
}

// SQLiteRepository implements Repository using SQLite.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// LoadActors returns every persisted actor in id order.
func (r *SQLiteRepository) LoadActors(ctx context.Context) ([]ActorRecord, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, config FROM actors ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying actors: %w", err)
	}
	defer rows.Close()

	var records []ActorRecord
	for rows.Next() {
		var id int64
		var config string
		if err := rows.Scan(&id, &config); err != nil {
			return nil, fmt.Errorf("scanning actor row: %w", err)
		}
		records = append(records, ActorRecord{
			ID:     strconv.FormatInt(id, 10),
			Config: config,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating actor rows: %w", err)
	}
	return records, nil
}

// SaveActor inserts or updates an actor config, returning the row id.
func (r *SQLiteRepository) SaveActor(ctx context.Context, id, config string) (string, error) {
	numeric, err := strconv.ParseInt(id, 10, 64)
	if err != nil || numeric <= 0 {
		// Insert: unsaved actors carry an empty or negative id.
		result, err := r.db.ExecContext(ctx,
			`INSERT INTO actors (config) VALUES (?)`, config)
		if err != nil {
			return id, fmt.Errorf("inserting actor: %w", err)
		}
		rowID, err := result.LastInsertId()
		if err != nil {
			return id, fmt.Errorf("reading actor row id: %w", err)
		}
		return strconv.FormatInt(rowID, 10), nil
	}

	if _, err := r.db.ExecContext(ctx,
		`UPDATE actors SET config = ? WHERE id = ?`, config, numeric); err != nil {
		return id, fmt.Errorf("updating actor %s: %w", id, err)
	}
	return id, nil
}

// DeleteActor removes an actor row.
func (r *SQLiteRepository) DeleteActor(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM actors WHERE id = ?`, id); err != nil {
		return fmt.Errorf("deleting actor %s: %w", id, err)
	}
	return nil
}

// SaveModuleName upserts the operator-assigned name of a module.
func (r *SQLiteRepository) SaveModuleName(ctx context.Context, nid, mal, name string) error {
	if _, err := r.db.ExecContext(ctx,
		`INSERT INTO modules (nid, mal, name) VALUES (?, ?, ?)
		 ON CONFLICT(nid, mal) DO UPDATE SET name = excluded.name`,
		nid, mal, name); err != nil {
		return fmt.Errorf("storing module %s/%s: %w", nid, mal, err)
	}
	return nil
}

// GetModuleName loads the stored name of a module.
// Returns ErrModuleNotFound when the module has no stored name.
func (r *SQLiteRepository) GetModuleName(ctx context.Context, nid, mal string) (string, error) {
	var name string
	err := r.db.QueryRowContext(ctx,
		`SELECT name FROM modules WHERE nid = ? AND mal = ?`, nid, mal).Scan(&name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrModuleNotFound
		}
		return "", fmt.Errorf("querying module name %s/%s: %w", nid, mal, err)
	}
	return name, nil
}

// DeleteModule removes a module's stored name.
func (r *SQLiteRepository) DeleteModule(ctx context.Context, nid, mal string) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM modules WHERE nid = ? AND mal = ?`, nid, mal); err != nil {
		return fmt.Errorf("deleting module %s/%s: %w", nid, mal, err)
	}
	return nil
}

// LogSensorData appends one sensor reading to the sens_data table.
func (r *SQLiteRepository) LogSensorData(ctx context.Context, sensor, value string) error {
	if _, err := r.db.ExecContext(ctx,
		`INSERT INTO sens_data (sensor, value) VALUES (?, ?)`, sensor, value); err != nil {
		return fmt.Errorf("logging sensor data for %s: %w", sensor, err)
	}
	return nil
}
