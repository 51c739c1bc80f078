package store

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// SQLiteStore implements Store backed by SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens a SQLite database, sets file permissions, and runs migrations.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	dir := filepath.Dir(dsn)
	if dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return nil, fmt.Errorf("creating db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite: %w", err)
	}

	// Set pragmas for performance and safety.
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("setting pragma %q: %w", pragma, err)
		}
	}

	// Set file permissions to 0600.
	if err := os.Chmod(dsn, 0600); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("setting file permissions: %w", err)
	}

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("setting goose dialect: %w", err)
	}
	if err := goose.Up(db, "migrations"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// DB returns the underlying database connection for migration commands.
func (s *SQLiteStore) DB() *sql.DB {
	return s.db
}

const queryColumns = `id, input, name, country, latitude, longitude,
	temperature, humidity, wind_speed, description, observed_at,
	forecast, places, videos, created_at, updated_at`

func (s *SQLiteStore) Create(ctx context.Context, q *StoredQuery) error {
	forecast, placesJSON, videos, err := marshalLists(q)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO stored_queries (`+queryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		q.ID, q.Input, q.Location.Name, q.Location.Country, q.Location.Lat, q.Location.Lon,
		q.Conditions.Temperature, q.Conditions.Humidity, q.Conditions.WindSpeed,
		q.Conditions.Description, q.Conditions.ObservedAt.UTC(),
		forecast, placesJSON, videos,
		q.CreatedAt.UTC(), q.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("saving stored query: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*StoredQuery, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+queryColumns+`
		FROM stored_queries WHERE id = ?`, id)

	q, err := scanStoredQuery(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting stored query: %w", err)
	}
	return q, nil
}

func (s *SQLiteStore) Update(ctx context.Context, q *StoredQuery) error {
	forecast, placesJSON, videos, err := marshalLists(q)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE stored_queries SET
			input=?, name=?, country=?, latitude=?, longitude=?,
			temperature=?, humidity=?, wind_speed=?, description=?, observed_at=?,
			forecast=?, places=?, videos=?, updated_at=?
		WHERE id=?`,
		q.Input, q.Location.Name, q.Location.Country, q.Location.Lat, q.Location.Lon,
		q.Conditions.Temperature, q.Conditions.Humidity, q.Conditions.WindSpeed,
		q.Conditions.Description, q.Conditions.ObservedAt.UTC(),
		forecast, placesJSON, videos, q.UpdatedAt.UTC(),
		q.ID,
	)
	if err != nil {
		return fmt.Errorf("updating stored query: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updating stored query: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) UpdateFields(ctx context.Context, id string, f Fields) (*StoredQuery, error) {
	q, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	applyFields(q, f)
	if err := s.Update(ctx, q); err != nil {
		return nil, err
	}
	return q, nil
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM stored_queries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("deleting stored query: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deleting stored query: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]StoredQuery, error) {
	// rowid preserves insertion order and survives updates.
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+queryColumns+`
		FROM stored_queries ORDER BY rowid`)
	if err != nil {
		return nil, fmt.Errorf("listing stored queries: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	return scanStoredQueries(rows)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// --- Shared helpers ---

type scanner interface {
	Scan(dest ...any) error
}

// parseTimestamp handles both time.Time and string timestamp values from SQLite.
func parseTimestamp(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		for _, layout := range []string{
			time.RFC3339Nano,
			time.RFC3339,
			"2006-01-02 15:04:05.999999999-07:00",
			"2006-01-02 15:04:05+00:00",
			"2006-01-02 15:04:05 +0000 UTC",
			"2006-01-02 15:04:05",
			"2006-01-02",
		} {
			if ts, err := time.Parse(layout, t); err == nil {
				return ts, nil
			}
		}
		return time.Time{}, fmt.Errorf("unable to parse timestamp: %q", t)
	default:
		return time.Time{}, fmt.Errorf("unexpected timestamp type: %T", v)
	}
}

func marshalLists(q *StoredQuery) (forecast, placesJSON, videos string, err error) {
	fc, err := json.Marshal(q.Forecast)
	if err != nil {
		return "", "", "", fmt.Errorf("encoding forecast: %w", err)
	}
	pl, err := json.Marshal(q.Places)
	if err != nil {
		return "", "", "", fmt.Errorf("encoding places: %w", err)
	}
	vd, err := json.Marshal(q.Videos)
	if err != nil {
		return "", "", "", fmt.Errorf("encoding videos: %w", err)
	}
	return string(fc), string(pl), string(vd), nil
}

func scanStoredQuery(row scanner) (*StoredQuery, error) {
	var q StoredQuery
	var observedRaw, createdRaw, updatedRaw any
	var forecast, placesJSON, videos string
	err := row.Scan(
		&q.ID, &q.Input, &q.Location.Name, &q.Location.Country, &q.Location.Lat, &q.Location.Lon,
		&q.Conditions.Temperature, &q.Conditions.Humidity, &q.Conditions.WindSpeed,
		&q.Conditions.Description, &observedRaw,
		&forecast, &placesJSON, &videos,
		&createdRaw, &updatedRaw,
	)
	if err != nil {
		return nil, err
	}

	if q.Conditions.ObservedAt, err = parseTimestamp(observedRaw); err != nil {
		return nil, fmt.Errorf("parsing observed_at: %w", err)
	}
	if q.CreatedAt, err = parseTimestamp(createdRaw); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if q.UpdatedAt, err = parseTimestamp(updatedRaw); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}

	if err := json.Unmarshal([]byte(forecast), &q.Forecast); err != nil {
		return nil, fmt.Errorf("decoding forecast: %w", err)
	}
	if err := json.Unmarshal([]byte(placesJSON), &q.Places); err != nil {
		return nil, fmt.Errorf("decoding places: %w", err)
	}
	if err := json.Unmarshal([]byte(videos), &q.Videos); err != nil {
		return nil, fmt.Errorf("decoding videos: %w", err)
	}
	return &q, nil
}

func scanStoredQueries(rows *sql.Rows) ([]StoredQuery, error) {
	var result []StoredQuery
	for rows.Next() {
		q, err := scanStoredQuery(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning stored query: %w", err)
		}
		result = append(result, *q)
	}
	return result, rows.Err()
}

// replacePlaceholders converts ? to $1, $2, $3 etc for postgres.
func replacePlaceholders(query string) string {
	var b strings.Builder
	b.Grow(len(query))
	n := 1
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			fmt.Fprintf(&b, "$%d", n)
			n++
		} else {
			b.WriteByte(query[i])
		}
	}
	return b.String()
}
