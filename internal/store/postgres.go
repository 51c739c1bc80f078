package store

import (
	"context"
	"database/sql"
	"embed"
	"fmt"

	"github.com/pressly/goose/v3"

	_ "github.com/jackc/pgx/v5/stdlib"
)

//go:embed pgmigrations/*.sql
var pgMigrations embed.FS

// PostgresStore implements Store backed by PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore opens a PostgreSQL connection and runs migrations.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging postgres: %w", err)
	}

	goose.SetBaseFS(pgMigrations)
	if err := goose.SetDialect("postgres"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("setting goose dialect: %w", err)
	}
	if err := goose.Up(db, "pgmigrations"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// DB returns the underlying database connection for migration commands.
func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Create(ctx context.Context, q *StoredQuery) error {
	forecast, placesJSON, videos, err := marshalLists(q)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, replacePlaceholders(`
		INSERT INTO stored_queries (`+queryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
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

func (s *PostgresStore) Get(ctx context.Context, id string) (*StoredQuery, error) {
	row := s.db.QueryRowContext(ctx, replacePlaceholders(`
		SELECT `+queryColumns+`
		FROM stored_queries WHERE id = ?`), id)

	q, err := scanStoredQuery(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting stored query: %w", err)
	}
	return q, nil
}

func (s *PostgresStore) Update(ctx context.Context, q *StoredQuery) error {
	forecast, placesJSON, videos, err := marshalLists(q)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, replacePlaceholders(`
		UPDATE stored_queries SET
			input=?, name=?, country=?, latitude=?, longitude=?,
			temperature=?, humidity=?, wind_speed=?, description=?, observed_at=?,
			forecast=?, places=?, videos=?, updated_at=?
		WHERE id=?`),
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

func (s *PostgresStore) UpdateFields(ctx context.Context, id string, f Fields) (*StoredQuery, error) {
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

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, replacePlaceholders(`DELETE FROM stored_queries WHERE id = ?`), id)
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

func (s *PostgresStore) List(ctx context.Context) ([]StoredQuery, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+queryColumns+`
		FROM stored_queries ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("listing stored queries: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	return scanStoredQueries(rows)
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
