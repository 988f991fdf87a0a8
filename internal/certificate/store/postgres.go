package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"civreg/internal/certificate/models"
	"civreg/pkg/platform/sentinel"

	"github.com/jackc/pgx/v5/pgconn"
)

// PostgresStore persists certificates in the certificates table.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed certificate store.
func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Insert writes the record and document as one row and returns the
// identity assigned by the database.
func (s *PostgresStore) Insert(ctx context.Context, record models.Record, document []byte) (int64, error) {
	payload, err := record.MarshalJSON()
	if err != nil {
		return 0, fmt.Errorf("%w: encode record: %w", models.ErrStorageFailure, err)
	}
	query := `
		INSERT INTO certificates (payload, document)
		VALUES ($1::json, $2)
		RETURNING id
	`
	var id int64
	if err := s.db.QueryRowContext(ctx, query, string(payload), nullableBytes(document)).Scan(&id); err != nil {
		return 0, storageError("insert certificate", err)
	}
	return id, nil
}

// FindRecord returns the stored record.
func (s *PostgresStore) FindRecord(ctx context.Context, id int64) (models.Record, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM certificates WHERE id = $1`, id).Scan(&payload)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Record{}, sentinel.ErrNotFound
		}
		return models.Record{}, storageError("find certificate record", err)
	}
	record, err := models.ParseRecord(payload)
	if err != nil {
		return models.Record{}, fmt.Errorf("%w: decode certificate %d: %w", models.ErrStorageFailure, id, err)
	}
	return record, nil
}

// FindDocument returns the stored document bytes. Rows without a document
// are reported as not found.
func (s *PostgresStore) FindDocument(ctx context.Context, id int64) ([]byte, error) {
	var document []byte
	err := s.db.QueryRowContext(ctx, `SELECT document FROM certificates WHERE id = $1`, id).Scan(&document)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, storageError("find certificate document", err)
	}
	if len(document) == 0 {
		return nil, sentinel.ErrNotFound
	}
	return document, nil
}

// List returns certificate summaries, newest first.
func (s *PostgresStore) List(ctx context.Context, limit, offset int) ([]models.Summary, error) {
	query := `
		SELECT id, payload, document IS NOT NULL, created_at
		FROM certificates
		ORDER BY created_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, storageError("list certificates", err)
	}
	defer rows.Close()

	var out []models.Summary
	for rows.Next() {
		var (
			sum       models.Summary
			payload   []byte
			createdAt time.Time
		)
		if err := rows.Scan(&sum.ID, &payload, &sum.HasDocument, &createdAt); err != nil {
			return nil, storageError("scan certificate", err)
		}
		record, err := models.ParseRecord(payload)
		if err != nil {
			return nil, fmt.Errorf("%w: decode certificate %d: %w", models.ErrStorageFailure, sum.ID, err)
		}
		sum.Record = record
		sum.CreatedAt = createdAt.UTC()
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("iterate certificates", err)
	}
	return out, nil
}

func nullableBytes(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}

// storageError tags err as a storage failure and surfaces the SQLSTATE when
// Postgres reported one.
func storageError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return fmt.Errorf("%w: %s (sqlstate %s): %w", models.ErrStorageFailure, op, pgErr.Code, err)
	}
	return fmt.Errorf("%w: %s: %w", models.ErrStorageFailure, op, err)
}
