package store

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/serroba/safelink/internal/shortener"
)

const pgErrUniqueViolation = "23505"

//go:embed migrations/*.sql
var migrations embed.FS

// Migrate applies every embedded schema file in name order. Files are idempotent.
func Migrate(ctx context.Context, pool *pgxpool.Pool) ([]string, error) {
	names, err := fs.Glob(migrations, "migrations/*.sql")
	if err != nil {
		return nil, err
	}

	sort.Strings(names)

	for _, name := range names {
		body, err := migrations.ReadFile(name)
		if err != nil {
			return nil, err
		}

		if _, err := pool.Exec(ctx, string(body)); err != nil {
			return nil, fmt.Errorf("apply %s: %w", name, err)
		}
	}

	return names, nil
}

// PostgresStore is a PostgreSQL implementation of shortener.Repository.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed link store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (p *PostgresStore) Insert(ctx context.Context, link *shortener.ShortLink) error {
	query := `
		INSERT INTO short_links (owner_id, original_url, created_at)
		VALUES ($1, $2, $3)
		RETURNING id
	`

	return p.pool.QueryRow(ctx, query, link.OwnerID, link.OriginalURL, link.CreatedAt).Scan(&link.ID)
}

func (p *PostgresStore) AttachCode(ctx context.Context, id int64, code shortener.Code) error {
	query := `
		UPDATE short_links
		SET code = $2
		WHERE id = $1 AND (code IS NULL OR code = $2)
	`

	tag, err := p.pool.Exec(ctx, query, id, string(code))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgErrUniqueViolation {
			return shortener.ErrCodeConflict
		}

		return err
	}

	if tag.RowsAffected() == 1 {
		return nil
	}

	var exists bool
	if err := p.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM short_links WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}

	if !exists {
		return shortener.ErrNotFound
	}

	return shortener.ErrCodeConflict
}

func (p *PostgresStore) Delete(ctx context.Context, id int64) error {
	_, err := p.pool.Exec(ctx, `DELETE FROM short_links WHERE id = $1`, id)

	return err
}

func (p *PostgresStore) GetByCode(ctx context.Context, code shortener.Code) (*shortener.ShortLink, error) {
	query := `
		SELECT id, owner_id, original_url, code, created_at
		FROM short_links
		WHERE code = $1
	`

	link, err := scanLink(p.pool.QueryRow(ctx, query, string(code)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, shortener.ErrNotFound
		}

		return nil, err
	}

	return link, nil
}

func (p *PostgresStore) CountByOwner(ctx context.Context, ownerID string) (int64, error) {
	var count int64

	err := p.pool.QueryRow(ctx, `SELECT count(*) FROM short_links WHERE owner_id = $1`, ownerID).Scan(&count)

	return count, err
}

func (p *PostgresStore) ListByOwner(ctx context.Context, ownerID string, limit int) ([]*shortener.ShortLink, error) {
	query := `
		SELECT id, owner_id, original_url, code, created_at
		FROM short_links
		WHERE owner_id = $1 AND code IS NOT NULL
		ORDER BY id DESC
		LIMIT $2
	`

	if limit <= 0 {
		limit = shortener.DefaultListLimit
	}

	rows, err := p.pool.Query(ctx, query, ownerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []*shortener.ShortLink

	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, err
		}

		links = append(links, link)
	}

	return links, rows.Err()
}

func scanLink(row pgx.Row) (*shortener.ShortLink, error) {
	var (
		link shortener.ShortLink
		code string
	)

	if err := row.Scan(&link.ID, &link.OwnerID, &link.OriginalURL, &code, &link.CreatedAt); err != nil {
		return nil, err
	}

	link.Code = shortener.Code(code)

	return &link, nil
}

// Compile-time check.
var _ shortener.Repository = (*PostgresStore)(nil)
