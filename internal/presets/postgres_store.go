package presets

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/rpattn/tablekit/internal/domain"
)

// PGX is the subset of *pgxpool.Pool the Postgres store needs.
type PGX interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

const presetColumns = `id, owner_id, table_name, name, filters, is_default, created_at, updated_at`

// PostgresStore keeps presets in the table_filter_presets table.
type PostgresStore struct {
	db PGX
}

// NewPostgresStore creates a store on top of a pgx pool.
func NewPostgresStore(db PGX) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, preset domain.FilterPreset) (domain.FilterPreset, error) {
	if preset.ID == uuid.Nil {
		preset.ID = uuid.New()
	}
	filters, err := preset.FiltersToJSON()
	if err != nil {
		return domain.FilterPreset{}, fmt.Errorf("failed to marshal preset filters: %w", err)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return domain.FilterPreset{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if preset.IsDefault {
		_, err := tx.Exec(ctx,
			`UPDATE table_filter_presets SET is_default = FALSE, updated_at = NOW()
			 WHERE owner_id = $1 AND table_name = $2 AND is_default`,
			preset.OwnerID, preset.TableName)
		if err != nil {
			return domain.FilterPreset{}, fmt.Errorf("failed to clear default preset: %w", err)
		}
	}

	row := tx.QueryRow(ctx,
		`INSERT INTO table_filter_presets (id, owner_id, table_name, name, filters, is_default, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		 RETURNING `+presetColumns,
		preset.ID, preset.OwnerID, preset.TableName, preset.Name, filters, preset.IsDefault, preset.CreatedAt, preset.UpdatedAt)
	created, err := scanPreset(row)
	if err != nil {
		return domain.FilterPreset{}, fmt.Errorf("failed to create preset: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return domain.FilterPreset{}, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return created, nil
}

func (s *PostgresStore) Get(ctx context.Context, id uuid.UUID) (domain.FilterPreset, error) {
	row := s.db.QueryRow(ctx, `SELECT `+presetColumns+` FROM table_filter_presets WHERE id = $1`, id)
	preset, err := scanPreset(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.FilterPreset{}, fmt.Errorf("preset %s: %w", id, domain.ErrRecordNotFound)
	}
	if err != nil {
		return domain.FilterPreset{}, fmt.Errorf("failed to get preset: %w", err)
	}
	return preset, nil
}

func (s *PostgresStore) ListByOwner(ctx context.Context, owner, table string) ([]domain.FilterPreset, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+presetColumns+` FROM table_filter_presets
		 WHERE owner_id = $1 AND table_name = $2
		 ORDER BY name, created_at`,
		owner, table)
	if err != nil {
		return nil, fmt.Errorf("failed to list presets: %w", err)
	}
	defer rows.Close()

	presets := make([]domain.FilterPreset, 0)
	for rows.Next() {
		preset, err := scanPreset(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan preset: %w", err)
		}
		presets = append(presets, preset)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate presets: %w", err)
	}
	return presets, nil
}

func (s *PostgresStore) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM table_filter_presets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete preset: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("preset %s: %w", id, domain.ErrRecordNotFound)
	}
	return nil
}

func (s *PostgresStore) DefaultFor(ctx context.Context, owner, table string) (domain.FilterPreset, bool, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+presetColumns+` FROM table_filter_presets
		 WHERE owner_id = $1 AND table_name = $2 AND is_default
		 ORDER BY updated_at DESC
		 LIMIT 1`,
		owner, table)
	preset, err := scanPreset(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.FilterPreset{}, false, nil
	}
	if err != nil {
		return domain.FilterPreset{}, false, fmt.Errorf("failed to get default preset: %w", err)
	}
	return preset, true, nil
}

func scanPreset(row pgx.Row) (domain.FilterPreset, error) {
	var (
		preset  domain.FilterPreset
		filters []byte
	)
	err := row.Scan(
		&preset.ID,
		&preset.OwnerID,
		&preset.TableName,
		&preset.Name,
		&filters,
		&preset.IsDefault,
		&preset.CreatedAt,
		&preset.UpdatedAt,
	)
	if err != nil {
		return domain.FilterPreset{}, err
	}
	preset.Filters, err = domain.PresetFiltersFromJSON(filters)
	if err != nil {
		return domain.FilterPreset{}, fmt.Errorf("failed to unmarshal preset filters: %w", err)
	}
	return preset, nil
}
