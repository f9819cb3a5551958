package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sydlexius/pitwall/internal/entity"
)

const aliasColumns = `id, entity_type, entity_id, alias, slug, scope, source, created_at`

// UpsertAlias records an alias. Aliases are append-only: when the
// (entity type, slug, scope) key already exists the row is left untouched and
// created is false.
func (s *Store) UpsertAlias(ctx context.Context, a *entity.Alias) (bool, error) {
	if a.Alias == "" || a.Slug == "" {
		return false, fmt.Errorf("alias text and slug are required")
	}
	if !a.EntityType.Valid() {
		return false, fmt.Errorf("alias %q: unknown entity type %q", a.Alias, a.EntityType)
	}
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = s.now()
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO aliases (`+aliasColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(entity_type, slug, scope) DO NOTHING
	`, a.ID, string(a.EntityType), a.EntityID, a.Alias, a.Slug, a.Scope, a.Source, a.CreatedAt.Format(time.RFC3339))
	if err != nil {
		return false, fmt.Errorf("inserting alias %s: %w", a.Slug, err)
	}
	n, _ := result.RowsAffected()
	return n > 0, nil
}

// ListAliases returns all aliases of one entity type in creation order.
func (s *Store) ListAliases(ctx context.Context, t entity.Type) ([]entity.Alias, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+aliasColumns+` FROM aliases WHERE entity_type = ? ORDER BY rowid`, string(t))
	if err != nil {
		return nil, fmt.Errorf("listing aliases: %w", err)
	}
	defer rows.Close() //nolint:errcheck

	var aliases []entity.Alias
	for rows.Next() {
		a, err := scanAlias(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning alias: %w", err)
		}
		aliases = append(aliases, *a)
	}
	return aliases, rows.Err()
}

// AliasesForEntity returns every alias recorded for one entity.
func (s *Store) AliasesForEntity(ctx context.Context, t entity.Type, entityID string) ([]entity.Alias, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+aliasColumns+` FROM aliases WHERE entity_type = ? AND entity_id = ? ORDER BY rowid`,
		string(t), entityID)
	if err != nil {
		return nil, fmt.Errorf("listing aliases for %s: %w", entityID, err)
	}
	defer rows.Close() //nolint:errcheck

	var aliases []entity.Alias
	for rows.Next() {
		a, err := scanAlias(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning alias: %w", err)
		}
		aliases = append(aliases, *a)
	}
	return aliases, rows.Err()
}

// AliasBySlug returns the alias for (type, slug, scope), or nil when absent.
func (s *Store) AliasBySlug(ctx context.Context, t entity.Type, slug, scope string) (*entity.Alias, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+aliasColumns+` FROM aliases WHERE entity_type = ? AND slug = ? AND scope = ?`,
		string(t), slug, scope)
	a, err := scanAlias(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting alias %s: %w", slug, err)
	}
	return a, nil
}

func scanAlias(row interface{ Scan(...any) error }) (*entity.Alias, error) {
	var a entity.Alias
	var entityType, createdAt string
	if err := row.Scan(&a.ID, &entityType, &a.EntityID, &a.Alias, &a.Slug, &a.Scope, &a.Source, &createdAt); err != nil {
		return nil, err
	}
	a.EntityType = entity.Type(entityType)
	a.CreatedAt = parseTime(createdAt)
	return &a, nil
}
