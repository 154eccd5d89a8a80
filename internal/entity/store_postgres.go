// Copyright (c) 2026 Bestiary. All rights reserved.

package entity

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/buivan/bestiary/internal/platform/apperr"
	"github.com/buivan/bestiary/internal/platform/database/schema"
	"github.com/buivan/bestiary/internal/platform/dberr"
	"github.com/buivan/bestiary/pkg/normalize"
)

// PostgresRepository is the durable [Repository] implementation.
type PostgresRepository struct {
	db *pgxpool.Pool
}

func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (repository *PostgresRepository) GetByName(ctx context.Context, name string) (*Entity, error) {
	if strings.TrimSpace(name) == "" {
		return nil, apperr.ValidationError("Entity name is required")
	}
	normalized := normalize.Name(name)

	query := fmt.Sprintf(`
		SELECT %s, %s, %s, %s, %s, %s, %s, %s
		FROM %s
		WHERE LOWER(%s) = $1
	`,
		schema.RefEntity.ID, schema.RefEntity.Name, schema.RefEntity.Description,
		schema.RefEntity.Habitat, schema.RefEntity.IsLegendary, schema.RefEntity.Translations,
		schema.RefEntity.CreatedAt, schema.RefEntity.UpdatedAt,
		schema.RefEntity.Table, schema.RefEntity.Name,
	)

	var (
		id           int64
		storedName   string
		description  string
		habitat      string
		legendary    bool
		translations map[TranslationType]string
		createdAt    time.Time
		updatedAt    *time.Time
	)

	err := repository.db.QueryRow(ctx, query, normalized).Scan(
		&id, &storedName, &description, &habitat, &legendary, &translations, &createdAt, &updatedAt,
	)
	if err != nil {
		wrapped := dberr.Wrap(err, "get_entity_by_name")
		if apperr.Is(wrapped, apperr.CodeNotFound) {
			return nil, apperr.NotFound(fmt.Sprintf("Entity %q", normalized))
		}
		return nil, wrapped
	}

	return Rehydrate(id, storedName, description, habitat, legendary, translations, createdAt, updatedAt)
}

func (repository *PostgresRepository) Save(ctx context.Context, e *Entity) (*Entity, error) {
	if e == nil {
		return nil, apperr.ValidationError("Entity is required")
	}

	// Upsert keyed by id. The description column is deliberately absent from
	// the UPDATE set: it is fixed at creation.
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s, %s, %s, %s, %s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (%s) DO UPDATE SET
			%s = EXCLUDED.%s,
			%s = EXCLUDED.%s,
			%s = EXCLUDED.%s,
			%s = EXCLUDED.%s
	`,
		schema.RefEntity.Table,
		schema.RefEntity.ID, schema.RefEntity.Name, schema.RefEntity.Description,
		schema.RefEntity.Habitat, schema.RefEntity.IsLegendary, schema.RefEntity.Translations,
		schema.RefEntity.CreatedAt, schema.RefEntity.UpdatedAt,
		schema.RefEntity.ID,
		schema.RefEntity.Habitat, schema.RefEntity.Habitat,
		schema.RefEntity.IsLegendary, schema.RefEntity.IsLegendary,
		schema.RefEntity.Translations, schema.RefEntity.Translations,
		schema.RefEntity.UpdatedAt, schema.RefEntity.UpdatedAt,
	)

	_, err := repository.db.Exec(ctx, query,
		e.ID(), e.Name(), e.Description(), e.Habitat(), e.IsLegendary(),
		e.Translations(), e.CreatedAt(), e.UpdatedAt(),
	)
	if err != nil {
		if dberr.IsUniqueViolation(err) {
			return nil, apperr.Persistence(
				fmt.Sprintf("An entity named %q already exists", e.Name()), err)
		}
		return nil, dberr.Wrap(err, "save_entity")
	}

	return e, nil
}
