// Copyright (c) 2026 Bestiary. All rights reserved.

package entity

import "context"

// Repository is the storage contract for entities.
//
// Two implementations exist: [PostgresRepository] owns the durable copy, and
// [CachedRepository] decorates any Repository with the two cache tiers. The
// service layer only ever sees this interface.
type Repository interface {
	// GetByName finds an entity by case-insensitive name match.
	// Returns a VALIDATION_ERROR for a blank name and NOT_FOUND when absent.
	GetByName(ctx context.Context, name string) (*Entity, error)

	// Save upserts by id and returns the stored entity. The description is
	// fixed at creation and never overwritten by a save.
	Save(ctx context.Context, e *Entity) (*Entity, error)
}
