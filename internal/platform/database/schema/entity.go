// Copyright (c) 2026 Bestiary. All rights reserved.

package schema

// RefEntityTable represents the 'entities' table
type RefEntityTable struct {
	Table        string
	ID           string
	Name         string
	Description  string
	Habitat      string
	IsLegendary  string
	Translations string
	CreatedAt    string
	UpdatedAt    string
}

// RefEntity is the schema definition for entities
var RefEntity = RefEntityTable{
	Table:        "entities",
	ID:           "id",
	Name:         "name",
	Description:  "description",
	Habitat:      "habitat",
	IsLegendary:  "islegendary",
	Translations: "translations",
	CreatedAt:    "createdat",
	UpdatedAt:    "updatedat",
}

func (t RefEntityTable) Columns() []string {
	return []string{t.ID, t.Name, t.Description, t.Habitat, t.IsLegendary, t.Translations, t.CreatedAt, t.UpdatedAt}
}
