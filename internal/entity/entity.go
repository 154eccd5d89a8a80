// Copyright (c) 2026 Bestiary. All rights reserved.

package entity

import (
	"encoding/json"
	"maps"
	"time"

	"github.com/buivan/bestiary/internal/platform/validate"
)

// TranslationType identifies a stylistic rewrite of an entity description.
// The enumeration is closed: values outside it are rejected everywhere.
type TranslationType string

const (
	// TranslationNone is the sentinel for "no transformation". It is never a
	// valid key in an entity's translation map.
	TranslationNone TranslationType = "none"

	// TranslationShakespeare is the Early Modern English rewrite.
	TranslationShakespeare TranslationType = "shakespeare"

	// TranslationYoda is the object-subject-verb rewrite.
	TranslationYoda TranslationType = "yoda"
)

// Supported reports whether the type names an actual transformation.
func (t TranslationType) Supported() bool {
	return t == TranslationShakespeare || t == TranslationYoda
}

// String implements fmt.Stringer.
func (t TranslationType) String() string { return string(t) }

// Field names for validation details.
const (
	FieldID          = "id"
	FieldName        = "name"
	FieldStyle       = "style"
	FieldTranslation = "translation"
)

// Entity is the canonical record being looked up: a creature with a fixed
// description and a per-style map of rewritten descriptions.
//
// # Encapsulation
//
// All fields are unexported. Instances are built through the validating
// factories [New] and [Rehydrate] and mutated only through [AddTranslation]
// and [UpdateFrom], so an Entity in hand always satisfies its invariants:
// positive id, non-empty name, translation texts non-empty and keyed by a
// supported style.
type Entity struct {
	id           int64
	name         string
	description  string
	habitat      string
	legendary    bool
	translations map[TranslationType]string
	createdAt    time.Time
	updatedAt    *time.Time
}

// New creates an Entity from upstream-provider data.
//
// The id and name come from the upstream data provider and are immutable for
// the lifetime of the record; construction fails if id is not positive or
// name is empty.
func New(id int64, name, description, habitat string, legendary bool) (*Entity, error) {
	v := &validate.Validator{}
	v.Positive(FieldID, id).Required(FieldName, name)
	if err := v.Err(); err != nil {
		return nil, err
	}

	return &Entity{
		id:           id,
		name:         name,
		description:  description,
		habitat:      habitat,
		legendary:    legendary,
		translations: make(map[TranslationType]string),
		createdAt:    time.Now().UTC(),
	}, nil
}

// Rehydrate rebuilds an Entity from stored state. It applies the same
// invariants as [New] so corrupt rows cannot produce usable instances.
func Rehydrate(
	id int64,
	name, description, habitat string,
	legendary bool,
	translations map[TranslationType]string,
	createdAt time.Time,
	updatedAt *time.Time,
) (*Entity, error) {
	v := &validate.Validator{}
	v.Positive(FieldID, id).Required(FieldName, name)
	if err := v.Err(); err != nil {
		return nil, err
	}

	e := &Entity{
		id:           id,
		name:         name,
		description:  description,
		habitat:      habitat,
		legendary:    legendary,
		translations: make(map[TranslationType]string, len(translations)),
		createdAt:    createdAt,
		updatedAt:    updatedAt,
	}
	maps.Copy(e.translations, translations)
	return e, nil
}

// # Accessors

// ID returns the upstream-assigned identifier.
func (e *Entity) ID() int64 { return e.id }

// Name returns the natural lookup key. Comparison is case-insensitive but the
// original casing is preserved for display.
func (e *Entity) Name() string { return e.name }

// Description returns the original, untransformed text.
func (e *Entity) Description() string { return e.description }

// Habitat returns the mutable classification tag; may be empty.
func (e *Entity) Habitat() string { return e.habitat }

// IsLegendary reports the mutable classification flag.
func (e *Entity) IsLegendary() bool { return e.legendary }

// CreatedAt returns the construction timestamp.
func (e *Entity) CreatedAt() time.Time { return e.createdAt }

// UpdatedAt returns the last mutation timestamp, or nil if never mutated.
func (e *Entity) UpdatedAt() *time.Time { return e.updatedAt }

// Translation returns the stored rewrite for the given style, if present.
func (e *Entity) Translation(style TranslationType) (string, bool) {
	text, ok := e.translations[style]
	return text, ok
}

// Translations returns a copy of the style-to-text map.
func (e *Entity) Translations() map[TranslationType]string {
	out := make(map[TranslationType]string, len(e.translations))
	maps.Copy(out, e.translations)
	return out
}

// # Mutation

// AddTranslation records a rewritten description for a style.
//
// The style must be in the supported enumeration and the text non-empty.
// Adding a style that already exists replaces the value (last write wins).
func (e *Entity) AddTranslation(style TranslationType, text string) error {
	v := &validate.Validator{}
	v.Custom(FieldStyle, !style.Supported(), "Unsupported translation style")
	v.Required(FieldTranslation, text)
	if err := v.Err(); err != nil {
		return err
	}

	e.translations[style] = text
	e.touch()
	return nil
}

// UpdateFrom refreshes the mutable classification fields from a fresh
// upstream fetch. The timestamp only moves when something actually changed.
func (e *Entity) UpdateFrom(habitat string, legendary bool) {
	if e.habitat == habitat && e.legendary == legendary {
		return
	}
	e.habitat = habitat
	e.legendary = legendary
	e.touch()
}

// Clone returns an independent deep copy. Repositories hand out clones so
// cached instances are never mutated behind the cache's back.
func (e *Entity) Clone() *Entity {
	clone := *e
	clone.translations = make(map[TranslationType]string, len(e.translations))
	maps.Copy(clone.translations, e.translations)
	if e.updatedAt != nil {
		ts := *e.updatedAt
		clone.updatedAt = &ts
	}
	return &clone
}

func (e *Entity) touch() {
	now := time.Now().UTC()
	e.updatedAt = &now
}

// # Serialization
//
// The JSON form is used only by the cache tiers; the HTTP layer renders its
// own view documents.

type entityDoc struct {
	ID           int64                      `json:"id"`
	Name         string                     `json:"name"`
	Description  string                     `json:"description"`
	Habitat      string                     `json:"habitat"`
	IsLegendary  bool                       `json:"is_legendary"`
	Translations map[TranslationType]string `json:"translations"`
	CreatedAt    time.Time                  `json:"created_at"`
	UpdatedAt    *time.Time                 `json:"updated_at,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (e *Entity) MarshalJSON() ([]byte, error) {
	return json.Marshal(entityDoc{
		ID:           e.id,
		Name:         e.name,
		Description:  e.description,
		Habitat:      e.habitat,
		IsLegendary:  e.legendary,
		Translations: e.Translations(),
		CreatedAt:    e.createdAt,
		UpdatedAt:    e.updatedAt,
	})
}

// UnmarshalJSON implements json.Unmarshaler. Decoding goes through
// [Rehydrate] so invalid cached payloads surface as errors instead of
// producing half-valid instances.
func (e *Entity) UnmarshalJSON(data []byte) error {
	var doc entityDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}

	rebuilt, err := Rehydrate(doc.ID, doc.Name, doc.Description, doc.Habitat,
		doc.IsLegendary, doc.Translations, doc.CreatedAt, doc.UpdatedAt)
	if err != nil {
		return err
	}

	*e = *rebuilt
	return nil
}
