// Copyright (c) 2026 Bestiary. All rights reserved.

package entity_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buivan/bestiary/internal/entity"
	"github.com/buivan/bestiary/internal/platform/apperr"
)

/*
TestNew covers the construction invariants of the domain model.
*/
func TestNew(t *testing.T) {
	tests := []struct {
		name      string
		id        int64
		entName   string
		expectErr bool
	}{
		{"valid", 25, "pikachu", false},
		{"zero_id", 0, "pikachu", true},
		{"negative_id", -3, "pikachu", true},
		{"empty_name", 25, "", true},
		{"whitespace_name", 25, "   ", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := entity.New(tt.id, tt.entName, "desc", "forest", false)

			if tt.expectErr {
				require.Error(t, err)
				assert.True(t, apperr.Is(err, apperr.CodeValidation))
				assert.Nil(t, e)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.id, e.ID())
			assert.Equal(t, tt.entName, e.Name())
			assert.Equal(t, "desc", e.Description())
			assert.Equal(t, "forest", e.Habitat())
			assert.False(t, e.IsLegendary())
			assert.False(t, e.CreatedAt().IsZero())
			assert.Nil(t, e.UpdatedAt())
		})
	}
}

/*
TestAddTranslation checks style and text validation plus the
last-write-wins replacement rule.
*/
func TestAddTranslation(t *testing.T) {
	e, err := entity.New(25, "pikachu", "desc", "forest", false)
	require.NoError(t, err)

	require.NoError(t, e.AddTranslation(entity.TranslationShakespeare, "Thee desc"))

	text, ok := e.Translation(entity.TranslationShakespeare)
	assert.True(t, ok)
	assert.Equal(t, "Thee desc", text)
	assert.NotNil(t, e.UpdatedAt())

	// Replacement wins.
	require.NoError(t, e.AddTranslation(entity.TranslationShakespeare, "Newer text"))
	text, _ = e.Translation(entity.TranslationShakespeare)
	assert.Equal(t, "Newer text", text)

	// Rejections.
	assert.Error(t, e.AddTranslation(entity.TranslationShakespeare, ""))
	assert.Error(t, e.AddTranslation(entity.TranslationNone, "text"))
	assert.Error(t, e.AddTranslation(entity.TranslationType("klingon"), "text"))
}

/*
TestClone verifies that clones are fully independent of the original.
*/
func TestClone(t *testing.T) {
	original, err := entity.New(150, "mewtwo", "desc", "rare", true)
	require.NoError(t, err)
	require.NoError(t, original.AddTranslation(entity.TranslationYoda, "Created it was"))

	clone := original.Clone()
	require.NoError(t, clone.AddTranslation(entity.TranslationYoda, "Mutated"))

	text, _ := original.Translation(entity.TranslationYoda)
	assert.Equal(t, "Created it was", text, "mutating the clone must not touch the original")
}

/*
TestUpdateFrom checks the refresh rule: the timestamp only moves when a
classification field actually changed.
*/
func TestUpdateFrom(t *testing.T) {
	e, err := entity.New(35, "clefairy", "desc", "mountain", false)
	require.NoError(t, err)

	e.UpdateFrom("mountain", false)
	assert.Nil(t, e.UpdatedAt(), "no-op refresh must not touch the timestamp")

	e.UpdateFrom("moon", true)
	require.NotNil(t, e.UpdatedAt())
	assert.Equal(t, "moon", e.Habitat())
	assert.True(t, e.IsLegendary())
}

/*
TestJSONRoundTrip checks the cache serialization form rebuilds an
equivalent instance, and that corrupt payloads are rejected.
*/
func TestJSONRoundTrip(t *testing.T) {
	original, err := entity.New(92, "gastly", "A ghost.", "cave", false)
	require.NoError(t, err)
	require.NoError(t, original.AddTranslation(entity.TranslationYoda, "A ghost, it is."))

	data, err := json.Marshal(original)
	require.NoError(t, err)

	decoded := &entity.Entity{}
	require.NoError(t, json.Unmarshal(data, decoded))

	assert.Equal(t, original.ID(), decoded.ID())
	assert.Equal(t, original.Name(), decoded.Name())
	assert.Equal(t, original.Description(), decoded.Description())
	assert.Equal(t, original.Habitat(), decoded.Habitat())
	assert.Equal(t, original.Translations(), decoded.Translations())

	// A payload violating construction invariants must not decode.
	corrupt := &entity.Entity{}
	assert.Error(t, json.Unmarshal([]byte(`{"id":0,"name":""}`), corrupt))
}

/*
TestSelectStyle covers the rewrite-style selection policy.
*/
func TestSelectStyle(t *testing.T) {
	tests := []struct {
		name      string
		habitat   string
		legendary bool
		want      entity.TranslationType
	}{
		{"ordinary", "forest", false, entity.TranslationShakespeare},
		{"legendary", "rare", true, entity.TranslationYoda},
		{"cave_dweller", "cave", false, entity.TranslationYoda},
		{"cave_case_insensitive", "CAVE", false, entity.TranslationYoda},
		{"legendary_and_cave", "cave", true, entity.TranslationYoda},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := entity.New(1, "specimen", "desc", tt.habitat, tt.legendary)
			require.NoError(t, err)
			assert.Equal(t, tt.want, entity.SelectStyle(e))
		})
	}
}
