// Copyright (c) 2026 Bestiary. All rights reserved.

package entity

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/buivan/bestiary/internal/platform/apperr"
	"github.com/buivan/bestiary/internal/platform/constants"
)

// Provider fetches entities from the upstream source of record when the
// repository has no copy yet.
type Provider interface {
	FetchEntity(ctx context.Context, name string) (*Entity, error)
}

// Translator produces the stylistic rewrite of an entity description,
// degrading to the plain description when the rewrite is unavailable.
type Translator interface {
	GetOrCreate(ctx context.Context, e *Entity, style TranslationType) (string, error)
}

// View is the read model served over HTTP.
type View struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Habitat     string `json:"habitat"`
	IsLegendary bool   `json:"isLegendary"`
}

// SelectStyle picks the rewrite style for an entity: cave dwellers and
// legendary entities get the yoda rewrite, everything else shakespeare.
func SelectStyle(e *Entity) TranslationType {
	if e.IsLegendary() || strings.EqualFold(e.Habitat(), "cave") {
		return TranslationYoda
	}
	return TranslationShakespeare
}

type Service struct {
	repo       Repository
	provider   Provider
	translator Translator
	logger     *slog.Logger
}

func NewService(repo Repository, provider Provider, translator Translator, logger *slog.Logger) *Service {
	return &Service{
		repo:       repo,
		provider:   provider,
		translator: translator,
		logger:     logger,
	}
}

// GetEntity returns the entity with its plain description.
func (s *Service) GetEntity(ctx context.Context, name string) (*View, error) {
	e, err := s.resolve(ctx, name)
	if err != nil {
		return nil, err
	}
	return viewFrom(e, e.Description()), nil
}

// GetTranslatedEntity returns the entity with its description rewritten in
// the style selected by [SelectStyle]. When the rewrite cannot be obtained
// the plain description is served instead.
func (s *Service) GetTranslatedEntity(ctx context.Context, name string) (*View, error) {
	e, err := s.resolve(ctx, name)
	if err != nil {
		return nil, err
	}

	text, err := s.translator.GetOrCreate(ctx, e, SelectStyle(e))
	if err != nil {
		return nil, err
	}
	return viewFrom(e, text), nil
}

// resolve loads the entity from the repository, fetching from the upstream
// provider on a miss. Persisting a freshly fetched entity is best-effort:
// the read path still serves the fetched copy when the save fails.
func (s *Service) resolve(ctx context.Context, name string) (*Entity, error) {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return nil, apperr.ValidationError("Entity name must not be empty")
	}
	if len(trimmed) > constants.MaxEntityNameLength {
		return nil, apperr.ValidationError(fmt.Sprintf(
			"Entity name must not exceed %d characters", constants.MaxEntityNameLength))
	}

	e, err := s.repo.GetByName(ctx, trimmed)
	if err == nil {
		return e, nil
	}
	if !apperr.Is(err, apperr.CodeNotFound) {
		return nil, err
	}

	fetched, err := s.provider.FetchEntity(ctx, trimmed)
	if err != nil {
		return nil, err
	}

	saved, err := s.repo.Save(ctx, fetched)
	if err != nil {
		s.logger.Error("entity_persist_failed",
			slog.String("entity", trimmed),
			slog.Any("error", err),
		)
		return fetched, nil
	}
	return saved, nil
}

func viewFrom(e *Entity, description string) *View {
	return &View{
		Name:        e.Name(),
		Description: description,
		Habitat:     e.Habitat(),
		IsLegendary: e.IsLegendary(),
	}
}
