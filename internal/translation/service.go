// Copyright (c) 2026 Bestiary. All rights reserved.

// Package translation coordinates stylistic rewrites of entity
// descriptions: reuse a stored rewrite when one exists, otherwise obtain
// one from the upstream translator and persist it for next time.
package translation

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/buivan/bestiary/internal/entity"
	"github.com/buivan/bestiary/internal/platform/apperr"
)

// Client obtains a rewritten text from the translation upstream.
type Client interface {
	Translate(ctx context.Context, text string, style entity.TranslationType) (string, error)
}

type Service struct {
	repo   entity.Repository
	client Client
	logger *slog.Logger
}

func NewService(repo entity.Repository, client Client, logger *slog.Logger) *Service {
	return &Service{repo: repo, client: client, logger: logger}
}

// GetOrCreate returns the rewrite of e's description in the given style.
//
// A stored rewrite is returned as-is; a fresh one is requested from the
// upstream, recorded on the entity, and persisted. When the upstream is
// unavailable for any reason the plain description is served instead, so
// the translated read path never fails on account of the translator. The
// caller's own cancellation and a rewrite the entity rejects both
// propagate as errors.
func (s *Service) GetOrCreate(ctx context.Context, e *entity.Entity, style entity.TranslationType) (string, error) {
	if e == nil {
		return "", apperr.ValidationError("Entity must not be nil")
	}
	if !style.Supported() {
		return "", apperr.UnsupportedStyle(style.String())
	}

	if text, ok := e.Translation(style); ok {
		return text, nil
	}

	// Nothing to rewrite.
	if strings.TrimSpace(e.Description()) == "" {
		return e.Description(), nil
	}

	text, err := s.client.Translate(ctx, e.Description(), style)
	if err != nil {
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			return "", err
		}

		s.logger.Warn("translation_unavailable_degrading",
			slog.String("entity", e.Name()),
			slog.String("style", style.String()),
			slog.Any("error", err),
		)
		return e.Description(), nil
	}

	// Degradation covers translator unavailability only. A rewrite the
	// entity itself rejects is a defect, not an outage, and surfaces.
	if err := e.AddTranslation(style, text); err != nil {
		s.logger.Error("translation_rejected",
			slog.String("entity", e.Name()),
			slog.String("style", style.String()),
			slog.Any("error", err),
		)
		return "", err
	}

	// The rewrite is already in hand; a failed save only costs a repeat
	// upstream call on the next request.
	if _, err := s.repo.Save(ctx, e); err != nil {
		if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
			return "", err
		}

		s.logger.Error("translation_persist_failed",
			slog.String("entity", e.Name()),
			slog.String("style", style.String()),
			slog.Any("error", err),
		)
	}

	return text, nil
}
