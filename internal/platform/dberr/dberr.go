// Copyright (c) 2026 Bestiary. All rights reserved.

// Package dberr provides a bridge between low-level database errors and
// higher-level application errors.
package dberr

import (
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/buivan/bestiary/internal/platform/apperr"
)

var (
	// ErrNotFound is a standard error returned when a queried row doesn't exist.
	ErrNotFound = apperr.NotFound("Resource")
)

// IsUniqueViolation reports whether err is a Postgres unique-constraint
// violation, letting repositories attach a resource-specific message.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

// Wrap inspects a database error and wraps it into a meaningful
// [apperr.AppError]. It hides internal database details from the client while
// classifying the error type. The action label ends up in server-side logs
// through the Cause chain.
func Wrap(err error, action string) error {
	if err == nil {
		return nil
	}

	// 1. Not Found mapping
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}

	// 2. Postgres SQLSTATE classification
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.UniqueViolation:
			return apperr.Persistence(
				"A record with the same unique value already exists",
				fmt.Errorf("%s: %w", action, err),
			)
		case pgerrcode.SerializationFailure, pgerrcode.DeadlockDetected:
			return apperr.Persistence(
				"The record was modified concurrently, please retry",
				fmt.Errorf("%s: %w", action, err),
			)
		}
	}

	// 3. Everything else becomes a generic persistence error
	return apperr.Persistence("Storage operation failed", fmt.Errorf("%s: %w", action, err))
}
