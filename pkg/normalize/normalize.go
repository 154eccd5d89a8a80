// Copyright (c) 2026 Bestiary. All rights reserved.

// Package normalize canonicalizes entity names for lookups and cache keys.
//
// # Usage
//
// Entity names arrive from URLs and upstream payloads with inconsistent
// casing and occasionally decomposed Unicode (e.g. "é" as "e" + combining
// acute). Every layer that compares or keys by name goes through [Name] so
// that "Pikachu", "pikachu " and their NFC/NFD variants resolve identically.
package normalize

import (
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Name converts an entity name into its canonical lookup form:
// NFC-composed, whitespace-trimmed, lowercase.
func Name(s string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFC.String(s)))
}
