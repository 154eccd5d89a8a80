// Copyright (c) 2026 Bestiary. All rights reserved.

// Package pokeapi implements the entity source-of-record client against the
// PokeAPI species endpoint.
package pokeapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/buivan/bestiary/internal/entity"
	"github.com/buivan/bestiary/internal/platform/apperr"
	"github.com/buivan/bestiary/internal/platform/resilience"
	"github.com/buivan/bestiary/pkg/normalize"
)

// Flavor texts come with layout control characters baked in.
var flavorWhitespace = regexp.MustCompile(`[\t\n\r\f]+`)

// Classify maps client errors to resilience classes for the policy guarding
// this upstream. A miss is an expected outcome, not a provider failure.
func Classify(err error) resilience.Class {
	ae := apperr.As(err)
	if ae == nil {
		return resilience.ClassTransient
	}
	switch {
	case ae.Code == apperr.CodeNotFound:
		return resilience.ClassExpected
	case ae.Code == apperr.CodeRateLimited:
		return resilience.ClassRateLimit
	case ae.Transient:
		return resilience.ClassTransient
	}
	return resilience.ClassPermanent
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	policy     *resilience.Policy
}

func NewClient(baseURL string, policy *resilience.Policy) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			// The policy owns per-attempt deadlines; this is a safety net only.
			Timeout: 60 * time.Second,
		},
		policy: policy,
	}
}

// speciesDocument is the subset of the species payload this service reads.
type speciesDocument struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	IsLegendary bool   `json:"is_legendary"`
	Habitat     *struct {
		Name string `json:"name"`
	} `json:"habitat"`
	FlavorTextEntries []struct {
		FlavorText string `json:"flavor_text"`
		Language   struct {
			Name string `json:"name"`
		} `json:"language"`
	} `json:"flavor_text_entries"`
}

// FetchEntity retrieves the species record for name and maps it to the
// domain model. The name is normalized before hitting the upstream, so
// "Pikachu" and "pikachu " fetch the same record.
func (c *Client) FetchEntity(ctx context.Context, name string) (*entity.Entity, error) {
	normalized := normalize.Name(name)
	endpoint := c.baseURL + "/pokemon-species/" + url.PathEscape(normalized)

	var doc speciesDocument
	err := c.policy.Do(ctx, func(ctx context.Context) error {
		return c.fetch(ctx, endpoint, normalized, &doc)
	})
	if err != nil {
		if errors.Is(err, resilience.ErrOpen) {
			return nil, apperr.Upstream("The entity source is temporarily unavailable", err)
		}
		return nil, err
	}

	habitat := ""
	if doc.Habitat != nil {
		habitat = doc.Habitat.Name
	}

	e, err := entity.New(doc.ID, doc.Name, englishDescription(&doc), habitat, doc.IsLegendary)
	if err != nil {
		return nil, apperr.Upstream("The entity source returned an invalid record", err)
	}
	return e, nil
}

func (c *Client) fetch(ctx context.Context, endpoint, name string, doc *speciesDocument) error {
	request, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return apperr.Upstream("Failed to build the entity source request", err)
	}
	request.Header.Set("Accept", "application/json")

	response, err := c.httpClient.Do(request)
	if err != nil {
		return apperr.UpstreamTransient("The entity source could not be reached", err)
	}
	defer response.Body.Close()

	switch {
	case response.StatusCode == http.StatusOK:
		// fall through to decode

	case response.StatusCode == http.StatusNotFound:
		return apperr.NotFound(fmt.Sprintf("Entity %q", name))

	case response.StatusCode == http.StatusTooManyRequests:
		return apperr.RateLimited("The entity source is throttling requests")

	case response.StatusCode >= http.StatusInternalServerError,
		response.StatusCode == http.StatusRequestTimeout:
		return apperr.UpstreamTransient(
			fmt.Sprintf("The entity source returned status %d", response.StatusCode), nil)

	default:
		return apperr.Upstream(
			fmt.Sprintf("The entity source returned status %d", response.StatusCode), nil)
	}

	if err := json.NewDecoder(response.Body).Decode(doc); err != nil {
		return apperr.Upstream("The entity source returned a malformed response", err)
	}
	return nil
}

// englishDescription picks the flavor text to serve as the description.
// Entries mentioning the entity by name read better, so those win; absent
// any English entry the description is empty rather than another language.
func englishDescription(doc *speciesDocument) string {
	lowerName := strings.ToLower(doc.Name)

	var first, startsWith, contains string
	for _, entry := range doc.FlavorTextEntries {
		if entry.Language.Name != "en" {
			continue
		}
		text := cleanFlavorText(entry.FlavorText)
		if text == "" {
			continue
		}

		if first == "" {
			first = text
		}
		lowerText := strings.ToLower(text)
		if startsWith == "" && strings.HasPrefix(lowerText, lowerName) {
			startsWith = text
		}
		if contains == "" && strings.Contains(lowerText, lowerName) {
			contains = text
		}
	}

	switch {
	case startsWith != "":
		return startsWith
	case contains != "":
		return contains
	default:
		return first
	}
}

func cleanFlavorText(raw string) string {
	return strings.TrimSpace(flavorWhitespace.ReplaceAllString(raw, " "))
}
