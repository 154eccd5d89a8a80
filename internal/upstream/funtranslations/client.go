// Copyright (c) 2026 Bestiary. All rights reserved.

// Package funtranslations implements the rewrite client against the
// FunTranslations API. The upstream enforces an aggressive rate limit, so
// every call goes through the resilience policy and a 429 trips the
// breaker into its long break.
package funtranslations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/buivan/bestiary/internal/entity"
	"github.com/buivan/bestiary/internal/platform/apperr"
	"github.com/buivan/bestiary/internal/platform/resilience"
)

// Classify maps client errors to resilience classes for the policy guarding
// this upstream.
func Classify(err error) resilience.Class {
	ae := apperr.As(err)
	if ae == nil {
		return resilience.ClassTransient
	}
	switch {
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

type translationDocument struct {
	Contents struct {
		Translated string `json:"translated"`
	} `json:"contents"`
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Translate rewrites text in the given style. Unsupported styles fail
// before any network call is made.
func (c *Client) Translate(ctx context.Context, text string, style entity.TranslationType) (string, error) {
	if !style.Supported() {
		return "", apperr.UnsupportedStyle(style.String())
	}

	endpoint := c.baseURL + "/translate/" + style.String() + ".json"

	var translated string
	err := c.policy.Do(ctx, func(ctx context.Context) error {
		var innerErr error
		translated, innerErr = c.post(ctx, endpoint, text)
		return innerErr
	})
	if err != nil {
		if errors.Is(err, resilience.ErrOpen) {
			return "", apperr.Upstream("The translator is temporarily unavailable", err)
		}
		return "", err
	}
	return translated, nil
}

func (c *Client) post(ctx context.Context, endpoint, text string) (string, error) {
	form := url.Values{"text": []string{text}}

	request, err := http.NewRequestWithContext(
		ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return "", apperr.Upstream("Failed to build the translator request", err)
	}
	request.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	request.Header.Set("Accept", "application/json")

	response, err := c.httpClient.Do(request)
	if err != nil {
		return "", apperr.UpstreamTransient("The translator could not be reached", err)
	}
	defer response.Body.Close()

	switch {
	case response.StatusCode == http.StatusOK:
		// fall through to decode

	case response.StatusCode == http.StatusTooManyRequests:
		return "", apperr.RateLimited("The translator is throttling requests")

	case response.StatusCode >= http.StatusInternalServerError,
		response.StatusCode == http.StatusRequestTimeout:
		return "", apperr.UpstreamTransient(
			fmt.Sprintf("The translator returned status %d", response.StatusCode), nil)

	default:
		return "", decodeError(response)
	}

	var doc translationDocument
	if err := json.NewDecoder(response.Body).Decode(&doc); err != nil {
		return "", apperr.Upstream("The translator returned a malformed response", err)
	}

	translated := strings.TrimSpace(doc.Contents.Translated)
	if translated == "" {
		return "", apperr.Upstream("The translator returned an empty result", nil)
	}
	return translated, nil
}

// decodeError extracts the upstream's own error envelope when present so
// logs carry its message rather than a bare status code.
func decodeError(response *http.Response) error {
	var doc translationDocument
	if err := json.NewDecoder(response.Body).Decode(&doc); err == nil && doc.Error.Message != "" {
		return apperr.Upstream(fmt.Sprintf(
			"The translator rejected the request: %s", doc.Error.Message), nil)
	}
	return apperr.Upstream(fmt.Sprintf(
		"The translator returned status %d", response.StatusCode), nil)
}
