// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

// Package updatecheck asks a release endpoint for the latest published
// version and compares it against the running one.
package updatecheck

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/samber/oops"
)

// maxBodySize bounds the response read; the endpoint returns a bare
// version string.
const maxBodySize = 256

// Result of a version check.
type Result struct {
	Current string
	Latest  string

	// UpdateAvailable is true when Latest is strictly newer than
	// Current.
	UpdateAvailable bool
}

// Checker fetches the latest released version.
type Checker struct {
	url     string
	current string
	client  *http.Client
}

// New creates a checker. current must be a semantic version; it is
// validated lazily in Check so a dev build ("devel") just disables the
// comparison instead of failing startup.
func New(url, current string) *Checker {
	return &Checker{
		url:     url,
		current: current,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// Check fetches the latest version string and compares. Blocking; run
// it off the game loop.
func (c *Checker) Check(ctx context.Context) (Result, error) {
	current, err := semver.NewVersion(strings.TrimPrefix(c.current, "v"))
	if err != nil {
		return Result{}, oops.Code("UPDATE_BAD_VERSION").
			With("version", c.current).
			Wrap(err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return Result{}, oops.Code("UPDATE_CHECK_FAILED").With("url", c.url).Wrap(err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Result{}, oops.Code("UPDATE_CHECK_FAILED").With("url", c.url).Wrap(err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return Result{}, oops.Code("UPDATE_CHECK_FAILED").
			With("url", c.url).
			With("status", resp.StatusCode).
			Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return Result{}, oops.Code("UPDATE_CHECK_FAILED").With("url", c.url).Wrap(err)
	}

	latestStr := strings.TrimSpace(string(body))
	latest, err := semver.NewVersion(strings.TrimPrefix(latestStr, "v"))
	if err != nil {
		return Result{}, oops.Code("UPDATE_BAD_VERSION").
			With("version", latestStr).
			Wrap(err)
	}

	return Result{
		Current:         current.String(),
		Latest:          latest.String(),
		UpdateAvailable: latest.GreaterThan(current),
	}, nil
}
