// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Gatehouse Contributors

package updatecheck_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/samber/oops"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gatehouse/gatehouse/internal/updatecheck"
)

func serveVersion(t *testing.T, version string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(version))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	oopsErr, ok := oops.AsOops(err)
	require.True(t, ok, "expected oops error, got %T", err)
	assert.Equal(t, code, oopsErr.Code())
}

func TestChecker_Check(t *testing.T) {
	t.Run("newer version available", func(t *testing.T) {
		srv := serveVersion(t, "1.3.0\n")
		c := updatecheck.New(srv.URL, "1.2.0")

		result, err := c.Check(context.Background())
		require.NoError(t, err)
		assert.True(t, result.UpdateAvailable)
		assert.Equal(t, "1.3.0", result.Latest)
		assert.Equal(t, "1.2.0", result.Current)
	})

	t.Run("up to date", func(t *testing.T) {
		srv := serveVersion(t, "1.2.0")
		c := updatecheck.New(srv.URL, "1.2.0")

		result, err := c.Check(context.Background())
		require.NoError(t, err)
		assert.False(t, result.UpdateAvailable)
	})

	t.Run("running ahead of release", func(t *testing.T) {
		srv := serveVersion(t, "1.2.0")
		c := updatecheck.New(srv.URL, "1.3.0-rc.1")

		result, err := c.Check(context.Background())
		require.NoError(t, err)
		assert.False(t, result.UpdateAvailable)
	})

	t.Run("v prefix accepted", func(t *testing.T) {
		srv := serveVersion(t, "v2.0.0")
		c := updatecheck.New(srv.URL, "v1.9.9")

		result, err := c.Check(context.Background())
		require.NoError(t, err)
		assert.True(t, result.UpdateAvailable)
	})
}

func TestChecker_Check_Errors(t *testing.T) {
	t.Run("non-semver current version", func(t *testing.T) {
		srv := serveVersion(t, "1.0.0")
		c := updatecheck.New(srv.URL, "devel")

		_, err := c.Check(context.Background())
		require.Error(t, err)
		assertCode(t, err, "UPDATE_BAD_VERSION")
	})

	t.Run("garbage response", func(t *testing.T) {
		srv := serveVersion(t, "<html>not found</html>")
		c := updatecheck.New(srv.URL, "1.0.0")

		_, err := c.Check(context.Background())
		require.Error(t, err)
		assertCode(t, err, "UPDATE_BAD_VERSION")
	})

	t.Run("http error status", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}))
		t.Cleanup(srv.Close)
		c := updatecheck.New(srv.URL, "1.0.0")

		_, err := c.Check(context.Background())
		require.Error(t, err)
		assertCode(t, err, "UPDATE_CHECK_FAILED")
	})

	t.Run("endpoint unreachable", func(t *testing.T) {
		srv := serveVersion(t, "1.0.0")
		url := srv.URL
		srv.Close()
		c := updatecheck.New(url, "1.0.0")

		_, err := c.Check(context.Background())
		require.Error(t, err)
		assertCode(t, err, "UPDATE_CHECK_FAILED")
	})
}
