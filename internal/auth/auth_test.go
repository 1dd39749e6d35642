// Copyright 2025 ClipSpark Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     https://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRouter(verifier Verifier) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.GET("/whoami", Middleware(verifier), func(c *gin.Context) {
		identity, ok := IdentityFrom(c)
		if !ok {
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		c.JSON(http.StatusOK, gin.H{"userId": identity.UserID})
	})
	return router
}

func TestStaticVerifier(t *testing.T) {
	verifier := NewStaticVerifier(map[string]Identity{
		"token-1": {UserID: "user-1", Email: "one@example.com"},
	})

	identity, err := verifier.Verify(context.Background(), "token-1")
	require.NoError(t, err)
	assert.Equal(t, "user-1", identity.UserID)

	_, err = verifier.Verify(context.Background(), "token-2")
	require.ErrorIs(t, err, ErrAuthenticationFailed)

	_, err = verifier.Verify(context.Background(), "")
	require.ErrorIs(t, err, ErrAuthenticationFailed)
}

func TestMiddlewareAcceptsBearerToken(t *testing.T) {
	router := newTestRouter(NewStaticVerifier(map[string]Identity{
		"token-1": {UserID: "user-1"},
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer token-1")
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "user-1")
}

func TestOptionalMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	verifier := NewStaticVerifier(map[string]Identity{
		"token-1": {UserID: "user-1"},
	})
	router := gin.New()
	router.GET("/whoami", OptionalMiddleware(verifier), func(c *gin.Context) {
		if identity, ok := IdentityFrom(c); ok {
			c.JSON(http.StatusOK, gin.H{"userId": identity.UserID})
			return
		}
		c.JSON(http.StatusOK, gin.H{"userId": "anonymous"})
	})

	cases := []struct {
		name     string
		header   string
		wantCode int
		wantBody string
	}{
		{name: "no token passes through", header: "", wantCode: http.StatusOK, wantBody: "anonymous"},
		{name: "valid token attaches identity", header: "Bearer token-1", wantCode: http.StatusOK, wantBody: "user-1"},
		{name: "bad token still rejected", header: "Bearer nope", wantCode: http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			router.ServeHTTP(rec, req)
			assert.Equal(t, tc.wantCode, rec.Code)
			if tc.wantBody != "" {
				assert.Contains(t, rec.Body.String(), tc.wantBody)
			}
		})
	}
}

func TestMiddlewareRejectsBadCredentials(t *testing.T) {
	router := newTestRouter(NewStaticVerifier(map[string]Identity{
		"token-1": {UserID: "user-1"},
	}))

	cases := []struct {
		name   string
		header string
	}{
		{name: "missing header", header: ""},
		{name: "wrong scheme", header: "Basic dXNlcjpwYXNz"},
		{name: "unknown token", header: "Bearer nope"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			router.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}
