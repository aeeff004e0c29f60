package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/jwtauth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tendant/simple-authority/pkg/simpleauthority"
	"github.com/tendant/simple-authority/pkg/simpleauthority/config"
)

func TestRouter(t *testing.T) {
	cfg, err := config.Load(config.WithFlags(true, false))
	require.NoError(t, err)
	built, err := cfg.BuildService(context.Background(), nil)
	require.NoError(t, err)
	defer built.Close()

	ctx := context.Background()
	_, err = built.Store.Create(ctx, &simpleauthority.AuthorityRecord{
		ID: "auth-1", Kind: simpleauthority.KindPerson, Value: "J. Smith", Field: "dc.contributor.author",
	})
	require.NoError(t, err)

	auth := jwtauth.New("HS256", []byte("test-secret"), nil)
	_, token, err := auth.Encode(map[string]interface{}{"sub": "alice", "roles": []string{"admin"}})
	require.NoError(t, err)

	router := NewRouter(built.Service, auth, nil)

	t.Run("healthz", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("rename", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPut, "/api/v1/authorities/auth-1/value", strings.NewReader("Jane Smith"))
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

		_, err := built.Store.FindByID(ctx, "auth-1")
		assert.ErrorIs(t, err, simpleauthority.ErrAuthorityNotFound)
	})

	t.Run("metrics", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "simple_authority_renames_total")
	})
}
