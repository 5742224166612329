package middleware_test

import (
	"context"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ecotrace/internal/platform/middleware"
	"ecotrace/pkg/testutil"
)

func signToken(t *testing.T, key string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(key))
	require.NoError(t, err)
	return token
}

func TestHMACValidator(t *testing.T) {
	const key = "test-signing-key"
	validator := middleware.NewHMACValidator(key)

	t.Run("valid token yields actor from claim", func(t *testing.T) {
		token := signToken(t, key, jwt.MapClaims{
			"sub":   "svc-importer",
			"actor": "alice@ecotrace.io",
			"exp":   time.Now().Add(time.Hour).Unix(),
		})

		claims, err := validator.ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, "alice@ecotrace.io", claims.Actor)
		assert.Equal(t, "svc-importer", claims.Subject)
	})

	t.Run("actor falls back to subject", func(t *testing.T) {
		token := signToken(t, key, jwt.MapClaims{
			"sub": "svc-importer",
			"exp": time.Now().Add(time.Hour).Unix(),
		})

		claims, err := validator.ValidateToken(token)
		require.NoError(t, err)
		assert.Equal(t, "svc-importer", claims.Actor)
	})

	t.Run("wrong key rejected", func(t *testing.T) {
		token := signToken(t, "other-key", jwt.MapClaims{"sub": "x"})
		_, err := validator.ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("expired token rejected", func(t *testing.T) {
		token := signToken(t, key, jwt.MapClaims{
			"sub": "x",
			"exp": time.Now().Add(-time.Hour).Unix(),
		})
		_, err := validator.ValidateToken(token)
		assert.Error(t, err)
	})

	t.Run("token without identity rejected", func(t *testing.T) {
		token := signToken(t, key, jwt.MapClaims{
			"exp": time.Now().Add(time.Hour).Unix(),
		})
		_, err := validator.ValidateToken(token)
		assert.Error(t, err)
	})
}

func TestRequireAuth(t *testing.T) {
	const key = "test-signing-key"
	validator := middleware.NewHMACValidator(key)
	logger := slog.Default()

	var seenActor string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenActor = middleware.GetActor(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	protected := middleware.RequireAuth(validator, nil, logger)(next)

	t.Run("missing header rejected", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodPost, "/assets")
		rr := testutil.DoRequest(protected, req)
		testutil.AssertStatus(t, rr, http.StatusUnauthorized)
	})

	t.Run("garbage token rejected", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodPost, "/assets")
		req.Header.Set("Authorization", "Bearer not-a-jwt")
		rr := testutil.DoRequest(protected, req)
		testutil.AssertStatus(t, rr, http.StatusUnauthorized)
	})

	t.Run("valid token passes actor downstream", func(t *testing.T) {
		token := signToken(t, key, jwt.MapClaims{
			"actor": "bob@ecotrace.io",
			"exp":   time.Now().Add(time.Hour).Unix(),
		})
		req := testutil.NewRequest(t, http.MethodPost, "/assets")
		req.Header.Set("Authorization", "Bearer "+token)
		rr := testutil.DoRequest(protected, req)
		testutil.AssertStatus(t, rr, http.StatusNoContent)
		assert.Equal(t, "bob@ecotrace.io", seenActor)
	})

	t.Run("api key ignored when no verifier is configured", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodPost, "/assets")
		req.Header.Set("X-API-Key", "secret-key-1")
		rr := testutil.DoRequest(protected, req)
		testutil.AssertStatus(t, rr, http.StatusUnauthorized)
	})

	t.Run("with a verifier configured", func(t *testing.T) {
		hash, err := middleware.HashAPIKey("secret-key-1")
		require.NoError(t, err)
		keys := middleware.NewAPIKeyVerifier(map[string]string{"importer": hash})
		withKeys := middleware.RequireAuth(validator, keys, logger)(next)

		t.Run("valid api key passes caller as actor", func(t *testing.T) {
			req := testutil.NewRequest(t, http.MethodPost, "/bulk/register")
			req.Header.Set("X-API-Key", "secret-key-1")
			rr := testutil.DoRequest(withKeys, req)
			testutil.AssertStatus(t, rr, http.StatusNoContent)
			assert.Equal(t, "importer", seenActor)
		})

		t.Run("unknown api key rejected", func(t *testing.T) {
			req := testutil.NewRequest(t, http.MethodPost, "/bulk/register")
			req.Header.Set("X-API-Key", "wrong-key")
			rr := testutil.DoRequest(withKeys, req)
			testutil.AssertStatus(t, rr, http.StatusUnauthorized)
		})

		t.Run("bearer token still accepted", func(t *testing.T) {
			token := signToken(t, key, jwt.MapClaims{
				"actor": "bob@ecotrace.io",
				"exp":   time.Now().Add(time.Hour).Unix(),
			})
			req := testutil.NewRequest(t, http.MethodPost, "/bulk/register")
			req.Header.Set("Authorization", "Bearer "+token)
			rr := testutil.DoRequest(withKeys, req)
			testutil.AssertStatus(t, rr, http.StatusNoContent)
			assert.Equal(t, "bob@ecotrace.io", seenActor)
		})
	})
}

func TestGetActor(t *testing.T) {
	t.Run("defaults to system", func(t *testing.T) {
		assert.Equal(t, "system", middleware.GetActor(context.Background()))
	})

	t.Run("reads the stored actor", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodGet, "/")
		req = testutil.AsActor(req, "carol")
		assert.Equal(t, "carol", middleware.GetActor(req.Context()))
	})
}

func TestAPIKeyVerifier(t *testing.T) {
	hash, err := middleware.HashAPIKey("secret-key-1")
	require.NoError(t, err)
	verifier := middleware.NewAPIKeyVerifier(map[string]string{"importer": hash})

	t.Run("known key resolves caller", func(t *testing.T) {
		caller, err := verifier.Verify("secret-key-1")
		require.NoError(t, err)
		assert.Equal(t, "importer", caller)
	})

	t.Run("unknown key rejected", func(t *testing.T) {
		_, err := verifier.Verify("wrong-key")
		assert.Error(t, err)
	})

	t.Run("empty key rejected", func(t *testing.T) {
		_, err := verifier.Verify("")
		assert.Error(t, err)
	})
}
