package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	serviceAuthDomain "github.com/allisson/trustcore/internal/serviceauth/domain"
)

// stubSigner mints predictable tokens without real key material.
type stubSigner struct {
	identity serviceAuthDomain.ServiceIdentity
	token    string
	err      error
	calls    int
}

func (s *stubSigner) SignServiceToken(_ string) (string, error) {
	s.calls++
	return s.token, s.err
}

func (s *stubSigner) Identity() serviceAuthDomain.ServiceIdentity {
	return s.identity
}

func TestAuthenticatedClient(t *testing.T) {
	ctx := context.Background()

	signer := &stubSigner{
		identity: serviceAuthDomain.ServiceIdentity{
			ServiceID:   "dsr-orchestrator",
			ServiceType: "worker",
			Environment: "production",
		},
		token: "signed-token",
	}

	t.Run("sends the token and service headers", func(t *testing.T) {
		var gotAuth, gotServiceID string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotAuth = r.Header.Get("Authorization")
			gotServiceID = r.Header.Get("X-Service-ID")
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"status":"ok"}`))
		}))
		defer server.Close()

		client := NewAuthenticatedClient(signer, "user-api", server.URL)

		var result map[string]string
		err := client.Get(ctx, "/users/user-123", &result)
		require.NoError(t, err)

		assert.Equal(t, "Bearer signed-token", gotAuth)
		assert.Equal(t, "dsr-orchestrator", gotServiceID)
		assert.Equal(t, "ok", result["status"])
	})

	t.Run("mints a fresh token per request", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}))
		defer server.Close()

		fresh := &stubSigner{identity: signer.identity, token: "signed-token"}
		client := NewAuthenticatedClient(fresh, "user-api", server.URL)

		require.NoError(t, client.Delete(ctx, "/users/user-123/pii"))
		require.NoError(t, client.Delete(ctx, "/users/user-456/pii"))

		assert.Equal(t, 2, fresh.calls)
	})

	t.Run("posts a JSON body", func(t *testing.T) {
		var gotContentType string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotContentType = r.Header.Get("Content-Type")
			w.WriteHeader(http.StatusCreated)
		}))
		defer server.Close()

		client := NewAuthenticatedClient(signer, "user-api", server.URL)

		err := client.Post(ctx, "/deletions", map[string]string{"userId": "user-123"}, nil)
		require.NoError(t, err)
		assert.Equal(t, "application/json", gotContentType)
	})

	t.Run("surfaces non-2xx responses with status and body", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"error":"forbidden"}`))
		}))
		defer server.Close()

		client := NewAuthenticatedClient(signer, "user-api", server.URL)

		err := client.Get(ctx, "/users/user-123", nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "403")
		assert.Contains(t, err.Error(), "forbidden")
	})

	t.Run("fails fast when signing fails", func(t *testing.T) {
		broken := &stubSigner{
			identity: signer.identity,
			err:      serviceAuthDomain.ErrMissingKeyPair,
		}
		client := NewAuthenticatedClient(broken, "user-api", "http://127.0.0.1:1")

		err := client.Get(ctx, "/users/user-123", nil)
		assert.ErrorIs(t, err, serviceAuthDomain.ErrMissingKeyPair)
	})
}
