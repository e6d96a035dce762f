// Package integration provides end-to-end integration tests for the Trustcore API.
// Tests all API endpoints against both PostgreSQL and MySQL databases.
package integration

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auditHTTP "github.com/allisson/trustcore/internal/audit/http"
	auditRepository "github.com/allisson/trustcore/internal/audit/repository"
	auditService "github.com/allisson/trustcore/internal/audit/service"
	auditUseCase "github.com/allisson/trustcore/internal/audit/usecase"
	"github.com/allisson/trustcore/internal/config"
	dsrHTTP "github.com/allisson/trustcore/internal/dsr/http"
	dsrRepository "github.com/allisson/trustcore/internal/dsr/repository"
	dsrUseCase "github.com/allisson/trustcore/internal/dsr/usecase"
	internalHTTP "github.com/allisson/trustcore/internal/http"
	serviceAuthDomain "github.com/allisson/trustcore/internal/serviceauth/domain"
	serviceAuthService "github.com/allisson/trustcore/internal/serviceauth/service"
	"github.com/allisson/trustcore/internal/testutil"
)

const integrationSigningSecret = "integration-test-signing-secret"

// integrationTestContext holds all dependencies and state for integration testing.
type integrationTestContext struct {
	db           *sql.DB
	server       *httptest.Server
	serviceToken string
	dbDriver     string
}

// makeRequest performs an HTTP request and returns the response and body.
func (ctx *integrationTestContext) makeRequest(
	t *testing.T,
	method, path string,
	body interface{},
	useAuth bool,
) (*http.Response, []byte) {
	t.Helper()

	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		require.NoError(t, err, "failed to marshal request body")
		bodyReader = bytes.NewReader(bodyBytes)
	}

	req, err := http.NewRequest(method, ctx.server.URL+path, bodyReader)
	require.NoError(t, err, "failed to create request")

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if useAuth {
		req.Header.Set("Authorization", "Bearer "+ctx.serviceToken)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	//nolint:gosec // controlled test environment with localhost URLs
	resp, err := client.Do(req)
	require.NoError(t, err, "failed to perform request")

	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "failed to read response body")
	if closeErr := resp.Body.Close(); closeErr != nil {
		t.Logf("Warning: failed to close response body: %v", closeErr)
	}

	return resp, respBody
}

// setupIntegrationTest initializes all components for integration testing.
// The verifying service and the calling service each get a throwaway RSA key
// pair; the caller's public key is seeded into the verifier's cache the same
// way a directory-provider lookup would fill it.
func setupIntegrationTest(t *testing.T, dbDriver string) *integrationTestContext {
	t.Helper()

	// Set Gin to test mode
	gin.SetMode(gin.TestMode)

	// Setup database
	var db *sql.DB
	if dbDriver == "postgres" {
		db = testutil.SetupPostgresDB(t)
	} else {
		db = testutil.SetupMySQLDB(t)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	// Wire repositories for the selected driver
	var eventRepo auditUseCase.PrivacyEventRepository
	var deletionRepo dsrUseCase.DeletionRequestRepository
	var userDataRepo dsrUseCase.UserDataRepository
	if dbDriver == "postgres" {
		eventRepo = auditRepository.NewPostgreSQLPrivacyEventRepository(db)
		deletionRepo = dsrRepository.NewPostgreSQLDeletionRequestRepository(db)
		userDataRepo = dsrRepository.NewPostgreSQLUserDataRepository(db)
	} else {
		eventRepo = auditRepository.NewMySQLPrivacyEventRepository(db)
		deletionRepo = dsrRepository.NewMySQLDeletionRequestRepository(db)
		userDataRepo = dsrRepository.NewMySQLUserDataRepository(db)
	}

	auditLogger := auditUseCase.NewPrivacyEventUseCase(
		eventRepo,
		auditService.NewEventSigner(),
		[]byte(integrationSigningSecret),
	)

	orchestrator := dsrUseCase.NewDSROrchestrator(deletionRepo, userDataRepo, auditLogger, logger)
	dsrHandler := dsrHTTP.NewHandler(orchestrator, logger)
	auditHandler := auditHTTP.NewHandler(auditLogger, logger)

	// Service auth: one manager per side, ephemeral keys
	cache := serviceAuthService.NewPublicKeyCache()
	serverManager, err := serviceAuthService.NewManager(serviceAuthService.Config{
		Identity: serviceAuthDomain.ServiceIdentity{
			ServiceID:   "trustcore",
			ServiceType: "backend",
			Environment: "test",
		},
		DevGenerateKeys: true,
	}, cache, nil)
	require.NoError(t, err, "failed to create server auth manager")

	callerManager, err := serviceAuthService.NewManager(serviceAuthService.Config{
		Identity: serviceAuthDomain.ServiceIdentity{
			ServiceID:   "admin-portal",
			ServiceType: "frontend",
			Environment: "test",
		},
		DevGenerateKeys: true,
	}, nil, nil)
	require.NoError(t, err, "failed to create caller auth manager")

	cache.Set("admin-portal", callerManager.PublicKey())

	serviceToken, err := callerManager.SignServiceToken("trustcore")
	require.NoError(t, err, "failed to sign service token")

	cfg := &config.Config{
		ServiceID:               "trustcore",
		Environment:             "test",
		RateLimitEnabled:        true,
		RateLimitRequestsPerSec: 100,
		RateLimitBurst:          100,
	}

	srv := internalHTTP.NewServer(db, "localhost", 0, logger)
	router := srv.SetupRouter(cfg, serverManager, dsrHandler, auditHandler, nil)
	testServer := httptest.NewServer(router)

	return &integrationTestContext{
		db:           db,
		server:       testServer,
		serviceToken: serviceToken,
		dbDriver:     dbDriver,
	}
}

// teardownIntegrationTest cleans up all resources.
func teardownIntegrationTest(t *testing.T, ctx *integrationTestContext) {
	t.Helper()

	if ctx.server != nil {
		ctx.server.Close()
	}

	if ctx.db != nil {
		testutil.TeardownDB(t, ctx.db)
	}
}

// seedUserWithData creates a user row plus encrypted PII and an external ID
// mapping, the full data footprint a DSR export or deletion operates on.
func seedUserWithData(t *testing.T, ctx *integrationTestContext, userID string) {
	t.Helper()

	testutil.CreateTestUser(t, ctx.db, ctx.dbDriver, userID)

	fieldsJSON := `{"ssn":"aXY=:dGFn:Y2lwaGVydGV4dA==","phone":"aXY=:dGFn:bW9yZQ=="}`
	mappingID := uuid.MustParse("0191d2a0-0000-7000-8000-000000000001")

	var err error
	if ctx.dbDriver == "postgres" {
		_, err = ctx.db.Exec(
			`INSERT INTO encrypted_user_pii (user_id, fields, created_at, updated_at) VALUES ($1, $2, NOW(), NOW())`,
			userID, fieldsJSON,
		)
		require.NoError(t, err, "failed to seed encrypted PII")
		_, err = ctx.db.Exec(
			`INSERT INTO external_id_mappings (id, user_id, provider, external_id, created_at) VALUES ($1, $2, $3, $4, NOW())`,
			mappingID.String(), userID, "stripe", "cus_123",
		)
	} else {
		_, err = ctx.db.Exec(
			`INSERT INTO encrypted_user_pii (user_id, fields, created_at, updated_at) VALUES (?, ?, NOW(6), NOW(6))`,
			userID, fieldsJSON,
		)
		require.NoError(t, err, "failed to seed encrypted PII")
		_, err = ctx.db.Exec(
			`INSERT INTO external_id_mappings (id, user_id, provider, external_id, created_at) VALUES (?, ?, ?, ?, NOW(6))`,
			mappingID[:], userID, "stripe", "cus_123",
		)
	}
	require.NoError(t, err, "failed to seed external ID mapping")
}

func TestAPI_EndToEnd(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	dbConfigs := []struct {
		name   string
		driver string
		skip   func(t *testing.T)
	}{
		{name: "PostgreSQL", driver: "postgres", skip: testutil.SkipIfNoPostgres},
		{name: "MySQL", driver: "mysql", skip: testutil.SkipIfNoMySQL},
	}

	for _, dbConfig := range dbConfigs {
		t.Run(dbConfig.name, func(t *testing.T) {
			dbConfig.skip(t)

			ctx := setupIntegrationTest(t, dbConfig.driver)
			defer teardownIntegrationTest(t, ctx)

			t.Run("health endpoints are open", func(t *testing.T) {
				resp, _ := ctx.makeRequest(t, http.MethodGet, "/health", nil, false)
				assert.Equal(t, http.StatusOK, resp.StatusCode)

				resp, _ = ctx.makeRequest(t, http.MethodGet, "/ready", nil, false)
				assert.Equal(t, http.StatusOK, resp.StatusCode)
			})

			t.Run("api rejects missing token", func(t *testing.T) {
				resp, _ := ctx.makeRequest(t, http.MethodGet, "/v1/deletions", nil, false)
				assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
			})

			t.Run("export user data", func(t *testing.T) {
				seedUserWithData(t, ctx, "export-user-1")

				resp, body := ctx.makeRequest(
					t,
					http.MethodPost,
					"/v1/users/export-user-1/export",
					map[string]string{"actor_email": "dpo@example.com", "actor_role": "admin"},
					true,
				)
				require.Equal(t, http.StatusOK, resp.StatusCode, "body: %s", body)

				var bundle map[string]interface{}
				require.NoError(t, json.Unmarshal(body, &bundle))
				assert.Equal(t, "export-user-1", bundle["user_id"])
				assert.NotNil(t, bundle["profile"])
				assert.NotEmpty(t, bundle["encrypted_pii"])
				assert.NotEmpty(t, bundle["pii_note"])

				// The export itself must land in the audit trail
				var count int
				query := "SELECT COUNT(*) FROM privacy_events WHERE resource_type = 'user' AND resource_id = 'export-user-1'"
				require.NoError(t, ctx.db.QueryRow(query).Scan(&count))
				assert.Equal(t, 1, count, "export should write exactly one audit event")
			})

			t.Run("audit trail is readable over the api", func(t *testing.T) {
				resp, body := ctx.makeRequest(
					t,
					http.MethodGet,
					"/v1/audit-events?resource_type=user&resource_id=export-user-1",
					nil,
					true,
				)
				require.Equal(t, http.StatusOK, resp.StatusCode, "body: %s", body)

				var trail map[string][]map[string]interface{}
				require.NoError(t, json.Unmarshal(body, &trail))
				require.Len(t, trail["events"], 1)
				assert.Equal(t, "EXPORT_DATA", trail["events"][0]["action"])
				assert.Equal(t, "admin-portal", trail["events"][0]["actor_id"])
				assert.Equal(t, "dpo@example.com", trail["events"][0]["actor_email"])
			})

			t.Run("audit trail requires resource parameters", func(t *testing.T) {
				resp, _ := ctx.makeRequest(t, http.MethodGet, "/v1/audit-events", nil, true)
				assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
			})

			t.Run("export unknown user returns 404", func(t *testing.T) {
				resp, _ := ctx.makeRequest(t, http.MethodPost, "/v1/users/ghost/export", nil, true)
				assert.Equal(t, http.StatusNotFound, resp.StatusCode)
			})

			t.Run("deletion lifecycle", func(t *testing.T) {
				seedUserWithData(t, ctx, "delete-user-1")

				// Queue the deletion
				resp, body := ctx.makeRequest(t, http.MethodPost, "/v1/deletions", map[string]string{
					"user_id":      "delete-user-1",
					"requested_by": "delete-user-1",
					"reason":       "account closure",
				}, true)
				require.Equal(t, http.StatusCreated, resp.StatusCode, "body: %s", body)

				var created map[string]interface{}
				require.NoError(t, json.Unmarshal(body, &created))
				deletionID, _ := created["id"].(string)
				require.NotEmpty(t, deletionID)
				assert.Equal(t, "PENDING", created["status"])

				// The grace period pushes execution ~30 days out
				scheduledFor, err := time.Parse(time.RFC3339, created["scheduled_for"].(string))
				require.NoError(t, err)
				assert.True(t, scheduledFor.After(time.Now().Add(29*24*time.Hour)))

				// Shows up in the pending list
				resp, body = ctx.makeRequest(t, http.MethodGet, "/v1/deletions", nil, true)
				require.Equal(t, http.StatusOK, resp.StatusCode)
				var list map[string][]map[string]interface{}
				require.NoError(t, json.Unmarshal(body, &list))
				require.Len(t, list["deletions"], 1)
				assert.Equal(t, deletionID, list["deletions"][0]["id"])

				// Readable by ID
				resp, _ = ctx.makeRequest(t, http.MethodGet, "/v1/deletions/"+deletionID, nil, true)
				assert.Equal(t, http.StatusOK, resp.StatusCode)

				// Execute erases PII, mappings, and anonymizes the profile
				resp, body = ctx.makeRequest(t, http.MethodPost, "/v1/deletions/"+deletionID+"/execute", nil, true)
				require.Equal(t, http.StatusOK, resp.StatusCode, "body: %s", body)

				var result map[string]interface{}
				require.NoError(t, json.Unmarshal(body, &result))
				assert.Equal(t, "COMPLETED", result["status"])
				assert.Len(t, result["systems_deleted"], 3)
				assert.Len(t, result["verification_hash"], 64)

				var count int
				var email string
				var userQuery, piiQuery string
				if ctx.dbDriver == "postgres" {
					piiQuery = "SELECT COUNT(*) FROM encrypted_user_pii WHERE user_id = $1"
					userQuery = "SELECT email FROM users WHERE id = $1"
				} else {
					piiQuery = "SELECT COUNT(*) FROM encrypted_user_pii WHERE user_id = ?"
					userQuery = "SELECT email FROM users WHERE id = ?"
				}
				require.NoError(t, ctx.db.QueryRow(piiQuery, "delete-user-1").Scan(&count))
				assert.Equal(t, 0, count, "encrypted PII should be deleted")

				require.NoError(t, ctx.db.QueryRow(userQuery, "delete-user-1").Scan(&email))
				assert.Contains(t, email, "deleted_delete-user-1@", "user should be anonymized")

				// A completed request cannot be executed again
				resp, _ = ctx.makeRequest(t, http.MethodPost, "/v1/deletions/"+deletionID+"/execute", nil, true)
				assert.Equal(t, http.StatusConflict, resp.StatusCode)
			})

			t.Run("cancel pending deletion", func(t *testing.T) {
				seedUserWithData(t, ctx, "cancel-user-1")

				resp, body := ctx.makeRequest(t, http.MethodPost, "/v1/deletions", map[string]string{
					"user_id":      "cancel-user-1",
					"requested_by": "cancel-user-1",
					"reason":       "changed my mind later",
				}, true)
				require.Equal(t, http.StatusCreated, resp.StatusCode)

				var created map[string]interface{}
				require.NoError(t, json.Unmarshal(body, &created))
				deletionID := created["id"].(string)

				resp, _ = ctx.makeRequest(t, http.MethodPost, "/v1/deletions/"+deletionID+"/cancel", map[string]string{
					"cancelled_by": "cancel-user-1",
				}, true)
				assert.Equal(t, http.StatusNoContent, resp.StatusCode)

				resp, body = ctx.makeRequest(t, http.MethodGet, "/v1/deletions/"+deletionID, nil, true)
				require.Equal(t, http.StatusOK, resp.StatusCode)
				var fetched map[string]interface{}
				require.NoError(t, json.Unmarshal(body, &fetched))
				assert.Equal(t, "CANCELLED", fetched["status"])

				// Cancelled requests cannot be executed
				resp, _ = ctx.makeRequest(t, http.MethodPost, "/v1/deletions/"+deletionID+"/execute", nil, true)
				assert.Equal(t, http.StatusConflict, resp.StatusCode)
			})

			t.Run("request deletion validation", func(t *testing.T) {
				resp, _ := ctx.makeRequest(t, http.MethodPost, "/v1/deletions", map[string]string{
					"user_id": "someone",
				}, true)
				assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
			})
		})
	}
}
