package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"ecotrace/internal/asset/service"
	"ecotrace/internal/asset/store"
	"ecotrace/internal/bulk"
	"ecotrace/internal/platform/middleware"
	"ecotrace/pkg/testutil"
)

const (
	validToken = "valid-token"
	testHash   = "QmYwAPJzv5CZsnA625s3Xf2nemtYgPpHdWEz79ojWnPbdG"
)

type tokenValidator struct{}

func (tokenValidator) ValidateToken(token string) (*middleware.Claims, error) {
	if token != validToken {
		return nil, fmt.Errorf("unknown token")
	}
	return &middleware.Claims{Actor: "tester", Subject: "tester"}, nil
}

type BulkHandlerSuite struct {
	suite.Suite
	store  *store.InMemory
	router chi.Router
}

func TestBulkHandlerSuite(t *testing.T) {
	suite.Run(t, new(BulkHandlerSuite))
}

func (s *BulkHandlerSuite) SetupTest() {
	s.store = store.NewInMemory()
	svc := service.New(s.store)
	coordinator := bulk.New(svc, bulk.WithInterBatchDelay(0))
	h := New(coordinator, slog.Default(), tokenValidator{}, nil)

	s.router = chi.NewRouter()
	h.Register(s.router)
}

func (s *BulkHandlerSuite) authed(req *http.Request) *http.Request {
	req.Header.Set("Authorization", "Bearer "+validToken)
	return req
}

func (s *BulkHandlerSuite) TestRun() {
	s.Run("register batch", func() {
		req := s.authed(testutil.NewJSONRequest(s.T(), http.MethodPost, "/bulk/register", map[string]any{
			"items": []map[string]string{
				{"serial_number": "SN-1", "model": "T14"},
				{"serial_number": "SN-2", "model": "T14"},
				{"serial_number": "SN-1", "model": "T14"},
			},
		}))
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusOK)

		body := testutil.ReadBody(s.T(), rr)
		var summary bulk.Summary
		s.Require().NoError(json.Unmarshal(body, &summary))
		s.Equal(3, summary.Total)
		s.Equal(2, summary.Successful)
		s.Equal(1, summary.Failed, "in-batch duplicate skipped under defaults")
		s.Require().Len(summary.Results, 3)
		s.NotEmpty(summary.Results[0].OutputRef)

		var raw map[string]any
		s.Require().NoError(json.Unmarshal(body, &raw))
		durationMS, ok := raw["duration_ms"].(float64)
		s.Require().True(ok, "duration_ms must be a number")
		s.Less(durationMS, float64(60_000), "duration_ms is milliseconds, not nanoseconds")
	})

	s.Run("options override defaults", func() {
		s.SetupTest()
		req := s.authed(testutil.NewJSONRequest(s.T(), http.MethodPost, "/bulk/register", map[string]any{
			"items": []map[string]string{
				{"serial_number": "SN-1"}, // model missing
				{"serial_number": "SN-2", "model": "T14"},
			},
			"options": map[string]any{"continue_on_error": false},
		}))
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusOK)

		summary := testutil.UnmarshalResponse[bulk.Summary](s.T(), rr)
		s.Zero(summary.Successful, "fatal validation failure attempts nothing")
		s.Equal(1, summary.Failed)
	})

	s.Run("unknown kind", func() {
		req := s.authed(testutil.NewJSONRequest(s.T(), http.MethodPost, "/bulk/decommission", map[string]any{}))
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
	})

	s.Run("requires auth", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/bulk/register", map[string]any{})
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusUnauthorized)
	})

	s.Run("malformed body", func() {
		req := s.authed(testutil.NewRequest(s.T(), http.MethodPost, "/bulk/register"))
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, "bad_request")
	})
}

func (s *BulkHandlerSuite) TestAPIKeyAuth() {
	hash, err := middleware.HashAPIKey("importer-key")
	s.Require().NoError(err)
	keys := middleware.NewAPIKeyVerifier(map[string]string{"asset-importer": hash})

	coordinator := bulk.New(service.New(store.NewInMemory()), bulk.WithInterBatchDelay(0))
	router := chi.NewRouter()
	New(coordinator, slog.Default(), tokenValidator{}, keys).Register(router)

	s.Run("configured key runs a batch", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/bulk/register", map[string]any{
			"items": []map[string]string{{"serial_number": "SN-1", "model": "T14"}},
		})
		req.Header.Set("X-API-Key", "importer-key")
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusOK)

		summary := testutil.UnmarshalResponse[bulk.Summary](s.T(), rr)
		s.Equal(1, summary.Successful)
	})

	s.Run("unknown key rejected", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/bulk/register", map[string]any{})
		req.Header.Set("X-API-Key", "wrong-key")
		rr := testutil.DoRequest(router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusUnauthorized)
	})
}

func (s *BulkHandlerSuite) TestValidate() {
	req := s.authed(testutil.NewJSONRequest(s.T(), http.MethodPost, "/bulk/sanitize/validate", map[string]any{
		"items": []map[string]string{
			{"asset_id": "6f1d4d3e-7c25-4a9b-8f30-1f6f2f8f9a10", "sanitization_hash": testHash},
			{"asset_id": "not-a-uuid", "sanitization_hash": testHash},
		},
	}))
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusOK)

	summary := testutil.UnmarshalResponse[bulk.Summary](s.T(), rr)
	s.Equal(1, summary.Successful)
	s.Equal(1, summary.Failed)
	s.Empty(summary.Results[0].OutputRef, "validation never touches state")

	// Nothing was created or mutated.
	count, err := s.store.Count(req.Context())
	s.Require().NoError(err)
	s.Zero(count)
}

func (s *BulkHandlerSuite) TestTemplates() {
	s.Run("all templates are public", func() {
		req := testutil.NewRequest(s.T(), http.MethodGet, "/bulk/templates")
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		templates := testutil.UnmarshalResponse[[]bulk.Template](s.T(), rr)
		s.Len(*templates, 4)
	})

	s.Run("single template by kind", func() {
		req := testutil.NewRequest(s.T(), http.MethodGet, "/bulk/transfer/template")
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusOK)
		testutil.AssertJSONContains(s.T(), rr, "kind", "transfer")
	})

	s.Run("unknown kind", func() {
		req := testutil.NewRequest(s.T(), http.MethodGet, "/bulk/decommission/template")
		rr := testutil.DoRequest(s.router, req)
		testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
	})
}
