// Package handler exposes the bulk coordinator over HTTP.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"ecotrace/internal/bulk"
	"ecotrace/internal/platform/middleware"
	"ecotrace/internal/transport/http/shared"
	dErrors "ecotrace/pkg/domainerrors"
)

// Coordinator defines the bulk operations the handler exposes.
type Coordinator interface {
	RunBulk(ctx context.Context, kind bulk.Kind, items []bulk.Item, opts bulk.Options) (*bulk.Summary, error)
	Validate(ctx context.Context, kind bulk.Kind, items []bulk.Item, opts bulk.Options) (*bulk.Summary, error)
}

// Handler handles bulk endpoints.
type Handler struct {
	coordinator Coordinator
	logger      *slog.Logger
	validator   middleware.Validator
	apiKeys     *middleware.APIKeyVerifier
}

// New builds the handler. apiKeys may be nil, in which case only bearer
// tokens are accepted; bulk imports are the natural entry point for machine
// callers, so API keys are mounted here rather than on the asset routes.
func New(coordinator Coordinator, logger *slog.Logger, validator middleware.Validator, apiKeys *middleware.APIKeyVerifier) *Handler {
	return &Handler{coordinator: coordinator, logger: logger, validator: validator, apiKeys: apiKeys}
}

// Register mounts the bulk routes.
func (h *Handler) Register(r chi.Router) {
	r.Route("/bulk", func(r chi.Router) {
		r.Get("/templates", h.handleTemplates)
		r.Get("/{kind}/template", h.handleTemplate)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(h.validator, h.apiKeys, h.logger))
			r.Post("/{kind}", h.handleRun)
			r.Post("/{kind}/validate", h.handleValidate)
		})
	})
}

type runRequest struct {
	Items   []bulk.Item  `json:"items"`
	Options bulk.Options `json:"options"`
}

// decode parses a bulk request, layering the JSON body over option defaults so
// absent fields keep their documented default values.
func decode(r *http.Request) (runRequest, error) {
	req := runRequest{Options: bulk.DefaultOptions()}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return req, dErrors.New(dErrors.CodeBadRequest, "invalid request body")
	}
	return req, nil
}

func (h *Handler) handleRun(w http.ResponseWriter, r *http.Request) {
	kind, err := bulk.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	req, err := decode(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	summary, err := h.coordinator.RunBulk(r.Context(), kind, req.Items, req.Options)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, summary)
}

func (h *Handler) handleValidate(w http.ResponseWriter, r *http.Request) {
	kind, err := bulk.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	req, err := decode(r)
	if err != nil {
		shared.WriteError(w, err)
		return
	}

	summary, err := h.coordinator.Validate(r.Context(), kind, req.Items, req.Options)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, summary)
}

func (h *Handler) handleTemplate(w http.ResponseWriter, r *http.Request) {
	kind, err := bulk.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	template, err := bulk.TemplateFor(kind)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, template)
}

func (h *Handler) handleTemplates(w http.ResponseWriter, _ *http.Request) {
	shared.WriteJSON(w, http.StatusOK, bulk.Templates())
}
