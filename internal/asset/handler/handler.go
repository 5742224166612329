// Package handler is the thin HTTP layer over the lifecycle service. It
// decodes requests and maps errors; business logic stays in the service.
package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"ecotrace/internal/asset/models"
	"ecotrace/internal/evidence"
	"ecotrace/internal/platform/middleware"
	"ecotrace/internal/transport/http/shared"
	dErrors "ecotrace/pkg/domainerrors"
)

// Service defines the lifecycle operations the handler exposes.
type Service interface {
	Register(ctx context.Context, serialNumber, model, owner string) (*models.Asset, error)
	Sanitize(ctx context.Context, assetID uuid.UUID, sanitizationHash string) (*models.Asset, error)
	Recycle(ctx context.Context, assetID uuid.UUID) (*models.Asset, error)
	Transfer(ctx context.Context, assetID uuid.UUID, newOwner string) (*models.Asset, error)
	Get(ctx context.Context, assetID uuid.UUID) (*models.Asset, error)
	GetBySerial(ctx context.Context, serial string) (*models.Asset, error)
	List(ctx context.Context, limit, offset int) ([]*models.Asset, error)
}

// Handler handles single-asset endpoints.
type Handler struct {
	service   Service
	proofs    evidence.Store
	logger    *slog.Logger
	validator middleware.Validator
}

func New(service Service, proofs evidence.Store, logger *slog.Logger, validator middleware.Validator) *Handler {
	return &Handler{service: service, proofs: proofs, logger: logger, validator: validator}
}

// Register mounts the asset routes. Mutating routes require authentication.
func (h *Handler) Register(r chi.Router) {
	r.Route("/assets", func(r chi.Router) {
		r.Get("/", h.handleList)
		r.Get("/{id}", h.handleGet)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth(h.validator, nil, h.logger))
			r.Post("/", h.handleRegister)
			r.Post("/{id}/sanitize", h.handleSanitize)
			r.Post("/{id}/recycle", h.handleRecycle)
			r.Post("/{id}/transfer", h.handleTransfer)
		})
	})
}

type registerRequest struct {
	SerialNumber string `json:"serial_number"`
	Model        string `json:"model"`
	Owner        string `json:"owner"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	asset, err := h.service.Register(r.Context(), req.SerialNumber, req.Model, req.Owner)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusCreated, asset)
}

type sanitizeRequest struct {
	SanitizationHash string `json:"sanitization_hash"`
	// Proof is an optional base64 wipe-report blob. When the caller has no
	// precomputed hash, the blob is stored and its content address used.
	Proof []byte `json:"proof,omitempty"`
}

func (h *Handler) handleSanitize(w http.ResponseWriter, r *http.Request) {
	assetID, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req sanitizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if req.SanitizationHash == "" && len(req.Proof) > 0 {
		hash, err := h.proofs.Put(r.Context(), req.Proof)
		if err != nil {
			shared.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store sanitization proof"))
			return
		}
		req.SanitizationHash = hash
	}
	asset, err := h.service.Sanitize(r.Context(), assetID, req.SanitizationHash)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, asset)
}

func (h *Handler) handleRecycle(w http.ResponseWriter, r *http.Request) {
	assetID, ok := h.pathID(w, r)
	if !ok {
		return
	}
	asset, err := h.service.Recycle(r.Context(), assetID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, asset)
}

type transferRequest struct {
	NewOwner string `json:"new_owner"`
}

func (h *Handler) handleTransfer(w http.ResponseWriter, r *http.Request) {
	assetID, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req transferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	asset, err := h.service.Transfer(r.Context(), assetID, req.NewOwner)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, asset)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	assetID, ok := h.pathID(w, r)
	if !ok {
		return
	}
	asset, err := h.service.Get(r.Context(), assetID)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	shared.WriteJSON(w, http.StatusOK, asset)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	if serial := r.URL.Query().Get("serial"); serial != "" {
		asset, err := h.service.GetBySerial(r.Context(), serial)
		if err != nil {
			shared.WriteError(w, err)
			return
		}
		shared.WriteJSON(w, http.StatusOK, []*models.Asset{asset})
		return
	}

	limit := queryInt(r, "limit", 100)
	offset := queryInt(r, "offset", 0)
	assets, err := h.service.List(r.Context(), limit, offset)
	if err != nil {
		shared.WriteError(w, err)
		return
	}
	if assets == nil {
		assets = []*models.Asset{}
	}
	shared.WriteJSON(w, http.StatusOK, assets)
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	assetID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		shared.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid asset id"))
		return uuid.Nil, false
	}
	return assetID, true
}

func queryInt(r *http.Request, key string, fallback int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			return n
		}
	}
	return fallback
}
