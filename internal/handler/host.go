package handler

import (
	"NYCU-SDC/job-dispatch-service/internal/domain"
	"NYCU-SDC/job-dispatch-service/internal/resolver"
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// HostResolver resolves IP strings against CMDB
type HostResolver interface {
	ResolveIPsByStr(ctx context.Context, username string, bizID int64, ipStr string, useCache bool) (*domain.ResolutionResult, error)
}

// HostHandler serves host resolution requests
type HostHandler struct {
	resolver  HostResolver
	validator *validator.Validate
	logger    *zap.Logger
}

// NewHostHandler creates a new host handler
func NewHostHandler(resolver HostResolver, validator *validator.Validate, logger *zap.Logger) *HostHandler {
	return &HostHandler{
		resolver:  resolver,
		validator: validator,
		logger:    logger,
	}
}

// ResolveRequest is the payload of a resolve request
type ResolveRequest struct {
	Username string `json:"username" validate:"required"`
	BizID    int64  `json:"bk_biz_id" validate:"required,gt=0"`
	IPStr    string `json:"ip_str"`
	UseCache *bool  `json:"use_cache,omitempty"`
}

// DifferenceRequest is the payload of a difference request
type DifferenceRequest struct {
	Original string   `json:"original"`
	Resolved []string `json:"resolved"`
}

// DifferenceResponse lists the IPs of Original missing from Resolved
type DifferenceResponse struct {
	Difference []string `json:"difference"`
}

// HandleResolve resolves an IP string to CMDB hosts
func (h *HostHandler) HandleResolve(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(zap.String("path", r.URL.Path))

	var req ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Error("Failed to decode request body", zap.Error(err))
		writeError(w, logger, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		logger.Error("Request validation failed", zap.Error(err))
		writeError(w, logger, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	useCache := true
	if req.UseCache != nil {
		useCache = *req.UseCache
	}

	result, err := h.resolver.ResolveIPsByStr(r.Context(), req.Username, req.BizID, req.IPStr, useCache)
	if err != nil {
		logger.Error("Failed to resolve IP string", zap.Error(err), zap.Int64("biz_id", req.BizID))
		writeError(w, logger, http.StatusBadGateway, "Failed to query CMDB")
		return
	}

	writeJSON(w, logger, http.StatusOK, result)
}

// HandleDifference returns the IPs of an IP string missing from a resolved list
func (h *HostHandler) HandleDifference(w http.ResponseWriter, r *http.Request) {
	var req DifferenceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("Failed to decode request body", zap.Error(err))
		writeError(w, h.logger, http.StatusBadRequest, "Invalid request body")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, DifferenceResponse{
		Difference: resolver.DifferenceIPs(req.Original, req.Resolved),
	})
}
