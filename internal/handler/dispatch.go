package handler

import (
	"NYCU-SDC/job-dispatch-service/internal/domain"
	"NYCU-SDC/job-dispatch-service/internal/workflow"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"
)

// DispatchHandler starts job dispatch workflows
type DispatchHandler struct {
	temporalClient  client.Client
	validator       *validator.Validate
	taskQueue       string
	callbackTimeout time.Duration
	logger          *zap.Logger
}

// NewDispatchHandler creates a new dispatch handler
func NewDispatchHandler(temporalClient client.Client, validator *validator.Validate, taskQueue string, callbackTimeout time.Duration, logger *zap.Logger) *DispatchHandler {
	return &DispatchHandler{
		temporalClient:  temporalClient,
		validator:       validator,
		taskQueue:       taskQueue,
		callbackTimeout: callbackTimeout,
		logger:          logger,
	}
}

// DispatchResponse represents the dispatch response
type DispatchResponse struct {
	WorkflowID string `json:"workflow_id"`
	RunID      string `json:"run_id"`
	TraceID    string `json:"trace_id"`
	Status     string `json:"status"`
}

// HandleDispatch starts a workflow running a script on the requested hosts
func (h *DispatchHandler) HandleDispatch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := h.logger.With(
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
	)

	var req domain.JobDispatchRequest
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

	if req.IPStr == "" && len(req.Sets) == 0 && len(req.ServiceTemplates) == 0 {
		writeError(w, logger, http.StatusBadRequest, "Validation failed: one of ip_str, sets or service_templates is required")
		return
	}

	traceID := uuid.New().String()
	logger = logger.With(zap.String("trace_id", traceID))

	req.TraceID = traceID
	req.CallbackTimeout = h.callbackTimeout

	workflowOptions := client.StartWorkflowOptions{
		ID:        "job-" + traceID,
		TaskQueue: h.taskQueue,
	}

	workflowRun, err := h.temporalClient.ExecuteWorkflow(ctx, workflowOptions, workflow.JobDispatchWorkflow, req)
	if err != nil {
		logger.Error("Failed to start workflow", zap.Error(err))
		writeError(w, logger, http.StatusInternalServerError, "Failed to start workflow")
		return
	}

	logger.Info("Workflow started",
		zap.String("workflow_id", workflowRun.GetID()),
		zap.String("run_id", workflowRun.GetRunID()),
		zap.Int64("biz_id", req.BizID),
	)

	writeJSON(w, logger, http.StatusAccepted, DispatchResponse{
		WorkflowID: workflowRun.GetID(),
		RunID:      workflowRun.GetRunID(),
		TraceID:    traceID,
		Status:     "started",
	})
}
