package handler

import (
	"NYCU-SDC/job-dispatch-service/internal/domain"
	"NYCU-SDC/job-dispatch-service/internal/metrics"
	"NYCU-SDC/job-dispatch-service/internal/workflow"
	"encoding/json"
	"errors"
	"net/http"

	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
	"go.uber.org/zap"
)

// TokenDecrypter recovers the node id from a callback token
type TokenDecrypter interface {
	Decrypt(token string) (string, error)
}

// CallbackHandler receives job platform callbacks and signals the waiting
// workflow
type CallbackHandler struct {
	temporalClient client.Client
	decrypter      TokenDecrypter
	logger         *zap.Logger
}

// NewCallbackHandler creates a new callback handler
func NewCallbackHandler(temporalClient client.Client, decrypter TokenDecrypter, logger *zap.Logger) *CallbackHandler {
	return &CallbackHandler{
		temporalClient: temporalClient,
		decrypter:      decrypter,
		logger:         logger,
	}
}

// HandleNodeCallback handles POST /taskflow/api/nodes/callback/{token}/
func (h *CallbackHandler) HandleNodeCallback(w http.ResponseWriter, r *http.Request) {
	logger := h.logger.With(zap.String("path", r.URL.Path))

	nodeID, err := h.decrypter.Decrypt(r.PathValue("token"))
	if err != nil {
		metrics.CallbackReceived(false)
		logger.Warn("Rejected node callback", zap.Error(err))
		writeError(w, logger, http.StatusForbidden, domain.ErrInvalidCallbackToken.Error())
		return
	}
	logger = logger.With(zap.String("workflow_id", nodeID))

	var cb domain.JobCallback
	if err := json.NewDecoder(r.Body).Decode(&cb); err != nil {
		metrics.CallbackReceived(false)
		logger.Error("Failed to decode callback body", zap.Error(err))
		writeError(w, logger, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.temporalClient.SignalWorkflow(r.Context(), nodeID, "", workflow.SignalJobCallback, cb); err != nil {
		metrics.CallbackReceived(false)
		var notFound *serviceerror.NotFound
		if errors.As(err, &notFound) {
			logger.Warn("Callback for unknown or finished workflow", zap.Error(err))
			writeError(w, logger, http.StatusNotFound, "Workflow not found")
			return
		}
		logger.Error("Failed to signal workflow", zap.Error(err))
		writeError(w, logger, http.StatusInternalServerError, "Failed to signal workflow")
		return
	}
	metrics.CallbackReceived(true)

	logger.Info("Node callback delivered",
		zap.Int64("job_instance_id", cb.JobInstanceID),
		zap.Int("status", cb.Status),
	)

	writeJSON(w, logger, http.StatusOK, map[string]bool{"result": true})
}
