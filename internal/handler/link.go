package handler

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"
)

// LinkBuilder builds links into the job platform and node manager
type LinkBuilder interface {
	JobInstanceURL(jobInstanceID int64) string
	NodemanJobURL(instanceID string, hostID int64) string
}

// LinkHandler serves links to job and node manager pages
type LinkHandler struct {
	links  LinkBuilder
	logger *zap.Logger
}

// NewLinkHandler creates a new link handler
func NewLinkHandler(links LinkBuilder, logger *zap.Logger) *LinkHandler {
	return &LinkHandler{
		links:  links,
		logger: logger,
	}
}

// LinkResponse carries a single URL
type LinkResponse struct {
	URL string `json:"url"`
}

// HandleJobLink returns the job platform page of a job instance
func (h *LinkHandler) HandleJobLink(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid job instance id")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, LinkResponse{URL: h.links.JobInstanceURL(id)})
}

// HandleNodemanLink returns the node manager log page of a host in a task
func (h *LinkHandler) HandleNodemanLink(w http.ResponseWriter, r *http.Request) {
	hostID, err := strconv.ParseInt(r.PathValue("host"), 10, 64)
	if err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "Invalid host id")
		return
	}

	writeJSON(w, h.logger, http.StatusOK, LinkResponse{URL: h.links.NodemanJobURL(r.PathValue("instance"), hostID)})
}
