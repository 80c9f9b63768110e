package handlers

import (
	"io/fs"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/upb/chat-relay/utils"
	"github.com/upb/chat-relay/web"
)

// Version is the application version reported by the status endpoint
var Version = "0.1.0"

// HealthResponse represents the health check response
type HealthResponse struct {
	Status string `json:"status"`
}

// StatusResponse describes the running relay
type StatusResponse struct {
	Version     string `json:"version"`
	Environment string `json:"environment"`
	Provider    string `json:"provider"`
	Model       string `json:"model"`
	ChatMode    string `json:"chat_mode"`
	Uptime      string `json:"uptime"`
}

// StatusInfo is the static part of StatusResponse
type StatusInfo struct {
	Environment string
	Provider    string
	Model       string
	ChatMode    string
}

// HealthHandler handles health, status and landing page requests
type HealthHandler struct {
	info    StatusInfo
	static  fs.FS
	started time.Time
	logger  *zap.Logger
}

// NewHealthHandler creates a new HealthHandler. static holds index.html.
func NewHealthHandler(info StatusInfo, static fs.FS, logger *zap.Logger) *HealthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HealthHandler{
		info:    info,
		static:  static,
		started: time.Now(),
		logger:  logger,
	}
}

// HandleHealth handles GET /healthz
// Basic health check - always returns 200 if service is running
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	_ = utils.WriteOK(w, HealthResponse{Status: "ok"})
}

// HandleStatus handles GET /api/v1/status
func (h *HealthHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	response := StatusResponse{
		Version:     Version,
		Environment: h.info.Environment,
		Provider:    h.info.Provider,
		Model:       h.info.Model,
		ChatMode:    h.info.ChatMode,
		Uptime:      time.Since(h.started).Round(time.Second).String(),
	}

	if err := utils.WriteOK(w, response); err != nil {
		h.logger.Error("failed to write status response", zap.Error(err))
	}
}

// HandleIndex handles GET / by serving the static chat page
func (h *HealthHandler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	if h.static == nil {
		_ = utils.WriteNotFound(w, "")
		return
	}

	page, err := fs.ReadFile(h.static, web.IndexFile)
	if err != nil {
		h.logger.Error("failed to read index page", zap.Error(err))
		_ = utils.WriteNotFound(w, "")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(page); err != nil {
		h.logger.Debug("failed to write index page", zap.Error(err))
	}
}
