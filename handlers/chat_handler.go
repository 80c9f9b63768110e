package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/upb/chat-relay/internal/observability"
	"github.com/upb/chat-relay/services"
	"github.com/upb/chat-relay/services/relay"
	"github.com/upb/chat-relay/utils"
)

// maxBodyBytes bounds a buffered chat request body. Streaming requests
// carry no length bound.
const maxBodyBytes = 1 << 20

// Metric labels for the two chat modes
const (
	modeBuffered = "buffered"
	modeStream   = "stream"
)

// statusClientClosed labels streams the caller abandoned
const statusClientClosed = "client_closed"

// ChatRequest is the body of POST /chat
type ChatRequest struct {
	Message string `json:"message" validate:"required"`
}

// ChatResponse is the buffered reply to POST /chat
type ChatResponse struct {
	Reply string `json:"reply"`
}

// RelayService defines the chat operations the handler depends on
type RelayService interface {
	// Chat returns the full reply for message
	Chat(ctx context.Context, message string) (string, error)

	// Stream forwards each reply fragment to emit as it arrives
	Stream(ctx context.Context, message string, emit relay.EmitFunc) error
}

// ChatHandler handles chat HTTP requests
type ChatHandler struct {
	service  RelayService
	provider string
	metrics  observability.Metrics
	logger   *zap.Logger
}

// NewChatHandler creates a new ChatHandler
func NewChatHandler(service RelayService, provider string, metrics observability.Metrics, logger *zap.Logger) *ChatHandler {
	if metrics == nil {
		metrics = observability.NopMetrics{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChatHandler{
		service:  service,
		provider: provider,
		metrics:  metrics,
		logger:   logger,
	}
}

// HandleChat handles POST /chat in buffered mode
func (h *ChatHandler) HandleChat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.LoggerFromContext(ctx, h.logger)
	start := time.Now()

	message, err := h.decode(w, r, maxBodyBytes)
	if err != nil {
		h.fail(w, r, modeBuffered, err)
		return
	}

	logger.Debug("processing chat message",
		zap.String("provider", h.provider),
		zap.Int("length", len(message)))

	reply, err := h.service.Chat(ctx, message)
	if err != nil {
		logger.Warn("chat request failed",
			zap.String("provider", h.provider),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		h.fail(w, r, modeBuffered, err)
		return
	}

	h.record(ctx, modeBuffered, strconv.Itoa(http.StatusOK))
	logger.Info("chat completion successful",
		zap.String("provider", h.provider),
		zap.Int("reply_length", len(reply)),
		zap.Duration("duration", time.Since(start)))

	if err := utils.WriteOK(w, ChatResponse{Reply: reply}); err != nil {
		logger.Error("failed to write response", zap.Error(err))
	}
}

// HandleChatStream handles POST /chat in streaming mode.
// Once the first fragment is written the status is fixed at 200; later
// failures arrive in the body as a trailing "[ERROR]: ..." fragment.
func (h *ChatHandler) HandleChatStream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := observability.LoggerFromContext(ctx, h.logger)
	start := time.Now()

	message, err := h.decode(w, r, 0)
	if err != nil {
		h.fail(w, r, modeStream, err)
		return
	}

	sw := utils.NewStreamWriter(w)
	err = h.service.Stream(ctx, message, sw.WriteFragment)

	switch {
	case err == nil:
		if err := sw.Start(); err != nil {
			logger.Debug("failed to start empty stream", zap.Error(err))
		}
		h.record(ctx, modeStream, strconv.Itoa(http.StatusOK))
		logger.Info("stream completed",
			zap.String("provider", h.provider),
			zap.Duration("duration", time.Since(start)))

	case !sw.Started() && services.GetErrorType(err) != "":
		h.fail(w, r, modeStream, err)

	default:
		// the caller went away or the context ended mid-stream
		h.record(ctx, modeStream, statusClientClosed)
		logger.Info("stream aborted",
			zap.String("provider", h.provider),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
	}
}

// decode reads and validates the request body. A malformed body counts as a
// missing message. A body over limit is reported as too long; limit 0
// reads the whole body.
func (h *ChatHandler) decode(w http.ResponseWriter, r *http.Request, limit int64) (string, error) {
	var req ChatRequest
	if err := utils.DecodeJSON(w, r, limit, &req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return "", services.ErrMessageTooLong
		}
		observability.LoggerFromContext(r.Context(), h.logger).
			Debug("ignoring unreadable request body", zap.Error(err))
		req = ChatRequest{}
	}

	req.Message = strings.TrimSpace(req.Message)
	if err := utils.ValidateStruct(&req); err != nil {
		return "", services.ErrMessageRequired
	}
	return req.Message, nil
}

func (h *ChatHandler) fail(w http.ResponseWriter, r *http.Request, mode string, err error) {
	h.record(r.Context(), mode, strconv.Itoa(StatusForError(err)))
	HandleServiceError(w, err, observability.LoggerFromContext(r.Context(), h.logger))
}

func (h *ChatHandler) record(ctx context.Context, mode, status string) {
	h.metrics.RecordRequest(ctx, observability.RequestLabels{
		Mode:     mode,
		Provider: h.provider,
		Status:   status,
	})
}
