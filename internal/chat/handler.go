package chat

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/wolfman30/medipulse/internal/observability/metrics"
	"github.com/wolfman30/medipulse/pkg/logging"
)

const maxChatBody = 64 << 10

// Handler serves POST /api/chat.
type Handler struct {
	generator Generator
	metrics   *metrics.ChatMetrics
	logger    *logging.Logger
}

// NewHandler builds the chat endpoint. A nil generator makes every request
// fail with 500, matching a missing API key.
func NewHandler(generator Generator, m *metrics.ChatMetrics, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{generator: generator, metrics: m, logger: logger}
}

type request struct {
	Message string `json:"message"`
}

type response struct {
	Reply string `json:"reply"`
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	var req request
	_ = json.NewDecoder(http.MaxBytesReader(w, r.Body, maxChatBody)).Decode(&req)
	if strings.TrimSpace(req.Message) == "" {
		writeError(w, http.StatusBadRequest, "Message is required")
		return
	}

	if h.generator == nil {
		h.logger.Error("chat request failed", "error", "no generator configured")
		h.metrics.ObserveRequest("none", "error")
		writeError(w, http.StatusInternalServerError, "Chat request failed")
		return
	}

	provider := h.generator.Provider()
	reply, err := h.generator.Generate(r.Context(), req.Message)
	if err != nil {
		h.logger.Error("chat request failed", "provider", provider, "error", err)
		h.metrics.ObserveRequest(provider, "error")
		writeError(w, http.StatusInternalServerError, "Chat request failed")
		return
	}
	h.metrics.ObserveRequest(provider, "ok")
	writeJSON(w, http.StatusOK, response{Reply: reply})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
