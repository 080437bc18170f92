package ingress

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/taployalty/mail-agent/internal/core"
	"go.uber.org/zap"
)

// Processor runs the pipeline for one inbound email
type Processor interface {
	Process(ctx context.Context, msg *core.InboundMessage) (*core.PipelineResult, error)
}

// processRequest is the webhook payload for one inbound email
type processRequest struct {
	MerchantID string `json:"merchant_id"`
	EmailID    string `json:"email_id"`
	Body       string `json:"body"`
}

// processResponse is the uniform envelope returned for every run
type processResponse struct {
	Success         bool   `json:"success"`
	Response        string `json:"response,omitempty"`
	WebSearchUsed   bool   `json:"web_search_used,omitempty"`
	WebSearchReason string `json:"web_search_reason,omitempty"`
	Error           string `json:"error,omitempty"`
}

// HTTPIngress triggers the pipeline from webhook requests
type HTTPIngress struct {
	service    Processor
	logger     *zap.Logger
	listenAddr string
	server     *http.Server
}

// NewHTTPIngress creates a new HTTP ingress
func NewHTTPIngress(service Processor, logger *zap.Logger, listenAddr string) *HTTPIngress {
	return &HTTPIngress{
		service:    service,
		logger:     logger,
		listenAddr: listenAddr,
	}
}

// Start begins serving webhook requests
func (h *HTTPIngress) Start() error {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v1/process", h.handleProcess)
	mux.HandleFunc("GET /health", h.handleHealth)

	h.server = &http.Server{
		Addr:         h.listenAddr,
		Handler:      mux,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute,
	}

	h.logger.Info("HTTP ingress starting", zap.String("address", h.listenAddr))

	go func() {
		if err := h.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			h.logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop shuts the server down gracefully
func (h *HTTPIngress) Stop() error {
	if h.server == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return h.server.Shutdown(ctx)
}

// handleProcess runs the pipeline for one inbound email. Pipeline
// failures are reported inside the envelope, never as transport errors;
// retry policy belongs to the caller.
func (h *HTTPIngress) handleProcess(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, processResponse{Success: false, Error: "invalid JSON body"})
		return
	}
	if req.MerchantID == "" || req.EmailID == "" {
		writeJSON(w, http.StatusBadRequest, processResponse{Success: false, Error: "merchant_id and email_id are required"})
		return
	}

	result, err := h.service.Process(r.Context(), &core.InboundMessage{
		MerchantID: req.MerchantID,
		EmailID:    req.EmailID,
		Body:       req.Body,
	})
	if err != nil {
		h.logger.Error("Pipeline run failed",
			zap.String("merchant_id", req.MerchantID),
			zap.String("email_id", req.EmailID),
			zap.Error(err))
		writeJSON(w, http.StatusOK, processResponse{Success: false, Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, processResponse{
		Success:         true,
		Response:        result.ResponseText,
		WebSearchUsed:   result.SearchUsed,
		WebSearchReason: result.SearchReason,
	})
}

func (h *HTTPIngress) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
