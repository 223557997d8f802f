package http

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/sales-assistant/internal/domain/assistant"
	apperrors "github.com/yanqian/sales-assistant/pkg/errors"
)

const noMatchMessage = "I couldn't find any relevant information. " +
	"Please try rephrasing your question or contact support."

// Handler wires the HTTP transport to the assistant service.
type Handler struct {
	svc    assistant.Service
	logger *slog.Logger
}

// NewHandler constructs the root HTTP handler.
func NewHandler(svc assistant.Service, logger *slog.Logger) *Handler {
	return &Handler{
		svc:    svc,
		logger: logger.With("component", "http.handler"),
	}
}

// Ask answers one user question from the indexed corpus.
func (h *Handler) Ask(c *gin.Context) {
	var req assistant.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}

	resp, err := h.svc.Ask(c.Request.Context(), req)
	if err != nil {
		status := http.StatusInternalServerError
		code := "ask_failed"
		switch {
		case apperrors.IsCode(err, "invalid_input"):
			status = http.StatusBadRequest
			code = "invalid_request"
		case apperrors.IsCode(err, "query_error"):
			// Search being down is distinguishable from "no match".
			status = http.StatusServiceUnavailable
			code = "query_error"
		case apperrors.IsCode(err, "llm_error"):
			status = http.StatusBadGateway
			code = "llm_error"
		}
		abortWithError(c, NewHTTPError(status, code, errMessage(err), err))
		return
	}

	if !resp.Matched {
		resp.Answer = noMatchMessage
	}
	c.JSON(http.StatusOK, resp)
}

// Refresh reloads the corpus and rebuilds the index.
func (h *Handler) Refresh(c *gin.Context) {
	result, err := h.svc.Refresh(c.Request.Context())
	if err != nil {
		status := http.StatusBadGateway
		code := "refresh_failed"
		switch {
		case apperrors.IsCode(err, "refresh_in_progress"):
			status = http.StatusConflict
			code = "refresh_in_progress"
		case apperrors.IsCode(err, "corpus_error"):
			code = "corpus_error"
		case apperrors.IsCode(err, "index_error"):
			code = "index_error"
		}
		abortWithError(c, NewHTTPError(status, code, errMessage(err), err))
		return
	}
	c.JSON(http.StatusOK, result)
}

// Trending lists the most frequently asked questions.
func (h *Handler) Trending(c *gin.Context) {
	recs, err := h.svc.Trending(c.Request.Context())
	if err != nil {
		abortWithError(c, NewHTTPError(http.StatusInternalServerError, "trending_failed", errMessage(err), err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"trending": recs})
}

// Health reports liveness and the size of the current corpus generation.
func (h *Handler) Health(c *gin.Context) {
	size, err := h.svc.CorpusSize(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"status": "degraded", "error": errMessage(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "corpusSize": size})
}
