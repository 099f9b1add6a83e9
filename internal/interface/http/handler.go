package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yanqian/iso-insight/internal/domain/insight"
	apperrors "github.com/yanqian/iso-insight/pkg/errors"
)

const pageTemplate = "page.html.tmpl"

// Readiness reports the outcome of the startup phase: a ready assistant or
// the error that blocks the page.
type Readiness interface {
	Assistant() (insight.Assistant, error)
}

// PageHandler serves the single question page.
type PageHandler struct {
	readiness Readiness
	logger    *slog.Logger
}

// NewPageHandler constructs the page handler.
func NewPageHandler(readiness Readiness, logger *slog.Logger) *PageHandler {
	return &PageHandler{
		readiness: readiness,
		logger:    logger.With("component", "http.page"),
	}
}

type askForm struct {
	Message string `form:"message"`
}

type pageView struct {
	Blocked  string
	Question string
	Warning  string
	Error    string
	Answer   *insight.Answer
}

// Show renders the empty form.
func (h *PageHandler) Show(c *gin.Context) {
	if _, err := h.readiness.Assistant(); err != nil {
		h.renderBlocked(c, err)
		return
	}
	c.HTML(http.StatusOK, pageTemplate, pageView{})
}

// Ask handles a form submission.
func (h *PageHandler) Ask(c *gin.Context) {
	assistant, err := h.readiness.Assistant()
	if err != nil {
		h.renderBlocked(c, err)
		return
	}

	var form askForm
	if err := c.ShouldBind(&form); err != nil {
		abortWithError(c, NewHTTPError(http.StatusBadRequest, "invalid_request", errMessage(err), err))
		return
	}
	question := strings.TrimSpace(form.Message)
	if question == "" {
		c.HTML(http.StatusBadRequest, pageTemplate, pageView{Warning: "Please enter a question."})
		return
	}

	answer, err := assistant.Answer(c.Request.Context(), question)
	if err != nil {
		httpErr := fromAnswerError(err)
		if httpErr.Status >= http.StatusInternalServerError {
			h.logger.Error("answer failed", "code", httpErr.Code, "error", err)
		} else {
			h.logger.Warn("answer rejected", "code", httpErr.Code, "error", err)
		}
		c.HTML(httpErr.Status, pageTemplate, pageView{Question: question, Error: httpErr.Message})
		return
	}

	c.HTML(http.StatusOK, pageTemplate, pageView{Question: question, Answer: &answer})
}

func (h *PageHandler) renderBlocked(c *gin.Context, err error) {
	c.HTML(http.StatusServiceUnavailable, pageTemplate, pageView{Blocked: blockedMessage(err)})
}

func blockedMessage(err error) string {
	switch {
	case apperrors.IsCode(err, apperrors.CodeConfig):
		return "Configuration error: " + errMessage(err)
	case apperrors.IsCode(err, apperrors.CodeLoad):
		return "The ISO knowledge base could not be loaded: " + errMessage(err)
	case apperrors.IsCode(err, apperrors.CodeAuthentication):
		return "The AI provider rejected the configured API key: " + errMessage(err)
	default:
		return "The service failed to start: " + errMessage(err)
	}
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
