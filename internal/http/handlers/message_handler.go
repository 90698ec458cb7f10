package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-expense-assistant/internal/domain"
	"github.com/tbourn/go-expense-assistant/internal/http/middleware"
	"github.com/tbourn/go-expense-assistant/internal/services"
)

// PostMessageRequest is one user utterance.
type PostMessageRequest struct {
	Content string `json:"content" binding:"required" example:"thêm chi tiêu ăn trưa 50k"`
}

// PostMessageResponse is the assistant's answer.
type PostMessageResponse struct {
	Reply  string        `json:"reply" example:"Đã thêm chi tiêu: ..."`
	Action domain.Action `json:"action" example:"create_expense"`
}

var nlCollapseRE = regexp.MustCompile(`\n{3,}`)

// sanitizeContent normalizes line endings, collapses runs of blank lines and
// trims the result.
func sanitizeContent(raw string) string {
	s := strings.ReplaceAll(raw, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = nlCollapseRE.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

// PostMessage godoc
// @ID          postMessage
// @Summary     Send a message to the expense assistant
// @Description Classifies the message, runs the resulting ledger operation and returns the Vietnamese reply.
// @Description With an Idempotency-Key, a retry within 24h replays the first reply and sets Idempotency-Replayed: true.
// @Tags        Messages
// @Accept      json
// @Produce     json
//
// @Param       X-User-ID        header  string  false "User ID"          example(tg:123456)
// @Param       Idempotency-Key  header  string  false "Idempotency key"  example(5f1b1c9e-retry-1)
// @Param       body             body    handlers.PostMessageRequest  true  "Message"
//
// @Success     200  {object} handlers.PostMessageResponse
// @Header      200  {string} Idempotency-Replayed "true when served from a stored reply"
// @Failure     400  {object} handlers.ErrorResponse "Bad request"
// @Failure     429  {object} handlers.ErrorResponse "Rate limited"
// @Failure     500  {object} handlers.ErrorResponse "Internal error"
// @Router      /messages [post]
func (h *Handlers) PostMessage(c *gin.Context) {
	ctx := c.Request.Context()

	var req PostMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content required")
		return
	}
	content := sanitizeContent(req.Content)
	if content == "" {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content required")
		return
	}
	if h.MaxContentRunes > 0 && utf8.RuneCountInString(content) > h.MaxContentRunes {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, fmt.Sprintf("content too long: max %d runes", h.MaxContentRunes))
		return
	}

	uid := userID(c)
	lg := middleware.LoggerFrom(c)

	key, _ := middleware.GetIdempotencyKey(c)
	if key != "" && h.replays != nil {
		rec, err := h.replays.Lookup(ctx, uid, key, time.Now().UTC())
		if err != nil {
			lg.Warn().Err(err).Msg("idempotency replay lookup failed")
		} else if rec != nil {
			c.Header(middleware.HeaderReplayed, "true")
			ok(c, http.StatusOK, PostMessageResponse{Reply: rec.Reply, Action: rec.Action})
			return
		}
	}

	reply, err := h.assistant.Handle(ctx, uid, content)
	switch {
	case errors.Is(err, services.ErrEmptyPrompt):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content required")
		return
	case errors.Is(err, services.ErrTooLong):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "content too long")
		return
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeAnswerFailed, err.Error())
		return
	}

	// Apologies are not stored, so a retry gets a fresh attempt.
	if key != "" && h.replays != nil && !reply.Failed {
		if err := h.replays.Remember(ctx, uid, key, reply); err != nil {
			lg.Warn().Err(err).Str("idempotency_key", key).Msg("storing reply failed")
		}
	}

	ok(c, http.StatusOK, PostMessageResponse{Reply: reply.Text, Action: reply.Action})
}
