package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/wrenfield/mentorloop-backend/internal/http/response"
	"github.com/wrenfield/mentorloop-backend/internal/platform/dbctx"
	"github.com/wrenfield/mentorloop-backend/internal/services"
)

type ChatHandler struct {
	chat services.ChatService
}

func NewChatHandler(chat services.ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

type sendMessageReq struct {
	Content string `json:"content"`
}

// POST /api/students/:id/messages
//
// The job field is null when draft generation was already pending; the
// message is stored either way.
func (h *ChatHandler) SendMessage(c *gin.Context) {
	studentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_student_id", err)
		return
	}
	var req sendMessageReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}

	dbc := dbctx.Context{Ctx: c.Request.Context()}
	msg, job, err := h.chat.SendMessage(dbc, studentID, req.Content)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "send_message_failed", err)
		return
	}
	response.RespondOK(c, gin.H{
		"message": msg,
		"job":     job,
	})
}

// GET /api/students/:id/messages?limit=50
func (h *ChatHandler) ListMessages(c *gin.Context) {
	studentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_student_id", err)
		return
	}
	limit := 50
	if v := strings.TrimSpace(c.Query("limit")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	msgs, err := h.chat.ListMessages(dbc, studentID, limit)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "list_messages_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"messages": msgs})
}

// GET /api/students/:id/threads
func (h *ChatHandler) ListThreads(c *gin.Context) {
	studentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_student_id", err)
		return
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	threads, err := h.chat.ListThreads(dbc, studentID)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "list_threads_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"threads": threads})
}
