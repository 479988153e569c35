package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/wrenfield/mentorloop-backend/internal/http/response"
	"github.com/wrenfield/mentorloop-backend/internal/platform/logger"
	"github.com/wrenfield/mentorloop-backend/internal/realtime"
)

type RealtimeHandler struct {
	Log *logger.Logger
	Hub *realtime.SSEHub

	mu      sync.RWMutex
	clients map[uuid.UUID]*realtime.SSEClient // key: client ID, echoed as X-Client-Id
}

func NewRealtimeHandler(log *logger.Logger, hub *realtime.SSEHub) *RealtimeHandler {
	return &RealtimeHandler{
		Log:     log,
		Hub:     hub,
		clients: make(map[uuid.UUID]*realtime.SSEClient),
	}
}

// GET /api/sse/stream?student_id=<uuid>
//
// With student_id the stream carries that student's events. Without it
// the connection is a mentor dashboard stream on the shared mentors
// channel.
func (h *RealtimeHandler) SSEStream(c *gin.Context) {
	studentID := uuid.Nil
	if v := strings.TrimSpace(c.Query("student_id")); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_student_id", err)
			return
		}
		studentID = id
	}

	client := h.Hub.NewSSEClient(studentID)
	h.mu.Lock()
	h.clients[client.ID] = client
	h.mu.Unlock()

	if studentID != uuid.Nil {
		h.Hub.AddChannel(client, studentID.String())
	} else {
		h.Hub.AddChannel(client, realtime.MentorChannel)
	}
	h.Log.Info("SSEStream open", "client_id", client.ID.String(), "student_id", studentID.String())

	// The header must go out with the stream open; subscribe calls
	// reference it afterwards.
	c.Writer.Header().Set("X-Client-Id", client.ID.String())

	h.Hub.ServeHTTP(c.Writer, c.Request, client)

	h.mu.Lock()
	delete(h.clients, client.ID)
	h.mu.Unlock()
	h.Hub.CloseClient(client)
}

type sseChannelReq struct {
	ClientID string `json:"client_id"`
	Channel  string `json:"channel"`
}

// POST /api/sse/subscribe
//
// Mentors use this to watch a specific student's channel alongside the
// shared mentors feed.
func (h *RealtimeHandler) SSESubscribe(c *gin.Context) {
	client, channel, ok := h.resolveChannelReq(c)
	if !ok {
		return
	}
	h.Hub.AddChannel(client, channel)
	response.RespondOK(c, gin.H{"message": "subscribed", "channel": channel})
}

// POST /api/sse/unsubscribe
func (h *RealtimeHandler) SSEUnsubscribe(c *gin.Context) {
	client, channel, ok := h.resolveChannelReq(c)
	if !ok {
		return
	}
	h.Hub.RemoveChannel(client, channel)
	response.RespondOK(c, gin.H{"message": "unsubscribed", "channel": channel})
}

func (h *RealtimeHandler) resolveChannelReq(c *gin.Context) (*realtime.SSEClient, string, bool) {
	var req sseChannelReq
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Channel) == "" {
		response.RespondError(c, http.StatusBadRequest, "invalid_channel", err)
		return nil, "", false
	}
	clientID, err := uuid.Parse(strings.TrimSpace(req.ClientID))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_client_id", err)
		return nil, "", false
	}

	h.mu.RLock()
	client, exists := h.clients[clientID]
	h.mu.RUnlock()
	if !exists {
		response.RespondError(c, http.StatusConflict, "no_active_stream",
			fmt.Errorf("no live SSE connection for client %s", clientID))
		return nil, "", false
	}
	return client, strings.TrimSpace(req.Channel), true
}
