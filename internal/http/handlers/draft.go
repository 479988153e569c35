package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/wrenfield/mentorloop-backend/internal/http/response"
	"github.com/wrenfield/mentorloop-backend/internal/platform/apierr"
	"github.com/wrenfield/mentorloop-backend/internal/platform/dbctx"
	"github.com/wrenfield/mentorloop-backend/internal/services"
)

type DraftHandler struct {
	drafts services.DraftService
}

func NewDraftHandler(drafts services.DraftService) *DraftHandler {
	return &DraftHandler{drafts: drafts}
}

// GET /api/drafts?student_id=<uuid>&limit=50
func (h *DraftHandler) ListDrafts(c *gin.Context) {
	var studentID *uuid.UUID
	if v := strings.TrimSpace(c.Query("student_id")); v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_student_id", err)
			return
		}
		studentID = &id
	}
	limit := 50
	if v := strings.TrimSpace(c.Query("limit")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	drafts, err := h.drafts.ListPending(dbc, studentID, limit)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "list_drafts_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"drafts": drafts})
}

// GET /api/drafts/:id
func (h *DraftHandler) GetDraft(c *gin.Context) {
	draftID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_draft_id", err)
		return
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	draft, err := h.drafts.Get(dbc, draftID)
	if err != nil {
		var ae *apierr.Error
		if errors.As(err, &ae) {
			response.RespondError(c, ae.Status, ae.Code, ae.Err)
			return
		}
		response.RespondError(c, http.StatusBadRequest, "get_draft_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"draft": draft})
}

type editDraftReq struct {
	Content string `json:"content"`
}

// PATCH /api/drafts/:id
func (h *DraftHandler) EditDraft(c *gin.Context) {
	draftID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_draft_id", err)
		return
	}
	var req editDraftReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	draft, err := h.drafts.Edit(dbc, draftID, req.Content)
	if err != nil {
		var ae *apierr.Error
		if errors.As(err, &ae) {
			response.RespondError(c, ae.Status, ae.Code, ae.Err)
			return
		}
		response.RespondError(c, http.StatusBadRequest, "edit_draft_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"draft": draft})
}

type approveDraftReq struct {
	Content string `json:"content"`
}

// POST /api/drafts/:id/approve
//
// Content, when present, is applied as a final mentor edit in the same
// transition.
func (h *DraftHandler) ApproveDraft(c *gin.Context) {
	draftID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_draft_id", err)
		return
	}
	var req approveDraftReq
	_ = c.ShouldBindJSON(&req)

	dbc := dbctx.Context{Ctx: c.Request.Context()}
	msg, err := h.drafts.Approve(dbc, draftID, req.Content)
	if err != nil {
		var ae *apierr.Error
		if errors.As(err, &ae) {
			response.RespondError(c, ae.Status, ae.Code, ae.Err)
			return
		}
		response.RespondError(c, http.StatusBadRequest, "approve_draft_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"message": msg})
}

type rejectDraftReq struct {
	Reason string `json:"reason"`
}

// POST /api/drafts/:id/reject
func (h *DraftHandler) RejectDraft(c *gin.Context) {
	draftID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_draft_id", err)
		return
	}
	var req rejectDraftReq
	_ = c.ShouldBindJSON(&req)

	dbc := dbctx.Context{Ctx: c.Request.Context()}
	if err := h.drafts.Reject(dbc, draftID, req.Reason); err != nil {
		var ae *apierr.Error
		if errors.As(err, &ae) {
			response.RespondError(c, ae.Status, ae.Code, ae.Err)
			return
		}
		response.RespondError(c, http.StatusBadRequest, "reject_draft_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"ok": true})
}

// POST /api/drafts/:id/regenerate
func (h *DraftHandler) RegenerateDraft(c *gin.Context) {
	draftID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_draft_id", err)
		return
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	job, err := h.drafts.Regenerate(dbc, draftID)
	if err != nil {
		var ae *apierr.Error
		if errors.As(err, &ae) {
			response.RespondError(c, ae.Status, ae.Code, ae.Err)
			return
		}
		response.RespondError(c, http.StatusBadRequest, "regenerate_draft_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"job": job})
}
