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

type CurriculumHandler struct {
	curriculum services.CurriculumService
}

func NewCurriculumHandler(curriculum services.CurriculumService) *CurriculumHandler {
	return &CurriculumHandler{curriculum: curriculum}
}

type createModuleReq struct {
	Sequence int    `json:"sequence"`
	Title    string `json:"title"`
	Summary  string `json:"summary"`
}

// POST /api/modules
func (h *CurriculumHandler) CreateModule(c *gin.Context) {
	var req createModuleReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	module, err := h.curriculum.CreateModule(dbc, req.Sequence, req.Title, req.Summary)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "create_module_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"module": module})
}

// GET /api/modules
func (h *CurriculumHandler) ListModules(c *gin.Context) {
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	modules, err := h.curriculum.ListModules(dbc)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "list_modules_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"modules": modules})
}

type recordProgressReq struct {
	Sequence int    `json:"sequence"`
	Status   string `json:"status"`
	Percent  int    `json:"percent"`
}

// POST /api/students/:id/progress
func (h *CurriculumHandler) RecordProgress(c *gin.Context) {
	studentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_student_id", err)
		return
	}
	var req recordProgressReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	progress, err := h.curriculum.RecordProgress(dbc, studentID, req.Sequence, req.Status, req.Percent)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "record_progress_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"progress": progress})
}

type upsertProjectReq struct {
	Title      string               `json:"title"`
	Summary    string               `json:"summary"`
	Status     string               `json:"status"`
	Milestones []services.Milestone `json:"milestones"`
}

// PUT /api/students/:id/project
func (h *CurriculumHandler) UpsertProject(c *gin.Context) {
	studentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_student_id", err)
		return
	}
	var req upsertProjectReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	project, err := h.curriculum.UpsertProject(dbc, studentID, req.Title, req.Summary, req.Status, req.Milestones)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "upsert_project_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"project": project})
}

// GET /api/students/:id/project
func (h *CurriculumHandler) GetProject(c *gin.Context) {
	studentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_student_id", err)
		return
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	project, err := h.curriculum.GetProject(dbc, studentID)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "get_project_failed", err)
		return
	}
	// Students without a research project yet get a null body, not a 404.
	response.RespondOK(c, gin.H{"project": project})
}

// GET /api/students/:id/notes?flagged=true
func (h *CurriculumHandler) ListNotes(c *gin.Context) {
	studentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_student_id", err)
		return
	}
	flaggedOnly := false
	if v := strings.TrimSpace(c.Query("flagged")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			flaggedOnly = b
		}
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	notes, err := h.curriculum.ListNotes(dbc, studentID, flaggedOnly)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "list_notes_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"notes": notes})
}

type createNoteReq struct {
	Body    string `json:"body"`
	Flagged bool   `json:"flagged"`
}

// POST /api/students/:id/notes
func (h *CurriculumHandler) CreateNote(c *gin.Context) {
	studentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_student_id", err)
		return
	}
	var req createNoteReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	note, err := h.curriculum.CreateNote(dbc, studentID, req.Body, req.Flagged)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "create_note_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"note": note})
}
