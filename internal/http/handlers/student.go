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

type StudentHandler struct {
	students services.StudentService
}

func NewStudentHandler(students services.StudentService) *StudentHandler {
	return &StudentHandler{students: students}
}

type createStudentReq struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phase string `json:"phase"`
}

// POST /api/students
func (h *StudentHandler) CreateStudent(c *gin.Context) {
	var req createStudentReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	student, err := h.students.Create(dbc, req.Name, req.Email, req.Phase)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "create_student_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"student": student})
}

// GET /api/students?limit=50&offset=0
func (h *StudentHandler) ListStudents(c *gin.Context) {
	limit := 50
	if v := strings.TrimSpace(c.Query("limit")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			limit = n
		}
	}
	offset := 0
	if v := strings.TrimSpace(c.Query("offset")); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			offset = n
		}
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	students, err := h.students.List(dbc, limit, offset)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "list_students_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"students": students})
}

// GET /api/students/:id
func (h *StudentHandler) GetStudent(c *gin.Context) {
	studentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_student_id", err)
		return
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	student, err := h.students.Get(dbc, studentID)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "student_not_found", err)
		return
	}
	response.RespondOK(c, gin.H{"student": student})
}

type setPhaseReq struct {
	Phase string `json:"phase"`
}

// POST /api/students/:id/phase
func (h *StudentHandler) SetPhase(c *gin.Context) {
	studentID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_student_id", err)
		return
	}
	var req setPhaseReq
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	dbc := dbctx.Context{Ctx: c.Request.Context()}
	student, err := h.students.SetPhase(dbc, studentID, req.Phase)
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "set_phase_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"student": student})
}
