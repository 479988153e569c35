package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/wrenfield/mentorloop-backend/internal/http/handlers"
	httpMW "github.com/wrenfield/mentorloop-backend/internal/http/middleware"
	"github.com/wrenfield/mentorloop-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log *logger.Logger

	HealthHandler     *httpH.HealthHandler
	StudentHandler    *httpH.StudentHandler
	ChatHandler       *httpH.ChatHandler
	DraftHandler      *httpH.DraftHandler
	CurriculumHandler *httpH.CurriculumHandler
	JobHandler        *httpH.JobHandler
	RealtimeHandler   *httpH.RealtimeHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware("mentorloop-api"))
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.CORS())
	r.Use(httpMW.RequestLogger(cfg.Log))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	{
		// Students
		if cfg.StudentHandler != nil {
			api.POST("/students", cfg.StudentHandler.CreateStudent)
			api.GET("/students", cfg.StudentHandler.ListStudents)
			api.GET("/students/:id", cfg.StudentHandler.GetStudent)
			api.POST("/students/:id/phase", cfg.StudentHandler.SetPhase)
		}

		// Chat
		if cfg.ChatHandler != nil {
			api.POST("/students/:id/messages", cfg.ChatHandler.SendMessage)
			api.GET("/students/:id/messages", cfg.ChatHandler.ListMessages)
			api.GET("/students/:id/threads", cfg.ChatHandler.ListThreads)
		}

		// Draft review
		if cfg.DraftHandler != nil {
			api.GET("/drafts", cfg.DraftHandler.ListDrafts)
			api.GET("/drafts/:id", cfg.DraftHandler.GetDraft)
			api.PATCH("/drafts/:id", cfg.DraftHandler.EditDraft)
			api.POST("/drafts/:id/approve", cfg.DraftHandler.ApproveDraft)
			api.POST("/drafts/:id/reject", cfg.DraftHandler.RejectDraft)
			api.POST("/drafts/:id/regenerate", cfg.DraftHandler.RegenerateDraft)
		}

		// Curriculum
		if cfg.CurriculumHandler != nil {
			api.POST("/modules", cfg.CurriculumHandler.CreateModule)
			api.GET("/modules", cfg.CurriculumHandler.ListModules)
			api.POST("/students/:id/progress", cfg.CurriculumHandler.RecordProgress)
			api.PUT("/students/:id/project", cfg.CurriculumHandler.UpsertProject)
			api.GET("/students/:id/project", cfg.CurriculumHandler.GetProject)
			api.GET("/students/:id/notes", cfg.CurriculumHandler.ListNotes)
			api.POST("/students/:id/notes", cfg.CurriculumHandler.CreateNote)
		}

		// Jobs
		if cfg.JobHandler != nil {
			api.GET("/jobs/:id", cfg.JobHandler.GetJob)
			api.POST("/jobs/:id/cancel", cfg.JobHandler.CancelJob)
		}

		// Realtime (SSE)
		if cfg.RealtimeHandler != nil {
			api.GET("/sse/stream", cfg.RealtimeHandler.SSEStream)
			api.POST("/sse/subscribe", cfg.RealtimeHandler.SSESubscribe)
			api.POST("/sse/unsubscribe", cfg.RealtimeHandler.SSEUnsubscribe)
		}
	}

	return r
}
