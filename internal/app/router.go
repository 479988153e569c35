package app

import (
	"github.com/gin-gonic/gin"

	httpapi "github.com/wrenfield/mentorloop-backend/internal/http"
	"github.com/wrenfield/mentorloop-backend/internal/platform/logger"
)

func wireRouter(log *logger.Logger, handlerset Handlers) *gin.Engine {
	log.Info("Wiring router...")
	return httpapi.NewRouter(httpapi.RouterConfig{
		Log:               log,
		HealthHandler:     handlerset.Health,
		StudentHandler:    handlerset.Student,
		ChatHandler:       handlerset.Chat,
		DraftHandler:      handlerset.Draft,
		CurriculumHandler: handlerset.Curriculum,
		JobHandler:        handlerset.Job,
		RealtimeHandler:   handlerset.Realtime,
	})
}
