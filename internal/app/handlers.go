package app

import (
	httpH "github.com/wrenfield/mentorloop-backend/internal/http/handlers"
	"github.com/wrenfield/mentorloop-backend/internal/platform/logger"
	"github.com/wrenfield/mentorloop-backend/internal/realtime"
)

type Handlers struct {
	Health     *httpH.HealthHandler
	Student    *httpH.StudentHandler
	Chat       *httpH.ChatHandler
	Draft      *httpH.DraftHandler
	Curriculum *httpH.CurriculumHandler
	Job        *httpH.JobHandler
	Realtime   *httpH.RealtimeHandler
}

func wireHandlers(log *logger.Logger, serviceset Services, sseHub *realtime.SSEHub) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health:     httpH.NewHealthHandler(),
		Student:    httpH.NewStudentHandler(serviceset.Student),
		Chat:       httpH.NewChatHandler(serviceset.Chat),
		Draft:      httpH.NewDraftHandler(serviceset.Draft),
		Curriculum: httpH.NewCurriculumHandler(serviceset.Curriculum),
		Job:        httpH.NewJobHandler(serviceset.Job),
		Realtime:   httpH.NewRealtimeHandler(log, sseHub),
	}
}
