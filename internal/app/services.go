package app

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/wrenfield/mentorloop-backend/internal/jobs/pipeline/draft_generate"
	jobruntime "github.com/wrenfield/mentorloop-backend/internal/jobs/runtime"
	"github.com/wrenfield/mentorloop-backend/internal/jobs/worker"
	"github.com/wrenfield/mentorloop-backend/internal/modules/assistant"
	"github.com/wrenfield/mentorloop-backend/internal/platform/logger"
	"github.com/wrenfield/mentorloop-backend/internal/realtime"
	"github.com/wrenfield/mentorloop-backend/internal/services"
)

type Services struct {
	JobNotifier  services.JobNotifier
	ChatNotifier services.ChatNotifier

	Job        services.JobService
	Chat       services.ChatService
	Draft      services.DraftService
	Student    services.StudentService
	Curriculum services.CurriculumService

	Assistant assistant.Usecases
	Tools     *assistant.Registry

	JobRegistry *jobruntime.Registry
	JobWorker   *worker.Worker
}

func wireServices(db *gorm.DB, log *logger.Logger, cfg Config, reposet Repos, sseHub *realtime.SSEHub, clients Clients) (Services, error) {
	log.Info("Wiring services...")

	// The API process broadcasts to its own connected clients; a
	// worker-only process publishes to Redis so whichever API instance
	// holds the connection can fan out.
	var emitter services.SSEEmitter
	if cfg.RunServer {
		emitter = &services.HubEmitter{Hub: sseHub}
	} else {
		if clients.SSEBus == nil {
			return Services{}, fmt.Errorf("worker-only process requires REDIS_ADDR to publish SSE events")
		}
		emitter = &services.RedisEmitter{Bus: clients.SSEBus}
	}

	jobNotifier := services.NewJobNotifier(emitter)
	chatNotifier := services.NewChatNotifier(emitter)

	jobService := services.NewJobService(db, log, reposet.JobRun, jobNotifier)
	chatService := services.NewChatService(db, log, reposet.Student, reposet.Message, jobService, chatNotifier)
	draftService := services.NewDraftService(db, log, reposet.Message, jobService, chatNotifier)
	studentService := services.NewStudentService(db, log, reposet.Student)
	curriculumService := services.NewCurriculumService(
		db, log,
		reposet.Student,
		reposet.VideoModule,
		reposet.ModuleProgress,
		reposet.ResearchProject,
		reposet.MentorNote,
	)

	toolRegistry := assistant.NewRegistry(assistant.RegistryDeps{
		Log:      log,
		Students: reposet.Student,
		Modules:  reposet.VideoModule,
		Progress: reposet.ModuleProgress,
		Projects: reposet.ResearchProject,
		Notes:    reposet.MentorNote,
	})
	assistantUC := assistant.New(assistant.UsecasesDeps{
		Log:      log,
		Provider: clients.LLM,
		Registry: toolRegistry,
		Students: reposet.Student,
		Messages: reposet.Message,
		Modules:  reposet.VideoModule,
		Progress: reposet.ModuleProgress,
		Projects: reposet.ResearchProject,
	})

	jobRegistry := jobruntime.NewRegistry()
	draftGenerate := draft_generate.New(db, log, assistantUC, reposet.Message, chatNotifier)
	if err := jobRegistry.Register(draftGenerate); err != nil {
		return Services{}, err
	}

	var jobWorker *worker.Worker
	if cfg.RunWorker {
		jobWorker = worker.NewWorker(db, log, reposet.JobRun, jobRegistry, jobNotifier)
	}

	return Services{
		JobNotifier:  jobNotifier,
		ChatNotifier: chatNotifier,
		Job:          jobService,
		Chat:         chatService,
		Draft:        draftService,
		Student:      studentService,
		Curriculum:   curriculumService,
		Assistant:    assistantUC,
		Tools:        toolRegistry,
		JobRegistry:  jobRegistry,
		JobWorker:    jobWorker,
	}, nil
}
