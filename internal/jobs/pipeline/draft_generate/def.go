package draft_generate

import (
	"gorm.io/gorm"

	"github.com/wrenfield/mentorloop-backend/internal/data/repos"
	"github.com/wrenfield/mentorloop-backend/internal/modules/assistant"
	"github.com/wrenfield/mentorloop-backend/internal/platform/logger"
	"github.com/wrenfield/mentorloop-backend/internal/services"
)

type Pipeline struct {
	db        *gorm.DB
	log       *logger.Logger
	assistant assistant.Usecases
	messages  repos.MessageRepo
	notify    services.ChatNotifier
}

func New(
	db *gorm.DB,
	baseLog *logger.Logger,
	assistantUC assistant.Usecases,
	messageRepo repos.MessageRepo,
	notify services.ChatNotifier,
) *Pipeline {
	return &Pipeline{
		db:        db,
		log:       baseLog.With("job", services.JobTypeDraftGenerate),
		assistant: assistantUC,
		messages:  messageRepo,
		notify:    notify,
	}
}

func (p *Pipeline) Type() string { return services.JobTypeDraftGenerate }
