package app

import (
	"gorm.io/gorm"

	"github.com/wrenfield/mentorloop-backend/internal/data/repos"
	"github.com/wrenfield/mentorloop-backend/internal/platform/logger"
)

type Repos struct {
	Student         repos.StudentRepo
	Message         repos.MessageRepo
	VideoModule     repos.VideoModuleRepo
	ModuleProgress  repos.ModuleProgressRepo
	ResearchProject repos.ResearchProjectRepo
	MentorNote      repos.MentorNoteRepo
	JobRun          repos.JobRunRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Student:         repos.NewStudentRepo(db, log),
		Message:         repos.NewMessageRepo(db, log),
		VideoModule:     repos.NewVideoModuleRepo(db, log),
		ModuleProgress:  repos.NewModuleProgressRepo(db, log),
		ResearchProject: repos.NewResearchProjectRepo(db, log),
		MentorNote:      repos.NewMentorNoteRepo(db, log),
		JobRun:          repos.NewJobRunRepo(db, log),
	}
}
