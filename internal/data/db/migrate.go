package db

import (
	"fmt"

	"gorm.io/gorm"

	types "github.com/wrenfield/mentorloop-backend/internal/domain"
)

func AutoMigrateAll(db *gorm.DB) error {
	return db.AutoMigrate(
		&types.Student{},
		&types.Message{},

		// Curriculum (Phase I video modules, Phase II research project)
		&types.VideoModule{},
		&types.ModuleProgress{},
		&types.ResearchProject{},
		&types.MentorNote{},

		&types.JobRun{},
	)
}

// EnsureConstraints adds FK constraints that AutoMigrate skips because
// DisableForeignKeyConstraintWhenMigrating is set on the root handle.
func EnsureConstraints(db *gorm.DB) error {
	stmts := []struct {
		name string
		sql  string
	}{
		{
			"fk_message_student",
			`DO $$ BEGIN
				ALTER TABLE message ADD CONSTRAINT fk_message_student
					FOREIGN KEY (student_id) REFERENCES student(id) ON DELETE CASCADE;
			EXCEPTION WHEN duplicate_object THEN NULL; END $$;`,
		},
		{
			"fk_module_progress_student",
			`DO $$ BEGIN
				ALTER TABLE module_progress ADD CONSTRAINT fk_module_progress_student
					FOREIGN KEY (student_id) REFERENCES student(id) ON DELETE CASCADE;
			EXCEPTION WHEN duplicate_object THEN NULL; END $$;`,
		},
		{
			"fk_module_progress_module",
			`DO $$ BEGIN
				ALTER TABLE module_progress ADD CONSTRAINT fk_module_progress_module
					FOREIGN KEY (video_module_id) REFERENCES video_module(id) ON DELETE CASCADE;
			EXCEPTION WHEN duplicate_object THEN NULL; END $$;`,
		},
		{
			"fk_research_project_student",
			`DO $$ BEGIN
				ALTER TABLE research_project ADD CONSTRAINT fk_research_project_student
					FOREIGN KEY (student_id) REFERENCES student(id) ON DELETE CASCADE;
			EXCEPTION WHEN duplicate_object THEN NULL; END $$;`,
		},
		{
			"fk_mentor_note_student",
			`DO $$ BEGIN
				ALTER TABLE mentor_note ADD CONSTRAINT fk_mentor_note_student
					FOREIGN KEY (student_id) REFERENCES student(id) ON DELETE CASCADE;
			EXCEPTION WHEN duplicate_object THEN NULL; END $$;`,
		},
		{
			"fk_job_run_student",
			`DO $$ BEGIN
				ALTER TABLE job_run ADD CONSTRAINT fk_job_run_student
					FOREIGN KEY (student_id) REFERENCES student(id) ON DELETE CASCADE;
			EXCEPTION WHEN duplicate_object THEN NULL; END $$;`,
		},
	}
	for _, s := range stmts {
		if err := db.Exec(s.sql).Error; err != nil {
			return fmt.Errorf("apply %s: %w", s.name, err)
		}
	}
	return nil
}
