package db

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/prepwise/prepwise-backend/internal/logger"
	"github.com/prepwise/prepwise-backend/internal/types"
	"github.com/prepwise/prepwise-backend/internal/utils"
)

type PostgresService struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewPostgresService(log *logger.Logger) (*PostgresService, error) {
	serviceLog := log.With("service", "PostgresService")

	host := utils.GetEnv("POSTGRES_HOST", "localhost", log)
	port := utils.GetEnv("POSTGRES_PORT", "5432", log)
	user := utils.GetEnv("POSTGRES_USER", "postgres", log)
	password := utils.GetEnv("POSTGRES_PASSWORD", "", log)
	name := utils.GetEnv("POSTGRES_NAME", "prepwise", log)

	dsn := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", user, password, host, port, name)

	serviceLog.Info("Connecting to Postgres...")
	gdb, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}

	if err := gdb.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
		return nil, fmt.Errorf("failed to enable uuid-ossp extension: %w", err)
	}

	return &PostgresService{db: gdb, log: serviceLog}, nil
}

func (s *PostgresService) DB() *gorm.DB { return s.db }

func (s *PostgresService) AutoMigrateAll() error {
	s.log.Info("Auto migrating postgres tables...")
	err := s.db.AutoMigrate(
		&types.User{},
		&types.Exam{},
		&types.ExamSession{},
		&types.Subject{},
		&types.Topic{},
		&types.Subtopic{},
		&types.Question{},
		&types.TestInstance{},
		&types.TestAnswer{},
		&types.SubtopicPerformance{},
		&types.TopicPerformance{},
		&types.TopicDifficultyPerformance{},
		&types.SubjectPerformance{},
		&types.UserOverallPerformance{},
		&types.DailyPerformance{},
	)
	if err != nil {
		s.log.Error("Auto migration failed for postgres tables", "error", err)
		return err
	}

	s.log.Info("Configuring foreign key relationships for postgres tables...")
	constraints := []struct {
		table, name, column, refTable, refColumn string
	}{
		{"exam_session", "fk_exam_session_exam_id", "exam_id", "exam", "id"},
		{"subject", "fk_subject_exam_id", "exam_id", "exam", "id"},
		{"topic", "fk_topic_subject_id", "subject_id", "subject", "id"},
		{"subtopic", "fk_subtopic_topic_id", "topic_id", "topic", "id"},
		{"question", "fk_question_subtopic_id", "subtopic_id", "subtopic", "id"},
		{"test_instance", "fk_test_instance_user_id", "user_id", "user", "id"},
		{"test_instance", "fk_test_instance_exam_id", "exam_id", "exam", "id"},
		{"test_answer", "fk_test_answer_test_instance_id", "test_instance_id", "test_instance", "id"},
	}
	for _, c := range constraints {
		stmt := fmt.Sprintf(`
			DO $$ BEGIN
				IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = '%s') THEN
					ALTER TABLE "%s" ADD CONSTRAINT "%s"
					FOREIGN KEY ("%s") REFERENCES "%s"("%s") ON DELETE CASCADE;
				END IF;
			END $$;
		`, c.name, c.table, c.name, c.column, c.refTable, c.refColumn)
		if err := s.db.Exec(stmt).Error; err != nil {
			s.log.Error("Failed to add foreign key constraint", "constraint", c.name, "error", err)
			return err
		}
	}
	return nil
}
