package services

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/prepwise/prepwise-backend/internal/logger"
	"github.com/prepwise/prepwise-backend/internal/types"
)

const (
	progressKeyPrefix = "progress:"
	answerFieldPrefix = "ans:"
	timeFieldPrefix   = "time:"
	totalTimeField    = "total_time"
	progressBufferTTL = 48 * time.Hour
)

// ProgressBufferService is the ephemeral attempt store. One Redis hash
// per open test instance: an answer field and an accumulated-time field
// per question, plus the authoritative running total. Entries never
// touch Postgres; the submission engine drains them exactly once.
type ProgressBufferService interface {
	RecordPartial(ctx context.Context, testInstanceID, questionID uuid.UUID, answer string, timeDeltaSec int) error
	ReadAll(ctx context.Context, testInstanceID uuid.UUID) (*types.TestProgress, error)
	Clear(ctx context.Context, testInstanceID uuid.UUID) error
}

type progressBufferService struct {
	rdb *goredis.Client
	log *logger.Logger
}

func NewProgressBufferService(rdb *goredis.Client, baseLog *logger.Logger) ProgressBufferService {
	return &progressBufferService{
		rdb: rdb,
		log: baseLog.With("service", "ProgressBufferService"),
	}
}

func progressKey(testInstanceID uuid.UUID) string {
	return progressKeyPrefix + testInstanceID.String()
}

// RecordPartial overwrites the question's answer, accumulates its
// time, and independently accumulates the instance's running total.
// Per-question upserts carry no cross-question ordering guarantee.
func (s *progressBufferService) RecordPartial(ctx context.Context, testInstanceID, questionID uuid.UUID, answer string, timeDeltaSec int) error {
	if timeDeltaSec < 0 {
		timeDeltaSec = 0
	}
	key := progressKey(testInstanceID)
	qid := questionID.String()

	pipe := s.rdb.TxPipeline()
	pipe.HSet(ctx, key, answerFieldPrefix+qid, answer)
	pipe.HIncrBy(ctx, key, timeFieldPrefix+qid, int64(timeDeltaSec))
	pipe.HIncrBy(ctx, key, totalTimeField, int64(timeDeltaSec))
	pipe.Expire(ctx, key, progressBufferTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record partial answer: %w", err)
	}
	return nil
}

func (s *progressBufferService) ReadAll(ctx context.Context, testInstanceID uuid.UUID) (*types.TestProgress, error) {
	key := progressKey(testInstanceID)
	fields, err := s.rdb.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("read progress buffer: %w", err)
	}

	progress := &types.TestProgress{TestInstanceID: testInstanceID}
	if len(fields) == 0 {
		return progress, nil
	}

	answers := map[string]string{}
	times := map[string]int{}
	for field, value := range fields {
		switch {
		case field == totalTimeField:
			if total, convErr := strconv.Atoi(value); convErr == nil {
				progress.TotalTimeSec = total
			}
		case strings.HasPrefix(field, answerFieldPrefix):
			answers[strings.TrimPrefix(field, answerFieldPrefix)] = value
		case strings.HasPrefix(field, timeFieldPrefix):
			if t, convErr := strconv.Atoi(value); convErr == nil {
				times[strings.TrimPrefix(field, timeFieldPrefix)] = t
			}
		}
	}

	for qidStr, answer := range answers {
		qid, parseErr := uuid.Parse(qidStr)
		if parseErr != nil {
			s.log.Warn("Skipping malformed question id in progress buffer", "field", qidStr)
			continue
		}
		progress.Entries = append(progress.Entries, types.ProgressEntry{
			QuestionID:         qid,
			LastAnswer:         answer,
			AccumulatedTimeSec: times[qidStr],
		})
	}
	return progress, nil
}

func (s *progressBufferService) Clear(ctx context.Context, testInstanceID uuid.UUID) error {
	if err := s.rdb.Del(ctx, progressKey(testInstanceID)).Err(); err != nil {
		return fmt.Errorf("clear progress buffer: %w", err)
	}
	return nil
}
