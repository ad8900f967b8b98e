package redis

import (
	"context"
	"strconv"
	"time"

	"quiz-proctor/internal/app"
	"quiz-proctor/internal/domain"
	"github.com/redis/go-redis/v9"
)

// AttemptStore keeps attempts in Redis so a restarted server still knows
// about in-flight attempts. Layout:
//
//	INCR attempt:seq                          -> attempt ids
//	HSET attempt:{id}       <record fields>
//	HSET attempt:{id}:answers {questionID} {optionID}
//	HSET attempt:{id}:correct {questionID} {0|1}
//
// All keys share one TTL so abandoned attempts age out together.
type AttemptStore struct {
	client *redis.Client
	ttl    time.Duration
	clock  func() time.Time
}

func NewAttemptStore(client *redis.Client, ttl time.Duration) *AttemptStore {
	return &AttemptStore{client: client, ttl: ttl, clock: time.Now}
}

func (s *AttemptStore) Create(ctx context.Context, quizID, userID string) (domain.AttemptRecord, error) {
	seq, err := s.client.Incr(ctx, "attempt:seq").Result()
	if err != nil {
		return domain.AttemptRecord{}, err
	}
	record := domain.AttemptRecord{
		ID:        strconv.FormatInt(seq, 10),
		QuizID:    quizID,
		UserID:    userID,
		StartedAt: s.clock(),
	}
	if err := s.write(ctx, record); err != nil {
		return domain.AttemptRecord{}, err
	}
	return record, nil
}

func (s *AttemptStore) Get(ctx context.Context, attemptID string) (domain.AttemptRecord, error) {
	fields, err := s.client.HGetAll(ctx, s.key(attemptID)).Result()
	if err != nil {
		return domain.AttemptRecord{}, err
	}
	if len(fields) == 0 {
		return domain.AttemptRecord{}, domain.ErrAttemptNotFound
	}

	record := domain.AttemptRecord{
		ID:     attemptID,
		QuizID: fields["quiz_id"],
		UserID: fields["user_id"],
	}
	if unix, err := strconv.ParseInt(fields["started_at"], 10, 64); err == nil {
		record.StartedAt = time.Unix(unix, 0)
	}
	record.Completed = fields["completed"] == "1"
	record.Score = atoiOr0(fields["score"])
	record.CorrectAnswers = atoiOr0(fields["correct_answers"])
	record.TotalQuestions = atoiOr0(fields["total_questions"])
	record.TimeSpentSeconds = atoiOr0(fields["time_spent_seconds"])
	return record, nil
}

func (s *AttemptStore) RecordAnswer(ctx context.Context, attemptID string, answer app.StoredAnswer) error {
	if _, err := s.Get(ctx, attemptID); err != nil {
		return err
	}
	correct := "0"
	if answer.Correct {
		correct = "1"
	}
	question := strconv.FormatInt(answer.QuestionID, 10)
	pipe := s.client.Pipeline()
	pipe.HSet(ctx, s.answersKey(attemptID), question, strconv.FormatInt(answer.OptionID, 10))
	pipe.HSet(ctx, s.correctKey(attemptID), question, correct)
	if s.ttl > 0 {
		pipe.Expire(ctx, s.answersKey(attemptID), s.ttl)
		pipe.Expire(ctx, s.correctKey(attemptID), s.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (s *AttemptStore) Answers(ctx context.Context, attemptID string) ([]app.StoredAnswer, error) {
	if _, err := s.Get(ctx, attemptID); err != nil {
		return nil, err
	}
	options, err := s.client.HGetAll(ctx, s.answersKey(attemptID)).Result()
	if err != nil {
		return nil, err
	}
	correctness, err := s.client.HGetAll(ctx, s.correctKey(attemptID)).Result()
	if err != nil {
		return nil, err
	}

	answers := make([]app.StoredAnswer, 0, len(options))
	for question, option := range options {
		questionID, err := strconv.ParseInt(question, 10, 64)
		if err != nil {
			continue
		}
		optionID, _ := strconv.ParseInt(option, 10, 64)
		answers = append(answers, app.StoredAnswer{
			QuestionID: questionID,
			OptionID:   optionID,
			Correct:    correctness[question] == "1",
		})
	}
	return answers, nil
}

func (s *AttemptStore) Save(ctx context.Context, record domain.AttemptRecord) error {
	if _, err := s.Get(ctx, record.ID); err != nil {
		return err
	}
	return s.write(ctx, record)
}

func (s *AttemptStore) write(ctx context.Context, record domain.AttemptRecord) error {
	completed := "0"
	if record.Completed {
		completed = "1"
	}
	fields := map[string]interface{}{
		"quiz_id":            record.QuizID,
		"user_id":            record.UserID,
		"started_at":         record.StartedAt.Unix(),
		"completed":          completed,
		"score":              record.Score,
		"correct_answers":    record.CorrectAnswers,
		"total_questions":    record.TotalQuestions,
		"time_spent_seconds": record.TimeSpentSeconds,
	}
	pipe := s.client.Pipeline()
	pipe.HSet(ctx, s.key(record.ID), fields)
	if s.ttl > 0 {
		pipe.Expire(ctx, s.key(record.ID), s.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (s *AttemptStore) key(attemptID string) string {
	return "attempt:" + attemptID
}

func (s *AttemptStore) answersKey(attemptID string) string {
	return "attempt:" + attemptID + ":answers"
}

func (s *AttemptStore) correctKey(attemptID string) string {
	return "attempt:" + attemptID + ":correct"
}

func atoiOr0(raw string) int {
	n, _ := strconv.Atoi(raw)
	return n
}
