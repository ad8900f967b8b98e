package app

import (
	"context"
	"math"
	"time"

	"quiz-proctor/internal/domain"
)

// BankRepository loads quiz banks (from cache/backing store).
type BankRepository interface {
	GetBank(ctx context.Context, quizID string) (domain.QuizBank, error)
}

// StoredAnswer is one recorded selection with correctness resolved at write
// time, the way the backing store keeps it.
type StoredAnswer struct {
	QuestionID int64
	OptionID   int64
	Correct    bool
}

// AttemptStore persists server-side attempts and their answers
// (in-memory, Redis, etc).
type AttemptStore interface {
	Create(ctx context.Context, quizID, userID string) (domain.AttemptRecord, error)
	Get(ctx context.Context, attemptID string) (domain.AttemptRecord, error)
	RecordAnswer(ctx context.Context, attemptID string, answer StoredAnswer) error
	Answers(ctx context.Context, attemptID string) ([]StoredAnswer, error)
	Save(ctx context.Context, record domain.AttemptRecord) error
}

// QuizService contains the backend-side quiz use cases: serving bank data
// and scoring attempts. quizID names the bank this deployment serves, since
// the option and subject endpoints carry no quiz context of their own.
type QuizService struct {
	banks    BankRepository
	attempts AttemptStore
	quizID   string
	clock    func() time.Time
}

func NewQuizService(banks BankRepository, attempts AttemptStore, quizID string) *QuizService {
	return &QuizService{banks: banks, attempts: attempts, quizID: quizID, clock: time.Now}
}

// NewQuizServiceWithClock is test-only for deterministic timestamps.
func NewQuizServiceWithClock(banks BankRepository, attempts AttemptStore, quizID string, now func() time.Time) *QuizService {
	return &QuizService{banks: banks, attempts: attempts, quizID: quizID, clock: now}
}

// StartAttempt creates a fresh attempt; users cannot start unknown quizzes.
func (s *QuizService) StartAttempt(ctx context.Context, quizID, userID string) (domain.AttemptRecord, error) {
	if _, err := s.banks.GetBank(ctx, quizID); err != nil {
		return domain.AttemptRecord{}, err
	}
	return s.attempts.Create(ctx, quizID, userID)
}

// Questions returns the quiz's questions without their options; the client
// fetches options per question.
func (s *QuizService) Questions(ctx context.Context, quizID string) ([]domain.Question, error) {
	bank, err := s.banks.GetBank(ctx, quizID)
	if err != nil {
		return nil, err
	}
	questions := make([]domain.Question, 0, len(bank.Questions))
	for _, q := range bank.Questions {
		q.Options = nil
		questions = append(questions, q)
	}
	return questions, nil
}

// Options returns the answer choices for one question of the served bank.
func (s *QuizService) Options(ctx context.Context, questionID int64) ([]domain.Option, error) {
	bank, err := s.banks.GetBank(ctx, s.quizID)
	if err != nil {
		return nil, err
	}
	for _, q := range bank.Questions {
		if q.ID == questionID {
			return q.Options, nil
		}
	}
	return nil, domain.ErrQuestionNotFound
}

// Subjects returns the served bank's subject reference data.
func (s *QuizService) Subjects(ctx context.Context) ([]domain.Subject, error) {
	bank, err := s.banks.GetBank(ctx, s.quizID)
	if err != nil {
		return nil, err
	}
	return bank.Subjects, nil
}

// RecordAnswer stores one selection, resolving correctness against the bank
// at write time. Re-answering a question overwrites the previous selection.
func (s *QuizService) RecordAnswer(ctx context.Context, attemptID string, questionID, optionID int64) (bool, error) {
	record, err := s.attempts.Get(ctx, attemptID)
	if err != nil {
		return false, err
	}
	if record.Completed {
		return false, domain.ErrAttemptClosed
	}
	bank, err := s.banks.GetBank(ctx, record.QuizID)
	if err != nil {
		return false, err
	}

	var question *domain.Question
	for i := range bank.Questions {
		if bank.Questions[i].ID == questionID {
			question = &bank.Questions[i]
			break
		}
	}
	if question == nil {
		return false, domain.ErrQuestionNotFound
	}
	var selected *domain.Option
	for i := range question.Options {
		if question.Options[i].ID == optionID {
			selected = &question.Options[i]
			break
		}
	}
	if selected == nil {
		return false, domain.ErrOptionNotFound
	}

	answer := StoredAnswer{QuestionID: questionID, OptionID: optionID, Correct: selected.IsCorrect}
	if err := s.attempts.RecordAnswer(ctx, attemptID, answer); err != nil {
		return false, err
	}
	return selected.IsCorrect, nil
}

// CompleteAttempt finalizes an attempt: counts correct answers, scores
// against the bank's question count and records time spent.
func (s *QuizService) CompleteAttempt(ctx context.Context, attemptID string) (domain.AttemptRecord, error) {
	record, err := s.attempts.Get(ctx, attemptID)
	if err != nil {
		return domain.AttemptRecord{}, err
	}
	if record.Completed {
		return record, nil
	}
	bank, err := s.banks.GetBank(ctx, record.QuizID)
	if err != nil {
		return domain.AttemptRecord{}, err
	}
	answers, err := s.attempts.Answers(ctx, attemptID)
	if err != nil {
		return domain.AttemptRecord{}, err
	}

	correct := 0
	for _, answer := range answers {
		if answer.Correct {
			correct++
		}
	}
	record.Completed = true
	record.CorrectAnswers = correct
	record.TotalQuestions = len(bank.Questions)
	if record.TotalQuestions > 0 {
		record.Score = int(math.Round(float64(correct) * 100 / float64(record.TotalQuestions)))
	}
	record.TimeSpentSeconds = int(s.clock().Sub(record.StartedAt) / time.Second)
	if err := s.attempts.Save(ctx, record); err != nil {
		return domain.AttemptRecord{}, err
	}
	return record, nil
}
