package memory

import (
	"context"
	"strconv"
	"sync"
	"time"

	"quiz-proctor/internal/app"
	"quiz-proctor/internal/domain"
)

// AttemptStore is an in-memory implementation of app.AttemptStore. Attempt
// ids are numeric strings, matching what the original backend issued.
type AttemptStore struct {
	mu       sync.Mutex
	seq      int64
	clock    func() time.Time
	attempts map[string]domain.AttemptRecord
	answers  map[string]map[int64]app.StoredAnswer
}

func NewAttemptStore() *AttemptStore {
	return &AttemptStore{
		clock:    time.Now,
		attempts: make(map[string]domain.AttemptRecord),
		answers:  make(map[string]map[int64]app.StoredAnswer),
	}
}

// NewAttemptStoreWithClock is test-only for deterministic timestamps.
func NewAttemptStoreWithClock(now func() time.Time) *AttemptStore {
	store := NewAttemptStore()
	store.clock = now
	return store
}

func (s *AttemptStore) Create(_ context.Context, quizID, userID string) (domain.AttemptRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	record := domain.AttemptRecord{
		ID:        strconv.FormatInt(s.seq, 10),
		QuizID:    quizID,
		UserID:    userID,
		StartedAt: s.clock(),
	}
	s.attempts[record.ID] = record
	s.answers[record.ID] = make(map[int64]app.StoredAnswer)
	return record, nil
}

func (s *AttemptStore) Get(_ context.Context, attemptID string) (domain.AttemptRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.attempts[attemptID]
	if !ok {
		return domain.AttemptRecord{}, domain.ErrAttemptNotFound
	}
	return record, nil
}

func (s *AttemptStore) RecordAnswer(_ context.Context, attemptID string, answer app.StoredAnswer) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	answers, ok := s.answers[attemptID]
	if !ok {
		return domain.ErrAttemptNotFound
	}
	// Keyed by question id: re-answering overwrites, never duplicates.
	answers[answer.QuestionID] = answer
	return nil
}

func (s *AttemptStore) Answers(_ context.Context, attemptID string) ([]app.StoredAnswer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	answers, ok := s.answers[attemptID]
	if !ok {
		return nil, domain.ErrAttemptNotFound
	}
	out := make([]app.StoredAnswer, 0, len(answers))
	for _, answer := range answers {
		out = append(out, answer)
	}
	return out, nil
}

func (s *AttemptStore) Save(_ context.Context, record domain.AttemptRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.attempts[record.ID]; !ok {
		return domain.ErrAttemptNotFound
	}
	s.attempts[record.ID] = record
	return nil
}
