package memory

import (
	"context"
	"testing"
	"time"

	"quiz-proctor/internal/app"
	"quiz-proctor/internal/domain"
)

func TestAttemptStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewAttemptStore()

	record, err := store.Create(ctx, "quiz-1", "u1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if record.ID == "" || record.QuizID != "quiz-1" {
		t.Fatalf("unexpected record %+v", record)
	}

	got, err := store.Get(ctx, record.ID)
	if err != nil || got.UserID != "u1" {
		t.Fatalf("get: %+v err=%v", got, err)
	}

	if _, err := store.Get(ctx, "missing"); err != domain.ErrAttemptNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestAttemptStoreAnswerOverwrite(t *testing.T) {
	ctx := context.Background()
	store := NewAttemptStore()
	record, _ := store.Create(ctx, "quiz-1", "u1")

	if err := store.RecordAnswer(ctx, record.ID, app.StoredAnswer{QuestionID: 1, OptionID: 10, Correct: false}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := store.RecordAnswer(ctx, record.ID, app.StoredAnswer{QuestionID: 1, OptionID: 11, Correct: true}); err != nil {
		t.Fatalf("record overwrite: %v", err)
	}

	answers, err := store.Answers(ctx, record.ID)
	if err != nil {
		t.Fatalf("answers: %v", err)
	}
	if len(answers) != 1 {
		t.Fatalf("expected single entry after overwrite, got %d", len(answers))
	}
	if answers[0].OptionID != 11 || !answers[0].Correct {
		t.Fatalf("expected last write to win, got %+v", answers[0])
	}
}

func TestAttemptStoreSave(t *testing.T) {
	ctx := context.Background()
	store := NewAttemptStoreWithClock(func() time.Time { return time.Unix(1000, 0) })
	record, _ := store.Create(ctx, "quiz-1", "u1")

	record.Completed = true
	record.Score = 85
	if err := store.Save(ctx, record); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, _ := store.Get(ctx, record.ID)
	if !got.Completed || got.Score != 85 {
		t.Fatalf("expected saved result, got %+v", got)
	}
}
