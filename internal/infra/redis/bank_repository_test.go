package redis

import (
	"context"
	"testing"
	"time"

	"quiz-proctor/internal/domain"
	"quiz-proctor/internal/infra/memory"
)

func TestBankRepositoryCachesInRedis(t *testing.T) {
	client := newTestClient(t)

	loader := &countingLoader{
		BankLoader: memory.NewStaticBankLoader(map[string]domain.QuizBank{
			"quiz-1": sampleBank(),
		}),
	}
	repo := NewBankRepository(client, loader, time.Minute)

	bank, err := repo.GetBank(context.Background(), "quiz-1")
	if err != nil {
		t.Fatalf("get bank: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}
	if len(bank.Questions) != 1 || bank.Questions[0].Options[1].Text != "4" {
		t.Fatalf("expected full bank document, got %+v", bank)
	}

	// Second call should hit cache, loader not incremented.
	cached, err := repo.GetBank(context.Background(), "quiz-1")
	if err != nil {
		t.Fatalf("get bank cached: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
	if len(cached.Subjects) != 1 || cached.Subjects[0].Name != "DBMS" {
		t.Fatalf("cached bank lost data: %+v", cached)
	}
}

type countingLoader struct {
	memory.BankLoader
	calls int
}

func (l *countingLoader) LoadBank(ctx context.Context, quizID string) (domain.QuizBank, error) {
	l.calls++
	return l.BankLoader.LoadBank(ctx, quizID)
}

func sampleBank() domain.QuizBank {
	return domain.QuizBank{
		ID: "quiz-1",
		Subjects: []domain.Subject{
			{ID: 1, Name: "DBMS", Color: "#000000"},
		},
		Questions: []domain.Question{
			{
				ID:        1,
				SubjectID: 1,
				OrderNum:  1,
				Text:      "What is 2 + 2?",
				Options: []domain.Option{
					{ID: 10, Text: "3"},
					{ID: 11, Text: "4", IsCorrect: true},
				},
			},
		},
	}
}
