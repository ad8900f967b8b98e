package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"quiz-proctor/internal/domain"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"
)

// BankLoader loads quiz bank JSONB from Postgres.
type BankLoader struct {
	pool *pgxpool.Pool
}

func NewBankLoader(pool *pgxpool.Pool) *BankLoader {
	return &BankLoader{pool: pool}
}

func (l *BankLoader) LoadBank(ctx context.Context, quizID string) (domain.QuizBank, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM quizzes WHERE id=$1`, quizID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.QuizBank{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.QuizBank{}, fmt.Errorf("load quiz bank: %w", err)
	}
	var bank domain.QuizBank
	if err := json.Unmarshal(raw, &bank); err != nil {
		return domain.QuizBank{}, fmt.Errorf("unmarshal quiz bank: %w", err)
	}
	return bank, nil
}
