package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"quiz-proctor/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// BankLoader fetches quiz banks from a backing store (e.g., Postgres).
type BankLoader interface {
	LoadBank(ctx context.Context, quizID string) (domain.QuizBank, error)
}

// BankRepository caches whole quiz banks in Redis as JSON documents and
// falls back to a loader on cache miss:
//
//	SET quiz:{quizID}:bank {json} EX ttl
//
// The full document is cached because the serve API needs prompts and option
// text, not just the answer key.
type BankRepository struct {
	client *redis.Client
	loader BankLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewBankRepository(client *redis.Client, loader BankLoader, ttl time.Duration) *BankRepository {
	return &BankRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *BankRepository) GetBank(ctx context.Context, quizID string) (domain.QuizBank, error) {
	key := r.bankKey(quizID)

	if raw, err := r.client.Get(ctx, key).Bytes(); err == nil && len(raw) > 0 {
		if bank, err := decodeBank(raw); err == nil {
			return bank, nil
		}
		// Corrupt cache entry: fall through to the loader and overwrite.
	}

	result, err, _ := r.sf.Do(quizID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if raw, err := r.client.Get(ctx, key).Bytes(); err == nil && len(raw) > 0 {
			if bank, err := decodeBank(raw); err == nil {
				return bank, nil
			}
		}

		bank, err := r.loader.LoadBank(ctx, quizID)
		if err != nil {
			return domain.QuizBank{}, err
		}

		if data, err := json.Marshal(bank); err == nil {
			_ = r.client.Set(ctx, key, data, r.ttlWithJitter()).Err()
		}
		return bank, nil
	})
	if err != nil {
		return domain.QuizBank{}, err
	}
	return result.(domain.QuizBank), nil
}

func (r *BankRepository) bankKey(quizID string) string {
	return "quiz:" + quizID + ":bank"
}

func decodeBank(raw []byte) (domain.QuizBank, error) {
	var bank domain.QuizBank
	if err := json.Unmarshal(raw, &bank); err != nil {
		return domain.QuizBank{}, err
	}
	return bank, nil
}

func (r *BankRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
