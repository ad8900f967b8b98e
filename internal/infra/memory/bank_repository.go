package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"quiz-proctor/internal/domain"
	"golang.org/x/sync/singleflight"
)

// BankLoader fetches quiz banks from a backing store (e.g., Postgres).
type BankLoader interface {
	LoadBank(ctx context.Context, quizID string) (domain.QuizBank, error)
}

// BankRepository caches quiz banks with TTL to avoid repeated store hits.
type BankRepository struct {
	loader BankLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedBank
}

type cachedBank struct {
	bank      domain.QuizBank
	expiresAt time.Time
}

func NewBankRepository(loader BankLoader, ttl time.Duration) *BankRepository {
	return &BankRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedBank),
	}
}

func (r *BankRepository) GetBank(ctx context.Context, quizID string) (domain.QuizBank, error) {
	now := r.clock()

	r.mu.RLock()
	if entry, ok := r.cache[quizID]; ok && entry.expiresAt.After(now) {
		r.mu.RUnlock()
		return entry.bank, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(quizID, func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if entry, ok := r.cache[quizID]; ok && entry.expiresAt.After(now) {
			r.mu.RUnlock()
			return entry.bank, nil
		}
		r.mu.RUnlock()

		bank, err := r.loader.LoadBank(ctx, quizID)
		if err != nil {
			return domain.QuizBank{}, err
		}

		r.mu.Lock()
		r.cache[quizID] = cachedBank{
			bank:      bank,
			expiresAt: now.Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return bank, nil
	})
	if err != nil {
		return domain.QuizBank{}, err
	}
	return result.(domain.QuizBank), nil
}

func (r *BankRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticBankLoader is a simple loader backed by an in-memory map (useful for
// tests/demos and the no-database serve mode).
type StaticBankLoader struct {
	banks map[string]domain.QuizBank
}

func NewStaticBankLoader(banks map[string]domain.QuizBank) *StaticBankLoader {
	return &StaticBankLoader{banks: banks}
}

func (l *StaticBankLoader) LoadBank(_ context.Context, quizID string) (domain.QuizBank, error) {
	if bank, ok := l.banks[quizID]; ok {
		return bank, nil
	}
	return domain.QuizBank{}, domain.ErrQuizNotFound
}
