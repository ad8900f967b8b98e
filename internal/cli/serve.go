package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quiz-proctor/internal/app"
	"quiz-proctor/internal/config"
	"quiz-proctor/internal/domain"
	"quiz-proctor/internal/infra/memory"
	pgloader "quiz-proctor/internal/infra/postgres"
	redisstore "quiz-proctor/internal/infra/redis"
	transport "quiz-proctor/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewServeCmd builds the CLI subcommand to start the bundled local backend.
func NewServeCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the local quiz backend",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}
	quizID := cfg.Server.QuizID
	if quizID == "" {
		quizID = "1"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}
	redisTTL := config.Duration(cfg.Redis.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var loader memory.BankLoader = memory.NewStaticBankLoader(sampleBanks(quizID))
	if pool != nil {
		loader = pgloader.NewBankLoader(pool)
	}

	bankTTL := config.Duration(cfg.Quiz.TTL, 10*time.Minute)
	var banks app.BankRepository
	if redisClient != nil {
		banks = redisstore.NewBankRepository(redisClient, loader, bankTTL)
	} else {
		banks = memory.NewBankRepository(loader, bankTTL)
	}

	var attempts app.AttemptStore
	if redisClient != nil {
		attempts = redisstore.NewAttemptStore(redisClient, redisTTL)
	} else {
		attempts = memory.NewAttemptStore()
	}

	service := app.NewQuizService(banks, attempts, quizID)
	apiHandler := transport.NewAPIHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.Handle("/api/", apiHandler.Routes())

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("quiz backend listening on :%s (quiz %s)", finalPort, quizID)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleBanks seeds a small bank so the backend works out of the box; a
// Postgres bank replaces it when configured.
func sampleBanks(quizID string) map[string]domain.QuizBank {
	return map[string]domain.QuizBank{
		quizID: {
			ID: quizID,
			Subjects: []domain.Subject{
				{ID: 1, Name: "Verbal Ability", Color: "#FF6B6B"},
				{ID: 2, Name: "Quantitative Aptitude", Color: "#4ECDC4"},
			},
			Questions: []domain.Question{
				{
					ID: 1, SubjectID: 1, OrderNum: 1, Text: "Choose the word closest in meaning to 'terse'.",
					Options: []domain.Option{
						{ID: 11, Text: "concise", IsCorrect: true},
						{ID: 12, Text: "verbose", IsCorrect: false},
						{ID: 13, Text: "polite", IsCorrect: false},
						{ID: 14, Text: "detailed", IsCorrect: false},
					},
				},
				{
					ID: 2, SubjectID: 2, OrderNum: 2, Text: "What is 15% of 240?",
					Options: []domain.Option{
						{ID: 21, Text: "32", IsCorrect: false},
						{ID: 22, Text: "36", IsCorrect: true},
						{ID: 23, Text: "38", IsCorrect: false},
						{ID: 24, Text: "42", IsCorrect: false},
					},
				},
				{
					ID: 3, SubjectID: 2, OrderNum: 3, Text: "A train covers 180 km in 2 hours. Its speed is:",
					Options: []domain.Option{
						{ID: 31, Text: "80 km/h", IsCorrect: false},
						{ID: 32, Text: "90 km/h", IsCorrect: true},
						{ID: 33, Text: "95 km/h", IsCorrect: false},
						{ID: 34, Text: "100 km/h", IsCorrect: false},
					},
				},
			},
		},
	}
}
