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
	"quiz-proctor/internal/backend"
	"quiz-proctor/internal/config"
	"quiz-proctor/internal/connectivity"
	"quiz-proctor/internal/nav"
	transport "quiz-proctor/internal/transport/http"
	"github.com/spf13/cobra"
)

// NewRunCmd builds the CLI subcommand to run the quiz client.
func NewRunCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the quiz client and serve its UI socket",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runClient(cmd.Context(), *configPath, *port)
		},
	}
}

func runClient(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Client.UIPort
	}
	if finalPort == "" {
		finalPort = "3000"
	}

	backendURL := cfg.Client.BackendURL
	if backendURL == "" {
		backendURL = "http://localhost:8080/api"
	}
	quizID := cfg.Client.QuizID
	if quizID == "" {
		quizID = "1"
	}
	userID := cfg.Client.UserID
	if userID == "" {
		userID = "1"
	}
	quizPassword := cfg.Client.QuizPassword
	if quizPassword == "" {
		quizPassword = "123"
	}
	revealPassword := cfg.Client.RevealPassword
	if revealPassword == "" {
		revealPassword = "boat4567"
	}

	endpoints := cfg.Gate.Endpoints
	if len(endpoints) == 0 {
		endpoints = connectivity.DefaultEndpoints
	}
	gate := connectivity.New(endpoints,
		config.Duration(cfg.Gate.Interval, 3*time.Second),
		config.Duration(cfg.Gate.ProbeTimeout, 2*time.Second))
	defer gate.Stop()

	orch := app.New(app.Config{
		QuizID:         quizID,
		UserID:         userID,
		QuizPassword:   quizPassword,
		RevealPassword: revealPassword,
		TimeLimit:      config.Duration(cfg.Client.TimeLimit, nav.DefaultTimeLimit),
	}, backend.New(backendURL), gate)

	go gate.Run(ctx, nil)
	statusCh, cancelWatch := gate.Subscribe()
	defer cancelWatch()
	go orch.WatchGate(statusCh)

	wsHandler := transport.NewWSHandler(orch)
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("quiz client UI listening on :%s (backend %s)", finalPort, backendURL)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start UI server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down client...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down client...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
