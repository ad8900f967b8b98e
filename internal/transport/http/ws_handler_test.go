package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"quiz-proctor/internal/app"
	"quiz-proctor/internal/backend"
	"quiz-proctor/internal/connectivity"
	"quiz-proctor/internal/infra/memory"
	"github.com/gorilla/websocket"
)

type offlineGate struct{}

func (offlineGate) Status() connectivity.Status {
	return connectivity.Status{Online: false, LastChecked: time.Now()}
}

func (g offlineGate) ForceCheck(context.Context) connectivity.Status { return g.Status() }

// Full client stack against the bundled backend: API server, HTTP client,
// orchestrator, websocket. The attempt store is returned so tests can wait
// for background answer syncs to land.
func newWSServer(t *testing.T) (*httptest.Server, *memory.AttemptStore) {
	t.Helper()
	banks := memory.NewBankRepository(memory.NewStaticBankLoader(sampleBank()), time.Minute)
	store := memory.NewAttemptStore()
	service := app.NewQuizService(banks, store, "quiz-1")
	api := httptest.NewServer(NewAPIHandler(service).Routes())
	t.Cleanup(api.Close)

	orch := app.New(app.Config{
		QuizID:         "quiz-1",
		UserID:         "u1",
		QuizPassword:   "123",
		RevealPassword: "boat4567",
		TimeLimit:      time.Hour,
	}, backend.New(api.URL+"/api"), offlineGate{})

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", NewWSHandler(orch).ServeWS)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, store
}

// waitForSync polls until the backend has the expected number of answers;
// the client pushes them in the background.
func waitForSync(t *testing.T, store *memory.AttemptStore, attemptID string, want int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		answers, err := store.Answers(context.Background(), attemptID)
		if err == nil && len(answers) == want {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("answers never synced: %d of %d (err=%v)", len(answers), want, err)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func dialWS(t *testing.T, server *httptest.Server) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+server.URL[len("http"):]+"/ws", nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readNext(t *testing.T, conn *websocket.Conn) (string, map[string]any) {
	t.Helper()
	var msg struct {
		Type    string         `json:"type"`
		Payload map[string]any `json:"payload"`
	}
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if err := conn.ReadJSON(&msg); err != nil {
		t.Fatalf("read json: %v", err)
	}
	return msg.Type, msg.Payload
}

// waitForState drains messages until a state snapshot with the wanted state
// arrives; intermediate snapshots are legal and skipped.
func waitForState(t *testing.T, conn *websocket.Conn, want string) map[string]any {
	t.Helper()
	for i := 0; i < 20; i++ {
		typ, payload := readNext(t, conn)
		if typ != "state" {
			continue
		}
		if payload["state"] == want {
			return payload
		}
	}
	t.Fatalf("state %q never arrived", want)
	return nil
}

func send(t *testing.T, conn *websocket.Conn, msgType string, payload map[string]any) {
	t.Helper()
	if err := conn.WriteJSON(map[string]any{"type": msgType, "payload": payload}); err != nil {
		t.Fatalf("write %s: %v", msgType, err)
	}
}

func TestWebSocketSessionFlow(t *testing.T) {
	server, store := newWSServer(t)
	conn := dialWS(t, server)

	// Initial snapshot arrives unprompted.
	payload := waitForState(t, conn, "gated")
	if payload["online"] != false {
		t.Fatalf("expected offline gate, got %v", payload["online"])
	}

	send(t, conn, "start", map[string]any{"password": "123"})
	payload = waitForState(t, conn, "in_progress")
	if payload["totalQuestions"] != float64(2) {
		t.Fatalf("expected 2 questions, got %v", payload["totalQuestions"])
	}
	question, ok := payload["question"].(map[string]any)
	if !ok {
		t.Fatalf("expected current question, got %v", payload["question"])
	}
	options, ok := question["options"].([]any)
	if !ok || len(options) != 2 {
		t.Fatalf("expected 2 options, got %v", question["options"])
	}
	for _, raw := range options {
		opt := raw.(map[string]any)
		if _, leaked := opt["isCorrect"]; leaked {
			t.Fatalf("option payload leaks correctness: %v", opt)
		}
		if _, leaked := opt["is_correct"]; leaked {
			t.Fatalf("option payload leaks correctness: %v", opt)
		}
	}

	send(t, conn, "answer", map[string]any{"questionId": 1, "optionId": 11})
	send(t, conn, "answer", map[string]any{"questionId": 2, "optionId": 22})
	waitForSync(t, store, "1", 2)
	send(t, conn, "submit", nil)

	payload = waitForState(t, conn, "reviewed")
	result, ok := payload["result"].(map[string]any)
	if !ok {
		t.Fatalf("expected result in reviewed snapshot, got %v", payload["result"])
	}
	if result["percentage"] != float64(100) {
		t.Fatalf("expected 100%%, got %v", result["percentage"])
	}

	send(t, conn, "reveal", map[string]any{"password": "boat4567"})
	for i := 0; i < 20; i++ {
		typ, payload := readNext(t, conn)
		if typ == "state" && payload["revealOn"] == true {
			return
		}
	}
	t.Fatalf("reveal never switched on")
}

func TestWebSocketWrongPasswordReportsError(t *testing.T) {
	server, _ := newWSServer(t)
	conn := dialWS(t, server)

	waitForState(t, conn, "gated")
	send(t, conn, "start", map[string]any{"password": "nope"})

	for i := 0; i < 20; i++ {
		typ, payload := readNext(t, conn)
		if typ == "error" {
			if payload["message"] == "" {
				t.Fatalf("expected error message, got %v", payload)
			}
			return
		}
	}
	t.Fatalf("error never arrived")
}

func TestWebSocketUnsupportedMessage(t *testing.T) {
	server, _ := newWSServer(t)
	conn := dialWS(t, server)

	waitForState(t, conn, "gated")
	send(t, conn, "dance", nil)

	for i := 0; i < 20; i++ {
		typ, _ := readNext(t, conn)
		if typ == "error" {
			return
		}
	}
	t.Fatalf("error never arrived")
}
