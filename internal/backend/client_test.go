package backend

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New(server.URL + "/api")
}

func TestStartAttemptNormalizesIDVariants(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{"camelCase", `{"attemptId": 42}`},
		{"snake_case", `{"attempt_id": "42"}`},
		{"plain id", `{"id": 42}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost {
					t.Fatalf("expected POST, got %s", r.Method)
				}
				w.Header().Set("Content-Type", "application/json")
				w.Write([]byte(tc.body))
			}))

			attempt, err := client.StartAttempt(context.Background(), "1", "1")
			if err != nil {
				t.Fatalf("start attempt: %v", err)
			}
			if attempt.ID != "42" {
				t.Fatalf("expected attempt id 42, got %q", attempt.ID)
			}
		})
	}
}

func TestStartAttemptRejectsMissingID(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))

	if _, err := client.StartAttempt(context.Background(), "1", "1"); err == nil {
		t.Fatalf("expected error for missing attempt id")
	}
}

func TestFetchQuestionsToleratesFieldCasings(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"id": 1, "subjectId": 2, "orderNum": 1, "questionText": "camel"},
			{"id": 2, "subject_id": 3, "order_num": 2, "question_text": "snake"},
			{"id": 3, "subject_id": 3, "text": "bare"}
		]`))
	}))

	questions, err := client.FetchQuestions(context.Background(), "1")
	if err != nil {
		t.Fatalf("fetch questions: %v", err)
	}
	if len(questions) != 3 {
		t.Fatalf("expected 3 questions, got %d", len(questions))
	}
	if questions[0].SubjectID != 2 || questions[0].Text != "camel" {
		t.Fatalf("camelCase question mis-parsed: %+v", questions[0])
	}
	if questions[1].SubjectID != 3 || questions[1].OrderNum != 2 || questions[1].Text != "snake" {
		t.Fatalf("snake_case question mis-parsed: %+v", questions[1])
	}
	// Missing order number falls back to its position.
	if questions[2].OrderNum != 3 || questions[2].Text != "bare" {
		t.Fatalf("fallback question mis-parsed: %+v", questions[2])
	}
}

func TestFetchOptionsNormalizesCorrectFlag(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/quiz/questions/7/options" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`[
			{"id": 1, "optionText": "a", "isCorrect": true},
			{"id": 2, "option_text": "b", "is_correct": false},
			{"id": 3, "text": "c", "correct": false}
		]`))
	}))

	options, err := client.FetchOptions(context.Background(), 7)
	if err != nil {
		t.Fatalf("fetch options: %v", err)
	}
	if !options[0].IsCorrect || options[1].IsCorrect || options[2].IsCorrect {
		t.Fatalf("correct flags mis-parsed: %+v", options)
	}
	if options[0].Text != "a" || options[1].Text != "b" || options[2].Text != "c" {
		t.Fatalf("option text mis-parsed: %+v", options)
	}
}

func TestCompleteAttemptPartialFields(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"correct_answers": 80, "total_questions": 100}`))
	}))

	result, err := client.CompleteAttempt(context.Background(), "42")
	if err != nil {
		t.Fatalf("complete attempt: %v", err)
	}
	if result.Score != nil {
		t.Fatalf("expected absent score, got %v", *result.Score)
	}
	if result.CorrectAnswers == nil || *result.CorrectAnswers != 80 {
		t.Fatalf("expected 80 correct, got %+v", result.CorrectAnswers)
	}
	if result.TotalQuestions == nil || *result.TotalQuestions != 100 {
		t.Fatalf("expected 100 total, got %+v", result.TotalQuestions)
	}
}

func TestSubmitAnswerAccepts204(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]int64
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		if body["questionId"] != 5 || body["selectedOptionId"] != 9 {
			t.Fatalf("unexpected body %v", body)
		}
		w.WriteHeader(http.StatusNoContent)
	}))

	if err := client.SubmitAnswer(context.Background(), "42", 5, 9); err != nil {
		t.Fatalf("submit answer: %v", err)
	}
}

func TestErrorMessageExtraction(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error": "attempt not found"}`))
	}))

	err := client.SubmitAnswer(context.Background(), "nope", 1, 1)
	if err == nil {
		t.Fatalf("expected error")
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %T", err)
	}
	if apiErr.Status != http.StatusBadRequest || apiErr.Message != "attempt not found" {
		t.Fatalf("unexpected error: %+v", apiErr)
	}
}

func TestErrorFallsBackToRawBody(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream unavailable"))
	}))

	err := client.SubmitAnswer(context.Background(), "42", 1, 1)
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected APIError, got %v", err)
	}
	if apiErr.Message != "upstream unavailable" {
		t.Fatalf("expected raw body message, got %q", apiErr.Message)
	}
}
