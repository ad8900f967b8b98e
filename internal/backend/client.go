package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"quiz-proctor/internal/domain"
)

// Client is the typed request/response boundary to the scoring backend.
// No retries, no caching: each call either succeeds with a parsed payload
// or fails with an *APIError.
type Client struct {
	baseURL string
	http    *http.Client
}

// New builds a client for the given base URL (including the /api prefix).
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// APIError carries the HTTP status and the human-readable message extracted
// from the response payload when present.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("api request failed (%d)", e.Status)
}

// flexID tolerates backends that serialize ids as numbers or strings.
type flexID string

func (f *flexID) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "" || s == "null" {
		*f = ""
		return nil
	}
	if s[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*f = flexID(v)
		return nil
	}
	*f = flexID(s)
	return nil
}

type attemptDTO struct {
	ID            flexID `json:"id"`
	AttemptID     flexID `json:"attemptId"`
	AttemptIDAlt  flexID `json:"attempt_id"`
	StartTime     string `json:"startTime"`
	StartTimeSnak string `json:"start_time"`
}

type questionDTO struct {
	ID           int64   `json:"id"`
	SubjectID    *int64  `json:"subjectId"`
	SubjectIDAlt *int64  `json:"subject_id"`
	OrderNum     *int    `json:"orderNum"`
	OrderNumAlt  *int    `json:"order_num"`
	Text         *string `json:"questionText"`
	TextAlt      *string `json:"question_text"`
	TextPlain    *string `json:"text"`
}

type optionDTO struct {
	ID            int64   `json:"id"`
	Text          *string `json:"optionText"`
	TextAlt       *string `json:"option_text"`
	TextPlain     *string `json:"text"`
	IsCorrect     *bool   `json:"isCorrect"`
	IsCorrectAlt  *bool   `json:"is_correct"`
	IsCorrectFlag *bool   `json:"correct"`
}

type subjectDTO struct {
	ID       int64   `json:"id"`
	IDAlt    *int64  `json:"subjectId"`
	Name     *string `json:"name"`
	NameAlt  *string `json:"subjectName"`
	Color    *string `json:"color"`
	ColorAlt *string `json:"subjectColor"`
}

type completionDTO struct {
	Score         *int `json:"score"`
	Correct       *int `json:"correctAnswers"`
	CorrectAlt    *int `json:"correct_answers"`
	TotalQuestion *int `json:"totalQuestions"`
	TotalAlt      *int `json:"total_questions"`
}

// StartAttempt creates a new attempt for the quiz. Not idempotent: every
// call creates a fresh attempt on the backend.
func (c *Client) StartAttempt(ctx context.Context, quizID, userID string) (domain.Attempt, error) {
	var dto attemptDTO
	path := fmt.Sprintf("/quiz/%s/start?userId=%s", quizID, userID)
	if err := c.do(ctx, http.MethodPost, path, nil, &dto); err != nil {
		return domain.Attempt{}, err
	}
	id := firstID(dto.ID, dto.AttemptID, dto.AttemptIDAlt)
	if id == "" {
		return domain.Attempt{}, &APIError{Status: http.StatusOK, Message: "start response carried no attempt id"}
	}
	return domain.Attempt{
		ID:        id,
		StartedAt: time.Now(),
		Status:    domain.AttemptActive,
	}, nil
}

// FetchQuestions returns the quiz's questions without options.
func (c *Client) FetchQuestions(ctx context.Context, quizID string) ([]domain.Question, error) {
	var dtos []questionDTO
	if err := c.do(ctx, http.MethodGet, "/quiz/"+quizID+"/questions", nil, &dtos); err != nil {
		return nil, err
	}
	questions := make([]domain.Question, 0, len(dtos))
	for i, dto := range dtos {
		questions = append(questions, domain.Question{
			ID:        dto.ID,
			SubjectID: firstInt64(dto.SubjectID, dto.SubjectIDAlt),
			OrderNum:  firstInt(i+1, dto.OrderNum, dto.OrderNumAlt),
			Text:      firstString(dto.Text, dto.TextAlt, dto.TextPlain),
		})
	}
	return questions, nil
}

// FetchOptions returns the answer choices for one question.
func (c *Client) FetchOptions(ctx context.Context, questionID int64) ([]domain.Option, error) {
	var dtos []optionDTO
	path := fmt.Sprintf("/quiz/questions/%d/options", questionID)
	if err := c.do(ctx, http.MethodGet, path, nil, &dtos); err != nil {
		return nil, err
	}
	options := make([]domain.Option, 0, len(dtos))
	for _, dto := range dtos {
		options = append(options, domain.Option{
			ID:        dto.ID,
			Text:      firstString(dto.Text, dto.TextAlt, dto.TextPlain),
			IsCorrect: firstBool(dto.IsCorrect, dto.IsCorrectAlt, dto.IsCorrectFlag),
		})
	}
	return options, nil
}

// FetchSubjects returns subject reference data. The endpoint is optional
// on the backend; callers must tolerate an error here.
func (c *Client) FetchSubjects(ctx context.Context) ([]domain.Subject, error) {
	var dtos []subjectDTO
	if err := c.do(ctx, http.MethodGet, "/quiz/subjects", nil, &dtos); err != nil {
		return nil, err
	}
	subjects := make([]domain.Subject, 0, len(dtos))
	for _, dto := range dtos {
		id := dto.ID
		if id == 0 && dto.IDAlt != nil {
			id = *dto.IDAlt
		}
		subjects = append(subjects, domain.Subject{
			ID:    id,
			Name:  firstString(dto.Name, dto.NameAlt),
			Color: firstString(dto.Color, dto.ColorAlt),
		})
	}
	return subjects, nil
}

// SubmitAnswer persists one selection remotely. Fire-and-forget from the
// orchestrator's perspective; the local answer map stays authoritative.
func (c *Client) SubmitAnswer(ctx context.Context, attemptID string, questionID, optionID int64) error {
	body := map[string]int64{
		"questionId":       questionID,
		"selectedOptionId": optionID,
	}
	return c.do(ctx, http.MethodPost, "/quiz/attempts/"+attemptID+"/answer", body, nil)
}

// CompleteAttempt finalizes the attempt and returns the backend's scoring,
// any field of which may be absent.
func (c *Client) CompleteAttempt(ctx context.Context, attemptID string) (domain.CompletionResult, error) {
	var dto completionDTO
	if err := c.do(ctx, http.MethodPost, "/quiz/attempts/"+attemptID+"/complete", nil, &dto); err != nil {
		return domain.CompletionResult{}, err
	}
	return domain.CompletionResult{
		Score:          dto.Score,
		CorrectAnswers: firstIntPtr(dto.Correct, dto.CorrectAlt),
		TotalQuestions: firstIntPtr(dto.TotalQuestion, dto.TotalAlt),
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// 204 and empty bodies are empty success payloads.
	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Status: resp.StatusCode, Message: extractMessage(data)}
	}
	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &APIError{Status: resp.StatusCode, Message: "malformed response payload"}
	}
	return nil
}

// extractMessage pulls a human-readable error out of a failure payload,
// accepting either {"error": ...} or {"message": ...}, or raw text from
// proxies that do not speak JSON.
func extractMessage(data []byte) string {
	var payload struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &payload); err == nil {
		if payload.Error != "" {
			return payload.Error
		}
		if payload.Message != "" {
			return payload.Message
		}
	}
	return strings.TrimSpace(string(data))
}

func firstID(ids ...flexID) string {
	for _, id := range ids {
		if id != "" {
			return string(id)
		}
	}
	return ""
}

func firstString(values ...*string) string {
	for _, v := range values {
		if v != nil && *v != "" {
			return *v
		}
	}
	return ""
}

func firstInt64(values ...*int64) int64 {
	for _, v := range values {
		if v != nil {
			return *v
		}
	}
	return 0
}

func firstInt(fallback int, values ...*int) int {
	for _, v := range values {
		if v != nil {
			return *v
		}
	}
	return fallback
}

func firstIntPtr(values ...*int) *int {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}

func firstBool(values ...*bool) bool {
	for _, v := range values {
		if v != nil {
			return *v
		}
	}
	return false
}
