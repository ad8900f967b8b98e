package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"quiz-proctor/internal/app"
	"quiz-proctor/internal/domain"
	"github.com/go-chi/chi/v5"
)

// APIHandler exposes the quiz backend over the /api routes the client's
// backend boundary expects.
type APIHandler struct {
	service *app.QuizService
}

func NewAPIHandler(service *app.QuizService) *APIHandler {
	return &APIHandler{service: service}
}

// Routes mounts the API. Field casing deliberately varies per endpoint
// (camelCase questions, snake_case options) to match the wire the original
// backend produced; clients are expected to normalize both.
func (h *APIHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Route("/api/quiz", func(r chi.Router) {
		r.Post("/{quizID}/start", h.startAttempt)
		r.Get("/{quizID}/questions", h.questions)
		r.Get("/subjects", h.subjects)
		r.Get("/questions/{questionID}/options", h.options)
		r.Post("/attempts/{attemptID}/answer", h.answer)
		r.Post("/attempts/{attemptID}/complete", h.complete)
	})
	return r
}

type attemptResponse struct {
	ID        string `json:"id"`
	StartTime int64  `json:"startTime"`
}

type questionResponse struct {
	ID           int64  `json:"id"`
	SubjectID    int64  `json:"subjectId"`
	OrderNum     int    `json:"orderNum"`
	QuestionText string `json:"questionText"`
}

type optionResponse struct {
	ID         int64  `json:"id"`
	OptionText string `json:"option_text"`
	IsCorrect  bool   `json:"is_correct"`
}

type answerRequest struct {
	QuestionID       int64 `json:"questionId"`
	SelectedOptionID int64 `json:"selectedOptionId"`
}

type completeResponse struct {
	Score          int `json:"score"`
	CorrectAnswers int `json:"correctAnswers"`
	TotalQuestions int `json:"totalQuestions"`
}

func (h *APIHandler) startAttempt(w http.ResponseWriter, r *http.Request) {
	quizID := chi.URLParam(r, "quizID")
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "missing userId")
		return
	}
	record, err := h.service.StartAttempt(r.Context(), quizID, userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, attemptResponse{ID: record.ID, StartTime: record.StartedAt.Unix()})
}

func (h *APIHandler) questions(w http.ResponseWriter, r *http.Request) {
	questions, err := h.service.Questions(r.Context(), chi.URLParam(r, "quizID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	out := make([]questionResponse, 0, len(questions))
	for _, q := range questions {
		out = append(out, questionResponse{
			ID:           q.ID,
			SubjectID:    q.SubjectID,
			OrderNum:     q.OrderNum,
			QuestionText: q.Text,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *APIHandler) subjects(w http.ResponseWriter, r *http.Request) {
	subjects, err := h.service.Subjects(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, subjects)
}

func (h *APIHandler) options(w http.ResponseWriter, r *http.Request) {
	questionID, err := strconv.ParseInt(chi.URLParam(r, "questionID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid question id")
		return
	}
	options, err := h.service.Options(r.Context(), questionID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	out := make([]optionResponse, 0, len(options))
	for _, opt := range options {
		out = append(out, optionResponse{ID: opt.ID, OptionText: opt.Text, IsCorrect: opt.IsCorrect})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *APIHandler) answer(w http.ResponseWriter, r *http.Request) {
	var req answerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid answer payload")
		return
	}
	attemptID := chi.URLParam(r, "attemptID")
	if _, err := h.service.RecordAnswer(r.Context(), attemptID, req.QuestionID, req.SelectedOptionID); err != nil {
		writeServiceError(w, err)
		return
	}
	// Correctness stays server-side until completion.
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) complete(w http.ResponseWriter, r *http.Request) {
	record, err := h.service.CompleteAttempt(r.Context(), chi.URLParam(r, "attemptID"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, completeResponse{
		Score:          record.Score,
		CorrectAnswers: record.CorrectAnswers,
		TotalQuestions: record.TotalQuestions,
	})
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrQuizNotFound),
		errors.Is(err, domain.ErrQuestionNotFound),
		errors.Is(err, domain.ErrOptionNotFound),
		errors.Is(err, domain.ErrAttemptNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrAttemptClosed):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
