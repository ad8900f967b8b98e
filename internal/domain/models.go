package domain

import "time"

// Subject is the static grouping a question belongs to. Name and Color are
// presentation hints for the navigation grid and result badges.
type Subject struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Option is one answer choice. IsCorrect is known to the session model but
// must not reach the UI before the attempt is completed.
type Option struct {
	ID        int64  `json:"id"`
	Text      string `json:"text"`
	IsCorrect bool   `json:"isCorrect"`
}

// Question is a multiple-choice question ordered by OrderNum within a quiz.
type Question struct {
	ID        int64    `json:"id"`
	SubjectID int64    `json:"subjectId"`
	OrderNum  int      `json:"orderNum"`
	Text      string   `json:"text"`
	Options   []Option `json:"options"`
}

// AttemptStatus tracks the lifecycle of a quiz attempt.
type AttemptStatus string

const (
	AttemptActive    AttemptStatus = "active"
	AttemptSubmitted AttemptStatus = "submitted"
	AttemptExpired   AttemptStatus = "expired"
)

// Attempt is one run of the quiz, identified by a backend-issued id.
type Attempt struct {
	ID        string        `json:"id"`
	StartedAt time.Time     `json:"startedAt"`
	Status    AttemptStatus `json:"status"`
}

// CompletionResult is what the backend reports when an attempt finishes.
// Any field may be absent; the client fills gaps from its own numbers.
type CompletionResult struct {
	Score          *int `json:"score"`
	CorrectAnswers *int `json:"correctAnswers"`
	TotalQuestions *int `json:"totalQuestions"`
}

// SubjectScore is the per-subject slice of a score breakdown.
type SubjectScore struct {
	SubjectID int64  `json:"subjectId"`
	Name      string `json:"name"`
	Color     string `json:"color"`
	Correct   int    `json:"correct"`
	Total     int    `json:"total"`
}

// ScoreBreakdown is the final result shown at review time. Percentage,
// Correct and Total are the headline numbers; Subjects carries the
// client-computed per-subject counts (the backend has no subject granularity).
type ScoreBreakdown struct {
	Percentage int            `json:"percentage"`
	Correct    int            `json:"correct"`
	Total      int            `json:"total"`
	Subjects   []SubjectScore `json:"subjects"`
}

// RevealRow is the author-only per-question disclosure of the correct option
// against the user's selection.
type RevealRow struct {
	QuestionID     int64  `json:"questionId"`
	OrderNum       int    `json:"orderNum"`
	CorrectOption  string `json:"correctOption"`
	SelectedOption string `json:"selectedOption"`
	Answered       bool   `json:"answered"`
	Correct        bool   `json:"correct"`
}

// QuizBank is the server-side quiz document: subjects plus questions with
// their options attached. Stored as JSONB by the postgres loader.
type QuizBank struct {
	ID        string     `json:"id"`
	Subjects  []Subject  `json:"subjects"`
	Questions []Question `json:"questions"`
}

// AttemptRecord is the server-side bookkeeping for one attempt.
type AttemptRecord struct {
	ID               string    `json:"id"`
	QuizID           string    `json:"quizId"`
	UserID           string    `json:"userId"`
	StartedAt        time.Time `json:"startedAt"`
	Completed        bool      `json:"completed"`
	Score            int       `json:"score"`
	CorrectAnswers   int       `json:"correctAnswers"`
	TotalQuestions   int       `json:"totalQuestions"`
	TimeSpentSeconds int       `json:"timeSpentSeconds"`
}
