package domain

import "errors"

var (
	// ErrConnectivityBlocked is returned when the start gate detects an
	// internet connection; the quiz may only begin offline.
	ErrConnectivityBlocked = errors.New("internet connection detected, offline mode required")
	// ErrInvalidPassword is returned by the start gate and the answer-reveal gate.
	ErrInvalidPassword = errors.New("invalid password")
	// ErrLoadFailed wraps any required fetch failure during loading.
	ErrLoadFailed = errors.New("failed to load quiz data")
	// ErrSubmitFailed wraps a completion call failure; the attempt stays in progress.
	ErrSubmitFailed = errors.New("failed to submit quiz")
	// ErrNoQuestions is returned when a load succeeds but yields zero questions.
	ErrNoQuestions = errors.New("no questions available")
	// ErrAttemptClosed rejects answer input once the attempt has been completed.
	ErrAttemptClosed = errors.New("attempt already completed")
	// ErrNotInProgress rejects operations that require an active attempt.
	ErrNotInProgress = errors.New("no attempt in progress")

	// ErrQuizNotFound indicates the quiz bank could not be loaded.
	ErrQuizNotFound = errors.New("quiz not found")
	// ErrQuestionNotFound indicates a submitted question ID is invalid.
	ErrQuestionNotFound = errors.New("question not found")
	// ErrOptionNotFound indicates a submitted option ID is invalid.
	ErrOptionNotFound = errors.New("option not found")
	// ErrAttemptNotFound indicates an unknown or expired attempt ID.
	ErrAttemptNotFound = errors.New("attempt not found")
)
