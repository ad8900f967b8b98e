package app

import (
	"context"
	"fmt"
	"log"
	"math"
	"sync"
	"time"

	"quiz-proctor/internal/connectivity"
	"quiz-proctor/internal/domain"
	"quiz-proctor/internal/nav"
	"quiz-proctor/internal/session"
)

// State is the top-level session lifecycle.
type State string

const (
	StateGated       State = "gated"
	StateLoading     State = "loading"
	StateInProgress  State = "in_progress"
	StateCompleted   State = "completed"
	StateReviewed    State = "reviewed"
	StateNoQuestions State = "no_questions"
)

// Backend is the remote scoring boundary the orchestrator drives.
type Backend interface {
	StartAttempt(ctx context.Context, quizID, userID string) (domain.Attempt, error)
	FetchQuestions(ctx context.Context, quizID string) ([]domain.Question, error)
	FetchOptions(ctx context.Context, questionID int64) ([]domain.Option, error)
	FetchSubjects(ctx context.Context) ([]domain.Subject, error)
	SubmitAnswer(ctx context.Context, attemptID string, questionID, optionID int64) error
	CompleteAttempt(ctx context.Context, attemptID string) (domain.CompletionResult, error)
}

// Gate is the connectivity precondition for starting the quiz.
type Gate interface {
	Status() connectivity.Status
	ForceCheck(ctx context.Context) connectivity.Status
}

// Config carries the per-session knobs.
type Config struct {
	QuizID         string
	UserID         string
	QuizPassword   string
	RevealPassword string
	TimeLimit      time.Duration
}

// OptionView is an answer choice as shown to the user: no correctness flag.
type OptionView struct {
	ID       int64  `json:"id"`
	Text     string `json:"text"`
	Selected bool   `json:"selected"`
}

// QuestionView is the currently visible question.
type QuestionView struct {
	ID           int64        `json:"id"`
	OrderNum     int          `json:"orderNum"`
	Text         string       `json:"text"`
	SubjectName  string       `json:"subjectName"`
	SubjectColor string       `json:"subjectColor"`
	Options      []OptionView `json:"options"`
}

// Snapshot is everything a UI needs to render the session. Snapshots are
// recomputed whole on every change rather than diffed.
type Snapshot struct {
	State          State                  `json:"state"`
	Online         bool                   `json:"online"`
	LastChecked    time.Time              `json:"lastChecked"`
	Reason         string                 `json:"reason,omitempty"`
	CurrentIndex   int                    `json:"currentIndex"`
	TotalQuestions int                    `json:"totalQuestions"`
	AnsweredCount  int                    `json:"answeredCount"`
	Progress       int                    `json:"progress"`
	Remaining      int                    `json:"remainingSeconds"`
	TimeExpired    bool                   `json:"timeExpired"`
	Question       *QuestionView          `json:"question,omitempty"`
	Slots          []nav.Slot             `json:"slots,omitempty"`
	Result         *domain.ScoreBreakdown `json:"result,omitempty"`
	RevealOn       bool                   `json:"revealOn"`
	Reveal         []domain.RevealRow     `json:"reveal,omitempty"`
}

// Orchestrator drives the session state machine and mediates every external
// call. All session state lives behind one mutex; the model, cursor and
// countdown are only touched by orchestrator methods.
type Orchestrator struct {
	cfg     Config
	backend Backend
	gate    Gate

	mu             sync.Mutex
	state          State
	reason         string
	loading        bool
	attempt        domain.Attempt
	attemptStarted bool
	model          *session.Model
	cursor         *nav.Controller
	countdown      *nav.Countdown
	timeExpired    bool
	revealOn       bool
	result         *domain.ScoreBreakdown
	subscribers    map[chan Snapshot]struct{}
}

// New wires an orchestrator in the Gated state.
func New(cfg Config, backend Backend, gate Gate) *Orchestrator {
	if cfg.TimeLimit <= 0 {
		cfg.TimeLimit = nav.DefaultTimeLimit
	}
	return &Orchestrator{
		cfg:         cfg,
		backend:     backend,
		gate:        gate,
		state:       StateGated,
		subscribers: make(map[chan Snapshot]struct{}),
	}
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Snapshot returns the current render state.
func (o *Orchestrator) Snapshot() Snapshot {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.snapshotLocked()
}

// Subscribe returns a channel of snapshots, starting with the current one.
// The caller must invoke the cancel function to avoid leaks.
func (o *Orchestrator) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, 8)

	o.mu.Lock()
	o.subscribers[ch] = struct{}{}
	initial := o.snapshotLocked()
	o.mu.Unlock()

	ch <- initial

	cancel := func() {
		o.mu.Lock()
		if _, ok := o.subscribers[ch]; ok {
			delete(o.subscribers, ch)
			close(ch)
		}
		o.mu.Unlock()
	}
	return ch, cancel
}

// Recheck runs an on-demand connectivity probe and pushes the new reading.
func (o *Orchestrator) Recheck(ctx context.Context) connectivity.Status {
	status := o.gate.ForceCheck(ctx)
	o.mu.Lock()
	o.broadcastLocked()
	o.mu.Unlock()
	return status
}

// WatchGate re-broadcasts snapshots when the gate's online value changes.
// A late "online" reading never interrupts a running attempt; gating only
// applies before start.
func (o *Orchestrator) WatchGate(updates <-chan connectivity.Status) {
	for range updates {
		o.mu.Lock()
		o.broadcastLocked()
		o.mu.Unlock()
	}
}

// Start moves Gated -> Loading -> InProgress. It refuses while the gate
// reports online or the password mismatches, each with a distinct error.
// A failed load keeps the session in Loading; calling Start again retries
// without creating a second attempt.
func (o *Orchestrator) Start(ctx context.Context, password string) error {
	o.mu.Lock()
	if o.state != StateGated && o.state != StateLoading {
		o.mu.Unlock()
		return fmt.Errorf("quiz already started")
	}
	if o.loading {
		o.mu.Unlock()
		return fmt.Errorf("load already in progress")
	}
	if o.gate.Status().Online {
		o.reason = domain.ErrConnectivityBlocked.Error()
		o.broadcastLocked()
		o.mu.Unlock()
		return domain.ErrConnectivityBlocked
	}
	if password != o.cfg.QuizPassword {
		o.reason = domain.ErrInvalidPassword.Error()
		o.broadcastLocked()
		o.mu.Unlock()
		return domain.ErrInvalidPassword
	}
	o.state = StateLoading
	o.reason = ""
	o.loading = true
	o.broadcastLocked()
	o.mu.Unlock()

	err := o.load(ctx)

	o.mu.Lock()
	o.loading = false
	o.mu.Unlock()
	return err
}

// load performs attempt start and data retrieval without holding the lock;
// the session model must be fully populated before InProgress begins.
func (o *Orchestrator) load(ctx context.Context) error {
	if !o.attemptStartedSafe() {
		attempt, err := o.backend.StartAttempt(ctx, o.cfg.QuizID, o.cfg.UserID)
		if err != nil {
			return o.failLoad(err)
		}
		o.mu.Lock()
		o.attempt = attempt
		o.attemptStarted = true
		o.mu.Unlock()
	}

	questions, err := o.backend.FetchQuestions(ctx, o.cfg.QuizID)
	if err != nil {
		return o.failLoad(err)
	}
	if len(questions) == 0 {
		o.mu.Lock()
		o.state = StateNoQuestions
		o.reason = domain.ErrNoQuestions.Error()
		o.broadcastLocked()
		o.mu.Unlock()
		return domain.ErrNoQuestions
	}

	// Subjects are optional reference data; the model fills defaults.
	subjects, err := o.backend.FetchSubjects(ctx)
	if err != nil {
		log.Printf("subjects unavailable, using defaults: %v", err)
		subjects = nil
	}

	options, err := o.fetchAllOptions(ctx, questions)
	if err != nil {
		return o.failLoad(err)
	}

	o.mu.Lock()
	o.model = session.New(o.attempt)
	o.model.Load(subjects, questions, options)
	o.cursor = nav.NewController(o.model.TotalQuestions())
	o.countdown = nav.NewCountdown(o.cfg.TimeLimit, o.onTick, o.onExpire)
	o.countdown.Start()
	o.state = StateInProgress
	o.reason = ""
	o.broadcastLocked()
	o.mu.Unlock()
	return nil
}

// fetchAllOptions issues one fetch per question concurrently and joins them
// all before returning; a single failure fails the whole load.
func (o *Orchestrator) fetchAllOptions(ctx context.Context, questions []domain.Question) (map[int64][]domain.Option, error) {
	type fetched struct {
		questionID int64
		options    []domain.Option
		err        error
	}
	results := make(chan fetched, len(questions))
	for _, q := range questions {
		q := q
		go func() {
			options, err := o.backend.FetchOptions(ctx, q.ID)
			results <- fetched{questionID: q.ID, options: options, err: err}
		}()
	}

	byQuestion := make(map[int64][]domain.Option, len(questions))
	var firstErr error
	for range questions {
		r := <-results
		if r.err != nil && firstErr == nil {
			firstErr = fmt.Errorf("options for question %d: %w", r.questionID, r.err)
		}
		byQuestion[r.questionID] = r.options
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return byQuestion, nil
}

func (o *Orchestrator) failLoad(cause error) error {
	err := fmt.Errorf("%w: %v", domain.ErrLoadFailed, cause)
	o.mu.Lock()
	o.reason = err.Error()
	o.broadcastLocked()
	o.mu.Unlock()
	return err
}

func (o *Orchestrator) attemptStartedSafe() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.attemptStarted
}

// Answer records a selection locally, then syncs it to the backend in the
// background. Sync failure is logged and swallowed: the local answer map
// stays the source of truth for scoring and navigation state.
func (o *Orchestrator) Answer(ctx context.Context, questionID, optionID int64) error {
	o.mu.Lock()
	switch o.state {
	case StateInProgress:
	case StateCompleted, StateReviewed:
		o.mu.Unlock()
		return domain.ErrAttemptClosed
	default:
		o.mu.Unlock()
		return domain.ErrNotInProgress
	}
	o.model.RecordAnswer(questionID, optionID)
	attemptID := o.model.Attempt().ID
	o.broadcastLocked()
	o.mu.Unlock()

	go func() {
		syncCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := o.backend.SubmitAnswer(syncCtx, attemptID, questionID, optionID); err != nil {
			log.Printf("answer sync failed for question %d: %v", questionID, err)
		}
	}()
	return nil
}

// NavAction is a navigation request from the UI.
type NavAction string

const (
	NavPrev NavAction = "prev"
	NavNext NavAction = "next"
	NavJump NavAction = "jump"
)

// Navigate moves the question cursor. Allowed while in progress and during
// read-only review.
func (o *Orchestrator) Navigate(action NavAction, index int) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != StateInProgress && o.state != StateReviewed {
		return domain.ErrNotInProgress
	}
	switch action {
	case NavPrev:
		o.cursor.Prev()
	case NavNext:
		o.cursor.Next()
	case NavJump:
		o.cursor.JumpTo(index)
	default:
		return fmt.Errorf("unknown navigation action %q", action)
	}
	o.broadcastLocked()
	return nil
}

// Submit finalizes the attempt on user confirmation. On backend failure the
// session stays InProgress and the caller may retry.
func (o *Orchestrator) Submit(ctx context.Context) error {
	return o.complete(ctx, false)
}

func (o *Orchestrator) complete(ctx context.Context, expired bool) error {
	o.mu.Lock()
	if o.state != StateInProgress {
		o.mu.Unlock()
		return domain.ErrNotInProgress
	}
	attemptID := o.model.Attempt().ID
	o.mu.Unlock()

	remote, err := o.backend.CompleteAttempt(ctx, attemptID)
	if err != nil {
		wrapped := fmt.Errorf("%w: %v", domain.ErrSubmitFailed, err)
		o.mu.Lock()
		o.reason = wrapped.Error()
		o.broadcastLocked()
		o.mu.Unlock()
		return wrapped
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != StateInProgress {
		// Lost the race against a concurrent completion; that one won.
		return nil
	}
	o.countdown.Stop()
	o.timeExpired = o.timeExpired || expired
	if expired {
		o.model.SetAttemptStatus(domain.AttemptExpired)
	} else {
		o.model.SetAttemptStatus(domain.AttemptSubmitted)
	}
	result := o.model.FinalResult(remote)
	o.result = &result
	o.reason = ""
	o.state = StateCompleted
	o.broadcastLocked()

	// Results render immediately over the snapshot stream, which is the
	// transition into read-only review.
	o.state = StateReviewed
	o.broadcastLocked()
	return nil
}

// onTick pushes the countdown value to subscribers once per second.
func (o *Orchestrator) onTick(int) {
	o.mu.Lock()
	o.broadcastLocked()
	o.mu.Unlock()
}

// onExpire fires exactly once when the budget hits zero: auto-submit with
// the expired flag, no confirmation.
func (o *Orchestrator) onExpire() {
	o.mu.Lock()
	o.timeExpired = true
	o.mu.Unlock()

	log.Printf("time expired, auto-submitting attempt")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := o.complete(ctx, true); err != nil {
		log.Printf("auto-submit failed: %v", err)
	}
}

// ToggleReveal flips the author-only answer disclosure during review. The
// reveal password is a plain string equality gate, same as the start gate.
func (o *Orchestrator) ToggleReveal(password string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state != StateReviewed {
		return domain.ErrNotInProgress
	}
	if password != o.cfg.RevealPassword {
		return domain.ErrInvalidPassword
	}
	o.revealOn = !o.revealOn
	o.broadcastLocked()
	return nil
}

func (o *Orchestrator) snapshotLocked() Snapshot {
	status := o.gate.Status()
	s := Snapshot{
		State:       o.state,
		Online:      status.Online,
		LastChecked: status.LastChecked,
		Reason:      o.reason,
		TimeExpired: o.timeExpired,
		Result:      o.result,
		RevealOn:    o.revealOn,
	}
	if o.model == nil {
		return s
	}

	questions := o.model.Questions()
	s.TotalQuestions = len(questions)
	s.AnsweredCount = o.model.AnsweredCount()
	if s.TotalQuestions > 0 {
		s.Progress = int(math.Round(float64(s.AnsweredCount) * 100 / float64(s.TotalQuestions)))
	}
	s.CurrentIndex = o.cursor.Current()
	if o.countdown != nil {
		s.Remaining = o.countdown.Remaining()
	}
	s.Slots = o.cursor.Slots(func(i int) bool {
		_, ok := o.model.AnswerFor(questions[i].ID)
		return ok
	})
	if s.CurrentIndex < len(questions) {
		q := questions[s.CurrentIndex]
		subject := o.model.SubjectFor(q.SubjectID)
		view := &QuestionView{
			ID:           q.ID,
			OrderNum:     q.OrderNum,
			Text:         q.Text,
			SubjectName:  subject.Name,
			SubjectColor: subject.Color,
		}
		selected, hasAnswer := o.model.AnswerFor(q.ID)
		for _, opt := range q.Options {
			view.Options = append(view.Options, OptionView{
				ID:       opt.ID,
				Text:     opt.Text,
				Selected: hasAnswer && selected == opt.ID,
			})
		}
		s.Question = view
	}
	if o.revealOn {
		s.Reveal = o.model.Reveal()
	}
	return s
}

func (o *Orchestrator) broadcastLocked() {
	snapshot := o.snapshotLocked()
	for ch := range o.subscribers {
		select {
		case ch <- snapshot:
		default:
			// Drop the stale snapshot so slow consumers see the latest state.
			select {
			case <-ch:
			default:
			}
			ch <- snapshot
		}
	}
}
