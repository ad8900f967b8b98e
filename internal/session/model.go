package session

import (
	"fmt"
	"log"
	"math"
	"sort"

	"quiz-proctor/internal/domain"
)

// defaultColors is the fallback badge palette keyed by subject id, used when
// the backend supplies no subject reference data.
var defaultColors = map[int64]string{
	1: "#000000",
	2: "#FF6B6B",
	3: "#4ECDC4",
	4: "#45B7D1",
}

const fallbackColor = "#666"

// Model holds the entity graph for one attempt: subjects, ordered questions
// with their options, and the answer map. It owns scoring. The orchestrator
// serializes all access; the model itself takes no locks.
type Model struct {
	attempt   domain.Attempt
	subjects  []domain.Subject
	questions []domain.Question
	answers   map[int64]int64
}

// New builds an empty model for the given attempt.
func New(attempt domain.Attempt) *Model {
	return &Model{
		attempt: attempt,
		answers: make(map[int64]int64),
	}
}

// Load normalizes backend data into the canonical shape: options attached to
// their questions, questions sorted by order number, and subjects synthesized
// with default name/color where the backend supplied none. Question data is
// read-only after this call.
func (m *Model) Load(subjects []domain.Subject, questions []domain.Question, optionsByQuestion map[int64][]domain.Option) {
	byID := make(map[int64]domain.Subject, len(subjects))
	for _, s := range subjects {
		byID[s.ID] = s
	}

	m.questions = make([]domain.Question, 0, len(questions))
	seen := make(map[int64]bool)
	var order []int64
	for _, q := range questions {
		q.Options = optionsByQuestion[q.ID]
		if n := correctCount(q.Options); n > 1 {
			// Malformed bank data; the first flagged option stays canonical.
			log.Printf("question %d has %d options flagged correct, using the first", q.ID, n)
		}
		m.questions = append(m.questions, q)
		if !seen[q.SubjectID] {
			seen[q.SubjectID] = true
			order = append(order, q.SubjectID)
		}
	}
	sort.SliceStable(m.questions, func(i, j int) bool {
		return m.questions[i].OrderNum < m.questions[j].OrderNum
	})

	m.subjects = make([]domain.Subject, 0, len(order))
	for _, id := range order {
		subject, ok := byID[id]
		if !ok {
			subject = domain.Subject{ID: id}
		}
		if subject.Name == "" {
			subject.Name = fmt.Sprintf("Subject %d", id)
		}
		if subject.Color == "" {
			if c, ok := defaultColors[id]; ok {
				subject.Color = c
			} else {
				subject.Color = fallbackColor
			}
		}
		m.subjects = append(m.subjects, subject)
	}
}

// RecordAnswer inserts or overwrites the selection for a question. It does
// not validate that the option belongs to the question; the UI only offers
// options of the question on screen.
func (m *Model) RecordAnswer(questionID, optionID int64) {
	m.answers[questionID] = optionID
}

// AnswerFor reports the recorded selection for a question, if any.
func (m *Model) AnswerFor(questionID int64) (int64, bool) {
	optionID, ok := m.answers[questionID]
	return optionID, ok
}

// AnsweredCount reports how many questions have a recorded selection.
func (m *Model) AnsweredCount() int {
	return len(m.answers)
}

// Questions returns the ordered question slice. Callers must not mutate it.
func (m *Model) Questions() []domain.Question {
	return m.questions
}

// Subjects returns the normalized subject reference data.
func (m *Model) Subjects() []domain.Subject {
	return m.subjects
}

// TotalQuestions is fixed once Load has run.
func (m *Model) TotalQuestions() int {
	return len(m.questions)
}

// Attempt returns the attempt this model belongs to.
func (m *Model) Attempt() domain.Attempt {
	return m.attempt
}

// SetAttemptStatus transitions the attempt's status.
func (m *Model) SetAttemptStatus(status domain.AttemptStatus) {
	m.attempt.Status = status
}

// SubjectFor resolves a question's subject, falling back to a zero subject.
func (m *Model) SubjectFor(subjectID int64) domain.Subject {
	for _, s := range m.subjects {
		if s.ID == subjectID {
			return s
		}
	}
	return domain.Subject{ID: subjectID, Name: fmt.Sprintf("Subject %d", subjectID), Color: fallbackColor}
}

// Score computes the per-subject breakdown plus the overall percentage from
// the answer map. Pure with respect to the model: calling it twice without
// mutation yields identical results.
func (m *Model) Score() domain.ScoreBreakdown {
	breakdown := domain.ScoreBreakdown{Total: len(m.questions)}
	perSubject := make(map[int64]*domain.SubjectScore, len(m.subjects))
	for _, s := range m.subjects {
		breakdown.Subjects = append(breakdown.Subjects, domain.SubjectScore{
			SubjectID: s.ID,
			Name:      s.Name,
			Color:     s.Color,
		})
		perSubject[s.ID] = &breakdown.Subjects[len(breakdown.Subjects)-1]
	}

	for _, q := range m.questions {
		score := perSubject[q.SubjectID]
		if score == nil {
			continue
		}
		score.Total++
		optionID, ok := m.answers[q.ID]
		if !ok {
			continue
		}
		if correct := firstCorrectOption(q.Options); correct != nil && correct.ID == optionID {
			score.Correct++
			breakdown.Correct++
		}
	}
	breakdown.Percentage = percentage(breakdown.Correct, breakdown.Total)
	return breakdown
}

// FinalResult merges the backend's completion numbers over the client-side
// score. Backend fields take precedence for the headline score; the subject
// breakdown is always client-computed since the backend has no subject
// granularity.
func (m *Model) FinalResult(remote domain.CompletionResult) domain.ScoreBreakdown {
	result := m.Score()
	if remote.CorrectAnswers != nil {
		result.Correct = *remote.CorrectAnswers
	}
	if remote.TotalQuestions != nil && *remote.TotalQuestions > 0 {
		result.Total = *remote.TotalQuestions
	}
	if remote.Score != nil {
		result.Percentage = *remote.Score
	} else {
		result.Percentage = percentage(result.Correct, result.Total)
	}
	return result
}

// Reveal builds the author-only per-question disclosure rows.
func (m *Model) Reveal() []domain.RevealRow {
	rows := make([]domain.RevealRow, 0, len(m.questions))
	for _, q := range m.questions {
		row := domain.RevealRow{QuestionID: q.ID, OrderNum: q.OrderNum}
		correct := firstCorrectOption(q.Options)
		if correct != nil {
			row.CorrectOption = correct.Text
		}
		if optionID, ok := m.answers[q.ID]; ok {
			row.Answered = true
			row.SelectedOption = "Unknown option"
			for _, opt := range q.Options {
				if opt.ID == optionID {
					row.SelectedOption = opt.Text
					break
				}
			}
			row.Correct = correct != nil && correct.ID == optionID
		}
		rows = append(rows, row)
	}
	return rows
}

func percentage(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(correct) * 100 / float64(total)))
}

func firstCorrectOption(options []domain.Option) *domain.Option {
	for i := range options {
		if options[i].IsCorrect {
			return &options[i]
		}
	}
	return nil
}

func correctCount(options []domain.Option) int {
	n := 0
	for _, opt := range options {
		if opt.IsCorrect {
			n++
		}
	}
	return n
}
