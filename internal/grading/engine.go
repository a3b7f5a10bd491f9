package grading

import (
	"math"

	"github.com/sakshi-sonii/CET-for-JES-sub000/internal/exam"
)

// Result is the outcome of grading a single question response.
type Result struct {
	Answered     bool
	IsCorrect    bool
	MarksAwarded int
}

// Strategy grades a single question. answer is nil when the student left
// the question blank.
type Strategy interface {
	Grade(q exam.Question, marks int, answer *int) Result
}

// Engine scores submissions against merged tests. It holds no state
// between calls and never modifies the test it is given.
type Engine struct {
	strategy     Strategy
	defaultMarks func(exam.Subject) int
}

// Engine options

type Option func(*config)

type config struct {
	Strategy     Strategy
	DefaultMarks func(exam.Subject) int // for sections stored without marks
}

func WithStrategy(s Strategy) Option                   { return func(c *config) { c.Strategy = s } }
func WithDefaultMarks(f func(exam.Subject) int) Option { return func(c *config) { c.DefaultMarks = f } }

// NewEngine installs the single-correct-answer strategy unless overridden.
func NewEngine(opts ...Option) *Engine {
	cfg := &config{
		Strategy:     singleCorrectStrategy{},
		DefaultMarks: exam.Subject.DefaultMarks,
	}
	for _, o := range opts {
		o(cfg)
	}
	return &Engine{strategy: cfg.Strategy, defaultMarks: cfg.DefaultMarks}
}

// ScoreSubmission grades answers against every question of t. Answers are
// keyed "<subject>_<index>"; keys that match no question are ignored.
// The returned submission has no id, student or timestamp set.
func (e *Engine) ScoreSubmission(t exam.Test, answers map[string]int) exam.Submission {
	sub := exam.Submission{
		TestID:         t.ID,
		Answers:        copyAnswers(answers),
		SectionResults: make([]exam.SectionResult, 0, len(t.Sections)),
	}
	for _, sec := range t.Sections {
		sr := e.scoreSection(sec, answers)
		sub.TotalScore += sr.Score
		sub.TotalMaxScore += sr.MaxScore
		sub.SectionResults = append(sub.SectionResults, sr)
	}
	sub.Percentage = Percentage(sub.TotalScore, sub.TotalMaxScore)
	return sub
}

func (e *Engine) scoreSection(sec exam.Section, answers map[string]int) exam.SectionResult {
	marks := sec.MarksPerQuestion
	if marks <= 0 {
		marks = e.defaultMarks(sec.Subject)
	}
	sr := exam.SectionResult{
		Subject:          sec.Subject,
		MarksPerQuestion: marks,
		MaxScore:         len(sec.Questions) * marks,
		Questions:        make([]exam.QuestionResult, 0, len(sec.Questions)),
	}
	for i, q := range sec.Questions {
		var answer *int
		if a, ok := answers[exam.AnswerKey(sec.Subject, i)]; ok {
			answer = &a
		}
		res := e.strategy.Grade(q, marks, answer)
		switch {
		case !res.Answered:
			sr.UnansweredCount++
		case res.IsCorrect:
			sr.CorrectCount++
		default:
			sr.IncorrectCount++
		}
		sr.Score += res.MarksAwarded

		correct := q.CorrectIndex
		sr.Questions = append(sr.Questions, exam.QuestionResult{
			QuestionIndex:    i,
			Text:             q.Text,
			Image:            q.Image,
			Options:          append([]exam.Option(nil), q.Options...),
			ExplanationText:  q.ExplanationText,
			ExplanationImage: q.ExplanationImage,
			CorrectAnswer:    &correct,
			StudentAnswer:    answer,
			IsCorrect:        res.IsCorrect,
			MarksAwarded:     res.MarksAwarded,
			MarksPerQuestion: marks,
		})
	}
	return sr
}

// Percentage is score/max rounded to the nearest whole percent, or 0 when
// max is 0.
func Percentage(score, max int) int {
	if max <= 0 {
		return 0
	}
	return int(math.Round(float64(score) / float64(max) * 100))
}

// --- Strategies ---

type singleCorrectStrategy struct{}

// Incorrect and blank answers both score zero.
func (singleCorrectStrategy) Grade(q exam.Question, marks int, answer *int) Result {
	if answer == nil {
		return Result{}
	}
	if *answer == q.CorrectIndex {
		return Result{Answered: true, IsCorrect: true, MarksAwarded: marks}
	}
	return Result{Answered: true}
}

func copyAnswers(in map[string]int) map[string]int {
	out := make(map[string]int, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}
