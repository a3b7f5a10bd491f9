package exam_test

import (
	"testing"

	"github.com/sakshi-sonii/CET-for-JES-sub000/internal/exam"
)

func TestRedactForStudent(t *testing.T) {
	test := exam.Test{
		ID:            "t1",
		ReviewComment: "internal note",
		Sections: []exam.Section{{
			Subject:          exam.Physics,
			MarksPerQuestion: 1,
			Questions: []exam.Question{{
				Text:             "Q1",
				Options:          []exam.Option{{Text: "a"}, {Text: "b"}},
				CorrectIndex:     1,
				ExplanationText:  "why",
				ExplanationImage: "img",
			}},
		}},
	}
	out := exam.RedactForStudent(test)
	q := out.Sections[0].Questions[0]
	if q.CorrectIndex != -1 || q.ExplanationText != "" || q.ExplanationImage != "" {
		t.Fatalf("answer data leaked: %+v", q)
	}
	if out.ReviewComment != "" {
		t.Fatalf("review comment leaked")
	}
	if test.Sections[0].Questions[0].CorrectIndex != 1 || test.Sections[0].Questions[0].ExplanationText != "why" {
		t.Fatalf("original test was modified")
	}
}

func TestRedactSubmission(t *testing.T) {
	correct, answer := 2, 1
	sub := exam.Submission{
		TotalScore: 0,
		SectionResults: []exam.SectionResult{{
			Subject: exam.Chemistry,
			Questions: []exam.QuestionResult{{
				CorrectAnswer:   &correct,
				StudentAnswer:   &answer,
				ExplanationText: "because",
			}},
		}},
	}

	hidden := exam.RedactSubmission(sub, false)
	qr := hidden.SectionResults[0].Questions[0]
	if qr.CorrectAnswer != nil || qr.ExplanationText != "" {
		t.Fatalf("answer key leaked: %+v", qr)
	}
	if qr.StudentAnswer == nil || *qr.StudentAnswer != 1 {
		t.Fatalf("student answer should be kept")
	}
	if sub.SectionResults[0].Questions[0].CorrectAnswer == nil {
		t.Fatalf("original submission was modified")
	}

	shown := exam.RedactSubmission(sub, true)
	if shown.SectionResults[0].Questions[0].CorrectAnswer == nil {
		t.Fatalf("answer key should be visible")
	}
}

func TestCanViewAnswerKey(t *testing.T) {
	cases := []struct {
		atSubmit, now, want bool
	}{
		{false, false, false},
		{true, false, true},
		{false, true, true},
		{true, true, true},
	}
	for _, c := range cases {
		got := exam.CanViewAnswerKey(exam.Submission{AnswerKeyAtSubmit: c.atSubmit}, exam.Test{ShowAnswerKey: c.now})
		if got != c.want {
			t.Errorf("atSubmit=%v now=%v: got %v", c.atSubmit, c.now, got)
		}
	}
}
