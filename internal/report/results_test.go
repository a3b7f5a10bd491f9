package report_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/sakshi-sonii/CET-for-JES-sub000/internal/exam"
	"github.com/sakshi-sonii/CET-for-JES-sub000/internal/grading"
	"github.com/sakshi-sonii/CET-for-JES-sub000/internal/report"
)

func sampleTest() exam.Test {
	q := func(correct int) exam.Question {
		return exam.Question{Text: "q", Options: []exam.Option{{Text: "a"}, {Text: "b"}, {Text: "c"}}, CorrectIndex: correct}
	}
	return exam.Test{
		ID:    "t1",
		Title: "Mock",
		Sections: []exam.Section{
			{Subject: exam.Physics, MarksPerQuestion: 1, Questions: []exam.Question{q(0), q(1)}},
			{Subject: exam.Maths, MarksPerQuestion: 2, Questions: []exam.Question{q(2)}},
		},
	}
}

func TestWriteResults(t *testing.T) {
	test := sampleTest()
	engine := grading.NewEngine()
	at := time.Date(2026, 5, 2, 8, 30, 0, 0, time.UTC)

	s1 := engine.ScoreSubmission(test, map[string]int{"physics_0": 0, "maths_0": 2})
	s1.StudentID, s1.SubmittedAt = "u1", at
	s2 := engine.ScoreSubmission(test, map[string]int{"physics_1": 0})
	s2.StudentID, s2.SubmittedAt = "u2", at

	var buf bytes.Buffer
	if err := report.WriteResults(&buf, test, []exam.Submission{s1, s2}, map[string]string{"u1": "asha"}); err != nil {
		t.Fatalf("write: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("open workbook: %v", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	want := []string{report.SummarySheet, "Physics", "Maths"}
	if len(sheets) != len(want) {
		t.Fatalf("sheets = %v, want %v", sheets, want)
	}
	for i := range want {
		if sheets[i] != want[i] {
			t.Fatalf("sheets = %v, want %v", sheets, want)
		}
	}

	rows, err := f.GetRows(report.SummarySheet)
	if err != nil {
		t.Fatalf("summary rows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("summary has %d rows, want header + 2", len(rows))
	}
	if got := rows[0]; got[0] != "Student" || got[5] != "Physics" || got[6] != "Maths" {
		t.Fatalf("header = %v", got)
	}
	if got := rows[1]; got[0] != "asha" || got[1] != "2026-05-02T08:30:00Z" || got[2] != "3" || got[3] != "4" || got[4] != "75" {
		t.Fatalf("first row = %v", got)
	}
	if got := rows[2]; got[0] != "u2" || got[2] != "0" {
		t.Fatalf("unknown student should fall back to id: %v", got)
	}

	phys, err := f.GetRows("Physics")
	if err != nil {
		t.Fatalf("physics rows: %v", err)
	}
	// Student, Score, Max, Correct, Incorrect, Unanswered, Q1, Q2
	if got := phys[1]; len(got) != 8 || got[3] != "1" || got[5] != "1" || got[6] != "1" || got[7] != "-" {
		t.Fatalf("physics row = %v", got)
	}
	if got := phys[2]; got[4] != "1" || got[6] != "-" || got[7] != "0" {
		t.Fatalf("second physics row = %v", got)
	}
}

func TestSheetName(t *testing.T) {
	cases := map[exam.Subject]string{
		exam.Physics:   "Physics",
		exam.Chemistry: "Chemistry",
		exam.Biology:   "Biology",
		"":             "",
	}
	for in, want := range cases {
		if got := report.SheetName(in); got != want {
			t.Errorf("SheetName(%q) = %q, want %q", in, got, want)
		}
	}
}
