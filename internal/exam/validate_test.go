package exam_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/sakshi-sonii/CET-for-JES-sub000/internal/exam"
)

func intp(i int) *int { return &i }

func rawQ(text string, correct int) exam.RawQuestion {
	return exam.RawQuestion{Text: text, Options: []string{"a", "b", "c", "d"}, CorrectIndex: intp(correct)}
}

func rawSection(subject string, n int) exam.RawSection {
	qs := make([]exam.RawQuestion, n)
	for i := range qs {
		qs[i] = rawQ("question", i%4)
	}
	return exam.RawSection{Subject: subject, Questions: qs}
}

func mockRequest(subjects ...string) exam.ComposeRequest {
	req := exam.ComposeRequest{Title: "  Mock 1 ", CourseRef: "course-1", TestType: "mock"}
	for _, s := range subjects {
		req.Sections = append(req.Sections, rawSection(s, 2))
	}
	return req
}

func TestValidateComposedTest_MockResolvesPCM(t *testing.T) {
	out, err := exam.ValidateComposedTest(mockRequest("physics", "chemistry", "maths"), exam.RoleCoordinator)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Stream != exam.StreamPCM {
		t.Fatalf("stream = %q, want PCM", out.Stream)
	}
	if out.Title != "Mock 1" {
		t.Fatalf("title not trimmed: %q", out.Title)
	}
	if out.SectionTimings == nil || out.SectionTimings.PhaseOneMinutes != 90 || out.SectionTimings.PhaseTwoMinutes != 90 {
		t.Fatalf("expected default 90/90 timings, got %+v", out.SectionTimings)
	}
	if out.Sections[2].MarksPerQuestion != 2 || out.Sections[0].MarksPerQuestion != 1 {
		t.Fatalf("marks not defaulted: %+v", out.Sections)
	}
}

func TestValidateComposedTest_MockResolvesPCB(t *testing.T) {
	out, err := exam.ValidateComposedTest(mockRequest("Physics", "CHEMISTRY", "biology"), exam.RoleAdmin)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.Stream != exam.StreamPCB {
		t.Fatalf("stream = %q, want PCB", out.Stream)
	}
	if out.Sections[1].Subject != exam.Chemistry {
		t.Fatalf("subject not lowercased: %q", out.Sections[1].Subject)
	}
}

func TestValidateComposedTest_MockMissingChemistry(t *testing.T) {
	_, err := exam.ValidateComposedTest(mockRequest("physics", "maths"), exam.RoleCoordinator)
	if !errors.Is(err, exam.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if !strings.Contains(err.Error(), "physics and chemistry") {
		t.Fatalf("error does not name the requirement: %v", err)
	}
}

func TestValidateComposedTest_MockSkipsCompletenessForPartsAndTeachers(t *testing.T) {
	req := mockRequest("maths")
	req.ChunkInfo = &exam.ChunkInfo{Current: 2, Total: 3}
	req.ParentTestID = "root-1"
	if _, err := exam.ValidateComposedTest(req, exam.RoleCoordinator); err != nil {
		t.Fatalf("chunk sub-submission should skip mock checks: %v", err)
	}

	out, err := exam.ValidateComposedTest(mockRequest("maths"), exam.RoleTeacher)
	if err != nil {
		t.Fatalf("teacher submission should skip mock checks: %v", err)
	}
	if out.TestType != exam.TestTypeCustom {
		t.Fatalf("teacher test type = %q, want custom", out.TestType)
	}
	if out.CustomDurationMinutes != exam.DefaultCustomDurationMinutes {
		t.Fatalf("duration = %d, want default", out.CustomDurationMinutes)
	}
}

func TestValidateComposedTest_Errors(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*exam.ComposeRequest)
		kind    error
		message string
	}{
		{"blank title", func(r *exam.ComposeRequest) { r.Title = "   " }, exam.ErrValidation, "Title is required"},
		{"no course", func(r *exam.ComposeRequest) { r.CourseRef = "" }, exam.ErrValidation, "Course is required"},
		{"bad type", func(r *exam.ComposeRequest) { r.TestType = "quiz" }, exam.ErrValidation, "Test type"},
		{"bad stream", func(r *exam.ComposeRequest) { r.Stream = "PCX" }, exam.ErrValidation, "Stream"},
		{"no sections", func(r *exam.ComposeRequest) { r.Sections = nil }, exam.ErrValidation, "At least one section"},
		{"duplicate subject", func(r *exam.ComposeRequest) {
			r.Sections = append(r.Sections, rawSection("Physics", 1))
		}, exam.ErrDuplicateSection, "physics"},
		{"unknown subject", func(r *exam.ComposeRequest) { r.Sections[0].Subject = "history" }, exam.ErrValidation, "unknown subject"},
		{"empty section", func(r *exam.ComposeRequest) { r.Sections[1].Questions = nil }, exam.ErrValidation, "'chemistry' has no questions"},
		{"no prompt", func(r *exam.ComposeRequest) { r.Sections[0].Questions[1].Text = "" }, exam.ErrValidation, "Question 2 in 'physics'"},
		{"one option", func(r *exam.ComposeRequest) { r.Sections[0].Questions[0].Options = []string{"only"} }, exam.ErrValidation, "at least 2 options"},
		{"blank option", func(r *exam.ComposeRequest) { r.Sections[0].Questions[0].Options[2] = " " }, exam.ErrValidation, "Option 3 of question 1"},
		{"missing answer", func(r *exam.ComposeRequest) { r.Sections[2].Questions[0].CorrectIndex = nil }, exam.ErrValidation, "no correct answer"},
		{"answer out of range", func(r *exam.ComposeRequest) { r.Sections[1].Questions[2].CorrectIndex = intp(4) }, exam.ErrValidation,
			"Question 3 in 'chemistry' has invalid correct answer index"},
		{"negative answer", func(r *exam.ComposeRequest) { r.Sections[1].Questions[0].CorrectIndex = intp(-1) }, exam.ErrValidation, "invalid correct answer index"},
		{"zero marks", func(r *exam.ComposeRequest) { r.Sections[0].MarksPerQuestion = intp(0) }, exam.ErrValidation, "Marks per question"},
		{"bad chunk info", func(r *exam.ComposeRequest) { r.ChunkInfo = &exam.ChunkInfo{Current: 3, Total: 2} }, exam.ErrValidation, "Chunk total"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := mockRequest("physics", "chemistry", "maths")
			req.Sections[1] = rawSection("chemistry", 3)
			tc.mutate(&req)
			_, err := exam.ValidateComposedTest(req, exam.RoleCoordinator)
			if !errors.Is(err, tc.kind) {
				t.Fatalf("expected %v, got %v", tc.kind, err)
			}
			if !strings.Contains(err.Error(), tc.message) {
				t.Fatalf("error %q does not contain %q", err.Error(), tc.message)
			}
		})
	}
}

func TestValidateComposedTest_CustomDuration(t *testing.T) {
	cases := []struct {
		in      int
		want    int
		wantErr bool
	}{
		{0, 60, false},
		{1, 1, false},
		{600, 600, false},
		{601, 0, true},
		{-5, 0, true},
	}
	for _, c := range cases {
		req := exam.ComposeRequest{
			Title: "Custom", CourseRef: "c1", TestType: "custom",
			CustomDurationMinutes: c.in,
			Sections:              []exam.RawSection{rawSection("biology", 1)},
		}
		out, err := exam.ValidateComposedTest(req, exam.RoleCoordinator)
		if c.wantErr {
			if !errors.Is(err, exam.ErrValidation) {
				t.Errorf("duration %d: expected validation error, got %v", c.in, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("duration %d: unexpected error %v", c.in, err)
			continue
		}
		if out.CustomDurationMinutes != c.want {
			t.Errorf("duration %d: got %d, want %d", c.in, out.CustomDurationMinutes, c.want)
		}
	}
}

func TestValidateComposedTest_OptionImages(t *testing.T) {
	req := mockRequest("physics", "chemistry", "maths")
	req.Sections[0].Questions[0].OptionImages = []string{"", " ", "", ""}
	req.Sections[0].Questions[1].OptionImages = []string{"", "img-b", "", ""}
	req.Sections[0].Questions[1].Options = []string{"a", "", "c", "d"}

	out, err := exam.ValidateComposedTest(req, exam.RoleCoordinator)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, o := range out.Sections[0].Questions[0].Options {
		if o.Image != "" {
			t.Fatalf("blank option images should be dropped, got %+v", o)
		}
	}
	if got := out.Sections[0].Questions[1].Options[1]; got.Image != "img-b" || got.Text != "" {
		t.Fatalf("image-only option not kept: %+v", got)
	}
}

func TestValidateForApproval(t *testing.T) {
	sec := func(s exam.Subject, n int) exam.Section {
		return exam.Section{Subject: s, MarksPerQuestion: 1, Questions: make([]exam.Question, n)}
	}
	cases := []struct {
		name string
		test exam.Test
		ok   bool
	}{
		{"complete mock", exam.Test{TestType: exam.TestTypeMock, Sections: []exam.Section{sec(exam.Physics, 1), sec(exam.Chemistry, 1), sec(exam.Biology, 1)}}, true},
		{"mock without maths or biology", exam.Test{TestType: exam.TestTypeMock, Sections: []exam.Section{sec(exam.Physics, 1), sec(exam.Chemistry, 1)}}, false},
		{"custom single subject", exam.Test{TestType: exam.TestTypeCustom, Sections: []exam.Section{sec(exam.Maths, 3)}}, true},
		{"empty section", exam.Test{TestType: exam.TestTypeCustom, Sections: []exam.Section{sec(exam.Maths, 0)}}, false},
		{"no sections", exam.Test{TestType: exam.TestTypeCustom}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := exam.ValidateForApproval(tc.test)
			if (err == nil) != tc.ok {
				t.Fatalf("ok = %v, err = %v", tc.ok, err)
			}
		})
	}
}
