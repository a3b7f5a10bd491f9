package exam_test

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/sakshi-sonii/CET-for-JES-sub000/internal/exam"
)

// imageQuestion builds a question whose serialized size is dominated by an
// inline image of n bytes.
func imageQuestion(label string, n int) exam.Question {
	return exam.Question{
		Text:         label,
		Image:        "data:image/png;base64," + strings.Repeat("A", n),
		Options:      []exam.Option{{Text: "a"}, {Text: "b"}, {Text: "c"}, {Text: "d"}},
		CorrectIndex: 1,
	}
}

func imageSections(perSubject, imageBytes int, subjects ...exam.Subject) []exam.Section {
	out := make([]exam.Section, 0, len(subjects))
	for _, s := range subjects {
		sec := exam.Section{Subject: s, MarksPerQuestion: s.DefaultMarks()}
		for i := 0; i < perSubject; i++ {
			sec.Questions = append(sec.Questions, imageQuestion(fmt.Sprintf("%s-%d", s, i), imageBytes))
		}
		out = append(out, sec)
	}
	return out
}

// docsFromChunks persists payloads the way the service does: the first is
// the root and the rest point at it.
func docsFromChunks(chunks []exam.ChunkPayload) []exam.Test {
	docs := make([]exam.Test, len(chunks))
	for i, c := range chunks {
		docs[i] = exam.Test{
			ID:        fmt.Sprintf("doc-%d", i+1),
			Title:     c.Title,
			Sections:  c.Sections,
			ChunkInfo: c.ChunkInfo,
			Active:    true,
		}
		if i > 0 {
			docs[i].ParentTestID = "doc-1"
		}
	}
	return docs
}

func TestSplitIntoChunks_FitsInOne(t *testing.T) {
	sections := imageSections(2, 10, exam.Physics)
	chunks, err := exam.SplitIntoChunks(sections, "Small", exam.DefaultChunkBudget)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) != 1 || chunks[0].ChunkInfo != nil || chunks[0].Title != "Small" {
		t.Fatalf("expected a single unchunked payload, got %+v", chunks)
	}
}

func TestSplitIntoChunks_LargeMock(t *testing.T) {
	sections := imageSections(50, 27_000, exam.Physics, exam.Chemistry, exam.Maths)
	if size := exam.PayloadSize(exam.ChunkPayload{Title: "Big", Sections: sections}); size < 4_000_000 {
		t.Fatalf("fixture too small: %d bytes", size)
	}

	chunks, err := exam.SplitIntoChunks(sections, "Big", exam.DefaultChunkBudget)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected at least 2 chunks, got %d", len(chunks))
	}
	for i, c := range chunks {
		if size := exam.PayloadSize(c); size > exam.DefaultChunkBudget {
			t.Fatalf("chunk %d is %d bytes, over budget", i+1, size)
		}
		if c.ChunkInfo == nil || c.ChunkInfo.Current != i+1 || c.ChunkInfo.Total != len(chunks) {
			t.Fatalf("chunk %d has chunk info %+v", i+1, c.ChunkInfo)
		}
		wantTitle := "Big"
		if i > 0 {
			wantTitle = fmt.Sprintf("Big (Part %d/%d)", i+1, len(chunks))
		}
		if c.Title != wantTitle {
			t.Fatalf("chunk %d title = %q, want %q", i+1, c.Title, wantTitle)
		}
	}

	// Subject and question order survives the chunk boundaries.
	var got []string
	for _, c := range chunks {
		for _, s := range c.Sections {
			for _, q := range s.Questions {
				got = append(got, q.Text)
			}
		}
	}
	var want []string
	for _, s := range sections {
		for _, q := range s.Questions {
			want = append(want, q.Text)
		}
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("question order changed across chunks")
	}
}

func TestSplitIntoChunks_RoundTrip(t *testing.T) {
	budgets := []int{3_000, 8_000, 20_000}
	for _, budget := range budgets {
		t.Run(fmt.Sprint(budget), func(t *testing.T) {
			sections := imageSections(7, 900, exam.Physics, exam.Chemistry, exam.Biology)
			chunks, err := exam.SplitIntoChunks(sections, "Round", budget)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			merged, err := exam.MergeChunkGroup(docsFromChunks(chunks))
			if err != nil {
				t.Fatalf("merge: %v", err)
			}
			if !reflect.DeepEqual(merged.Sections, sections) {
				t.Fatalf("round trip lost or reordered questions with %d chunks", len(chunks))
			}
			if merged.Title != "Round" || merged.ID != "doc-1" {
				t.Fatalf("merged identity = %q/%q", merged.ID, merged.Title)
			}
		})
	}
}

func TestSplitIntoChunks_QuestionTooLarge(t *testing.T) {
	sections := []exam.Section{{
		Subject:          exam.Physics,
		MarksPerQuestion: 1,
		Questions:        []exam.Question{imageQuestion("small", 10), imageQuestion("huge", 5_000), imageQuestion("small2", 10)},
	}}
	_, err := exam.SplitIntoChunks(sections, "Oversized", 2_000)
	if !errors.Is(err, exam.ErrChunkTooLarge) {
		t.Fatalf("expected chunk too large, got %v", err)
	}
	if !strings.Contains(err.Error(), "cannot be split further") {
		t.Fatalf("unexpected message: %v", err)
	}
}

func TestSplitDocument_MeasuresStoredDocument(t *testing.T) {
	created := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)
	base := exam.Test{
		ID:            "t-0001",
		Title:         "Mock",
		CourseRef:     "cet-2026-batch-a",
		TestType:      exam.TestTypeMock,
		Sections:      imageSections(3, 400, exam.Physics, exam.Chemistry),
		CoordinatorID: "coord-0001",
		CreatedAt:     created,
		UpdatedAt:     created,
	}
	// The questions alone fit; the stored metadata pushes them over.
	budget := exam.PayloadSize(exam.ChunkPayload{Title: base.Title, Sections: base.Sections}) + 5

	chunks, err := exam.SplitDocument(base, budget)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(chunks) < 2 {
		t.Fatalf("expected a split under budget %d, got %d chunk(s)", budget, len(chunks))
	}
	for i, c := range chunks {
		doc := exam.ChunkDocument(base, c)
		if i > 0 {
			doc.ID = fmt.Sprintf("t-%04d", i+1)
			doc.ParentTestID = base.ID
		}
		if size := exam.PayloadSize(doc); size > budget {
			t.Fatalf("stored chunk %d is %d bytes, budget %d", i+1, size, budget)
		}
		if len(doc.SubjectsIncluded) == 0 || doc.CourseRef != base.CourseRef {
			t.Fatalf("chunk %d lost group fields: %+v", i+1, doc)
		}
	}
}

func TestMergeChunkGroup_OrderIndependent(t *testing.T) {
	sections := imageSections(6, 900, exam.Physics, exam.Maths)
	chunks, err := exam.SplitIntoChunks(sections, "Shuffle", 4_000)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	docs := docsFromChunks(chunks)
	if len(docs) < 3 {
		t.Fatalf("fixture should produce at least 3 chunks, got %d", len(docs))
	}

	reversed := make([]exam.Test, len(docs))
	for i := range docs {
		reversed[len(docs)-1-i] = docs[i]
	}
	a, err := exam.MergeChunkGroup(docs)
	if err != nil {
		t.Fatal(err)
	}
	b, err := exam.MergeChunkGroup(reversed)
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(a.Sections, b.Sections) {
		t.Fatalf("merge depends on input order")
	}
}

func TestMergeChunkGroup_GroupFields(t *testing.T) {
	early := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	late := early.Add(time.Hour)
	docs := []exam.Test{
		{
			ID:           "child",
			ParentTestID: "root",
			Title:        "Physics Set (part 2/2)",
			Sections: []exam.Section{
				{Subject: exam.Physics, MarksPerQuestion: 1, Questions: []exam.Question{{Text: "p2"}}},
				{Subject: exam.Maths, MarksPerQuestion: 2, Questions: []exam.Question{{Text: "m1"}}},
			},
			ChunkInfo:     &exam.ChunkInfo{Current: 2, Total: 2},
			Approved:      true,
			Active:        false,
			ShowAnswerKey: true,
			CreatedAt:     late,
			UpdatedAt:     late,
		},
		{
			ID:    "root",
			Title: "Physics Set",
			Sections: []exam.Section{
				{Subject: exam.Physics, MarksPerQuestion: 1, Questions: []exam.Question{{Text: "p1"}}},
			},
			ChunkInfo:     &exam.ChunkInfo{Current: 1, Total: 2},
			Approved:      true,
			Active:        true,
			ShowAnswerKey: true,
			CreatedAt:     early,
			UpdatedAt:     early,
		},
	}
	m, err := exam.MergeChunkGroup(docs)
	if err != nil {
		t.Fatal(err)
	}
	if m.ID != "root" || m.Title != "Physics Set" || m.ParentTestID != "" || m.ChunkInfo != nil {
		t.Fatalf("unexpected merged identity %+v", m)
	}
	if !m.Approved || m.Active || !m.ShowAnswerKey {
		t.Fatalf("group flags not combined: approved=%v active=%v key=%v", m.Approved, m.Active, m.ShowAnswerKey)
	}
	if !m.CreatedAt.Equal(early) || !m.UpdatedAt.Equal(late) {
		t.Fatalf("timestamps = %v / %v", m.CreatedAt, m.UpdatedAt)
	}
	if !reflect.DeepEqual(m.SubjectsIncluded, []exam.Subject{exam.Physics, exam.Maths}) {
		t.Fatalf("subjects = %v", m.SubjectsIncluded)
	}
	if got := m.Sections[0].Questions; len(got) != 2 || got[0].Text != "p1" || got[1].Text != "p2" {
		t.Fatalf("physics questions = %+v", got)
	}
}

func TestMergeChunkGroup_LegacyChildWithoutChunkInfo(t *testing.T) {
	docs := []exam.Test{
		{ID: "c", ParentTestID: "r", Sections: []exam.Section{{Subject: exam.Physics, Questions: []exam.Question{{Text: "second"}}}}},
		{ID: "r", Sections: []exam.Section{{Subject: exam.Physics, Questions: []exam.Question{{Text: "first"}}}}},
	}
	m, err := exam.MergeChunkGroup(docs)
	if err != nil {
		t.Fatal(err)
	}
	if q := m.Sections[0].Questions; q[0].Text != "first" || q[1].Text != "second" {
		t.Fatalf("legacy child not ordered after root: %+v", q)
	}
}

func TestMergeChunkGroup_Empty(t *testing.T) {
	if _, err := exam.MergeChunkGroup(nil); !errors.Is(err, exam.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestBaseTitle(t *testing.T) {
	cases := map[string]string{
		"Mock 3 (Part 2/4)":     "Mock 3",
		"Mock 3 (part 10/12) ": "Mock 3",
		"Mock (Part A)":         "Mock (Part A)",
		"Plain":                 "Plain",
	}
	for in, want := range cases {
		if got := exam.BaseTitle(in); got != want {
			t.Errorf("BaseTitle(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestPositionOf(t *testing.T) {
	cases := []struct {
		name  string
		test  exam.Test
		index int
		kind  string
	}{
		{"standalone", exam.Test{ID: "a"}, 1, "standalone"},
		{"root", exam.Test{ID: "a", ChunkInfo: &exam.ChunkInfo{Current: 1, Total: 3}}, 1, "root"},
		{"child", exam.Test{ID: "b", ParentTestID: "a", ChunkInfo: &exam.ChunkInfo{Current: 3, Total: 3}}, 3, "child"},
		{"legacy child", exam.Test{ID: "b", ParentTestID: "a"}, 2, "child"},
	}
	for _, tc := range cases {
		p := exam.PositionOf(tc.test)
		kind := "standalone"
		switch {
		case p.IsRoot():
			kind = "root"
		case p.IsChild():
			kind = "child"
		}
		if kind != tc.kind || p.Index() != tc.index {
			t.Errorf("%s: got %s/%d, want %s/%d", tc.name, kind, p.Index(), tc.kind, tc.index)
		}
	}
}
