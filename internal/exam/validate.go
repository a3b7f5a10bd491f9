package exam

import (
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
)

const (
	DefaultCustomDurationMinutes = 60
	MaxCustomDurationMinutes     = 600
	DefaultPhaseMinutes          = 90
)

// ComposeRequest is the loosely shaped body a composer submits. Nothing
// downstream of ValidateComposedTest sees it.
type ComposeRequest struct {
	Title                 string          `json:"title"`
	CourseRef             string          `json:"courseRef"`
	TestType              string          `json:"testType" validate:"omitempty,oneof=mock custom"`
	Stream                string          `json:"stream" validate:"omitempty,oneof=PCM PCB"`
	Sections              []RawSection    `json:"sections" validate:"dive"`
	SectionTimings        *SectionTimings `json:"sectionTimings"`
	CustomDurationMinutes int             `json:"customDurationMinutes" validate:"omitempty,min=1,max=600"`
	ShowAnswerKey         bool            `json:"showAnswerKey"`

	// Set by clients uploading a large test as several requests.
	ChunkInfo    *ChunkInfo `json:"chunkInfo" validate:"omitempty"`
	ParentTestID string     `json:"parentTestRef"`
}

type RawSection struct {
	Subject          string        `json:"subject"`
	MarksPerQuestion *int          `json:"marksPerQuestion" validate:"omitempty,min=1"`
	Questions        []RawQuestion `json:"questions"`
}

type RawQuestion struct {
	Text             string   `json:"text"`
	Image            string   `json:"image"`
	Options          []string `json:"options"`
	OptionImages     []string `json:"optionImages"`
	CorrectIndex     *int     `json:"correctIndex"`
	ExplanationText  string   `json:"explanationText"`
	ExplanationImage string   `json:"explanationImage"`
}

// ComposedTest is a validated and normalized composition, ready to be
// split and persisted.
type ComposedTest struct {
	Title                 string
	CourseRef             string
	TestType              TestType
	Stream                Stream
	Sections              []Section
	SectionTimings        *SectionTimings
	CustomDurationMinutes int
	ShowAnswerKey         bool
	ChunkInfo             *ChunkInfo
	ParentTestID          string
}

// Partial reports whether the composition is one piece of a client-chunked upload.
func (c ComposedTest) Partial() bool {
	return c.ParentTestID != "" || (c.ChunkInfo != nil && c.ChunkInfo.Total > 1)
}

var structValidator = validator.New()

// ValidateComposedTest checks a raw composition and returns it normalized:
// subjects lowercased, marks defaulted, blank option images dropped.
//
// Mock subject completeness is not checked for chunk sub-submissions or for
// teachers, whose tests are always coerced to custom.
func ValidateComposedTest(in ComposeRequest, role Role) (ComposedTest, error) {
	if err := structValidator.Struct(in); err != nil {
		return ComposedTest{}, tagError(err)
	}

	out := ComposedTest{
		Title:         strings.TrimSpace(in.Title),
		CourseRef:     strings.TrimSpace(in.CourseRef),
		ShowAnswerKey: in.ShowAnswerKey,
		ChunkInfo:     in.ChunkInfo,
		ParentTestID:  strings.TrimSpace(in.ParentTestID),
	}
	if out.Title == "" {
		return ComposedTest{}, Validationf("Title is required")
	}
	if out.CourseRef == "" {
		return ComposedTest{}, Validationf("Course is required")
	}

	out.TestType = TestType(in.TestType)
	if role == RoleTeacher {
		out.TestType = TestTypeCustom
	}
	if out.TestType != TestTypeMock && out.TestType != TestTypeCustom {
		return ComposedTest{}, Validationf("Test type must be 'mock' or 'custom'")
	}

	sections, err := normalizeSections(in.Sections)
	if err != nil {
		return ComposedTest{}, err
	}
	out.Sections = sections

	switch out.TestType {
	case TestTypeMock:
		if !out.Partial() && role != RoleTeacher {
			if err := checkMockSubjects(sections); err != nil {
				return ComposedTest{}, err
			}
		}
		out.Stream = Stream(in.Stream)
		if out.Stream == "" {
			out.Stream = resolveStream(sections)
		}
		timings := SectionTimings{PhaseOneMinutes: DefaultPhaseMinutes, PhaseTwoMinutes: DefaultPhaseMinutes}
		if in.SectionTimings != nil {
			if in.SectionTimings.PhaseOneMinutes < 0 || in.SectionTimings.PhaseTwoMinutes < 0 {
				return ComposedTest{}, Validationf("Section timings must be positive")
			}
			if in.SectionTimings.PhaseOneMinutes > 0 {
				timings.PhaseOneMinutes = in.SectionTimings.PhaseOneMinutes
			}
			if in.SectionTimings.PhaseTwoMinutes > 0 {
				timings.PhaseTwoMinutes = in.SectionTimings.PhaseTwoMinutes
			}
		}
		out.SectionTimings = &timings
	case TestTypeCustom:
		out.CustomDurationMinutes = in.CustomDurationMinutes
		if out.CustomDurationMinutes == 0 {
			out.CustomDurationMinutes = DefaultCustomDurationMinutes
		}
	}
	return out, nil
}

func normalizeSections(raw []RawSection) ([]Section, error) {
	if len(raw) == 0 {
		return nil, Validationf("At least one section is required")
	}
	seen := make(map[Subject]bool, len(raw))
	out := make([]Section, 0, len(raw))
	for i, rs := range raw {
		subj := Subject(strings.ToLower(strings.TrimSpace(rs.Subject)))
		if subj == "" {
			return nil, Validationf("Section %d has no subject", i+1)
		}
		if !subj.Valid() {
			return nil, Validationf("Section %d has unknown subject '%s'", i+1, subj)
		}
		if seen[subj] {
			return nil, newErr(KindDuplicateSection, "Duplicate section for subject '%s'", subj)
		}
		seen[subj] = true

		if len(rs.Questions) == 0 {
			return nil, Validationf("Section '%s' has no questions", subj)
		}
		marks := subj.DefaultMarks()
		if rs.MarksPerQuestion != nil {
			marks = *rs.MarksPerQuestion
		}
		if marks < 1 {
			return nil, Validationf("Marks per question must be a positive number")
		}
		sec := Section{Subject: subj, MarksPerQuestion: marks, Questions: make([]Question, 0, len(rs.Questions))}
		for j, rq := range rs.Questions {
			q, err := normalizeQuestion(subj, j+1, rq)
			if err != nil {
				return nil, err
			}
			sec.Questions = append(sec.Questions, q)
		}
		out = append(out, sec)
	}
	return out, nil
}

func normalizeQuestion(subj Subject, n int, rq RawQuestion) (Question, error) {
	q := Question{
		Text:             strings.TrimSpace(rq.Text),
		Image:            strings.TrimSpace(rq.Image),
		ExplanationText:  strings.TrimSpace(rq.ExplanationText),
		ExplanationImage: strings.TrimSpace(rq.ExplanationImage),
	}
	if q.Text == "" && q.Image == "" {
		return Question{}, Validationf("Question %d in '%s' needs text or an image", n, subj)
	}
	if len(rq.Options) < 2 {
		return Question{}, Validationf("Question %d in '%s' needs at least 2 options", n, subj)
	}

	images := rq.OptionImages
	hasImage := false
	for _, img := range images {
		if strings.TrimSpace(img) != "" {
			hasImage = true
			break
		}
	}
	if !hasImage {
		images = nil
	}

	q.Options = make([]Option, len(rq.Options))
	for k, text := range rq.Options {
		opt := Option{Text: strings.TrimSpace(text)}
		if k < len(images) {
			opt.Image = strings.TrimSpace(images[k])
		}
		if opt.Text == "" && opt.Image == "" {
			return Question{}, Validationf("Option %d of question %d in '%s' needs text or an image", k+1, n, subj)
		}
		q.Options[k] = opt
	}

	if rq.CorrectIndex == nil {
		return Question{}, Validationf("Question %d in '%s' has no correct answer", n, subj)
	}
	if *rq.CorrectIndex < 0 || *rq.CorrectIndex >= len(q.Options) {
		return Question{}, Validationf("Question %d in '%s' has invalid correct answer index", n, subj)
	}
	q.CorrectIndex = *rq.CorrectIndex
	return q, nil
}

func checkMockSubjects(sections []Section) error {
	has := make(map[Subject]bool, len(sections))
	for _, s := range sections {
		has[s.Subject] = true
	}
	if !has[Physics] || !has[Chemistry] {
		return Validationf("Mock tests require both physics and chemistry sections")
	}
	if !has[Maths] && !has[Biology] {
		return Validationf("Mock tests require a maths or biology section")
	}
	return nil
}

func resolveStream(sections []Section) Stream {
	var maths, bio bool
	for _, s := range sections {
		switch s.Subject {
		case Maths:
			maths = true
		case Biology:
			bio = true
		}
	}
	if bio && !maths {
		return StreamPCB
	}
	return StreamPCM
}

// ValidateForApproval checks a merged test before an admin approves it.
func ValidateForApproval(t Test) error {
	if len(t.Sections) == 0 {
		return Validationf("Test has no sections")
	}
	for _, s := range t.Sections {
		if len(s.Questions) == 0 {
			return Validationf("Section '%s' has no questions", s.Subject)
		}
	}
	if t.TestType == TestTypeMock {
		return checkMockSubjects(t.Sections)
	}
	return nil
}

var tagMessages = map[string]string{
	"TestType":              "Test type must be 'mock' or 'custom'",
	"Stream":                "Stream must be 'PCM' or 'PCB'",
	"CustomDurationMinutes": "Custom duration must be between 1 and 600 minutes",
	"MarksPerQuestion":      "Marks per question must be a positive number",
	"Current":               "Chunk index must start at 1",
	"Total":                 "Chunk total must not be less than the chunk index",
}

func tagError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		if msg, ok := tagMessages[verrs[0].Field()]; ok {
			return Validationf("%s", msg)
		}
		return Validationf("Invalid %s", verrs[0].Field())
	}
	return Validationf("Invalid request: %v", err)
}
