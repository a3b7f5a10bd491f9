package exam

import (
	"strconv"
	"time"
)

type Subject string

const (
	Physics   Subject = "physics"
	Chemistry Subject = "chemistry"
	Maths     Subject = "maths"
	Biology   Subject = "biology"
)

// Subjects lists the known subjects in their canonical display order.
var Subjects = []Subject{Physics, Chemistry, Maths, Biology}

func (s Subject) Valid() bool {
	switch s {
	case Physics, Chemistry, Maths, Biology:
		return true
	}
	return false
}

// DefaultMarks is the per-question mark value used when a section does not set one.
func (s Subject) DefaultMarks() int {
	if s == Maths {
		return 2
	}
	return 1
}

type TestType string

const (
	TestTypeMock   TestType = "mock"
	TestTypeCustom TestType = "custom"
)

type Stream string

const (
	StreamPCM Stream = "PCM"
	StreamPCB Stream = "PCB"
)

type Role string

const (
	RoleStudent     Role = "student"
	RoleTeacher     Role = "teacher"
	RoleCoordinator Role = "coordinator"
	RoleAdmin       Role = "admin"
)

type Option struct {
	Text  string `json:"text,omitempty" bson:"text,omitempty"`
	Image string `json:"image,omitempty" bson:"image,omitempty"`
}

type Question struct {
	Text             string   `json:"text,omitempty" bson:"text,omitempty"`
	Image            string   `json:"image,omitempty" bson:"image,omitempty"`
	Options          []Option `json:"options" bson:"options"`
	CorrectIndex     int      `json:"correctIndex" bson:"correctIndex"`
	ExplanationText  string   `json:"explanationText,omitempty" bson:"explanationText,omitempty"`
	ExplanationImage string   `json:"explanationImage,omitempty" bson:"explanationImage,omitempty"`
}

type Section struct {
	Subject          Subject    `json:"subject" bson:"subject"`
	MarksPerQuestion int        `json:"marksPerQuestion" bson:"marksPerQuestion"`
	Questions        []Question `json:"questions" bson:"questions"`
}

// SectionTimings holds the two phase durations of a mock test, in minutes.
// Phase one covers physics and chemistry, phase two maths or biology.
type SectionTimings struct {
	PhaseOneMinutes int `json:"phaseOneMinutes" bson:"phaseOneMinutes"`
	PhaseTwoMinutes int `json:"phaseTwoMinutes" bson:"phaseTwoMinutes"`
}

// ChunkInfo is the 1-based position of a document within its chunk group.
type ChunkInfo struct {
	Current int `json:"current" bson:"current" validate:"min=1"`
	Total   int `json:"total" bson:"total" validate:"gtefield=Current"`
}

type Test struct {
	ID                    string          `json:"id" bson:"_id"`
	Title                 string          `json:"title" bson:"title"`
	CourseRef             string          `json:"courseRef" bson:"courseRef"`
	TestType              TestType        `json:"testType" bson:"testType"`
	Stream                Stream          `json:"stream,omitempty" bson:"stream,omitempty"`
	Sections              []Section       `json:"sections" bson:"sections"`
	SubjectsIncluded      []Subject       `json:"subjectsIncluded" bson:"subjectsIncluded"`
	SectionTimings        *SectionTimings `json:"sectionTimings,omitempty" bson:"sectionTimings,omitempty"`
	CustomDurationMinutes int             `json:"customDurationMinutes,omitempty" bson:"customDurationMinutes,omitempty"`

	ShowAnswerKey bool `json:"showAnswerKey" bson:"showAnswerKey"`
	Approved      bool `json:"approved" bson:"approved"`
	Active        bool `json:"active" bson:"active"`

	// Exactly one of TeacherID and CoordinatorID is set.
	TeacherID     string       `json:"teacherId,omitempty" bson:"teacherId,omitempty"`
	CoordinatorID string       `json:"coordinatorId,omitempty" bson:"coordinatorId,omitempty"`
	ReviewStatus  ReviewStatus `json:"reviewStatus,omitempty" bson:"reviewStatus,omitempty"`
	ReviewComment string       `json:"reviewComment,omitempty" bson:"reviewComment,omitempty"`

	ChunkInfo    *ChunkInfo `json:"chunkInfo,omitempty" bson:"chunkInfo,omitempty"`
	ParentTestID string     `json:"parentTestRef,omitempty" bson:"parentTestRef,omitempty"`

	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt" bson:"updatedAt"`
}

// CreatorID returns whichever composer owns the test.
func (t Test) CreatorID() string {
	if t.TeacherID != "" {
		return t.TeacherID
	}
	return t.CoordinatorID
}

// CreatorRole reports the role of the composer that owns the test.
func (t Test) CreatorRole() Role {
	if t.TeacherID != "" {
		return RoleTeacher
	}
	return RoleCoordinator
}

// RootID is the id every member of the test's chunk group shares as identity.
func (t Test) RootID() string {
	if t.ParentTestID != "" {
		return t.ParentTestID
	}
	return t.ID
}

// QuestionCount is the number of questions across all sections.
func (t Test) QuestionCount() int {
	n := 0
	for _, s := range t.Sections {
		n += len(s.Questions)
	}
	return n
}

// SubjectsOf returns the subjects of the given sections in order.
func SubjectsOf(sections []Section) []Subject {
	out := make([]Subject, 0, len(sections))
	for _, s := range sections {
		out = append(out, s.Subject)
	}
	return out
}

// TestPatch carries the group-wide fields that can be written to many
// documents at once. Nil fields are left untouched.
type TestPatch struct {
	Active        *bool         `json:"active,omitempty"`
	ShowAnswerKey *bool         `json:"showAnswerKey,omitempty"`
	Approved      *bool         `json:"approved,omitempty"`
	ReviewStatus  *ReviewStatus `json:"reviewStatus,omitempty"`
	ReviewComment *string       `json:"reviewComment,omitempty"`
}

func (p TestPatch) Empty() bool {
	return p.Active == nil && p.ShowAnswerKey == nil && p.Approved == nil &&
		p.ReviewStatus == nil && p.ReviewComment == nil
}

// Apply writes the non-nil fields of p onto t.
func (p TestPatch) Apply(t *Test) {
	if p.Active != nil {
		t.Active = *p.Active
	}
	if p.ShowAnswerKey != nil {
		t.ShowAnswerKey = *p.ShowAnswerKey
	}
	if p.Approved != nil {
		t.Approved = *p.Approved
	}
	if p.ReviewStatus != nil {
		t.ReviewStatus = *p.ReviewStatus
	}
	if p.ReviewComment != nil {
		t.ReviewComment = *p.ReviewComment
	}
}

func boolPtr(b bool) *bool    { return &b }
func strPtr(s string) *string { return &s }

type Submission struct {
	ID             string          `json:"id" bson:"_id"`
	TestID         string          `json:"testRef" bson:"testRef"`
	StudentID      string          `json:"studentRef" bson:"studentRef"`
	Answers        map[string]int  `json:"answers" bson:"answers"`
	SectionResults []SectionResult `json:"sectionResults" bson:"sectionResults"`
	TotalScore     int             `json:"totalScore" bson:"totalScore"`
	TotalMaxScore  int             `json:"totalMaxScore" bson:"totalMaxScore"`
	Percentage     int             `json:"percentage" bson:"percentage"`

	// AnswerKeyAtSubmit records the test's showAnswerKey flag when the
	// submission was made.
	AnswerKeyAtSubmit bool      `json:"answerKeyAtSubmit" bson:"answerKeyAtSubmit"`
	SubmittedAt       time.Time `json:"submittedAt" bson:"submittedAt"`
}

type SectionResult struct {
	Subject          Subject          `json:"subject" bson:"subject"`
	Score            int              `json:"score" bson:"score"`
	MaxScore         int              `json:"maxScore" bson:"maxScore"`
	MarksPerQuestion int              `json:"marksPerQuestion" bson:"marksPerQuestion"`
	CorrectCount     int              `json:"correctCount" bson:"correctCount"`
	IncorrectCount   int              `json:"incorrectCount" bson:"incorrectCount"`
	UnansweredCount  int              `json:"unansweredCount" bson:"unansweredCount"`
	Questions        []QuestionResult `json:"questions" bson:"questions"`
}

type QuestionResult struct {
	QuestionIndex    int      `json:"questionIndex" bson:"questionIndex"`
	Text             string   `json:"text,omitempty" bson:"text,omitempty"`
	Image            string   `json:"image,omitempty" bson:"image,omitempty"`
	Options          []Option `json:"options" bson:"options"`
	ExplanationText  string   `json:"explanationText,omitempty" bson:"explanationText,omitempty"`
	ExplanationImage string   `json:"explanationImage,omitempty" bson:"explanationImage,omitempty"`

	// CorrectAnswer is nil only in a redacted view.
	CorrectAnswer    *int `json:"correctAnswer" bson:"correctAnswer"`
	StudentAnswer    *int `json:"studentAnswer" bson:"studentAnswer"`
	IsCorrect        bool `json:"isCorrect" bson:"isCorrect"`
	MarksAwarded     int  `json:"marksAwarded" bson:"marksAwarded"`
	MarksPerQuestion int  `json:"marksPerQuestion" bson:"marksPerQuestion"`
}

// AnswerKey builds the answers-map key for a question of a section.
func AnswerKey(subject Subject, index int) string {
	return string(subject) + "_" + strconv.Itoa(index)
}
