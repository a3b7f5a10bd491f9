package assessment

import (
	"context"
	"time"

	"github.com/sakshi-sonii/CET-for-JES-sub000/internal/exam"
)

// TestFilter selects root and standalone test documents. Chunk children are
// never returned by ListRootTests.
type TestFilter struct {
	TeacherID    string
	CourseRef    string
	ApprovedOnly bool
	ActiveOnly   bool
}

type SubmissionFilter struct {
	TestID    string
	StudentID string
}

// TestStore persists test documents. Lookups of a missing id return an
// error matching exam.ErrNotFound.
type TestStore interface {
	CreateTest(ctx context.Context, t exam.Test) error
	// ReplaceTest overwrites an existing document, flags included.
	ReplaceTest(ctx context.Context, t exam.Test) error
	GetTest(ctx context.Context, id string) (exam.Test, error)
	// TestGroup returns rootID's document and every document whose parent is
	// rootID, in creation order. An unknown root yields an empty slice.
	TestGroup(ctx context.Context, rootID string) ([]exam.Test, error)
	ListRootTests(ctx context.Context, f TestFilter) ([]exam.Test, error)
	// UpdateTests applies p to every listed document in one call.
	UpdateTests(ctx context.Context, ids []string, p exam.TestPatch, at time.Time) error
	DeleteTests(ctx context.Context, ids []string) (int, error)
}

// SubmissionStore persists submissions. A second submission for the same
// test and student fails with exam.ErrConflict.
type SubmissionStore interface {
	CreateSubmission(ctx context.Context, s exam.Submission) error
	GetSubmission(ctx context.Context, id string) (exam.Submission, error)
	ListSubmissions(ctx context.Context, f SubmissionFilter) ([]exam.Submission, error)
	DeleteSubmissionsForTest(ctx context.Context, testID string) (int, error)
}

// UserStore persists accounts. Usernames are unique.
type UserStore interface {
	CreateUser(ctx context.Context, u User) error
	GetUser(ctx context.Context, id string) (User, error)
	GetUserByUsername(ctx context.Context, username string) (User, error)
	ListUsers(ctx context.Context, role exam.Role) ([]User, error)
	SetUserApproved(ctx context.Context, id string, approved bool) error
}

type Store interface {
	TestStore
	SubmissionStore
	UserStore
}

// Cache holds merged tests by root id.
type Cache interface {
	LoadTest(ctx context.Context, rootID string, load func(context.Context) (exam.Test, error)) (exam.Test, error)
	Invalidate(ctx context.Context, rootID string) error
}

type User struct {
	ID           string         `json:"id" bson:"_id"`
	Username     string         `json:"username" bson:"username"`
	Name         string         `json:"name,omitempty" bson:"name,omitempty"`
	Role         exam.Role      `json:"role" bson:"role"`
	PasswordHash string         `json:"-" bson:"passwordHash"`
	Approved     bool           `json:"approved" bson:"approved"`
	Subjects     []exam.Subject `json:"subjects,omitempty" bson:"subjects,omitempty"`
	CreatedAt    time.Time      `json:"createdAt" bson:"createdAt"`
}

// Actor is the authenticated caller of a service operation.
type Actor struct {
	ID       string
	Role     exam.Role
	Approved bool
	// Subjects a teacher may compose for; empty means unrestricted.
	Subjects []exam.Subject
}
