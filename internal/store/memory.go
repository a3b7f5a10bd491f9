package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sakshi-sonii/CET-for-JES-sub000/internal/assessment"
	"github.com/sakshi-sonii/CET-for-JES-sub000/internal/exam"
)

type memTest struct {
	seq int64
	doc exam.Test
}

// Memory is an in-process store. A single lock guards every collection, so
// a group update is never observed half applied.
type Memory struct {
	mu          sync.RWMutex
	seq         int64
	tests       map[string]memTest
	submissions map[string]exam.Submission
	users       map[string]assessment.User
}

func NewMemory() *Memory {
	return &Memory{
		tests:       map[string]memTest{},
		submissions: map[string]exam.Submission{},
		users:       map[string]assessment.User{},
	}
}

func (m *Memory) CreateTest(_ context.Context, t exam.Test) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tests[t.ID]; ok {
		return exam.Conflictf("test %s already exists", t.ID)
	}
	m.seq++
	m.tests[t.ID] = memTest{seq: m.seq, doc: t}
	return nil
}

func (m *Memory) ReplaceTest(_ context.Context, t exam.Test) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.tests[t.ID]
	if !ok {
		return exam.NotFoundf("Test not found")
	}
	m.tests[t.ID] = memTest{seq: cur.seq, doc: t}
	return nil
}

func (m *Memory) GetTest(_ context.Context, id string) (exam.Test, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.tests[id]
	if !ok {
		return exam.Test{}, exam.NotFoundf("Test not found")
	}
	return t.doc, nil
}

func (m *Memory) TestGroup(_ context.Context, rootID string) ([]exam.Test, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var group []memTest
	for id, t := range m.tests {
		if id == rootID || t.doc.ParentTestID == rootID {
			group = append(group, t)
		}
	}
	sort.Slice(group, func(i, j int) bool {
		a, b := group[i].doc, group[j].doc
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		if ca, cb := chunkCurrent(a), chunkCurrent(b); ca != cb {
			return ca < cb
		}
		return group[i].seq < group[j].seq
	})
	out := make([]exam.Test, len(group))
	for i, t := range group {
		out[i] = t.doc
	}
	return out, nil
}

func (m *Memory) ListRootTests(_ context.Context, f assessment.TestFilter) ([]exam.Test, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var roots []memTest
	for _, t := range m.tests {
		d := t.doc
		switch {
		case d.ParentTestID != "":
		case f.TeacherID != "" && d.TeacherID != f.TeacherID:
		case f.CourseRef != "" && d.CourseRef != f.CourseRef:
		case f.ApprovedOnly && !d.Approved:
		case f.ActiveOnly && !d.Active:
		default:
			roots = append(roots, t)
		}
	}
	// newest first
	sort.Slice(roots, func(i, j int) bool {
		a, b := roots[i].doc, roots[j].doc
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return roots[i].seq > roots[j].seq
	})
	out := make([]exam.Test, len(roots))
	for i, t := range roots {
		out[i] = t.doc
	}
	return out, nil
}

func (m *Memory) UpdateTests(_ context.Context, ids []string, p exam.TestPatch, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range ids {
		if _, ok := m.tests[id]; !ok {
			return exam.NotFoundf("Test %s not found", id)
		}
	}
	for _, id := range ids {
		t := m.tests[id]
		p.Apply(&t.doc)
		t.doc.UpdatedAt = at
		m.tests[id] = t
	}
	return nil
}

func (m *Memory) DeleteTests(_ context.Context, ids []string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, id := range ids {
		if _, ok := m.tests[id]; ok {
			delete(m.tests, id)
			n++
		}
	}
	return n, nil
}

func (m *Memory) CreateSubmission(_ context.Context, s exam.Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, cur := range m.submissions {
		if cur.TestID == s.TestID && cur.StudentID == s.StudentID {
			return exam.Conflictf("submission for test %s by %s already exists", s.TestID, s.StudentID)
		}
	}
	m.submissions[s.ID] = s
	return nil
}

func (m *Memory) GetSubmission(_ context.Context, id string) (exam.Submission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.submissions[id]
	if !ok {
		return exam.Submission{}, exam.NotFoundf("Submission not found")
	}
	return s, nil
}

func (m *Memory) ListSubmissions(_ context.Context, f assessment.SubmissionFilter) ([]exam.Submission, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []exam.Submission
	for _, s := range m.submissions {
		if f.TestID != "" && s.TestID != f.TestID {
			continue
		}
		if f.StudentID != "" && s.StudentID != f.StudentID {
			continue
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].SubmittedAt.Equal(out[j].SubmittedAt) {
			return out[i].SubmittedAt.After(out[j].SubmittedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (m *Memory) DeleteSubmissionsForTest(_ context.Context, testID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, s := range m.submissions {
		if s.TestID == testID {
			delete(m.submissions, id)
			n++
		}
	}
	return n, nil
}

func (m *Memory) CreateUser(_ context.Context, u assessment.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, cur := range m.users {
		if cur.Username == u.Username {
			return exam.Conflictf("username %s already exists", u.Username)
		}
	}
	m.users[u.ID] = u
	return nil
}

func (m *Memory) GetUser(_ context.Context, id string) (assessment.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return assessment.User{}, exam.NotFoundf("User not found")
	}
	return u, nil
}

func (m *Memory) GetUserByUsername(_ context.Context, username string) (assessment.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Username == username {
			return u, nil
		}
	}
	return assessment.User{}, exam.NotFoundf("User not found")
}

func (m *Memory) ListUsers(_ context.Context, role exam.Role) ([]assessment.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []assessment.User
	for _, u := range m.users {
		if role == "" || u.Role == role {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (m *Memory) SetUserApproved(_ context.Context, id string, approved bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return exam.NotFoundf("User not found")
	}
	u.Approved = approved
	m.users[id] = u
	return nil
}
