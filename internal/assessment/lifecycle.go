package assessment

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sakshi-sonii/CET-for-JES-sub000/internal/events"
	"github.com/sakshi-sonii/CET-for-JES-sub000/internal/exam"
)

// TestSummary is the list view of a merged test.
type TestSummary struct {
	ID                    string               `json:"id"`
	Title                 string               `json:"title"`
	CourseRef             string               `json:"courseRef"`
	TestType              exam.TestType        `json:"testType"`
	Stream                exam.Stream          `json:"stream,omitempty"`
	SubjectsIncluded      []exam.Subject       `json:"subjectsIncluded"`
	QuestionCount         int                  `json:"questionCount"`
	Parts                 int                  `json:"parts"`
	SectionTimings        *exam.SectionTimings `json:"sectionTimings,omitempty"`
	CustomDurationMinutes int                  `json:"customDurationMinutes,omitempty"`
	ShowAnswerKey         bool                 `json:"showAnswerKey"`
	Approved              bool                 `json:"approved"`
	Active                bool                 `json:"active"`
	TeacherID             string               `json:"teacherId,omitempty"`
	CoordinatorID         string               `json:"coordinatorId,omitempty"`
	ReviewStatus          exam.ReviewStatus    `json:"reviewStatus,omitempty"`
	ReviewComment         string               `json:"reviewComment,omitempty"`
	CreatedAt             time.Time            `json:"createdAt"`
	UpdatedAt             time.Time            `json:"updatedAt"`
}

func summarize(t exam.Test, parts int) TestSummary {
	return TestSummary{
		ID:                    t.ID,
		Title:                 t.Title,
		CourseRef:             t.CourseRef,
		TestType:              t.TestType,
		Stream:                t.Stream,
		SubjectsIncluded:      t.SubjectsIncluded,
		QuestionCount:         t.QuestionCount(),
		Parts:                 parts,
		SectionTimings:        t.SectionTimings,
		CustomDurationMinutes: t.CustomDurationMinutes,
		ShowAnswerKey:         t.ShowAnswerKey,
		Approved:              t.Approved,
		Active:                t.Active,
		TeacherID:             t.TeacherID,
		CoordinatorID:         t.CoordinatorID,
		ReviewStatus:          t.ReviewStatus,
		ReviewComment:         t.ReviewComment,
		CreatedAt:             t.CreatedAt,
		UpdatedAt:             t.UpdatedAt,
	}
}

// Get returns the merged test. Students get the redacted view.
func (s *Service) Get(ctx context.Context, a Actor, id string) (exam.Test, error) {
	t, err := s.mergedTest(ctx, id)
	if err != nil {
		return exam.Test{}, err
	}
	if err := canSee(a, t); err != nil {
		return exam.Test{}, err
	}
	if a.Role == exam.RoleStudent {
		return exam.RedactForStudent(t), nil
	}
	return t, nil
}

// List returns the tests a may see, newest first as the store orders them.
func (s *Service) List(ctx context.Context, a Actor, courseRef string) ([]TestSummary, error) {
	f := TestFilter{CourseRef: courseRef}
	switch a.Role {
	case exam.RoleStudent:
		f.ApprovedOnly, f.ActiveOnly = true, true
	case exam.RoleTeacher:
		f.TeacherID = a.ID
	case exam.RoleCoordinator, exam.RoleAdmin:
	default:
		return nil, exam.Deniedf("Unknown role")
	}
	roots, err := s.store.ListRootTests(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list tests: %w", err)
	}

	out := make([]TestSummary, 0, len(roots))
	for _, root := range roots {
		t, parts := root, 1
		if exam.PositionOf(root).IsRoot() {
			if t, err = s.mergedTest(ctx, root.ID); err != nil {
				if exam.KindOf(err) == exam.KindNotFound {
					continue // deleted meanwhile
				}
				return nil, err
			}
			parts = root.ChunkInfo.Total
		}
		if canSee(a, t) != nil {
			continue
		}
		sum := summarize(t, parts)
		if a.Role == exam.RoleStudent {
			sum.ReviewStatus, sum.ReviewComment = "", ""
		}
		out = append(out, sum)
	}
	return out, nil
}

// Review records a coordinator's decision on a teacher's test: "accept" or
// "return" with a comment.
func (s *Service) Review(ctx context.Context, a Actor, id, decision, comment string) (exam.Test, error) {
	var action exam.Action
	switch decision {
	case "accept":
		action = exam.ActionAccept
	case "return":
		action = exam.ActionReturn
	default:
		return exam.Test{}, exam.Validationf("Decision must be 'accept' or 'return'")
	}
	g, err := s.loadGroup(ctx, id)
	if err != nil {
		return exam.Test{}, err
	}
	tr, err := exam.NextReviewState(exam.GroupSnapshot(g.docs), a.Role, action, comment)
	if err != nil {
		return exam.Test{}, err
	}
	if err := s.applyToGroup(ctx, g, tr.Fields); err != nil {
		return exam.Test{}, err
	}
	s.log.Info("test reviewed",
		zap.String("root_id", g.rootID),
		zap.String("decision", decision),
		zap.String("state", string(tr.State)),
		zap.String("actor", a.ID))
	s.publish(ctx, events.TestReviewed, g.rootID, map[string]any{"actor": a.ID, "decision": decision})
	return s.reload(ctx, g.rootID)
}

// Approve marks every part of a coordinator's test approved.
func (s *Service) Approve(ctx context.Context, a Actor, id string) (exam.Test, error) {
	g, err := s.loadGroup(ctx, id)
	if err != nil {
		return exam.Test{}, err
	}
	tr, err := exam.NextReviewState(exam.GroupSnapshot(g.docs), a.Role, exam.ActionApprove, "")
	if err != nil {
		return exam.Test{}, err
	}
	if err := exam.ValidateForApproval(g.merged); err != nil {
		return exam.Test{}, err
	}
	if err := s.applyToGroup(ctx, g, tr.Fields); err != nil {
		return exam.Test{}, err
	}
	s.log.Info("test approved",
		zap.String("root_id", g.rootID),
		zap.Int("parts", len(g.docs)),
		zap.String("actor", a.ID))
	s.publish(ctx, events.TestApproved, g.rootID, map[string]any{"actor": a.ID, "parts": len(g.docs)})
	return s.reload(ctx, g.rootID)
}

// Delete removes every part of a test and the submissions made against it.
func (s *Service) Delete(ctx context.Context, a Actor, id string) error {
	g, err := s.loadGroup(ctx, id)
	if err != nil {
		return err
	}
	if _, err := exam.NextReviewState(exam.GroupSnapshot(g.docs), a.Role, exam.ActionDelete, ""); err != nil {
		return err
	}
	if a.Role != exam.RoleAdmin && !owns(a, g.merged) {
		return exam.Deniedf("You can only delete your own tests")
	}

	n, err := s.store.DeleteTests(ctx, g.ids())
	if err != nil {
		return fmt.Errorf("delete group %s: %w", g.rootID, err)
	}
	subs, err := s.store.DeleteSubmissionsForTest(ctx, g.rootID)
	if err != nil {
		return fmt.Errorf("delete submissions of %s: %w", g.rootID, err)
	}
	s.invalidate(ctx, g.rootID)
	s.log.Info("test deleted",
		zap.String("root_id", g.rootID),
		zap.Int("parts", n),
		zap.Int("submissions", subs),
		zap.String("actor", a.ID))
	s.publish(ctx, events.TestDeleted, g.rootID, map[string]any{"actor": a.ID, "parts": n, "submissions": subs})
	return nil
}

func (s *Service) reload(ctx context.Context, rootID string) (exam.Test, error) {
	g, err := s.loadGroup(ctx, rootID)
	if err != nil {
		return exam.Test{}, err
	}
	return g.merged, nil
}
