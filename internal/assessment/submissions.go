package assessment

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sakshi-sonii/CET-for-JES-sub000/internal/events"
	"github.com/sakshi-sonii/CET-for-JES-sub000/internal/exam"
)

// Submit scores a student's answers against the merged test and stores the
// result. Each student may submit a test once.
func (s *Service) Submit(ctx context.Context, a Actor, testID string, answers map[string]int) (exam.Submission, error) {
	if a.Role != exam.RoleStudent {
		return exam.Submission{}, exam.Deniedf("Only students can submit tests")
	}
	t, err := s.mergedTest(ctx, testID)
	if err != nil {
		return exam.Submission{}, err
	}
	if err := canSee(a, t); err != nil {
		return exam.Submission{}, err
	}
	existing, err := s.store.ListSubmissions(ctx, SubmissionFilter{TestID: t.ID, StudentID: a.ID})
	if err != nil {
		return exam.Submission{}, fmt.Errorf("check previous submissions: %w", err)
	}
	if len(existing) > 0 {
		return exam.Submission{}, exam.Conflictf("You have already submitted this test")
	}

	sub := s.engine.ScoreSubmission(t, answers)
	sub.ID = s.newID()
	sub.TestID = t.ID
	sub.StudentID = a.ID
	sub.AnswerKeyAtSubmit = t.ShowAnswerKey
	sub.SubmittedAt = s.now()
	if err := s.store.CreateSubmission(ctx, sub); err != nil {
		if exam.KindOf(err) == exam.KindConflict {
			return exam.Submission{}, exam.Conflictf("You have already submitted this test")
		}
		return exam.Submission{}, fmt.Errorf("store submission: %w", err)
	}
	s.log.Info("submission created",
		zap.String("submission_id", sub.ID),
		zap.String("test_id", t.ID),
		zap.String("student", a.ID),
		zap.Int("score", sub.TotalScore),
		zap.Int("max", sub.TotalMaxScore))
	s.publish(ctx, events.SubmissionCreated, sub.ID, map[string]any{
		"testId": t.ID, "studentId": a.ID, "score": sub.TotalScore, "maxScore": sub.TotalMaxScore, "percentage": sub.Percentage,
	})
	return exam.RedactSubmission(sub, exam.CanViewAnswerKey(sub, t)), nil
}

// ListSubmissions returns the student's own submissions, or for staff the
// submissions matching f.
func (s *Service) ListSubmissions(ctx context.Context, a Actor, f SubmissionFilter) ([]exam.Submission, error) {
	switch a.Role {
	case exam.RoleStudent:
		f.StudentID = a.ID
	case exam.RoleTeacher:
		if f.TestID == "" {
			return nil, exam.Validationf("A test is required")
		}
		if _, err := s.ownedTest(ctx, a, f.TestID); err != nil {
			return nil, err
		}
	case exam.RoleCoordinator, exam.RoleAdmin:
	default:
		return nil, exam.Deniedf("Unknown role")
	}
	if f.TestID != "" && a.Role != exam.RoleStudent {
		t, err := s.mergedTest(ctx, f.TestID)
		if err != nil {
			return nil, err
		}
		f.TestID = t.ID
	}

	subs, err := s.store.ListSubmissions(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list submissions: %w", err)
	}
	if a.Role != exam.RoleStudent {
		return subs, nil
	}
	shown := map[string]bool{}
	for i, sub := range subs {
		show, ok := shown[sub.TestID]
		if !ok {
			show = s.answerKeyShown(ctx, sub.TestID)
			shown[sub.TestID] = show
		}
		subs[i] = exam.RedactSubmission(sub, sub.AnswerKeyAtSubmit || show)
	}
	return subs, nil
}

// GetSubmission returns one submission. Students only see their own, with
// the answer key only when it may be shown.
func (s *Service) GetSubmission(ctx context.Context, a Actor, id string) (exam.Submission, error) {
	sub, err := s.store.GetSubmission(ctx, id)
	if err != nil {
		return exam.Submission{}, err
	}
	switch a.Role {
	case exam.RoleStudent:
		if sub.StudentID != a.ID {
			return exam.Submission{}, exam.Deniedf("You can only view your own submissions")
		}
		show := sub.AnswerKeyAtSubmit || s.answerKeyShown(ctx, sub.TestID)
		return exam.RedactSubmission(sub, show), nil
	case exam.RoleTeacher:
		if _, err := s.ownedTest(ctx, a, sub.TestID); err != nil {
			return exam.Submission{}, err
		}
	case exam.RoleCoordinator, exam.RoleAdmin:
	default:
		return exam.Submission{}, exam.Deniedf("Unknown role")
	}
	return sub, nil
}

// ResultSet is a test with every submission made against it.
type ResultSet struct {
	Test        exam.Test
	Submissions []exam.Submission
	// Students maps student ids to usernames, where the account still exists.
	Students map[string]string
}

// Results gathers a test's submissions for export.
func (s *Service) Results(ctx context.Context, a Actor, testID string) (ResultSet, error) {
	var (
		t   exam.Test
		err error
	)
	switch a.Role {
	case exam.RoleTeacher:
		t, err = s.ownedTest(ctx, a, testID)
	case exam.RoleCoordinator, exam.RoleAdmin:
		t, err = s.mergedTest(ctx, testID)
	default:
		return ResultSet{}, exam.Deniedf("Only staff can export results")
	}
	if err != nil {
		return ResultSet{}, err
	}
	subs, err := s.store.ListSubmissions(ctx, SubmissionFilter{TestID: t.ID})
	if err != nil {
		return ResultSet{}, fmt.Errorf("list submissions: %w", err)
	}
	names := make(map[string]string, len(subs))
	for _, sub := range subs {
		if _, ok := names[sub.StudentID]; ok {
			continue
		}
		u, err := s.store.GetUser(ctx, sub.StudentID)
		switch {
		case err == nil:
			names[sub.StudentID] = u.Username
		case exam.KindOf(err) == exam.KindNotFound:
		default:
			return ResultSet{}, fmt.Errorf("load student %s: %w", sub.StudentID, err)
		}
	}
	return ResultSet{Test: t, Submissions: subs, Students: names}, nil
}

func (s *Service) ownedTest(ctx context.Context, a Actor, testID string) (exam.Test, error) {
	t, err := s.mergedTest(ctx, testID)
	if err != nil {
		return exam.Test{}, err
	}
	if !owns(a, t) {
		return exam.Test{}, exam.Deniedf("You can only view results of your own tests")
	}
	return t, nil
}

// answerKeyShown reports the test's current flag. A deleted test shows nothing.
func (s *Service) answerKeyShown(ctx context.Context, testID string) bool {
	t, err := s.mergedTest(ctx, testID)
	if err != nil {
		if exam.KindOf(err) != exam.KindNotFound {
			s.log.Warn("load test for answer key", zap.String("test_id", testID), zap.Error(err))
		}
		return false
	}
	return t.ShowAnswerKey
}
