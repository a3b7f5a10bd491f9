package exam

import "strings"

// ReviewStatus is the teacher-submission workflow tag stored on a test.
type ReviewStatus string

const (
	ReviewNone                   ReviewStatus = ""
	ReviewSubmittedToCoordinator ReviewStatus = "submitted_to_coordinator"
	ReviewAcceptedByCoordinator  ReviewStatus = "accepted_by_coordinator"
	ReviewChangesRequested       ReviewStatus = "changes_requested"
)

// State is the lifecycle position of a test, derived from its stored fields.
type State string

const (
	StateDraft                  State = "draft"
	StateSubmittedToCoordinator State = "submitted_to_coordinator"
	StateAcceptedByCoordinator  State = "accepted_by_coordinator"
	StateChangesRequested       State = "changes_requested"
	StateSubmittedToAdmin       State = "submitted_to_admin"
	StateApproved               State = "approved"
)

type Action string

const (
	ActionEdit          Action = "edit"
	ActionAccept        Action = "accept"
	ActionReturn        Action = "return"
	ActionApprove       Action = "approve"
	ActionActivate      Action = "activate"
	ActionDeactivate    Action = "deactivate"
	ActionShowAnswerKey Action = "show_answer_key"
	ActionHideAnswerKey Action = "hide_answer_key"
	ActionDelete        Action = "delete"
)

// Snapshot is the part of a (merged) test the state machine decides on.
type Snapshot struct {
	Approved     bool
	Active       bool
	ReviewStatus ReviewStatus
	CreatorRole  Role
}

func SnapshotOf(t Test) Snapshot {
	return Snapshot{
		Approved:     t.Approved,
		Active:       t.Active,
		ReviewStatus: t.ReviewStatus,
		CreatorRole:  t.CreatorRole(),
	}
}

// GroupSnapshot builds the snapshot of a whole chunk group. The group is
// teacher-owned if any of its documents is.
func GroupSnapshot(docs []Test) Snapshot {
	if len(docs) == 0 {
		return Snapshot{}
	}
	s := Snapshot{Approved: true, Active: true, CreatorRole: RoleCoordinator}
	for _, d := range docs {
		s.Approved = s.Approved && d.Approved
		s.Active = s.Active && d.Active
		if d.TeacherID != "" {
			s.CreatorRole = RoleTeacher
		}
		if d.ParentTestID == "" || s.ReviewStatus == ReviewNone {
			s.ReviewStatus = d.ReviewStatus
		}
	}
	return s
}

// State derives the lifecycle state of s.
func (s Snapshot) State() State {
	switch {
	case s.Approved:
		return StateApproved
	case s.CreatorRole == RoleCoordinator:
		return StateSubmittedToAdmin
	}
	switch s.ReviewStatus {
	case ReviewSubmittedToCoordinator:
		return StateSubmittedToCoordinator
	case ReviewAcceptedByCoordinator:
		return StateAcceptedByCoordinator
	case ReviewChangesRequested:
		return StateChangesRequested
	}
	return StateDraft
}

// Transition is the outcome of a permitted action: the resulting state and
// the group-wide fields the caller must persist on every chunk.
type Transition struct {
	State  State
	Fields TestPatch
}

// NextReviewState decides whether role may perform action on a test in
// state cur. Ownership of the test is checked by the caller.
func NextReviewState(cur Snapshot, role Role, action Action, comment string) (Transition, error) {
	state := cur.State()
	switch action {
	case ActionEdit:
		return nextOnEdit(cur, role)

	case ActionAccept, ActionReturn:
		if role != RoleCoordinator {
			return Transition{}, Deniedf("Only coordinators can review teacher tests")
		}
		if cur.CreatorRole != RoleTeacher {
			return Transition{}, Deniedf("Only teacher-created tests go through coordinator review")
		}
		if cur.Approved {
			return Transition{}, newErr(KindAlreadyApproved, "Test is already approved")
		}
		if state == StateAcceptedByCoordinator {
			return Transition{}, newErr(KindAlreadyLocked, "Test has already been accepted")
		}
		if action == ActionAccept {
			st := ReviewAcceptedByCoordinator
			return Transition{State: StateAcceptedByCoordinator, Fields: TestPatch{ReviewStatus: &st, ReviewComment: strPtr("")}}, nil
		}
		comment = strings.TrimSpace(comment)
		if comment == "" {
			return Transition{}, Validationf("A comment is required when returning a test for changes")
		}
		st := ReviewChangesRequested
		return Transition{State: StateChangesRequested, Fields: TestPatch{ReviewStatus: &st, ReviewComment: &comment}}, nil

	case ActionApprove:
		if role != RoleAdmin {
			return Transition{}, Deniedf("Only admins can approve tests")
		}
		if cur.CreatorRole == RoleTeacher {
			return Transition{}, Deniedf("Admin can only approve coordinator-created tests")
		}
		if cur.Approved {
			return Transition{}, newErr(KindAlreadyApproved, "Test is already approved")
		}
		return Transition{State: StateApproved, Fields: TestPatch{Approved: boolPtr(true)}}, nil

	case ActionActivate, ActionDeactivate:
		if role != RoleCoordinator && role != RoleAdmin {
			return Transition{}, Deniedf("Only coordinators and admins can change whether a test is active")
		}
		if action == ActionActivate && !cur.Approved {
			return Transition{}, Validationf("Test must be approved before it can be activated")
		}
		return Transition{State: state, Fields: TestPatch{Active: boolPtr(action == ActionActivate)}}, nil

	case ActionShowAnswerKey, ActionHideAnswerKey:
		if role != RoleCoordinator && role != RoleAdmin {
			return Transition{}, Deniedf("Only coordinators and admins can change answer key visibility")
		}
		return Transition{State: state, Fields: TestPatch{ShowAnswerKey: boolPtr(action == ActionShowAnswerKey)}}, nil

	case ActionDelete:
		switch role {
		case RoleAdmin:
			return Transition{State: state}, nil
		case RoleTeacher, RoleCoordinator:
			if role != cur.CreatorRole {
				return Transition{}, Deniedf("You can only delete your own tests")
			}
			if cur.Approved {
				return Transition{}, newErr(KindAlreadyApproved, "Approved tests can only be deleted by an admin")
			}
			return Transition{State: state}, nil
		}
		return Transition{}, Deniedf("You cannot delete tests")
	}
	return Transition{}, Validationf("Unknown action '%s'", action)
}

func nextOnEdit(cur Snapshot, role Role) (Transition, error) {
	if role != RoleTeacher && role != RoleCoordinator {
		return Transition{}, Deniedf("Only the composer can edit a test")
	}
	if role != cur.CreatorRole {
		return Transition{}, Deniedf("You can only edit your own tests")
	}
	if cur.Approved {
		return Transition{}, newErr(KindAlreadyApproved, "Approved tests can no longer be edited")
	}
	if role == RoleCoordinator {
		return Transition{State: StateSubmittedToAdmin}, nil
	}
	if cur.ReviewStatus == ReviewAcceptedByCoordinator {
		return Transition{}, newErr(KindAlreadyLocked, "Test has been accepted by a coordinator and can no longer be edited")
	}
	st := ReviewSubmittedToCoordinator
	return Transition{
		State:  StateSubmittedToCoordinator,
		Fields: TestPatch{ReviewStatus: &st, ReviewComment: strPtr("")},
	}, nil
}
