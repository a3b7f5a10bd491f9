package rbac

import "github.com/sakshi-sonii/CET-for-JES-sub000/internal/exam"

// Permissions checked by the HTTP routes.
const (
	TestView    = "test:view"
	TestCreate  = "test:create"
	TestUpdate  = "test:update"
	TestDelete  = "test:delete"
	TestReview  = "test:review"
	TestApprove = "test:approve"

	SubmissionCreate  = "submission:create"
	SubmissionViewOwn = "submission:view-own"
	SubmissionViewAll = "submission:view-all"
	SubmissionExport  = "submission:export"

	UsersManage = "users:manage"
)

// RolePermissions is the default policy. Ownership and workflow state are
// checked by the service, not here.
var RolePermissions = map[exam.Role][]string{
	exam.RoleStudent: {
		TestView,
		SubmissionCreate,
		SubmissionViewOwn,
	},
	exam.RoleTeacher: {
		TestView,
		TestCreate,
		TestUpdate,
		TestDelete,
		SubmissionViewAll,
		SubmissionExport,
	},
	exam.RoleCoordinator: {
		"test:*",
		SubmissionViewAll,
		SubmissionExport,
	},
	exam.RoleAdmin: {
		"*", // everything
	},
}
